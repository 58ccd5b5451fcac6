package config

// DefaultSystemProcessExclusions returns executables that show up in
// execution traces on every machine but say nothing about what the user
// actually did. Matched case-insensitively as substrings of the trace's
// program name.
func DefaultSystemProcessExclusions() []string {
	return []string{
		// Service hosts & session plumbing
		"DLLHOST",
		"SVCHOST",
		"CSRSS",
		"CONHOST",
		"TASKHOST",
		"WUDFHOST",
		"SIHOST",
		"CTFMON",
		"FONTDRVHOST",

		// Desktop shell internals
		"DWM.EXE",
		"SHELLEXPERIENCEHOST",
		"APPLICATIONFRAMEHOST",
		"RUNTIMEBROKER",
		"SYSTEMSETTINGS",
		"LOCKAPP",

		// Indexing & search
		"SEARCHPROTOCOLHOST",
		"SEARCHFILTERHOST",
		"SEARCHINDEXER",

		// Management instrumentation
		"WMIPRVSE",
	}
}
