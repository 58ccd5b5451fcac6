package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// CollectCommand — run one ingestion pass over all configured sources.
type CollectCommand struct {
	Days int    `long:"days" description:"Collection window in days" default:"0"`
	Date string `long:"date" description:"Collect a single local day (YYYY-MM-DD) instead of a rolling window"`

	globals *GlobalFlags
	version string
}

// ReportCommand — render one day's merged timeline and statistics.
type ReportCommand struct {
	Date  string `long:"date" description:"Day to report (YYYY-MM-DD), default today"`
	Limit int    `long:"limit" description:"Maximum entries per section" default:"15"`

	globals *GlobalFlags
	version string
}

// StatusCommand — show store health and per-source statistics.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}
