package ingest

import "time"

// SourceStats summarizes one reader's contribution to a run.
type SourceStats struct {
	RecordsRead      int    `json:"records_read"`
	RecordsDiscarded int    `json:"records_discarded"` // corrupt + unknown version + normalizer discards
	UnknownVersions  int    `json:"unknown_versions"`
	PartialFailure   bool   `json:"partial_failure"`
	FailureReason    string `json:"failure_reason,omitempty"`
}

// Summary is the per-run observability result handed back to the caller
// and persisted alongside the events. It exists so the report layer can
// note degraded collection; the engine itself never notifies anyone.
type Summary struct {
	RunID      string                 `json:"run_id"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Window     string                 `json:"window"`
	Sources    map[string]SourceStats `json:"sources"`
	Inserted   int                    `json:"inserted"`
	Updated    int                    `json:"updated"`
	Conflicts  int                    `json:"conflicts"` // merge anomalies, existing value kept
	FailedDays []string               `json:"failed_days,omitempty"`
}

// Degraded reports whether any source failed or any day commit failed.
func (s *Summary) Degraded() bool {
	if len(s.FailedDays) > 0 {
		return true
	}
	for _, st := range s.Sources {
		if st.PartialFailure {
			return true
		}
	}
	return false
}
