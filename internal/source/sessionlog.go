package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/runnerr0/daytrail/internal/timeline"
)

// Session boundary event IDs from the Windows System log.
const (
	eventLogon    = 7001 // Winlogon user logon
	eventLogoff   = 7002 // Winlogon user logoff
	eventBoot     = 12   // Kernel-General system start
	eventShutdown = 13   // Kernel-General system shutdown
)

// sessionCollectorScript queries the System log for Winlogon and
// Kernel-General boundary events and emits them as JSON.
const sessionCollectorScript = `
$events = @()
try {
  $sys = Get-WinEvent -FilterHashtable @{
    LogName = 'System'; ProviderName = 'Microsoft-Windows-Winlogon'; StartTime = '%s'
  } -ErrorAction SilentlyContinue
  foreach ($e in $sys) {
    $events += [PSCustomObject]@{ Time = $e.TimeCreated.ToString('yyyy-MM-dd HH:mm:ss'); EventId = $e.Id }
  }
} catch {}
try {
  $kernel = Get-WinEvent -FilterHashtable @{
    LogName = 'System'; ProviderName = 'Microsoft-Windows-Kernel-General'; Id = 12, 13; StartTime = '%s'
  } -ErrorAction SilentlyContinue
  foreach ($e in $kernel) {
    $events += [PSCustomObject]@{ Time = $e.TimeCreated.ToString('yyyy-MM-dd HH:mm:ss'); EventId = $e.Id }
  }
} catch {}
$events | ConvertTo-Json
`

// sessionEntry mirrors the collector's JSON output.
type sessionEntry struct {
	Time    string `json:"Time"`
	EventID int    `json:"EventId"`
}

// SessionLogReader collects logon/logoff and boot/shutdown boundaries from
// the system event log by running a collector command and parsing its JSON
// output. The command is injectable so tests (and non-Windows hosts) can
// substitute a fixture.
type SessionLogReader struct {
	// Collect returns the raw JSON event list for the window. Defaults to
	// invoking PowerShell Get-WinEvent.
	Collect func(ctx context.Context, window timeline.Window) ([]byte, error)
	// Timeout bounds the collector invocation. Defaults to 30s.
	Timeout time.Duration
	// Location interprets the collector's wall-clock timestamps. Defaults
	// to time.Local, which is what Get-WinEvent emits.
	Location *time.Location
}

func (r *SessionLogReader) Name() string { return "sessions" }

func (r *SessionLogReader) location() *time.Location {
	if r.Location != nil {
		return r.Location
	}
	return time.Local
}

func (r *SessionLogReader) Read(ctx context.Context, window timeline.Window) (*ReadResult, error) {
	collect := r.Collect
	if collect == nil {
		collect = r.collectPowerShell
	}

	raw, err := collect(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("%w: event log query: %v", ErrUnavailable, err)
	}

	entries, corrupt := parseSessionJSON(raw)

	res := &ReadResult{Corrupt: corrupt}
	for _, e := range entries {
		boundary, ok := boundaryType(e.EventID)
		if !ok {
			continue // unrelated provider event
		}
		// The collector's StartTime bound is one-sided; enforce the full
		// window here so the reader's own output honors it.
		when, err := time.ParseInLocation("2006-01-02 15:04:05", e.Time, r.location())
		if err != nil {
			res.Corrupt++
			continue
		}
		if !window.Contains(when) {
			continue
		}
		res.Records = append(res.Records, timeline.RawRecord{
			Source:  timeline.SourceSessionBoundary,
			Subject: boundary,
			Time:    timeline.WallClock(e.Time),
			Attrs: map[string]any{
				"boundary": boundary,
				"event_id": int64(e.EventID),
			},
		})
	}
	return res, nil
}

func (r *SessionLogReader) collectPowerShell(ctx context.Context, window timeline.Window) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := window.Start.Format("2006-01-02T15:04:05")
	script := fmt.Sprintf(sessionCollectorScript, start, start)
	return exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", script).Output()
}

// parseSessionJSON decodes the collector output. ConvertTo-Json emits a
// bare object for a single event and an array otherwise; an empty log
// produces no output at all.
func parseSessionJSON(raw []byte) (entries []sessionEntry, corrupt int) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, 0
	}

	if err := json.Unmarshal(raw, &entries); err == nil {
		return entries, 0
	}
	var single sessionEntry
	if err := json.Unmarshal(raw, &single); err == nil {
		return []sessionEntry{single}, 0
	}
	return nil, 1
}

func boundaryType(eventID int) (string, bool) {
	switch eventID {
	case eventLogon:
		return "logon", true
	case eventLogoff:
		return "logoff", true
	case eventBoot:
		return "boot", true
	case eventShutdown:
		return "shutdown", true
	default:
		return "", false
	}
}
