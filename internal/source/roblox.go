package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/runnerr0/daytrail/internal/timeline"
)

// placeIDPatterns match the game identifier in Roblox client log lines.
// The client has changed the casing and framing across releases.
var placeIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)placeid["\s:=]+(\d{6,})`),
	regexp.MustCompile(`"placeId":(\d{6,})`),
	regexp.MustCompile(`placeId=(\d{6,})`),
}

var gameJoinPattern = regexp.MustCompile(`(?i)(GameJoin|JoinGame|Connection accepted)`)

var logTimestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)

// knownGames maps popular place IDs to display names, sparing a network
// lookup for the common cases.
var knownGames = map[string]string{
	"286090429":  "Adopt Me!",
	"4924922222": "Brookhaven RP",
	"920587237":  "Tower of Hell",
	"2788229376": "Blox Fruits",
	"6284583030": "Doors",
	"189707":     "Natural Disaster Survival",
	"185655149":  "Murder Mystery 2",
	"3956818381": "Bedwars",
	"2753915549": "Pet Simulator X",
	"1962086868": "Tower Defense Simulator",
	"4520749081": "King Legacy",
	"537413528":  "Mega Easy Obby",
	"606849621":  "Jailbreak",
	"301549746":  "Royale High",
	"292439477":  "Phantom Forces",
	"3527629287": "Blade Ball",
	"142823291":  "Murder Mystery",
	"7449423635": "Toilet Tower Defense",
}

// GameName resolves a place ID to a display name, falling back to the ID.
func GameName(placeID string) string {
	if name, ok := knownGames[placeID]; ok {
		return name
	}
	return "place " + placeID
}

// RobloxReader extracts game sessions from Roblox client logs. Each log
// file covers one client run; place IDs are pattern-matched out of the
// text, the session instant comes from the first ISO timestamp in the log
// (client-local) with the file mtime as fallback.
type RobloxReader struct {
	Dir string
}

func (r *RobloxReader) Name() string { return "roblox" }

func (r *RobloxReader) Read(ctx context.Context, window timeline.Window) (*ReadResult, error) {
	if _, err := os.Stat(r.Dir); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, r.Dir, err)
	}

	var logs []string
	err := filepath.WalkDir(r.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".log") {
			logs = append(logs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %v", ErrUnavailable, r.Dir, err)
	}

	res := &ReadResult{}
	for _, path := range logs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		info, err := os.Stat(path)
		if err != nil {
			res.Corrupt++
			continue
		}
		if !window.Contains(info.ModTime()) {
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			res.Corrupt++
			continue
		}

		sessionTime := info.ModTime()
		if m := logTimestampPattern.Find(content); m != nil {
			if t, err := time.ParseInLocation("2006-01-02T15:04:05", string(m), time.Local); err == nil {
				sessionTime = t
			}
		}
		joined := gameJoinPattern.Match(content)

		for _, placeID := range extractPlaceIDs(content) {
			res.Records = append(res.Records, timeline.RawRecord{
				Source:  timeline.SourceGameSession,
				Subject: placeID,
				Time:    timeline.Instant(sessionTime),
				Attrs: map[string]any{
					"game":     GameName(placeID),
					"joined":   joined,
					"log_file": filepath.Base(path),
				},
				Disambiguator: filepath.Base(path),
			})
		}
	}

	return res, nil
}

// extractPlaceIDs returns the distinct place IDs mentioned in a log, in
// first-seen order.
func extractPlaceIDs(content []byte) []string {
	seen := make(map[string]bool)
	var out []string
	for _, pat := range placeIDPatterns {
		for _, m := range pat.FindAllSubmatch(content, -1) {
			id := string(m[1])
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
