// Package metrics turns raw playback rows into the aggregate bundle backing
// the dashboard: derived per-row fields, date filtering, and a single
// deterministic aggregation pass. Aggregates are recomputed from the rows on
// every call; nothing here holds state between passes.
package metrics

import (
	"regexp"
	"strings"

	"adboard/internal/ingest"
)

// VersionNone marks media whose name carries no version suffix.
const VersionNone = "sin_version"

var (
	clientPattern  = regexp.MustCompile(`cliente\d+`)
	versionPattern = regexp.MustCompile(`_v\d+`)
)

// DerivedRecord is a playback row extended with the fields the aggregates
// group by. Client is nil when the media name carries no client id; such
// rows still count toward global totals.
type DerivedRecord struct {
	ingest.PlaybackRecord
	Client  *string `json:"client"`
	Version string  `json:"version"`
	Seconds float64 `json:"seconds"`
	Month   string  `json:"month"`
	Day     string  `json:"day"`
}

// DeriveFields computes the derived columns for every row. It is total:
// no input row is rejected.
func DeriveFields(rows []ingest.PlaybackRecord) []DerivedRecord {
	out := make([]DerivedRecord, 0, len(rows))
	for _, row := range rows {
		d := DerivedRecord{
			PlaybackRecord: row,
			Version:        mediaVersion(row.MediaName),
			Seconds:        float64(row.DurationMS) / 1000,
			Month:          row.PlaybackAt.Format("2006-01"),
			Day:            row.PlaybackAt.Format("2006-01-02"),
		}
		if id := clientPattern.FindString(row.MediaName); id != "" {
			d.Client = &id
		}
		out = append(out, d)
	}
	return out
}

// FilterByDateRange keeps the rows whose playback time falls inside rng.
// A nil range keeps everything.
func FilterByDateRange(rows []DerivedRecord, rng *ingest.DateRange) []DerivedRecord {
	if rng == nil {
		return rows
	}
	kept := make([]DerivedRecord, 0, len(rows))
	for _, r := range rows {
		if rng.Contains(r.PlaybackAt) {
			kept = append(kept, r)
		}
	}
	return kept
}

func mediaVersion(name string) string {
	if m := versionPattern.FindString(name); m != "" {
		return strings.TrimPrefix(m, "_")
	}
	return VersionNone
}
