// Package ingest discovers and loads playback-log CSV files exported by the
// signage platform. Loading is partial-failure tolerant: a file that cannot
// be parsed is logged and skipped, malformed rows are dropped, and the
// surviving rows are concatenated into one unified table in discovery order.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/sirupsen/logrus"

	"adboard/internal/telemetry"
)

// Required playback-log columns. Extra columns are preserved by the files
// themselves but ignored here.
const (
	colMediaName    = "Media Name"
	colDuration     = "Media Duration"
	colMonitorName  = "Monitor Name"
	colReportedDate = "Reported Date"
	colPlaybackDate = "Playback Date"
)

var requiredColumns = []string{colMediaName, colDuration, colMonitorName, colReportedDate, colPlaybackDate}

// datedFilePattern matches the optional YYYY-MM-DD_ prefix of CSV drops.
var datedFilePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_`)

// PlaybackRecord is one playback event as ingested from a log file.
// Records are immutable once loaded; the table is rebuilt on every pass.
type PlaybackRecord struct {
	MonitorName string `json:"monitor_name"`
	MediaName   string `json:"media_name"`
	// DurationMS is the raw media duration in milliseconds.
	DurationMS int64     `json:"duration_ms"`
	ReportedAt time.Time `json:"reported_at"`
	PlaybackAt time.Time `json:"playback_at"`
	SourceFile string    `json:"source_file"`
	// ReportDate is the date associated with the source file, from the
	// filename prefix or else the file's modification time.
	ReportDate time.Time `json:"report_date"`
}

// DateRange is an inclusive calendar-day range. End covers the whole end
// day: the effective upper bound is the start of the following day.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange builds a range from two YYYY-MM-DD dates.
func ParseDateRange(start, end string) (*DateRange, error) {
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if e.Before(s) {
		return nil, fmt.Errorf("end date %s precedes start date %s", end, start)
	}
	return &DateRange{Start: s, End: e}, nil
}

// Contains reports whether t falls within the range, end day inclusive.
func (r *DateRange) Contains(t time.Time) bool {
	if t.Before(r.Start) {
		return false
	}
	return t.Before(r.End.AddDate(0, 0, 1))
}

// ContainsDay reports whether the calendar day d falls within the range.
func (r *DateRange) ContainsDay(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Ingestor loads playback logs from a primary CSV directory, falling back
// to a secondary directory when the primary holds none.
type Ingestor struct {
	dataDir     string
	fallbackDir string
	log         *logrus.Logger
}

// New returns an ingestor over the given directories.
func New(dataDir, fallbackDir string, log *logrus.Logger) *Ingestor {
	return &Ingestor{dataDir: dataDir, fallbackDir: fallbackDir, log: log}
}

// Discover lists the CSV files to load, sorted by filename. When rng is
// given, files whose names embed a date outside the range are excluded
// before loading; undated filenames always pass the pre-filter.
func (i *Ingestor) Discover(rng *DateRange) ([]string, error) {
	files, err := listCSVs(i.dataDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("list %s: %w", i.dataDir, err)
	}
	if len(files) == 0 && i.fallbackDir != "" {
		files, err = listCSVs(i.fallbackDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("list %s: %w", i.fallbackDir, err)
		}
	}

	if rng == nil {
		return files, nil
	}

	kept := files[:0]
	for _, path := range files {
		if day, ok := fileDate(path); ok && !rng.ContainsDay(day) {
			continue
		}
		kept = append(kept, path)
	}
	return kept, nil
}

// Load parses each file independently and concatenates the results. A file
// that cannot be read, is not valid CSV, or lacks a required column is
// logged and skipped; the batch never aborts.
func (i *Ingestor) Load(files []string) []PlaybackRecord {
	var out []PlaybackRecord
	for _, path := range files {
		rows, err := i.loadFile(path)
		if err != nil {
			telemetry.FilesSkipped.Inc()
			i.log.WithError(err).Warnf("skipping playback log %s", filepath.Base(path))
			continue
		}
		out = append(out, rows...)
	}
	return out
}

// LoadAll is Discover followed by Load.
func (i *Ingestor) LoadAll(rng *DateRange) ([]PlaybackRecord, error) {
	files, err := i.Discover(rng)
	if err != nil {
		return nil, err
	}
	return i.Load(files), nil
}

func (i *Ingestor) loadFile(path string) ([]PlaybackRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reportDate := reportDateFor(path)

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	source := filepath.Base(path)
	var rows []PlaybackRecord
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		row, err := parseRow(rec, cols, source, reportDate)
		if err != nil {
			telemetry.RowsSkipped.Inc()
			i.log.WithError(err).Debugf("skipping malformed row in %s", source)
			continue
		}
		rows = append(rows, row)
	}

	telemetry.RowsIngested.Add(float64(len(rows)))
	return rows, nil
}

func parseRow(rec []string, cols map[string]int, source string, reportDate time.Time) (PlaybackRecord, error) {
	cell := func(name string) string {
		idx := cols[name]
		if idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	durationMS, err := parseDuration(cell(colDuration))
	if err != nil {
		return PlaybackRecord{}, fmt.Errorf("bad %s %q: %w", colDuration, cell(colDuration), err)
	}

	row := PlaybackRecord{
		MonitorName: cell(colMonitorName),
		MediaName:   cell(colMediaName),
		DurationMS:  durationMS,
		SourceFile:  source,
		ReportDate:  reportDate,
	}

	// Undated rows stay ingested: the file's report date stands in for a
	// missing or unparsable playback timestamp.
	if t, err := dateparse.ParseAny(cell(colPlaybackDate)); err == nil {
		row.PlaybackAt = t
	} else {
		row.PlaybackAt = reportDate
	}
	if t, err := dateparse.ParseAny(cell(colReportedDate)); err == nil {
		row.ReportedAt = t
	}

	return row, nil
}

func parseDuration(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func mapColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for idx, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := cols[name]; !dup {
			cols[name] = idx
		}
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return cols, nil
}

func listCSVs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// fileDate extracts the YYYY-MM-DD_ filename prefix, when present.
func fileDate(path string) (time.Time, bool) {
	m := datedFilePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", m[1])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// reportDateFor infers the report date of a file: the filename date prefix
// when present, otherwise the modification time truncated to its day.
func reportDateFor(path string) time.Time {
	if d, ok := fileDate(path); ok {
		return d
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	mt := info.ModTime()
	return time.Date(mt.Year(), mt.Month(), mt.Day(), 0, 0, 0, 0, mt.Location())
}
