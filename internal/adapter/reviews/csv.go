// Package reviews loads raw customer reviews from CSV exports. It is a thin
// ingestion wrapper; the storage format is opaque to the core.
package reviews

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"reviewcat/internal/domain"
)

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
}

// CSVSource reads reviews from CSV files selected by a doublestar glob.
// Files must carry a header row; only the text column is required.
type CSVSource struct {
	root       string
	glob       string
	textColumn string
	dateColumn string
}

func NewCSVSource(root, glob, textColumn, dateColumn string) *CSVSource {
	if textColumn == "" {
		textColumn = "content"
	}
	if dateColumn == "" {
		dateColumn = "at"
	}
	return &CSVSource{
		root:       root,
		glob:       glob,
		textColumn: textColumn,
		dateColumn: dateColumn,
	}
}

// Load returns reviews from all matching files. A non-empty dateKey keeps
// only rows whose date value starts with it (e.g. "2024-03" or "2024-03-15").
func (s *CSVSource) Load(dateKey string) ([]domain.Review, error) {
	pattern := s.glob
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(s.root, s.glob)
	}

	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid review glob %q: %w", s.glob, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no review files match %q", pattern)
	}

	var all []domain.Review
	for _, path := range paths {
		revs, err := s.loadFile(path, dateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		all = append(all, revs...)
	}

	return all, nil
}

func (s *CSVSource) loadFile(path, dateKey string) ([]domain.Review, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	textIdx, ok := cols[s.textColumn]
	if !ok {
		return nil, fmt.Errorf("missing column %q", s.textColumn)
	}
	dateIdx, hasDate := cols[s.dateColumn]
	labelIdx, hasLabel := cols["category"]

	var out []domain.Review
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		if textIdx >= len(record) {
			continue
		}

		text := strings.TrimSpace(record[textIdx])
		if text == "" {
			continue
		}

		var date time.Time
		var raw string
		if hasDate && dateIdx < len(record) {
			raw = strings.TrimSpace(record[dateIdx])
			date = parseDate(raw)
		}
		if dateKey != "" && !strings.HasPrefix(raw, dateKey) {
			continue
		}

		rev := domain.Review{
			ID:   fmt.Sprintf("%s:%d", filepath.Base(path), line),
			Text: text,
			Date: date,
		}
		if hasLabel && labelIdx < len(record) {
			rev.PriorLabel = strings.TrimSpace(record[labelIdx])
		}
		out = append(out, rev)
	}

	return out, nil
}

func parseDate(raw string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
