package store

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// table is a parsed delimited file: a header column index plus raw rows.
// Header matching is case-insensitive and tolerant of surrounding whitespace.
type table struct {
	columns map[string]int
	rows    [][]string
}

// readTable opens and fully parses a CSV file. Paths ending in ".gz" are
// transparently gunzipped. Rows with a deviating field count are kept; the
// per-kind parsers decide whether a short row is usable.
func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gunzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: no data rows", path)
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	return &table{columns: columns, rows: rows[1:]}, nil
}

// hasColumn reports whether any of the given column aliases is present.
func (t *table) hasColumn(names ...string) bool {
	for _, name := range names {
		if _, ok := t.columns[name]; ok {
			return true
		}
	}
	return false
}

// field returns the trimmed value of the first present alias, or "" if no
// alias exists or the row is too short to carry it.
func (t *table) field(row []string, names ...string) string {
	for _, name := range names {
		i, ok := t.columns[name]
		if !ok || i >= len(row) {
			continue
		}
		return strings.TrimSpace(row[i])
	}
	return ""
}

// int64Field parses the first present alias as an integer.
func (t *table) int64Field(row []string, names ...string) (int64, bool) {
	s := t.field(row, names...)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some exports write integer ids as floats ("62356.0").
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, false
		}
		return int64(f), true
	}
	return v, true
}

// floatField parses the first present alias as a float.
func (t *table) floatField(row []string, names ...string) (float64, bool) {
	s := t.field(row, names...)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
