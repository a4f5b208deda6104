package domain

import (
	"math"
	"strconv"
	"strings"
)

// TrialRow is a single row of a raw behavioral-task log. Cell values are kept
// as strings the way the export writes them; numeric access goes through
// Float, which treats empty cells and non-numeric text as missing.
type TrialRow map[string]string

// Has reports whether the row has a non-empty value in the given column.
func (r TrialRow) Has(column string) bool {
	v, ok := r[column]
	if !ok {
		return false
	}
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, "nan")
}

// Float parses the named cell as a float64. The second return value is false
// for absent, empty, or non-numeric cells.
func (r TrialRow) Float(column string) (float64, bool) {
	v, ok := r[column]
	if !ok {
		return 0, false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// String returns the trimmed cell value, or "" when absent.
func (r TrialRow) String(column string) string {
	return strings.TrimSpace(r[column])
}

// TrialLog is the ordered sequence of trial rows for one subject and one
// task, together with the column order of the source file. Logs are read
// once per pipeline run and discarded.
type TrialLog struct {
	Columns []string
	Rows    []TrialRow
}

// HasColumn reports whether the log contains the named column.
func (l *TrialLog) HasColumn(name string) bool {
	for _, c := range l.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of rows in the log.
func (l *TrialLog) Len() int {
	return len(l.Rows)
}
