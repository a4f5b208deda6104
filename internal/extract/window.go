package extract

import "brainage/pkg/contracts/domain"

// SelectWindow drops every row that misses a value in any of the given
// columns, then keeps the last window rows of what remains, in original
// order. Raw logs interleave a variable-length practice phase before the
// scored phase; trimming to the tail of valid rows isolates the scored phase
// without an explicit phase marker. When fewer than window valid rows exist,
// all of them are returned.
func SelectWindow(rows []domain.TrialRow, window int, columns []string) []domain.TrialRow {
	valid := make([]domain.TrialRow, 0, len(rows))
	for _, row := range rows {
		if rowComplete(row, columns) {
			valid = append(valid, row)
		}
	}

	if window <= 0 || len(valid) <= window {
		return valid
	}
	return valid[len(valid)-window:]
}

func rowComplete(row domain.TrialRow, columns []string) bool {
	for _, col := range columns {
		if !row.Has(col) {
			return false
		}
	}
	return true
}
