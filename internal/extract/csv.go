package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"brainage/pkg/contracts/domain"
)

// subjectColumn is the participant-code column the platform export writes
// into every trial log.
const subjectColumn = "指定代號"

// ReadTrialLog reads a raw trial-log CSV into an ordered TrialLog. The first
// row is the header; rows shorter than the header are padded with empty
// cells so column lookups stay safe.
func ReadTrialLog(path string) (*domain.TrialLog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trial log: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read trial log: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty trial log: %s", path)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	log := &domain.TrialLog{Columns: header}
	for _, record := range records[1:] {
		row := make(domain.TrialRow, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		log.Rows = append(log.Rows, row)
	}

	return log, nil
}

// subjectIDFromLog returns the participant code from the first row that has
// one. The export repeats the code on every row.
func subjectIDFromLog(log *domain.TrialLog) (string, error) {
	if !log.HasColumn(subjectColumn) {
		return "", fmt.Errorf("column %q not found in trial log", subjectColumn)
	}
	for _, row := range log.Rows {
		if id := row.String(subjectColumn); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("no subject ID present in trial log")
}

// SubjectIDFromFilename returns the leading token of the base filename,
// which the platform uses to embed the subject ID.
func SubjectIDFromFilename(path string) string {
	base := path
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.Index(base, "_"); i >= 0 {
		return base[:i]
	}
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i]
	}
	return base
}
