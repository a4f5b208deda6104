// Package exporter writes operator-facing exports of the persisted canonical
// records.
package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"brainage/internal/integrate"
	"brainage/pkg/contracts/domain"
)

const featureSheet = "Features"

// FeatureMatrix exports every persisted subject's canonical record as one
// Excel worksheet: one row per subject, one column per platform feature, in
// schema order.
type FeatureMatrix struct {
	store  *integrate.Store
	logger *slog.Logger
}

// NewFeatureMatrix creates the exporter.
func NewFeatureMatrix(store *integrate.Store, logger *slog.Logger) *FeatureMatrix {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeatureMatrix{store: store, logger: logger}
}

// WriteTo writes the workbook to w and returns the number of subject rows.
func (e *FeatureMatrix) WriteTo(w io.Writer) (int, error) {
	ids, err := e.store.SubjectIDs()
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(featureSheet)
	if err != nil {
		return 0, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	header := make([]any, 0, len(domain.PlatformFeatures)+1)
	header = append(header, "subject_id")
	for _, name := range domain.PlatformFeatures {
		header = append(header, name)
	}
	if err := setRow(f, 1, header); err != nil {
		return 0, err
	}

	for i, id := range ids {
		rec, err := e.store.Get(id)
		if err != nil {
			return 0, fmt.Errorf("load record %s: %w", id, err)
		}
		row := make([]any, 0, len(header))
		row = append(row, id)
		for _, name := range domain.PlatformFeatures {
			row = append(row, rec[name])
		}
		if err := setRow(f, i+2, row); err != nil {
			return 0, err
		}
	}

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}

	e.logger.Info("feature matrix exported", "subjects", len(ids))
	return len(ids), nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(featureSheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}
