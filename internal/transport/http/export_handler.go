package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "brainage/internal/errors"
	"brainage/internal/exporter"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler serves the feature-matrix download.
type ExportHandler struct {
	matrix *exporter.FeatureMatrix
	logger *slog.Logger
}

// NewExportHandler creates the export handler.
func NewExportHandler(matrix *exporter.FeatureMatrix, logger *slog.Logger) *ExportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportHandler{matrix: matrix, logger: logger}
}

// Routes returns the export routes.
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/features.xlsx", h.Features)
	return r
}

// Features writes every subject's canonical record as one Excel workbook.
// The workbook is built in memory first so a failed export can still return
// a JSON error instead of a truncated file.
func (h *ExportHandler) Features(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	rows, err := h.matrix.WriteTo(&buf)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "feature export failed", "error", err)
		render.Render(w, r, apierrors.PipelineError(err))
		return
	}

	filename := fmt.Sprintf("features_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())

	h.logger.InfoContext(r.Context(), "feature matrix served", "subjects", rows)
}
