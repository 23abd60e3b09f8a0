// Package export produces XLSX workbooks of the diagnosis history for the
// admin surface.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Malnati/wa-fin-ctrl-sub000/internal/storage"
)

// Lister is the slice of the bookkeeping store the exporter needs.
type Lister interface {
	List(ctx context.Context, limit int) ([]*storage.UploadRecord, error)
}

// Service produces XLSX bytes for diagnosis exports.
type Service struct {
	store  Lister
	logger *slog.Logger
}

func NewService(store Lister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ExportXLSX returns a workbook with one row per processed upload.
func (s *Service) ExportXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	recs, err := s.store.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Diagnoses"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{
		"Uploaded At",
		"Filename",
		"Media Type",
		"Route",
		"Provenance",
		"Sent Raw Document",
		"Status",
		"Diagnosis",
		"File URL",
		"Report URL",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, rec := range recs {
		values := []any{
			rec.CreatedAt.Format(time.RFC3339),
			rec.Filename,
			rec.MediaType,
			string(rec.Route),
			string(rec.Provenance),
			rec.SentRaw,
			string(rec.Status),
			rec.Diagnosis,
			rec.FileURL,
			rec.ReportURL,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}

	s.logger.Info("export.xlsx.ok", "rows", len(recs), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}
