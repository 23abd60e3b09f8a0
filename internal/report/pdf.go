// Package report renders the human-readable diagnosis report. It implements
// the pipeline's report boundary: failures degrade to an empty reference and
// are never surfaced as errors.
package report

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

// PDFGenerator writes single-page PDF reports next to the stored uploads so
// they are served under the same /files/ prefix.
type PDFGenerator struct {
	dir     string
	baseURL string
	logger  *slog.Logger
}

func NewPDFGenerator(dir, baseURL string, logger *slog.Logger) *PDFGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFGenerator{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Generate renders the report and returns its public reference, or "" when
// rendering fails.
func (g *PDFGenerator) Generate(_ context.Context, diagnosis, fileRef string) string {
	name := "report-" + uuid.New().String() + ".pdf"
	path := filepath.Join(g.dir, name)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Diagnostic Report", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 5, "Generated: "+time.Now().UTC().Format(time.RFC3339), "", 1, "L", false, 0, "")
	if fileRef != "" {
		pdf.CellFormat(0, 5, "Source document: "+fileRef, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, diagnosis, "", "L", false)

	if err := pdf.OutputFileAndClose(path); err != nil {
		g.logger.Warn("report.generate.failed", "path", path, "error", err)
		return ""
	}

	g.logger.Info("report.generated", "path", path)
	return g.baseURL + "/files/" + name
}
