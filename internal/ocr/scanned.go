package ocr

import (
	"bytes"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// minDirectTextChars is the minimum text-layer size below which a PDF is
// classified as scanned (image-only).
const minDirectTextChars = 50

// DirectPDFText extracts the machine-readable text layer of a PDF, if any.
func DirectPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	body, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// IsScannedPDF reports whether a PDF has no usable machine-extractable text.
// Extraction errors are classified as scanned so the OCR tiers get a chance.
func (c *Chain) IsScannedPDF(path string) bool {
	text, err := DirectPDFText(path)
	if err != nil {
		c.logger.Debug("ocr.scan_check.text_layer_error", "path", path, "error", err)
		return true
	}
	return len(text) < minDirectTextChars
}

// countPDFPages reads the page count from PDF metadata. A metadata error must
// never fail the whole job, so the fallback is a single page.
func countPDFPages(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 1, err
	}
	if n < 1 {
		n = 1
	}
	return n, nil
}
