// Package ocr turns scanned (image-only) PDFs into text through a two-tier
// recognition chain: a primary in-process engine first, then an external
// engine invoked per page when the primary fails or produces nothing.
package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Malnati/wa-fin-ctrl-sub000/constants"
)

// ProviderTesseract selects the primary-local-first chain; ProviderEasyOCR
// skips straight to the secondary engine.
const (
	ProviderTesseract = "tesseract"
	ProviderEasyOCR   = "easyocr"
)

// Config for the OCR chain.
type Config struct {
	Provider    string // ProviderTesseract | ProviderEasyOCR
	Pdftoppm    string // binary name or absolute path; if empty -> "pdftoppm"
	FallbackBin string // secondary engine binary; if empty -> "easyocr"
	Language    string // default "eng"
	DPI         int    // rasterization DPI, default 300
}

// Extracted is the outcome of the extraction stage for one document.
type Extracted struct {
	Text       string
	Provenance constants.Provenance
	IsScanned  bool
	Pages      int
	Warnings   []string
	Duration   time.Duration
}

// Chain runs the two-tier recognition fallback for scanned PDFs.
type Chain struct {
	cfg       Config
	runner    Runner
	primary   PageEngine
	secondary PageEngine
	pageCount func(path string) (int, error)
	logger    *slog.Logger
}

// NewChain builds a chain with production engines. The engine selection is
// environment-driven and resolved once; it is not retried within a request.
func NewChain(cfg Config, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderTesseract
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.FallbackBin == "" {
		cfg.FallbackBin = "easyocr"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	runner := execRunner{}
	return &Chain{
		cfg:       cfg,
		runner:    runner,
		primary:   gosseractEngine{lang: cfg.Language},
		secondary: cliEngine{runner: runner, bin: cfg.FallbackBin, lang: cfg.Language},
		pageCount: countPDFPages,
		logger:    logger,
	}
}

// ExtractText produces the ExtractedText for a PDF: the machine-readable text
// layer when one exists, otherwise the OCR chain result. When both tiers come
// back with nothing the result is empty with provenance "none"; the pipeline
// still proceeds with whatever is available.
func (c *Chain) ExtractText(ctx context.Context, path string) Extracted {
	start := time.Now()

	if !c.IsScannedPDF(path) {
		text, err := DirectPDFText(path)
		if err == nil && strings.TrimSpace(text) != "" {
			return Extracted{
				Text:       text,
				Provenance: constants.ProvenanceDirect,
				Duration:   time.Since(start),
			}
		}
		c.logger.Warn("ocr.direct.unexpected_empty", "path", path, "error", err)
	}

	res, err := c.ExtractScannedPDF(ctx, path)
	res.IsScanned = true
	res.Duration = time.Since(start)
	if err != nil {
		c.logger.Error("ocr.chain.failed", "path", path, "error", err)
		res.Text = ""
		res.Provenance = constants.ProvenanceNone
		res.Warnings = append(res.Warnings, err.Error())
	}
	if strings.TrimSpace(res.Text) == "" && res.Provenance == "" {
		res.Provenance = constants.ProvenanceNone
	}
	return res
}

// ExtractScannedPDF runs the two-tier recognition chain over a scanned PDF.
// The primary pass wins when it recognizes anything; an empty or failed
// primary pass triggers one secondary pass whose result is returned even if
// it is also empty. A secondary engine failure is the chain's error.
func (c *Chain) ExtractScannedPDF(ctx context.Context, path string) (Extracted, error) {
	if c.cfg.Provider != ProviderTesseract {
		c.logger.Info("ocr.chain.alternate_provider", "provider", c.cfg.Provider)
		return c.secondaryPass(ctx, path)
	}

	res, err := c.runPass(ctx, path, c.primary)
	if err == nil && res.recognized > 0 {
		return Extracted{
			Text:       res.text,
			Provenance: constants.ProvenanceOCRPrimary,
			Pages:      res.pages,
			Warnings:   res.warnings,
		}, nil
	}
	if err != nil {
		c.logger.Warn("ocr.primary.failed", "path", path, "error", err)
	} else {
		c.logger.Warn("ocr.primary.empty", "path", path, "pages", res.pages)
	}

	return c.secondaryPass(ctx, path)
}

func (c *Chain) secondaryPass(ctx context.Context, path string) (Extracted, error) {
	res, err := c.runPass(ctx, path, c.secondary)
	if err != nil {
		return Extracted{Provenance: constants.ProvenanceNone}, fmt.Errorf("secondary engine: %w", err)
	}
	return Extracted{
		Text:       res.text,
		Provenance: constants.ProvenanceOCRSecondary,
		Pages:      res.pages,
		Warnings:   res.warnings,
	}, nil
}

type passResult struct {
	text       string
	pages      int
	recognized int // pages that produced non-empty text
	warnings   []string
}

// runPass persists the PDF to a scratch location, rasterizes page by page and
// feeds each image to the engine. A failing page inserts an explicit marker
// and processing continues; scratch artifacts are removed per page and the
// scratch copy after the loop, on success and failure alike.
func (c *Chain) runPass(ctx context.Context, path string, engine PageEngine) (passResult, error) {
	var res passResult

	scratch, err := os.MkdirTemp("", "diag-ocr-*")
	if err != nil {
		return res, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			c.logger.Warn("ocr.scratch.cleanup_failed", "dir", scratch, "error", rmErr)
		}
	}()

	scratchPDF := filepath.Join(scratch, "input.pdf")
	if err := copyFile(path, scratchPDF); err != nil {
		return res, fmt.Errorf("copy to scratch: %w", err)
	}

	pages, err := c.pageCount(scratchPDF)
	if err != nil {
		// Unreadable metadata must not fail the job; assume a single page.
		c.logger.Warn("ocr.page_count.unreadable", "path", path, "error", err)
		res.warnings = append(res.warnings, fmt.Sprintf("page count unreadable: %v", err))
	}
	res.pages = pages

	var b strings.Builder
	for page := 1; page <= pages; page++ {
		text, perr := c.recognizePage(ctx, scratchPDF, scratch, page, engine)
		if perr != nil {
			c.logger.Warn("ocr.page.failed",
				"engine", engine.Name(), "page", page, "error", perr)
			res.warnings = append(res.warnings, fmt.Sprintf("page %d: %v", page, perr))
			fmt.Fprintf(&b, "----- Page %d: recognition failed -----\n", page)
			continue
		}
		fmt.Fprintf(&b, "----- Page %d -----\n", page)
		if text != "" {
			res.recognized++
			b.WriteString(text)
			b.WriteString("\n")
		}
	}

	if res.recognized > 0 {
		res.text = b.String()
	}
	return res, nil
}

// recognizePage rasterizes one page at the configured DPI and runs the
// engine on it. Page scratch artifacts (image, enhanced image) are removed
// before returning, whatever the outcome.
func (c *Chain) recognizePage(ctx context.Context, pdfPath, scratch string, page int, engine PageEngine) (string, error) {
	prefix := filepath.Join(scratch, fmt.Sprintf("page-%d", page))

	defer func() {
		matches, _ := filepath.Glob(prefix + "*")
		for _, m := range matches {
			if rmErr := os.Remove(m); rmErr != nil {
				c.logger.Warn("ocr.page.cleanup_failed", "artifact", m, "error", rmErr)
			}
		}
	}()

	// pdftoppm -f N -l N -r <dpi> -png <in.pdf> <prefix>
	_, errb, err := c.runner.Run(ctx, c.cfg.Pdftoppm,
		"-f", fmt.Sprintf("%d", page),
		"-l", fmt.Sprintf("%d", page),
		"-r", fmt.Sprintf("%d", c.cfg.DPI),
		"-png", pdfPath, prefix)
	if err != nil {
		return "", fmt.Errorf("rasterize: %w (stderr: %s)", err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", fmt.Errorf("rasterize: no image produced for page %d", page)
	}

	text, err := engine.Recognize(ctx, matches[0])
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
