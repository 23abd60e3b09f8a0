// Command runocr runs the extraction stage against a local PDF and prints the
// outcome. Useful for tuning OCR settings without the full service.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Malnati/wa-fin-ctrl-sub000/internal/common"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/ocr"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <path-to-pdf>")
		os.Exit(2)
	}
	path := os.Args[1]
	if _, err := os.Stat(path); err != nil {
		logger.Error("cannot read input file", "path", path, "error", err)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	chain := ocr.NewChain(ocr.Config{
		Provider:    cfg.OCR.Provider,
		Pdftoppm:    cfg.OCR.Pdftoppm,
		FallbackBin: cfg.OCR.FallbackBin,
		Language:    cfg.OCR.Language,
		DPI:         cfg.OCR.DPI,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res := chain.ExtractText(ctx, path)

	logger.Info("extraction done",
		"provenance", res.Provenance,
		"scanned", res.IsScanned,
		"pages", res.Pages,
		"chars", len(res.Text),
		"warnings", len(res.Warnings),
		"duration_ms", res.Duration.Milliseconds(),
	)
	for _, w := range res.Warnings {
		logger.Warn("extraction warning", "detail", w)
	}

	if _, err := os.Stdout.WriteString(res.Text + "\n"); err != nil {
		os.Exit(1)
	}
}
