package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Malnati/wa-fin-ctrl-sub000/internal/common"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/diagnosis"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/export"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/inference"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/ocr"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/pipeline"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/quality"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/report"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/server"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on environment")
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploads, err := storage.OpenUploadStore(ctx, cfg.Storage.DBPath, logger)
	if err != nil {
		logger.Error("open upload store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := uploads.Close(); cerr != nil {
			logger.Error("close upload store", "error", cerr)
		}
	}()

	files, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Server.BaseURL, logger)
	if err != nil {
		logger.Error("init file store", "error", err)
		os.Exit(1)
	}

	chain := ocr.NewChain(ocr.Config{
		Provider:    cfg.OCR.Provider,
		Pdftoppm:    cfg.OCR.Pdftoppm,
		FallbackBin: cfg.OCR.FallbackBin,
		Language:    cfg.OCR.Language,
		DPI:         cfg.OCR.DPI,
	}, logger)

	client := inference.NewClient(inference.Config{
		BaseURL: cfg.Inference.BaseURL,
		Model:   cfg.Inference.Model,
		Engine:  cfg.Inference.Engine,
		Referer: cfg.Inference.Referer,
		Title:   cfg.Inference.Title,
		Timeout: cfg.Inference.Timeout,
	}, inference.ResolveCredential(cfg.Inference.APIKey, cfg.Inference.Cookie), logger)

	router := diagnosis.NewRouter(client, quality.Thresholds{
		MinLength:          cfg.Router.MinLength,
		MinNumericLinesPct: cfg.Router.MinNumericLinesPct,
	}, diagnosis.DefaultPrompts(), logger)

	reports := report.NewPDFGenerator(cfg.Storage.Dir, cfg.Server.BaseURL, logger)
	exporter := export.NewService(uploads, logger)

	driver := pipeline.NewDriver(pipeline.Config{
		PDFDirectToDocument: cfg.Router.PDFDirectToDocument,
	}, files, chain, router, reports, uploads, logger)

	srv := server.New(driver, uploads, exporter, cfg.Storage.Dir, logger)
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	logger.Info("stopped")
}
