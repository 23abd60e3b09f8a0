// Package server is the HTTP upload boundary: it owns request parsing and
// response shaping, and delegates all document work to the pipeline driver.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Malnati/wa-fin-ctrl-sub000/internal/pipeline"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/storage"
)

// maxUploadBytes caps multipart uploads.
const maxUploadBytes = 25 << 20

// Driver runs the diagnosis pipeline for one document.
type Driver interface {
	Process(ctx context.Context, doc pipeline.Document) (pipeline.Result, error)
}

// Records reads the bookkeeping store.
type Records interface {
	GetByID(ctx context.Context, id uuid.UUID) (*storage.UploadRecord, error)
	List(ctx context.Context, limit int) ([]*storage.UploadRecord, error)
}

// Exporter produces the XLSX history download.
type Exporter interface {
	ExportXLSX(ctx context.Context) ([]byte, error)
}

// Server wires the HTTP routes.
type Server struct {
	driver   Driver
	records  Records
	exporter Exporter
	filesDir string
	logger   *slog.Logger
}

func New(driver Driver, records Records, exporter Exporter, filesDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		driver:   driver,
		records:  records,
		exporter: exporter,
		filesDir: filesDir,
		logger:   logger,
	}
}

// Routes builds the HTTP router.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/diagnostics", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/diagnostics", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/diagnostics/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/diagnostics/{id}", s.handleGet).Methods(http.MethodGet)
	if s.filesDir != "" {
		r.PathPrefix("/files/").Handler(
			http.StripPrefix("/files/", http.FileServer(http.Dir(s.filesDir))))
	}
	return r
}
