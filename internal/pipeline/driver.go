// Package pipeline is the top-level coordinator invoked by the upload
// boundary: it sequences persistence, extraction, routing, report generation
// and response assembly for one document.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Malnati/wa-fin-ctrl-sub000/constants"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/common"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/diagnosis"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/inference"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/ocr"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/storage"
)

// Document is the immutable upload handed over by the boundary layer.
type Document struct {
	Bytes     []byte
	Filename  string
	MediaType string
}

// Result is the assembled pipeline response for one document.
type Result struct {
	UploadID        uuid.UUID            `json:"upload_id"`
	Status          string               `json:"status"`
	Summary         string               `json:"summary"`
	Diagnosis       string               `json:"diagnosis"`
	FileURL         string               `json:"file_url"`
	ReportURL       string               `json:"report_url,omitempty"`
	Route           constants.RoutePath  `json:"route"`
	Provenance      constants.Provenance `json:"provenance,omitempty"`
	SentRawDocument bool                 `json:"sent_raw_document"`
}

// Storage is the persistence boundary for original documents.
type Storage interface {
	Save(ctx context.Context, data []byte, filename string) (publicURL, storedPath string, err error)
	ReadBack(ctx context.Context, path string) ([]byte, error)
}

// ReportGenerator is the report boundary. Failure is an empty reference,
// never an error.
type ReportGenerator interface {
	Generate(ctx context.Context, diagnosis, fileRef string) string
}

// Extractor is the extraction stage for PDFs.
type Extractor interface {
	ExtractText(ctx context.Context, path string) ocr.Extracted
}

// Router is the diagnosis routing/validation/escalation stage.
type Router interface {
	Handle(ctx context.Context, encodedDoc, filename, extractedText string) (diagnosis.Candidate, error)
	DiagnoseDocument(ctx context.Context, encodedDoc, filename string) (diagnosis.Candidate, error)
	Revalidate(ctx context.Context, encodedDoc, filename, prior string) string
}

// Recorder persists bookkeeping rows; best-effort from the driver's point of
// view.
type Recorder interface {
	Insert(ctx context.Context, rec *storage.UploadRecord) error
}

// Config holds the driver's routing policy.
type Config struct {
	// PDFDirectToDocument sends every PDF straight through the document
	// path; the gated text-path flow then only applies to plain-text files.
	PDFDirectToDocument bool
}

// Driver sequences the stages for one document. It holds no mutable state;
// concurrent submissions are independent.
type Driver struct {
	cfg       Config
	storage   Storage
	extractor Extractor
	router    Router
	reports   ReportGenerator
	recorder  Recorder // optional
	logger    *slog.Logger
}

func NewDriver(cfg Config, st Storage, ex Extractor, rt Router, rg ReportGenerator, rec Recorder, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		cfg:       cfg,
		storage:   st,
		extractor: ex,
		router:    rt,
		reports:   rg,
		recorder:  rec,
		logger:    logger,
	}
}

// Process runs the full pipeline for one document. Errors from persistence
// or inference abort the request; report-generation failure degrades the
// response instead.
func (d *Driver) Process(ctx context.Context, doc Document) (Result, error) {
	if len(doc.Bytes) == 0 {
		return Result{}, common.NewAppError("EMPTY_UPLOAD", "document has no content", common.ErrInvalidInput)
	}

	id := uuid.New()
	isPDF := d.isPDF(doc)

	d.logger.Info("pipeline.start",
		"upload_id", id, "filename", doc.Filename,
		"media_type", doc.MediaType, "bytes", len(doc.Bytes), "pdf", isPDF)

	fileURL, storedPath, err := d.storage.Save(ctx, doc.Bytes, doc.Filename)
	if err != nil {
		return Result{}, common.WrapError(err, "persist upload")
	}

	var (
		cand    diagnosis.Candidate
		prov    constants.Provenance
		sentRaw bool
	)

	switch {
	case isPDF && d.cfg.PDFDirectToDocument:
		// Whole-document analysis is always attempted for PDFs in this
		// mode; the optional revalidation pass runs on its answer.
		encoded := inference.EncodeDocument(doc.Bytes)
		cand, err = d.router.DiagnoseDocument(ctx, encoded, doc.Filename)
		if err == nil {
			cand.Text = d.router.Revalidate(ctx, encoded, doc.Filename, cand.Text)
		}
		prov = constants.ProvenanceNone
		sentRaw = true

	case isPDF:
		extracted := d.extractor.ExtractText(ctx, storedPath)
		prov = extracted.Provenance
		d.logger.Info("pipeline.extracted",
			"upload_id", id, "provenance", prov,
			"scanned", extracted.IsScanned, "chars", len(extracted.Text))

		// The original buffer may have been handed off; re-read the saved
		// copy for the inline payload.
		data, rbErr := d.storage.ReadBack(ctx, storedPath)
		if rbErr != nil {
			return Result{}, common.WrapError(rbErr, "read back upload")
		}
		cand, err = d.router.Handle(ctx, inference.EncodeDocument(data), doc.Filename, extracted.Text)
		sentRaw = cand.Path == constants.DocumentPath

	default:
		// Plain text: the extracted text is the file content itself.
		prov = constants.ProvenanceDirect
		cand, err = d.router.Handle(ctx, inference.EncodeDocument(doc.Bytes), doc.Filename, string(doc.Bytes))
		sentRaw = cand.Path == constants.DocumentPath
	}

	if err != nil {
		d.record(ctx, id, doc, storedPath, fileURL, Result{}, constants.UploadFailed)
		return Result{}, err
	}

	res := Result{
		UploadID:        id,
		Status:          "completed",
		Summary:         summaryFor(isPDF),
		Diagnosis:       cand.Text,
		FileURL:         fileURL,
		Route:           cand.Path,
		Provenance:      prov,
		SentRawDocument: sentRaw,
	}

	if usableDiagnosis(cand.Text) {
		res.ReportURL = d.reports.Generate(ctx, cand.Text, fileURL)
	}

	d.record(ctx, id, doc, storedPath, fileURL, res, constants.UploadDiagnosed)

	d.logger.Info("pipeline.done",
		"upload_id", id, "route", cand.Path, "attempt", cand.Attempt,
		"report", res.ReportURL != "", "sent_raw", sentRaw)
	return res, nil
}

func (d *Driver) isPDF(doc Document) bool {
	if constants.IsPDFMediaType(doc.MediaType) {
		return true
	}
	return constants.MapExtToFormat(filepath.Ext(doc.Filename)) == constants.PDF
}

func (d *Driver) record(ctx context.Context, id uuid.UUID, doc Document, storedPath, fileURL string, res Result, status constants.UploadStatus) {
	if d.recorder == nil {
		return
	}
	err := d.recorder.Insert(ctx, &storage.UploadRecord{
		ID:         id,
		Filename:   doc.Filename,
		MediaType:  doc.MediaType,
		SizeBytes:  int64(len(doc.Bytes)),
		StoredPath: storedPath,
		FileURL:    fileURL,
		ReportURL:  res.ReportURL,
		Route:      res.Route,
		Provenance: res.Provenance,
		Diagnosis:  res.Diagnosis,
		SentRaw:    res.SentRawDocument,
		Status:     status,
	})
	if err != nil {
		d.logger.Warn("pipeline.record_failed", "upload_id", id, "error", err)
	}
}

// placeholderAnswers are degenerate diagnosis strings that must not produce
// a report artifact.
var placeholderAnswers = []string{"n/a", "none", "diagnosis unavailable"}

func usableDiagnosis(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, p := range placeholderAnswers {
		if lower == p {
			return false
		}
	}
	return true
}

func summaryFor(isPDF bool) string {
	if isPDF {
		return "PDF document analyzed in full by the inference service."
	}
	return "Document content analyzed by the inference service."
}
