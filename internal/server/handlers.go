package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Malnati/wa-fin-ctrl-sub000/constants"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/common"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/pipeline"
	"github.com/Malnati/wa-fin-ctrl-sub000/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

type recordResponse struct {
	ID              uuid.UUID `json:"id"`
	Filename        string    `json:"filename"`
	MediaType       string    `json:"media_type"`
	SizeBytes       int64     `json:"size_bytes"`
	FileURL         string    `json:"file_url"`
	ReportURL       string    `json:"report_url,omitempty"`
	Route           string    `json:"route,omitempty"`
	Provenance      string    `json:"provenance,omitempty"`
	Diagnosis       string    `json:"diagnosis,omitempty"`
	SentRawDocument bool      `json:"sent_raw_document"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

func toRecordResponse(rec *storage.UploadRecord) recordResponse {
	return recordResponse{
		ID:              rec.ID,
		Filename:        rec.Filename,
		MediaType:       rec.MediaType,
		SizeBytes:       rec.SizeBytes,
		FileURL:         rec.FileURL,
		ReportURL:       rec.ReportURL,
		Route:           string(rec.Route),
		Provenance:      string(rec.Provenance),
		Diagnosis:       rec.Diagnosis,
		SentRawDocument: rec.SentRaw,
		Status:          string(rec.Status),
		CreatedAt:       rec.CreatedAt,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := common.WithRequestID(r.Context(), uuid.New().String())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer func() { _ = file.Close() }()

	ext := constants.NormalizeExt(filepath.Ext(header.Filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		s.writeError(w, http.StatusUnsupportedMediaType, "unsupported file extension: "+ext)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	mediaType := header.Header.Get("Content-Type")
	res, err := s.driver.Process(ctx, pipeline.Document{
		Bytes:     data,
		Filename:  header.Filename,
		MediaType: mediaType,
	})
	if err != nil {
		s.logger.Error("server.upload.failed",
			"filename", header.Filename, "bytes", len(data), "error", err)
		s.writeError(w, statusFor(err), "diagnosis failed: "+err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid upload id")
		return
	}

	rec, err := s.records.GetByID(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.writeError(w, http.StatusNotFound, "upload not found")
			return
		}
		s.logger.Error("server.get.failed", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load upload")
		return
	}
	s.writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	recs, err := s.records.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("server.list.failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list uploads")
		return
	}

	out := make([]recordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecordResponse(rec))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.exporter.ExportXLSX(r.Context())
	if err != nil {
		s.logger.Error("server.export.failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	filename := "diagnoses-" + time.Now().UTC().Format("20060102-150405") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func statusFor(err error) int {
	if errors.Is(err, common.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, common.ErrUnsupported) {
		return http.StatusUnsupportedMediaType
	}
	return http.StatusBadGateway
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("server.write.failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
