// Package storage implements the file-store and bookkeeping boundaries of
// the pipeline: saved originals with public references, and upload metadata
// in a local SQLite database.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var reUnsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// LocalStore persists uploaded documents on local disk and hands out public
// references under baseURL/files/.
type LocalStore struct {
	dir     string
	baseURL string
	logger  *slog.Logger
}

func NewLocalStore(dir, baseURL string, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// Dir returns the directory served under /files/.
func (s *LocalStore) Dir() string { return s.dir }

// Save writes the original bytes under a collision-free name and returns the
// public reference plus the on-disk path.
func (s *LocalStore) Save(_ context.Context, data []byte, filename string) (string, string, error) {
	name := uuid.New().String() + "-" + sanitizeName(filename)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write upload: %w", err)
	}
	s.logger.Debug("storage.saved", "path", path, "bytes", len(data))
	return s.baseURL + "/files/" + name, path, nil
}

// ReadBack reloads a saved copy, used when the original buffer is no longer
// resident.
func (s *LocalStore) ReadBack(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read back %s: %w", path, err)
	}
	return data, nil
}

func sanitizeName(filename string) string {
	base := filepath.Base(filename)
	base = reUnsafeName.ReplaceAllString(base, "_")
	if base == "" || base == "." {
		base = "upload"
	}
	return base
}
