package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Malnati/wa-fin-ctrl-sub000/constants"
)

func TestLocalStoreSaveAndReadBack(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:8080/", nil)
	require.NoError(t, err)

	url, path, err := s.Save(context.Background(), []byte("exam bytes"), "blood panel (final).pdf")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/files/"))
	assert.NotContains(t, url, " ")
	assert.NotContains(t, url, "(")

	data, err := s.ReadBack(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("exam bytes"), data)
}

func TestLocalStoreSanitizesTraversal(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://x", nil)
	require.NoError(t, err)

	_, path, err := s.Save(context.Background(), []byte("x"), "../../etc/passwd")
	require.NoError(t, err)
	rel, err := filepath.Rel(dir, path)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(rel, ".."), "stored file must stay inside the storage dir")
}

func TestUploadStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenUploadStore(ctx, filepath.Join(t.TempDir(), "diag.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	rec := &UploadRecord{
		ID:         uuid.New(),
		Filename:   "exam.pdf",
		MediaType:  "application/pdf",
		SizeBytes:  1234,
		StoredPath: "/tmp/exam.pdf",
		FileURL:    "http://x/files/exam.pdf",
		ReportURL:  "http://x/files/report.pdf",
		Route:      constants.DocumentPath,
		Provenance: constants.ProvenanceOCRPrimary,
		Diagnosis:  "elevated glucose of 182 mg/dL",
		SentRaw:    true,
		Status:     constants.UploadDiagnosed,
	}
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Filename, got.Filename)
	assert.Equal(t, constants.DocumentPath, got.Route)
	assert.Equal(t, constants.ProvenanceOCRPrimary, got.Provenance)
	assert.True(t, got.SentRaw)
	assert.Equal(t, rec.Diagnosis, got.Diagnosis)

	list, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)
}

func TestUploadStoreGetMissing(t *testing.T) {
	ctx := context.Background()
	store, err := OpenUploadStore(ctx, filepath.Join(t.TempDir(), "diag.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.GetByID(ctx, uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
