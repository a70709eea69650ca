package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendtrack/spendtrack/internal/domain/import/repository"
	"github.com/spendtrack/spendtrack/internal/domain/import/service"
	"github.com/spendtrack/spendtrack/pkg/interceptors"
)

type fakeImporter struct {
	result  *service.ImportResult
	err     error
	gotPath string
	gotExt  string
	ownerID uuid.UUID
}

func (f *fakeImporter) ImportFile(_ context.Context, ownerID uuid.UUID, path, ext string) (*service.ImportResult, error) {
	f.ownerID = ownerID
	f.gotPath = path
	f.gotExt = ext
	return f.result, f.err
}

func newTestHandler(t *testing.T, importer Importer) *ImportHandler {
	t.Helper()
	return NewImportHandler(importer, t.TempDir(), slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &body, writer.FormDataContentType()
}

func doUpload(t *testing.T, h *ImportHandler, filename string, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartUpload(t, filename, []byte("file content"))
	req := httptest.NewRequest(http.MethodPost, "/import/upload", body)
	req.Header.Set("Content-Type", contentType)
	if authenticated {
		req = req.WithContext(interceptors.WithUserID(req.Context(), uuid.New()))
	}

	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	return rec
}

func TestUploadSuccess(t *testing.T) {
	importer := &fakeImporter{result: &service.ImportResult{
		TotalRead: 3,
		Inserted:  2,
		Skipped:   1,
		SkippedEntries: []service.SkippedEntry{
			{
				Entry: repository.Entry{
					Date:        time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
					Description: "Grocery Shopping",
					Amount:      decimal.NewFromInt(450),
				},
				Reason: service.ReasonDuplicate,
			},
		},
	}}
	h := newTestHandler(t, importer)

	rec := doUpload(t, h, "statement.pdf", true)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message        string `json:"message"`
		TotalRead      int    `json:"totalRead"`
		Inserted       int    `json:"inserted"`
		Skipped        int    `json:"skipped"`
		SkippedDetails []struct {
			Date        string `json:"date"`
			Description string `json:"description"`
			Reason      string `json:"reason"`
		} `json:"skippedDetails"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "Import complete", resp.Message)
	assert.Equal(t, 3, resp.TotalRead)
	assert.Equal(t, 2, resp.Inserted)
	assert.Equal(t, 1, resp.Skipped)
	require.Len(t, resp.SkippedDetails, 1)
	assert.Equal(t, "2024-01-05", resp.SkippedDetails[0].Date)
	assert.Equal(t, "Grocery Shopping", resp.SkippedDetails[0].Description)
	assert.Equal(t, "Duplicate", resp.SkippedDetails[0].Reason)

	assert.Equal(t, ".pdf", importer.gotExt)
}

func TestUploadExtensionNormalized(t *testing.T) {
	importer := &fakeImporter{result: &service.ImportResult{}}
	h := newTestHandler(t, importer)

	rec := doUpload(t, h, "STATEMENT.XLSX", true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ".xlsx", importer.gotExt)
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	importer := &fakeImporter{result: &service.ImportResult{}}
	h := newTestHandler(t, importer)

	for _, filename := range []string{"statement.csv", "statement.txt", "statement"} {
		t.Run(filename, func(t *testing.T) {
			rec := doUpload(t, h, filename, true)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, importer.gotExt, "rejected uploads must never reach the pipeline")
}

func TestUploadRequiresAuth(t *testing.T) {
	h := newTestHandler(t, &fakeImporter{result: &service.ImportResult{}})

	rec := doUpload(t, h, "statement.pdf", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadMissingFile(t *testing.T) {
	h := newTestHandler(t, &fakeImporter{result: &service.ImportResult{}})

	req := httptest.NewRequest(http.MethodPost, "/import/upload", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=none")
	req = req.WithContext(interceptors.WithUserID(req.Context(), uuid.New()))

	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadPipelineFailure(t *testing.T) {
	h := newTestHandler(t, &fakeImporter{err: fmt.Errorf("extraction blew up")})

	rec := doUpload(t, h, "statement.pdf", true)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "extraction blew up")
}

func TestUploadRemovesSpooledFile(t *testing.T) {
	importer := &fakeImporter{result: &service.ImportResult{}}
	h := newTestHandler(t, importer)

	rec := doUpload(t, h, "statement.pdf", true)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, importer.gotPath)
	_, err := os.Stat(importer.gotPath)
	assert.True(t, os.IsNotExist(err))
}

func TestUploadRemovesSpooledFileOnFailure(t *testing.T) {
	importer := &fakeImporter{err: fmt.Errorf("boom")}
	h := newTestHandler(t, importer)

	doUpload(t, h, "statement.pdf", true)

	require.NotEmpty(t, importer.gotPath)
	_, err := os.Stat(importer.gotPath)
	assert.True(t, os.IsNotExist(err))
}

func TestUploadSpoolsContentFaithfully(t *testing.T) {
	var spooled []byte
	importer := &spyImporter{onImport: func(path string) {
		data, err := os.ReadFile(path)
		if err == nil {
			spooled = data
		}
	}}
	h := newTestHandler(t, importer)

	content := []byte("binary statement bytes")
	body, contentType := multipartUpload(t, "statement.pdf", content)
	req := httptest.NewRequest(http.MethodPost, "/import/upload", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(interceptors.WithUserID(req.Context(), uuid.New()))

	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, spooled)
}

type spyImporter struct {
	onImport func(path string)
}

func (s *spyImporter) ImportFile(_ context.Context, _ uuid.UUID, path, _ string) (*service.ImportResult, error) {
	if s.onImport != nil {
		s.onImport(path)
	}
	return &service.ImportResult{}, nil
}
