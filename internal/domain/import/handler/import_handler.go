// Package handler exposes the statement import HTTP endpoint.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/spendtrack/spendtrack/internal/domain/import/normalizer"
	"github.com/spendtrack/spendtrack/internal/domain/import/service"
	"github.com/spendtrack/spendtrack/pkg/interceptors"
)

const maxUploadBytes = 25 << 20

// acceptedExtensions is the upload whitelist. Checked before any file
// content is touched.
var acceptedExtensions = map[string]bool{
	".xls":  true,
	".xlsx": true,
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Importer is the service surface the handler consumes.
type Importer interface {
	ImportFile(ctx context.Context, ownerID uuid.UUID, path, ext string) (*service.ImportResult, error)
}

// ImportHandler handles statement upload requests.
type ImportHandler struct {
	importSvc Importer
	uploadDir string
	logger    *slog.Logger
}

// NewImportHandler creates a new import handler. Uploaded files are
// spooled under uploadDir while the pipeline runs.
func NewImportHandler(importSvc Importer, uploadDir string, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		importSvc: importSvc,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

type skippedDetail struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

type importResponse struct {
	Message        string          `json:"message"`
	TotalRead      int             `json:"totalRead"`
	Inserted       int             `json:"inserted"`
	Skipped        int             `json:"skipped"`
	SkippedDetails []skippedDetail `json:"skippedDetails"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Upload handles POST /import/upload. The statement file is expected in
// the multipart field "file".
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := interceptors.GetUserIDFromContext(ctx)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing file upload"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !acceptedExtensions[ext] {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unsupported file type %q", ext)})
		return
	}

	path, err := h.spool(file, ext)
	if err != nil {
		h.logger.Error("failed to spool upload", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "import failed"})
		return
	}
	// The spooled copy never outlives the request, whatever the outcome.
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			h.logger.Warn("failed to remove uploaded file",
				slog.String("path", path),
				slog.Any("error", err),
			)
		}
	}()

	result, err := h.importSvc.ImportFile(ctx, ownerID, path, ext)
	if err != nil {
		h.logger.Error("import failed",
			slog.String("owner_id", ownerID.String()),
			slog.String("file", header.Filename),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "import failed"})
		return
	}

	details := make([]skippedDetail, 0, len(result.SkippedEntries))
	for _, skipped := range result.SkippedEntries {
		details = append(details, skippedDetail{
			Date:        normalizer.FormatDate(skipped.Entry.Date),
			Description: skipped.Entry.Description,
			Reason:      string(skipped.Reason),
		})
	}

	writeJSON(w, http.StatusOK, importResponse{
		Message:        "Import complete",
		TotalRead:      result.TotalRead,
		Inserted:       result.Inserted,
		Skipped:        result.Skipped,
		SkippedDetails: details,
	})
}

// spool copies the uploaded stream to a temp file under the upload
// directory and returns its path.
func (h *ImportHandler) spool(src io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(h.uploadDir, "upload_*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}

	return tmp.Name(), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
