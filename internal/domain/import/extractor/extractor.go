// Package extractor pulls raw content out of uploaded statement files.
//
// Spreadsheets are read straight into rows. PDFs go through an ordered list
// of strategies: embedded text first, then rasterize-and-OCR when the PDF
// has no usable text layer. Images go straight to OCR. The OCR engine and
// the PDF rasterizer are external binaries invoked through a Runner.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spendtrack/spendtrack/internal/domain/import/parser"
)

// ErrUnsupportedExtension is returned for file types the pipeline cannot
// read. The handler rejects these before extraction; hitting it here means
// a caller bypassed the whitelist.
var ErrUnsupportedExtension = errors.New("unsupported file extension")

// minEmbeddedTextChars is the threshold below which embedded PDF text is
// considered absent (image-only pages) and the OCR fallback kicks in.
const minEmbeddedTextChars = 20

// Config controls the external OCR toolchain.
type Config struct {
	Tesseract  string // binary name or absolute path; default "tesseract"
	Pdftoppm   string // binary name or absolute path; default "pdftoppm"
	Language   string // tesseract language, default "eng"
	DPI        int    // rasterization resolution, default 150
	PageWidth  int    // rasterized page width in pixels, default 1200
	PageHeight int    // rasterized page height in pixels, default 1600
	TempDir    string // where per-page bitmaps are written, default "./uploads"
}

// Result is the outcome of extraction: either table rows (spreadsheets,
// which bypass the line parser) or a raw text blob.
type Result struct {
	Rows []parser.Row
	Text string
}

// HasRows reports whether extraction produced table rows directly.
func (r Result) HasRows() bool {
	return r.Rows != nil
}

// Extractor selects and runs an extraction strategy per file type.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// New creates an extractor with defaults filled in.
func New(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 150
	}
	if cfg.PageWidth <= 0 {
		cfg.PageWidth = 1200
	}
	if cfg.PageHeight <= 0 {
		cfg.PageHeight = 1600
	}
	if cfg.TempDir == "" {
		cfg.TempDir = "./uploads"
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// WithRunner overrides the command runner; used by tests.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// Extract reads the file at path according to its declared extension.
// ext must be lowercase and include the leading dot.
func (e *Extractor) Extract(ctx context.Context, path, ext string) (Result, error) {
	switch ext {
	case ".xls", ".xlsx":
		rows, err := e.extractSpreadsheet(path, ext)
		if err != nil {
			return Result{}, err
		}
		return Result{Rows: rows}, nil
	case ".pdf":
		text, err := e.extractPDF(ctx, path)
		if err != nil {
			return Result{}, err
		}
		return Result{Text: text}, nil
	case ".jpg", ".jpeg", ".png":
		text, err := e.ocrImage(ctx, path)
		if err != nil {
			return Result{}, err
		}
		return Result{Text: text}, nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
}

// hasUsableText reports whether extracted text carries enough non-whitespace
// content to be worth parsing.
func hasUsableText(text string) bool {
	count := 0
	for _, r := range text {
		if !strings.ContainsRune(" \t\r\n\f\v", r) {
			count++
			if count >= minEmbeddedTextChars {
				return true
			}
		}
	}
	return false
}
