package extractor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dslipak/pdf"
)

// extractPDF tries the embedded text layer first and falls back to
// per-page OCR when the PDF is image-only or unreadable. Only a failure of
// both strategies surfaces as an error.
func (e *Extractor) extractPDF(ctx context.Context, path string) (string, error) {
	text, err := e.embeddedText(path)
	if err == nil && hasUsableText(text) {
		return text, nil
	}
	if err != nil {
		e.logger.Warn("embedded text extraction failed, falling back to OCR",
			slog.String("path", path),
			slog.Any("error", err),
		)
	} else {
		e.logger.Info("pdf has no usable text layer, falling back to OCR",
			slog.String("path", path),
		)
	}

	ocrText, ocrErr := e.ocrPDF(ctx, path)
	if ocrErr != nil {
		return "", fmt.Errorf("pdf extraction failed: %w", ocrErr)
	}
	return ocrText, nil
}

// embeddedText reads the PDF's text layer.
func (e *Extractor) embeddedText(path string) (string, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// pageCount reports how many pages the PDF has, defaulting to 1 when the
// document structure cannot be read (the rasterizer may still cope).
func (e *Extractor) pageCount(path string) int {
	r, err := pdf.Open(path)
	if err != nil {
		return 1
	}
	if n := r.NumPage(); n > 0 {
		return n
	}
	return 1
}
