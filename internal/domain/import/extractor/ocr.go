package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ocrPDF rasterizes each page and runs OCR on it, one page at a time in
// page order. Each page's bitmap is deleted before the next page begins,
// and a page that fails to render or recognize is skipped rather than
// aborting the whole import.
func (e *Extractor) ocrPDF(ctx context.Context, path string) (string, error) {
	pages := e.pageCount(path)

	var chunks []string
	for page := 1; page <= pages; page++ {
		text, err := e.ocrPage(ctx, path, page)
		if err != nil {
			e.logger.Warn("ocr page failed",
				slog.String("path", path),
				slog.Int("page", page),
				slog.Any("error", err),
			)
			continue
		}
		chunks = append(chunks, text)
	}

	if len(chunks) == 0 {
		return "", fmt.Errorf("ocr produced no text for %q", path)
	}
	return strings.Join(chunks, "\n"), nil
}

// ocrPage renders a single page to a temporary bitmap and recognizes it.
// The bitmap is removed even when recognition fails.
func (e *Extractor) ocrPage(ctx context.Context, path string, page int) (string, error) {
	bitmap, err := e.renderPage(ctx, path, page)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.Remove(bitmap); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("failed to remove temp bitmap",
				slog.String("path", bitmap),
				slog.Any("error", err),
			)
		}
	}()

	return e.ocrImage(ctx, bitmap)
}

// renderPage rasterizes one PDF page with pdftoppm and returns the path of
// the produced bitmap.
func (e *Extractor) renderPage(ctx context.Context, path string, page int) (string, error) {
	prefix := filepath.Join(e.cfg.TempDir, fmt.Sprintf("ocr_temp_%d_%d", os.Getpid(), page))

	pageArg := strconv.Itoa(page)
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-f", pageArg, "-l", pageArg,
		"-r", strconv.Itoa(e.cfg.DPI),
		"-scale-to-x", strconv.Itoa(e.cfg.PageWidth),
		"-scale-to-y", strconv.Itoa(e.cfg.PageHeight),
		"-png",
		path, prefix,
	)
	if err != nil {
		return "", fmt.Errorf("render page %d: %s: %w", page, strings.TrimSpace(string(errb)), err)
	}

	// pdftoppm appends a zero-padded page number to the prefix.
	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		return "", fmt.Errorf("render page %d: no bitmap produced", page)
	}
	return matches[0], nil
}

// ocrImage runs the OCR engine on an image file and returns recognized text.
func (e *Extractor) ocrImage(ctx context.Context, path string) (string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.Language)
	if err != nil {
		return "", fmt.Errorf("tesseract: %s: %w", strings.TrimSpace(string(errb)), err)
	}
	return string(out), nil
}
