// Package extraction turns uploaded files into raw receipt text. It is glue
// in front of the parsing engine: plain text passes through, PDFs yield their
// first-page text layer, and images are normalized to PNG and handed to an
// OCR backend.
package extraction

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Extractor returns the raw multi-line text for an uploaded file. The text
// may be imperfect or empty; the parsing engine copes.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte, contentType string) (string, error)

	// Close releases extractor resources.
	Close() error
}

// OCR transcribes a normalized PNG image to raw text.
type OCR interface {
	Transcribe(ctx context.Context, pngData []byte) (string, error)
	Close() error
}

// TextExtractor routes by content type. The OCR backend is optional; without
// one, image uploads are rejected and PDFs rely on their text layer.
type TextExtractor struct {
	ocr OCR
}

// NewTextExtractor creates a TextExtractor. ocr may be nil.
func NewTextExtractor(ocr OCR) *TextExtractor {
	return &TextExtractor{ocr: ocr}
}

// ExtractText extracts raw text from one uploaded file. Only the first page
// of a PDF is considered; receipts are single-page documents.
func (t *TextExtractor) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))

	switch {
	case strings.HasPrefix(mimeType, "text/"), mimeType == "":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("text upload is not valid UTF-8")
		}
		return string(data), nil

	case mimeType == "application/pdf":
		text, err := extractPDFText(data)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
		// Scanned PDFs carry no text layer. Render the page and OCR it.
		if t.ocr == nil {
			return "", nil
		}
		pngData, err := pdfToPNG(data)
		if err != nil {
			return "", err
		}
		return t.ocr.Transcribe(ctx, pngData)

	default:
		if t.ocr == nil {
			return "", fmt.Errorf("no OCR backend configured for %s uploads", mimeType)
		}
		pngData, _, err := normalizeToPNG(data, mimeType)
		if err != nil {
			return "", err
		}
		return t.ocr.Transcribe(ctx, pngData)
	}
}

// Close closes the OCR backend, if any.
func (t *TextExtractor) Close() error {
	if t.ocr == nil {
		return nil
	}
	return t.ocr.Close()
}
