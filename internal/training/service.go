package training

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/receiptlab/receiptlab/internal/extraction"
	"github.com/receiptlab/receiptlab/internal/parsing"
)

// IDGenerator generates unique sample IDs.
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// ParseOutcome bundles what one parse invocation produced with the input it
// ran on, so the caller can later archive both as a sample.
type ParseOutcome struct {
	RawInput   parsing.RawReceiptInput `json:"raw_input"`
	Result     parsing.Result          `json:"result"`
	StoredFile string                  `json:"stored_file,omitempty"`
}

// Service wires extraction, parsing and persistence together.
type Service struct {
	db          DB
	extractor   extraction.Extractor
	parser      *parsing.Parser
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a Service with default ID generator and time source.
func NewService(db DB, extractor extraction.Extractor, parser *parsing.Parser, storage Storage) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		parser:      parser,
		storage:     storage,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a Service with custom dependencies for testing.
func NewServiceWithDeps(db DB, extractor extraction.Extractor, parser *parsing.Parser, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		parser:      parser,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	filenameJunk = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaceRuns    = regexp.MustCompile(`\s+`)
)

// sanitizeFilename tames phone-generated names before they hit the
// filesystem.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = filenameJunk.ReplaceAllString(base, "")
	base = strings.TrimSpace(spaceRuns.ReplaceAllString(base, " "))

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// ParseText parses directly-provided receipt text.
func (s *Service) ParseText(ctx context.Context, text string, source parsing.Source, mode parsing.Mode) (*ParseOutcome, error) {
	raw := parsing.NewRawInput(text, source)
	result, err := s.parser.Parse(ctx, raw, mode)
	if err != nil {
		return nil, err
	}
	return &ParseOutcome{RawInput: raw, Result: *result}, nil
}

// ParseUpload stores the uploaded file, extracts its raw text and parses it.
// The stored file is removed again when no text can be recovered, since no
// sample will ever reference it.
func (s *Service) ParseUpload(ctx context.Context, filename string, data []byte, contentType string, mode parsing.Mode) (*ParseOutcome, error) {
	id := s.idGenerator.Generate()
	storedName := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))

	storedPath, err := s.storage.Save(storedName, data)
	if err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}

	text, err := s.extractor.ExtractText(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to extract text from upload",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.storage.Delete(storedPath)
		return nil, fmt.Errorf("extracting text: %w", err)
	}

	raw := parsing.NewRawInput(text, parsing.Source{
		FileName:   filename,
		MimeType:   contentType,
		UploadedAt: s.timeSource.Now(),
	})

	result, err := s.parser.Parse(ctx, raw, mode)
	if err != nil {
		s.storage.Delete(storedPath)
		return nil, err
	}

	return &ParseOutcome{RawInput: raw, Result: *result, StoredFile: storedPath}, nil
}

// SaveSample archives one corrected sample. The service assigns identity and
// timestamp; the archive itself rejects duplicate IDs, keeping samples
// write-once. Persistence failures are returned verbatim so the caller can
// retry with its in-memory state intact.
func (s *Service) SaveSample(sample *Sample) (*Sample, error) {
	if len(sample.RawInput.Lines) == 0 {
		return nil, fmt.Errorf("sample has no raw input lines")
	}

	sample.ID = s.idGenerator.Generate()
	sample.CreatedAt = s.timeSource.Now()

	if err := s.db.SaveSample(sample); err != nil {
		return nil, fmt.Errorf("archiving sample: %w", err)
	}
	return sample, nil
}

// GetSample retrieves an archived sample.
func (s *Service) GetSample(id string) (*Sample, error) {
	sample, err := s.db.GetSample(id)
	if err != nil {
		return nil, fmt.Errorf("getting sample: %w", err)
	}
	return sample, nil
}

// ListSamples returns all archived samples.
func (s *Service) ListSamples() ([]*Sample, error) {
	samples, err := s.db.ListSamples()
	if err != nil {
		return nil, fmt.Errorf("listing samples: %w", err)
	}
	return samples, nil
}

// ItemsCSV renders a receipt's items as CSV with the fixed column order
// description, quantity, price, total. Numeric fields are written with two
// decimal places; absent fields stay empty.
func ItemsCSV(receipt parsing.ParsedReceipt) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"description", "quantity", "price", "total"}); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	for _, item := range receipt.Items {
		record := []string{
			item.Description,
			formatAmount(item.Quantity),
			formatAmount(item.Price),
			formatAmount(item.Total),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("writing csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// WriteDataset streams the archive as JSONL training rows: one row per
// receipt line, carrying its feature vector and the label the archived model
// run assigned. This is the feed for retraining the line classifier.
func (s *Service) WriteDataset(w io.Writer) error {
	samples, err := s.db.ListSamples()
	if err != nil {
		return fmt.Errorf("listing samples: %w", err)
	}

	encoder := json.NewEncoder(w)
	for _, sample := range samples {
		labels := sample.ModelOutput.LineClasses
		for i, line := range sample.RawInput.Lines {
			label := parsing.LineOther
			if i < len(labels) {
				label = labels[i]
			}
			row := DatasetRow{
				SampleID: sample.ID,
				Line:     line,
				Features: parsing.ExtractLineFeatures(line),
				Label:    string(label),
			}
			if err := encoder.Encode(row); err != nil {
				return fmt.Errorf("encoding dataset row: %w", err)
			}
		}
	}
	return nil
}
