package parsing

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"time"
)

// ErrEmptyInput is returned when a parse invocation receives no usable text.
// It is the engine's only failure terminal; every other condition degrades to
// a best-effort receipt.
var ErrEmptyInput = errors.New("no receipt text to parse")

// Classifier labels receipt lines. Implementations live in internal/classify;
// the engine is written against this interface only and must produce the same
// item set with a classifier that labels everything Other.
type Classifier interface {
	// Classify returns one LineClass per input line, in input order. The
	// feature matrix is parallel to lines (rows = lines).
	Classify(ctx context.Context, lines []string, features [][]float64) ([]LineClass, error)

	// Version identifies the underlying model for run metadata.
	Version() string
}

// Config carries the injectable heuristics of the engine. The keyword lists
// are locale-tuned data, not code: retargeting the parser to another region's
// receipts means supplying different lists.
type Config struct {
	// StoreKeywords mark header lines naming the merchant.
	StoreKeywords []string
	// TotalKeywords mark lines carrying the grand total.
	TotalKeywords []string
	// SkipKeywords mark noise lines (payment, tax, change) that must never
	// become items.
	SkipKeywords []string
	// HeaderLines bounds the store-name search region.
	HeaderLines int
	// TailLines bounds the fallback grand-total search region.
	TailLines int
}

// DefaultConfig returns the heuristics tuned against European retail
// receipts.
func DefaultConfig() Config {
	return Config{
		StoreKeywords: []string{
			"market", "store", "shop", "magazin", "supermarket",
			"d.o.o", "d.d", "gmbh", "ltd", "plodine", "coop", "kaufland",
			"spar", "lidl", "konzum",
		},
		TotalKeywords: []string{
			"ukupno", "total", "zbroj", "summa", "suma", "za platiti",
			"grand total", "amount due", "balance", "итого", "всього", "сума",
		},
		SkipKeywords: []string{
			"popust", "kartic", "gotovina", "polog", "pdv", "napomena",
			"tax", "change", "payed", "paid", "cash", "subtotal", "summary",
			"bon", "cijena", "artikl",
		},
		HeaderLines: 10,
		TailLines:   15,
	}
}

// Parser assembles segmenter, classifier, item-extraction and inference
// output into structured receipts. It holds no per-parse mutable state, so a
// single Parser is safe for concurrent invocations.
type Parser struct {
	config      Config
	classifiers map[ModelID]Classifier

	storeKeywords *regexp.Regexp
	totalKeywords *regexp.Regexp
	skipKeywords  *regexp.Regexp

	now func() time.Time
}

// NewParser builds a Parser. Classifiers may be nil or partial; a missing
// backend for a requested model id behaves as an unavailable classifier.
func NewParser(config Config, classifiers map[ModelID]Classifier) *Parser {
	if config.HeaderLines <= 0 {
		config.HeaderLines = 10
	}
	if config.TailLines <= 0 {
		config.TailLines = 15
	}
	return &Parser{
		config:        config,
		classifiers:   classifiers,
		storeKeywords: keywordPattern(config.StoreKeywords),
		totalKeywords: keywordPattern(config.TotalKeywords),
		skipKeywords:  keywordPattern(append(append([]string{}, config.SkipKeywords...), config.TotalKeywords...)),
		now:           time.Now,
	}
}

// Parse runs the interpretation pipeline for the requested mode. Ensemble
// mode runs the live and local pipelines concurrently with no shared state;
// a classification failure in one never blocks the other. Only empty input
// fails.
func (p *Parser) Parse(ctx context.Context, raw RawReceiptInput, mode Mode) (*Result, error) {
	if len(raw.Lines) == 0 {
		return nil, ErrEmptyInput
	}

	if mode == ModeEnsemble {
		var wg sync.WaitGroup
		var live, local ModelRunResult
		wg.Add(2)
		go func() {
			defer wg.Done()
			live = p.runModel(ctx, ModelLive, raw, mode)
		}()
		go func() {
			defer wg.Done()
			local = p.runModel(ctx, ModelLocal, raw, mode)
		}()
		wg.Wait()
		return &Result{
			Active: live,
			Runs:   map[ModelID]ModelRunResult{ModelLive: live, ModelLocal: local},
		}, nil
	}

	id := ModelLive
	if mode == ModeLocal {
		id = ModelLocal
	}
	run := p.runModel(ctx, id, raw, mode)
	return &Result{
		Active: run,
		Runs:   map[ModelID]ModelRunResult{id: run},
	}, nil
}

// runModel executes one full pipeline pass under a single model identity:
// classify, extract items, infer store/date/total, assemble.
func (p *Parser) runModel(ctx context.Context, id ModelID, raw RawReceiptInput, mode Mode) ModelRunResult {
	labels := p.classifyLines(ctx, id, raw.Lines)

	parsed := ParsedReceipt{
		StoreName:    p.inferStore(raw.Lines),
		PurchaseDate: inferDate(raw.Lines),
		Items:        ExtractItems(raw.Lines, labels, p.skipKeywords),
		RawText:      raw.RawText,
	}
	parsed.GrandTotal = p.inferTotal(raw.Lines, labels, parsed.Items)

	var version string
	if classifier := p.classifiers[id]; classifier != nil {
		version = classifier.Version()
	}

	return ModelRunResult{
		Parsed:      parsed,
		LineClasses: labels,
		Metadata: RunMetadata{
			ModelID:      id,
			ModelVersion: version,
			ModeUsed:     mode,
			RunAt:        p.now(),
		},
	}
}

// classifyLines asks the model's classifier for per-line labels. Any failure
// or label-count mismatch degrades to all-Other; classification problems
// never abort receipt parsing.
func (p *Parser) classifyLines(ctx context.Context, id ModelID, lines []string) []LineClass {
	classifier := p.classifiers[id]
	if classifier == nil {
		return allOther(len(lines))
	}

	labels, err := classifier.Classify(ctx, lines, ExtractFeatureMatrix(lines))
	if err != nil {
		slog.Warn("line classification failed, using rule-only parsing", "model", id, "error", err)
		return allOther(len(lines))
	}
	if len(labels) != len(lines) {
		slog.Warn("classifier returned wrong label count, using rule-only parsing",
			"model", id, "labels", len(labels), "lines", len(lines))
		return allOther(len(lines))
	}
	return labels
}

func allOther(n int) []LineClass {
	labels := make([]LineClass, n)
	for i := range labels {
		labels[i] = LineOther
	}
	return labels
}
