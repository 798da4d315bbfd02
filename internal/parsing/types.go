package parsing

import "time"

// LineClass is the coarse role assigned to one receipt line, either by a
// classifier backend or by defaulting to Other when none is available.
type LineClass string

const (
	LineItem  LineClass = "ITEM"
	LineTotal LineClass = "TOTAL"
	LineOther LineClass = "OTHER"
)

// ParsedItem is one recovered line item. Numeric fields are pointers because
// absence carries meaning: a missing quantity is not a quantity of zero.
type ParsedItem struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Total       *float64 `json:"total,omitempty"`
}

// ParsedReceipt is the canonical engine output. Items follow source line
// order. PurchaseDate holds the raw matched token, never a normalized date.
type ParsedReceipt struct {
	StoreName    string       `json:"store_name,omitempty"`
	PurchaseDate string       `json:"purchase_date,omitempty"`
	GrandTotal   *float64     `json:"grand_total,omitempty"`
	Items        []ParsedItem `json:"items"`
	RawText      string       `json:"raw_text"`
}

// Source describes where a raw input came from
type Source struct {
	FileName   string    `json:"file_name,omitempty"`
	MimeType   string    `json:"mime_type,omitempty"`
	UploadedAt time.Time `json:"uploaded_at,omitempty"`
}

// RawReceiptInput is the single ingestion artifact for a parse invocation,
// produced from pasted text, a PDF text layer, or OCR output. Immutable once
// built.
type RawReceiptInput struct {
	RawText string   `json:"raw_text"`
	Lines   []string `json:"lines"`
	Source  Source   `json:"source"`
}

// ModelID identifies one classifier backend within a run.
type ModelID string

const (
	ModelLive  ModelID = "live"
	ModelLocal ModelID = "local"
)

// Mode selects which model backends a parse invocation runs.
type Mode string

const (
	ModeLive     Mode = "live"
	ModeLocal    Mode = "local"
	ModeEnsemble Mode = "ensemble"
)

// RunMetadata records which backend produced a result and when.
type RunMetadata struct {
	ModelID      ModelID   `json:"model_id"`
	ModelVersion string    `json:"model_version,omitempty"`
	ModeUsed     Mode      `json:"mode_used"`
	RunAt        time.Time `json:"run_at"`
}

// ModelRunResult is the full output of one pipeline run under one model
// identity. LineClasses is parallel to the input lines.
type ModelRunResult struct {
	Parsed      ParsedReceipt `json:"parsed"`
	LineClasses []LineClass   `json:"line_classes"`
	Metadata    RunMetadata   `json:"metadata"`
}

// Result holds the active run plus every per-model run for side-by-side
// review in ensemble mode. Runs are never merged; comparison is left to the
// caller.
type Result struct {
	Active ModelRunResult             `json:"active"`
	Runs   map[ModelID]ModelRunResult `json:"runs"`
}
