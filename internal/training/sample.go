// Package training archives labeled receipt samples. Each sample pairs the
// raw OCR input with the machine parse and the user's corrected parse; the
// archive is what future classifier models are trained on.
package training

import (
	"time"

	"github.com/receiptlab/receiptlab/internal/parsing"
)

// Sample is the archival unit handed to persistence: raw input, the model
// output the user saw, any alternative model runs, and the corrected receipt.
// Samples are append-only and write-once; they are never mutated after
// creation.
type Sample struct {
	ID            string                                     `json:"id"`
	RawInput      parsing.RawReceiptInput                    `json:"raw_input"`
	ModelOutput   parsing.ModelRunResult                     `json:"model_output"`
	Alternatives  map[parsing.ModelID]parsing.ModelRunResult `json:"alternative_outputs,omitempty"`
	UserCorrected parsing.ParsedReceipt                      `json:"user_corrected"`
	WasEdited     bool                                       `json:"was_edited"`
	StoredFile    string                                     `json:"stored_file,omitempty"`
	CreatedAt     time.Time                                  `json:"created_at"`
}

// DatasetRow is one training example exported from an archived sample: the
// feature vector of a single line plus the label the model run assigned it.
type DatasetRow struct {
	SampleID string    `json:"sample_id"`
	Line     string    `json:"line"`
	Features []float64 `json:"features"`
	Label    string    `json:"label"`
}
