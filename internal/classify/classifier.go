// Package classify provides line classifier backends for the parsing engine.
// Backends are a capability, not a requirement: when none is configured, or a
// backend fails, every line is labeled Other and the engine falls back to
// pure pattern rules.
package classify

import (
	"context"

	"github.com/receiptlab/receiptlab/internal/parsing"
)

// Backend produces one label per input line, in input order.
type Backend interface {
	parsing.Classifier

	// Close releases backend resources.
	Close() error
}

// classFromIndex maps a model output index to a label. The table is fixed:
// 0 is Item, 1 is Total, anything else is Other.
func classFromIndex(index int) parsing.LineClass {
	switch index {
	case 0:
		return parsing.LineItem
	case 1:
		return parsing.LineTotal
	default:
		return parsing.LineOther
	}
}

func allOther(n int) []parsing.LineClass {
	labels := make([]parsing.LineClass, n)
	for i := range labels {
		labels[i] = parsing.LineOther
	}
	return labels
}

// None is the capability floor: every line is Other and parsing relies on
// pattern rules alone.
type None struct{}

func (None) Classify(_ context.Context, lines []string, _ [][]float64) ([]parsing.LineClass, error) {
	return allOther(len(lines)), nil
}

func (None) Version() string { return "" }

func (None) Close() error { return nil }
