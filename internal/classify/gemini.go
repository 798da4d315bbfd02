package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/receiptlab/receiptlab/internal/parsing"
)

const classifyPrompt = `You are labeling lines of a retail receipt. For every input line decide its role:

0 = ITEM   (a purchased article with quantity or price)
1 = TOTAL  (the line carrying the grand total or amount due)
2 = OTHER  (header, address, date, tax, payment, or any other noise)

Return ONLY a JSON array of integers, one per input line, in input order.
Do not use markdown code blocks. Example: [2,2,0,0,1]

Lines:
`

// Gemini classifies lines with a Google Gemini model. It is the "live"
// backend: remote, batch, prompted.
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	version string
}

// NewGemini creates a Gemini backend.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   client.GenerativeModel(modelName),
		version: modelName,
	}, nil
}

// Classify sends all lines in one batch and maps the returned indices via the
// fixed index table.
func (g *Gemini) Classify(ctx context.Context, lines []string, _ [][]float64) ([]parsing.LineClass, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var prompt strings.Builder
	prompt.WriteString(classifyPrompt)
	for i, line := range lines {
		fmt.Fprintf(&prompt, "%d: %s\n", i+1, line)
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt.String()))
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	indices, err := parseLabelArray(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing label response: %w", err)
	}
	if len(indices) != len(lines) {
		return nil, fmt.Errorf("expected %d labels, got %d", len(lines), len(indices))
	}

	labels := make([]parsing.LineClass, len(indices))
	for i, index := range indices {
		labels[i] = classFromIndex(index)
	}
	return labels, nil
}

func (g *Gemini) Version() string { return g.version }

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// parseLabelArray extracts a JSON integer array from a model response,
// tolerating markdown fences and surrounding prose.
func parseLabelArray(text string) ([]int, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	var indices []int
	if err := json.Unmarshal([]byte(text[start:end+1]), &indices); err != nil {
		return nil, fmt.Errorf("unmarshaling labels: %w", err)
	}
	return indices, nil
}
