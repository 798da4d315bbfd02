package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const transcribePrompt = `Read every piece of text visible in this receipt image, top to bottom.

Return the raw text exactly as printed, one receipt line per output line.
Do not summarize, translate, reorder or annotate anything.
Do not use markdown code blocks. If the image contains no readable text, return an empty response.`

// GeminiOCR transcribes receipt images with a Google Gemini vision model.
type GeminiOCR struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiOCR creates a GeminiOCR backend.
func NewGeminiOCR(apiKey string, modelName string) (*GeminiOCR, error) {
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

	return &GeminiOCR{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Transcribe sends the PNG to the vision model and returns the raw text.
func (g *GeminiOCR) Transcribe(ctx context.Context, pngData []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData("png", pngData),
		genai.Text(transcribePrompt),
	)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if chunk, ok := part.(genai.Text); ok {
			text.WriteString(string(chunk))
		}
	}
	return stripFences(text.String()), nil
}

// Close closes the Gemini client.
func (g *GeminiOCR) Close() error {
	return g.client.Close()
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
