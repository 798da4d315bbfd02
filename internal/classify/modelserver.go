package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/receiptlab/receiptlab/internal/parsing"
)

// ModelServer classifies lines against a local inference server hosting the
// trained line model. It is the "local" backend: the feature matrix is POSTed
// as rows and the server answers with one label index per row.
type ModelServer struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewModelServer creates a ModelServer backend.
func NewModelServer(baseURL string, modelName string) (*ModelServer, error) {
	if baseURL == "" {
		baseURL = "http://localhost:8500"
	}
	if modelName == "" {
		modelName = "receipt-lines"
	}

	return &ModelServer{
		baseURL: baseURL,
		model:   modelName,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type classifyRequest struct {
	Model    string      `json:"model"`
	Features [][]float64 `json:"features"`
}

type classifyResponse struct {
	Labels []int `json:"labels"`
}

// Classify submits the feature matrix and maps the returned indices via the
// fixed index table.
func (m *ModelServer) Classify(ctx context.Context, lines []string, features [][]float64) ([]parsing.LineClass, error) {
	body, err := json.Marshal(classifyRequest{Model: m.model, Features: features})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/classify", m.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling model server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("model server error (status %d): %s", resp.StatusCode, string(msg))
	}

	var decoded classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(decoded.Labels) != len(lines) {
		return nil, fmt.Errorf("expected %d labels, got %d", len(lines), len(decoded.Labels))
	}

	labels := make([]parsing.LineClass, len(decoded.Labels))
	for i, index := range decoded.Labels {
		labels[i] = classFromIndex(index)
	}
	return labels, nil
}

func (m *ModelServer) Version() string { return m.model }

// Close is a no-op for the HTTP client.
func (m *ModelServer) Close() error { return nil }
