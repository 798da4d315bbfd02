package classify

import (
	"fmt"
	"strings"
)

// Config selects and parameterizes one classifier backend.
type Config struct {
	// Backend is one of "gemini", "server" or "none".
	Backend string

	GeminiAPIKey string
	GeminiModel  string

	ServerURL   string
	ServerModel string
}

// NewBackend creates a backend from configuration. An empty backend name
// means no classifier is configured and pattern rules carry the parse alone.
func NewBackend(config Config) (Backend, error) {
	switch strings.ToLower(config.Backend) {
	case "gemini":
		return NewGemini(config.GeminiAPIKey, config.GeminiModel)
	case "server":
		return NewModelServer(config.ServerURL, config.ServerModel)
	case "", "none":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown classifier backend: %s (supported: gemini, server, none)", config.Backend)
	}
}

// NewSessionFromConfig wraps backend construction in a lazy session so a
// misconfigured or unreachable backend degrades instead of failing startup.
func NewSessionFromConfig(config Config) *Session {
	return NewSession(func() (Backend, error) {
		return NewBackend(config)
	})
}
