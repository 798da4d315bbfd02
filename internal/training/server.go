package training

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/receiptlab/receiptlab/internal/parsing"
)

// Server exposes the parse and sample-archive HTTP API.
type Server struct {
	service     *Service
	basicAuth   BasicAuth
	defaultMode parsing.Mode
	mux         *http.ServeMux
}

// BasicAuth holds basic authentication credentials. Empty credentials disable
// auth.
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a Server with a default mux. Requests that do not name a
// parse mode run under defaultMode.
func NewServer(service *Service, basicAuth BasicAuth, defaultMode parsing.Mode) *Server {
	return NewServerWithMux(service, basicAuth, defaultMode, http.NewServeMux())
}

// NewServerWithMux creates a Server with a custom mux for testing.
func NewServerWithMux(service *Service, basicAuth BasicAuth, defaultMode parsing.Mode, mux *http.ServeMux) *Server {
	if defaultMode == "" {
		defaultMode = parsing.ModeLive
	}
	s := &Server{
		service:     service,
		basicAuth:   basicAuth,
		defaultMode: defaultMode,
		mux:         mux,
	}
	s.registerRoutes()
	return s
}

func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}
	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Receipt Lab"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes, most specific first.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("POST /api/parse", s.requireAuth(s.handleParseText))
	s.mux.HandleFunc("POST /api/parse/upload", s.requireAuth(s.handleParseUpload))

	s.mux.HandleFunc("GET /api/receipt-samples/export", s.requireAuth(s.handleExportDataset))
	s.mux.HandleFunc("GET /api/receipt-samples/{id}/csv", s.requireAuth(s.handleSampleCSV))
	s.mux.HandleFunc("GET /api/receipt-samples/{id}", s.requireAuth(s.handleGetSample))
	s.mux.HandleFunc("GET /api/receipt-samples", s.requireAuth(s.handleListSamples))
	s.mux.HandleFunc("POST /api/receipt-samples", s.requireAuth(s.handleSaveSample))
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(s.mux.ServeHTTP)(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
