package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/receiptlab/receiptlab/internal/classify"
	"github.com/receiptlab/receiptlab/internal/extraction"
	"github.com/receiptlab/receiptlab/internal/parsing"
	"github.com/receiptlab/receiptlab/internal/training"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("receiptlab")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "receiptlab.db", "Sample archive file path")
		storagePath = fs.StringLong("storage", "./uploads", "Upload storage directory")
		mode        = fs.StringLong("mode", "live", "Default parse mode: 'live', 'local' or 'ensemble'")

		ocrBackend  = fs.StringLong("ocr", "none", "OCR backend for image uploads: 'gemini', 'ollama' or 'none'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set RECEIPTLAB_GEMINI_KEY)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama vision model name")

		liveBackend = fs.StringLong("live-classifier", "none", "Live classifier backend: 'gemini' or 'none'")
		serverURL   = fs.StringLong("model-server-url", "http://localhost:8500", "Local line-model inference server URL")
		serverModel = fs.StringLong("model-server-model", "receipt-lines", "Local line-model name")

		storeKeywords = fs.StringLong("store-keywords", "", "Comma-separated store-name keywords (empty for defaults)")
		totalKeywords = fs.StringLong("total-keywords", "", "Comma-separated grand-total keywords (empty for defaults)")

		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPTLAB"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	slog.Info("Initializing sample archive...", "path", *dbPath)
	db, err := training.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Initializing upload storage...", "path", *storagePath)
	store, err := training.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	var ocr extraction.OCR
	switch *ocrBackend {
	case "gemini":
		if apiKey == "" {
			slog.Error("Gemini OCR requires an API key. Set --gemini-key or GEMINI_API_KEY")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini OCR...", "model", *geminiModel)
		ocr, err = extraction.NewGeminiOCR(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini OCR", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama OCR...", "url", *ollamaURL, "model", *ollamaModel)
		ocr, err = extraction.NewOllamaOCR(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama OCR", "error", err)
			os.Exit(1)
		}
	case "none":
		slog.Info("No OCR backend configured; image uploads will be rejected")
	default:
		slog.Error("Invalid OCR backend", "backend", *ocrBackend, "valid", "gemini, ollama or none")
		os.Exit(1)
	}
	extractor := extraction.NewTextExtractor(ocr)
	defer extractor.Close()

	// Classifier sessions load lazily: a backend that cannot come up degrades
	// to rule-only parsing instead of failing startup.
	liveSession := classify.NewSessionFromConfig(classify.Config{
		Backend:      *liveBackend,
		GeminiAPIKey: apiKey,
		GeminiModel:  *geminiModel,
	})
	localSession := classify.NewSessionFromConfig(classify.Config{
		Backend:     "server",
		ServerURL:   *serverURL,
		ServerModel: *serverModel,
	})
	defer liveSession.Close()
	defer localSession.Close()

	config := parsing.DefaultConfig()
	if *storeKeywords != "" {
		config.StoreKeywords = splitKeywords(*storeKeywords)
	}
	if *totalKeywords != "" {
		config.TotalKeywords = splitKeywords(*totalKeywords)
	}

	parser := parsing.NewParser(config, map[parsing.ModelID]parsing.Classifier{
		parsing.ModelLive:  classify.NewAdapter(liveSession),
		parsing.ModelLocal: classify.NewAdapter(localSession),
	})

	service := training.NewService(db, extractor, parser, store)
	server := training.NewServer(service, training.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}, parsing.Mode(*mode))

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "mode", *mode)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

func splitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			keywords = append(keywords, part)
		}
	}
	return keywords
}
