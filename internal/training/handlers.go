package training

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/receiptlab/receiptlab/internal/parsing"
)

const maxUploadSize = int64(50 << 20) // phone photos can be large

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type parseTextRequest struct {
	Text     string `json:"text"`
	Mode     string `json:"mode"`
	FileName string `json:"file_name,omitempty"`
}

func (s *Server) parseMode(raw string) parsing.Mode {
	switch parsing.Mode(strings.ToLower(raw)) {
	case parsing.ModeLive:
		return parsing.ModeLive
	case parsing.ModeLocal:
		return parsing.ModeLocal
	case parsing.ModeEnsemble:
		return parsing.ModeEnsemble
	default:
		return s.defaultMode
	}
}

// handleParseText parses pasted receipt text.
func (s *Server) handleParseText(w http.ResponseWriter, r *http.Request) {
	var req parseTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	outcome, err := s.service.ParseText(r.Context(), req.Text, parsing.Source{FileName: req.FileName}, s.parseMode(req.Mode))
	if err != nil {
		if errors.Is(err, parsing.ErrEmptyInput) {
			writeError(w, "No receipt text to parse. Paste text or upload a file first.", http.StatusBadRequest)
			return
		}
		slog.Error("Error parsing text", "error", err)
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// handleParseUpload accepts a multipart file, extracts its text and parses
// it.
func (s *Server) handleParseUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		message := "Error parsing form"
		if err.Error() == "http: request body too large" {
			message = "File is too large. Maximum size is 50MB."
		}
		writeError(w, message, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeError(w, "File is too large. Maximum size is 50MB.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading upload", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFromName(header.Filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	outcome, err := s.service.ParseUpload(r.Context(), header.Filename, data, contentType, s.parseMode(r.FormValue("mode")))
	if err != nil {
		if errors.Is(err, parsing.ErrEmptyInput) {
			writeError(w, "No text could be extracted from this file.", http.StatusBadRequest)
			return
		}
		slog.Error("Error processing upload", "filename", header.Filename, "error", err)
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func contentTypeFromName(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// handleSaveSample archives one corrected sample. Persistence failures are
// surfaced verbatim; the client keeps its edited state and may retry.
func (s *Server) handleSaveSample(w http.ResponseWriter, r *http.Request) {
	var sample Sample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		writeError(w, "Invalid sample payload", http.StatusBadRequest)
		return
	}

	saved, err := s.service.SaveSample(&sample)
	if err != nil {
		slog.Error("Error saving sample", "error", err)
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleListSamples(w http.ResponseWriter, r *http.Request) {
	samples, err := s.service.ListSamples()
	if err != nil {
		slog.Error("Error listing samples", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, samples)
}

func (s *Server) handleGetSample(w http.ResponseWriter, r *http.Request) {
	sample, err := s.service.GetSample(r.PathValue("id"))
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

// handleSampleCSV renders the corrected items of one sample as CSV.
func (s *Server) handleSampleCSV(w http.ResponseWriter, r *http.Request) {
	sample, err := s.service.GetSample(r.PathValue("id"))
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	data, err := ItemsCSV(sample.UserCorrected)
	if err != nil {
		slog.Error("Error rendering CSV", "sample", sample.ID, "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sample.ID+"-items.csv"))
	w.Write(data)
}

// handleExportDataset streams the whole archive as JSONL training rows.
func (s *Server) handleExportDataset(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/x-ndjson")
	if err := s.service.WriteDataset(w); err != nil {
		slog.Error("Error exporting dataset", "error", err)
	}
}
