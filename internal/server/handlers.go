package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/zombor/facturas/internal/batch"
	"github.com/zombor/facturas/internal/invoice"
)

const (
	maxFormSize = int64(100 << 20)
	xlsxType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type runResponse struct {
	*batch.Run
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// handleCreateRun stages the uploaded PDFs and processes them as one run
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		s.logger.Error("Error parsing multipart form", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Error parsing form",
		})
		return
	}

	stage := uuid.NewString()
	defer func() {
		if err := s.storage.Delete(stage); err != nil {
			s.logger.Warn("Failed to remove staged uploads", "dir", stage, "error", err)
		}
	}()

	queue := invoice.NewQueue()
	names := make(map[string]string)
	for i, header := range r.MultipartForm.File["files"] {
		if !invoice.IsPDF(header.Filename) {
			s.logger.Info("Skipping non-PDF upload", "filename", header.Filename)
			continue
		}

		f, err := header.Open()
		if err != nil {
			s.logger.Error("Error opening upload", "filename", header.Filename, "error", err)
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.logger.Error("Error reading upload", "filename", header.Filename, "error", err)
			continue
		}

		path, err := s.storage.Save(stage, fmt.Sprintf("%03d_%s", i, sanitizeFilename(header.Filename)), data)
		if err != nil {
			s.logger.Error("Error staging upload", "filename", header.Filename, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Error storing uploaded files",
			})
			return
		}
		names[path] = header.Filename
		queue.AddFiles(path)
	}

	run, err := s.service.Process(r.Context(), queue, nil)
	if run != nil {
		run.Failures = uploadedNames(run.Failures, names)
	}
	switch {
	case errors.Is(err, batch.ErrEmptyQueue):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"warning": "No PDF files were uploaded",
		})
		return
	case errors.Is(err, batch.ErrAllFailed):
		resp := map[string]any{"error": "No invoice could be extracted"}
		if run != nil {
			resp["id"] = run.ID
			resp["failures"] = run.Failures
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	case err != nil:
		s.logger.Error("Error processing run", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if err := writeJSON(w, http.StatusOK, runResponse{Run: run, Message: run.Summary().String()}); err != nil {
		s.logger.Error("Error encoding response", "error", err)
	}
}

// handleListRuns returns the run history, newest first
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.ListRuns()
	if err != nil {
		s.logger.Error("Error listing runs", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Ensure we always return an array, not nil
	if runs == nil {
		runs = []*batch.Run{}
	}

	if err := writeJSON(w, http.StatusOK, runs); err != nil {
		s.logger.Error("Error encoding response", "error", err)
	}
}

// handleGetRun returns a single run with its summary message
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	if err := writeJSON(w, http.StatusOK, runResponse{Run: run, Message: run.Summary().String()}); err != nil {
		s.logger.Error("Error encoding response", "error", err)
	}
}

// handleGetReport downloads the spreadsheet written by a run
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	if run.ReportPath == "" {
		corsError(w, "Run has no report", http.StatusNotFound)
		return
	}

	f, err := os.Open(run.ReportPath)
	if err != nil {
		s.logger.Error("Error opening report", "run_id", run.ID, "path", run.ReportPath, "error", err)
		corsError(w, "Report not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	name := filepath.Base(run.ReportPath)
	setCORSHeaders(w)
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, run.FinishedAt, f)
}

// uploadedNames swaps staged paths in failures for the uploaded file names
func uploadedNames(failures []batch.Failure, names map[string]string) []batch.Failure {
	out := make([]batch.Failure, len(failures))
	for i, f := range failures {
		if name, ok := names[f.Path]; ok {
			f.Error = strings.ReplaceAll(f.Error, f.Path, name)
			f.Path = name
		}
		out[i] = f
	}
	return out
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*batch.Run, bool) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Run ID required", http.StatusBadRequest)
		return nil, false
	}
	run, err := s.service.GetRun(id)
	if errors.Is(err, batch.ErrRunNotFound) {
		corsError(w, "Run not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.logger.Error("Error getting run", "run_id", id, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return run, true
}
