package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/logging"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// MessageResponse is returned by mutating admin endpoints
type MessageResponse struct {
	Message string `json:"message" example:"Deleted collection 'ticketData'"`
}

// HealthResponse represents the health status
// @Description Health status with server time
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`
	Timestamp time.Time `json:"timestamp"`
}

// RootResponse describes the service and its endpoints
type RootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// CheckpointResponse carries the ticket checkpoint
type CheckpointResponse struct {
	Message        string    `json:"message,omitempty"`
	LastUpdateTime string    `json:"last_update_time" example:"2025-07-03 15:16:53"`
	Timestamp      time.Time `json:"timestamp"`
}

// UpdateCheckpointRequest is the body of /update-last-ticket-time
type UpdateCheckpointRequest struct {
	LastUpdateTime string `json:"last_update_time" example:"2025-07-03 15:16:53"`
}

// DocumentSyncResponse wraps a single document sync result
type DocumentSyncResponse struct {
	Message string                     `json:"message" example:"Processed successfully"`
	Details *domain.DocumentSyncResult `json:"details"`
}

// MultiDocumentSyncResponse lists per-file results
type MultiDocumentSyncResponse struct {
	Results []domain.DocumentFileResult `json:"results"`
}

// LogsResponse lists matched log lines
type LogsResponse struct {
	Logs []string `json:"logs"`
}

// CollectionsResponse lists collection names
type CollectionsResponse struct {
	Collections []string `json:"collections"`
}

// CleanResponse reports deleted collections
type CleanResponse struct {
	Message string   `json:"message"`
	Deleted []string `json:"deleted"`
}

const invalidCheckpointMessage = "Invalid datetime format. Expected: YYYY-MM-DD HH:MM:SS"

// handleRoot godoc
// @Summary      Service information
// @Tags         Health
// @Produce      json
// @Success      200  {object}  RootResponse
// @Router       / [get]
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Message: "ServiceNow Tickets & PDF Documents Sync API",
		Version: s.cfg.Version,
		Endpoints: map[string]string{
			"health":             "/health",
			"sync_tickets":       "/sync-tickets",
			"last_update_time":   "/last-update-ticket-time",
			"update_last_time":   "/update-last-ticket-time",
			"sync_pdf":           "/sync-pdf",
			"sync_multiple_pdfs": "/sync-multiple-pdfs",
			"logs_between":       "/logs-between",
			"list_collections":   "/list-collections",
			"clean_db":           "/clean-db",
		},
	})
}

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Timestamp: time.Now()})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the database
// @Tags         Health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ready", Timestamp: time.Now()})
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.cfg.Version})
}

// handleSyncTickets godoc
// @Summary      Sync tickets
// @Description  Runs one incremental ticket sync into the ticket collection
// @Tags         Sync
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.SyncOutcome
// @Failure      409  {object}  ErrorResponse  "Sync already running"
// @Failure      500  {object}  ErrorResponse
// @Router       /sync-tickets [post]
func (s *Server) handleSyncTickets(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("starting ticket sync")
	outcome := s.ticketSync.Run(r.Context())

	if outcome.Success {
		s.logger.Info("ticket sync completed", "tickets_processed", outcome.TicketsProcessed)
		writeJSON(w, http.StatusOK, outcome)
		return
	}

	s.logger.Error("ticket sync failed", "message", outcome.Message)
	if errors.Is(outcome.Err, domain.ErrSyncInProgress) {
		writeError(w, http.StatusConflict, outcome.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, outcome.Message)
}

// handleGetCheckpoint godoc
// @Summary      Get last ticket update time
// @Tags         Sync
// @Produce      json
// @Success      200  {object}  CheckpointResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /last-update-ticket-time [get]
func (s *Server) handleGetCheckpoint(w http.ResponseWriter, r *http.Request) {
	info, err := s.checkpoints.Get(r.Context(), s.ticketSync.Collection())
	if err != nil {
		s.logger.Error("failed to load last update time", "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckpointResponse{LastUpdateTime: info.LastUpdateTime, Timestamp: time.Now()})
}

// handleSetCheckpoint godoc
// @Summary      Override last ticket update time
// @Description  The next sync fetches tickets created after this time
// @Tags         Sync
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      UpdateCheckpointRequest  true  "New checkpoint"
// @Success      200      {object}  CheckpointResponse
// @Failure      400      {object}  ErrorResponse  "Invalid datetime format"
// @Failure      500      {object}  ErrorResponse
// @Router       /update-last-ticket-time [post]
func (s *Server) handleSetCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req UpdateCheckpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	info, err := s.checkpoints.Set(r.Context(), s.ticketSync.Collection(), req.LastUpdateTime)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, invalidCheckpointMessage)
			return
		}
		s.logger.Error("failed to update last update time", "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckpointResponse{
		Message:        "Last update time updated successfully",
		LastUpdateTime: info.LastUpdateTime,
		Timestamp:      time.Now(),
	})
}

// handleSyncPDF godoc
// @Summary      Sync one PDF
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file        formData  file    true   "PDF file"
// @Param        collection  query     string  false  "Target collection"
// @Success      200  {object}  DocumentSyncResponse
// @Failure      400  {object}  ErrorResponse  "Missing file or not a PDF"
// @Failure      422  {object}  ErrorResponse  "Unreadable PDF"
// @Failure      500  {object}  ErrorResponse
// @Router       /sync-pdf [post]
func (s *Server) handleSyncPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if !isPDF(header.Filename) {
		writeError(w, http.StatusBadRequest, "Only PDF files are allowed.")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	result, err := s.documents.SyncDocument(r.Context(), content, header.Filename, r.URL.Query().Get("collection"))
	if err != nil {
		s.logger.Error("pdf sync failed", "file", header.Filename, "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DocumentSyncResponse{Message: "Processed successfully", Details: result})
}

// handleSyncMultiplePDFs godoc
// @Summary      Sync several PDFs
// @Description  Each file is processed independently; non-PDFs are skipped
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        files       formData  file    true   "PDF files"
// @Param        collection  query     string  false  "Target collection"
// @Success      200  {object}  MultiDocumentSyncResponse
// @Failure      400  {object}  ErrorResponse  "No files uploaded"
// @Router       /sync-multiple-pdfs [post]
func (s *Server) handleSyncMultiplePDFs(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "No files uploaded.")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "No files uploaded.")
		return
	}

	docs := make([]domain.UploadedDocument, 0, len(headers))
	for _, h := range headers {
		content, err := readPart(h)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read %s", h.Filename))
			return
		}
		docs = append(docs, domain.UploadedDocument{Name: h.Filename, Content: content})
	}

	results := s.documents.SyncDocuments(r.Context(), docs, r.URL.Query().Get("collection"))
	writeJSON(w, http.StatusOK, MultiDocumentSyncResponse{Results: results})
}

// handleLogsBetween godoc
// @Summary      Search log files
// @Tags         Operations
// @Produce      json
// @Param        start_time  query  string    true   "RFC 3339 start, e.g. 2025-07-04T10:00:00Z"
// @Param        end_time    query  string    true   "RFC 3339 end"
// @Param        levels      query  []string  false  "Level filter, repeatable"
// @Success      200  {object}  LogsResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /logs-between [get]
func (s *Server) handleLogsBetween(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseQueryTime(q.Get("start_time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time: "+err.Error())
		return
	}
	end, err := parseQueryTime(q.Get("end_time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_time: "+err.Error())
		return
	}

	lines, err := logging.Search(s.cfg.LogDir, start, end, q["levels"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LogsResponse{Logs: lines})
}

// handleListCollections godoc
// @Summary      List collections
// @Tags         Operations
// @Produce      json
// @Success      200  {object}  CollectionsResponse
// @Router       /list-collections [get]
func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := s.collections.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list collections", "error", err)
		writeServiceError(w, err)
		return
	}

	names := make([]string, 0, len(collections))
	for _, c := range collections {
		names = append(names, c.Name)
	}
	writeJSON(w, http.StatusOK, CollectionsResponse{Collections: names})
}

// handleCleanDB godoc
// @Summary      Delete collections
// @Description  Deletes db_name, or every collection when omitted
// @Tags         Operations
// @Produce      json
// @Security     BearerAuth
// @Param        db_name  query  string  false  "Collection to delete"
// @Success      200  {object}  CleanResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /clean-db [post]
func (s *Server) handleCleanDB(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("db_name")
	if name != "" {
		if err := s.collections.Delete(r.Context(), name); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(w, http.StatusNotFound, fmt.Sprintf("Collection '%s' not found.", name))
				return
			}
			s.logger.Error("failed to clean db", "collection", name, "error", err)
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, CleanResponse{Message: fmt.Sprintf("Deleted collection '%s'", name), Deleted: []string{name}})
		return
	}

	deleted, err := s.collections.DeleteAll(r.Context())
	if err != nil {
		s.logger.Error("failed to clean db", "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CleanResponse{
		Message: fmt.Sprintf("Deleted all collections (%d total)", len(deleted)),
		Deleted: deleted,
	})
}

// Helpers

func isPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// parseQueryTime accepts RFC 3339, or a zone-less timestamp read as local time.
func parseQueryTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("value is required")
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", raw, time.Local)
}

// writeServiceError maps domain errors to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrSyncInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrDocumentParse):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
