package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/oe/sunrain-sub001/internal/formatter"
	"github.com/oe/sunrain-sub001/internal/models"
	"github.com/oe/sunrain-sub001/internal/services"
	"github.com/oe/sunrain-sub001/internal/shared"
	"github.com/oe/sunrain-sub001/internal/tasks"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// HealthHandler reports liveness and the configured sources. It never calls a catalog.
type HealthHandler struct {
	sources []services.SourceClient
}

func NewHealthHandler(sources []services.SourceClient) *HealthHandler {
	return &HealthHandler{sources: sources}
}

func (h *HealthHandler) Routes() []string {
	return []string{"/health"}
}

type sourceStatus struct {
	Source        models.Source `json:"source"`
	Name          string        `json:"name"`
	Authenticated bool          `json:"authenticated"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	statuses := make([]sourceStatus, 0, len(h.sources))
	for _, src := range h.sources {
		statuses = append(statuses, sourceStatus{
			Source:        src.Source(),
			Name:          src.Name(),
			Authenticated: src.IsAuthenticated(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sources": statuses})
}

// ContentHandler runs the pipeline with the request context and renders the ranked records.
//
// Query parameters:
//   - format: json (default), csv, markdown or text
//   - type: keep only playlist or album records
//   - limit: truncate the ranked list
type ContentHandler struct {
	pipeline Pipeline
	logger   *log.Logger
}

func NewContentHandler(pipeline Pipeline, logger *log.Logger) *ContentHandler {
	return &ContentHandler{pipeline: pipeline, logger: logger}
}

func (h *ContentHandler) Routes() []string {
	return []string{"/api/content"}
}

var contentTypes = map[formatter.Format]string{
	formatter.JSON:     "application/json",
	formatter.CSV:      "text/csv; charset=utf-8",
	formatter.Markdown: "text/markdown; charset=utf-8",
	formatter.Text:     "text/plain; charset=utf-8",
}

func (h *ContentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	format, err := formatter.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := parseFilter(q.Get("type"), q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.pipeline.Run(r.Context(), nil)
	if err != nil {
		h.writeRunError(w, r, err)
		return
	}

	data, err := formatter.Export(filter.apply(res.Records), format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("X-Run-Status", string(res.Run.Status))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *ContentHandler) writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case r.Context().Err() != nil:
		h.logger.Debug("client went away during fetch", "error", err)
	case errors.Is(err, shared.ErrAllSourcesUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case shared.IsCanceled(err):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		h.logger.Error("fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type recordFilter struct {
	kind  models.ContentType
	limit int
}

func parseFilter(kind, limit string) (recordFilter, error) {
	var f recordFilter
	if kind != "" {
		f.kind = models.ContentType(kind)
		if !f.kind.Valid() {
			return f, fmt.Errorf("%w: unknown type %q", shared.ErrInvalidArgument, kind)
		}
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return f, fmt.Errorf("%w: limit must be a non-negative integer", shared.ErrInvalidArgument)
		}
		f.limit = n
	}
	return f, nil
}

func (f recordFilter) apply(records []models.ContentRecord) []models.ContentRecord {
	out := make([]models.ContentRecord, 0, len(records))
	for _, r := range records {
		if f.kind != "" && r.Type != f.kind {
			continue
		}
		out = append(out, r)
	}
	if f.limit > 0 && len(out) > f.limit {
		out = out[:f.limit]
	}
	return out
}

// StreamHandler runs the pipeline and streams progress as server-sent events.
//
// Events: "progress" for each [tasks.ProgressUpdate], then either "done" carrying the records
// or "error" carrying the failure message.
type StreamHandler struct {
	pipeline Pipeline
}

func NewStreamHandler(pipeline Pipeline) *StreamHandler {
	return &StreamHandler{pipeline: pipeline}
}

func (h *StreamHandler) Routes() []string {
	return []string{"/api/content/stream"}
}

type progressEvent struct {
	Phase   string `json:"phase"`
	Step    int    `json:"step"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

type runOutcome struct {
	res *tasks.RunResult
	err error
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan runOutcome, 1)

	go func() {
		defer close(progress)
		res, err := h.pipeline.Run(r.Context(), progress)
		done <- runOutcome{res: res, err: err}
	}()

	for u := range progress {
		writeEvent(w, "progress", progressEvent{
			Phase:   u.Phase.String(),
			Step:    u.Step,
			Total:   u.Total,
			Message: u.Message,
		})
		flusher.Flush()
	}

	out := <-done
	if out.err != nil {
		writeEvent(w, "error", map[string]string{"error": out.err.Error()})
	} else {
		writeEvent(w, "done", map[string]any{"records": nonNil(out.res.Records), "run": out.res.Run})
	}
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(`{"error":"encoding failed"}`)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func nonNil(records []models.ContentRecord) []models.ContentRecord {
	if records == nil {
		return []models.ContentRecord{}
	}
	return records
}

// RunsHandler serves the run ledger.
type RunsHandler struct {
	store RunStore
}

// NewRunsHandler creates a handler over store. A nil store answers 503.
func NewRunsHandler(store RunStore) *RunsHandler {
	return &RunsHandler{store: store}
}

func (h *RunsHandler) Routes() []string {
	return []string{"/api/runs", "/api/runs/{id}"}
}

func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run ledger unavailable")
		return
	}

	if id := r.PathValue("id"); id != "" {
		run, err := h.store.Get(r.Context(), id)
		switch {
		case errors.Is(err, shared.ErrRunNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			writeJSON(w, http.StatusOK, run)
		}
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := h.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*models.FetchRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}
