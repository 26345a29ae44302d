package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oe/sunrain-sub001/internal/models"
	"github.com/oe/sunrain-sub001/internal/services"
	"github.com/oe/sunrain-sub001/internal/shared"
	"github.com/oe/sunrain-sub001/internal/tasks"
)

type mockPipeline struct {
	result *tasks.RunResult
	err    error
	calls  int
}

func (m *mockPipeline) Run(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.RunResult, error) {
	m.calls++
	if progress != nil {
		progress <- tasks.ProgressUpdate{Phase: tasks.FetchSource, Step: 1, Total: 1, Message: "Fetching content from Spotify..."}
		progress <- tasks.ProgressUpdate{Phase: tasks.Complete, Step: 1, Total: 1, Message: "Done"}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockRunStore struct {
	runs []*models.FetchRun
	err  error
}

func (m *mockRunStore) Get(ctx context.Context, id string) (*models.FetchRun, error) {
	for _, r := range m.runs {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
}

func (m *mockRunStore) List(ctx context.Context, limit int) ([]*models.FetchRun, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.runs) > limit {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

type stubSource struct {
	services.SourceClient
	source models.Source
	authed bool
}

func (s stubSource) Name() string          { return s.source.String() }
func (s stubSource) Source() models.Source { return s.source }
func (s stubSource) IsAuthenticated() bool { return s.authed }

func sampleResult() *tasks.RunResult {
	run := models.NewFetchRun(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	run.SetID("run-1")
	run.Status = models.RunDegraded

	return &tasks.RunResult{
		Records: []models.ContentRecord{
			{ID: "apple-music-album-1", Source: models.AppleMusic, Type: models.Album, Title: "Calm Waves", ExternalURL: "https://music.apple.com/us/album/1"},
			{ID: "spotify-a", Source: models.Spotify, Type: models.Playlist, Title: "Sleep Piano", ExternalURL: "https://open.spotify.com/playlist/a"},
			{ID: "spotify-b", Source: models.Spotify, Type: models.Playlist, Title: "Focus Flow", ExternalURL: "https://open.spotify.com/playlist/b"},
		},
		Run: run,
	}
}

func newTestRouter(p Pipeline, runs RunStore) *BasicRouter {
	sources := []services.SourceClient{
		stubSource{source: models.AppleMusic, authed: true},
		stubSource{source: models.Spotify},
	}
	return NewRouter(p, runs, sources, log.New(io.Discard))
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestBasicRouter(t *testing.T) {
	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle(http.MethodGet, "/x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		serve(router, http.MethodGet, "/x")
		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := serve(router, http.MethodPost, "/x")
		if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != http.MethodGet {
			t.Errorf("expected 405 with Allow header, got %d %q", rec.Code, rec.Header().Get("Allow"))
		}
	})

	t.Run("recover", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(Recover(log.New(io.Discard)))
		router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		if rec := serve(router, http.MethodGet, "/boom"); rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestHealthHandler(t *testing.T) {
	rec := serve(newTestRouter(&mockPipeline{}, nil), http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Status  string         `json:"status"`
		Sources []sourceStatus `json:"sources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Status != "ok" || len(body.Sources) != 2 {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if !body.Sources[0].Authenticated || body.Sources[1].Authenticated {
		t.Errorf("unexpected source statuses %+v", body.Sources)
	}
}

func TestContentHandler(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		p := &mockPipeline{result: sampleResult()}
		rec := serve(newTestRouter(p, nil), http.MethodGet, "/api/content")

		if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Header().Get("Content-Type"))
		}
		if rec.Header().Get("X-Run-Status") != "degraded" {
			t.Errorf("expected run status header, got %q", rec.Header().Get("X-Run-Status"))
		}

		var records []models.ContentRecord
		if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(records) != 3 || records[0].ID != "apple-music-album-1" {
			t.Errorf("unexpected records %+v", records)
		}
	})

	t.Run("type and limit", func(t *testing.T) {
		p := &mockPipeline{result: sampleResult()}
		rec := serve(newTestRouter(p, nil), http.MethodGet, "/api/content?type=playlist&limit=1")

		var records []models.ContentRecord
		if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(records) != 1 || records[0].ID != "spotify-a" {
			t.Errorf("expected only spotify-a, got %+v", records)
		}
	})

	t.Run("csv", func(t *testing.T) {
		p := &mockPipeline{result: sampleResult()}
		rec := serve(newTestRouter(p, nil), http.MethodGet, "/api/content?format=csv")

		if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
			t.Errorf("expected csv content type, got %s", rec.Header().Get("Content-Type"))
		}
		if !strings.HasPrefix(rec.Body.String(), "ID,Source,Type") {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
	})

	t.Run("bad parameters", func(t *testing.T) {
		for _, target := range []string{
			"/api/content?format=xml",
			"/api/content?type=track",
			"/api/content?limit=-1",
			"/api/content?limit=abc",
		} {
			p := &mockPipeline{result: sampleResult()}
			rec := serve(newTestRouter(p, nil), http.MethodGet, target)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", target, rec.Code)
			}
			if p.calls != 0 {
				t.Errorf("%s: pipeline should not run on bad input", target)
			}
		}
	})

	t.Run("all sources unavailable", func(t *testing.T) {
		p := &mockPipeline{err: fmt.Errorf("%w: spotify down", shared.ErrAllSourcesUnavailable)}
		rec := serve(newTestRouter(p, nil), http.MethodGet, "/api/content")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		p := &mockPipeline{err: context.DeadlineExceeded}
		rec := serve(newTestRouter(p, nil), http.MethodGet, "/api/content")
		if rec.Code != http.StatusGatewayTimeout {
			t.Errorf("expected 504, got %d", rec.Code)
		}
	})

	t.Run("unexpected failure", func(t *testing.T) {
		p := &mockPipeline{err: errors.New("boom")}
		rec := serve(newTestRouter(p, nil), http.MethodGet, "/api/content")
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func readEvents(t *testing.T, body io.Reader) map[string][]string {
	t.Helper()
	events := map[string][]string{}
	var name string

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			events[name] = append(events[name], strings.TrimPrefix(line, "data: "))
		}
	}
	return events
}

func TestStreamHandler(t *testing.T) {
	t.Run("progress then done", func(t *testing.T) {
		p := &mockPipeline{result: sampleResult()}
		rec := serve(newTestRouter(p, nil), http.MethodGet, "/api/content/stream")

		if rec.Header().Get("Content-Type") != "text/event-stream" {
			t.Fatalf("expected event stream, got %s", rec.Header().Get("Content-Type"))
		}

		events := readEvents(t, rec.Body)
		if len(events["progress"]) != 2 {
			t.Fatalf("expected 2 progress events, got %v", events)
		}
		if !strings.Contains(events["progress"][0], `"phase":"fetch_source"`) {
			t.Errorf("unexpected progress event %s", events["progress"][0])
		}

		if len(events["done"]) != 1 {
			t.Fatalf("expected a done event, got %v", events)
		}
		var done struct {
			Records []models.ContentRecord `json:"records"`
			Run     map[string]any         `json:"run"`
		}
		if err := json.Unmarshal([]byte(events["done"][0]), &done); err != nil {
			t.Fatalf("invalid done payload: %v", err)
		}
		if len(done.Records) != 3 || done.Run["id"] != "run-1" {
			t.Errorf("unexpected done payload %s", events["done"][0])
		}
	})

	t.Run("error event", func(t *testing.T) {
		p := &mockPipeline{err: shared.ErrAllSourcesUnavailable}
		rec := serve(newTestRouter(p, nil), http.MethodGet, "/api/content/stream")

		events := readEvents(t, rec.Body)
		if len(events["error"]) != 1 || len(events["done"]) != 0 {
			t.Errorf("expected a single error event, got %v", events)
		}
	})
}

func TestRunsHandler(t *testing.T) {
	first := models.NewFetchRun(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	first.SetID("run-1")
	second := models.NewFetchRun(time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC))
	second.SetID("run-2")
	store := &mockRunStore{runs: []*models.FetchRun{second, first}}

	t.Run("list", func(t *testing.T) {
		rec := serve(newTestRouter(&mockPipeline{}, store), http.MethodGet, "/api/runs?limit=1")

		var runs []map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(runs) != 1 || runs[0]["id"] != "run-2" {
			t.Errorf("unexpected runs %s", rec.Body.String())
		}
	})

	t.Run("list empty", func(t *testing.T) {
		rec := serve(newTestRouter(&mockPipeline{}, &mockRunStore{}), http.MethodGet, "/api/runs")
		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("expected [], got %s", rec.Body.String())
		}
	})

	t.Run("get", func(t *testing.T) {
		rec := serve(newTestRouter(&mockPipeline{}, store), http.MethodGet, "/api/runs/run-1")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":"run-1"`) {
			t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("not found", func(t *testing.T) {
		rec := serve(newTestRouter(&mockPipeline{}, store), http.MethodGet, "/api/runs/missing")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		rec := serve(newTestRouter(&mockPipeline{}, &mockRunStore{err: errors.New("locked")}), http.MethodGet, "/api/runs")
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		rec := serve(newTestRouter(&mockPipeline{}, store), http.MethodGet, "/api/runs?limit=x")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("no ledger", func(t *testing.T) {
		rec := serve(newTestRouter(&mockPipeline{}, nil), http.MethodGet, "/api/runs")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})
}

func TestServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := New(ln.Addr().String(), newTestRouter(&mockPipeline{}, nil), log.New(io.Discard))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
