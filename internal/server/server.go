// package server contains middleware & handlers for the content aggregation HTTP API
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oe/sunrain-sub001/internal/models"
	"github.com/oe/sunrain-sub001/internal/services"
	"github.com/oe/sunrain-sub001/internal/tasks"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the aggregation service.
// Implementations handle specific endpoints (health, content, runs).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Pipeline runs one aggregation. Implemented by [tasks.Aggregator].
type Pipeline interface {
	Run(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.RunResult, error)
}

// RunStore reads the run ledger. Implemented by [repositories.FetchRunRepository].
type RunStore interface {
	Get(ctx context.Context, id string) (*models.FetchRun, error)
	List(ctx context.Context, limit int) ([]*models.FetchRun, error)
}

// ShutdownTimeout bounds graceful shutdown once the serve context is done.
const ShutdownTimeout = 5 * time.Second

// NewRouter registers every API handler behind the logging and recovery middleware.
func NewRouter(pipeline Pipeline, runs RunStore, sources []services.SourceClient, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger))

	router.Handler(NewHealthHandler(sources))
	router.Handler(NewContentHandler(pipeline, logger))
	router.Handler(NewStreamHandler(pipeline))
	router.Handler(NewRunsHandler(runs))
	return router
}

// Server serves the aggregation API.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
}

// New creates a Server listening on addr.
func New(addr string, handler http.Handler, logger *log.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
