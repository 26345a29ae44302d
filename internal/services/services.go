package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/oe/sunrain-sub001/internal/auth"
	"github.com/oe/sunrain-sub001/internal/classifier"
	"github.com/oe/sunrain-sub001/internal/models"
	"github.com/oe/sunrain-sub001/internal/pacing"
	"github.com/oe/sunrain-sub001/internal/shared"
)

// SourceClient searches one external catalog and turns its results into scored content records.
type SourceClient interface {
	// Name returns the display name of the catalog (e.g., "Apple Music", "Spotify").
	Name() string

	// Source returns the provenance tag stamped on every record.
	Source() models.Source

	// Authenticate obtains a token from the provider and reports whether the catalog is usable.
	Authenticate(ctx context.Context) bool

	// IsAuthenticated reports the outcome of the last authentication attempt.
	IsAuthenticated() bool

	// Search runs one query against the catalog. Results are unfiltered catalog items.
	Search(ctx context.Context, query string, types []models.ContentType, limit int) (*SearchResult, error)

	// FetchContent runs the fixed query budget and returns relevant, scored, de-duplicated records
	// sorted by descending total score. A canceled ctx yields no records.
	FetchContent(ctx context.Context) ([]models.ContentRecord, error)
}

// SearchResult holds the catalog items returned for one query.
type SearchResult struct {
	Query string
	Items []models.CatalogItem
}

// Options carries collaborators shared by both catalog clients. Zero values pick defaults.
type Options struct {
	HTTPClient *http.Client
	Pacer      pacing.Pacer
	Logger     *log.Logger
	Classifier *classifier.Classifier
	Queries    []string // overrides the built-in query budget
	Limit      int      // results per query
}

// DefaultSearchLimit is the per-query result ceiling.
const DefaultSearchLimit = 25

// NewSources builds a client for every catalog with configured credentials.
//
// Catalogs without credentials are skipped with a warning. Catalogs whose provider cannot be
// constructed (e.g. an unreadable key file) are still returned with a provider that always
// fails, so they surface as unavailable at fetch time instead of disappearing silently.
func NewSources(cfg *shared.Config, logger *log.Logger, clock pacing.Clock) []SourceClient {
	httpClient := &http.Client{Timeout: cfg.Fetch.RequestTimeout()}
	opts := func() Options {
		return Options{
			HTTPClient: httpClient,
			Pacer:      pacing.NewIntervalPacer(cfg.Fetch.RequestInterval(), clock),
			Logger:     logger,
			Limit:      cfg.Fetch.SearchLimit,
		}
	}

	var sources []SourceClient

	if am := cfg.Credentials.AppleMusic; am.Configured() {
		var tokens auth.TokenProvider
		tokens, err := auth.NewDeveloperTokenProviderFromConfig(am)
		if err != nil {
			logger.Error("apple music token provider unavailable", "error", err)
			tokens = unavailableProvider{err: err}
		}
		sources = append(sources, NewAppleMusicClient(am, tokens, opts()))
	} else {
		logger.Warn("apple music credentials not configured, skipping source")
	}

	if sp := cfg.Credentials.Spotify; sp.Configured() {
		var tokens auth.TokenProvider
		tokens, err := auth.NewClientCredentialsProviderFromConfig(sp, httpClient)
		if err != nil {
			logger.Error("spotify token provider unavailable", "error", err)
			tokens = unavailableProvider{err: err}
		}
		sources = append(sources, NewSpotifyClient(sp, tokens, opts()))
	} else {
		logger.Warn("spotify credentials not configured, skipping source")
	}

	return sources
}

// FindSource returns the client whose source tag or name matches name, case-insensitively.
func FindSource(sources []SourceClient, name string) (SourceClient, bool) {
	for _, s := range sources {
		if strings.EqualFold(string(s.Source()), name) || strings.EqualFold(s.Name(), name) {
			return s, true
		}
	}
	return nil, false
}

// unavailableProvider stands in for a provider that could not be built.
type unavailableProvider struct{ err error }

func (p unavailableProvider) Token(ctx context.Context) (string, error) { return "", p.err }
func (p unavailableProvider) Refresh(ctx context.Context) error         { return p.err }
func (p unavailableProvider) Validate(string) bool                      { return false }
