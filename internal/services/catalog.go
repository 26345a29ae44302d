package services

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/oe/sunrain-sub001/internal/auth"
	"github.com/oe/sunrain-sub001/internal/classifier"
	"github.com/oe/sunrain-sub001/internal/dedupe"
	"github.com/oe/sunrain-sub001/internal/models"
	"github.com/oe/sunrain-sub001/internal/pacing"
	"github.com/oe/sunrain-sub001/internal/shared"
)

// catalogClient is the request path and conversion pipeline shared by both catalogs.
type catalogClient struct {
	source     models.Source
	baseURL    string
	tokens     auth.TokenProvider
	httpClient *http.Client
	pacer      pacing.Pacer
	logger     *log.Logger
	classifier *classifier.Classifier
	links      LinkFormatter
	queries    []string
	limit      int

	authenticated atomic.Bool
}

func newCatalogClient(source models.Source, baseURL string, tokens auth.TokenProvider, queries []string, opts Options) *catalogClient {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Pacer == nil {
		opts.Pacer = pacing.NewIntervalPacer(pacing.DefaultInterval, nil)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.Classifier == nil {
		opts.Classifier = classifier.Default()
	}
	if len(opts.Queries) > 0 {
		queries = opts.Queries
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchLimit
	}

	return &catalogClient{
		source:     source,
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: opts.HTTPClient,
		pacer:      opts.Pacer,
		logger:     shared.WithLogger(opts.Logger, "source", string(source)),
		classifier: opts.Classifier,
		queries:    slices.Clone(queries),
		limit:      opts.Limit,
	}
}

func (c *catalogClient) Source() models.Source { return c.source }
func (c *catalogClient) Name() string          { return c.source.String() }

// Queries returns the query budget run by FetchContent.
func (c *catalogClient) Queries() []string { return slices.Clone(c.queries) }

func (c *catalogClient) IsAuthenticated() bool { return c.authenticated.Load() }

// Authenticate asks the token provider for a usable token.
func (c *catalogClient) Authenticate(ctx context.Context) bool {
	tok, err := c.tokens.Token(ctx)
	ok := err == nil && c.tokens.Validate(tok)
	c.authenticated.Store(ok)

	switch {
	case err != nil:
		c.logger.Error("authentication failed", "error", err)
	case !ok:
		c.logger.Error("authentication failed", "error", "token rejected by provider")
	default:
		c.logger.Debug("authenticated")
	}
	return ok
}

// get performs an authenticated GET against endpoint and decodes the JSON body into out.
//
// A 401 forces exactly one token refresh and one retry of the identical request; if that
// retry fails for any reason the query is abandoned with an [shared.AuthError]. A token that
// cannot be obtained at all yields a [shared.SourceError]. Any other failure is a
// [shared.QueryError].
func (c *catalogClient) get(ctx context.Context, query, endpoint string, params url.Values, out any) error {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		if shared.IsCanceled(err) {
			return err
		}
		return &shared.SourceError{Source: string(c.source), Cause: err}
	}

	status, err := c.do(ctx, endpoint, params, tok, out)
	if err != nil {
		if shared.IsCanceled(err) {
			return err
		}
		return &shared.QueryError{Source: string(c.source), Query: query, Cause: err}
	}

	if status == http.StatusUnauthorized {
		c.logger.Warn("token rejected, refreshing", "query", query)
		return c.retry(ctx, query, endpoint, params, out)
	}

	if !success(status) {
		return &shared.QueryError{Source: string(c.source), Query: query, Status: status}
	}
	return nil
}

func (c *catalogClient) retry(ctx context.Context, query, endpoint string, params url.Values, out any) error {
	authErr := func(status int, cause error) error {
		if shared.IsCanceled(cause) {
			return cause
		}
		return &shared.AuthError{Source: string(c.source), Query: query, Status: status, Cause: cause}
	}

	if err := c.tokens.Refresh(ctx); err != nil {
		return authErr(0, err)
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return authErr(0, err)
	}

	status, err := c.do(ctx, endpoint, params, tok, out)
	if err != nil {
		return authErr(0, err)
	}
	if !success(status) {
		return authErr(status, nil)
	}
	return nil
}

// do sends one request and decodes 2xx bodies. Non-2xx statuses are returned without error.
func (c *catalogClient) do(ctx context.Context, endpoint string, params url.Values, token string, out any) (int, error) {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func success(status int) bool { return status >= 200 && status < 300 }

type searchFunc func(ctx context.Context, query string) ([]models.CatalogItem, error)

// fetch runs the query budget through search and converts the accumulated items.
func (c *catalogClient) fetch(ctx context.Context, search searchFunc) ([]models.ContentRecord, error) {
	if !c.Authenticate(ctx) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, &shared.SourceError{Source: string(c.source), Cause: shared.ErrNotAuthenticated}
	}

	var items []models.CatalogItem
	failed := 0

	for i, q := range c.queries {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		found, err := search(ctx, q)
		if err != nil {
			if shared.IsCanceled(err) {
				return nil, err
			}
			if errors.Is(err, shared.ErrSourceUnavailable) {
				c.logger.Error("source unavailable", "query", q, "error", err)
				return nil, err
			}

			failed++
			c.logger.Warn("query failed", "query", q, "error", err)
			continue
		}

		c.logger.Debug("query complete", "query", q, "step", i+1, "total", len(c.queries), "items", len(found))
		items = append(items, found...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(c.queries) > 0 && failed == len(c.queries) {
		err := &shared.SourceError{
			Source: string(c.source),
			Cause:  fmt.Errorf("%w: all %d queries failed", shared.ErrQueryFailed, failed),
		}
		c.logger.Error("source unavailable", "error", err)
		return nil, err
	}

	records := c.convert(items)
	c.logger.Info("fetched content", "items", len(items), "records", len(records), "failed_queries", failed)
	return records, nil
}

// convert filters, scores and de-duplicates items, then orders them by descending total score.
// Discovery order breaks ties.
func (c *catalogClient) convert(items []models.CatalogItem) []models.ContentRecord {
	records := make([]models.ContentRecord, 0, len(items))
	for _, item := range items {
		a := c.classifier.Assess(item)

		if !a.Relevant {
			c.logger.Debug("rejected: not relevant", "id", item.ID, "name", item.Name, "excluded", a.Excluded)
			continue
		}
		if !a.Accepted(item.Kind) {
			c.logger.Debug("rejected: below cutoff", "id", item.ID, "name", item.Name,
				"score", a.Scores.Total(), "cutoff", classifier.MinScore(item.Kind))
			continue
		}

		records = append(records, c.toRecord(item, a))
	}

	records = dedupe.UniqueByID(records)
	slices.SortStableFunc(records, func(a, b models.ContentRecord) int {
		return cmp.Compare(b.TotalScore(), a.TotalScore())
	})
	return records
}

func (c *catalogClient) toRecord(item models.CatalogItem, a classifier.Assessment) models.ContentRecord {
	rec := models.ContentRecord{
		ID:             c.source.RecordID(item.Kind, item.ID),
		Source:         c.source,
		Title:          item.Name,
		Description:    item.Description,
		Artist:         item.Curator,
		Type:           item.Kind,
		Themes:         a.Themes,
		Benefits:       a.Benefits,
		ExternalURL:    item.URL,
		ArtworkURL:     item.ArtworkURL,
		TrackCount:     item.TrackCount,
		QualityScore:   a.Scores.Quality,
		RelevanceScore: a.Scores.Relevance,
	}

	if c.links != nil {
		if link, ok := c.links.GenerateURL(item.ID, item.Kind); ok {
			rec.ExternalURL = link
			rec.Affiliate = true
		}
	}
	return rec
}
