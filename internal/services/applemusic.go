// Apple Music catalog implementation of [SourceClient]
//
// Response types based on https://developer.apple.com/documentation/applemusicapi/search_for_catalog_resources
package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/oe/sunrain-sub001/internal/auth"
	"github.com/oe/sunrain-sub001/internal/models"
	"github.com/oe/sunrain-sub001/internal/shared"
)

const (
	appleMusicBaseURL = "https://api.music.apple.com"
	defaultStorefront = "us"
	artworkSize       = "600"
)

// AppleMusicQueries is the fixed query budget for the JWT catalog.
var AppleMusicQueries = []string{
	"meditation music",
	"sleep therapy music",
	"relaxation music",
	"anxiety relief",
	"stress relief music",
	"mindfulness",
	"healing music",
	"calm ambient",
	"nature sounds relaxation",
	"focus music",
	"yoga music",
	"breathing exercises",
}

type appleArtwork struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type appleNotes struct {
	Standard string `json:"standard"`
	Short    string `json:"short"`
}

// AppleMusicAttributes is the union of playlist and album attributes used here.
type AppleMusicAttributes struct {
	Name           string       `json:"name"`
	CuratorName    string       `json:"curatorName"`
	ArtistName     string       `json:"artistName"`
	Description    appleNotes   `json:"description"`
	EditorialNotes appleNotes   `json:"editorialNotes"`
	Artwork        appleArtwork `json:"artwork"`
	URL            string       `json:"url"`
	TrackCount     int          `json:"trackCount"`
	GenreNames     []string     `json:"genreNames"`
}

// AppleMusicResource is one entry of a results.<type>.data array.
type AppleMusicResource struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"`
	Attributes AppleMusicAttributes `json:"attributes"`
}

type appleMusicResourceList struct {
	Data []AppleMusicResource `json:"data"`
}

// AppleMusicSearchResponse is the catalog search payload.
type AppleMusicSearchResponse struct {
	Results map[string]appleMusicResourceList `json:"results"`
}

// AppleMusicClient searches the Apple Music catalog with a developer token.
type AppleMusicClient struct {
	*catalogClient
	storefront string
}

var _ SourceClient = (*AppleMusicClient)(nil)

// NewAppleMusicClient creates a client for the storefront in cfg. An affiliate token in cfg
// turns on affiliate links.
func NewAppleMusicClient(cfg shared.AppleMusicConfig, tokens auth.TokenProvider, opts Options) *AppleMusicClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = appleMusicBaseURL
	}
	storefront := strings.ToLower(cfg.Storefront)
	if storefront == "" {
		storefront = defaultStorefront
	}

	c := &AppleMusicClient{
		catalogClient: newCatalogClient(models.AppleMusic, baseURL, tokens, AppleMusicQueries, opts),
		storefront:    storefront,
	}
	if cfg.AffiliateToken != "" {
		c.links = AppleMusicLinks{Storefront: storefront, Token: cfg.AffiliateToken}
	}
	return c
}

// Search queries the catalog search endpoint for playlists and/or albums.
func (c *AppleMusicClient) Search(ctx context.Context, query string, types []models.ContentType, limit int) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", shared.ErrInvalidInput)
	}
	if len(types) == 0 {
		types = []models.ContentType{models.Playlist, models.Album}
	}
	if limit <= 0 {
		limit = c.limit
	}

	resourceTypes := make([]string, 0, len(types))
	for _, t := range types {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: content type %q", shared.ErrInvalidArgument, t)
		}
		resourceTypes = append(resourceTypes, string(t)+"s")
	}

	params := url.Values{}
	params.Set("term", query)
	params.Set("types", strings.Join(resourceTypes, ","))
	params.Set("limit", strconv.Itoa(limit))

	var resp AppleMusicSearchResponse
	endpoint := fmt.Sprintf("/v1/catalog/%s/search", c.storefront)
	if err := c.get(ctx, query, endpoint, params, &resp); err != nil {
		return nil, err
	}

	result := &SearchResult{Query: query}
	for _, t := range types {
		for _, res := range resp.Results[string(t)+"s"].Data {
			if res.ID == "" {
				continue
			}
			result.Items = append(result.Items, res.toItem(t))
		}
	}
	return result, nil
}

// FetchContent runs [AppleMusicQueries] for playlists and albums.
func (c *AppleMusicClient) FetchContent(ctx context.Context) ([]models.ContentRecord, error) {
	return c.fetch(ctx, func(ctx context.Context, q string) ([]models.CatalogItem, error) {
		res, err := c.Search(ctx, q, []models.ContentType{models.Playlist, models.Album}, c.limit)
		if err != nil {
			return nil, err
		}
		return res.Items, nil
	})
}

func (r AppleMusicResource) toItem(kind models.ContentType) models.CatalogItem {
	attr := r.Attributes

	item := models.CatalogItem{
		ID:         r.ID,
		Kind:       kind,
		Name:       attr.Name,
		ArtworkURL: artworkURL(attr.Artwork.URL),
		TrackCount: attr.TrackCount,
		URL:        attr.URL,
	}

	switch kind {
	case models.Album:
		item.Curator = attr.ArtistName
		item.Description = firstNonEmpty(attr.EditorialNotes.Standard, attr.EditorialNotes.Short)
		item.Genres = attr.GenreNames
	default:
		item.Curator = attr.CuratorName
		item.Description = firstNonEmpty(attr.Description.Standard, attr.Description.Short)
	}
	return item
}

// artworkURL fills the {w}x{h} template placeholders.
func artworkURL(template string) string {
	return strings.NewReplacer("{w}", artworkSize, "{h}", artworkSize).Replace(template)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
