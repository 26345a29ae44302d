// Spotify API implementation of [SourceClient]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/search
package services

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/oe/sunrain-sub001/internal/auth"
	"github.com/oe/sunrain-sub001/internal/models"
	"github.com/oe/sunrain-sub001/internal/shared"
)

const spotifyBaseURL = "https://api.spotify.com"

// SpotifyQueries is the fixed query budget for the OAuth catalog.
var SpotifyQueries = []string{
	"meditation music",
	"sleep sounds",
	"relaxing music",
	"anxiety relief music",
	"stress relief",
	"mindfulness meditation",
	"healing frequencies",
	"calm piano",
	"nature sounds",
	"deep focus",
	"yoga flow",
	"binaural beats",
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in search results).
type SpotifySimplePlaylist struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Owner        Owner               `json:"owner"`
	Public       bool                `json:"public"`
	Tracks       simplePlaylistTrack `json:"tracks"`
	Images       []SpotifyImage      `json:"images"`
	ExternalURLs externalURLs        `json:"external_urls"`
	URI          string              `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
// Search can return null entries, hence the pointers.
type SpotifyPaginatedPlaylists struct {
	Items    []*SpotifySimplePlaylist `json:"items"`
	Total    int                      `json:"total"`
	Limit    int                      `json:"limit"`
	Offset   int                      `json:"offset"`
	Next     *string                  `json:"next"`
	Previous *string                  `json:"previous"`
}

// SpotifySearchResponse is the search payload for type=playlist.
type SpotifySearchResponse struct {
	Playlists SpotifyPaginatedPlaylists `json:"playlists"`
}

// SpotifyClient searches the Spotify catalog with an app-only client-credentials token.
type SpotifyClient struct {
	*catalogClient
	market string
}

var _ SourceClient = (*SpotifyClient)(nil)

// NewSpotifyClient creates a client for the market in cfg.
func NewSpotifyClient(cfg shared.SpotifyConfig, tokens auth.TokenProvider, opts Options) *SpotifyClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	return &SpotifyClient{
		catalogClient: newCatalogClient(models.Spotify, baseURL, tokens, SpotifyQueries, opts),
		market:        strings.ToUpper(cfg.Market),
	}
}

// Search queries the search endpoint. Spotify contributes playlists only, so a request
// without [models.Playlist] returns an empty result without calling the API.
func (s *SpotifyClient) Search(ctx context.Context, query string, types []models.ContentType, limit int) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", shared.ErrInvalidInput)
	}

	result := &SearchResult{Query: query}
	if len(types) > 0 && !slices.Contains(types, models.Playlist) {
		return result, nil
	}
	if limit <= 0 {
		limit = s.limit
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "playlist")
	params.Set("limit", strconv.Itoa(min(limit, 50)))
	if s.market != "" {
		params.Set("market", s.market)
	}

	var resp SpotifySearchResponse
	if err := s.get(ctx, query, "/v1/search", params, &resp); err != nil {
		return nil, err
	}

	for _, pl := range resp.Playlists.Items {
		if pl == nil || pl.ID == "" {
			continue
		}
		result.Items = append(result.Items, pl.toItem())
	}
	return result, nil
}

// FetchContent runs [SpotifyQueries].
func (s *SpotifyClient) FetchContent(ctx context.Context) ([]models.ContentRecord, error) {
	return s.fetch(ctx, func(ctx context.Context, q string) ([]models.CatalogItem, error) {
		res, err := s.Search(ctx, q, []models.ContentType{models.Playlist}, s.limit)
		if err != nil {
			return nil, err
		}
		return res.Items, nil
	})
}

func (p *SpotifySimplePlaylist) toItem() models.CatalogItem {
	item := models.CatalogItem{
		ID:          p.ID,
		Kind:        models.Playlist,
		Name:        p.Name,
		Curator:     p.Owner.DisplayName,
		TrackCount:  p.Tracks.Total,
		Description: html.UnescapeString(p.Description),
		URL:         p.ExternalURLs.Spotify,
	}
	if item.URL == "" {
		item.URL = "https://open.spotify.com/playlist/" + p.ID
	}
	if len(p.Images) > 0 {
		item.ArtworkURL = p.Images[0].URL
	}
	return item
}
