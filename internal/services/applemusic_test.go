package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oe/sunrain-sub001/internal/models"
	"github.com/oe/sunrain-sub001/internal/pacing"
	"github.com/oe/sunrain-sub001/internal/shared"
	tu "github.com/oe/sunrain-sub001/internal/testing"
)

const appleSearchBody = `{
  "results": {
    "playlists": {
      "data": [
        {
          "id": "pl.calm",
          "type": "playlists",
          "attributes": {
            "name": "Deep Sleep Meditation",
            "curatorName": "Apple Music Chill",
            "description": {"standard": "Calm ambient soundscapes for meditation and restful sleep"},
            "artwork": {"url": "https://is1.mzstatic.com/image/{w}x{h}bb.jpg"},
            "url": "https://music.apple.com/us/playlist/deep-sleep-meditation/pl.calm",
            "trackCount": 60
          }
        },
        {
          "id": "pl.gym",
          "type": "playlists",
          "attributes": {
            "name": "Workout Hype Mix",
            "curatorName": "Apple Music Fitness",
            "description": {"standard": "Pure energy for your best session"},
            "url": "https://music.apple.com/us/playlist/workout-hype-mix/pl.gym",
            "trackCount": 80
          }
        }
      ]
    },
    "albums": {
      "data": [
        {
          "id": "1440",
          "type": "albums",
          "attributes": {
            "name": "Healing Waters",
            "artistName": "Some Artist",
            "genreNames": ["New Age", "Music"],
            "trackCount": 12,
            "url": "https://music.apple.com/us/album/healing-waters/1440"
          }
        }
      ]
    }
  }
}`

func newAppleServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newAppleClient(srv *httptest.Server, tokens *tu.MockTokenProvider, opts Options) *AppleMusicClient {
	if opts.HTTPClient == nil {
		opts.HTTPClient = srv.Client()
	}
	if opts.Pacer == nil {
		opts.Pacer = pacing.NewIntervalPacer(0, nil)
	}
	cfg := shared.AppleMusicConfig{BaseURL: srv.URL, Storefront: "us"}
	return NewAppleMusicClient(cfg, tokens, opts)
}

func TestAppleMusicClient(t *testing.T) {
	t.Run("Search", func(t *testing.T) {
		srv := newAppleServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/catalog/us/search" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			q := r.URL.Query()
			if q.Get("term") != "meditation music" || q.Get("types") != "playlists,albums" || q.Get("limit") != "10" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			if r.Header.Get("Authorization") != "Bearer dev-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(appleSearchBody))
		})

		c := newAppleClient(srv, tu.NewMockTokenProvider("dev-token"), Options{})
		res, err := c.Search(context.Background(), "meditation music", nil, 10)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(res.Items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(res.Items))
		}

		pl := res.Items[0]
		if pl.Kind != models.Playlist || pl.Curator != "Apple Music Chill" || pl.TrackCount != 60 {
			t.Errorf("unexpected playlist item %+v", pl)
		}
		if pl.ArtworkURL != "https://is1.mzstatic.com/image/600x600bb.jpg" {
			t.Errorf("expected artwork template filled, got %s", pl.ArtworkURL)
		}

		album := res.Items[2]
		if album.Kind != models.Album || album.Curator != "Some Artist" || len(album.Genres) != 2 {
			t.Errorf("unexpected album item %+v", album)
		}
	})

	t.Run("refreshes once on 401 and retries", func(t *testing.T) {
		var hits atomic.Int32
		srv := newAppleServer(t, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(appleSearchBody))
		})

		tokens := tu.NewMockTokenProvider("stale", "fresh")
		c := newAppleClient(srv, tokens, Options{})

		res, err := c.Search(context.Background(), "sleep", nil, 5)
		if err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if len(res.Items) != 3 {
			t.Errorf("expected retried results to be returned, got %d items", len(res.Items))
		}
		if tokens.Refreshes() != 1 || hits.Load() != 2 {
			t.Errorf("expected 1 refresh and 2 requests, got %d and %d", tokens.Refreshes(), hits.Load())
		}
	})

	t.Run("second 401 abandons the query", func(t *testing.T) {
		var hits atomic.Int32
		srv := newAppleServer(t, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		})

		tokens := tu.NewMockTokenProvider("stale", "also-stale")
		c := newAppleClient(srv, tokens, Options{})

		_, err := c.Search(context.Background(), "sleep", nil, 5)

		var authErr *shared.AuthError
		if !errors.As(err, &authErr) || !errors.Is(err, shared.ErrAuthExpired) {
			t.Fatalf("expected AuthError, got %v", err)
		}
		if authErr.Status != http.StatusUnauthorized || authErr.Query != "sleep" {
			t.Errorf("unexpected auth error %+v", authErr)
		}
		if tokens.Refreshes() != 1 || hits.Load() != 2 {
			t.Errorf("expected exactly one refresh and one retry, got %d refreshes and %d requests", tokens.Refreshes(), hits.Load())
		}
	})

	t.Run("failed refresh is an auth error", func(t *testing.T) {
		srv := newAppleServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		tokens := tu.NewMockTokenProvider("stale")
		tokens.RefreshErr = shared.ErrRefreshFailed
		c := newAppleClient(srv, tokens, Options{})

		if _, err := c.Search(context.Background(), "sleep", nil, 5); !errors.Is(err, shared.ErrAuthExpired) {
			t.Errorf("expected ErrAuthExpired, got %v", err)
		}
	})

	t.Run("other status is a query error", func(t *testing.T) {
		srv := newAppleServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		c := newAppleClient(srv, tu.NewMockTokenProvider("tok"), Options{})
		_, err := c.Search(context.Background(), "sleep", nil, 5)

		var qErr *shared.QueryError
		if !errors.As(err, &qErr) || qErr.Status != http.StatusTooManyRequests {
			t.Errorf("expected QueryError with status 429, got %v", err)
		}
	})

	t.Run("malformed body is a query error", func(t *testing.T) {
		srv := newAppleServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results": [`))
		})

		c := newAppleClient(srv, tu.NewMockTokenProvider("tok"), Options{})
		if _, err := c.Search(context.Background(), "sleep", nil, 5); !errors.Is(err, shared.ErrQueryFailed) {
			t.Errorf("expected ErrQueryFailed, got %v", err)
		}
	})

	t.Run("token failure is a source error", func(t *testing.T) {
		srv := newAppleServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected without a token")
		})

		tokens := tu.NewMockTokenProvider()
		tokens.TokenErr = errors.New("key revoked")
		c := newAppleClient(srv, tokens, Options{})

		if _, err := c.Search(context.Background(), "sleep", nil, 5); !errors.Is(err, shared.ErrSourceUnavailable) {
			t.Errorf("expected ErrSourceUnavailable, got %v", err)
		}
		if c.Authenticate(context.Background()) || c.IsAuthenticated() {
			t.Error("expected authentication to fail")
		}

		records, err := c.FetchContent(context.Background())
		if records != nil || !errors.Is(err, shared.ErrSourceUnavailable) {
			t.Errorf("expected no records and ErrSourceUnavailable, got %d records and %v", len(records), err)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		c := NewAppleMusicClient(shared.AppleMusicConfig{}, tu.NewMockTokenProvider("tok"), Options{})
		if _, err := c.Search(context.Background(), "  ", nil, 5); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if _, err := c.Search(context.Background(), "sleep", []models.ContentType{"song"}, 5); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestAppleMusicFetchContent(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("term") == "broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(appleSearchBody))
	}

	t.Run("filters, de-duplicates, sorts and paces", func(t *testing.T) {
		srv := newAppleServer(t, handler)
		clock := tu.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

		cfg := shared.AppleMusicConfig{BaseURL: srv.URL, Storefront: "us", AffiliateToken: "1000lJFj"}
		c := NewAppleMusicClient(cfg, tu.NewMockTokenProvider("tok"), Options{
			HTTPClient: srv.Client(),
			Pacer:      pacing.NewIntervalPacer(100*time.Millisecond, clock),
			Queries:    []string{"meditation music", "broken", "sleep therapy music"},
		})

		records, err := c.FetchContent(context.Background())
		if err != nil {
			t.Fatalf("FetchContent() error = %v", err)
		}
		if !c.IsAuthenticated() {
			t.Error("expected client to be authenticated")
		}

		if len(records) != 2 {
			t.Fatalf("expected 2 records after de-duplication, got %d", len(records))
		}
		if records[0].ID != "apple-music-playlist-pl.calm" || records[1].ID != "apple-music-album-1440" {
			t.Errorf("unexpected order %s, %s", records[0].ID, records[1].ID)
		}
		if records[0].TotalScore() < records[1].TotalScore() {
			t.Error("expected records sorted by descending total score")
		}

		if !records[0].Affiliate || records[0].ExternalURL != "https://music.apple.com/us/playlist/pl.calm?at=1000lJFj" {
			t.Errorf("expected affiliate link, got %s (affiliate=%v)", records[0].ExternalURL, records[0].Affiliate)
		}
		if records[1].Source != models.AppleMusic || records[1].Type != models.Album {
			t.Errorf("unexpected album record %+v", records[1])
		}

		if sleeps := clock.Sleeps(); len(sleeps) != 2 {
			t.Errorf("expected 2 paced waits for 3 queries, got %v", sleeps)
		}
	})

	t.Run("native URL without affiliate token", func(t *testing.T) {
		srv := newAppleServer(t, handler)
		c := newAppleClient(srv, tu.NewMockTokenProvider("tok"), Options{Queries: []string{"meditation music"}})

		records, err := c.FetchContent(context.Background())
		if err != nil {
			t.Fatalf("FetchContent() error = %v", err)
		}
		if records[0].Affiliate || records[0].ExternalURL != "https://music.apple.com/us/playlist/deep-sleep-meditation/pl.calm" {
			t.Errorf("expected native URL, got %+v", records[0])
		}
	})

	t.Run("every query failing makes the source unavailable", func(t *testing.T) {
		srv := newAppleServer(t, handler)
		c := newAppleClient(srv, tu.NewMockTokenProvider("tok"), Options{Queries: []string{"broken", "broken"}})

		records, err := c.FetchContent(context.Background())
		if records != nil || !errors.Is(err, shared.ErrSourceUnavailable) || !errors.Is(err, shared.ErrQueryFailed) {
			t.Errorf("expected unavailable source, got %d records and %v", len(records), err)
		}
	})

	t.Run("cancellation yields no records", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var hits atomic.Int32
		srv := newAppleServer(t, func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) == 2 {
				cancel()
			}
			w.Write([]byte(appleSearchBody))
		})

		c := newAppleClient(srv, tu.NewMockTokenProvider("tok"), Options{
			Queries: []string{"one", "two", "three"},
		})

		records, err := c.FetchContent(ctx)
		if records != nil {
			t.Errorf("expected no partial records, got %d", len(records))
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestAppleMusicLinks(t *testing.T) {
	tests := []struct {
		name  string
		links AppleMusicLinks
		id    string
		kind  models.ContentType
		want  string
		ok    bool
	}{
		{name: "playlist", links: AppleMusicLinks{Storefront: "gb", Token: "abc"}, id: "pl.1", kind: models.Playlist, want: "https://music.apple.com/gb/playlist/pl.1?at=abc", ok: true},
		{name: "album default storefront", links: AppleMusicLinks{Token: "abc"}, id: "1440", kind: models.Album, want: "https://music.apple.com/us/album/1440?at=abc", ok: true},
		{name: "no token", links: AppleMusicLinks{Storefront: "us"}, id: "1440", kind: models.Album},
		{name: "bad kind", links: AppleMusicLinks{Token: "abc"}, id: "1440", kind: "song"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.links.GenerateURL(tt.id, tt.kind)
			if got != tt.want || ok != tt.ok {
				t.Errorf("GenerateURL() = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
