package dedupe

import (
	"testing"

	"github.com/oe/sunrain-sub001/internal/models"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Meditation Music", "meditation"},
		{"meditation music", "meditation"},
		{"Sleep Songs: Vol. 2", "sleep vol 2"},
		{"  The   Calm  PLAYLIST ", "the calm"},
		{"Música Relajante", "musica relajante"},
		{"Tracks & Albums", ""},
	}

	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	t.Run("idempotent", func(t *testing.T) {
		samples := []string{
			"Meditation Music", "Sleep Songs: Vol. 2", "Lo-Fi // Study Tracks",
			"Sérénité du soir", "ＦＵＬＬＷＩＤＴＨ Calm", "  ", "Tracks Playlist Music",
			"Café del Mar — Chill", "123 Rain Sounds!!!",
		}
		for _, s := range samples {
			once := NormalizeTitle(s)
			if twice := NormalizeTitle(once); twice != once {
				t.Errorf("NormalizeTitle not idempotent for %q: %q then %q", s, once, twice)
			}
		}
	})
}

func record(id string, src models.Source, title, artist string) models.ContentRecord {
	return models.ContentRecord{
		ID:          id,
		Source:      src,
		Title:       title,
		Artist:      artist,
		Type:        models.Playlist,
		Description: "A therapeutic collection for calm evenings",
		ExternalURL: "https://example.com/" + id,
	}
}

func TestSimilarity(t *testing.T) {
	t.Run("case different titles match exactly", func(t *testing.T) {
		a := record("apple-music-playlist-1", models.AppleMusic, "Meditation Music", "Calm Collective")
		b := record("spotify-1", models.Spotify, "meditation music", "Calm Collective")
		if s := Similarity(a, b); s != 1 {
			t.Errorf("expected 1, got %v", s)
		}
	})

	t.Run("bonuses add up and cap at one", func(t *testing.T) {
		a := record("a", models.AppleMusic, "Deep Sleep Rain Sounds", "Nature Lab")
		b := record("b", models.Spotify, "Deep Sleep Ocean Sounds", "Nature Lab")
		a.Themes = models.NewTags("sleep", "nature")
		b.Themes = models.NewTags("sleep", "nature")

		// jaccard 3/5 + artist 0.3 + type 0.1 + themes 0.2 exceeds 1
		if s := Similarity(a, b); s != 1 {
			t.Errorf("expected capped score 1, got %v", s)
		}
	})

	t.Run("short tokens ignored", func(t *testing.T) {
		a := record("a", models.AppleMusic, "Om to Zen", "x")
		b := record("b", models.Spotify, "Om of Zen", "y")
		b.Type = models.Album
		// only "zen" survives on both sides
		if s := Similarity(a, b); s != 1 {
			t.Errorf("expected jaccard 1 on the shared long token, got %v", s)
		}
	})

	t.Run("unrelated records", func(t *testing.T) {
		a := record("a", models.AppleMusic, "Morning Yoga Flow", "Studio A")
		b := record("b", models.Spotify, "Rainy Night Piano", "Studio B")
		b.Type = models.Album
		if s := Similarity(a, b); s != 0 {
			t.Errorf("expected 0, got %v", s)
		}
	})

	t.Run("empty normalized titles do not short circuit", func(t *testing.T) {
		a := record("a", models.AppleMusic, "Music", "x")
		b := record("b", models.Spotify, "Playlist", "y")
		if s := Similarity(a, b); s == 1 {
			t.Error("expected empty titles not to count as an exact match")
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		fixtures := []models.ContentRecord{
			record("a", models.AppleMusic, "Deep Sleep Rain Sounds", "Nature Lab"),
			record("b", models.Spotify, "Deep Sleep Ocean Sounds", "nature lab"),
			record("c", models.Spotify, "Gentle Evening Piano Lullabies", "Someone"),
			record("d", models.AppleMusic, "Meditation Music", ""),
			record("e", models.Spotify, "Guided Meditation for Anxiety", "Headspace"),
		}
		fixtures[0].Themes = models.NewTags("sleep", "nature")
		fixtures[1].Themes = models.NewTags("sleep")
		fixtures[3].Type = models.Album
		fixtures[4].Themes = models.NewTags("meditation", "anxiety relief", "sleep")

		for i := range fixtures {
			for j := range fixtures {
				ab := Similarity(fixtures[i], fixtures[j])
				ba := Similarity(fixtures[j], fixtures[i])
				if ab != ba {
					t.Errorf("Similarity(%s,%s)=%v but reverse=%v", fixtures[i].ID, fixtures[j].ID, ab, ba)
				}
				if ab < 0 || ab > 1 {
					t.Errorf("Similarity(%s,%s)=%v out of range", fixtures[i].ID, fixtures[j].ID, ab)
				}
			}
		}
	})
}

func TestPreferred(t *testing.T) {
	base := func(id string, src models.Source) models.ContentRecord {
		r := record(id, src, "Calm", "x")
		r.QualityScore, r.RelevanceScore = 3, 3
		r.Themes = models.NewTags("sleep")
		return r
	}

	tests := []struct {
		name   string
		mutate func(a, b *models.ContentRecord)
		want   string
	}{
		{
			name:   "affiliate beats higher score",
			mutate: func(a, b *models.ContentRecord) { b.Affiliate = true; a.QualityScore = 10 },
			want:   "b",
		},
		{
			name:   "higher total score",
			mutate: func(a, b *models.ContentRecord) { b.RelevanceScore = 4 },
			want:   "b",
		},
		{
			name:   "more tags",
			mutate: func(a, b *models.ContentRecord) { b.Benefits = models.NewTags("better sleep") },
			want:   "b",
		},
		{
			name:   "source rank",
			mutate: func(a, b *models.ContentRecord) { a.Source = models.Spotify; b.Source = models.AppleMusic },
			want:   "b",
		},
		{
			name:   "earlier record on full tie",
			mutate: func(a, b *models.ContentRecord) {},
			want:   "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := base("a", models.AppleMusic), base("b", models.AppleMusic)
			tt.mutate(&a, &b)
			if got := Preferred(a, b); got.ID != tt.want {
				t.Errorf("Preferred() = %s, want %s", got.ID, tt.want)
			}
		})
	}
}

func TestResolver(t *testing.T) {
	r := NewResolver(0, 0)

	t.Run("defaults", func(t *testing.T) {
		if r.Threshold != DefaultThreshold || r.NearThreshold != DefaultNearThreshold {
			t.Errorf("unexpected thresholds %+v", r)
		}
	})

	t.Run("affiliate copy survives a cross-source duplicate", func(t *testing.T) {
		spotify := record("spotify-1", models.Spotify, "meditation music", "Calm Collective")
		spotify.QualityScore = 9
		apple := record("apple-music-playlist-1", models.AppleMusic, "Meditation Music", "Calm Collective")
		apple.Affiliate = true

		for _, order := range [][]models.ContentRecord{{apple, spotify}, {spotify, apple}} {
			res := r.Resolve(order)
			if len(res.Records) != 1 {
				t.Fatalf("expected exactly one survivor, got %d", len(res.Records))
			}
			if res.Records[0].ID != apple.ID {
				t.Errorf("expected affiliate record to survive, got %s", res.Records[0].ID)
			}
			if len(res.Merges) != 1 || res.Merges[0].Dropped.ID != spotify.ID {
				t.Errorf("unexpected merges %+v", res.Merges)
			}
		}
	})

	t.Run("survivor takes the earlier slot", func(t *testing.T) {
		first := record("apple-music-playlist-1", models.AppleMusic, "Sleep Sounds", "")
		middle := record("apple-music-playlist-2", models.AppleMusic, "Morning Yoga Flow", "")
		dup := record("spotify-9", models.Spotify, "Sleep Sounds Playlist", "")
		dup.QualityScore = 5

		res := r.Resolve([]models.ContentRecord{first, middle, dup})
		if len(res.Records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(res.Records))
		}
		if res.Records[0].ID != dup.ID || res.Records[1].ID != middle.ID {
			t.Errorf("unexpected order %s, %s", res.Records[0].ID, res.Records[1].ID)
		}
	})

	t.Run("converges", func(t *testing.T) {
		input := []models.ContentRecord{
			record("apple-music-playlist-1", models.AppleMusic, "Sleep Sounds", "A"),
			record("spotify-1", models.Spotify, "sleep sounds", "B"),
			record("spotify-2", models.Spotify, "Sleep Sounds Music", "C"),
			record("apple-music-album-3", models.AppleMusic, "Deep Sleep Rain Sounds", "Nature Lab"),
			record("spotify-3", models.Spotify, "Deep Sleep Ocean Sounds", "Nature Lab"),
			record("spotify-4", models.Spotify, "Morning Yoga Flow", "D"),
		}
		input[3].Type = models.Album

		once := r.Resolve(input)
		twice := r.Resolve(once.Records)

		if len(twice.Merges) != 0 {
			t.Errorf("expected no merges on second pass, got %d", len(twice.Merges))
		}
		if len(twice.Records) != len(once.Records) {
			t.Fatalf("expected %d records, got %d", len(once.Records), len(twice.Records))
		}
		for i := range once.Records {
			if once.Records[i].ID != twice.Records[i].ID {
				t.Errorf("record %d changed from %s to %s", i, once.Records[i].ID, twice.Records[i].ID)
			}
		}

		for i := range once.Records {
			for j := i + 1; j < len(once.Records); j++ {
				if s := Similarity(once.Records[i], once.Records[j]); s > r.Threshold {
					t.Errorf("%s and %s still above threshold (%v)", once.Records[i].ID, once.Records[j].ID, s)
				}
			}
		}
	})

	t.Run("near duplicates are reported, not merged", func(t *testing.T) {
		a := record("apple-music-playlist-1", models.AppleMusic, "Gentle Evening Piano Lullabies Under Stars", "One")
		b := record("spotify-1", models.Spotify, "Gentle Evening Piano Lullabies Under Moon", "Two")

		res := r.Resolve([]models.ContentRecord{a, b})
		if len(res.Records) != 2 || len(res.Merges) != 0 {
			t.Fatalf("expected no merge, got %d records and %d merges", len(res.Records), len(res.Merges))
		}
		if len(res.Near) != 1 {
			t.Fatalf("expected one near duplicate, got %d", len(res.Near))
		}
		if s := res.Near[0].Similarity; s < DefaultNearThreshold || s > DefaultThreshold {
			t.Errorf("near duplicate similarity %v outside the reporting band", s)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		res := r.Resolve(nil)
		if len(res.Records) != 0 || len(res.Merges) != 0 {
			t.Errorf("expected empty result, got %+v", res)
		}
	})
}

func TestUniqueByID(t *testing.T) {
	a := record("spotify-1", models.Spotify, "First", "")
	b := record("spotify-2", models.Spotify, "Second", "")
	dup := record("spotify-1", models.Spotify, "Changed", "")

	out := UniqueByID([]models.ContentRecord{a, b, dup})
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	if out[0].Title != "First" || out[1].ID != "spotify-2" {
		t.Errorf("expected first occurrence to win, got %+v", out)
	}
}
