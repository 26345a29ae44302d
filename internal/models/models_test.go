package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTags(t *testing.T) {
	t.Run("NewTags dedupes and sorts", func(t *testing.T) {
		tags := NewTags("Sleep", "focus", " sleep ", "", "Anxiety Relief")
		want := []string{"anxiety relief", "focus", "sleep"}
		if len(tags) != len(want) {
			t.Fatalf("expected %d tags, got %d (%v)", len(want), len(tags), tags)
		}
		for i := range want {
			if tags[i] != want[i] {
				t.Errorf("tags[%d] = %q, want %q", i, tags[i], want[i])
			}
		}
	})

	t.Run("Has is case insensitive", func(t *testing.T) {
		tags := NewTags("meditation")
		if !tags.Has("Meditation") {
			t.Error("expected Has to match regardless of case")
		}
		if tags.Has("sleep") {
			t.Error("expected Has to reject non-members")
		}
	})

	t.Run("Intersect", func(t *testing.T) {
		a := NewTags("sleep", "focus", "healing")
		b := NewTags("focus", "healing", "nature")
		if got := a.Intersect(b); got != 2 {
			t.Errorf("Intersect() = %d, want 2", got)
		}
		if got := b.Intersect(a); got != 2 {
			t.Errorf("Intersect() should be symmetric, got %d", got)
		}
	})

	t.Run("serializes as array", func(t *testing.T) {
		data, err := json.Marshal(ContentRecord{Themes: NewTags("b", "a")})
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		themes, ok := decoded["themes"].([]any)
		if !ok || len(themes) != 2 || themes[0] != "a" {
			t.Errorf("expected themes [a b], got %v", decoded["themes"])
		}
	})
}

func TestSourceRecordID(t *testing.T) {
	tests := []struct {
		name   string
		source Source
		kind   ContentType
		id     string
		want   string
	}{
		{name: "apple music album", source: AppleMusic, kind: Album, id: "1440", want: "apple-music-album-1440"},
		{name: "apple music playlist", source: AppleMusic, kind: Playlist, id: "pl.abc", want: "apple-music-playlist-pl.abc"},
		{name: "spotify playlist", source: Spotify, kind: Playlist, id: "37i9dQ", want: "spotify-37i9dQ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.source.RecordID(tt.kind, tt.id); got != tt.want {
				t.Errorf("RecordID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchRunValidate(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("valid run", func(t *testing.T) {
		run := NewFetchRun(start)
		run.FinishedAt = start.Add(time.Second)
		run.Merged = 10
		run.Output = 4
		if err := run.Validate(); err != nil {
			t.Errorf("expected valid run, got %v", err)
		}
		if run.Duration() != time.Second {
			t.Errorf("expected 1s duration, got %v", run.Duration())
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		run := NewFetchRun(start)
		run.Status = "unknown"
		if err := run.Validate(); err == nil {
			t.Error("expected error for unknown status")
		}
	})

	t.Run("output exceeds merged", func(t *testing.T) {
		run := NewFetchRun(start)
		run.Merged = 1
		run.Output = 2
		if err := run.Validate(); err == nil {
			t.Error("expected error when output exceeds merged")
		}
	})

	t.Run("finished before started", func(t *testing.T) {
		run := NewFetchRun(start)
		run.FinishedAt = start.Add(-time.Minute)
		if err := run.Validate(); err == nil {
			t.Error("expected error for inverted timestamps")
		}
	})
}

func TestFetchRunJSON(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("finished run", func(t *testing.T) {
		run := NewFetchRun(start)
		run.SetID("run-1")
		run.Sequence = 7
		run.FinishedAt = start.Add(1500 * time.Millisecond)
		run.Sources = []SourceStat{{Source: Spotify, Count: 3}}
		run.Merged = 3
		run.Output = 2

		data, err := json.Marshal(run)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}

		var got map[string]any
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if got["id"] != "run-1" || got["sequence"] != float64(7) || got["durationMs"] != float64(1500) {
			t.Errorf("unexpected payload %s", data)
		}
		if got["status"] != "completed" || got["finishedAt"] == nil {
			t.Errorf("unexpected payload %s", data)
		}
		if _, ok := got["error"]; ok {
			t.Errorf("expected empty error to be omitted, got %s", data)
		}
	})

	t.Run("unfinished run", func(t *testing.T) {
		data, err := json.Marshal(NewFetchRun(start))
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}

		var got map[string]any
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if _, ok := got["finishedAt"]; ok {
			t.Errorf("expected finishedAt to be omitted, got %s", data)
		}
		if sources, ok := got["sources"].([]any); !ok || len(sources) != 0 {
			t.Errorf("expected empty sources array, got %s", data)
		}
	})
}
