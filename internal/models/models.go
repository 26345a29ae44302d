// package models defines the data model for the content aggregation pipeline
package models

import (
	"time"
)

// Model defines the base interface for persisted entities.
// Fetched content is never persisted; only run summaries ([FetchRun]) implement it.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// ContentType is the kind of catalog media a record represents.
type ContentType string

const (
	Playlist ContentType = "playlist"
	Album    ContentType = "album"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	return t == Playlist || t == Album
}

// Source identifies the external catalog a record came from.
type Source string

const (
	AppleMusic Source = "apple-music"
	Spotify    Source = "spotify"
)

// RecordID builds the provenance-prefixed identifier for a native catalog ID.
//
// Apple Music IDs carry the content type because playlist and album ID spaces overlap;
// Spotify only contributes playlists.
func (s Source) RecordID(kind ContentType, nativeID string) string {
	switch s {
	case AppleMusic:
		return string(s) + "-" + string(kind) + "-" + nativeID
	default:
		return string(s) + "-" + nativeID
	}
}

// String returns a display name for the source.
func (s Source) String() string {
	switch s {
	case AppleMusic:
		return "Apple Music"
	case Spotify:
		return "Spotify"
	default:
		return string(s)
	}
}
