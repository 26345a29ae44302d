package models

import (
	"slices"
	"strings"
)

// Tags is an order-irrelevant set of lowercase labels, kept sorted and free of duplicates.
type Tags []string

// NewTags builds a [Tags] set from vals, trimming, lowercasing and dropping empties.
func NewTags(vals ...string) Tags {
	out := make(Tags, 0, len(vals))
	for _, v := range vals {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Has reports whether v is a member of the set.
func (t Tags) Has(v string) bool {
	_, found := slices.BinarySearch(t, strings.ToLower(v))
	return found
}

// Len returns the number of members.
func (t Tags) Len() int { return len(t) }

// Intersect returns the number of members shared with other.
func (t Tags) Intersect(other Tags) int {
	n := 0
	for _, v := range t {
		if other.Has(v) {
			n++
		}
	}
	return n
}

// CatalogItem is a source-native playlist or album as returned by a catalog search.
// Owned by the client that fetched it and never modified afterwards.
type CatalogItem struct {
	ID          string
	Kind        ContentType
	Name        string
	Curator     string // curator for playlists, artist for albums
	ArtworkURL  string
	TrackCount  int
	Description string
	Genres      []string // albums only
	URL         string   // catalog-native URL
}

// ContentRecord is the normalized, source-agnostic representation of a catalog item.
//
// Scores are attached by the converting client at construction time and records are
// read-only afterwards.
type ContentRecord struct {
	ID             string      `json:"id"`
	Source         Source      `json:"source"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Artist         string      `json:"artist"`
	Type           ContentType `json:"type"`
	Themes         Tags        `json:"themes"`
	Benefits       Tags        `json:"benefits"`
	ExternalURL    string      `json:"externalUrl"`
	Affiliate      bool        `json:"affiliate"`
	ArtworkURL     string      `json:"artworkUrl,omitempty"`
	TrackCount     int         `json:"trackCount"`
	QualityScore   int         `json:"qualityScore"`
	RelevanceScore int         `json:"relevanceScore"`
}

// TotalScore is the combined quality and relevance score used for ranking and tie-breaks.
func (r ContentRecord) TotalScore() int {
	return r.QualityScore + r.RelevanceScore
}

// TagCount is the number of themes plus benefits attached to the record.
func (r ContentRecord) TagCount() int {
	return r.Themes.Len() + r.Benefits.Len()
}
