// Package dedupe detects duplicate content records within and across catalogs.
//
// Within one catalog, records are duplicates only when their IDs are equal ([UniqueByID]).
// Across catalogs, records are compared pairwise with a fuzzy [Similarity] and merged by the
// [Preferred] tie-break when they score above the resolver threshold.
package dedupe

import (
	"strings"
	"unicode/utf8"

	"github.com/oe/sunrain-sub001/internal/classifier"
	"github.com/oe/sunrain-sub001/internal/models"
)

const (
	artistBonus     = 0.3
	typeBonus       = 0.1
	themeBonusScale = 0.2
	minTokenLength  = 3
)

// genericNouns are dropped from titles before comparison.
var genericNouns = map[string]bool{
	"playlist":  true,
	"playlists": true,
	"album":     true,
	"albums":    true,
	"music":     true,
	"song":      true,
	"songs":     true,
	"track":     true,
	"tracks":    true,
}

// NormalizeTitle folds title and strips generic music nouns.
// "Meditation Music" -> "meditation".
// "Sleep Songs: Vol. 2" -> "sleep vol 2".
func NormalizeTitle(title string) string {
	words := strings.Fields(classifier.Fold(title))
	kept := words[:0]
	for _, w := range words {
		if !genericNouns[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// Similarity scores how likely a and b describe the same content, in [0, 1].
//
// Equal non-empty normalized titles score 1. Otherwise the score is the Jaccard overlap of
// title tokens longer than two characters, plus bonuses for an exact artist match, the same
// content type and overlapping themes, capped at 1.
func Similarity(a, b models.ContentRecord) float64 {
	ta, tb := NormalizeTitle(a.Title), NormalizeTitle(b.Title)
	if ta != "" && ta == tb {
		return 1
	}

	score := jaccard(tokens(ta), tokens(tb))

	if aa := classifier.Fold(a.Artist); aa != "" && aa == classifier.Fold(b.Artist) {
		score += artistBonus
	}
	if a.Type == b.Type {
		score += typeBonus
	}
	score += themeBonusScale * themeOverlap(a.Themes, b.Themes)

	return min(score, 1)
}

func tokens(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		if utf8.RuneCountInString(w) >= minTokenLength {
			set[w] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// themeOverlap is the shared theme count over the larger theme set.
func themeOverlap(a, b models.Tags) float64 {
	larger := max(a.Len(), b.Len())
	if larger == 0 {
		return 0
	}
	return float64(a.Intersect(b)) / float64(larger)
}
