// Package classifier decides whether a catalog item is therapeutic content and how good it is.
//
// Scores are additive integers compared against fixed per-kind cutoffs rather than normalized
// or ranked across sources. All keyword tables live in [Rules] so they can be inspected and
// replaced in tests.
package classifier

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/oe/sunrain-sub001/internal/models"
)

const (
	// MinPlaylistScore is the total score a playlist needs to be kept.
	MinPlaylistScore = 5
	// MinAlbumScore is the total score an album needs to be kept.
	MinAlbumScore = 4
)

const (
	highValueWeight   = 3
	mediumValueWeight = 1
	curatorBonus      = 2
	genreBonus        = 2
)

// MinScore returns the cutoff for kind.
func MinScore(kind models.ContentType) int {
	if kind == models.Album {
		return MinAlbumScore
	}
	return MinPlaylistScore
}

// Scores are fixed at conversion time.
type Scores struct {
	Quality   int
	Relevance int
}

// Total is the value compared against the cutoff.
func (s Scores) Total() int { return s.Quality + s.Relevance }

// Verdict explains a relevance decision.
type Verdict struct {
	Relevant bool
	Included []string // inclusion terms found
	Excluded []string // exclusion terms found
}

// Assessment is everything the classifier derives from one catalog item.
type Assessment struct {
	Verdict
	Scores   Scores
	Themes   models.Tags
	Benefits models.Tags
}

// Accepted reports whether the item is relevant and clears the cutoff for kind.
func (a Assessment) Accepted(kind models.ContentType) bool {
	return a.Relevant && a.Scores.Total() >= MinScore(kind)
}

// Classifier applies a folded copy of [Rules].
type Classifier struct {
	include, exclude []string
	high, medium     []string
	curators, genres []string
	themes           map[string][]string
	themeOrder       []string
	benefits         map[string]string
}

// New folds every term in rules once so matching is a plain lookup.
func New(rules Rules) *Classifier {
	c := &Classifier{
		include:  foldAll(rules.Include),
		exclude:  foldAll(rules.Exclude),
		high:     foldAll(rules.HighValue),
		medium:   foldAll(rules.MediumValue),
		curators: foldAll(rules.TrustedCurators),
		genres:   foldAll(rules.WellnessGenres),
		themes:   make(map[string][]string, len(rules.Themes)),
		benefits: make(map[string]string, len(rules.Benefits)),
	}

	for theme, keywords := range rules.Themes {
		name := strings.ToLower(strings.TrimSpace(theme))
		c.themes[name] = foldAll(keywords)
		c.themeOrder = append(c.themeOrder, name)
	}
	slices.Sort(c.themeOrder)

	for theme, benefit := range rules.Benefits {
		c.benefits[strings.ToLower(strings.TrimSpace(theme))] = benefit
	}
	return c
}

// Default is a classifier over [DefaultRules].
func Default() *Classifier { return New(DefaultRules()) }

// Classify tests texts against the inclusion and exclusion sets. Exclusion always wins.
func (c *Classifier) Classify(texts ...string) Verdict {
	t := newText(texts...)
	v := Verdict{
		Included: t.matches(c.include),
		Excluded: t.matches(c.exclude),
	}
	v.Relevant = len(v.Included) > 0 && len(v.Excluded) == 0
	return v
}

// IsRelevant reports inclusion and not exclusion over texts.
func (c *Classifier) IsRelevant(texts ...string) bool {
	return c.Classify(texts...).Relevant
}

// Assess classifies, scores and tags item.
func (c *Classifier) Assess(item models.CatalogItem) Assessment {
	texts := relevanceTexts(item)
	t := newText(texts...)

	themes := c.themesFor(t)
	return Assessment{
		Verdict:  c.Classify(texts...),
		Scores:   Scores{Quality: c.quality(item), Relevance: c.relevance(t)},
		Themes:   themes,
		Benefits: c.BenefitsFor(themes),
	}
}

// Score returns only the scores for item.
func (c *Classifier) Score(item models.CatalogItem) Scores {
	return Scores{Quality: c.quality(item), Relevance: c.relevance(newText(relevanceTexts(item)...))}
}

// Themes derives theme tags from texts.
func (c *Classifier) Themes(texts ...string) models.Tags {
	return c.themesFor(newText(texts...))
}

// BenefitsFor maps themes to the benefits they convey.
func (c *Classifier) BenefitsFor(themes models.Tags) models.Tags {
	out := make([]string, 0, len(themes))
	for _, theme := range themes {
		if b, ok := c.benefits[theme]; ok {
			out = append(out, b)
		}
	}
	return models.NewTags(out...)
}

func (c *Classifier) themesFor(t text) models.Tags {
	var out []string
	for _, theme := range c.themeOrder {
		if len(t.matches(c.themes[theme])) > 0 {
			out = append(out, theme)
		}
	}
	return models.NewTags(out...)
}

func (c *Classifier) relevance(t text) int {
	return len(t.matches(c.high))*highValueWeight + len(t.matches(c.medium))*mediumValueWeight
}

func (c *Classifier) quality(item models.CatalogItem) int {
	score := 0

	switch {
	case item.TrackCount >= 50:
		score += 3
	case item.TrackCount >= 20:
		score += 2
	case item.TrackCount >= 10:
		score++
	}

	desc := strings.TrimSpace(item.Description)
	switch {
	case utf8.RuneCountInString(desc) >= 100:
		score += 2
	case desc != "":
		score++
	}

	if len(newText(item.Curator).matches(c.curators)) > 0 {
		score += curatorBonus
	}

	if item.Kind == models.Album {
		for _, g := range item.Genres {
			if len(newText(g).matches(c.genres)) > 0 {
				score += genreBonus
			}
		}
	}

	return score
}

// relevanceTexts is title and description, plus genres for albums.
func relevanceTexts(item models.CatalogItem) []string {
	texts := []string{item.Name, item.Description}
	if item.Kind == models.Album {
		texts = append(texts, item.Genres...)
	}
	return texts
}
