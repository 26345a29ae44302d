package classifier

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/oe/sunrain-sub001/internal/models"
)

const (
	// GateChecks is the number of checks the final gate runs.
	GateChecks = 6
	// GateRequired is how many checks a record must pass.
	GateRequired = 4

	// MinDescriptionLength is the rune count a description needs for its check.
	MinDescriptionLength = 20
	// MinTitleLength is the rune count a title must exceed.
	MinTitleLength = 3
)

// Check names, in evaluation order.
const (
	CheckMentalHealth = "mental-health-keyword"
	CheckDescription  = "description-length"
	CheckTags         = "themes-or-benefits"
	CheckClean        = "no-explicit-content"
	CheckTitle        = "title-length"
	CheckURL          = "external-url"
)

// GateResult reports which checks a record passed.
type GateResult struct {
	Passed int
	Failed []string
}

// OK reports whether enough checks passed.
func (r GateResult) OK() bool { return r.Passed >= GateRequired }

// Gate is the final content-validity filter applied once after deduplication.
// A record passes when at least [GateRequired] of [GateChecks] checks pass.
type Gate struct {
	mentalHealth []string
	explicit     []string
}

// NewGate builds a gate from the MentalHealth and Explicit tables of rules.
func NewGate(rules Rules) *Gate {
	return &Gate{
		mentalHealth: foldAll(rules.MentalHealth),
		explicit:     foldAll(rules.Explicit),
	}
}

// Check evaluates all six checks for r.
func (g *Gate) Check(r models.ContentRecord) GateResult {
	topical := newText(r.Title, r.Description, strings.Join(r.Themes, " "), strings.Join(r.Benefits, " "))
	surface := newText(r.Title, r.Description)

	checks := []struct {
		name string
		ok   bool
	}{
		{CheckMentalHealth, g.anySubstring(topical)},
		{CheckDescription, utf8.RuneCountInString(strings.TrimSpace(r.Description)) >= MinDescriptionLength},
		{CheckTags, r.TagCount() > 0},
		{CheckClean, len(surface.matches(g.explicit)) == 0},
		{CheckTitle, utf8.RuneCountInString(strings.TrimSpace(r.Title)) > MinTitleLength},
		{CheckURL, validExternalURL(r.ExternalURL)},
	}

	var res GateResult
	for _, c := range checks {
		if c.ok {
			res.Passed++
		} else {
			res.Failed = append(res.Failed, c.name)
		}
	}
	return res
}

// Passes reports whether r clears the gate.
func (g *Gate) Passes(r models.ContentRecord) bool {
	return g.Check(r).OK()
}

// Filter keeps records that pass, preserving order, and returns the rejected ones separately.
func (g *Gate) Filter(records []models.ContentRecord) (kept, rejected []models.ContentRecord) {
	kept = make([]models.ContentRecord, 0, len(records))
	for _, r := range records {
		if g.Passes(r) {
			kept = append(kept, r)
		} else {
			rejected = append(rejected, r)
		}
	}
	return kept, rejected
}

func (g *Gate) anySubstring(t text) bool {
	for _, term := range g.mentalHealth {
		if t.hasSubstring(term) {
			return true
		}
	}
	return false
}

func validExternalURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}
