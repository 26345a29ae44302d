package dedupe

import (
	"slices"

	"github.com/oe/sunrain-sub001/internal/models"
)

const (
	// DefaultThreshold is the similarity above which two records are merged.
	DefaultThreshold = 0.85
	// DefaultNearThreshold is the similarity from which unmerged pairs are reported.
	DefaultNearThreshold = 0.80
)

// sourceRank orders catalogs by monetization strength; lower wins.
var sourceRank = map[models.Source]int{
	models.AppleMusic: 0,
	models.Spotify:    1,
}

func rank(s models.Source) int {
	if r, ok := sourceRank[s]; ok {
		return r
	}
	return len(sourceRank)
}

// prefersFirst applies the tie-break order: affiliate link, total score, tag count,
// source rank, then the earlier record a.
func prefersFirst(a, b models.ContentRecord) bool {
	switch {
	case a.Affiliate != b.Affiliate:
		return a.Affiliate
	case a.TotalScore() != b.TotalScore():
		return a.TotalScore() > b.TotalScore()
	case a.TagCount() != b.TagCount():
		return a.TagCount() > b.TagCount()
	case rank(a.Source) != rank(b.Source):
		return rank(a.Source) < rank(b.Source)
	}
	return true
}

// Preferred returns the record that survives when a and b are duplicates.
// a is taken to be the earlier-encountered record.
func Preferred(a, b models.ContentRecord) models.ContentRecord {
	if prefersFirst(a, b) {
		return a
	}
	return b
}

// Merge records one duplicate collapse.
type Merge struct {
	Kept       models.ContentRecord
	Dropped    models.ContentRecord
	Similarity float64
}

// NearDuplicate is a surviving pair whose similarity fell between the near and merge thresholds.
type NearDuplicate struct {
	A, B       models.ContentRecord
	Similarity float64
}

// Result is the outcome of [Resolver.Resolve].
type Result struct {
	Records []models.ContentRecord
	Merges  []Merge
	Near    []NearDuplicate
}

// Resolver removes cross-source duplicates.
type Resolver struct {
	Threshold     float64
	NearThreshold float64
}

// NewResolver creates a resolver. Non-positive thresholds use the defaults.
func NewResolver(threshold, near float64) *Resolver {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if near <= 0 || near > threshold {
		near = min(DefaultNearThreshold, threshold)
	}
	return &Resolver{Threshold: threshold, NearThreshold: near}
}

// Resolve collapses every pair scoring above the threshold into its preferred record.
//
// The survivor takes the slot of the earlier record, so output order follows the preference
// function rather than strict encounter order. Passes repeat until one completes without a
// merge, which makes Resolve idempotent on its own output.
func (r *Resolver) Resolve(records []models.ContentRecord) Result {
	out := slices.Clone(records)
	var merges []Merge

	for {
		merged := false
		for i := 0; i < len(out); i++ {
			for j := i + 1; j < len(out); {
				s := Similarity(out[i], out[j])
				if s <= r.Threshold {
					j++
					continue
				}

				kept, dropped := out[i], out[j]
				if !prefersFirst(kept, dropped) {
					kept, dropped = dropped, kept
				}
				merges = append(merges, Merge{Kept: kept, Dropped: dropped, Similarity: s})
				out[i] = kept
				out = slices.Delete(out, j, j+1)
				merged = true
			}
		}
		if !merged {
			break
		}
	}

	return Result{Records: out, Merges: merges, Near: r.near(out)}
}

func (r *Resolver) near(records []models.ContentRecord) []NearDuplicate {
	var out []NearDuplicate
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			if s := Similarity(records[i], records[j]); s >= r.NearThreshold && s <= r.Threshold {
				out = append(out, NearDuplicate{A: records[i], B: records[j], Similarity: s})
			}
		}
	}
	return out
}

// UniqueByID drops records whose ID was already seen. First occurrence wins.
func UniqueByID(records []models.ContentRecord) []models.ContentRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]models.ContentRecord, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return out
}
