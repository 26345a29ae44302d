package classifier

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Fold reduces s to lowercase words separated by single spaces.
// "Sleep & Relax (Lo-Fi)" -> "sleep relax lo fi".
// "Sérénité" -> "serenite".
func Fold(s string) string {
	s = norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(s))
	gap := true
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Mn, r):
			// drop combining marks left by decomposition
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(unicode.ToLower(r))
			gap = false
		case !gap:
			b.WriteByte(' ')
			gap = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// text is folded input padded with spaces so whole-word lookups are a single Contains.
type text string

func newText(parts ...string) text {
	return text(" " + Fold(strings.Join(parts, " ")) + " ")
}

// hasWord reports whether the folded term occurs as whole words.
func (t text) hasWord(term string) bool {
	return term != "" && strings.Contains(string(t), " "+term+" ")
}

// hasSubstring reports whether the folded term occurs anywhere, ignoring word boundaries.
func (t text) hasSubstring(term string) bool {
	return term != "" && strings.Contains(string(t), term)
}

// matches returns the terms found as whole words, in table order.
func (t text) matches(terms []string) []string {
	var out []string
	for _, term := range terms {
		if t.hasWord(term) {
			out = append(out, term)
		}
	}
	return out
}

func foldAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if f := Fold(term); f != "" {
			out = append(out, f)
		}
	}
	return out
}
