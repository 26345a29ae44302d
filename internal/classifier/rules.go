package classifier

import (
	"maps"
	"slices"
)

// Rules holds the keyword tables driving relevance, scoring, tagging and the final gate.
// Terms are matched as whole words after [Fold]; multi-word terms are allowed.
type Rules struct {
	Include []string // at least one must match
	Exclude []string // none may match

	HighValue   []string // +3 relevance each
	MediumValue []string // +1 relevance each

	TrustedCurators []string // +2 quality when found in the curator name
	WellnessGenres  []string // +2 quality per matching album genre

	Themes   map[string][]string // theme -> keywords that imply it
	Benefits map[string]string   // theme -> benefit it conveys

	MentalHealth []string // gate: topical keywords, matched as substrings
	Explicit     []string // gate: denylist
}

// DefaultRules returns a fresh copy of the built-in tables, safe to modify.
func DefaultRules() Rules {
	themes := make(map[string][]string, len(defaultThemes))
	for k, v := range defaultThemes {
		themes[k] = slices.Clone(v)
	}

	return Rules{
		Include:         slices.Clone(defaultInclude),
		Exclude:         slices.Clone(defaultExclude),
		HighValue:       slices.Clone(defaultHighValue),
		MediumValue:     slices.Clone(defaultMediumValue),
		TrustedCurators: slices.Clone(defaultTrustedCurators),
		WellnessGenres:  slices.Clone(defaultWellnessGenres),
		Themes:          themes,
		Benefits:        maps.Clone(defaultBenefits),
		MentalHealth:    slices.Clone(defaultMentalHealth),
		Explicit:        slices.Clone(defaultExplicit),
	}
}

var defaultInclude = []string{
	"meditation", "meditate", "mindfulness", "mindful",
	"relax", "relaxing", "relaxation", "calm", "calming",
	"sleep", "sleeping", "insomnia", "anxiety", "stress",
	"therapy", "therapeutic", "healing", "peace", "peaceful",
	"ambient", "nature", "breathing", "breathwork", "yoga",
	"focus", "wellness", "wellbeing", "mental health", "zen",
	"serenity", "serene", "soothing", "chill", "lofi", "lo fi",
	"binaural", "spa", "energy", "self care",
}

var defaultExclude = []string{
	"workout", "gym", "fitness", "cardio", "club", "party",
	"aggressive", "hype", "metal", "rage", "edm", "hardcore",
	"trap", "drill", "rave", "pump up", "beast mode",
}

var defaultHighValue = []string{
	"meditation", "mindfulness", "therapy", "therapeutic",
	"anxiety", "sleep", "healing", "mental health",
	"stress relief", "relaxation",
}

var defaultMediumValue = []string{
	"calm", "relax", "relaxing", "peaceful", "ambient", "nature",
	"focus", "yoga", "breathing", "soothing", "chill", "zen",
	"spa", "wellness", "binaural", "lofi",
}

var defaultTrustedCurators = []string{
	"apple music", "spotify", "calm", "headspace", "insight timer",
}

var defaultWellnessGenres = []string{
	"new age", "ambient", "classical", "meditation", "relaxation",
	"nature sounds", "easy listening", "healing",
}

var defaultThemes = map[string][]string{
	"meditation":     {"meditation", "meditate", "mindfulness", "mindful"},
	"sleep":          {"sleep", "sleeping", "insomnia", "bedtime", "lullaby"},
	"anxiety relief": {"anxiety", "anxious", "panic"},
	"stress relief":  {"stress", "relax", "relaxing", "relaxation", "calm", "calming"},
	"focus":          {"focus", "concentration", "study", "deep work"},
	"nature":         {"nature", "rain", "ocean", "forest", "birdsong"},
	"healing":        {"healing", "therapy", "therapeutic"},
	"breathing":      {"breathing", "breathe", "breathwork"},
	"yoga":           {"yoga"},
}

var defaultBenefits = map[string]string{
	"meditation":     "mindfulness",
	"sleep":          "better sleep",
	"anxiety relief": "reduced anxiety",
	"stress relief":  "stress reduction",
	"focus":          "improved focus",
	"nature":         "grounding",
	"healing":        "emotional healing",
	"breathing":      "nervous system regulation",
	"yoga":           "body awareness",
}

var defaultMentalHealth = []string{
	"mental health", "meditat", "mindful", "relax", "calm", "sleep",
	"anxiety", "stress", "therap", "healing", "peace", "wellness",
	"wellbeing", "breath", "focus", "serenity", "soothing", "mood",
}

var defaultExplicit = []string{
	"explicit", "nsfw", "xxx", "porn", "fuck", "fucking", "shit", "bitch",
}
