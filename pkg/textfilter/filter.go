// Package textfilter softens model output to fit the configured content rating.
package textfilter

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rating is a content rating such as "PG13".
type Rating string

const (
	RatingG    Rating = "G"
	RatingPG   Rating = "PG"
	RatingPG13 Rating = "PG13"
	RatingR    Rating = "R"
)

// ParseRating normalises user input; unknown ratings are treated as PG13.
func ParseRating(s string) Rating {
	switch strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "") {
	case "G":
		return RatingG
	case "PG":
		return RatingPG
	case "R", "NC17", "NONE":
		return RatingR
	default:
		return RatingPG13
	}
}

// replacements maps words to family-friendly alternatives.
var replacements = map[string]string{
	"fuck":         "fudge",
	"fucking":      "fudging",
	"motherfucker": "mother-trucker",
	"shit":         "shoot",
	"bullshit":     "baloney",
	"horseshit":    "nonsense",
	"damn":         "dang",
	"goddamn":      "gosh-dang",
	"hell":         "heck",
	"ass":          "butt",
	"asshole":      "jerk",
	"dumbass":      "dummy",
	"jackass":      "jerk",
	"bitch":        "jerk",
	"bastard":      "jerk",
	"crap":         "crud",
	"piss":         "ticked",
	"dick":         "jerk",
	"dickhead":     "jerk",
	"prick":        "jerk",
	"douchebag":    "jerk",
	"whore":        "[censored]",
	"slut":         "[censored]",
}

// Filter replaces profanity for ratings up to PG13. A nil Filter passes text
// through unchanged.
type Filter struct {
	pattern *regexp.Regexp
}

// New returns a Filter for rating, or nil when the rating needs no filtering.
func New(rating Rating) *Filter {
	if rating == RatingR {
		return nil
	}

	words := make([]string, 0, len(replacements))
	for w := range replacements {
		words = append(words, regexp.QuoteMeta(w))
	}
	// longest first so compounds win over their parts
	slices.SortFunc(words, func(a, b string) int { return len(b) - len(a) })

	return &Filter{
		pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`),
	}
}

// Clean returns text with every listed word replaced, keeping the original casing.
func (f *Filter) Clean(text string) string {
	if f == nil {
		return text
	}
	return f.pattern.ReplaceAllStringFunc(text, func(match string) string {
		return preserveCase(match, replacements[strings.ToLower(match)])
	})
}

// CleanAll applies Clean to every item and returns a new slice.
func (f *Filter) CleanAll(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = f.Clean(item)
	}
	return out
}

// Contains reports whether text has anything the filter would replace.
func (f *Filter) Contains(text string) bool {
	return f != nil && f.pattern.MatchString(text)
}

func preserveCase(original, replacement string) string {
	switch {
	case original == "":
		return replacement
	case strings.ToUpper(original) == original:
		return strings.ToUpper(replacement)
	case strings.ToLower(original) == original:
		return replacement
	}

	title := cases.Title(language.English)
	if title.String(strings.ToLower(original)) == original {
		return title.String(replacement)
	}

	orig := []rune(original)
	out := []rune(replacement)
	for i, r := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return string(out)
}
