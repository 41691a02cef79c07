// Package textfilter softens narration for family-friendly content ratings.
package textfilter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rating is a content rating for generated narration.
type Rating string

const (
	RatingG    Rating = "G"
	RatingPG   Rating = "PG"
	RatingPG13 Rating = "PG-13"
	RatingR    Rating = "R"
)

// ParseRating accepts common spellings such as "pg13" and " PG-13 ".
func ParseRating(s string) (Rating, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	switch norm {
	case "G":
		return RatingG, nil
	case "PG":
		return RatingPG, nil
	case "PG13", "PG-13", "PG 13":
		return RatingPG13, nil
	case "R":
		return RatingR, nil
	}
	return "", fmt.Errorf("unknown content rating %q", s)
}

// Filtered reports whether narration at this rating passes through the filter.
func (r Rating) Filtered() bool {
	switch r {
	case RatingG, RatingPG, RatingPG13:
		return true
	}
	return false
}

const censored = "[censored]"

// replacements maps a lowercase word or phrase to its substitute.
var replacements = map[string]string{
	"fuck":         "fudge",
	"motherfucker": "mother-trucker",
	"shit":         "shoot",
	"bullshit":     "baloney",
	"horseshit":    "nonsense",
	"dipshit":      "dummy",
	"shithead":     "jerk",
	"damn":         "dang",
	"goddamn":      "gosh-dang",
	"hell":         "heck",
	"ass":          "butt",
	"asshole":      "jerk",
	"dumbass":      "dummy",
	"jackass":      "jerk",
	"smartass":     "smarty",
	"badass":       "tough",
	"bitch":        "jerk",
	"bastard":      "jerk",
	"crap":         "crud",
	"piss":         "tick",
	"dick":         "jerk",
	"dickhead":     "jerk",
	"prick":        "jerk",
	"douche":       "jerk",
	"douchebag":    "jerk",
	"jesus christ": "jeez",
	"cock":         censored,
	"pussy":        censored,
	"tits":         censored,
	"whore":        censored,
	"slut":         censored,
	"retard":       censored,
}

// Filter replaces profanity with milder words, keeping the original casing
// and plural suffix.
type Filter struct {
	pattern *regexp.Regexp
}

// New compiles the word list into a single case-insensitive pattern.
func New() *Filter {
	words := make([]string, 0, len(replacements))
	for w := range replacements {
		words = append(words, regexp.QuoteMeta(w))
	}
	// Longest first so "asshole" wins over "ass".
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	return &Filter{
		pattern: regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)(e?s)?\b`),
	}
}

// Clean returns text with every listed word replaced.
func (f *Filter) Clean(text string) string {
	return f.pattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := f.pattern.FindStringSubmatch(match)
		base, suffix := sub[1], sub[2]
		repl, ok := replacements[strings.ToLower(base)]
		if !ok {
			return match
		}
		if suffix != "" && repl != censored {
			repl += "s"
		}
		return matchCase(match, repl)
	})
}

// Contains reports whether text has any listed word.
func (f *Filter) Contains(text string) bool {
	return f.pattern.MatchString(text)
}

func matchCase(original, repl string) string {
	if repl == censored {
		return repl
	}
	// Casers are stateful, so one is built per call.
	title := cases.Title(language.English)
	switch {
	case strings.ToUpper(original) == original:
		return strings.ToUpper(repl)
	case strings.ToLower(original) == original:
		return repl
	case title.String(strings.ToLower(original)) == original:
		return title.String(repl)
	}

	orig := []rune(original)
	out := []rune(repl)
	for i := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(out[i])
		} else {
			out[i] = unicode.ToLower(out[i])
		}
	}
	return string(out)
}
