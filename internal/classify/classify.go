// Package classify maps free-text subject names to canonical subject categories.
package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Category is a canonical subject classification used for rate lookups.
type Category string

const (
	Mathematics Category = "mathematics"
	Physics     Category = "physics"
	Chemistry   Category = "chemistry"
	Biology     Category = "biology"
	French      Category = "french"
	English     Category = "english"
	Spanish     Category = "spanish"
	German      Category = "german"
	History     Category = "history"
	Geography   Category = "geography"
	Philosophy  Category = "philosophy"
	Default     Category = "default"
)

type rule struct {
	category Category
	keywords []string
}

// Rules are checked in order; the first keyword hit wins, so compound names such as
// "Physique-Chimie" or "Histoire-Géographie" resolve to the first listed category.
var rules = []rule{
	{Mathematics, []string{"math", "algebr", "geometr", "calcul", "statisti"}},
	{Physics, []string{"physique", "physics"}},
	{Chemistry, []string{"chimie", "chemistry"}},
	{Biology, []string{"svt", "biolog", "sciences de la vie"}},
	{French, []string{"francais", "french", "lettres"}},
	{English, []string{"anglais", "english"}},
	{Spanish, []string{"espagnol", "spanish"}},
	{German, []string{"allemand", "german"}},
	{History, []string{"histoire", "history"}},
	{Geography, []string{"geograph"}},
	{Philosophy, []string{"philo"}},
}

// Classify returns the category of a subject display name. It never fails: names that
// match no keyword map to Default.
func Classify(name string) Category {
	folded := Fold(name)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(folded, kw) {
				return r.category
			}
		}
	}
	return Default
}

// Categories lists every known category, Default last.
func Categories() []Category {
	out := make([]Category, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.category)
	}
	return append(out, Default)
}

// Fold lower-cases s and strips combining marks so "Géographie" and "geographie" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
