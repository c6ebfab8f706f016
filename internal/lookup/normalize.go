// Package lookup finds series in a written episode dataset by fuzzy title.
package lookup

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Query is a series search split into the title and an optional first year.
type Query struct {
	Title string
	Year  int
}

// qualifierRegex matches the kind and year suffix IMDb shows after a title:
// "(TV Series 2005-2013)", "(TV Mini Series)", "(2005)", "(I)".
var qualifierRegex = regexp.MustCompile(`\s*\((?:TV (?:Mini[ -])?Series|TV Episode|Podcast Series)?\s*(\d{4})?(?:\s*[-–]\s*(?:\d{4})?\s*)?\)\s*$|\s*\([IVX]+\)\s*$`)

var trailingYearRegex = regexp.MustCompile(`^(.*\S)\s+(\d{4})$`)

// ParseQuery splits a search into title and year. A bare trailing year
// ("Doctor Who 2005") counts only when a title precedes it, so "1883" stays
// a title.
func ParseQuery(s string) Query {
	s = strings.TrimSpace(s)
	var q Query
	for {
		m := qualifierRegex.FindStringSubmatch(s)
		if m == nil {
			break
		}
		if m[1] != "" && q.Year == 0 {
			q.Year, _ = strconv.Atoi(m[1])
		}
		s = strings.TrimSpace(s[:len(s)-len(m[0])])
	}
	if q.Year == 0 {
		if m := trailingYearRegex.FindStringSubmatch(s); m != nil && plausibleYear(m[2]) {
			q.Year, _ = strconv.Atoi(m[2])
			s = m[1]
		}
	}
	q.Title = s
	return q
}

func plausibleYear(s string) bool {
	y, err := strconv.Atoi(s)
	return err == nil && y >= 1874 && y <= 2100
}

// articles are dropped from the front of a title or subtitle. IMDb keeps
// the original-language title, so common Romance and German articles are
// included.
var articles = []string{"the", "a", "an", "la", "le", "les", "el", "los", "las", "il", "der", "die", "das"}

// CleanTitle folds a series title for comparison: accents, apostrophes and
// dots removed, lower case, punctuation as spaces, "&" as "and", and leading
// articles of the title and of each subtitle dropped.
func CleanTitle(title string) string {
	s := strings.ReplaceAll(title, "&", " and ")
	s, _, _ = transform.String(newFolder(), s)

	var words []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ':' }) {
		words = append(words, dropArticle(strings.Fields(part))...)
	}
	return strings.Join(words, " ")
}

// newFolder returns a fresh transformer; chains carry state between calls.
func newFolder() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(isElided)),
		runes.Map(func(r rune) rune {
			switch {
			case r == ':':
				return r
			case unicode.IsLetter(r), unicode.IsDigit(r):
				return unicode.ToLower(r)
			default:
				return ' '
			}
		}),
		norm.NFC,
	)
}

// isElided reports runes dropped without leaving a word break, so "S.W.A.T."
// and "M*A*S*H" fold to one word.
func isElided(r rune) bool {
	switch r {
	case '\'', '’', '`', '.', '*':
		return true
	}
	return false
}

func dropArticle(words []string) []string {
	if len(words) < 2 {
		return words
	}
	for _, a := range articles {
		if words[0] == a {
			return words[1:]
		}
	}
	return words
}
