package generate

import (
	"regexp"
	"strings"
)

// bannedTerms are masked wherever they appear as a whole word.
var bannedTerms = map[string]struct{}{
	"gun":    {},
	"knife":  {},
	"blood":  {},
	"gore":   {},
	"weapon": {},
	"kill":   {},
	"murder": {},
	"sex":    {},
	"sexual": {},
}

var wordPattern = regexp.MustCompile(`\w+`)

// SafeText replaces each banned word in s with "*", ignoring case.
// Separators and all other words are left untouched.
func SafeText(s string) string {
	return wordPattern.ReplaceAllStringFunc(s, func(word string) string {
		if _, banned := bannedTerms[strings.ToLower(word)]; banned {
			return "*"
		}

		return word
	})
}
