package marc

import (
	"regexp"
	"strings"
)

var (
	trailingSeparator = regexp.MustCompile(` *[ ,/;:] *$`)
	trailingPeriod    = regexp.MustCompile(`( *\w\w\w)\. *$`)
	wrappingBrackets  = regexp.MustCompile(`^\[?([^\[\]]+)\]?$`)
)

// TrimPunctuation removes cataloging punctuation from the end of a value: a
// trailing comma, slash, semicolon or colon, a trailing period following a
// word of at least three characters, and square brackets wrapping the whole
// value.
func TrimPunctuation(s string) string {
	s = trailingSeparator.ReplaceAllString(s, "")
	s = trailingPeriod.ReplaceAllString(s, "$1")
	s = wrappingBrackets.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}
