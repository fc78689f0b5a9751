package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Phrase boundary markers added by Flank.
const (
	BeginMarker = "matchbeginswith"
	EndMarker   = "matchendswith"
)

// Truncate shortens s to max characters and appends " ..." when it is
// longer than max.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + " ..."
}

// TruncateAll applies Truncate to each value.
func TruncateAll(vals []string, max int) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = Truncate(v, max)
	}
	return out
}

// Flank surrounds s with markers naming its first and last words so that
// phrase queries can anchor at either end. Flank is idempotent.
func Flank(s string) string {
	if s == "" {
		return s
	}
	words := strings.Fields(s)
	first, last := "", ""
	if len(words) > 0 {
		first, last = words[0], words[len(words)-1]
	}
	if !strings.HasPrefix(s, BeginMarker) {
		s = BeginMarker + first + " " + s
	}
	if !strings.Contains(s, EndMarker) {
		s = s + " " + EndMarker + last
	}
	return s
}

// FlankAll applies Flank to each value.
func FlankAll(vals []string) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = Flank(v)
	}
	return out
}

var (
	nameSeparator = regexp.MustCompile(` *[,/;:] *$`)
	namePeriod    = regexp.MustCompile(`( *[\p{L}\p{N}_]{3,})\. *$`)
	roleTrailing  = regexp.MustCompile(` *[ ,./;:] *$`)
	fourDigits    = regexp.MustCompile(`[0-9]{4}`)
)

// TrimName drops a trailing comma, slash, semicolon or colon from a personal
// or corporate name, then a period ending a word of three or more
// characters, then a period that follows a closing parenthesis.
func TrimName(name string) string {
	name = nameSeparator.ReplaceAllString(name, "")
	name = namePeriod.ReplaceAllString(name, "$1")
	return strings.Replace(name, ").", ")", 1)
}

// TrimRole drops trailing punctuation from a relator term.
func TrimRole(role string) string {
	return roleTrailing.ReplaceAllString(role, "")
}

// FourDigitYear returns the first run of four digits in s, or "".
func FourDigitYear(s string) string {
	return fourDigits.FindString(s)
}

// Unique removes duplicates keeping the first occurrence of each value.
func Unique(vals []string) []string {
	if vals == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Compact drops empty strings.
func Compact(vals []string) []string {
	var out []string
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Filter drops every value found in exclude.
func Filter(vals []string, exclude map[string]struct{}) []string {
	var out []string
	for _, v := range vals {
		if _, ok := exclude[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

// Chunk splits list into consecutive slices of at most size elements.
func Chunk(list []string, size int) [][]string {
	var chunks [][]string
	for size < len(list) {
		list, chunks = list[size:], append(chunks, list[0:size:size])
	}
	if len(list) > 0 {
		chunks = append(chunks, list)
	}
	return chunks
}
