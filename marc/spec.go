package marc

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Spec selects values from fields with one tag. A data field spec may carry
// indicator constraints and an ordered list of subfield codes; an empty list
// selects every subfield. A control field spec may carry an inclusive byte
// range.
type Spec struct {
	Tag   string
	Ind1  string // "" matches any indicator
	Ind2  string
	Codes []string
	Start int // -1 when no byte range was given
	End   int
}

// SpecError reports a malformed specification string.
type SpecError struct {
	Spec   string
	Reason string
}

func (e *SpecError) Error() string {
	return "invalid field specification '" + e.Spec + "': " + e.Reason
}

// HasByteRange reports whether s selects a byte range of a control field.
func (s Spec) HasByteRange() bool { return s.Start >= 0 }

// Joinable reports whether values selected by s are joined into one string
// when a separator is configured. Single-code specs are never joined.
func (s Spec) Joinable() bool { return len(s.Codes) != 1 }

// IncludesCode reports whether code is selected by s.
func (s Spec) IncludesCode(code string) bool {
	if len(s.Codes) == 0 {
		return true
	}
	for _, c := range s.Codes {
		if c == code {
			return true
		}
	}
	return false
}

// MatchesIndicators reports whether f satisfies the indicator constraints.
func (s Spec) MatchesIndicators(f *Field) bool {
	if s.Ind1 != "" && s.Ind1 != f.Ind1 {
		return false
	}
	if s.Ind2 != "" && s.Ind2 != f.Ind2 {
		return false
	}
	return true
}

// String renders s back into specification syntax.
func (s Spec) String() string {
	b := strings.Builder{}
	b.WriteString(s.Tag)
	if s.Ind1 != "" || s.Ind2 != "" {
		b.WriteString("|")
		b.WriteString(indOrStar(s.Ind1))
		b.WriteString(indOrStar(s.Ind2))
		b.WriteString("|")
	}
	if s.HasByteRange() {
		b.WriteString("[" + strconv.Itoa(s.Start))
		if s.End != s.Start {
			b.WriteString("-" + strconv.Itoa(s.End))
		}
		b.WriteString("]")
	}
	b.WriteString(strings.Join(s.Codes, ""))
	return b.String()
}

func indOrStar(ind string) string {
	if ind == "" {
		return "*"
	}
	return ind
}

// ParseSpecs parses a colon separated specification string such as
// "245|*0|ab:008[35-37]:650abcdegvxyz".
func ParseSpecs(str string) ([]Spec, error) {
	if strings.TrimSpace(str) == "" {
		return nil, &SpecError{Spec: str, Reason: "empty"}
	}
	parts := strings.Split(str, ":")
	specs := make([]Spec, 0, len(parts))
	for _, part := range parts {
		s, err := ParseSpec(part)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// ParseSpec parses a single tag specification.
func ParseSpec(str string) (Spec, error) {
	s := Spec{Start: -1, End: -1}
	if len(str) < 3 {
		return s, &SpecError{Spec: str, Reason: "tag must be three characters"}
	}
	s.Tag = str[:3]
	for _, r := range s.Tag {
		if !isTagChar(r) {
			return s, &SpecError{Spec: str, Reason: "tag must be alphanumeric"}
		}
	}
	rest := str[3:]

	if strings.HasPrefix(rest, "|") {
		if len(rest) < 4 || rest[3] != '|' {
			return s, &SpecError{Spec: str, Reason: "indicators must be written as |xy|"}
		}
		if rest[1] != '*' {
			s.Ind1 = rest[1:2]
		}
		if rest[2] != '*' {
			s.Ind2 = rest[2:3]
		}
		rest = rest[4:]
	}

	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return s, &SpecError{Spec: str, Reason: "unterminated byte range"}
		}
		if !IsControlTag(s.Tag) {
			return s, &SpecError{Spec: str, Reason: "byte ranges are only valid on control fields"}
		}
		start, stop, err := parseRange(rest[1:end])
		if err != nil {
			return s, &SpecError{Spec: str, Reason: err.Error()}
		}
		s.Start, s.End = start, stop
		rest = rest[end+1:]
	}

	if rest != "" && IsControlTag(s.Tag) {
		return s, &SpecError{Spec: str, Reason: "control fields have no subfields"}
	}
	for _, r := range rest {
		if r == '|' || r == '[' || r == ']' || r == ' ' {
			return s, &SpecError{Spec: str, Reason: "unexpected character " + strconv.QuoteRune(r)}
		}
		if len(s.Codes) == 0 || !s.IncludesCode(string(r)) {
			s.Codes = append(s.Codes, string(r))
		}
	}
	return s, nil
}

func parseRange(r string) (int, int, error) {
	bounds := strings.SplitN(r, "-", 2)
	start, err := strconv.Atoi(bounds[0])
	if err != nil {
		return 0, 0, errors.Wrap(err, "parsing range start")
	}
	end := start
	if len(bounds) == 2 {
		end, err = strconv.Atoi(bounds[1])
		if err != nil {
			return 0, 0, errors.Wrap(err, "parsing range end")
		}
	}
	if start < 0 || end < start {
		return 0, 0, errors.Errorf("bad range %d-%d", start, end)
	}
	return start, end, nil
}

func isTagChar(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}
