package normalize

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var lcPattern = regexp.MustCompile(`^([A-Za-z]{1,3})\s*(\d{1,4})(\.\d+)?\s*(.*)$`)

// LCSortKey turns a Library of Congress call number into a string that
// sorts correctly as plain text: class letters padded to three, the class
// number zero padded to four digits, then cutters and the rest in lower
// case. Cutter numbers are decimal fractions so they already sort as text.
func LCSortKey(cn string) (string, error) {
	m := lcPattern.FindStringSubmatch(strings.TrimSpace(cn))
	if m == nil {
		return "", errors.Errorf("not an LC call number: %q", cn)
	}
	b := strings.Builder{}
	b.WriteString(strings.ToLower(m[1]))
	b.WriteString(strings.Repeat(" ", 3-len(m[1])))
	b.WriteString(strings.Repeat("0", 4-len(m[2])))
	b.WriteString(m[2])
	b.WriteString(m[3])
	if rest := strings.TrimLeft(m[4], ". "); rest != "" {
		b.WriteString(" ")
		b.WriteString(strings.ToLower(rest))
	}
	return b.String(), nil
}
