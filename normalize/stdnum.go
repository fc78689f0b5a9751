// Package normalize contains the value normalizers applied by extraction
// rules: standard number forms, truncation, phrase boundary markers and name
// punctuation cleanup.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var stdnumPattern = regexp.MustCompile(`^\s*(\d[\d\-]+[\dxX]?)`)

// basicNumber pulls the leading digit run (allowing hyphens and a trailing X)
// out of raw and returns it without hyphens, or "" when its length is not one
// of sizes.
func basicNumber(raw string, sizes ...int) string {
	m := stdnumPattern.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	num := strings.ToUpper(strings.Replace(m[1], "-", "", -1))
	for _, s := range sizes {
		if len(num) == s {
			return num
		}
	}
	return ""
}

// ISBNForms returns every normalized form of an ISBN: the ISBN-13 and, where
// one exists, the ISBN-10.
func ISBNForms(raw string) []string {
	isbn := basicNumber(raw, 10, 13)
	switch len(isbn) {
	case 10:
		return []string{ISBN10To13(isbn), isbn}
	case 13:
		if isbn10 := ISBN13To10(isbn); isbn10 != "" {
			return []string{isbn, isbn10}
		}
		return []string{isbn}
	}
	return nil
}

// ISBNs returns the normalized forms of every value followed by the original
// values, deduplicated.
func ISBNs(vals []string) []string {
	var out []string
	for _, v := range vals {
		out = append(out, ISBNForms(v)...)
	}
	return Unique(append(out, vals...))
}

// ISBN10To13 converts a ten character ISBN into its 978 prefixed ISBN-13.
func ISBN10To13(isbn10 string) string {
	if len(isbn10) != 10 {
		return ""
	}
	prefix := "978" + isbn10[:9]
	return prefix + isbn13CheckDigit(prefix)
}

// ISBN13To10 converts a 978 prefixed ISBN-13 into an ISBN-10. Other prefixes
// have no ten character form and yield "".
func ISBN13To10(isbn13 string) string {
	if len(isbn13) != 13 || !strings.HasPrefix(isbn13, "978") {
		return ""
	}
	body := isbn13[3:12]
	return body + isbn10CheckDigit(body)
}

func isbn13CheckDigit(first12 string) string {
	sum := 0
	for i, r := range first12 {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return strconv.Itoa((10 - sum%10) % 10)
}

func isbn10CheckDigit(first9 string) string {
	sum := 0
	for i, r := range first9 {
		sum += int(r-'0') * (10 - i)
	}
	c := (11 - sum%11) % 11
	if c == 10 {
		return "X"
	}
	return strconv.Itoa(c)
}

// ISSN returns the eight character form of an ISSN, or "" if the value is not
// a valid ISSN.
func ISSN(raw string) string {
	issn := basicNumber(raw, 8)
	if issn == "" {
		return ""
	}
	sum := 0
	for i, r := range issn[:7] {
		if r < '0' || r > '9' {
			return ""
		}
		sum += int(r-'0') * (8 - i)
	}
	c := (11 - sum%11) % 11
	check := strconv.Itoa(c)
	if c == 10 {
		check = "X"
	}
	if issn[7:] != check {
		return ""
	}
	return issn
}

// ISSNs returns the normalized values followed by the originals,
// deduplicated.
func ISSNs(vals []string) []string {
	var out []string
	for _, v := range vals {
		if n := ISSN(v); n != "" {
			out = append(out, n)
		}
	}
	return Unique(append(out, vals...))
}

var (
	lccnURIPrefix = regexp.MustCompile(`https?://lccn\.loc\.gov/`)
	lccnDash      = regexp.MustCompile(`^(.*?)-(.+)$`)
	allDigits     = regexp.MustCompile(`^\d+$`)
	leadingAlpha  = regexp.MustCompile(`^([A-Za-z]*)\d+$`)
)

// LCCN normalizes a Library of Congress control number. Catalog exports use
// '#' for blanks, which is treated as whitespace. Invalid numbers yield "".
func LCCN(raw string) string {
	s := strings.Replace(raw, "#", " ", -1)
	s = strings.Join(strings.Fields(s), "")
	s = lccnURIPrefix.ReplaceAllString(s, "")
	if i := strings.Index(s, "/"); i >= 0 {
		s = s[:i]
	}
	if m := lccnDash.FindStringSubmatch(s); m != nil {
		if !allDigits.MatchString(m[2]) {
			return ""
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return ""
		}
		s = m[1] + padNumber(n, 6)
	}
	if !validLCCN(s) {
		return ""
	}
	return s
}

func padNumber(n, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func validLCCN(s string) bool {
	if len(s) < 8 || !allDigits.MatchString(s[len(s)-8:]) {
		return false
	}
	m := leadingAlpha.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	alpha := len(m[1])
	switch len(s) {
	case 8:
		return alpha == 0
	case 9:
		return alpha == 1
	case 10:
		return alpha == 0 || alpha == 2
	case 11:
		return alpha == 1 || alpha == 3
	case 12:
		return alpha == 2
	}
	return false
}

// LCCNs normalizes every value and drops the invalid ones, deduplicated.
func LCCNs(vals []string) []string {
	var out []string
	for _, v := range vals {
		if n := LCCN(v); n != "" {
			out = append(out, n)
		}
	}
	return Unique(out)
}
