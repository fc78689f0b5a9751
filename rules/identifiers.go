package rules

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/tulibraries/cobindex"
	"github.com/tulibraries/cobindex/marc"
	"github.com/tulibraries/cobindex/normalize"
)

var (
	oclcPrefix = regexp.MustCompile(`OCoLC|ocn|ocm|\bon[0-9]|OCLC`)
	nonDigit   = regexp.MustCompile(`\D`)
)

// oclcNumbers returns the OCLC control numbers in the first $a of 035 and
// 979, ignoring those Alma added itself.
func oclcNumbers(rec *marc.Record) []string {
	var out []string
	for _, f := range rec.FieldsByTag("035", "979") {
		if strings.Contains(f.Subfield("9"), "ExL") {
			continue
		}
		a := f.Subfield("a")
		if !oclcPrefix.MatchString(a) {
			continue
		}
		if n := strings.TrimLeft(nonDigit.ReplaceAllString(a, ""), "0"); n != "" {
			out = append(out, n)
		}
	}
	return normalize.Unique(out)
}

func oclcRule(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	return oclcNumbers(rec), nil
}

// hathiBibKeys looks up each OCLC number in the HathiTrust index.
func (s *ruleSet) hathiBibKeys(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	var out []string
	for _, n := range oclcNumbers(rec) {
		e, ok, err := s.cfg.Hathi.Lookup(n)
		if err != nil {
			return nil, errors.Wrapf(err, "looking up oclc %s", n)
		}
		if ok {
			out = append(out, e.JSON())
		}
	}
	return normalize.Unique(out), nil
}
