package rules

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tulibraries/cobindex"
	"github.com/tulibraries/cobindex/marc"
	"github.com/tulibraries/cobindex/normalize"
)

// step post-processes the values produced by a rule.
type step func(vals []string) []string

// pipe runs r and then each step in turn.
func pipe(r cobindex.Rule, steps ...step) cobindex.Rule {
	if len(steps) == 0 {
		return r
	}
	return cobindex.RuleFunc(func(rec *marc.Record, ctx *cobindex.Context) ([]string, error) {
		vals, err := r.Extract(rec, ctx)
		if err != nil {
			return nil, err
		}
		for _, st := range steps {
			vals = st(vals)
		}
		return vals, nil
	})
}

func truncate(max int) step {
	return func(vals []string) []string { return normalize.TruncateAll(vals, max) }
}

func flank(vals []string) []string { return normalize.FlankAll(vals) }

func unique(vals []string) []string { return normalize.Unique(vals) }

func isbns(vals []string) []string { return normalize.ISBNs(vals) }

func issns(vals []string) []string { return normalize.ISSNs(vals) }

func lccns(vals []string) []string {
	for i, v := range vals {
		vals[i] = strings.Replace(v, "#", " ", -1)
	}
	return normalize.LCCNs(vals)
}

// singleString joins every value into one, space separated.
func singleString(vals []string) []string {
	if len(vals) == 0 {
		return nil
	}
	return []string{strings.Join(vals, " ")}
}

// defaultTo supplies v when nothing was extracted.
func defaultTo(v string) step {
	return func(vals []string) []string {
		if len(vals) == 0 {
			return []string{v}
		}
		return vals
	}
}

// deleteIf drops values found in set.
func deleteIf(set map[string]struct{}) step {
	return func(vals []string) []string { return normalize.Filter(vals, set) }
}

// deleteIfName drops JSON values whose "name" member is in set.
func deleteIfName(set map[string]struct{}) step {
	return func(vals []string) []string {
		var out []string
		for _, v := range vals {
			var obj struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal([]byte(v), &obj); err == nil {
				if _, ok := set[obj.Name]; ok {
					continue
				}
			}
			out = append(out, v)
		}
		return out
	}
}

// withCodes appends codes to every part of a colon separated spec.
func withCodes(spec, codes string) string {
	parts := strings.Split(spec, ":")
	for i := range parts {
		parts[i] += codes
	}
	return strings.Join(parts, ":")
}

// object is a JSON object with members in insertion order. Blank members
// are dropped.
type object struct {
	keys []string
	vals map[string]string
}

func newObject() *object { return &object{vals: make(map[string]string)} }

func (o *object) set(key, val string) *object {
	if strings.TrimSpace(val) == "" {
		return o
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = val
	return o
}

func (o *object) get(key string) string { return o.vals[key] }

func (o *object) empty() bool { return len(o.keys) == 0 }

// String renders the object without HTML escaping, so URLs keep their
// ampersands.
func (o *object) String() string {
	b := strings.Builder{}
	b.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quote(k))
		b.WriteByte(':')
		b.WriteString(quote(o.vals[k]))
	}
	b.WriteByte('}')
	return b.String()
}

func quote(s string) string {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
