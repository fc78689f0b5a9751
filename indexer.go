package cobindex

import (
	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
	"github.com/tulibraries/cobindex/marc"
)

// Rule computes the values of one output field. Rules must not keep mutable
// state between calls; one Rule value is shared by every worker.
type Rule interface {
	Extract(rec *marc.Record, ctx *Context) ([]string, error)
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc func(rec *marc.Record, ctx *Context) ([]string, error)

// Extract implements Rule.
func (f RuleFunc) Extract(rec *marc.Record, ctx *Context) ([]string, error) {
	return f(rec, ctx)
}

// Field is a named rule. A Field with an empty Name is a gate: it runs for
// its side effects on the Context (usually Skip) and its values are ignored.
type Field struct {
	Name string
	Rule Rule
}

// Context carries the state of one record through the rule list.
type Context struct {
	Record *marc.Record
	Doc    *Document
	Log    logger.Logger

	skipped bool
	reason  string
}

// NewContext returns a Context for rec with an empty output document.
func NewContext(rec *marc.Record, log logger.Logger) *Context {
	if log == nil {
		log = logger.NopLogger
	}
	doc := NewDocument()
	doc.SetSource(rec)
	return &Context{Record: rec, Doc: doc, Log: log}
}

// Skip marks the record as skipped. No further rules run and nothing is sent.
func (c *Context) Skip(reason string) {
	if c.skipped {
		return
	}
	c.skipped = true
	c.reason = reason
}

// Skipped returns the skip reason and whether the record was skipped.
func (c *Context) Skipped() (string, bool) {
	return c.reason, c.skipped
}

// Indexer applies an ordered list of Fields to records. The list is fixed at
// construction.
type Indexer struct {
	fields []Field
	log    logger.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(ix *Indexer)

// OptIndexerLogger sets the logger handed to every rule through the Context.
func OptIndexerLogger(log logger.Logger) IndexerOption {
	return func(ix *Indexer) {
		ix.log = log
	}
}

// NewIndexer returns an Indexer running fields in order.
func NewIndexer(fields []Field, opts ...IndexerOption) *Indexer {
	ix := &Indexer{
		fields: append([]Field(nil), fields...),
		log:    logger.NopLogger,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Fields returns the names of the output fields in rule order, gates
// excluded.
func (ix *Indexer) Fields() []string {
	var names []string
	for _, f := range ix.fields {
		if f.Name != "" {
			names = append(names, f.Name)
		}
	}
	return names
}

// Index runs every rule against rec. The returned Context holds the output
// document and the skip state. A rule error aborts indexing of the record and
// is returned wrapped with the field name.
func (ix *Indexer) Index(rec *marc.Record) (*Context, error) {
	ctx := NewContext(rec, ix.log)
	for _, f := range ix.fields {
		vals, err := f.Rule.Extract(rec, ctx)
		if err != nil {
			name := f.Name
			if name == "" {
				name = "each_record"
			}
			return ctx, errors.Wrapf(err, "record %s: field %s", rec.ID(), name)
		}
		if _, skipped := ctx.Skipped(); skipped {
			return ctx, nil
		}
		if f.Name != "" {
			ctx.Doc.Add(f.Name, vals...)
		}
	}
	return ctx, nil
}

// Builder accumulates the rule list for an Indexer.
type Builder struct {
	fields []Field
	names  map[string]struct{}
	err    error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{names: make(map[string]struct{})}
}

// Gate appends an unnamed rule.
func (b *Builder) Gate(r Rule) *Builder {
	b.fields = append(b.fields, Field{Rule: r})
	return b
}

// Field appends a named rule. Registering the same name twice is an error
// reported by Build.
func (b *Builder) Field(name string, r Rule) *Builder {
	if _, ok := b.names[name]; ok && b.err == nil {
		b.err = errors.Errorf("field %s registered twice", name)
	}
	b.names[name] = struct{}{}
	b.fields = append(b.fields, Field{Name: name, Rule: r})
	return b
}

// Fail records err so that Build returns it. Rule constructors use it to
// report malformed configuration.
func (b *Builder) Fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Build returns an Indexer over the registered rules.
func (b *Builder) Build(opts ...IndexerOption) (*Indexer, error) {
	if b.err != nil {
		return nil, errors.Wrap(b.err, "building rules")
	}
	return NewIndexer(b.fields, opts...), nil
}
