// Package rules holds the catalog's ordered list of extraction rules, which
// turn a MARC record into the flat document sent to Solr.
package rules

import (
	"time"

	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
	"github.com/tulibraries/cobindex"
	"github.com/tulibraries/cobindex/format"
	"github.com/tulibraries/cobindex/hathi"
	"github.com/tulibraries/cobindex/marc"
	"github.com/tulibraries/cobindex/subject"
	"github.com/tulibraries/cobindex/translation"
)

// Defaults for the administrative dates when a record carries none.
const (
	DefaultCreationDate = "2001-01-01 01:01:01"
	DefaultUpdateDate   = "2002-02-02 02:02:02"
)

// Config holds what the rules need beyond the record itself.
type Config struct {
	// Registry holds the translation tables. Nil uses translation.Default.
	Registry *translation.Registry
	// Hathi resolves OCLC numbers to HathiTrust entries. Nil never matches.
	Hathi hathi.Lookuper
	// FullReindex skips records whose items are suppressed instead of
	// flagging them.
	FullReindex bool
	// HarvestFrom is the start of the OAI harvest that produced the input,
	// if any. Update dates equal to it are not trusted.
	HarvestFrom string
	// DisableUpdateDateCheck stamps every record with the current time so
	// that no stored document is considered newer.
	DisableUpdateDateCheck bool
	// Now is the clock. Nil uses time.Now.
	Now func() time.Time
	Log logger.Logger
}

// ruleSet builds rules from one Config. The first malformed spec is kept in
// err and reported by New.
type ruleSet struct {
	cfg        Config
	reg        *translation.Registry
	classifier *format.Classifier
	rem        *subject.Remediator
	corporate  map[string]struct{}
	err        error
}

// New returns an Indexer running the full catalog rule list.
func New(cfg Config, opts ...cobindex.IndexerOption) (*cobindex.Indexer, error) {
	if cfg.Registry == nil {
		reg, err := translation.Default()
		if err != nil {
			return nil, errors.Wrap(err, "loading translations")
		}
		cfg.Registry = reg
	}
	if cfg.Hathi == nil {
		cfg.Hathi = hathi.Nop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = logger.NopLogger
	}
	s := &ruleSet{
		cfg:        cfg,
		reg:        cfg.Registry,
		classifier: format.NewClassifier(cfg.Registry),
		rem:        subject.NewRemediator(cfg.Registry.Map(translation.SubjectRemediation)),
		corporate:  cfg.Registry.ListSet(translation.CorporateNames),
	}
	b := cobindex.NewBuilder()
	s.register(b)
	if s.err != nil {
		b.Fail(s.err)
	}
	return b.Build(append([]cobindex.IndexerOption{cobindex.OptIndexerLogger(cfg.Log)}, opts...)...)
}

// fail records err unless an earlier error was already recorded.
func (s *ruleSet) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// ext compiles spec, recording the first error.
func (s *ruleSet) ext(spec string, opts ...marc.ExtractorOption) *marc.Extractor {
	e, err := marc.NewExtractor(spec, opts...)
	if err != nil {
		s.fail(err)
	}
	return e
}

// nothing stands in for a rule that could not be built.
var nothing = cobindex.RuleFunc(func(*marc.Record, *cobindex.Context) ([]string, error) { return nil, nil })

// marc returns a rule extracting spec, passed through steps.
func (s *ruleSet) marc(spec string, opts []marc.ExtractorOption, steps ...step) cobindex.Rule {
	e := s.ext(spec, opts...)
	return pipe(cobindex.RuleFunc(func(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
		return e.Extract(rec), nil
	}), steps...)
}

// Shorthands for extractor options.
var (
	first   = marc.OptFirst()
	trim    = marc.OptTrimPunctuation()
	noAlt   = marc.OptAlternateScript(marc.AlternateExclude)
	altOnly = marc.OptAlternateScript(marc.AlternateOnly)
	noSep   = marc.OptNoSeparator()
)

func with(opts ...marc.ExtractorOption) []marc.ExtractorOption { return opts }

const (
	subjectFields  = "600abcdefghklmnopqrstuvxyz:610abcdefghklmnoprstuvxyz:611acdefghjklnpqstuvxyz:630adefghklmnoprstvxyz:647acdgvxyz:648axvyz:650abcdegvxyz:651aegvxyz:653a:654abcevyz:656akvxyz:657avxyz:690abcdegvxyz"
	topicFields    = "600abcdq:610ab:611a:630a:650ax:653a:654ab:647acdg"
	titleAddlVern  = "210ab:246abfgnp:247abcdefgnp:730ail:740anp"
	seriesFields   = "830av:490av:440anpv:800abcdefghjklmnopqrstuv:810abcdeghklmnoprstuv:811acdefghjklnpqstuv"
	languageFields = "008[35-37]:041a:041d:041e:041g:041j"
	aToU           = "abcdefghijklmnopqrstu"
	relatedEntry   = "iabdghkmnopqrstuxyz3"
)

// register adds every rule to b in output order.
func (s *ruleSet) register(b *cobindex.Builder) {
	b.Gate(boundWithHost)

	b.Field("id", s.marc("001", with(first)))
	b.Field("marc_display_raw", cobindex.RuleFunc(rawXML))
	b.Field("text", pipe(cobindex.RuleFunc(allValues), singleString))
	b.Field("language_facet", s.language(languageFields))
	b.Field("language_display", s.language(languageFields))
	b.Field("format", cobindex.RuleFunc(s.formats))

	s.registerCallNumbers(b)
	s.registerTitles(b)
	s.registerNames(b)
	b.Field("lc_call_number_sort", cobindex.RuleFunc(s.lcCallNumberSort))
	s.registerPublication(b)
	s.registerPhysical(b)
	b.Field("date_added_facet", cobindex.RuleFunc(dateAdded))
	s.registerSeries(b)
	s.registerNotes(b)
	s.registerSubjects(b)
	s.registerLocations(b)
	s.registerLinks(b)
	b.Field("hathi_trust_bib_key_display", cobindex.RuleFunc(s.hathiBibKeys))
	b.Field("donor_info_ms", cobindex.RuleFunc(donors))
	s.registerAvailability(b)
	s.registerIdentifiers(b)
	s.registerRelatedEntries(b)
	b.Field("library_based_boost_txt", cobindex.RuleFunc(libraryBoost))
	b.Field("boost_txt", cobindex.RuleFunc(s.boostLabels))
	b.Field("bound_with_ids", s.marc("ADFa", nil))
	b.Field("purchase_order", cobindex.RuleFunc(purchaseOrderRule))
	b.Field("record_creation_date", s.marc("ADMa", nil, defaultTo(DefaultCreationDate)))
	b.Field("record_update_date", pipe(cobindex.RuleFunc(s.updateDate), defaultTo(DefaultUpdateDate)))
}

func (s *ruleSet) registerPhysical(b *cobindex.Builder) {
	b.Field("phys_desc_display", s.marc("300abcefg3:340abcdefhijkmno", nil))
	b.Field("duration_display", s.marc("306a", nil))
	b.Field("frequency_display", s.marc("310ab:321ab", nil))
	b.Field("sound_display", s.marc("344abcdefgh", nil))
	b.Field("digital_file_display", s.marc("347abcdef", nil))
	b.Field("form_work_display", s.marc("380a", nil))
	b.Field("performance_display", s.marc("382abdenprst", nil))
	b.Field("music_no_display", s.marc("383abcde", nil))
	b.Field("video_file_display", s.marc("346ab", nil))
	b.Field("music_format_display", s.marc("348a", nil))
	b.Field("music_key_display", s.marc("384a", nil))
	b.Field("audience_display", s.marc("385am", nil))
	b.Field("creator_group_display", s.marc("386aim", nil))
	b.Field("date_period_display", s.marc("388a", nil))
	b.Field("collection_ms", s.marc("973at", nil))
	b.Field("collection_area_display", s.marc("974at", nil))
}

func (s *ruleSet) registerSeries(b *cobindex.Builder) {
	b.Field("title_series_display", s.marc(seriesFields, with(noAlt)))
	b.Field("title_series_vern_display", s.marc(seriesFields, with(altOnly)))
	b.Field("title_series_txt", s.marc("830av:490av:440anpv", nil, flank))
	b.Field("title_series_authority_record_id_ms", s.marc("8000:8100:8110:8300", nil))
}

func (s *ruleSet) registerNotes(b *cobindex.Builder) {
	b.Field("note_display", s.marc("500a:508a:511a:515a:518a:521ab:525a:530abcd:533abcdefmn:534pabcefklmnt:538aiu:546ab:550a", nil))
	b.Field("note_award_display", s.marc("586a", nil))
	b.Field("note_with_display", s.marc("501a", nil))
	b.Field("note_diss_display", s.marc("502abcdgo", nil))
	b.Field("note_biblio_display", s.marc("504a", nil))
	b.Field("note_toc_display", s.marc("505agrt", nil))
	b.Field("note_restrictions_display", s.marc("506abcde3", nil))
	b.Field("note_references_display", s.marc("510abc", nil))
	b.Field("note_summary_display", s.marc("520abc", nil))
	b.Field("note_cite_display", s.marc("524a", nil))
	// 542 with first indicator 0 is private.
	b.Field("note_copyright_display", s.marc("540a:542|1*|abcdefghijklmnopqr3:542| *|abcdefghijklmnopqr3", nil))
	b.Field("note_bio_display", s.marc("545abu", nil))
	b.Field("note_finding_aid_display", s.marc("555abcdu3", nil))
	b.Field("note_custodial_display", s.marc("561a", nil))
	b.Field("note_binding_display", s.marc("5633a", nil))
	b.Field("note_related_display", s.marc("580a", nil))
	b.Field("note_accruals_display", s.marc("584a", nil))
	b.Field("note_local_display", s.marc("590a", nil))
}

func (s *ruleSet) registerIdentifiers(b *cobindex.Builder) {
	b.Field("isbn_display", s.marc("020a", with(noSep), isbns))
	b.Field("alt_isbn_display", s.marc("020z:776z", with(noSep), isbns))
	b.Field("issn_display", s.marc("022a", with(noSep), issns))
	b.Field("alt_issn_display", s.marc("022lz:776x", with(noSep), issns))
	b.Field("lccn_display", s.marc("010ab", with(noSep), lccns))
	b.Field("pub_no_display", s.marc("028ab", nil))
	b.Field("sudoc_display", s.marc("086|0*|a", nil))
	b.Field("gpo_display", s.marc("074a", nil))
	b.Field("oclc_number_display", cobindex.RuleFunc(oclcRule))
	b.Field("alma_mms_display", s.marc("001", nil))
}

func (s *ruleSet) registerRelatedEntries(b *cobindex.Builder) {
	entries := []struct{ name, spec string }{
		{"continues_display", "780|00|:780|02|"},
		{"continues_in_part_display", "780|01|:780|03|"},
		{"formed_from_display", "780|04|"},
		{"absorbed_display", "780|05|"},
		{"absorbed_in_part_display", "780|06|"},
		{"separated_from_display", "780|07|"},
		{"continued_by_display", "785|00|:785|02|"},
		{"continued_in_part_by_display", "785|01|:785|03|"},
		{"absorbed_by_display", "785|04|"},
		{"absorbed_in_part_by_display", "785|05|"},
		{"split_into_display", "785|06|"},
		{"merged_to_form_display", "785|07|"},
		{"changed_back_to_display", "785|08|"},
	}
	for _, e := range entries {
		b.Field(e.name, s.marc(withCodes(e.spec, relatedEntry), with(trim)))
	}
}
