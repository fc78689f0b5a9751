// Package format classifies bibliographic records into resource types using
// the leader, the 006 and 008 control fields and a few content predicates.
package format

import (
	"regexp"
	"strings"

	"github.com/tulibraries/cobindex/marc"
	"github.com/tulibraries/cobindex/translation"
)

// Labels added by the content predicates.
const (
	Thesis      = "Dissertation/Thesis"
	Proceeding  = "Conference Proceeding"
	GovDoc      = "Government Document"
	Game        = "Game"
	DefaultType = "Other"
)

// Classifier maps a record to its format labels. It only reads the registry
// and is safe for concurrent use.
type Classifier struct {
	leader    translation.Map
	leader7   translation.Map
	serial    translation.Map
	computer  translation.Map
	visual    translation.Map
	resources translation.Map
}

// NewClassifier returns a Classifier reading its tables from reg.
func NewClassifier(reg *translation.Registry) *Classifier {
	return &Classifier{
		leader:    reg.Map(translation.GenreLeader),
		leader7:   reg.Map(translation.GenreLeader7),
		serial:    reg.Map(translation.Genre008Serial),
		computer:  reg.Map(translation.Genre008Computer),
		visual:    reg.Map(translation.Genre008Visual),
		resources: reg.Map(translation.ResourceTypes),
	}
}

// Formats returns the genre labels followed by the thesis, proceeding,
// government document and game labels. Thesis records lose "Book" and
// "Archival Material". "Other" is returned when nothing applies.
func (c *Classifier) Formats(rec *marc.Record) []string {
	formats := c.Genre(rec)
	if IsThesis(rec) {
		formats = remove(formats, "Book", "Archival Material")
		formats = append(formats, Thesis)
	}
	if IsProceeding(rec) {
		formats = append(formats, Proceeding)
	}
	if IsGovDoc(rec) {
		formats = append(formats, GovDoc)
	}
	if IsGame(rec) {
		formats = append(formats, Game)
	}
	if len(formats) == 0 {
		formats = append(formats, DefaultType)
	}
	return formats
}

// Genre returns the resource type label derived from leader bytes 6 and 7,
// qualified by 008 (or 006) for serials, projected media and computer files.
// An untranslatable genre yields no label.
func (c *Classifier) Genre(rec *marc.Record) []string {
	genre, ok := "", false
	if len(rec.Leader) > 7 {
		genre, ok = c.leader.Get(rec.Leader[6:8])
	}
	if !ok {
		if genre, ok = c.leader.Get(key(rec.LeaderByte(6))); !ok {
			genre = "unknown"
		}
	}

	cf008, cf006 := rec.FirstField("008"), rec.FirstField("006")
	lookup := func(m translation.Map, f *marc.Field, pos int) string {
		if f == nil || pos >= len(f.Value) {
			return ""
		}
		v, _ := m.Get(key(f.Value[pos]))
		return v
	}

	var qualifier string
	switch genre {
	case "serial":
		s008 := lookup(c.serial, cf008, 21)
		qualifier = s008
		if qualifier == "" {
			qualifier = lookup(c.serial, cf006, 4)
		}
		if qualifier == "" {
			qualifier = "serial"
		}
		if rec.LeaderByte(7) == 'i' && c.leader7.Has("i") && s008 != "website" && s008 != "database" {
			qualifier = "book"
		}
	case "video":
		qualifier = lookup(c.visual, cf008, 33)
		if qualifier == "" {
			qualifier = lookup(c.visual, cf006, 16)
		}
		if qualifier == "" {
			qualifier = "visual"
		}
	case "computer_file":
		qualifier = lookup(c.computer, cf008, 26)
		if qualifier == "" {
			qualifier = lookup(c.computer, cf006, 9)
		}
		if qualifier == "leader_7" {
			qualifier, _ = c.leader7.Get(key(rec.LeaderByte(7)))
		}
		if qualifier == "" {
			qualifier = "computer_file"
		}
	}
	if qualifier != "" {
		genre = qualifier
	}
	if label, ok := c.resources.Get(genre); ok {
		return []string{label}
	}
	return nil
}

// IsThesis reports whether the record has a dissertation note (502).
func IsThesis(rec *marc.Record) bool {
	return rec.HasField("502")
}

var congresses = regexp.MustCompile(`(?i)^\s*congresses\.?\s*$`)

// IsProceeding reports whether any 6xx $v is "Congresses" or 008/29 marks a
// conference publication.
func IsProceeding(rec *marc.Record) bool {
	if rec.ControlByte("008", 29) == '1' {
		return true
	}
	for _, f := range rec.Fields {
		if !strings.HasPrefix(f.Tag, "6") {
			continue
		}
		for _, v := range f.SubfieldValues("v") {
			if congresses.MatchString(v) {
				return true
			}
		}
	}
	return false
}

// IsGovDoc reports whether a record of a government publishable type carries
// a government publication code in 008/28.
func IsGovDoc(rec *marc.Record) bool {
	l6 := rec.LeaderByte(6)
	if l6 == 0 || !strings.ContainsRune("aefgkmort", rune(l6)) {
		return false
	}
	for _, f := range rec.FieldsByTag("008") {
		if len(f.Value) > 28 && strings.ContainsRune("acfilmo", rune(f.Value[28])) {
			return true
		}
	}
	return false
}

var gameMaterial = regexp.MustCompile(`VIDEOGAME|GAME|TOY`)

// IsGame reports whether the first item is a game or toy.
func IsGame(rec *marc.Record) bool {
	itm := rec.FirstField(marc.TagItem)
	return itm != nil && gameMaterial.MatchString(itm.Subfield("t"))
}

// Normalize drops the "Print" and "Online" labels and expands the short
// "Archival" and "Conference" labels.
func Normalize(formats []string) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		switch f {
		case "Print", "Online":
			continue
		case "Archival":
			f = "Archival Material"
		case "Conference":
			f = "Conference Proceedings"
		}
		out = append(out, f)
	}
	return out
}

func key(b byte) string {
	if b == 0 {
		return ""
	}
	return string(b)
}

func remove(vals []string, drop ...string) []string {
	out := vals[:0]
outer:
	for _, v := range vals {
		for _, d := range drop {
			if v == d {
				continue outer
			}
		}
		out = append(out, v)
	}
	return out
}
