// Package translation loads the static code to label tables and word lists
// used during extraction. A Registry is read-only once loaded and may be
// shared by any number of workers.
package translation

import (
	"bufio"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Table names.
const (
	Languages          = "marc_languages"
	Geographic         = "marc_geographic"
	Libraries          = "libraries_map"
	Locations          = "locations"
	CallNumbers        = "callnumber_map"
	GenreLeader        = "marc_genre_leader"
	GenreLeader7       = "marc_genre_leader_7"
	Genre008Serial     = "marc_genre_008_21"
	Genre008Computer   = "marc_genre_008_26"
	Genre008Visual     = "marc_genre_008_33"
	ResourceTypes      = "resource_type_codes"
	SubjectRemediation = "subject_remediation"

	CorporateNames = "corporate_names"
	GenreStopWords = "genre_stop_words"
)

var requiredMaps = []string{
	Languages, Geographic, Libraries, CallNumbers, GenreLeader, GenreLeader7,
	Genre008Serial, Genre008Computer, Genre008Visual, ResourceTypes,
	SubjectRemediation,
}

var requiredLists = []string{CorporateNames, GenreStopWords}

//go:embed maps/*.yaml lists/*.txt
var embedded embed.FS

// Map is a single code to label table.
type Map map[string]string

// Get returns the label for key and whether it was found.
func (m Map) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Has reports whether key is present.
func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Keys returns the table keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Registry holds every table and list by name.
type Registry struct {
	maps      map[string]Map
	locations map[string]Map
	lists     map[string][]string
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// Default returns the registry built from the embedded resources. It is
// loaded on first use.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = Load(embedded)
	})
	return defaultRegistry, defaultErr
}

// Load reads maps/<name>.yaml and lists/<name>.txt from fsys. Every required
// table must be present.
func Load(fsys fs.FS) (*Registry, error) {
	r := &Registry{
		maps:  make(map[string]Map),
		lists: make(map[string][]string),
	}
	for _, name := range requiredMaps {
		m := Map{}
		if err := readYAML(fsys, path.Join("maps", name+".yaml"), &m); err != nil {
			return nil, errors.Wrapf(err, "loading translation map %s", name)
		}
		r.maps[name] = m
	}
	r.locations = make(map[string]Map)
	if err := readYAML(fsys, path.Join("maps", Locations+".yaml"), &r.locations); err != nil {
		return nil, errors.Wrapf(err, "loading translation map %s", Locations)
	}
	for _, name := range requiredLists {
		lines, err := readList(fsys, path.Join("lists", name+".txt"))
		if err != nil {
			return nil, errors.Wrapf(err, "loading list %s", name)
		}
		r.lists[name] = lines
	}
	return r, nil
}

func readYAML(fsys fs.FS, name string, v interface{}) error {
	bs, err := fs.ReadFile(fsys, name)
	if err != nil {
		return errors.Wrap(err, "reading file")
	}
	return errors.Wrap(yaml.Unmarshal(bs, v), "decoding yaml")
}

func readList(fsys fs.FS, name string) ([]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	defer f.Close()
	var lines []string
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, errors.Wrap(scan.Err(), "scanning list")
}

// Map returns the named table, or nil when no such table was loaded.
func (r *Registry) Map(name string) Map {
	return r.maps[name]
}

// Lookup translates key through the named table.
func (r *Registry) Lookup(table, key string) (string, bool) {
	return r.maps[table].Get(key)
}

// LookupAll translates each key, dropping keys with no translation.
func (r *Registry) LookupAll(table string, keys []string) []string {
	var out []string
	m := r.maps[table]
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Location returns the display label of a location within a library.
func (r *Registry) Location(library, location string) (string, bool) {
	return r.locations[library].Get(location)
}

// List returns the named word list.
func (r *Registry) List(name string) []string {
	return r.lists[name]
}

// ListSet returns the named word list as a set.
func (r *Registry) ListSet(name string) map[string]struct{} {
	set := make(map[string]struct{}, len(r.lists[name]))
	for _, v := range r.lists[name] {
		set[v] = struct{}{}
	}
	return set
}
