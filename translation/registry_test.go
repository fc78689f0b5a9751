package translation

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	label, ok := r.Lookup(ResourceTypes, "book")
	assert.True(t, ok)
	assert.Equal(t, "Book", label)

	label, ok = r.Lookup(Geographic, "n-us-ak")
	assert.True(t, ok)
	assert.Equal(t, "Alaska", label)

	_, ok = r.Lookup(Languages, "xxx")
	assert.False(t, ok)

	loc, ok := r.Location("MAIN", "stacks")
	assert.True(t, ok)
	assert.Equal(t, "Stacks", loc)

	_, ok = r.Location("NOWHERE", "stacks")
	assert.False(t, ok)

	assert.Contains(t, r.List(CorporateNames), "ProQuest (Firm)")
	assert.Contains(t, r.ListSet(GenreStopWords), "Electronic books")

	again, err := Default()
	require.NoError(t, err)
	assert.True(t, r == again, "Default should return the same registry")
}

func TestLookupAll(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)
	got := r.LookupAll(Languages, []string{"eng", "zzz", "fre"})
	assert.Equal(t, []string{"English", "French"}, got)
}

func TestLoadMissingTable(t *testing.T) {
	fsys := fstest.MapFS{
		"maps/marc_languages.yaml": &fstest.MapFile{Data: []byte("eng: English\n")},
	}
	_, err := Load(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marc_geographic")
}

func TestLoadBadYAML(t *testing.T) {
	fsys := fstest.MapFS{}
	for _, name := range requiredMaps {
		fsys["maps/"+name+".yaml"] = &fstest.MapFile{Data: []byte("a: b\n")}
	}
	fsys["maps/locations.yaml"] = &fstest.MapFile{Data: []byte("- not\n- a map\n")}
	_, err := Load(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locations")
}
