package words

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapSource(files map[string]string) *FSSource {
	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return &FSSource{FS: fsys}
}

func TestLocalePrefix(t *testing.T) {
	assert.Equal(t, "nl", LocalePrefix("nl"))
	assert.Equal(t, "nl", LocalePrefix("nl-NL"))
	assert.Equal(t, "en", LocalePrefix("en"))
	assert.Equal(t, "en", LocalePrefix("en-US"))
	assert.Equal(t, "en", LocalePrefix("EN-GB"))
	assert.Equal(t, "nl", LocalePrefix("fr"), "unknown locales fall back to nl")
	assert.Equal(t, "nl", LocalePrefix(""))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "en_5_solutions.txt", Filename("en-US", 5, TierSolutions))
	assert.Equal(t, "nl_6_guesses.txt", Filename("nl", 6, TierGuesses))
}

func TestAllowedLengthsFromLengthsByLang(t *testing.T) {
	m := &Manifest{
		Version:       2,
		LengthsByLang: map[string][]int{"en": {6, 4, 5, 5}, "nl": {5}},
	}
	assert.Equal(t, []int{4, 5, 6}, AllowedLengths("en", m), "sorted and deduped")
	assert.Equal(t, []int{5}, AllowedLengths("nl", m))
}

func TestAllowedLengthsFromLegacyCounts(t *testing.T) {
	m := &Manifest{Counts: map[string]int{
		"en_4.txt":           100,
		"en_5_solutions.txt": 200,
		"en_5_guesses.txt":   300,
		"en_6_guesses.txt":   150,
		"nl_5.txt":           80,
		"readme.txt":         1,
	}}
	assert.Equal(t, []int{4, 5, 6}, AllowedLengths("en", m))
	assert.Equal(t, []int{5}, AllowedLengths("nl", m))
}

func TestAllowedLengthsDefaults(t *testing.T) {
	assert.Equal(t, []int{4, 5, 6, 7}, AllowedLengths("en", nil))
	assert.Equal(t, []int{4, 5, 6, 7}, AllowedLengths("en", &Manifest{}), "empty manifest")
	m := &Manifest{Counts: map[string]int{"de_5.txt": 10}}
	assert.Equal(t, []int{4, 5, 6, 7}, AllowedLengths("en", m), "no matching files")
}

func TestLoadManifest(t *testing.T) {
	src := mapSource(map[string]string{
		"manifest.json": `{"version":2,"lengthsByLang":{"en":[5]}}`,
	})
	m := LoadManifest(context.Background(), src)
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Version)
	assert.Equal(t, []int{5}, m.LengthsByLang["en"])
}

func TestLoadManifestFailuresReturnNil(t *testing.T) {
	assert.Nil(t, LoadManifest(context.Background(), mapSource(nil)), "missing file")
	src := mapSource(map[string]string{"manifest.json": `{not json`})
	assert.Nil(t, LoadManifest(context.Background(), src), "malformed json")
}

func TestLoadListNormalizes(t *testing.T) {
	src := mapSource(map[string]string{
		"en_5_solutions.txt": "Alpha\n\n# comment\n  bravo  \n",
	})
	list, err := LoadList(context.Background(), src, "en", 5, TierSolutions)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bravo"}, list)
}

func TestLoadListLegacySolutionsFallback(t *testing.T) {
	src := mapSource(map[string]string{
		"en_5.txt": "alpha\nbravo\n",
	})
	list, err := LoadList(context.Background(), src, "en", 5, TierSolutions)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bravo"}, list)
}

func TestLoadListGuessesFallBackToSolutions(t *testing.T) {
	src := mapSource(map[string]string{
		"en_5_solutions.txt": "alpha\nbravo\n",
	})
	list, err := LoadList(context.Background(), src, "en", 5, TierGuesses)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bravo"}, list)
}

func TestLoadListGuessesFallBackToLegacy(t *testing.T) {
	src := mapSource(map[string]string{
		"nl_6.txt": "banaan\n",
	})
	list, err := LoadList(context.Background(), src, "nl", 6, TierGuesses)
	require.NoError(t, err)
	assert.Equal(t, []string{"banaan"}, list)
}

func TestLoadListMissingEverywhere(t *testing.T) {
	_, err := LoadList(context.Background(), mapSource(nil), "en", 5, TierSolutions)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToSet(t *testing.T) {
	set := ToSet([]string{"alpha", "bravo", "alpha"})
	assert.Len(t, set, 2)
	_, ok := set["bravo"]
	assert.True(t, ok)
}

func TestFSSourcePrefix(t *testing.T) {
	fsys := fstest.MapFS{
		"wordlists/en_5_solutions.txt": &fstest.MapFile{Data: []byte("alpha\n")},
	}
	src := &FSSource{FS: fsys, Prefix: "wordlists"}

	b, err := src.Fetch(context.Background(), "en_5_solutions.txt")
	require.NoError(t, err)
	assert.Equal(t, "alpha\n", string(b))
	assert.Equal(t, "/wordlists/en_5_solutions.txt", src.URLFor("en_5_solutions.txt"))

	_, err = src.Fetch(context.Background(), "nope.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPSource(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lists/en_5_solutions.txt":
			w.Write([]byte("alpha\nbravo\n"))
		case "/lists/broken.txt":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	src := NewHTTPSource(ts.URL + "/lists/")
	assert.Equal(t, ts.URL+"/lists/en_5_solutions.txt", src.URLFor("en_5_solutions.txt"))

	b, err := src.Fetch(context.Background(), "en_5_solutions.txt")
	require.NoError(t, err)
	assert.Equal(t, "alpha\nbravo\n", string(b))

	_, err = src.Fetch(context.Background(), "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = src.Fetch(context.Background(), "broken.txt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "server errors are not treated as missing")
}
