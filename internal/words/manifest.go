// internal/words/manifest.go
//
// Manifest metadata for the generated word lists.
// The manifest describes, per language, which word lengths have generated
// lists and how many entries each solutions/guesses file contains. It is
// used only to validate/clamp the selectable length; all failure modes fall
// back to a fixed default set.

package words

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// defaultLengths is used when the manifest is missing or malformed.
var defaultLengths = []int{4, 5, 6, 7}

// FileCounts holds per-filename entry counts for one language.
type FileCounts struct {
	Solutions map[string]int `json:"solutions,omitempty"`
	Guesses   map[string]int `json:"guesses,omitempty"`
}

// Manifest is the word-list build metadata, read-only for this server.
// Newer manifests carry lengthsByLang; legacy ones only a flat counts map
// keyed by filename.
type Manifest struct {
	Version       int                   `json:"version,omitempty"`
	GeneratedAt   string                `json:"generatedAt,omitempty"`
	LengthsByLang map[string][]int      `json:"lengthsByLang,omitempty"`
	Files         map[string]FileCounts `json:"files,omitempty"`
	Counts        map[string]int        `json:"counts,omitempty"` // legacy
	License       string                `json:"license,omitempty"`
}

// Tier selects between the narrower answers pool and the broader guess pool.
type Tier string

const (
	TierSolutions Tier = "solutions"
	TierGuesses   Tier = "guesses"
)

// LocalePrefix maps a locale code ("nl-NL", "en-US", "en") to a word-list
// file prefix. Unknown locales fall back to "nl", the project's home
// language.
func LocalePrefix(locale string) string {
	l := strings.ToLower(locale)
	switch {
	case strings.HasPrefix(l, "nl"):
		return "nl"
	case strings.HasPrefix(l, "en"):
		return "en"
	}
	return "nl"
}

// Filename returns the word-list filename for a locale/length/tier, e.g.
// "en_5_solutions.txt".
func Filename(locale string, length int, tier Tier) string {
	return LocalePrefix(locale) + "_" + strconv.Itoa(length) + "_" + string(tier) + ".txt"
}

// legacyFilename is the pre-tier solutions name, e.g. "en_5.txt". Kept as a
// fetch fallback for older deployments of the build pipeline.
func legacyFilename(locale string, length int) string {
	return LocalePrefix(locale) + "_" + strconv.Itoa(length) + ".txt"
}

// AllowedLengths returns the sorted, deduplicated word lengths available for
// a locale. Preference order:
//  1. lengthsByLang from a v2 manifest.
//  2. Lengths parsed out of legacy counts filenames
//     (prefix_len.txt or prefix_len_solutions.txt / _guesses.txt).
//  3. The fixed default set.
func AllowedLengths(locale string, m *Manifest) []int {
	if m == nil {
		return append([]int(nil), defaultLengths...)
	}
	prefix := LocalePrefix(locale)

	if lens := m.LengthsByLang[prefix]; len(lens) > 0 {
		return sortedUnique(lens)
	}

	re := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `_(\d+)(?:_(?:guesses|solutions))?\.txt$`)
	set := map[int]struct{}{}
	for name := range m.Counts {
		if match := re.FindStringSubmatch(name); match != nil {
			if n, err := strconv.Atoi(match[1]); err == nil {
				set[n] = struct{}{}
			}
		}
	}
	if len(set) == 0 {
		return append([]int(nil), defaultLengths...)
	}
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// sortedUnique copies, dedupes and sorts a length slice.
func sortedUnique(lens []int) []int {
	set := map[int]struct{}{}
	out := make([]int, 0, len(lens))
	for _, n := range lens {
		if _, ok := set[n]; !ok {
			set[n] = struct{}{}
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}
