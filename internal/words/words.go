// internal/words/words.go
//
// Word-list loading for the game engine.
//
// Responsibilities:
//   - Load the manifest (nil on any failure; callers fall back to defaults).
//   - Load solutions/guesses lists with the fallback chain:
//       solutions: primary name → legacy name without the _solutions suffix
//       guesses:   primary name → the solutions list (so the answer itself
//                  is always a valid guess even when the broader list is
//                  missing)
//   - Normalize lists: lowercase, trimmed, blank lines and comments dropped.
//
// Invariant from the build pipeline: solutions ⊆ guesses. The guesses
// fallback preserves it locally when the guesses file fails to load.

package words

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ManifestName is the well-known manifest filename on the word-list host.
const ManifestName = "manifest.json"

// LoadManifest fetches and decodes the manifest. Any fetch or decode failure
// returns nil; length selection then uses the fixed default set.
func LoadManifest(ctx context.Context, src Source) *Manifest {
	raw, err := src.Fetch(ctx, ManifestName)
	if err != nil {
		return nil
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return &m
}

// LoadList fetches and normalizes one word list, applying the legacy and
// guesses→solutions fallbacks. An error is returned only when no fallback
// applies.
func LoadList(ctx context.Context, src Source, locale string, length int, tier Tier) ([]string, error) {
	raw, err := src.Fetch(ctx, Filename(locale, length, tier))

	// Backward compatibility: old solutions files had no _solutions suffix.
	if errors.Is(err, ErrNotFound) && tier == TierSolutions {
		raw, err = src.Fetch(ctx, legacyFilename(locale, length))
	}

	if err != nil {
		if tier == TierGuesses {
			return LoadList(ctx, src, locale, length, TierSolutions)
		}
		return nil, fmt.Errorf("load %s list %s/%d: %w", tier, locale, length, err)
	}
	return normalizeLines(raw), nil
}

// ListURL returns a presentation-facing reference to the active list file.
func ListURL(src Source, locale string, length int, tier Tier) string {
	return src.URLFor(Filename(locale, length, tier))
}

// normalizeLines converts raw list bytes into lowercase trimmed words,
// skipping blanks and '#' comments.
func normalizeLines(raw []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		w := strings.TrimSpace(strings.ToLower(sc.Text()))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		out = append(out, w)
	}
	return out
}

// ToSet converts a word list into a membership set.
func ToSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, w := range list {
		m[w] = struct{}{}
	}
	return m
}
