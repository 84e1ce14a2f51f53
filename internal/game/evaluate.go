// internal/game/evaluate.go
//
// Guess evaluation for a single Woordle row.
// Responsibilities:
//   - Score a guess against the answer using the two-pass algorithm.
//   - Handle duplicate letters correctly: exact matches claim their copies
//     before any "present" credit is handed out, excess repeats are absent.
//   - Stay defensive on malformed input: case-insensitive, never panics on
//     mismatched lengths.

package game

import "strings"

// Evaluate scores one guess against one answer and returns a per-letter
// state slice sized to the guess.
//
// Pass 1:
//   - Mark exact-position matches as correct.
//   - Count the remaining (non-correct) answer letters.
//
// Pass 2:
//   - For each non-correct guess letter: if there is remaining count for that
//     letter, mark present and decrement; otherwise mark absent.
//
// Inputs are normalized to lowercase, so Evaluate("APPLE", "panel") equals
// Evaluate("apple", "PANEL"). If the lengths differ, scoring is truncated to
// the shorter word and the result stays sized to the guess; no out-of-bounds
// reads, no error.
func Evaluate(guess, answer string) []TileState {
	g := []rune(strings.ToLower(guess))
	a := []rune(strings.ToLower(answer))

	states := make([]TileState, len(g))
	for i := range states {
		states[i] = TileAbsent
	}

	n := len(g)
	if len(a) < n {
		n = len(a)
	}

	// Letter frequency for the non-correct positions (a–z).
	var counts [26]int

	for i := 0; i < n; i++ {
		if g[i] == a[i] {
			states[i] = TileCorrect
		} else if j := idx(a[i]); j >= 0 && j < 26 {
			counts[j]++
		}
	}

	for i := 0; i < n; i++ {
		if states[i] == TileCorrect {
			continue
		}
		j := idx(g[i])
		if j >= 0 && j < 26 && counts[j] > 0 {
			states[i] = TilePresent
			counts[j]--
		}
	}
	return states
}

// idx maps a lowercase ASCII letter rune to 0..25.
// Out-of-range values are rejected by the callers' bounds checks.
func idx(r rune) int { return int(r - 'a') }

// isAlpha checks that a string consists only of lowercase a–z.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// allCorrect returns true if every state in the row is TileCorrect.
func allCorrect(states []TileState) bool {
	for _, s := range states {
		if s != TileCorrect {
			return false
		}
	}
	return true
}
