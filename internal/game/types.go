// internal/game/types.go
//
// Core type definitions for the Woordle game engine.
// Defines:
//   - TileState: per-letter result of a guess (correct/present/absent/empty).
//   - Cell/Board: the 6-row guess grid.
//   - Mode: daily vs. freeplay play mode.
//   - Outcome: a pending win/lose notification for the presentation layer.
//   - Progress records and aggregate Stats/Prefs persisted by the store.

package game

// MaxAttempts is the number of guess rows on the board.
const MaxAttempts = 6

// TileState represents the evaluation result for a single board cell.
// Possible values:
//   - "empty":   the cell has not been scored yet.
//   - "correct": letter is in the answer and in the correct position.
//   - "present": letter exists in the answer but in a different position.
//   - "absent":  letter does not exist in the answer (or all copies are used).
type TileState string

const (
	TileEmpty   TileState = "empty"
	TileCorrect TileState = "correct"
	TilePresent TileState = "present"
	TileAbsent  TileState = "absent"
)

// rank orders tile states for keyboard hints: a letter's displayed state may
// only improve across guesses, never regress.
func (s TileState) rank() int {
	switch s {
	case TileCorrect:
		return 3
	case TilePresent:
		return 2
	case TileAbsent:
		return 1
	}
	return 0
}

// Cell is one board position: a typed letter (if any) and its scored state.
type Cell struct {
	Ch    string    `json:"ch"`
	State TileState `json:"state"`
}

// Board is the guess grid: MaxAttempts rows of wordLen cells each.
// Rows are filled strictly front to back.
type Board [][]Cell

// NewBoard returns an all-empty board of rows x cols cells.
func NewBoard(rows, cols int) Board {
	b := make(Board, rows)
	for i := range b {
		b[i] = make([]Cell, cols)
		for j := range b[i] {
			b[i][j] = Cell{Ch: "", State: TileEmpty}
		}
	}
	return b
}

// ActiveRow returns the index of the first row containing an empty cell,
// or -1 if the board is full.
func (b Board) ActiveRow() int {
	for i, row := range b {
		for _, c := range row {
			if c.State == TileEmpty {
				return i
			}
		}
	}
	return -1
}

// IsBlank reports whether no cell on the board has been scored or typed.
// A stored session with guesses but a blank board is a schema-drift case
// repaired by re-evaluating the guesses.
func (b Board) IsBlank() bool {
	for _, row := range b {
		for _, c := range row {
			if c.Ch != "" || c.State != TileEmpty {
				return false
			}
		}
	}
	return true
}

// Mode selects how the answer is chosen and how progress is keyed.
type Mode string

const (
	// ModeDaily plays one deterministic answer per calendar day per
	// (language, length).
	ModeDaily Mode = "daily"
	// ModeFreeplay plays random answers, persisted per (language, length)
	// until won, lost, or restarted.
	ModeFreeplay Mode = "freeplay"
)

// Outcome is a pending end-of-game notification. It is cleared by
// AcknowledgeOutcome once the presentation layer has shown it.
type Outcome struct {
	Type       string `json:"type"` // "win" | "lose"
	Answer     string `json:"answer"`
	DurationMs int64  `json:"durationMs"`
}

// DailyProgress is the stored state of one daily session, keyed by
// (date, language, length).
type DailyProgress struct {
	AnswerHash string               `json:"answerHash,omitempty"`
	Guesses    []string             `json:"guesses"`
	Board      Board                `json:"board"`
	Keyboard   map[string]TileState `json:"keyboard,omitempty"`
	StartedAt  int64                `json:"startedAt,omitempty"`  // unix ms
	FinishedAt int64                `json:"finishedAt,omitempty"` // unix ms
}

// FreeplayProgress is the stored state of one freeplay session, keyed by
// (language, length). Unlike daily progress it carries the answer itself so
// an unfinished game can be resumed.
type FreeplayProgress struct {
	Answer     string               `json:"answer"`
	Guesses    []string             `json:"guesses"`
	Board      Board                `json:"board"`
	Keyboard   map[string]TileState `json:"keyboard,omitempty"`
	StartedAt  int64                `json:"startedAt,omitempty"`
	FinishedAt int64                `json:"finishedAt,omitempty"`
}

// ModeStats are aggregate results for one play mode. Mutated once per
// completed game, never on intermediate guesses.
type ModeStats struct {
	GamesPlayed   int              `json:"gamesPlayed"`
	Wins          int              `json:"wins"`
	CurrentStreak int              `json:"currentStreak"`
	MaxStreak     int              `json:"maxStreak"`
	GuessDist     [MaxAttempts]int `json:"guessDist"`
}

// Stats aggregates results per mode.
type Stats struct {
	Daily    ModeStats `json:"daily"`
	Freeplay ModeStats `json:"freeplay"`
}

// Prefs are cross-session user settings, independent of any particular game.
type Prefs struct {
	Language     string `json:"language,omitempty"`
	WordLength   int    `json:"wordLength,omitempty"`
	Theme        string `json:"theme,omitempty"`
	SoundEffects bool   `json:"soundEffects,omitempty"`
}
