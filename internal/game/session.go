// internal/game/session.go
//
// Core state machine for one player's game session.
// Responsibilities:
//   - Load sequence on (language, mode, length) change: manifest → allowed
//     lengths → validation list → answer selection → stored-progress
//     hydration, with a generation token guarding against stale results.
//   - Key handling: letters, Backspace, Enter (submission gate).
//   - Submission: validity check, two-pass scoring, keyboard-hint merge,
//     persistence, win/lose detection, stats transitions.
//   - Freeplay lifecycle: resume, "play again", per-length progress.
//
// Notes:
//   - The answer for daily mode is never stored; it is re-derived from the
//     date-key seed on every load.
//   - Time and randomness are injected so the whole machine is deterministic
//     under test.
package game

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jdvries/woordle/internal/daily"
	"github.com/jdvries/woordle/internal/store"
	"github.com/jdvries/woordle/internal/words"
)

const defaultWordLen = 5

// Clock supplies "now"; injected so daily selection and durations are
// testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall-clock Clock used outside tests.
func SystemClock() Clock { return systemClock{} }

// RandIndex picks a uniform index in [0, n). Injected so freeplay answer
// selection is reproducible in tests.
type RandIndex func(n int) int

// cryptoRandIndex draws from crypto/rand, as the production default.
func cryptoRandIndex(n int) int {
	if n <= 0 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// Config wires a Session's collaborators. Store and Source are required;
// Clock and Rand default to the system clock and crypto/rand.
type Config struct {
	Store  store.Store
	Source words.Source
	Clock  Clock
	Rand   RandIndex
}

// Session is the game state machine for one owner and one active
// (mode, language, length) combination. All methods are safe for concurrent
// use; mutations are serialized by the internal mutex.
type Session struct {
	store     store.Store
	src       words.Source
	clock     Clock
	randIndex RandIndex

	mu  sync.Mutex
	gen uint64 // load generation; stale load results are discarded

	mode   Mode
	locale string

	ready        bool
	allowed      []int
	wordLen      int
	answer       string
	solutions    []string
	guessSet     map[string]struct{}
	board        Board
	guesses      []string
	current      string
	letterStates map[string]TileState
	outcome      *Outcome
	invalidTick  int64
	listURL      string
	dateKey      string // daily mode only
	startedAt    int64  // unix ms; 0 when unknown (legacy stored sessions)
	finishedAt   int64
	finished     bool
	won          bool
}

// NewSession constructs an unloaded Session; call Load before use.
func NewSession(cfg Config) *Session {
	s := &Session{
		store:        cfg.Store,
		src:          cfg.Source,
		clock:        cfg.Clock,
		randIndex:    cfg.Rand,
		letterStates: map[string]TileState{},
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	if s.randIndex == nil {
		s.randIndex = cryptoRandIndex
	}
	return s
}

// Load runs the full load sequence for (locale, mode) using the stored
// preferred word length. While a load is in flight the session is not ready
// and input is ignored. A load that finishes after a newer one started is
// discarded.
func (s *Session) Load(ctx context.Context, locale string, mode Mode) error {
	return s.reload(ctx, locale, mode, 0)
}

// reload is the shared (re)load sequence. requestedLen == 0 means "use the
// stored preference".
func (s *Session) reload(ctx context.Context, locale string, mode Mode, requestedLen int) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.ready = false
	s.locale = locale
	s.mode = mode
	s.mu.Unlock()

	prefs := s.Prefs()
	length := requestedLen
	if length == 0 {
		length = prefs.WordLength
	}
	if length == 0 {
		length = defaultWordLen
	}

	manifest := words.LoadManifest(ctx, s.src)
	allowed := words.AllowedLengths(locale, manifest)
	snapped := false
	if !containsInt(allowed, length) {
		// Snap to the first allowed length. The corrected preference is
		// persisted only after this load survives the generation check.
		length = allowed[0]
		snapped = true
	}

	guessList, err := words.LoadList(ctx, s.src, locale, length, words.TierGuesses)
	if err != nil {
		return err
	}
	solutions, err := words.LoadList(ctx, s.src, locale, length, words.TierSolutions)
	if err != nil {
		return err
	}
	if len(solutions) == 0 {
		return words.ErrNotFound
	}

	now := s.clock.Now()
	nowMs := now.UnixMilli()

	var (
		answer     string
		guesses    []string
		board      Board
		startedAt  int64
		finishedAt int64
		dateKey    string
		fresh      bool
	)

	switch mode {
	case ModeFreeplay:
		var prog FreeplayProgress
		key := store.FreeplayKey(locale, length)
		if s.store.Get(key, &prog) && prog.Answer != "" && !progressFinished(prog.Answer, prog.Guesses) {
			answer = prog.Answer
			guesses = prog.Guesses
			board = prog.Board
			startedAt = prog.StartedAt
			finishedAt = prog.FinishedAt
			if startedAt == 0 {
				// Legacy records predate timestamps; elapsed time restarts
				// from now rather than guessing.
				startedAt = nowMs
			}
		} else {
			answer = solutions[s.randIndex(len(solutions))]
			startedAt = nowMs
			fresh = true
		}
	default: // ModeDaily
		dateKey = daily.Key(now)
		answer = solutions[daily.WordIndex(dateKey, len(solutions))]
		var prog DailyProgress
		key := store.DailyKey(dateKey, locale, length)
		// A stored record may predate the first guess; its timestamps still
		// count, so any readable record hydrates.
		if s.store.Get(key, &prog) {
			guesses = prog.Guesses
			board = prog.Board
			startedAt = prog.StartedAt
			finishedAt = prog.FinishedAt
			if startedAt == 0 {
				startedAt = nowMs
			}
		} else {
			startedAt = nowMs
			fresh = true
		}
	}

	board = hydrateBoard(board, answer, guesses, length)
	won, finished := outcomeOf(answer, guesses)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// A newer load superseded this one; drop the result.
		return nil
	}

	if snapped {
		prefs.WordLength = length
		s.store.Set(store.PrefsKey, prefs)
	}

	s.allowed = allowed
	s.wordLen = length
	s.answer = answer
	s.solutions = solutions
	s.guessSet = words.ToSet(guessList)
	s.board = board
	s.guesses = guesses
	s.letterStates = rebuildKeyboard(board, guesses)
	s.current = ""
	s.outcome = nil
	s.listURL = words.ListURL(s.src, locale, length, words.TierSolutions)
	s.dateKey = dateKey
	s.startedAt = startedAt
	s.finishedAt = finishedAt
	s.finished = finished
	s.won = won
	s.ready = true

	if fresh {
		s.persistLocked()
	}
	return nil
}

// EnsureFresh reloads a daily session whose date key has rolled over since
// it was loaded. No-op otherwise.
func (s *Session) EnsureFresh(ctx context.Context) error {
	s.mu.Lock()
	stale := s.ready && s.mode == ModeDaily && s.dateKey != daily.Key(s.clock.Now())
	locale, mode := s.locale, s.mode
	s.mu.Unlock()
	if !stale {
		return nil
	}
	return s.reload(ctx, locale, mode, 0)
}

// HandleKey processes one key event. Ignored entirely until the session is
// ready. Letters append to the typed buffer (up to wordLen), Backspace
// removes the last letter, Enter submits a full-length buffer.
func (s *Session) HandleKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return
	}
	switch {
	case isLetterKey(key):
		if len(s.current) < s.wordLen {
			s.current += strings.ToLower(key)
		}
	case key == "Backspace":
		if s.current != "" {
			s.current = s.current[:len(s.current)-1]
		}
	case key == "Enter":
		if len(s.current) == s.wordLen {
			s.submitLocked()
		}
	}
}

// submitLocked applies the typed buffer as a guess. Caller holds s.mu and
// has verified the buffer length.
func (s *Session) submitLocked() {
	if s.finished {
		return
	}
	guess := s.current

	// Not in the validity pool: a rejected input, not a wasted attempt.
	// The tick lets the presentation layer flash the active row; the buffer
	// stays so the player can edit it.
	if _, ok := s.guessSet[guess]; !ok {
		s.invalidTick++
		return
	}

	rowIdx := s.board.ActiveRow()
	if rowIdx < 0 {
		return
	}
	states := Evaluate(guess, s.answer)
	for i, r := range []rune(guess) {
		if i < len(s.board[rowIdx]) {
			s.board[rowIdx][i] = Cell{Ch: string(r), State: states[i]}
		}
	}
	s.mergeKeyboardLocked(guess, states)
	s.guesses = append(s.guesses, guess)

	nowMs := s.clock.Now().UnixMilli()
	if s.startedAt == 0 {
		s.startedAt = nowMs
	}

	if guess == s.answer && allCorrect(states) {
		s.finished, s.won = true, true
		if s.finishedAt == 0 {
			s.finishedAt = nowMs
		}
		s.bumpStats(true, rowIdx)
		s.outcome = &Outcome{Type: "win", Answer: s.answer, DurationMs: s.finishedAt - s.startedAt}
	} else if rowIdx+1 >= MaxAttempts {
		s.finished = true
		if s.finishedAt == 0 {
			s.finishedAt = nowMs
		}
		s.bumpStats(false, rowIdx)
		s.outcome = &Outcome{Type: "lose", Answer: s.answer, DurationMs: s.finishedAt - s.startedAt}
	}

	s.persistLocked()
	s.current = ""
}

// mergeKeyboardLocked folds one scored guess into the letter→best-state map.
// States only ever improve: correct > present > absent.
func (s *Session) mergeKeyboardLocked(guess string, states []TileState) {
	for i, r := range []rune(guess) {
		if i >= len(states) || states[i] == TileEmpty {
			continue
		}
		ch := string(r)
		if states[i].rank() > s.letterStates[ch].rank() {
			s.letterStates[ch] = states[i]
		}
	}
}

// persistLocked writes the active session record. Failures are swallowed by
// the store; the in-memory game continues either way.
func (s *Session) persistLocked() {
	kb := make(map[string]TileState, len(s.letterStates))
	for k, v := range s.letterStates {
		kb[k] = v
	}
	switch s.mode {
	case ModeFreeplay:
		s.store.Set(store.FreeplayKey(s.locale, s.wordLen), FreeplayProgress{
			Answer:     s.answer,
			Guesses:    s.guesses,
			Board:      s.board,
			Keyboard:   kb,
			StartedAt:  s.startedAt,
			FinishedAt: s.finishedAt,
		})
	default:
		s.store.Set(store.DailyKey(s.dateKey, s.locale, s.wordLen), DailyProgress{
			AnswerHash: answerHash(s.answer),
			Guesses:    s.guesses,
			Board:      s.board,
			Keyboard:   kb,
			StartedAt:  s.startedAt,
			FinishedAt: s.finishedAt,
		})
	}
}

// bumpStats applies one completed game to the aggregate counters for the
// active mode. Never called on intermediate guesses.
func (s *Session) bumpStats(won bool, rowIdx int) {
	stats := s.Stats()
	ms := &stats.Daily
	if s.mode == ModeFreeplay {
		ms = &stats.Freeplay
	}
	ms.GamesPlayed++
	if won {
		ms.Wins++
		ms.CurrentStreak++
		if ms.CurrentStreak > ms.MaxStreak {
			ms.MaxStreak = ms.CurrentStreak
		}
		if rowIdx >= 0 && rowIdx < MaxAttempts {
			ms.GuessDist[rowIdx]++
		}
	} else {
		ms.CurrentStreak = 0
	}
	s.store.Set(store.StatsKey, stats)
}

// SetWordLen switches the active word length. No-op when the length is not
// allowed for the current language. The changed preference is persisted and
// the session restarts for the new length; freeplay progress for other
// lengths is untouched (it lives under its own key).
func (s *Session) SetWordLen(ctx context.Context, length int) error {
	s.mu.Lock()
	if !s.ready || !containsInt(s.allowed, length) {
		s.mu.Unlock()
		return nil
	}
	locale, mode := s.locale, s.mode
	s.mu.Unlock()

	prefs := s.Prefs()
	prefs.WordLength = length
	s.store.Set(store.PrefsKey, prefs)
	return s.reload(ctx, locale, mode, length)
}

// SetLanguage switches the active language, persists the preference, and
// restarts the session (the new language's lists may allow different
// lengths).
func (s *Session) SetLanguage(ctx context.Context, locale string) error {
	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()

	prefs := s.Prefs()
	prefs.Language = locale
	s.store.Set(store.PrefsKey, prefs)
	return s.reload(ctx, locale, mode, 0)
}

// SetMode switches between daily and freeplay, reloading that mode's
// session. The other mode's progress stays persisted.
func (s *Session) SetMode(ctx context.Context, mode Mode) error {
	s.mu.Lock()
	locale := s.locale
	s.mu.Unlock()
	return s.reload(ctx, locale, mode, 0)
}

// NewFreeplayGame abandons the current freeplay game for this length and
// starts a fresh one with a new random answer. No-op in daily mode.
func (s *Session) NewFreeplayGame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready || s.mode != ModeFreeplay || len(s.solutions) == 0 {
		return
	}
	s.answer = s.solutions[s.randIndex(len(s.solutions))]
	s.board = NewBoard(MaxAttempts, s.wordLen)
	s.guesses = nil
	s.letterStates = map[string]TileState{}
	s.current = ""
	s.outcome = nil
	s.startedAt = s.clock.Now().UnixMilli()
	s.finishedAt = 0
	s.finished, s.won = false, false
	s.persistLocked()
}

// AcknowledgeOutcome clears the pending outcome notification. Idempotent;
// the presentation layer calls it after showing the result.
func (s *Session) AcknowledgeOutcome() {
	s.mu.Lock()
	s.outcome = nil
	s.mu.Unlock()
}

// ResetAll clears every persisted record for this owner and restarts the
// session from scratch.
func (s *Session) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	locale, mode := s.locale, s.mode
	s.mu.Unlock()
	s.store.Clear()
	return s.reload(ctx, locale, mode, 0)
}

// Prefs reads the stored preferences, applying defaults for absent fields.
func (s *Session) Prefs() Prefs {
	var p Prefs
	s.store.Get(store.PrefsKey, &p)
	if p.WordLength == 0 {
		p.WordLength = defaultWordLen
	}
	return p
}

// Stats reads the stored aggregate stats (zero-valued when absent).
func (s *Session) Stats() Stats {
	var st Stats
	s.store.Get(store.StatsKey, &st)
	return st
}

// WordCounts reports the sizes of the loaded pools (solutions, guesses).
func (s *Session) WordCounts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.solutions), len(s.guessSet)
}

// State is the presentation-facing view of a session.
type State struct {
	Ready       bool                 `json:"ready"`
	Mode        Mode                 `json:"mode"`
	Lang        string               `json:"lang"`
	Allowed     []int                `json:"allowed"`
	WordLen     int                  `json:"wordLen"`
	Board       Board                `json:"board"`
	ActiveRow   int                  `json:"activeRow"`
	Current     string               `json:"current"`
	Keyboard    map[string]TileState `json:"keyboard"`
	Outcome     *Outcome             `json:"outcome"`
	InvalidTick int64                `json:"invalidTick"`
	WordlistURL string               `json:"wordlistUrl"`
}

// Snapshot returns a deep copy of the observable session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	board := make(Board, len(s.board))
	for i, row := range s.board {
		board[i] = append([]Cell(nil), row...)
	}
	kb := make(map[string]TileState, len(s.letterStates))
	for k, v := range s.letterStates {
		kb[k] = v
	}
	var out *Outcome
	if s.outcome != nil {
		o := *s.outcome
		out = &o
	}
	return State{
		Ready:       s.ready,
		Mode:        s.mode,
		Lang:        s.locale,
		Allowed:     append([]int(nil), s.allowed...),
		WordLen:     s.wordLen,
		Board:       board,
		ActiveRow:   board.ActiveRow(),
		Current:     s.current,
		Keyboard:    kb,
		Outcome:     out,
		InvalidTick: s.invalidTick,
		WordlistURL: s.listURL,
	}
}

// ------------------------------ helpers ------------------------------------

// hydrateBoard returns a usable board for a stored session. A structurally
// blank or mis-shaped board with guesses present (older schema) is rebuilt
// by re-running the evaluator over each guess; remaining rows stay empty.
func hydrateBoard(stored Board, answer string, guesses []string, wordLen int) Board {
	usable := len(stored) == MaxAttempts && !stored.IsBlank()
	if usable {
		for _, row := range stored {
			if len(row) != wordLen {
				usable = false
				break
			}
		}
	}
	if usable {
		return stored
	}

	b := NewBoard(MaxAttempts, wordLen)
	for idx, g := range guesses {
		if idx >= MaxAttempts {
			log.Warn().Int("extra", len(guesses)-MaxAttempts).Msg("stored session has more guesses than rows")
			break
		}
		states := Evaluate(g, answer)
		for i, r := range []rune(g) {
			if i < wordLen && i < len(states) {
				b[idx][i] = Cell{Ch: string(r), State: states[i]}
			}
		}
	}
	return b
}

// rebuildKeyboard derives the letter→best-state map from scored rows.
func rebuildKeyboard(board Board, guesses []string) map[string]TileState {
	kb := map[string]TileState{}
	for idx := range guesses {
		if idx >= len(board) {
			break
		}
		for _, c := range board[idx] {
			if c.Ch == "" || c.State == TileEmpty {
				continue
			}
			if c.State.rank() > kb[c.Ch].rank() {
				kb[c.Ch] = c.State
			}
		}
	}
	return kb
}

// outcomeOf classifies a stored guess list against the answer.
func outcomeOf(answer string, guesses []string) (won, finished bool) {
	for _, g := range guesses {
		if g == answer {
			return true, true
		}
	}
	return false, len(guesses) >= MaxAttempts
}

// progressFinished reports whether a stored freeplay game is over and thus
// not resumable.
func progressFinished(answer string, guesses []string) bool {
	_, finished := outcomeOf(answer, guesses)
	return finished
}

// answerHash is a cheap fingerprint stored with daily progress; the answer
// itself is re-derived from the date seed, never persisted.
func answerHash(answer string) string {
	return "len:" + strconv.Itoa(len(answer))
}

// isLetterKey reports whether key is a single a-z/A-Z character.
func isLetterKey(key string) bool {
	return len(key) == 1 && isAlpha(strings.ToLower(key))
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}
