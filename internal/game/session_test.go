package game

import (
	"context"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdvries/woordle/internal/daily"
	"github.com/jdvries/woordle/internal/store"
	"github.com/jdvries/woordle/internal/words"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// jan15 maps to index 0 of a 2-word solutions list via the date-key seed.
var jan15 = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func testSource(manifest string, lists map[string]string) words.Source {
	fsys := fstest.MapFS{}
	if manifest != "" {
		fsys["manifest.json"] = &fstest.MapFile{Data: []byte(manifest)}
	}
	for name, content := range lists {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return &words.FSSource{FS: fsys}
}

func defaultSource() words.Source {
	return testSource(`{"lengthsByLang":{"en":[5],"nl":[5]}}`, map[string]string{
		"en_5_solutions.txt": "alpha\nbravo\n",
		"en_5_guesses.txt":   "alpha\nbravo\ndelta\neagle\nflame\ngrape\nhouse\ninput\n",
		"nl_5_solutions.txt": "appel\nfiets\n",
		"nl_5_guesses.txt":   "appel\nfiets\nbrood\n",
	})
}

func newTestSession(t *testing.T, st store.Store, src words.Source, clock Clock, rand RandIndex) *Session {
	t.Helper()
	s := NewSession(Config{Store: st, Source: src, Clock: clock, Rand: rand})
	return s
}

func typeWord(s *Session, word string) {
	for _, r := range word {
		s.HandleKey(string(r))
	}
}

func submitWord(s *Session, word string) {
	typeWord(s, word)
	s.HandleKey("Enter")
}

func TestKeysIgnoredUntilReady(t *testing.T) {
	s := newTestSession(t, store.NewMemory(), defaultSource(), newFakeClock(jan15), nil)
	s.HandleKey("a")
	assert.Empty(t, s.Snapshot().Current)
	assert.False(t, s.Snapshot().Ready)
}

func TestDailyDeterministicAnswer(t *testing.T) {
	clock := newFakeClock(jan15)
	src := defaultSource()

	a := newTestSession(t, store.NewMemory(), src, clock, nil)
	require.NoError(t, a.Load(context.Background(), "en", ModeDaily))
	b := newTestSession(t, store.NewMemory(), src, clock, nil)
	require.NoError(t, b.Load(context.Background(), "en", ModeDaily))

	want := []string{"alpha", "bravo"}[daily.WordIndex("2025-01-15", 2)]
	assert.Equal(t, "alpha", want)
	assert.Equal(t, want, a.answer)
	assert.Equal(t, a.answer, b.answer)
}

func TestBufferEditing(t *testing.T) {
	s := newTestSession(t, store.NewMemory(), defaultSource(), newFakeClock(jan15), nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))

	typeWord(s, "BRAVO")
	assert.Equal(t, "bravo", s.Snapshot().Current, "letters are lowercased")

	s.HandleKey("x")
	assert.Equal(t, "bravo", s.Snapshot().Current, "buffer is capped at word length")

	s.HandleKey("Backspace")
	assert.Equal(t, "brav", s.Snapshot().Current)

	s.HandleKey("Enter")
	assert.Empty(t, s.Snapshot().Board[0][0].Ch, "short buffer does not submit")

	s.HandleKey("Escape")
	assert.Equal(t, "brav", s.Snapshot().Current, "unknown keys are ignored")
}

func TestWinFlowUpdatesStatsAndOutcome(t *testing.T) {
	clock := newFakeClock(jan15)
	st := store.NewMemory()
	s := newTestSession(t, st, defaultSource(), clock, nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))

	clock.advance(90 * time.Second)
	submitWord(s, "alpha")

	snap := s.Snapshot()
	require.NotNil(t, snap.Outcome)
	assert.Equal(t, "win", snap.Outcome.Type)
	assert.Equal(t, "alpha", snap.Outcome.Answer)
	assert.Equal(t, int64(90_000), snap.Outcome.DurationMs)

	stats := s.Stats()
	assert.Equal(t, 1, stats.Daily.GamesPlayed)
	assert.Equal(t, 1, stats.Daily.Wins)
	assert.Equal(t, 1, stats.Daily.CurrentStreak)
	assert.Equal(t, 1, stats.Daily.MaxStreak)
	assert.Equal(t, 1, stats.Daily.GuessDist[0])
	assert.Zero(t, stats.Freeplay.GamesPlayed)

	s.AcknowledgeOutcome()
	assert.Nil(t, s.Snapshot().Outcome)
	s.AcknowledgeOutcome() // idempotent
}

func TestLossResetsStreak(t *testing.T) {
	clock := newFakeClock(jan15)
	st := store.NewMemory()

	// Seed an existing streak from a previous day.
	st.Set(store.StatsKey, Stats{Daily: ModeStats{GamesPlayed: 3, Wins: 3, CurrentStreak: 3, MaxStreak: 3}})

	s := newTestSession(t, st, defaultSource(), clock, nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))

	for _, w := range []string{"delta", "eagle", "flame", "grape", "house", "input"} {
		submitWord(s, w)
	}

	snap := s.Snapshot()
	require.NotNil(t, snap.Outcome)
	assert.Equal(t, "lose", snap.Outcome.Type)
	assert.Equal(t, "alpha", snap.Outcome.Answer)

	stats := s.Stats()
	assert.Equal(t, 4, stats.Daily.GamesPlayed)
	assert.Equal(t, 3, stats.Daily.Wins, "wins unchanged on loss")
	assert.Zero(t, stats.Daily.CurrentStreak)
	assert.Equal(t, 3, stats.Daily.MaxStreak, "max streak unchanged on loss")
}

func TestFinishedSessionRejectsFurtherGuesses(t *testing.T) {
	s := newTestSession(t, store.NewMemory(), defaultSource(), newFakeClock(jan15), nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))

	submitWord(s, "alpha")
	submitWord(s, "bravo")

	assert.Len(t, s.guesses, 1)
	assert.Equal(t, 1, s.Stats().Daily.GamesPlayed)
}

func TestInvalidGuessRejected(t *testing.T) {
	s := newTestSession(t, store.NewMemory(), defaultSource(), newFakeClock(jan15), nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))

	before := s.Snapshot()
	submitWord(s, "zzzzz")
	after := s.Snapshot()

	assert.NotEqual(t, before.InvalidTick, after.InvalidTick)
	assert.Equal(t, "zzzzz", after.Current, "buffer kept for editing")
	assert.Equal(t, before.Board, after.Board, "no row consumed")
	assert.Nil(t, after.Outcome)
	assert.Empty(t, s.guesses)

	// A second rejection yields a fresh tick.
	s.HandleKey("Enter")
	assert.NotEqual(t, after.InvalidTick, s.Snapshot().InvalidTick)
}

func TestKeyboardHintsNeverRegress(t *testing.T) {
	s := newTestSession(t, store.NewMemory(), defaultSource(), newFakeClock(jan15), nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))

	// answer: alpha. "flame" scores l correct; "delta" scores l present.
	submitWord(s, "flame")
	kb := s.Snapshot().Keyboard
	require.Equal(t, TileCorrect, kb["l"])
	require.Equal(t, TilePresent, kb["a"])

	submitWord(s, "delta")
	kb = s.Snapshot().Keyboard
	assert.Equal(t, TileCorrect, kb["l"], "correct never downgrades to present")
	assert.Equal(t, TileCorrect, kb["a"], "present upgrades once placed correctly")
	assert.Equal(t, TileAbsent, kb["d"])
}

func TestDailyPersistenceRoundTrip(t *testing.T) {
	clock := newFakeClock(jan15)
	st := store.NewMemory()
	src := defaultSource()

	s := newTestSession(t, st, src, clock, nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))
	submitWord(s, "bravo")
	submitWord(s, "flame")
	before := s.Snapshot()

	reloaded := newTestSession(t, st, src, clock, nil)
	require.NoError(t, reloaded.Load(context.Background(), "en", ModeDaily))
	after := reloaded.Snapshot()

	assert.Equal(t, before.Board, after.Board)
	assert.Equal(t, before.Keyboard, after.Keyboard)
	assert.Equal(t, []string{"bravo", "flame"}, reloaded.guesses)
	assert.Equal(t, before.ActiveRow, after.ActiveRow)
}

func TestDailyReloadBeforeFirstGuessKeepsStartTime(t *testing.T) {
	clock := newFakeClock(jan15)
	st := store.NewMemory()
	src := defaultSource()

	// First load persists the session before any guess is made.
	first := newTestSession(t, st, src, clock, nil)
	require.NoError(t, first.Load(context.Background(), "en", ModeDaily))

	clock.advance(60 * time.Second)
	second := newTestSession(t, st, src, clock, nil)
	require.NoError(t, second.Load(context.Background(), "en", ModeDaily))

	clock.advance(30 * time.Second)
	submitWord(second, "alpha")

	snap := second.Snapshot()
	require.NotNil(t, snap.Outcome)
	assert.Equal(t, int64(90_000), snap.Outcome.DurationMs, "start time survives a zero-guess reload")
}

func TestBoardReconstructedFromGuesses(t *testing.T) {
	clock := newFakeClock(jan15)
	st := store.NewMemory()

	// Legacy record: guesses but no board.
	st.Set(store.DailyKey("2025-01-15", "en", 5), DailyProgress{
		Guesses: []string{"bravo"},
	})

	s := newTestSession(t, st, defaultSource(), clock, nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))

	snap := s.Snapshot()
	want := Evaluate("bravo", "alpha")
	for i, cell := range snap.Board[0] {
		assert.Equal(t, string("bravo"[i]), cell.Ch)
		assert.Equal(t, want[i], cell.State)
	}
	assert.Equal(t, 1, snap.ActiveRow)
	for _, cell := range snap.Board[1] {
		assert.Equal(t, TileEmpty, cell.State)
	}
	assert.Equal(t, TilePresent, snap.Keyboard["a"], "hints rebuilt from the scored rows")
}

func TestDailyRollover(t *testing.T) {
	clock := newFakeClock(jan15)
	st := store.NewMemory()
	s := newTestSession(t, st, defaultSource(), clock, nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))
	submitWord(s, "bravo")

	require.NoError(t, s.EnsureFresh(context.Background()))
	assert.Equal(t, 1, s.Snapshot().ActiveRow, "same day: nothing changes")

	clock.advance(24 * time.Hour)
	require.NoError(t, s.EnsureFresh(context.Background()))
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.ActiveRow, "new day starts a fresh board")

	// Yesterday's record is untouched.
	var prog DailyProgress
	require.True(t, st.Get(store.DailyKey("2025-01-15", "en", 5), &prog))
	assert.Equal(t, []string{"bravo"}, prog.Guesses)
}

func TestFreeplayResumeAndPlayAgain(t *testing.T) {
	clock := newFakeClock(jan15)
	st := store.NewMemory()
	src := defaultSource()

	pick := 1
	randIdx := func(n int) int { return pick % n }

	s := newTestSession(t, st, src, clock, randIdx)
	require.NoError(t, s.Load(context.Background(), "en", ModeFreeplay))
	assert.Equal(t, "bravo", s.answer)
	submitWord(s, "flame")

	// A new session resumes the stored game even though the RNG would now
	// pick differently.
	pick = 0
	resumed := newTestSession(t, st, src, clock, randIdx)
	require.NoError(t, resumed.Load(context.Background(), "en", ModeFreeplay))
	assert.Equal(t, "bravo", resumed.answer)
	assert.Equal(t, []string{"flame"}, resumed.guesses)

	// "Play again" overwrites the stored game with a fresh answer.
	resumed.NewFreeplayGame()
	snap := resumed.Snapshot()
	assert.Equal(t, "alpha", resumed.answer)
	assert.Equal(t, 0, snap.ActiveRow)
	assert.Empty(t, snap.Keyboard)
	assert.Empty(t, resumed.guesses)

	var prog FreeplayProgress
	require.True(t, st.Get(store.FreeplayKey("en", 5), &prog))
	assert.Equal(t, "alpha", prog.Answer)
	assert.Empty(t, prog.Guesses)
}

func TestFreeplayFinishedGameNotResumed(t *testing.T) {
	clock := newFakeClock(jan15)
	st := store.NewMemory()
	src := defaultSource()

	pick := 1
	s := newTestSession(t, st, src, clock, func(n int) int { return pick % n })
	require.NoError(t, s.Load(context.Background(), "en", ModeFreeplay))
	submitWord(s, "bravo") // win

	pick = 0
	next := newTestSession(t, st, src, clock, func(n int) int { return pick % n })
	require.NoError(t, next.Load(context.Background(), "en", ModeFreeplay))
	assert.Equal(t, "alpha", next.answer, "won game is not resumable")
	assert.Equal(t, 0, next.Snapshot().ActiveRow)
}

func TestFreeplayLegacyStartedAtFallsBackToNow(t *testing.T) {
	clock := newFakeClock(jan15)
	st := store.NewMemory()

	// Legacy freeplay record without timestamps.
	st.Set(store.FreeplayKey("en", 5), FreeplayProgress{
		Answer:  "bravo",
		Guesses: []string{"flame"},
	})

	s := newTestSession(t, st, defaultSource(), clock, nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeFreeplay))

	clock.advance(30 * time.Second)
	submitWord(s, "bravo")

	snap := s.Snapshot()
	require.NotNil(t, snap.Outcome)
	// Elapsed time restarts from load, understating the true duration.
	assert.Equal(t, int64(30_000), snap.Outcome.DurationMs)
	assert.Equal(t, 1, s.Stats().Freeplay.GuessDist[1])
}

func TestSetWordLenRejectsDisallowed(t *testing.T) {
	st := store.NewMemory()
	s := newTestSession(t, st, defaultSource(), newFakeClock(jan15), nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))

	require.NoError(t, s.SetWordLen(context.Background(), 7))
	assert.Equal(t, 5, s.Snapshot().WordLen)
	assert.Equal(t, 5, s.Prefs().WordLength, "preference not touched by a no-op")
}

func TestSetWordLenSwitchesAndPersists(t *testing.T) {
	src := testSource(`{"lengthsByLang":{"en":[4,5]}}`, map[string]string{
		"en_4_solutions.txt": "card\nlamp\n",
		"en_4_guesses.txt":   "card\nlamp\ndesk\n",
		"en_5_solutions.txt": "alpha\nbravo\n",
		"en_5_guesses.txt":   "alpha\nbravo\n",
	})
	st := store.NewMemory()
	s := newTestSession(t, st, src, newFakeClock(jan15), nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))
	require.Equal(t, 5, s.Snapshot().WordLen)

	require.NoError(t, s.SetWordLen(context.Background(), 4))
	snap := s.Snapshot()
	assert.Equal(t, 4, snap.WordLen)
	assert.Len(t, snap.Board[0], 4)
	assert.Equal(t, 4, s.Prefs().WordLength)
	assert.Equal(t, []int{4, 5}, snap.Allowed)
}

func TestDisallowedStoredLengthSnapsToFirstAllowed(t *testing.T) {
	st := store.NewMemory()
	st.Set(store.PrefsKey, Prefs{WordLength: 9})

	s := newTestSession(t, st, defaultSource(), newFakeClock(jan15), nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))

	assert.Equal(t, 5, s.Snapshot().WordLen)
	assert.Equal(t, 5, s.Prefs().WordLength, "corrected preference persisted")
}

func TestSetLanguageReloadsLists(t *testing.T) {
	st := store.NewMemory()
	s := newTestSession(t, st, defaultSource(), newFakeClock(jan15), nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))

	require.NoError(t, s.SetLanguage(context.Background(), "nl"))
	snap := s.Snapshot()
	assert.Equal(t, "nl", snap.Lang)
	assert.Contains(t, snap.WordlistURL, "nl_5_solutions.txt")
	assert.Equal(t, "nl", s.Prefs().Language)
}

func TestSetModeKeepsOtherModeProgress(t *testing.T) {
	clock := newFakeClock(jan15)
	st := store.NewMemory()
	s := newTestSession(t, st, defaultSource(), clock, func(n int) int { return 1 })
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))
	submitWord(s, "flame")

	require.NoError(t, s.SetMode(context.Background(), ModeFreeplay))
	snap := s.Snapshot()
	assert.Equal(t, ModeFreeplay, snap.Mode)
	assert.Equal(t, 0, snap.ActiveRow, "freeplay starts its own game")

	require.NoError(t, s.SetMode(context.Background(), ModeDaily))
	assert.Equal(t, 1, s.Snapshot().ActiveRow, "daily progress survived the round trip")
}

func TestResetAllClearsEverything(t *testing.T) {
	st := store.NewMemory()
	clock := newFakeClock(jan15)
	s := newTestSession(t, st, defaultSource(), clock, nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))
	submitWord(s, "alpha")
	require.Equal(t, 1, s.Stats().Daily.GamesPlayed)

	require.NoError(t, s.ResetAll(context.Background()))
	assert.Zero(t, s.Stats().Daily.GamesPlayed)
	assert.Equal(t, 0, s.Snapshot().ActiveRow)
	assert.Nil(t, s.Snapshot().Outcome)
}

// blockingSource delays one named fetch until released, to interleave loads.
type blockingSource struct {
	words.Source
	name    string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if name == b.name {
		b.once.Do(func() { close(b.entered) })
		<-b.release
	}
	return b.Source.Fetch(ctx, name)
}

func TestStaleLoadResultDiscarded(t *testing.T) {
	src := &blockingSource{
		Source:  defaultSource(),
		name:    "en_5_solutions.txt",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newTestSession(t, store.NewMemory(), src, newFakeClock(jan15), nil)

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background(), "en", ModeDaily) }()
	<-src.entered

	// A newer load for a different language finishes first.
	require.NoError(t, s.Load(context.Background(), "nl", ModeDaily))
	close(src.release)
	require.NoError(t, <-done)

	snap := s.Snapshot()
	assert.Equal(t, "nl", snap.Lang)
	assert.Contains(t, snap.WordlistURL, "nl_5_solutions.txt", "stale English load was discarded")
	assert.True(t, snap.Ready)
}

func TestStaleLoadDoesNotPersistSnappedLength(t *testing.T) {
	inner := testSource(`{"lengthsByLang":{"en":[5],"nl":[4]}}`, map[string]string{
		"en_5_solutions.txt": "alpha\nbravo\n",
		"en_5_guesses.txt":   "alpha\nbravo\n",
		"nl_4_solutions.txt": "boom\nkast\n",
		"nl_4_guesses.txt":   "boom\nkast\n",
	})
	src := &blockingSource{
		Source:  inner,
		name:    "nl_4_solutions.txt",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	st := store.NewMemory()
	st.Set(store.PrefsKey, Prefs{WordLength: 5})
	s := newTestSession(t, st, src, newFakeClock(jan15), nil)

	// The Dutch load snaps 5 to 4 but stalls before finishing.
	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background(), "nl", ModeDaily) }()
	<-src.entered

	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))
	close(src.release)
	require.NoError(t, <-done)

	assert.Equal(t, 5, s.Prefs().WordLength, "superseded load must not rewrite the preference")
	assert.Equal(t, 5, s.Snapshot().WordLen)
}

func TestGuessesFallbackToSolutions(t *testing.T) {
	src := testSource(`{"lengthsByLang":{"en":[5]}}`, map[string]string{
		"en_5_solutions.txt": "alpha\nbravo\n",
		// no guesses file
	})
	s := newTestSession(t, store.NewMemory(), src, newFakeClock(jan15), nil)
	require.NoError(t, s.Load(context.Background(), "en", ModeDaily))

	// The answer itself is always a valid guess.
	submitWord(s, "alpha")
	require.NotNil(t, s.Snapshot().Outcome)
	assert.Equal(t, "win", s.Snapshot().Outcome.Type)

	solutions, guesses := s.WordCounts()
	assert.Equal(t, solutions, guesses)
}
