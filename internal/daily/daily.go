package daily

import "time"

// Key returns the local calendar date as YYYY-MM-DD. Daily sessions are
// scoped by this key together with language and length.
func Key(t time.Time) string {
	return t.Format("2006-01-02")
}

// Seed folds a date key into a 32-bit accumulator:
// seed = seed*31 + charCode for each character, starting at 0.
// Two runs over the same key always produce the same seed.
func Seed(dateKey string) uint32 {
	var seed uint32
	for _, c := range dateKey {
		seed = seed*31 + uint32(c)
	}
	return seed
}

// WordIndex returns the deterministic index of the day's answer within a
// solutions list of the given size.
func WordIndex(dateKey string, size int) int {
	if size <= 0 {
		return 0
	}
	return int(Seed(dateKey) % uint32(size))
}
