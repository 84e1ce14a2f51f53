// internal/store/store.go
//
// Durable key-value persistence for preferences, aggregate stats and game
// progress. One JSON-serializable value per logical key. All operations are
// fail-soft: a missing or corrupt entry yields the caller's zero value, and
// write failures are logged and swallowed. Losing durability must never
// crash a running session.

package store

import "fmt"

// Store is the persistence interface injected into game sessions.
// Implementations may be backed by memory (tests), SQLite, or any other
// durable key-value medium.
type Store interface {
	// Get unmarshals the value under key into out and reports whether a
	// usable value was found. Corrupt entries read as absent.
	Get(key string, out any) bool

	// Set marshals v and stores it under key, replacing any prior value.
	Set(key string, v any)

	// Remove deletes the value under key, if any.
	Remove(key string)

	// Clear deletes every value held by this store.
	Clear()
}

// Logical keys. Daily progress is scoped by date, language and length;
// freeplay progress by language and length only.

const (
	PrefsKey = "prefs"
	StatsKey = "stats"
)

// DailyKey returns the progress key for one daily session.
func DailyKey(dateKey, locale string, length int) string {
	return fmt.Sprintf("daily:%s:%s:%d", dateKey, locale, length)
}

// FreeplayKey returns the progress key for one freeplay session.
func FreeplayKey(locale string, length int) string {
	return fmt.Sprintf("freeplay:%s:%d", locale, length)
}
