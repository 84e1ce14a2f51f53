// internal/store/sqlite.go
//
// SQLite-backed implementation of the Store interface.
// Each server-side owner (authenticated user or anonymous cookie id) gets an
// isolated key space in a single kv table:
//
//   kv(owner TEXT, key TEXT, value TEXT, updated_at TEXT, PRIMARY KEY(owner, key))
//
// The table is created by the sql/ migrations. All errors are logged and
// swallowed per the store's fail-soft contract; the in-memory session keeps
// working for the rest of the process lifetime even when durability is lost.

package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// sqliteStore binds a shared *sql.DB to one owner's key space.
type sqliteStore struct {
	db    *sql.DB
	owner string
}

// NewSQLite returns a Store reading and writing the kv table on behalf of
// owner. The value is cheap; handlers construct one per request.
func NewSQLite(db *sql.DB, owner string) Store {
	return &sqliteStore{db: db, owner: owner}
}

func (s *sqliteStore) Get(key string, out any) bool {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE owner=? AND key=?`, s.owner, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("kv read")
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("corrupt kv entry, treating as absent")
		return false
	}
	return true
}

func (s *sqliteStore) Set(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("marshal kv value")
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(`INSERT INTO kv (owner, key, value, updated_at) VALUES (?,?,?,?)
	                    ON CONFLICT(owner, key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		s.owner, key, string(raw), now)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("kv write")
	}
}

func (s *sqliteStore) Remove(key string) {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE owner=? AND key=?`, s.owner, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("kv delete")
	}
}

func (s *sqliteStore) Clear() {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE owner=?`, s.owner); err != nil {
		log.Warn().Err(err).Msg("kv clear")
	}
}

// ClaimOwner transfers an anonymous owner's records to a user account after
// signup/login. Keys the user already has win conflicts.
func ClaimOwner(db *sql.DB, fromOwner, toOwner string) {
	if fromOwner == "" || toOwner == "" || fromOwner == toOwner {
		return
	}
	if _, err := db.Exec(`UPDATE OR IGNORE kv SET owner=? WHERE owner=?`, toOwner, fromOwner); err != nil {
		log.Warn().Err(err).Msg("claim anon state")
		return
	}
	// Anything left behind collided with the user's own records.
	if _, err := db.Exec(`DELETE FROM kv WHERE owner=?`, fromOwner); err != nil {
		log.Warn().Err(err).Msg("drop claimed leftovers")
	}
}
