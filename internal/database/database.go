// Package database caches positive secondary-source lookups so repeat
// verifications of the same track skip upstream calls. Verification results
// themselves are never stored.
package database

import (
	"database/sql"
	_ "embed"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"spotauth-srv/internal/models"
)

//go:embed schema.sql
var schema string

// InitDatabase runs the embedded schema and sets performance PRAGMAs.
func InitDatabase(db *sql.DB) error {
	// WAL keeps concurrent verification requests from blocking on cache writes.
	_, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA cache_size=-2000;")
	if err != nil {
		return err
	}
	_, err = db.Exec(schema)
	return err
}

// CacheLookup stores a lookup outcome. Only clean positive hits are kept;
// errors and misses always go back upstream next time.
func CacheLookup(db *sql.DB, source, title, artist string, res models.SourceResult) error {
	if db == nil || !res.Found || res.Error != "" {
		return nil
	}

	query := `
	INSERT INTO source_lookups (source, title, artist, found, confidence, total_results, last_updated)
	VALUES (?, ?, ?, 1, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(source, title, artist) DO UPDATE SET
		confidence = excluded.confidence,
		total_results = excluded.total_results,
		last_updated = CURRENT_TIMESTAMP;`

	_, err := db.Exec(query, source, cacheKey(title), cacheKey(artist), res.Confidence, res.TotalResults)
	return err
}

// GetCachedLookup returns a previously stored hit for (source, title, artist).
func GetCachedLookup(db *sql.DB, source, title, artist string) (models.SourceResult, bool) {
	if db == nil {
		return models.SourceResult{}, false
	}

	var res models.SourceResult
	err := db.QueryRow(
		"SELECT found, confidence, total_results FROM source_lookups WHERE source = ? AND title = ? AND artist = ?",
		source, cacheKey(title), cacheKey(artist),
	).Scan(&res.Found, &res.Confidence, &res.TotalResults)
	if err != nil {
		return models.SourceResult{}, false
	}
	return res, true
}

func cacheKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
