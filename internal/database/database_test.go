package database

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"spotauth-srv/internal/models"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := InitDatabase(db); err != nil {
		t.Fatalf("InitDatabase: %v", err)
	}
	return db
}

func TestCacheRoundTrip(t *testing.T) {
	db := setupDB(t)

	hit := models.SourceResult{Found: true, Confidence: 0.7, TotalResults: 12}
	if err := CacheLookup(db, "musicbrainz", "Shape of You", "Ed Sheeran", hit); err != nil {
		t.Fatalf("CacheLookup: %v", err)
	}

	got, ok := GetCachedLookup(db, "musicbrainz", "Shape of You", "Ed Sheeran")
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got != hit {
		t.Errorf("cached = %+v, want %+v", got, hit)
	}
}

func TestCacheKeyIsCaseInsensitive(t *testing.T) {
	db := setupDB(t)

	hit := models.SourceResult{Found: true, Confidence: 0.8, TotalResults: 3}
	if err := CacheLookup(db, "shazam", "Shape Of You", "ED SHEERAN", hit); err != nil {
		t.Fatalf("CacheLookup: %v", err)
	}

	if _, ok := GetCachedLookup(db, "shazam", "shape of you", "ed sheeran"); !ok {
		t.Error("expected a cache hit regardless of case")
	}
}

func TestMissesAndErrorsAreNotCached(t *testing.T) {
	db := setupDB(t)

	miss := models.SourceResult{Found: false, Confidence: 0.2, TotalResults: 0}
	if err := CacheLookup(db, "shazam", "Unknown Song", "Nobody", miss); err != nil {
		t.Fatalf("CacheLookup: %v", err)
	}
	degraded := models.SourceResult{Found: true, Confidence: 0.7, TotalResults: 1, Error: "timeout"}
	if err := CacheLookup(db, "shazam", "Another Song", "Nobody", degraded); err != nil {
		t.Fatalf("CacheLookup: %v", err)
	}

	if _, ok := GetCachedLookup(db, "shazam", "Unknown Song", "Nobody"); ok {
		t.Error("misses must not be cached")
	}
	if _, ok := GetCachedLookup(db, "shazam", "Another Song", "Nobody"); ok {
		t.Error("degraded results must not be cached")
	}
}

func TestUpsertRefreshesExistingRow(t *testing.T) {
	db := setupDB(t)

	first := models.SourceResult{Found: true, Confidence: 0.7, TotalResults: 5}
	second := models.SourceResult{Found: true, Confidence: 0.7, TotalResults: 9}
	if err := CacheLookup(db, "musicbrainz", "Song", "Artist", first); err != nil {
		t.Fatal(err)
	}
	if err := CacheLookup(db, "musicbrainz", "Song", "Artist", second); err != nil {
		t.Fatal(err)
	}

	got, ok := GetCachedLookup(db, "musicbrainz", "Song", "Artist")
	if !ok || got.TotalResults != 9 {
		t.Errorf("cached = %+v, want refreshed totalResults 9", got)
	}
}

func TestNilDBIsANoOp(t *testing.T) {
	if err := CacheLookup(nil, "shazam", "Song", "Artist", models.SourceResult{Found: true}); err != nil {
		t.Errorf("CacheLookup(nil) = %v, want nil", err)
	}
	if _, ok := GetCachedLookup(nil, "shazam", "Song", "Artist"); ok {
		t.Error("GetCachedLookup(nil) = hit, want miss")
	}
}
