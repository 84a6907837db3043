// Package verify is the scoring engine: it resolves a query against the
// primary catalog, fans out to the secondary sources and the artist profile
// analyzer, and aggregates every partial signal into one bounded confidence
// value with a human-readable verdict.
package verify

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"spotauth-srv/internal/database"
	"spotauth-srv/internal/matcher"
	"spotauth-srv/internal/models"
	"spotauth-srv/internal/patterns"
	"spotauth-srv/internal/profile"
	"spotauth-srv/internal/spotify"
)

var ErrMissingQuery = errors.New("query required")

const (
	validThreshold = 0.5

	legitimateMessage = "Track appears to be legitimate"
	suspiciousMessage = "This track shows patterns of AI generation"
	failedMessage     = "Verification failed"

	sourceShazam      = "shazam"
	sourceMusicBrainz = "musicbrainz"
)

// Catalog resolves queries and artist profiles against the primary service.
type Catalog interface {
	ResolveTrack(ctx context.Context, token, query string) (*spotify.ResolvedTrack, error)
	ArtistProfile(ctx context.Context, token, artistID string) (*models.ArtistProfile, error)
}

// SourceLookup is one secondary source. Implementations never return a Go
// error; failures arrive inside the SourceResult.
type SourceLookup interface {
	Lookup(ctx context.Context, title, artist string) models.SourceResult
}

type Engine struct {
	Catalog     Catalog
	Shazam      SourceLookup
	MusicBrainz SourceLookup

	Rules         *patterns.Table
	ProfileConfig profile.Config
	MatchPolicy   matcher.Policy

	// Optional lookup cache; nil disables caching.
	DB *sql.DB

	// Now anchors the release-burst window; defaults to time.Now.
	Now func() time.Time
}

// Verify runs the whole pipeline for one query. Only missing input and an
// unresolvable track abort it; every secondary failure degrades in place.
// A panic anywhere below is converted into a generic failed result.
func (e *Engine) Verify(ctx context.Context, query, token string) (result *models.VerificationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("verification panic: %v", r)
			result = &models.VerificationResult{
				Valid:      false,
				Confidence: 0,
				Message:    failedMessage,
			}
			err = nil
		}
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrMissingQuery
	}

	resolved, err := e.Catalog.ResolveTrack(ctx, token, query)
	if err != nil {
		return nil, err
	}

	searched := parseQuery(query)
	return e.aggregate(ctx, token, searched, resolved), nil
}

// parseQuery splits a free-text "Title - Artist" query; without a separator
// the whole query is the title and the artist stays empty.
func parseQuery(query string) models.TrackQuery {
	title, artist, ok := strings.Cut(query, " - ")
	if !ok {
		return models.TrackQuery{Title: strings.TrimSpace(query)}
	}
	return models.TrackQuery{
		Title:  strings.TrimSpace(title),
		Artist: strings.TrimSpace(artist),
	}
}

// aggregate fans out to both secondary sources and the artist profile fetch,
// joins, and folds everything into the weighted confidence.
func (e *Engine) aggregate(ctx context.Context, token string, searched models.TrackQuery, resolved *spotify.ResolvedTrack) *models.VerificationResult {
	title := resolved.Track.Title
	artist := resolved.Track.Artist

	var (
		wg        sync.WaitGroup
		shazamRes models.SourceResult
		mbRes     models.SourceResult
		artistRes models.ArtistAnalysis
	)
	artistRes.Patterns = []string{}

	wg.Add(2)
	go func() {
		defer wg.Done()
		shazamRes = e.cachedLookup(ctx, sourceShazam, e.Shazam, title, artist)
	}()
	go func() {
		defer wg.Done()
		mbRes = e.cachedLookup(ctx, sourceMusicBrainz, e.MusicBrainz, title, artist)
	}()

	if resolved.LeadArtistID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ap, err := e.Catalog.ArtistProfile(ctx, token, resolved.LeadArtistID)
			if err != nil {
				log.Printf("artist profile lookup degraded: %v", err)
				return
			}
			artistRes = profile.Analyze(*ap, e.ProfileConfig, e.now())
		}()
	}
	wg.Wait()

	if shazamRes.Error != "" {
		log.Printf("shazam lookup degraded: %s", shazamRes.Error)
	}
	if mbRes.Error != "" {
		log.Printf("musicbrainz lookup degraded: %s", mbRes.Error)
	}

	patternRes := e.Rules.Evaluate(title, artist)
	metadataScore := matcher.Score(searched.Title, searched.Artist, title, artist, e.MatchPolicy)

	suspicion := clamp01(patternRes.Score + artistRes.Score)
	dbConfidence := DatabaseConfidence(shazamRes.Found, mbRes.Found)
	confidence := OverallConfidence(suspicion, metadataScore, dbConfidence)

	valid := confidence > validThreshold
	message := suspiciousMessage
	if valid {
		message = legitimateMessage
	}

	track := resolved.Track
	return &models.VerificationResult{
		Valid:      valid,
		Confidence: confidence,
		Message:    message,
		Track:      &track,
		Details: &models.VerificationDetails{
			MetadataScore:      metadataScore,
			DatabaseConfidence: dbConfidence,
			AIPatternScore:     patternRes.Score,
			ArtistScore:        artistRes.Score,
			AIPatterns:         patternRes.Patterns,
			ArtistPatterns:     artistRes.Patterns,
			Sources: models.SourceFlags{
				Spotify:     true,
				Shazam:      shazamRes.Found,
				MusicBrainz: mbRes.Found,
			},
		},
	}
}

// cachedLookup consults the cache first and stores clean positive hits.
func (e *Engine) cachedLookup(ctx context.Context, source string, l SourceLookup, title, artist string) models.SourceResult {
	if res, ok := database.GetCachedLookup(e.DB, source, title, artist); ok {
		return res
	}
	res := l.Lookup(ctx, title, artist)
	if err := database.CacheLookup(e.DB, source, title, artist, res); err != nil {
		log.Printf("cache write failed for %s: %v", source, err)
	}
	return res
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
