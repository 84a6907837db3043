package models

import (
	"fmt"
	"time"
)

// TrackQuery is the pair of fields being verified. Artist may be empty when
// the caller only supplies a title; the metadata match score absorbs the
// penalty.
type TrackQuery struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// TrackInfo is the resolved track as rendered back to the caller.
type TrackInfo struct {
	Title      string   `json:"title"`
	Artist     string   `json:"artist"`
	PreviewURL string   `json:"previewUrl,omitempty"`
	AlbumArt   []string `json:"albumArt,omitempty"`
	Duration   string   `json:"duration"`
}

// SourceResult is the normalized outcome of one external source lookup.
// Found=false with Error set means the lookup degraded; verification
// continues without that source.
type SourceResult struct {
	Found        bool    `json:"found"`
	Confidence   float64 `json:"confidence"`
	TotalResults int     `json:"totalResults"`
	Error        string  `json:"error,omitempty"`
}

type PatternAnalysis struct {
	Score    float64  `json:"score"`
	Patterns []string `json:"patterns"`
}

type ArtistAnalysis struct {
	Score    float64  `json:"score"`
	Patterns []string `json:"patterns"`
}

// Release is a single entry from an artist's album list.
type Release struct {
	Name        string
	ReleaseDate time.Time
}

// ArtistProfile is the read-only artist shape consumed by the profile
// analyzer. Nil pointers, maps, and slices mean the field was absent from
// the upstream response.
type ArtistProfile struct {
	Name         string
	Genres       []string
	Followers    *int
	Popularity   *int
	ExternalURLs map[string]string
	Albums       []Release
}

type SourceFlags struct {
	Spotify     bool `json:"spotify"`
	Shazam      bool `json:"shazam"`
	MusicBrainz bool `json:"musicBrainz"`
}

type VerificationDetails struct {
	MetadataScore      float64     `json:"metadataScore"`
	DatabaseConfidence float64     `json:"databaseConfidence"`
	AIPatternScore     float64     `json:"aiPatternScore"`
	ArtistScore        float64     `json:"artistScore"`
	AIPatterns         []string    `json:"aiPatterns"`
	ArtistPatterns     []string    `json:"artistPatterns"`
	Sources            SourceFlags `json:"sources"`
}

// VerificationResult is immutable once built; one instance per request.
type VerificationResult struct {
	Valid      bool                 `json:"valid"`
	Confidence float64              `json:"confidence"`
	Message    string               `json:"message"`
	Track      *TrackInfo           `json:"track,omitempty"`
	Details    *VerificationDetails `json:"details,omitempty"`
}

// FormatDuration renders a millisecond duration as M:SS with zero-padded
// seconds, carrying a rounded-up 60 into the minute.
func FormatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	minutes := ms / 60000
	seconds := (ms%60000 + 500) / 1000
	if seconds == 60 {
		minutes++
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
