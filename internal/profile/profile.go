// Package profile inspects an artist's catalog footprint for signals that
// the act was fabricated: no listener history, implausible
// popularity/follower ratios, no off-platform presence, and bursts of
// releases inside a short window.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"spotauth-srv/internal/models"
)

// Config holds the thresholds and weights for every profile rule so the
// table can be swapped at startup without code changes.
type Config struct {
	HistoryFollowerMax   int     `json:"historyFollowerMax"`
	HistoryPopularityMax int     `json:"historyPopularityMax"`
	HistoryWeight        float64 `json:"historyWeight"`

	RatioFollowerMax int     `json:"ratioFollowerMax"`
	RatioWeight      float64 `json:"ratioWeight"`

	SocialURLMin int     `json:"socialUrlMin"`
	SocialWeight float64 `json:"socialWeight"`

	BurstWindowDays int     `json:"burstWindowDays"`
	BurstReleaseMax int     `json:"burstReleaseMax"`
	BurstWeight     float64 `json:"burstWeight"`
}

func DefaultConfig() Config {
	return Config{
		HistoryFollowerMax:   100,
		HistoryPopularityMax: 20,
		HistoryWeight:        0.3,
		RatioFollowerMax:     1000,
		RatioWeight:          0.4,
		SocialURLMin:         2,
		SocialWeight:         0.2,
		BurstWindowDays:      30,
		BurstReleaseMax:      3,
		BurstWeight:          0.5,
	}
}

// LoadConfig reads a rule config from disk.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read profile rules: %w", err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse profile rules: %w", err)
	}
	return cfg, nil
}

// Analyze accumulates the suspicion score for one artist, capped at 1.0.
// Every rule is independent; all applicable weights add. now anchors the
// release-burst window so tests can pin it.
func Analyze(artist models.ArtistProfile, cfg Config, now time.Time) models.ArtistAnalysis {
	score := 0.0
	reasons := []string{}

	followers := 0
	if artist.Followers != nil {
		followers = *artist.Followers
	}

	if followers < cfg.HistoryFollowerMax &&
		(artist.Popularity == nil || *artist.Popularity < cfg.HistoryPopularityMax) {
		score += cfg.HistoryWeight
		reasons = append(reasons, "Limited artist history")
	}

	if artist.Followers != nil && artist.Popularity != nil && *artist.Popularity > 0 &&
		float64(*artist.Followers)/float64(*artist.Popularity) < 1 &&
		*artist.Followers < cfg.RatioFollowerMax {
		score += cfg.RatioWeight
		reasons = append(reasons, "Unusual popularity/follower ratio")
	}

	if len(artist.ExternalURLs) < cfg.SocialURLMin {
		score += cfg.SocialWeight
		reasons = append(reasons, "Limited social media presence")
	}

	if artist.Albums != nil && recentReleases(artist.Albums, cfg.BurstWindowDays, now) > cfg.BurstReleaseMax {
		score += cfg.BurstWeight
		reasons = append(reasons, "Unusual burst of releases")
	}

	if score > 1.0 {
		score = 1.0
	}
	return models.ArtistAnalysis{Score: score, Patterns: reasons}
}

// recentReleases counts releases inside the trailing window, inclusive.
func recentReleases(albums []models.Release, windowDays int, now time.Time) int {
	sorted := make([]models.Release, len(albums))
	copy(sorted, albums)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ReleaseDate.After(sorted[j].ReleaseDate)
	})

	cutoff := now.AddDate(0, 0, -windowDays)
	count := 0
	for _, r := range sorted {
		if r.ReleaseDate.Before(cutoff) {
			break
		}
		if !r.ReleaseDate.After(now) {
			count++
		}
	}
	return count
}
