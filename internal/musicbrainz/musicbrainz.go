// Package musicbrainz wraps the open recording database. MusicBrainz asks
// clients to stay under 1 request/second, so every lookup goes through a
// process-wide token bucket shared across all concurrent verifications; the
// limiter is injected at construction so tests can substitute it.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"spotauth-srv/internal/models"
)

const (
	DefaultBaseURL = "https://musicbrainz.org/ws/2"

	// MusicBrainz requires a descriptive User-Agent.
	userAgent = "spotauth-srv/1.0 (track metadata verification)"

	searchLimit = 10

	foundConfidence   = 0.7
	unfoundConfidence = 0.2
)

// NewLimiter returns the 1 req/s bucket the adapter is meant to share.
func NewLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Second), 1)
}

type Client struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	BaseURL    string

	// Optional credential pair; attached when both are set.
	Username string
	Password string
}

func NewClient(limiter *rate.Limiter) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Limiter:    limiter,
		BaseURL:    DefaultBaseURL,
	}
}

type searchResponse struct {
	Count      int `json:"count"`
	Recordings []struct {
		Title        string `json:"title"`
		Score        int    `json:"score"`
		ArtistCredit []struct {
			Name string `json:"name"`
		} `json:"artist-credit"`
	} `json:"recordings"`
}

// Lookup runs a structured field search and reports the source as found when
// any recording's title contains the searched title and any artist credit
// contains the searched artist, case-insensitively.
func (c *Client) Lookup(ctx context.Context, title, artist string) models.SourceResult {
	if err := c.Limiter.Wait(ctx); err != nil {
		return models.SourceResult{Error: "MusicBrainz rate limiter: " + err.Error()}
	}

	query := fmt.Sprintf("recording:%q AND artist:%q", title, artist)
	q := url.Values{
		"query": {query},
		"fmt":   {"json"},
		"limit": {fmt.Sprintf("%d", searchLimit)},
	}
	reqURL := c.BaseURL + "/recording?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.SourceResult{Error: "MusicBrainz request: " + err.Error()}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.Username != "" && c.Password != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return models.SourceResult{Error: "MusicBrainz request: " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.SourceResult{Error: fmt.Sprintf("MusicBrainz API error: status %d", resp.StatusCode)}
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return models.SourceResult{Error: "MusicBrainz decode: " + err.Error()}
	}

	titleLower := strings.ToLower(title)
	artistLower := strings.ToLower(artist)
	found := false
	for _, rec := range sr.Recordings {
		if !strings.Contains(strings.ToLower(rec.Title), titleLower) {
			continue
		}
		for _, credit := range rec.ArtistCredit {
			if strings.Contains(strings.ToLower(credit.Name), artistLower) {
				found = true
				break
			}
		}
		if found {
			break
		}
	}

	total := sr.Count
	if total == 0 {
		total = len(sr.Recordings)
	}
	confidence := unfoundConfidence
	if found {
		confidence = foundConfidence
	}
	return models.SourceResult{
		Found:        found,
		Confidence:   confidence,
		TotalResults: total,
	}
}
