// Package shazam wraps the commercial recognition service's text search.
// Lookups never return a Go error: every failure, including a missing API
// key, degrades into a SourceResult with Error set so the aggregator keeps
// going on the other sources.
package shazam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spotauth-srv/internal/matcher"
	"spotauth-srv/internal/models"
)

const (
	DefaultBaseURL = "https://shazam.p.rapidapi.com"
	rapidAPIHost   = "shazam.p.rapidapi.com"

	maxHits = 5

	foundConfidence   = 0.8
	unfoundConfidence = 0.2
)

type Client struct {
	HTTPClient *http.Client
	APIKey     string
	BaseURL    string
}

func NewClient(apiKey string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		APIKey:     apiKey,
		BaseURL:    DefaultBaseURL,
	}
}

type searchResponse struct {
	Tracks struct {
		Hits []struct {
			Track struct {
				Title    string `json:"title"`
				Subtitle string `json:"subtitle"`
			} `json:"track"`
		} `json:"hits"`
	} `json:"tracks"`
}

// Lookup searches by "{title} {artist}" and reports the source as found when
// any of the top hits has a title and subtitle that mutually
// normalized-substring-match the searched title and artist.
func (c *Client) Lookup(ctx context.Context, title, artist string) models.SourceResult {
	if c.APIKey == "" {
		return models.SourceResult{Error: "Shazam API key not configured"}
	}

	term := strings.TrimSpace(title + " " + artist)
	q := url.Values{
		"term":  {term},
		"limit": {strconv.Itoa(maxHits)},
	}
	reqURL := c.BaseURL + "/search?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.SourceResult{Error: "Shazam request: " + err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-RapidAPI-Key", c.APIKey)
	req.Header.Set("X-RapidAPI-Host", rapidAPIHost)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return models.SourceResult{Error: "Shazam request: " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.SourceResult{Error: fmt.Sprintf("Shazam API error: status %d", resp.StatusCode)}
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return models.SourceResult{Error: "Shazam decode: " + err.Error()}
	}

	hits := sr.Tracks.Hits
	if len(hits) > maxHits {
		hits = hits[:maxHits]
	}

	found := false
	for _, h := range hits {
		if mutualContains(h.Track.Title, title) && mutualContains(h.Track.Subtitle, artist) {
			found = true
			break
		}
	}

	confidence := unfoundConfidence
	if found {
		confidence = foundConfidence
	}
	return models.SourceResult{
		Found:        found,
		Confidence:   confidence,
		TotalResults: len(sr.Tracks.Hits),
	}
}

// mutualContains normalizes both strings and checks containment in either
// direction.
func mutualContains(a, b string) bool {
	na, nb := matcher.Normalize(a), matcher.Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}
