// Package spotify wraps the primary catalog service: it resolves a free-text
// query to exactly one candidate track and fetches the lead artist's profile
// for suspicion analysis. The bearer credential is caller-supplied per
// request, never held by the server.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	spotifyapi "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"spotauth-srv/internal/models"
)

var (
	ErrMissingToken  = errors.New("must authenticate first")
	ErrTrackNotFound = errors.New("track not found")
)

const albumPageLimit = 20

// client is the slice of the Web API the adapter needs; satisfied by
// *spotifyapi.Client and by fakes in tests.
type client interface {
	Search(ctx context.Context, query string, t spotifyapi.SearchType, opts ...spotifyapi.RequestOption) (*spotifyapi.SearchResult, error)
	GetArtist(ctx context.Context, id spotifyapi.ID) (*spotifyapi.FullArtist, error)
	GetArtistAlbums(ctx context.Context, artistID spotifyapi.ID, ts []spotifyapi.AlbumType, opts ...spotifyapi.RequestOption) (*spotifyapi.SimpleAlbumPage, error)
}

// ResolvedTrack is the outcome of a primary search.
type ResolvedTrack struct {
	Track        models.TrackInfo
	LeadArtistID string
}

// Adapter builds a short-lived API client per request from the caller's
// bearer token.
type Adapter struct {
	newClient func(ctx context.Context, token string) client
}

func NewAdapter() *Adapter {
	return &Adapter{newClient: newAPIClient}
}

func newAPIClient(ctx context.Context, token string) client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(ctx, src)
	httpClient.Timeout = 15 * time.Second
	return spotifyapi.New(httpClient)
}

// ResolveTrack searches the catalog for the query and returns the single
// best candidate. Zero results is the terminal not-found condition.
func (a *Adapter) ResolveTrack(ctx context.Context, token, query string) (*ResolvedTrack, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	c := a.newClient(ctx, token)
	res, err := c.Search(ctx, query, spotifyapi.SearchTypeTrack, spotifyapi.Limit(1))
	if err != nil {
		if isUnauthorized(err) {
			return nil, ErrMissingToken
		}
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	if res.Tracks == nil || len(res.Tracks.Tracks) == 0 {
		return nil, ErrTrackNotFound
	}

	t := res.Tracks.Tracks[0]
	rt := &ResolvedTrack{
		Track: models.TrackInfo{
			Title:      t.Name,
			PreviewURL: t.PreviewURL,
			Duration:   models.FormatDuration(int(t.TimeDuration().Milliseconds())),
		},
	}
	if len(t.Artists) > 0 {
		rt.Track.Artist = t.Artists[0].Name
		rt.LeadArtistID = string(t.Artists[0].ID)
	}
	for _, img := range t.Album.Images {
		rt.Track.AlbumArt = append(rt.Track.AlbumArt, img.URL)
	}
	return rt, nil
}

// ArtistProfile fetches the artist plus a page of their releases. Failures
// here degrade the profile analysis, never the whole verification; the
// caller decides that.
func (a *Adapter) ArtistProfile(ctx context.Context, token, artistID string) (*models.ArtistProfile, error) {
	if token == "" || artistID == "" {
		return nil, ErrMissingToken
	}

	c := a.newClient(ctx, token)
	artist, err := c.GetArtist(ctx, spotifyapi.ID(artistID))
	if err != nil {
		return nil, fmt.Errorf("get artist: %w", err)
	}

	followers := int(artist.Followers.Count)
	popularity := int(artist.Popularity)
	p := &models.ArtistProfile{
		Name:         artist.Name,
		Genres:       artist.Genres,
		Followers:    &followers,
		Popularity:   &popularity,
		ExternalURLs: artist.ExternalURLs,
	}

	albums, err := c.GetArtistAlbums(ctx, spotifyapi.ID(artistID),
		[]spotifyapi.AlbumType{spotifyapi.AlbumTypeAlbum, spotifyapi.AlbumTypeSingle},
		spotifyapi.Limit(albumPageLimit))
	if err != nil {
		// Release cadence is optional; report what we have.
		return p, nil
	}
	for _, al := range albums.Albums {
		p.Albums = append(p.Albums, models.Release{
			Name:        al.Name,
			ReleaseDate: al.ReleaseDateTime(),
		})
	}
	return p, nil
}

func isUnauthorized(err error) bool {
	var spErr spotifyapi.Error
	if errors.As(err, &spErr) {
		return spErr.Status == http.StatusUnauthorized
	}
	return false
}
