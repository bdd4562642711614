// Package spotify wraps the Spotify Web API client with the top-item
// and playback operations this service needs.
package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
)

// topLimit bounds both top-item lists; the upstream may return fewer.
const topLimit = 40

// TimeRange is the fixed ranking window for top items.
const TimeRange = "short_term"

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a new Spotify client wrapper. The underlying client
// should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// TopTracks fetches the user's top tracks for the short-term window,
// ranked in upstream order.
func (c *Client) TopTracks(ctx context.Context) ([]Track, error) {
	page, err := c.api.CurrentUsersTopTracks(ctx,
		spotify.Limit(topLimit),
		spotify.Timerange(spotify.ShortTermRange),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching top tracks: %w", err)
	}

	tracks := make([]Track, 0, len(page.Tracks))
	for i, t := range page.Tracks {
		tracks = append(tracks, convertTrack(i+1, t))
	}
	return tracks, nil
}

// TopArtists fetches the user's top artists for the short-term window,
// ranked in upstream order.
func (c *Client) TopArtists(ctx context.Context) ([]Artist, error) {
	page, err := c.api.CurrentUsersTopArtists(ctx,
		spotify.Limit(topLimit),
		spotify.Timerange(spotify.ShortTermRange),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching top artists: %w", err)
	}

	artists := make([]Artist, 0, len(page.Artists))
	for i, a := range page.Artists {
		artists = append(artists, convertArtist(i+1, a))
	}
	return artists, nil
}

// convertTrack maps an upstream track to a ranked display row.
func convertTrack(rank int, t spotify.FullTrack) Track {
	return Track{
		ID:       t.ID.String(),
		Name:     displayName(t.Name, t.Explicit),
		Artists:  joinArtists(t.Artists),
		Rank:     rank,
		ImageURL: firstImage(t.Album.Images),
		LinkTo:   t.ExternalURLs["spotify"],
		Release:  t.Album.ReleaseDate,
	}
}

// convertArtist maps an upstream artist to a ranked display row.
func convertArtist(rank int, a spotify.FullArtist) Artist {
	return Artist{
		Name:     a.Name,
		Rank:     rank,
		ImageURL: firstImage(a.Images),
		LinkTo:   a.ExternalURLs["spotify"],
	}
}

// displayName suffixes explicit tracks.
func displayName(name string, explicit bool) string {
	if explicit {
		return name + " (Explicit)"
	}
	return name
}

// joinArtists joins artist names preserving upstream order.
func joinArtists(artists []spotify.SimpleArtist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// firstImage returns the first image URL, or empty when there is none.
func firstImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
