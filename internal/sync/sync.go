// Package sync replaces a user's top-tracks/top-artists snapshot with
// fresh data from the Spotify API.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/openstats/openstats/internal/db"
	"github.com/openstats/openstats/internal/spotify"
)

// Fetcher is the slice of the Spotify client the sync engine needs.
type Fetcher interface {
	TopTracks(ctx context.Context) ([]spotify.Track, error)
	TopArtists(ctx context.Context) ([]spotify.Artist, error)
}

// SnapshotStore persists a complete snapshot atomically.
type SnapshotStore interface {
	Replace(ctx context.Context, userID, capturedOn string, tracks []db.TopTrack, artists []db.TopArtist) error
}

// Service syncs listening statistics into the snapshot store.
type Service struct {
	snapshots SnapshotStore
	logger    *log.Logger
	now       func() time.Time
}

// New creates a sync service.
func New(snapshots SnapshotStore, logger *log.Logger) *Service {
	return &Service{
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
	}
}

// Result contains the outcome of a sync.
type Result struct {
	TrackCount  int
	ArtistCount int
	CapturedOn  string
}

// Sync pulls the user's current top tracks and artists and replaces
// the stored snapshot wholesale, tagged with today's date. Both fetches
// happen before any write, so a fetch failure leaves the previous
// snapshot fully intact; the replace itself is one transaction.
func (s *Service) Sync(ctx context.Context, fetcher Fetcher, userID string) (*Result, error) {
	tracks, err := fetcher.TopTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching top tracks: %w", err)
	}
	artists, err := fetcher.TopArtists(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching top artists: %w", err)
	}

	capturedOn := s.now().Format("2006-01-02")

	trackRows := make([]db.TopTrack, len(tracks))
	for i, t := range tracks {
		trackRows[i] = db.TopTrack{
			UserID:     userID,
			CapturedOn: capturedOn,
			TrackID:    t.ID,
			Name:       t.Name,
			Artists:    t.Artists,
			Rank:       t.Rank,
			TimeRange:  spotify.TimeRange,
			ImageURL:   t.ImageURL,
			LinkTo:     t.LinkTo,
			Release:    t.Release,
		}
	}

	artistRows := make([]db.TopArtist, len(artists))
	for i, a := range artists {
		artistRows[i] = db.TopArtist{
			UserID:     userID,
			CapturedOn: capturedOn,
			Name:       a.Name,
			Rank:       a.Rank,
			ImageURL:   a.ImageURL,
			LinkTo:     a.LinkTo,
		}
	}

	if err := s.snapshots.Replace(ctx, userID, capturedOn, trackRows, artistRows); err != nil {
		return nil, fmt.Errorf("replacing snapshot: %w", err)
	}

	s.logger.Info("snapshot synced",
		"user", userID,
		"tracks", len(trackRows),
		"artists", len(artistRows),
		"date", capturedOn,
	)

	return &Result{
		TrackCount:  len(trackRows),
		ArtistCount: len(artistRows),
		CapturedOn:  capturedOn,
	}, nil
}
