package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SnapshotRepository handles ranked track and artist snapshot rows.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// Replace swaps a user's snapshot wholesale: all prior rows in both
// tables are deleted and the new ranked sets inserted in a single
// transaction, so readers never observe a partial snapshot.
func (r *SnapshotRepository) Replace(ctx context.Context, userID, capturedOn string, tracks []TopTrack, artists []TopArtist) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM top_tracks WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting old tracks: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM artist_top WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting old artists: %w", err)
	}

	if len(tracks) > 0 {
		query := `
			INSERT INTO top_tracks (user_id, captured_on, track_id, track_name, artists, rank, time_range, image_url, linkto, release)
			SELECT $1, $2, * FROM unnest($3::text[], $4::text[], $5::text[], $6::int[], $7::text[], $8::text[], $9::text[], $10::text[])
		`
		ids := make([]string, len(tracks))
		names := make([]string, len(tracks))
		artistNames := make([]string, len(tracks))
		ranks := make([]int, len(tracks))
		timeRanges := make([]string, len(tracks))
		imageURLs := make([]string, len(tracks))
		links := make([]string, len(tracks))
		releases := make([]string, len(tracks))
		for i, t := range tracks {
			ids[i] = t.TrackID
			names[i] = t.Name
			artistNames[i] = t.Artists
			ranks[i] = t.Rank
			timeRanges[i] = t.TimeRange
			imageURLs[i] = t.ImageURL
			links[i] = t.LinkTo
			releases[i] = t.Release
		}
		_, err := tx.Exec(ctx, query, userID, capturedOn,
			ids, names, artistNames, ranks, timeRanges, imageURLs, links, releases)
		if err != nil {
			return fmt.Errorf("inserting tracks: %w", err)
		}
	}

	if len(artists) > 0 {
		query := `
			INSERT INTO artist_top (user_id, captured_on, artist_name, rank, image_url, linkto)
			SELECT $1, $2, * FROM unnest($3::text[], $4::int[], $5::text[], $6::text[])
		`
		names := make([]string, len(artists))
		ranks := make([]int, len(artists))
		imageURLs := make([]string, len(artists))
		links := make([]string, len(artists))
		for i, a := range artists {
			names[i] = a.Name
			ranks[i] = a.Rank
			imageURLs[i] = a.ImageURL
			links[i] = a.LinkTo
		}
		_, err := tx.Exec(ctx, query, userID, capturedOn, names, ranks, imageURLs, links)
		if err != nil {
			return fmt.Errorf("inserting artists: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// TopTracks retrieves a user's stored track snapshot, best ranked
// first.
func (r *SnapshotRepository) TopTracks(ctx context.Context, userID string) ([]TopTrack, error) {
	query := `
		SELECT user_id, captured_on, track_id, track_name, artists, rank, time_range, image_url, linkto, release
		FROM top_tracks
		WHERE user_id = $1
		ORDER BY captured_on DESC, rank ASC
		LIMIT 40
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying top tracks: %w", err)
	}
	defer rows.Close()

	var tracks []TopTrack
	for rows.Next() {
		var t TopTrack
		if err := rows.Scan(
			&t.UserID,
			&t.CapturedOn,
			&t.TrackID,
			&t.Name,
			&t.Artists,
			&t.Rank,
			&t.TimeRange,
			&t.ImageURL,
			&t.LinkTo,
			&t.Release,
		); err != nil {
			return nil, fmt.Errorf("scanning track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// TopArtists retrieves a user's stored artist snapshot, best ranked
// first.
func (r *SnapshotRepository) TopArtists(ctx context.Context, userID string) ([]TopArtist, error) {
	query := `
		SELECT user_id, captured_on, artist_name, rank, image_url, linkto
		FROM artist_top
		WHERE user_id = $1
		ORDER BY captured_on DESC, rank ASC
		LIMIT 40
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying top artists: %w", err)
	}
	defer rows.Close()

	var artists []TopArtist
	for rows.Next() {
		var a TopArtist
		if err := rows.Scan(
			&a.UserID,
			&a.CapturedOn,
			&a.Name,
			&a.Rank,
			&a.ImageURL,
			&a.LinkTo,
		); err != nil {
			return nil, fmt.Errorf("scanning artist: %w", err)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}
