package spotify

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotPlaying is returned when a playback operation needs an active
// item and none exists. Distinct from an authentication failure: the
// client was valid, the player is just idle.
var ErrNotPlaying = errors.New("nothing playing")

// SeekRequest positions the player either absolutely or relative to
// the current track's duration. Percentage wins when both are set.
type SeekRequest struct {
	PositionMs *int
	Percentage *float64
}

// Play resumes playback.
func (c *Client) Play(ctx context.Context) error {
	return c.api.Play(ctx)
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	return c.api.Pause(ctx)
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context) error {
	return c.api.Next(ctx)
}

// Previous skips to the previous track.
func (c *Client) Previous(ctx context.Context) error {
	return c.api.Previous(ctx)
}

// SetVolume sets the player volume (0-100).
func (c *Client) SetVolume(ctx context.Context, percent int) error {
	return c.api.Volume(ctx, percent)
}

// Seek moves the playhead. Requires an active playing item so a
// percentage can be resolved against the track duration.
func (c *Client) Seek(ctx context.Context, req SeekRequest) error {
	state, err := c.api.PlayerState(ctx)
	if err != nil {
		return fmt.Errorf("reading player state: %w", err)
	}
	if state == nil || state.Item == nil || !state.Playing {
		return ErrNotPlaying
	}

	var position int
	switch {
	case req.Percentage != nil:
		position = positionForPercent(*req.Percentage, int(state.Item.Duration))
	case req.PositionMs != nil:
		position = *req.PositionMs
	}
	return c.api.Seek(ctx, position)
}

// positionForPercent converts a percentage of the track duration to a
// millisecond offset. The percentage is clamped to [0, 100] first and
// the product truncated.
func positionForPercent(percent float64, durationMs int) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return int(float64(durationMs) * (percent / 100))
}

// CurrentState reads the player state and derives the progress
// percentage. Returns ErrNotPlaying when no item is active.
func (c *Client) CurrentState(ctx context.Context) (*PlaybackState, error) {
	state, err := c.api.PlayerState(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading player state: %w", err)
	}
	if state == nil || state.Item == nil {
		return nil, ErrNotPlaying
	}

	item := state.Item
	artists := make([]string, len(item.Artists))
	for i, a := range item.Artists {
		artists[i] = a.Name
	}

	duration := int(item.Duration)
	progress := int(state.Progress)
	var percentage float64
	if duration > 0 {
		percentage = float64(progress) / float64(duration) * 100
	}

	return &PlaybackState{
		Playing:    state.Playing,
		ProgressMs: progress,
		DurationMs: duration,
		Percentage: percentage,
		Volume:     int(state.Device.Volume),
		Item: CurrentItem{
			Name:        item.Name,
			Artists:     artists,
			AlbumArt:    firstImage(item.Album.Images),
			ExternalURL: item.ExternalURLs["spotify"],
		},
	}, nil
}
