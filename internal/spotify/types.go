package spotify

// Track is one ranked entry of the user's top-tracks list, shaped for
// display and storage.
type Track struct {
	ID       string
	Name     string // track title, "(Explicit)"-suffixed when flagged
	Artists  string // comma-joined artist credit, upstream order
	Rank     int    // 1-based upstream position
	ImageURL string // first album image, empty when none
	LinkTo   string
	Release  string
}

// Artist is one ranked entry of the user's top-artists list.
type Artist struct {
	Name     string
	Rank     int
	ImageURL string
	LinkTo   string
}

// PlaybackState describes the player at the time of the query.
type PlaybackState struct {
	Playing    bool
	ProgressMs int
	DurationMs int
	Percentage float64 // progress/duration * 100
	Volume     int
	Item       CurrentItem
}

// CurrentItem is the track the player currently holds.
type CurrentItem struct {
	Name        string
	Artists     []string
	AlbumArt    string
	ExternalURL string
}
