package db

// Credential holds a user's Spotify identity and OAuth tokens.
// There is exactly one row per user; a new login replaces it entirely.
type Credential struct {
	UserID       string
	DisplayName  string
	AccessToken  string
	RefreshToken string

	// ExpiresAt is the raw stored expiry. Rows imported from the
	// legacy SQLite database carry several timestamp formats, so the
	// column is text and parsing is the token manager's job. New
	// writes always use RFC 3339.
	ExpiresAt string
}

// TopTrack is one ranked track row of a user's snapshot.
type TopTrack struct {
	UserID     string
	CapturedOn string // calendar date, YYYY-MM-DD
	TrackID    string
	Name       string
	Artists    string // comma-joined, upstream order
	Rank       int    // 1-based upstream position
	TimeRange  string
	ImageURL   string
	LinkTo     string
	Release    string
}

// TopArtist is one ranked artist row of a user's snapshot.
type TopArtist struct {
	UserID     string
	CapturedOn string
	Name       string
	Rank       int
	ImageURL   string
	LinkTo     string
}
