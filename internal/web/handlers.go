package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	spotifyapi "github.com/zmb3/spotify/v2"

	"github.com/openstats/openstats/internal/auth"
	"github.com/openstats/openstats/internal/db"
	"github.com/openstats/openstats/internal/spotify"
	"github.com/openstats/openstats/internal/sync"
)

// OAuthFlow drives login: building the authorize URL and completing
// the callback exchange.
type OAuthFlow interface {
	AuthCodeURL(state string) string
	HandleCallback(ctx context.Context, code string) (*auth.Login, error)
}

// TokenManager produces authenticated clients for stored users.
type TokenManager interface {
	GetValidClient(ctx context.Context, userID string) (*spotifyapi.Client, error)
}

// SnapshotReader reads the stored snapshot for the dashboard.
type SnapshotReader interface {
	TopTracks(ctx context.Context, userID string) ([]db.TopTrack, error)
	TopArtists(ctx context.Context, userID string) ([]db.TopArtist, error)
}

// Syncer refreshes a user's snapshot after login.
type Syncer interface {
	Sync(ctx context.Context, fetcher sync.Fetcher, userID string) (*sync.Result, error)
}

// Handlers contains the HTTP handlers.
type Handlers struct {
	flow      OAuthFlow
	tokens    TokenManager
	sessions  SessionManager
	snapshots SnapshotReader
	syncer    Syncer
	logger    *log.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(flow OAuthFlow, tokens TokenManager, sessions SessionManager, snapshots SnapshotReader, syncer Syncer, logger *log.Logger) *Handlers {
	return &Handlers{
		flow:      flow,
		tokens:    tokens,
		sessions:  sessions,
		snapshots: snapshots,
		syncer:    syncer,
		logger:    logger,
	}
}

// Home clears any session and points at the login entry (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"login": "/login"})
}

// Login clears any session and redirects to the Spotify authorize URL
// (GET /login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w, r)

	state, err := generateOAuthState()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate state")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})

	http.Redirect(w, r, h.flow.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback completes the OAuth flow (GET /callback): exchange the
// code, bind a fresh session, and run the initial snapshot sync. Any
// failure falls back to the entry point with no partial state.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("callback state mismatch")
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		h.logger.Warn("callback missing code parameter")
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	login, err := h.flow.HandleCallback(r.Context(), code)
	if err != nil {
		h.logger.Error("completing login", "err", err)
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	session := h.sessions.Create(login.UserID, login.DisplayName)
	h.sessions.SetCookie(w, session)

	// Initial sync; a failure here leaves the user logged in with
	// whatever snapshot they had.
	if _, err := h.syncer.Sync(r.Context(), spotify.New(login.Client), login.UserID); err != nil {
		h.logger.Error("initial sync", "user", login.UserID, "err", err)
	}

	http.Redirect(w, r, "/dashboard", http.StatusTemporaryRedirect)
}

// Logout deletes the session (GET /logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w, r)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// dashboardResponse is the dashboard payload.
type dashboardResponse struct {
	User         string         `json:"user"`
	Tracks       []db.TopTrack  `json:"tracks"`
	Artists      []db.TopArtist `json:"artists"`
	CurrentTrack *currentTrack  `json:"current_track"`
}

type currentTrack struct {
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	ImageURL string `json:"image_url"`
	Link     string `json:"link"`
}

// Dashboard returns the stored snapshot plus the currently playing
// track (GET /dashboard).
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
		return
	}

	client, err := h.tokens.GetValidClient(r.Context(), session.UserID)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
		return
	}

	resp := dashboardResponse{User: session.DisplayName}

	state, err := spotify.New(client).CurrentState(r.Context())
	if err != nil && !errors.Is(err, spotify.ErrNotPlaying) {
		h.logger.Error("reading playback state", "user", session.UserID, "err", err)
	}
	if state != nil {
		resp.CurrentTrack = &currentTrack{
			Name:     state.Item.Name,
			Artist:   strings.Join(state.Item.Artists, ", "),
			ImageURL: state.Item.AlbumArt,
			Link:     state.Item.ExternalURL,
		}
	}

	resp.Tracks, err = h.snapshots.TopTracks(r.Context(), session.UserID)
	if err != nil {
		h.logger.Error("loading tracks", "user", session.UserID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	resp.Artists, err = h.snapshots.TopArtists(r.Context(), session.UserID)
	if err != nil {
		h.logger.Error("loading artists", "user", session.UserID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// relay wraps the common lookup for playback endpoints: session, then
// a valid client. Writes a 401 and returns nil when either is missing.
func (h *Handlers) relay(w http.ResponseWriter, r *http.Request) *spotify.Client {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return nil
	}
	client, err := h.tokens.GetValidClient(r.Context(), session.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "spotify client unavailable")
		return nil
	}
	return spotify.New(client)
}

// Play resumes playback (POST /play).
func (h *Handlers) Play(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, func(ctx context.Context, c *spotify.Client) error { return c.Play(ctx) })
}

// Pause pauses playback (POST /pause).
func (h *Handlers) Pause(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, func(ctx context.Context, c *spotify.Client) error { return c.Pause(ctx) })
}

// Next skips forward (POST /next).
func (h *Handlers) Next(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, func(ctx context.Context, c *spotify.Client) error { return c.Next(ctx) })
}

// Previous skips backward (POST /previous).
func (h *Handlers) Previous(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, func(ctx context.Context, c *spotify.Client) error { return c.Previous(ctx) })
}

// forward relays a single playback command and answers 204.
func (h *Handlers) forward(w http.ResponseWriter, r *http.Request, cmd func(context.Context, *spotify.Client) error) {
	client := h.relay(w, r)
	if client == nil {
		return
	}
	if err := cmd(r.Context(), client); err != nil {
		h.logger.Error("relaying playback command", "err", err)
		writeError(w, http.StatusInternalServerError, "playback command failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Seek moves the playhead (POST /seek). The body carries either a
// percentage (clamped to 0-100) or an absolute position_ms.
func (h *Handlers) Seek(w http.ResponseWriter, r *http.Request) {
	client := h.relay(w, r)
	if client == nil {
		return
	}

	var req struct {
		Percentage *float64 `json:"percentage"`
		PositionMs *int     `json:"position_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := client.Seek(r.Context(), spotify.SeekRequest{
		Percentage: req.Percentage,
		PositionMs: req.PositionMs,
	})
	if errors.Is(err, spotify.ErrNotPlaying) {
		writeError(w, http.StatusNotFound, "no active playback")
		return
	}
	if err != nil {
		h.logger.Error("seeking", "err", err)
		writeError(w, http.StatusInternalServerError, "seek failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Volume sets the player volume (POST /volume).
func (h *Handlers) Volume(w http.ResponseWriter, r *http.Request) {
	client := h.relay(w, r)
	if client == nil {
		return
	}

	req := struct {
		VolumePercent *int `json:"volume_percent"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	volume := 50
	if req.VolumePercent != nil {
		volume = *req.VolumePercent
	}

	if err := client.SetVolume(r.Context(), volume); err != nil {
		h.logger.Error("setting volume", "err", err)
		writeError(w, http.StatusInternalServerError, "volume change failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// currentResponse is the /current payload.
type currentResponse struct {
	IsPlaying  bool        `json:"is_playing"`
	ProgressMs int         `json:"progress_ms"`
	DurationMs int         `json:"duration_ms"`
	Percentage float64     `json:"percentage"`
	Volume     int         `json:"vol"`
	Item       currentItem `json:"item"`
}

type currentItem struct {
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	AlbumArt    string   `json:"album_art"`
	ExternalURL string   `json:"external_url"`
}

// Current reports the player state (GET /current). Nothing playing is
// a 404, distinct from the 401 for a missing session or dead
// credential.
func (h *Handlers) Current(w http.ResponseWriter, r *http.Request) {
	client := h.relay(w, r)
	if client == nil {
		return
	}

	state, err := client.CurrentState(r.Context())
	if errors.Is(err, spotify.ErrNotPlaying) {
		writeError(w, http.StatusNotFound, "nothing playing")
		return
	}
	if err != nil {
		h.logger.Error("reading playback state", "err", err)
		writeError(w, http.StatusInternalServerError, "playback query failed")
		return
	}

	writeJSON(w, http.StatusOK, currentResponse{
		IsPlaying:  state.Playing,
		ProgressMs: state.ProgressMs,
		DurationMs: state.DurationMs,
		Percentage: state.Percentage,
		Volume:     state.Volume,
		Item: currentItem{
			Name:        state.Item.Name,
			Artists:     state.Item.Artists,
			AlbumArt:    state.Item.AlbumArt,
			ExternalURL: state.Item.ExternalURL,
		},
	})
}

// clearSession drops the caller's session and cookie if present.
func (h *Handlers) clearSession(w http.ResponseWriter, r *http.Request) {
	if session := h.sessions.GetFromRequest(r); session != nil {
		h.sessions.Delete(session.ID)
	}
	h.sessions.ClearCookie(w)
}

// generateOAuthState creates a random state string for OAuth.
func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error payload.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
