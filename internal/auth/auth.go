// Package auth implements the Spotify OAuth flow and the token
// lifecycle manager that keeps stored access tokens usable.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/openstats/openstats/internal/config"
	"github.com/openstats/openstats/internal/db"
)

const defaultAPIBaseURL = "https://api.spotify.com/v1"

// ErrNoCode is returned when the authorization callback carries no code.
var ErrNoCode = errors.New("missing authorization code")

// CredentialWriter seeds the credential store after authorization.
type CredentialWriter interface {
	Upsert(ctx context.Context, cred *db.Credential) error
}

// Login is the result of a completed authorization flow.
type Login struct {
	UserID      string
	DisplayName string
	Client      *spotify.Client
}

// Authenticator drives the authorization-code flow: building the
// authorize URL, exchanging the callback code, fetching the profile,
// and seeding the credential store.
type Authenticator struct {
	conf       *oauth2.Config
	creds      CredentialWriter
	logger     *log.Logger
	httpClient *http.Client
	apiBaseURL string
}

// New creates an Authenticator from the Spotify configuration.
func New(creds CredentialWriter, cfg config.SpotifyConfig, logger *log.Logger) *Authenticator {
	return &Authenticator{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
		creds:      creds,
		logger:     logger,
		httpClient: &http.Client{Timeout: upstreamTimeout},
		apiBaseURL: defaultAPIBaseURL,
	}
}

// AuthCodeURL returns the upstream authorization URL. The show_dialog
// flag forces account re-selection on every login.
func (a *Authenticator) AuthCodeURL(state string) string {
	return a.conf.AuthCodeURL(state, spotifyauth.ShowDialog)
}

// HandleCallback exchanges an authorization code for tokens, resolves
// the user's profile, and replaces the stored credential row. Nothing
// is written unless every step succeeds.
func (a *Authenticator) HandleCallback(ctx context.Context, code string) (*Login, error) {
	if code == "" {
		return nil, ErrNoCode
	}

	token, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	profile, err := a.fetchProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}

	displayName := profile.DisplayName
	if displayName == "" {
		displayName = "Unknown User"
	}

	cred := &db.Credential{
		UserID:       profile.ID,
		DisplayName:  displayName,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry.Format(time.RFC3339),
	}
	if err := a.creds.Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("storing credential: %w", err)
	}

	a.logger.Info("user logged in", "user", profile.ID, "name", displayName)

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	httpClient.Timeout = upstreamTimeout

	return &Login{
		UserID:      profile.ID,
		DisplayName: displayName,
		Client:      spotify.New(httpClient),
	}, nil
}

// profile is the slice of the /me response this flow consumes.
type profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// fetchProfile retrieves the current user's profile with a bearer
// token.
func (a *Authenticator) fetchProfile(ctx context.Context, accessToken string) (*profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiBaseURL+"/me", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile request failed: status %d", resp.StatusCode)
	}

	var p profile
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("parsing profile response: %w", err)
	}
	if p.ID == "" {
		return nil, errors.New("profile response missing id")
	}
	return &p, nil
}
