package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/openstats/openstats/internal/config"
	"github.com/openstats/openstats/internal/db"
)

// ErrUnavailable is returned when no authenticated client can be
// produced for a user: no stored credential, an unparseable expiry, or
// a failed refresh. Callers treat it as "send the user back to login".
var ErrUnavailable = errors.New("spotify client unavailable")

// upstreamTimeout bounds every outbound call to the Spotify API.
const upstreamTimeout = 10 * time.Second

// CredentialStore is the slice of the credential repository the token
// manager needs.
type CredentialStore interface {
	Get(ctx context.Context, userID string) (*db.Credential, error)
	UpdateToken(ctx context.Context, userID, prevAccessToken, accessToken, expiresAt string) error
}

// Manager validates and transparently refreshes stored access tokens,
// producing authenticated Spotify clients on demand.
type Manager struct {
	store  CredentialStore
	conf   *oauth2.Config
	logger *log.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a token lifecycle manager.
func NewManager(store CredentialStore, cfg config.SpotifyConfig, logger *log.Logger) *Manager {
	return &Manager{
		store: store,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
		logger: logger,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// GetValidClient returns a Spotify client bound to a valid access token
// for the user, refreshing the stored token first if it has expired.
// Every failure mode collapses to ErrUnavailable; the stored credential
// is only mutated after a refresh fully succeeds.
func (m *Manager) GetValidClient(ctx context.Context, userID string) (*spotify.Client, error) {
	// Serialize per user so concurrent requests cannot race a refresh.
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	cred, err := m.store.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			m.logger.Error("loading credential", "user", userID, "err", err)
		}
		return nil, ErrUnavailable
	}

	expiresAt, err := parseExpiry(cred.ExpiresAt)
	if err != nil {
		m.logger.Error("parsing token expiry", "user", userID, "err", err)
		return nil, ErrUnavailable
	}

	accessToken := cred.AccessToken
	if m.now().After(expiresAt) {
		m.logger.Debug("token expired, refreshing", "user", userID)
		accessToken, err = m.refresh(ctx, cred)
		if err != nil {
			m.logger.Error("refreshing token", "user", userID, "err", err)
			return nil, ErrUnavailable
		}
	}

	return m.clientFor(ctx, accessToken), nil
}

// refresh exchanges the stored refresh token for a new access token and
// persists it. The refresh token itself is never rotated.
func (m *Manager) refresh(ctx context.Context, cred *db.Credential) (string, error) {
	src := m.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := src.Token()
	if err != nil {
		return "", err
	}

	expiresAt := token.Expiry.Format(time.RFC3339)
	err = m.store.UpdateToken(ctx, cred.UserID, cred.AccessToken, token.AccessToken, expiresAt)
	if errors.Is(err, db.ErrNotFound) {
		// Another process won the conditional update; use whatever it
		// stored.
		fresh, err := m.store.Get(ctx, cred.UserID)
		if err != nil {
			return "", err
		}
		return fresh.AccessToken, nil
	}
	if err != nil {
		return "", err
	}

	m.logger.Debug("token refreshed", "user", cred.UserID, "expires_at", expiresAt)
	return token.AccessToken, nil
}

// clientFor builds a Spotify client bound to a single access token.
func (m *Manager) clientFor(ctx context.Context, accessToken string) *spotify.Client {
	token := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	httpClient.Timeout = upstreamTimeout
	return spotify.New(httpClient)
}

// userLock returns the mutex for a user, creating it on first use.
func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userID] = lock
	}
	return lock
}
