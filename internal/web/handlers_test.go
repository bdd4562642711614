package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	spotifyapi "github.com/zmb3/spotify/v2"

	"github.com/openstats/openstats/internal/auth"
	"github.com/openstats/openstats/internal/db"
	"github.com/openstats/openstats/internal/sync"
)

type fakeFlow struct {
	login *auth.Login
	err   error
}

func (f *fakeFlow) AuthCodeURL(state string) string {
	return "https://accounts.example/authorize?state=" + state
}

func (f *fakeFlow) HandleCallback(_ context.Context, code string) (*auth.Login, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.login, nil
}

type fakeTokens struct {
	client *spotifyapi.Client
	err    error
}

func (f *fakeTokens) GetValidClient(context.Context, string) (*spotifyapi.Client, error) {
	return f.client, f.err
}

type fakeSnapshots struct{}

func (fakeSnapshots) TopTracks(context.Context, string) ([]db.TopTrack, error)   { return nil, nil }
func (fakeSnapshots) TopArtists(context.Context, string) ([]db.TopArtist, error) { return nil, nil }

type fakeSyncer struct {
	users []string
	err   error
}

func (f *fakeSyncer) Sync(_ context.Context, _ sync.Fetcher, userID string) (*sync.Result, error) {
	f.users = append(f.users, userID)
	return &sync.Result{}, f.err
}

type handlerFixture struct {
	handlers *Handlers
	sessions *SessionStore
	flow     *fakeFlow
	tokens   *fakeTokens
	syncer   *fakeSyncer
}

func newHandlerFixture() *handlerFixture {
	sessions := NewSessionStore()
	flow := &fakeFlow{
		login: &auth.Login{
			UserID:      "u1",
			DisplayName: "Al",
			Client:      spotifyapi.New(http.DefaultClient),
		},
	}
	tokens := &fakeTokens{client: spotifyapi.New(http.DefaultClient)}
	syncer := &fakeSyncer{}
	logger := log.New(io.Discard)

	return &handlerFixture{
		handlers: NewHandlers(flow, tokens, sessions, fakeSnapshots{}, syncer, logger),
		sessions: sessions,
		flow:     flow,
		tokens:   tokens,
		syncer:   syncer,
	}
}

// loggedIn attaches a valid session cookie to the request.
func (f *handlerFixture) loggedIn(r *http.Request) *Session {
	session := f.sessions.Create("u1", "Al")
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: session.ID})
	return session
}

func TestHome(t *testing.T) {
	f := newHandlerFixture()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	session := f.loggedIn(req)

	f.handlers.Home(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "/login") {
		t.Errorf("body = %q, want login pointer", rec.Body.String())
	}
	if f.sessions.Get(session.ID) != nil {
		t.Error("Home() did not clear the existing session")
	}
}

func TestLogin_RedirectsWithState(t *testing.T) {
	f := newHandlerFixture()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)

	f.handlers.Login(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTemporaryRedirect)
	}

	var state string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c.Value
		}
	}
	if state == "" {
		t.Fatal("Login() did not set the oauth_state cookie")
	}

	location := rec.Header().Get("Location")
	if !strings.Contains(location, "state="+state) {
		t.Errorf("Location = %q, want state %q", location, state)
	}
}

func TestCallback_StateMismatch(t *testing.T) {
	f := newHandlerFixture()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?state=wrong&code=abc", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "right"})

	f.handlers.Callback(rec, req)

	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/" {
		t.Errorf("got %d -> %q, want redirect to /", rec.Code, rec.Header().Get("Location"))
	}
	if len(f.syncer.users) != 0 {
		t.Error("sync ran despite state mismatch")
	}
}

func TestCallback_MissingCode(t *testing.T) {
	f := newHandlerFixture()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?state=s1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})

	f.handlers.Callback(rec, req)

	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/" {
		t.Errorf("got %d -> %q, want redirect to /", rec.Code, rec.Header().Get("Location"))
	}
}

func TestCallback_ExchangeFailure(t *testing.T) {
	f := newHandlerFixture()
	f.flow.err = errors.New("exchange refused")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=abc", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})

	f.handlers.Callback(rec, req)

	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/" {
		t.Errorf("got %d -> %q, want redirect to /", rec.Code, rec.Header().Get("Location"))
	}
	if len(f.syncer.users) != 0 {
		t.Error("sync ran despite exchange failure")
	}
}

func TestCallback_Success(t *testing.T) {
	f := newHandlerFixture()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=abc", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})

	f.handlers.Callback(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTemporaryRedirect)
	}
	if got := rec.Header().Get("Location"); got != "/dashboard" {
		t.Errorf("Location = %q, want /dashboard", got)
	}

	var sessionID string
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			sessionID = c.Value
		}
	}
	if sessionID == "" {
		t.Fatal("no session cookie set")
	}
	session := f.sessions.Get(sessionID)
	if session == nil || session.UserID != "u1" || session.DisplayName != "Al" {
		t.Errorf("session = %+v, want bound to u1/Al", session)
	}

	if len(f.syncer.users) != 1 || f.syncer.users[0] != "u1" {
		t.Errorf("synced users = %v, want [u1]", f.syncer.users)
	}
}

func TestCallback_SyncFailureStillLogsIn(t *testing.T) {
	f := newHandlerFixture()
	f.syncer.err = errors.New("spotify down")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=abc", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})

	f.handlers.Callback(rec, req)

	if got := rec.Header().Get("Location"); got != "/dashboard" {
		t.Errorf("Location = %q, want /dashboard despite sync failure", got)
	}
}

func TestCurrent_NoSession(t *testing.T) {
	f := newHandlerFixture()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/current", nil)

	f.handlers.Current(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rec.Body.String(), "not logged in") {
		t.Errorf("body = %q, want not logged in", rec.Body.String())
	}
}

func TestPlay_ClientUnavailable(t *testing.T) {
	f := newHandlerFixture()
	f.tokens.err = errors.New("refresh failed")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/play", nil)
	f.loggedIn(req)

	f.handlers.Play(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rec.Body.String(), "unavailable") {
		t.Errorf("body = %q, want client unavailable", rec.Body.String())
	}
}

func TestSeek_InvalidBody(t *testing.T) {
	f := newHandlerFixture()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/seek", strings.NewReader("{not json"))
	f.loggedIn(req)

	f.handlers.Seek(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestVolume_InvalidBody(t *testing.T) {
	f := newHandlerFixture()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/volume", strings.NewReader("nope"))
	f.loggedIn(req)

	f.handlers.Volume(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDashboard_NoSession(t *testing.T) {
	f := newHandlerFixture()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	f.handlers.Dashboard(rec, req)

	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/login" {
		t.Errorf("got %d -> %q, want redirect to /login", rec.Code, rec.Header().Get("Location"))
	}
}

func TestDashboard_ClientUnavailable(t *testing.T) {
	f := newHandlerFixture()
	f.tokens.err = errors.New("refresh failed")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	f.loggedIn(req)

	f.handlers.Dashboard(rec, req)

	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/login" {
		t.Errorf("got %d -> %q, want redirect to /login", rec.Code, rec.Header().Get("Location"))
	}
}
