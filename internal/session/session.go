package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus"

	"primerjalnik/server/internal/apperrors"
)

// Identity is the authenticated user of the current session. The token is
// the identity provider's bearer assertion and is attached to every
// preferences/watchlist sync request.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email,omitempty"`
	Token  string `json:"-"`
}

// Authorize attaches the identity's bearer token to an outgoing request.
func (i Identity) Authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+i.Token)
}

// Manager tracks the current authenticated identity and exchanges provider
// ID tokens for backend user ids. Preference and watchlist actions are gated
// on an identity being present.
type Manager struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger

	mu      sync.RWMutex
	current *Identity
}

func NewManager(baseURL string, timeout time.Duration, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Manager{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (m *Manager) Login(ctx context.Context, idToken string) (Identity, error) {
	return m.exchange(ctx, "/api/users/login", idToken)
}

func (m *Manager) LoginWithGoogle(ctx context.Context, idToken string) (Identity, error) {
	return m.exchange(ctx, "/api/users/loginWithGoogle", idToken)
}

func (m *Manager) Register(ctx context.Context, idToken string) (Identity, error) {
	return m.exchange(ctx, "/api/users/register", idToken)
}

// Current returns the authenticated identity of this session, if any.
func (m *Manager) Current() (Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Identity{}, false
	}
	return *m.current, true
}

// Require returns the current identity or an AuthRequired error that the
// handler layer turns into a sign-in prompt.
func (m *Manager) Require() (Identity, error) {
	ident, ok := m.Current()
	if !ok {
		return Identity{}, apperrors.New(apperrors.ErrAuthRequired, "sign in to use this feature")
	}
	return ident, nil
}

// Logout drops the current identity.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

type tokenRequest struct {
	Token string `json:"token"`
}

type tokenResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// exchange posts the provider token to the backend and records the returned
// identity. The token's email claim is read without local verification;
// verifying the assertion is the backend's job.
func (m *Manager) exchange(ctx context.Context, path, idToken string) (Identity, error) {
	if idToken == "" {
		return Identity{}, apperrors.New(apperrors.ErrValidation, "missing identity token")
	}

	body, err := json.Marshal(tokenRequest{Token: idToken})
	if err != nil {
		return Identity{}, apperrors.Wrap(apperrors.ErrDecode, err, "failed to encode token request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Identity{}, apperrors.Wrap(apperrors.ErrNetwork, err, "failed to create auth request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.WithError(err).WithField("path", path).Error("Auth request failed")
		return Identity{}, apperrors.Wrap(apperrors.ErrNetwork, err, "auth request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Identity{}, apperrors.Wrap(apperrors.ErrNetwork, err, "failed to read auth response")
	}

	var decoded tokenResponse
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = json.Unmarshal(raw, &decoded)
		msg := decoded.Message
		if msg == "" {
			msg = fmt.Sprintf("auth failed with status %d", resp.StatusCode)
		}
		return Identity{}, apperrors.New(apperrors.ErrAuthRequired, msg)
	}

	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Identity{}, apperrors.Wrap(apperrors.ErrDecode, err, "failed to parse auth response")
	}
	if decoded.ID == "" {
		return Identity{}, apperrors.New(apperrors.ErrDecode, "auth response is missing the user id")
	}

	ident := Identity{
		UserID: decoded.ID,
		Email:  emailClaim(idToken),
		Token:  idToken,
	}

	m.mu.Lock()
	m.current = &ident
	m.mu.Unlock()

	m.logger.WithField("user_id", ident.UserID).Info("Session established")
	return ident, nil
}

func emailClaim(idToken string) string {
	tok, err := jwt.ParseInsecure([]byte(idToken))
	if err != nil {
		return ""
	}
	var email string
	if err := tok.Get("email", &email); err != nil {
		return ""
	}
	return email
}
