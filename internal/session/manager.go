// Package session owns the authentication lifecycle of one tab: obtaining a
// session from credentials, validating a persisted one and tearing it down.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"guestreport_client/internal/apiclient"
	"guestreport_client/internal/common"
	"guestreport_client/internal/session/tabstore"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgLoginFailed        = "Login failed"
	msgUnexpected         = "Something went wrong. Please try again later."
	msgEmptyUserName      = "Username cannot be empty."
)

// Manager is the Session/Auth Manager for a single tab scope.
// It is the only writer of the tab's user/token keys and of the bearer
// credential on the api client's RequestContext.
type Manager struct {
	mu       sync.Mutex
	client   *apiclient.Client
	auth     *apiclient.RequestContext
	store    tabstore.Store
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time

	onTeardown func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, for expiry checks in tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTeardownListener registers fn to run after the backend rejects the
// session. The CLI uses it to send the user back to the login entry point.
func WithTeardownListener(fn func()) Option {
	return func(m *Manager) { m.onTeardown = fn }
}

// NewManager creates a Manager and hooks it into the client's 401 handling.
func NewManager(client *apiclient.Client, store tabstore.Store, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		client:   client,
		auth:     client.RequestContext(),
		store:    store,
		validate: validator.New(),
		logger:   logger.Named("session"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	client.OnUnauthorized(m.HandleUnauthorized)
	return m
}

// Login exchanges email and password for a session.
// On success the user and token are persisted and the bearer credential is
// installed before Login returns.
func (m *Manager) Login(ctx context.Context, email, password string) (*AuthenticatedUser, error) {
	req := LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := m.validate.Struct(req); err != nil {
		return nil, common.NewValidationError(err)
	}

	m.auth.ClearBearer()

	var resp loginResponse
	if err := m.client.Post(ctx, apiclient.PathLogin, req, &resp); err != nil {
		return nil, m.loginFailure(err)
	}
	if !resp.IsSuccess || resp.Token == "" {
		msg := resp.Message
		if msg == "" {
			msg = msgLoginFailed
		}
		m.logger.Info("Backend refused login", zap.String("email", req.Email), zap.String("message", msg))
		return nil, &common.AuthenticationError{Message: msg}
	}

	claims, err := DecodeToken(resp.Token)
	if err != nil {
		m.logger.Error("Backend issued a token that cannot be decoded", zap.Error(err))
		return nil, &common.AuthenticationError{Message: msgUnexpected, Err: err}
	}

	user := &AuthenticatedUser{
		Email:        claims.Email,
		UserName:     claims.UserName,
		Token:        resp.Token,
		AuthProvider: ProviderEmail,
	}
	if user.Email == "" {
		user.Email = req.Email
	}
	if user.UserName == "" {
		user.UserName = localPart(req.Email)
	}
	switch {
	case resp.RoleID != nil:
		user.RoleID = *resp.RoleID
	case claims.RoleID != nil:
		user.RoleID = *claims.RoleID
	}

	if err := m.establish(ctx, user, claims); err != nil {
		return nil, err
	}
	m.logger.Info("User logged in", zap.String("email", user.Email), zap.String("provider", string(user.AuthProvider)))
	return user, nil
}

// LoginWithGoogle exchanges a Google-issued credential for a session.
func (m *Manager) LoginWithGoogle(ctx context.Context, credential string) (*AuthenticatedUser, error) {
	req := googleLoginRequest{Token: strings.TrimSpace(credential)}
	if err := m.validate.Struct(req); err != nil {
		return nil, common.NewValidationError(err)
	}

	m.auth.ClearBearer()

	var resp googleLoginResponse
	if err := m.client.Post(ctx, apiclient.PathGoogleLogin, req, &resp); err != nil {
		return nil, m.loginFailure(err)
	}
	if resp.Token == "" || resp.User == nil {
		return nil, &common.AuthenticationError{Message: "Invalid response structure from server"}
	}

	claims, err := DecodeToken(resp.Token)
	if err != nil {
		return nil, &common.AuthenticationError{Message: msgUnexpected, Err: err}
	}

	user := &AuthenticatedUser{
		Email:          resp.User.Email,
		UserName:       resp.User.UserName,
		Token:          resp.Token,
		RoleID:         resp.User.RoleID,
		ProfilePicture: resp.User.ProfilePicture,
		AuthProvider:   ProviderGoogle,
	}
	if user.Email == "" {
		user.Email = claims.Email
	}
	if user.UserName == "" {
		user.UserName = localPart(user.Email)
	}

	if err := m.establish(ctx, user, claims); err != nil {
		return nil, err
	}
	m.logger.Info("User logged in", zap.String("email", user.Email), zap.String("provider", string(user.AuthProvider)))
	return user, nil
}

// Register creates an account. It does not sign the user in.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (*RegisteredUser, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := m.validate.Struct(req); err != nil {
		return nil, common.NewValidationError(err)
	}
	userName := strings.TrimSpace(req.UserName)
	if userName == "" {
		userName = localPart(req.Email)
	}
	body := registerBody{
		Email:        req.Email,
		UserName:     userName,
		Password:     req.Password,
		AuthProvider: ProviderEmail,
	}

	var created RegisteredUser
	if err := m.client.Post(ctx, apiclient.PathRegister, body, &created); err != nil {
		if common.IsNetworkError(err) {
			return nil, err
		}
		if se, ok := apiclient.AsStatusError(err); ok && se.Message != "" {
			return nil, fmt.Errorf("failed to create user: %s", se.Message)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	m.logger.Info("User registered", zap.String("email", created.Email))
	return &created, nil
}

// IsAuthenticated reports whether the tab holds a token whose exp is strictly
// in the future. It never performs a network call and never fails.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	token, ok, err := m.store.Get(ctx, tabstore.KeyToken)
	if err != nil {
		m.logger.Warn("Failed to read token from tab storage", zap.Error(err))
		return false
	}
	if !ok || token == "" {
		return false
	}
	claims, err := DecodeToken(token)
	if err != nil {
		return false
	}
	return !claims.ExpiredAt(m.now())
}

// CurrentUser returns the persisted user. A missing or undecodable record, or
// a missing or expired token, yields absent. A user record and a live token
// only exist together, so whenever one is present without the other the
// session is torn down.
func (m *Manager) CurrentUser(ctx context.Context) (*AuthenticatedUser, bool) {
	raw, ok, err := m.store.Get(ctx, tabstore.KeyUser)
	if err != nil {
		m.logger.Warn("Failed to read user from tab storage", zap.Error(err))
		return nil, false
	}
	if !ok {
		if m.IsAuthenticated(ctx) {
			m.logger.Warn("Token persisted without a user record, clearing it")
			m.Logout(ctx)
		}
		return nil, false
	}
	var user AuthenticatedUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		m.logger.Warn("Persisted user record is unreadable, clearing the session", zap.Error(err))
		m.Logout(ctx)
		return nil, false
	}
	if !m.IsAuthenticated(ctx) {
		m.logger.Info("Persisted session is no longer valid, clearing it")
		m.Logout(ctx)
		return nil, false
	}
	return &user, true
}

// State returns the tab's current session state.
func (m *Manager) State(ctx context.Context) State {
	if m.IsAuthenticated(ctx) {
		return Authenticated
	}
	return Anonymous
}

// Restore is the startup transition. A valid persisted token is installed as
// the bearer credential, provided its user record is there too; anything else
// is cleared.
func (m *Manager) Restore(ctx context.Context) State {
	token, ok := m.persistedToken(ctx)
	if !ok {
		m.Logout(ctx)
		return Anonymous
	}
	if _, ok := m.CurrentUser(ctx); !ok {
		return Anonymous
	}
	m.auth.SetBearer(token)
	return Authenticated
}

// persistedToken returns the tab's token when it decodes and has not expired.
func (m *Manager) persistedToken(ctx context.Context) (string, bool) {
	if !m.IsAuthenticated(ctx) {
		return "", false
	}
	token, ok, err := m.store.Get(ctx, tabstore.KeyToken)
	if err != nil || !ok || token == "" {
		return "", false
	}
	return token, true
}

// Logout removes the session from the tab and clears the bearer credential.
// It is safe to call without a session.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked(ctx)
}

// HandleUnauthorized runs when the backend answers 401 to a credentialed
// request. It is the same teardown as Logout.
func (m *Manager) HandleUnauthorized() {
	m.Logout(context.Background())
	if m.onTeardown != nil {
		m.onTeardown()
	}
}

// AuthProvider returns the provider of the current user, if any.
func (m *Manager) AuthProvider(ctx context.Context) (AuthProvider, bool) {
	u, ok := m.CurrentUser(ctx)
	if !ok {
		return "", false
	}
	return u.AuthProvider, true
}

// UserEmail returns the email of the current user, if any.
func (m *Manager) UserEmail(ctx context.Context) (string, bool) {
	u, ok := m.CurrentUser(ctx)
	if !ok {
		return "", false
	}
	return u.Email, true
}

// UserName returns the display name of the current user, if any.
func (m *Manager) UserName(ctx context.Context) (string, bool) {
	u, ok := m.CurrentUser(ctx)
	if !ok {
		return "", false
	}
	return u.UserName, true
}

// Profile fetches the signed-in user's profile. The user id is read from the
// token's nameid claim.
func (m *Manager) Profile(ctx context.Context) (*Profile, error) {
	if m.Restore(ctx) != Authenticated {
		return nil, ErrNotSignedIn
	}
	token, _ := m.persistedToken(ctx)
	claims, err := DecodeToken(token)
	if err != nil {
		return nil, err
	}
	id, ok := claims.UserID()
	if !ok {
		return nil, ErrNoUserID
	}
	return m.fetchProfile(ctx, id)
}

// UpdateProfile changes the signed-in user's display name and bio. Both are
// trimmed. An empty name is rejected before any request, and a form equal to
// the stored profile returns ErrNoProfileChanges without sending anything.
// On success the persisted user record picks up the new name.
func (m *Manager) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*Profile, error) {
	userName := strings.TrimSpace(upd.UserName)
	if userName == "" {
		return nil, &common.ValidationError{Fields: map[string]string{"UserName": msgEmptyUserName}}
	}
	bio := strings.TrimSpace(upd.Bio)

	current, err := m.Profile(ctx)
	if err != nil {
		return nil, err
	}
	if userName == current.UserName && bio == current.Bio {
		return nil, ErrNoProfileChanges
	}

	id := strconv.Itoa(current.ID)
	body := profileUpdateBody{ID: current.ID, UserName: userName, Bio: bio}
	if err := m.client.Put(ctx, apiclient.PathUser+"/"+url.PathEscape(id), body, nil); err != nil {
		if se, ok := apiclient.AsStatusError(err); ok && se.Message != "" {
			return nil, fmt.Errorf("failed to update profile: %s", se.Message)
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	updated, err := m.fetchProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	m.renameStoredUser(ctx, updated.UserName)
	m.logger.Info("Profile updated", zap.Int("userID", updated.ID))
	return updated, nil
}

func (m *Manager) fetchProfile(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	if err := m.client.Get(ctx, apiclient.PathUser+"/"+url.PathEscape(id), &p); err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	return &p, nil
}

// renameStoredUser rewrites the userName of the persisted record, keeping the
// record's lifetime tied to the token.
func (m *Manager) renameStoredUser(ctx context.Context, userName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok, err := m.store.Get(ctx, tabstore.KeyUser)
	if err != nil || !ok {
		return
	}
	var user AuthenticatedUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return
	}
	claims, err := DecodeToken(user.Token)
	if err != nil || claims.ExpiredAt(m.now()) {
		return
	}
	user.UserName = userName
	record, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := m.store.Set(ctx, tabstore.KeyUser, string(record), claims.ExpiresAt.Sub(m.now())); err != nil {
		m.logger.Warn("Failed to refresh the stored user name", zap.Error(err))
	}
}

// establish persists user and token and installs the bearer credential as one
// step. If either write fails nothing is left behind.
func (m *Manager) establish(ctx context.Context, user *AuthenticatedUser, claims *TokenClaims) error {
	if claims.ExpiredAt(m.now()) {
		return &common.AuthenticationError{Message: "Session expired"}
	}
	ttl := claims.ExpiresAt.Sub(m.now())

	record, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user record: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Set(ctx, tabstore.KeyUser, string(record), ttl); err != nil {
		m.teardownLocked(ctx)
		return fmt.Errorf("persist user: %w", err)
	}
	if err := m.store.Set(ctx, tabstore.KeyToken, user.Token, ttl); err != nil {
		m.teardownLocked(ctx)
		return fmt.Errorf("persist token: %w", err)
	}
	m.auth.SetBearer(user.Token)
	return nil
}

func (m *Manager) teardownLocked(ctx context.Context) {
	if err := m.store.Remove(ctx, tabstore.KeyUser, tabstore.KeyToken, tabstore.KeyRefreshing); err != nil {
		m.logger.Warn("Failed to clear tab storage during logout", zap.Error(err))
	}
	m.auth.ClearBearer()
}

// loginFailure maps a transport or backend error to the client taxonomy.
func (m *Manager) loginFailure(err error) error {
	if common.IsNetworkError(err) {
		return err
	}
	if se, ok := apiclient.AsStatusError(err); ok {
		msg := se.Message
		if msg == "" {
			if se.StatusCode == http.StatusUnauthorized {
				msg = msgInvalidCredentials
			} else {
				msg = msgLoginFailed
			}
		}
		return &common.AuthenticationError{Message: msg, StatusCode: se.StatusCode, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &common.NetworkError{Op: "login", Err: err}
	}
	m.logger.Error("Unexpected login error", zap.Error(err))
	return &common.AuthenticationError{Message: msgUnexpected, Err: err}
}
