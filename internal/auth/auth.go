package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/eshaffer321/fintrack-go/internal/transport"
	"github.com/eshaffer321/fintrack-go/internal/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// DefaultIdentityURL is the Identity Toolkit v1 base URL
	DefaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"

	// DefaultTokenURL is the Secure Token endpoint used to refresh ID tokens
	DefaultTokenURL = "https://securetoken.googleapis.com/v1/token"

	signInEndpoint = "/accounts:signInWithPassword"
	signUpEndpoint = "/accounts:signUp"
	updateEndpoint = "/accounts:update"
	lookupEndpoint = "/accounts:lookup"
)

// Service handles authentication against the Identity Toolkit REST API
type Service struct {
	apiKey      string
	identityURL string
	tokenURL    string
	transport   *transport.HTTPTransport
	logger      types.Logger
	deviceUUID  string
	now         func() time.Time

	mu      sync.RWMutex
	session *types.Session
}

// Options for the auth service
type Options struct {
	APIKey      string
	IdentityURL string
	TokenURL    string
	Transport   *transport.HTTPTransport
	Logger      types.Logger
}

// NewService creates a new auth service
func NewService(opts *Options) *Service {
	if opts == nil {
		opts = &Options{}
	}

	s := &Service{
		apiKey:      opts.APIKey,
		identityURL: opts.IdentityURL,
		tokenURL:    opts.TokenURL,
		transport:   opts.Transport,
		logger:      opts.Logger,
		deviceUUID:  uuid.New().String(),
		now:         time.Now,
	}

	if s.identityURL == "" {
		s.identityURL = DefaultIdentityURL
	}
	if s.tokenURL == "" {
		s.tokenURL = DefaultTokenURL
	}
	if s.transport == nil {
		s.transport = transport.NewHTTPTransport(&transport.Options{Logger: opts.Logger})
	}

	return s
}

// User is the account information returned by a lookup
type User struct {
	UserID      string
	Email       string
	DisplayName string
	PhotoURL    string
}

// SignIn authenticates with email and password
func (s *Service) SignIn(ctx context.Context, email, password string) (*types.Session, error) {
	if s.logger != nil {
		s.logger.Debug("Sign in request", "email", email)
	}
	return s.passwordRequest(ctx, signInEndpoint, email, password)
}

// SignUp creates an account and signs it in
func (s *Service) SignUp(ctx context.Context, email, password string) (*types.Session, error) {
	if s.logger != nil {
		s.logger.Debug("Sign up request", "email", email)
	}
	return s.passwordRequest(ctx, signUpEndpoint, email, password)
}

func (s *Service) passwordRequest(ctx context.Context, endpoint, email, password string) (*types.Session, error) {
	reqBody := map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}

	var resp accountResponse
	if err := s.transport.Do(ctx, http.MethodPost, s.endpoint(endpoint), reqBody, &resp); err != nil {
		return nil, err
	}

	if resp.IDToken == "" {
		return nil, errors.New("no token in sign in response")
	}

	session := &types.Session{
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.LocalID,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		PhotoURL:     resp.PhotoURL,
		ExpiresAt:    s.now().Add(parseExpiresIn(resp.ExpiresIn)),
		DeviceUUID:   s.deviceUUID,
	}
	if session.Email == "" {
		session.Email = email
	}

	s.SetSession(session)

	if s.logger != nil {
		s.logger.Info("Sign in successful", "userId", session.UserID)
	}

	return session.Clone(), nil
}

// UpdateProfile sets the display name and photo of the signed-in account.
// Nil fields are left untouched.
func (s *Service) UpdateProfile(ctx context.Context, displayName, photoURL *string) error {
	token, err := s.Token(ctx)
	if err != nil {
		return err
	}

	reqBody := map[string]interface{}{
		"idToken":           token,
		"returnSecureToken": false,
	}
	if displayName != nil {
		reqBody["displayName"] = *displayName
	}
	if photoURL != nil {
		reqBody["photoUrl"] = *photoURL
	}

	var resp accountResponse
	if err := s.transport.Do(ctx, http.MethodPost, s.endpoint(updateEndpoint), reqBody, &resp); err != nil {
		return err
	}

	s.mu.Lock()
	if s.session != nil {
		if displayName != nil {
			s.session.DisplayName = *displayName
		}
		if photoURL != nil {
			s.session.PhotoURL = *photoURL
		}
	}
	s.mu.Unlock()

	return nil
}

// Lookup returns the account behind the current session
func (s *Service) Lookup(ctx context.Context) (*User, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Users []accountResponse `json:"users"`
	}
	if err := s.transport.Do(ctx, http.MethodPost, s.endpoint(lookupEndpoint), map[string]string{"idToken": token}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, types.ErrNotFound
	}

	u := resp.Users[0]
	return &User{
		UserID:      u.LocalID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
	}, nil
}

// Refresh exchanges the refresh token for a new ID token
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.RLock()
	var refreshToken string
	if s.session != nil {
		refreshToken = s.session.RefreshToken
	}
	s.mu.RUnlock()

	if refreshToken == "" {
		return types.ErrSessionExpired
	}

	reqBody := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}

	var resp refreshResponse
	if err := s.transport.Do(ctx, http.MethodPost, s.tokenURL+"?key="+url.QueryEscape(s.apiKey), reqBody, &resp); err != nil {
		return errors.Wrap(err, "failed to refresh token")
	}
	if resp.IDToken == "" {
		return types.ErrSessionExpired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		// Signed out while the refresh was in flight
		return types.ErrNotAuthenticated
	}
	s.session.IDToken = resp.IDToken
	if resp.RefreshToken != "" {
		s.session.RefreshToken = resp.RefreshToken
	}
	s.session.ExpiresAt = s.now().Add(parseExpiresIn(resp.ExpiresIn))

	if s.logger != nil {
		s.logger.Debug("Token refreshed", "userId", s.session.UserID)
	}

	return nil
}

// Token returns a valid ID token, refreshing the session when it is about to expire
func (s *Service) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	session := s.session
	var token string
	var expired bool
	if session != nil {
		token = session.IDToken
		expired = session.Expired(s.now())
	}
	s.mu.RUnlock()

	if session == nil || token == "" {
		return "", types.ErrNotAuthenticated
	}
	if !expired {
		return token, nil
	}

	if err := s.Refresh(ctx); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return "", types.ErrNotAuthenticated
	}
	return s.session.IDToken, nil
}

// SignOut forgets the current session
func (s *Service) SignOut() {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}

// GetSession returns a copy of the current session
func (s *Service) GetSession() (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil, types.ErrNotAuthenticated
	}
	return s.session.Clone(), nil
}

// SetSession sets the current session
func (s *Service) SetSession(session *types.Session) {
	s.mu.Lock()
	s.session = session.Clone()
	s.mu.Unlock()
}

// SaveSession saves session to file
func (s *Service) SaveSession(path string) error {
	session, err := s.GetSession()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrap(err, "failed to create session directory")
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	// Write to file with restrictive permissions
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write session file")
	}

	if s.logger != nil {
		s.logger.Info("Session saved", "path", path)
	}

	return nil
}

// LoadSession loads session from file. An expired ID token is kept as long as
// a refresh token is present; Token refreshes it on first use.
func (s *Service) LoadSession(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.ErrNotAuthenticated
		}
		return errors.Wrap(err, "failed to read session file")
	}

	var session types.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return errors.Wrap(err, "failed to unmarshal session")
	}

	if session.IDToken == "" {
		return types.ErrNotAuthenticated
	}
	if session.Expired(s.now()) && session.RefreshToken == "" {
		return types.ErrSessionExpired
	}

	if session.DeviceUUID != "" {
		s.deviceUUID = session.DeviceUUID
	}
	s.SetSession(&session)

	if s.logger != nil {
		s.logger.Info("Session loaded", "path", path, "userId", session.UserID)
	}

	return nil
}

// DeleteSession removes a saved session file
func DeleteSession(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete session file")
	}
	return nil
}

func (s *Service) endpoint(path string) string {
	return s.identityURL + path + "?key=" + url.QueryEscape(s.apiKey)
}

// parseExpiresIn reads the seconds-as-string lifetime, defaulting to one hour
func parseExpiresIn(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return time.Hour
	}
	return time.Duration(secs) * time.Second
}

// accountResponse represents the Identity Toolkit account payload
type accountResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
}

// refreshResponse represents the Secure Token payload
type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}
