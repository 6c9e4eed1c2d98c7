package fintrack

import (
	"context"
	"strings"

	"github.com/eshaffer321/fintrack-go/pkg/security"
)

// authService implements AuthService
type authService struct {
	client *Client
}

// Login signs in and opens the session. On failure nothing is retained and
// the error carries only a translated message.
func (s *authService) Login(ctx context.Context, email, password string) (*UserProfile, error) {
	c := s.client
	if c.isClosed() {
		return nil, ErrClosed
	}

	email = strings.TrimSpace(email)
	gen := c.beginAuth()

	ident, err := c.identity.SignIn(ctx, email, password)
	if err != nil {
		c.abortAuth(gen)
		return nil, c.backendError(ctx, "auth.login", err)
	}

	return c.establish(ctx, gen, ident, "")
}

// Register validates the name and password, creates the account and sets its
// display name.
func (s *authService) Register(ctx context.Context, name, email, password string) (*UserProfile, error) {
	c := s.client
	if c.isClosed() {
		return nil, ErrClosed
	}

	name = security.Sanitize(name)
	if res := security.ValidateUserName(name); !res.Valid {
		return nil, newValidationError(res, name)
	}
	if res := security.ValidatePassword(password); !res.Valid {
		return nil, newValidationError(res.Result, nil)
	}

	email = strings.TrimSpace(email)
	gen := c.beginAuth()

	ident, err := c.identity.SignUp(ctx, email, password)
	if err != nil {
		c.abortAuth(gen)
		return nil, c.backendError(ctx, "auth.register", err)
	}

	// The account exists at this point, so a failed name update does not undo the session
	if err := c.identity.UpdateProfile(ctx, ProfileUpdate{DisplayName: &name}); err != nil {
		c.logger.Warn("Failed to set display name", "userId", ident.UserID, "error", err)
		c.captureError(ctx, "auth.register.profile", err)
	}

	return c.establish(ctx, gen, ident, name)
}

// Logout clears local state first and then signs out. Local state is cleared
// even when sign out fails.
func (s *authService) Logout(ctx context.Context) error {
	c := s.client
	c.reset()
	c.logger.Info("Session cleared")

	if err := c.identity.SignOut(ctx); err != nil {
		return c.backendError(ctx, "auth.logout", err)
	}
	return nil
}

func (s *authService) State() AuthState {
	c := s.client
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	return c.state.status
}

func (s *authService) CurrentUser() *UserProfile {
	return s.client.state.profile()
}

// UpdateUser changes the display name and avatar. The name is sanitized and
// validated; the avatar is an image reference and is only trimmed.
func (s *authService) UpdateUser(ctx context.Context, params *UpdateUserParams) (*UserProfile, error) {
	c := s.client
	_, gen, err := c.requireAuth()
	if err != nil {
		return nil, err
	}
	if params == nil || (params.Name == nil && params.Avatar == nil) {
		return s.CurrentUser(), nil
	}

	var update ProfileUpdate
	if params.Name != nil {
		name := security.Sanitize(*params.Name)
		if res := security.ValidateUserName(name); !res.Valid {
			return nil, newValidationError(res, name)
		}
		update.DisplayName = &name
	}
	if params.Avatar != nil {
		avatar := strings.TrimSpace(*params.Avatar)
		if strings.HasPrefix(strings.ToLower(avatar), "javascript:") {
			return nil, &ValidationError{Field: "avatar", Message: "Invalid image"}
		}
		update.PhotoURL = &avatar
	}

	if err := c.identity.UpdateProfile(ctx, update); err != nil {
		return nil, c.backendError(ctx, "auth.update_user", err)
	}

	c.state.mu.Lock()
	if c.state.generation != gen || c.state.user == nil {
		c.state.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	if update.DisplayName != nil {
		c.state.user.Name = *update.DisplayName
	}
	if update.PhotoURL != nil {
		c.state.user.Avatar = *update.PhotoURL
	}
	out := *c.state.user
	c.state.mu.Unlock()

	c.notify()
	return &out, nil
}

// handleAuthChange follows the identity provider after Connect
func (c *Client) handleAuthChange(ctx context.Context, ident *Identity) {
	if c.isClosed() {
		return
	}

	if ident == nil {
		c.state.mu.RLock()
		active := c.state.status == StateAuthenticated
		c.state.mu.RUnlock()
		if active {
			c.logger.Info("Identity signed out, clearing session")
			c.reset()
		}
		return
	}

	gen, ok := c.beginRestore(ident)
	if !ok {
		return
	}
	if _, err := c.establish(ctx, gen, ident, ""); err != nil {
		c.logger.Warn("Failed to restore session", "userId", ident.UserID, "error", err)
	}
}
