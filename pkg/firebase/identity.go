package firebase

import (
	"context"
	"sync"

	"github.com/eshaffer321/fintrack-go/internal/auth"
	"github.com/eshaffer321/fintrack-go/internal/types"
	"github.com/eshaffer321/fintrack-go/pkg/fintrack"
	"github.com/pkg/errors"
)

// Identity implements fintrack.IdentityProvider with email/password accounts
type Identity struct {
	auth        *auth.Service
	sessionFile string
	logger      types.Logger

	mu        sync.Mutex
	listeners map[int]func(*fintrack.Identity)
	next      int
}

var _ fintrack.IdentityProvider = (*Identity)(nil)

func newIdentity(service *auth.Service, sessionFile string, logger types.Logger) *Identity {
	return &Identity{
		auth:        service,
		sessionFile: sessionFile,
		logger:      logger,
		listeners:   make(map[int]func(*fintrack.Identity)),
	}
}

// SignIn implements fintrack.IdentityProvider
func (i *Identity) SignIn(ctx context.Context, email, password string) (*fintrack.Identity, error) {
	session, err := i.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return i.signedIn(session), nil
}

// SignUp implements fintrack.IdentityProvider
func (i *Identity) SignUp(ctx context.Context, email, password string) (*fintrack.Identity, error) {
	session, err := i.auth.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return i.signedIn(session), nil
}

func (i *Identity) signedIn(session *types.Session) *fintrack.Identity {
	i.persist()
	ident := identityFromSession(session)
	i.emit(ident)
	return ident
}

// SignOut forgets the session and removes the session file
func (i *Identity) SignOut(ctx context.Context) error {
	i.auth.SignOut()

	var err error
	if i.sessionFile != "" {
		err = auth.DeleteSession(i.sessionFile)
	}

	i.emit(nil)
	return err
}

// UpdateProfile implements fintrack.IdentityProvider
func (i *Identity) UpdateProfile(ctx context.Context, update fintrack.ProfileUpdate) error {
	if err := i.auth.UpdateProfile(ctx, update.DisplayName, update.PhotoURL); err != nil {
		return err
	}
	i.persist()
	return nil
}

// OnAuthChange registers fn and reports the current identity to it, then
// reports every sign-in, restore and sign-out.
func (i *Identity) OnAuthChange(fn func(*fintrack.Identity)) func() {
	i.mu.Lock()
	id := i.next
	i.next++
	i.listeners[id] = fn
	i.mu.Unlock()

	fn(i.Current())

	return func() {
		i.mu.Lock()
		delete(i.listeners, id)
		i.mu.Unlock()
	}
}

// Current returns the signed-in identity, or nil
func (i *Identity) Current() *fintrack.Identity {
	session, err := i.auth.GetSession()
	if err != nil {
		return nil
	}
	return identityFromSession(session)
}

// Restore loads the session file and confirms it with the backend, refreshing
// the token when needed. Without a saved session it returns nil, nil.
func (i *Identity) Restore(ctx context.Context) (*fintrack.Identity, error) {
	if i.sessionFile == "" {
		return nil, nil
	}

	if err := i.auth.LoadSession(i.sessionFile); err != nil {
		if errors.Is(err, types.ErrNotAuthenticated) || errors.Is(err, types.ErrSessionExpired) {
			return nil, nil
		}
		return nil, err
	}

	user, err := i.auth.Lookup(ctx)
	if err != nil {
		i.auth.SignOut()
		return nil, errors.Wrap(err, "failed to restore session")
	}

	ident := &fintrack.Identity{
		UserID:      user.UserID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
	}
	i.persist()
	i.emit(ident)
	return ident, nil
}

func (i *Identity) persist() {
	if i.sessionFile == "" {
		return
	}
	if err := i.auth.SaveSession(i.sessionFile); err != nil && i.logger != nil {
		i.logger.Warn("Failed to save session", "error", err)
	}
}

func (i *Identity) emit(ident *fintrack.Identity) {
	i.mu.Lock()
	fns := make([]func(*fintrack.Identity), 0, len(i.listeners))
	for _, fn := range i.listeners {
		fns = append(fns, fn)
	}
	i.mu.Unlock()

	for _, fn := range fns {
		if ident == nil {
			fn(nil)
			continue
		}
		cp := *ident
		fn(&cp)
	}
}

func identityFromSession(s *types.Session) *fintrack.Identity {
	return &fintrack.Identity{
		UserID:      s.UserID,
		Email:       s.Email,
		DisplayName: s.DisplayName,
		PhotoURL:    s.PhotoURL,
	}
}
