// Package memory provides in-process collaborators for a fintrack.Client:
// an account registry, a document store with live subscriptions and a cache.
// Nothing survives the process.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/eshaffer321/fintrack-go/pkg/fintrack"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Errors use the identity backend's codes so security.ToUserMessage can translate them
var (
	ErrInvalidCredentials = errors.New("auth/invalid-credential")
	ErrEmailInUse         = errors.New("auth/email-already-in-use")
	ErrWeakPassword       = errors.New("auth/weak-password")
	ErrNotSignedIn        = errors.New("permission-denied: not signed in")
)

// minPasswordLength mirrors the identity backend's own minimum
const minPasswordLength = 6

type account struct {
	identity fintrack.Identity
	password string
}

// Identity implements fintrack.IdentityProvider with accounts kept in memory
type Identity struct {
	mu        sync.Mutex
	accounts  map[string]*account
	current   *fintrack.Identity
	listeners map[int]func(*fintrack.Identity)
	next      int
}

var _ fintrack.IdentityProvider = (*Identity)(nil)

// NewIdentity creates an empty account registry
func NewIdentity() *Identity {
	return &Identity{
		accounts:  make(map[string]*account),
		listeners: make(map[int]func(*fintrack.Identity)),
	}
}

// SignIn implements fintrack.IdentityProvider
func (i *Identity) SignIn(ctx context.Context, email, password string) (*fintrack.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.Lock()
	acc, ok := i.accounts[normalizeEmail(email)]
	if !ok || acc.password != password {
		i.mu.Unlock()
		return nil, ErrInvalidCredentials
	}
	ident := acc.identity
	i.current = &ident
	i.mu.Unlock()

	i.emit(&ident)
	out := ident
	return &out, nil
}

// SignUp implements fintrack.IdentityProvider
func (i *Identity) SignUp(ctx context.Context, email, password string) (*fintrack.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	key := normalizeEmail(email)
	i.mu.Lock()
	if _, exists := i.accounts[key]; exists {
		i.mu.Unlock()
		return nil, ErrEmailInUse
	}
	acc := &account{
		identity: fintrack.Identity{UserID: uuid.New().String(), Email: strings.TrimSpace(email)},
		password: password,
	}
	i.accounts[key] = acc
	ident := acc.identity
	i.current = &ident
	i.mu.Unlock()

	i.emit(&ident)
	out := ident
	return &out, nil
}

// SignOut implements fintrack.IdentityProvider
func (i *Identity) SignOut(ctx context.Context) error {
	i.mu.Lock()
	i.current = nil
	i.mu.Unlock()

	i.emit(nil)
	return nil
}

// UpdateProfile implements fintrack.IdentityProvider
func (i *Identity) UpdateProfile(ctx context.Context, update fintrack.ProfileUpdate) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.current == nil {
		return ErrNotSignedIn
	}
	acc := i.accounts[normalizeEmail(i.current.Email)]
	if update.DisplayName != nil {
		i.current.DisplayName = *update.DisplayName
		acc.identity.DisplayName = *update.DisplayName
	}
	if update.PhotoURL != nil {
		i.current.PhotoURL = *update.PhotoURL
		acc.identity.PhotoURL = *update.PhotoURL
	}
	return nil
}

// OnAuthChange registers fn and reports the current identity to it, then
// reports every sign-in and sign-out.
func (i *Identity) OnAuthChange(fn func(*fintrack.Identity)) func() {
	i.mu.Lock()
	id := i.next
	i.next++
	i.listeners[id] = fn
	var current *fintrack.Identity
	if i.current != nil {
		cp := *i.current
		current = &cp
	}
	i.mu.Unlock()

	fn(current)

	return func() {
		i.mu.Lock()
		delete(i.listeners, id)
		i.mu.Unlock()
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

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
