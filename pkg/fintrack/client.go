package fintrack

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
)

const (
	// DefaultCacheNamespace prefixes local cache keys: "<namespace>_<userId>"
	DefaultCacheNamespace = "transactions"

	// DefaultUserName is shown when the identity has no display name
	DefaultUserName = "User"
)

// Client is the finance tracking store. It owns the session and the local
// transaction, category and notification collections.
type Client struct {
	// Service interfaces
	Auth          AuthService
	Transactions  TransactionService
	Categories    CategoryService
	Notifications NotificationService
	Analytics     AnalyticsService

	// Internal fields
	identity    IdentityProvider
	persistence Persistence
	cache       LocalCache
	publisher   EventPublisher
	options     *ClientOptions
	logger      Logger
	now         func() time.Time

	state *store

	lifecycle       sync.Mutex
	connected       bool
	closed          bool
	unsubscribeAuth func()

	listenersMu  sync.RWMutex
	listeners    map[int]func()
	nextListener int
}

// ClientOptions configures the client
type ClientOptions struct {
	// Identity authenticates users. Required.
	Identity IdentityProvider

	// Persistence stores transactions and categories. Required.
	Persistence Persistence

	// Cache keeps the last known transaction list across restarts. Optional.
	Cache LocalCache

	// CacheNamespace overrides DefaultCacheNamespace
	CacheNamespace string

	// Publisher receives mutation events. Optional.
	Publisher EventPublisher

	// InitialBalance is added to income - expense to form the balance
	InitialBalance float64

	// Location decides which calendar month a transaction falls in.
	// Defaults to time.Local.
	Location *time.Location

	// Logger for debug logging
	Logger Logger

	// SentryDSN enables Sentry error tracking when set
	SentryDSN string

	// SentryOptions allows custom Sentry configuration
	SentryOptions *sentry.ClientOptions
}

// Logger interface for logging
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// NewClient creates a new client. Call Connect to follow identity changes and
// Close to release it.
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		return nil, errors.New("fintrack: options are required")
	}
	if opts.Identity == nil {
		return nil, errors.New("fintrack: identity provider is required")
	}
	if opts.Persistence == nil {
		return nil, errors.New("fintrack: persistence is required")
	}

	// Initialize Sentry if DSN is provided
	if opts.SentryDSN != "" || opts.SentryOptions != nil {
		sentryOpts := sentry.ClientOptions{}
		if opts.SentryOptions != nil {
			sentryOpts = *opts.SentryOptions
		}
		if opts.SentryDSN != "" {
			sentryOpts.Dsn = opts.SentryDSN
		}
		if sentryOpts.Environment == "" {
			sentryOpts.Environment = "production"
		}

		if err := sentry.Init(sentryOpts); err != nil && opts.Logger != nil {
			// Log error but don't fail client creation
			opts.Logger.Error("Failed to initialize Sentry", "error", err)
		}
	}

	if opts.Location == nil {
		opts.Location = time.Local
	}

	if opts.CacheNamespace == "" {
		opts.CacheNamespace = DefaultCacheNamespace
	}

	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	c := &Client{
		identity:    opts.Identity,
		persistence: opts.Persistence,
		cache:       opts.Cache,
		publisher:   opts.Publisher,
		options:     opts,
		logger:      logger,
		now:         time.Now,
		state:       newStore(),
		listeners:   make(map[int]func()),
	}

	c.state.mu.Lock()
	c.recomputeLocked()
	c.state.mu.Unlock()

	c.initServices()

	return c, nil
}

// initServices initializes all service implementations
func (c *Client) initServices() {
	c.Auth = &authService{client: c}
	c.Transactions = &transactionService{client: c}
	c.Categories = &categoryService{client: c}
	c.Notifications = &notificationService{client: c}
	c.Analytics = &analyticsService{client: c}
}

// Connect starts following the identity provider. A restored identity
// authenticates the client; a nil identity clears local state.
func (c *Client) Connect(ctx context.Context) error {
	c.lifecycle.Lock()
	if c.closed {
		c.lifecycle.Unlock()
		return ErrClosed
	}
	if c.connected {
		c.lifecycle.Unlock()
		return nil
	}
	c.connected = true
	c.lifecycle.Unlock()

	// Providers may report the current identity from inside OnAuthChange, so
	// the lifecycle lock is not held here.
	base := context.WithoutCancel(ctx)
	unsubscribe := c.identity.OnAuthChange(func(ident *Identity) {
		c.handleAuthChange(base, ident)
	})

	c.lifecycle.Lock()
	if c.closed {
		c.lifecycle.Unlock()
		unsubscribe()
		return ErrClosed
	}
	c.unsubscribeAuth = unsubscribe
	c.lifecycle.Unlock()

	c.logger.Debug("Client connected")
	return nil
}

// Close stops following the identity provider, closes subscriptions and
// flushes pending Sentry events. It is safe to call more than once.
func (c *Client) Close() error {
	c.lifecycle.Lock()
	if c.closed {
		c.lifecycle.Unlock()
		return nil
	}
	c.closed = true
	unsubscribe := c.unsubscribeAuth
	c.unsubscribeAuth = nil
	c.lifecycle.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.reset()

	// Flush Sentry events with a 2 second timeout
	sentry.Flush(2 * time.Second)

	c.logger.Debug("Client closed")
	return nil
}

// Dispose is an alias for Close
func (c *Client) Dispose() error {
	return c.Close()
}

// OnChange registers fn to run after every change of local state. The
// returned func unregisters it.
func (c *Client) OnChange(fn func()) (unregister func()) {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Client) notify() {
	c.listenersMu.RLock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

func (c *Client) isClosed() bool {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.closed
}

// backendError translates err, logs it and reports it to Sentry
func (c *Client) backendError(ctx context.Context, op string, err error) error {
	translated := newBackendError(op, err)
	c.logger.Error("Backend operation failed", "op", op, "error", err)

	if translated.Code != CodeCanceled {
		c.captureError(ctx, op, err)
	}
	return translated
}

func (c *Client) captureError(ctx context.Context, op string, err error) {
	capture := func(hub *sentry.Hub) {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("fintrack.operation", op)
			if user := c.state.profile(); user != nil {
				scope.SetUser(sentry.User{ID: user.ID})
			}
			hub.CaptureException(err)
		})
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		capture(hub)
		return
	}
	capture(sentry.CurrentHub())
}

// publish sends an event; failures are logged and otherwise ignored
func (c *Client) publish(ctx context.Context, event *Event) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Warn("Failed to publish event", "type", event.Type, "error", err)
	}
}

func (c *Client) cacheKey(userID string) string {
	return c.options.CacheNamespace + "_" + userID
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
