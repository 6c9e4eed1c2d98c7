// Package firebase provides the identity and persistence collaborators of a
// fintrack.Client backed by the Firebase REST APIs.
package firebase

import (
	"net/http"
	"time"

	"github.com/eshaffer321/fintrack-go/internal/auth"
	"github.com/eshaffer321/fintrack-go/internal/firestore"
	"github.com/eshaffer321/fintrack-go/internal/transport"
	"github.com/eshaffer321/fintrack-go/internal/types"
	"github.com/eshaffer321/fintrack-go/pkg/fintrack"
	"github.com/pkg/errors"
)

// RetryConfig configures retries of the REST transport
type RetryConfig = types.RetryConfig

// Hooks observe every REST request
type Hooks = types.Hooks

// Options configures the Firebase backend
type Options struct {
	// APIKey is the web API key of the Firebase project. Required.
	APIKey string

	// ProjectID is the Firestore project. Required.
	ProjectID string

	// SessionFile, when set, keeps the signed-in session across restarts
	SessionFile string

	// PollInterval controls how often subscriptions re-query Firestore
	PollInterval time.Duration

	// Endpoint overrides, mainly for emulators and tests
	IdentityURL  string
	TokenURL     string
	FirestoreURL string

	// HTTPClient allows custom HTTP client configuration
	HTTPClient *http.Client

	// RetryConfig enables retries for transient failures
	RetryConfig *RetryConfig

	// Hooks for observability
	Hooks *Hooks

	// Logger for debug logging
	Logger fintrack.Logger
}

// Backend bundles the collaborators sharing one authenticated transport
type Backend struct {
	Identity    *Identity
	Persistence *Persistence
}

// New creates the identity and persistence collaborators
func New(opts *Options) (*Backend, error) {
	if opts == nil || opts.APIKey == "" {
		return nil, errors.New("firebase: api key is required")
	}
	if opts.ProjectID == "" {
		return nil, errors.New("firebase: project id is required")
	}

	var logger types.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	}

	tr := transport.NewHTTPTransport(&transport.Options{
		HTTPClient:  opts.HTTPClient,
		RetryConfig: opts.RetryConfig,
		Logger:      logger,
		Hooks:       opts.Hooks,
	})

	authService := auth.NewService(&auth.Options{
		APIKey:      opts.APIKey,
		IdentityURL: opts.IdentityURL,
		TokenURL:    opts.TokenURL,
		Transport:   tr,
		Logger:      logger,
	})
	tr.SetTokenSource(authService)

	store, err := firestore.NewClient(&firestore.Options{
		ProjectID: opts.ProjectID,
		BaseURL:   opts.FirestoreURL,
		Transport: tr,
		Logger:    logger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create firestore client")
	}

	return &Backend{
		Identity:    newIdentity(authService, opts.SessionFile, logger),
		Persistence: newPersistence(store, opts.PollInterval, logger),
	}, nil
}
