package fintrack

import (
	"context"
	"time"
)

// AuthService handles the session lifecycle
type AuthService interface {
	// Login signs in with email and password
	Login(ctx context.Context, email, password string) (*UserProfile, error)

	// Register creates an account, sets its display name and signs in
	Register(ctx context.Context, name, email, password string) (*UserProfile, error)

	// Logout clears all local state, then signs out
	Logout(ctx context.Context) error

	// State returns the current session state
	State() AuthState

	// CurrentUser returns the signed-in profile, or nil
	CurrentUser() *UserProfile

	// UpdateUser changes the display name and avatar
	UpdateUser(ctx context.Context, params *UpdateUserParams) (*UserProfile, error)
}

// TransactionService handles transaction operations
type TransactionService interface {
	// List returns transactions sorted by date, newest first
	List() []*Transaction

	// Get returns a single transaction
	Get(transactionID string) (*Transaction, error)

	// Create validates and records a new transaction
	Create(ctx context.Context, params *CreateTransactionParams) (*Transaction, error)

	// Delete removes a transaction
	Delete(ctx context.Context, transactionID string) error
}

// CategoryService handles categories
type CategoryService interface {
	List() []*Category
	Create(ctx context.Context, params *CreateCategoryParams) (*Category, error)
	Delete(ctx context.Context, categoryID string) error
}

// NotificationService handles the local notification feed
type NotificationService interface {
	// List returns notifications, newest first
	List() []*Notification

	UnreadCount() int

	// MarkRead marks one notification as read
	MarkRead(notificationID string) error

	// MarkAllRead marks every notification as read
	MarkAllRead()
}

// AnalyticsService exposes the derived aggregates
type AnalyticsService interface {
	// Summary returns income, expense and balance
	Summary() Summary

	// CashFlow returns monthly buckets for the given mode
	CashFlow(mode CashFlowMode) []MonthFlow

	// CategoryBreakdown returns expense totals per category, largest first
	CategoryBreakdown() []CategoryTotal

	// BalanceTrend returns the cumulative net flow for January through December
	BalanceTrend() [12]float64

	// Report builds the statement for the given mode
	Report(mode CashFlowMode) *Report

	// Export builds the report and hands it to exporter
	Export(ctx context.Context, mode CashFlowMode, exporter ReportExporter) error
}

// Identity is an authenticated account as reported by the identity provider
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	PhotoURL    string
}

// ProfileUpdate changes identity attributes. Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

// IdentityProvider authenticates users
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignOut(ctx context.Context) error
	UpdateProfile(ctx context.Context, update ProfileUpdate) error

	// OnAuthChange registers fn to receive the current identity, or nil after
	// sign out. fn may run before OnAuthChange returns. The returned func
	// unregisters it.
	OnAuthChange(fn func(*Identity)) (unsubscribe func())
}

// Document is a stored record. Dates travel as time.Time.
type Document map[string]interface{}

// DocumentSnapshot is a document with its id
type DocumentSnapshot struct {
	ID   string
	Data Document
}

// Filter is an equality filter on one field
type Filter struct {
	Field string
	Value interface{}
}

// Subscription delivers the full matching set whenever it changes
type Subscription interface {
	// Updates is closed after Close
	Updates() <-chan []DocumentSnapshot
	Close() error
}

// Persistence is a document store with per-user collections
type Persistence interface {
	Create(ctx context.Context, collection string, doc Document) (string, error)
	Delete(ctx context.Context, collection, id string) error
	Subscribe(ctx context.Context, collection string, filter Filter) (Subscription, error)
}

// LocalCache is a best-effort key-value store. Get returns nil, nil for a missing key.
type LocalCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// EventType names a store mutation
type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventCategoryCreated    EventType = "category.created"
	EventCategoryDeleted    EventType = "category.deleted"
)

// Event describes a completed mutation
type Event struct {
	ID          string       `json:"id"`
	Type        EventType    `json:"type"`
	UserID      string       `json:"userId"`
	OccurredAt  time.Time    `json:"occurredAt"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Category    *Category    `json:"category,omitempty"`
	// EntityID is set for deletions
	EntityID string `json:"entityId,omitempty"`
}

// EventPublisher receives mutation events
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
}

// ReportExporter writes a report somewhere
type ReportExporter interface {
	Export(ctx context.Context, report *Report) error
}
