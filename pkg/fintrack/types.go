package fintrack

import (
	"time"
)

// TransactionType is either income or expense
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Valid reports whether t is a known type
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Transaction represents a single recorded money movement
type Transaction struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
}

// CreateTransactionParams represents parameters for recording a transaction
type CreateTransactionParams struct {
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
}

// Category represents a user-defined transaction label
type Category struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Type  TransactionType `json:"type"`
	Color string          `json:"color,omitempty"`
	Icon  string          `json:"icon,omitempty"`
}

// CreateCategoryParams represents parameters for creating a category
type CreateCategoryParams struct {
	Name  string          `json:"name"`
	Type  TransactionType `json:"type"`
	Color string          `json:"color,omitempty"`
	Icon  string          `json:"icon,omitempty"`
}

// NotificationType classifies a notification
type NotificationType string

const (
	NotificationAlert   NotificationType = "alert"
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
)

// Notification is a local, session-scoped message
type Notification struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Date    time.Time        `json:"date"`
	Read    bool             `json:"read"`
	Type    NotificationType `json:"type"`
}

// UserProfile is the local copy of the signed-in identity
type UserProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// UpdateUserParams represents a profile change. Nil fields are left untouched.
type UpdateUserParams struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

// AuthState is the session state machine
type AuthState string

const (
	StateLoggedOut      AuthState = "logged_out"
	StateAuthenticating AuthState = "authenticating"
	StateAuthenticated  AuthState = "authenticated"
)

// Summary holds the headline aggregates
type Summary struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
}

// MonthFlow is the income and expense of one calendar month, any year
type MonthFlow struct {
	Month   time.Month `json:"month"`
	Income  float64    `json:"income"`
	Expense float64    `json:"expense"`
}

// Net returns income minus expense
func (m MonthFlow) Net() float64 {
	return m.Income - m.Expense
}

// CashFlowMode selects which monthly buckets CashFlow returns
type CashFlowMode string

const (
	// CashFlowFullYear returns January through December
	CashFlowFullYear CashFlowMode = "year"
	// CashFlowRollingSixMonths returns the six months ending at the current month
	CashFlowRollingSixMonths CashFlowMode = "6months"
)

// CategoryTotal is the summed expense of one category
type CategoryTotal struct {
	Category    string  `json:"category"`
	Total       float64 `json:"total"`
	Placeholder bool    `json:"placeholder,omitempty"`
}

// Report is the data behind an exported financial statement
type Report struct {
	Title       string       `json:"title"`
	Period      string       `json:"period"`
	Mode        CashFlowMode `json:"mode"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Income      float64      `json:"income"`
	Expense     float64      `json:"expense"`
	Net         float64      `json:"net"`
	CashFlow    []MonthFlow  `json:"cashFlow"`
	Rows        []ReportRow  `json:"rows"`
}

// ReportRow is one transaction line of a report
type ReportRow struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
}
