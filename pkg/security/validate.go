package security

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Business limits shared by the validators.
const (
	MinTransactionAmount = 0.01
	MaxTransactionAmount = 1_000_000_000

	MinDescriptionLength = 1
	MaxDescriptionLength = 500

	MinCategoryNameLength = 1
	MaxCategoryNameLength = 50

	MinPasswordLength = 8

	MinNameLength = 2
	MaxNameLength = 100

	// MaxPastYears and MaxFutureYears bound a transaction date relative to now.
	MaxPastYears   = 100
	MaxFutureYears = 10
)

// Transaction and category types accepted by the validators.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// nowFunc is swapped in tests.
var nowFunc = time.Now

// Result is the outcome of a validator. Errors keeps every violated rule in the
// order the rules were checked; Fields[i] names the input behind Errors[i].
type Result struct {
	Valid  bool
	Errors []string
	Fields []string
}

// First returns the primary user-facing reason, or "" when the input is valid.
func (r Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0]
}

// FirstField returns the field of the primary reason, or "".
func (r Result) FirstField() string {
	if len(r.Fields) == 0 {
		return ""
	}
	return r.Fields[0]
}

type violations struct {
	errs   []string
	fields []string
}

func (v *violations) add(field, msg string) {
	v.errs = append(v.errs, msg)
	v.fields = append(v.fields, field)
}

func (v *violations) result() Result {
	return Result{Valid: len(v.errs) == 0, Errors: v.errs, Fields: v.fields}
}

// TransactionInput is the payload checked by ValidateTransaction.
type TransactionInput struct {
	Amount      float64
	Description string
	Type        string
	Category    string
	Date        time.Time
}

// ValidateTransaction checks amount, description, type, category and date.
func ValidateTransaction(in TransactionInput) Result {
	var v violations

	switch {
	case math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0):
		v.add("amount", "Amount must be a valid number")
	case in.Amount < MinTransactionAmount:
		v.add("amount", fmt.Sprintf("Minimum amount is %.2f", MinTransactionAmount))
	case in.Amount > MaxTransactionAmount:
		v.add("amount", "Maximum amount is 1,000,000,000.00")
	}

	descLen := utf8.RuneCountInString(in.Description)
	switch {
	case strings.TrimSpace(in.Description) == "":
		v.add("description", "Description is required")
	case descLen < MinDescriptionLength:
		v.add("description", "Description is too short")
	case descLen > MaxDescriptionLength:
		v.add("description", fmt.Sprintf("Description is too long (maximum %d characters)", MaxDescriptionLength))
	}

	if !IsValidType(in.Type) {
		v.add("type", "Invalid transaction type")
	}

	if strings.TrimSpace(in.Category) == "" {
		v.add("category", "Category is required")
	}

	if in.Date.IsZero() {
		v.add("date", "Invalid date")
	} else {
		now := nowFunc()
		switch {
		case in.Date.After(now.AddDate(MaxFutureYears, 0, 0)):
			v.add("date", "Date is too far in the future")
		case in.Date.Before(now.AddDate(-MaxPastYears, 0, 0)):
			v.add("date", "Date is too far in the past")
		}
	}

	return v.result()
}

// ValidateCategory checks the category name bounds and type.
func ValidateCategory(name, categoryType string) Result {
	var v violations

	nameLen := utf8.RuneCountInString(name)
	switch {
	case strings.TrimSpace(name) == "":
		v.add("name", "Category name is required")
	case nameLen < MinCategoryNameLength:
		v.add("name", "Category name is too short")
	case nameLen > MaxCategoryNameLength:
		v.add("name", fmt.Sprintf("Category name is too long (maximum %d characters)", MaxCategoryNameLength))
	}

	if !IsValidType(categoryType) {
		v.add("type", "Invalid category type")
	}

	return v.result()
}

// ValidateUserName checks a display name.
func ValidateUserName(name string) Result {
	var v violations
	nameLen := utf8.RuneCountInString(name)
	switch {
	case strings.TrimSpace(name) == "":
		v.add("name", "Name is required")
	case nameLen < MinNameLength:
		v.add("name", "Name is too short")
	case nameLen > MaxNameLength:
		v.add("name", fmt.Sprintf("Name is too long (maximum %d characters)", MaxNameLength))
	}
	return v.result()
}

// IsValidType reports whether t is "income" or "expense".
func IsValidType(t string) bool {
	return t == TypeIncome || t == TypeExpense
}
