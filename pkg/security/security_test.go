package security

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = prev })
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trims whitespace", input: "  hello  ", want: "hello"},
		{name: "removes angle brackets", input: "<b>bold</b>", want: "bbold/b"},
		{name: "removes javascript scheme", input: "JavaScript:alert(1)", want: "alert(1)"},
		{name: "removes event handlers", input: `img onerror=alert(1)`, want: "img alert(1)"},
		{name: "nested javascript scheme", input: "jajavascript:vascript:x", want: "x"},
		{name: "handler revealed by bracket removal", input: "on<x>load=1", want: "1"},
		{name: "trailing space left by removal", input: "coffee <", want: "coffee"},
		{name: "plain text untouched", input: "Groceries", want: "Groceries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestSanitize_Truncates(t *testing.T) {
	long := strings.Repeat("é", MaxSanitizedLength+50)
	got := Sanitize(long)
	assert.Equal(t, MaxSanitizedLength, len([]rune(got)))

	withSpaceAtCut := strings.Repeat("a", MaxSanitizedLength-1) + " b"
	assert.Equal(t, strings.Repeat("a", MaxSanitizedLength-1), Sanitize(withSpaceAtCut))
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"normal text",
		"<script>alert('x')</script>",
		"javajavascript:script:",
		"oonclick=nclick=",
		"javaonx=script:void",
		"a <",
		" < > ",
		strings.Repeat("x ", 700),
		strings.Repeat("<on", 400) + "load=",
	}

	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func TestSanitizeValue(t *testing.T) {
	s := " <hi> "
	assert.Equal(t, "hi", SanitizeValue(s))
	assert.Equal(t, "hi", SanitizeValue(&s))
	assert.Equal(t, "", SanitizeValue(42))
	assert.Equal(t, "", SanitizeValue(nil))
}

func TestValidateTransaction(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	good := TransactionInput{
		Amount:      150,
		Description: "Groceries",
		Type:        TypeExpense,
		Category:    "Food",
		Date:        now,
	}
	res := ValidateTransaction(good)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "", res.First())

	t.Run("amount out of bounds", func(t *testing.T) {
		for _, amount := range []float64{0, 0.009, -1, 1_000_000_000.01, 5e12, math.NaN(), math.Inf(1), math.Inf(-1)} {
			in := good
			in.Amount = amount
			assert.False(t, ValidateTransaction(in).Valid, "amount %v", amount)
		}
	})

	t.Run("amount bounds inclusive", func(t *testing.T) {
		for _, amount := range []float64{MinTransactionAmount, MaxTransactionAmount} {
			in := good
			in.Amount = amount
			assert.True(t, ValidateTransaction(in).Valid, "amount %v", amount)
		}
	})

	t.Run("collects every violation in order", func(t *testing.T) {
		res := ValidateTransaction(TransactionInput{Amount: -5, Type: "transfer"})
		require.False(t, res.Valid)
		require.Len(t, res.Errors, 5)
		assert.Equal(t, "Minimum amount is 0.01", res.First())
		assert.Equal(t, "Description is required", res.Errors[1])
		assert.Equal(t, "Invalid transaction type", res.Errors[2])
		assert.Equal(t, "Category is required", res.Errors[3])
		assert.Equal(t, "Invalid date", res.Errors[4])
		assert.Equal(t, []string{"amount", "description", "type", "category", "date"}, res.Fields)
		assert.Equal(t, "amount", res.FirstField())
	})

	t.Run("description too long", func(t *testing.T) {
		in := good
		in.Description = strings.Repeat("d", MaxDescriptionLength+1)
		res := ValidateTransaction(in)
		assert.False(t, res.Valid)
		assert.Contains(t, res.First(), "too long")
	})

	t.Run("date window", func(t *testing.T) {
		in := good
		in.Date = now.AddDate(11, 0, 0)
		assert.Equal(t, "Date is too far in the future", ValidateTransaction(in).First())

		in.Date = now.AddDate(-101, 0, 0)
		assert.Equal(t, "Date is too far in the past", ValidateTransaction(in).First())

		in.Date = now.AddDate(-99, 0, 0)
		assert.True(t, ValidateTransaction(in).Valid)
	})
}

func TestValidateCategory(t *testing.T) {
	assert.True(t, ValidateCategory("Food", TypeExpense).Valid)
	assert.True(t, ValidateCategory("Salary", TypeIncome).Valid)

	res := ValidateCategory("   ", "other")
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"Category name is required", "Invalid category type"}, res.Errors)

	res = ValidateCategory(strings.Repeat("c", MaxCategoryNameLength+1), TypeExpense)
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 1)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name         string
		password     string
		wantValid    bool
		wantScore    int
		wantStrength Strength
	}{
		{name: "all classes at minimum length", password: "Ab1!aaaa", wantValid: true, wantScore: 100, wantStrength: StrengthVeryStrong},
		{name: "common password", password: "password", wantValid: false, wantScore: 20, wantStrength: StrengthWeak},
		{name: "common password any case", password: "PassW0rd", wantValid: false, wantScore: 20, wantStrength: StrengthWeak},
		{name: "missing special", password: "Abcdefg1", wantValid: false, wantScore: 80, wantStrength: StrengthVeryStrong},
		{name: "short lowercase", password: "abc", wantValid: false, wantScore: 20, wantStrength: StrengthWeak},
		{name: "long lowercase and digits", password: "abcdefgh12345678", wantValid: false, wantScore: 80, wantStrength: StrengthVeryStrong},
		{name: "three classes", password: "abcdefg1", wantValid: false, wantScore: 60, wantStrength: StrengthStrong},
		{name: "empty", password: "", wantValid: false, wantScore: 0, wantStrength: StrengthWeak},
		{name: "two classes short", password: "ab1", wantValid: false, wantScore: 40, wantStrength: StrengthMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidatePassword(tt.password)
			assert.Equal(t, tt.wantValid, res.Valid)
			assert.Equal(t, tt.wantScore, res.Score)
			assert.Equal(t, tt.wantStrength, res.Strength)
			assert.Equal(t, len(res.Errors) == 0, res.Valid)
		})
	}
}

func TestValidatePassword_ScoreCapped(t *testing.T) {
	res := ValidatePassword("Abcdefghijklmnop1!")
	assert.True(t, res.Valid)
	assert.Equal(t, 100, res.Score)
}

func TestValidateUserName(t *testing.T) {
	assert.True(t, ValidateUserName("Ana").Valid)
	assert.Equal(t, "Name is required", ValidateUserName("  ").First())
	assert.Equal(t, "Name is too short", ValidateUserName("A").First())
	assert.False(t, ValidateUserName(strings.Repeat("n", MaxNameLength+1)).Valid)
}

func TestToUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errors.New("Firebase: Error (auth/wrong-password)."), MsgInvalidCredentials},
		{errors.New("INVALID_LOGIN_CREDENTIALS"), MsgInvalidCredentials},
		{errors.New("EMAIL_EXISTS"), MsgEmailInUse},
		{errors.New("WEAK_PASSWORD : Password should be at least 6 characters"), MsgWeakPassword},
		{errors.New("auth/invalid-email"), MsgInvalidEmail},
		{errors.New("TOO_MANY_ATTEMPTS_TRY_LATER"), MsgTooManyRequests},
		{errors.New("PERMISSION_DENIED: Missing or insufficient permissions."), MsgPermissionDenied},
		{errors.New("dial tcp: network is unreachable"), MsgNetwork},
		{errors.New("panic: runtime error at server.go:42"), MsgGeneric},
	}

	for _, tt := range tests {
		got := ToUserMessage(tt.err)
		assert.Equal(t, tt.want, got, "error %q", tt.err)
		assert.NotContains(t, got, tt.err.Error())
	}

	assert.Equal(t, "", ToUserMessage(nil))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "50,00", want: 50},
		{in: "1.234,56", want: 1234.56},
		{in: " 12.5 ", want: 12.5},
		{in: "1.234", want: 1234},
		{in: "1.234.567", want: 1234567},
		{in: "0,01", want: 0.01},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1,2,3", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			assert.True(t, errors.Is(err, ErrInvalidAmount))
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "input %q", tt.in)
	}
}
