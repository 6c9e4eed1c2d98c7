package fintrack

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultCategory labels expenses recorded without a category
	DefaultCategory = "General"

	// PlaceholderCategory and PlaceholderTotal form the single entry returned
	// by CategoryBreakdown when there are no expenses
	PlaceholderCategory = "No data"
	PlaceholderTotal    = 100

	// RollingWindowMonths is the length of the rolling cash flow window
	RollingWindowMonths = 6
)

// exclusionReason returns why t cannot contribute to sums, or "" when it can.
// Such records count as zero.
func exclusionReason(t *Transaction) string {
	switch {
	case t == nil:
		return "nil transaction"
	case math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0):
		return "amount is not a finite number"
	case t.Amount <= 0:
		return "amount is not positive"
	case !t.Type.Valid():
		return "unknown type"
	}
	return ""
}

// Totals sums amounts by type
func Totals(txs []*Transaction) (income, expense float64) {
	inc, exp := totals(txs)
	return inc.InexactFloat64(), exp.InexactFloat64()
}

func totals(txs []*Transaction) (income, expense decimal.Decimal) {
	for _, t := range txs {
		if exclusionReason(t) != "" {
			continue
		}
		amount := decimal.NewFromFloat(t.Amount)
		if t.Type == TransactionIncome {
			income = income.Add(amount)
		} else {
			expense = expense.Add(amount)
		}
	}
	return income, expense
}

// Summarize computes income, expense and balance = income - expense + initialBalance
func Summarize(txs []*Transaction, initialBalance float64) Summary {
	inc, exp := totals(txs)

	offset := decimal.Zero
	if !math.IsNaN(initialBalance) && !math.IsInf(initialBalance, 0) {
		offset = decimal.NewFromFloat(initialBalance)
	}

	return Summary{
		Income:  inc.InexactFloat64(),
		Expense: exp.InexactFloat64(),
		Balance: inc.Sub(exp).Add(offset).InexactFloat64(),
	}
}

// MonthlyCashFlow buckets income and expense by calendar month in loc,
// ignoring the year. Index 0 is January. Transactions without a date are
// skipped. A nil loc means time.Local.
func MonthlyCashFlow(txs []*Transaction, loc *time.Location) [12]MonthFlow {
	if loc == nil {
		loc = time.Local
	}

	var inc, exp [12]decimal.Decimal
	for _, t := range txs {
		if exclusionReason(t) != "" || t.Date.IsZero() {
			continue
		}
		m := int(t.Date.In(loc).Month()) - 1
		amount := decimal.NewFromFloat(t.Amount)
		if t.Type == TransactionIncome {
			inc[m] = inc[m].Add(amount)
		} else {
			exp[m] = exp[m].Add(amount)
		}
	}

	var flow [12]MonthFlow
	for i := range flow {
		flow[i] = MonthFlow{
			Month:   time.Month(i + 1),
			Income:  inc[i].InexactFloat64(),
			Expense: exp[i].InexactFloat64(),
		}
	}
	return flow
}

// RollingWindowIndices returns the bucket indices of the six months ending at
// current, oldest first, wrapping past January (March gives 9,10,11,0,1,2).
func RollingWindowIndices(current time.Month) [RollingWindowMonths]int {
	var idx [RollingWindowMonths]int
	cur := int(current) - 1
	for i := range idx {
		idx[i] = (cur - (RollingWindowMonths - 1 - i) + 12) % 12
	}
	return idx
}

// CashFlowWindow selects the buckets for mode. Any mode other than
// CashFlowFullYear is treated as the rolling window.
func CashFlowWindow(flow [12]MonthFlow, mode CashFlowMode, now time.Time) []MonthFlow {
	if mode == CashFlowFullYear {
		out := make([]MonthFlow, 12)
		copy(out, flow[:])
		return out
	}

	out := make([]MonthFlow, 0, RollingWindowMonths)
	for _, i := range RollingWindowIndices(now.Month()) {
		out = append(out, flow[i])
	}
	return out
}

// CategoryBreakdown sums expenses per category, largest first. Without any
// expense it returns exactly one placeholder entry.
func CategoryBreakdown(txs []*Transaction) []CategoryTotal {
	sums := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if exclusionReason(t) != "" || t.Type != TransactionExpense {
			continue
		}
		sums[categoryLabel(t.Category)] = sums[categoryLabel(t.Category)].Add(decimal.NewFromFloat(t.Amount))
	}

	if len(sums) == 0 {
		return []CategoryTotal{{Category: PlaceholderCategory, Total: PlaceholderTotal, Placeholder: true}}
	}

	out := make([]CategoryTotal, 0, len(sums))
	for name, total := range sums {
		out = append(out, CategoryTotal{Category: name, Total: total.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// BalanceTrend accumulates the monthly net flow from January to December.
// The initial balance offset is not included.
func BalanceTrend(flow [12]MonthFlow) [12]float64 {
	var trend [12]float64
	running := decimal.Zero
	for i, m := range flow {
		running = running.Add(decimal.NewFromFloat(m.Income)).Sub(decimal.NewFromFloat(m.Expense))
		trend[i] = running.InexactFloat64()
	}
	return trend
}

func categoryLabel(category string) string {
	if c := strings.TrimSpace(category); c != "" {
		return c
	}
	return DefaultCategory
}
