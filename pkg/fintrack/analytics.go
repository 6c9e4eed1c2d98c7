package fintrack

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

const reportTitle = "Financial Report"

// analyticsService implements AnalyticsService
type analyticsService struct {
	client *Client
}

func (s *analyticsService) Summary() Summary {
	c := s.client
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	return c.state.derived.summary
}

func (s *analyticsService) CashFlow(mode CashFlowMode) []MonthFlow {
	c := s.client
	c.state.mu.RLock()
	flow := c.state.derived.flow
	c.state.mu.RUnlock()
	return CashFlowWindow(flow, mode, c.now().In(c.options.Location))
}

func (s *analyticsService) CategoryBreakdown() []CategoryTotal {
	c := s.client
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	out := make([]CategoryTotal, len(c.state.derived.breakdown))
	copy(out, c.state.derived.breakdown)
	return out
}

func (s *analyticsService) BalanceTrend() [12]float64 {
	c := s.client
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	return c.state.derived.trend
}

// Report lists every transaction with the overall totals. Net excludes the
// initial balance.
func (s *analyticsService) Report(mode CashFlowMode) *Report {
	c := s.client
	now := c.now().In(c.options.Location)

	c.state.mu.RLock()
	summary := c.state.derived.summary
	flow := c.state.derived.flow
	rows := make([]ReportRow, 0, len(c.state.transactions))
	for _, t := range c.state.transactions {
		if t == nil {
			continue
		}
		rows = append(rows, ReportRow{
			Date:        t.Date.In(c.options.Location),
			Description: t.Description,
			Category:    categoryLabel(t.Category),
			Type:        t.Type,
			Amount:      t.Amount,
		})
	}
	c.state.mu.RUnlock()

	if mode != CashFlowFullYear {
		mode = CashFlowRollingSixMonths
	}

	return &Report{
		Title:       reportTitle,
		Period:      periodLabel(mode),
		Mode:        mode,
		GeneratedAt: now,
		Income:      summary.Income,
		Expense:     summary.Expense,
		Net:         decimal.NewFromFloat(summary.Income).Sub(decimal.NewFromFloat(summary.Expense)).InexactFloat64(),
		CashFlow:    CashFlowWindow(flow, mode, now),
		Rows:        rows,
	}
}

// Export builds the report for mode and hands it to exporter
func (s *analyticsService) Export(ctx context.Context, mode CashFlowMode, exporter ReportExporter) error {
	if exporter == nil {
		return errors.New("fintrack: exporter is required")
	}

	c := s.client
	if _, _, err := c.requireAuth(); err != nil {
		return err
	}

	report := s.Report(mode)
	if err := exporter.Export(ctx, report); err != nil {
		return c.backendError(ctx, "analytics.export", err)
	}

	c.logger.Info("Report exported", "rows", len(report.Rows), "period", report.Period)
	return nil
}

func periodLabel(mode CashFlowMode) string {
	if mode == CashFlowFullYear {
		return "Current year"
	}
	return "Last 6 months"
}
