// Package gsheets exports fintrack reports to a Google Sheets spreadsheet.
package gsheets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/eshaffer321/fintrack-go/pkg/fintrack"
	"github.com/pkg/errors"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab reports are appended to
const DefaultSheetName = "Report"

const dateLayout = "2006-01-02"

// Options configures an Exporter
type Options struct {
	// SpreadsheetID of the target spreadsheet. Required.
	SpreadsheetID string

	// SheetName overrides DefaultSheetName
	SheetName string

	// Service account credentials, inline or as a file path. Without either,
	// application default credentials are used.
	CredentialsJSON []byte
	CredentialsFile string

	// ClientOptions are passed to the Sheets service, e.g. an endpoint override
	ClientOptions []goption.ClientOption

	Logger fintrack.Logger
}

// Exporter implements fintrack.ReportExporter by appending the report to a sheet
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        fintrack.Logger
}

var _ fintrack.ReportExporter = (*Exporter)(nil)

// New creates the Sheets service and the exporter
func New(ctx context.Context, opts *Options) (*Exporter, error) {
	if opts == nil || strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("gsheets: spreadsheet id is required")
	}

	clientOpts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	switch {
	case len(opts.CredentialsJSON) > 0:
		clientOpts = append(clientOpts, goption.WithCredentialsJSON(opts.CredentialsJSON))
	case opts.CredentialsFile != "":
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, errors.Wrap(err, "read service account file")
		}
		clientOpts = append(clientOpts, goption.WithCredentialsJSON(data))
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create sheets service")
	}

	return NewWithService(svc, opts), nil
}

// NewWithService uses an existing Sheets service
func NewWithService(svc *gsheet.Service, opts *Options) *Exporter {
	e := &Exporter{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(opts.SpreadsheetID),
		sheetName:     opts.SheetName,
		logger:        opts.Logger,
	}
	if e.sheetName == "" {
		e.sheetName = DefaultSheetName
	}
	return e
}

// Export appends the report below the existing content of the sheet
func (e *Exporter) Export(ctx context.Context, report *fintrack.Report) error {
	if report == nil {
		return errors.New("gsheets: report is required")
	}
	if e.svc == nil {
		return errors.New("gsheets: sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:E", e.sheetName)
	vr := &gsheet.ValueRange{Values: reportValues(report)}

	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "append report to sheet %s", e.sheetName)
	}

	if e.logger != nil {
		updated := ""
		if resp.Updates != nil {
			updated = resp.Updates.UpdatedRange
		}
		e.logger.Info("Report exported", "sheet", e.sheetName, "range", updated, "rows", len(report.Rows))
	}
	return nil
}

// reportValues lays the report out as a header, totals, the cash flow and
// one line per transaction
func reportValues(r *fintrack.Report) [][]interface{} {
	values := [][]interface{}{
		{r.Title, r.Period, r.GeneratedAt.Format(dateLayout)},
		{"Income", "Expense", "Net"},
		{r.Income, r.Expense, r.Net},
		{},
		{"Month", "Income", "Expense", "Net"},
	}
	for _, m := range r.CashFlow {
		values = append(values, []interface{}{m.Month.String(), m.Income, m.Expense, m.Net()})
	}

	values = append(values, []interface{}{}, []interface{}{"Date", "Description", "Category", "Type", "Amount"})
	for _, row := range r.Rows {
		date := ""
		if !row.Date.IsZero() {
			date = row.Date.Format(dateLayout)
		}
		values = append(values, []interface{}{date, row.Description, row.Category, string(row.Type), row.Amount})
	}
	return values
}
