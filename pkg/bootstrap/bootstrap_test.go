package bootstrap

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eshaffer321/fintrack-go/pkg/config"
	"github.com/eshaffer321/fintrack-go/pkg/fintrack"
	"github.com/eshaffer321/fintrack-go/pkg/sqlitecache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*fintrack.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event *fintrack.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []fintrack.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []fintrack.EventType
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingExporter struct {
	report *fintrack.Report
}

func (e *recordingExporter) Export(ctx context.Context, report *fintrack.Report) error {
	e.report = report
	return nil
}

func TestNew_MemoryBackendWithSQLiteCache(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.InitialBalance = 100
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache", "fintrack.db")

	publisher := &recordingPublisher{}
	exporter := &recordingExporter{}
	var logs bytes.Buffer

	app, err := New(ctx, cfg, &Options{LogOutput: &logs, Publisher: publisher, Exporter: exporter})
	require.NoError(t, err)

	user, err := app.Client.Auth.Register(ctx, "Ana", "ana@example.com", "Secret1!")
	require.NoError(t, err)

	_, err = app.Client.Transactions.Create(ctx, &fintrack.CreateTransactionParams{
		Description: "Groceries",
		Amount:      150,
		Type:        fintrack.TransactionExpense,
		Category:    "Food",
		Date:        time.Now(),
	})
	require.NoError(t, err)

	want := fintrack.Summary{Income: 0, Expense: 150, Balance: -50}
	assert.Eventually(t, func() bool {
		return len(app.Client.Transactions.List()) == 1 && app.Client.Analytics.Summary() == want
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []fintrack.EventType{fintrack.EventTransactionCreated}, publisher.types())

	require.NoError(t, app.Export(ctx, fintrack.CashFlowFullYear))
	require.NotNil(t, exporter.report)
	assert.Len(t, exporter.report.Rows, 1)

	cache, err := sqlitecache.Open(cfg.Cache.Path)
	require.NoError(t, err)
	defer cache.Close()

	assert.Eventually(t, func() bool {
		data, err := cache.Get(ctx, "transactions_"+user.ID)
		return err == nil && strings.Contains(string(data), "Groceries")
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, app.Close())
	require.NoError(t, app.Close())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendFirebase

	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "firebase api key is required")

	_, err = New(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestApp_ExportWithoutExporter(t *testing.T) {
	app, err := New(context.Background(), config.Default(), &Options{LogOutput: &bytes.Buffer{}})
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Exporter)
	assert.Error(t, app.Export(context.Background(), fintrack.CashFlowFullYear))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "WARN"}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("op", "sync").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"op":"sync"`)
	assert.Contains(t, out, `"service":"fintrack"`)

	buf.Reset()
	fallback := NewLogger(config.LogConfig{Level: "bogus"}, &buf)
	fallback.Debug().Msg("debug")
	fallback.Info().Msg("info")
	assert.NotContains(t, buf.String(), `"message":"debug"`)
	assert.Contains(t, buf.String(), `"message":"info"`)
}
