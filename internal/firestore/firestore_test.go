package firestore

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eshaffer321/fintrack-go/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token(ctx context.Context) (string, error) { return string(s), nil }

func TestValueCodec_RoundTrip(t *testing.T) {
	date := time.Date(2025, 1, 15, 10, 30, 0, 123000000, time.UTC)
	fields := map[string]interface{}{
		"description": "Groceries",
		"amount":      150.5,
		"count":       int64(3),
		"recurring":   false,
		"date":        date,
		"note":        nil,
		"meta":        map[string]interface{}{"source": "manual"},
		"tags":        []interface{}{"food", "weekly"},
	}

	encoded, err := EncodeFields(fields)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15T10:30:00.123Z", encoded["date"]["timestampValue"])
	assert.Equal(t, "3", encoded["count"]["integerValue"])

	// Go through JSON as the wire does
	raw, err := json.Marshal(encoded)
	require.NoError(t, err)
	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &wire))

	decoded, err := DecodeFields(wire)
	require.NoError(t, err)
	assert.Equal(t, fields, decoded)
	assert.True(t, date.Equal(decoded["date"].(time.Time)))
}

func TestEncodeValue_Unsupported(t *testing.T) {
	_, err := EncodeValue(struct{}{})
	assert.Error(t, err)
}

func TestDecodeValue_Special(t *testing.T) {
	v, err := DecodeValue(map[string]interface{}{"doubleValue": "NaN"})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v.(float64)))

	_, err = DecodeValue(map[string]interface{}{"timestampValue": "yesterday"})
	assert.Error(t, err)

	_, err = DecodeValue(map[string]interface{}{"integerValue": "x"})
	assert.Error(t, err)
}

type fakeFirestore struct {
	mu      sync.Mutex
	docs    map[string]restDocument
	seq     int
	queries int
	lastReq map[string]interface{}
}

func (f *fakeFirestore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	const prefix = "/v1/projects/demo/databases/(default)/documents"
	path := strings.TrimPrefix(r.URL.Path, prefix)

	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.lastReq = body

	switch {
	case r.Method == http.MethodPost && path == ":runQuery":
		f.queries++
		var rows []map[string]interface{}
		for _, d := range f.docs {
			rows = append(rows, map[string]interface{}{"document": d})
		}
		rows = append(rows, map[string]interface{}{"readTime": "2025-01-01T00:00:00Z"})
		_ = json.NewEncoder(w).Encode(rows)
	case r.Method == http.MethodPost:
		f.seq++
		name := prefix[4:] + path + "/doc" + string(rune('0'+f.seq))
		fields, _ := body["fields"].(map[string]interface{})
		doc := restDocument{Name: name, Fields: fields, UpdateTime: time.Now().UTC().Format(time.RFC3339Nano)}
		f.docs[name] = doc
		_ = json.NewEncoder(w).Encode(doc)
	case r.Method == http.MethodDelete:
		for name := range f.docs {
			if strings.HasSuffix(name, path) {
				delete(f.docs, name)
			}
		}
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeFirestore) {
	t.Helper()
	fake := &fakeFirestore{docs: map[string]restDocument{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	c, err := NewClient(&Options{
		ProjectID: "demo",
		BaseURL:   server.URL + "/v1",
		Transport: transport.NewHTTPTransport(&transport.Options{TokenSource: staticToken("tok")}),
	})
	require.NoError(t, err)
	return c, fake
}

func TestNewClient_RequiresProject(t *testing.T) {
	_, err := NewClient(&Options{})
	assert.Error(t, err)
	_, err = NewClient(nil)
	assert.Error(t, err)
}

func TestClient_CreateQueryDelete(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	id, err := c.Create(ctx, "transactions", map[string]interface{}{
		"userId":      "u1",
		"description": "Groceries",
		"amount":      150.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "doc1", id)

	docs, err := c.Query(ctx, "transactions", Equal("userId", "u1"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc1", docs[0].ID)
	assert.Equal(t, "Groceries", docs[0].Fields["description"])
	assert.Equal(t, 150.0, docs[0].Fields["amount"])

	sq := fake.lastReq["structuredQuery"].(map[string]interface{})
	where := sq["where"].(map[string]interface{})
	ff := where["fieldFilter"].(map[string]interface{})
	assert.Equal(t, "EQUAL", ff["op"])

	require.NoError(t, c.Delete(ctx, "transactions", id))
	docs, err = c.Query(ctx, "transactions")
	require.NoError(t, err)
	assert.Empty(t, docs)

	assert.Error(t, c.Delete(ctx, "transactions", ""))
}

func TestBuildWhere_Composite(t *testing.T) {
	where, err := buildWhere([]FieldFilter{Equal("userId", "u1"), Equal("type", "expense")})
	require.NoError(t, err)
	composite := where["compositeFilter"].(map[string]interface{})
	assert.Equal(t, "AND", composite["op"])
	assert.Len(t, composite["filters"], 2)

	where, err = buildWhere(nil)
	require.NoError(t, err)
	assert.Nil(t, where)
}

func TestClient_WatchDeliversChanges(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan []Document, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Watch(ctx, "transactions", WatchOptions{Interval: 10 * time.Millisecond}, func(docs []Document) {
			snapshots <- docs
		})
	}()

	first := <-snapshots
	assert.Empty(t, first)

	_, err := c.Create(context.Background(), "transactions", map[string]interface{}{"userId": "u1"})
	require.NoError(t, err)

	select {
	case second := <-snapshots:
		assert.Len(t, second, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after create")
	}

	cancel()
	<-done
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := Document{ID: "a"}
	b := Document{ID: "b"}
	assert.Equal(t, fingerprint([]Document{a, b}), fingerprint([]Document{b, a}))
	assert.NotEqual(t, fingerprint([]Document{a}), fingerprint([]Document{a, b}))
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "abc", documentID("projects/p/databases/(default)/documents/transactions/abc"))
	assert.Equal(t, "abc", documentID("abc"))
}

func TestClient_WatchSkipsKnownInitialSet(t *testing.T) {
	c, fake := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan []Document, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Watch(ctx, "transactions", WatchOptions{Interval: 10 * time.Millisecond, Initial: []Document{}}, func(docs []Document) {
			snapshots <- docs
		})
	}()

	require.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return fake.queries >= 3
	}, 2*time.Second, 5*time.Millisecond)

	select {
	case docs := <-snapshots:
		t.Fatalf("unexpected delivery of unchanged set %v", docs)
	default:
	}

	cancel()
	<-done
}
