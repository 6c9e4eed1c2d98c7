package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/eshaffer321/fintrack-go/pkg/fintrack"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type watcher struct {
	collection string
	filter     fintrack.Filter
	feed       *fintrack.SnapshotFeed
}

// Persistence implements fintrack.Persistence. Every change is pushed to the
// matching subscriptions as a full result set.
type Persistence struct {
	mu       sync.Mutex
	docs     map[string]map[string]fintrack.Document
	watchers map[int]*watcher
	next     int
}

var _ fintrack.Persistence = (*Persistence)(nil)

// NewPersistence creates an empty document store
func NewPersistence() *Persistence {
	return &Persistence{
		docs:     make(map[string]map[string]fintrack.Document),
		watchers: make(map[int]*watcher),
	}
}

// Create implements fintrack.Persistence
func (p *Persistence) Create(ctx context.Context, collection string, doc fintrack.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := uuid.New().String()
	p.mu.Lock()
	if p.docs[collection] == nil {
		p.docs[collection] = make(map[string]fintrack.Document)
	}
	p.docs[collection][id] = copyDocument(doc)
	p.mu.Unlock()

	p.broadcast(collection)
	return id, nil
}

// Delete implements fintrack.Persistence. Deleting a missing document is not an error.
func (p *Persistence) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return errors.New("memory: document id is required")
	}

	p.mu.Lock()
	delete(p.docs[collection], id)
	p.mu.Unlock()

	p.broadcast(collection)
	return nil
}

// Subscribe implements fintrack.Persistence. The current result set is
// delivered immediately.
func (p *Persistence) Subscribe(ctx context.Context, collection string, filter fintrack.Filter) (fintrack.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	id := p.next
	p.next++
	feed := fintrack.NewSnapshotFeed(func() {
		p.mu.Lock()
		delete(p.watchers, id)
		p.mu.Unlock()
	})
	w := &watcher{collection: collection, filter: filter, feed: feed}
	p.watchers[id] = w
	feed.Publish(p.snapshotLocked(collection, filter))
	p.mu.Unlock()

	return feed, nil
}

// Documents returns the stored documents of a collection
func (p *Persistence) Documents(collection string) []fintrack.DocumentSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked(collection, fintrack.Filter{})
}

func (p *Persistence) broadcast(collection string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, w := range p.watchers {
		if w.collection == collection {
			w.feed.Publish(p.snapshotLocked(collection, w.filter))
		}
	}
}

func (p *Persistence) snapshotLocked(collection string, filter fintrack.Filter) []fintrack.DocumentSnapshot {
	out := make([]fintrack.DocumentSnapshot, 0, len(p.docs[collection]))
	for id, doc := range p.docs[collection] {
		if filter.Field != "" && doc[filter.Field] != filter.Value {
			continue
		}
		out = append(out, fintrack.DocumentSnapshot{ID: id, Data: copyDocument(doc)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyDocument(doc fintrack.Document) fintrack.Document {
	out := make(fintrack.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
