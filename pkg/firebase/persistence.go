package firebase

import (
	"context"
	"time"

	"github.com/eshaffer321/fintrack-go/internal/firestore"
	"github.com/eshaffer321/fintrack-go/internal/types"
	"github.com/eshaffer321/fintrack-go/pkg/fintrack"
	"github.com/pkg/errors"
)

// Persistence implements fintrack.Persistence on Firestore. Subscriptions
// poll the collection and deliver full result sets when they change.
type Persistence struct {
	client   *firestore.Client
	interval time.Duration
	logger   types.Logger
}

var _ fintrack.Persistence = (*Persistence)(nil)

func newPersistence(client *firestore.Client, interval time.Duration, logger types.Logger) *Persistence {
	if interval <= 0 {
		interval = firestore.DefaultPollInterval
	}
	return &Persistence{client: client, interval: interval, logger: logger}
}

// Create implements fintrack.Persistence
func (p *Persistence) Create(ctx context.Context, collection string, doc fintrack.Document) (string, error) {
	return p.client.Create(ctx, collection, doc)
}

// Delete implements fintrack.Persistence
func (p *Persistence) Delete(ctx context.Context, collection, id string) error {
	return p.client.Delete(ctx, collection, id)
}

// Subscribe runs the first query synchronously so that permission and index
// errors are returned here. Polling continues until the subscription is closed
// or ctx is done.
func (p *Persistence) Subscribe(ctx context.Context, collection string, filter fintrack.Filter) (fintrack.Subscription, error) {
	var filters []firestore.FieldFilter
	if filter.Field != "" {
		filters = append(filters, firestore.Equal(filter.Field, filter.Value))
	}

	docs, err := p.client.Query(ctx, collection, filters...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to subscribe to %s", collection)
	}
	if docs == nil {
		docs = []firestore.Document{}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	feed := fintrack.NewSnapshotFeed(cancel)
	feed.Publish(toSnapshots(docs))

	go p.client.Watch(watchCtx, collection, firestore.WatchOptions{
		Interval: p.interval,
		Filters:  filters,
		Initial:  docs,
	}, func(docs []firestore.Document) {
		feed.Publish(toSnapshots(docs))
	})

	if p.logger != nil {
		p.logger.Debug("Subscribed", "collection", collection, "documents", len(docs))
	}
	return feed, nil
}

func toSnapshots(docs []firestore.Document) []fintrack.DocumentSnapshot {
	out := make([]fintrack.DocumentSnapshot, 0, len(docs))
	for _, d := range docs {
		out = append(out, fintrack.DocumentSnapshot{ID: d.ID, Data: fintrack.Document(d.Fields)})
	}
	return out
}
