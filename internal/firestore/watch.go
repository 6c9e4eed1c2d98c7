package firestore

import (
	"context"
	"sort"
	"strings"
	"time"
)

// DefaultPollInterval is used by Watch when no interval is given
const DefaultPollInterval = 5 * time.Second

// WatchOptions configures Watch
type WatchOptions struct {
	Interval time.Duration
	Filters  []FieldFilter
	// OnError receives query failures; polling continues afterwards
	OnError func(error)
	// Initial is a result set the caller already has. When set, the first
	// poll is only delivered if it differs.
	Initial []Document
}

// Watch polls a collection and calls fn with the full result set whenever it
// differs from the previous poll. Without opts.Initial the first successful
// poll is always delivered. Watch blocks until ctx is done.
func (c *Client) Watch(ctx context.Context, collection string, opts WatchOptions, fn func([]Document)) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	delivered := false
	if opts.Initial != nil {
		last = fingerprint(opts.Initial)
		delivered = true
	}

	poll := func() {
		docs, err := c.Query(ctx, collection, opts.Filters...)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if c.logger != nil {
				c.logger.Warn("Watch poll failed", "collection", collection, "error", err)
			}
			if opts.OnError != nil {
				opts.OnError(err)
			}
			return
		}

		fp := fingerprint(docs)
		if delivered && fp == last {
			return
		}
		last = fp
		delivered = true
		fn(docs)
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}

// fingerprint identifies a result set by document ids and update times
func fingerprint(docs []Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.ID+"@"+d.UpdateTime.UTC().Format(time.RFC3339Nano))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
