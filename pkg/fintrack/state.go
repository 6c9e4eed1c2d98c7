package fintrack

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// derived holds the aggregates recomputed after every collection change
type derived struct {
	summary   Summary
	flow      [12]MonthFlow
	breakdown []CategoryTotal
	trend     [12]float64
}

// store is the mutable session state. generation changes on every session
// boundary; results carrying an older generation are dropped.
type store struct {
	mu            sync.RWMutex
	status        AuthState
	generation    uint64
	user          *UserProfile
	transactions  []*Transaction
	categories    []*Category
	notifications []*Notification
	derived       derived

	// fresh is set once the transaction subscription has delivered
	fresh  bool
	subs   []Subscription
	cancel context.CancelFunc
}

func newStore() *store {
	return &store{status: StateLoggedOut}
}

func (s *store) profile() *UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// cacheSnapshot is the local cache payload
type cacheSnapshot struct {
	Transactions []*Transaction `json:"transactions"`
}

// requireAuth returns the signed-in user id and the current generation
func (c *Client) requireAuth() (string, uint64, error) {
	if c.isClosed() {
		return "", 0, ErrClosed
	}

	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	if c.state.status != StateAuthenticated || c.state.user == nil {
		return "", 0, ErrNotAuthenticated
	}
	return c.state.user.ID, c.state.generation, nil
}

// beginAuth moves to Authenticating, dropping any previous session
func (c *Client) beginAuth() uint64 {
	c.state.mu.Lock()
	subs, cancel := c.resetLocked()
	c.state.status = StateAuthenticating
	gen := c.state.generation
	c.state.mu.Unlock()

	closeSubscriptions(subs, cancel)
	c.notify()
	return gen
}

// beginRestore starts authenticating ident unless it is already the active session
func (c *Client) beginRestore(ident *Identity) (uint64, bool) {
	c.state.mu.Lock()
	switch c.state.status {
	case StateAuthenticating:
		c.state.mu.Unlock()
		return 0, false
	case StateAuthenticated:
		if c.state.user != nil && c.state.user.ID == ident.UserID {
			c.state.mu.Unlock()
			return 0, false
		}
	}
	subs, cancel := c.resetLocked()
	c.state.status = StateAuthenticating
	gen := c.state.generation
	c.state.mu.Unlock()

	closeSubscriptions(subs, cancel)
	return gen, true
}

// abortAuth returns to LoggedOut if gen is still the pending session
func (c *Client) abortAuth(gen uint64) {
	c.state.mu.Lock()
	changed := c.state.generation == gen && c.state.status == StateAuthenticating
	if changed {
		c.state.status = StateLoggedOut
	}
	c.state.mu.Unlock()

	if changed {
		c.notify()
	}
}

// establish completes authentication for gen: populates the profile, restores
// the cached transaction list and opens the collection subscriptions.
func (c *Client) establish(ctx context.Context, gen uint64, ident *Identity, name string) (*UserProfile, error) {
	if ident == nil || ident.UserID == "" {
		c.abortAuth(gen)
		return nil, newBackendError("auth", errors.New("identity without user id"))
	}

	profile := profileFromIdentity(ident, name)

	c.state.mu.Lock()
	if c.state.generation != gen || c.state.status != StateAuthenticating {
		c.state.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.state.user = profile
	c.state.status = StateAuthenticated
	c.state.cancel = cancel
	c.state.mu.Unlock()

	c.logger.Info("Session established", "userId", profile.ID)

	c.restoreCache(subCtx, gen, profile.ID)
	c.openSubscriptions(subCtx, gen, profile.ID)
	c.notify()

	out := *profile
	return &out, nil
}

func profileFromIdentity(ident *Identity, name string) *UserProfile {
	if name == "" {
		name = ident.DisplayName
	}
	if name == "" {
		name = DefaultUserName
	}
	return &UserProfile{
		ID:     ident.UserID,
		Name:   name,
		Email:  ident.Email,
		Avatar: ident.PhotoURL,
	}
}

// openSubscriptions subscribes to both collections concurrently. A failed
// subscription is logged; the session stays authenticated.
func (c *Client) openSubscriptions(ctx context.Context, gen uint64, userID string) {
	var txSub, catSub Subscription

	var g errgroup.Group
	g.Go(func() error {
		sub, err := c.persistence.Subscribe(ctx, CollectionTransactions, userFilter(userID))
		if err != nil {
			return errors.Wrap(err, "failed to subscribe to transactions")
		}
		txSub = sub
		return nil
	})
	g.Go(func() error {
		sub, err := c.persistence.Subscribe(ctx, CollectionCategories, userFilter(userID))
		if err != nil {
			return errors.Wrap(err, "failed to subscribe to categories")
		}
		catSub = sub
		return nil
	})

	if err := g.Wait(); err != nil {
		c.logger.Error("Subscription failed", "userId", userID, "error", err)
		c.captureError(ctx, "subscribe", err)
	}

	var opened []Subscription
	for _, sub := range []Subscription{txSub, catSub} {
		if sub != nil {
			opened = append(opened, sub)
		}
	}

	c.state.mu.Lock()
	if c.state.generation != gen {
		c.state.mu.Unlock()
		closeSubscriptions(opened, nil)
		return
	}
	c.state.subs = append(c.state.subs, opened...)
	c.state.mu.Unlock()

	if txSub != nil {
		go func() {
			for snaps := range txSub.Updates() {
				c.applyTransactionSnapshot(ctx, gen, snaps)
			}
		}()
	}
	if catSub != nil {
		go func() {
			for snaps := range catSub.Updates() {
				c.applyCategorySnapshot(gen, snaps)
			}
		}()
	}
}

// applyTransactionSnapshot replaces the transaction list and recomputes
func (c *Client) applyTransactionSnapshot(ctx context.Context, gen uint64, snaps []DocumentSnapshot) {
	txs := make([]*Transaction, 0, len(snaps))
	for _, s := range snaps {
		txs = append(txs, transactionFromSnapshot(s))
	}

	c.state.mu.Lock()
	if c.state.generation != gen {
		c.state.mu.Unlock()
		return
	}
	c.state.transactions = txs
	c.state.fresh = true
	c.recomputeLocked()
	userID, snapshot := c.cacheStateLocked()
	c.state.mu.Unlock()

	c.logger.Debug("Transactions updated", "count", len(txs))
	c.saveCache(ctx, userID, snapshot)
	c.notify()
}

// applyCategorySnapshot replaces the category list
func (c *Client) applyCategorySnapshot(gen uint64, snaps []DocumentSnapshot) {
	cats := make([]*Category, 0, len(snaps))
	for _, s := range snaps {
		cats = append(cats, categoryFromSnapshot(s))
	}
	sortCategories(cats)

	c.state.mu.Lock()
	if c.state.generation != gen {
		c.state.mu.Unlock()
		return
	}
	c.state.categories = cats
	c.state.mu.Unlock()

	c.logger.Debug("Categories updated", "count", len(cats))
	c.notify()
}

// reset clears every local collection and closes subscriptions
func (c *Client) reset() {
	c.state.mu.Lock()
	subs, cancel := c.resetLocked()
	c.state.mu.Unlock()

	closeSubscriptions(subs, cancel)
	c.notify()
}

func (c *Client) resetLocked() ([]Subscription, context.CancelFunc) {
	subs, cancel := c.state.subs, c.state.cancel

	c.state.generation++
	c.state.status = StateLoggedOut
	c.state.user = nil
	c.state.transactions = nil
	c.state.categories = nil
	c.state.notifications = nil
	c.state.fresh = false
	c.state.subs = nil
	c.state.cancel = nil
	c.recomputeLocked()

	return subs, cancel
}

func closeSubscriptions(subs []Subscription, cancel context.CancelFunc) {
	if cancel != nil {
		cancel()
	}
	for _, sub := range subs {
		_ = sub.Close()
	}
}

// recomputeLocked re-sorts transactions and rebuilds every aggregate
func (c *Client) recomputeLocked() {
	txs := c.state.transactions
	sortTransactions(txs)

	for _, t := range txs {
		if t == nil {
			continue
		}
		if reason := exclusionReason(t); reason != "" {
			c.logger.Debug("Transaction excluded from aggregates", "id", t.ID, "reason", reason)
		}
	}

	flow := MonthlyCashFlow(txs, c.options.Location)
	c.state.derived = derived{
		summary:   Summarize(txs, c.options.InitialBalance),
		flow:      flow,
		breakdown: CategoryBreakdown(txs),
		trend:     BalanceTrend(flow),
	}
}

// cacheStateLocked returns the user id and a copy of the transaction list
func (c *Client) cacheStateLocked() (string, []*Transaction) {
	if c.state.user == nil {
		return "", nil
	}
	return c.state.user.ID, copyTransactions(c.state.transactions)
}

// restoreCache loads the last known transaction list unless the subscription
// has already delivered
func (c *Client) restoreCache(ctx context.Context, gen uint64, userID string) {
	if c.cache == nil {
		return
	}

	data, err := c.cache.Get(ctx, c.cacheKey(userID))
	if err != nil {
		c.logger.Warn("Failed to read transaction cache", "userId", userID, "error", err)
		return
	}
	if len(data) == 0 {
		return
	}

	var snapshot cacheSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		c.logger.Warn("Ignoring unreadable transaction cache", "userId", userID, "error", err)
		return
	}

	txs := make([]*Transaction, 0, len(snapshot.Transactions))
	for _, t := range snapshot.Transactions {
		if t != nil {
			txs = append(txs, t)
		}
	}

	c.state.mu.Lock()
	if c.state.generation != gen || c.state.fresh {
		c.state.mu.Unlock()
		return
	}
	c.state.transactions = txs
	c.recomputeLocked()
	c.state.mu.Unlock()

	c.logger.Debug("Transactions restored from cache", "userId", userID, "count", len(txs))
}

func (c *Client) saveCache(ctx context.Context, userID string, txs []*Transaction) {
	if c.cache == nil || userID == "" {
		return
	}

	// JSON cannot carry NaN or Inf amounts
	encodable := make([]*Transaction, 0, len(txs))
	for _, t := range txs {
		if t != nil && !math.IsNaN(t.Amount) && !math.IsInf(t.Amount, 0) {
			encodable = append(encodable, t)
		}
	}
	data, err := json.Marshal(cacheSnapshot{Transactions: encodable})
	if err != nil {
		c.logger.Warn("Failed to encode transaction cache", "error", err)
		return
	}
	if err := c.cache.Set(ctx, c.cacheKey(userID), data); err != nil {
		c.logger.Warn("Failed to write transaction cache", "userId", userID, "error", err)
	}
}

// sortTransactions orders by date, newest first, with nil entries last. Equal
// dates keep no particular order.
func sortTransactions(txs []*Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if txs[i] == nil || txs[j] == nil {
			return txs[j] == nil && txs[i] != nil
		}
		return txs[i].Date.After(txs[j].Date)
	})
}

func sortCategories(cats []*Category) {
	sort.Slice(cats, func(i, j int) bool {
		return strings.ToLower(cats[i].Name) < strings.ToLower(cats[j].Name)
	})
}

func copyTransactions(txs []*Transaction) []*Transaction {
	out := make([]*Transaction, len(txs))
	for i, t := range txs {
		if t == nil {
			continue
		}
		cp := *t
		out[i] = &cp
	}
	return out
}

func copyCategories(cats []*Category) []*Category {
	out := make([]*Category, len(cats))
	for i, cat := range cats {
		cp := *cat
		out[i] = &cp
	}
	return out
}

func copyNotifications(ns []*Notification) []*Notification {
	out := make([]*Notification, len(ns))
	for i, n := range ns {
		cp := *n
		out[i] = &cp
	}
	return out
}
