package fintrack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eshaffer321/fintrack-go/pkg/security"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// transactionService implements TransactionService
type transactionService struct {
	client *Client
}

func (s *transactionService) List() []*Transaction {
	c := s.client
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	return copyTransactions(c.state.transactions)
}

func (s *transactionService) Get(transactionID string) (*Transaction, error) {
	c := s.client
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	for _, t := range c.state.transactions {
		if t != nil && t.ID == transactionID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// Create sanitizes and validates params, stores the transaction and adds it
// locally together with a notification.
func (s *transactionService) Create(ctx context.Context, params *CreateTransactionParams) (*Transaction, error) {
	c := s.client
	userID, gen, err := c.requireAuth()
	if err != nil {
		return nil, err
	}
	if params == nil {
		return nil, &ValidationError{Field: "transaction", Message: "Transaction is required"}
	}

	tx := &Transaction{
		Description: security.Sanitize(params.Description),
		Amount:      params.Amount,
		Type:        TransactionType(strings.ToLower(strings.TrimSpace(string(params.Type)))),
		Category:    security.Sanitize(params.Category),
		Date:        params.Date,
	}

	res := security.ValidateTransaction(security.TransactionInput{
		Amount:      tx.Amount,
		Description: tx.Description,
		Type:        string(tx.Type),
		Category:    tx.Category,
		Date:        tx.Date,
	})
	if !res.Valid {
		return nil, newValidationError(res, params)
	}

	id, err := c.persistence.Create(ctx, CollectionTransactions, transactionDocument(userID, tx))
	if err != nil {
		return nil, c.backendError(ctx, "transactions.create", err)
	}
	tx.ID = id

	notification := transactionNotification(tx, c.now())

	c.state.mu.Lock()
	if c.state.generation != gen {
		// Session ended while the write was in flight
		c.state.mu.Unlock()
		cp := *tx
		return &cp, nil
	}
	if !containsTransaction(c.state.transactions, id) {
		stored := *tx
		c.state.transactions = append(c.state.transactions, &stored)
	}
	c.recomputeLocked()
	c.state.notifications = append([]*Notification{notification}, c.state.notifications...)
	cacheUser, snapshot := c.cacheStateLocked()
	c.state.mu.Unlock()

	c.logger.Info("Transaction created", "id", id, "type", tx.Type)
	c.saveCache(ctx, cacheUser, snapshot)

	cp := *tx
	c.publish(ctx, &Event{
		ID:          uuid.New().String(),
		Type:        EventTransactionCreated,
		UserID:      userID,
		OccurredAt:  c.now(),
		Transaction: &cp,
	})
	c.notify()

	out := *tx
	return &out, nil
}

// Delete removes a transaction remotely and then locally
func (s *transactionService) Delete(ctx context.Context, transactionID string) error {
	c := s.client
	userID, gen, err := c.requireAuth()
	if err != nil {
		return err
	}

	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return &ValidationError{Field: "id", Message: "Transaction id is required"}
	}

	if err := c.persistence.Delete(ctx, CollectionTransactions, transactionID); err != nil {
		return c.backendError(ctx, "transactions.delete", err)
	}

	c.state.mu.Lock()
	if c.state.generation != gen {
		c.state.mu.Unlock()
		return nil
	}
	var removed *Transaction
	kept := c.state.transactions[:0]
	for _, t := range c.state.transactions {
		if t.ID == transactionID {
			removed = t
			continue
		}
		kept = append(kept, t)
	}
	c.state.transactions = kept
	c.recomputeLocked()
	cacheUser, snapshot := c.cacheStateLocked()
	c.state.mu.Unlock()

	c.logger.Info("Transaction deleted", "id", transactionID)
	c.saveCache(ctx, cacheUser, snapshot)

	event := &Event{
		ID:         uuid.New().String(),
		Type:       EventTransactionDeleted,
		UserID:     userID,
		OccurredAt: c.now(),
		EntityID:   transactionID,
	}
	if removed != nil {
		cp := *removed
		event.Transaction = &cp
	}
	c.publish(ctx, event)
	c.notify()

	return nil
}

// transactionNotification builds the feed entry for a new transaction
func transactionNotification(t *Transaction, now time.Time) *Notification {
	n := &Notification{
		ID:      uuid.New().String(),
		Title:   "Income received",
		Message: fmt.Sprintf("%s of $ %s was added.", t.Description, decimal.NewFromFloat(t.Amount).StringFixed(2)),
		Date:    now,
		Type:    NotificationSuccess,
	}
	if t.Type == TransactionExpense {
		n.Title = "Expense recorded"
		n.Type = NotificationAlert
	}
	return n
}

func containsTransaction(txs []*Transaction, id string) bool {
	for _, t := range txs {
		if t.ID == id {
			return true
		}
	}
	return false
}

// ParseCreateParams builds CreateTransactionParams from a typed amount such as
// "1.234,56" or "12.5". An unparseable amount is reported as a
// *ValidationError on the amount field; the rest is validated by Create.
func ParseCreateParams(description, amount string, typ TransactionType, category string, date time.Time) (*CreateTransactionParams, error) {
	value, err := security.ParseAmount(amount)
	if err != nil {
		return nil, &ValidationError{Field: "amount", Message: "Amount must be a valid number", Value: amount}
	}
	return &CreateTransactionParams{
		Description: description,
		Amount:      value,
		Type:        typ,
		Category:    category,
		Date:        date,
	}, nil
}
