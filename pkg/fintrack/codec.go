package fintrack

import (
	"strings"
)

// Collection names and the owner field used by the persistence collaborator
const (
	CollectionTransactions = "transactions"
	CollectionCategories   = "categories"

	FieldUserID = "userId"
)

func userFilter(userID string) Filter {
	return Filter{Field: FieldUserID, Value: userID}
}

func transactionDocument(userID string, t *Transaction) Document {
	return Document{
		FieldUserID:   userID,
		"description": t.Description,
		"amount":      t.Amount,
		"type":        string(t.Type),
		"category":    t.Category,
		"date":        t.Date,
	}
}

// transactionFromSnapshot decodes a stored transaction. Malformed fields are
// kept as zero or NaN values; aggregation skips them.
func transactionFromSnapshot(s DocumentSnapshot) *Transaction {
	t := &Transaction{
		ID:          s.ID,
		Description: coerceString(s.Data["description"]),
		Amount:      coerceFloat(s.Data["amount"]),
		Type:        TransactionType(strings.ToLower(coerceString(s.Data["type"]))),
		Category:    coerceString(s.Data["category"]),
	}
	if date, ok := coerceTime(s.Data["date"]); ok {
		t.Date = date
	}
	return t
}

func categoryDocument(userID string, c *Category) Document {
	doc := Document{
		FieldUserID: userID,
		"name":      c.Name,
		"type":      string(c.Type),
	}
	if c.Color != "" {
		doc["color"] = c.Color
	}
	if c.Icon != "" {
		doc["icon"] = c.Icon
	}
	return doc
}

func categoryFromSnapshot(s DocumentSnapshot) *Category {
	return &Category{
		ID:    s.ID,
		Name:  coerceString(s.Data["name"]),
		Type:  TransactionType(strings.ToLower(coerceString(s.Data["type"]))),
		Color: coerceString(s.Data["color"]),
		Icon:  coerceString(s.Data["icon"]),
	}
}
