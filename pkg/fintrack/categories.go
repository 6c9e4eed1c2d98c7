package fintrack

import (
	"context"
	"strings"

	"github.com/eshaffer321/fintrack-go/pkg/security"
	"github.com/google/uuid"
)

// categoryService implements CategoryService
type categoryService struct {
	client *Client
}

func (s *categoryService) List() []*Category {
	c := s.client
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	return copyCategories(c.state.categories)
}

func (s *categoryService) Create(ctx context.Context, params *CreateCategoryParams) (*Category, error) {
	c := s.client
	userID, gen, err := c.requireAuth()
	if err != nil {
		return nil, err
	}
	if params == nil {
		return nil, &ValidationError{Field: "category", Message: "Category is required"}
	}

	cat := &Category{
		Name:  security.Sanitize(params.Name),
		Type:  TransactionType(strings.ToLower(strings.TrimSpace(string(params.Type)))),
		Color: security.Sanitize(params.Color),
		Icon:  security.Sanitize(params.Icon),
	}

	if res := security.ValidateCategory(cat.Name, string(cat.Type)); !res.Valid {
		return nil, newValidationError(res, params)
	}

	id, err := c.persistence.Create(ctx, CollectionCategories, categoryDocument(userID, cat))
	if err != nil {
		return nil, c.backendError(ctx, "categories.create", err)
	}
	cat.ID = id

	c.state.mu.Lock()
	if c.state.generation == gen && !containsCategory(c.state.categories, id) {
		stored := *cat
		c.state.categories = append(c.state.categories, &stored)
		sortCategories(c.state.categories)
	}
	c.state.mu.Unlock()

	c.logger.Info("Category created", "id", id, "name", cat.Name)

	cp := *cat
	c.publish(ctx, &Event{
		ID:         uuid.New().String(),
		Type:       EventCategoryCreated,
		UserID:     userID,
		OccurredAt: c.now(),
		Category:   &cp,
	})
	c.notify()

	out := *cat
	return &out, nil
}

func (s *categoryService) Delete(ctx context.Context, categoryID string) error {
	c := s.client
	userID, gen, err := c.requireAuth()
	if err != nil {
		return err
	}

	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return &ValidationError{Field: "id", Message: "Category id is required"}
	}

	if err := c.persistence.Delete(ctx, CollectionCategories, categoryID); err != nil {
		return c.backendError(ctx, "categories.delete", err)
	}

	var removed *Category
	c.state.mu.Lock()
	if c.state.generation == gen {
		kept := c.state.categories[:0]
		for _, cat := range c.state.categories {
			if cat.ID == categoryID {
				removed = cat
				continue
			}
			kept = append(kept, cat)
		}
		c.state.categories = kept
	}
	c.state.mu.Unlock()

	c.logger.Info("Category deleted", "id", categoryID)

	event := &Event{
		ID:         uuid.New().String(),
		Type:       EventCategoryDeleted,
		UserID:     userID,
		OccurredAt: c.now(),
		EntityID:   categoryID,
	}
	if removed != nil {
		cp := *removed
		event.Category = &cp
	}
	c.publish(ctx, event)
	c.notify()

	return nil
}

func containsCategory(cats []*Category, id string) bool {
	for _, cat := range cats {
		if cat.ID == id {
			return true
		}
	}
	return false
}
