package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// Icon and colour given to categories created implicitly by name.
const (
	DefaultCategoryIcon  = "tag"
	DefaultCategoryColor = "#64748b"
)

// DefaultCategories is the starter set offered to new users.
var DefaultCategories = []core.Category{
	{Name: "Food & Dining", Icon: "utensils", Color: "#ef4444"},
	{Name: "Transportation", Icon: "car-front", Color: "#f59e0b"},
	{Name: "Shopping", Icon: "bag-fill", Color: "#8b5cf6"},
	{Name: "Bills & Utilities", Icon: "receipt", Color: "#3b82f6"},
	{Name: "Entertainment", Icon: "film", Color: "#ec4899"},
	{Name: "Healthcare", Icon: "heart-pulse", Color: "#10b981"},
	{Name: "Income", Icon: "cash-coin", Color: "#059669"},
	{Name: "Savings", Icon: "piggy-bank", Color: "#0f172a"},
}

// CategoryService manages a user's categories.
type CategoryService struct {
	store ports.Store
}

func NewCategoryService(store ports.Store) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) List(ctx context.Context, userID int64) ([]core.Category, error) {
	cats, err := s.store.Categories().ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// SeedDefaults creates the default categories the user does not have yet and
// returns the ones it created. Running it twice creates nothing the second time.
func (s *CategoryService) SeedDefaults(ctx context.Context, userID int64) ([]core.Category, error) {
	var created []core.Category
	err := s.store.WithinTx(ctx, func(r ports.Repositories) error {
		created = created[:0]
		for _, def := range DefaultCategories {
			_, err := r.Categories().GetCategoryByName(ctx, userID, def.Name)
			if err == nil {
				continue
			}
			if !errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("lookup category %q: %w", def.Name, err)
			}
			def.UserID = userID
			c, err := r.Categories().CreateCategory(ctx, def)
			if err != nil {
				return fmt.Errorf("create category %q: %w", def.Name, err)
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Seeded default categories", "user_id", userID, "created", len(created))
	return created, nil
}

// Delete removes a category and its budgets. Transactions that referenced it
// become uncategorized. Returns core.ErrNotFound for missing or foreign ids.
func (s *CategoryService) Delete(ctx context.Context, userID, id int64) error {
	ok, err := s.store.Categories().DeleteCategory(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// resolveCategory returns the user's category with the given name, creating
// it with the default icon and colour when missing.
func resolveCategory(ctx context.Context, repo ports.CategoryRepository, userID int64, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, core.ErrEmptyCategory
	}
	c, err := repo.GetCategoryByName(ctx, userID, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Category{}, fmt.Errorf("lookup category %q: %w", name, err)
	}
	c = core.Category{
		UserID: userID,
		Name:   name,
		Icon:   DefaultCategoryIcon,
		Color:  DefaultCategoryColor,
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c, err = repo.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category %q: %w", name, err)
	}
	return c, nil
}
