package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

var ErrTenantNotResolved = errors.New("tenant not resolved")

// ValidationError reports a PATCH body the schema rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid menu patch: " + e.Reason
}

const defaultCategoryName = "New Category"

type Menu struct {
	ID         int64
	TenantID   string
	Categories []Category
}

type Category struct {
	ID        int64
	Name      string
	SortOrder int
	IsVisible bool
	Items     []Item
}

type Item struct {
	ID          int64
	ImageURL    string
	Name        string
	Price       string
	Description *string
	SortOrder   int
	IsVisible   bool
}

// Patch mirrors the PATCH body. A nil Categories leaves the menu untouched; a non-nil one
// replaces the whole tree.
type Patch struct {
	Categories *[]CategoryPatch `json:"categories"`
}

type CategoryPatch struct {
	ID        *int64      `json:"id"`
	Name      *string     `json:"name"`
	SortOrder *int        `json:"sortOrder"`
	IsVisible *bool       `json:"isVisible"`
	Items     []ItemPatch `json:"items"`
	// RemoveItemIDs is accepted for compatibility; replacement already drops unlisted items.
	RemoveItemIDs []int64 `json:"removeItemIds"`
}

type ItemPatch struct {
	ID          *int64  `json:"id"`
	ImageURL    *string `json:"imageUrl"`
	Name        *string `json:"name"`
	Price       *string `json:"price"`
	Description *string `json:"description"`
	SortOrder   *int    `json:"sortOrder"`
	IsVisible   *bool   `json:"isVisible"`
}

// Repository stores the category tree of a tenant.
type Repository interface {
	// Load returns every category and item, hidden ones included.
	Load(ctx context.Context, tc tenant.Context) ([]Category, error)
	// Replace swaps the whole tree atomically and returns it with assigned ids.
	Replace(ctx context.Context, tc tenant.Context, categories []Category) ([]Category, error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	if repo == nil {
		panic("menu repository is required")
	}
	return &Service{repo: repo}
}

// Get returns the public menu: categories by sort order with only visible items.
// Unresolved tenants and tenants without a menu get an empty skeleton.
func (s *Service) Get(ctx context.Context, tc tenant.Context) (Menu, error) {
	id, ok := tc.TenantID()
	if !ok {
		return Menu{Categories: []Category{}}, nil
	}

	categories, err := s.repo.Load(ctx, tc)
	if err != nil {
		return Menu{}, fmt.Errorf("load menu: %w", err)
	}
	return present(id, categories), nil
}

// Patch validates the raw body and, when it carries categories, replaces the tree.
func (s *Service) Patch(ctx context.Context, tc tenant.Context, payload []byte) (Menu, error) {
	id, ok := tc.TenantID()
	if !ok {
		return Menu{}, ErrTenantNotResolved
	}
	if err := ValidatePatch(payload); err != nil {
		return Menu{}, err
	}

	var patch Patch
	if err := json.Unmarshal(payload, &patch); err != nil {
		return Menu{}, &ValidationError{Reason: err.Error()}
	}
	if patch.Categories == nil {
		return s.Get(ctx, tc)
	}

	saved, err := s.repo.Replace(ctx, tc, build(*patch.Categories))
	if err != nil {
		return Menu{}, fmt.Errorf("replace menu: %w", err)
	}
	return present(id, saved), nil
}

// build applies creation defaults: positional sort orders starting at 1 and visible rows.
func build(patches []CategoryPatch) []Category {
	out := make([]Category, 0, len(patches))
	for i, cp := range patches {
		cat := Category{
			Name:      defaultCategoryName,
			SortOrder: i + 1,
			IsVisible: true,
			Items:     make([]Item, 0, len(cp.Items)),
		}
		if cp.Name != nil {
			cat.Name = *cp.Name
		}
		if cp.SortOrder != nil {
			cat.SortOrder = *cp.SortOrder
		}
		if cp.IsVisible != nil {
			cat.IsVisible = *cp.IsVisible
		}

		for j, ip := range cp.Items {
			item := Item{SortOrder: j + 1, IsVisible: true, Description: ip.Description}
			if ip.ImageURL != nil {
				item.ImageURL = *ip.ImageURL
			}
			if ip.Name != nil {
				item.Name = *ip.Name
			}
			if ip.Price != nil {
				item.Price = *ip.Price
			}
			if ip.SortOrder != nil {
				item.SortOrder = *ip.SortOrder
			}
			if ip.IsVisible != nil {
				item.IsVisible = *ip.IsVisible
			}
			cat.Items = append(cat.Items, item)
		}
		out = append(out, cat)
	}
	return out
}

func present(id tenant.ID, categories []Category) Menu {
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		visible := make([]Item, 0, len(c.Items))
		for _, it := range c.Items {
			if it.IsVisible {
				visible = append(visible, it)
			}
		}
		sort.SliceStable(visible, func(i, j int) bool { return visible[i].SortOrder < visible[j].SortOrder })
		c.Items = visible
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return Menu{TenantID: id.String(), Categories: out}
}
