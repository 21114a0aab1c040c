package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

var ErrTenantNotResolved = errors.New("tenant not resolved")

// ValidationError reports a PATCH body the schema rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid carousel patch: " + e.Reason
}

// Carousel is the ordered image strip of a tenant's landing page. ID is zero until the first
// PATCH stores it.
type Carousel struct {
	ID       int64
	TenantID string
	Items    []Item
}

type Item struct {
	ID          int64
	ImageURL    string
	Description *string
}

// Patch mirrors the PATCH body. A nil Items leaves the carousel untouched; a non-nil one
// replaces every item.
type Patch struct {
	Items *[]ItemPatch `json:"items"`
}

type ItemPatch struct {
	ImageURL    *string `json:"imageUrl"`
	Description *string `json:"description"`
}

// Repository stores one carousel per tenant.
type Repository interface {
	// Load returns the stored carousel, or a zero Carousel with no items when there is none.
	Load(ctx context.Context, tc tenant.Context) (Carousel, error)
	// Replace creates the carousel if needed and swaps its items atomically, keeping their order.
	Replace(ctx context.Context, tc tenant.Context, items []Item) (Carousel, error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	if repo == nil {
		panic("carousel repository is required")
	}
	return &Service{repo: repo}
}

// Get returns the carousel of the resolved tenant. Unresolved tenants and tenants that never
// stored one get an empty carousel.
func (s *Service) Get(ctx context.Context, tc tenant.Context) (Carousel, error) {
	id, ok := tc.TenantID()
	if !ok {
		return Carousel{Items: []Item{}}, nil
	}

	c, err := s.repo.Load(ctx, tc)
	if err != nil {
		return Carousel{}, fmt.Errorf("load carousel: %w", err)
	}
	return present(id, c), nil
}

// Patch validates the raw body and, when it carries items, replaces them. Items without an
// image URL are dropped.
func (s *Service) Patch(ctx context.Context, tc tenant.Context, payload []byte) (Carousel, error) {
	id, ok := tc.TenantID()
	if !ok {
		return Carousel{}, ErrTenantNotResolved
	}
	if err := ValidatePatch(payload); err != nil {
		return Carousel{}, err
	}

	var patch Patch
	if err := json.Unmarshal(payload, &patch); err != nil {
		return Carousel{}, &ValidationError{Reason: err.Error()}
	}
	if patch.Items == nil {
		return s.Get(ctx, tc)
	}

	items := make([]Item, 0, len(*patch.Items))
	for _, p := range *patch.Items {
		if p.ImageURL == nil || strings.TrimSpace(*p.ImageURL) == "" {
			continue
		}
		items = append(items, Item{ImageURL: *p.ImageURL, Description: p.Description})
	}

	saved, err := s.repo.Replace(ctx, tc, items)
	if err != nil {
		return Carousel{}, fmt.Errorf("replace carousel: %w", err)
	}
	return present(id, saved), nil
}

func present(id tenant.ID, c Carousel) Carousel {
	c.TenantID = id.String()
	if c.Items == nil {
		c.Items = []Item{}
	}
	return c
}
