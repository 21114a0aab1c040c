package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

var (
	ErrTenantNotResolved = errors.New("tenant not resolved")
	ErrEmptyPatch        = errors.New("patch has no fields")
)

// FieldError reports a patch key the section does not accept.
type FieldError struct {
	Section string
	Field   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %q cannot be patched", e.Section, e.Field)
}

// Field maps a JSON key to its column. Read-only fields are returned but never patched.
type Field struct {
	Key      string
	Column   string
	ReadOnly bool
}

// Section is one single-row-per-tenant document.
type Section struct {
	Name   string
	Table  string
	Fields []Field
}

var (
	About = Section{
		Name:  "about",
		Table: "site_about",
		Fields: []Field{
			{Key: "title", Column: "title"},
			{Key: "description", Column: "description"},
			{Key: "imageUrl", Column: "image_url", ReadOnly: true},
		},
	}
	Socials = Section{
		Name:  "socials",
		Table: "site_socials",
		Fields: []Field{
			{Key: "email", Column: "email"},
			{Key: "phone", Column: "phone"},
			{Key: "facebook", Column: "facebook"},
		},
	}
	Address = Section{
		Name:  "address",
		Table: "site_address",
		Fields: []Field{
			{Key: "street", Column: "street"},
			{Key: "city", Column: "city"},
			{Key: "state", Column: "state"},
			{Key: "zipcode", Column: "zipcode"},
		},
	}
)

// Sections lists every section in route order.
func Sections() []Section {
	return []Section{About, Socials, Address}
}

// Default is the document served when the tenant has no row yet.
func (s Section) Default() Document {
	doc := make(Document, len(s.Fields))
	for _, f := range s.Fields {
		doc[f.Key] = ""
	}
	return doc
}

// Writable returns the fields a patch may set.
func (s Section) Writable() []Field {
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if !f.ReadOnly {
			out = append(out, f)
		}
	}
	return out
}

func (s Section) field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Document is a section's content keyed by JSON field name.
type Document map[string]string

// Patch carries the fields to change; nil values leave the stored value untouched.
type Patch map[string]*string

// Repository persists section documents for a tenant.
type Repository interface {
	Load(ctx context.Context, tc tenant.Context, section Section) (Document, bool, error)
	Save(ctx context.Context, tc tenant.Context, section Section, doc Document) (Document, error)
}

// Service implements read-with-default and patch-upsert for every section.
type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	if repo == nil {
		panic("site info repository is required")
	}
	return &Service{repo: repo}
}

// Get returns the tenant's document, or the section default when the tenant is unresolved or
// has never saved one. Defaults are not persisted.
func (s *Service) Get(ctx context.Context, tc tenant.Context, section Section) (Document, error) {
	if !tc.IsResolved() {
		return section.Default(), nil
	}

	doc, found, err := s.repo.Load(ctx, tc, section)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", section.Name, err)
	}
	if !found {
		return section.Default(), nil
	}
	return doc, nil
}

// Patch applies the non-nil fields, trimmed, and upserts the result.
func (s *Service) Patch(ctx context.Context, tc tenant.Context, section Section, patch Patch) (Document, error) {
	if !tc.IsResolved() {
		return nil, ErrTenantNotResolved
	}
	if len(patch) == 0 {
		return nil, ErrEmptyPatch
	}

	keys := make([]string, 0, len(patch))
	for key := range patch {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		f, ok := section.field(key)
		if !ok || f.ReadOnly {
			return nil, &FieldError{Section: section.Name, Field: key}
		}
	}

	current, err := s.Get(ctx, tc, section)
	if err != nil {
		return nil, err
	}

	next := make(Document, len(current))
	for k, v := range current {
		next[k] = v
	}
	for key, value := range patch {
		if value == nil {
			continue
		}
		next[key] = strings.TrimSpace(*value)
	}

	saved, err := s.repo.Save(ctx, tc, section, next)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", section.Name, err)
	}
	return saved, nil
}
