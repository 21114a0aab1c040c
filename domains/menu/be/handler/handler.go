package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-sites/domains/menu/be/service"
	platformauth "github.com/zenGate-Global/palmyra-sites/platform/go/auth"
	platformlogging "github.com/zenGate-Global/palmyra-sites/platform/go/logging"
	"github.com/zenGate-Global/palmyra-sites/platform/go/problems"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

const maxPatchBytes = 1 << 20

type operation string

const (
	getOperation   operation = "menuGet"
	patchOperation operation = "menuPatch"
)

type Service interface {
	Get(ctx context.Context, tc tenant.Context) (service.Menu, error)
	Patch(ctx context.Context, tc tenant.Context, payload []byte) (service.Menu, error)
}

type Menu struct {
	ID         int64      `json:"id"`
	TenantID   string     `json:"tenantId"`
	Categories []Category `json:"categories"`
}

type Category struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
	IsVisible bool   `json:"isVisible"`
	Items     []Item `json:"items"`
}

type Item struct {
	ID          int64   `json:"id"`
	ImageURL    string  `json:"imageUrl"`
	Name        string  `json:"name"`
	Price       string  `json:"price"`
	Description *string `json:"description"`
}

type Handler struct {
	svc    Service
	logger *zap.Logger
}

func New(svc Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("menu service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/menu", h.get)
	r.With(platformauth.RequireTenantMatch).Patch("/menu", h.patch)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	menu, err := h.svc.Get(r.Context(), tenant.Current(r.Context()))
	if err != nil {
		h.writeError(w, r, err, getOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, toAPIMenu(menu))
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPatchBytes))
	if err != nil {
		problems.Write(w, problems.New(http.StatusBadRequest, "Invalid request body", "request body could not be read", problems.TypeValidation))
		return
	}

	menu, err := h.svc.Patch(r.Context(), tenant.Current(r.Context()), payload)
	if err != nil {
		h.writeError(w, r, err, patchOperation)
		return
	}

	h.loggerFrom(r.Context()).Info("menu updated", zap.Int("categories", len(menu.Categories)))
	problems.WriteJSON(w, http.StatusOK, toAPIMenu(menu))
}

func toAPIMenu(m service.Menu) Menu {
	out := Menu{ID: m.ID, TenantID: m.TenantID, Categories: make([]Category, 0, len(m.Categories))}
	for _, c := range m.Categories {
		cat := Category{ID: c.ID, Name: c.Name, SortOrder: c.SortOrder, IsVisible: c.IsVisible, Items: make([]Item, 0, len(c.Items))}
		for _, it := range c.Items {
			cat.Items = append(cat.Items, Item{ID: it.ID, ImageURL: it.ImageURL, Name: it.Name, Price: it.Price, Description: it.Description})
		}
		out.Categories = append(out.Categories, cat)
	}
	return out
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, op operation) {
	problem := classifyError(err)

	logger := h.loggerFrom(r.Context())
	fields := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", problem.Status),
		zap.Error(err),
	}
	if problem.Status >= http.StatusInternalServerError {
		logger.Error("menu operation failed", fields...)
	} else {
		logger.Warn("menu request rejected", fields...)
	}

	problems.Write(w, problem)
}

func classifyError(err error) problems.ProblemDetails {
	var validation *service.ValidationError
	switch {
	case errors.Is(err, service.ErrTenantNotResolved):
		return problems.TenantNotResolved()
	case errors.As(err, &validation):
		return problems.New(http.StatusBadRequest, "Invalid request body", validation.Reason, problems.TypeValidation)
	default:
		return problems.Internal()
	}
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
