package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-sites/domains/carousel/be/service"
	platformauth "github.com/zenGate-Global/palmyra-sites/platform/go/auth"
	platformlogging "github.com/zenGate-Global/palmyra-sites/platform/go/logging"
	"github.com/zenGate-Global/palmyra-sites/platform/go/problems"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

const maxPatchBytes = 256 << 10

type operation string

const (
	getOperation   operation = "carouselGet"
	patchOperation operation = "carouselPatch"
)

type Service interface {
	Get(ctx context.Context, tc tenant.Context) (service.Carousel, error)
	Patch(ctx context.Context, tc tenant.Context, payload []byte) (service.Carousel, error)
}

type Carousel struct {
	ID    int64  `json:"id"`
	Items []Item `json:"items"`
}

type Item struct {
	ID          int64   `json:"id"`
	ImageURL    string  `json:"imageUrl"`
	Description *string `json:"description"`
}

type Handler struct {
	svc    Service
	logger *zap.Logger
}

func New(svc Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("carousel service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/carousel", h.get)
	r.With(platformauth.RequireTenantMatch).Patch("/carousel", h.patch)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), tenant.Current(r.Context()))
	if err != nil {
		h.writeError(w, r, err, getOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, toAPICarousel(c))
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPatchBytes))
	if err != nil {
		problems.Write(w, problems.New(http.StatusBadRequest, "Invalid request body", "request body could not be read", problems.TypeValidation))
		return
	}

	c, err := h.svc.Patch(r.Context(), tenant.Current(r.Context()), payload)
	if err != nil {
		h.writeError(w, r, err, patchOperation)
		return
	}

	h.loggerFrom(r.Context()).Info("carousel updated", zap.Int("items", len(c.Items)))
	problems.WriteJSON(w, http.StatusOK, toAPICarousel(c))
}

func toAPICarousel(c service.Carousel) Carousel {
	out := Carousel{ID: c.ID, Items: make([]Item, 0, len(c.Items))}
	for _, it := range c.Items {
		out.Items = append(out.Items, Item{ID: it.ID, ImageURL: it.ImageURL, Description: it.Description})
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
		logger.Error("carousel operation failed", fields...)
	} else {
		logger.Warn("carousel request rejected", fields...)
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
