package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-sites/domains/siteinfo/be/service"
	platformauth "github.com/zenGate-Global/palmyra-sites/platform/go/auth"
	platformlogging "github.com/zenGate-Global/palmyra-sites/platform/go/logging"
	"github.com/zenGate-Global/palmyra-sites/platform/go/problems"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

// Service is the site info behavior the handler depends on.
type Service interface {
	Get(ctx context.Context, tc tenant.Context, section service.Section) (service.Document, error)
	Patch(ctx context.Context, tc tenant.Context, section service.Section, patch service.Patch) (service.Document, error)
}

type Handler struct {
	svc    Service
	logger *zap.Logger
}

func New(svc Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("site info service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts GET (anonymous) and PATCH (tenant members) for every section.
func (h *Handler) Routes(r chi.Router) {
	for _, section := range service.Sections() {
		r.Get("/"+section.Name, h.get(section))
		r.With(platformauth.RequireTenantMatch).Patch("/"+section.Name, h.patch(section))
	}
}

func (h *Handler) get(section service.Section) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.svc.Get(r.Context(), tenant.Current(r.Context()), section)
		if err != nil {
			h.writeError(w, r, err, section.Name+"Get")
			return
		}
		problems.WriteJSON(w, http.StatusOK, doc)
	}
}

func (h *Handler) patch(section service.Section) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body service.Patch
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			problems.Write(w, problems.New(http.StatusBadRequest, "Invalid request body", "request body must be a JSON object of string fields", problems.TypeValidation))
			return
		}

		doc, err := h.svc.Patch(r.Context(), tenant.Current(r.Context()), section, body)
		if err != nil {
			h.writeError(w, r, err, section.Name+"Patch")
			return
		}
		problems.WriteJSON(w, http.StatusOK, doc)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	problem := classifyError(err)

	logger := h.loggerFrom(r.Context())
	fields := []zap.Field{
		zap.String("operation", op),
		zap.Int("status", problem.Status),
		zap.Error(err),
	}
	if problem.Status >= http.StatusInternalServerError {
		logger.Error("site info operation failed", fields...)
	} else {
		logger.Warn("site info request rejected", fields...)
	}

	problems.Write(w, problem)
}

func classifyError(err error) problems.ProblemDetails {
	var fieldErr *service.FieldError
	switch {
	case errors.Is(err, service.ErrTenantNotResolved):
		return problems.TenantNotResolved()
	case errors.Is(err, service.ErrEmptyPatch):
		return problems.New(http.StatusBadRequest, "Invalid request body", "patch must set at least one field", problems.TypeValidation)
	case errors.As(err, &fieldErr):
		return problems.New(http.StatusBadRequest, "Invalid request body", fieldErr.Error(), problems.TypeValidation)
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
