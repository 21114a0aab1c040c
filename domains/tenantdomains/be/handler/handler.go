package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-sites/domains/tenantdomains/be/service"
	platformauth "github.com/zenGate-Global/palmyra-sites/platform/go/auth"
	platformlogging "github.com/zenGate-Global/palmyra-sites/platform/go/logging"
	"github.com/zenGate-Global/palmyra-sites/platform/go/problems"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

type operation string

const (
	listOperation       operation = "domainsList"
	addOperation        operation = "domainsAdd"
	setPrimaryOperation operation = "domainsSetPrimary"
	deleteOperation     operation = "domainsDelete"
)

// Service is the registry behavior the handler depends on.
type Service interface {
	List(ctx context.Context, tc tenant.Context) ([]service.Domain, error)
	Add(ctx context.Context, creds *platformauth.UserCredentials, hostname string) (service.AddResult, error)
	SetPrimary(ctx context.Context, tc tenant.Context, id int64) (service.Domain, error)
	Delete(ctx context.Context, tc tenant.Context, id int64) error
}

// Domain is the wire shape of a registered domain.
type Domain struct {
	ID        int64     `json:"id"`
	Hostname  string    `json:"hostname"`
	Primary   bool      `json:"primary"`
	CreatedAt time.Time `json:"createdAt"`
}

type addRequest struct {
	Hostname string `json:"hostname"`
}

type addResponse struct {
	Domain
	TenantID         string `json:"tenantId"`
	SessionToken     string `json:"sessionToken,omitempty"`
	MustRenewSession bool   `json:"mustRenewSession,omitempty"`
}

type setPrimaryRequest struct {
	ID int64 `json:"id"`
}

// Handler exposes the domain registry over HTTP.
type Handler struct {
	svc           Service
	logger        *zap.Logger
	sessionCookie string
}

// New constructs a Handler. When sessionCookie is set, freshly minted session tokens are also
// written to that cookie so browser sessions pick up the new tenant claim.
func New(svc Service, logger *zap.Logger, sessionCookie string) *Handler {
	if svc == nil {
		panic("tenant domains service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger, sessionCookie: sessionCookie}
}

// Routes mounts the registry under /domains.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/domains", func(r chi.Router) {
		r.With(platformauth.RequireTenantMatch).Get("/", h.list)
		r.With(platformauth.RequireAuthenticated).Post("/", h.add)
		r.With(platformauth.RequireTenantMatch).Put("/primary", h.setPrimary)
		r.With(platformauth.RequireTenantMatch).Delete("/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tc := tenant.Current(r.Context())

	domains, err := h.svc.List(r.Context(), tc)
	if err != nil {
		h.writeError(w, r, err, listOperation)
		return
	}

	items := make([]Domain, 0, len(domains))
	for _, d := range domains {
		items = append(items, toAPIDomain(d))
	}
	problems.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var body addRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problems.Write(w, problems.New(http.StatusBadRequest, "Invalid request body", "request body must be a JSON object with a hostname", problems.TypeValidation))
		return
	}

	creds, _ := platformauth.UserFromContext(r.Context())
	res, err := h.svc.Add(r.Context(), creds, body.Hostname)
	if err != nil {
		h.writeError(w, r, err, addOperation)
		return
	}

	out := addResponse{Domain: toAPIDomain(res.Domain), TenantID: res.TenantID.String()}
	if res.Session != nil {
		out.SessionToken = res.Session.Token
		out.MustRenewSession = res.Session.MustRenew
		if res.Session.Token != "" && h.sessionCookie != "" {
			http.SetCookie(w, &http.Cookie{
				Name:     h.sessionCookie,
				Value:    res.Session.Token,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		}
	}

	h.loggerFrom(r.Context()).Info("domain registered",
		zap.String("hostname", res.Domain.Hostname),
		zap.String("owner_tenant_id", res.TenantID.String()),
		zap.Bool("tenant_created", res.TenantCreated),
	)
	problems.WriteJSON(w, http.StatusCreated, out)
}

func (h *Handler) setPrimary(w http.ResponseWriter, r *http.Request) {
	var body setPrimaryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID <= 0 {
		problems.Write(w, problems.New(http.StatusBadRequest, "Invalid request body", "request body must carry a domain id", problems.TypeValidation))
		return
	}

	d, err := h.svc.SetPrimary(r.Context(), tenant.Current(r.Context()), body.ID)
	if err != nil {
		h.writeError(w, r, err, setPrimaryOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, toAPIDomain(d))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		// Unparseable ids cannot name any domain.
		h.writeError(w, r, service.ErrDomainNotFound, deleteOperation)
		return
	}

	if err := h.svc.Delete(r.Context(), tenant.Current(r.Context()), id); err != nil {
		h.writeError(w, r, err, deleteOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toAPIDomain(d service.Domain) Domain {
	return Domain{ID: d.ID, Hostname: d.Hostname, Primary: d.Primary, CreatedAt: d.CreatedAt}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, op operation) {
	problem := classifyError(err)

	logger := h.loggerFrom(r.Context())
	fields := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", problem.Status),
		zap.Error(err),
	}
	switch {
	case problem.Status >= http.StatusInternalServerError:
		logger.Error("domains operation failed", fields...)
	case problem.Status == http.StatusNotFound:
		logger.Info("domain not found", fields...)
	default:
		logger.Warn("domains request rejected", fields...)
	}

	problems.Write(w, problem)
}

func classifyError(err error) problems.ProblemDetails {
	switch {
	case errors.Is(err, service.ErrTenantNotResolved):
		return problems.TenantNotResolved()
	case errors.Is(err, service.ErrUnauthenticated):
		return problems.Unauthorized()
	case errors.Is(err, service.ErrInvalidHostname):
		return problems.New(http.StatusBadRequest, "invalid hostname", "hostname is empty or malformed", problems.TypeValidation)
	case errors.Is(err, service.ErrHostnameConflict):
		return problems.New(http.StatusConflict, "hostname already in use", "", problems.TypeConflict)
	case errors.Is(err, service.ErrDomainNotFound):
		return problems.New(http.StatusNotFound, "domain not found", "", problems.TypeNotFound)
	case errors.Is(err, service.ErrPrimaryDomain):
		return problems.New(http.StatusBadRequest, "cannot delete primary domain while others exist", "make another domain primary first", problems.TypeValidation)
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
