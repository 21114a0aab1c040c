package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-sites/domains/pageviews/be/service"
	platformauth "github.com/zenGate-Global/palmyra-sites/platform/go/auth"
	platformlogging "github.com/zenGate-Global/palmyra-sites/platform/go/logging"
	"github.com/zenGate-Global/palmyra-sites/platform/go/problems"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

type operation string

const (
	trackOperation   operation = "metricsTrack"
	summaryOperation operation = "metricsSummary"
	weeklyOperation  operation = "metricsSummaryWeekly"
)

type Service interface {
	Track(ctx context.Context, tc tenant.Context, path string) (bool, error)
	Summary(ctx context.Context, tc tenant.Context, days int) ([]service.DailyCount, error)
	Weekly(ctx context.Context, tc tenant.Context, q service.WeeklyQuery) ([]service.WeeklyBucket, error)
}

type trackRequest struct {
	Path     string  `json:"path"`
	Referrer *string `json:"referrer"`
}

type DailyCount struct {
	DayUTC string `json:"dayUtc"`
	Path   string `json:"path"`
	Count  int    `json:"count"`
}

type WeeklyBucket struct {
	WeekStartUTC string  `json:"weekStartUtc"`
	Path         *string `json:"path"`
	Count        int     `json:"count"`
}

const dayLayout = "2006-01-02"

type Handler struct {
	svc    Service
	logger *zap.Logger
}

func New(svc Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("page view service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the anonymous tracker and the owner-only summaries under /metrics.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/metrics", func(r chi.Router) {
		r.Post("/track", h.track)
		r.With(platformauth.RequireTenantMatch).Get("/summary", h.summary)
		r.With(platformauth.RequireTenantMatch).Get("/summary-weekly", h.weekly)
	})
}

func (h *Handler) track(w http.ResponseWriter, r *http.Request) {
	var body trackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problems.Write(w, problems.New(http.StatusBadRequest, "Invalid request body", "request body must be a JSON object with a path", problems.TypeValidation))
		return
	}

	if _, err := h.svc.Track(r.Context(), tenant.Current(r.Context()), body.Path); err != nil {
		h.writeError(w, r, err, trackOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(r, "days")
	if !ok {
		problems.Write(w, problems.New(http.StatusBadRequest, "Invalid query", "days must be an integer", problems.TypeValidation))
		return
	}

	rows, err := h.svc.Summary(r.Context(), tenant.Current(r.Context()), days)
	if err != nil {
		h.writeError(w, r, err, summaryOperation)
		return
	}

	out := make([]DailyCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, DailyCount{DayUTC: row.Day.Format(dayLayout), Path: row.Path, Count: row.Count})
	}
	problems.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) weekly(w http.ResponseWriter, r *http.Request) {
	weeks, ok := intParam(r, "weeks")
	if !ok {
		problems.Write(w, problems.New(http.StatusBadRequest, "Invalid query", "weeks must be an integer", problems.TypeValidation))
		return
	}
	groupByPath, _ := strconv.ParseBool(r.URL.Query().Get("groupByPath"))

	buckets, err := h.svc.Weekly(r.Context(), tenant.Current(r.Context()), service.WeeklyQuery{
		Weeks:       weeks,
		Path:        r.URL.Query().Get("path"),
		GroupByPath: groupByPath,
	})
	if err != nil {
		h.writeError(w, r, err, weeklyOperation)
		return
	}

	out := make([]WeeklyBucket, 0, len(buckets))
	for _, b := range buckets {
		bucket := WeeklyBucket{WeekStartUTC: b.WeekStart.Format(dayLayout), Count: b.Count}
		if groupByPath {
			p := b.Path
			bucket.Path = &p
		}
		out = append(out, bucket)
	}
	problems.WriteJSON(w, http.StatusOK, out)
}

// intParam reads an optional integer query parameter; absent yields 0.
func intParam(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	return v, err == nil
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
		logger.Error("page view operation failed", fields...)
	} else {
		logger.Warn("page view request rejected", fields...)
	}

	problems.Write(w, problem)
}

func classifyError(err error) problems.ProblemDetails {
	if errors.Is(err, service.ErrTenantNotResolved) {
		return problems.TenantNotResolved()
	}
	return problems.Internal()
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
