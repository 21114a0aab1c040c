package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

var ErrTenantNotResolved = errors.New("tenant not resolved")

const (
	DefaultDays  = 7
	DefaultWeeks = 8
	maxDays      = 366
	maxWeeks     = 104
	maxPathLen   = 512
)

// DailyCount is one tenant/path/day counter.
type DailyCount struct {
	Day   time.Time
	Path  string
	Count int
}

// WeeklyBucket sums daily counters over an ISO week. Path is empty unless grouped by path.
type WeeklyBucket struct {
	WeekStart time.Time
	Path      string
	Count     int
}

// WeeklyQuery selects the weekly summary.
type WeeklyQuery struct {
	Weeks       int
	Path        string
	GroupByPath bool
}

type Repository interface {
	// Increment adds one view for path on day, creating the counter when missing.
	Increment(ctx context.Context, tc tenant.Context, path string, day time.Time) error
	// Since returns the counters from day onward, ordered by day then path. An empty path matches all.
	Since(ctx context.Context, tc tenant.Context, day time.Time, path string) ([]DailyCount, error)
}

type Option func(*Service)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(repo Repository, opts ...Option) *Service {
	if repo == nil {
		panic("page view repository is required")
	}
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Track counts one view. Unresolved tenants and blank paths are ignored; the bool reports
// whether a counter was written.
func (s *Service) Track(ctx context.Context, tc tenant.Context, path string) (bool, error) {
	path = strings.TrimSpace(path)
	if !tc.IsResolved() || path == "" {
		return false, nil
	}
	path = truncate(path, maxPathLen)

	if err := s.repo.Increment(ctx, tc, path, s.today()); err != nil {
		return false, fmt.Errorf("track page view: %w", err)
	}
	return true, nil
}

// Summary returns the daily counters of the last days days, today included.
func (s *Service) Summary(ctx context.Context, tc tenant.Context, days int) ([]DailyCount, error) {
	if !tc.IsResolved() {
		return nil, ErrTenantNotResolved
	}
	days = clamp(days, DefaultDays, maxDays)

	since := s.today().AddDate(0, 0, -days+1)
	rows, err := s.repo.Since(ctx, tc, since, "")
	if err != nil {
		return nil, fmt.Errorf("page view summary: %w", err)
	}
	return rows, nil
}

// Weekly sums counters per ISO week starting from the Monday of the week that contains
// today - 7*weeks + 1.
func (s *Service) Weekly(ctx context.Context, tc tenant.Context, q WeeklyQuery) ([]WeeklyBucket, error) {
	if !tc.IsResolved() {
		return nil, ErrTenantNotResolved
	}
	weeks := clamp(q.Weeks, DefaultWeeks, maxWeeks)

	start := WeekStart(s.today().AddDate(0, 0, -(7*weeks)+1))
	rows, err := s.repo.Since(ctx, tc, start, strings.TrimSpace(q.Path))
	if err != nil {
		return nil, fmt.Errorf("weekly page view summary: %w", err)
	}

	type key struct {
		week time.Time
		path string
	}
	sums := make(map[key]int)
	for _, row := range rows {
		k := key{week: WeekStart(row.Day)}
		if q.GroupByPath {
			k.path = row.Path
		}
		sums[k] += row.Count
	}

	out := make([]WeeklyBucket, 0, len(sums))
	for k, count := range sums {
		out = append(out, WeeklyBucket{WeekStart: k.week, Path: k.path, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].WeekStart.Equal(out[j].WeekStart) {
			return out[i].WeekStart.Before(out[j].WeekStart)
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// WeekStart returns the Monday, at UTC midnight, of the ISO week containing day.
func WeekStart(day time.Time) time.Time {
	d := truncateDay(day)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func (s *Service) today() time.Time {
	return truncateDay(s.now())
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clamp(v, def, max int) int {
	switch {
	case v <= 0:
		return def
	case v > max:
		return max
	default:
		return v
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
