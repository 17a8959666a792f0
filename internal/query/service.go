// Package query serves paginated range reads and per-user summaries over the
// metric tables.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/metric"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/query/entity"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/query/repo"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
	summaryDays  = 30
)

var (
	ErrUnknownEntity = errors.New("unknown entity")
	ErrInvalidRange  = errors.New("start must not be after end")
)

// Store is the read side of the metric tables.
type Store interface {
	Count(ctx context.Context, k metric.Kind, f repo.Filter) (int64, error)
	Rows(ctx context.Context, k metric.Kind, f repo.Filter, limit, offset int, desc bool) ([]json.RawMessage, error)
	Counts(ctx context.Context, user uuid.UUID, start, end time.Time) (map[string]int64, error)
	HeartRate(ctx context.Context, user uuid.UUID, start, end time.Time) (*entity.HeartRateSummary, error)
	BloodPressure(ctx context.Context, user uuid.UUID, start, end time.Time) (*entity.BloodPressureSummary, error)
	Sleep(ctx context.Context, user uuid.UUID, start, end time.Time) (*entity.SleepSummary, error)
	Activity(ctx context.Context, user uuid.UUID, start, end time.Time) (*entity.ActivitySummary, error)
	Workouts(ctx context.Context, user uuid.UUID, start, end time.Time) (*entity.WorkoutSummary, error)
}

// Params are the range query options. Page and Limit are clamped; Sort is
// "asc" or anything else for newest first.
type Params struct {
	Start *time.Time
	End   *time.Time
	Page  int
	Limit int
	Sort  string
}

type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// Page is the body of GET /v1/data/{entity}.
type Page struct {
	Data       []json.RawMessage `json:"data"`
	TotalCount int64             `json:"total_count"`
	Pagination Pagination        `json:"pagination"`
}

type Service struct {
	store Store
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewService(store Store, log *zap.SugaredLogger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// NewServiceDB builds a Service over the sqlx repo.
func NewServiceDB(db *sqlx.DB, log *zap.SugaredLogger) *Service {
	return NewService(repo.NewRepo(db), log)
}

// Range returns one page of the user's rows of the named variant.
func (s *Service) Range(ctx context.Context, user uuid.UUID, name string, p Params) (*Page, error) {
	k, ok := metric.ParseKind(name)
	if !ok {
		return nil, ErrUnknownEntity
	}
	if p.Start != nil && p.End != nil && p.Start.After(*p.End) {
		return nil, ErrInvalidRange
	}
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	f := repo.Filter{User: user, Start: p.Start, End: p.End}

	total, err := s.store.Count(ctx, k, f)
	if err != nil {
		return nil, err
	}
	offset := (p.Page - 1) * p.Limit
	data := []json.RawMessage{}
	if int64(offset) < total {
		data, err = s.store.Rows(ctx, k, f, p.Limit, offset, p.Sort != "asc")
		if err != nil {
			return nil, err
		}
	}
	return &Page{
		Data:       data,
		TotalCount: total,
		Pagination: Pagination{
			Page:    p.Page,
			Limit:   p.Limit,
			HasNext: int64(offset+len(data)) < total,
			HasPrev: p.Page > 1,
		},
	}, nil
}

// Summary aggregates the user's data in [start, end]. Missing bounds default
// to the last 30 days. Section failures are logged and leave the section nil.
func (s *Service) Summary(ctx context.Context, user uuid.UUID, start, end *time.Time) (*entity.Summary, error) {
	to := s.now().UTC()
	if end != nil {
		to = *end
	}
	from := to.AddDate(0, 0, -summaryDays)
	if start != nil {
		from = *start
	}
	if from.After(to) {
		return nil, ErrInvalidRange
	}

	counts, err := s.store.Counts(ctx, user, from, to)
	if err != nil {
		return nil, err
	}
	out := &entity.Summary{
		UserID:    user,
		DateRange: entity.DateRange{StartDate: from, EndDate: to},
		Counts:    counts,
	}
	log := s.log.With("user_id", user)
	if out.HeartRate, err = s.store.HeartRate(ctx, user, from, to); err != nil {
		log.Warnw("summary section failed", "section", "heart_rate", "err", err)
	}
	if out.BloodPressure, err = s.store.BloodPressure(ctx, user, from, to); err != nil {
		log.Warnw("summary section failed", "section", "blood_pressure", "err", err)
	}
	if out.Sleep, err = s.store.Sleep(ctx, user, from, to); err != nil {
		log.Warnw("summary section failed", "section", "sleep", "err", err)
	}
	if out.Activity, err = s.store.Activity(ctx, user, from, to); err != nil {
		log.Warnw("summary section failed", "section", "activity", "err", err)
	}
	if out.Workouts, err = s.store.Workouts(ctx, user, from, to); err != nil {
		log.Warnw("summary section failed", "section", "workouts", "err", err)
	}
	log.Debugw("summary generated", "start", from, "end", to)
	return out, nil
}
