// Package service orchestrates felt-report submission: estimate, stamp,
// persist, publish.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
	"github.com/couchcryptid/quake-felt-service/internal/estimator"
	"github.com/couchcryptid/quake-felt-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// DefaultPublishTimeout bounds how long Submit waits on the publisher.
const DefaultPublishTimeout = 5 * time.Second

// ReportStore persists reports and assigns their ids.
type ReportStore interface {
	Load(ctx context.Context) ([]domain.FeltReport, error)
	Append(ctx context.Context, r domain.FeltReport) (domain.FeltReport, error)
}

// Publisher forwards stored reports downstream.
type Publisher interface {
	Publish(ctx context.Context, r domain.FeltReport) error
}

// pinger is implemented by stores that can check their backend.
type pinger interface {
	Ping(ctx context.Context) error
}

// ErrStore marks persistence failures so the HTTP layer can tell them apart
// from input errors.
var ErrStore = errors.New("report store failure")

// Submission is a validated report request.
type Submission struct {
	Location   string
	Perception domain.Perception
	Strategy   estimator.Strategy
}

// Reports handles felt-report submissions.
type Reports struct {
	store      ReportStore
	publisher  Publisher
	estimators *estimator.Set
	strict     bool
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics

	publishTimeout time.Duration
}

// New creates a Reports service. publisher may be nil. clock stamps
// submission times.
func New(store ReportStore, estimators *estimator.Set, publisher Publisher, strict bool, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Reports {
	return &Reports{
		store:          store,
		publisher:      publisher,
		estimators:     estimators,
		strict:         strict,
		clock:          clock,
		logger:         logger,
		metrics:        metrics,
		publishTimeout: DefaultPublishTimeout,
	}
}

// SetPublishTimeout overrides DefaultPublishTimeout. Non-positive values
// are ignored.
func (s *Reports) SetPublishTimeout(d time.Duration) {
	if d > 0 {
		s.publishTimeout = d
	}
}

// Strict reports whether scores are range-checked.
func (s *Reports) Strict() bool { return s.strict }

// Estimate runs the named strategy without persisting anything.
func (s *Reports) Estimate(p domain.Perception, strategy estimator.Strategy) (float64, error) {
	if s.strict {
		if err := p.Validate(); err != nil {
			return 0, err
		}
	}
	e, err := s.estimators.Get(strategy)
	if err != nil {
		return 0, err
	}
	return e.Estimate(p)
}

// Submit estimates the magnitude, stamps the submission time, appends the
// report, and publishes it. Publish failures are logged and counted only.
func (s *Reports) Submit(ctx context.Context, sub Submission) (domain.FeltReport, error) {
	mag, err := s.Estimate(sub.Perception, sub.Strategy)
	if err != nil {
		stage := "estimate"
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			stage = "validate"
		}
		s.metrics.ReportErrors.WithLabelValues(stage).Inc()
		return domain.FeltReport{}, err
	}

	report := domain.NewFeltReport(sub.Location, sub.Perception, mag, string(sub.Strategy), s.clock.Now())
	stored, err := s.store.Append(ctx, report)
	if err != nil {
		s.metrics.ReportErrors.WithLabelValues("store").Inc()
		s.logger.Error("append report failed", "error", err)
		return domain.FeltReport{}, fmt.Errorf("%w: %w", ErrStore, err)
	}

	s.metrics.ReportsSubmitted.WithLabelValues(string(sub.Strategy)).Inc()
	s.metrics.PredictedMagnitude.WithLabelValues(string(sub.Strategy)).Observe(mag)
	s.logger.Info("report submitted",
		"id", stored.ID,
		"strategy", sub.Strategy,
		"predicted_magnitude", mag,
	)

	if s.publisher != nil {
		s.publish(ctx, stored)
	}
	return stored, nil
}

// publish detaches from the request's cancellation so a stored report is
// still forwarded when the client goes away, but never waits longer than
// publishTimeout.
func (s *Reports) publish(ctx context.Context, r domain.FeltReport) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, r); err != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.Warn("publish report failed", "id", r.ID, "error", err)
	}
}

// List returns every stored report.
func (s *Reports) List(ctx context.Context) ([]domain.FeltReport, error) {
	reports, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return reports, nil
}

// CheckReadiness returns nil when the store is reachable and every
// strategy is configured.
func (s *Reports) CheckReadiness(ctx context.Context) error {
	for _, name := range []estimator.Strategy{estimator.StrategyFormula, estimator.StrategyRegression} {
		if _, err := s.estimators.Get(name); err != nil {
			return err
		}
	}
	if p, ok := s.store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("report store not reachable: %w", err)
		}
	}
	return nil
}
