package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
	"github.com/couchcryptid/quake-felt-service/internal/estimator"
	"github.com/couchcryptid/quake-felt-service/internal/observability"
	"github.com/couchcryptid/quake-felt-service/internal/service"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockStore struct {
	mu      sync.Mutex
	reports []domain.FeltReport
	err     error
	pingErr error
}

func (m *mockStore) Load(_ context.Context) ([]domain.FeltReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.FeltReport{}, m.reports...), nil
}

func (m *mockStore) Append(_ context.Context, r domain.FeltReport) (domain.FeltReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.FeltReport{}, m.err
	}
	r.ID = len(m.reports) + 1
	m.reports = append(m.reports, r)
	return r, nil
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }

type mockPublisher struct {
	published []domain.FeltReport
	err       error
	block     bool
	ctxs      []context.Context
}

func (m *mockPublisher) Publish(ctx context.Context, r domain.FeltReport) error {
	m.ctxs = append(m.ctxs, ctx)
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	m.published = append(m.published, r)
	return m.err
}

func testEstimators(t *testing.T) *estimator.Set {
	t.Helper()
	reg, err := estimator.NewRegression(estimator.DefaultTrees, estimator.DefaultSeed)
	require.NoError(t, err)
	return estimator.NewSet(estimator.Formula{}, reg)
}

func newTestService(t *testing.T, store service.ReportStore, pub service.Publisher) (*service.Reports, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.New(store, testEstimators(t), pub, true, testClock(), logger, metrics), metrics
}

func testClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(time.Date(2019, 11, 26, 2, 54, 12, 0, time.UTC))
}

var strong = domain.Perception{Shaking: 5, Duration: 4, Objects: 5, Reaction: 5, Damage: 5}

// --- tests ---

func TestReports_SubmitFormula(t *testing.T) {
	store := &mockStore{}
	pub := &mockPublisher{}
	svc, metrics := newTestService(t, store, pub)

	got, err := svc.Submit(context.Background(), service.Submission{
		Location:   "Durres",
		Perception: strong,
		Strategy:   estimator.StrategyFormula,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, got.ID)
	assert.Equal(t, "Durres", got.Location)
	assert.InDelta(t, 4.6, got.PredictedMagnitude, 1e-9)
	assert.Equal(t, "2019-11-26T02:54:12Z", got.SubmissionTime)
	assert.Equal(t, "formula", got.Strategy)

	require.Len(t, pub.published, 1)
	assert.Equal(t, got, pub.published[0])
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReportsSubmitted.WithLabelValues("formula")), 0)
}

func TestReports_SubmitRegression(t *testing.T) {
	svc, _ := newTestService(t, &mockStore{}, nil)

	got, err := svc.Submit(context.Background(), service.Submission{
		Perception: strong,
		Strategy:   estimator.StrategyRegression,
	})
	require.NoError(t, err)
	assert.Equal(t, "regression", got.Strategy)
	assert.GreaterOrEqual(t, got.PredictedMagnitude, 2.0)
	assert.LessOrEqual(t, got.PredictedMagnitude, 6.3)
}

func TestReports_SubmitOutOfRange(t *testing.T) {
	store := &mockStore{}
	svc, metrics := newTestService(t, store, nil)

	_, err := svc.Submit(context.Background(), service.Submission{
		Perception: domain.Perception{Shaking: 9, Duration: 3, Objects: 3, Reaction: 3, Damage: 0},
		Strategy:   estimator.StrategyFormula,
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"shaking", "damage"}, verr.Fields)
	assert.Empty(t, store.reports)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReportErrors.WithLabelValues("validate")), 0)
}

func TestReports_SubmitLenientPassesOutOfRange(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	svc := service.New(&mockStore{}, testEstimators(t), nil, false, testClock(), slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)

	got, err := svc.Submit(context.Background(), service.Submission{
		Perception: domain.Perception{Shaking: 9, Duration: 3, Objects: 3, Reaction: 3, Damage: 3},
		Strategy:   estimator.StrategyFormula,
	})
	require.NoError(t, err)
	assert.Greater(t, got.PredictedMagnitude, 3.4)
}

func TestReports_SubmitUnknownStrategy(t *testing.T) {
	svc, metrics := newTestService(t, &mockStore{}, nil)

	_, err := svc.Submit(context.Background(), service.Submission{Perception: strong, Strategy: "keyword"})
	require.Error(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReportErrors.WithLabelValues("estimate")), 0)
}

func TestReports_SubmitStoreFailure(t *testing.T) {
	pub := &mockPublisher{}
	svc, metrics := newTestService(t, &mockStore{err: errors.New("disk full")}, pub)

	_, err := svc.Submit(context.Background(), service.Submission{Perception: strong, Strategy: estimator.StrategyFormula})
	require.ErrorIs(t, err, service.ErrStore)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, pub.published)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReportErrors.WithLabelValues("store")), 0)
}

func TestReports_PublishFailureDoesNotFailSubmit(t *testing.T) {
	store := &mockStore{}
	svc, metrics := newTestService(t, store, &mockPublisher{err: errors.New("broker down")})

	got, err := svc.Submit(context.Background(), service.Submission{Perception: strong, Strategy: estimator.StrategyFormula})
	require.NoError(t, err)
	assert.Equal(t, 1, got.ID)
	assert.Len(t, store.reports, 1)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PublishErrors), 0)
}

func TestReports_SubmitStampsInjectedClock(t *testing.T) {
	clock := testClock()
	metrics := observability.NewMetricsForTesting()
	svc := service.New(&mockStore{}, testEstimators(t), nil, true, clock, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	ctx := context.Background()

	first, err := svc.Submit(ctx, service.Submission{Perception: strong, Strategy: estimator.StrategyFormula})
	require.NoError(t, err)
	clock.Advance(90 * time.Minute)
	second, err := svc.Submit(ctx, service.Submission{Perception: strong, Strategy: estimator.StrategyFormula})
	require.NoError(t, err)

	assert.Equal(t, "2019-11-26T02:54:12Z", first.SubmissionTime)
	assert.Equal(t, "2019-11-26T04:24:12Z", second.SubmissionTime)
}

func TestReports_PublishBoundedByTimeout(t *testing.T) {
	store := &mockStore{}
	pub := &mockPublisher{block: true}
	svc, metrics := newTestService(t, store, pub)
	svc.SetPublishTimeout(50 * time.Millisecond)

	start := time.Now()
	got, err := svc.Submit(context.Background(), service.Submission{Perception: strong, Strategy: estimator.StrategyFormula})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, got.ID)
	assert.Len(t, store.reports, 1)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PublishErrors), 0)
}

func TestReports_PublishHasDeadlineAndOutlivesRequest(t *testing.T) {
	pub := &mockPublisher{}
	svc, metrics := newTestService(t, &mockStore{}, pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Submit(ctx, service.Submission{Perception: strong, Strategy: estimator.StrategyFormula})
	require.NoError(t, err)

	require.Len(t, pub.ctxs, 1)
	deadline, ok := pub.ctxs[0].Deadline()
	require.True(t, ok, "publish context has no deadline")
	assert.LessOrEqual(t, time.Until(deadline), service.DefaultPublishTimeout)
	require.NoError(t, pub.ctxs[0].Err())
	assert.Len(t, pub.published, 1)
	assert.Zero(t, testutil.ToFloat64(metrics.PublishErrors))
}

func TestReports_List(t *testing.T) {
	store := &mockStore{}
	svc, _ := newTestService(t, store, nil)
	ctx := context.Background()

	for range 3 {
		_, err := svc.Submit(ctx, service.Submission{Perception: strong, Strategy: estimator.StrategyFormula})
		require.NoError(t, err)
	}

	reports, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	for i, r := range reports {
		assert.Equal(t, i+1, r.ID)
	}

	store.err = errors.New("permission denied")
	_, err = svc.List(ctx)
	require.ErrorIs(t, err, service.ErrStore)
}

func TestReports_Estimate(t *testing.T) {
	svc, _ := newTestService(t, &mockStore{}, nil)

	mag, err := svc.Estimate(strong, estimator.StrategyFormula)
	require.NoError(t, err)
	assert.InDelta(t, 4.6, mag, 1e-9)
}

func TestReports_CheckReadiness(t *testing.T) {
	store := &mockStore{}
	svc, _ := newTestService(t, store, nil)

	require.NoError(t, svc.CheckReadiness(context.Background()))

	store.pingErr = errors.New("connection refused")
	err := svc.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
}

func TestReports_CheckReadinessMissingStrategy(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	svc := service.New(&mockStore{}, estimator.NewSet(estimator.Formula{}), nil, true, clockwork.NewRealClock(), slog.Default(), metrics)

	assert.Error(t, svc.CheckReadiness(context.Background()))
}
