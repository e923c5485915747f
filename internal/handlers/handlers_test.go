package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ferry-service/internal/analytics"
	"ferry-service/internal/cache"
	"ferry-service/internal/models"
	"ferry-service/internal/queueing"
)

// memoryCache in-memory ComparisonCache for handler tests
type memoryCache struct {
	mu       sync.Mutex
	results  map[string]models.ComparisonResult
	recent   []models.ComparisonResult
	counters map[string]int64
	failGets bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		results:  make(map[string]models.ComparisonResult),
		counters: make(map[string]int64),
	}
}

func (c *memoryCache) GetComparison(_ context.Context, p models.QueueingParameters) (models.ComparisonResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGets {
		return models.ComparisonResult{}, errors.New("connection refused")
	}
	res, ok := c.results[cache.ComparisonKey(p)]
	if !ok {
		return res, cache.ErrMiss
	}
	return res, nil
}

func (c *memoryCache) CacheComparison(_ context.Context, p models.QueueingParameters, res models.ComparisonResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[cache.ComparisonKey(p)] = res
	c.recent = append([]models.ComparisonResult{res}, c.recent...)
	return nil
}

func (c *memoryCache) RecentComparisons(_ context.Context, count int64) ([]models.ComparisonResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int64(len(c.recent)) < count {
		count = int64(len(c.recent))
	}
	return append([]models.ComparisonResult(nil), c.recent[:count]...), nil
}

func (c *memoryCache) IncrementCounter(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key]++
	return c.counters[key], nil
}

func (c *memoryCache) GetCounter(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[key], nil
}

func (c *memoryCache) Ping(context.Context) error { return nil }

func newTestRouter(t *testing.T, c ComparisonCache) (*mux.Router, *analytics.Monitor) {
	t.Helper()
	monitor := analytics.NewMonitor(100)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(queueing.Default(), monitor, c, logger)
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router, monitor
}

func do(t *testing.T, router http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestQueueMetricsHandler_RoutesByRegime(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/queue/metrics", models.MetricsRequest{Lambda: 60, Mu: 25, Servers: 4})
	require.Equal(t, http.StatusOK, rec.Code)
	stable := decode[models.QueueMetrics](t, rec)
	assert.Equal(t, models.RegimeAnalytic, stable.Model)
	assert.InDelta(t, 0.6, stable.Utilization, 1e-12)

	rec = do(t, router, http.MethodPost, "/v1/queue/metrics", models.MetricsRequest{Lambda: 150, Mu: 25, Servers: 4})
	require.Equal(t, http.StatusOK, rec.Code)
	saturated := decode[models.QueueMetrics](t, rec)
	assert.Equal(t, models.RegimeSimulated, saturated.Model)
	assert.LessOrEqual(t, saturated.Utilization, 1.0)
}

func TestQueueMetricsHandler_InvalidParametersAreNotHTTPErrors(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/queue/metrics", models.MetricsRequest{Lambda: 0, Mu: 25, Servers: 4})
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode[models.QueueMetrics](t, rec)
	assert.Equal(t, models.ErrInvalidParameters, m.Error)
	assert.Zero(t, m.WaitTime)
}

func TestQueueMetricsHandler_BadJSON(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/queue/metrics", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "Invalid JSON")
}

func TestQueueMetricsHandler_MethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rec := do(t, router, http.MethodGet, "/v1/queue/metrics", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(t, router, http.MethodPost, "/v1/queue/profile", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(t, router, http.MethodGet, "/v1/queue/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueueMetricsHandler_ExplicitSimulation(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/queue/metrics",
		models.MetricsRequest{Lambda: 60, Mu: 25, Servers: 4, Simulate: true})
	require.Equal(t, http.StatusOK, rec.Code)

	m := decode[models.QueueMetrics](t, rec)
	assert.Equal(t, models.RegimeSimulated, m.Model)
	assert.InDelta(t, 14.625, m.WaitTime, 1e-9)
}

func TestScheduledHandler(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/queue/scheduled", models.ScheduledRequest{Lambda: 60})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20.0, decode[models.QueueMetrics](t, rec).WaitTime)

	rec = do(t, router, http.MethodPost, "/v1/queue/scheduled", models.ScheduledRequest{Lambda: 300, PeakHours: true, Reserved: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10.0, decode[models.QueueMetrics](t, rec).WaitTime)
}

func TestCompareHandler_AppliesDefaultsAndCaches(t *testing.T) {
	mc := newMemoryCache()
	router, monitor := newTestRouter(t, mc)

	body := `{"lambda": 120, "peakHours": true, "scheduledMode": true}`
	rec := do(t, router, http.MethodPost, "/v1/queue/compare", body)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[models.ComparisonResult](t, rec)
	assert.Equal(t, 90.0, res.WithoutReservation.WaitTime)
	assert.Equal(t, 10.0, res.WithReservation.WaitTime)
	assert.Equal(t, models.PriorityHigh, res.Recommendation.Priority)

	rec = do(t, router, http.MethodPost, "/v1/queue/compare", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, res, decode[models.ComparisonResult](t, rec))

	assert.Len(t, mc.results, 1)
	assert.Equal(t, int64(1), mc.counters[cache.ComparisonsCounter], "cached result is not recomputed")

	// one observation reached the monitor buffer
	monitor.Start(1)
	defer monitor.Stop()
	select {
	case r := <-monitor.Results():
		assert.Equal(t, 90.0, r.RollingAvgWait)
	case <-time.After(time.Second):
		t.Fatal("monitor did not receive the comparison")
	}
}

func TestCompareHandler_CacheFailureStillAnswers(t *testing.T) {
	mc := newMemoryCache()
	mc.failGets = true
	router, _ := newTestRouter(t, mc)

	rec := do(t, router, http.MethodPost, "/v1/queue/compare", models.QueueingParameters{Lambda: 60, Mu: 25, Servers: 4})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[models.ComparisonResult](t, rec)
	assert.Equal(t, models.RegimeAnalytic, res.WithoutReservation.Model)
}

func TestCompareHandler_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache(context.Background(), cache.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	defer rc.Close()

	router, _ := newTestRouter(t, rc)
	params := models.QueueingParameters{Lambda: 150, Mu: 25, Servers: 4, CapacityPerFerry: 50, CycleMinutes: 120,
		ReservationRate: 0.3, PeakHours: true}

	rec := do(t, router, http.MethodPost, "/v1/queue/compare", params)
	require.Equal(t, http.StatusOK, rec.Code)

	cached, err := rc.GetComparison(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, decode[models.ComparisonResult](t, rec), cached)

	rec = do(t, router, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[models.StatsResponse](t, rec).TotalComparisons)

	rec = do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, "connected", decode[models.HealthStatus](t, rec).Redis)
}

func TestRecentComparisonsHandler(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache(context.Background(), cache.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	defer rc.Close()

	router, _ := newTestRouter(t, rc)
	for _, lambda := range []float64{60, 80, 90} {
		rec := do(t, router, http.MethodPost, "/v1/queue/compare", models.QueueingParameters{Lambda: lambda, Mu: 25, Servers: 4})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, router, http.MethodGet, "/v1/queue/recent?count=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.RecentComparisonsResponse](t, rec)
	require.Equal(t, 2, resp.Count)
	require.Len(t, resp.Results, 2)

	newest := queueing.Default().Compare(models.QueueingParameters{Lambda: 90, Mu: 25, Servers: 4})
	assert.Equal(t, newest, resp.Results[0], "newest comparison comes first")

	rec = do(t, router, http.MethodGet, "/v1/queue/recent", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[models.RecentComparisonsResponse](t, rec).Count)
}

func TestRecentComparisonsHandler_Errors(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rec := do(t, router, http.MethodGet, "/v1/queue/recent", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	router, _ = newTestRouter(t, newMemoryCache())
	for _, count := range []string{"0", "-3", "abc", "1001"} {
		rec = do(t, router, http.MethodGet, "/v1/queue/recent?count="+count, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "count=%s", count)
	}
}

func TestBatchCompareHandler(t *testing.T) {
	router, _ := newTestRouter(t, newMemoryCache())

	body := `{"scenarios": [
		{"lambda": 120, "peakHours": true, "scheduledMode": true},
		{"lambda": 60, "mu": 25},
		{"lambda": 150, "mu": 25, "peakHours": true}
	]}`
	rec := do(t, router, http.MethodPost, "/v1/queue/compare/batch", body)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[models.ComparisonBatchResponse](t, rec)
	require.Equal(t, 3, resp.Processed)
	require.Len(t, resp.Results, 3)

	engine := queueing.Default()
	for i, p := range []models.QueueingParameters{
		{Lambda: 120, PeakHours: true, ScheduledMode: true},
		{Lambda: 60, Mu: 25},
		{Lambda: 150, Mu: 25, PeakHours: true},
	} {
		want := engine.DefaultParameters()
		want.Lambda, want.Mu, want.PeakHours, want.ScheduledMode = p.Lambda, p.Mu, p.PeakHours, p.ScheduledMode
		assert.Equal(t, engine.Compare(want), resp.Results[i], "scenario %d", i)
	}
}

func TestBatchCompareHandler_InvalidScenario(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/queue/compare/batch", `{"scenarios": [{"lambda": 60}, {"lambda": "fast"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "scenario 1")
}

func TestBatchCompareHandler_TooLarge(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	scenarios := make([]json.RawMessage, MaxBatchSize+1)
	for i := range scenarios {
		scenarios[i] = json.RawMessage(`{"lambda": 60}`)
	}
	rec := do(t, router, http.MethodPost, "/v1/queue/compare/batch", models.ComparisonBatch{Scenarios: scenarios})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileHandler(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodGet, "/v1/queue/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.HourlyWait](t, rec), len(queueing.DefaultProfileHours()))

	rec = do(t, router, http.MethodGet, "/v1/queue/profile?hours=8,12&capacity=50&gap=120", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[[]models.HourlyWait](t, rec)
	require.Len(t, profile, 2)
	assert.Equal(t, 90.0, profile[0].WaitTime)
	assert.Equal(t, 20.0, profile[1].WaitTime)

	rec = do(t, router, http.MethodGet, "/v1/queue/profile?hours=8,25", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/v1/queue/profile?gap=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileHandler_RejectsNonFiniteGap(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	for _, gap := range []string{"Inf", "+Inf", "-Inf", "NaN", "infinity"} {
		rec := do(t, router, http.MethodGet, "/v1/queue/profile?gap="+gap, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "gap=%s", gap)
		assert.Contains(t, decode[map[string]string](t, rec)["error"], "Invalid gap", "gap=%s", gap)
	}
}

func TestDemandHandler(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodGet, "/v1/demand?departure=23:00&timetable=06:00,08:30,23:00", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[models.DemandResponse](t, rec)
	assert.Equal(t, 23, d.Hour)
	assert.Equal(t, 60.0, d.Lambda)
	assert.False(t, d.PeakHours)
	assert.Equal(t, 420.0, d.ScheduleGapMinutes)

	rec = do(t, router, http.MethodGet, "/v1/demand?hour=8", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d = decode[models.DemandResponse](t, rec)
	assert.Equal(t, 120.0, d.Lambda)
	assert.True(t, d.PeakHours)
	assert.Equal(t, 120.0, d.ScheduleGapMinutes)

	rec = do(t, router, http.MethodGet, "/v1/demand", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMaintenanceHandler(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/maintenance", models.MaintenanceRequest{Trips: 300})
	require.Equal(t, http.StatusOK, rec.Code)
	s := decode[models.MaintenanceStatus](t, rec)
	assert.Equal(t, models.MaintenanceOK, s.Status)
	assert.Equal(t, 700, s.NextMaintenanceTrips)

	rec = do(t, router, http.MethodPost, "/v1/maintenance", models.MaintenanceRequest{Trips: 950, BaseMTBF: 1000})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.MaintenanceRisk, decode[models.MaintenanceStatus](t, rec).Status)
}

func TestFailureImpactHandler(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/failure-impact",
		models.FailureRequest{Lambda: 60, Mu: 25, AvailableServers: 2, TotalServers: 4})
	require.Equal(t, http.StatusOK, rec.Code)

	impact := decode[models.FailureImpact](t, rec)
	assert.Equal(t, models.RegimeAnalytic, impact.Normal.Model)
	assert.Equal(t, models.RegimeSimulated, impact.WithFailure.Model)
	assert.Greater(t, impact.Impact.WaitTimeIncrease, 0.0)
}

func TestTrendsHandler(t *testing.T) {
	router, monitor := newTestRouter(t, nil)
	monitor.ObserveSync(models.Observation{WalkUpWait: 20, Utilization: 0.5})
	monitor.ObserveSync(models.Observation{WalkUpWait: 40, Utilization: 0.7})

	rec := do(t, router, http.MethodGet, "/v1/trends", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Observations int                `json:"observations"`
		RollingAvg   map[string]float64 `json:"rolling_avg"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Observations)
	assert.InDelta(t, 30.0, body.RollingAvg["wait_minutes"], 1e-9)
}

func TestHealthHandler_WithoutCache(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := do(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[models.HealthStatus](t, rec)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "disconnected", status.Redis)
}
