package screening

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smallsteps/growthscreen/internal/domain/growth"
	apperrors "github.com/smallsteps/growthscreen/pkg/errors"
)

func TestAnalyzeCacheHit(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	cached := remoteResult()
	f.cache.entries[Fingerprint(req)] = cached

	res, err := f.svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, cached, res)
	require.Zero(t, f.probe.calls)
	require.Zero(t, f.client.calls)
	require.Empty(t, f.queue.items)
	require.Zero(t, f.cache.puts)
}

func TestAnalyzeRemoteSuccess(t *testing.T) {
	f := newFixture(t)
	req := validRequest()

	res, err := f.svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, SourceRemote, res.Source)
	require.NotNil(t, res.Stats)
	require.Equal(t, 1, res.Stats.RemoteAttempts)
	require.Equal(t, 1, f.client.calls)
	require.Equal(t, 1, f.cache.puts)
	require.Equal(t, f.cfg.CacheTTL, f.cache.lastTTL)
	require.Empty(t, f.queue.items, "remote-verified results are never queued")
	require.Equal(t, 1, f.archive.calls)
}

func TestAnalyzeRemoteRetriesThenFallsBack(t *testing.T) {
	f := newFixture(t)
	f.client.analyzeFn = func(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
		return AnalysisResult{}, errors.New("connection reset")
	}
	req := validRequest()

	res, err := f.svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, SourceFallback, res.Source)
	require.Equal(t, 3, f.client.calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.sleeps())
	require.Equal(t, 3, res.Stats.RemoteAttempts)

	require.Len(t, f.queue.items, 1)
	item := f.queue.items[0]
	require.Equal(t, 0, item.Attempts, "queue item records replay attempts, not remote attempts")
	require.Equal(t, req, item.Request)
	require.False(t, item.Processed)
	require.Equal(t, 1, f.cache.puts)
}

func TestAnalyzeRemoteFailureStatusCountsAsAttempt(t *testing.T) {
	f := newFixture(t)
	f.client.analyzeFn = func(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
		return AnalysisResult{Success: false, Error: "no pose detected"}, nil
	}

	res, err := f.svc.Analyze(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, SourceFallback, res.Source)
	require.Equal(t, 3, f.client.calls)
}

func TestAnalyzeUnreachableFallsBack(t *testing.T) {
	f := newFixture(t)
	f.probe.reachable = false

	res, err := f.svc.Analyze(context.Background(), validRequest())
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, SourceFallback, res.Source)
	require.Zero(t, f.client.calls)
	require.Len(t, f.queue.items, 1)
	require.Equal(t, fallbackModelVersion, res.ModelInfo.Version)

	// The fallback estimate is reproducible.
	g := newFixture(t)
	g.probe.reachable = false
	again, err := g.svc.Analyze(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, res.Measurements, again.Measurements)
	require.Equal(t, res.NutritionalStatus, again.NutritionalStatus)
}

func TestAnalyzeFallbackDisabled(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.FallbackEnabled = false
	f.probe.reachable = false

	res, err := f.svc.Analyze(context.Background(), validRequest())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, CodeNetworkUnavailable))
	require.False(t, res.Success)
	require.Empty(t, f.queue.items)
	require.Zero(t, f.cache.puts)
}

func TestAnalyzeInvalidInput(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.Sex = growth.Sex("X")

	res, err := f.svc.Analyze(context.Background(), req)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, CodeInvalidInput))
	require.False(t, res.Success)
	require.Zero(t, f.probe.calls)
}

func TestAnalyzeFallbackOutOfRange(t *testing.T) {
	f := newFixture(t)
	f.probe.reachable = false
	req := validRequest()
	req.AgeMonths = 61

	res, err := f.svc.Analyze(context.Background(), req)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, growth.CodeOutOfRangeInput))
	require.False(t, res.Success)
	require.Empty(t, f.queue.items)
	require.Zero(t, f.cache.puts)
}

func TestAnalyzeCanceledDuringBackoffHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	f.client.analyzeFn = func(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
		return AnalysisResult{}, errors.New("connection reset")
	}
	f.svc.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	res, err := f.svc.Analyze(context.Background(), validRequest())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, CodeCanceled))
	require.False(t, res.Success)
	require.Empty(t, f.queue.items)
	require.Zero(t, f.cache.puts)
}

func TestReconcileDrainsInOrder(t *testing.T) {
	f := newFixture(t)
	for _, session := range []string{"a", "b", "c"} {
		req := validRequest()
		req.SessionID = session
		require.NoError(t, f.queue.Enqueue(context.Background(), QueueItem{ID: session, Request: req, EnqueuedAt: f.now}))
	}
	var seen []string
	f.client.analyzeFn = func(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
		seen = append(seen, req.SessionID)
		return remoteResult(), nil
	}

	report, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Equal(t, DrainReport{Succeeded: 3, Failed: 0}, report)
	require.Equal(t, []string{"a", "b", "c"}, seen)
	for _, item := range f.queue.items {
		require.True(t, item.Processed)
	}
	require.Equal(t, 3, f.cache.puts, "verified results replace fallback cache entries")
}

func TestReconcileKeepsFailedItemForNextCycle(t *testing.T) {
	f := newFixture(t)
	for _, session := range []string{"a", "b", "c"} {
		req := validRequest()
		req.SessionID = session
		require.NoError(t, f.queue.Enqueue(context.Background(), QueueItem{ID: session, Request: req, EnqueuedAt: f.now}))
	}
	f.client.analyzeFn = func(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
		if req.SessionID == "b" {
			return AnalysisResult{}, errors.New("connection reset")
		}
		return remoteResult(), nil
	}

	report, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Equal(t, DrainReport{Succeeded: 2, Failed: 1}, report)
	require.False(t, f.queue.items[1].Processed)
	require.Equal(t, 1, f.queue.items[1].Attempts)

	// A later enqueue must not jump ahead of the failed item.
	late := validRequest()
	late.SessionID = "d"
	require.NoError(t, f.queue.Enqueue(context.Background(), QueueItem{ID: "d", Request: late, EnqueuedAt: f.now.Add(time.Minute)}))

	var seen []string
	f.client.analyzeFn = func(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
		seen = append(seen, req.SessionID)
		return remoteResult(), nil
	}
	report, err = f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Equal(t, DrainReport{Succeeded: 2, Failed: 0}, report)
	require.Equal(t, []string{"b", "d"}, seen)
	require.True(t, f.queue.items[1].Processed)
	require.Equal(t, 1, f.queue.items[1].Attempts, "attempts count failed replays only")
}

func TestReconcileUnreachable(t *testing.T) {
	f := newFixture(t)
	f.probe.reachable = false

	_, err := f.svc.Reconcile(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, CodeNetworkUnavailable))
	require.Zero(t, f.client.calls)
}

func TestQueueStatus(t *testing.T) {
	f := newFixture(t)
	enqueued := f.now.Add(-time.Hour)
	require.NoError(t, f.queue.Enqueue(context.Background(), QueueItem{ID: "x", Request: validRequest(), EnqueuedAt: enqueued}))

	status, err := f.svc.QueueStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, status.Pending)
	require.Equal(t, enqueued, status.OldestQueued)
}

// --- fixture ---

type fixture struct {
	svc     *service
	cfg     Config
	probe   *stubProbe
	client  *stubClient
	cache   *stubCache
	queue   *stubQueue
	archive *stubArchive
	now     time.Time
	slept   *[]time.Duration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	standards := growth.NewStandards()
	cfg := Config{
		CacheTTL:            24 * time.Hour,
		MaxRemoteAttempts:   3,
		BaseBackoff:         time.Second,
		FallbackEnabled:     true,
		ConfidenceThreshold: 0.7,
	}
	f := &fixture{
		cfg:     cfg,
		probe:   &stubProbe{reachable: true},
		client:  &stubClient{},
		cache:   &stubCache{entries: map[string]AnalysisResult{}},
		queue:   &stubQueue{},
		archive: &stubArchive{},
		now:     time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC),
		slept:   &[]time.Duration{},
	}
	ids := 0
	f.svc = &service{
		cfg:        cfg,
		classifier: growth.NewClassifier(standards),
		estimator:  NewEstimator(standards, 42, 0.5),
		remote:     f.client,
		probe:      f.probe,
		cache:      f.cache,
		queue:      f.queue,
		archive:    f.archive,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        func() time.Time { return f.now },
		sleep: func(ctx context.Context, d time.Duration) error {
			*f.slept = append(*f.slept, d)
			return nil
		},
		newID: func() string {
			ids++
			return fmt.Sprintf("item-%d", ids)
		},
	}
	return f
}

func (f *fixture) sleeps() []time.Duration { return *f.slept }

func validRequest() AnalysisRequest {
	return AnalysisRequest{
		ImageData:  []byte("jpeg-bytes"),
		AgeMonths:  24,
		Sex:        growth.SexFemale,
		ScanAngle:  AngleFront,
		SessionID:  "session-1",
		CapturedAt: time.Date(2025, 11, 2, 9, 59, 0, 0, time.UTC),
	}
}

func remoteResult() AnalysisResult {
	z := -0.4
	p := 34.5
	return AnalysisResult{
		Measurements: growth.MeasurementSet{
			Height:            growth.Measurement{Value: 84.5, Unit: growth.UnitCentimeters, Confidence: 0.93, ZScore: &z, Percentile: &p},
			Weight:            growth.Measurement{Value: 11.2, Unit: growth.UnitKilograms, Confidence: 0.9},
			MUAC:              growth.Measurement{Value: 14.7, Unit: growth.UnitCentimeters, Confidence: 0.8},
			HeadCircumference: growth.Measurement{Value: 47.0, Unit: growth.UnitCentimeters, Confidence: 0.85},
		},
		NutritionalStatus: growth.NutritionalStatus{
			Stunting:        growth.IndicatorAssessment{Status: growth.SeverityNormal, ZScore: -0.4, RiskLevel: growth.RiskLow},
			Wasting:         growth.IndicatorAssessment{Status: growth.SeverityNormal, ZScore: -0.2, RiskLevel: growth.RiskLow},
			Underweight:     growth.IndicatorAssessment{Status: growth.SeverityNormal, ZScore: -0.3, RiskLevel: growth.RiskLow},
			OverallRisk:     growth.RiskLow,
			Recommendations: []string{"Growth appears normal. Continue regular monitoring."},
		},
		ModelInfo: ModelInfo{Version: "2.1.0", ConfidenceThreshold: 0.7, ProcessingTimeMs: 412},
		Success:   true,
	}
}

// --- stubs ---

type stubProbe struct {
	reachable bool
	calls     int
}

func (p *stubProbe) IsReachable(context.Context) bool {
	p.calls++
	return p.reachable
}

type stubClient struct {
	analyzeFn func(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	calls     int
}

func (c *stubClient) Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	c.calls++
	if c.analyzeFn != nil {
		return c.analyzeFn(ctx, req)
	}
	return remoteResult(), nil
}

func (c *stubClient) AnalyzeBatch(ctx context.Context, reqs []AnalysisRequest) ([]AnalysisResult, error) {
	out := make([]AnalysisResult, 0, len(reqs))
	for _, req := range reqs {
		res, err := c.Analyze(ctx, req)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

type stubCache struct {
	entries map[string]AnalysisResult
	puts    int
	lastTTL time.Duration
	getErr  error
	putErr  error
}

func (c *stubCache) Get(_ context.Context, key string) (AnalysisResult, bool, error) {
	if c.getErr != nil {
		return AnalysisResult{}, false, c.getErr
	}
	res, ok := c.entries[key]
	return res, ok, nil
}

func (c *stubCache) Put(_ context.Context, key string, result AnalysisResult, ttl time.Duration) error {
	if c.putErr != nil {
		return c.putErr
	}
	c.puts++
	c.lastTTL = ttl
	c.entries[key] = result
	return nil
}

func (c *stubCache) EvictExpired(context.Context) (int, error) { return 0, nil }

type stubQueue struct {
	items      []QueueItem
	enqueueErr error
}

func (q *stubQueue) Enqueue(_ context.Context, item QueueItem) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.items = append(q.items, item)
	return nil
}

func (q *stubQueue) Drain(ctx context.Context, handler DrainHandler) (DrainReport, error) {
	var report DrainReport
	for i := range q.items {
		if q.items[i].Processed {
			continue
		}
		if err := handler(ctx, q.items[i]); err != nil {
			q.items[i].Attempts++
			report.Failed++
			continue
		}
		q.items[i].Processed = true
		report.Succeeded++
	}
	return report, nil
}

func (q *stubQueue) Pending(context.Context) (QueueStatus, error) {
	status := QueueStatus{}
	for _, item := range q.items {
		if item.Processed {
			continue
		}
		if status.Pending == 0 || item.EnqueuedAt.Before(status.OldestQueued) {
			status.OldestQueued = item.EnqueuedAt
		}
		status.Pending++
	}
	return status, nil
}

type stubArchive struct {
	calls int
	err   error
}

func (a *stubArchive) Store(_ context.Context, req AnalysisRequest) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.calls++
	return "scans/" + req.SessionID, nil
}
