package screening

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smallsteps/growthscreen/internal/domain/growth"
	apperrors "github.com/smallsteps/growthscreen/pkg/errors"
	"github.com/smallsteps/growthscreen/pkg/metrics"
	"github.com/smallsteps/growthscreen/pkg/util"
)

// Version reported for results produced by the local fallback estimator.
const fallbackModelVersion = "local-estimator/1.0.0"

// Service exposes the analysis orchestration capabilities.
type Service interface {
	Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	Reconcile(ctx context.Context) (DrainReport, error)
	QueueStatus(ctx context.Context) (QueueStatus, error)
	EvictExpired(ctx context.Context) (int, error)
}

// Config tunes the orchestrator.
type Config struct {
	CacheTTL            time.Duration
	MaxRemoteAttempts   int
	BaseBackoff         time.Duration
	FallbackEnabled     bool
	ConfidenceThreshold float64
}

type service struct {
	cfg        Config
	classifier *growth.Classifier
	estimator  *Estimator
	remote     InferenceClient
	probe      ConnectivityProbe
	cache      ResultCache
	queue      OfflineQueue
	archive    ScanArchive
	logger     *slog.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	newID      func() string
}

// NewService wires up the analysis orchestrator.
func NewService(cfg Config, classifier *growth.Classifier, estimator *Estimator, remote InferenceClient, probe ConnectivityProbe, cache ResultCache, queue OfflineQueue, archive ScanArchive, logger *slog.Logger) Service {
	return &service{
		cfg:        cfg,
		classifier: classifier,
		estimator:  estimator,
		remote:     remote,
		probe:      probe,
		cache:      cache,
		queue:      queue,
		archive:    archive,
		logger:     logger.With("component", "screening.service"),
		now:        util.NowUTC,
		sleep:      ctxSleep,
		newID:      uuid.NewString,
	}
}

// Analyze runs one request through cache, remote inference and, when the
// remote path is exhausted, the local fallback estimator.
func (s *service) Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	if err := validateRequest(req); err != nil {
		return FailureResult(err), err
	}

	started := s.now()
	key := Fingerprint(req)
	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("cache lookup failed", "fingerprint", key, "error", err)
	} else if ok {
		s.logger.Info("analysis cache hit", "fingerprint", key)
		return cached, nil
	}

	var (
		remoteErr error
		attempts  int
	)
	if s.probe.IsReachable(ctx) {
		var res AnalysisResult
		res, attempts, remoteErr = s.analyzeRemote(ctx, req)
		if remoteErr == nil {
			if err := ctx.Err(); err != nil {
				cerr := apperrors.Wrap(CodeCanceled, "analysis canceled", err)
				return FailureResult(cerr), cerr
			}
			res.Source = SourceRemote
			res.Stats = &metrics.ProcessingStats{
				RemoteAttempts: attempts,
				DurationMs:     s.now().Sub(started).Milliseconds(),
				Source:         string(SourceRemote),
			}
			s.commitVerified(ctx, key, req, res)
			return res, nil
		}
		if apperrors.IsCode(remoteErr, CodeCanceled) {
			return FailureResult(remoteErr), remoteErr
		}
		s.logger.Warn("remote analysis exhausted", "attempts", attempts, "error", remoteErr)
	} else {
		remoteErr = apperrors.Wrap(CodeNetworkUnavailable, "inference service unreachable", nil)
	}

	if !s.cfg.FallbackEnabled {
		err := apperrors.Wrap(CodeNetworkUnavailable, "inference service unavailable and local fallback disabled", remoteErr)
		return FailureResult(err), err
	}
	return s.analyzeFallback(ctx, key, req, started, attempts)
}

func (s *service) analyzeRemote(ctx context.Context, req AnalysisRequest) (AnalysisResult, int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRemoteAttempts; attempt++ {
		if attempt > 1 {
			// Backoff grows with the number of failed attempts.
			if err := s.sleep(ctx, s.cfg.BaseBackoff*time.Duration(attempt-1)); err != nil {
				return AnalysisResult{}, attempt - 1, apperrors.Wrap(CodeCanceled, "analysis canceled during backoff", err)
			}
		}
		res, err := s.remote.Analyze(ctx, req)
		if err == nil && res.Success {
			return res, attempt, nil
		}
		if err == nil {
			err = apperrors.Wrap(CodeRemoteServiceError, "inference service reported failure: "+res.Error, nil)
		}
		lastErr = err
		s.logger.Warn("remote analysis attempt failed", "attempt", attempt, "error", err)
	}
	return AnalysisResult{}, s.cfg.MaxRemoteAttempts, apperrors.Wrap(CodeNetworkUnavailable, "remote analysis failed after retries", lastErr)
}

func (s *service) analyzeFallback(ctx context.Context, key string, req AnalysisRequest, started time.Time, remoteAttempts int) (AnalysisResult, error) {
	estimated, err := s.estimator.Estimate(req.AgeMonths, req.Sex)
	if err != nil {
		return FailureResult(err), err
	}
	annotated, err := s.classifier.Annotate(estimated, req.AgeMonths, req.Sex)
	if err != nil {
		return FailureResult(err), err
	}
	status, err := s.classifier.Classify(annotated, req.AgeMonths, req.Sex)
	if err != nil {
		return FailureResult(err), err
	}

	result := AnalysisResult{
		Measurements:      annotated,
		NutritionalStatus: status,
		ModelInfo: ModelInfo{
			Version:             fallbackModelVersion,
			ConfidenceThreshold: s.cfg.ConfidenceThreshold,
			ProcessingTimeMs:    s.now().Sub(started).Milliseconds(),
		},
		Source: SourceFallback,
		Stats: &metrics.ProcessingStats{
			RemoteAttempts: remoteAttempts,
			DurationMs:     s.now().Sub(started).Milliseconds(),
			Source:         string(SourceFallback),
		},
		Success: true,
	}

	// Side effects commit together once the result is fully constructed; a
	// canceled context leaves both the cache and the queue untouched.
	if err := ctx.Err(); err != nil {
		cerr := apperrors.Wrap(CodeCanceled, "analysis canceled", err)
		return FailureResult(cerr), cerr
	}
	item := QueueItem{
		ID:         s.newID(),
		Request:    req,
		EnqueuedAt: s.now(),
		Attempts:   0,
	}
	if err := s.queue.Enqueue(ctx, item); err != nil {
		qerr := apperrors.Wrap(CodeQueueError, "failed to enqueue analysis for reconciliation", err)
		return FailureResult(qerr), qerr
	}
	if err := s.cache.Put(ctx, key, result, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("cache write failed", "fingerprint", key, "error", err)
	}
	s.logger.Info("fallback analysis produced", "fingerprint", key, "queue_item", item.ID, "overall_risk", status.OverallRisk)
	return result, nil
}

// commitVerified records a remote-verified result: the scan image goes to the
// audit archive and the result to the cache. Neither failure is fatal.
func (s *service) commitVerified(ctx context.Context, key string, req AnalysisRequest, res AnalysisResult) {
	if s.archive != nil {
		if objectKey, err := s.archive.Store(ctx, req); err != nil {
			s.logger.Warn("scan archive write failed", "session_id", req.SessionID, "error", err)
		} else {
			s.logger.Debug("scan archived", "key", objectKey)
		}
	}
	if err := s.cache.Put(ctx, key, res, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("cache write failed", "fingerprint", key, "error", err)
	}
}

// Reconcile replays queued fallback analyses against the remote service.
// Items are only marked processed once a verified online result lands.
func (s *service) Reconcile(ctx context.Context) (DrainReport, error) {
	if !s.probe.IsReachable(ctx) {
		return DrainReport{}, apperrors.Wrap(CodeNetworkUnavailable, "inference service unreachable", nil)
	}
	report, err := s.queue.Drain(ctx, func(ctx context.Context, item QueueItem) error {
		res, err := s.remote.Analyze(ctx, item.Request)
		if err != nil {
			return err
		}
		if !res.Success {
			return apperrors.Wrap(CodeRemoteServiceError, "inference service reported failure: "+res.Error, nil)
		}
		res.Source = SourceRemote
		s.commitVerified(ctx, Fingerprint(item.Request), item.Request, res)
		return nil
	})
	if err != nil {
		return report, apperrors.Wrap(CodeQueueError, "offline queue drain failed", err)
	}
	if report.Succeeded > 0 || report.Failed > 0 {
		s.logger.Info("offline queue reconciled", "succeeded", report.Succeeded, "failed", report.Failed)
	}
	return report, nil
}

// QueueStatus reports the pending offline workload.
func (s *service) QueueStatus(ctx context.Context) (QueueStatus, error) {
	status, err := s.queue.Pending(ctx)
	if err != nil {
		return QueueStatus{}, apperrors.Wrap(CodeQueueError, "failed to read offline queue", err)
	}
	return status, nil
}

// EvictExpired sweeps expired cache entries; advisory because Get re-checks
// TTL on every read.
func (s *service) EvictExpired(ctx context.Context) (int, error) {
	return s.cache.EvictExpired(ctx)
}

func validateRequest(req AnalysisRequest) error {
	switch {
	case req.AgeMonths < 0:
		return apperrors.Wrap(CodeInvalidInput, "age_months must be non-negative", nil)
	case !req.Sex.Valid():
		return apperrors.Wrap(CodeInvalidInput, "sex must be M or F", nil)
	case !req.ScanAngle.Valid():
		return apperrors.Wrap(CodeInvalidInput, "scan_angle must be front, back, side_left or side_right", nil)
	case strings.TrimSpace(req.SessionID) == "":
		return apperrors.Wrap(CodeInvalidInput, "session_id cannot be empty", nil)
	}
	return nil
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
