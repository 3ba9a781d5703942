package screening

import (
	"context"
	"time"
)

// Error codes surfaced by the screening domain.
const (
	CodeInvalidInput       = "invalid_input"
	CodeNetworkUnavailable = "network_unavailable"
	CodeRemoteServiceError = "remote_service_error"
	CodeCanceled           = "canceled"
	CodeQueueError         = "queue_error"
)

// InferenceClient talks to the remote measurement inference service.
type InferenceClient interface {
	Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	AnalyzeBatch(ctx context.Context, reqs []AnalysisRequest) ([]AnalysisResult, error)
}

// ConnectivityProbe is a bounded-latency reachability check against the
// remote service. Implementations never retry; any failure reports false.
type ConnectivityProbe interface {
	IsReachable(ctx context.Context) bool
}

// ResultCache stores analysis results keyed by request fingerprint. Get must
// re-check TTL itself so expiry never depends on EvictExpired having run.
type ResultCache interface {
	Get(ctx context.Context, key string) (AnalysisResult, bool, error)
	Put(ctx context.Context, key string, result AnalysisResult, ttl time.Duration) error
	EvictExpired(ctx context.Context) (int, error)
}

// DrainHandler processes one queue item; a nil return marks it processed.
type DrainHandler func(ctx context.Context, item QueueItem) error

// OfflineQueue is the durable FIFO of analyses awaiting online delivery.
// Drain is at-least-once: failed items stay in place for the next cycle.
type OfflineQueue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Drain(ctx context.Context, handler DrainHandler) (DrainReport, error)
	Pending(ctx context.Context) (QueueStatus, error)
}

// ScanArchive keeps raw scan images for audit. Failures are advisory and
// never fail an analysis.
type ScanArchive interface {
	Store(ctx context.Context, req AnalysisRequest) (string, error)
}
