package screening

import (
	"context"
	"log/slog"
)

// BatchCoordinator drives the orchestrator over a list of capture angles.
// Items run strictly one at a time in input order so remote calls and cache
// writes observe a consistent ordering for audit purposes.
type BatchCoordinator struct {
	svc    Service
	logger *slog.Logger
}

// NewBatchCoordinator wires the coordinator to an orchestrator.
func NewBatchCoordinator(svc Service, logger *slog.Logger) *BatchCoordinator {
	return &BatchCoordinator{svc: svc, logger: logger.With("component", "screening.batch")}
}

// AnalyzeBatch processes every request sequentially. A failing item keeps
// its slot as a failed result; later items still run, so the batch itself
// never fails.
func (b *BatchCoordinator) AnalyzeBatch(ctx context.Context, reqs []AnalysisRequest) []AnalysisResult {
	results := make([]AnalysisResult, len(reqs))
	for i, req := range reqs {
		res, err := b.svc.Analyze(ctx, req)
		if err != nil {
			b.logger.Warn("batch item failed", "index", i, "session_id", req.SessionID, "error", err)
			results[i] = FailureResult(err)
			continue
		}
		results[i] = res
	}
	return results
}
