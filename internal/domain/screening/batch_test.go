package screening

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smallsteps/growthscreen/internal/domain/growth"
)

type scriptedService struct {
	analyzeFn func(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
}

func (s *scriptedService) Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	return s.analyzeFn(ctx, req)
}

func (s *scriptedService) Reconcile(context.Context) (DrainReport, error) {
	return DrainReport{}, nil
}

func (s *scriptedService) QueueStatus(context.Context) (QueueStatus, error) {
	return QueueStatus{}, nil
}

func (s *scriptedService) EvictExpired(context.Context) (int, error) { return 0, nil }

func TestBatchPreservesOrder(t *testing.T) {
	svc := &scriptedService{
		analyzeFn: func(_ context.Context, req AnalysisRequest) (AnalysisResult, error) {
			res := remoteResult()
			res.ModelInfo.Version = string(req.ScanAngle)
			return res, nil
		},
	}
	b := NewBatchCoordinator(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	angles := []ScanAngle{AngleFront, AngleBack, AngleSideLeft, AngleSideRight}
	reqs := make([]AnalysisRequest, len(angles))
	for i, angle := range angles {
		reqs[i] = validRequest()
		reqs[i].ScanAngle = angle
	}

	results := b.AnalyzeBatch(context.Background(), reqs)
	require.Len(t, results, len(angles))
	for i, angle := range angles {
		require.Equal(t, string(angle), results[i].ModelInfo.Version)
	}
}

func TestBatchContinuesPastFailures(t *testing.T) {
	svc := &scriptedService{
		analyzeFn: func(_ context.Context, req AnalysisRequest) (AnalysisResult, error) {
			if req.ScanAngle == AngleBack {
				return AnalysisResult{}, errors.New("boom")
			}
			return remoteResult(), nil
		},
	}
	b := NewBatchCoordinator(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	reqs := []AnalysisRequest{validRequest(), validRequest(), validRequest()}
	reqs[1].ScanAngle = AngleBack

	results := b.AnalyzeBatch(context.Background(), reqs)
	require.Len(t, results, 3)
	require.True(t, results[0].Success)
	require.False(t, results[1].Success)
	require.Equal(t, growth.MeasurementSet{}, results[1].Measurements)
	require.True(t, results[2].Success)
}

func TestBatchEmptyInput(t *testing.T) {
	svc := &scriptedService{
		analyzeFn: func(context.Context, AnalysisRequest) (AnalysisResult, error) {
			t.Fatal("unexpected analyze call")
			return AnalysisResult{}, nil
		},
	}
	b := NewBatchCoordinator(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	results := b.AnalyzeBatch(context.Background(), nil)
	require.Empty(t, results)
}
