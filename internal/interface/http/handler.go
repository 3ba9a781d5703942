package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smallsteps/growthscreen/internal/domain/growth"
	"github.com/smallsteps/growthscreen/internal/domain/screening"
	apperrors "github.com/smallsteps/growthscreen/pkg/errors"
)

// Handler wires the HTTP transport to the screening domain.
type Handler struct {
	screeningSvc screening.Service
	batch        *screening.BatchCoordinator
	logger       *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(svc screening.Service, batch *screening.BatchCoordinator, logger *slog.Logger) *Handler {
	return &Handler{
		screeningSvc: svc,
		batch:        batch,
		logger:       logger.With("component", "http.handler"),
	}
}

// AnalyzeScan runs a single scan through the analysis pipeline.
func (h *Handler) AnalyzeScan(c *gin.Context) {
	var req screening.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	result, err := h.screeningSvc.Analyze(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, analysisError(err))
		return
	}

	c.JSON(http.StatusOK, result)
}

type batchRequest struct {
	Scans []screening.AnalysisRequest `json:"scans"`
}

type batchResult struct {
	Results []screening.AnalysisResult `json:"results"`
}

// AnalyzeScanBatch processes several capture angles in one call. Individual
// failures come back as failed slots, so the endpoint itself always answers 200.
func (h *Handler) AnalyzeScanBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if len(req.Scans) == 0 {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "scans cannot be empty", nil))
		return
	}

	results := h.batch.AnalyzeBatch(c.Request.Context(), req.Scans)
	c.JSON(http.StatusOK, batchResult{Results: results})
}

// ReconcileQueue replays queued offline analyses against the remote service.
func (h *Handler) ReconcileQueue(c *gin.Context) {
	report, err := h.screeningSvc.Reconcile(c.Request.Context())
	if err != nil {
		abortWithError(c, analysisError(err))
		return
	}
	c.JSON(http.StatusOK, report)
}

// QueueStatus reports the pending offline workload.
func (h *Handler) QueueStatus(c *gin.Context) {
	status, err := h.screeningSvc.QueueStatus(c.Request.Context())
	if err != nil {
		abortWithError(c, analysisError(err))
		return
	}
	c.JSON(http.StatusOK, status)
}

// EvictExpired sweeps expired cache entries on demand.
func (h *Handler) EvictExpired(c *gin.Context) {
	evicted, err := h.screeningSvc.EvictExpired(c.Request.Context())
	if err != nil {
		abortWithError(c, analysisError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"evicted": evicted})
}

// Health answers liveness checks.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

// analysisError maps domain error codes onto HTTP statuses.
func analysisError(err error) *HTTPError {
	status := http.StatusInternalServerError
	code := apperrors.CodeOf(err)
	switch code {
	case screening.CodeInvalidInput, growth.CodeOutOfRangeInput:
		status = http.StatusBadRequest
	case screening.CodeNetworkUnavailable:
		status = http.StatusServiceUnavailable
	case screening.CodeRemoteServiceError:
		status = http.StatusBadGateway
	case screening.CodeCanceled:
		// Client went away; 499 is the conventional nginx status for it.
		status = 499
	case screening.CodeQueueError:
		status = http.StatusInternalServerError
	default:
		code = "analysis_failed"
	}
	return NewHTTPError(status, code, errMessage(err), err)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
