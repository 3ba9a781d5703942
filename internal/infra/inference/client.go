package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallsteps/growthscreen/internal/domain/growth"
	"github.com/smallsteps/growthscreen/internal/domain/screening"
	apperrors "github.com/smallsteps/growthscreen/pkg/errors"
)

const defaultRequestTimeout = 30 * time.Second

// Client calls the pose-estimation inference service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// analyzeEnvelope is the wire request the inference service expects. Capture
// context rides in a nested metadata object.
type analyzeEnvelope struct {
	ImageData []byte          `json:"image_data"`
	AgeMonths int             `json:"age_months"`
	Sex       growth.Sex      `json:"sex"`
	Metadata  captureMetadata `json:"metadata"`
}

type captureMetadata struct {
	ScanAngle screening.ScanAngle `json:"scan_angle"`
	Timestamp time.Time           `json:"timestamp"`
	SessionID string              `json:"session_id"`
}

type batchEnvelope struct {
	Images []analyzeEnvelope `json:"images"`
}

type batchResponse struct {
	Results []screening.AnalysisResult `json:"results"`
}

// Analyze submits a single scan for measurement extraction.
func (c *Client) Analyze(ctx context.Context, req screening.AnalysisRequest) (screening.AnalysisResult, error) {
	var result screening.AnalysisResult
	if err := c.post(ctx, "/analyze", toEnvelope(req), &result); err != nil {
		return screening.AnalysisResult{}, err
	}
	return result, nil
}

// AnalyzeBatch submits several scans in one call. The service keeps result
// slots aligned with the input order.
func (c *Client) AnalyzeBatch(ctx context.Context, reqs []screening.AnalysisRequest) ([]screening.AnalysisResult, error) {
	envelope := batchEnvelope{Images: make([]analyzeEnvelope, len(reqs))}
	for i, req := range reqs {
		envelope.Images[i] = toEnvelope(req)
	}
	var resp batchResponse
	if err := c.post(ctx, "/analyze/batch", envelope, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) != len(reqs) {
		return nil, apperrors.Wrap(screening.CodeRemoteServiceError,
			fmt.Sprintf("inference service returned %d results for %d images", len(resp.Results), len(reqs)), nil)
	}
	return resp.Results, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode inference request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return apperrors.Wrap(screening.CodeRemoteServiceError,
			fmt.Sprintf("inference request error: status=%d body=%s", resp.StatusCode, string(payload)), nil)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read inference response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode inference response: %w", err)
	}
	return nil
}

func toEnvelope(req screening.AnalysisRequest) analyzeEnvelope {
	return analyzeEnvelope{
		ImageData: req.ImageData,
		AgeMonths: req.AgeMonths,
		Sex:       req.Sex,
		Metadata: captureMetadata{
			ScanAngle: req.ScanAngle,
			Timestamp: req.CapturedAt,
			SessionID: req.SessionID,
		},
	}
}

var _ screening.InferenceClient = (*Client)(nil)
