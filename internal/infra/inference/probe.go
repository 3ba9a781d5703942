package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/smallsteps/growthscreen/internal/domain/screening"
)

const defaultProbeTimeout = 2 * time.Second

// HealthProbe checks whether the inference service is reachable before any
// analysis traffic is sent its way.
type HealthProbe struct {
	healthURL  string
	httpClient *http.Client
}

// NewHealthProbe builds a probe against the service health endpoint.
func NewHealthProbe(baseURL string, timeout time.Duration) *HealthProbe {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &HealthProbe{
		healthURL: strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/health",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded *bool  `json:"model_loaded"`
}

// IsReachable reports whether the service answered the health check. Any
// transport error, non-2xx status or unloaded model counts as unreachable.
func (p *HealthProbe) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.healthURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return false
	}
	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		// A bare 200 with no body still counts as reachable.
		return true
	}
	if health.ModelLoaded != nil && !*health.ModelLoaded {
		return false
	}
	return true
}

var _ screening.ConnectivityProbe = (*HealthProbe)(nil)
