package resultcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/smallsteps/growthscreen/internal/domain/screening"
)

// ValkeyCache persists analysis results in a Valkey-compatible database so
// cached screenings survive process restarts.
type ValkeyCache struct {
	client valkey.Client
	prefix string
	logger *slog.Logger
}

// NewValkeyCache constructs a cache backed by Valkey.
func NewValkeyCache(client valkey.Client, prefix string, logger *slog.Logger) *ValkeyCache {
	if prefix == "" {
		prefix = "scan"
	}
	return &ValkeyCache{client: client, prefix: prefix, logger: logger.With("component", "resultcache.valkey")}
}

func (c *ValkeyCache) Get(ctx context.Context, key string) (screening.AnalysisResult, bool, error) {
	cmd := c.client.B().Get().Key(c.entryKey(key)).Build()
	payload, err := c.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return screening.AnalysisResult{}, false, nil
		}
		return screening.AnalysisResult{}, false, err
	}
	var result screening.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		// A corrupt entry is treated as a miss and removed so it cannot
		// shadow a fresh analysis.
		c.logger.Warn("dropping corrupt cache entry", "key", key, "error", err)
		_ = c.client.Do(ctx, c.client.B().Del().Key(c.entryKey(key)).Build()).Error()
		return screening.AnalysisResult{}, false, nil
	}
	return result, true, nil
}

func (c *ValkeyCache) Put(ctx context.Context, key string, result screening.AnalysisResult, ttl time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	builder := c.client.B().Set().Key(c.entryKey(key)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return c.client.Do(ctx, cmd).Error()
}

// EvictExpired is a no-op sweep: Valkey expires keys server-side via the TTL
// set on write. It reports zero so callers can distinguish it from a real sweep.
func (c *ValkeyCache) EvictExpired(context.Context) (int, error) {
	return 0, nil
}

func (c *ValkeyCache) entryKey(fingerprint string) string {
	return fmt.Sprintf("%s:result:%s", c.prefix, fingerprint)
}

var _ screening.ResultCache = (*ValkeyCache)(nil)
