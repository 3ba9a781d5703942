package scanarchive

import (
	"context"
	"sync"

	"github.com/smallsteps/growthscreen/internal/domain/screening"
)

// MemoryArchive keeps scan images in memory. Useful for tests and local dev.
type MemoryArchive struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryArchive constructs the archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{blobs: make(map[string][]byte)}
}

// Store keeps the image under the same key layout the object store uses.
func (a *MemoryArchive) Store(_ context.Context, req screening.AnalysisRequest) (string, error) {
	key := ObjectKey(req)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blobs[key] = append([]byte(nil), req.ImageData...)
	return key, nil
}

// Get returns a stored image for test assertions.
func (a *MemoryArchive) Get(key string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	blob, ok := a.blobs[key]
	return blob, ok
}

var _ screening.ScanArchive = (*MemoryArchive)(nil)
