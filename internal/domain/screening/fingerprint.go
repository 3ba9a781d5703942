package screening

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint derives the cache key for a request from age, sex and scan
// angle. Image bytes are not part of the key: two scans with matching age,
// sex and angle share a cache slot.
func Fingerprint(req AnalysisRequest) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s", req.AgeMonths, req.Sex, req.ScanAngle)))
	return hex.EncodeToString(sum[:])
}
