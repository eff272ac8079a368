package scrape

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

// Fingerprint derives the cache key for a scrape request. Two requests
// share a fingerprint iff every field that influences the final
// artifact matches; cosmetic fields (use_cache, stealth) are excluded
// because they do not change the output for the same page state.
func Fingerprint(req *models.ScrapeTaskRequest) string {
	parts := []string{
		req.URL,
		req.OutputFormat,
		req.TransformProvider,
		req.TransformModel,
		req.CustomInstructions,
		req.CSSSelector,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
