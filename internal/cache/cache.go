// Package cache memoizes oracle classifications keyed by payload digest, so a
// re-submitted frame or text does not cost another oracle call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"incident-insights-go/internal/types"
)

type Store interface {
	Get(ctx context.Context, key string) (types.Classification, bool)
	Set(ctx context.Context, key string, c types.Classification)
}

// Key digests everything that influences the oracle answer.
func Key(unit types.AnalysisUnit, categories []string) string {
	h := sha256.New()
	h.Write([]byte(unit.Kind))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(categories, ",")))
	h.Write([]byte{0})
	h.Write(unit.Payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Cacheable reports whether c is a real oracle answer. Degraded results are
// never stored so a transient failure is retried next time.
func Cacheable(c types.Classification) bool {
	return !types.IsSentinel(c.Category)
}
