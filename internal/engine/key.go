package engine

import (
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/mrdeadlift/relic-engine/internal/model"
)

// CacheKey builds the canonical memoization key: sorted relic identifiers
// joined by commas, concatenated with the stable context serialization.
// Equal inputs yield equal keys regardless of relic ordering.
func CacheKey(relicIDs []string, ctx *model.CalculationContext) string {
	ids := make([]string, len(relicIDs))
	copy(ids, relicIDs)
	sort.Strings(ids)
	return strings.Join(ids, ",") + "|" + ctx.Canonical()
}

// Fingerprint derives a short hex digest of a cache key for logs and
// result metadata, so a calculation can be correlated across server and
// CLI output without dumping full keys.
func Fingerprint(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
