// Package guidance retrieves regulatory guidance chunks used to prompt the
// narrative generator. The static retriever carries a built-in corpus; the
// cached retriever layers cache reads over any retriever.
package guidance

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Retriever returns guidance chunks relevant to a typology and alert type.
// Implementations must return at least one chunk on success.
type Retriever interface {
	Retrieve(ctx context.Context, typology, alertType string) ([]string, error)
}

// Baseline chunks returned for every case.
var baseGuidance = []string{
	"SAR Narrative Structure: 1. Introduction/Subject, 2. Summary of Activity, 3. Analysis, 4. Conclusion.",
	"Include 5Ws: Who, What, Where, When, Why - and How the activity was conducted.",
	"Describe why the activity appears suspicious; do not assert that a crime occurred.",
}

// Typology-specific chunks, keyed by a lowercase keyword matched against
// the typology and alert type.
var typologyGuidance = map[string][]string{
	"structuring": {
		"Structuring indicators: multiple cash deposits under the reporting threshold, deposits across branches or days, followed by consolidation and outbound movement.",
		"For structuring narratives, state the number of deposits, the date range, the total amount, and the threshold the amounts cluster beneath.",
	},
	"layering": {
		"Layering indicators: rapid movement of consolidated funds through wires, often to higher-risk jurisdictions, with no apparent business purpose.",
	},
	"funnel": {
		"Funnel account indicators: a newly opened account receiving deposits from many unrelated third parties in multiple locations, with rapid withdrawal or transfer of the funds.",
		"For funnel account narratives, identify the number of distinct depositors, the geographic spread, and the velocity of the outbound movement.",
	},
	"velocity": {
		"Velocity anomalies: compare the flagged transaction count per unit time against the customer's established baseline and state the multiple.",
	},
}

// StaticRetriever serves guidance from the built-in corpus. It never errors
// and never returns an empty result.
type StaticRetriever struct{}

// NewStaticRetriever creates the built-in retriever.
func NewStaticRetriever() *StaticRetriever {
	return &StaticRetriever{}
}

// Retrieve returns the base chunks plus any typology-specific chunks whose
// keyword appears in the typology or alert type.
func (r *StaticRetriever) Retrieve(_ context.Context, typology, alertType string) ([]string, error) {
	chunks := make([]string, 0, len(baseGuidance)+2)
	chunks = append(chunks, baseGuidance...)

	haystack := strings.ToLower(typology + " " + alertType)
	for keyword, extra := range typologyGuidance {
		if strings.Contains(haystack, keyword) {
			chunks = append(chunks, extra...)
		}
	}
	return chunks, nil
}

// Guidance is shared across tenants; the corpus is not tenant data.
const sharedTenant = "_shared"

// CachedRetriever caches retrieval results keyed by typology and alert
// type. On any cache or retrieval error it falls back to the static corpus
// so generation is never blocked.
type CachedRetriever struct {
	inner    Retriever
	cache    domain.Cache
	fallback *StaticRetriever
	ttl      time.Duration
	logger   *slog.Logger
}

// NewCachedRetriever wraps a retriever with guidance caching.
func NewCachedRetriever(inner Retriever, cache domain.Cache, ttlSecs int, logger *slog.Logger) *CachedRetriever {
	return &CachedRetriever{
		inner:    inner,
		cache:    cache,
		fallback: NewStaticRetriever(),
		ttl:      time.Duration(ttlSecs) * time.Second,
		logger:   logger,
	}
}

// Retrieve serves from cache when possible, delegating to the inner
// retriever on a miss and caching the result.
func (r *CachedRetriever) Retrieve(ctx context.Context, typology, alertType string) ([]string, error) {
	key := cacheKey(typology, alertType)

	if chunks, err := r.cache.GetGuidance(ctx, sharedTenant, key); err == nil && len(chunks) > 0 {
		return chunks, nil
	}

	chunks, err := r.inner.Retrieve(ctx, typology, alertType)
	if err != nil || len(chunks) == 0 {
		if err != nil {
			r.logger.Warn("guidance retrieval failed, using static corpus", "error", err)
		}
		return r.fallback.Retrieve(ctx, typology, alertType)
	}

	if err := r.cache.SetGuidance(ctx, sharedTenant, key, chunks, r.ttl); err != nil {
		r.logger.Warn("guidance cache write failed", "key", key, "error", err)
	}
	return chunks, nil
}

func cacheKey(typology, alertType string) string {
	norm := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	}
	return "guidance:" + norm(typology) + ":" + norm(alertType)
}
