package guidance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/opensource-finance/harrier/internal/cache"
)

func TestStaticRetriever(t *testing.T) {
	ctx := context.Background()
	r := NewStaticRetriever()

	t.Run("AlwaysReturnsBaseChunks", func(t *testing.T) {
		chunks, err := r.Retrieve(ctx, "", "")
		if err != nil {
			t.Fatalf("Retrieve failed: %v", err)
		}
		if len(chunks) != len(baseGuidance) {
			t.Errorf("expected %d base chunks, got %d", len(baseGuidance), len(chunks))
		}
	})

	t.Run("TypologyKeywordAddsChunks", func(t *testing.T) {
		chunks, err := r.Retrieve(ctx, "Structuring with Layering", "structuring")
		if err != nil {
			t.Fatalf("Retrieve failed: %v", err)
		}

		// Base chunks plus structuring and layering extras.
		want := len(baseGuidance) + len(typologyGuidance["structuring"]) + len(typologyGuidance["layering"])
		if len(chunks) != want {
			t.Errorf("expected %d chunks, got %d", want, len(chunks))
		}
	})

	t.Run("AlertTypeKeywordMatches", func(t *testing.T) {
		chunks, _ := r.Retrieve(ctx, "General Suspicious Activity", "funnel_account")

		want := len(baseGuidance) + len(typologyGuidance["funnel"])
		if len(chunks) != want {
			t.Errorf("expected %d chunks, got %d", want, len(chunks))
		}
	})
}

// failingRetriever always errors, to exercise the fallback path.
type failingRetriever struct{}

func (f *failingRetriever) Retrieve(ctx context.Context, typology, alertType string) ([]string, error) {
	return nil, errors.New("retrieval backend unavailable")
}

// countingRetriever wraps the static corpus and counts calls.
type countingRetriever struct {
	inner *StaticRetriever
	calls int
}

func (c *countingRetriever) Retrieve(ctx context.Context, typology, alertType string) ([]string, error) {
	c.calls++
	return c.inner.Retrieve(ctx, typology, alertType)
}

func TestCachedRetriever(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("CachesSecondLookup", func(t *testing.T) {
		inner := &countingRetriever{inner: NewStaticRetriever()}
		r := NewCachedRetriever(inner, cache.NewLRUCache(100), 60, logger)

		first, err := r.Retrieve(ctx, "Structuring with Layering", "structuring")
		if err != nil {
			t.Fatalf("Retrieve failed: %v", err)
		}

		second, err := r.Retrieve(ctx, "Structuring with Layering", "structuring")
		if err != nil {
			t.Fatalf("Retrieve failed: %v", err)
		}

		if inner.calls != 1 {
			t.Errorf("expected 1 inner call, got %d", inner.calls)
		}
		if len(first) != len(second) {
			t.Errorf("cached result differs: %d vs %d chunks", len(first), len(second))
		}
	})

	t.Run("DistinctKeysMissSeparately", func(t *testing.T) {
		inner := &countingRetriever{inner: NewStaticRetriever()}
		r := NewCachedRetriever(inner, cache.NewLRUCache(100), 60, logger)

		_, _ = r.Retrieve(ctx, "Structuring with Layering", "structuring")
		_, _ = r.Retrieve(ctx, "Funnel Account (Money Mule)", "funnel_account")

		if inner.calls != 2 {
			t.Errorf("expected 2 inner calls for distinct keys, got %d", inner.calls)
		}
	})

	t.Run("FallsBackOnRetrievalError", func(t *testing.T) {
		r := NewCachedRetriever(&failingRetriever{}, cache.NewLRUCache(100), 60, logger)

		chunks, err := r.Retrieve(ctx, "Structuring with Layering", "structuring")
		if err != nil {
			t.Fatalf("expected fallback, got error: %v", err)
		}
		if len(chunks) == 0 {
			t.Error("expected non-empty fallback guidance")
		}
	})
}

func TestCacheKey(t *testing.T) {
	key := cacheKey("Structuring with Layering", "Velocity Anomaly")
	want := "guidance:structuring_with_layering:velocity_anomaly"
	if key != want {
		t.Errorf("expected %q, got %q", want, key)
	}
}
