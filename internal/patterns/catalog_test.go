package patterns

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"lexgraph/internal/types"
)

const catalogBody = `{
  "total_patterns": 2,
  "patterns_by_category": {
    "citations": [
      {"entity_type": "CASE_CITATION", "examples": ["Roe v. Wade, 410 U.S. 113 (1973)"]}
    ],
    "actors": [
      {"entity_type": "JUDGE", "examples": ["Justice Blackmun"]}
    ]
  }
}`

func catalogServer(t *testing.T, hits *atomic.Int64, fail *atomic.Bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if fail.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if got := r.URL.Query().Get("format"); got != "detailed" {
			t.Errorf("expected format=detailed, got %q", got)
		}
		fmt.Fprint(w, catalogBody)
	}))
}

func TestGetFetchesAndCaches(t *testing.T) {
	var hits atomic.Int64
	var fail atomic.Bool
	srv := catalogServer(t, &hits, &fail)
	defer srv.Close()

	c := NewClient(srv.URL, time.Hour, srv.Client())
	ctx := context.Background()

	cat := c.Get(ctx)
	if got := cat.ExamplesFor(types.EntityCaseCitation); len(got) != 1 || got[0] != "Roe v. Wade, 410 U.S. 113 (1973)" {
		t.Fatalf("unexpected CASE_CITATION examples: %v", got)
	}
	if len(cat.ExamplesFor(types.EntityJudge)) != 1 {
		t.Error("expected one JUDGE example")
	}
	if cat.TotalPatterns != 2 {
		t.Errorf("TotalPatterns = %d, want 2", cat.TotalPatterns)
	}

	c.Get(ctx)
	c.Get(ctx)
	if hits.Load() != 1 {
		t.Errorf("expected 1 upstream hit within TTL, got %d", hits.Load())
	}
}

func TestGetServesStaleOnError(t *testing.T) {
	var hits atomic.Int64
	var fail atomic.Bool
	srv := catalogServer(t, &hits, &fail)
	defer srv.Close()

	c := NewClient(srv.URL, time.Nanosecond, srv.Client())
	ctx := context.Background()

	first := c.Get(ctx)
	if len(first.Examples) == 0 {
		t.Fatal("first fetch should succeed")
	}

	fail.Store(true)
	time.Sleep(time.Millisecond)
	stale := c.Get(ctx)
	if len(stale.Examples) == 0 {
		t.Error("expected stale catalog on fetch error")
	}
}

func TestGetEmptyFallbackWhenNeverFetched(t *testing.T) {
	var hits atomic.Int64
	fail := atomic.Bool{}
	fail.Store(true)
	srv := catalogServer(t, &hits, &fail)
	defer srv.Close()

	c := NewClient(srv.URL, time.Hour, srv.Client())
	cat := c.Get(context.Background())
	if cat == nil || len(cat.Examples) != 0 {
		t.Error("expected empty catalog when fetch fails with no cache")
	}
}

func TestGetDisabledWithoutURL(t *testing.T) {
	c := NewClient("", time.Hour, nil)
	cat := c.Get(context.Background())
	if len(cat.Examples) != 0 {
		t.Error("expected empty catalog with no url configured")
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	var hits atomic.Int64
	var fail atomic.Bool
	srv := catalogServer(t, &hits, &fail)
	defer srv.Close()

	c := NewClient(srv.URL, time.Hour, srv.Client())
	ctx := context.Background()
	c.Get(ctx)
	c.Invalidate()
	c.Get(ctx)
	if hits.Load() != 2 {
		t.Errorf("expected refetch after invalidate, got %d hits", hits.Load())
	}
}
