// Package patterns fetches extraction pattern examples from the remote
// pattern catalog service. The catalog is advisory: fetch failures fall
// back to a stale copy or an empty catalog, never failing an extraction.
package patterns

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"lexgraph/internal/logging"
	"lexgraph/internal/types"
)

// catalogResponse is the wire shape of GET {catalog_url}?format=detailed.
type catalogResponse struct {
	TotalPatterns      int                       `json:"total_patterns"`
	PatternsByCategory map[string][]patternEntry `json:"patterns_by_category"`
}

type patternEntry struct {
	EntityType string   `json:"entity_type"`
	Examples   []string `json:"examples"`
}

// Catalog holds pattern examples keyed by entity type.
type Catalog struct {
	TotalPatterns int
	Examples      map[string][]string
	FetchedAt     time.Time
}

// Empty returns a catalog with no examples.
func Empty() *Catalog {
	return &Catalog{Examples: map[string][]string{}, FetchedAt: time.Now()}
}

// ExamplesFor returns the example spans for an entity type (nil when none).
func (c *Catalog) ExamplesFor(t types.EntityType) []string {
	if c == nil {
		return nil
	}
	return c.Examples[string(t)]
}

// Client fetches and caches the catalog with a TTL. Concurrent cache
// misses collapse into one upstream request.
type Client struct {
	url  string
	ttl  time.Duration
	http *http.Client
	sf   singleflight.Group

	mu     sync.RWMutex
	cached *Catalog
}

// NewClient builds a catalog client. An empty catalogURL disables
// fetching; Get then always returns an empty catalog.
func NewClient(catalogURL string, ttl time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{url: catalogURL, ttl: ttl, http: httpClient}
}

// Get returns the current catalog. The cached copy is served while
// fresh; on fetch failure a stale copy is served if one exists,
// otherwise an empty catalog. Get never fails an extraction over
// catalog unavailability.
func (c *Client) Get(ctx context.Context) *Catalog {
	if c.url == "" {
		return Empty()
	}

	c.mu.RLock()
	cached := c.cached
	c.mu.RUnlock()
	if cached != nil && time.Since(cached.FetchedAt) < c.ttl {
		return cached
	}

	v, err, _ := c.sf.Do("catalog", func() (interface{}, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		if cached != nil {
			logging.Patterns("catalog fetch failed, serving stale copy from %s: %v",
				cached.FetchedAt.Format(time.RFC3339), err)
			return cached
		}
		logging.Patterns("catalog fetch failed with no cached copy, using empty examples: %v", err)
		return Empty()
	}

	fresh := v.(*Catalog)
	c.mu.Lock()
	c.cached = fresh
	c.mu.Unlock()
	return fresh
}

func (c *Client) fetch(ctx context.Context) (*Catalog, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog url: %w", err)
	}
	q := u.Query()
	q.Set("format", "detailed")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var wire catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	catalog := &Catalog{
		TotalPatterns: wire.TotalPatterns,
		Examples:      make(map[string][]string),
		FetchedAt:     time.Now(),
	}
	for _, entries := range wire.PatternsByCategory {
		for _, e := range entries {
			if e.EntityType == "" {
				continue
			}
			catalog.Examples[e.EntityType] = append(catalog.Examples[e.EntityType], e.Examples...)
		}
	}

	logging.Patterns("catalog fetched: %d patterns, %d entity types", wire.TotalPatterns, len(catalog.Examples))
	return catalog, nil
}

// Invalidate drops the cached catalog so the next Get refetches.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}
