package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"lexgraph/internal/config"
	"lexgraph/internal/logging"
	"lexgraph/internal/sizing"
	"lexgraph/internal/types"
)

// Client abstracts one backend endpoint.
type Client interface {
	// Connect performs the health check and moves the client to READY.
	Connect(ctx context.Context) error
	// GenerateChatCompletion issues one constrained completion call.
	GenerateChatCompletion(ctx context.Context, req *Request) (*Response, error)
	// GenerateBatch issues several calls concurrently, preserving order.
	GenerateBatch(ctx context.Context, reqs []*Request) ([]*Response, error)
	// IsReady reports whether the client is connected.
	IsReady() bool
	// Stats returns a snapshot of the client counters.
	Stats() Stats
	// Close releases the client.
	Close() error
}

// HTTPClient is the production Client over an OpenAI-compatible HTTP
// endpoint.
type HTTPClient struct {
	service Service
	svc     config.ServiceConfig
	inf     config.InferenceConfig
	smp     config.SamplingConfig

	http    *http.Client
	est     sizing.Estimator
	breaker *CircuitBreaker
	limiter *RateLimiter
	sem     *semaphore.Weighted
	monitor *Monitor

	state     atomic.Int32
	connectMu sync.Mutex

	requests   atomic.Int64
	failures   atomic.Int64
	retries    atomic.Int64
	tokensUsed atomic.Int64
	inFlight   atomic.Int64
}

// NewHTTPClient builds a client for one service endpoint. monitor may
// be nil.
func NewHTTPClient(service Service, cfg *config.Config, monitor *Monitor) *HTTPClient {
	var svc config.ServiceConfig
	switch service {
	case ServiceThinking:
		svc = cfg.Inference.Thinking
	case ServiceEmbeddings:
		svc = cfg.Inference.Embeddings
	default:
		svc = cfg.Inference.Instruct
	}
	return &HTTPClient{
		service: service,
		svc:     svc,
		inf:     cfg.Inference,
		smp:     cfg.Sampling,
		http:    &http.Client{Timeout: cfg.RequestTimeout()},
		est:     sizing.HeuristicEstimator{Multiplier: cfg.Sizing.LegalTokenMultiplier},
		breaker: NewCircuitBreaker(string(service), cfg.Inference.CircuitBreakerFailureThreshold,
			time.Duration(cfg.Inference.CircuitBreakerRecoveryTimeout)*time.Second),
		limiter: NewRateLimiter(cfg.Inference.RequestsPerMinute),
		sem:     semaphore.NewWeighted(int64(cfg.Inference.MaxConcurrentRequests)),
		monitor: monitor,
	}
}

// Connect health-checks the endpoint and advances to READY. Concurrent
// callers collapse to one probe under the connect lock.
func (c *HTTPClient) Connect(ctx context.Context) error {
	if ConnState(c.state.Load()) == StateReady {
		return nil
	}

	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	switch ConnState(c.state.Load()) {
	case StateReady:
		return nil
	case StateClosing, StateClosed:
		return fmt.Errorf("%s client is closed", c.service)
	}

	c.state.Store(int32(StateConnecting))
	logging.Inference("connecting to %s service at %s (model %s)", c.service, c.svc.BaseURL, c.svc.Model)

	if err := c.healthCheck(ctx); err != nil {
		c.state.Store(int32(StateNotReady))
		return &types.ModelNotLoadedError{Service: string(c.service), Err: err}
	}

	c.state.Store(int32(StateReady))
	logging.Inference("%s service ready", c.service)
	return nil
}

func (c *HTTPClient) healthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.svc.BaseURL+"/models", nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// IsReady implements Client.
func (c *HTTPClient) IsReady() bool {
	return ConnState(c.state.Load()) == StateReady
}

// Close implements Client.
func (c *HTTPClient) Close() error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()
	c.state.Store(int32(StateClosing))
	c.http.CloseIdleConnections()
	c.state.Store(int32(StateClosed))
	return nil
}

// Stats implements Client.
func (c *HTTPClient) Stats() Stats {
	return Stats{
		Requests:   c.requests.Load(),
		Failures:   c.failures.Load(),
		Retries:    c.retries.Load(),
		TokensUsed: c.tokensUsed.Load(),
		InFlight:   c.inFlight.Load(),
	}
}

// GenerateChatCompletion implements Client. The call path is:
// readiness, admission (resource pressure, breaker), reproducibility
// defaults, token budget, rate bucket, semaphore, then the retry loop.
func (c *HTTPClient) GenerateChatCompletion(ctx context.Context, req *Request) (*Response, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	if c.monitor != nil && c.monitor.RejectsRequests() && c.monitor.UnderPressure() {
		c.failures.Add(1)
		metricFailures.WithLabelValues(string(c.service), string(types.KindResource)).Inc()
		return nil, types.NewEngineError(types.KindResource,
			fmt.Sprintf("rejecting %s request under memory pressure", c.service), nil)
	}
	if err := c.breaker.Allow(); err != nil {
		c.failures.Add(1)
		metricFailures.WithLabelValues(string(c.service), string(types.KindFatalBackend)).Inc()
		return nil, err
	}

	c.applyDefaults(req)
	if err := applyTokenBudget(c.est, req, c.inf.MaxModelContextTokens); err != nil {
		metricFailures.WithLabelValues(string(c.service), string(types.KindContextOverflow)).Inc()
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, types.NewEngineError(types.KindCancelled, "rate limit wait aborted", err)
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, types.NewEngineError(types.KindCancelled, "semaphore wait aborted", err)
	}
	defer c.sem.Release(1)

	c.inFlight.Add(1)
	metricInFlight.WithLabelValues(string(c.service)).Inc()
	defer func() {
		c.inFlight.Add(-1)
		metricInFlight.WithLabelValues(string(c.service)).Dec()
	}()

	return c.doWithRetries(ctx, req)
}

// applyDefaults enforces the reproducibility contract: the configured
// per-service temperature (entity waves on instruct, the relationship
// wave on thinking) and seed unless the caller overrides, which is
// logged.
func (c *HTTPClient) applyDefaults(req *Request) {
	if req.Model == "" {
		req.Model = c.svc.Model
	}
	temp := c.smp.EntityTemperature
	if c.service == ServiceThinking {
		temp = c.smp.RelationshipTemperature
	}
	if req.Temperature == 0 {
		req.Temperature = temp
	} else if req.Temperature != temp {
		logging.InferenceWarn("%s request overrides extraction temperature %.2f with %.2f", c.service, temp, req.Temperature)
	}
	if req.Seed == 0 {
		req.Seed = c.smp.Seed
	} else if req.Seed != c.smp.Seed {
		logging.InferenceWarn("%s request overrides extraction seed %d with %d", c.service, c.smp.Seed, req.Seed)
	}
	if req.TopP == 0 {
		req.TopP = c.smp.TopP
	}
	if req.TopK == 0 {
		req.TopK = c.smp.TopK
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.inf.MaxModelContextTokens / 4
	}
}

func (c *HTTPClient) doWithRetries(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= c.inf.MaxRetries; attempt++ {
		if attempt > 0 {
			c.retries.Add(1)
			metricRetries.WithLabelValues(string(c.service)).Inc()
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, types.NewEngineError(types.KindCancelled, "backoff aborted", err)
			}
		}

		resp, err := c.doOnce(ctx, req)
		if err == nil {
			c.requests.Add(1)
			c.tokensUsed.Add(int64(resp.Usage.TotalTokens))
			c.breaker.RecordSuccess()
			metricRequests.WithLabelValues(string(c.service)).Inc()
			metricTokens.WithLabelValues(string(c.service)).Add(float64(resp.Usage.TotalTokens))
			metricRequestDuration.WithLabelValues(string(c.service)).Observe(time.Since(start).Seconds())
			return resp, nil
		}

		c.failures.Add(1)
		c.breaker.RecordFailure()
		kind := types.KindOf(err)
		metricFailures.WithLabelValues(string(c.service), string(kind)).Inc()

		if !types.IsRetryable(err) {
			return nil, err
		}
		lastErr = err
		logging.InferenceWarn("%s request attempt %d/%d failed: %v",
			c.service, attempt+1, c.inf.MaxRetries+1, err)

		if ctx.Err() != nil {
			return nil, types.NewEngineError(types.KindCancelled, "request cancelled", ctx.Err())
		}
	}

	return nil, types.NewEngineError(types.KindTransientBackend,
		fmt.Sprintf("%s request failed after %d attempts", c.service, c.inf.MaxRetries+1), lastErr)
}

func (c *HTTPClient) backoff(ctx context.Context, attempt int) error {
	factor := c.inf.BackoffFactor
	if factor <= 1 {
		factor = 2
	}
	delay := time.Duration(math.Pow(factor, float64(attempt-1))) * time.Second
	if maxDelay := time.Duration(c.inf.BackoffMaxSeconds) * time.Second; maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *HTTPClient) doOnce(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, types.NewEngineError(types.KindFatalBackend, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.svc.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, types.NewEngineError(types.KindFatalBackend, "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			return nil, types.NewEngineError(types.KindCancelled, "request cancelled", err)
		}
		return nil, types.NewEngineError(types.KindTransientBackend, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewEngineError(types.KindTransientBackend, "failed to read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, types.NewEngineError(types.KindTransientBackend,
			fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, truncate(respBody, 200)), nil)
	default:
		return nil, types.NewEngineError(types.KindFatalBackend,
			fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, truncate(respBody, 200)), nil)
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, types.NewEngineError(types.KindTransientBackend, "failed to decode response", err)
	}
	if out.Error != nil {
		return nil, types.NewEngineError(types.KindFatalBackend, "backend error: "+out.Error.Message, nil)
	}
	return &out, nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.svc.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.svc.APIKey)
	}
}

// GenerateBatch implements Client. Calls run concurrently (bounded by
// the shared semaphore) and responses keep request order.
func (c *HTTPClient) GenerateBatch(ctx context.Context, reqs []*Request) ([]*Response, error) {
	out := make([]*Response, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			resp, err := c.GenerateChatCompletion(gctx, req)
			if err != nil {
				return err
			}
			out[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
