package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"

	"lexgraph/internal/config"
	"lexgraph/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockBackend serves /models (health) and /chat/completions.
type mockBackend struct {
	t         *testing.T
	srv       *httptest.Server
	calls     atomic.Int64
	failTimes atomic.Int64 // first N completion calls return 500
	status    atomic.Int64 // status for failing calls
	content   string
	lastBody  atomic.Pointer[Request]
}

func newMockBackend(t *testing.T, content string) *mockBackend {
	t.Helper()
	b := &mockBackend{t: t, content: content}
	b.status.Store(http.StatusInternalServerError)
	mux := http.NewServeMux()
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"legal-instruct"}]}`)
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		n := b.calls.Add(1)
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		b.lastBody.Store(&req)
		if n <= b.failTimes.Load() {
			http.Error(w, "backend exploded", int(b.status.Load()))
			return
		}
		json.NewEncoder(w).Encode(Response{
			Model:   req.Model,
			Choices: []Choice{{Message: ChoiceMessage{Role: "assistant", Content: b.content}, FinishReason: "stop"}},
			Usage:   Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
		})
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Inference.Instruct.BaseURL = baseURL
	cfg.Inference.Thinking.BaseURL = baseURL
	cfg.Inference.MaxRetries = 2
	cfg.Inference.BackoffMaxSeconds = 1
	cfg.Inference.RequestsPerMinute = 100_000
	cfg.Inference.RequestTimeoutSeconds = 5
	return cfg
}

func newReadyClient(t *testing.T, b *mockBackend) *HTTPClient {
	t.Helper()
	c := NewHTTPClient(ServiceInstruct, testConfig(b.srv.URL), nil)
	t.Cleanup(func() { c.Close() })
	return c
}

func simpleRequest() *Request {
	return &Request{
		Messages:  []Message{{Role: "user", Content: "Extract entities from this short filing."}},
		MaxTokens: 512,
	}
}

func TestGenerateChatCompletion(t *testing.T) {
	b := newMockBackend(t, `{"entities":[]}`)
	c := newReadyClient(t, b)

	resp, err := c.GenerateChatCompletion(context.Background(), simpleRequest())
	if err != nil {
		t.Fatal(err)
	}
	content, err := resp.Content()
	if err != nil || content != `{"entities":[]}` {
		t.Errorf("content = %q, err = %v", content, err)
	}
	if !c.IsReady() {
		t.Error("client should be READY after first call")
	}
	st := c.Stats()
	if st.Requests != 1 || st.TokensUsed != 150 {
		t.Errorf("stats = %+v", st)
	}
}

func TestReproducibilityDefaults(t *testing.T) {
	b := newMockBackend(t, "{}")
	c := newReadyClient(t, b)

	if _, err := c.GenerateChatCompletion(context.Background(), simpleRequest()); err != nil {
		t.Fatal(err)
	}
	sent := b.lastBody.Load()
	if sent.Temperature != 0 {
		t.Errorf("temperature = %v, want 0", sent.Temperature)
	}
	if sent.Seed != 42 {
		t.Errorf("seed = %d, want 42", sent.Seed)
	}
	if sent.Model != "legal-instruct" {
		t.Errorf("model = %q", sent.Model)
	}
	if sent.TopP != 0.95 || sent.TopK != 40 {
		t.Errorf("sampling = %v/%d", sent.TopP, sent.TopK)
	}
}

func TestConfiguredTemperaturesApplied(t *testing.T) {
	b := newMockBackend(t, "{}")
	cfg := testConfig(b.srv.URL)
	cfg.Sampling.EntityTemperature = 0.1
	cfg.Sampling.RelationshipTemperature = 0.2

	instruct := NewHTTPClient(ServiceInstruct, cfg, nil)
	defer instruct.Close()
	if _, err := instruct.GenerateChatCompletion(context.Background(), simpleRequest()); err != nil {
		t.Fatal(err)
	}
	if got := b.lastBody.Load().Temperature; got != 0.1 {
		t.Errorf("instruct temperature = %v, want entity_temperature 0.1", got)
	}

	thinking := NewHTTPClient(ServiceThinking, cfg, nil)
	defer thinking.Close()
	if _, err := thinking.GenerateChatCompletion(context.Background(), simpleRequest()); err != nil {
		t.Fatal(err)
	}
	if got := b.lastBody.Load().Temperature; got != 0.2 {
		t.Errorf("thinking temperature = %v, want relationship_temperature 0.2", got)
	}
}

func TestRetriesTransientThenSucceeds(t *testing.T) {
	b := newMockBackend(t, "{}")
	b.failTimes.Store(2)
	cfg := testConfig(b.srv.URL)
	c := NewHTTPClient(ServiceInstruct, cfg, nil)
	defer c.Close()

	_, err := c.GenerateChatCompletion(context.Background(), simpleRequest())
	if err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if b.calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", b.calls.Load())
	}
	if c.Stats().Retries != 2 {
		t.Errorf("retries = %d, want 2", c.Stats().Retries)
	}
}

func TestNoRetryOn4xx(t *testing.T) {
	b := newMockBackend(t, "{}")
	b.failTimes.Store(10)
	b.status.Store(http.StatusBadRequest)
	c := newReadyClient(t, b)

	_, err := c.GenerateChatCompletion(context.Background(), simpleRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if types.KindOf(err) != types.KindFatalBackend {
		t.Errorf("kind = %s, want fatal_backend", types.KindOf(err))
	}
	if b.calls.Load() != 1 {
		t.Errorf("4xx must not retry, got %d attempts", b.calls.Load())
	}
}

func TestExhaustedRetries(t *testing.T) {
	b := newMockBackend(t, "{}")
	b.failTimes.Store(100)
	c := newReadyClient(t, b)

	_, err := c.GenerateChatCompletion(context.Background(), simpleRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if types.KindOf(err) != types.KindTransientBackend {
		t.Errorf("kind = %s", types.KindOf(err))
	}
	if b.calls.Load() != 3 { // 1 + MaxRetries(2)
		t.Errorf("expected 3 attempts, got %d", b.calls.Load())
	}
}

func TestContextOverflowNotSent(t *testing.T) {
	b := newMockBackend(t, "{}")
	cfg := testConfig(b.srv.URL)
	cfg.Inference.MaxModelContextTokens = 100
	c := NewHTTPClient(ServiceInstruct, cfg, nil)
	defer c.Close()

	req := &Request{
		Messages:  []Message{{Role: "user", Content: strings.Repeat("legal token budget ", 500)}},
		MaxTokens: 512,
	}
	_, err := c.GenerateChatCompletion(context.Background(), req)
	var overflow *types.ContextOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected ContextOverflowError, got %v", err)
	}
	if overflow.Excess <= 0 {
		t.Errorf("excess = %d", overflow.Excess)
	}
	if b.calls.Load() != 0 {
		t.Error("overflowing request must never reach the backend")
	}
}

func TestCompletionBudgetReduced(t *testing.T) {
	b := newMockBackend(t, "{}")
	cfg := testConfig(b.srv.URL)
	cfg.Inference.MaxModelContextTokens = 1_000
	c := NewHTTPClient(ServiceInstruct, cfg, nil)
	defer c.Close()

	req := &Request{
		Messages:  []Message{{Role: "user", Content: strings.Repeat("word ", 400)}}, // ~550 tokens
		MaxTokens: 2_000,
	}
	if _, err := c.GenerateChatCompletion(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	sent := b.lastBody.Load()
	if sent.MaxTokens >= 2_000 {
		t.Errorf("completion budget not reduced: %d", sent.MaxTokens)
	}
	if sent.MaxTokens < minCompletionTokens {
		t.Errorf("reduced below minimum: %d", sent.MaxTokens)
	}
}

func TestConnectFailureIsModelNotLoaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(ServiceInstruct, testConfig(srv.URL), nil)
	defer c.Close()

	err := c.Connect(context.Background())
	var mnl *types.ModelNotLoadedError
	if !errors.As(err, &mnl) {
		t.Fatalf("expected ModelNotLoadedError, got %v", err)
	}
	if c.IsReady() {
		t.Error("client must not be READY after failed connect")
	}
}

func TestClosedClientRefusesConnect(t *testing.T) {
	b := newMockBackend(t, "{}")
	c := NewHTTPClient(ServiceInstruct, testConfig(b.srv.URL), nil)
	c.Close()
	if err := c.Connect(context.Background()); err == nil {
		t.Error("closed client must refuse to connect")
	}
}

func TestGenerateBatchPreservesOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "{}") })
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req Request
		json.NewDecoder(r.Body).Decode(&req)
		// Echo the user content so order is observable.
		json.NewEncoder(w).Encode(Response{
			Choices: []Choice{{Message: ChoiceMessage{Content: req.Messages[0].Content}}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewHTTPClient(ServiceInstruct, testConfig(srv.URL), nil)
	defer c.Close()

	reqs := make([]*Request, 5)
	for i := range reqs {
		reqs[i] = &Request{Messages: []Message{{Role: "user", Content: fmt.Sprintf("req-%d", i)}}, MaxTokens: 64}
	}
	resps, err := c.GenerateBatch(context.Background(), reqs)
	if err != nil {
		t.Fatal(err)
	}
	for i, resp := range resps {
		content, _ := resp.Content()
		if content != fmt.Sprintf("req-%d", i) {
			t.Errorf("response %d out of order: %q", i, content)
		}
	}
}

func TestCircuitOpensAndRejects(t *testing.T) {
	b := newMockBackend(t, "{}")
	b.failTimes.Store(1_000)
	cfg := testConfig(b.srv.URL)
	cfg.Inference.MaxRetries = 0
	cfg.Inference.CircuitBreakerFailureThreshold = 3
	c := NewHTTPClient(ServiceInstruct, cfg, nil)
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.GenerateChatCompletion(ctx, simpleRequest()); err == nil {
			t.Fatal("expected failure")
		}
	}
	calls := b.calls.Load()

	_, err := c.GenerateChatCompletion(ctx, simpleRequest())
	var open *types.CircuitOpenError
	if !errors.As(err, &open) {
		t.Fatalf("expected CircuitOpenError, got %v", err)
	}
	if b.calls.Load() != calls {
		t.Error("open circuit must not let requests through")
	}
}

func TestGuidedJSONForwarded(t *testing.T) {
	b := newMockBackend(t, "{}")
	c := newReadyClient(t, b)

	schema := json.RawMessage(`{"type":"object","properties":{"entities":{"type":"array"}}}`)
	req := simpleRequest()
	req.GuidedJSON = schema
	if _, err := c.GenerateChatCompletion(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	sent := b.lastBody.Load()
	if string(sent.GuidedJSON) != string(schema) {
		t.Error("guided_json not forwarded to the backend")
	}
}

func TestFactorySharesClients(t *testing.T) {
	b := newMockBackend(t, "{}")
	f := NewFactory(testConfig(b.srv.URL))
	defer f.Close()

	if f.Client(ServiceInstruct) != f.Client(ServiceInstruct) {
		t.Error("factory must reuse the instruct client")
	}
	if f.Client(ServiceInstruct) == f.Client(ServiceThinking) {
		t.Error("instruct and thinking clients must be distinct")
	}
}
