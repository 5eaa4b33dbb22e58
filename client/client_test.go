package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/aigate/interceptor"
	"github.com/BaSui01/aigate/manifest"
	"github.com/BaSui01/aigate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noInterceptors keeps client tests deterministic: no rate limiting, no
// retries, generous per-attempt timeout.
func noInterceptors() interceptor.Config {
	return interceptor.Config{Timeout: 10 * time.Second}
}

func stubManifest(primary, secondary string) *manifest.Manifest {
	def := func(baseURL string) manifest.ProviderDefinition {
		return manifest.ProviderDefinition{
			BaseURL:       baseURL,
			ChatPath:      "/chat/completions",
			Auth:          manifest.AuthConfig{Type: manifest.AuthNone},
			PayloadFormat: manifest.PayloadOpenAI,
			ParameterMappings: map[string]manifest.MappingRule{
				"temperature": {Direct: "temperature"},
			},
			ResponsePaths: manifest.ResponsePaths{
				Content:      "choices[0].message.content",
				Usage:        "usage",
				FinishReason: "choices[0].finish_reason",
			},
			Streaming:    &manifest.StreamingConfig{Events: manifest.EventDataLines, DoneSignal: "[DONE]"},
			DefaultModel: "stub-model",
		}
	}
	m := &manifest.Manifest{
		Version: "1.0",
		StandardSchema: manifest.StandardSchema{
			Parameters: map[string]manifest.ParameterDefinition{
				"temperature": {Type: "float"},
			},
		},
		Providers: map[string]manifest.ProviderDefinition{"alpha": def(primary)},
		Models: map[string]manifest.ModelDefinition{
			"stub-model": {Provider: "alpha", ModelID: "stub-model"},
		},
	}
	if secondary != "" {
		m.Providers["beta"] = def(secondary)
	}
	return m
}

func chatFixture(content string) string {
	b, _ := json.Marshal(content)
	return `{"choices":[{"index":0,"message":{"role":"assistant","content":` + string(b) + `},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`
}

func TestClientChatRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatFixture("hello there"))
	}))
	defer server.Close()

	c, err := New(
		WithManifest(stubManifest(server.URL, "")),
		WithInterceptors(noInterceptors()),
		WithoutDefaultObservers(),
	)
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Chat(context.Background(), types.NewChatRequest("stub-model", []types.Message{types.NewUserMessage("hi")}))
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.FirstText())
	assert.Equal(t, "alpha", resp.Provider)
}

func TestClientUnknownModelWithoutHint(t *testing.T) {
	c, err := New(
		WithManifest(stubManifest("http://127.0.0.1:0", "")),
		WithInterceptors(noInterceptors()),
		WithoutDefaultObservers(),
	)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Chat(context.Background(), types.NewChatRequest("no-such-model", nil))
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
}

func TestClientFailoverChain(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"message":"unavailable"}}`)
	}))
	defer down.Close()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, chatFixture("ok"))
	}))
	defer up.Close()

	c, err := New(
		WithManifest(stubManifest(down.URL, up.URL)),
		WithInterceptors(noInterceptors()),
		WithoutDefaultObservers(),
		WithFailover("alpha", "beta"),
	)
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Chat(context.Background(), types.NewChatRequest("stub-model", []types.Message{types.NewUserMessage("hi")}))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.FirstText())
	assert.Equal(t, "beta", resp.Provider)
}

func TestClientRoundRobinRotation(t *testing.T) {
	mk := func(label string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, chatFixture(label))
		}))
	}
	s1, s2 := mk("one"), mk("two")
	defer s1.Close()
	defer s2.Close()

	c, err := New(
		WithManifest(stubManifest(s1.URL, s2.URL)),
		WithInterceptors(noInterceptors()),
		WithoutDefaultObservers(),
		WithRoundRobin("alpha", "beta"),
	)
	require.NoError(t, err)
	defer c.Close()

	var got []string
	for i := 0; i < 4; i++ {
		resp, err := c.Chat(context.Background(), types.NewChatRequest("stub-model", nil))
		require.NoError(t, err)
		got = append(got, resp.FirstText())
	}
	assert.Equal(t, []string{"one", "two", "one", "two"}, got)
}

func TestClientBatchPreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		// Later inputs answer faster, to exercise order preservation.
		if strings.HasSuffix(body.Messages[0].Content, "0") {
			time.Sleep(50 * time.Millisecond)
		}
		fmt.Fprint(w, chatFixture("echo:"+body.Messages[0].Content))
	}))
	defer server.Close()

	c, err := New(
		WithManifest(stubManifest(server.URL, "")),
		WithInterceptors(noInterceptors()),
		WithoutDefaultObservers(),
	)
	require.NoError(t, err)
	defer c.Close()

	reqs := make([]*types.ChatRequest, 5)
	for i := range reqs {
		reqs[i] = types.NewChatRequest("stub-model", []types.Message{
			types.NewUserMessage(fmt.Sprintf("msg-%d", i)),
		})
	}
	results := c.ChatBatch(context.Background(), reqs, 5)
	require.Len(t, results, 5)
	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, fmt.Sprintf("echo:msg-%d", i), res.Response.FirstText())
	}
}

func TestClientBatchCapturesPerRequestFailures(t *testing.T) {
	var n atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if n.Add(1)%2 == 0 {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
			return
		}
		fmt.Fprint(w, chatFixture("fine"))
	}))
	defer server.Close()

	c, err := New(
		WithManifest(stubManifest(server.URL, "")),
		WithInterceptors(noInterceptors()),
		WithoutDefaultObservers(),
	)
	require.NoError(t, err)
	defer c.Close()

	reqs := make([]*types.ChatRequest, 4)
	for i := range reqs {
		reqs[i] = types.NewChatRequest("stub-model", []types.Message{types.NewUserMessage("x")})
	}
	results := c.ChatBatch(context.Background(), reqs, 1)

	var ok, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			assert.Equal(t, types.ErrAuthentication, types.GetErrorCode(r.Err))
		} else {
			ok++
		}
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, 2, failed)
}

func TestClientBackpressureBound(t *testing.T) {
	var inFlight, peak atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
		fmt.Fprint(w, chatFixture("done"))
	}))
	defer server.Close()

	c, err := New(
		WithManifest(stubManifest(server.URL, "")),
		WithInterceptors(noInterceptors()),
		WithoutDefaultObservers(),
		WithMaxConcurrentRequests(2),
	)
	require.NoError(t, err)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Chat(context.Background(), types.NewChatRequest("stub-model", nil))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestClientStreamReleasesPermit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"s\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	c, err := New(
		WithManifest(stubManifest(server.URL, "")),
		WithInterceptors(noInterceptors()),
		WithoutDefaultObservers(),
		WithMaxConcurrentRequests(1),
	)
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < 3; i++ {
		ch, _, err := c.ChatStream(context.Background(), types.NewChatRequest("stub-model", nil))
		require.NoError(t, err)
		for range ch {
		}
		// With a single permit, the next stream only starts if the previous
		// one released it on terminal chunk.
	}
}

func TestClientHotReloadSwapsSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, chatFixture("v2"))
	}))
	defer server.Close()

	doc := func(version string) string {
		return `version: "` + version + `"
standard_schema:
  parameters:
    temperature: {type: float}
providers:
  alpha:
    base_url: "` + server.URL + `"
    chat_path: "/chat/completions"
    auth: {type: none}
    payload_format: openai_style
    response_paths:
      content: "choices[0].message.content"
models:
  stub-model:
    provider: alpha
    model_id: stub-model
`
	}

	dir := t.TempDir()
	path := dir + "/manifest.yaml"
	require.NoError(t, writeFile(path, doc("1.0")))

	c, err := New(
		WithManifestFile(path),
		WithHotReload(true),
		WithInterceptors(noInterceptors()),
		WithoutDefaultObservers(),
	)
	require.NoError(t, err)
	defer c.Close()

	require.Equal(t, "1.0", c.Registry().Snapshot().Version)

	require.NoError(t, writeFile(path, doc("2.0")))
	require.Eventually(t, func() bool {
		return c.Registry().Snapshot().Version == "2.0"
	}, 3*time.Second, 25*time.Millisecond)

	// An invalid rewrite must not displace the good snapshot.
	require.NoError(t, writeFile(path, "version: \"3.0\"\nproviders: {}\nmodels: {}\n"))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, "2.0", c.Registry().Snapshot().Version)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
