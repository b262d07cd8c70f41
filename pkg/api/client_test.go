package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samvad-hq/analytics-console/pkg/httpclient"
)

// stubResponse implements httpclient.Response.
type stubResponse struct {
	body   []byte
	status int
}

func (s stubResponse) Body() []byte    { return s.body }
func (s stubResponse) StatusCode() int { return s.status }

// fakeTransport records requests and replays a canned response or error.
type fakeTransport struct {
	mu       sync.Mutex
	requests []*httpclient.Request
	resp     httpclient.Response
	err      error
}

func (f *fakeTransport) Do(_ context.Context, req *httpclient.Request) (httpclient.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

// operation invokes one client method and reports whether a result came back.
type operation struct {
	name string
	call func(ctx context.Context, c *Client) (bool, error)
}

func allOperations() []operation {
	return []operation{
		{name: "SendMessage", call: func(ctx context.Context, c *Client) (bool, error) {
			resp, err := c.SendMessage(ctx, &ChatRequest{Message: "hi"})
			return resp != nil, err
		}},
		{name: "HealthCheck", call: func(ctx context.Context, c *Client) (bool, error) {
			resp, err := c.HealthCheck(ctx)
			return resp != nil, err
		}},
		{name: "DeleteSession", call: func(ctx context.Context, c *Client) (bool, error) {
			return false, c.DeleteSession(ctx, "abc123")
		}},
		{name: "GetAgents", call: func(ctx context.Context, c *Client) (bool, error) {
			resp, err := c.GetAgents(ctx)
			return resp != nil, err
		}},
	}
}

func TestSendMessagePostsBodyAndReturnsDecodedResponse(t *testing.T) {
	const reply = `{"session_id":"s-1","message":"OEE is 82%","chart":{"type":"bar","data":[1,2]},"insights":["up 3%"],"follow_ups":["by line?"]}`
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Method != http.MethodPost || r.URL.Path != "/chat" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
			t.Errorf("Content-Type = %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		var got ChatRequest
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if got != (ChatRequest{Message: "What's the OEE?", SessionID: "s-1"}) {
			t.Errorf("unexpected request body %+v", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.SendMessage(context.Background(), &ChatRequest{Message: "What's the OEE?", SessionID: "s-1"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	want := &ChatResponse{
		SessionID: "s-1",
		Message:   "OEE is 82%",
		Chart:     json.RawMessage(`{"type":"bar","data":[1,2]}`),
		Insights:  []string{"up 3%"},
		FollowUps: []string{"by line?"},
	}
	if !reflect.DeepEqual(resp, want) {
		t.Fatalf("response = %+v, want %+v", resp, want)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected exactly one request, got %d", n)
	}
}

func TestChatRequestOmitsEmptySessionID(t *testing.T) {
	ft := &fakeTransport{resp: stubResponse{status: http.StatusOK, body: []byte(`{"session_id":"new","message":"hello"}`)}}
	c := New("http://backend", WithTransport(ft))

	if _, err := c.SendMessage(context.Background(), &ChatRequest{Message: "Hello"}); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	raw, err := json.Marshal(ft.requests[0].Body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	if string(raw) != `{"message":"Hello"}` {
		t.Fatalf("body = %s", raw)
	}
}

func TestHealthCheckAndGetAgentsIssueBodylessGets(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if raw, _ := io.ReadAll(r.Body); len(raw) != 0 {
			t.Errorf("expected empty body, got %q", raw)
		}
		mu.Lock()
		seen[r.URL.Path]++
		mu.Unlock()
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{"status":"healthy","cubejs_connected":true,"version":"1.2.0"}`))
		case "/agents":
			_, _ = w.Write([]byte(`{"agents":[{"name":"report_writer","status":"active","description":"writes","provider":null,"tools":["narrate"],"memory_enabled":true}],"total_count":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	health, err := c.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if !health.Healthy() || !health.CubeJSConnected || health.Version != "1.2.0" {
		t.Fatalf("unexpected health %+v", health)
	}

	agents, err := c.GetAgents(context.Background())
	if err != nil {
		t.Fatalf("GetAgents: %v", err)
	}
	if agents.TotalCount != 1 || len(agents.Agents) != 1 {
		t.Fatalf("unexpected agents %+v", agents)
	}
	a := agents.Agents[0]
	if a.Name != "report_writer" || a.Provider != nil || !a.MemoryEnabled || len(a.Tools) != 1 {
		t.Fatalf("unexpected agent %+v", a)
	}

	if seen["/health"] != 1 || seen["/agents"] != 1 {
		t.Fatalf("unexpected request counts %v", seen)
	}
}

func TestDeleteSessionIssuesDelete(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Method != http.MethodDelete || r.URL.Path != "/session/abc123" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"deleted":true}`))
	}))
	defer srv.Close()

	if err := New(srv.URL).DeleteSession(context.Background(), "abc123"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected exactly one request, got %d", n)
	}
}

func TestDeleteSessionEscapesID(t *testing.T) {
	ft := &fakeTransport{resp: stubResponse{status: http.StatusNoContent}}
	c := New("http://backend", WithTransport(ft))

	if err := c.DeleteSession(context.Background(), "a/b c"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if got := ft.requests[0].URL; got != "http://backend/session/a%2Fb%20c" {
		t.Fatalf("URL = %s", got)
	}
}

func TestInvalidArgumentsSkipTransport(t *testing.T) {
	ft := &fakeTransport{}
	c := New("http://backend", WithTransport(ft))

	if _, err := c.SendMessage(context.Background(), nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("SendMessage(nil) err = %v", err)
	}
	if err := c.DeleteSession(context.Background(), ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("DeleteSession(\"\") err = %v", err)
	}
	if len(ft.requests) != 0 {
		t.Fatalf("expected no requests, got %d", len(ft.requests))
	}
}

func TestNonSuccessStatusFailsEveryOperation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	for _, op := range allOperations() {
		t.Run(op.name, func(t *testing.T) {
			gotResult, err := op.call(context.Background(), c)
			if gotResult {
				t.Fatalf("expected no result on failure")
			}
			var te *TransportError
			if !errors.As(err, &te) {
				t.Fatalf("expected TransportError, got %v", err)
			}
			if te.Kind != KindStatus || te.StatusCode != http.StatusInternalServerError {
				t.Fatalf("unexpected error %+v", te)
			}
			if te.Body != "backend exploded" {
				t.Fatalf("body snippet = %q", te.Body)
			}
		})
	}
}

func TestTimeoutFailsEveryOperation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(srv.URL, WithTransport(httpclient.NewRestyClient(50*time.Millisecond)))
	for _, op := range allOperations() {
		t.Run(op.name, func(t *testing.T) {
			gotResult, err := op.call(context.Background(), c)
			if gotResult {
				t.Fatalf("expected no result on timeout")
			}
			if !IsKind(err, KindTimeout) {
				t.Fatalf("expected timeout TransportError, got %v", err)
			}
		})
	}
}

func TestDeadlineFromTransportIsTimeout(t *testing.T) {
	c := New("http://backend", WithTransport(&fakeTransport{err: context.DeadlineExceeded}))
	for _, op := range allOperations() {
		if _, err := op.call(context.Background(), c); !IsKind(err, KindTimeout) {
			t.Fatalf("%s: expected timeout, got %v", op.name, err)
		}
	}
}

func TestNetworkFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := New(addr, WithTransport(httpclient.NewRestyClient(time.Second)))
	for _, op := range allOperations() {
		_, err := op.call(context.Background(), c)
		if !IsKind(err, KindNetwork) {
			t.Fatalf("%s: expected network error, got %v", op.name, err)
		}
		if errors.Unwrap(err) == nil {
			t.Fatalf("%s: expected underlying cause", op.name)
		}
	}
}

func TestCancelledContextIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(srv.URL).HealthCheck(ctx); !IsTransportError(err) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected TransportError wrapping context.Canceled, got %v", err)
	}
}

func TestMalformedBodyIsDecodeError(t *testing.T) {
	for _, body := range []string{"", "not json", `{"agents":"nope"}`} {
		c := New("http://backend", WithTransport(&fakeTransport{resp: stubResponse{status: http.StatusOK, body: []byte(body)}}))
		if _, err := c.GetAgents(context.Background()); !IsKind(err, KindDecode) {
			t.Fatalf("body %q: expected decode error, got %v", body, err)
		}
	}
}

func TestDeleteSessionIgnoresResponseBody(t *testing.T) {
	c := New("http://backend", WithTransport(&fakeTransport{resp: stubResponse{status: http.StatusOK, body: []byte("not json")}}))
	if err := c.DeleteSession(context.Background(), "abc123"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
}

func TestBaseURLAppliesToAllOperations(t *testing.T) {
	ft := &fakeTransport{resp: stubResponse{status: http.StatusOK, body: []byte(`{}`)}}
	c := New("https://analytics.internal:9000/", WithTransport(ft))
	if c.BaseURL() != "https://analytics.internal:9000" {
		t.Fatalf("BaseURL = %s", c.BaseURL())
	}

	for _, op := range allOperations() {
		if _, err := op.call(context.Background(), c); err != nil {
			t.Fatalf("%s: %v", op.name, err)
		}
	}

	want := []string{
		"POST https://analytics.internal:9000/chat",
		"GET https://analytics.internal:9000/health",
		"DELETE https://analytics.internal:9000/session/abc123",
		"GET https://analytics.internal:9000/agents",
	}
	if len(ft.requests) != len(want) {
		t.Fatalf("expected %d requests, got %d", len(want), len(ft.requests))
	}
	for i, req := range ft.requests {
		if got := req.Method + " " + req.URL; got != want[i] {
			t.Fatalf("request %d = %s, want %s", i, got, want[i])
		}
		if req.Headers["Content-Type"] != "application/json" {
			t.Fatalf("request %d missing content type: %v", i, req.Headers)
		}
		if req.Method != http.MethodPost && req.Body != nil {
			t.Fatalf("request %d unexpectedly carries a body", i)
		}
	}
}

func TestNewUsesThirtySecondTransport(t *testing.T) {
	rc, ok := New("").transport.(*httpclient.RestyClient)
	if !ok {
		t.Fatalf("default transport is %T, want *httpclient.RestyClient", New("").transport)
	}
	if got := rc.Timeout(); got != 30*time.Second {
		t.Fatalf("default timeout = %s, want 30s", got)
	}
}

func TestNewDefaultsBaseURL(t *testing.T) {
	if got := New("  ").BaseURL(); got != DefaultBaseURL {
		t.Fatalf("BaseURL = %s, want %s", got, DefaultBaseURL)
	}
}

func TestTransportErrorMessage(t *testing.T) {
	err := &TransportError{Kind: KindStatus, Op: "get agents", Method: "GET", Path: "/agents", StatusCode: 503, Body: "down"}
	if got := err.Error(); got != "api get agents: GET /agents: status 503: down" {
		t.Fatalf("Error() = %q", got)
	}
}
