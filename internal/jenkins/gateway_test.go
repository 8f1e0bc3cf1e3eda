package jenkins

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonfxr/jenkins-mcp/internal/metrics"
)

// recordedRequest captures what the fake Jenkins saw.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

func newFakeJenkins(t *testing.T, status int, body string) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		reqs = append(reqs, recordedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   string(b),
		})
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func TestBuildURL(t *testing.T) {
	for _, base := range []string{"http://h", "http://h/"} {
		for _, path := range []string{"api/json", "/api/json"} {
			assert.Equal(t, "http://h/api/json", BuildURL(base, path), "base=%q path=%q", base, path)
		}
	}
	assert.Equal(t, "http://h/jenkins/job/x/build", BuildURL("http://h/jenkins//", "//job/x/build"))
}

func TestJobPath(t *testing.T) {
	assert.Equal(t, "x", JobPath("x"))
	assert.Equal(t, "folder/job/app", JobPath("folder/job/app"))
	assert.Equal(t, "my%20job/job/a%3Fb", JobPath("my job/job/a?b"))
}

func TestGateway_CallGET(t *testing.T) {
	srv, reqs := newFakeJenkins(t, http.StatusOK, `{"jobs":[{"name":"a"}]}`)
	g := NewGateway(Options{Timeout: 5 * time.Second})

	v, err := g.Call(context.Background(), Context{BaseURL: srv.URL + "/", Token: "secret"},
		Request{Path: "/api/json", Method: http.MethodGet, Data: map[string]any{"depth": 1}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"jobs": []any{map[string]any{"name": "a"}}}, v)

	require.Len(t, reqs(), 1)
	got := reqs()[0]
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/api/json", got.Path)
	assert.Equal(t, "depth=1", got.Query)
	assert.Equal(t, "Bearer secret", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Empty(t, got.Body)
}

func TestGateway_POSTSendsJSONBody(t *testing.T) {
	srv, reqs := newFakeJenkins(t, http.StatusCreated, `{}`)
	g := NewGateway(Options{})

	_, err := g.Do(context.Background(), Context{BaseURL: srv.URL, Token: "tok"},
		Request{Path: "job/x/build", Method: "post", Data: map[string]any{"a": "b"}})
	require.NoError(t, err)

	require.Len(t, reqs(), 1)
	got := reqs()[0]
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Empty(t, got.Query)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(got.Body), &body))
	assert.Equal(t, map[string]any{"a": "b"}, body)
}

func TestGateway_POSTWithoutDataHasNoBody(t *testing.T) {
	srv, reqs := newFakeJenkins(t, http.StatusCreated, "")
	g := NewGateway(Options{})

	resp, err := g.Do(context.Background(), Context{BaseURL: srv.URL, Token: "tok"},
		Request{Path: "job/x/build", Method: http.MethodPost})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, reqs(), 1)
	assert.Empty(t, reqs()[0].Body)
	assert.Empty(t, reqs()[0].Header.Get("Content-Type"))
}

func TestGateway_UpstreamErrorNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		srv, reqs := newFakeJenkins(t, status, "nope")
		g := NewGateway(Options{})

		_, err := g.Call(context.Background(), Context{BaseURL: srv.URL, Token: "tok"}, Request{Path: "api/json"})
		var upErr *UpstreamError
		require.True(t, errors.As(err, &upErr), "got %v", err)
		assert.Equal(t, status, upErr.StatusCode)
		assert.Equal(t, "nope", upErr.Body)
		assert.Contains(t, upErr.Error(), "nope")
		assert.Len(t, reqs(), 1)
	}
}

func TestGateway_DecodeError(t *testing.T) {
	srv, _ := newFakeJenkins(t, http.StatusOK, "<html>not json</html>")
	g := NewGateway(Options{})

	_, err := g.Call(context.Background(), Context{BaseURL: srv.URL, Token: "tok"}, Request{Path: "api/json"})
	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr), "got %v", err)
}

func TestGateway_CallKeepsLargeIntegers(t *testing.T) {
	srv, _ := newFakeJenkins(t, http.StatusOK, `{"id":9007199254740993,"duration":12.5}`)
	g := NewGateway(Options{})

	v, err := g.Call(context.Background(), Context{BaseURL: srv.URL, Token: "tok"}, Request{Path: "api/json"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":       json.Number("9007199254740993"),
		"duration": json.Number("12.5"),
	}, v)

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":9007199254740993,"duration":12.5}`, string(b))
	assert.Contains(t, string(b), "9007199254740993")
}

func TestGateway_DecodeErrorOnTrailingData(t *testing.T) {
	srv, _ := newFakeJenkins(t, http.StatusOK, `{"a":1} {"b":2}`)
	g := NewGateway(Options{})

	_, err := g.Call(context.Background(), Context{BaseURL: srv.URL, Token: "tok"}, Request{Path: "api/json"})
	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr), "got %v", err)
}

func TestGateway_CallTextPassesBodyThrough(t *testing.T) {
	srv, reqs := newFakeJenkins(t, http.StatusOK, "Started by user\nFinished: SUCCESS\n")
	g := NewGateway(Options{LogTimeout: time.Second})

	text, err := g.CallText(context.Background(), Context{BaseURL: srv.URL, Token: "tok"},
		Request{Path: "job/x/lastBuild/logText/progressiveText", Data: map[string]any{"start": 100}})
	require.NoError(t, err)
	assert.Equal(t, "Started by user\nFinished: SUCCESS\n", text)
	require.Len(t, reqs(), 1)
	assert.Equal(t, "start=100", reqs()[0].Query)
}

func TestGateway_IncompleteContextSendsNothing(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls.Add(1) }))
	defer srv.Close()
	g := NewGateway(Options{})

	for _, tc := range []struct {
		jc    Context
		field string
	}{
		{Context{BaseURL: srv.URL}, "token"},
		{Context{Token: "tok"}, "base URL"},
	} {
		_, err := g.Call(context.Background(), tc.jc, Request{Path: "api/json"})
		var incErr *IncompleteContextError
		require.True(t, errors.As(err, &incErr), "got %v", err)
		assert.Equal(t, tc.field, incErr.Field)
		// The gateway cannot tell where the context came from, so it must not
		// blame an environment variable.
		var cfgErr *ConfigurationError
		assert.False(t, errors.As(err, &cfgErr))
		assert.NotContains(t, err.Error(), EnvURL)
		assert.NotContains(t, err.Error(), EnvToken)
	}
	assert.Zero(t, calls.Load())
}

func TestGateway_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	reg := prometheus.NewRegistry()
	g := NewGateway(Options{Metrics: metrics.NewRecorder(reg)})
	_, err := g.Call(context.Background(), Context{BaseURL: base, Token: "tok"}, Request{Path: "api/json"})
	var trErr *TransportError
	require.True(t, errors.As(err, &trErr), "got %v", err)
}

func TestGateway_TLSVerification(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()
	jc := Context{BaseURL: srv.URL, Token: "tok"}

	_, err := NewGateway(Options{}).Call(context.Background(), jc, Request{Path: "api/json"})
	var trErr *TransportError
	require.True(t, errors.As(err, &trErr), "self-signed certificate must be rejected by default, got %v", err)

	v, err := NewGateway(Options{InsecureSkipVerify: true}).Call(context.Background(), jc, Request{Path: "api/json"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, v)
}

func TestGateway_ContextCancellation(t *testing.T) {
	srv, reqs := newFakeJenkins(t, http.StatusOK, `{}`)
	g := NewGateway(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Call(ctx, Context{BaseURL: srv.URL, Token: "tok"}, Request{Path: "api/json"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, reqs())
}
