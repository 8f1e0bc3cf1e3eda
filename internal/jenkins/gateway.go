// Package jenkins resolves which Jenkins instance a tool call targets and
// issues the authenticated REST request against it.
package jenkins

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/simonfxr/jenkins-mcp/internal/metrics"
)

// Options configures the HTTP clients of a Gateway.
type Options struct {
	// InsecureSkipVerify disables TLS certificate verification so that Jenkins
	// servers with self-signed certificates can be reached.
	InsecureSkipVerify bool
	Timeout            time.Duration
	LogTimeout         time.Duration
	Metrics            *metrics.Recorder
}

// Request is a single call against the Jenkins REST API. Path is relative to the base URL.
type Request struct {
	Path   string
	Method string
	// Data is sent as query parameters for GET and as a JSON body otherwise.
	Data map[string]any
}

// Response is a successful (2xx) Jenkins response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Gateway performs authenticated requests against the Jenkins instance named by a Context.
// It holds no per-call state and is safe for concurrent use.
type Gateway struct {
	Client     *http.Client
	LogsClient *http.Client
	Metrics    *metrics.Recorder
}

// NewGateway builds a Gateway with pooled clients. Log requests get their own
// client because progressive log reads can be slow.
func NewGateway(opts Options) *Gateway {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed Jenkins certificates
	}
	return &Gateway{
		Client:     &http.Client{Transport: transport, Timeout: opts.Timeout},
		LogsClient: &http.Client{Transport: transport, Timeout: opts.LogTimeout},
		Metrics:    opts.Metrics,
	}
}

// BuildURL joins base and path with exactly one slash between them.
func BuildURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// JobPath escapes every segment of a job path while keeping the '/' separators,
// so nested jobs given as "folder/job/name" stay nested.
func JobPath(fullPath string) string {
	segs := strings.Split(fullPath, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// Do issues req against the instance in jc. Nothing is sent if jc is incomplete.
// Non-2xx responses become an *UpstreamError; there are no retries.
func (g *Gateway) Do(ctx context.Context, jc Context, req Request) (*Response, error) {
	return g.do(ctx, g.Client, jc, req)
}

// Call issues req and decodes the JSON response body. Numbers are kept as
// json.Number so large integers such as ids pass through unchanged.
func (g *Gateway) Call(ctx context.Context, jc Context, req Request) (any, error) {
	resp, err := g.do(ctx, g.Client, jc, req)
	if err != nil {
		return nil, err
	}
	return decodeJSON(resp.Body)
}

func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &DecodeError{Err: errors.New("unexpected data after top-level JSON value")}
	}
	return v, nil
}

// CallText issues req on the logs client and returns the body as text.
func (g *Gateway) CallText(ctx context.Context, jc Context, req Request) (string, error) {
	client := g.LogsClient
	if client == nil {
		client = g.Client
	}
	resp, err := g.do(ctx, client, jc, req)
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

func (g *Gateway) do(ctx context.Context, client *http.Client, jc Context, req Request) (*Response, error) {
	if err := jc.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	u, err := url.Parse(BuildURL(jc.BaseURL, req.Path))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid jenkins url %q", jc.BaseURL)
	}

	var body io.Reader
	if method == http.MethodGet {
		if len(req.Data) > 0 {
			q := u.Query()
			for k, v := range req.Data {
				q.Set(k, fmt.Sprint(v))
			}
			u.RawQuery = q.Encode()
		}
	} else if req.Data != nil {
		b, err := json.Marshal(req.Data)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request body")
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+jc.Token)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	logger := log.WithFields(log.Fields{"method": method, "url": u.Redacted()})
	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		g.Metrics.UpstreamRequest(method, 0, time.Since(start))
		logger.WithError(err).Debug("jenkins request failed")
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	g.Metrics.UpstreamRequest(method, resp.StatusCode, elapsed)
	logger.WithFields(log.Fields{"status": resp.StatusCode, "duration": elapsed}).Debug("jenkins request")
	if err != nil {
		return nil, &TransportError{Err: errors.Wrap(err, "failed to read response body")}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{
			Method:     method,
			URL:        u.Redacted(),
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
