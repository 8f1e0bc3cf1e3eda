// Package server exposes the Jenkins tools over the MCP stdio, streamable HTTP
// and HTTP+SSE transports.
package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/simonfxr/jenkins-mcp/internal/jenkins"
	"github.com/simonfxr/jenkins-mcp/internal/tools"
)

// Name is the MCP implementation name announced to hosts.
const Name = "jenkins"

const shutdownGracePeriod = 5 * time.Second

// New creates an MCP server with all Jenkins tools registered.
func New(version string, h *tools.Handlers) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil)
	tools.Register(s, h)
	return s
}

// RunStdio serves s on stdin/stdout until the client disconnects or ctx is cancelled.
// With verbose set, every protocol message is logged to stderr.
func RunStdio(ctx context.Context, s *mcp.Server, verbose bool) error {
	var t mcp.Transport = &mcp.StdioTransport{}
	if verbose {
		t = &mcp.LoggingTransport{Transport: t, Writer: os.Stderr}
	}
	log.Info("Starting MCP server over stdio")
	return s.Run(ctx, t)
}

// HTTPOptions selects how the MCP endpoint is served over HTTP.
type HTTPOptions struct {
	Path string
	// SSE serves the legacy HTTP+SSE transport instead of streamable HTTP.
	SSE bool
}

// NewHTTPHandler routes the MCP endpoint at opts.Path, plus /metrics and
// /healthz. Tools read their Jenkins credentials from the inbound request
// headers. Over SSE those are the headers of the request that opened the
// session, since its messages carry none into tool calls.
func NewHTTPHandler(version string, h *tools.Handlers, opts HTTPOptions, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	if opts.SSE {
		mux.Handle(opts.Path, mcp.NewSSEHandler(func(req *http.Request) *mcp.Server {
			return New(version, sessionHandlers(h, req.Header))
		}, nil))
	} else {
		s := New(version, h)
		mux.Handle(opts.Path, mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s }, nil))
	}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func sessionHandlers(h *tools.Handlers, header http.Header) *tools.Handlers {
	hh := *h
	hh.Resolver = jenkins.SessionResolver{Header: header.Clone(), Next: h.Resolver}
	return &hh
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts
// the listener down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("Starting MCP HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server error")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	log.Info("Shutting down MCP HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http server shutdown")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server error")
	}
	return nil
}
