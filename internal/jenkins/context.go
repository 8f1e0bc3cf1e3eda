package jenkins

import (
	"net/http"
	"os"
	"strings"
)

// Environment variables read in stdio mode.
const (
	EnvURL   = "JENKINS_URL"
	EnvToken = "JENKINS_TOKEN"
)

// Request headers read in network mode.
const (
	HeaderURL   = "Jenkins-Url"
	HeaderToken = "Jenkins-Token"
)

// Context identifies the Jenkins instance and credentials for a single tool call.
// It is resolved fresh for every call and never cached.
type Context struct {
	BaseURL string
	Token   string
}

// Validate fails with an *IncompleteContextError unless both fields are set.
func (c Context) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return &IncompleteContextError{Field: "base URL"}
	}
	if strings.TrimSpace(c.Token) == "" {
		return &IncompleteContextError{Field: "token"}
	}
	return nil
}

// Resolver determines the Jenkins Context of an in-flight call. The inbound
// request headers are passed explicitly; they are nil for transports that have none.
type Resolver interface {
	Resolve(header http.Header) (Context, error)
}

// EnvResolver reads the context from the process environment and ignores headers.
type EnvResolver struct {
	// Lookup defaults to os.LookupEnv.
	Lookup func(key string) (string, bool)
}

func (r EnvResolver) Resolve(_ http.Header) (Context, error) {
	lookup := r.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	baseURL, ok := lookup(EnvURL)
	if !ok || strings.TrimSpace(baseURL) == "" {
		return Context{}, &ConfigurationError{Key: EnvURL}
	}
	token, ok := lookup(EnvToken)
	if !ok || strings.TrimSpace(token) == "" {
		return Context{}, &ConfigurationError{Key: EnvToken}
	}
	return Context{BaseURL: baseURL, Token: token}, nil
}

// HeaderResolver reads the context from the Jenkins-Url and Jenkins-Token
// request headers and ignores the environment.
type HeaderResolver struct{}

func (HeaderResolver) Resolve(header http.Header) (Context, error) {
	baseURL := strings.TrimSpace(header.Get(HeaderURL))
	if baseURL == "" {
		return Context{}, &MissingCredentialsError{Header: HeaderURL}
	}
	token := strings.TrimSpace(header.Get(HeaderToken))
	if token == "" {
		return Context{}, &MissingCredentialsError{Header: HeaderToken}
	}
	return Context{BaseURL: baseURL, Token: token}, nil
}

// SessionResolver serves transports whose messages do not carry HTTP headers
// into tool calls, such as HTTP+SSE. Calls without headers of their own are
// resolved by Next against Header, the headers captured when the session was
// opened.
type SessionResolver struct {
	Header http.Header
	Next   Resolver
}

func (r SessionResolver) Resolve(header http.Header) (Context, error) {
	if len(header) == 0 {
		header = r.Header
	}
	return r.Next.Resolve(header)
}

// NewResolver returns the resolver for the configured transport: the
// environment for stdio, request headers for everything else.
func NewResolver(stdio bool) Resolver {
	if stdio {
		return EnvResolver{}
	}
	return HeaderResolver{}
}
