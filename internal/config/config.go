// Package config loads the process-wide server configuration. It is read once
// at startup and never changes afterwards.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Transport selects how the server talks to the MCP host and, with it, where
// Jenkins credentials come from.
type Transport string

const (
	// TransportStdio is single-tenant: credentials come from the environment.
	TransportStdio Transport = "stdio"
	// TransportNetwork is multi-tenant: credentials come from request headers.
	// It is served as streamable HTTP.
	TransportNetwork Transport = "network"
	// TransportSSE is network mode served over the legacy HTTP+SSE transport.
	TransportSSE Transport = "sse"
)

// ParseTransport maps a configured value onto a Transport. "stdio" and "sse"
// select themselves; every other value (streamable-http, http, ...) selects
// network mode over streamable HTTP.
func ParseTransport(s string) Transport {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "", string(TransportStdio):
		return TransportStdio
	case string(TransportSSE):
		return TransportSSE
	}
	return TransportNetwork
}

// DefaultPath is the HTTP path of the MCP endpoint when none is configured.
func (t Transport) DefaultPath() string {
	if t == TransportSSE {
		return "/sse"
	}
	return "/mcp"
}

// Keys as known to viper.
const (
	KeyTransport          = "transport"
	KeyHTTPAddr           = "http_addr"
	KeyHTTPPath           = "http_path"
	KeyInsecureSkipVerify = "insecure_skip_verify"
	KeyTimeout            = "timeout"
	KeyLogTimeout         = "log_timeout"
	KeyLogFormat          = "log_format"
)

var envBindings = map[string]string{
	KeyTransport:          "MCP_TRANSPORT",
	KeyHTTPAddr:           "MCP_HTTP_ADDR",
	KeyHTTPPath:           "MCP_HTTP_PATH",
	KeyInsecureSkipVerify: "JENKINS_INSECURE_SKIP_VERIFY",
	KeyTimeout:            "JENKINS_TIMEOUT",
	KeyLogTimeout:         "JENKINS_LOG_TIMEOUT",
	KeyLogFormat:          "MCP_LOG_FORMAT",
}

// Config is the server configuration.
type Config struct {
	Transport Transport
	HTTPAddr  string
	HTTPPath  string
	// InsecureSkipVerify turns off TLS certificate verification towards Jenkins.
	InsecureSkipVerify bool
	Timeout            time.Duration
	LogTimeout         time.Duration
	LogFormat          string
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyTransport, string(TransportStdio))
	v.SetDefault(KeyHTTPAddr, "127.0.0.1:8000")
	// Empty selects the transport's DefaultPath.
	v.SetDefault(KeyHTTPPath, "")
	v.SetDefault(KeyInsecureSkipVerify, false)
	v.SetDefault(KeyTimeout, 30*time.Second)
	v.SetDefault(KeyLogTimeout, 60*time.Second)
	v.SetDefault(KeyLogFormat, "text")
	for key, env := range envBindings {
		// BindEnv only fails without arguments.
		_ = v.BindEnv(key, env)
	}
}

// Load reads the optional config file and builds a validated Config from v.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config file %s", file)
		}
	}

	cfg := Config{
		Transport:          ParseTransport(v.GetString(KeyTransport)),
		HTTPAddr:           strings.TrimSpace(v.GetString(KeyHTTPAddr)),
		HTTPPath:           v.GetString(KeyHTTPPath),
		InsecureSkipVerify: v.GetBool(KeyInsecureSkipVerify),
		Timeout:            v.GetDuration(KeyTimeout),
		LogTimeout:         v.GetDuration(KeyLogTimeout),
		LogFormat:          strings.ToLower(v.GetString(KeyLogFormat)),
	}
	if cfg.HTTPPath == "" {
		cfg.HTTPPath = cfg.Transport.DefaultPath()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.Errorf("%s must be positive, got %s", KeyTimeout, c.Timeout)
	}
	if c.LogTimeout <= 0 {
		return errors.Errorf("%s must be positive, got %s", KeyLogTimeout, c.LogTimeout)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return errors.Errorf("%s must be text or json, got %q", KeyLogFormat, c.LogFormat)
	}
	if c.Transport != TransportStdio {
		if c.HTTPAddr == "" {
			return errors.Errorf("%s is required for transport %s", KeyHTTPAddr, c.Transport)
		}
		if !strings.HasPrefix(c.HTTPPath, "/") {
			return errors.Errorf("%s must start with '/', got %q", KeyHTTPPath, c.HTTPPath)
		}
	}
	return nil
}
