package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/simonfxr/jenkins-mcp/internal/config"
	"github.com/simonfxr/jenkins-mcp/internal/jenkins"
	mcplog "github.com/simonfxr/jenkins-mcp/internal/log"
	"github.com/simonfxr/jenkins-mcp/internal/metrics"
	"github.com/simonfxr/jenkins-mcp/internal/server"
	"github.com/simonfxr/jenkins-mcp/internal/tools"
)

var rootCmd = newRootCmd()

// rootOptions holds flags that are not part of the viper-managed config.
type rootOptions struct {
	configFile string
	verbose    bool
	quiet      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	v := viper.New()
	config.SetDefaults(v)

	cmd := &cobra.Command{
		Use:   "jenkins-mcp",
		Short: "Expose Jenkins as Model Context Protocol tools",
		Long: `jenkins-mcp serves a fixed set of Jenkins operations as MCP tools:
  - listAllJobs:  list all jobs
  - getJob:       fetch a job by its full path
  - getBuild:     fetch a build, or the last build
  - triggerBuild: trigger a build of a job
  - getBuildLog:  read the progressive log of a build

With the stdio transport the Jenkins instance is taken from JENKINS_URL and
JENKINS_TOKEN. With any other transport every request must carry the
Jenkins-Url and Jenkins-Token headers, so one server can front many Jenkins
instances.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, opts.configFile)
			if err != nil {
				return &exitCodeError{code: ExitInvalidConfig, err: err}
			}
			mcplog.Setup(opts.verbose, opts.quiet, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, opts.verbose)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "path to a config file (yaml, toml or json)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging and log MCP traffic in stdio mode")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "only log warnings and errors")
	flags.String("transport", "stdio", "MCP transport: stdio, sse, or any other value for streamable HTTP (env MCP_TRANSPORT)")
	flags.String("http-addr", "127.0.0.1:8000", "listen address for the HTTP transport (env MCP_HTTP_ADDR)")
	flags.String("http-path", "", "URL path of the MCP endpoint, /mcp or /sse by default (env MCP_HTTP_PATH)")
	flags.Bool("insecure-skip-verify", false, "skip TLS certificate verification towards Jenkins (env JENKINS_INSECURE_SKIP_VERIFY)")
	flags.Duration("timeout", 30*time.Second, "timeout for Jenkins API requests (env JENKINS_TIMEOUT)")
	flags.Duration("log-timeout", 60*time.Second, "timeout for Jenkins log requests (env JENKINS_LOG_TIMEOUT)")
	flags.String("log-format", "text", "log format: text or json (env MCP_LOG_FORMAT)")
	bindFlags(v, flags)

	cmd.AddCommand(versionCmd)
	return cmd
}

// bindFlags binds flags into v. Viper only prefers a flag over environment
// and config file values when it was set on the command line.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for key, name := range map[string]string{
		config.KeyTransport:          "transport",
		config.KeyHTTPAddr:           "http-addr",
		config.KeyHTTPPath:           "http-path",
		config.KeyInsecureSkipVerify: "insecure-skip-verify",
		config.KeyTimeout:            "timeout",
		config.KeyLogTimeout:         "log-timeout",
		config.KeyLogFormat:          "log-format",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// newHandlers wires the tool collaborators for cfg.
func newHandlers(cfg config.Config, reg prometheus.Registerer) *tools.Handlers {
	rec := metrics.NewRecorder(reg)
	return &tools.Handlers{
		Resolver: jenkins.NewResolver(cfg.Transport == config.TransportStdio),
		Gateway: jenkins.NewGateway(jenkins.Options{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			Timeout:            cfg.Timeout,
			LogTimeout:         cfg.LogTimeout,
			Metrics:            rec,
		}),
		Metrics: rec,
	}
}

func serve(ctx context.Context, cfg config.Config, verbose bool) error {
	if cfg.InsecureSkipVerify {
		log.Warn("TLS certificate verification towards Jenkins is disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	h := newHandlers(cfg, reg)

	if cfg.Transport == config.TransportStdio {
		for _, key := range []string{jenkins.EnvURL, jenkins.EnvToken} {
			if os.Getenv(key) == "" {
				log.WithField("variable", key).Warn("environment variable not set; tool calls will fail until it is")
			}
		}
		if err := server.RunStdio(ctx, server.New(Version, h), verbose); err != nil && !errors.Is(err, context.Canceled) {
			return errors.Wrap(err, "stdio server")
		}
		return nil
	}

	log.WithFields(log.Fields{"addr": cfg.HTTPAddr, "path": cfg.HTTPPath, "transport": cfg.Transport}).
		Info("Jenkins credentials are read from request headers")
	handler := server.NewHTTPHandler(Version, h, server.HTTPOptions{
		Path: cfg.HTTPPath,
		SSE:  cfg.Transport == config.TransportSSE,
	}, reg)
	return server.ListenAndServe(ctx, cfg.HTTPAddr, handler)
}
