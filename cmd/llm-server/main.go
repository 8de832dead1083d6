// Command llm-server serves one language model backend over the RemoteLLM
// gRPC service.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/burdiyan/go/mainutil"
	"github.com/peterbourgon/ff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sweetpotato0/remote-llm/config"
	mcpserver "github.com/sweetpotato0/remote-llm/contrib/mcp"
	"github.com/sweetpotato0/remote-llm/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/remote-llm/pkg/logging"
	"github.com/sweetpotato0/remote-llm/pkg/metrics"
	"github.com/sweetpotato0/remote-llm/pkg/telemetry"
	"github.com/sweetpotato0/remote-llm/remote"
	"golang.org/x/sync/errgroup"
)

const envVarPrefix = "REMOTE_LLM"

// serverFlags override config file values. Every flag can also be set
// through REMOTE_LLM_<FLAG>.
type serverFlags struct {
	configPath  string
	addr        string
	provider    string
	model       string
	metricsAddr string
	mcpAddr     string
}

func newFlagSet(f *serverFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("llm-server", flag.ExitOnError)
	fs.StringVar(&f.configPath, "config", "", "Path to the YAML config file")
	fs.StringVar(&f.addr, "addr", "", "gRPC listen address, overrides server.addr")
	fs.StringVar(&f.provider, "provider", "", "Backend provider: fake, openai, claude or gemini")
	fs.StringVar(&f.model, "model", "", "Backend model name")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Address for the Prometheus /metrics endpoint")
	fs.StringVar(&f.mcpAddr, "mcp-addr", "", "Address for the MCP streamable HTTP endpoint, disabled when empty")
	return fs
}

// apply copies every non-empty flag onto cfg. Values read from the
// environment by ff are indistinguishable from command line ones here.
func (f serverFlags) apply(cfg *config.Config) {
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.provider != "" {
		cfg.Backend.Provider = f.provider
	}
	if f.model != "" {
		cfg.Backend.Model = f.model
	}
	if f.metricsAddr != "" {
		cfg.Metrics.Addr = f.metricsAddr
	}
}

func main() {
	mainutil.Run(func() error {
		ctx := mainutil.TrapSignals()

		var flags serverFlags
		fs := newFlagSet(&flags)
		err := ff.Parse(fs, slices.Clone(os.Args[1:]), ff.WithEnvVarPrefix(envVarPrefix))
		if err != nil {
			if errors.Is(err, ff.ErrHelp) {
				fs.Usage()
				return nil
			}
			return err
		}

		cfg, err := config.Load(flags.configPath)
		if err != nil {
			return err
		}
		flags.apply(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger := logging.New(os.Stdout, cfg.Log.Format, cfg.Log.Level)
		logging.SetLogger(logger)

		shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: cfg.Telemetry.ServiceName,
			Environment: cfg.Telemetry.Environment,
			Endpoint:    cfg.Telemetry.Endpoint,
			Disable:     !cfg.Telemetry.Enabled,
			Logger:      logger,
		})
		if err != nil {
			return err
		}
		defer shutdownTracing(context.Background())

		var cl closers
		defer cl.Close(logger)

		backend, err := buildBackend(ctx, cfg, &cl)
		if err != nil {
			return err
		}
		opts := []remote.Option{
			remote.WithLogger(logging.WithComponent("remote.server")),
			remote.WithStopTimeout(cfg.Server.StopTimeout),
		}

		recorder, err := buildRecorder(ctx, cfg, &cl)
		if err != nil {
			return err
		}
		if recorder != nil {
			opts = append(opts, remote.WithRecorder(recorder))
		}

		if cfg.Metrics.CountTokens {
			tok, err := tiktoken.New(cfg.Metrics.TokenModel)
			if err != nil {
				logger.Warn("token counting disabled", "model", cfg.Metrics.TokenModel, "error", err)
			} else {
				opts = append(opts, remote.WithTokenCounter(tok))
			}
		}

		g, ctx := errgroup.WithContext(ctx)

		if cfg.Metrics.Addr != "" {
			m := metrics.New()
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			if err := m.Register(reg); err != nil {
				return err
			}
			opts = append(opts, remote.WithMetrics(m))

			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler(reg))
			serveHTTP(ctx, g, cfg.Metrics.Addr, mux)
			logger.Info("metrics endpoint enabled", "addr", cfg.Metrics.Addr)
		}

		if flags.mcpAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/mcp", mcpserver.Handler(mcpserver.NewServer("remote-llm", backend)))
			serveHTTP(ctx, g, flags.mcpAddr, mux)
			logger.Info("MCP endpoint enabled", "addr", flags.mcpAddr)
		}

		srv, err := remote.NewServer(backend, opts...)
		if err != nil {
			return err
		}
		lis, err := net.Listen("tcp", cfg.Server.Addr)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return srv.Serve(ctx, lis)
		})
		return g.Wait()
	})
}

func serveHTTP(ctx context.Context, g *errgroup.Group, addr string, h http.Handler) {
	hs := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	g.Go(func() error {
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	})
}
