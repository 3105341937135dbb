package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/tariffnews/config"
	"github.com/mohammad-safakhou/tariffnews/internal/logger"
	"github.com/mohammad-safakhou/tariffnews/internal/runtime"
	"github.com/mohammad-safakhou/tariffnews/internal/server"
	"github.com/mohammad-safakhou/tariffnews/mcp"
	tariffnews "github.com/mohammad-safakhou/tariffnews/tools/tariff_news"
	"github.com/mohammad-safakhou/tariffnews/tools/web_search"
	"github.com/mohammad-safakhou/tariffnews/tools/web_search/duckduckgo"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var transport string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio or SSE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("transport") {
				cfg.Server.Transport = transport
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			cfg.Server = cfg.Server.Normalize()
			if err := cfg.Server.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&transport, "transport", config.TransportStdio, "transport protocol: stdio or sse")
	cmd.Flags().IntVar(&port, "port", 8000, "port for the SSE transport")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	shutdownTracing, err := runtime.SetupTracing(ctx, cfg.Telemetry, version)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := runtime.NewMetrics(reg)
	if err != nil {
		return err
	}

	searcher, err := web_search.NewNewsSearcher(web_search.Provider(cfg.Search.Provider),
		duckduckgo.WithBaseURL(cfg.Search.BaseURL),
		duckduckgo.WithUserAgent(cfg.Search.UserAgent),
		duckduckgo.WithTimeout(cfg.Search.Timeout),
		duckduckgo.WithRateLimit(cfg.Search.RatePerSecond, cfg.Search.Burst),
		duckduckgo.WithBreaker(duckduckgo.BreakerSettings{
			MaxFailures: cfg.Search.Breaker.MaxFailures,
			Timeout:     cfg.Search.Breaker.Timeout,
			Interval:    cfg.Search.Breaker.Interval,
		}),
		duckduckgo.WithLogger(log.Named("duckduckgo")),
	)
	if err != nil {
		return fmt.Errorf("search provider %q: %w", cfg.Search.Provider, err)
	}

	adapter := tariffnews.NewAdapter(searcher, log.Named("search"), metrics)
	handler := mcp.NewHandler(adapter, log.Named("tool"), metrics)
	mcpServer := mcp.NewServer(handler, log.Named("mcp"), version)

	log.Info("starting tariff news server",
		zap.String("version", version),
		zap.String("transport", cfg.Server.Transport),
		zap.String("provider", cfg.Search.Provider))

	switch cfg.Server.Transport {
	case config.TransportSSE:
		httpServer := server.New(cfg.Server, mcpServer.SSEHandler(), reg, version, log.Named("http"))
		return httpServer.Run(ctx, cfg.Server.Address())
	default:
		return mcpServer.ServeStdio(ctx, os.Stdin, os.Stdout)
	}
}
