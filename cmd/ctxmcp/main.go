package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ctxmcp/ctxmcp/internal/app"
	"github.com/ctxmcp/ctxmcp/internal/config"
	"github.com/ctxmcp/ctxmcp/internal/dispatcher"
	"github.com/ctxmcp/ctxmcp/internal/enhancer"
	"github.com/ctxmcp/ctxmcp/internal/httplog"
	"github.com/ctxmcp/ctxmcp/internal/logging"
	"github.com/ctxmcp/ctxmcp/internal/telemetry"
	"github.com/ctxmcp/ctxmcp/internal/transport"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("%s %s\n", dispatcher.ServerName, version)
		os.Exit(0)
	}

	cfg, err := config.Load(config.DefaultYAMLPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ctxmcp: load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.NewDefault(cfg.LogLevel)
	log.Info().Str("version", version).Msg("ctxmcp server starting")

	var metrics *telemetry.Registry
	if cfg.MetricsEnabled {
		metrics = telemetry.NewRegistry()
	}

	var reqLog *httplog.Logger
	if cfg.RequestLogEnabled {
		reqLog, err = httplog.New(config.DefaultStateDir())
		if err != nil {
			log.Warn().Err(err).Msg("could not start HTTP request logging")
		}
	}

	provider, err := buildProvider(cfg, reqLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build enhancer provider")
	}

	svc := app.New(cfg, provider, metrics, reqLog, log)
	defer svc.Close()

	d := &dispatcher.Dispatcher{
		SearchContext: svc.SearchContext,
		Log:           log,
	}
	if provider != nil {
		d.EnhancePrompt = svc.EnhancePrompt
	}

	conn := transport.NewConn(os.Stdin, os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msg("listening on stdio")
		errCh <- d.Serve(ctx, conn)
	}()

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("dispatcher stopped with an error")
		}
	}

	log.Info().Msg("server stopped")
}

// buildProvider constructs the shared enhancer.Provider from config, or
// returns nil when enhance_prompt is disabled. reqLog may be nil to leave
// every enhancer HTTP request unlogged.
func buildProvider(cfg *config.Config, reqLog *httplog.Logger) (enhancer.Provider, error) {
	if cfg.DisableEnhancer {
		return nil, nil
	}

	endpoint := enhancer.ParseEndpoint(cfg.EnhancerEndpoint)

	var tpCfg enhancer.ThirdPartyConfig
	if endpoint.IsThirdParty() {
		var err error
		tpCfg, err = enhancer.ResolveThirdPartyConfig(endpoint, cfg.EnhancerBaseURL, cfg.EnhancerToken, cfg.EnhancerModel)
		if err != nil {
			return nil, err
		}
	}

	augmentBaseURL := cfg.EnhancerBaseURL
	if augmentBaseURL == "" {
		augmentBaseURL = cfg.BaseURL
	}
	augmentToken := cfg.EnhancerToken
	if augmentToken == "" {
		augmentToken = cfg.Token
	}

	return enhancer.BuildProvider(context.Background(), endpoint, augmentBaseURL, augmentToken, tpCfg, reqLog)
}
