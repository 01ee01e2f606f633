package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	wconfig "wingmand/internal/config"
	"wingmand/internal/download"
	"wingmand/internal/hardware"
	"wingmand/internal/httpapi"
	"wingmand/internal/hub"
	"wingmand/internal/inference"
	"wingmand/internal/lifecycle"
	"wingmand/internal/retrieval"
	"wingmand/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	defaultHome := os.Getenv("WINGMAND_HOME")
	if defaultHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			defaultHome = filepath.Join(home, ".wingman")
		} else {
			defaultHome = ".wingman"
		}
	}

	port := flag.Int("port", 6567, "Control API port")
	websocketPort := flag.Int("websocket-port", 6568, "live metrics subscription port")
	homeDir := flag.String("home-dir", defaultHome, "managed home directory (store, models/, data/, logs/)")
	appDir := flag.String("app-dir", "", "directory containing dist/ and distadmin/ static assets")
	configPath := flag.String("config", "", "optional config file (.yaml/.json/.toml) overriding flag defaults")
	embedderURL := flag.String("embedder-url", "", "HTTP embedding endpoint for the retrieval service; empty disables retrieval")
	modelCatalogLimit := flag.Int("model-catalog-limit", 50, "max entries returned by GET /api/models")
	postStopDelay := flag.Duration("post-stop-delay", 2000*time.Millisecond, "delay after a child exits before the supervisor starts another")
	logLevel := flag.String("log-level", envOr("WINGMAND_LOG_LEVEL", "info"), "trace|debug|info|warn|error|off")
	flag.Parse()

	lcCfg := lifecycle.Config{HomeDir: *homeDir}
	infCfg := inference.Config{HomeDir: *homeDir, PostStopDelay: *postStopDelay}
	if *configPath != "" {
		cfg, err := wconfig.Load(*configPath)
		if err != nil {
			log.Printf("wingmand: failed to load config %s: %v", *configPath, err)
			return 1
		}
		if cfg.HomeDir != "" {
			*homeDir = cfg.HomeDir
			lcCfg.HomeDir = cfg.HomeDir
			infCfg.HomeDir = cfg.HomeDir
		}
		if cfg.PostStopDelayMS > 0 {
			infCfg.PostStopDelay = time.Duration(cfg.PostStopDelayMS) * time.Millisecond
		}
		if cfg.ForceShutdownWaitTimeoutMS > 0 {
			lcCfg.ForceShutdownWaitTimeout = time.Duration(cfg.ForceShutdownWaitTimeoutMS) * time.Millisecond
		}
		if cfg.QueueCheckIntervalMS > 0 {
			interval := time.Duration(cfg.QueueCheckIntervalMS) * time.Millisecond
			lcCfg.SentinelPollInterval = interval
			infCfg.QueueCheckInterval = interval
		}
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	logger = logger.Level(parseZerologLevel(*logLevel))
	hub.SetLogger(logger)
	download.SetLogger(logger)
	inference.SetLogger(logger)
	lifecycle.SetLogger(logger)
	httpapi.SetLogger(logger)

	if err := os.MkdirAll(*homeDir, 0o755); err != nil {
		logger.Error().Err(err).Msg("create home directory")
		return 1
	}

	st, err := store.Open(filepath.Join(*homeDir, "wingman.db"))
	if err != nil {
		logger.Error().Err(err).Msg("open store")
		return 1
	}
	defer st.Close()

	h := hub.New(filepath.Join(*homeDir, "logs", "timing_metrics.json"))

	lc, err := lifecycle.New(st, h, lcCfg)
	if err != nil {
		logger.Error().Err(err).Msg("lifecycle reconciliation failed")
		return 1
	}

	downloadSvc := download.New(st, download.Config{HomeDir: *homeDir}, h)
	inferenceSvc := inference.New(st, infCfg, inference.NewSubprocessRuntime("llama-server", "127.0.0.1", nil), h, lc.RequestShutdown)
	lc.AddServices(downloadSvc, inferenceSvc, h)

	var retrievalSvc *retrieval.Service
	if *embedderURL != "" {
		idx, err := retrieval.OpenIndex(filepath.Join(*homeDir, "data"))
		if err != nil {
			logger.Error().Err(err).Msg("open retrieval index")
			return 1
		}
		defer idx.Close()
		retrievalSvc = retrieval.New(idx, retrieval.NewHTTPEmbedder(*embedderURL))
	}

	deps := &httpapi.Dependencies{
		Store:           st,
		Hub:             h,
		Retrieval:       retrievalSvc,
		Models:          httpapi.NewHFModelCatalog(*modelCatalogLimit),
		Metadata:        httpapi.NewFileStatMetadata(*homeDir),
		Probe:           hardware.Probe,
		AppDir:          *appDir,
		RequestShutdown: lc.RequestShutdown,
	}
	mux := httpapi.NewMux(deps)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", *port), Handler: mux}
	wsSrv := &http.Server{Addr: fmt.Sprintf(":%d", *websocketPort), Handler: mux}

	go func() {
		logger.Info().Int("port", *port).Msg("wingmand Control API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("control API server error")
		}
	}()
	go func() {
		logger.Info().Int("port", *websocketPort).Msg("wingmand live subscription listening")
		if err := wsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("websocket server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("signal received, requesting shutdown")
		lc.RequestShutdown()
		<-sigCh // a second signal aborts immediately
		logger.Warn().Msg("second signal received, aborting")
		os.Exit(130)
	}()

	exitCode := lc.Run(context.Background())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = wsSrv.Shutdown(shutdownCtx)

	return exitCode
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseZerologLevel(s string) zerolog.Level {
	switch s {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
