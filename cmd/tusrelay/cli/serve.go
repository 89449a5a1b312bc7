package cli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tusrelay/tusrelay/pkg/metrics"
	"github.com/tusrelay/tusrelay/pkg/notify"
	"github.com/tusrelay/tusrelay/pkg/server"
	"github.com/tusrelay/tusrelay/pkg/upload"
)

var serveConfigFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tusrelay HTTP server",
	RunE:  runServe,
}

func init() {
	bindFlags(serveCmd.Flags())
	serveCmd.Flags().StringVar(&serveConfigFile, "config", "", "path to a YAML/TOML config file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags(), serveConfigFile)
	if err != nil {
		return err
	}

	logLevel := zerolog.InfoLevel
	if cfg.VerboseOutput {
		logLevel = zerolog.DebugLevel
	}

	var logWriter io.Writer = os.Stdout
	if cfg.LogFormat != "json" {
		logWriter = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	log := zerolog.New(logWriter).Level(logLevel).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	infoStore, err := buildInfoStore(cfg, log)
	if err != nil {
		return err
	}
	if err := infoStore.Prepare(ctx); err != nil {
		return err
	}

	dataStore, err := buildDataStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := dataStore.Prepare(ctx); err != nil {
		return err
	}

	hooksFormat := notify.Format(cfg.HooksFormat)
	notifiers, err := buildNotifiers(cfg, hooksFormat)
	if err != nil {
		return err
	}
	for _, n := range notifiers {
		if err := n.Prepare(ctx); err != nil {
			return err
		}
	}
	notifyManager := notify.NewManager(notifiers, hooksFormat, log)

	extensions, err := cfg.extensions()
	if err != nil {
		return err
	}
	hooks, err := cfg.hooks()
	if err != nil {
		return err
	}

	var metricsCollector *metrics.Collector
	var serverMetrics server.Metrics
	if cfg.ExposeMetrics {
		metricsCollector = metrics.New()
		prometheus.MustRegister(metricsCollector)
		serverMetrics = metricsCollector
	}

	handlerConfig := server.Config{
		BasePath:    cfg.BasePath,
		Extensions:  extensions,
		Hooks:       hooks,
		HooksFormat: hooksFormat,
		MaxFileSize: cfg.MaxFileSize,
		AllowEmpty:  cfg.AllowEmpty,
		RemoveParts: cfg.RemoveParts,
		BehindProxy: cfg.BehindProxy,
		CORS:        server.DefaultCORSConfig,
		Logger:      log,
	}

	h := server.New(handlerConfig, infoStore, dataStore, notifyManager, serverMetrics)

	mux := http.NewServeMux()
	if handlerConfig.BasePath != "/" {
		mux.Handle(handlerConfig.BasePath, h)
	}
	mux.Handle(handlerConfig.BasePath+"/", h)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if cfg.ExposeMetrics {
		mux.Handle(cfg.MetricsPath, promhttp.Handler())
	}

	addr := cfg.Host + ":" + cfg.Port
	httpServer := &http.Server{Addr: addr, Handler: mux}

	log.Info().Str("addr", addr).Str("base_path", handlerConfig.BasePath).
		Strs("extensions", extensionNames(extensions)).
		Strs("hooks", hookNames(hooks)).
		Msg("tusrelay listening")

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info().Msg("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

func extensionNames(exts []server.Extension) []string {
	names := make([]string, len(exts))
	for i, e := range exts {
		names[i] = string(e)
	}
	return names
}

func hookNames(hooks []upload.Hook) []string {
	names := make([]string, len(hooks))
	for i, h := range hooks {
		names[i] = string(h)
	}
	return names
}
