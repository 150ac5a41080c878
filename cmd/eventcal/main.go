package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"eventcal/internal/calendar"
	"eventcal/internal/config"
	"eventcal/internal/ics"
	appLog "eventcal/internal/log"
	"eventcal/internal/metric"
	"eventcal/internal/scheduler"
	"eventcal/internal/store"
	"eventcal/internal/web"
)

const version = "0.1.0"

// defaultConfigPath is used unless EVENTCAL_CONFIG or --config is set.
const defaultConfigPath = "/etc/eventcal/config.yaml"

type flagConfig struct {
	configPath string
	listen     string
	logLevel   string
	once       bool
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		appLog.Warn("failed to load .env", "error", err.Error())
	}

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("eventcal starting",
		"version", version,
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"database", conf.Database,
		"conflict_policy", conf.ConflictPolicy,
		"refresh", conf.RefreshCron,
		"subscriptions", len(conf.Subscriptions),
		"once", flags.once,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags.once); err != nil {
		appLog.Error("eventcal failed", err)
		os.Exit(1)
	}
	appLog.Info("eventcal exiting")
}

func run(ctx context.Context, conf *config.Config, once bool) error {
	db, err := store.NewDB(conf.Database)
	if err != nil {
		return err
	}
	events := store.New(db)
	metrics := metric.New(prometheus.DefaultRegisterer)

	importer := ics.NewImporter(
		ics.NewFetcher(conf.CacheDir),
		events,
		ics.SourcesFromConfig(conf.Subscriptions),
		metrics,
	)

	if once {
		_, err := importer.Refresh(ctx)
		return err
	}

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("invalid timezone; using local", err, "timezone", conf.Timezone)
		loc = time.Local
	}

	sched := scheduler.New(loc)
	if conf.RefreshCron != "" && len(conf.Subscriptions) > 0 {
		refresh := func(ctx context.Context) error {
			_, err := importer.Refresh(ctx)
			return err
		}
		if _, err := sched.Add("ics-refresh", conf.RefreshCron, refresh); err != nil {
			return err
		}
		go func() {
			if err := refresh(ctx); err != nil {
				appLog.Error("initial ics refresh failed", err)
			}
		}()
	}
	sched.Start()
	defer sched.Stop()

	svc := calendar.NewService(events, conf.ConflictPolicy)
	srv := web.NewServer(conf, svc, web.WithMetrics(metrics, prometheus.DefaultGatherer))
	httpSrv := &http.Server{
		Addr:              conf.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	defaultPath := defaultConfigPath
	if v := os.Getenv("EVENTCAL_CONFIG"); v != "" {
		defaultPath = v
	}

	flag.StringVar(&cfg.configPath, "config", defaultPath, "Path to config file (env EVENTCAL_CONFIG)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.BoolVar(&cfg.once, "once", false, "Import all subscriptions once and exit")

	flag.Parse()

	return cfg
}
