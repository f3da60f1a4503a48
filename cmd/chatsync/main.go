package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/practice-sem-2/chat-client/internal/config"
	"github.com/practice-sem-2/chat-client/internal/console"
	"github.com/practice-sem-2/chat-client/internal/metrics"
	storage "github.com/practice-sem-2/chat-client/internal/storages"
	usecase "github.com/practice-sem-2/chat-client/internal/usecases"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
)

func initLogger(level string) *logrus.Logger {

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.JSONFormatter{})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
		logger.
			WithField("log_level", level).
			Warning("specified invalid log level")
	} else {
		logger.SetLevel(logLevel)
		logger.
			WithField("log_level", level).
			Debugf("specified %s log level", logLevel.String())
	}

	return logger
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"base-url":        "base_url",
	"salon":           "salon",
	"channel":         "channel",
	"username":        "username",
	"session-cookie":  "session_cookie",
	"csrf-token":      "csrf_token",
	"poll-interval":   "poll_interval",
	"poll-jitter":     "poll_jitter",
	"request-timeout": "request_timeout",
	"log-level":       "log_level",
	"metrics-addr":    "metrics_addr",
}

func initConfig(cmd *cobra.Command, validate *validator.Validate) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	v, err := config.New(path)
	if err != nil {
		return nil, err
	}
	if err = bindFlags(cmd, v); err != nil {
		return nil, err
	}
	return config.Load(v, validate)
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("can't bind flag %s: %w", flag, err)
		}
	}
	return nil
}

func initRegistry(cfg *config.Config, logger *logrus.Logger) storage.Registry {
	client, err := storage.NewClient(storage.ClientConfig{
		BaseURL:       cfg.BaseURL,
		SessionCookie: cfg.SessionCookie,
		CSRFToken:     cfg.CSRFToken,
		Timeout:       cfg.RequestTimeout,
	}, logger)
	if err != nil {
		logger.Fatalf("can't create backend client: %s", err.Error())
	}
	return storage.NewRegistry(client)
}

func initMetrics(addr string, logger *logrus.Logger) (*metrics.Metrics, *http.Server) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)
	if addr == "" {
		return m, nil
	}

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()
	return m, srv
}

// withSignals returns a context cancelled on the first termination signal.
func withSignals(ctx context.Context, logger *logrus.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	go func() {
		defer signal.Stop(osSignal)
		select {
		case sig := <-osSignal:
			logger.Infof("%s caught. Gracefully shutdown", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func runWatch(cmd *cobra.Command, _ []string) error {
	validate := usecase.NewValidator()
	cfg, err := initConfig(cmd, validate)
	if err != nil {
		return err
	}
	logger := initLogger(cfg.LogLevel)
	registry := initRegistry(cfg, logger)
	m, metricsSrv := initMetrics(cfg.MetricsAddr, logger)

	ctx, cancel := withSignals(cmd.Context(), logger)
	defer cancel()

	c := console.New(cmd.InOrStdin(), cmd.OutOrStdout(), cfg.Username, cfg.Scope().String())
	conv, err := usecase.NewConversation(usecase.ConversationConfig{
		Scope:       cfg.Scope(),
		Viewer:      cfg.Username,
		Sync:        usecase.SyncConfig{Interval: cfg.PollInterval, Jitter: cfg.PollJitter},
		ResyncDelay: cfg.ResyncDelay,
	}, registry.GetMessagesStore(), registry.GetRosterStore(), c, validate, m, logger)
	if err != nil {
		return err
	}

	handle, err := conv.Open(ctx)
	if err != nil {
		return err
	}
	logger.WithField("scope", cfg.Scope().String()).Info("watching conversation")

	err = console.NewSession(conv, c, validate, logger).Run(ctx)
	handle.Stop()

	if metricsSrv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if serr := metricsSrv.Shutdown(shutdownCtx); serr != nil {
			logger.WithError(serr).Warn("metrics server shutdown failed")
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runUsers(cmd *cobra.Command, _ []string) error {
	validate := usecase.NewValidator()
	cfg, err := initConfig(cmd, validate)
	if err != nil {
		return err
	}
	logger := initLogger(cfg.LogLevel)
	registry := initRegistry(cfg, logger)

	ctx, cancel := withSignals(cmd.Context(), logger)
	defer cancel()

	entries, err := registry.GetRosterStore().List(ctx, cfg.Salon)
	if err != nil {
		return fmt.Errorf("can't list members of %s: %w", cfg.Salon, err)
	}
	console.New(cmd.InOrStdin(), cmd.OutOrStdout(), cfg.Username, cfg.Salon).RenderRoster(entries)

	caps := usecase.CapabilitiesFor(cfg.Username, entries)
	logger.WithFields(logrus.Fields{
		"can_moderate": caps.CanModerate,
		"is_admin":     caps.IsAdmin,
	}).Debug("resolved viewer capabilities")
	return nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatsync",
		Short:         "Terminal client for salon conversations",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file path")
	flags.String("base-url", "", "backend base url")
	flags.String("salon", "", "salon slug")
	flags.String("channel", "", "channel slug inside the salon")
	flags.StringP("username", "u", "", "your username on the backend")
	flags.String("session-cookie", "", "value of the sessionid cookie")
	flags.String("csrf-token", "", "value of the csrftoken cookie")
	flags.String("log-level", "info", "log level")

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Follow a conversation and send commands from stdin",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
	watch.Flags().Duration("poll-interval", 3*time.Second, "delay between two syncs")
	watch.Flags().Float64("poll-jitter", 0, "random spread of the poll interval, as a fraction")
	watch.Flags().Duration("request-timeout", 0, "per request timeout, 0 keeps the transport default")
	watch.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")

	users := &cobra.Command{
		Use:   "users",
		Short: "List the members of a salon",
		Args:  cobra.NoArgs,
		RunE:  runUsers,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(root.Version)
		},
	}

	root.AddCommand(watch, users, versionCmd)
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
