// Command carealloc serves the allocation engine over HTTP and drives the
// allocation cycle until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/viant/carealloc"
	"github.com/viant/carealloc/service/dao/sql"
	"github.com/viant/carealloc/service/event"
	"github.com/viant/carealloc/service/messaging"
	"github.com/viant/carealloc/tracing"
	"go.uber.org/zap"
)

var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return err
	}
	v, err := newViper(flags)
	if err != nil {
		return err
	}
	if v.GetBool("version") {
		fmt.Println(version)
		return nil
	}
	logger, err := newLogger(v.GetBool("debug"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	config, err := configure(context.Background(), v)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, config, logger, !v.GetBool("no-seed"))
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("carealloc", pflag.ContinueOnError)
	flags.StringP("config", "c", "", "YAML config URL (any afs location)")
	flags.BoolP("debug", "d", false, "enable development logging")
	flags.Bool("version", false, "print version and exit")
	flags.Bool("no-seed", false, "skip inventory seeding")
	flags.String("addr", "", "HTTP listen address (http.addr override)")
	flags.Int("scheduler-interval", 0, "seconds between allocation cycles (set $SCHEDULER_INTERVAL to override)")
	flags.Int("aging-interval", 0, "seconds of waiting that improve priority by one (set $AGING_INTERVAL to override)")
	flags.String("store", "", "store vendor: memory, fs or mysql")
	flags.String("store-url", "", "fs store base URL")
	flags.String("db-host", "", "MySQL host")
	flags.Int("db-port", 0, "MySQL port")
	flags.String("db-user", "", "MySQL user")
	flags.String("db-password", "", "MySQL password")
	flags.String("db-name", "", "MySQL database")
	flags.String("events", "", "event queue vendor: memory or fs")
	flags.String("events-url", "", "fs event queue base URL")
	flags.Bool("trace", false, "export OpenTelemetry spans")
	flags.String("trace-file", "", "span output file, stdout when empty")
	return flags
}

// newViper binds flags and environment: SCHEDULER_INTERVAL and
// AGING_INTERVAL as is, everything else as CAREALLOC_<FLAG>.
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("carealloc")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	if err := v.BindEnv("scheduler-interval", "SCHEDULER_INTERVAL", "CAREALLOC_SCHEDULER_INTERVAL"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("aging-interval", "AGING_INTERVAL", "CAREALLOC_AGING_INTERVAL"); err != nil {
		return nil, err
	}
	return v, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// configure loads the config file, when given, and applies overrides set by
// flag or environment.
func configure(ctx context.Context, v *viper.Viper) (*carealloc.Config, error) {
	config := carealloc.DefaultConfig()
	if URL := v.GetString("config"); URL != "" {
		var err error
		if config, err = carealloc.LoadConfig(ctx, URL); err != nil {
			return nil, err
		}
	}
	if v.IsSet("addr") {
		config.HTTP.Addr = v.GetString("addr")
	}
	if v.IsSet("scheduler-interval") {
		config.Scheduler.Interval = time.Duration(v.GetInt("scheduler-interval")) * time.Second
	}
	if v.IsSet("aging-interval") {
		config.Aging.Interval = time.Duration(v.GetInt("aging-interval")) * time.Second
	}
	if v.IsSet("store") {
		config.Store.Vendor = v.GetString("store")
	}
	if v.IsSet("store-url") {
		config.Store.BaseURL = v.GetString("store-url")
	}
	for _, key := range []string{"db-host", "db-port", "db-user", "db-password", "db-name"} {
		if !v.IsSet(key) {
			continue
		}
		if config.Store.MySQL == nil {
			config.Store.MySQL = &sql.Config{}
		}
		switch key {
		case "db-host":
			config.Store.MySQL.Host = v.GetString(key)
		case "db-port":
			config.Store.MySQL.Port = v.GetInt(key)
		case "db-user":
			config.Store.MySQL.User = v.GetString(key)
		case "db-password":
			config.Store.MySQL.Password = v.GetString(key)
		case "db-name":
			config.Store.MySQL.Database = v.GetString(key)
		}
	}
	if v.IsSet("events") || v.IsSet("events-url") {
		if config.Events == nil {
			config.Events = event.DefaultConfig()
		}
		if v.IsSet("events") {
			config.Events.Vendor = messaging.Vendor(v.GetString("events"))
		}
		if v.IsSet("events-url") {
			config.Events.BaseURL = v.GetString("events-url")
		}
	}
	if v.IsSet("trace") || v.IsSet("trace-file") {
		if config.Tracing == nil {
			config.Tracing = &tracing.Config{ServiceName: "carealloc", ServiceVersion: version}
		}
		config.Tracing.Enabled = v.GetBool("trace") || v.GetString("trace-file") != ""
		config.Tracing.OutputFile = v.GetString("trace-file")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func serve(ctx context.Context, config *carealloc.Config, logger *zap.Logger, seed bool) error {
	srv, err := carealloc.New(ctx, carealloc.WithConfig(config), carealloc.WithLogger(logger))
	if err != nil {
		return err
	}
	rt := srv.Runtime()
	if seed {
		if _, err = rt.Seed(ctx); err != nil {
			_ = rt.Shutdown(context.Background())
			return err
		}
	}
	server := &http.Server{
		Addr:              config.HTTP.Addr,
		Handler:           rt.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err = rt.Start(ctx); err != nil {
		return err
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", server.Addr), zap.String("version", version))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(err, server.Shutdown(shutdownCtx), rt.Shutdown(shutdownCtx))
}
