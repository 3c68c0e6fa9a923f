package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/subledger"
	audithook "github.com/xraph/subledger/audit_hook"
	"github.com/xraph/subledger/config"
	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/observability"
	"github.com/xraph/subledger/session"
	"github.com/xraph/subledger/store/backend"
)

// Output streams, swapped in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// globalFlags are shared by every command that opens the ledger.
type globalFlags struct {
	configPath  string
	envFile     string
	role        string
	auditPath   string
	metricsPath string
}

func registerGlobalFlags(fs *flag.FlagSet) *globalFlags {
	g := &globalFlags{}
	fs.StringVar(&g.configPath, "config", os.Getenv(config.EnvPrefix+"CONFIG"), "YAML config file")
	fs.StringVar(&g.envFile, "env", ".env", "dotenv file with "+config.EnvPrefix+"* overrides")
	fs.StringVar(&g.role, "role", string(session.RoleUser), "session role: admin or user")
	fs.StringVar(&g.auditPath, "audit", "", "append audit events as JSON lines to this file")
	fs.StringVar(&g.metricsPath, "metrics", "", "write Prometheus metrics to this file on exit")
	return g
}

func newFlagSet(name, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: subledger %s\n\nOptions:\n", synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// app is an opened ledger plus the resources that must be released with it.
type app struct {
	ledger   *subledger.Ledger
	session  *session.Session
	logger   *slog.Logger
	registry *prometheus.Registry

	metricsPath string
	closers     []func() error
}

// openApp authorizes command for the requested role, then loads config,
// opens the store and starts the ledger with the audit and metrics plugins.
func openApp(ctx context.Context, command string, g *globalFlags) (*app, error) {
	role, err := session.ParseRole(g.role)
	if err != nil {
		return nil, err
	}
	sess := session.New(role)
	if err := sess.Authorize(command); err != nil {
		return nil, err
	}

	cfg, err := config.Load(g.configPath, g.envFile)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger = logger.With("session_id", sess.ID.String(), "role", sess.Role.String())

	limits, err := cfg.TierLimits()
	if err != nil {
		return nil, err
	}
	codec, err := backend.TableCodec(cfg.TableFormat)
	if err != nil {
		return nil, err
	}

	a := &app{
		session:     sess,
		logger:      logger,
		registry:    prometheus.NewRegistry(),
		metricsPath: g.metricsPath,
	}

	recorder := audithook.LogRecorder(logger)
	if g.auditPath != "" {
		f, err := os.OpenFile(g.auditPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		a.closers = append(a.closers, f.Close)
		recorder = audithook.NewJSONRecorder(f)
	}

	st, err := backend.Open(ctx, cfg.Store)
	if err != nil {
		_ = a.closeResources() //nolint:errcheck // open error takes precedence
		return nil, err
	}

	a.ledger = subledger.New(st,
		subledger.WithLogger(logger),
		subledger.WithLimits(limits),
		subledger.WithTableCodec(codec),
		// backend.Open has already migrated.
		subledger.WithSkipMigrate(),
		subledger.WithPlugin(audithook.New(recorder, audithook.WithLogger(logger))),
		subledger.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(a.registry))),
	)
	if err := a.ledger.Start(ctx); err != nil {
		_ = st.Close()         //nolint:errcheck // start error takes precedence
		_ = a.closeResources() //nolint:errcheck // start error takes precedence
		return nil, err
	}
	return a, nil
}

// Close stops the ledger, flushes metrics and releases resources.
func (a *app) Close() error {
	err := a.ledger.Stop()
	if a.metricsPath != "" {
		err = errors.Join(err, prometheus.WriteToTextfile(a.metricsPath, a.registry))
	}
	return errors.Join(err, a.closeResources())
}

func (a *app) closeResources() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// withApp parses args, opens the ledger and runs fn with the positional
// arguments.
func withApp(command string, fs *flag.FlagSet, g *globalFlags, args []string, fn func(ctx context.Context, a *app, rest []string) error) (err error) {
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	a, err := openApp(ctx, command, g)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	return fn(ctx, a, fs.Args())
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func parseID(rest []string) (customer.ID, error) {
	if len(rest) < 1 {
		return 0, errors.New("customer id is required")
	}
	n, err := strconv.Atoi(rest[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid customer id %q", rest[0])
	}
	return customer.ID(n), nil
}
