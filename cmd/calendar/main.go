package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/clock"
	"github.com/example/meeting-calendar/internal/config"
	httptransport "github.com/example/meeting-calendar/internal/http"
	"github.com/example/meeting-calendar/internal/logging"
	"github.com/example/meeting-calendar/internal/persistence/sqlite"
	"github.com/example/meeting-calendar/internal/telemetry"
	"github.com/example/meeting-calendar/internal/tools"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		logging.New(os.Stderr, slog.LevelError).Error("calendar exited", "error", err)
		stop()
		os.Exit(1)
	}
}

// flagEnv maps command line flags onto the environment variables they override.
var flagEnv = []struct {
	name  string
	key   string
	usage string
}{
	{"db", "CALENDAR_SQLITE_PATH", "SQLite database path, or :memory:"},
	{"policy", "CALENDAR_POLICY_FILE", "YAML file listing rooms and business hours"},
	{"start-time", "CALENDAR_START_TIME", "initial virtual time, 2006-01-02T15:04:05"},
	{"timezone", "CALENDAR_TIMEZONE", "IANA location for naive timestamps"},
	{"transport", "CALENDAR_TRANSPORT", "stdio, http or both"},
	{"http-addr", "CALENDAR_HTTP_ADDR", "listen address for the HTTP API"},
	{"log-level", "CALENDAR_LOG_LEVEL", "debug, info, warn or error"},
	{"otel-endpoint", "CALENDAR_OTEL_ENDPOINT", "OTLP/HTTP traces endpoint; empty disables tracing"},
}

type options struct {
	overrides   map[string]string
	migrateOnly bool
}

func parseFlags(args []string, output io.Writer) (options, error) {
	fs := pflag.NewFlagSet("calendar", pflag.ContinueOnError)
	fs.SetOutput(output)

	values := make(map[string]*string, len(flagEnv))
	for _, f := range flagEnv {
		values[f.name] = fs.String(f.name, "", f.usage+" (env "+f.key+")")
	}
	migrateOnly := fs.Bool("migrate", false, "apply migrations, print the schema status and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	opts := options{overrides: make(map[string]string), migrateOnly: *migrateOnly}
	for _, f := range flagEnv {
		if fs.Changed(f.name) {
			opts.overrides[f.key] = *values[f.name]
		}
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.LoadWithOverrides(opts.overrides)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := logging.New(stderr, cfg.LogLevel)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.migrateOnly {
		return a.printSchemaStatus(ctx, stdout)
	}

	var transport mcp.Transport
	if cfg.ServeStdio() {
		transport = &mcp.StdioTransport{}
	}
	var listener net.Listener
	if cfg.ServeHTTP() {
		listener, err = net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
		}
	}
	return a.serve(ctx, transport, listener)
}

type app struct {
	logger   *slog.Logger
	storage  *sqlite.Storage
	clock    *clock.Virtual
	service  *application.MeetingService
	mcp      *mcp.Server
	handler  http.Handler
	shutdown telemetry.ShutdownFunc
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	shutdown, err := telemetry.Setup(ctx, cfg.OTelEndpoint, tools.ServerName, tools.ServerVersion)
	if err != nil {
		return nil, fmt.Errorf("set up telemetry: %w", err)
	}

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	storage, err := sqlite.Open(cfg.SQLitePath, sqlite.Options{Location: cfg.Location, Logger: logger})
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		_ = shutdown(ctx)
		return nil, err
	}

	clk := clock.NewVirtual(cfg.InitialTime(time.Now()))
	service := application.NewMeetingServiceWithLogger(storage, clk, policy, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Meetings: httptransport.NewMeetingHandler(service, cfg.Location, logger),
		Clock:    httptransport.NewClockHandler(service, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.Recoverer(logger),
			httptransport.RequestLogger(logger),
		},
	})

	logger.Info("calendar ready",
		"database", cfg.SQLitePath,
		"rooms", len(policy.Rooms),
		"virtual_time", application.FormatISO(clk.Now()),
		"transport", cfg.Transport,
	)

	return &app{
		logger:   logger,
		storage:  storage,
		clock:    clk,
		service:  service,
		mcp:      tools.NewServer(service, tools.Options{Location: cfg.Location, Logger: logger}),
		handler:  router,
		shutdown: shutdown,
	}, nil
}

// serve runs the MCP server on transport and the HTTP API on listener until
// ctx ends. A nil transport or listener disables that surface.
func (a *app) serve(ctx context.Context, transport mcp.Transport, listener net.Listener) error {
	group, ctx := errgroup.WithContext(ctx)

	if transport != nil {
		group.Go(func() error {
			a.logger.Info("serving MCP tools")
			if err := a.mcp.Run(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("mcp server: %w", err)
			}
			a.logger.Info("MCP session ended")
			return nil
		})
	}

	if listener != nil {
		server := &http.Server{
			Handler:           a.handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		group.Go(func() error {
			a.logger.Info("calendar API listening", "addr", listener.Addr().String())
			if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("failed to shutdown server", "error", err)
			}
			return nil
		})
	}

	return group.Wait()
}

func (a *app) printSchemaStatus(ctx context.Context, w io.Writer) error {
	status, err := a.storage.SchemaStatus(ctx)
	if err != nil {
		return fmt.Errorf("schema status: %w", err)
	}
	fmt.Fprintf(w, "schema version %s, %d applied, %d pending\n", status.CurrentVersion, len(status.Applied), len(status.Pending))
	for _, applied := range status.Applied {
		fmt.Fprintf(w, "  %s applied %s\n", applied.Version, applied.AppliedAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// Close flushes traces and releases the database.
func (a *app) Close() {
	if err := a.storage.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(shutdownCtx); err != nil {
		a.logger.Error("failed to flush traces", "error", err)
	}
}
