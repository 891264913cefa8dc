package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-prediction-demo/internal/client"
	"github.com/kjstillabower/weather-prediction-demo/internal/config"
	"github.com/kjstillabower/weather-prediction-demo/internal/dashboard"
	httphandler "github.com/kjstillabower/weather-prediction-demo/internal/http"
	"github.com/kjstillabower/weather-prediction-demo/internal/observability"
	"github.com/kjstillabower/weather-prediction-demo/internal/server"
)

var version = "dev"

type cli struct {
	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to .env file'"`
	Variant string                   `kong:"name=variant,help='Field set: full or condition (default from config).'"`
	Version kong.VersionFlag         `kong:"help='Print version and exit.'"`

	Serve serveCmd `kong:"cmd,default='1',help='Serve the dashboard page and JSON snapshot.'"`
	Once  onceCmd  `kong:"cmd,help='Mount once, wait for the fields and print them.'"`
}

// app is bound into every command's Run.
type app struct {
	ctx     context.Context
	cfg     *config.Config
	logger  *zap.Logger
	sources []dashboard.Source
}

func (a *app) mount() *dashboard.Board {
	return dashboard.Mount(a.ctx, a.sources, dashboard.Options{Logger: a.logger, CallTimeout: a.cfg.CallTimeout})
}

type serveCmd struct {
	Port string `kong:"name=port,short=p,env=DASHBOARD_PORT,help='Listen port (default from config, 4200).'"`
}

func (s *serveCmd) Run(a *app) error {
	port := s.Port
	if port == "" {
		port = a.cfg.DashboardPort
	}

	h := dashboard.NewHandler(a.mount, "Weather Predictions", a.cfg.RefreshInterval, a.logger)
	defer h.Close()

	health := httphandler.NewHealthHandler(httphandler.HealthConfig{
		Service:          "dashboard",
		Version:          version,
		DegradedWindow:   a.cfg.DegradedWindow,
		DegradedErrorPct: a.cfg.DegradedErrorPct,
	}, a.logger)

	listener := server.Listener{
		Name:   "dashboard",
		Server: server.New(":"+port, dashboard.NewRouter(h, health, a.logger)),
		Started: func(addr net.Addr) {
			a.logger.Info("dashboard listening", zap.String("addr", addr.String()), zap.String("variant", a.cfg.DashboardVariant))
		},
	}
	return server.Run(a.ctx, a.logger, []server.Listener{listener}, server.ShutdownFromConfig(a.cfg))
}

type onceCmd struct {
	Wait time.Duration `kong:"name=wait,default='0s',help='Stop waiting after this long and print what has settled (0 waits for every field).'"`
}

func (o *onceCmd) Run(a *app) error {
	b := a.mount()
	defer b.Unmount()

	ctx := a.ctx
	if o.Wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Wait)
		defer cancel()
	}
	if err := b.Wait(ctx); err != nil {
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return err
		}
		a.logger.Warn("printing with fields still pending", zap.Error(err))
	}
	return dashboard.Render(os.Stdout, b.Snapshot())
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("dashboard"),
		kong.Description("Shows rain, temperature and weather predictions fetched from the prediction services."),
		kong.Vars{"version": version},
	)

	logger, err := observability.NewLogger("dashboard")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if c.Variant != "" {
		cfg.DashboardVariant = c.Variant
	}
	sources, err := dashboard.Sources(cfg.DashboardVariant, client.NewFromConfig(cfg), cfg.Inputs)
	if err != nil {
		logger.Fatal("dashboard sources", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.FatalIfErrorf(kctx.Run(&app{ctx: ctx, cfg: cfg, logger: logger, sources: sources}))
}
