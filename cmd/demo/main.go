package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-prediction-demo/internal/config"
	httphandler "github.com/kjstillabower/weather-prediction-demo/internal/http"
	"github.com/kjstillabower/weather-prediction-demo/internal/observability"
	"github.com/kjstillabower/weather-prediction-demo/internal/server"
)

type cli struct {
	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to .env file'"`
	Port    string                   `kong:"name=port,short=p,env=PORT,help='Listen port (default from config, 3000).'"`
}

func main() {
	var c cli
	kong.Parse(&c, kong.Name("demo"), kong.Description("Responds to GET / with a fixed greeting."))

	logger, err := observability.NewLogger("demo")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	port := c.Port
	if port == "" {
		port = cfg.DemoPort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener := server.Listener{
		Name:   "demo",
		Server: server.New(":"+port, httphandler.NewDemoRouter(logger)),
		Started: func(addr net.Addr) {
			logger.Info(fmt.Sprintf("Server running on http://localhost:%d", addr.(*net.TCPAddr).Port))
		},
	}
	if err := server.Run(ctx, logger, []server.Listener{listener}, server.ShutdownFromConfig(cfg)); err != nil {
		logger.Fatal("demo server", zap.Error(err))
	}
}
