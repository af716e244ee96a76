package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"netbridge/config"
	"netbridge/executor/memnet"
	"netbridge/middleware"
	"netbridge/registry"
	"netbridge/server"
)

func main() {
	fs := flag.NewFlagSet("netbridge-server", flag.ExitOnError)
	configPath := fs.String("config", "", "JSON config file")
	listen := fs.String("listen", "", "listen address (default :8080)")
	advertise := fs.String("advertise", "", "host:port registered in etcd")
	path := fs.String("path", "", "route envelopes are posted to (default /)")
	rateLimit := fs.Float64("rate", 0, "requests per second, 0 disables limiting")
	burst := fs.Int("burst", 0, "rate limiter burst")
	etcd := fs.String("etcd", "", "comma-separated etcd endpoints; empty disables registration")
	debug := fs.Bool("debug", false, "development logging")
	_ = fs.Parse(os.Args[1:])

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Server.Listen = *listen
		case "advertise":
			cfg.Server.Advertise = *advertise
		case "path":
			cfg.Server.Path = *path
		case "rate":
			cfg.Server.RateLimit = *rateLimit
		case "burst":
			cfg.Server.Burst = *burst
		case "etcd":
			cfg.Etcd.Endpoints = strings.Split(*etcd, ",")
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	var reg registry.Registry
	if len(cfg.Etcd.Endpoints) > 0 {
		timeout, _ := cfg.Etcd.Timeout()
		etcdReg, err := registry.NewEtcdRegistry(cfg.Etcd.Endpoints, timeout, logger)
		if err != nil {
			logger.Fatal("failed to connect etcd", zap.Strings("endpoints", cfg.Etcd.Endpoints), zap.Error(err))
		}
		defer etcdReg.Close()
		reg = etcdReg
	}

	svr := server.NewServer(memnet.New(),
		server.WithLogger(logger),
		server.WithPath(cfg.Server.Path),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes))
	svr.Use(middleware.RecoveryMiddleware(logger))
	svr.Use(middleware.LoggingMiddleware(logger))
	if cfg.Server.RateLimit > 0 {
		svr.Use(middleware.RateLimitMiddleware(cfg.Server.RateLimit, cfg.Server.Burst))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- svr.Serve("tcp", cfg.Server.Listen, cfg.Server.Advertise, reg) }()

	select {
	case err := <-errc:
		if err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		if err := svr.Shutdown(10 * time.Second); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
		<-errc
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
