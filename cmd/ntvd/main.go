// Command ntvd runs the broadcast slot-auction registry daemon.
//
// The daemon exposes the registry API over HTTP, persists snapshots to
// PostgreSQL when configured, and restores its state from the store on
// startup.
//
// # Usage
//
//	go run ./cmd/ntvd --config=ntvd.toml
//
// Flags override the corresponding file settings. The administrator
// account must be set either in the file or with --admin.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/six-thirty/ntvnet/api/httpserver"
	"github.com/six-thirty/ntvnet/config"
	"github.com/six-thirty/ntvnet/ntv"
	"github.com/six-thirty/ntvnet/server"
	"github.com/six-thirty/ntvnet/store"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to TOML configuration file")
		listenAddr  = flag.String("listen-addr", "", "HTTP listen address (overrides config)")
		metricsAddr = flag.String("metrics-addr", "", "Metrics listen address (overrides config)")
		adminAddr   = flag.String("admin", "", "Administrator account (overrides config)")
		enablePprof = flag.Bool("pprof", false, "Enable pprof debug endpoints")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}
	if *adminAddr != "" {
		cfg.Registry.Admin = *adminAddr
	}
	if *enablePprof {
		cfg.Server.EnablePprof = true
	}
	if *debug {
		cfg.Log.Debug = true
	}

	log := cfg.Logger()

	registryCfg, err := cfg.RegistryConfig()
	if err != nil {
		log.Error("Invalid registry configuration", "err", err)
		os.Exit(1)
	}

	var st store.Store
	if pgCfg := cfg.PostgresConfig(); pgCfg != nil {
		st, err = store.NewPostgresStore(pgCfg)
		if err != nil {
			log.Error("Failed to connect to database", "err", err)
			os.Exit(1)
		}
		log.Info("Using PostgreSQL snapshot store", "host", pgCfg.Host, "database", pgCfg.Database)
	} else {
		st = store.NewMemoryStore()
		log.Info("No database configured, snapshots are kept in memory")
	}
	defer st.Close()

	registry, err := loadRegistry(st, registryCfg, log)
	if err != nil {
		log.Error("Failed to restore registry", "err", err)
		os.Exit(1)
	}

	svc := server.NewService(registry, st, log)
	var handlerOpts []server.HandlerOption
	if cfg.Server.AdminToken != "" {
		handlerOpts = append(handlerOpts, server.WithAdminToken(cfg.Server.AdminToken))
	}
	handler := server.NewHandler(svc, log, handlerOpts...)

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.Server.ListenAddr,
		MetricsAddr:              cfg.Server.MetricsAddr,
		EnablePprof:              cfg.Server.EnablePprof,
		EnableCORS:               cfg.Server.EnableCORS,
		Log:                      log,
		DrainDuration:            cfg.Server.DrainDuration(),
		GracefulShutdownDuration: cfg.Server.GracefulShutdownDuration(),
		ReadTimeout:              cfg.Server.ReadTimeout(),
		WriteTimeout:             cfg.Server.WriteTimeout(),
	}, handler)
	if err != nil {
		log.Error("Failed to create HTTP server", "err", err)
		os.Exit(1)
	}

	srv.RunInBackground()
	log.Info("Registry daemon running",
		"listenAddr", cfg.Server.ListenAddr,
		"admin", registryCfg.Admin,
		"started", registry.Started(),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	srv.Shutdown()
}

// loadRegistry restores a registry from the store, or creates a fresh one
// when nothing has been persisted yet.
func loadRegistry(st store.Store, cfg ntv.Config, log *slog.Logger) (*ntv.Registry, error) {
	ctx := context.Background()
	reg, slots, found, err := st.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		log.Info("No persisted state, starting fresh")
		return ntv.New(cfg)
	}
	log.Info("Restoring persisted state", "slots", len(slots), "started", reg.Started)
	return ntv.Restore(cfg, reg, slots)
}
