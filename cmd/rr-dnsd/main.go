package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haukened/authdns/internal/dns/common/clock"
	"github.com/haukened/authdns/internal/dns/common/log"
	"github.com/haukened/authdns/internal/dns/config"
	"github.com/haukened/authdns/internal/dns/repos/zone"
	"github.com/haukened/authdns/internal/dns/repos/zonetable"
	"github.com/haukened/authdns/internal/dns/services/resolver"
	dnszonetable "github.com/haukened/authdns/internal/dns/zonetable"
)

const (
	version = "0.1.0-dev"
	appName = "authdnsd"

	defaultRecordTTL = 300 * time.Second
)

// Application wires the loaded zone set to the resolver. It has no network
// transport of its own: per section 1, wire parsing and network transport
// are an external collaborator's concern, not this module's. A transport
// process embeds this package and calls Resolver.Process per query.
type Application struct {
	config   *config.AppConfig
	Resolver *resolver.Resolver
	table    *dnszonetable.Table
	snapshot *zonetable.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":   version,
		"env":       cfg.Env,
		"log_level": cfg.LogLevel,
		"zone_dir":  cfg.ZoneDir,
	}, fmt.Sprintf("starting %s", appName))

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "failed to build application")
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "shutdown signal received")
		cancel()
	}()

	log.Info(map[string]any{"zones": len(app.table.Zones())}, "zone table ready")
	<-ctx.Done()
	log.Info(nil, fmt.Sprintf("%s stopped", appName))
}

// buildApplication loads the configured zone directory and constructs a
// Resolver over it. If cfg.SnapshotDB is set, zone loading is backed by a
// bbolt snapshot cache so unchanged zone files are not re-parsed on
// restart.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	logger := log.GetLogger()

	var store *zonetable.Store
	if cfg.SnapshotDB != "" {
		var err error
		store, err = zonetable.Open(cfg.SnapshotDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open zone snapshot store: %w", err)
		}
	}

	trees, err := zone.LoadZoneDirectoryCached(cfg.ZoneDir, defaultRecordTTL, logger, store, clock.RealClock{})
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, fmt.Errorf("failed to load zone directory: %w", err)
	}

	table := dnszonetable.New(dnszonetable.Options{Logger: logger})
	for _, tree := range trees {
		table.Insert(tree)
	}

	log.Info(map[string]any{
		"zone_dir": cfg.ZoneDir,
		"zones":    len(table.Zones()),
	}, "zone table initialized")

	resolverService := resolver.New(resolver.Options{
		Table:  table,
		Logger: logger,
	})

	return &Application{
		config:   cfg,
		Resolver: resolverService,
		table:    table,
		snapshot: store,
	}, nil
}

// Close releases resources the Application holds open across its lifetime.
func (app *Application) Close() error {
	if app.snapshot == nil {
		return nil
	}
	return app.snapshot.Close()
}
