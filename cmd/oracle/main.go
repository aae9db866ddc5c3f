// Command oracle runs the game-log companion daemon: it follows the game's
// log file, turns lines into events, keeps the farming model up to date and
// serves history over HTTP plus live updates over a websocket.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GeorgeTG/oracle/internal/adapters/httpapi"
	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
	"github.com/GeorgeTG/oracle/internal/events"
	"github.com/GeorgeTG/oracle/internal/infrastructure/config"
	"github.com/GeorgeTG/oracle/internal/infrastructure/database"
	"github.com/GeorgeTG/oracle/internal/infrastructure/logging"
	"github.com/GeorgeTG/oracle/internal/infrastructure/pidfile"
	"github.com/GeorgeTG/oracle/internal/parsing"
	"github.com/GeorgeTG/oracle/internal/parsing/maps"
	"github.com/GeorgeTG/oracle/internal/pricebook"
	"github.com/GeorgeTG/oracle/internal/refdata"
	"github.com/GeorgeTG/oracle/internal/services"
	"github.com/GeorgeTG/oracle/internal/tail"
)

const version = "1.0.0"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:     "oracle",
		Short:   "Game log companion daemon",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Follow the game log and serve the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	logging.Setup(cfg.Logger)
	log := logging.Component("Daemon")
	log.WithField("version", version).Info("Starting up")

	if cfg.Daemon.PIDFile != "" {
		pf := pidfile.New(cfg.Daemon.PIDFile)
		if err := pf.Acquire(); err != nil {
			return fmt.Errorf("pid file: %w", err)
		}
		defer func() {
			if err := pf.Release(); err != nil {
				log.WithError(err).Warn("Failed to release pid file")
			}
		}()
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.WithError(err).Warn("Failed to close database")
		}
	}()

	itemTable, err := refdata.LoadItemTable(cfg.Parser.PriceTablePath)
	if err != nil {
		return fmt.Errorf("item table: %w", err)
	}
	mapTable, err := maps.LoadTable(cfg.Parser.MapTablePath)
	if err != nil {
		return fmt.Errorf("map table: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus(logging.Component("EventBus"))

	players := persistence.NewGormPlayerRepository(db)
	items := persistence.NewGormItemRepository(db)
	slots := persistence.NewGormInventoryRepository(db)
	sessions := persistence.NewGormSessionRepository(db)
	completions := persistence.NewGormMapCompletionRepository(db)
	affixes := persistence.NewGormAffixRepository(db)
	transactions := persistence.NewGormMarketTransactionRepository(db)
	revisions := persistence.NewGormPriceRevisionRepository(db)

	book := pricebook.New(&cfg.PriceDB, items, revisions, itemTable, logging.Component("PriceBook"))
	if err := book.Refresh(ctx); err != nil {
		// Prices degrade to zero until the next refresh; everything else
		// keeps working.
		log.WithError(err).Warn("Price book refresh failed")
	}
	book.AttachBus(bus)

	// The broadcaster is shared between the container (lifecycle) and the
	// HTTP surface (/ws attach), so it is built ahead of registration.
	broadcaster := services.NewWebSocketService(bus, logging.Component("WebSocketService"))

	container := services.NewContainer(logging.Component("Container"))
	register := func(desc services.Descriptor, construct func() services.Service) {
		container.Add(services.Registration{Descriptor: desc, Construct: construct})
	}
	register(services.InventoryServiceDescriptor, func() services.Service {
		interval := time.Duration(cfg.Inventory.UpdateInterval) * time.Second
		return services.NewInventoryService(bus, players, items, slots, interval,
			logging.Component("InventoryService"))
	})
	register(services.MapServiceDescriptor, func() services.Service {
		return services.NewMapService(bus, mapTable, itemTable, book,
			players, items, completions, affixes, logging.Component("MapService"))
	})
	register(services.SessionServiceDescriptor, func() services.Service {
		return services.NewSessionService(bus, players, sessions,
			logging.Component("SessionService"))
	})
	register(services.StatsServiceDescriptor, func() services.Service {
		return services.NewStatsService(bus, book, logging.Component("StatsService"))
	})
	register(services.MarketServiceDescriptor, func() services.Service {
		return services.NewMarketService(bus, items, transactions,
			logging.Component("MarketService"))
	})
	register(services.ExperienceServiceDescriptor, func() services.Service {
		return services.NewExperienceService(bus, players, cfg.Parser.ExpTablePath,
			logging.Component("ExperienceService"))
	})
	register(services.WebSocketServiceDescriptor, func() services.Service {
		return broadcaster
	})

	if err := container.Startup(ctx); err != nil {
		return fmt.Errorf("services: %w", err)
	}
	defer container.Shutdown(context.Background())

	parsers := parsing.DefaultParsers(itemTable, mapTable, logging.Component("Parsers"))
	router := parsing.NewRouter(bus, parsers, logging.Component("Router"), eventLogPath(cfg))
	router.Start(ctx)
	defer router.Close()

	tailer := tail.New(cfg.Parser.LogPath, cfg.Parser.PollInterval, cfg.Parser.WaitTimeout, logging.Component("Tailer"))
	go func() {
		if err := tailer.Run(ctx, router.FeedLine); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Log tailer stopped")
		}
	}()

	api := httpapi.New(httpapi.Deps{
		Bus:         bus,
		Players:     players,
		Items:       items,
		Inventory:   slots,
		Sessions:    sessions,
		Completions: completions,
		Market:      transactions,
		Book:        book,
		Broadcast:   broadcaster,
		Container:   container,
		Log:         logging.Component("HTTP"),
	})
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.Router(),
	}

	bindErr := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			bindErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-bindErr:
		return fmt.Errorf("http server: %w", err)
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("Shutting down")
	}

	cancel()

	timeout := cfg.Daemon.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown incomplete")
	}

	return nil
}

// eventLogPath places the parser event log next to the daemon log when event
// logging is enabled.
func eventLogPath(cfg *config.Config) string {
	if !cfg.Parser.Log {
		return ""
	}
	if cfg.Logger.File == "" {
		return "events.log"
	}
	return filepath.Join(filepath.Dir(cfg.Logger.File), "events.log")
}
