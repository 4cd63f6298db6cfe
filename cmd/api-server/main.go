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

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Rosesandthorns/TheShinyArchives/internal/catalog"
	"github.com/Rosesandthorns/TheShinyArchives/internal/games"
	"github.com/Rosesandthorns/TheShinyArchives/internal/hunting"
	"github.com/Rosesandthorns/TheShinyArchives/internal/importer"
	"github.com/Rosesandthorns/TheShinyArchives/internal/metrics"
	"github.com/Rosesandthorns/TheShinyArchives/internal/middleware"
	"github.com/Rosesandthorns/TheShinyArchives/internal/pokemon"
	synchub "github.com/Rosesandthorns/TheShinyArchives/internal/sync"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/database"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/logging"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/utils"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	root := logging.New(cfg.LogLevel, cfg.LogPretty)
	log := logging.Component(root, "api-server")

	if err := run(cfg, root); err != nil {
		log.Error().Err(err).Msg("api server stopped")
		os.Exit(1)
	}
	log.Info().Msg("servers stopped")
}

func run(cfg utils.Config, root zerolog.Logger) error {
	log := logging.Component(root, "api-server")

	methods, err := huntingCatalog(cfg.HuntingMethodsPath)
	if err != nil {
		return err
	}

	var snapshots importer.Snapshots
	if cfg.SnapshotPath != "" {
		db, err := database.OpenAndMigrate(database.Config{Path: cfg.SnapshotPath})
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer db.Close()
		snapshots = importer.NewSQLiteSnapshots(db)
		log.Info().Str("path", cfg.SnapshotPath).Msg("snapshot enabled")
	}

	store := catalog.NewStore()
	m := metrics.New()
	hub := synchub.NewHub()
	im := importer.New(store, importer.NewPokeAPI(cfg.Upstream), importer.Options{
		Limit:     cfg.Upstream.SpeciesLimit,
		Publisher: hub,
		Metrics:   m,
		Snapshots: snapshots,
		Logger:    logging.Component(root, "importer"),
	})

	router, err := newRouter(cfg, root, store, im, hub, m, methods)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Msg("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// The listener is already up; /api answers 503 until this returns.
	g.Go(func() error {
		if err := im.Initialize(gctx); err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("initialize catalog: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown error")
		}
		return nil
	})

	return g.Wait()
}

func newRouter(
	cfg utils.Config,
	root zerolog.Logger,
	store *catalog.Store,
	im *importer.Importer,
	hub *synchub.Hub,
	m *metrics.Metrics,
	methods *hunting.Catalog,
) (*gin.Engine, error) {
	if root.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(logging.Component(root, "http")),
		middleware.Metrics(m),
	)
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		counts := store.Counts()
		body := gin.H{
			"pokemon":    counts.Pokemon,
			"games":      counts.Games,
			"ws_clients": hub.Stats().WSClients,
		}
		if !im.Ready() {
			body["status"] = "importing"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	})

	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/ws", synchub.WSHandler(hub, logging.Component(root, "ws")))
	router.GET("/api/import", games.ImportReport(im))

	api := router.Group("/api", middleware.RequireReady(im))
	pokemon.NewHandler(store, logging.Component(root, "pokemon")).RegisterRoutes(api.Group("/pokemon"))
	games.NewHandler(store, methods, logging.Component(root, "games")).RegisterRoutes(api.Group("/games"))
	games.RegisterReference(api)

	return router, nil
}

func huntingCatalog(path string) (*hunting.Catalog, error) {
	if path == "" {
		return hunting.New(nil), nil
	}
	custom, err := hunting.LoadCustom(path)
	if err != nil {
		return nil, err
	}
	return hunting.New(custom), nil
}
