package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rosesandthorns/TheShinyArchives/internal/catalog"
	"github.com/Rosesandthorns/TheShinyArchives/internal/importer"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/database"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/logging"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/utils"
)

// importer runs a full upstream import and writes it to the SQLite snapshot,
// replacing what was there. The api server then boots from that file.
func main() {
	cfg, err := utils.LoadConfig()
	root := logging.New(cfg.LogLevel, cfg.LogPretty)
	log := logging.Component(root, "importer")
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	defaultPath := cfg.SnapshotPath
	if defaultPath == "" {
		defaultPath = "data/catalog.db"
	}
	var (
		dbPath  = flag.String("db", defaultPath, "snapshot database path")
		limit   = flag.Int("limit", cfg.Upstream.SpeciesLimit, "number of listing entries to import")
		timeout = flag.Duration("timeout", 45*time.Minute, "overall import timeout")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	db, err := database.OpenAndMigrate(database.Config{Path: *dbPath})
	if err != nil {
		log.Fatal().Err(err).Msg("open snapshot")
	}
	defer db.Close()

	r, err := importSnapshot(ctx, db, importer.NewPokeAPI(cfg.Upstream), *limit, log)
	if err != nil {
		log.Error().Err(err).Msg("import failed")
		os.Exit(1)
	}
	log.Info().
		Str("path", *dbPath).
		Int("imported", r.Imported).
		Strs("failed", r.Failed).
		Msg("snapshot written")
}

// importSnapshot always imports from src, never from the existing snapshot,
// and then replaces the snapshot with the result.
func importSnapshot(ctx context.Context, db *sql.DB, src importer.Source, limit int, log zerolog.Logger) (importer.Report, error) {
	store := catalog.NewStore()
	im := importer.New(store, src, importer.Options{
		Limit:  limit,
		Logger: log,
	})
	if err := im.Initialize(ctx); err != nil {
		return importer.Report{}, err
	}

	r := im.Report()
	if err := importer.NewSQLiteSnapshots(db).Save(ctx, store.Export(), r); err != nil {
		return importer.Report{}, fmt.Errorf("save snapshot: %w", err)
	}
	return r, nil
}
