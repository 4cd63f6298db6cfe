package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Rosesandthorns/TheShinyArchives/internal/catalog"
	"github.com/Rosesandthorns/TheShinyArchives/internal/importer"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/database"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/logging"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/models"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/utils"
)

func main() {
	cfg, err := utils.LoadConfig()
	log := logging.Component(logging.New(cfg.LogLevel, cfg.LogPretty), "export-csv")
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	defaultPath := cfg.SnapshotPath
	if defaultPath == "" {
		defaultPath = "data/catalog.db"
	}
	var (
		dbPath     = flag.String("db", defaultPath, "snapshot database path")
		pokemonOut = flag.String("pokemon", "data/pokemon.csv", "output CSV path for pokemon")
		gamesOut   = flag.String("games", "data/games.csv", "output CSV path for games")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.OpenAndMigrate(database.Config{Path: *dbPath})
	if err != nil {
		log.Fatal().Err(err).Msg("open snapshot")
	}
	defer db.Close()

	snap, ok, err := importer.NewSQLiteSnapshots(db).Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load snapshot")
	}
	if !ok {
		log.Fatal().Str("path", *dbPath).Msg("snapshot is empty, run the importer first")
	}

	if err := exportPokemon(snap, *pokemonOut); err != nil {
		log.Fatal().Err(err).Msg("export pokemon failed")
	}
	if err := exportGames(ctx, db, *gamesOut); err != nil {
		log.Fatal().Err(err).Msg("export games failed")
	}

	log.Info().Str("pokemon", *pokemonOut).Str("games", *gamesOut).Msg("exported")
}

func createCSV(outPath string) (*os.File, *csv.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, err
	}
	return f, csv.NewWriter(f), nil
}

// exportPokemon writes one row per pokemon in dex order. Games are listed by
// shortcode, joined with "|".
func exportPokemon(snap catalog.Snapshot, outPath string) error {
	f, w, err := createCSV(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	header := []string{"poke_id", "name", "generation", "types", "abilities", "games", "height", "weight"}
	header = append(header, models.StatNames...)
	header = append(header, "sprite", "shiny_sprite", "description")
	if err := w.Write(header); err != nil {
		return err
	}

	store := catalog.NewStore()
	if err := store.Restore(snap); err != nil {
		return err
	}
	all, err := store.ListPokemon(context.Background(), 0, 0)
	if err != nil {
		return err
	}

	for _, p := range all {
		games := make([]string, 0, len(p.Games))
		for _, g := range p.Games {
			games = append(games, g.ShortCode)
		}
		row := []string{
			strconv.Itoa(p.PokeID),
			p.Name,
			strconv.Itoa(catalog.Generation(p.PokeID)),
			strings.Join(p.Types, "|"),
			strings.Join(p.Abilities, "|"),
			strings.Join(games, "|"),
			strconv.Itoa(p.Height),
			strconv.Itoa(p.Weight),
		}
		for _, stat := range models.StatNames {
			row = append(row, strconv.Itoa(p.Stats[stat]))
		}
		row = append(row, p.Sprite, p.ShinySprite, p.Description)
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func exportGames(ctx context.Context, db *sql.DB, outPath string) error {
	f, w, err := createCSV(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := w.Write([]string{"id", "name", "short_code", "color", "generation", "pokemon_count"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT g.id, g.name, g.short_code, g.color, g.generation, COUNT(a.pokemon_id)
        FROM games g
        LEFT JOIN game_appearances a ON a.game_id = g.id
        GROUP BY g.id
        ORDER BY g.generation, g.id
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			g     models.Game
			count int
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.ShortCode, &g.Color, &g.Generation, &count); err != nil {
			return err
		}
		if err := w.Write([]string{
			strconv.Itoa(g.ID),
			g.Name,
			g.ShortCode,
			g.Color,
			strconv.Itoa(g.Generation),
			strconv.Itoa(count),
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
