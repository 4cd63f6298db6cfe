package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rosesandthorns/TheShinyArchives/internal/catalog"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/models"
)

// SQLiteSnapshots stores a whole catalog and the report of the run that
// built it in the schema from pkg/database. Save replaces whatever was there before.
type SQLiteSnapshots struct {
	DB *sql.DB
}

func NewSQLiteSnapshots(db *sql.DB) *SQLiteSnapshots {
	return &SQLiteSnapshots{DB: db}
}

func (s *SQLiteSnapshots) Save(ctx context.Context, snap catalog.Snapshot, run Report) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"import_runs", "game_appearances", "pokemon", "games"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := saveGames(ctx, tx, snap.Games); err != nil {
		return err
	}
	if err := savePokemon(ctx, tx, snap.Pokemon); err != nil {
		return err
	}
	if err := saveAppearances(ctx, tx, snap.Memberships); err != nil {
		return err
	}
	if err := saveRun(ctx, tx, run); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func saveGames(ctx context.Context, tx *sql.Tx, games []models.Game) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO games (id, name, short_code, color, generation)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare games: %w", err)
	}
	defer stmt.Close()

	for _, g := range games {
		if _, err := stmt.ExecContext(ctx, g.ID, g.Name, g.ShortCode, g.Color, g.Generation); err != nil {
			return fmt.Errorf("insert game %s: %w", g.ShortCode, err)
		}
	}
	return nil
}

func savePokemon(ctx context.Context, tx *sql.Tx, pokemon []models.Pokemon) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pokemon (id, poke_id, name, types, sprite, shiny_sprite, height, weight,
		                     abilities, stats, game_indices, description, evolution_chain)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare pokemon: %w", err)
	}
	defer stmt.Close()

	for _, p := range pokemon {
		cols, err := encodeJSONColumns(p)
		if err != nil {
			return fmt.Errorf("encode %s: %w", p.Name, err)
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.PokeID, p.Name, cols.types, p.Sprite, p.ShinySprite, p.Height, p.Weight,
			cols.abilities, cols.stats, cols.gameIndices, p.Description, cols.evolution,
		); err != nil {
			return fmt.Errorf("insert pokemon %s: %w", p.Name, err)
		}
	}
	return nil
}

func saveAppearances(ctx context.Context, tx *sql.Tx, memberships map[int][]int) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO game_appearances (pokemon_id, game_id, position) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare appearances: %w", err)
	}
	defer stmt.Close()

	for pokemonID, gameIDs := range memberships {
		for pos, gameID := range gameIDs {
			if _, err := stmt.ExecContext(ctx, pokemonID, gameID, pos); err != nil {
				return fmt.Errorf("insert appearance %d/%d: %w", pokemonID, gameID, err)
			}
		}
	}
	return nil
}

func saveRun(ctx context.Context, tx *sql.Tx, run Report) error {
	failed := run.Failed
	if failed == nil {
		failed = []string{}
	}
	failedJSON, err := marshalString(failed)
	if err != nil {
		return fmt.Errorf("encode failed names: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO import_runs (id, run_id, source, listed, imported, failed, started_at, finished_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.Source, run.Listed, run.Imported, failedJSON,
		formatTime(run.StartedAt), formatTime(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("insert import run: %w", err)
	}
	return nil
}

// LoadRun returns ok=false when no run was recorded with the snapshot.
func (s *SQLiteSnapshots) LoadRun(ctx context.Context) (Report, bool, error) {
	var (
		run               Report
		failed            string
		started, finished string
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT run_id, source, listed, imported, failed, started_at, finished_at
		FROM import_runs WHERE id = 1
	`).Scan(&run.RunID, &run.Source, &run.Listed, &run.Imported, &failed, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, false, nil
	}
	if err != nil {
		return Report{}, false, fmt.Errorf("query import run: %w", err)
	}
	if err := json.Unmarshal([]byte(failed), &run.Failed); err != nil {
		return Report{}, false, fmt.Errorf("decode failed names: %w", err)
	}
	if run.Failed == nil {
		run.Failed = []string{}
	}
	if run.StartedAt, err = parseTime(started); err != nil {
		return Report{}, false, fmt.Errorf("started_at: %w", err)
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return Report{}, false, fmt.Errorf("finished_at: %w", err)
	}
	run.Done = true
	run.Complete = len(run.Failed) == 0
	return run, true, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// Load returns ok=false when the database holds no pokemon yet.
func (s *SQLiteSnapshots) Load(ctx context.Context) (catalog.Snapshot, bool, error) {
	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM pokemon`).Scan(&count); err != nil {
		return catalog.Snapshot{}, false, fmt.Errorf("count pokemon: %w", err)
	}
	if count == 0 {
		return catalog.Snapshot{}, false, nil
	}

	snap := catalog.Snapshot{Memberships: make(map[int][]int)}
	var err error
	if snap.Games, err = loadGames(ctx, s.DB); err != nil {
		return catalog.Snapshot{}, false, err
	}
	if snap.Pokemon, err = loadPokemon(ctx, s.DB); err != nil {
		return catalog.Snapshot{}, false, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT pokemon_id, game_id FROM game_appearances ORDER BY pokemon_id, position
	`)
	if err != nil {
		return catalog.Snapshot{}, false, fmt.Errorf("query appearances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pokemonID, gameID int
		if err := rows.Scan(&pokemonID, &gameID); err != nil {
			return catalog.Snapshot{}, false, fmt.Errorf("scan appearance: %w", err)
		}
		snap.Memberships[pokemonID] = append(snap.Memberships[pokemonID], gameID)
	}
	if err := rows.Err(); err != nil {
		return catalog.Snapshot{}, false, fmt.Errorf("rows err: %w", err)
	}
	return snap, true, nil
}

func loadGames(ctx context.Context, db *sql.DB) ([]models.Game, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, short_code, color, generation FROM games ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var out []models.Game
	for rows.Next() {
		var g models.Game
		if err := rows.Scan(&g.ID, &g.Name, &g.ShortCode, &g.Color, &g.Generation); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// loadPokemon reads every stored pokemon in internal id order.
func loadPokemon(ctx context.Context, db *sql.DB) ([]models.Pokemon, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, poke_id, name, types, sprite, shiny_sprite, height, weight,
		       abilities, stats, game_indices, description, evolution_chain
		FROM pokemon
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query pokemon: %w", err)
	}
	defer rows.Close()

	var out []models.Pokemon
	for rows.Next() {
		var (
			p         models.Pokemon
			cols      jsonColumns
			evolution sql.NullString
		)
		if err := rows.Scan(
			&p.ID, &p.PokeID, &p.Name, &cols.types, &p.Sprite, &p.ShinySprite, &p.Height, &p.Weight,
			&cols.abilities, &cols.stats, &cols.gameIndices, &p.Description, &evolution,
		); err != nil {
			return nil, fmt.Errorf("scan pokemon: %w", err)
		}
		if evolution.Valid {
			cols.evolution = &evolution.String
		}
		if err := cols.decodeInto(&p); err != nil {
			return nil, fmt.Errorf("decode pokemon %s: %w", p.Name, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// jsonColumns holds the pokemon fields stored as JSON text.
type jsonColumns struct {
	types       string
	abilities   string
	stats       string
	gameIndices string
	evolution   *string
}

func encodeJSONColumns(p models.Pokemon) (jsonColumns, error) {
	var (
		cols jsonColumns
		err  error
	)
	if cols.types, err = marshalString(p.Types); err != nil {
		return cols, err
	}
	if cols.abilities, err = marshalString(p.Abilities); err != nil {
		return cols, err
	}
	if cols.stats, err = marshalString(p.Stats); err != nil {
		return cols, err
	}
	if cols.gameIndices, err = marshalString(p.GameIndices); err != nil {
		return cols, err
	}
	if p.EvolutionChain != nil {
		s, err := marshalString(p.EvolutionChain)
		if err != nil {
			return cols, err
		}
		cols.evolution = &s
	}
	return cols, nil
}

func (c jsonColumns) decodeInto(p *models.Pokemon) error {
	if err := json.Unmarshal([]byte(c.types), &p.Types); err != nil {
		return fmt.Errorf("types: %w", err)
	}
	if err := json.Unmarshal([]byte(c.abilities), &p.Abilities); err != nil {
		return fmt.Errorf("abilities: %w", err)
	}
	if err := json.Unmarshal([]byte(c.stats), &p.Stats); err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	if err := json.Unmarshal([]byte(c.gameIndices), &p.GameIndices); err != nil {
		return fmt.Errorf("game indices: %w", err)
	}
	if c.evolution != nil {
		var chain models.EvolutionChain
		if err := json.Unmarshal([]byte(*c.evolution), &chain); err != nil {
			return fmt.Errorf("evolution chain: %w", err)
		}
		p.EvolutionChain = &chain
	}
	return nil
}

func marshalString(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
