package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/Rosesandthorns/TheShinyArchives/internal/catalog"
	"github.com/Rosesandthorns/TheShinyArchives/internal/importer"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/database"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := catalog.NewStore()
	rb := s.CreateGame(models.Game{Name: "Red/Blue", ShortCode: "RB", Color: "#EE1515", Generation: 1})
	sv := s.CreateGame(models.Game{Name: "Scarlet/Violet", ShortCode: "SV", Color: "#BF004F", Generation: 9})
	pika := s.CreatePokemon(models.Pokemon{
		PokeID:      25,
		Name:        "pikachu",
		Types:       []string{"electric"},
		Abilities:   []string{"static", "lightning-rod (Hidden)"},
		Stats:       map[string]int{"hp": 35, "attack": 55, "defense": 40, "special-attack": 50, "special-defense": 50, "speed": 90},
		Description: "When several of\nthese gather",
	})
	s.SetMemberships(pika.ID, []int{rb.ID, sv.ID})
	bulba := s.CreatePokemon(models.Pokemon{PokeID: 1, Name: "bulbasaur", Types: []string{"grass", "poison"}})
	s.SetMemberships(bulba.ID, []int{rb.ID})

	db, err := database.OpenAndMigrate(database.Config{Path: filepath.Join(dir, "catalog.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	snaps := importer.NewSQLiteSnapshots(db)
	if err := snaps.Save(ctx, s.Export(), importer.Report{RunID: "export-test", Source: "pokeapi"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, ok, err := snaps.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok %v, err %v", ok, err)
	}

	pokemonCSV := filepath.Join(dir, "out", "pokemon.csv")
	if err := exportPokemon(snap, pokemonCSV); err != nil {
		t.Fatalf("exportPokemon: %v", err)
	}
	rows := readCSV(t, pokemonCSV)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[1][1] != "bulbasaur" || rows[2][1] != "pikachu" {
		t.Fatalf("order = %s, %s", rows[1][1], rows[2][1])
	}
	if rows[2][5] != "RB|SV" || rows[2][4] != "static|lightning-rod (Hidden)" {
		t.Fatalf("pikachu row = %v", rows[2])
	}
	if rows[2][len(rows[2])-1] != "When several of\nthese gather" {
		t.Fatalf("description = %q", rows[2][len(rows[2])-1])
	}

	gamesCSV := filepath.Join(dir, "out", "games.csv")
	if err := exportGames(ctx, db, gamesCSV); err != nil {
		t.Fatalf("exportGames: %v", err)
	}
	games := readCSV(t, gamesCSV)
	if len(games) != 3 || games[1][2] != "RB" || games[1][5] != "2" || games[2][5] != "1" {
		t.Fatalf("games = %v", games)
	}
}
