package games

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Rosesandthorns/TheShinyArchives/internal/catalog"
	"github.com/Rosesandthorns/TheShinyArchives/internal/hunting"
	"github.com/Rosesandthorns/TheShinyArchives/internal/importer"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/models"
)

type fixedReport importer.Report

func (r fixedReport) Report() importer.Report { return importer.Report(r) }

func newRouter(repo Repo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	NewHandler(repo, hunting.New(nil), zerolog.Nop()).RegisterRoutes(api.Group("/games"))
	RegisterReference(api)
	r.GET("/api/import", ImportReport(fixedReport{RunID: "run-1", Listed: 3, Imported: 2, Failed: []string{"missingno"}, Done: true}))
	return r
}

func seed() *catalog.Store {
	s := catalog.NewStore()
	// inserted out of generation order on purpose
	sv := s.CreateGame(models.Game{Name: "Scarlet/Violet", ShortCode: "SV", Color: "#BF004F", Generation: 9})
	rb := s.CreateGame(models.Game{Name: "Red/Blue", ShortCode: "RB", Color: "#EE1515", Generation: 1})
	s.CreateGame(models.Game{Name: "Legends: Arceus", ShortCode: "LA", Color: "#3A4A77", Generation: 8})

	pika := s.CreatePokemon(models.Pokemon{PokeID: 25, Name: "pikachu"})
	s.SetMemberships(pika.ID, []int{rb.ID, sv.ID})
	bulba := s.CreatePokemon(models.Pokemon{PokeID: 1, Name: "bulbasaur"})
	s.SetMemberships(bulba.ID, []int{rb.ID})
	return s
}

func get(t *testing.T, r http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v (%s)", path, err, rec.Body.String())
		}
	}
	return rec.Code
}

func TestListGames(t *testing.T) {
	r := newRouter(seed())

	var games []models.Game
	if code := get(t, r, "/api/games", &games); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var codes []string
	for _, g := range games {
		codes = append(codes, g.ShortCode)
	}
	if len(codes) != 3 || codes[0] != "RB" || codes[1] != "LA" || codes[2] != "SV" {
		t.Fatalf("order = %v, want by generation", codes)
	}
}

func TestGetGame(t *testing.T) {
	r := newRouter(seed())

	var g models.Game
	if code := get(t, r, "/api/games/2", &g); code != http.StatusOK || g.ShortCode != "RB" {
		t.Fatalf("got %d %+v", code, g)
	}

	for _, path := range []string{"/api/games/99", "/api/games/red"} {
		var body map[string]string
		if code := get(t, r, path, &body); code != http.StatusNotFound {
			t.Fatalf("%s: status = %d, want 404", path, code)
		}
		if body["message"] != "Game not found" {
			t.Fatalf("%s: message = %q", path, body["message"])
		}
	}
}

func TestGamePokemon(t *testing.T) {
	r := newRouter(seed())

	tests := []struct {
		path string
		want []string
	}{
		{"/api/games/2/pokemon", []string{"bulbasaur", "pikachu"}},
		{"/api/games/1/pokemon", []string{"pikachu"}},
		{"/api/games/3/pokemon", []string{}},
		{"/api/games/99/pokemon", []string{}},
		{"/api/games/abc/pokemon", []string{}},
	}
	for _, tt := range tests {
		var items []models.PokemonWithGames
		if code := get(t, r, tt.path, &items); code != http.StatusOK {
			t.Fatalf("%s: status = %d", tt.path, code)
		}
		if items == nil {
			t.Fatalf("%s: body is null, want array", tt.path)
		}
		if len(items) != len(tt.want) {
			t.Fatalf("%s: got %d items, want %v", tt.path, len(items), tt.want)
		}
		for i, name := range tt.want {
			if items[i].Name != name {
				t.Fatalf("%s: item %d = %s, want %s", tt.path, i, items[i].Name, name)
			}
		}
	}
}

func TestHuntingMethods(t *testing.T) {
	r := newRouter(seed())

	var methods []hunting.Method
	if code := get(t, r, "/api/games/1/hunting-methods", &methods); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(methods) == 0 || methods[0].ID != "sv-random" {
		t.Fatalf("SV methods = %+v", methods)
	}

	var none []hunting.Method
	if code := get(t, r, "/api/games/3/hunting-methods", &none); code != http.StatusOK || none == nil || len(none) != 0 {
		t.Fatalf("LA methods: %d %v", code, none)
	}

	if code := get(t, r, "/api/games/99/hunting-methods", nil); code != http.StatusNotFound {
		t.Fatalf("unknown game: status = %d", code)
	}
}

func TestReference(t *testing.T) {
	r := newRouter(seed())

	var types []catalog.TypeInfo
	if code := get(t, r, "/api/types", &types); code != http.StatusOK || len(types) != 18 {
		t.Fatalf("types: %d, %d entries", code, len(types))
	}

	var gens []catalog.GenerationRange
	if code := get(t, r, "/api/generations", &gens); code != http.StatusOK || len(gens) != 9 {
		t.Fatalf("generations: %d, %d entries", code, len(gens))
	}
	if gens[8].Last != 1025 {
		t.Fatalf("last generation = %+v", gens[8])
	}

	var report importer.Report
	if code := get(t, r, "/api/import", &report); code != http.StatusOK {
		t.Fatalf("import: %d", code)
	}
	if report.RunID != "run-1" || len(report.Failed) != 1 || report.Complete {
		t.Fatalf("report = %+v", report)
	}
}

type brokenRepo struct{}

var errBroken = errors.New("disk on fire")

func (brokenRepo) AllGames(context.Context) ([]models.Game, error) { return nil, errBroken }
func (brokenRepo) GetGame(context.Context, int) (*models.Game, error) {
	return nil, errBroken
}
func (brokenRepo) PokemonByGame(context.Context, int) ([]models.PokemonWithGames, error) {
	return nil, errBroken
}

func TestRepoErrors(t *testing.T) {
	r := newRouter(brokenRepo{})
	for _, path := range []string{"/api/games", "/api/games/1", "/api/games/1/pokemon", "/api/games/1/hunting-methods"} {
		var body map[string]string
		if code := get(t, r, path, &body); code != http.StatusInternalServerError {
			t.Fatalf("%s: status = %d, want 500", path, code)
		}
		if body["message"] == errBroken.Error() {
			t.Fatalf("%s leaked the internal error", path)
		}
	}
}

func TestReportTimestamps(t *testing.T) {
	finished := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := httptest.NewRecorder()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/import", ImportReport(fixedReport{RunID: "r", FinishedAt: finished}))
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/import", nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["finishedAt"] != "2024-05-01T12:00:00Z" {
		t.Fatalf("finishedAt = %v", body["finishedAt"])
	}
}
