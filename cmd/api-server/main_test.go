package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Rosesandthorns/TheShinyArchives/internal/catalog"
	"github.com/Rosesandthorns/TheShinyArchives/internal/hunting"
	"github.com/Rosesandthorns/TheShinyArchives/internal/importer"
	"github.com/Rosesandthorns/TheShinyArchives/internal/metrics"
	synchub "github.com/Rosesandthorns/TheShinyArchives/internal/sync"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/models"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/utils"
)

// stubSource serves a single pokemon without touching the network.
type stubSource struct{}

func (stubSource) Name() string { return "stub" }

func (stubSource) ListPokemon(context.Context, int) ([]models.NamedResource, error) {
	return []models.NamedResource{{Name: "pikachu", URL: "stub://pokemon/25"}}, nil
}

func (stubSource) FetchPokemon(context.Context, string) (*importer.PokemonResponse, error) {
	d := &importer.PokemonResponse{ID: 25, Name: "pikachu"}
	d.GameIndices = []models.GameIndex{{GameIndex: 84, Version: models.NamedResource{Name: "yellow"}}}
	return d, nil
}

func (stubSource) FetchSpecies(context.Context, string) (*importer.SpeciesResponse, error) {
	return &importer.SpeciesResponse{}, nil
}

func (stubSource) FetchEvolutionChain(context.Context, string) (*importer.EvolutionChainResponse, error) {
	return nil, nil
}

func do(r http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouterGatesAPIUntilImported(t *testing.T) {
	store := catalog.NewStore()
	hub := synchub.NewHub()
	m := metrics.New()
	im := importer.New(store, stubSource{}, importer.Options{Limit: 10, Publisher: hub, Metrics: m, Logger: zerolog.Nop()})

	cfg := utils.Config{TrustedProxies: []string{"127.0.0.1"}}
	router, err := newRouter(cfg, zerolog.Nop(), store, im, hub, m, hunting.New(nil))
	if err != nil {
		t.Fatalf("newRouter: %v", err)
	}

	for path, want := range map[string]int{
		"/health":         http.StatusOK,
		"/ready":          http.StatusServiceUnavailable,
		"/api/import":     http.StatusOK,
		"/api/pokemon":    http.StatusServiceUnavailable,
		"/api/games":      http.StatusServiceUnavailable,
		"/api/pokemon/25": http.StatusServiceUnavailable,
	} {
		if got := do(router, path).Code; got != want {
			t.Fatalf("before import %s = %d, want %d", path, got, want)
		}
	}

	if err := im.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	rec := do(router, "/api/pokemon/pikachu")
	if rec.Code != http.StatusOK {
		t.Fatalf("after import status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"shortCode":"Y"`) {
		t.Fatalf("pikachu should list Yellow: %s", rec.Body.String())
	}
	if got := do(router, "/ready").Code; got != http.StatusOK {
		t.Fatalf("/ready after import = %d", got)
	}

	metricsBody := do(router, "/metrics").Body.String()
	for _, want := range []string{`shiny_import_entries_total{result="imported"} 1`, `shiny_http_requests_total`} {
		if !strings.Contains(metricsBody, want) {
			t.Fatalf("/metrics missing %s", want)
		}
	}
}

func TestHuntingCatalogDefault(t *testing.T) {
	c, err := huntingCatalog("")
	if err != nil {
		t.Fatalf("huntingCatalog: %v", err)
	}
	if len(c.Methods("SV")) == 0 {
		t.Fatal("built-in methods missing")
	}
}
