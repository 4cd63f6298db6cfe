package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Rosesandthorns/TheShinyArchives/pkg/models"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/utils"
)

// Source is the upstream the importer reads from. PokeAPI is the only real
// implementation; tests point it at an httptest server.
type Source interface {
	Name() string
	ListPokemon(ctx context.Context, limit int) ([]models.NamedResource, error)
	FetchPokemon(ctx context.Context, endpoint string) (*PokemonResponse, error)
	FetchSpecies(ctx context.Context, endpoint string) (*SpeciesResponse, error)
	FetchEvolutionChain(ctx context.Context, endpoint string) (*EvolutionChainResponse, error)
}

type PokemonResponse struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Types []struct {
		Slot int                  `json:"slot"`
		Type models.NamedResource `json:"type"`
	} `json:"types"`
	Sprites struct {
		FrontDefault string `json:"front_default"`
		FrontShiny   string `json:"front_shiny"`
		Other        struct {
			OfficialArtwork struct {
				FrontDefault string `json:"front_default"`
				FrontShiny   string `json:"front_shiny"`
			} `json:"official-artwork"`
		} `json:"other"`
	} `json:"sprites"`
	Height    int `json:"height"`
	Weight    int `json:"weight"`
	Abilities []struct {
		Ability  models.NamedResource `json:"ability"`
		IsHidden bool                 `json:"is_hidden"`
		Slot     int                  `json:"slot"`
	} `json:"abilities"`
	Stats []struct {
		BaseStat int                  `json:"base_stat"`
		Effort   int                  `json:"effort"`
		Stat     models.NamedResource `json:"stat"`
	} `json:"stats"`
	GameIndices []models.GameIndex   `json:"game_indices"`
	Species     models.NamedResource `json:"species"`
}

type SpeciesResponse struct {
	FlavorTextEntries []struct {
		FlavorText string               `json:"flavor_text"`
		Language   models.NamedResource `json:"language"`
		Version    models.NamedResource `json:"version"`
	} `json:"flavor_text_entries"`
	EvolutionChain *struct {
		URL string `json:"url"`
	} `json:"evolution_chain"`
}

type EvolutionChainResponse struct {
	ID    int                   `json:"id"`
	Chain models.EvolutionChain `json:"chain"`
}

type listResponse struct {
	Count   int                    `json:"count"`
	Next    *string                `json:"next"`
	Results []models.NamedResource `json:"results"`
}

// PokeAPI talks to https://pokeapi.co/api/v2 (or a compatible mirror).
type PokeAPI struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

func NewPokeAPI(cfg utils.UpstreamConfig) *PokeAPI {
	return &PokeAPI{
		BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		UserAgent: cfg.UserAgent,
		Client:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *PokeAPI) Name() string { return "pokeapi" }

// ListPokemon requests the whole listing in one page of the given size.
func (p *PokeAPI) ListPokemon(ctx context.Context, limit int) ([]models.NamedResource, error) {
	u, err := url.Parse(p.BaseURL + "/pokemon")
	if err != nil {
		return nil, fmt.Errorf("pokeapi: base url: %w", err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	var out listResponse
	if err := p.getJSON(ctx, u.String(), &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (p *PokeAPI) FetchPokemon(ctx context.Context, endpoint string) (*PokemonResponse, error) {
	var out PokemonResponse
	if err := p.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *PokeAPI) FetchSpecies(ctx context.Context, endpoint string) (*SpeciesResponse, error) {
	var out SpeciesResponse
	if err := p.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *PokeAPI) FetchEvolutionChain(ctx context.Context, endpoint string) (*EvolutionChainResponse, error) {
	var out EvolutionChainResponse
	if err := p.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *PokeAPI) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("pokeapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("pokeapi: request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pokeapi: %s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("pokeapi: decode %s: %w", endpoint, err)
	}
	return nil
}
