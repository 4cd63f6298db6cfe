// Package catalog holds the imported pokemon and games in memory and answers
// the read queries the API serves. The importer is the only writer.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/Rosesandthorns/TheShinyArchives/pkg/models"
)

var ErrNotEmpty = errors.New("catalog: store is not empty")

type Store struct {
	mu          sync.RWMutex
	pokemon     map[int]models.Pokemon
	games       map[int]models.Game
	memberships map[int][]int // pokemon id -> game ids
	nextPokemon int
	nextGame    int
}

func NewStore() *Store {
	return &Store{
		pokemon:     make(map[int]models.Pokemon),
		games:       make(map[int]models.Game),
		memberships: make(map[int][]int),
		nextPokemon: 1,
		nextGame:    1,
	}
}

// fold is used for every case-insensitive comparison. A Caser keeps state,
// so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// ---- write path (importer only) ----

func (s *Store) CreateGame(g models.Game) models.Game {
	s.mu.Lock()
	defer s.mu.Unlock()

	g.ID = s.nextGame
	s.nextGame++
	s.games[g.ID] = g
	return g
}

func (s *Store) CreatePokemon(p models.Pokemon) models.Pokemon {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextPokemon
	s.nextPokemon++
	s.pokemon[p.ID] = p
	return p
}

// SetMemberships records the games a pokemon appears in, keeping order.
func (s *Store) SetMemberships(pokemonID int, gameIDs []int) {
	ids := make([]int, len(gameIDs))
	copy(ids, gameIDs)

	s.mu.Lock()
	s.memberships[pokemonID] = ids
	s.mu.Unlock()
}

// Reset empties the store and restarts both id sequences.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pokemon = make(map[int]models.Pokemon)
	s.games = make(map[int]models.Game)
	s.memberships = make(map[int][]int)
	s.nextPokemon = 1
	s.nextGame = 1
}

// ---- pokemon reads ----

// GetPokemon looks up by internal id. A nil result with a nil error means not found.
func (s *Store) GetPokemon(ctx context.Context, id int) (*models.PokemonWithGames, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pokemon[id]
	if !ok {
		return nil, nil
	}
	out := s.attachGames(p)
	return &out, nil
}

// GetPokemonByPokeID looks up by national dex number.
func (s *Store) GetPokemonByPokeID(ctx context.Context, pokeID int) (*models.PokemonWithGames, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.pokemon {
		if p.PokeID == pokeID {
			out := s.attachGames(p)
			return &out, nil
		}
	}
	return nil, nil
}

// GetPokemonByName matches the whole name, ignoring case.
func (s *Store) GetPokemonByName(ctx context.Context, name string) (*models.PokemonWithGames, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := fold(strings.TrimSpace(name))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.sortedPokemon() {
		if fold(p.Name) == want {
			out := s.attachGames(p)
			return &out, nil
		}
	}
	return nil, nil
}

// ListPokemon pages through the catalog in national dex order.
func (s *Store) ListPokemon(ctx context.Context, limit, offset int) ([]models.PokemonWithGames, error) {
	return s.QueryPokemon(ctx, Filter{Limit: limit, Offset: offset})
}

// SearchPokemon returns every pokemon whose name or dex number contains q,
// ignoring case, in national dex order.
func (s *Store) SearchPokemon(ctx context.Context, q string) ([]models.PokemonWithGames, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := fold(q)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PokemonWithGames, 0)
	for _, p := range s.sortedPokemon() {
		if strings.Contains(fold(p.Name), needle) || strings.Contains(strconv.Itoa(p.PokeID), needle) {
			out = append(out, s.attachGames(p))
		}
	}
	return out, nil
}

// PokemonByGame scans the membership relation for gameID. Unknown games
// simply have no members.
func (s *Store) PokemonByGame(ctx context.Context, gameID int) ([]models.PokemonWithGames, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PokemonWithGames, 0)
	for _, p := range s.sortedPokemon() {
		if containsInt(s.memberships[p.ID], gameID) {
			out = append(out, s.attachGames(p))
		}
	}
	return out, nil
}

// QueryPokemon applies the filter, sorts, then pages.
func (s *Store) QueryPokemon(ctx context.Context, f Filter) ([]models.PokemonWithGames, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Pokemon, 0, len(s.pokemon))
	for _, p := range s.sortedPokemon() {
		if f.matches(p, s.memberships[p.ID]) {
			matched = append(matched, p)
		}
	}
	sortPokemon(matched, f.Sort)

	page := paginate(matched, f.Limit, f.Offset)
	out := make([]models.PokemonWithGames, 0, len(page))
	for _, p := range page {
		out = append(out, s.attachGames(p))
	}
	return out, nil
}

// ---- game reads ----

// AllGames returns the roster ordered by generation, then insertion order.
func (s *Store) AllGames(ctx context.Context) ([]models.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Game, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Generation != out[j].Generation {
			return out[i].Generation < out[j].Generation
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetGame(ctx context.Context, id int) (*models.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (s *Store) GetGameByName(ctx context.Context, name string) (*models.Game, error) {
	return s.findGame(ctx, func(g models.Game) bool { return fold(g.Name) == fold(name) })
}

func (s *Store) GetGameByShortCode(ctx context.Context, code string) (*models.Game, error) {
	return s.findGame(ctx, func(g models.Game) bool { return fold(g.ShortCode) == fold(code) })
}

func (s *Store) findGame(ctx context.Context, match func(models.Game) bool) (*models.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id := 1; id < s.nextGame; id++ {
		g, ok := s.games[id]
		if ok && match(g) {
			return &g, nil
		}
	}
	return nil, nil
}

// ---- bookkeeping ----

type Counts struct {
	Pokemon int `json:"pokemon"`
	Games   int `json:"games"`
}

func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{Pokemon: len(s.pokemon), Games: len(s.games)}
}

// Snapshot is the full catalog state, used to persist and restore an import.
type Snapshot struct {
	Games       []models.Game
	Pokemon     []models.Pokemon
	Memberships map[int][]int
}

// Export copies the catalog out in id order.
func (s *Store) Export() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Games:       make([]models.Game, 0, len(s.games)),
		Pokemon:     make([]models.Pokemon, 0, len(s.pokemon)),
		Memberships: make(map[int][]int, len(s.memberships)),
	}
	for id := 1; id < s.nextGame; id++ {
		if g, ok := s.games[id]; ok {
			snap.Games = append(snap.Games, g)
		}
	}
	for id := 1; id < s.nextPokemon; id++ {
		if p, ok := s.pokemon[id]; ok {
			snap.Pokemon = append(snap.Pokemon, p)
		}
	}
	for id, gameIDs := range s.memberships {
		snap.Memberships[id] = append([]int(nil), gameIDs...)
	}
	return snap
}

// Restore loads a snapshot into an empty store, keeping the recorded ids.
func (s *Store) Restore(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pokemon) > 0 || len(s.games) > 0 {
		return ErrNotEmpty
	}
	for _, g := range snap.Games {
		if _, dup := s.games[g.ID]; dup || g.ID <= 0 {
			return fmt.Errorf("catalog: restore game %q: bad id %d", g.Name, g.ID)
		}
		s.games[g.ID] = g
		if g.ID >= s.nextGame {
			s.nextGame = g.ID + 1
		}
	}
	for _, p := range snap.Pokemon {
		if _, dup := s.pokemon[p.ID]; dup || p.ID <= 0 {
			return fmt.Errorf("catalog: restore pokemon %q: bad id %d", p.Name, p.ID)
		}
		s.pokemon[p.ID] = p
		if p.ID >= s.nextPokemon {
			s.nextPokemon = p.ID + 1
		}
	}
	for id, gameIDs := range snap.Memberships {
		s.memberships[id] = append([]int(nil), gameIDs...)
	}
	return nil
}

// ---- helpers (callers hold the read lock) ----

// attachGames resolves stored game ids, dropping any that no longer resolve.
func (s *Store) attachGames(p models.Pokemon) models.PokemonWithGames {
	ids := s.memberships[p.ID]
	games := make([]models.Game, 0, len(ids))
	for _, id := range ids {
		if g, ok := s.games[id]; ok {
			games = append(games, g)
		}
	}
	return models.PokemonWithGames{Pokemon: p, Games: games}
}

func (s *Store) sortedPokemon() []models.Pokemon {
	out := make([]models.Pokemon, 0, len(s.pokemon))
	for _, p := range s.pokemon {
		out = append(out, p)
	}
	sortPokemon(out, SortByID)
	return out
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
