package importer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rosesandthorns/TheShinyArchives/internal/catalog"
	synchub "github.com/Rosesandthorns/TheShinyArchives/internal/sync"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/database"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/utils"
)

// fakePokeAPI serves bulbasaur and pikachu. "missingno" is listed but its
// detail document returns 500.
type fakePokeAPI struct {
	srv         *httptest.Server
	hits        atomic.Int64
	failListing atomic.Bool
}

func newFakePokeAPI(t *testing.T) *fakePokeAPI {
	t.Helper()
	f := &fakePokeAPI{}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /pokemon", func(w http.ResponseWriter, r *http.Request) {
		if f.failListing.Load() {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		base := f.srv.URL
		writeJSON(w, map[string]any{
			"count": 3,
			"results": []map[string]string{
				{"name": "bulbasaur", "url": base + "/pokemon/1/"},
				{"name": "missingno", "url": base + "/pokemon/0/"},
				{"name": "pikachu", "url": base + "/pokemon/25/"},
			},
		})
	})

	mux.HandleFunc("GET /pokemon/{id}/", func(w http.ResponseWriter, r *http.Request) {
		base := f.srv.URL
		switch r.PathValue("id") {
		case "1":
			writeJSON(w, detailDoc(1, "Bulbasaur", base, []string{"grass", "poison"}, []string{"red", "blue", "x"}))
		case "25":
			writeJSON(w, detailDoc(25, "pikachu", base, []string{"electric"}, []string{"red", "blue", "yellow", "sword", "shield", "unknown-version"}))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	})

	mux.HandleFunc("GET /pokemon-species/{id}/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"flavor_text_entries": []map[string]any{
				{"flavor_text": "Une graine", "language": map[string]string{"name": "fr"}},
				{"flavor_text": "A strange seed\fwas planted.", "language": map[string]string{"name": "en"}},
			},
			"evolution_chain": map[string]string{"url": f.srv.URL + "/evolution-chain/" + r.PathValue("id") + "/"},
		})
	})

	mux.HandleFunc("GET /evolution-chain/{id}/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id": 1,
			"chain": map[string]any{
				"species": map[string]string{"name": "bulbasaur"},
				"evolves_to": []map[string]any{{
					"species":           map[string]string{"name": "ivysaur"},
					"evolution_details": []map[string]any{{"trigger": map[string]string{"name": "level-up"}, "min_level": 16}},
					"evolves_to":        []map[string]any{},
				}},
			},
		})
	})

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePokeAPI) source() *PokeAPI {
	return NewPokeAPI(utils.UpstreamConfig{BaseURL: f.srv.URL, Timeout: 5 * time.Second, UserAgent: "test"})
}

func detailDoc(id int, name, base string, types, versions []string) map[string]any {
	typeList := make([]map[string]any, 0, len(types))
	for i, t := range types {
		typeList = append(typeList, map[string]any{"slot": i + 1, "type": map[string]string{"name": t}})
	}
	indices := make([]map[string]any, 0, len(versions))
	for i, v := range versions {
		indices = append(indices, map[string]any{"game_index": i + 1, "version": map[string]string{"name": v}})
	}
	return map[string]any{
		"id":     id,
		"name":   name,
		"types":  typeList,
		"height": 7,
		"weight": 69,
		"sprites": map[string]any{
			"front_default": "front.png",
			"front_shiny":   "front-shiny.png",
			"other": map[string]any{
				"official-artwork": map[string]string{"front_default": "art.png"},
			},
		},
		"abilities": []map[string]any{
			{"ability": map[string]string{"name": "overgrow"}, "is_hidden": false, "slot": 1},
			{"ability": map[string]string{"name": "chlorophyll"}, "is_hidden": true, "slot": 3},
		},
		"stats": []map[string]any{
			{"base_stat": 45, "stat": map[string]string{"name": "hp"}},
			{"base_stat": 49, "stat": map[string]string{"name": "attack"}},
		},
		"game_indices": indices,
		"species":      map[string]string{"name": name, "url": base + "/pokemon-species/" + strconv.Itoa(id) + "/"},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []synchub.ImportEvent
}

func (r *eventRecorder) Publish(ev synchub.ImportEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type countingRecorder struct {
	imported, failed, finished atomic.Int64
}

func (c *countingRecorder) EntryImported() { c.imported.Add(1) }
func (c *countingRecorder) EntryFailed()   { c.failed.Add(1) }
func (c *countingRecorder) ImportFinished(time.Duration, int, int) {
	c.finished.Add(1)
}

func newTestImporter(store *catalog.Store, f *fakePokeAPI, opts Options) *Importer {
	if opts.Limit == 0 {
		opts.Limit = 1025
	}
	opts.Logger = zerolog.Nop()
	return New(store, f.source(), opts)
}

func TestInitializeBuildsCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFakePokeAPI(t)
	store := catalog.NewStore()
	im := newTestImporter(store, f, Options{})

	if im.Ready() {
		t.Fatal("ready before Initialize")
	}
	if err := im.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !im.Ready() {
		t.Fatal("not ready after Initialize")
	}

	counts := store.Counts()
	if counts.Games != len(Roster) {
		t.Fatalf("games = %d, want %d", counts.Games, len(Roster))
	}
	if counts.Pokemon != 2 {
		t.Fatalf("pokemon = %d, want 2 (missingno skipped)", counts.Pokemon)
	}

	pika, err := store.GetPokemonByPokeID(ctx, 25)
	if err != nil || pika == nil {
		t.Fatalf("pikachu: %v, %v", pika, err)
	}
	var codes []string
	for _, g := range pika.Games {
		codes = append(codes, g.ShortCode)
	}
	want := []string{"RB", "Y", "SwSh"}
	if len(codes) != len(want) {
		t.Fatalf("pikachu games = %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("pikachu games = %v, want %v", codes, want)
		}
	}

	bulba, _ := store.GetPokemonByName(ctx, "bulbasaur")
	if bulba == nil {
		t.Fatal("bulbasaur not stored under lowercase name")
	}
	if bulba.Description != "A strange seed was planted." {
		t.Fatalf("description = %q", bulba.Description)
	}
}

func TestInitializeMapsSwordToSwordShield(t *testing.T) {
	ctx := context.Background()
	f := newFakePokeAPI(t)
	store := catalog.NewStore()
	if err := newTestImporter(store, f, Options{}).Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	swsh, _ := store.GetGameByShortCode(ctx, "SwSh")
	if swsh == nil {
		t.Fatal("SwSh not seeded")
	}
	members, err := store.PokemonByGame(ctx, swsh.ID)
	if err != nil {
		t.Fatalf("PokemonByGame: %v", err)
	}
	if len(members) != 1 || members[0].Name != "pikachu" {
		t.Fatalf("SwSh members = %+v", members)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFakePokeAPI(t)
	store := catalog.NewStore()
	im := newTestImporter(store, f, Options{})

	if err := im.Initialize(ctx); err != nil {
		t.Fatalf("first Initialize: %v", err)
	}
	hits := f.hits.Load()
	before := store.Counts()

	if err := im.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	if got := f.hits.Load(); got != hits {
		t.Fatalf("upstream hits went from %d to %d", hits, got)
	}
	if after := store.Counts(); after != before {
		t.Fatalf("counts changed: %+v -> %+v", before, after)
	}
}

func TestInitializeListingFailure(t *testing.T) {
	ctx := context.Background()
	f := newFakePokeAPI(t)
	f.failListing.Store(true)
	store := catalog.NewStore()
	rec := &eventRecorder{}
	im := newTestImporter(store, f, Options{Publisher: rec})

	err := im.Initialize(ctx)
	if !errors.Is(err, ErrListing) {
		t.Fatalf("err = %v, want ErrListing", err)
	}
	if im.Ready() {
		t.Fatal("ready after failed import")
	}
	if types := rec.types(); len(types) == 0 || types[len(types)-1] != synchub.EventImportFailed {
		t.Fatalf("events = %v, want trailing %s", types, synchub.EventImportFailed)
	}

	// a retry in the same process must not seed the roster twice
	f.failListing.Store(false)
	if err := im.Initialize(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := store.Counts().Games; got != len(Roster) {
		t.Fatalf("games after retry = %d, want %d", got, len(Roster))
	}
}

// cancelOnSecondDetail cancels the run's context while the second listing
// entry is being fetched.
type cancelOnSecondDetail struct {
	Source
	cancel context.CancelFunc
	calls  atomic.Int64
}

func (c *cancelOnSecondDetail) FetchPokemon(ctx context.Context, endpoint string) (*PokemonResponse, error) {
	if c.calls.Add(1) == 2 {
		c.cancel()
	}
	return c.Source.FetchPokemon(ctx, endpoint)
}

func TestInitializeInterruptedLeavesNoPartialCatalog(t *testing.T) {
	f := newFakePokeAPI(t)
	store := catalog.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &cancelOnSecondDetail{Source: f.source(), cancel: cancel}
	im := New(store, src, Options{Limit: 1025, Logger: zerolog.Nop()})

	if err := im.Initialize(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if im.Ready() {
		t.Fatal("ready after interrupted import")
	}
	if got := store.Counts(); got != (catalog.Counts{}) {
		t.Fatalf("counts after interrupt = %+v, want empty", got)
	}

	if err := im.Initialize(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := store.Counts(); got.Pokemon != 2 || got.Games != len(Roster) {
		t.Fatalf("counts after retry = %+v", got)
	}
	found, err := store.SearchPokemon(context.Background(), "bulbasaur")
	if err != nil || len(found) != 1 {
		t.Fatalf("search bulbasaur = %d records, err %v", len(found), err)
	}
	if found[0].ID != 1 {
		t.Fatalf("bulbasaur id = %d, want ids to restart at 1", found[0].ID)
	}
}

func TestInitializeReportsSkippedEntries(t *testing.T) {
	f := newFakePokeAPI(t)
	m := &countingRecorder{}
	rec := &eventRecorder{}
	im := newTestImporter(catalog.NewStore(), f, Options{Publisher: rec, Metrics: m})

	if err := im.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	r := im.Report()
	if r.RunID == "" || r.Source != "pokeapi" {
		t.Fatalf("report header = %+v", r)
	}
	if r.Listed != 3 || r.Imported != 2 {
		t.Fatalf("listed/imported = %d/%d, want 3/2", r.Listed, r.Imported)
	}
	if len(r.Failed) != 1 || r.Failed[0] != "missingno" {
		t.Fatalf("failed = %v", r.Failed)
	}
	if !r.Done || r.Complete {
		t.Fatalf("done/complete = %v/%v, want true/false", r.Done, r.Complete)
	}

	types := rec.types()
	if types[0] != synchub.EventImportStarted || types[len(types)-1] != synchub.EventImportFinished {
		t.Fatalf("events = %v", types)
	}
	var entries, failed int
	for _, typ := range types {
		switch typ {
		case synchub.EventEntryImported:
			entries++
		case synchub.EventEntryFailed:
			failed++
		}
	}
	if entries != 2 || failed != 1 {
		t.Fatalf("entry events = %d ok, %d failed", entries, failed)
	}

	if m.imported.Load() != 2 || m.failed.Load() != 1 || m.finished.Load() != 1 {
		t.Fatalf("recorder = %d imported, %d failed, %d finished",
			m.imported.Load(), m.failed.Load(), m.finished.Load())
	}
}

func TestInitializeUsesSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFakePokeAPI(t)

	db, err := database.OpenAndMigrate(database.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	snaps := NewSQLiteSnapshots(db)

	if err := newTestImporter(catalog.NewStore(), f, Options{Snapshots: snaps}).Initialize(ctx); err != nil {
		t.Fatalf("first boot: %v", err)
	}
	hits := f.hits.Load()

	store := catalog.NewStore()
	im := newTestImporter(store, f, Options{Snapshots: snaps})
	if err := im.Initialize(ctx); err != nil {
		t.Fatalf("second boot: %v", err)
	}
	if got := f.hits.Load(); got != hits {
		t.Fatalf("second boot hit upstream %d times", got-hits)
	}
	r := im.Report()
	if r.Source != "snapshot" || r.RestoredRun == "" || r.RestoredRun == r.RunID {
		t.Fatalf("report header = %+v", r)
	}
	// missingno was skipped when the snapshot was written
	if r.Listed != 3 || r.Imported != 2 || len(r.Failed) != 1 || r.Failed[0] != "missingno" {
		t.Fatalf("restored report = %+v", r)
	}
	if !r.Done || r.Complete {
		t.Fatalf("done/complete = %v/%v, want true/false", r.Done, r.Complete)
	}

	pika, _ := store.GetPokemonByPokeID(ctx, 25)
	if pika == nil || len(pika.Games) != 3 {
		t.Fatalf("restored pikachu = %+v", pika)
	}
	if pika.EvolutionChain == nil || pika.EvolutionChain.Species.Name != "bulbasaur" {
		t.Fatalf("restored chain = %+v", pika.EvolutionChain)
	}
	if pika.Stats["speed"] != 0 || pika.Stats["hp"] != 45 {
		t.Fatalf("restored stats = %v", pika.Stats)
	}
}

func TestSnapshotLoadEmpty(t *testing.T) {
	db, err := database.OpenAndMigrate(database.Config{Path: filepath.Join(t.TempDir(), "empty.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, ok, err := NewSQLiteSnapshots(db).Load(context.Background())
	if err != nil || ok {
		t.Fatalf("Load on empty db = ok %v, err %v", ok, err)
	}
}
