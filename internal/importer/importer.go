// Package importer fills the catalog from PokeAPI once per process.
//
// Games come from the static Roster. Pokemon come from the upstream listing;
// every entry is fetched as detail, species and evolution chain, one entry at
// a time. A failed entry is logged and skipped. A failed roster or listing
// aborts the import.
package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Rosesandthorns/TheShinyArchives/internal/catalog"
	synchub "github.com/Rosesandthorns/TheShinyArchives/internal/sync"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/models"
)

var (
	ErrRoster  = errors.New("importer: seed game roster")
	ErrListing = errors.New("importer: fetch pokemon listing")
)

const progressEvery = 50

// Store is the write side of the catalog plus what the snapshot needs.
type Store interface {
	CreateGame(g models.Game) models.Game
	CreatePokemon(p models.Pokemon) models.Pokemon
	SetMemberships(pokemonID int, gameIDs []int)
	GetGameByShortCode(ctx context.Context, code string) (*models.Game, error)
	Counts() catalog.Counts
	Export() catalog.Snapshot
	Restore(snap catalog.Snapshot) error
	Reset()
}

// Publisher receives progress events. The websocket hub implements it.
type Publisher interface {
	Publish(ev synchub.ImportEvent)
}

// Recorder receives import metrics.
type Recorder interface {
	EntryImported()
	EntryFailed()
	ImportFinished(d time.Duration, pokemon, games int)
}

// Snapshots persists a finished catalog with the report of the run that
// built it, and hands both back on the next boot.
type Snapshots interface {
	Load(ctx context.Context) (catalog.Snapshot, bool, error)
	LoadRun(ctx context.Context) (Report, bool, error)
	Save(ctx context.Context, snap catalog.Snapshot, run Report) error
}

// Report describes the last import so API consumers can tell a complete
// catalog from one with gaps.
type Report struct {
	RunID      string    `json:"runId"`
	Source     string    `json:"source"`
	Listed     int       `json:"listed"`
	Imported   int       `json:"imported"`
	Failed     []string  `json:"failed"`
	Complete   bool      `json:"complete"`
	Done       bool      `json:"done"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
	// RestoredRun is the id of the upstream run a snapshot boot came from.
	RestoredRun string `json:"restoredRun,omitempty"`
}

type Options struct {
	// Limit caps the upstream listing. It is the known species count, not discovered.
	Limit     int
	Publisher Publisher
	Metrics   Recorder
	Snapshots Snapshots
	Logger    zerolog.Logger
}

type Importer struct {
	store     Store
	source    Source
	limit     int
	publisher Publisher
	metrics   Recorder
	snapshots Snapshots
	log       zerolog.Logger
	validate  *validator.Validate
	now       func() time.Time

	runMu       sync.Mutex
	initialized atomic.Bool

	reportMu sync.RWMutex
	report   Report
}

func New(store Store, source Source, opts Options) *Importer {
	return &Importer{
		store:     store,
		source:    source,
		limit:     opts.Limit,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		snapshots: opts.Snapshots,
		log:       opts.Logger,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// Ready reports whether Initialize has completed successfully.
func (im *Importer) Ready() bool {
	return im.initialized.Load()
}

// Report returns a copy of the current (or last) import report.
func (im *Importer) Report() Report {
	im.reportMu.RLock()
	defer im.reportMu.RUnlock()

	r := im.report
	r.Failed = append([]string{}, im.report.Failed...)
	return r
}

// Initialize populates the store. After one success further calls return
// nil without touching upstream or the store. A failed call leaves the
// store empty so a retry starts from scratch.
func (im *Importer) Initialize(ctx context.Context) error {
	im.runMu.Lock()
	defer im.runMu.Unlock()

	if im.initialized.Load() {
		return nil
	}

	start := im.now()
	im.resetReport(uuid.NewString(), start)

	loaded, err := im.loadSnapshot(ctx)
	if err != nil {
		im.store.Reset()
		return err
	}
	if !loaded {
		if err := im.importUpstream(ctx); err != nil {
			im.store.Reset()
			im.publish(synchub.ImportEvent{Type: synchub.EventImportFailed, Error: err.Error()})
			im.log.Error().Err(err).Msg("import failed, catalog discarded")
			return err
		}
		im.saveSnapshot(ctx)
	}

	counts := im.store.Counts()
	elapsed := im.now().Sub(start)
	if im.metrics != nil {
		im.metrics.ImportFinished(elapsed, counts.Pokemon, counts.Games)
	}

	r := im.finishReport()
	im.publish(synchub.ImportEvent{Type: synchub.EventImportFinished, Processed: r.Listed, Total: r.Listed})
	im.log.Info().
		Str("run_id", r.RunID).
		Str("source", r.Source).
		Int("pokemon", counts.Pokemon).
		Int("games", counts.Games).
		Int("failed", len(r.Failed)).
		Dur("elapsed", elapsed).
		Msg("catalog initialized")

	im.initialized.Store(true)
	return nil
}

func (im *Importer) importUpstream(ctx context.Context) error {
	im.updateReport(func(r *Report) { r.Source = im.source.Name() })

	if err := im.seedGames(); err != nil {
		return fmt.Errorf("%w: %v", ErrRoster, err)
	}
	return im.importPokemon(ctx)
}

// seedGames validates the whole roster before inserting any of it.
func (im *Importer) seedGames() error {
	for i := range Roster {
		if err := im.validate.Struct(Roster[i]); err != nil {
			return fmt.Errorf("game %q: %w", Roster[i].Name, err)
		}
	}
	for _, g := range Roster {
		im.store.CreateGame(g)
	}
	im.log.Info().Int("games", len(Roster)).Msg("game roster seeded")
	return nil
}

func (im *Importer) importPokemon(ctx context.Context) error {
	entries, err := im.source.ListPokemon(ctx, im.limit)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrListing, err)
	}
	total := len(entries)
	im.updateReport(func(r *Report) { r.Listed = total })
	im.publish(synchub.ImportEvent{Type: synchub.EventImportStarted, Total: total})
	im.log.Info().Int("entries", total).Msg("fetching pokemon")

	imported := 0
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("importer: interrupted after %d of %d entries: %w", i, total, err)
		}

		p, err := im.processEntry(ctx, entry)
		if err != nil {
			im.log.Warn().Err(err).Str("name", entry.Name).Msg("skipping pokemon")
			im.updateReport(func(r *Report) { r.Failed = append(r.Failed, entry.Name) })
			if im.metrics != nil {
				im.metrics.EntryFailed()
			}
			im.publish(synchub.ImportEvent{
				Type: synchub.EventEntryFailed, Name: entry.Name,
				Processed: i + 1, Total: total, Error: err.Error(),
			})
			continue
		}

		imported++
		im.updateReport(func(r *Report) { r.Imported = imported })
		if im.metrics != nil {
			im.metrics.EntryImported()
		}
		im.publish(synchub.ImportEvent{
			Type: synchub.EventEntryImported, Name: p.Name, PokeID: p.PokeID,
			Processed: i + 1, Total: total,
		})
		if imported%progressEvery == 0 {
			im.log.Info().Int("processed", imported).Int("total", total).Msg("import progress")
		}
	}
	return nil
}

// processEntry runs detail -> species -> evolution chain for one listing
// entry and stores the result with its game memberships.
func (im *Importer) processEntry(ctx context.Context, entry models.NamedResource) (models.Pokemon, error) {
	detail, err := im.source.FetchPokemon(ctx, entry.URL)
	if err != nil {
		return models.Pokemon{}, fmt.Errorf("detail: %w", err)
	}

	species, err := im.source.FetchSpecies(ctx, detail.Species.URL)
	if err != nil {
		return models.Pokemon{}, fmt.Errorf("species: %w", err)
	}

	var chain *EvolutionChainResponse
	if species.EvolutionChain != nil && species.EvolutionChain.URL != "" {
		chain, err = im.source.FetchEvolutionChain(ctx, species.EvolutionChain.URL)
		if err != nil {
			return models.Pokemon{}, fmt.Errorf("evolution chain: %w", err)
		}
	}

	gameIDs, err := im.gameIDsFor(ctx, versionNames(detail))
	if err != nil {
		return models.Pokemon{}, fmt.Errorf("map games: %w", err)
	}

	p := im.store.CreatePokemon(normalize(detail, species, chain))
	im.store.SetMemberships(p.ID, gameIDs)
	return p, nil
}

// gameIDsFor resolves version names to seeded game ids. Codes with no
// matching game are skipped.
func (im *Importer) gameIDsFor(ctx context.Context, versions []string) ([]int, error) {
	codes := shortCodesFor(versions)
	ids := make([]int, 0, len(codes))
	for _, code := range codes {
		g, err := im.store.GetGameByShortCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if g == nil {
			continue
		}
		ids = append(ids, g.ID)
	}
	return ids, nil
}

func (im *Importer) loadSnapshot(ctx context.Context) (bool, error) {
	if im.snapshots == nil {
		return false, nil
	}
	snap, ok, err := im.snapshots.Load(ctx)
	if err != nil {
		im.log.Warn().Err(err).Msg("snapshot unreadable, importing from upstream")
		return false, nil
	}
	if !ok {
		return false, nil
	}
	if err := im.store.Restore(snap); err != nil {
		return false, fmt.Errorf("importer: restore snapshot: %w", err)
	}

	run, ok, err := im.snapshots.LoadRun(ctx)
	if err != nil {
		im.log.Warn().Err(err).Msg("snapshot run report unreadable")
		ok = false
	}
	im.updateReport(func(r *Report) {
		r.Source = "snapshot"
		if !ok {
			r.Listed = len(snap.Pokemon)
			r.Imported = len(snap.Pokemon)
			return
		}
		r.Listed = run.Listed
		r.Imported = run.Imported
		r.Failed = append([]string{}, run.Failed...)
		r.RestoredRun = run.RunID
	})
	im.log.Info().
		Int("pokemon", len(snap.Pokemon)).
		Int("failed", len(run.Failed)).
		Msg("catalog restored from snapshot")
	return true, nil
}

// saveSnapshot is best effort: the in-memory catalog is already complete.
func (im *Importer) saveSnapshot(ctx context.Context) {
	if im.snapshots == nil {
		return
	}
	run := im.Report()
	run.FinishedAt = im.now()
	if err := im.snapshots.Save(ctx, im.store.Export(), run); err != nil {
		im.log.Warn().Err(err).Msg("snapshot not saved")
		return
	}
	im.log.Info().Msg("snapshot saved")
}

func (im *Importer) publish(ev synchub.ImportEvent) {
	if im.publisher == nil {
		return
	}
	ev.RunID = im.Report().RunID
	ev.At = im.now()
	im.publisher.Publish(ev)
}

func (im *Importer) resetReport(runID string, start time.Time) {
	im.reportMu.Lock()
	im.report = Report{RunID: runID, StartedAt: start, Failed: []string{}}
	im.reportMu.Unlock()
}

func (im *Importer) updateReport(fn func(r *Report)) {
	im.reportMu.Lock()
	fn(&im.report)
	im.reportMu.Unlock()
}

func (im *Importer) finishReport() Report {
	im.updateReport(func(r *Report) {
		r.Done = true
		r.Complete = len(r.Failed) == 0
		r.FinishedAt = im.now()
	})
	return im.Report()
}
