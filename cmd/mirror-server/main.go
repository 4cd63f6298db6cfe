package main

import (
	"context"
	"flag"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Rosesandthorns/TheShinyArchives/internal/catalog"
	"github.com/Rosesandthorns/TheShinyArchives/internal/importer"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/database"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/logging"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/models"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/utils"
)

// mirror-server replays a snapshot in PokeAPI's shape so the importer can
// run offline: SHINY_UPSTREAM_URL=http://localhost:9000
func main() {
	cfg, err := utils.LoadConfig()
	log := logging.Component(logging.New(cfg.LogLevel, cfg.LogPretty), "mirror-server")
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	defaultPath := cfg.SnapshotPath
	if defaultPath == "" {
		defaultPath = "data/catalog.db"
	}
	var (
		dbPath = flag.String("db", defaultPath, "snapshot database path")
		addr   = flag.String("addr", ":9000", "listen address")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.OpenAndMigrate(database.Config{Path: *dbPath})
	if err != nil {
		log.Fatal().Err(err).Msg("open snapshot")
	}
	snap, ok, err := importer.NewSQLiteSnapshots(db).Load(ctx)
	_ = db.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("load snapshot")
	}
	if !ok {
		log.Fatal().Str("path", *dbPath).Msg("snapshot is empty, run the importer first")
	}

	gin.SetMode(gin.ReleaseMode)
	router := newMirror(snap)

	log.Info().Str("addr", *addr).Int("pokemon", len(snap.Pokemon)).Msg("mirror-server listening")
	srv := &http.Server{Addr: *addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("mirror-server stopped")
	}
}

type mirror struct {
	byDex map[int]models.Pokemon
	order []int
}

func newMirror(snap catalog.Snapshot) *gin.Engine {
	m := &mirror{byDex: make(map[int]models.Pokemon, len(snap.Pokemon))}
	for _, p := range snap.Pokemon {
		m.byDex[p.PokeID] = p
		m.order = append(m.order, p.PokeID)
	}
	sort.Ints(m.order)

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/pokemon", m.list)
	r.GET("/pokemon/:id/", m.detail)
	r.GET("/pokemon-species/:id/", m.species)
	r.GET("/evolution-chain/:id/", m.evolutionChain)
	return r
}

func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func (m *mirror) list(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	base := baseURL(c)

	results := make([]models.NamedResource, 0, limit)
	for _, dex := range m.order {
		if len(results) == limit {
			break
		}
		results = append(results, models.NamedResource{
			Name: m.byDex[dex].Name,
			URL:  base + "/pokemon/" + strconv.Itoa(dex) + "/",
		})
	}
	c.JSON(http.StatusOK, gin.H{"count": len(m.order), "next": nil, "results": results})
}

func (m *mirror) lookup(c *gin.Context) (models.Pokemon, bool) {
	dex, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusNotFound, "Not Found")
		return models.Pokemon{}, false
	}
	p, ok := m.byDex[dex]
	if !ok {
		c.String(http.StatusNotFound, "Not Found")
		return models.Pokemon{}, false
	}
	return p, true
}

func (m *mirror) detail(c *gin.Context) {
	p, ok := m.lookup(c)
	if !ok {
		return
	}
	base := baseURL(c)

	types := make([]gin.H, 0, len(p.Types))
	for i, t := range p.Types {
		types = append(types, gin.H{"slot": i + 1, "type": gin.H{"name": t}})
	}
	abilities := make([]gin.H, 0, len(p.Abilities))
	for i, a := range p.Abilities {
		name, hidden := strings.CutSuffix(a, " (Hidden)")
		abilities = append(abilities, gin.H{"slot": i + 1, "is_hidden": hidden, "ability": gin.H{"name": name}})
	}
	stats := make([]gin.H, 0, len(models.StatNames))
	for _, name := range models.StatNames {
		stats = append(stats, gin.H{"base_stat": p.Stats[name], "effort": 0, "stat": gin.H{"name": name}})
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     p.PokeID,
		"name":   p.Name,
		"height": p.Height,
		"weight": p.Weight,
		"types":  types,
		"sprites": gin.H{
			"front_default": p.Sprite,
			"front_shiny":   p.ShinySprite,
			"other": gin.H{"official-artwork": gin.H{
				"front_default": p.Sprite,
				"front_shiny":   p.ShinySprite,
			}},
		},
		"abilities":    abilities,
		"stats":        stats,
		"game_indices": p.GameIndices,
		"species": gin.H{
			"name": p.Name,
			"url":  base + "/pokemon-species/" + strconv.Itoa(p.PokeID) + "/",
		},
	})
}

func (m *mirror) species(c *gin.Context) {
	p, ok := m.lookup(c)
	if !ok {
		return
	}
	body := gin.H{"flavor_text_entries": []gin.H{}}
	if p.Description != "" {
		body["flavor_text_entries"] = []gin.H{{
			"flavor_text": p.Description,
			"language":    gin.H{"name": "en"},
		}}
	}
	if p.EvolutionChain != nil {
		body["evolution_chain"] = gin.H{"url": baseURL(c) + "/evolution-chain/" + strconv.Itoa(p.PokeID) + "/"}
	}
	c.JSON(http.StatusOK, body)
}

// evolutionChain is keyed by the dex number of the pokemon that owns it.
func (m *mirror) evolutionChain(c *gin.Context) {
	p, ok := m.lookup(c)
	if !ok {
		return
	}
	if p.EvolutionChain == nil {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": p.PokeID, "chain": p.EvolutionChain})
}
