// Package pokemon serves the read-only pokemon routes under /api/pokemon.
package pokemon

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Rosesandthorns/TheShinyArchives/internal/catalog"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/models"
)

const (
	defaultLimit  = 20
	defaultOffset = 0
)

// Repo is the slice of the catalog these routes read.
type Repo interface {
	ListPokemon(ctx context.Context, limit, offset int) ([]models.PokemonWithGames, error)
	QueryPokemon(ctx context.Context, f catalog.Filter) ([]models.PokemonWithGames, error)
	SearchPokemon(ctx context.Context, q string) ([]models.PokemonWithGames, error)
	GetPokemonByPokeID(ctx context.Context, pokeID int) (*models.PokemonWithGames, error)
	GetPokemonByName(ctx context.Context, name string) (*models.PokemonWithGames, error)
}

type Handler struct {
	Repo Repo
	Log  zerolog.Logger
}

func NewHandler(repo Repo, log zerolog.Logger) *Handler {
	return &Handler{Repo: repo, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)                    // GET /api/pokemon
	rg.GET("/search", h.search)           // GET /api/pokemon/search?q=
	rg.GET("/:idOrName", h.getByIDOrName) // GET /api/pokemon/25 or /api/pokemon/pikachu
}

// listFilters are the optional narrowing params. limit and offset are read
// separately because bad values fall back to defaults instead of failing.
type listFilters struct {
	Generation int    `form:"generation" binding:"omitempty,min=1,max=9"`
	Type       string `form:"type" binding:"omitempty,max=20"`
	Game       int    `form:"game" binding:"omitempty,min=1"`
	Sort       string `form:"sort" binding:"omitempty,oneof=id id-desc name name-desc"`
}

func (f listFilters) empty() bool {
	return f.Generation == 0 && f.Type == "" && f.Game == 0 && f.Sort == ""
}

func (h *Handler) list(c *gin.Context) {
	var lf listFilters
	if err := c.ShouldBindQuery(&lf); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid filter: " + err.Error()})
		return
	}

	limit := parseInt(c.Query("limit"), defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := parseInt(c.Query("offset"), defaultOffset)
	if offset < 0 {
		offset = defaultOffset
	}

	var (
		items []models.PokemonWithGames
		err   error
	)
	if lf.empty() {
		items, err = h.Repo.ListPokemon(c.Request.Context(), limit, offset)
	} else {
		items, err = h.Repo.QueryPokemon(c.Request.Context(), catalog.Filter{
			Generation: lf.Generation,
			Type:       lf.Type,
			GameID:     lf.Game,
			Sort:       lf.Sort,
			Limit:      limit,
			Offset:     offset,
		})
	}
	if err != nil {
		h.fail(c, err, "Failed to fetch Pokémon")
		return
	}
	c.JSON(http.StatusOK, nonNil(items))
}

func (h *Handler) search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Search query is required"})
		return
	}

	items, err := h.Repo.SearchPokemon(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err, "Failed to search Pokémon")
		return
	}
	c.JSON(http.StatusOK, nonNil(items))
}

func (h *Handler) getByIDOrName(c *gin.Context) {
	key := c.Param("idOrName")

	var (
		p   *models.PokemonWithGames
		err error
	)
	if isDigits(key) {
		n, convErr := strconv.Atoi(key)
		if convErr != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "Pokémon not found"})
			return
		}
		p, err = h.Repo.GetPokemonByPokeID(c.Request.Context(), n)
	} else {
		p, err = h.Repo.GetPokemonByName(c.Request.Context(), key)
	}
	if err != nil {
		h.fail(c, err, "Failed to fetch Pokémon")
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Pokémon not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// fail logs the real error and answers with a generic message.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	_ = c.Error(err)
	h.Log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"message": msg})
}

func nonNil(items []models.PokemonWithGames) []models.PokemonWithGames {
	if items == nil {
		return []models.PokemonWithGames{}
	}
	return items
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
