// Package games serves the game roster routes plus the small reference
// endpoints the client uses to draw filters.
package games

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Rosesandthorns/TheShinyArchives/internal/hunting"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/models"
)

type Repo interface {
	AllGames(ctx context.Context) ([]models.Game, error)
	GetGame(ctx context.Context, id int) (*models.Game, error)
	PokemonByGame(ctx context.Context, gameID int) ([]models.PokemonWithGames, error)
}

// Methods looks up shiny hunting methods by shortcode.
type Methods interface {
	Methods(shortCode string) []hunting.Method
}

type Handler struct {
	Repo    Repo
	Methods Methods
	Log     zerolog.Logger
}

func NewHandler(repo Repo, methods Methods, log zerolog.Logger) *Handler {
	return &Handler{Repo: repo, Methods: methods, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)                               // GET /api/games
	rg.GET("/:id", h.getByID)                        // GET /api/games/3
	rg.GET("/:id/pokemon", h.pokemon)                // GET /api/games/3/pokemon
	rg.GET("/:id/hunting-methods", h.huntingMethods) // GET /api/games/3/hunting-methods
}

func (h *Handler) list(c *gin.Context) {
	games, err := h.Repo.AllGames(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to fetch games")
		return
	}
	if games == nil {
		games = []models.Game{}
	}
	c.JSON(http.StatusOK, games)
}

func (h *Handler) getByID(c *gin.Context) {
	g, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, g)
}

// pokemon answers an empty array for ids that match nothing, including
// non-numeric ones.
func (h *Handler) pokemon(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusOK, []models.PokemonWithGames{})
		return
	}

	items, err := h.Repo.PokemonByGame(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to fetch Pokémon for game")
		return
	}
	if items == nil {
		items = []models.PokemonWithGames{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) huntingMethods(c *gin.Context) {
	g, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Methods.Methods(g.ShortCode))
}

// lookup resolves :id and writes the 404/500 itself when it returns false.
func (h *Handler) lookup(c *gin.Context) (*models.Game, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Game not found"})
		return nil, false
	}
	g, err := h.Repo.GetGame(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to fetch game")
		return nil, false
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Game not found"})
		return nil, false
	}
	return g, true
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	_ = c.Error(err)
	h.Log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"message": msg})
}
