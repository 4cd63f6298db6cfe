package games

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rosesandthorns/TheShinyArchives/internal/catalog"
	"github.com/Rosesandthorns/TheShinyArchives/internal/importer"
)

// RegisterReference mounts the static type and generation vocabularies.
func RegisterReference(rg *gin.RouterGroup) {
	rg.GET("/types", func(c *gin.Context) {
		c.JSON(http.StatusOK, catalog.Types)
	})
	rg.GET("/generations", func(c *gin.Context) {
		c.JSON(http.StatusOK, catalog.Generations)
	})
}

// Reporter exposes the last import report.
type Reporter interface {
	Report() importer.Report
}

// ImportReport serves the report. It stays reachable while the import runs.
func ImportReport(reports Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, reports.Report())
	}
}
