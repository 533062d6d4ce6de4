package server

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zulandar/fleetboard/internal/roster"
)

// errFleetQuery is the only error text the API exposes for a failed lookup.
// Query detail stays in the server log.
const errFleetQuery = "failed to load fleet data"

// handleTrainCars serves GET /api/train-cars.
func handleTrainCars(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := roster.Params{
			Search:          c.Query("search"),
			GroupByMarriage: c.Query("groupByMarriage") == "true",
			Limit:           intQuery(c, "limit", roster.DefaultLimit),
			Offset:          intQuery(c, "offset", 0),
		}

		result, err := roster.List(c.Request.Context(), db, params)
		if err != nil {
			log.Printf("train-cars: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errFleetQuery})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// intQuery reads an integer query parameter, falling back to def when the
// parameter is absent or unparseable. Range clamping happens downstream.
func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
