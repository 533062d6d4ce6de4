package server

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zulandar/fleetboard/internal/models"
)

// fleetEvent holds data for a fleet-updated SSE event.
type fleetEvent struct {
	LastUpdated string `json:"lastUpdated"`
}

// handleSSE streams a fleet-updated event whenever the newest car
// modification time advances, so the client can re-fetch without polling
// the listing endpoint itself.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		if db == nil {
			return
		}

		lastSeen := newestUpdate(db)

		ctx := c.Request.Context()
		ticker := time.NewTicker(5 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				newest := newestUpdate(db)
				if newest.IsZero() || !newest.After(lastSeen) {
					continue
				}
				lastSeen = newest
				writeSSE(c.Writer, "fleet-updated", fleetEvent{
					LastUpdated: newest.UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			}
		}
	}
}

// newestUpdate returns the newest car modification time, zero when the
// fleet is empty or the lookup fails.
func newestUpdate(db *gorm.DB) time.Time {
	var car models.TrainCar
	if err := db.Order("updated_at DESC").Limit(1).First(&car).Error; err != nil {
		return time.Time{}
	}
	return car.UpdatedAt
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
