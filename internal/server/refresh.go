package server

import (
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

// newCacheRefresher returns a job that flushes the response cache when the
// fleet's newest modification time has advanced since the last run.
func newCacheRefresher(db *gorm.DB, store *cache.Cache) func() {
	var lastSeen time.Time
	return func() {
		newest := newestUpdate(db)
		if newest.IsZero() || !newest.After(lastSeen) {
			return
		}
		lastSeen = newest
		store.Flush()
	}
}
