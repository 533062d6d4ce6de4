// Package server hosts the fleet API and the embedded browser client.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/zulandar/fleetboard/internal/config"
)

// StartOpts holds configuration for the fleet server.
type StartOpts struct {
	DB  *gorm.DB
	Cfg config.ServerConfig
	Out io.Writer
}

// Start launches the fleet HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("server: db is required")
	}
	if opts.Cfg.Port <= 0 {
		opts.Cfg.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)

	ttl := time.Duration(opts.Cfg.CacheTTLSeconds) * time.Second
	store := cache.New(ttl, 2*ttl)
	router := newRouter(opts.DB, opts.Cfg, store)

	// Flush cached responses when fleet data changed, so a cached page
	// never outlives an upstream update by more than the poll interval.
	refresher := cron.New()
	spec := opts.Cfg.RefreshSpec
	if spec == "" {
		spec = "@every 15s"
	}
	if _, err := refresher.AddFunc(spec, newCacheRefresher(opts.DB, store)); err != nil {
		return fmt.Errorf("server: refresh schedule %q: %w", spec, err)
	}
	refresher.Start()
	defer refresher.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Cfg.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Fleetboard running at http://localhost:%d\n", opts.Cfg.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
