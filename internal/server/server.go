// Package server boots the catalog: connections, services, background
// workers and the HTTP and gRPC listeners.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/tagcatalog/app/controllers"
	gqlschema "github.com/shashiranjanraj/tagcatalog/app/graphql"
	"github.com/shashiranjanraj/tagcatalog/app/jobs"
	"github.com/shashiranjanraj/tagcatalog/app/repositories"
	"github.com/shashiranjanraj/tagcatalog/app/routes"
	"github.com/shashiranjanraj/tagcatalog/app/services"
	"github.com/shashiranjanraj/tagcatalog/config"
	"github.com/shashiranjanraj/tagcatalog/internal/kernel"
	"github.com/shashiranjanraj/tagcatalog/internal/ocr"
	"github.com/shashiranjanraj/tagcatalog/internal/ratelist"
	"github.com/shashiranjanraj/tagcatalog/pkg/cache"
	"github.com/shashiranjanraj/tagcatalog/pkg/database"
	"github.com/shashiranjanraj/tagcatalog/pkg/event"
	gql "github.com/shashiranjanraj/tagcatalog/pkg/graphql"
	"github.com/shashiranjanraj/tagcatalog/pkg/grpc"
	"github.com/shashiranjanraj/tagcatalog/pkg/logger"
	"github.com/shashiranjanraj/tagcatalog/pkg/queue"
	"github.com/shashiranjanraj/tagcatalog/pkg/schedule"
	"github.com/shashiranjanraj/tagcatalog/pkg/sse"
	"github.com/shashiranjanraj/tagcatalog/pkg/storage"
	"github.com/shashiranjanraj/tagcatalog/pkg/ws"
)

const (
	stagingMaxAge  = 24 * time.Hour
	shutdownWindow = 15 * time.Second
)

// App is a booted catalog with every service wired.
type App struct {
	DB      *gorm.DB
	Queue   *queue.Manager
	Bus     *event.Bus
	Hub     *ws.Hub
	Events  *sse.Broker
	Rates   *ratelist.Index
	Local   *storage.LocalDisk
	redisQ  *queue.RedisDriver
	Product *services.ProductService
	Catalog *services.CatalogService
	Auth    *services.AuthService
}

// Boot loads config and opens the database, cache and disks. Redis is
// optional: without it the list cache is off and the queue is in-memory.
func Boot(ctx context.Context) (*App, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := logger.AttachMongo(); err != nil {
		logger.Warn("mongo log sink disabled", "error", err)
	}
	if err := database.Connect(); err != nil {
		return nil, err
	}
	if err := storage.Connect(ctx); err != nil {
		return nil, err
	}
	files, err := storage.Use("local")
	if err != nil {
		return nil, err
	}
	local, _ := files.(*storage.LocalDisk)

	a := &App{
		DB:     database.DB,
		Queue:  queue.Default(),
		Bus:    event.Default(),
		Hub:    ws.NewHub(),
		Events: sse.NewBroker(),
		Rates:  ratelist.NewIndex(nil),
		Local:  local,
	}

	if err := cache.Connect(ctx); err != nil {
		logger.Warn("redis unavailable; list cache off, in-memory queue", "error", err)
	} else {
		a.redisQ = queue.NewRedisDriver(cache.RDB)
		a.Queue.SetDriver(a.redisQ)
	}
	a.Queue.UseDB(a.DB)

	threshold := config.MatchThreshold()
	a.Product = services.NewProductService(services.ProductDeps{
		Repo:      repositories.NewProductRepository(a.DB),
		Rates:     a.Rates,
		Threshold: threshold,
		Bus:       a.Bus,
		Queue:     a.Queue,
		Staging:   files,
	})
	a.Catalog = services.NewCatalogService(ocr.NewTesseract(), a.Rates, threshold, files)
	a.Auth = services.NewAuthService(repositories.NewUserRepository(a.DB))
	jobs.Register(a.Queue, a.Product)

	if err := a.Catalog.LoadRateList(ctx, config.RateListPath()); err != nil {
		logger.Warn("rate list not loaded", "path", config.RateListPath(), "error", err)
	}

	a.Bus.Listen(event.Wildcard, func(_ context.Context, e event.Event) {
		a.Hub.Publish(e)
		a.Events.Publish(e.Name, e.Payload)
	})
	return a, nil
}

// Handlers builds the HTTP endpoints of a.
func (a *App) Handlers() (routes.Handlers, error) {
	schema, err := gqlschema.Schema(a.Product)
	if err != nil {
		return routes.Handlers{}, fmt.Errorf("graphql schema: %w", err)
	}
	h := routes.Handlers{
		Auth:    controllers.NewAuthController(a.Auth),
		Product: controllers.NewProductController(a.Product),
		Catalog: controllers.NewCatalogController(a.Catalog),
		GraphQL: gql.Handler(schema),
		Feed:    a.Hub,
		Events:  a.Events,
	}
	if a.Local != nil {
		h.Files = http.FileServer(http.Dir(a.Local.Root()))
	}
	return h, nil
}

// Scheduler returns the maintenance tasks: stale staging uploads are swept
// hourly and RATE_LIST_PATH is reloaded when the file changes.
func (a *App) Scheduler() *schedule.Scheduler {
	s := schedule.New()
	s.Every(time.Hour, "staging:sweep", func(ctx context.Context) {
		if n := a.Product.SweepStaging(ctx, stagingMaxAge); n > 0 {
			logger.Info("staging swept", "removed", n)
		}
	})
	if path := config.RateListPath(); path != "" {
		s.Every(time.Minute, "ratelist:reload", func(ctx context.Context) {
			if err := a.Catalog.ReloadIfChanged(ctx, path); err != nil {
				logger.Warn("rate list reload failed", "path", path, "error", err)
			}
		})
	}
	return s
}

// RunWorkers processes queued jobs until ctx ends.
func (a *App) RunWorkers(ctx context.Context, n int) {
	if a.redisQ != nil {
		go a.redisQ.Promote(ctx)
	}
	a.Queue.Work(ctx, n)
}

// Durable reports whether queued jobs survive the process (Redis driver).
func (a *App) Durable() bool { return a.redisQ != nil }

// Close releases the connections opened by Boot.
func (a *App) Close() {
	if err := cache.Close(); err != nil {
		logger.Warn("redis close", "error", err)
	}
	if err := database.Close(); err != nil {
		logger.Warn("database close", "error", err)
	}
	logger.Close()
}

// Start serves HTTP and gRPC with in-process queue workers until ctx ends,
// then drains in-flight requests and jobs.
func Start(ctx context.Context, workers int) error {
	a, err := Boot(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	h, err := a.Handlers()
	if err != nil {
		return err
	}

	bg, stopBG := context.WithCancel(ctx)
	defer stopBG()

	go a.Hub.Run(bg)
	sched := a.Scheduler()
	sched.Start(bg)

	workersDone := make(chan struct{})
	go func() {
		a.RunWorkers(bg, workers)
		close(workersDone)
	}()

	grpcSrv, err := grpc.Start(config.GRPCPort())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           kernel.NewHTTPKernel(h).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("tagcatalog listening", "addr", srv.Addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWindow)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("http shutdown", "error", shutdownErr)
	}
	grpcSrv.Stop()

	stopBG()
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		logger.Warn("queue workers did not stop in time")
	}
	sched.Wait()
	return err
}
