// Package server initializes and runs the feed application server. It opens
// the database, applies migrations, starts the realtime hub and the HTTP
// server, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/feedstream/internal/logging"
	"github.com/dmitrijs2005/feedstream/internal/server/config"
	"github.com/dmitrijs2005/feedstream/internal/server/graphql"
	"github.com/dmitrijs2005/feedstream/internal/server/images"
	"github.com/dmitrijs2005/feedstream/internal/server/realtime"
	"github.com/dmitrijs2005/feedstream/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/feedstream/internal/server/rest"
	"github.com/dmitrijs2005/feedstream/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	hub         *realtime.Hub
	userService *services.UserService
	postService *services.PostService
	imageStore  images.Store
	graphql     *graphql.Handler
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	hub := realtime.NewHub(logger)
	store := images.NewS3Store(images.S3Options{
		RootUser:     cfg.S3RootUser,
		RootPassword: cfg.S3RootPassword,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})

	us := services.NewUserService(db, rm, cfg, logger)
	ps := services.NewPostService(db, rm, hub, logger)

	gq, err := graphql.NewHandler(us, ps, logger)
	if err != nil {
		return nil, fmt.Errorf("schema init error: %w", err)
	}

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		hub:         hub,
		userService: us,
		postService: ps,
		imageStore:  store,
		graphql:     gq,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := rest.NewServer(app.config.EndpointAddrHTTP, app.logger, app.userService, app.postService, app.imageStore, app.hub, app.graphql, app.config.SecretKey)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.hub.Shutdown()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing db", "error", err)
	}
}
