package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	_ "github.com/taskflow/tms/docs" // swagger docs

	"github.com/taskflow/tms/internal/api"
	"github.com/taskflow/tms/internal/api/handler"
	"github.com/taskflow/tms/internal/core/authz"
	"github.com/taskflow/tms/internal/core/service"
	"github.com/taskflow/tms/internal/core/token"
	"github.com/taskflow/tms/internal/infrastructure/config"
	mongostore "github.com/taskflow/tms/internal/infrastructure/db/mongo"
	redisstore "github.com/taskflow/tms/internal/infrastructure/db/redis"
	"github.com/taskflow/tms/internal/infrastructure/db/sqlstore"
	"github.com/taskflow/tms/internal/infrastructure/http/handlers"
	"github.com/taskflow/tms/internal/infrastructure/queue"
	"github.com/taskflow/tms/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// @title Task Management API
// @version 1.0
// @description Tasks, comments and users behind JWT authentication with role and ownership checks.
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// The logger is not configured yet.
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "tms",
		Env:     cfg.Env,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Relational store ---
	sqlLevel := gormlogger.Warn
	if cfg.IsDevelopment() {
		sqlLevel = gormlogger.Info
	}
	db, err := sqlstore.Open(ctx, sqlstore.Config{Driver: cfg.DB.Driver, DSN: cfg.DB.DSN, LogLevel: sqlLevel})
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlstore.Close(db); err != nil {
			log.Warn().Err(err).Msg("close sql store")
		}
	}()
	if err := sqlstore.Migrate(ctx, db); err != nil {
		return err
	}

	// --- Audit trail ---
	mongoClient, mongoDB, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongostore.Disconnect(mongoClient, shutdownTimeout); err != nil {
			log.Warn().Err(err).Msg("disconnect mongo")
		}
	}()
	events := mongostore.NewEventRepository(mongoDB)
	if err := events.EnsureIndexes(ctx); err != nil {
		return err
	}

	// --- Idempotency ---
	rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	tokens, err := token.NewService(token.Config{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, TTL: cfg.JWT.TTL()})
	if err != nil {
		return err
	}

	// --- Core ---
	users := sqlstore.NewUserRepository(db)
	tasks := sqlstore.NewTaskRepository(db)
	comments := sqlstore.NewCommentRepository(db)
	engine := authz.NewEngine(users, logger.Component("authz"))

	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, service.NewAuditService(events, logger.Component("audit")), logger.Component("dispatcher"))
	dispatcher.Start(ctx)

	authService := service.NewAuthService(users, tokens, logger.Component("auth"))
	userService := service.NewUserService(users, engine, logger.Component("users"))
	taskService := service.NewTaskService(service.TaskServiceDeps{
		Tasks:       tasks,
		Comments:    comments,
		Users:       users,
		Events:      events,
		Idempotency: redisstore.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL),
		Audit:       dispatcher,
		Engine:      engine,
	}, logger.Component("tasks"))
	commentService := service.NewCommentService(tasks, comments, dispatcher, engine, logger.Component("comments"))

	e := api.NewRouter(api.Deps{
		Log:      logger.Component("http"),
		Tokens:   tokens,
		Engine:   engine,
		Auth:     handler.NewAuthHandler(authService, tokens.TTL(), cfg.Cookie.Secure),
		Users:    handler.NewUserHandler(userService),
		Tasks:    handler.NewTaskHandler(taskService),
		Comments: handler.NewCommentHandler(commentService),
		Checks: map[string]handlers.Check{
			"sql":     handlers.SQLCheck(db),
			"mongodb": handlers.MongoCheck(mongoDB),
			"redis":   handlers.RedisCheck(rdb),
		},
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("audit queue not drained")
	}
	log.Info().Msg("server stopped")
	return nil
}
