package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/sessionauth/internal/auth"
	"github.com/iliyamo/sessionauth/internal/config"
	"github.com/iliyamo/sessionauth/internal/database"
	"github.com/iliyamo/sessionauth/internal/handler"
	"github.com/iliyamo/sessionauth/internal/logger"
	"github.com/iliyamo/sessionauth/internal/middleware"
	"github.com/iliyamo/sessionauth/internal/queue"
	"github.com/iliyamo/sessionauth/internal/repository"
	"github.com/iliyamo/sessionauth/internal/revocation"
	"github.com/iliyamo/sessionauth/internal/router"
	"github.com/iliyamo/sessionauth/internal/service"
	"github.com/iliyamo/sessionauth/internal/token"
	"github.com/iliyamo/sessionauth/internal/usercache"
)

const (
	janitorInterval = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(0).Fatal("failed to load config", "error", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	codec, err := token.NewCodec(cfg.Auth.SecretKey, cfg.Auth.Algorithm)
	if err != nil {
		return err
	}

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb, err = config.NewRedisClient(ctx, cfg.Redis)
		switch {
		case err == nil:
			defer rdb.Close()
		case cfg.Cache.Backend == config.CacheDistributed || cfg.RevocationBackend == config.RevocationRedis:
			return err
		default:
			log.Warn("redis unavailable, rate limiting disabled", "error", err)
		}
	}

	// Keep the interface nil when there is no client.
	var redisCmd redis.Cmdable
	if rdb != nil {
		redisCmd = rdb
	}

	store, err := newRevocationStore(cfg.RevocationBackend, db, redisCmd)
	if err != nil {
		return err
	}
	cache, err := newUserCache(cfg.Cache.Backend, redisCmd)
	if err != nil {
		return err
	}

	origin := uuid.NewString()
	var publisher usercache.Publisher
	if cfg.RabbitMQ.URL != "" {
		p := queue.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, origin, log.Logger)
		defer p.Close()
		publisher = p
	}

	users := repository.NewUserRepo(db)
	resolver := usercache.NewResolver(cfg.Cache.Prefix, cfg.Cache.TTL(), users, cache, log.Logger)
	dispatcher := usercache.NewDispatcher(publisher, log.Logger)
	dispatcher.Register(resolver)
	users.OnChange(dispatcher.UserChanged)

	issuer := service.NewIssuer(codec, store, resolver, users, service.IssuerConfig{
		AccessTTL:        cfg.Auth.AccessTTL(),
		RefreshTTL:       cfg.Auth.RefreshTTL(),
		SlidingThreshold: cfg.Auth.SlidingThreshold(),
		BcryptCost:       cfg.Auth.BcryptCost,
	}, log.Logger)
	authn := auth.NewAuthenticator(codec, store, resolver, true)

	go revocation.RunJanitor(ctx, store, janitorInterval, log.Logger)
	if m, ok := cache.(*usercache.Memory); ok {
		go m.RunJanitor(ctx, cfg.Cache.TTL())
	}
	if cfg.RabbitMQ.URL != "" {
		consumer := queue.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, origin, dispatcher, log.Logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("user change consumer stopped", "error", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(log.Logger)
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log.Logger))
	e.Use(echomw.Recover())

	router.RegisterRoutes(e)
	router.RegisterAuth(e,
		handler.NewAuthHandler(issuer, users, cfg.Auth.BcryptCost),
		authn,
		middleware.NewTokenBucket(cfg.RateLimit, redisCmd, log.Logger),
	)
	router.RegisterUsers(e, handler.NewUserHandler(users), authn)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env,
			"cache", cfg.Cache.Backend, "revocation", cfg.RevocationBackend)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
