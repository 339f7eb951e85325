package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sweetshop/internal/config"
	"sweetshop/internal/handler"
	"sweetshop/internal/infra/cache"
	"sweetshop/internal/infra/db"
	"sweetshop/internal/infra/inmemory"
	infraRepo "sweetshop/internal/infra/repository"
	"sweetshop/internal/logging"
	"sweetshop/internal/repository"
	"sweetshop/internal/server"
	"sweetshop/internal/usecase"
	auth "sweetshop/internal/usecase/auth_usecase"
	"sweetshop/internal/validator"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now().UTC()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	//.envがあれば読む
	if err := config.LoadDotenv(".env", "../.env"); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//Repository生成
	sweets, users, err := openStore(cfg, log)
	if err != nil {
		return err
	}

	idem, closeIdem, err := openIdempotency(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeIdem()

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}

	issuer, err := auth.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		return err
	}
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()

	//Usecase生成
	sweetUC := usecase.NewSweetUsecase(sweets, idem, validator.NewSweetValidator(), idGen, clock, log)
	registerUC := auth.NewRegisterUserUsecase(users, validator.NewAuthValidator(), hasher, issuer, idGen, clock)
	loginUC := auth.NewLoginUsecase(users, verifier, issuer, clock)

	//管理者を用意
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		created, err := registerUC.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
		if created {
			log.Info("admin user created", zap.String("username", cfg.AdminUsername))
		}
	}

	//Server起動
	srv := server.New(cfg, log, server.Deps{
		SweetHandler: handler.NewSweetHandler(sweetUC, log),
		AuthHandler:  handler.NewAuthHandler(registerUC, loginUC, log),
		Users:        users,
	})
	return srv.Start(ctx)
}

func openStore(cfg config.Config, log *zap.Logger) (repository.SweetRepository, repository.UserRepository, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store; data is lost on restart")
		store, err := inmemory.NewStore()
		if err != nil {
			return nil, nil, err
		}
		return store.Sweets(), store.Users(), nil
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return infraRepo.NewSweetGormRepository(gormDB), infraRepo.NewUserGormRepository(gormDB), nil
}

// REDIS_ADDRが無ければIdempotency-Keyは無視する
func openIdempotency(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.IdempotencyStore, func(), error) {
	if cfg.RedisAddr == "" {
		return cache.NopIdempotencyStore{}, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	log.Info("purchase idempotency enabled", zap.String("redis_addr", cfg.RedisAddr))
	return cache.NewRedisIdempotencyStore(client, cfg.IdempotencyTTL), func() { _ = client.Close() }, nil
}
