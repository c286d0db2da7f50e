package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/viewlulu/internal/account"
	"github.com/example/viewlulu/internal/auth"
	"github.com/example/viewlulu/internal/config"
	"github.com/example/viewlulu/internal/detection"
	"github.com/example/viewlulu/internal/lifecycle"
	"github.com/example/viewlulu/internal/permission"
	"github.com/example/viewlulu/internal/platform"
	"github.com/example/viewlulu/internal/pouch"
	"github.com/example/viewlulu/internal/registration"
	"github.com/example/viewlulu/internal/repository"
	"github.com/example/viewlulu/internal/upload"
	"github.com/example/viewlulu/internal/usecase"
)

const tokenTTL = 30 * 24 * time.Hour

// app holds the dependencies shared by every command for one invocation.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	state      *lifecycle.AppState
	capability platform.Capability
	console    *console
	errOut     io.Writer

	tokens    auth.TokenStore
	api       *upload.Client
	detectAPI *upload.Client
	authAPI   *upload.Client
	redis     *redis.Client
	history   *repository.DetectionRepository
	cache     usecase.Cache

	cameraPermission string
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, in io.Reader, errOut io.Writer, cameraPermission string) (*app, error) {
	capability, err := platform.Select(cfg.Platform)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:              cfg,
		logger:           logger,
		capability:       capability,
		console:          &console{in: bufio.NewReader(in), out: errOut},
		errOut:           errOut,
		cameraPermission: cameraPermission,
	}
	a.state = lifecycle.NewAppState(consoleSpeaker{out: errOut}, logger)

	if cfg.TokenStore == config.TokenStoreRedis || cfg.ResultCache {
		redisCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		client, err := initRedis(redisCtx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		a.redis = client
		if cfg.ResultCache {
			a.cache = usecase.NewRedisCache(client)
		}
	}

	switch cfg.TokenStore {
	case config.TokenStoreRedis:
		a.tokens = auth.NewRedisTokenStore(a.redis, auth.DefaultRedisKey, tokenTTL)
	case config.TokenStoreMemory:
		a.tokens = auth.NewMemoryTokenStore("")
	default:
		a.tokens = auth.NewFileTokenStore(cfg.TokenFile)
	}

	bulkField := upload.WithBulkField(cfg.BulkPhotoField)
	a.api = upload.NewClient(cfg.APIBaseURL, a.tokens, capability,
		upload.WithTimeout(cfg.RequestTimeout), upload.WithLogger(logger), bulkField)
	a.detectAPI = upload.NewClient(cfg.APIBaseURL, a.tokens, capability,
		upload.WithTimeout(detection.ClampTimeout(cfg.DetectTimeout)), upload.WithLogger(logger))
	a.authAPI = upload.NewClient(cfg.AuthBaseURL, nil, capability,
		upload.WithTimeout(cfg.AuthTimeout), upload.WithLogger(logger))

	if cfg.DatabaseDSN != "" {
		db, err := initDatabase(ctx, cfg.DatabaseDSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.history = repository.NewDetectionRepository(db, logger)
		if err := a.history.AutoMigrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("auto migrate failed: %w", err)
		}
	}

	if err := a.state.Init(nil); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases connections and cancels in-flight work.
func (a *app) Close() {
	a.state.Shutdown()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}

func (a *app) presenter() usecase.Presenter {
	return consolePresenter{state: a.state, out: a.errOut}
}

func (a *app) gate() *permission.Gate {
	return permission.NewGate(
		&terminalAuthorizer{status: a.cameraPermission, console: a.console},
		a.capability,
		a.logger,
		permission.WithPrompter(terminalPrompter{console: a.console}),
		permission.WithSettingsOpener(settingsPrinter{out: a.errOut}),
	)
}

func (a *app) accounts() *account.Client {
	return account.NewClient(a.authAPI, a.tokens, a.logger)
}

func (a *app) pouch() *pouch.Service {
	base := a.cfg.PhotoBaseURL
	if base == "" {
		base = a.api.BaseURL() + "/photos"
	}
	return pouch.NewService(a.api, base, a.logger)
}

func (a *app) detectUseCase() *usecase.DetectUseCase {
	coordinator := detection.NewCoordinator(a.detectAPI, a.logger, detection.WithTimeout(a.cfg.DetectTimeout))
	var opts []usecase.DetectOption
	if a.history != nil {
		opts = append(opts, usecase.WithHistory(a.history))
	}
	if a.cache != nil {
		opts = append(opts, usecase.WithCache(a.cache))
	}
	return usecase.NewDetectUseCase(a.state.Context(), a.gate(), coordinator, a.presenter(), a.logger, opts...)
}

func (a *app) registerUseCase() *usecase.RegisterUseCase {
	coordinator := registration.NewCoordinator(a.api, a.tokens, a.logger)
	return usecase.NewRegisterUseCase(a.state.Context(), a.gate(), coordinator, a.presenter(), a.logger)
}

func initDatabase(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access db handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return db, nil
}

func initRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}
