package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/pflag"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	crew "github.com/goliatone/go-crew"
	"github.com/goliatone/go-crew/activitymap"
	"github.com/goliatone/go-crew/api"
	"github.com/goliatone/go-crew/config"
)

func main() {
	var (
		configPath = pflag.String("config", os.Getenv("CREW_CONFIG"), "path to the YAML configuration file")
		addr       = pflag.String("addr", "", "listen address, overrides server.addr")
		dsn        = pflag.String("dsn", "", "SQLite DSN, overrides database.dsn")
		debug      = pflag.Bool("debug", false, "development logging, SQL tracing and config dump")
	)
	pflag.Parse()

	if err := run(*configPath, *addr, *dsn, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "crewd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addr, dsn string, debug bool) error {
	cfg, err := config.Load(context.Background(), configPath)
	if err != nil {
		return err
	}

	if addr != "" {
		cfg.Server.Addr = addr
	}
	if dsn != "" {
		cfg.Database.DSN = dsn
	}
	if debug {
		cfg.Log.Dev = true
		cfg.Log.Level = "debug"
		cfg.Database.Debug = true
	}

	lg, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	logger := crew.NewZapLogger(sugar)

	if debug {
		sugar.Debugf("configuration:\n%s", cfg.String())
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer sqldb.Close()
	// sqlite serializes writers, one connection keeps conflicts on the
	// version check instead of SQLITE_LOCKED.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if cfg.Database.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := crew.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		return err
	}

	if err := repo.CreateSchema(ctx); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	svc := crew.NewService(repo,
		crew.WithLogger(logger),
		crew.WithPasswordCost(cfg.Auth.PasswordCost),
		crew.WithAutoVerifyIdentity(cfg.Lifecycle.AutoVerifyIdentity),
		crew.WithMaxRetries(cfg.Lifecycle.MaxRetries),
		crew.WithActivitySink(activityLogger(sugar)),
	)

	seeded, err := svc.Seed(ctx, crew.Bootstrap{
		Username:    cfg.Bootstrap.Username,
		CountryCode: cfg.Bootstrap.CountryCode,
		Mobile:      cfg.Bootstrap.Mobile,
		FullName:    cfg.Bootstrap.FullName,
		Password:    cfg.Bootstrap.Password,
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if seeded.CreatorCreated {
		sugar.Warnf("creator account %s created with the bootstrap password, change it on first login", seeded.Creator.Username)
	}

	tokens := crew.NewTokenService(
		[]byte(cfg.Auth.SigningKey),
		cfg.Auth.TokenTTL,
		cfg.Auth.Issuer,
		jwt.ClaimStrings(cfg.Auth.Audience),
		logger,
	)

	app := fiber.New(fiber.Config{
		AppName:               "crewd",
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		BodyLimit:             cfg.Server.BodyLimit,
		DisableStartupMessage: !debug,
		ErrorHandler:          api.ErrorHandler(logger),
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "database unavailable")
		}
		return c.SendString("ok")
	})

	api.RegisterRoutes(app, api.NewController(svc, tokens,
		api.WithLogger(logger),
		api.WithContextKey(cfg.Auth.ContextKey),
		api.WithTokenLookup(cfg.Auth.TokenLookup, cfg.Auth.AuthScheme),
		api.WithTokenTTL(cfg.Auth.TokenTTL),
		api.WithDebug(debug),
	))

	errc := make(chan error, 1)
	go func() {
		sugar.Infof("crewd listening on %s", cfg.Server.Addr)
		errc <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	sugar.Info("shutting down")
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		sugar.Warnf("http shutdown: %v", err)
	}
	return nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	if cfg.Dev {
		c := zap.NewDevelopmentConfig()
		c.Level = zap.NewAtomicLevelAt(lvl)
		return c.Build()
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), lvl)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func activityLogger(sugar *zap.SugaredLogger) crew.ActivitySink {
	return crew.ActivitySinkFunc(func(_ context.Context, event crew.ActivityEvent) error {
		sugar.Infow("activity", activitymap.Normalize(event).Fields()...)
		return nil
	})
}
