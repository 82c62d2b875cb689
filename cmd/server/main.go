package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/IsahPhilip/house-unlimited-ng-sub001"
)

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("auth"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
	logger := lgr.GetLogger("boot")

	cfg, err := auth.LoadConfig()
	if err != nil {
		// No usable signing keys means no process. Never boot with defaults.
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	if cfg.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybeHighlightJSON(cfg))
		fmt.Println("============")
	}

	ctx := context.Background()

	db, err := openDatabase(ctx, cfg.DSN)
	if err != nil {
		logger.Error("database error", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	minter, err := auth.NewTokenMinter(
		[]byte(cfg.AccessSigningKey),
		[]byte(cfg.RefreshSigningKey),
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
		cfg.TokenIssuer,
		cfg.TokenAudience,
		lgr.GetLogger("auth:tokens"),
	)
	if err != nil {
		logger.Error("token minter error", "error", err)
		os.Exit(1)
	}

	hasher := auth.NewHasher(cfg.HasherLimit)
	issuer := auth.NewSecretIssuer()
	mailer := auth.NewLogMailer(lgr.GetLogger("auth:mail"))

	auther := auth.NewAuthenticator(repo.Users(), hasher, minter).
		WithLogger(lgr.GetLogger("auth:authn")).
		WithLoginThrottle(cfg.MaxLoginAttempts, cfg.LoginCooldownPeriod)

	gateway := auth.NewGateway(minter, repo.Users(), lgr.GetLogger("auth:gateway"))

	controller := auth.NewAuthController(
		auth.WithControllerLogger(lgr.GetLogger("auth:ctrl")),
		auth.WithControllerDebug(cfg.Debug),
		auth.WithControllerRepo(repo),
		auth.WithControllerAuther(auther),
		auth.WithControllerHasher(hasher),
		auth.WithControllerIssuer(issuer),
		auth.WithControllerMailer(mailer),
		auth.WithControllerHashid(cfg.UseHashid),
		auth.WithControllerCookieExpiryDays(cfg.CookieExpiryDays),
	)

	app := fiber.New(fiber.Config{
		AppName: "auth-service",
	})

	auth.RegisterAuthRoutes(app, controller, gateway)

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			logger.Error("http server stopped", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("listening", "addr", cfg.HTTPAddr)

	WaitExitSignal()

	logger.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func openDatabase(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := auth.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
