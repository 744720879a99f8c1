package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/kinosync/kinosync/internal/application/config"
	"github.com/kinosync/kinosync/internal/application/constant"
	"github.com/kinosync/kinosync/internal/infra/adapters/memory"
	"github.com/kinosync/kinosync/internal/infra/adapters/postgres"
	"github.com/kinosync/kinosync/internal/infra/adapters/postgres/repository"
	"github.com/kinosync/kinosync/internal/infra/ports/http/handlers"
	"github.com/kinosync/kinosync/internal/infra/ports/http/server"
	"github.com/kinosync/kinosync/internal/usecase"
)

func runApp() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	slog.SetDefault(
		slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: slog.LevelInfo},
			),
		),
	)

	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	slog.Info("Running app", slog.Bool("debug", cfg.Debug))

	dbConn, err := postgres.NewPostgres(ctx, cfg.Postgres.DSN())
	if err != nil {
		slog.Error("connect to postgres", slog.Any(constant.Error, err))
		os.Exit(1)
	}
	defer dbConn.Close()

	userRepo := repository.NewUserRepo(dbConn)
	roomRegistry := memory.NewRoomRegistry()
	sessionRepo := memory.NewSessionRepository()

	userUsecase := usecase.NewUserUsecase([]byte(cfg.JWTSecret), userRepo)
	syncUsecase := usecase.NewSyncUsecase(roomRegistry, sessionRepo)

	authHandler := handlers.NewAuthHandler(userUsecase)
	roomHandler := handlers.NewRoomHandler(syncUsecase)
	wsHandler := handlers.NewWebSocketHandler(cfg, syncUsecase, userUsecase, sessionRepo)

	echoSrv := server.New(cfg, authHandler, roomHandler, wsHandler)

	srvCh := make(chan (error), 1)
	go func() {
		srvCh <- echoSrv.Start(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server due to context cancel")
	case err = <-srvCh:
		slog.Error(
			"HTTP server failed",
			slog.Any(constant.Error, err),
		)

		os.Exit(1)
	}

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeoutCancel()

	if err := echoSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown server", slog.Any(constant.Error, err))
	}
}
