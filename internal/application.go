package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/gomoku-backend/internal/config"
	"github.com/rocketscienceinc/gomoku-backend/internal/gomoku"
	"github.com/rocketscienceinc/gomoku-backend/internal/repository"
	"github.com/rocketscienceinc/gomoku-backend/internal/repository/storage"
	"github.com/rocketscienceinc/gomoku-backend/internal/usecase"
	"github.com/rocketscienceinc/gomoku-backend/transport/rest"
	"github.com/rocketscienceinc/gomoku-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedis(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sqliteStorage, err := storage.NewSQLite(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open match archive: %w", err)
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close match archive", "error", err)
		}
	}()

	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init match archive: %w", err)
	}

	if err = gomoku.CheckWinLength(conf.Game.WinLength); err != nil {
		return fmt.Errorf("invalid game config: %w", err)
	}

	seriesRepo := repository.NewSeriesRepository(redisStorage, conf.Game.RatingDelta)
	matchRepo := repository.NewMatchRepository(sqliteStorage)
	playerRepo := repository.NewPlayerRepository(redisStorage)

	settings := usecase.Settings{
		BoardSize:          conf.Game.BoardSize,
		WinLength:          conf.Game.WinLength,
		GracePeriod:        conf.Game.GracePeriod,
		Retention:          conf.Game.Retention,
		PersistenceRetries: conf.Game.PersistenceRetries,
		RetryInterval:      conf.Game.RetryInterval,
		ResumeInterval:     conf.Game.ResumeInterval,
	}

	wsServer := websocket.New(logger)

	roomManager := usecase.NewRoomManager(logger, settings, seriesRepo, matchRepo, wsServer)
	defer roomManager.Shutdown()

	queue := usecase.NewQueue(logger, roomManager, seriesRepo, wsServer)
	playerUseCase := usecase.NewPlayerUseCase(playerRepo, seriesRepo)

	wsServer.Bind(roomManager, queue, playerUseCase)

	handlers := rest.NewHandlers(logger, roomManager, matchRepo, seriesRepo)

	group, groupCtx := errgroup.WithContext(ctx)

	// run HTTP server
	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)

		if httpErr := rest.Start(groupCtx, logger, conf.HTTPPort, rest.NewRouter(handlers)); httpErr != nil {
			return fmt.Errorf("HTTP server error: %w", httpErr)
		}

		return nil
	})

	// run Websocket server
	group.Go(func() error {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)

		if wsErr := wsServer.Start(groupCtx, conf.SocketPort); wsErr != nil {
			return fmt.Errorf("WebSocket server error: %w", wsErr)
		}

		return nil
	})

	if err = group.Wait(); err != nil {
		return err
	}

	log.Info("Application context canceled, shutting down")

	return nil
}
