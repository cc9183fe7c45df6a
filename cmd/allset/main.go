package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aofbiz/allset/internal/auth"
	"github.com/aofbiz/allset/internal/config"
	"github.com/aofbiz/allset/internal/handler"
	"github.com/aofbiz/allset/internal/logger"
	"github.com/aofbiz/allset/internal/service"
	"github.com/aofbiz/allset/internal/service/sessioncache"
	"github.com/aofbiz/allset/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}
	defer zaplog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := store.NewStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	// без Redis токен курьера живет только в памяти процесса
	var sessions sessioncache.Cache
	if cfg.Service.RedisAddr != "" {
		sessions, err = sessioncache.NewRedisCache(ctx, cfg.Service.RedisAddr, cfg.Service.RedisPassword)
		if err != nil {
			return err
		}
	} else {
		sessions = sessioncache.NewMemoryCache()
	}
	defer sessions.Close()

	auth := auth.NewAuth(cfg.Auth, store, zaplog)
	service := service.NewService(cfg.Service, store, sessions, zaplog)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return service.Run(gctx)
	})
	g.Go(func() error {
		err := handler.Serve(gctx, cfg.Handler, auth, service, zaplog)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	err = g.Wait()
	zaplog.Info("allset stopped", zap.Error(err))
	return err
}
