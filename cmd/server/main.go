package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agriapp/internal/api"
	"agriapp/internal/auth"
	"agriapp/internal/comment"
	"agriapp/internal/config"
	"agriapp/internal/db"
	"agriapp/internal/logging"
	redisdb "agriapp/internal/redis"
	"agriapp/internal/user"

	"github.com/gin-gonic/gin"
)

func main() {
	path := os.Getenv("AGRIAPP_CONFIG")
	if path == "" {
		path = "config.json"
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, os.Stdout)
	gin.SetMode(cfg.Server.Mode)

	conn, err := db.Init(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	rdb := redisdb.NewClient(cfg)
	if rdb != nil {
		defer rdb.Close()
		log.Printf("[Main] presence tracking on %s (window %d min)", cfg.Redis.Addr, cfg.Redis.OnlineMinutes)
	} else {
		log.Printf("[Main] redis not configured; presence tracking disabled")
	}

	users := user.NewService(
		user.NewGormStore(conn),
		user.NewBcryptHasher(cfg.Security.BcryptCost),
		auth.NewManager(cfg.Server.JWTSecret, time.Duration(cfg.Server.TokenTTLHours)*time.Hour),
		user.WithLogger(logger.With("component", "user")),
		user.WithPageSizes(cfg.Users.DefaultPageSize, cfg.Users.MaxPageSize),
	)
	comments := comment.NewService(
		comment.NewGormStore(conn),
		comment.WithLogger(logger.With("component", "comment")),
	)

	r := api.SetupRouter(api.Deps{
		Config:   cfg,
		Users:    users,
		Comments: comments,
		Redis:    rdb,
		Logger:   logger.With("component", "http"),
	})
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[Main] starting server on %s%s", addr, cfg.Server.Subpath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Printf("[Main] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Main] shutdown: %v", err)
	}
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
