package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-relay-gate/internal/auth"
	"github.com/0gfoundation/0g-relay-gate/internal/config"
	"github.com/0gfoundation/0g-relay-gate/internal/relay"
	"github.com/0gfoundation/0g-relay-gate/internal/ticket"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Codec ─────────────────────────────────────────────────────────────────
	codec, err := ticket.NewCodec([]byte(cfg.Ticket.Secret), cfg.Ticket.BypassIssuer)
	if err != nil {
		log.Fatal("ticket codec init failed", zap.Error(err))
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	rdb := ticket.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis ping failed", zap.Error(err))
	}
	defer rdb.Close()

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: newEngine(cfg, codec, rdb, relay.NewLogDispatcher(log), log),
	}

	go func() {
		log.Info("HTTP server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("action_path", cfg.Server.ActionPath),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	log.Info("shutdown complete")
}

// newEngine builds the router: /healthz is open, the action path sits
// behind the shared-secret check and then ticket redemption.
func newEngine(cfg *config.Config, codec *ticket.Codec, rdb *redis.Client, disp relay.Dispatcher, log *zap.Logger) *gin.Engine {
	store := ticket.NewRedisStore(rdb, cfg.Ticket.KeyPrefix)
	issuer := ticket.NewIssuer(codec, store, cfg.Ticket.Issuer, cfg.Ticket.StoreTimeout(), log)
	redeemer := ticket.NewRedeemer(codec, store, cfg.Ticket.StoreTimeout(), log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	gated := r.Group("", auth.APIKey(cfg.Auth.APIKey), auth.Ticket(redeemer, log))
	relay.NewHandler(issuer, disp, relay.Options{
		ActionPath:        cfg.Server.ActionPath,
		LegacyMethodError: cfg.Server.LegacyMethodError,
	}, log).Register(gated)
	return r
}
