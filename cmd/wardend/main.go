// Command wardend runs the authentication server: SQLite-backed credential
// and login-log stores, a Redis session cache, and the HTTP API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wardenio/warden"
	"github.com/wardenio/warden/internal/httpapi"
	"github.com/wardenio/warden/store"
)

func main() {
	cfg := loadConfig()

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	wardenCfg := applyDefaults(warden.Config{}, cfg)

	sink := warden.NewChannelSink(cfg.EventBuffer)

	engine, logService, err := warden.New().
		WithConfig(wardenCfg).
		WithRedis(redisClient).
		WithUserProvider(store.NewUserStore(db)).
		WithLoginLogStore(store.NewLoginLogStore(db)).
		WithEventSink(sink).
		Build()
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}
	defer engine.Close()

	// Every login outcome the engine publishes becomes a login-log row.
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	go consumeEvents(consumerCtx, sink, logService)

	router := httpapi.NewServer(engine, logService).Router()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("wardend listening on :%s", cfg.Port)
		errCh <- router.Run(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("server: %v", err)
	case sig := <-quit:
		log.Printf("received %s, shutting down", sig)
	}
}

// consumeEvents drains the engine's event channel into the login log.
// Recording failures are logged and dropped; the log is an audit aid, not a
// ledger.
func consumeEvents(ctx context.Context, sink *warden.ChannelSink, logs *warden.LoginLogService) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-sink.Events():
			recordCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			recordCtx = warden.WithClientIP(recordCtx, event.IP)
			recordCtx = warden.WithUserAgent(recordCtx, event.UA)
			if _, err := logs.RecordEvent(recordCtx, event); err != nil {
				log.Printf("record login event for %q: %v", event.Account, err)
			}
			cancel()
		}
	}
}
