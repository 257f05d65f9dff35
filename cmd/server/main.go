package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/table-order/internal/adapter/handler"
	"github.com/rl1809/table-order/internal/adapter/messaging"
	"github.com/rl1809/table-order/internal/adapter/sound"
	"github.com/rl1809/table-order/internal/adapter/storage"
	"github.com/rl1809/table-order/internal/config"
	"github.com/rl1809/table-order/internal/core/domain"
	"github.com/rl1809/table-order/internal/core/service"
	"github.com/rl1809/table-order/internal/port"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis (optional)
	var rdb *redis.Client
	var redisAdapter *storage.RedisAdapter
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		redisAdapter = storage.NewRedisAdapter(rdb)
		log.Println("connected to redis")
	}

	// Initialize order store
	store, db := openStore(ctx, cfg, redisAdapter)

	// Idempotency keys live in Redis when it is configured
	var opts []service.OrderServiceOption
	if redisAdapter != nil {
		opts = append(opts, service.WithCache(redisAdapter))
	} else {
		opts = append(opts, service.WithCache(storage.NewMemoryCache()))
	}

	// Initialize event publishing (optional)
	var (
		rabbit *messaging.RabbitPublisher
		events *service.EventQueue
	)
	if cfg.RabbitURL != "" {
		rabbit, err = messaging.DialRabbit(cfg.RabbitURL, cfg.Exchange)
		if err != nil {
			log.Fatalf("failed to connect rabbitmq: %v", err)
		}
		events = service.NewEventQueue(rabbit, cfg.EventQueue)
		events.Start(cfg.EventWorkers)
		opts = append(opts, service.WithPublisher(events))
		log.Printf("publishing order events to exchange %s with %d workers", cfg.Exchange, cfg.EventWorkers)
	}

	orderService := service.NewOrderService(store, opts...)

	// Initialize board; every dashboard view reads one shared subscription
	chime := sound.NewChime()
	players := sound.Multi{chime}
	if len(cfg.SoundCommand) > 0 {
		players = append(players, sound.NewCommand(cfg.SoundCommand[0], cfg.SoundCommand[1:]...))
	} else {
		players = append(players, sound.NewBell(os.Stdout))
	}
	alert := service.NewAlertDispatcher(players)
	alert.SetMuted(cfg.Muted)
	board := service.NewBoard(service.NewNotificationEngine(cfg.RecencyWindow, cfg.NotificationLimit), alert, nil)

	hub := service.NewFeedHub(store, domain.OrderQuery{})
	board.Attach(ctx, hub)

	hubDone := make(chan error, 1)
	go func() {
		hubDone <- hub.Run(ctx)
	}()

	menu := service.NewMenu(defaultMenu()...)

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterOrderServiceServer(grpcServer, handler.NewGRPCHandler(orderService, board, menu))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("tableorder.OrderService", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("gRPC server error: %v", err)
		}
	}()

	// Initialize HTTP server
	e := echo.New()
	e.HideBanner = true
	handler.NewHTTPHandler(orderService, board, menu, chime, cfg.RecentOrders).Register(e)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: e,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-hubDone:
		log.Printf("order feed stopped: %v", err)
	}

	log.Println("shutting down...")
	healthServer.Shutdown()

	// Stop HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	// Stop gRPC server
	grpcServer.GracefulStop()
	log.Println("gRPC server stopped")

	// Stop the feed and let in-flight cues finish
	board.Close()
	cancel()
	alert.Wait()
	log.Println("order feed stopped")

	// Drain queued events before closing the broker connection
	if events != nil {
		events.Close()
		rabbit.Close()
		log.Println("event workers stopped")
	}

	// Close connections
	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	log.Println("connections closed")
}

// openStore returns the configured order store, and the database handle when
// the store is SQL backed.
func openStore(ctx context.Context, cfg config.Config, redisAdapter *storage.RedisAdapter) (port.OrderStore, *sql.DB) {
	if cfg.Store == "memory" {
		log.Println("using in-memory order store")
		return storage.NewMemoryStore(), nil
	}

	dialect, err := storage.ParseDialect(cfg.Store)
	if err != nil {
		log.Fatalf("invalid store: %v", err)
	}
	db, err := storage.OpenDB(ctx, dialect, cfg.DSN)
	if err != nil {
		log.Fatalf("failed to connect %s: %v", dialect, err)
	}
	log.Printf("connected to %s", dialect)

	opts := []storage.SQLStoreOption{storage.WithPollInterval(cfg.PollInterval)}
	if redisAdapter != nil {
		opts = append(opts, storage.WithChangeSignal(redisAdapter))
	}
	store := storage.NewSQLStore(db, dialect, opts...)

	migrateCtx, migrateCancel := context.WithTimeout(ctx, 30*time.Second)
	defer migrateCancel()
	if err := store.Migrate(migrateCtx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}
	return store, db
}

func defaultMenu() []domain.MenuItem {
	price := decimal.RequireFromString
	return []domain.MenuItem{
		{ID: "spring-rolls", Name: "Spring Rolls", Price: price("5.50"), CategoryID: "starters", Available: true},
		{ID: "pho-bo", Name: "Pho Bo", Price: price("12.00"), CategoryID: "mains", Available: true},
		{ID: "bun-cha", Name: "Bun Cha", Price: price("11.50"), CategoryID: "mains", Available: true},
		{ID: "com-tam", Name: "Com Tam", Price: price("10.75"), CategoryID: "mains", Available: true},
		{ID: "iced-coffee", Name: "Iced Coffee", Price: price("3.75"), CategoryID: "drinks", Available: true},
		{ID: "lotus-tea", Name: "Lotus Tea", Price: price("2.50"), CategoryID: "drinks", Available: true},
	}
}
