package main // Entry point package

import (
	"context"
	"log" // Logging library
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/neiloy-neil/tiki-taka-backend/internal/cache"
	"github.com/neiloy-neil/tiki-taka-backend/internal/config"
	"github.com/neiloy-neil/tiki-taka-backend/internal/database"
	"github.com/neiloy-neil/tiki-taka-backend/internal/handler"
	"github.com/neiloy-neil/tiki-taka-backend/internal/payment"
	"github.com/neiloy-neil/tiki-taka-backend/internal/queue"
	"github.com/neiloy-neil/tiki-taka-backend/internal/realtime"
	"github.com/neiloy-neil/tiki-taka-backend/internal/repository"
	"github.com/neiloy-neil/tiki-taka-backend/internal/router"
	"github.com/neiloy-neil/tiki-taka-backend/internal/service/booking"
	"github.com/neiloy-neil/tiki-taka-backend/internal/worker"
)

func main() {
	_ = godotenv.Load() // best-effort; real deployments set the environment directly
	cfg := config.Load()

	// The seat state store is the single source of truth; failing to
	// reach it is a fatal startup error (nonzero exit).
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database unreachable: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it the hold mirror and the rate
	// limiter are disabled and correctness is unaffected.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; hold cache and rate limiting disabled")
	}
	holdCache := cache.NewHoldCache(rdb)

	// Broadcast sinks: the in-process hub always runs; the broker sink
	// fans deltas out to other nodes and the WebSocket edge.
	hub := realtime.NewHub()
	amqpSink := realtime.NewAMQPSink()
	defer amqpSink.Close()
	broadcast := realtime.Tee{hub, amqpSink}

	seatRepo := repository.NewSeatStateRepo(db)
	holdRepo := repository.NewHoldRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	ticketRepo := repository.NewTicketRepo(db)
	eventRepo := repository.NewEventRepo(db)

	var provider payment.Provider = payment.MockProvider{}
	if !cfg.MockPayments() {
		provider = payment.NewRESTProvider(cfg.PaymentProviderKey)
	} else {
		log.Printf("no payment provider key; running in mock-succeed mode")
	}

	notifier := queue.NewProducer(cfg.KafkaBrokers, cfg.NotificationsTopic)
	defer notifier.Close()

	arbiter := booking.NewArbiter(seatRepo, holdRepo, eventRepo, holdCache, broadcast, cfg.HoldTTL, cfg.MaxSeatsPerHold)
	coordinator := newCoordinator(cfg, seatRepo, holdRepo, orderRepo, ticketRepo, eventRepo, provider, notifier, holdCache, broadcast)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Background loops: hold expiration and the email dispatcher.
	expirer := worker.NewExpirer(holdRepo, seatRepo, holdCache, broadcast, cfg.ExpirySweepEvery)
	go expirer.Run(ctx)
	go queue.StartEmailConsumer(ctx, cfg.KafkaBrokers, cfg.NotificationsTopic)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterSeats(e, handler.NewSeatHandler(arbiter), rdb, cfg.JWTSecret, cfg.HoldsPerMinute)
	router.RegisterOrders(e, handler.NewOrderHandler(coordinator), cfg.JWTSecret)
	router.RegisterWebhooks(e, handler.NewWebhookHandler(coordinator, cfg.PaymentWebhookSecret))

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	go func() {
		if err := e.Start(addr); err != nil {
			log.Printf("http server stopped: %v", err)
		}
	}()

	// Block until SIGTERM/SIGINT, then drain: the worker stops
	// scheduling ticks via ctx and in-flight requests get a bounded
	// window to complete.
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Printf("bye")
}

// newCoordinator keeps main readable; wiring only.
func newCoordinator(cfg config.Config, seats *repository.SeatStateRepo, holds *repository.HoldRepo, orders *repository.OrderRepo, tickets *repository.TicketRepo, events *repository.EventRepo, provider payment.Provider, notifier *queue.Producer, holdCache *cache.HoldCache, broadcast realtime.Broadcaster) *booking.Coordinator {
	var n booking.Notifier
	if notifier != nil {
		n = notifier
	}
	return booking.NewCoordinator(seats, holds, orders, tickets, events, provider, n, holdCache, broadcast, cfg.MockPayments())
}
