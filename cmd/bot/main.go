package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/bot"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/gateway"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/persistence"
	"github.com/spec-kit/ticket-bot/internal/rating"
	"github.com/spec-kit/ticket-bot/internal/registry"
	"github.com/spec-kit/ticket-bot/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := persistence.NewStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to init snapshot store", zap.Error(err))
	}
	defer store.Close()

	snapshot, err := store.Load(ctx)
	if err != nil {
		logger.Warn("snapshot load failed, starting empty", zap.Error(err))
		snapshot = persistence.EmptySnapshot()
	}
	logger.Info("snapshot loaded",
		zap.Int("tickets", len(snapshot.Tickets)),
		zap.Int("staff_ratings", len(snapshot.StaffRatings)))

	tickets := registry.New(snapshot.Tickets)
	ratings := rating.NewLedger(snapshot.StaffRatings)
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	gw := gateway.NewHTTPGateway(cfg.Gateway, logger, metrics)

	ticketService := service.NewTicketService(service.TicketDependencies{
		Registry:   tickets,
		Ratings:    ratings,
		Store:      store,
		Gateway:    gw,
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     cfg.Ticket,
	})
	ratingService := service.NewRatingService(ratings, gw, cfg.Ticket)

	auditService := service.NewAuditService(dispatcher, gw, logger, cfg.Ticket.LogChannelID)
	auditService.RegisterHandlers()

	front := bot.New(gw, ticketService, ratingService, logger, cfg.Ticket, cfg.Gateway.BotUserID)
	front.Register()

	go func() {
		if err := gw.Start(cfg.App.Addr()); err != nil {
			logger.Fatal("gateway listen", zap.Error(err))
		}
	}()

	if err := front.PublishPanel(ctx); err != nil {
		logger.Warn("panel publish failed", zap.Error(err))
	}

	waitForShutdown(logger)

	_ = gw.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
