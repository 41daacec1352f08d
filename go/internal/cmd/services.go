package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/foguetinho/go/internal/admin"
	"github.com/mcdev12/foguetinho/go/internal/events"
	"github.com/mcdev12/foguetinho/go/internal/game"
	"github.com/mcdev12/foguetinho/go/internal/gateway"
	"github.com/mcdev12/foguetinho/go/internal/ledger"
	"github.com/mcdev12/foguetinho/go/internal/metrics"
	"github.com/mcdev12/foguetinho/go/internal/outbox"
	"github.com/mcdev12/foguetinho/go/internal/storage"
	"github.com/mcdev12/foguetinho/go/internal/users"
)

type Services struct {
	Scheduler *game.Scheduler
	Users     *users.Service
	Ledger    *ledger.Service
	Gateway   *gateway.Service
	Admin     *admin.Service
	// Outbox is nil unless NATS_URL is configured
	Outbox *outbox.Worker

	store     storage.Store
	publisher *outbox.JetStreamPublisher
	wg        sync.WaitGroup
}

func setupServices(ctx context.Context, config *Config, store storage.Store) (*Services, error) {
	// Wire up dependency injection chain
	// Store → Scheduler → Ledger → Gateway → Admin, all joined by the bus
	clock := clockwork.NewRealClock()
	bus := events.NewBus()

	sampler, err := game.NewRandomSampler()
	if err != nil {
		return nil, fmt.Errorf("failed to seed threshold sampler: %w", err)
	}
	scheduler := game.NewScheduler(store, bus,
		game.WithClock(clock),
		game.WithSampler(sampler),
		game.WithConfig(config.gameConfig()),
		game.WithMode(config.Game.Mode),
	)

	// Users
	usersApp := users.NewApp(store, config.Users.InitialBalance, clock)
	usersService := users.NewService(usersApp)

	// Ledger
	ledgerApp := ledger.NewApp(store, scheduler, bus, clock)
	ledgerService := ledger.NewService(ledgerApp)

	// Gateway
	gatewayService := gateway.NewService(gateway.DefaultConfig(), scheduler)

	// Admin
	if config.Admin.User == "" || config.Admin.Password == "" {
		log.Warn().Msg("ADMIN_USER/ADMIN_PASSWORD not set; admin login disabled")
	}
	sessions := admin.NewSessionStore(config.Admin.SessionTTL, clock)
	adminApp := admin.NewApp(admin.Credentials{
		User:     config.Admin.User,
		Password: config.Admin.Password,
	}, sessions, scheduler, ledgerApp)
	adminService := admin.NewService(adminApp)

	// Subscription order matters: bets are settled before round_end reaches clients.
	bus.Subscribe(ledgerApp)
	bus.Subscribe(gatewayService)
	bus.Subscribe(metrics.NewRecorder())

	services := &Services{
		Scheduler: scheduler,
		Users:     usersService,
		Ledger:    ledgerService,
		Gateway:   gatewayService,
		Admin:     adminService,
		store:     store,
	}

	if config.Outbox.NATSURL != "" {
		jsCfg := outbox.DefaultJetStreamConfig()
		jsCfg.URL = config.Outbox.NATSURL
		publisher, err := outbox.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		bus.Subscribe(outbox.NewRecorder(store, clock))
		services.publisher = publisher
		services.Outbox = outbox.NewWorker(store, publisher, metrics.NewOutboxMetrics(), config.outboxConfig(), clock)
	} else {
		log.Info().Msg("NATS_URL not set; outbox relay disabled")
	}

	return services, nil
}

// Start launches the background loops. They stop when ctx is cancelled.
func (s *Services) Start(ctx context.Context) error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Gateway.Start(ctx)
	}()

	if s.Outbox != nil {
		if err := s.Outbox.Start(ctx); err != nil {
			return fmt.Errorf("failed to start outbox worker: %w", err)
		}
	}

	s.Scheduler.Start(ctx)
	return nil
}

// Close stops the scheduler first so no event is published into a closed
// gateway or store.
func (s *Services) Close() {
	s.Scheduler.Stop()
	if s.Outbox != nil {
		if err := s.Outbox.Stop(); err != nil {
			log.Warn().Err(err).Msg("outbox worker stop")
		}
	}
	s.wg.Wait()
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if err := s.store.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close store")
	}
}
