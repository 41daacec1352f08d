package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/foguetinho/go/internal/outbox"
)

// tail_events prints relayed events from JetStream as JSON lines
func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("tail_events failed")
	}
}

// consumerConfig narrows the durable consumer to one event type when args names one
func consumerConfig(args []string) outbox.ConsumerConfig {
	cfg := outbox.DefaultConsumerConfig()
	if url := os.Getenv("NATS_URL"); url != "" {
		cfg.URL = url
	}
	if len(args) > 0 {
		cfg.SubjectFilter = "foguetinho.events." + args[0]
		cfg.ConsumerName = "foguetinho-tail-" + args[0]
	}
	return cfg
}

func run(args []string) error {
	cfg := consumerConfig(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, err := outbox.NewConsumer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	defer consumer.Close()

	enc := json.NewEncoder(os.Stdout)
	if err := consumer.Run(ctx, func(_ context.Context, env outbox.Envelope) error {
		return enc.Encode(env)
	}); err != nil {
		return fmt.Errorf("consumer failed: %w", err)
	}
	return nil
}
