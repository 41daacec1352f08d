package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcdev12/foguetinho/go/internal/outbox"
)

func TestConsumerConfig(t *testing.T) {
	t.Setenv("NATS_URL", "nats://events.internal:4222")

	cfg := consumerConfig(nil)
	assert.Equal(t, "nats://events.internal:4222", cfg.URL)
	assert.Equal(t, outbox.DefaultConsumerConfig().SubjectFilter, cfg.SubjectFilter)

	cfg = consumerConfig([]string{"cashout"})
	assert.Equal(t, "foguetinho.events.cashout", cfg.SubjectFilter)
	assert.Equal(t, "foguetinho-tail-cashout", cfg.ConsumerName)
}

func TestRun_ReturnsConnectError(t *testing.T) {
	t.Setenv("NATS_URL", "nats://127.0.0.1:1")

	err := run(nil)
	assert.ErrorContains(t, err, "failed to create consumer")
}
