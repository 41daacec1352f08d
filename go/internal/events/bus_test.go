package events

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var order []string

	bus.Subscribe(SubscriberFunc(func(ctx context.Context, ev Event) {
		order = append(order, "first:"+string(ev.EventType()))
	}))
	bus.Subscribe(SubscriberFunc(func(ctx context.Context, ev Event) {
		order = append(order, "second:"+string(ev.EventType()))
	}))

	bus.Publish(context.Background(), NewHello("r1"))

	assert.Equal(t, []string{"first:hello", "second:hello"}, order)
}

func TestPayloads_JSONShape(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected string
	}{
		{
			name:     "hello",
			event:    NewHello("r1"),
			expected: `{"type":"hello","roundId":"r1"}`,
		},
		{
			name:     "tick with bounded threshold",
			event:    NewTick("r1", 1.5, 2.5),
			expected: `{"type":"tick","roundId":"r1","multiplier":1.5,"crashAt":2.5}`,
		},
		{
			name:     "tick in manual mode",
			event:    NewTick("r1", 3.2, math.Inf(1)),
			expected: `{"type":"tick","roundId":"r1","multiplier":3.2,"crashAt":null}`,
		},
		{
			name:     "round end without next start",
			event:    NewRoundEnd("r1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 2, nil),
			expected: `{"type":"round_end","roundId":"r1","endTime":"2024-01-01T00:00:00Z","crashAt":2}`,
		},
		{
			name:     "cashout",
			event:    NewCashout("u1", "b1", 2, 200, 1100),
			expected: `{"type":"cashout","userId":"u1","betId":"b1","atMultiplier":2,"payout":200,"balance":1100}`,
		},
		{
			name:     "balance reset",
			event:    NewBalanceReset("u1", 1000),
			expected: `{"type":"balance_reset","userId":"u1","balance":1000}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.event)
			require.NoError(t, err)
			assert.JSONEq(t, tc.expected, string(data))
		})
	}
}

func TestNewRoundEnd_NextStartAtMillis(t *testing.T) {
	next := time.UnixMilli(1_700_000_001_000)
	ev := NewRoundEnd("r1", next.Add(-time.Second), 3.47, &next)

	require.NotNil(t, ev.NextStartAt)
	assert.Equal(t, int64(1_700_000_001_000), *ev.NextStartAt)
}
