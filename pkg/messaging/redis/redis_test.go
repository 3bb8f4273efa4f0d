package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := zerolog.Nop()

	b, err := NewRedisBroker(Config{URL: "redis://" + mr.Addr()}, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	return b.(*RedisBroker), mr
}

func TestPublishSubscribe(t *testing.T) {
	b, _ := newTestBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := b.Subscribe(ctx, "counsel.events")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "counsel.events", map[string]string{"type": "appointment.created"}))

	select {
	case msg := <-msgs:
		var got map[string]string
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, "appointment.created", got["type"])
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestPublishRawBytesUnchanged(t *testing.T) {
	b, _ := newTestBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := b.Subscribe(ctx, "raw")
	require.NoError(t, err)

	raw := json.RawMessage(`{"id":"1"}`)
	require.NoError(t, b.Publish(ctx, "raw", raw))

	select {
	case msg := <-msgs:
		assert.JSONEq(t, `{"id":"1"}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestPublishFailsWhenServerDown(t *testing.T) {
	b, mr := newTestBroker(t)
	mr.Close()

	err := b.Publish(context.Background(), "counsel.events", "x")
	assert.Error(t, err)
}

func TestNewRedisBrokerBadURL(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewRedisBroker(Config{URL: "://nope"}, &logger)
	assert.Error(t, err)
}
