package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a live broker: STOREFRONT_TEST_AMQP_URL=amqp://...
func dialTestPublisher(t *testing.T) *Publisher {
	t.Helper()
	url := os.Getenv("STOREFRONT_TEST_AMQP_URL")
	if url == "" {
		t.Skip("STOREFRONT_TEST_AMQP_URL not set")
	}
	p, err := Dial(url, "storefront_test_"+uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestPublisher_confirmsEachMessage(t *testing.T) {
	p := dialTestPublisher(t)
	require.NoError(t, p.Ping())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.PublishOrderPlaced(ctx, sampleOrder()))
	}
}

func TestPublisher_expiredContextReturnsAndLeavesChannelUsable(t *testing.T) {
	p := dialTestPublisher(t)

	expired, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.PublishOrderPlaced(expired, sampleOrder()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, p.PublishOrderPlaced(ctx, sampleOrder()))
}
