package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopCache_alwaysMisses(t *testing.T) {
	c := NewNopCache("storefront")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, c.Delete(ctx, "k"))
}

func TestGenerateKey_namespacesByService(t *testing.T) {
	c := NewNopCache("storefront")
	assert.Equal(t, "storefront:analytics:acct-1", c.GenerateKey("analytics", "acct-1"))
}

func TestPingAndClose_nopCacheAreNoops(t *testing.T) {
	c := NewNopCache("storefront")
	assert.NoError(t, Ping(context.Background(), c))
	assert.NoError(t, Close(c))
}
