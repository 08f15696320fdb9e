package cache

import (
	"context"
	"testing"
	"time"

	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testVerdict(summary string) *core.Verdict {
	return &core.Verdict{
		Tier:      core.TierImportant,
		Summary:   summary,
		Deadlines: []string{},
		Links:     []string{},
		ModelUsed: "test-model",
	}
}

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	defer c.Stop()

	_, ok := c.Get("msg-1")
	assert.False(t, ok)

	c.Set("msg-1", testVerdict("Pay invoice"), time.Hour)

	got, ok := c.Get("msg-1")
	require.True(t, ok)
	assert.Equal(t, "Pay invoice", got.Summary)
	assert.Equal(t, core.TierImportant, got.Tier)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	defer c.Stop()

	c.Set("msg-1", testVerdict("Short lived"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("msg-1")
	assert.False(t, ok)
}

func TestMemoryCacheOverwrite(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	defer c.Stop()

	c.Set("msg-1", testVerdict("first"), time.Hour)
	c.Set("msg-1", testVerdict("second"), time.Hour)

	got, ok := c.Get("msg-1")
	require.True(t, ok)
	assert.Equal(t, "second", got.Summary)
}

func TestMemoryCacheCleanup(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	defer c.Stop()

	c.Set("expired", testVerdict("old"), 10*time.Millisecond)
	c.Set("fresh", testVerdict("new"), time.Hour)
	time.Sleep(30 * time.Millisecond)

	require.NoError(t, c.Cleanup(context.Background()))

	_, ok := c.Get("expired")
	assert.False(t, ok)
	_, ok = c.Get("fresh")
	assert.True(t, ok)
}
