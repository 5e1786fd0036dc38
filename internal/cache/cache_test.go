package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"incident-insights-go/internal/types"
)

func TestKeyDependsOnKindCategoriesAndPayload(t *testing.T) {
	u := types.AnalysisUnit{Kind: types.KindVideo, Payload: []byte("frame")}
	cats := []string{"arson", "normal"}
	base := Key(u, cats)

	assert.Equal(t, base, Key(types.AnalysisUnit{Index: 99, Kind: types.KindVideo, Payload: []byte("frame")}, cats),
		"index must not affect the key")
	assert.NotEqual(t, base, Key(types.AnalysisUnit{Kind: types.KindText, Payload: []byte("frame")}, cats))
	assert.NotEqual(t, base, Key(u, []string{"arson"}))
	assert.NotEqual(t, base, Key(types.AnalysisUnit{Kind: types.KindVideo, Payload: []byte("other")}, cats))
}

func TestCacheable(t *testing.T) {
	assert.True(t, Cacheable(types.Classification{Category: "arson"}))
	assert.True(t, Cacheable(types.Classification{Category: "normal"}))
	assert.False(t, Cacheable(types.Classification{Category: "unknown"}))
	assert.False(t, Cacheable(types.Classification{Category: "error"}))
}

func TestMemoryExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, 10)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }

	m.Set(ctx, "k", types.Classification{Category: "arson", Confidence: 0.9})
	got, ok := m.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "arson", got.Category)

	now = now.Add(2 * time.Minute)
	_, ok = m.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour, 2)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }

	m.Set(ctx, "a", types.Classification{Category: "arson"})
	now = now.Add(time.Second)
	m.Set(ctx, "b", types.Classification{Category: "abuse"})
	now = now.Add(time.Second)
	_, _ = m.Get(ctx, "a")
	now = now.Add(time.Second)
	m.Set(ctx, "c", types.Classification{Category: "assault"})

	_, okA := m.Get(ctx, "a")
	_, okB := m.Get(ctx, "b")
	_, okC := m.Get(ctx, "c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
}
