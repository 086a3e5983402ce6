package papersources

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camrobjones/papernet/internal/domain"
)

func TestMemoryStore_Ledger(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)

	last, err := store.LastCall(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	for _, u := range []string{"a", "b", "c"} {
		require.NoError(t, store.RecordCall(ctx, &domain.RequestLog{URL: u}))
	}

	last, err = store.LastCall(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", last.URL)
	assert.NotEqual(t, uuid.Nil, last.ID)

	calls := store.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "b", calls[0].URL)
}

func TestMemoryStore_Cache(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	body, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), body)

	now = now.Add(2 * time.Minute)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = store.Get(ctx, "missing")
	assert.False(t, ok)
}
