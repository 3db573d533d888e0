package records_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saakshiraut28/roastarena/internal/records"
)

func TestMemoryStoreCreateAndList(t *testing.T) {
	store := records.NewMemoryStore()
	ctx := context.Background()

	first, err := store.Create(ctx, "first", "sig-1")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "first", first.Text)
	assert.Equal(t, int64(0), first.Laugh)
	assert.Equal(t, "sig-1", first.PaymentSignature)
	assert.False(t, first.CreatedAt.IsZero())

	time.Sleep(time.Millisecond)
	second, err := store.Create(ctx, "second", "sig-2")
	require.NoError(t, err)

	recs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// Newest first.
	assert.Equal(t, second.ID, recs[0].ID)
	assert.Equal(t, first.ID, recs[1].ID)
}

func TestMemoryStoreAddLaugh(t *testing.T) {
	store := records.NewMemoryStore()
	ctx := context.Background()

	rec, err := store.Create(ctx, "joke", "sig")
	require.NoError(t, err)

	updated, err := store.AddLaugh(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Laugh)

	updated, err = store.AddLaugh(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Laugh)

	_, err = store.AddLaugh(ctx, "does-not-exist")
	assert.ErrorIs(t, err, records.ErrNotFound)
}
