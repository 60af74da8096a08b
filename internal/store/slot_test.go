package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mindful-trader/internal/errors"
)

func slots(t *testing.T) map[string]Slot {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileSlot(filepath.Join(dir, "files"))
	require.NoError(t, err)
	db, err := NewSQLiteSlot(filepath.Join(dir, "db", "mindful.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]Slot{
		"memory": NewMemorySlot(),
		"file":   file,
		"sqlite": db,
	}
}

func TestSlotRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, slot := range slots(t) {
		t.Run(name, func(t *testing.T) {
			data, err := slot.Load(ctx, "k")
			require.NoError(t, err)
			assert.Nil(t, data)

			require.NoError(t, slot.Save(ctx, "k", []byte(`[1]`)))
			require.NoError(t, slot.Save(ctx, "k", []byte(`[1,2]`)))
			data, err = slot.Load(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, `[1,2]`, string(data))

			require.NoError(t, slot.Remove(ctx, "k"))
			require.NoError(t, slot.Remove(ctx, "k"))
			data, err = slot.Load(ctx, "k")
			require.NoError(t, err)
			assert.Nil(t, data)
		})
	}
}

func TestFileSlotRejectsPathKeys(t *testing.T) {
	slot, err := NewFileSlot(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, slot.Save(context.Background(), "../escape", []byte("x")))
}

func TestQuotaSlot(t *testing.T) {
	ctx := context.Background()
	slot := WithQuota(NewMemorySlot(), 8)

	require.NoError(t, slot.Save(ctx, "k", []byte("12345678")))
	err := slot.Save(ctx, "k", []byte(strings.Repeat("x", 9)))
	assert.ErrorIs(t, err, apperrors.ErrQuotaExceeded)

	data, err := slot.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "12345678", string(data))

	_, unlimited := WithQuota(NewMemorySlot(), 0).(*MemorySlot)
	assert.True(t, unlimited)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"file", "sqlite", "memory"} {
		slot, err := Open(backend, dir, 1024)
		require.NoError(t, err, backend)
		require.NoError(t, slot.Close())
	}
	_, err := Open("redis", dir, 0)
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
}
