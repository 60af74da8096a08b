package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/models"
)

// failingSlot accepts loads and removals but refuses every save.
type failingSlot struct{ *MemorySlot }

func (failingSlot) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func trade(id, date string) models.Trade {
	return models.Trade{
		ID:         id,
		Date:       date,
		Asset:      models.AssetES,
		Direction:  models.DirectionLong,
		EntryPrice: 100,
		StopLoss:   95,
		Status:     models.StatusOpen,
	}
}

func ids(trades []models.Trade) []string {
	out := make([]string, len(trades))
	for i, t := range trades {
		out[i] = t.ID
	}
	return out
}

func TestTradeStoreMutationsPersist(t *testing.T) {
	ctx := context.Background()
	slot := NewMemorySlot()
	s := NewTradeStore(slot, "", zerolog.Nop())

	require.NoError(t, s.Add(ctx, trade("a", "2024-01-01")))
	require.NoError(t, s.Add(ctx, trade("b", "2024-01-02")))
	assert.Equal(t, []string{"b", "a"}, ids(s.All()))

	updated := trade("a", "2024-01-01")
	updated.UserNotes = "patient entry"
	require.NoError(t, s.Update(ctx, updated))
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "patient entry", got.UserNotes)

	require.NoError(t, s.Update(ctx, trade("zzz", "2024-01-01")))
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.Remove(ctx, "b"))
	assert.Equal(t, []string{"a"}, ids(s.All()))

	data, err := slot.Load(ctx, DefaultKey)
	require.NoError(t, err)
	var persisted []models.Trade
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, s.All(), persisted)
}

func TestTradeStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewTradeStore(NewMemorySlot(), "", zerolog.Nop())
	tr := trade("a", "2024-01-01")
	tr.TakeProfit = models.Float(110)
	require.NoError(t, s.Add(ctx, tr))

	all := s.All()
	*all[0].TakeProfit = 1
	got, _ := s.Get("a")
	assert.Equal(t, 110.0, *got.TakeProfit)
}

func TestTradeStoreLoad(t *testing.T) {
	ctx := context.Background()
	slot := NewMemorySlot()
	data, _ := json.Marshal([]models.Trade{trade("x", "2024-02-01"), trade("y", "2024-01-31")})
	require.NoError(t, slot.Save(ctx, DefaultKey, data))
	require.NoError(t, slot.Save(ctx, "mindful_trades_test", []byte("[]")))

	s := NewTradeStore(slot, DefaultKey, zerolog.Nop())
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, []string{"x", "y"}, ids(s.All()))

	legacy, err := slot.Load(ctx, "mindful_trades_test")
	require.NoError(t, err)
	assert.Nil(t, legacy)
}

func TestTradeStoreLoadCorruptStartsEmpty(t *testing.T) {
	ctx := context.Background()
	slot := NewMemorySlot()
	require.NoError(t, slot.Save(ctx, DefaultKey, []byte("{not json")))

	s := NewTradeStore(slot, DefaultKey, zerolog.Nop())
	err := s.Load(ctx)
	assert.True(t, apperrors.IsWarning(err))
	assert.Equal(t, 0, s.Len())
}

func TestTradeStoreKeepsMemoryWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	s := NewTradeStore(failingSlot{NewMemorySlot()}, "", zerolog.Nop())

	err := s.Add(ctx, trade("a", "2024-01-01"))
	var se *apperrors.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "add", se.Op)
	assert.Equal(t, 1, s.Len())
}

func TestTradeStoreQuotaWarning(t *testing.T) {
	ctx := context.Background()
	s := NewTradeStore(WithQuota(NewMemorySlot(), 64), "", zerolog.Nop())

	err := s.Add(ctx, trade("a", "2024-01-01"))
	assert.ErrorIs(t, err, apperrors.ErrQuotaExceeded)
	assert.True(t, apperrors.IsWarning(err))
	assert.Equal(t, 1, s.Len())
}

func TestTradeStoreClear(t *testing.T) {
	ctx := context.Background()
	slot := NewMemorySlot()
	s := NewTradeStore(slot, "", zerolog.Nop())
	require.NoError(t, s.Add(ctx, trade("a", "2024-01-01")))

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())
	data, err := slot.Load(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Nil(t, data)
}

type storeOp struct {
	Kind int // 0 add, 1 update, 2 remove, 3 replaceAll
	ID   int
	Note int
}

// applyModel applies op to a plain slice with id-keyed semantics.
func applyModel(model []models.Trade, op storeOp) []models.Trade {
	id := fmt.Sprintf("t%d", op.ID)
	switch op.Kind {
	case 0:
		tr := trade(id, "2024-01-01")
		return append([]models.Trade{tr}, model...)
	case 1:
		for i := range model {
			if model[i].ID == id {
				model[i].UserNotes = fmt.Sprintf("n%d", op.Note)
				return model
			}
		}
	case 2:
		for i := range model {
			if model[i].ID == id {
				return append(model[:i:i], model[i+1:]...)
			}
		}
	case 3:
		return []models.Trade{trade(id, "2024-03-03")}
	}
	return model
}

func applyStore(ctx context.Context, s *TradeStore, op storeOp) {
	id := fmt.Sprintf("t%d", op.ID)
	switch op.Kind {
	case 0:
		_ = s.Add(ctx, trade(id, "2024-01-01"))
	case 1:
		if tr, ok := s.Get(id); ok {
			tr.UserNotes = fmt.Sprintf("n%d", op.Note)
			_ = s.Update(ctx, tr)
		}
	case 2:
		_ = s.Remove(ctx, id)
	case 3:
		_ = s.ReplaceAll(ctx, []models.Trade{trade(id, "2024-03-03")})
	}
}

func TestProperty_StoreMatchesSequentialModel(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	opGen := gopter.CombineGens(
		gen.Weighted([]gen.WeightedGen{
			{Weight: 5, Gen: gen.Const(0)},
			{Weight: 3, Gen: gen.Const(1)},
			{Weight: 3, Gen: gen.Const(2)},
			{Weight: 1, Gen: gen.Const(3)},
		}),
		gen.IntRange(0, 6),
		gen.IntRange(0, 9),
	).Map(func(v []interface{}) storeOp {
		return storeOp{Kind: v[0].(int), ID: v[1].(int), Note: v[2].(int)}
	})

	properties.Property("visible collection equals ordered application of operations", prop.ForAll(
		func(ops []storeOp) bool {
			ctx := context.Background()
			slot := NewMemorySlot()
			s := NewTradeStore(slot, "", zerolog.Nop())
			var model []models.Trade

			for _, op := range ops {
				applyStore(ctx, s, op)
				model = applyModel(model, op)
			}

			got := s.All()
			if len(got) != len(model) {
				return false
			}
			for i := range got {
				if got[i].ID != model[i].ID || got[i].UserNotes != model[i].UserNotes {
					return false
				}
			}

			// The persisted mirror reloads to the same collection.
			reloaded := NewTradeStore(slot, "", zerolog.Nop())
			if err := reloaded.Load(ctx); err != nil {
				return false
			}
			return assert.ObjectsAreEqual(got, reloaded.All())
		},
		gen.SliceOf(opGen),
	))

	properties.TestingRun(t)
}
