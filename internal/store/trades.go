package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/models"
)

// DefaultKey is the slot key holding the trade collection.
const DefaultKey = "mindful_trades"

// legacyKeys are removed on load; early builds wrote test data under them.
var legacyKeys = []string{"mindful_trades_test"}

// TradeStore holds the ordered trade collection, newest first, and mirrors
// every mutation to a persistent slot. Memory is authoritative: a failed
// mirror write is reported as a *errors.StorageError and never rolled back.
type TradeStore struct {
	mu     sync.RWMutex
	trades []models.Trade
	slot   Slot
	key    string
	logger zerolog.Logger
}

// NewTradeStore creates an empty store mirrored to slot under key.
func NewTradeStore(slot Slot, key string, logger zerolog.Logger) *TradeStore {
	if key == "" {
		key = DefaultKey
	}
	return &TradeStore{
		slot:   slot,
		key:    key,
		logger: logger.With().Str("component", "store").Str("key", key).Logger(),
	}
}

// Load replaces memory with the slot contents. An unreadable or corrupt
// document leaves the store empty and is returned as a warning.
func (s *TradeStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range legacyKeys {
		if err := s.slot.Remove(ctx, k); err != nil {
			s.logger.Debug().Err(err).Str("legacy_key", k).Msg("Failed to remove legacy key")
		}
	}

	s.trades = nil
	data, err := s.slot.Load(ctx, s.key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read trade collection, starting empty")
		return apperrors.NewStorageError("load", s.key, err)
	}
	if len(data) == 0 {
		return nil
	}

	var trades []models.Trade
	if err := json.Unmarshal(data, &trades); err != nil {
		s.logger.Warn().Err(err).Msg("Stored trade collection is corrupt, starting empty")
		return apperrors.NewStorageError("load", s.key, err)
	}
	s.trades = trades
	s.logger.Debug().Int("count", len(trades)).Msg("Loaded trades")
	return nil
}

// Add prepends trade to the collection.
func (s *TradeStore) Add(ctx context.Context, trade models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = append([]models.Trade{trade.Clone()}, s.trades...)
	return s.persist(ctx, "add")
}

// Update replaces the trade whose id matches. Unknown ids are ignored.
func (s *TradeStore) Update(ctx context.Context, trade models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(trade.ID)
	if i < 0 {
		return nil
	}
	s.trades[i] = trade.Clone()
	return s.persist(ctx, "update")
}

// Remove deletes the trade with id. Unknown ids are ignored.
func (s *TradeStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	s.trades = append(s.trades[:i:i], s.trades[i+1:]...)
	return s.persist(ctx, "remove")
}

// ReplaceAll discards the collection and substitutes trades in the given order.
func (s *TradeStore) ReplaceAll(ctx context.Context, trades []models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = cloneAll(trades)
	return s.persist(ctx, "replace")
}

// Clear empties memory and deletes the slot document.
func (s *TradeStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = nil
	if err := s.slot.Remove(ctx, s.key); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clear trade collection")
		return apperrors.NewStorageError("clear", s.key, err)
	}
	return nil
}

// All returns a copy of the collection in display order.
func (s *TradeStore) All() []models.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.trades)
}

// Get returns a copy of the trade with id.
func (s *TradeStore) Get(id string) (models.Trade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Trade{}, false
	}
	return s.trades[i].Clone(), true
}

// Len returns the number of trades.
func (s *TradeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trades)
}

// Key returns the slot key the collection is mirrored under.
func (s *TradeStore) Key() string { return s.key }

func (s *TradeStore) indexOf(id string) int {
	for i := range s.trades {
		if s.trades[i].ID == id {
			return i
		}
	}
	return -1
}

// persist must be called with s.mu held.
func (s *TradeStore) persist(ctx context.Context, op string) error {
	trades := s.trades
	if trades == nil {
		trades = []models.Trade{}
	}
	data, err := json.MarshalIndent(trades, "", "  ")
	if err == nil {
		err = s.slot.Save(ctx, s.key, data)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("op", op).Int("count", len(s.trades)).Msg("Trade collection not persisted")
		return apperrors.NewStorageError(op, s.key, err)
	}
	return nil
}

func cloneAll(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, len(trades))
	for i := range trades {
		out[i] = trades[i].Clone()
	}
	return out
}
