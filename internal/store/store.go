// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"fmt"
	"path/filepath"

	apperrors "mindful-trader/internal/errors"
)

// Slot is a local key-value persistence slot holding serialized documents.
type Slot interface {
	// Load returns the document stored under key, or nil when the key is unset.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save replaces the document stored under key.
	Save(ctx context.Context, key string, data []byte) error
	// Remove deletes key. Removing an unset key is not an error.
	Remove(ctx context.Context, key string) error
	// Close releases the slot.
	Close() error
}

// QuotaSlot caps the size of a single document, mimicking browser storage limits.
type QuotaSlot struct {
	Slot
	MaxBytes int64
}

// WithQuota wraps slot so that documents larger than maxBytes are refused.
// A non-positive maxBytes disables the limit.
func WithQuota(slot Slot, maxBytes int64) Slot {
	if maxBytes <= 0 {
		return slot
	}
	return &QuotaSlot{Slot: slot, MaxBytes: maxBytes}
}

// Save refuses documents over the quota and otherwise delegates.
func (q *QuotaSlot) Save(ctx context.Context, key string, data []byte) error {
	if int64(len(data)) > q.MaxBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", apperrors.ErrQuotaExceeded, len(data), q.MaxBytes)
	}
	return q.Slot.Save(ctx, key, data)
}

// Open creates the slot for a configured backend.
func Open(backend, dir string, quotaBytes int64) (Slot, error) {
	var (
		slot Slot
		err  error
	)
	switch backend {
	case "file":
		slot, err = NewFileSlot(dir)
	case "sqlite":
		slot, err = NewSQLiteSlot(filepath.Join(dir, "mindful.db"))
	case "memory":
		slot = NewMemorySlot()
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", apperrors.ErrConfigInvalid, backend)
	}
	if err != nil {
		return nil, err
	}
	return WithQuota(slot, quotaBytes), nil
}
