package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("wizard: %w", NewValidationError("entryPrice", "", "entry price is required"))

	assert.True(t, Is(err, ErrInputValidation))
	var ve *ValidationError
	assert.True(t, As(err, &ve))
	assert.Equal(t, "entryPrice", ve.Field)
	assert.Equal(t, "validation error: entryPrice: entry price is required", ve.Error())
}

func TestStorageErrorIsWarning(t *testing.T) {
	err := Wrap(NewStorageError("save", "mindful_trades", ErrQuotaExceeded), "add trade")

	assert.True(t, IsWarning(err))
	assert.True(t, Is(err, ErrQuotaExceeded))
	assert.False(t, IsWarning(ErrTradeNotFound))
}

func TestImportErrorMatchesMalformed(t *testing.T) {
	err := NewImportError("document is not a list", nil)

	assert.True(t, Is(err, ErrMalformedImport))
	assert.Equal(t, "import rejected: document is not a list", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, Wrapf(nil, "ignored %d", 1))
}
