package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	billingRepo "nestly/database/repository/billing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Run("passes through an already classified error", func(t *testing.T) {
		orig := newError(KindValidation, "calculateCharges", "res-1", errors.New("bad interval"))
		got := Classify("persistInvoice", "other", fmt.Errorf("wrapped: %w", orig))
		assert.Same(t, orig, got)
	})

	t.Run("already billed is business logic", func(t *testing.T) {
		got := Classify("persistInvoice", "res-1", fmt.Errorf("txn: %w", billingRepo.ErrAlreadyBilled))
		assert.Equal(t, KindBusinessLogic, got.Kind)
		assert.False(t, got.Retryable)
		assert.False(t, got.Critical())
	})

	t.Run("missing reference is business logic", func(t *testing.T) {
		got := Classify("calculateCharges", "res-1", fmt.Errorf("user u1: %w", billingRepo.ErrNotFound))
		assert.Equal(t, KindBusinessLogic, got.Kind)
	})

	t.Run("deadline exceeded is retryable network", func(t *testing.T) {
		got := Classify("persistInvoice", "res-1", context.DeadlineExceeded)
		assert.Equal(t, KindNetwork, got.Kind)
		assert.True(t, got.Retryable)
		assert.False(t, got.Critical())
	})

	t.Run("uncategorized is unknown and critical", func(t *testing.T) {
		got := Classify("persistInvoice", "res-1", errors.New("something odd"))
		assert.Equal(t, KindUnknown, got.Kind)
		assert.False(t, got.Retryable)
		assert.True(t, got.Critical())
	})
}

func TestErrorCritical(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		critical bool
	}{
		{KindNetwork, false},
		{KindValidation, false},
		{KindBusinessLogic, false},
		{KindPermission, true},
		{KindResourceLimit, true},
		{KindUnknown, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			e := newError(tt.kind, "op", "subject", errors.New("x"))
			assert.Equal(t, tt.critical, e.Critical())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	e := newError(KindNetwork, "op", "subject", cause)
	require.ErrorIs(t, e, cause)
}
