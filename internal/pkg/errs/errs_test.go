//go:build unit

package errs_test

import (
	"errors"
	"testing"

	"coursereg/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMark(t *testing.T) {
	sentinel := errs.New("invalid promo code")
	cause := errs.New("promo code is inactive")

	t.Run("sentinel is visible to errors.Is", func(t *testing.T) {
		err := errs.Mark(cause, sentinel)

		assert.ErrorIs(t, err, sentinel)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("message stays the cause's", func(t *testing.T) {
		err := errs.Mark(cause, sentinel)

		assert.Equal(t, "promo code is inactive", err.Error())
	})

	t.Run("sentinel survives further wrapping", func(t *testing.T) {
		err := errs.Wrap(errs.Mark(cause, sentinel), "creating registration")

		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("nil cause yields the bare sentinel", func(t *testing.T) {
		err := errs.Mark(nil, sentinel)

		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, sentinel.Error(), err.Error())
	})

	t.Run("unrelated sentinel does not match", func(t *testing.T) {
		other := errs.New("cohort not found")
		err := errs.Mark(cause, sentinel)

		assert.False(t, errors.Is(err, other))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		require.NoError(t, errs.Wrap(nil, "context"))
	})

	t.Run("adds context to the message", func(t *testing.T) {
		err := errs.Wrap(errs.New("boom"), "loading cohort")

		assert.Equal(t, "loading cohort: boom", err.Error())
	})
}
