package appointments

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatusTable(t *testing.T) {
	all := []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted}
	legal := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusCompleted}: true,
		{StatusConfirmed, StatusCancelled}: true,
	}
	for _, from := range all {
		for _, to := range all {
			got, err := NextStatus(from, to)
			if legal[[2]Status{from, to}] {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, got)
				continue
			}
			require.ErrorIs(t, err, ErrIllegalTransition, "%s -> %s", from, to)
			assert.Equal(t, from, got)
		}
	}
}

func TestCancelledCannotBeCompleted(t *testing.T) {
	_, err := NextStatus(StatusCancelled, StatusCompleted)
	require.Error(t, err)

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, StatusCancelled, te.From)
	assert.Equal(t, StatusCompleted, te.To)
	assert.Equal(t, "appointment is already cancelled and cannot be changed", err.Error())
}

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"pending":    StatusPending,
		" Confirmed": StatusConfirmed,
		"cancelled":  StatusCancelled,
		"canceled":   StatusCancelled,
		"COMPLETED":  StatusCompleted,
	}
	for in, want := range tests {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseStatus("rescheduled")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusConfirmed.Terminal())
	assert.True(t, StatusPending.Active())
	assert.False(t, StatusCancelled.Active())
	assert.Equal(t, []Status{StatusConfirmed, StatusCancelled}, AllowedNext(StatusPending))
	assert.Empty(t, AllowedNext(StatusCompleted))
}
