package utils

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(4)
	require.NoError(t, err)
	assert.Len(t, code, 8) // hex doubles the byte count
	assert.Equal(t, strings.ToUpper(code), code)
}

func TestGenerateCode_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := GenerateCode(8)
		require.NoError(t, err)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestNewBookingReference(t *testing.T) {
	now := time.Now()

	ref, err := NewBookingReference(now)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "TKT-"), "ref = %s", ref)

	other, err := NewBookingReference(now)
	require.NoError(t, err)
	assert.NotEqual(t, ref, other, "same instant must still yield distinct refs")
}

func TestNewTicketCode(t *testing.T) {
	ref := "TKT-ABC123-FF00AA"

	a, err := NewTicketCode(ref, 1)
	require.NoError(t, err)
	b, err := NewTicketCode(ref, 1)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, ref+"-01-"))
	assert.NotEqual(t, a, b)
}

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		err := cb.Execute(ctx, func(context.Context) error { return nil })
		require.NoError(t, err)
	}

	assert.Equal(t, StateClosed, cb.CurrentState())
}

func TestCircuitBreaker_TripsOpenOnFailures(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 20; i++ {
		cb.Execute(ctx, func(context.Context) error { return boom })
	}

	assert.Equal(t, StateOpen, cb.CurrentState())

	err := cb.Execute(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.timeout = 10 * time.Millisecond
	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 20; i++ {
		cb.Execute(ctx, func(context.Context) error { return boom })
	}
	require.Equal(t, StateOpen, cb.CurrentState())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.CurrentState())

	err := cb.Execute(ctx, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.CurrentState())
}
