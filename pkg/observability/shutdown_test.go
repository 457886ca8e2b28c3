package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShutdownManager_ReverseOrder(t *testing.T) {
	sm := NewShutdownManager(NopLogger())

	var order []string
	sm.Register("db", func(context.Context) error { order = append(order, "db"); return nil })
	sm.Register("redis", func(context.Context) error { order = append(order, "redis"); return nil })
	sm.Register("otel", func(context.Context) error { order = append(order, "otel"); return nil })

	assert.NoError(t, sm.Shutdown(context.Background()))
	assert.Equal(t, []string{"otel", "redis", "db"}, order)
}

func TestShutdownManager_JoinsErrors(t *testing.T) {
	sm := NewShutdownManager(NopLogger())
	errA := errors.New("a failed")
	ran := false

	sm.Register("a", func(context.Context) error { return errA })
	sm.Register("b", func(context.Context) error { ran = true; return nil })

	err := sm.Shutdown(context.Background())
	assert.ErrorIs(t, err, errA)
	assert.Contains(t, err.Error(), "a:")
	assert.True(t, ran)
}

func TestShutdownManager_RunsOnce(t *testing.T) {
	sm := NewShutdownManager(NopLogger())
	calls := 0
	sm.Register("x", func(context.Context) error { calls++; return nil })

	assert.NoError(t, sm.Shutdown(context.Background()))
	assert.NoError(t, sm.Shutdown(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestRecoverPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		defer RecoverPanic(NopLogger(), "test")
		panic("boom")
	})
}
