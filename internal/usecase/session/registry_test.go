package session

import (
	"context"
	"testing"
	"time"

	"browser-replay/internal/domain/entity"
	"browser-replay/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RoutesInputBySessionID(t *testing.T) {
	r := NewRegistry(DefaultConfig(), logger.NewNop())
	a := r.Create("first")
	b := r.Create("second")
	require.NoError(t, a.Start())
	require.NoError(t, b.Start())

	doneA := request(a, context.Background(), InputSpec{Field: "x"})
	doneB := request(b, context.Background(), InputSpec{Field: "y"})
	waitPending(t, a)
	waitPending(t, b)

	req, err := r.PendingInput(b.ID())
	require.NoError(t, err)
	assert.Equal(t, "y", req.FieldName)

	require.NoError(t, r.ProvideInput(b.ID(), "for-b"))
	require.NoError(t, r.ProvideInput(a.ID(), "for-a"))

	assert.Equal(t, "for-a", (<-doneA).value)
	assert.Equal(t, "for-b", (<-doneB).value)

	_, err = r.PendingInput(a.ID())
	assert.ErrorIs(t, err, entity.ErrNoPendingInput)
}

func TestRegistry_UnknownSession(t *testing.T) {
	r := NewRegistry(DefaultConfig(), logger.NewNop())

	_, err := r.Get("nope")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
	assert.ErrorIs(t, r.ProvideInput("nope", "v"), entity.ErrSessionNotFound)
	assert.ErrorIs(t, r.Cancel("nope"), entity.ErrSessionNotFound)
	assert.ErrorIs(t, r.Delete("nope"), entity.ErrSessionNotFound)
}

func TestRegistry_DeleteCancelsLiveSession(t *testing.T) {
	r := NewRegistry(Config{InputTimeout: time.Minute}, logger.NewNop())
	s := r.Create("x")
	require.NoError(t, s.Start())
	done := request(s, context.Background(), InputSpec{Field: "a"})
	waitPending(t, s)

	require.NoError(t, r.Delete(s.ID()))
	assert.ErrorIs(t, (<-done).err, entity.ErrSessionCancelled)
	_, err := r.Get(s.ID())
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestRegistry_ListAndListeners(t *testing.T) {
	r := NewRegistry(DefaultConfig(), logger.NewNop())
	events := make(chan entity.SessionEvent, 4)
	r.OnStatusChange(func(e entity.SessionEvent) { events <- e })

	first := r.Create("one")
	time.Sleep(time.Millisecond)
	second := r.Create("two")
	require.NoError(t, second.Start())

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID(), list[0].ID)
	assert.Equal(t, second.ID(), list[1].ID)

	e := <-events
	assert.Equal(t, second.ID(), e.SessionID)
	assert.Equal(t, entity.SessionRunning, e.To)

	require.NoError(t, r.Cancel(first.ID()))
	assert.Equal(t, entity.SessionCancelled, (<-events).To)
}
