package bus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObserver struct {
	emitCount      int
	deliveredCount int
	lastErr        error
}

func (o *testObserver) OnEmit(_ string, _ Event) {
	o.emitCount++
}

func (o *testObserver) OnDelivered(_ string, listeners int, err error, _ int64) {
	o.deliveredCount += listeners
	o.lastErr = err
}

func TestEmitReachesAllListeners(t *testing.T) {
	b := New()
	var a, c int
	b.On("x", func(Event) error { a++; return nil })
	b.On("x", func(Event) error { c++; return nil })

	require.NoError(t, b.Emit(Event{Type: "x"}))
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, c)
}

func TestOffStopsOnlyThatListener(t *testing.T) {
	b := New()
	var a, c int
	subA := b.On("x", func(Event) error { a++; return nil })
	b.On("x", func(Event) error { c++; return nil })

	require.NoError(t, b.Off(subA))
	require.NoError(t, b.Emit(Event{Type: "x"}))

	assert.Equal(t, 0, a)
	assert.Equal(t, 1, c)
	assert.False(t, subA.IsActive())
	assert.Equal(t, 1, b.ListenerCount("x"))
}

func TestOffLastListenerFreesBucket(t *testing.T) {
	b := New()
	sub := b.On("x", func(Event) error { return nil })
	require.NoError(t, sub.Cancel())
	require.NoError(t, sub.Cancel())
	assert.Equal(t, 0, b.ListenerCount("x"))
	assert.Equal(t, 0, len(b.(*inMemoryBus).listeners))
	assert.NoError(t, b.Off(nil))
}

func TestOnceFiresExactlyOnce(t *testing.T) {
	b := New()
	calls := 0
	b.Once("x", func(Event) error { calls++; return nil })

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Emit(Event{Type: "x"}))
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.ListenerCount("x"))
}

func TestOnceCanBeCancelledBeforeFiring(t *testing.T) {
	b := New()
	calls := 0
	sub := b.Once("x", func(Event) error { calls++; return nil })

	require.NoError(t, b.Off(sub))
	require.NoError(t, b.Emit(Event{Type: "x"}))
	assert.Equal(t, 0, calls)
}

func TestOnceIsNotReenteredByNestedEmit(t *testing.T) {
	b := New()
	calls := 0
	b.Once("x", func(Event) error {
		calls++
		return b.Emit(Event{Type: "x"})
	})
	require.NoError(t, b.Emit(Event{Type: "x"}))
	assert.Equal(t, 1, calls)
}

func TestFailingListenerDoesNotStopOthers(t *testing.T) {
	b := New()
	boom := errors.New("boom")
	ran := 0
	b.On("x", func(Event) error { return boom })
	b.On("x", func(Event) error { panic("kaboom") })
	b.On("x", func(Event) error { ran++; return nil })

	err := b.Emit(Event{Type: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrListenerPanic)
	assert.Equal(t, 1, ran)
}

func TestListenerAddedDuringEmitWaitsForNextEmit(t *testing.T) {
	b := New()
	late := 0
	b.On("x", func(Event) error {
		b.On("x", func(Event) error { late++; return nil })
		return nil
	})

	require.NoError(t, b.Emit(Event{Type: "x"}))
	assert.Equal(t, 0, late)
	assert.Equal(t, 2, b.ListenerCount("x"))
}

func TestEmitStampsTimestamp(t *testing.T) {
	b := New()
	var got Event
	b.On("x", func(e Event) error { got = e; return nil })

	before := time.Now()
	require.NoError(t, b.Emit(Event{Type: "x", Data: map[string]any{"k": 1}}))
	assert.False(t, got.Timestamp.Before(before))
	assert.Equal(t, 1, got.Data["k"])

	fixed := time.Unix(100, 0)
	require.NoError(t, b.Emit(Event{Type: "x", Timestamp: fixed}))
	assert.Equal(t, fixed, got.Timestamp)
}

func TestClear(t *testing.T) {
	b := New()
	sub := b.On("x", func(Event) error { return nil })
	b.On("y", func(Event) error { return nil })

	b.Clear()
	assert.Equal(t, 0, b.ListenerCount("x"))
	assert.Equal(t, 0, b.ListenerCount("y"))
	assert.False(t, sub.IsActive())
}

func TestObserverMetricsOptional(t *testing.T) {
	b := New()
	// without observer, metrics should remain zero despite activity
	b.On("e", func(Event) error { return nil })
	_ = b.Emit(NewEvent("e", "s", nil))
	m := b.Metrics()
	assert.Zero(t, m.Emitted)
	assert.Zero(t, m.DeliveredHandlers)

	obs := &testObserver{}
	b.AddObserver(obs)
	_ = b.Emit(NewEvent("e", "s", nil))
	m = b.Metrics()
	assert.EqualValues(t, 1, m.Emitted)
	assert.EqualValues(t, 1, m.DeliveredHandlers)
	assert.EqualValues(t, 1, m.ListenersActive)
	assert.Equal(t, 1, obs.emitCount)
	assert.Equal(t, 1, obs.deliveredCount)

	b.RemoveObserver(obs)
	_ = b.Emit(NewEvent("e", "s", nil))
	assert.Equal(t, 1, obs.emitCount)
}
