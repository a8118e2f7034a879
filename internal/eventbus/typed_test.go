package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepEvent struct {
	Index int
	Mean  float64
}

func TestTypedBusPublishSubscribe(t *testing.T) {
	bus := NewTyped[stepEvent](0)
	ch := bus.Subscribe()
	bus.Publish(stepEvent{Index: 3, Mean: 1.5})
	v := <-ch
	assert.Equal(t, stepEvent{Index: 3, Mean: 1.5}, v)
	bus.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestTypedBusFanOut(t *testing.T) {
	bus := NewTyped[int](4)
	a, b := bus.Subscribe(), bus.Subscribe()
	bus.Publish(7)
	assert.Equal(t, 7, <-a)
	assert.Equal(t, 7, <-b)
}

func TestTypedBusCountsDrops(t *testing.T) {
	bus := NewTyped[int](2)
	ch := bus.Subscribe()
	for i := 0; i < 5; i++ {
		bus.Publish(i)
	}
	assert.Equal(t, uint64(3), bus.Dropped())
	assert.Equal(t, 0, <-ch)
	assert.Equal(t, 1, <-ch)
}

func TestTypedBusClose(t *testing.T) {
	bus := NewTyped[int](0)
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	_, ok := <-ch1
	assert.False(t, ok)
	_, ok = <-ch2
	assert.False(t, ok)

	late := bus.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscribing after Close yields a closed channel")
	bus.Publish(1)
}

func TestTypedBusUnsubscribeAfterClose(t *testing.T) {
	bus := NewTyped[float64](0)
	ch := bus.Subscribe()
	bus.Close()
	require.NotPanics(t, func() { bus.Unsubscribe(ch) })
}
