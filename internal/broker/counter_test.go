package broker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionCounterUnlimited(t *testing.T) {
	c := NewConnectionCounter(0)
	for i := 0; i < 100; i++ {
		assert.True(t, c.TryIncrement())
	}
	assert.EqualValues(t, 100, c.Count())
}

func TestConnectionCounterEnforcesMax(t *testing.T) {
	c := NewConnectionCounter(2)

	assert.True(t, c.TryIncrement())
	assert.True(t, c.TryIncrement())
	assert.False(t, c.TryIncrement(), "third connection over max=2 must be refused")
	assert.EqualValues(t, 2, c.Count(), "refused increment must not leave count incremented")
}

func TestConnectionCounterDecrementFreesSlot(t *testing.T) {
	c := NewConnectionCounter(1)
	assert.True(t, c.TryIncrement())
	assert.False(t, c.TryIncrement())

	c.Decrement()
	assert.True(t, c.TryIncrement())
}

func TestConnectionCounterConcurrentAdmission(t *testing.T) {
	c := NewConnectionCounter(10)
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.TryIncrement() {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, admitted)
	assert.EqualValues(t, 10, c.Count())
}
