package scheduler

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestFiresOncePerWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New()
	count := 0
	s.Register("sample", time.Second, clock.Now(), func() { count++ })

	// 1000ms in 100ms steps
	for i := 0; i < 10; i++ {
		clock.Advance(100 * time.Millisecond)
		s.Tick(clock.Now())
	}
	assert.Equal(t, 1, count)
}

func TestDoesNotFireBeforeInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New()
	count := 0
	s.Register("sample", time.Second, clock.Now(), func() { count++ })

	for i := 0; i < 9; i++ {
		clock.Advance(100 * time.Millisecond)
		s.Tick(clock.Now())
	}
	assert.Equal(t, 0, count)
}

func TestRegistrationOrder(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New()
	var order []string
	s.Register("sample", time.Second, start, func() { order = append(order, "sample") })
	s.Register("console", 2*time.Second, start, func() { order = append(order, "console") })
	s.Register("upload", 30*time.Second, start, func() { order = append(order, "upload") })
	assert.Equal(t, 3, s.Len())

	assert.Equal(t, 1, s.Tick(start.Add(time.Second)))
	assert.Equal(t, 2, s.Tick(start.Add(2*time.Second)))
	assert.Equal(t, []string{"sample", "sample", "console"}, order)
}

func TestNoCatchUp(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New()
	count := 0
	s.Register("sample", time.Second, start, func() { count++ })

	// a stalled loop misses several windows, the task fires once
	s.Tick(start.Add(5500 * time.Millisecond))
	assert.Equal(t, 1, count)

	// the next firing is measured from the late tick, not the missed slots
	s.Tick(start.Add(6 * time.Second))
	assert.Equal(t, 1, count)
	s.Tick(start.Add(6500 * time.Millisecond))
	assert.Equal(t, 2, count)
}
