package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_AdvanceFiresDueTimersInOrder(t *testing.T) {
	t.Parallel()

	c := NewFake()
	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	c.AfterFunc(5*time.Second, func() { fired = append(fired, "c") })

	c.Advance(3 * time.Second)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, 1, c.Pending())

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestFake_Stop(t *testing.T) {
	t.Parallel()

	c := NewFake()
	called := false
	tm := c.AfterFunc(time.Second, func() { called = true })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	c.Advance(time.Minute)
	assert.False(t, called)
}

func TestFake_Now(t *testing.T) {
	t.Parallel()

	c := NewFake()
	start := c.Now()
	c.Advance(90 * time.Second)
	assert.Equal(t, 90*time.Second, c.Now().Sub(start))
}

func TestReal_AfterFunc(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	Real().AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("real timer never fired")
	}
}
