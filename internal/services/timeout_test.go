package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutSupervisorArm(t *testing.T) {
	t.Run("fires exactly once at deadline", func(t *testing.T) {
		s := NewTimeoutSupervisor()
		var fired atomic.Int32
		done := make(chan struct{})

		s.Arm("p1", time.Now().Add(10*time.Millisecond), func() {
			fired.Add(1)
			close(done)
		})

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timer never fired")
		}
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, int32(1), fired.Load())
		assert.Equal(t, 0, s.Pending())
	})

	t.Run("re-arm replaces pending timer", func(t *testing.T) {
		s := NewTimeoutSupervisor()
		var first, second atomic.Int32
		done := make(chan struct{})

		s.Arm("p1", time.Now().Add(20*time.Millisecond), func() { first.Add(1) })
		s.Arm("p1", time.Now().Add(10*time.Millisecond), func() {
			second.Add(1)
			close(done)
		})

		<-done
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, int32(0), first.Load())
		assert.Equal(t, int32(1), second.Load())
	})
}

func TestTimeoutSupervisorDisarm(t *testing.T) {
	t.Run("disarm prevents firing", func(t *testing.T) {
		s := NewTimeoutSupervisor()
		var fired atomic.Int32

		s.Arm("p1", time.Now().Add(20*time.Millisecond), func() { fired.Add(1) })
		assert.True(t, s.Disarm("p1"))

		time.Sleep(60 * time.Millisecond)
		assert.Equal(t, int32(0), fired.Load())
		assert.Equal(t, 0, s.Pending())
	})

	t.Run("disarm after fire is a no-op", func(t *testing.T) {
		s := NewTimeoutSupervisor()
		done := make(chan struct{})

		s.Arm("p1", time.Now().Add(5*time.Millisecond), func() { close(done) })
		<-done

		assert.False(t, s.Disarm("p1"))
	})

	t.Run("disarm unknown key is a no-op", func(t *testing.T) {
		s := NewTimeoutSupervisor()
		assert.False(t, s.Disarm("never-armed"))
	})

	t.Run("concurrent disarm and fire is safe", func(t *testing.T) {
		s := NewTimeoutSupervisor()
		var fired atomic.Int32
		var wg sync.WaitGroup

		for i := 0; i < 50; i++ {
			key := time.Now().Add(time.Duration(i)).String()
			s.Arm(key, time.Now().Add(time.Millisecond), func() { fired.Add(1) })
			wg.Add(1)
			go func(k string) {
				defer wg.Done()
				s.Disarm(k)
			}(key)
		}
		wg.Wait()
		time.Sleep(50 * time.Millisecond)
		// every timer either fired or was disarmed; never both twice
		assert.LessOrEqual(t, fired.Load(), int32(50))
		assert.Equal(t, 0, s.Pending())
	})
}

func TestTimeoutSupervisorStopAll(t *testing.T) {
	s := NewTimeoutSupervisor()
	var fired atomic.Int32

	for i := 0; i < 5; i++ {
		s.Arm(time.Now().Add(time.Duration(i)).String(), time.Now().Add(50*time.Millisecond), func() { fired.Add(1) })
	}
	assert.Equal(t, 5, s.Pending())

	s.StopAll()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.Equal(t, 0, s.Pending())
}
