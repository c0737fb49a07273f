package face

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDrive_StopsWhenTickDeclines(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		Drive(context.Background(), time.Millisecond, func(dt time.Duration) bool {
			return calls.Add(1) < 3
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop")
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestDrive_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Drive(ctx, time.Hour, func(time.Duration) bool { return true })
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("driver ignored cancellation")
	}
}
