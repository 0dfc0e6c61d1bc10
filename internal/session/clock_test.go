package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_CountsDownAndExpires(t *testing.T) {
	clk := newClock(3, time.Millisecond)
	signals := make(chan signal, 16)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		clk.Run(ctx, signals)
		close(done)
	}()

	var ticks []int
	var expired bool
	for !expired {
		select {
		case sig := <-signals:
			switch sig.kind {
			case sigTick:
				ticks = append(ticks, sig.remaining)
			case sigExpired:
				expired = true
			}
		case <-ctx.Done():
			t.Fatal("clock never expired")
		}
	}

	assert.Equal(t, []int{2, 1, 0}, ticks)
	assert.Equal(t, 0, clk.Remaining())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("clock goroutine did not exit after expiry")
	}
}

func TestClock_CancelStopsTicking(t *testing.T) {
	clk := newClock(1000, time.Millisecond)
	signals := make(chan signal, 16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		clk.Run(ctx, signals)
		close(done)
	}()

	// Let a few ticks through, then cancel mid-countdown.
	require.Eventually(t, func() bool { return clk.Remaining() < 1000 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("clock goroutine did not exit on cancel")
	}

	// No further decrement once stopped.
	rem := clk.Remaining()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, rem, clk.Remaining())
	assert.Greater(t, rem, 0)
}

func TestClock_RemainingNeverNegative(t *testing.T) {
	clk := newClock(1, time.Millisecond)
	signals := make(chan signal, 16)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go clk.Run(ctx, signals)

	require.Eventually(t, func() bool { return clk.Remaining() == 0 }, time.Second, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 0, clk.Remaining())
}
