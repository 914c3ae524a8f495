package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerOnlyLastCallProceeds(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	results := make([]bool, 3)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := d.Wait(context.Background(), "alice@example.com")
			assert.NoError(t, err)
			results[i] = ok
		}(i)
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, []bool{false, false, true}, results)
	assert.Zero(t, d.Pending())
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var wg sync.WaitGroup
	var a, b bool
	wg.Add(2)
	go func() { defer wg.Done(); a, _ = d.Wait(context.Background(), "a") }()
	go func() { defer wg.Done(); b, _ = d.Wait(context.Background(), "b") }()
	wg.Wait()

	assert.True(t, a)
	assert.True(t, b)
}

func TestDebouncerZeroWindowProceeds(t *testing.T) {
	ok, err := NewDebouncer(0).Wait(context.Background(), "k")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDebouncerCancelledContext(t *testing.T) {
	d := NewDebouncer(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := d.Wait(ctx, "k")

	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, d.Pending())
}
