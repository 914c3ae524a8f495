package catalog

import (
	"context"
	"sync"
	"time"
)

// Debouncer lets only the last call per key within a quiet window proceed.
type Debouncer struct {
	window time.Duration

	mu   sync.Mutex
	seq  uint64
	gens map[string]uint64
}

func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		gens:   make(map[string]uint64),
	}
}

// Wait blocks for the quiet window and reports whether this call is still
// the latest for key. A superseded call returns false. A zero window always
// proceeds.
func (d *Debouncer) Wait(ctx context.Context, key string) (bool, error) {
	if d.window <= 0 {
		return true, nil
	}

	d.mu.Lock()
	d.seq++
	gen := d.seq
	d.gens[key] = gen
	d.mu.Unlock()

	timer := time.NewTimer(d.window)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		d.release(key, gen)
		return false, ctx.Err()
	case <-timer.C:
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gens[key] != gen {
		return false, nil
	}
	delete(d.gens, key)
	return true, nil
}

// release forgets key when gen is still the latest call for it.
func (d *Debouncer) release(key string, gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gens[key] == gen {
		delete(d.gens, key)
	}
}

// Pending returns the number of keys with a call in flight.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.gens)
}
