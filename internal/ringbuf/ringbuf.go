// Package ringbuf provides a fixed-capacity ring of float64 values used as
// the trailing window of rolling indicators. It is single-goroutine: each
// indicator instance owns its window, so no atomics or locks are needed.
package ringbuf

// Window keeps the most recent Cap() values pushed into it.
type Window struct {
	buf   []float64
	idx   int // next write position
	count int // values held, <= len(buf)
}

// New creates a window holding up to capacity values. Minimum capacity is 1.
func New(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]float64, capacity)}
}

// Push appends v, overwriting the oldest value once the window is full.
// It returns the evicted value and whether one was evicted.
func (w *Window) Push(v float64) (evicted float64, ok bool) {
	if w.count == len(w.buf) {
		evicted, ok = w.buf[w.idx], true
	} else {
		w.count++
	}
	w.buf[w.idx] = v
	w.idx = (w.idx + 1) % len(w.buf)
	return evicted, ok
}

// Len returns the number of values held.
func (w *Window) Len() int { return w.count }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Full reports whether Len() == Cap().
func (w *Window) Full() bool { return w.count == len(w.buf) }

// Sum adds the held values oldest-first. It is recomputed on each call so
// the result does not accumulate add/subtract rounding across the series.
func (w *Window) Sum() float64 {
	var s float64
	w.Do(func(v float64) { s += v })
	return s
}

// Mean returns Sum()/Len(), or 0 for an empty window.
func (w *Window) Mean() float64 {
	if w.count == 0 {
		return 0
	}
	return w.Sum() / float64(w.count)
}

// Do calls fn for each held value, oldest first.
func (w *Window) Do(fn func(v float64)) {
	start := w.idx - w.count
	if start < 0 {
		start += len(w.buf)
	}
	for i := 0; i < w.count; i++ {
		fn(w.buf[(start+i)%len(w.buf)])
	}
}

// Reset empties the window, keeping its capacity.
func (w *Window) Reset() {
	w.idx = 0
	w.count = 0
	for i := range w.buf {
		w.buf[i] = 0
	}
}
