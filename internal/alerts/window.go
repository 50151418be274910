package alerts

import "time"

type sample struct {
	at    time.Time
	value float64
}

// window is a time-pruned rolling buffer of observations. Entries older
// than the retention horizon are dropped on every append, so the buffer
// never grows unbounded.
type window struct {
	retention time.Duration
	samples   []sample
}

func newWindow(retention time.Duration) *window {
	return &window{retention: retention}
}

func (w *window) append(now time.Time, value float64) {
	w.prune(now)
	w.samples = append(w.samples, sample{at: now, value: value})
}

func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.retention)
	kept := w.samples[:0]
	for _, s := range w.samples {
		if s.at.After(cutoff) {
			kept = append(kept, s)
		}
	}
	w.samples = kept
}

func (w *window) len() int {
	return len(w.samples)
}

func (w *window) mean() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range w.samples {
		sum += s.value
	}
	return sum / float64(len(w.samples))
}

// meanExcludingLast computes the historical baseline without the
// observation that was just appended.
func (w *window) meanExcludingLast() float64 {
	if len(w.samples) < 2 {
		return 0
	}
	var sum float64
	for _, s := range w.samples[:len(w.samples)-1] {
		sum += s.value
	}
	return sum / float64(len(w.samples)-1)
}
