// Package filter provides jitter smoothing for per-frame measurements.
package filter

import (
	"fmt"
	"sync"
)

// MovingAverage is a fixed-window moving average over float vectors.
// Push returns the per-component mean of the most recent W samples, where
// the oldest sample is evicted first once the window is full. A window of
// 1 is pass-through.
//
// Angular inputs must already be continuous (no ±180° wrap); the pose
// estimator guarantees that for head angles.
type MovingAverage struct {
	mu      sync.Mutex
	window  int
	samples [][]float64
}

// NewMovingAverage creates a filter with the given window size (>= 1).
func NewMovingAverage(window int) (*MovingAverage, error) {
	if window < 1 {
		return nil, fmt.Errorf("filter: window size must be >= 1, got %d", window)
	}
	return &MovingAverage{window: window}, nil
}

// Push appends a sample and returns the mean of the retained samples.
// The returned slice is freshly allocated; the input is copied.
func (f *MovingAverage) Push(sample []float64) []float64 {
	cp := make([]float64, len(sample))
	copy(cp, sample)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.samples = append(f.samples, cp)
	if len(f.samples) > f.window {
		f.samples = f.samples[1:]
	}

	mean := make([]float64, len(sample))
	for _, s := range f.samples {
		for i := range mean {
			mean[i] += s[i]
		}
	}
	n := float64(len(f.samples))
	for i := range mean {
		mean[i] /= n
	}
	return mean
}

// Reset clears all retained history.
func (f *MovingAverage) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = nil
}

// Window returns the configured window size.
func (f *MovingAverage) Window() int {
	return f.window
}

// Len returns the number of samples currently retained.
func (f *MovingAverage) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.samples)
}
