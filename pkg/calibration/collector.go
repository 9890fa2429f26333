package calibration

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Collection parameters. The head-pose workflow collects a fixed number of
// consecutive smoothed samples; the gaze workflow collects a fixed number
// per fixation target and widens the observed extrema by a small margin.
const (
	HeadPoseSampleCount  = 60
	GazeSamplesPerTarget = 45
	GazeRangeMargin      = 0.05
)

// HeadPoseCollector accumulates smoothed head angles during head-pose
// calibration. Not safe for concurrent use; the pipeline feeds it from the
// frame loop only.
type HeadPoseCollector struct {
	required int
	samples  [][3]float64
}

// NewHeadPoseCollector creates a collector. required <= 0 selects the
// default sample count.
func NewHeadPoseCollector(required int) *HeadPoseCollector {
	if required <= 0 {
		required = HeadPoseSampleCount
	}
	return &HeadPoseCollector{required: required}
}

// Add records one sample and reports whether collection is complete.
func (c *HeadPoseCollector) Add(sample [3]float64) bool {
	if len(c.samples) < c.required {
		c.samples = append(c.samples, sample)
	}
	return c.Done()
}

// Done reports whether the required number of samples has been collected.
func (c *HeadPoseCollector) Done() bool {
	return len(c.samples) >= c.required
}

// Progress returns collected and required sample counts.
func (c *HeadPoseCollector) Progress() (collected, required int) {
	return len(c.samples), c.required
}

// Baseline returns the per-axis mean of the collected samples.
// ok is false until collection is complete.
func (c *HeadPoseCollector) Baseline() (baseline [3]float64, ok bool) {
	if !c.Done() {
		return baseline, false
	}
	axis := make([]float64, len(c.samples))
	for a := 0; a < 3; a++ {
		for i, s := range c.samples {
			axis[i] = s[a]
		}
		baseline[a] = stat.Mean(axis, nil)
	}
	return baseline, true
}

// Reset discards all collected samples.
func (c *HeadPoseCollector) Reset() {
	c.samples = nil
}

// GazeTarget is one fixation point of the gaze workflow, with the
// on-screen position (fractions of screen size) the UI should highlight.
type GazeTarget struct {
	Key         string  `json:"key"`
	Instruction string  `json:"instruction"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

var gazeTargets = []GazeTarget{
	{Key: "center", Instruction: "Focus on the centre of the screen", X: 0.5, Y: 0.5},
	{Key: "top_left", Instruction: "Focus on the top-left corner", X: 0.1, Y: 0.1},
	{Key: "top_right", Instruction: "Focus on the top-right corner", X: 0.9, Y: 0.1},
	{Key: "bottom_left", Instruction: "Focus on the bottom-left corner", X: 0.1, Y: 0.9},
	{Key: "bottom_right", Instruction: "Focus on the bottom-right corner", X: 0.9, Y: 0.9},
}

// GazeTargets returns the fixation sequence in collection order.
func GazeTargets() []GazeTarget {
	out := make([]GazeTarget, len(gazeTargets))
	copy(out, gazeTargets)
	return out
}

// GazeCollector accumulates smoothed gaze vectors across the five fixation
// targets. Losing the face mid-target discards that target's partial
// samples (Interrupt); a target never completes with fewer than the
// required samples. Not safe for concurrent use.
type GazeCollector struct {
	required int
	step     int
	samples  [][][2]float64
}

// NewGazeCollector creates a collector. perTarget <= 0 selects the default.
func NewGazeCollector(perTarget int) *GazeCollector {
	if perTarget <= 0 {
		perTarget = GazeSamplesPerTarget
	}
	return &GazeCollector{
		required: perTarget,
		samples:  make([][][2]float64, len(gazeTargets)),
	}
}

// Target returns the current fixation target. ok is false once all
// targets are complete.
func (c *GazeCollector) Target() (GazeTarget, bool) {
	if c.step >= len(gazeTargets) {
		return GazeTarget{}, false
	}
	return gazeTargets[c.step], true
}

// Add records one sample for the current target.
// stepDone is true when this sample completed the current target;
// allDone when the whole workflow is complete.
func (c *GazeCollector) Add(sample [2]float64) (stepDone, allDone bool) {
	if c.Done() {
		return false, true
	}
	c.samples[c.step] = append(c.samples[c.step], sample)
	if len(c.samples[c.step]) >= c.required {
		c.step++
		return true, c.Done()
	}
	return false, false
}

// Interrupt discards the current target's partial samples so collection
// for that target restarts from zero. Completed targets are kept.
func (c *GazeCollector) Interrupt() {
	if c.step < len(c.samples) {
		c.samples[c.step] = nil
	}
}

// Progress returns collected and required counts for the current target.
func (c *GazeCollector) Progress() (collected, required int) {
	if c.step >= len(c.samples) {
		return c.required, c.required
	}
	return len(c.samples[c.step]), c.required
}

// Done reports whether every target has its full sample set.
func (c *GazeCollector) Done() bool {
	return c.step >= len(gazeTargets)
}

// Reset discards everything and restarts at the first target.
func (c *GazeCollector) Reset() {
	c.step = 0
	c.samples = make([][][2]float64, len(gazeTargets))
}

// Ranges computes the calibrated gaze bounds: the min/max observed across
// all targets' samples, widened by GazeRangeMargin. The center target's
// samples fall inside the corner extrema and act as a sanity reference.
// ok is false until collection is complete.
func (c *GazeCollector) Ranges() (horizontal, vertical [2]float64, ok bool) {
	if !c.Done() {
		return horizontal, vertical, false
	}

	var hs, vs []float64
	for _, target := range c.samples {
		for _, s := range target {
			hs = append(hs, s[0])
			vs = append(vs, s[1])
		}
	}
	if len(hs) == 0 {
		return horizontal, vertical, false
	}

	horizontal = [2]float64{floats.Min(hs) - GazeRangeMargin, floats.Max(hs) + GazeRangeMargin}
	vertical = [2]float64{floats.Min(vs) - GazeRangeMargin, floats.Max(vs) + GazeRangeMargin}
	return horizontal, vertical, true
}
