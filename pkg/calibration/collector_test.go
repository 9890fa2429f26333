package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focuswatch/go-focuswatch/pkg/gaze"
	"github.com/focuswatch/go-focuswatch/pkg/pose"
)

func anglesOf(yaw, pitch, roll float64) pose.Angles {
	return pose.Angles{Yaw: yaw, Pitch: pitch, Roll: roll}
}

func vectorOf(h, v float64) gaze.Vector {
	return gaze.Vector{H: h, V: v}
}

func TestHeadPoseCollector_BaselineIsPerAxisMean(t *testing.T) {
	c := NewHeadPoseCollector(60)

	// 60 yaw samples averaging 2.5: half at 2.0, half at 3.0.
	for i := 0; i < 60; i++ {
		yaw := 2.0
		if i%2 == 1 {
			yaw = 3.0
		}
		c.Add([3]float64{yaw, -1.0, 0.5})
	}

	require.True(t, c.Done())
	baseline, ok := c.Baseline()
	require.True(t, ok)
	assert.InDelta(t, 2.5, baseline[AxisYaw], 1e-12)
	assert.InDelta(t, -1.0, baseline[AxisPitch], 1e-12)
	assert.InDelta(t, 0.5, baseline[AxisRoll], 1e-12)
}

func TestHeadPoseCollector_NotDoneNoBaseline(t *testing.T) {
	c := NewHeadPoseCollector(60)
	for i := 0; i < 59; i++ {
		c.Add([3]float64{1, 1, 1})
	}

	assert.False(t, c.Done())
	_, ok := c.Baseline()
	assert.False(t, ok, "baseline must not be available before collection completes")

	collected, required := c.Progress()
	assert.Equal(t, 59, collected)
	assert.Equal(t, 60, required)
}

func TestHeadPoseCollector_StopsAtRequired(t *testing.T) {
	c := NewHeadPoseCollector(5)
	for i := 0; i < 10; i++ {
		c.Add([3]float64{float64(i), 0, 0})
	}

	// Extra samples past the requirement are ignored: mean of 0..4.
	baseline, ok := c.Baseline()
	require.True(t, ok)
	assert.InDelta(t, 2.0, baseline[AxisYaw], 1e-12)
}

func TestGazeCollector_WalksAllTargets(t *testing.T) {
	c := NewGazeCollector(3)

	keys := []string{}
	for {
		target, ok := c.Target()
		if !ok {
			break
		}
		keys = append(keys, target.Key)
		for {
			stepDone, _ := c.Add([2]float64{0, 0})
			if stepDone {
				break
			}
		}
	}

	assert.Equal(t, []string{"center", "top_left", "top_right", "bottom_left", "bottom_right"}, keys)
	assert.True(t, c.Done())
}

func TestGazeCollector_IncompleteHasNoRanges(t *testing.T) {
	c := NewGazeCollector(45)

	// Fill four targets completely and the fifth partially.
	for step := 0; step < 4; step++ {
		for i := 0; i < 45; i++ {
			c.Add([2]float64{0.1, 0.1})
		}
	}
	for i := 0; i < 44; i++ {
		c.Add([2]float64{0.1, 0.1})
	}

	assert.False(t, c.Done())
	_, _, ok := c.Ranges()
	assert.False(t, ok, "ranges must not be produced with fewer than the required samples")
}

func TestGazeCollector_InterruptRestartsCurrentTarget(t *testing.T) {
	c := NewGazeCollector(10)

	// Complete the center target.
	for i := 0; i < 10; i++ {
		c.Add([2]float64{0, 0})
	}

	// Partially collect top_left, then lose the face.
	for i := 0; i < 7; i++ {
		c.Add([2]float64{-0.4, -0.4})
	}
	c.Interrupt()

	collected, required := c.Progress()
	assert.Equal(t, 0, collected, "interrupted target restarts from zero")
	assert.Equal(t, 10, required)

	target, ok := c.Target()
	require.True(t, ok)
	assert.Equal(t, "top_left", target.Key, "interrupt keeps the same target")
}

func TestGazeCollector_RangesCoverExtremaWithMargin(t *testing.T) {
	c := NewGazeCollector(2)

	// center, top_left, top_right, bottom_left, bottom_right
	feeds := [][2]float64{
		{0.0, 0.0},
		{-0.4, -0.3},
		{0.5, -0.25},
		{-0.45, 0.35},
		{0.4, 0.3},
	}
	for _, f := range feeds {
		for i := 0; i < 2; i++ {
			c.Add(f)
		}
	}

	h, v, ok := c.Ranges()
	require.True(t, ok)
	assert.InDelta(t, -0.45-GazeRangeMargin, h[0], 1e-12)
	assert.InDelta(t, 0.5+GazeRangeMargin, h[1], 1e-12)
	assert.InDelta(t, -0.3-GazeRangeMargin, v[0], 1e-12)
	assert.InDelta(t, 0.35+GazeRangeMargin, v[1], 1e-12)
}

func TestGazeCollector_CenterSamplesStayInterior(t *testing.T) {
	c := NewGazeCollector(1)

	// The center fixation lands between the corner extrema, so it never
	// widens the computed ranges.
	c.Add([2]float64{0.05, -0.02}) // center
	c.Add([2]float64{-0.4, -0.3})  // top_left
	c.Add([2]float64{0.4, -0.3})   // top_right
	c.Add([2]float64{-0.4, 0.3})   // bottom_left
	c.Add([2]float64{0.4, 0.3})    // bottom_right

	h, v, ok := c.Ranges()
	require.True(t, ok)
	assert.InDelta(t, -0.4-GazeRangeMargin, h[0], 1e-12)
	assert.InDelta(t, 0.4+GazeRangeMargin, h[1], 1e-12)
	assert.InDelta(t, -0.3-GazeRangeMargin, v[0], 1e-12)
	assert.InDelta(t, 0.3+GazeRangeMargin, v[1], 1e-12)
}

func TestGazeCollector_Reset(t *testing.T) {
	c := NewGazeCollector(2)
	c.Add([2]float64{1, 1})
	c.Add([2]float64{1, 1})
	c.Add([2]float64{1, 1})

	c.Reset()

	target, ok := c.Target()
	require.True(t, ok)
	assert.Equal(t, "center", target.Key)
	collected, _ := c.Progress()
	assert.Equal(t, 0, collected)
}
