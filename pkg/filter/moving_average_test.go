package filter

import (
	"math"
	"testing"
)

func TestMovingAverage_WindowTooSmall(t *testing.T) {
	if _, err := NewMovingAverage(0); err == nil {
		t.Error("expected error for window 0")
	}
	if _, err := NewMovingAverage(-3); err == nil {
		t.Error("expected error for negative window")
	}
}

func TestMovingAverage_PassThroughAtWindowOne(t *testing.T) {
	f, err := NewMovingAverage(1)
	if err != nil {
		t.Fatal(err)
	}

	for _, v := range []float64{3.5, -2.0, 100.25} {
		got := f.Push([]float64{v})
		if got[0] != v {
			t.Errorf("window=1 should pass through: pushed %v, got %v", v, got[0])
		}
	}
}

func TestMovingAverage_SlidingWindow(t *testing.T) {
	f, err := NewMovingAverage(5)
	if err != nil {
		t.Fatal(err)
	}

	// Yaw-only samples: after the 6th push only the last 5 remain.
	samples := []float64{10, 10, 10, 10, 10, 20}
	var got []float64
	for _, s := range samples {
		got = f.Push([]float64{s})
	}

	want := 12.0 // (10+10+10+10+20)/5
	if math.Abs(got[0]-want) > 1e-12 {
		t.Errorf("expected mean %v after sixth push, got %v", want, got[0])
	}
	if f.Len() != 5 {
		t.Errorf("expected 5 retained samples, got %d", f.Len())
	}
}

func TestMovingAverage_MeanOfExactlyLastW(t *testing.T) {
	for _, w := range []int{1, 2, 3, 7} {
		f, err := NewMovingAverage(w)
		if err != nil {
			t.Fatal(err)
		}

		feed := []float64{1, 4, 9, 16, 25, 36, 49, 64, 81, 100}
		var got []float64
		for _, s := range feed {
			got = f.Push([]float64{s})
		}

		sum := 0.0
		for _, s := range feed[len(feed)-w:] {
			sum += s
		}
		want := sum / float64(w)
		if math.Abs(got[0]-want) > 1e-12 {
			t.Errorf("window %d: expected %v, got %v", w, want, got[0])
		}
	}
}

func TestMovingAverage_IdempotentUnderConstantInput(t *testing.T) {
	f, err := NewMovingAverage(4)
	if err != nil {
		t.Fatal(err)
	}

	var got []float64
	for i := 0; i < 20; i++ {
		got = f.Push([]float64{7.25, -1.5})
	}
	if got[0] != 7.25 || got[1] != -1.5 {
		t.Errorf("constant input should yield constant output, got %v", got)
	}
}

func TestMovingAverage_PerComponentMean(t *testing.T) {
	f, err := NewMovingAverage(2)
	if err != nil {
		t.Fatal(err)
	}

	f.Push([]float64{0, 10, -4})
	got := f.Push([]float64{2, 20, 4})

	want := []float64{1, 15, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("component %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestMovingAverage_Reset(t *testing.T) {
	f, err := NewMovingAverage(3)
	if err != nil {
		t.Fatal(err)
	}

	f.Push([]float64{100})
	f.Push([]float64{100})
	f.Reset()

	if f.Len() != 0 {
		t.Errorf("expected empty buffer after reset, got %d samples", f.Len())
	}

	got := f.Push([]float64{4})
	if got[0] != 4 {
		t.Errorf("first sample after reset should dominate, got %v", got[0])
	}
}
