package detect

import "github.com/focuswatch/go-focuswatch/pkg/landmark"

// Mock is a Detector with pluggable function fields for tests and for
// running the pipeline without camera hardware.
type Mock struct {
	DetectFunc func(jpeg []byte) (*landmark.Set, error)
	CloseFunc  func() error

	// Calls counts Detect invocations.
	Calls int
}

// Detect calls DetectFunc, or returns ErrNoFace when unset.
func (m *Mock) Detect(jpeg []byte) (*landmark.Set, error) {
	m.Calls++
	if m.DetectFunc != nil {
		return m.DetectFunc(jpeg)
	}
	return nil, ErrNoFace
}

// Close calls CloseFunc when set.
func (m *Mock) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// FixedSet returns a Mock that always reports the given landmark set.
func FixedSet(set *landmark.Set) *Mock {
	return &Mock{
		DetectFunc: func([]byte) (*landmark.Set, error) {
			return set, nil
		},
	}
}
