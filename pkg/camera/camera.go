// Package camera wraps gocv video capture behind the VideoSource interface
// the tracking pipeline consumes.
package camera

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/focuswatch/go-focuswatch/internal/log"
)

// ErrFrameRead is returned when the device fails to deliver a frame.
var ErrFrameRead = errors.New("camera: frame read failed")

// VideoSource delivers JPEG frames. The pipeline pulls one frame per tick.
type VideoSource interface {
	// CaptureJPEG grabs the next frame as JPEG bytes.
	CaptureJPEG() ([]byte, error)

	// Close releases the device.
	Close() error
}

// Webcam is a gocv-backed VideoSource for a local capture device.
type Webcam struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	frame   gocv.Mat
	quality int
}

// OpenWebcam opens the configured capture device. The device may negotiate
// a different resolution; the actual frame size travels with each landmark
// set, so downstream code never assumes it.
func OpenWebcam(cfg Config) (*Webcam, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	capture, err := gocv.VideoCaptureDevice(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("camera: open device %d: %w", cfg.DeviceID, err)
	}
	capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))

	log.Info("webcam opened",
		"device", cfg.DeviceID,
		"width", capture.Get(gocv.VideoCaptureFrameWidth),
		"height", capture.Get(gocv.VideoCaptureFrameHeight),
	)
	return &Webcam{
		capture: capture,
		frame:   gocv.NewMat(),
		quality: cfg.Quality,
	}, nil
}

// CaptureJPEG grabs and encodes the next frame.
func (w *Webcam) CaptureJPEG() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ok := w.capture.Read(&w.frame); !ok || w.frame.Empty() {
		return nil, ErrFrameRead
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, w.frame,
		[]int{gocv.IMWriteJpegQuality, w.quality})
	if err != nil {
		return nil, fmt.Errorf("camera: encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Close releases the device and the reusable frame buffer.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.frame.Close()
	return w.capture.Close()
}
