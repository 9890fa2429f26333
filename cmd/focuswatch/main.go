// focuswatch - webcam attention tracker.
// Estimates head pose and gaze from facial landmarks, evaluates them
// against per-user calibration, and serves live results over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/focuswatch/go-focuswatch/internal/log"
	"github.com/focuswatch/go-focuswatch/pkg/calibration"
	"github.com/focuswatch/go-focuswatch/pkg/camera"
	"github.com/focuswatch/go-focuswatch/pkg/detect"
	"github.com/focuswatch/go-focuswatch/pkg/landmark"
	"github.com/focuswatch/go-focuswatch/pkg/tracking"
	"github.com/focuswatch/go-focuswatch/pkg/web"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "Path to the settings and calibration file")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	port := flag.String("port", "8091", "HTTP port for the control API and streams")
	detector := flag.String("detector", "remote", "Landmark detector: remote, facemesh, mock")
	landmarkURL := flag.String("landmark-url", "ws://127.0.0.1:9004/landmarks", "Websocket URL of the landmark sidecar (remote detector)")
	cameraPreset := flag.String("camera-preset", camera.PresetDefault, "Capture preset: default, 720p, 1080p")
	responsive := flag.Bool("responsive", false, "Run the low-latency pipeline preset")
	flag.Parse()

	log.Init(*logLevel)

	store := calibration.NewStore(*configPath)
	store.Load()
	settings := store.Settings()

	cfg := tracking.DefaultConfig()
	if *responsive {
		cfg = tracking.ResponsiveConfig()
	}
	cfg.LogDir = filepath.Join(filepath.Dir(*configPath), "sessions")

	pipeline := tracking.New(cfg, store)
	defer pipeline.Close()

	det, video, err := buildBackends(*detector, *landmarkURL, *cameraPreset, cfg.Scheme, settings)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer det.Close()
	defer video.Close()

	server := web.NewServer(*port, pipeline)
	pipeline.AddSink(server)
	server.StartAsync()
	defer server.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pipeline.Run(ctx, video, det)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "focuswatch.json"
	}
	return filepath.Join(home, ".focuswatch", "config.json")
}

// buildBackends wires the detector and video source selected on the
// command line. The mock detector pairs with a stub video source so the
// full stack runs without camera hardware.
func buildBackends(kind, landmarkURL, preset string, scheme landmark.Scheme, settings calibration.Settings) (detect.Detector, camera.VideoSource, error) {
	if kind == "mock" {
		log.Warn("running with mock detector, no faces will be reported")
		return &detect.Mock{}, stubVideo{}, nil
	}

	var det detect.Detector
	var err error
	switch kind {
	case "remote":
		det, err = detect.NewRemote(landmarkURL, scheme)
	case "facemesh":
		det, err = detect.NewFaceMesh(detect.DefaultFaceMeshConfig(), scheme)
	default:
		return nil, nil, fmt.Errorf("unknown detector %q", kind)
	}
	if err != nil {
		return nil, nil, err
	}

	camCfg, err := captureConfig(preset, settings)
	if err != nil {
		det.Close()
		return nil, nil, err
	}

	video, err := camera.OpenWebcam(camCfg)
	if err != nil {
		det.Close()
		return nil, nil, err
	}
	return det, video, nil
}

// captureConfig resolves the capture parameters. A named preset fixes
// the resolution; the default preset takes the frame size from settings.
// The device index always comes from settings.
func captureConfig(preset string, settings calibration.Settings) (camera.Config, error) {
	cfg := camera.GetPreset(preset)
	if cfg == nil {
		return camera.Config{}, fmt.Errorf("unknown camera preset %q", preset)
	}
	if preset == camera.PresetDefault {
		cfg.Width = settings.FrameWidth
		cfg.Height = settings.FrameHeight
	}
	cfg.DeviceID = settings.CameraIndex
	return *cfg, nil
}

// stubVideo produces empty frames for mock runs.
type stubVideo struct{}

func (stubVideo) CaptureJPEG() ([]byte, error) { return []byte{}, nil }
func (stubVideo) Close() error                 { return nil }
