// Package tracking orchestrates the per-frame flow: landmarks in, pose and
// gaze estimation, smoothing, attention evaluation, and ordered delivery of
// results and events to observers. It also drives the two calibration
// workflows against the calibration store.
package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/focuswatch/go-focuswatch/internal/log"
	"github.com/focuswatch/go-focuswatch/pkg/attention"
	"github.com/focuswatch/go-focuswatch/pkg/calibration"
	"github.com/focuswatch/go-focuswatch/pkg/detect"
	"github.com/focuswatch/go-focuswatch/pkg/filter"
	"github.com/focuswatch/go-focuswatch/pkg/gaze"
	"github.com/focuswatch/go-focuswatch/pkg/landmark"
	"github.com/focuswatch/go-focuswatch/pkg/pose"
)

// ErrCalibrationActive is returned when a calibration workflow is requested
// while another one is running.
var ErrCalibrationActive = errors.New("tracking: calibration already in progress")

// VideoSource delivers JPEG frames to the capture loop.
type VideoSource interface {
	CaptureJPEG() ([]byte, error)
}

// Detector produces landmark sets from frames.
type Detector interface {
	Detect(jpeg []byte) (*landmark.Set, error)
}

// Pipeline is the frame-processing core. One goroutine feeds it frames
// (Run or direct ProcessFrame calls); control methods may be called from
// any goroutine.
type Pipeline struct {
	cfg   Config
	store *calibration.Store

	poseEst *pose.Estimator
	gazeEst *gaze.Estimator
	eval    *attention.Evaluator

	mu         sync.Mutex
	poseFilter *filter.MovingAverage
	gazeFilter *filter.MovingAverage
	window     int

	mode    Mode
	headCol *calibration.HeadPoseCollector
	gazeCol *calibration.GazeCollector

	sinks     []Sink
	csv       *sessionLog
	csvFailed bool
	seq       uint64

	lastState attention.State
}

// New creates a pipeline reading its per-user parameters from store.
func New(cfg Config, store *calibration.Store) *Pipeline {
	cfg = cfg.withDefaults()
	window := store.Settings().SmoothingWindow

	poseFilter, err := filter.NewMovingAverage(window)
	if err != nil {
		window = calibration.DefaultSettings().SmoothingWindow
		poseFilter, _ = filter.NewMovingAverage(window)
	}
	gazeFilter, _ := filter.NewMovingAverage(window)

	return &Pipeline{
		cfg:        cfg,
		store:      store,
		poseEst:    pose.NewEstimator(cfg.Scheme),
		gazeEst:    gaze.NewEstimator(cfg.Scheme),
		eval:       attention.NewEvaluator(),
		poseFilter: poseFilter,
		gazeFilter: gazeFilter,
		window:     window,
		headCol:    calibration.NewHeadPoseCollector(0),
		gazeCol:    calibration.NewGazeCollector(0),
		lastState:  attention.StateUncalibrated,
	}
}

// Store returns the calibration store, for the settings API.
func (p *Pipeline) Store() *calibration.Store { return p.store }

// AddSink registers an observer. Sinks added after frames have started
// flowing see only subsequent frames.
func (p *Pipeline) AddSink(s Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, s)
}

// Run pulls frames from video, detects landmarks, and processes each frame
// until ctx is cancelled. Capture and detection failures are logged and
// treated as frames without a face.
func (p *Pipeline) Run(ctx context.Context, video VideoSource, det Detector) {
	ticker := time.NewTicker(p.cfg.FrameInterval)
	defer ticker.Stop()

	log.Info("tracking pipeline started", "interval", p.cfg.FrameInterval)

	for {
		select {
		case <-ctx.Done():
			log.Info("tracking pipeline stopped")
			return

		case <-ticker.C:
			jpeg, err := video.CaptureJPEG()
			if err != nil {
				log.Warn("frame capture failed", "error", err)
				p.ProcessFrame(nil, time.Now())
				continue
			}
			set, err := det.Detect(jpeg)
			if err != nil && !errors.Is(err, detect.ErrNoFace) {
				log.Warn("landmark detection failed", "error", err)
			}
			p.ProcessFrame(set, time.Now())
		}
	}
}

// ProcessFrame runs one frame through the pipeline. set is nil when no
// face was found. The returned result is also published to all sinks,
// followed by any events the frame produced, in order.
func (p *Pipeline) ProcessFrame(set *landmark.Set, now time.Time) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	settings, data := p.store.Snapshot()
	p.ensureWindow(settings.SmoothingWindow)

	res := Result{
		Seq:       p.seq,
		Timestamp: now,
		Mode:      p.mode,
		State:     p.lastState,
	}

	smoothPose, smoothGaze := p.measure(set, &res)

	var events []Event
	switch p.mode {
	case ModeCalibratingHead:
		events = p.calibrateHead(smoothPose, settings, &res)
	case ModeCalibratingGaze:
		events = p.calibrateGaze(smoothGaze, &res)
	default:
		verdict := p.eval.Evaluate(data, settings.WarningDelayFrames, smoothPose, smoothGaze)
		res.State = verdict.State
		res.HeadWithin = verdict.HeadWithin
		res.GazeWithin = verdict.GazeWithin
		res.AttentionOK = verdict.AttentionOK
		if verdict.State != p.lastState {
			events = append(events, Event{
				Type: EventStateChange,
				From: p.lastState,
				To:   verdict.State,
			})
			log.Info("attention state changed",
				"from", p.lastState.String(), "to", verdict.State.String())
		}
		p.lastState = verdict.State
	}

	if settings.LogToCSV {
		p.logRow(res)
	} else {
		p.csvFailed = false
		if p.csv != nil {
			p.csv.Close()
			p.csv = nil
		}
	}

	p.publish(res, events)
	return res
}

// measure runs the estimators on the frame and pushes successful estimates
// through their filters. Returns the smoothed measurements, nil where the
// frame produced none.
func (p *Pipeline) measure(set *landmark.Set, res *Result) (*pose.Angles, *gaze.Vector) {
	if set == nil {
		return nil, nil
	}
	res.FaceDetected = true
	res.Landmarks = set

	var smoothPose *pose.Angles
	if raw, err := p.poseEst.Estimate(set); err == nil {
		sm := pose.FromVector(p.poseFilter.Push(raw.Vector()))
		smoothPose = &sm
		res.HeadPose = smoothPose
	} else {
		log.Debug("pose estimation failed", "error", err)
	}

	var smoothGaze *gaze.Vector
	if raw, err := p.gazeEst.Estimate(set); err == nil {
		sg := gaze.FromSlice(p.gazeFilter.Push(raw.Vector.Slice()))
		smoothGaze = &sg
		res.Gaze = smoothGaze
		left, right := raw.LeftIris, raw.RightIris
		res.LeftIris, res.RightIris = &left, &right
	} else {
		log.Debug("gaze estimation failed", "error", err)
	}
	return smoothPose, smoothGaze
}

// calibrateHead feeds one frame to the head-pose workflow.
func (p *Pipeline) calibrateHead(smoothPose *pose.Angles, settings calibration.Settings, res *Result) []Event {
	var events []Event

	if smoothPose != nil {
		done := p.headCol.Add([3]float64{smoothPose.Yaw, smoothPose.Pitch, smoothPose.Roll})
		if done {
			baseline, _ := p.headCol.Baseline()
			if err := p.store.SetHeadPoseCalibration(baseline, settings.HeadThresholds()); err != nil {
				log.Error("persisting head-pose calibration failed", "error", err)
			}
			log.Info("head-pose calibration complete",
				"yaw", baseline[0], "pitch", baseline[1], "roll", baseline[2])
			p.finishCalibration()
			events = append(events, Event{Type: EventCalibrationDone, Workflow: "head_pose"})
		}
	}

	res.CalibrationCollected, res.CalibrationRequired = p.headCol.Progress()
	if p.mode == ModeTracking {
		// Just finished: report a full bar.
		res.CalibrationCollected = res.CalibrationRequired
	}
	return events
}

// calibrateGaze feeds one frame to the gaze workflow. A frame without a
// usable gaze discards the current target's partial samples.
func (p *Pipeline) calibrateGaze(smoothGaze *gaze.Vector, res *Result) []Event {
	var events []Event
	target, _ := p.gazeCol.Target()

	if smoothGaze == nil {
		collected, _ := p.gazeCol.Progress()
		if collected > 0 {
			p.gazeCol.Interrupt()
			t := target
			events = append(events, Event{
				Type:     EventCalibrationInterrupted,
				Workflow: "gaze",
				Target:   &t,
			})
			log.Warn("gaze calibration interrupted, restarting target", "target", target.Key)
		}
	} else {
		stepDone, allDone := p.gazeCol.Add([2]float64{smoothGaze.H, smoothGaze.V})
		if stepDone {
			t := target
			events = append(events, Event{
				Type:     EventCalibrationStep,
				Workflow: "gaze",
				Target:   &t,
			})
		}
		if allDone {
			horizontal, vertical, _ := p.gazeCol.Ranges()
			if err := p.store.SetGazeCalibration(horizontal, vertical); err != nil {
				log.Error("persisting gaze calibration failed", "error", err)
			}
			log.Info("gaze calibration complete",
				"horizontal", horizontal, "vertical", vertical)
			p.finishCalibration()
			events = append(events, Event{Type: EventCalibrationDone, Workflow: "gaze"})
		}
	}

	res.CalibrationCollected, res.CalibrationRequired = p.gazeCol.Progress()
	if p.mode == ModeTracking {
		// Just finished: report a full bar.
		res.CalibrationCollected = res.CalibrationRequired
	} else if next, ok := p.gazeCol.Target(); ok {
		res.GazeTarget = &next
	}
	return events
}

// finishCalibration returns to tracking mode with fresh filters and a
// fresh evaluator: smoothed values from before calibration must not leak
// into post-calibration verdicts.
func (p *Pipeline) finishCalibration() {
	p.mode = ModeTracking
	p.headCol.Reset()
	p.gazeCol.Reset()
	p.poseFilter.Reset()
	p.gazeFilter.Reset()
	p.eval.Reset()
	p.lastState = attention.StateUncalibrated
}

// ensureWindow rebuilds both filters when the configured smoothing window
// changed at runtime.
func (p *Pipeline) ensureWindow(window int) {
	if window == p.window || window < 1 {
		return
	}
	p.poseFilter, _ = filter.NewMovingAverage(window)
	p.gazeFilter, _ = filter.NewMovingAverage(window)
	p.window = window
	log.Info("smoothing window changed", "window", window)
}

func (p *Pipeline) publish(res Result, events []Event) {
	for i := range events {
		events[i].Seq = res.Seq
		events[i].Timestamp = res.Timestamp
	}
	for _, s := range p.sinks {
		s.PublishResult(res)
		for _, ev := range events {
			s.PublishEvent(ev)
		}
	}
}

func (p *Pipeline) logRow(res Result) {
	if p.csv == nil {
		if p.csvFailed {
			return
		}
		sl, err := newSessionLog(p.cfg.LogDir)
		if err != nil {
			// Retried only after the setting is toggled off and on again.
			log.Warn("session log unavailable", "error", err)
			p.csvFailed = true
			return
		}
		p.csv = sl
		log.Info("session log started", "path", sl.Path())
	}
	if err := p.csv.Write(res); err != nil {
		log.Warn("session log write failed", "error", err)
	}
}

// StartHeadPoseCalibration begins the head-pose workflow on the next frame.
func (p *Pipeline) StartHeadPoseCalibration() error {
	return p.startCalibration(ModeCalibratingHead, "head_pose")
}

// StartGazeCalibration begins the gaze workflow on the next frame.
func (p *Pipeline) StartGazeCalibration() error {
	return p.startCalibration(ModeCalibratingGaze, "gaze")
}

func (p *Pipeline) startCalibration(mode Mode, workflow string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mode != ModeTracking {
		return ErrCalibrationActive
	}
	p.headCol.Reset()
	p.gazeCol.Reset()
	p.mode = mode
	log.Info("calibration started", "workflow", workflow)

	ev := Event{Seq: p.seq, Timestamp: time.Now(), Type: EventCalibrationStarted, Workflow: workflow}
	if mode == ModeCalibratingGaze {
		if target, ok := p.gazeCol.Target(); ok {
			ev.Target = &target
		}
	}
	for _, s := range p.sinks {
		s.PublishEvent(ev)
	}
	return nil
}

// CancelCalibration abandons any running workflow, discarding partial
// samples. Persisted calibration is untouched.
func (p *Pipeline) CancelCalibration() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mode == ModeTracking {
		return
	}
	workflow := "head_pose"
	if p.mode == ModeCalibratingGaze {
		workflow = "gaze"
	}
	p.mode = ModeTracking
	p.headCol.Reset()
	p.gazeCol.Reset()
	log.Info("calibration cancelled", "workflow", workflow)

	ev := Event{Seq: p.seq, Timestamp: time.Now(), Type: EventCalibrationCancelled, Workflow: workflow}
	for _, s := range p.sinks {
		s.PublishEvent(ev)
	}
}

// Status returns a point-in-time snapshot for the control API.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	data := p.store.Calibration()
	st := Status{
		Mode:               p.mode,
		State:              p.lastState,
		Seq:                p.seq,
		HeadPoseCalibrated: data.HeadPose.Calibrated,
		GazeCalibrated:     data.Gaze.Calibrated,
	}
	switch p.mode {
	case ModeCalibratingHead:
		st.CalibrationCollected, st.CalibrationRequired = p.headCol.Progress()
	case ModeCalibratingGaze:
		st.CalibrationCollected, st.CalibrationRequired = p.gazeCol.Progress()
		if target, ok := p.gazeCol.Target(); ok {
			st.GazeTarget = &target
		}
	}
	return st
}

// Close flushes and closes the session log, if any.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.csv != nil {
		err := p.csv.Close()
		p.csv = nil
		return err
	}
	return nil
}
