package tracking

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var csvHeader = []string{
	"timestamp", "yaw", "pitch", "roll", "gaze_h", "gaze_v",
	"head_within", "gaze_within", "attention_ok",
}

// sessionLog writes one CSV row per processed frame. Each session gets its
// own file so overlapping runs never interleave.
type sessionLog struct {
	path string
	file *os.File
	w    *csv.Writer
}

func newSessionLog(dir string) (*sessionLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tracking: create log dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("session_%s.csv", uuid.NewString()))
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("tracking: create session log: %w", err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("tracking: write header: %w", err)
	}
	return &sessionLog{path: path, file: file, w: w}, nil
}

func (l *sessionLog) Path() string { return l.path }

// Write appends one row. Numeric fields are empty when the frame carried
// no measurement, so downstream tooling can tell "no face" from zero.
func (l *sessionLog) Write(res Result) error {
	row := []string{
		res.Timestamp.Format(time.RFC3339Nano),
		"", "", "", "", "",
		strconv.FormatBool(res.HeadWithin),
		strconv.FormatBool(res.GazeWithin),
		strconv.FormatBool(res.AttentionOK),
	}
	if res.HeadPose != nil {
		row[1] = formatFloat(res.HeadPose.Yaw)
		row[2] = formatFloat(res.HeadPose.Pitch)
		row[3] = formatFloat(res.HeadPose.Roll)
	}
	if res.Gaze != nil {
		row[4] = formatFloat(res.Gaze.H)
		row[5] = formatFloat(res.Gaze.V)
	}
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("tracking: write row: %w", err)
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *sessionLog) Close() error {
	l.w.Flush()
	return l.file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
