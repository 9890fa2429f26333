package tracking

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/focuswatch/go-focuswatch/pkg/calibration"
)

func TestSessionLog_RowsPerFrame(t *testing.T) {
	dir := t.TempDir()
	store := calibration.NewStore(filepath.Join(t.TempDir(), "calibration.json"))
	store.Load()
	calibrateStore(t, store, 3)
	err := store.UpdateSettings(func(s *calibration.Settings) { s.LogToCSV = true })
	if err != nil {
		t.Fatal(err)
	}

	p := New(Config{LogDir: dir}, store)
	p.ProcessFrame(fullFace(t, 0, 0), time.Now())
	p.ProcessFrame(nil, time.Now())
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "session_*.csv"))
	if err != nil || len(files) != 1 {
		t.Fatalf("session files = %v (err %v), want exactly one", files, err)
	}

	f, err := os.Open(files[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "timestamp" || rows[0][8] != "attention_ok" {
		t.Errorf("unexpected header %v", rows[0])
	}

	// Frame with a face: numeric fields populated.
	for col := 1; col <= 5; col++ {
		if _, err := strconv.ParseFloat(rows[1][col], 64); err != nil {
			t.Errorf("row 1 col %d = %q, want a number", col, rows[1][col])
		}
	}
	if rows[1][8] != "true" {
		t.Errorf("attentive frame logged attention_ok=%q", rows[1][8])
	}

	// Frame without a face: numeric fields empty, flags false.
	for col := 1; col <= 5; col++ {
		if rows[2][col] != "" {
			t.Errorf("no-face row col %d = %q, want empty", col, rows[2][col])
		}
	}
	if rows[2][8] != "false" {
		t.Errorf("no-face frame logged attention_ok=%q", rows[2][8])
	}
}

func TestSessionLog_ClosedWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	store := calibration.NewStore(filepath.Join(t.TempDir(), "calibration.json"))
	store.Load()
	calibrateStore(t, store, 3)
	err := store.UpdateSettings(func(s *calibration.Settings) { s.LogToCSV = true })
	if err != nil {
		t.Fatal(err)
	}

	p := New(Config{LogDir: dir}, store)
	p.ProcessFrame(fullFace(t, 0, 0), time.Now())

	err = store.UpdateSettings(func(s *calibration.Settings) { s.LogToCSV = false })
	if err != nil {
		t.Fatal(err)
	}
	p.ProcessFrame(fullFace(t, 0, 0), time.Now())
	p.ProcessFrame(fullFace(t, 0, 0), time.Now())

	files, _ := filepath.Glob(filepath.Join(dir, "session_*.csv"))
	if len(files) != 1 {
		t.Fatalf("session files = %v, want the one from the enabled window", files)
	}
	f, err := os.Open(files[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1 (logging stopped)", len(rows))
	}
}
