package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/focuswatch/go-focuswatch/pkg/calibration"
	"github.com/focuswatch/go-focuswatch/pkg/tracking"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := calibration.NewStore(filepath.Join(t.TempDir(), "calibration.json"))
	store.Load()
	pipeline := tracking.New(tracking.Config{LogDir: t.TempDir()}, store)
	return NewServer("0", pipeline)
}

func doJSON(t *testing.T, s *Server, method, path, body string, out interface{}) *http.Response {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode body: %v", method, path, err)
		}
	}
	return resp
}

func TestGetSettings(t *testing.T) {
	s := newTestServer(t)

	var got calibration.Settings
	resp := doJSON(t, s, "GET", "/api/settings", "", &got)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got != calibration.DefaultSettings() {
		t.Errorf("settings = %+v, want defaults", got)
	}
}

func TestPutSettings_PartialUpdate(t *testing.T) {
	s := newTestServer(t)

	var got calibration.Settings
	resp := doJSON(t, s, "PUT", "/api/settings", `{"smoothing_window": 9}`, &got)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got.SmoothingWindow != 9 {
		t.Errorf("smoothing_window = %d, want 9", got.SmoothingWindow)
	}
	if got.WarningDelayFrames != calibration.DefaultSettings().WarningDelayFrames {
		t.Error("unrelated field changed by partial update")
	}
}

func TestPutSettings_InvalidRejected(t *testing.T) {
	s := newTestServer(t)

	resp := doJSON(t, s, "PUT", "/api/settings", `{"smoothing_window": 0}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var got calibration.Settings
	doJSON(t, s, "GET", "/api/settings", "", &got)
	if got.SmoothingWindow != calibration.DefaultSettings().SmoothingWindow {
		t.Error("invalid update modified stored settings")
	}
}

func TestCalibrationEndpoints(t *testing.T) {
	s := newTestServer(t)

	resp := doJSON(t, s, "POST", "/api/calibration/headpose", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: status = %d", resp.StatusCode)
	}

	// Starting again while running conflicts.
	resp = doJSON(t, s, "POST", "/api/calibration/gaze", "", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("concurrent start: status = %d, want 409", resp.StatusCode)
	}

	var st tracking.Status
	doJSON(t, s, "GET", "/api/status", "", &st)
	if st.Mode != tracking.ModeCalibratingHead {
		t.Errorf("mode = %v", st.Mode)
	}

	resp = doJSON(t, s, "POST", "/api/calibration/cancel", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: status = %d", resp.StatusCode)
	}
	doJSON(t, s, "GET", "/api/status", "", &st)
	if st.Mode != tracking.ModeTracking {
		t.Errorf("mode after cancel = %v", st.Mode)
	}
}

func TestResetCalibration(t *testing.T) {
	s := newTestServer(t)
	store := s.controller.Store()

	if err := store.SetHeadPoseCalibration([3]float64{1, 2, 3}, [3]float64{15, 15, 15}); err != nil {
		t.Fatal(err)
	}

	var data calibration.Data
	resp := doJSON(t, s, "POST", "/api/calibration/reset", "", &data)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if data.HeadPose.Calibrated {
		t.Error("reset left head pose calibrated")
	}
}
