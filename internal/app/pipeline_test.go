package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gocv.io/x/gocv"

	"github.com/ayusman/handrange/internal/calibration"
	"github.com/ayusman/handrange/internal/capture"
	"github.com/ayusman/handrange/internal/detector"
	"github.com/ayusman/handrange/internal/distance"
	"github.com/ayusman/handrange/internal/logging"
	"github.com/ayusman/handrange/internal/overlay"
)

// spanning returns a hand whose pinky MCP, wrist and index MCP sit at the
// given normalized x positions. Values are multiples of 1/32 so that 640
// pixel frames measure exact widths.
func spanning(pinkyX, wristX, indexX float64) detector.HandLandmarks {
	var hand detector.HandLandmarks
	for i := range hand.Points {
		hand.Points[i] = detector.Point3D{X: wristX, Y: 0.75}
	}
	hand.Points[detector.PinkyMCP].X = pinkyX
	hand.Points[detector.IndexMCP].X = indexX
	hand.Points[detector.IndexMCP].Y = 0.625
	return hand
}

var (
	// 220 to 370 pixels.
	hand150 = spanning(0.34375, 0.5, 0.578125)
	// 220 to 320 pixels.
	hand100 = spanning(0.34375, 0.40625, 0.5)
)

func newFrameFixture(t *testing.T, config Config, keys ...rune) *fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })

	f := newFixture(t, config, keys...)
	f.camera = capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	f.session = NewSession(config, f.camera, f.detector, f.display, f.store, logging.Discard())
	return f
}

func blank(t *testing.T) *gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return &frame
}

func TestProcessFrame_Uncalibrated(t *testing.T) {
	f := newFrameFixture(t, Config{HandWidthCM: 9})
	f.detector.SetHands([]detector.HandLandmarks{hand150})

	result, err := f.session.ProcessFrame(blank(t))
	if err != nil {
		t.Fatalf("ProcessFrame() error = %v", err)
	}

	if !result.Palm.Found || result.Palm.PixelWidth != 150 {
		t.Errorf("palm = %+v, want 150 px", result.Palm.Detection)
	}
	if result.Reading.Known {
		t.Error("uncalibrated session produced a distance")
	}
	if !result.Reading.IsMissingCalibration() {
		t.Errorf("reading error = %v, want ErrMissingCalibration", result.Reading.Err)
	}
}

func TestProcessFrame_WorkedExample(t *testing.T) {
	f := newFrameFixture(t, Config{KnownDistanceCM: 30, HandWidthCM: 9}, overlay.KeyNone, overlay.KeyCalibrate)
	f.detector.Queue(nil, []detector.HandLandmarks{hand150})

	rec, err := f.session.RunCalibration(context.Background())
	if err != nil {
		t.Fatalf("RunCalibration() error = %v", err)
	}
	want := distance.Record{FocalLength: 500, ReferenceHandWidth: 9}
	if diff := cmp.Diff(want, rec, approx); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	if f.session.Mode() != Calibrated {
		t.Fatalf("Mode() = %v, want calibrated", f.session.Mode())
	}

	f.detector.SetHands([]detector.HandLandmarks{hand100})
	result, err := f.session.ProcessFrame(blank(t))
	if err != nil {
		t.Fatalf("ProcessFrame() error = %v", err)
	}

	got := result.Reading
	if !got.Known || got.Distance != 45 || got.Proximity != distance.TooClose {
		t.Errorf("reading = %+v, want 45 cm too close", got)
	}
	if !got.Warn() {
		t.Error("45 cm should raise the warning")
	}

	saved, err := calibration.Parse(calibration.Format(rec))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff(&want, saved, approx); diff != "" {
		t.Errorf("file round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessFrame_Calibrated(t *testing.T) {
	tests := []struct {
		name      string
		hands     []detector.HandLandmarks
		detectErr error
		wantKnown bool
		wantErr   error
		wantProx  distance.Proximity
	}{
		{
			name:      "safe distance",
			hands:     []detector.HandLandmarks{hand100},
			wantKnown: true,
			wantProx:  distance.Safe,
		},
		{
			name:     "no hand",
			wantErr:  distance.ErrNoDetection,
			wantProx: distance.Unknown,
		},
		{
			name:      "detector failure counts as no hand",
			detectErr: errors.New("helper crashed"),
			wantErr:   distance.ErrNoDetection,
			wantProx:  distance.Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFrameFixture(t, Config{})
			// 100 px at 9 cm over 1000 px focal length reads 90 cm.
			f.session.SetRecord(distance.Record{FocalLength: 1000, ReferenceHandWidth: 9})
			f.detector.SetHands(tt.hands)
			f.detector.SetError(tt.detectErr)

			result, err := f.session.ProcessFrame(blank(t))
			if tt.detectErr != nil {
				if !errors.Is(err, tt.detectErr) {
					t.Errorf("ProcessFrame() error = %v, want %v", err, tt.detectErr)
				}
			} else if err != nil {
				t.Fatalf("ProcessFrame() error = %v", err)
			}

			if result.Reading.Known != tt.wantKnown {
				t.Errorf("Known = %v, want %v", result.Reading.Known, tt.wantKnown)
			}
			if tt.wantErr != nil && !errors.Is(result.Reading.Err, tt.wantErr) {
				t.Errorf("reading error = %v, want %v", result.Reading.Err, tt.wantErr)
			}
			if result.Reading.Proximity != tt.wantProx {
				t.Errorf("Proximity = %v, want %v", result.Reading.Proximity, tt.wantProx)
			}
		})
	}
}

func TestProcessFrame_EmptyFrame(t *testing.T) {
	f := newFixture(t, Config{})

	if _, err := f.session.ProcessFrame(nil); !errors.Is(err, capture.ErrEmptyFrame) {
		t.Errorf("ProcessFrame(nil) error = %v, want ErrEmptyFrame", err)
	}
	if f.session.Frames() != 0 {
		t.Errorf("Frames() = %d, want 0", f.session.Frames())
	}
}

func TestRunCalibration_RetriesAfterNoDetection(t *testing.T) {
	f := newFrameFixture(t, Config{HandWidthCM: 9},
		overlay.KeyCalibrate, overlay.KeyCalibrate, overlay.KeyNone, overlay.KeyCalibrate)
	// The first three frames have no hand.
	f.detector.Queue(nil, nil, nil, []detector.HandLandmarks{hand150})

	rec, err := f.session.RunCalibration(context.Background())
	if err != nil {
		t.Fatalf("RunCalibration() error = %v", err)
	}
	if rec.FocalLength != 500 {
		t.Errorf("FocalLength = %f, want 500", rec.FocalLength)
	}
	if f.detector.Calls() != 4 {
		t.Errorf("detector calls = %d, want 4", f.detector.Calls())
	}
	if f.display.Shown() != 4 {
		t.Errorf("frames shown = %d, want 4", f.display.Shown())
	}
}

func TestRun_RecalibrateThenQuit(t *testing.T) {
	f := newFrameFixture(t, Config{KnownDistanceCM: 30},
		overlay.KeyNone, overlay.KeyCalibrate, overlay.KeyNone, overlay.KeyQuit)
	f.session.SetRecord(distance.Record{FocalLength: 1000, ReferenceHandWidth: 9})
	f.detector.SetHands([]detector.HandLandmarks{hand150})

	if err := f.session.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := &distance.Record{FocalLength: 500, ReferenceHandWidth: 9}
	if diff := cmp.Diff(want, f.session.Record(), approx); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	if f.session.Frames() != 4 {
		t.Errorf("Frames() = %d, want 4", f.session.Frames())
	}
	if !f.store.Exists() {
		t.Error("recalibration was not saved")
	}
}
