package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/handrange/internal/app"
	"github.com/ayusman/handrange/internal/calibration"
	"github.com/ayusman/handrange/internal/capture"
	"github.com/ayusman/handrange/internal/config"
	"github.com/ayusman/handrange/internal/detector"
	"github.com/ayusman/handrange/internal/distance"
	"github.com/ayusman/handrange/internal/logging"
	"github.com/ayusman/handrange/internal/overlay"
	"github.com/ayusman/handrange/internal/prompt"
)

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	return newApp().RunContext(context.Background(), append([]string{"handrange", "--quiet", "--log-level", "error"}, args...))
}

func TestShowAndReset(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cal", calibration.DefaultFileName)

	if err := runCLI(t, "--calibration-file", file, "show"); !errors.Is(err, distance.ErrMissingCalibration) {
		t.Fatalf("show without file error = %v, want ErrMissingCalibration", err)
	}

	if err := os.WriteFile(file, []byte("500\n9\n"), 0644); err != nil {
		t.Fatalf("write calibration: %v", err)
	}
	if err := runCLI(t, "--calibration-file", file, "show"); err != nil {
		t.Fatalf("show error = %v", err)
	}

	if err := runCLI(t, "--calibration-file", file, "reset"); err != nil {
		t.Fatalf("reset error = %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Errorf("calibration file still present: %v", err)
	}

	if err := runCLI(t, "--calibration-file", file, "reset"); err != nil {
		t.Errorf("second reset error = %v", err)
	}
}

func TestInvalidFlags(t *testing.T) {
	file := filepath.Join(t.TempDir(), calibration.DefaultFileName)

	tests := []struct {
		name string
		args []string
	}{
		{name: "negative known distance", args: []string{"--known-distance", "-30"}},
		{name: "confidence above one", args: []string{"--min-detection-confidence", "2"}},
		{name: "negative hand width", args: []string{"--hand-width", "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--calibration-file", file}, tt.args...)
			if err := runCLI(t, append(args, "show")...); err == nil {
				t.Error("expected a config error")
			}
		})
	}
}

func TestHandWidthFlag(t *testing.T) {
	p := handWidthFlag{Prompter: prompt.Fixed{Previous: true}, width: 8.5}

	w, err := p.HandWidth()
	if err != nil || w != 8.5 {
		t.Errorf("HandWidth() = %f, %v", w, err)
	}
	use, err := p.UsePrevious("x")
	if err != nil || !use {
		t.Errorf("UsePrevious() = %v, %v", use, err)
	}
}

func TestStopped(t *testing.T) {
	for _, err := range []error{app.ErrQuit, prompt.ErrAborted, context.Canceled} {
		if !stopped(err) {
			t.Errorf("stopped(%v) = false", err)
		}
	}
	if stopped(errors.New("camera exploded")) || stopped(nil) {
		t.Error("real failures are not stops")
	}
}

// testRuntime builds a runtime on mock devices. The mock camera has no
// frames, so calibration can only end by a key press.
func testRuntime(t *testing.T, p prompt.Prompter, keys ...rune) *runtime {
	t.Helper()

	cfg := config.Default()
	cfg.CalibrationFile = filepath.Join(t.TempDir(), calibration.DefaultFileName)
	store, err := calibration.New(cfg.CalibrationFile)
	if err != nil {
		t.Fatalf("calibration.New() error = %v", err)
	}

	return &runtime{
		config:   cfg,
		logger:   logging.Discard(),
		store:    store,
		console:  prompt.NewConsole(true),
		prompter: p,
		newCamera: func(capture.Config) capture.Camera {
			return capture.NewMockCamera(nil, false)
		},
		newDetector: func(detector.Config) detector.Detector {
			return detector.NewMockDetector()
		},
		newDisplay: func(string) overlay.Display {
			return overlay.NewMockDisplay(keys...)
		},
	}
}

func TestResolveCalibration(t *testing.T) {
	saved := distance.Record{FocalLength: 500, ReferenceHandWidth: 9}

	t.Run("use previous", func(t *testing.T) {
		rt := testRuntime(t, prompt.Fixed{Previous: true})
		if err := rt.store.Save(saved); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		rec, err := rt.resolveCalibration(context.Background(), false)
		if err != nil {
			t.Fatalf("resolveCalibration() error = %v", err)
		}
		if diff := cmp.Diff(saved, rec); diff != "" {
			t.Errorf("record mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("flag skips the question", func(t *testing.T) {
		rt := testRuntime(t, prompt.Fixed{Previous: false})
		rt.store.Save(saved)

		rec, err := rt.resolveCalibration(context.Background(), true)
		if err != nil {
			t.Fatalf("resolveCalibration() error = %v", err)
		}
		if diff := cmp.Diff(saved, rec); diff != "" {
			t.Errorf("record mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing file calibrates", func(t *testing.T) {
		rt := testRuntime(t, prompt.Fixed{Width: 9}, overlay.KeyQuit)

		_, err := rt.resolveCalibration(context.Background(), true)
		if !errors.Is(err, app.ErrQuit) {
			t.Errorf("resolveCalibration() error = %v, want ErrQuit from the calibration window", err)
		}
	})

	t.Run("corrupt file calibrates", func(t *testing.T) {
		rt := testRuntime(t, prompt.Fixed{Width: 9, Previous: true}, overlay.KeyEscape)
		if err := os.WriteFile(rt.store.Path(), []byte("not a number\n"), 0644); err != nil {
			t.Fatalf("write calibration: %v", err)
		}

		_, err := rt.resolveCalibration(context.Background(), false)
		if !errors.Is(err, app.ErrQuit) {
			t.Errorf("resolveCalibration() error = %v, want ErrQuit from the calibration window", err)
		}
	})

	t.Run("declined previous calibrates", func(t *testing.T) {
		rt := testRuntime(t, prompt.Fixed{Width: 9, Previous: false}, overlay.KeyQuit)
		rt.store.Save(saved)

		_, err := rt.resolveCalibration(context.Background(), false)
		if !errors.Is(err, app.ErrQuit) {
			t.Errorf("resolveCalibration() error = %v, want ErrQuit", err)
		}
		loaded, err := rt.store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if diff := cmp.Diff(&saved, loaded); diff != "" {
			t.Errorf("aborted calibration changed the file (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid hand width", func(t *testing.T) {
		rt := testRuntime(t, prompt.Fixed{})

		_, err := rt.resolveCalibration(context.Background(), false)
		if !errors.Is(err, distance.ErrInvalidInput) {
			t.Errorf("resolveCalibration() error = %v, want ErrInvalidInput", err)
		}
	})
}
