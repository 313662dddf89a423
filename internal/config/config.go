// Package config holds handrange runtime settings: defaults, .env loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/ayusman/handrange/internal/calibration"
	"github.com/ayusman/handrange/internal/capture"
	"github.com/ayusman/handrange/internal/detector"
	"github.com/ayusman/handrange/internal/distance"
)

// EnvPrefix prefixes every environment variable handrange reads.
const EnvPrefix = "HANDRANGE_"

// Env returns the environment variable name for a setting, e.g. Env("CAMERA")
// is HANDRANGE_CAMERA.
func Env(name string) string {
	return EnvPrefix + name
}

// Config holds all runtime settings.
type Config struct {
	CameraID    int  `validate:"gte=0"`
	FrameWidth  int  `validate:"gt=0"`
	FrameHeight int  `validate:"gt=0"`
	Mirror      bool

	CalibrationFile string  `validate:"required"`
	KnownDistanceCM float64 `validate:"gt=0"`
	// HandWidthCM is the user's palm width. Zero means ask interactively.
	HandWidthCM float64 `validate:"gte=0"`

	MinDetectionConfidence float64 `validate:"gte=0,lte=1"`
	MinTrackingConfidence  float64 `validate:"gte=0,lte=1"`
	LandmarkScript         string
	PythonPath             string
	DetectorIdleTimeout    time.Duration `validate:"gte=0"`

	LogLevel string `validate:"oneof=trace debug info warn error"`
	LogFile  string

	WindowTitle string `validate:"required"`
	KeyPollMs   int    `validate:"gt=0"`
}

// Default returns the default configuration. The calibration file lives in
// ~/.handrange, or the working directory if the home directory is unknown.
func Default() Config {
	calFile := calibration.DefaultFileName
	if home, err := os.UserHomeDir(); err == nil {
		calFile = filepath.Join(home, ".handrange", calibration.DefaultFileName)
	}

	det := detector.DefaultConfig()

	return Config{
		CameraID:               0,
		FrameWidth:             capture.DefaultWidth,
		FrameHeight:            capture.DefaultHeight,
		Mirror:                 true,
		CalibrationFile:        calFile,
		KnownDistanceCM:        distance.DefaultKnownDistanceCM,
		MinDetectionConfidence: det.MinConfidence,
		MinTrackingConfidence:  det.MinTrackingConf,
		DetectorIdleTimeout:    det.IdleTimeout,
		LogLevel:               "info",
		WindowTitle:            "Hand Distance Estimator",
		KeyPollMs:              5,
	}
}

var validate = validator.New()

// Validate checks every field and reports all violations in one error.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Camera returns the capture settings.
func (c Config) Camera() capture.Config {
	return capture.Config{
		DeviceID: c.CameraID,
		Width:    c.FrameWidth,
		Height:   c.FrameHeight,
		FPS:      capture.DefaultFPS,
		Mirror:   c.Mirror,
	}
}

// Detector returns the detector settings. Calibration captures use the
// stricter detection confidence of detector.CalibrationConfig unless a
// higher one is configured.
func (c Config) Detector(calibrating bool) detector.Config {
	cfg := detector.DefaultConfig()
	if calibrating {
		cfg = detector.CalibrationConfig()
	}
	if c.MinDetectionConfidence > cfg.MinConfidence || !calibrating {
		cfg.MinConfidence = c.MinDetectionConfidence
	}
	cfg.MinTrackingConf = c.MinTrackingConfidence
	cfg.ScriptPath = c.LandmarkScript
	cfg.PythonPath = c.PythonPath
	cfg.IdleTimeout = c.DetectorIdleTimeout
	return cfg
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables already set. Files that do not
// exist are skipped; with no arguments ".env" in the working directory is tried.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}
