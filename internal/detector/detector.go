package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand-landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks in
	// normalized image coordinates. Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect. Only the first is measured.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the helper script lookup.
	ScriptPath string

	// PythonPath overrides the interpreter lookup.
	PythonPath string

	// IdleTimeout stops the helper process after this long without a frame.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config for continuous estimation.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
	}
}

// CalibrationConfig returns a Config with the stricter detection confidence
// used while capturing a calibration reference.
func CalibrationConfig() Config {
	cfg := DefaultConfig()
	cfg.MinConfidence = 0.7
	return cfg
}
