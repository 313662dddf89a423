// Package app runs the handrange frame loop: calibration capture and live
// distance estimation.
package app

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/handrange/internal/calibration"
	"github.com/ayusman/handrange/internal/capture"
	"github.com/ayusman/handrange/internal/detector"
	"github.com/ayusman/handrange/internal/distance"
	"github.com/ayusman/handrange/internal/logging"
	"github.com/ayusman/handrange/internal/overlay"
)

// ErrQuit is returned by RunCalibration when the user quits before a
// calibration was captured.
var ErrQuit = errors.New("quit before calibration")

// Mode is the session state.
type Mode int

const (
	// Uncalibrated means no record is loaded; frames show the calibration hint.
	Uncalibrated Mode = iota
	// Calibrated means a record is loaded and distances are estimated.
	Calibrated
)

func (m Mode) String() string {
	switch m {
	case Uncalibrated:
		return "uncalibrated"
	case Calibrated:
		return "calibrated"
	default:
		return "unknown"
	}
}

// Config holds the session settings.
type Config struct {
	// KnownDistanceCM is the distance the hand is held at for calibration.
	KnownDistanceCM float64
	// HandWidthCM is the user's real palm width, needed for calibration captures.
	HandWidthCM float64
	// KeyPollMs is how long each frame waits for a key press.
	KeyPollMs int
}

// Session owns the camera, detector, display and calibration record for one
// run of the program. It is not safe for concurrent use.
type Session struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	display  overlay.Display
	renderer *overlay.Renderer
	store    *calibration.Store
	log      *logrus.Entry

	record       *distance.Record
	calibrations int
	frames       int
	lastWarn     bool
}

// NewSession creates a session in Uncalibrated mode. store may be nil, in
// which case calibrations are kept in memory only.
func NewSession(config Config, cam capture.Camera, det detector.Detector, disp overlay.Display, store *calibration.Store, logger logrus.FieldLogger) *Session {
	if config.KnownDistanceCM <= 0 {
		config.KnownDistanceCM = distance.DefaultKnownDistanceCM
	}
	if config.KeyPollMs <= 0 {
		config.KeyPollMs = overlay.DefaultPollMs
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &Session{
		config:   config,
		camera:   cam,
		detector: det,
		display:  disp,
		renderer: overlay.NewRenderer(config.KnownDistanceCM),
		store:    store,
		log:      logging.WithSession(logger),
	}
}

// Mode returns the current session mode.
func (s *Session) Mode() Mode {
	if s.record == nil {
		return Uncalibrated
	}
	return Calibrated
}

// Record returns a copy of the active calibration record, or nil.
func (s *Session) Record() *distance.Record {
	if s.record == nil {
		return nil
	}
	rec := *s.record
	return &rec
}

// SetRecord installs a calibration record, e.g. one loaded from disk, and
// switches to Calibrated mode.
func (s *Session) SetRecord(rec distance.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.record = &rec
	s.log.WithFields(logrus.Fields{
		"focal_length": rec.FocalLength,
		"hand_width":   rec.ReferenceHandWidth,
	}).Info("Calibration loaded")
	return nil
}

// LoadCalibration loads the record from the store and installs it.
func (s *Session) LoadCalibration() error {
	if s.store == nil {
		return fmt.Errorf("%w: no calibration store", distance.ErrMissingCalibration)
	}
	rec, err := s.store.Load()
	if err != nil {
		return err
	}
	return s.SetRecord(*rec)
}

// SetHandWidth sets the real palm width used by later calibration captures.
func (s *Session) SetHandWidth(cm float64) {
	s.config.HandWidthCM = cm
}

// Renderer returns the overlay renderer for tweaking drawing options.
func (s *Session) Renderer() *overlay.Renderer {
	return s.renderer
}

// Frames returns the number of frames processed so far.
func (s *Session) Frames() int {
	return s.frames
}

// CaptureCalibration derives a record from palm at the configured known
// distance and hand width, persists it, and makes it active. Without a
// configured hand width the active record's width is reused. When no palm was
// measured the error wraps distance.ErrNoDetection and the current record is
// left unchanged. A record that cannot be saved is not activated.
func (s *Session) CaptureCalibration(palm detector.Palm) (distance.Record, error) {
	log := s.log.WithField("calibration_id", logging.NewSessionID())

	rec, err := distance.CalibrateDetection(s.config.KnownDistanceCM, s.handWidth(), palm.Detection)
	if err != nil {
		log.WithError(err).Warn("Calibration capture failed")
		return distance.Record{}, fmt.Errorf("calibrate: %w", err)
	}

	if s.store != nil {
		if err := s.store.Save(rec); err != nil {
			log.WithError(err).Error("Failed to save calibration")
			return distance.Record{}, err
		}
	}

	s.record = &rec
	s.calibrations++

	fields := logrus.Fields{
		"pixel_width":  palm.PixelWidth,
		"focal_length": rec.FocalLength,
		"hand_width":   rec.ReferenceHandWidth,
	}
	if s.store != nil {
		fields["file"] = s.store.Path()
	}
	log.WithFields(fields).Info("Calibration successful")

	return rec, nil
}

// handWidth is the configured palm width, or the active record's when unset.
func (s *Session) handWidth() float64 {
	if s.config.HandWidthCM <= 0 && s.record != nil {
		return s.record.ReferenceHandWidth
	}
	return s.config.HandWidthCM
}

// Open opens the camera if it is not already open.
func (s *Session) Open() error {
	if s.camera.IsOpen() {
		return nil
	}
	if err := s.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	return nil
}

// Close releases the camera, detector and display.
func (s *Session) Close() error {
	var errs []error

	if err := s.camera.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close camera: %w", err))
	}
	if s.detector != nil {
		if err := s.detector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close detector: %w", err))
		}
	}
	if s.display != nil {
		if err := s.display.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close display: %w", err))
		}
	}

	s.log.WithField("frames", s.frames).Debug("Session closed")
	return errors.Join(errs...)
}
