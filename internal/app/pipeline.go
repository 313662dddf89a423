package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/handrange/internal/capture"
	"github.com/ayusman/handrange/internal/detector"
	"github.com/ayusman/handrange/internal/distance"
	"github.com/ayusman/handrange/internal/overlay"
)

// FrameResult is the outcome of processing one frame.
type FrameResult struct {
	Palm    detector.Palm
	Reading distance.Reading
}

// ProcessFrame runs detection and estimation on frame and draws the overlay
// for the current mode onto it. A detector failure is returned alongside a
// result that treats the frame as having no hand.
func (s *Session) ProcessFrame(frame *gocv.Mat) (FrameResult, error) {
	if frame == nil || frame.Empty() {
		return FrameResult{}, capture.ErrEmptyFrame
	}
	s.frames++

	var (
		hands  []detector.HandLandmarks
		detErr error
	)
	if s.detector != nil {
		hands, detErr = s.detector.Detect(frame)
		if detErr != nil {
			detErr = fmt.Errorf("detect hands: %w", detErr)
			hands = nil
		}
	}

	palm := detector.FirstPalm(hands, frame.Cols(), frame.Rows())
	reading := distance.Estimate(s.record, palm.Detection)

	switch s.Mode() {
	case Uncalibrated:
		s.renderer.DrawCalibration(frame, palm)
	case Calibrated:
		s.renderer.DrawEstimate(frame, palm, reading)
		s.logReading(palm, reading)
	}

	return FrameResult{Palm: palm, Reading: reading}, detErr
}

// logReading logs every estimate at debug level and warning changes at info.
func (s *Session) logReading(palm detector.Palm, reading distance.Reading) {
	if !reading.Known {
		return
	}

	log := s.log.WithFields(logrus.Fields{
		"pixel_width": palm.PixelWidth,
		"distance_cm": reading.Distance,
		"proximity":   reading.Proximity.String(),
	})
	log.Debug("Estimate")

	if warn := reading.Warn(); warn != s.lastWarn {
		s.lastWarn = warn
		if warn {
			log.Info("Hand too close")
		} else {
			log.Info("Hand at safe distance")
		}
	}
}

// Step runs one loop iteration: read a frame, process it, show it, and handle
// the key pressed. It returns false once the user asked to quit. Camera read
// failures skip the frame; a closed camera is returned as an error.
func (s *Session) Step() (bool, error) {
	frame, err := s.camera.ReadFrame()
	if err != nil {
		if errors.Is(err, capture.ErrCameraNotOpen) {
			return false, err
		}
		s.log.WithError(err).Debug("Skipping frame")
		return s.handleKey(s.display.PollKey(s.config.KeyPollMs), detector.Palm{}), nil
	}
	defer frame.Close()

	result, err := s.ProcessFrame(frame)
	if err != nil {
		s.log.WithError(err).Warn("Hand detection failed")
	}

	s.display.Show(frame)
	return s.handleKey(s.display.PollKey(s.config.KeyPollMs), result.Palm), nil
}

func (s *Session) handleKey(key rune, palm detector.Palm) bool {
	switch {
	case overlay.IsQuit(key):
		s.log.Info("Quit requested")
		return false
	case key == overlay.KeyCalibrate:
		if _, err := s.CaptureCalibration(palm); errors.Is(err, distance.ErrNoDetection) {
			s.log.Warn("Could not measure hand width. Please try again.")
		}
	}
	return true
}

// Run loops until the user quits or ctx is cancelled. The camera is opened if
// needed; resources are released by Close.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Open(); err != nil {
		return err
	}
	s.log.WithField("mode", s.Mode().String()).Info("Starting distance estimation")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		more, err := s.Step()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// RunCalibration loops until a new calibration is captured and returns it.
// Quitting first returns ErrQuit; cancelling ctx returns ctx.Err().
func (s *Session) RunCalibration(ctx context.Context) (distance.Record, error) {
	if !(s.handWidth() > 0) {
		return distance.Record{}, fmt.Errorf("%w: hand width must be set before calibrating", distance.ErrInvalidInput)
	}
	if err := s.Open(); err != nil {
		return distance.Record{}, err
	}

	// Frames in this loop always show the calibration overlay.
	prev := s.record
	s.config.HandWidthCM = s.handWidth()
	s.record = nil
	defer func() {
		if s.record == nil {
			s.record = prev
		}
	}()

	start := s.calibrations
	s.log.WithField("known_distance_cm", s.config.KnownDistanceCM).Info("Starting calibration")

	for s.calibrations == start {
		select {
		case <-ctx.Done():
			return distance.Record{}, ctx.Err()
		default:
		}

		more, err := s.Step()
		if err != nil {
			return distance.Record{}, err
		}
		if !more && s.calibrations == start {
			return distance.Record{}, ErrQuit
		}
	}

	return *s.record, nil
}
