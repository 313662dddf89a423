package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

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

const (
	runtimeKey        = "runtime"
	calibrationWindow = "Calibration"
)

// runtime carries what every command needs, built once in Before.
type runtime struct {
	config   config.Config
	logger   *logrus.Logger
	store    *calibration.Store
	console  *prompt.Console
	prompter prompt.Prompter

	// Device constructors, replaced in tests.
	newDetector func(detector.Config) detector.Detector
	newDisplay  func(title string) overlay.Display
	newCamera   func(capture.Config) capture.Camera
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg := configFromFlags(c)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:        cfg.LogLevel,
		File:         cfg.LogFile,
		ReportCaller: cfg.LogLevel == "debug" || cfg.LogLevel == "trace",
	})
	if err != nil {
		return nil, err
	}

	store, err := calibration.New(cfg.CalibrationFile)
	if err != nil {
		return nil, err
	}

	var prompter prompt.Prompter = prompt.NewTerminal(c.Bool(flagAccessible))
	if cfg.HandWidthCM > 0 {
		prompter = handWidthFlag{Prompter: prompter, width: cfg.HandWidthCM}
	}

	rt := &runtime{
		config:   cfg,
		logger:   logger,
		store:    store,
		console:  prompt.NewConsole(c.Bool(flagQuiet)),
		prompter: prompter,
		newCamera: func(cc capture.Config) capture.Camera {
			return capture.NewCamera(cc)
		},
		newDisplay: func(title string) overlay.Display {
			return overlay.NewWindow(title)
		},
	}
	rt.newDetector = rt.mediaPipeOrMock
	return rt, nil
}

func configFromFlags(c *cli.Context) config.Config {
	cfg := config.Default()
	cfg.CameraID = c.Int(flagCamera)
	cfg.FrameWidth = c.Int(flagWidth)
	cfg.FrameHeight = c.Int(flagHeight)
	cfg.Mirror = !c.Bool(flagNoMirror)
	cfg.CalibrationFile = c.String(flagCalibrationFile)
	cfg.KnownDistanceCM = c.Float64(flagKnownDistance)
	cfg.HandWidthCM = c.Float64(flagHandWidth)
	cfg.MinDetectionConfidence = c.Float64(flagDetectionConfidence)
	cfg.MinTrackingConfidence = c.Float64(flagTrackingConfidence)
	cfg.LandmarkScript = c.String(flagLandmarkScript)
	cfg.PythonPath = c.String(flagPython)
	cfg.LogLevel = c.String(flagLogLevel)
	cfg.LogFile = c.String(flagLogFile)
	if c.Bool(flagDebug) {
		cfg.LogLevel = "debug"
	}
	return cfg
}

// handWidthFlag answers the hand width question from the command line and
// defers everything else to the wrapped prompter.
type handWidthFlag struct {
	prompt.Prompter
	width float64
}

func (h handWidthFlag) HandWidth() (float64, error) {
	return prompt.Fixed{Width: h.width}.HandWidth()
}

func runtimeFrom(c *cli.Context) (*runtime, error) {
	rt, ok := c.App.Metadata[runtimeKey].(*runtime)
	if !ok {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// mediaPipeOrMock prefers the MediaPipe helper and falls back to a detector
// that never finds a hand, so the window still opens without Python.
func (rt *runtime) mediaPipeOrMock(cfg detector.Config) detector.Detector {
	mp, err := detector.NewMediaPipeDetector(cfg)
	if err != nil {
		rt.logger.WithError(err).Warn("MediaPipe not available, using mock detector")
		rt.console.Warning("Hand detection unavailable: %v", err)
		return detector.NewMockDetector()
	}
	rt.logger.WithField("min_confidence", cfg.MinConfidence).Info("Using MediaPipe hand detection")
	return mp
}

func (rt *runtime) newSession(calibrating bool) *app.Session {
	title := rt.config.WindowTitle
	if calibrating {
		title = calibrationWindow
	}

	return app.NewSession(
		app.Config{
			KnownDistanceCM: rt.config.KnownDistanceCM,
			HandWidthCM:     rt.config.HandWidthCM,
			KeyPollMs:       rt.config.KeyPollMs,
		},
		rt.newCamera(rt.config.Camera()),
		rt.newDetector(rt.config.Detector(calibrating)),
		rt.newDisplay(title),
		rt.store,
		rt.logger,
	)
}

// calibrate asks for the hand width and runs the calibration window until a
// capture succeeds.
func (rt *runtime) calibrate(ctx context.Context) (distance.Record, error) {
	rt.console.Info("Starting calibration")

	width, err := rt.prompter.HandWidth()
	if err != nil {
		return distance.Record{}, err
	}

	rt.console.Info("Please place your hand at a known distance of %g cm from the camera.", rt.config.KnownDistanceCM)
	rt.console.Info("Ensure your palm is facing the camera.")
	rt.console.Info("Press '%c' to capture and calibrate.", overlay.KeyCalibrate)

	session := rt.newSession(true)
	defer func() {
		if err := session.Close(); err != nil {
			rt.logger.WithError(err).Warn("Failed to release calibration resources")
		}
	}()
	session.SetHandWidth(width)

	rec, err := session.RunCalibration(ctx)
	if err != nil {
		return distance.Record{}, err
	}

	rt.console.Success("Calibration successful! Focal Length calculated: %.2f", rec.FocalLength)
	rt.console.Success("Saved to %s", rt.store.Path())
	return rec, nil
}

// resolveCalibration returns the record to estimate with: the saved one if
// the user keeps it, otherwise a fresh calibration. usePrevious skips the
// question.
func (rt *runtime) resolveCalibration(ctx context.Context, usePrevious bool) (distance.Record, error) {
	if !rt.store.Exists() {
		rt.console.Info("No calibration file found.")
		return rt.calibrate(ctx)
	}

	if !usePrevious {
		var err error
		usePrevious, err = rt.prompter.UsePrevious(rt.store.Path())
		if err != nil {
			return distance.Record{}, err
		}
	}
	if !usePrevious {
		return rt.calibrate(ctx)
	}

	rec, err := rt.store.Load()
	if err != nil {
		rt.logger.WithError(err).Warn("Calibration file unusable")
		rt.console.Warning("Calibration file is corrupt. Please recalibrate.")
		return rt.calibrate(ctx)
	}
	rt.console.Success("Loaded calibration data successfully.")
	return *rec, nil
}

// stopped reports whether err means the user ended the program rather than
// a failure.
func stopped(err error) bool {
	return errors.Is(err, app.ErrQuit) ||
		errors.Is(err, prompt.ErrAborted) ||
		errors.Is(err, context.Canceled)
}

func runAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	rec, err := rt.resolveCalibration(c.Context, c.Bool(flagUsePrevious))
	if stopped(err) {
		rt.console.Warning("Could not obtain calibration data. Exiting.")
		return nil
	}
	if err != nil {
		return err
	}

	session := rt.newSession(false)
	defer func() {
		if err := session.Close(); err != nil {
			rt.logger.WithError(err).Warn("Failed to release resources")
		}
	}()
	if err := session.SetRecord(rec); err != nil {
		return err
	}

	rt.console.Info("Starting distance estimation... Press '%c' to quit.", overlay.KeyQuit)
	if err := session.Run(c.Context); err != nil {
		return err
	}
	rt.console.Info("Program finished.")
	return nil
}

func calibrateAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	_, err = rt.calibrate(c.Context)
	if stopped(err) {
		rt.console.Warning("Calibration cancelled.")
		return nil
	}
	return err
}

func showAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	rec, err := rt.store.Load()
	if err != nil {
		return fmt.Errorf("no usable calibration at %s: %w", rt.store.Path(), err)
	}
	return rt.console.Calibration(rt.store.Path(), *rec)
}

func resetAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	if err := rt.store.Remove(); err != nil {
		return err
	}
	rt.logger.WithField("file", rt.store.Path()).Info("Calibration removed")
	rt.console.Success("Removed %s", rt.store.Path())
	return nil
}
