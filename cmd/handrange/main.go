// Package main is the handrange command: it calibrates against a palm held
// at a known distance and then estimates the palm's distance from the webcam.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ayusman/handrange/internal/config"
)

const (
	// Flags.
	flagCamera              = "camera"
	flagWidth               = "width"
	flagHeight              = "height"
	flagNoMirror            = "no-mirror"
	flagCalibrationFile     = "calibration-file"
	flagKnownDistance       = "known-distance"
	flagHandWidth           = "hand-width"
	flagUsePrevious         = "use-previous"
	flagDetectionConfidence = "min-detection-confidence"
	flagTrackingConfidence  = "min-tracking-confidence"
	flagLandmarkScript      = "landmark-script"
	flagPython              = "python"
	flagLogLevel            = "log-level"
	flagLogFile             = "log-file"
	flagDebug               = "debug"
	flagAccessible          = "accessible"
	flagQuiet               = "quiet"
)

func main() {
	loadDotEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "handrange: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// loadDotEnv runs before flag parsing so that .env values reach the flags'
// environment variables.
func loadDotEnv() {
	files := []string{".env"}
	if f := os.Getenv(config.Env("ENV_FILE")); f != "" {
		files = append([]string{f}, files...)
	}
	if err := config.LoadDotEnv(files...); err != nil {
		fmt.Fprintf(os.Stderr, "handrange: %v\n", err)
	}
}

func newApp() *cli.App {
	def := config.Default()
	env := func(name string) []string { return []string{config.Env(name)} }

	return &cli.App{
		Name:  "handrange",
		Usage: "estimate how far your palm is from the webcam",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    flagCamera,
				Value:   def.CameraID,
				Usage:   "video capture device `ID`",
				EnvVars: env("CAMERA"),
			},
			&cli.IntFlag{
				Name:    flagWidth,
				Value:   def.FrameWidth,
				Usage:   "requested frame width in pixels",
				EnvVars: env("WIDTH"),
			},
			&cli.IntFlag{
				Name:    flagHeight,
				Value:   def.FrameHeight,
				Usage:   "requested frame height in pixels",
				EnvVars: env("HEIGHT"),
			},
			&cli.BoolFlag{
				Name:    flagNoMirror,
				Usage:   "show frames as the camera sees them instead of mirrored",
				EnvVars: env("NO_MIRROR"),
			},
			&cli.StringFlag{
				Name:    flagCalibrationFile,
				Value:   def.CalibrationFile,
				Usage:   "calibration `FILE`",
				EnvVars: env("CALIBRATION_FILE"),
			},
			&cli.Float64Flag{
				Name:    flagKnownDistance,
				Value:   def.KnownDistanceCM,
				Usage:   "distance in cm the palm is held at while calibrating",
				EnvVars: env("KNOWN_DISTANCE"),
			},
			&cli.Float64Flag{
				Name:    flagHandWidth,
				Usage:   "palm width in cm; asked interactively when unset",
				EnvVars: env("HAND_WIDTH"),
			},
			&cli.Float64Flag{
				Name:    flagDetectionConfidence,
				Value:   def.MinDetectionConfidence,
				Usage:   "minimum hand detection confidence",
				EnvVars: env("MIN_DETECTION_CONFIDENCE"),
			},
			&cli.Float64Flag{
				Name:    flagTrackingConfidence,
				Value:   def.MinTrackingConfidence,
				Usage:   "minimum hand tracking confidence",
				EnvVars: env("MIN_TRACKING_CONFIDENCE"),
			},
			&cli.StringFlag{
				Name:    flagLandmarkScript,
				Usage:   "path to the hand landmark helper script",
				EnvVars: env("LANDMARK_SCRIPT"),
			},
			&cli.StringFlag{
				Name:    flagPython,
				Usage:   "python interpreter for the helper script",
				EnvVars: env("PYTHON"),
			},
			&cli.StringFlag{
				Name:    flagLogLevel,
				Value:   def.LogLevel,
				Usage:   "log level (trace, debug, info, warn, error)",
				EnvVars: env("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    flagLogFile,
				Usage:   "also write logs to `FILE`, rotated",
				EnvVars: env("LOG_FILE"),
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.BoolFlag{
				Name:    flagAccessible,
				Usage:   "use plain line prompts",
				EnvVars: env("ACCESSIBLE"),
			},
			&cli.BoolFlag{
				Name:  flagQuiet,
				Usage: "suppress console messages",
			},
		},
		Before: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			c.App.Metadata = map[string]interface{}{runtimeKey: rt}
			return nil
		},
		Action: runAction,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "calibrate if needed, then estimate distance live",
				Action: runAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    flagUsePrevious,
						Aliases: []string{"y"},
						Usage:   "reuse the saved calibration without asking",
						EnvVars: env("USE_PREVIOUS"),
					},
				},
			},
			{
				Name:   "calibrate",
				Usage:  "capture a new calibration and save it",
				Action: calibrateAction,
			},
			{
				Name:   "show",
				Usage:  "print the saved calibration",
				Action: showAction,
			},
			{
				Name:   "reset",
				Usage:  "delete the saved calibration",
				Action: resetAction,
			},
		},
	}
}
