// Package overlay draws the palm, distance readout and proximity warning onto
// frames and shows them in a window.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/handrange/internal/detector"
	"github.com/ayusman/handrange/internal/distance"
)

// WarningText is shown when the palm is too close.
const WarningText = "Too Close!! Move Back"

var (
	calibrationBox = color.RGBA{0, 255, 0, 255}
	palmBox        = color.RGBA{255, 0, 255, 255}
	hintColor      = color.RGBA{255, 0, 0, 255}
	distanceColor  = color.RGBA{0, 0, 255, 255}
	warningColor   = color.RGBA{255, 0, 0, 255}
	landmarkColor  = color.RGBA{255, 255, 255, 255}
	boneColor      = color.RGBA{0, 200, 0, 255}
)

// Renderer draws annotations in place on BGR frames.
type Renderer struct {
	// KnownDistanceCM is quoted in the calibration hint.
	KnownDistanceCM float64

	// DrawSkeleton draws landmarks and their connections in estimation mode.
	DrawSkeleton bool
}

// NewRenderer creates a Renderer for the given calibration reference distance.
func NewRenderer(knownDistanceCM float64) *Renderer {
	return &Renderer{
		KnownDistanceCM: knownDistanceCM,
		DrawSkeleton:    true,
	}
}

// DrawCalibration annotates a frame captured while waiting for a calibration
// capture: the palm box with its pixel width, and the placement hint.
func (r *Renderer) DrawCalibration(frame *gocv.Mat, palm detector.Palm) {
	if frame == nil || frame.Empty() {
		return
	}

	if palm.Found {
		gocv.Rectangle(frame, palm.Box, calibrationBox, 2)
		label := fmt.Sprintf("Pixel Width: %d", int(palm.PixelWidth))
		gocv.PutText(frame, label, image.Pt(palm.Box.Min.X, palm.Box.Min.Y-10),
			gocv.FontHersheySimplex, 0.7, calibrationBox, 2)
	}

	hint := fmt.Sprintf("Place hand at %g cm and press '%c'", r.KnownDistanceCM, KeyCalibrate)
	gocv.PutText(frame, hint, image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, hintColor, 2)
}

// DrawEstimate annotates a frame in estimation mode. Frames without a known
// distance only get the palm drawing, if any.
func (r *Renderer) DrawEstimate(frame *gocv.Mat, palm detector.Palm, reading distance.Reading) {
	if frame == nil || frame.Empty() {
		return
	}

	if palm.Found {
		if r.DrawSkeleton {
			drawSkeleton(frame, palm.Hand)
		}
		gocv.Rectangle(frame, palm.Box, palmBox, 2)
	}

	if !reading.Known {
		return
	}

	gocv.PutText(frame, FormatDistance(reading.Distance), image.Pt(10, 30),
		gocv.FontHersheySimplex, 1, distanceColor, 2)

	if reading.Warn() {
		at := image.Pt(frame.Cols()/2-200, frame.Rows()/2)
		gocv.PutText(frame, WarningText, at, gocv.FontHersheyTriplex, 1.2, warningColor, 2)
	}
}

// FormatDistance renders the distance readout text.
func FormatDistance(cm float64) string {
	return fmt.Sprintf("Distance: %.2f cm", cm)
}

func drawSkeleton(frame *gocv.Mat, hand detector.HandLandmarks) {
	w, h := float64(frame.Cols()), float64(frame.Rows())
	pt := func(i int) image.Point {
		p := hand.Points[i]
		return image.Pt(int(p.X*w), int(p.Y*h))
	}

	for _, c := range detector.HandConnections {
		gocv.Line(frame, pt(c[0]), pt(c[1]), boneColor, 2)
	}
	for i := 0; i < detector.NumLandmarks; i++ {
		gocv.Circle(frame, pt(i), 3, landmarkColor, -1)
	}
}
