package detector

import (
	"image"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/handrange/internal/distance"
)

// Palm is the measured palm of one hand in pixel space.
type Palm struct {
	distance.Detection

	// Box bounds the palm landmarks in pixels.
	Box image.Rectangle

	// Hand is the raw landmark set the measurement came from.
	Hand HandLandmarks
}

// MeasurePalm converts one hand's normalized landmarks into pixel space for a
// width x height frame and measures the palm.
//
// The palm width is the horizontal span of the wrist, index MCP and pinky MCP
// landmarks, each truncated to whole pixels. These three points stay rigid
// while the fingers move, so calibration and estimation see the same span.
// Landmarks that are not finite, or a frame with no area, produce a Palm
// with Found unset.
func MeasurePalm(hand HandLandmarks, width, height int) Palm {
	if width <= 0 || height <= 0 {
		return Palm{}
	}

	xs := make([]float64, len(PalmLandmarks))
	ys := make([]float64, len(PalmLandmarks))
	for i, idx := range PalmLandmarks {
		p := hand.Points[idx]
		if !finite(p.X) || !finite(p.Y) {
			return Palm{}
		}
		xs[i] = float64(int(p.X * float64(width)))
		ys[i] = float64(int(p.Y * float64(height)))
	}

	xMin, xMax := floats.Min(xs), floats.Max(xs)
	yMin, yMax := floats.Min(ys), floats.Max(ys)

	return Palm{
		Detection: distance.Detection{
			PixelWidth: math.Abs(xMax - xMin),
			Found:      true,
		},
		Box:  image.Rect(int(xMin), int(yMin), int(xMax), int(yMax)),
		Hand: hand,
	}
}

// FirstPalm measures the first detected hand, or returns a Palm with Found
// unset when hands is empty.
func FirstPalm(hands []HandLandmarks, width, height int) Palm {
	if len(hands) == 0 {
		return Palm{}
	}
	return MeasurePalm(hands[0], width, height)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
