// Package distance implements the monocular palm distance model: a focal-length
// calibration from one reference capture and the per-frame width-to-distance
// conversion with its proximity classification.
package distance

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// TooCloseThresholdCM is the distance below which a palm is considered too close.
const TooCloseThresholdCM = 60.0

// DefaultKnownDistanceCM is the reference distance used for calibration captures.
const DefaultKnownDistanceCM = 30.0

var (
	// ErrNoDetection is returned when no palm (or a zero-width palm) was measured.
	ErrNoDetection = errors.New("no hand detected")

	// ErrMissingCalibration is returned when estimation is requested without a
	// usable calibration record.
	ErrMissingCalibration = errors.New("calibration missing")

	// ErrInvalidInput is returned when calibration inputs are not strictly positive.
	ErrInvalidInput = errors.New("invalid calibration input")
)

var validate = validator.New()

// Record is the persisted calibration: the derived focal length in pixels and
// the palm width in centimeters it was derived with.
type Record struct {
	FocalLength        float64 `json:"focal_length" validate:"gt=0"`
	ReferenceHandWidth float64 `json:"reference_hand_width" validate:"gt=0"`
}

// Validate reports whether both fields are strictly positive and finite.
func (r Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingCalibration, err)
	}
	if math.IsInf(r.FocalLength, 0) || math.IsInf(r.ReferenceHandWidth, 0) {
		return fmt.Errorf("%w: non-finite value", ErrMissingCalibration)
	}
	return nil
}

// Detection is the palm measurement for a single frame.
type Detection struct {
	PixelWidth float64
	Found      bool
}

// NoHand is the Detection for a frame without a palm.
var NoHand = Detection{}

type calibrationInput struct {
	KnownDistanceCM  float64 `validate:"gt=0"`
	KnownHandWidthCM float64 `validate:"gt=0"`
}

// Calibrate derives a Record from a palm of known width held at a known
// distance that measured observedPixelWidth pixels wide:
//
//	focal_length = observedPixelWidth * knownDistanceCM / knownHandWidthCM
//
// A non-positive observedPixelWidth yields ErrNoDetection.
func Calibrate(knownDistanceCM, knownHandWidthCM, observedPixelWidth float64) (Record, error) {
	in := calibrationInput{
		KnownDistanceCM:  knownDistanceCM,
		KnownHandWidthCM: knownHandWidthCM,
	}
	if err := validate.Struct(in); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if !(observedPixelWidth > 0) {
		return Record{}, ErrNoDetection
	}

	rec := Record{
		FocalLength:        observedPixelWidth * knownDistanceCM / knownHandWidthCM,
		ReferenceHandWidth: knownHandWidthCM,
	}
	if err := rec.Validate(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return rec, nil
}

// CalibrateDetection is Calibrate for a frame measurement. A detection that
// did not find a palm yields ErrNoDetection.
func CalibrateDetection(knownDistanceCM, knownHandWidthCM float64, det Detection) (Record, error) {
	if !det.Found {
		return Record{}, ErrNoDetection
	}
	return Calibrate(knownDistanceCM, knownHandWidthCM, det.PixelWidth)
}

// EstimateDistance converts a palm pixel width into centimeters:
//
//	distance_cm = rec.FocalLength * rec.ReferenceHandWidth / pixelWidth
//
// A nil or invalid record yields ErrMissingCalibration, a non-positive width
// yields ErrNoDetection.
func EstimateDistance(rec *Record, pixelWidth float64) (float64, error) {
	if rec == nil {
		return 0, ErrMissingCalibration
	}
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	if !(pixelWidth > 0) {
		return 0, ErrNoDetection
	}

	return rec.FocalLength * rec.ReferenceHandWidth / pixelWidth, nil
}
