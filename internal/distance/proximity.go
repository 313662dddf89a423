package distance

import "errors"

// Proximity is the warning state of a single frame.
type Proximity int

const (
	// Unknown means no distance could be computed for the frame.
	Unknown Proximity = iota
	// Safe means the palm is at or beyond the threshold.
	Safe
	// TooClose means the palm is nearer than TooCloseThresholdCM.
	TooClose
)

// String returns the proximity name.
func (p Proximity) String() string {
	switch p {
	case Safe:
		return "safe"
	case TooClose:
		return "too_close"
	default:
		return "unknown"
	}
}

// Classify compares a distance against TooCloseThresholdCM. The comparison is
// strict, so a palm exactly at the threshold is Safe.
func Classify(distanceCM float64) Proximity {
	if distanceCM < TooCloseThresholdCM {
		return TooClose
	}
	return Safe
}

// Reading is the estimator output for one frame.
type Reading struct {
	Distance  float64
	Known     bool
	Proximity Proximity
	Err       error
}

// Estimate runs the estimator on one frame's detection. Frames without a palm,
// or sessions without a record, give a Reading with Known unset and Err set to
// ErrNoDetection or ErrMissingCalibration respectively.
func Estimate(rec *Record, det Detection) Reading {
	if rec == nil {
		return Reading{Proximity: Unknown, Err: ErrMissingCalibration}
	}
	if !det.Found {
		return Reading{Proximity: Unknown, Err: ErrNoDetection}
	}

	d, err := EstimateDistance(rec, det.PixelWidth)
	if err != nil {
		return Reading{Proximity: Unknown, Err: err}
	}

	return Reading{
		Distance:  d,
		Known:     true,
		Proximity: Classify(d),
	}
}

// Warn reports whether the reading should raise the proximity warning.
func (r Reading) Warn() bool {
	return r.Known && r.Proximity == TooClose
}

// IsMissingCalibration reports whether the reading failed for lack of a record.
func (r Reading) IsMissingCalibration() bool {
	return errors.Is(r.Err, ErrMissingCalibration)
}
