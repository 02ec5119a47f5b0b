package sim

import "errors"

// Failure kinds of a simulation run. Callers match them with errors.Is; the
// wrapped message carries the specifics.
var (
	// ErrDataConsistency: joining observed sources with the calibration catalog
	// lost or duplicated rows.
	ErrDataConsistency = errors.New("data consistency")

	// ErrCalibrationMismatch: the observed sources do not start at the
	// reference magnitude the parameters were calibrated for.
	ErrCalibrationMismatch = errors.New("calibration mismatch")

	// ErrGenerationRetryExhausted: background placement could not fill the
	// region within the retry budget.
	ErrGenerationRetryExhausted = errors.New("background generation retries exhausted")

	// ErrRunawayBranching: the cascade exceeded its generation or wall-clock cap.
	ErrRunawayBranching = errors.New("runaway branching")

	// ErrNumericalInversion: the aftershock delay kernel could not be inverted.
	ErrNumericalInversion = errors.New("numerical inversion failure")

	// ErrInvalidParameters: the parameter set is not usable.
	ErrInvalidParameters = errors.New("invalid parameters")
)
