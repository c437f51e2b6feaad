package standalone

import "errors"

// ErrStorageInit is returned when the storage medium is unavailable at boot.
var ErrStorageInit = errors.New("storage unavailable")

// ErrNotFound is returned when a named file does not exist.
var ErrNotFound = errors.New("file not found")

// ErrOpen is returned when a file exists but cannot be opened or created.
var ErrOpen = errors.New("cannot open file")

// ErrMalformedLine is returned for lines that cannot be decoded.
var ErrMalformedLine = errors.New("malformed line")

// ErrTravelLimit is returned when a move would leave an axis's travel range.
var ErrTravelLimit = errors.New("movement out of bounds")

// ErrHomingTimeout is returned when a limit switch never triggers.
var ErrHomingTimeout = errors.New("homing timed out")

// ErrNoLimitSwitch is returned when homing an axis without a limit sensor.
var ErrNoLimitSwitch = errors.New("axis has no limit switch")

// ErrPulseDelay is returned when a pulse delay does not exceed the pulse width.
var ErrPulseDelay = errors.New("pulse delay too short")

// ErrInvalidSelection is returned for console selections outside the file list.
var ErrInvalidSelection = errors.New("invalid selection")

// ErrConfig is returned for invalid machine configurations.
var ErrConfig = errors.New("invalid configuration")

// ErrNotInitialized is returned when the machine is used before Initialize.
var ErrNotInitialized = errors.New("machine not initialized")
