package core

import (
	"errors"
)

// Every GPU call on the frame path is a hard precondition. The first failure
// aborts the frame and bubbles up to the engine, which shuts down; there is
// no retry and no partial recovery.
var (
	// ErrNoSuitableAdapter means adapter enumeration exhausted without
	// finding a non-software adapter at the required feature level.
	ErrNoSuitableAdapter = errors.New("no suitable hardware adapter")
	// ErrDeviceCreationFailed means the selected adapter could not back a
	// logical device.
	ErrDeviceCreationFailed = errors.New("device creation failed")
	// ErrResourceCreationFailed covers buffers, descriptor tables and the
	// presentation surface.
	ErrResourceCreationFailed = errors.New("resource creation failed")
	// ErrRecordingFailed aborts the frame before anything is submitted.
	ErrRecordingFailed = errors.New("command recording failed")
	ErrSubmissionFailed = errors.New("queue submission failed")
	ErrPresentFailed    = errors.New("present failed")
	// ErrSyncFailed is fatal: a fence wait has no timeout in this design.
	ErrSyncFailed = errors.New("fence synchronization failed")
	// ErrIndexOutOfRange rejects a color-table selector outside the table
	// bounds instead of letting the shader read undefined memory.
	ErrIndexOutOfRange = errors.New("color table index out of range")

	ErrUnknown = errors.New("unknown")
)
