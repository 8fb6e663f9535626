package media

import (
	"errors"
	"fmt"
)

// FailureKind classifies capture failures. Each kind maps to a distinct,
// user-actionable message; none of them is retried automatically.
type FailureKind int

const (
	KindPermissionDenied FailureKind = iota
	KindDeviceNotFound
	KindDeviceBusy
	KindOverconstrained
	KindInsecureContext
)

func (k FailureKind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission-denied"
	case KindDeviceNotFound:
		return "device-not-found"
	case KindDeviceBusy:
		return "device-busy"
	case KindOverconstrained:
		return "overconstrained"
	case KindInsecureContext:
		return "insecure-context"
	default:
		return "unknown"
	}
}

// CaptureError is a typed media-access failure. It is always terminal for
// the join attempt that triggered it.
type CaptureError struct {
	Kind   FailureKind
	Device string
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture %s: %s: %v", e.Device, e.Kind, e.Err)
	}
	return fmt.Sprintf("capture %s: %s", e.Device, e.Kind)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// UserMessage returns the message shown to the end user, verbatim.
func (e *CaptureError) UserMessage() string {
	switch e.Kind {
	case KindPermissionDenied:
		return "Access to your camera or microphone was denied. Grant permission and try again."
	case KindDeviceNotFound:
		return "No camera or microphone was found. Plug in a device and try again."
	case KindDeviceBusy:
		return "Your camera or microphone is in use by another application. Close it and try again."
	case KindOverconstrained:
		return "Your device does not support the requested capture settings."
	case KindInsecureContext:
		return "Media capture requires a secure connection. Use HTTPS and try again."
	default:
		return "Could not access your camera or microphone."
	}
}

// NewCaptureError wraps err as a typed capture failure.
func NewCaptureError(kind FailureKind, device string, err error) *CaptureError {
	return &CaptureError{Kind: kind, Device: device, Err: err}
}

// AsCaptureError unwraps err into a CaptureError if it is one.
func AsCaptureError(err error) (*CaptureError, bool) {
	var cerr *CaptureError
	if errors.As(err, &cerr) {
		return cerr, true
	}
	return nil, false
}
