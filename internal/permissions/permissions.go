// Package permissions checks OS-level access to capture devices.
package permissions

import "errors"

// ErrMicrophoneDenied means the OS refused microphone access. Capture
// devices will then deliver silence or fail to open.
var ErrMicrophoneDenied = errors.New("microphone permission not granted")

// Status mirrors the platform authorization states.
type Status int

const (
	NotDetermined Status = iota
	Restricted
	Denied
	Authorized
)

func (s Status) String() string {
	switch s {
	case NotDetermined:
		return "not determined"
	case Restricted:
		return "restricted"
	case Denied:
		return "denied"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Granted reports whether capture may proceed.
func (s Status) Granted() bool {
	return s == Authorized
}
