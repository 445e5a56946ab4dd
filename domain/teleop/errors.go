package teleop

import "errors"

var (
	// ErrDeviceUnavailable is returned when device attributes cannot be fetched.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrChannelOpen is returned when the control channel cannot be established.
	ErrChannelOpen = errors.New("control channel open failed")
	// ErrChannelClosed is returned by Send on a channel that is not open.
	ErrChannelClosed = errors.New("control channel closed")
	// ErrDeviceBusy is returned when another session holds the device lease.
	ErrDeviceBusy = errors.New("device busy")
	// ErrSessionClosed is returned for input posted to a terminated session.
	ErrSessionClosed = errors.New("session closed")
	// ErrRemoteClosed is the session cause when the device side closed the channel.
	ErrRemoteClosed = errors.New("closed by remote")
	// ErrUnknownDirection is returned when a direction name is not recognised.
	ErrUnknownDirection = errors.New("unknown direction")
)

// ErrNotActive is returned for input posted before the session is active.
var ErrNotActive = errors.New("session not active")
