package teleop

import "context"

// Channel is a persistent full-duplex message connection to one device.
type Channel interface {
	// Send transmits m. It returns ErrChannelClosed when the channel is not open.
	Send(m Message) error
	// Receive delivers inbound messages in arrival order. It is closed when
	// the remote side closes or the channel is closed locally.
	Receive() <-chan Message
	// Close releases the transport. Safe to call more than once.
	Close() error
}

// Dialer opens control channels addressed by device id.
type Dialer interface {
	Open(ctx context.Context, deviceID string) (Channel, error)
}
