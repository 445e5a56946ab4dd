package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/open-teleop/mission-control/domain/teleop"
	customlog "github.com/open-teleop/mission-control/pkg/log"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 5 * time.Second
	receiveBuffer           = 64
)

// ControlDialer opens control channels to the controller's /ws/robot/:id
// endpoint.
type ControlDialer struct {
	baseURL      string
	dialer       *websocket.Dialer
	writeTimeout time.Duration
	logger       customlog.Logger
}

var _ teleop.Dialer = (*ControlDialer)(nil)

// NewControlDialer creates a dialer for the controller at baseURL. http and
// https schemes are mapped to ws and wss.
func NewControlDialer(baseURL string, logger customlog.Logger) (*ControlDialer, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid controller url %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported controller url scheme %q", u.Scheme)
	}
	return &ControlDialer{
		baseURL: u.String(),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		writeTimeout: defaultWriteTimeout,
		logger:       logger,
	}, nil
}

// Open implements teleop.Dialer. A refused handshake maps 409 to
// ErrDeviceBusy and 404 to ErrDeviceUnavailable.
func (d *ControlDialer) Open(ctx context.Context, deviceID string) (teleop.Channel, error) {
	target := d.baseURL + "/ws/robot/" + url.PathEscape(deviceID)
	conn, resp, err := d.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusConflict:
				return nil, fmt.Errorf("%w: robot %s", teleop.ErrDeviceBusy, deviceID)
			case http.StatusNotFound:
				return nil, fmt.Errorf("%w: robot %s", teleop.ErrDeviceUnavailable, deviceID)
			}
			return nil, fmt.Errorf("%w: handshake status %d: %v", teleop.ErrChannelOpen, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%w: %v", teleop.ErrChannelOpen, err)
	}
	d.logger.Debugf("Control channel open: %s", target)
	return newWSChannel(conn, d.writeTimeout, d.logger.WithField("robot", deviceID)), nil
}

// wsChannel adapts a gorilla connection to teleop.Channel. One goroutine
// reads; writes are serialized by writeMu.
type wsChannel struct {
	conn         *websocket.Conn
	recv         chan teleop.Message
	writeTimeout time.Duration
	logger       customlog.Logger

	writeMu   sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

func newWSChannel(conn *websocket.Conn, writeTimeout time.Duration, logger customlog.Logger) *wsChannel {
	c := &wsChannel{
		conn:         conn,
		recv:         make(chan teleop.Message, receiveBuffer),
		writeTimeout: writeTimeout,
		logger:       logger,
		closed:       make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *wsChannel) readLoop() {
	defer close(c.recv)
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Warnf("Control channel read error: %v", err)
				} else {
					c.logger.Infof("Control channel closed by remote: %v", err)
				}
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var m teleop.Message
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Warnf("Dropping undecodable message: %v", err)
			continue
		}

		select {
		case c.recv <- m:
		case <-c.closed:
			return
		}
	}
}

// Send implements teleop.Channel.
func (c *wsChannel) Send(m teleop.Message) error {
	select {
	case <-c.closed:
		return teleop.ErrChannelClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("%w: %v", teleop.ErrChannelClosed, err)
	}
	// A failed write leaves the connection unusable.
	if err := c.conn.WriteJSON(m); err != nil {
		return fmt.Errorf("%w: %v", teleop.ErrChannelClosed, err)
	}
	return nil
}

// Receive implements teleop.Channel.
func (c *wsChannel) Receive() <-chan teleop.Message {
	return c.recv
}

// Close implements teleop.Channel.
func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.writeTimeout))
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	return err
}
