package zeromq

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/open-teleop/mission-control/domain/teleop"
	"github.com/open-teleop/mission-control/pkg/config"
	customlog "github.com/open-teleop/mission-control/pkg/log"
)

// Common errors
var (
	ErrServiceClosed      = errors.New("zeromq service is closed")
	ErrInvalidMessage     = errors.New("invalid message format")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// Message types
const (
	MsgTypeConfigRequest  = "CONFIG_REQUEST"
	MsgTypeConfigResponse = "CONFIG_RESPONSE"
	MsgTypeConfigUpdated  = "CONFIG_UPDATED"
	MsgTypeRobotRequest   = "ROBOT_REQUEST"
	MsgTypeRobotResponse  = "ROBOT_RESPONSE"
	MsgTypeError          = "ERROR"
)

const (
	socketTimeout = 1 * time.Second
	pollInterval  = 500 * time.Millisecond
)

// ZeroMQMessage represents a generic message structure for ZeroMQ communication
type ZeroMQMessage struct {
	Type      string          `json:"type"`
	Timestamp float64         `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ErrorResponse represents an error response message
type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// MessageHandler defines the interface for handlers that process specific message types
type MessageHandler interface {
	HandleMessage(msg ZeroMQMessage) ([]byte, error)
}

// HandlerFunc is a function type that implements MessageHandler
type HandlerFunc func(msg ZeroMQMessage) ([]byte, error)

// HandleMessage calls the function
func (f HandlerFunc) HandleMessage(msg ZeroMQMessage) ([]byte, error) {
	return f(msg)
}

// NewEnvelope marshals data into a typed message.
func NewEnvelope(messageType string, data interface{}) ([]byte, error) {
	msg := struct {
		Type      string      `json:"type"`
		Timestamp float64     `json:"timestamp"`
		Data      interface{} `json:"data,omitempty"`
	}{
		Type:      messageType,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		Data:      data,
	}
	out, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", messageType, err)
	}
	return out, nil
}

// errorCode maps dispatch errors to the code carried in ERROR responses.
func errorCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidMessage), errors.Is(err, ErrUnknownMessageType):
		return 400
	case errors.Is(err, teleop.ErrDeviceUnavailable):
		return 404
	}
	return 500
}

// MessageReceiver serves requests on a ZeroMQ REP socket
type MessageReceiver struct {
	socket     *zmq4.Socket
	dispatcher *MessageDispatcher
	poller     *zmq4.Poller
	logger     customlog.Logger
	running    bool
	mu         sync.Mutex
	wg         *sync.WaitGroup
}

func newMessageReceiver(ctx *zmq4.Context, address string, dispatcher *MessageDispatcher, logger customlog.Logger, wg *sync.WaitGroup) (*MessageReceiver, error) {
	socket, err := ctx.NewSocket(zmq4.REP)
	if err != nil {
		return nil, fmt.Errorf("failed to create REP socket: %w", err)
	}

	if err := socket.Bind(address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", address, err)
	}

	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}

	// Timeouts keep shutdown from blocking on a half-finished exchange.
	if err := socket.SetRcvtimeo(socketTimeout); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set receive timeout: %w", err)
	}
	if err := socket.SetSndtimeo(socketTimeout); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set send timeout: %w", err)
	}

	poller := zmq4.NewPoller()
	poller.Add(socket, zmq4.POLLIN)

	logger.Infof("MessageReceiver initialized on %s", address)

	return &MessageReceiver{
		socket:     socket,
		dispatcher: dispatcher,
		poller:     poller,
		logger:     logger,
		wg:         wg,
	}, nil
}

func (r *MessageReceiver) isRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start begins the message receiving loop
func (r *MessageReceiver) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.logger.Infof("MessageReceiver started")

		for r.isRunning() {
			sockets, err := r.poller.Poll(pollInterval)
			if err != nil {
				if r.isRunning() {
					r.logger.Warnf("Error polling socket: %v", err)
				}
				continue
			}
			if len(sockets) == 0 {
				continue
			}

			msg, err := r.socket.RecvBytes(0)
			if err != nil {
				if r.isRunning() {
					r.logger.Warnf("Error receiving message: %v", err)
				}
				continue
			}

			r.logger.Debugf("Received message (%d bytes)", len(msg))

			response, err := r.dispatcher.Dispatch(msg)
			if err != nil {
				r.logger.Warnf("Error dispatching message: %v", err)
				response, err = NewEnvelope(MsgTypeError, ErrorResponse{Message: err.Error(), Code: errorCode(err)})
				if err != nil {
					r.logger.Errorf("Error building error response: %v", err)
					continue
				}
			}

			// REP sockets must answer every request before the next receive.
			if _, err := r.socket.SendBytes(response, 0); err != nil && r.isRunning() {
				r.logger.Warnf("Error sending response: %v", err)
			}
		}
	}()
}

// Stop halts the receiving loop. The socket is closed once the loop exits.
func (r *MessageReceiver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
}

func (r *MessageReceiver) close() {
	if r.socket != nil {
		r.socket.Close()
		r.socket = nil
	}
}

// MessageSender publishes messages on a ZeroMQ PUB socket
type MessageSender struct {
	socket  *zmq4.Socket
	logger  customlog.Logger
	running bool
	mu      sync.Mutex
}

func newMessageSender(ctx *zmq4.Context, address string, logger customlog.Logger) (*MessageSender, error) {
	socket, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}

	if err := socket.Bind(address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", address, err)
	}

	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}

	logger.Infof("MessageSender initialized on %s", address)

	return &MessageSender{
		socket:  socket,
		logger:  logger,
		running: true,
	}, nil
}

// PublishMessage sends a two frame message: topic, then payload
func (s *MessageSender) PublishMessage(topic string, message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrServiceClosed
	}

	if _, err := s.socket.Send(topic, zmq4.SNDMORE); err != nil {
		return fmt.Errorf("failed to send topic: %w", err)
	}
	if _, err := s.socket.SendBytes(message, 0); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close cleans up resources
func (s *MessageSender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	if s.socket != nil {
		s.socket.Close()
		s.socket = nil
	}
}

// MessageDispatcher routes messages to the appropriate handlers
type MessageDispatcher struct {
	handlers map[string]MessageHandler
	logger   customlog.Logger
	mu       sync.RWMutex
}

// NewMessageDispatcher creates a new message dispatcher
func NewMessageDispatcher(logger customlog.Logger) *MessageDispatcher {
	return &MessageDispatcher{
		handlers: make(map[string]MessageHandler),
		logger:   logger,
	}
}

// RegisterHandler adds a handler for a specific message type
func (d *MessageDispatcher) RegisterHandler(messageType string, handler MessageHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[messageType] = handler
	d.logger.Debugf("Registered handler for message type: %s", messageType)
}

// Dispatch parses a JSON envelope and routes it by type
func (d *MessageDispatcher) Dispatch(data []byte) ([]byte, error) {
	var msg ZeroMQMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	}

	d.mu.RLock()
	handler, exists := d.handlers[msg.Type]
	d.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessageType, msg.Type)
	}

	d.logger.Debugf("Dispatching message of type: %s", msg.Type)
	return handler.HandleMessage(msg)
}

// ZeroMQService coordinates ZeroMQ communications for the controller
type ZeroMQService struct {
	ctx        *zmq4.Context
	receiver   *MessageReceiver
	sender     *MessageSender
	dispatcher *MessageDispatcher
	logger     customlog.Logger
	running    bool
	mu         sync.Mutex
	wg         sync.WaitGroup
}

// NewZeroMQService binds the REP and PUB sockets from the bootstrap config
func NewZeroMQService(cfg config.ZeroMQBootstrap, logger customlog.Logger) (*ZeroMQService, error) {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create ZMQ context: %w", err)
	}

	s := &ZeroMQService{
		ctx:        ctx,
		dispatcher: NewMessageDispatcher(logger),
		logger:     logger,
	}

	s.receiver, err = newMessageReceiver(ctx, cfg.RequestBindAddress, s.dispatcher, logger, &s.wg)
	if err != nil {
		ctx.Term()
		return nil, err
	}

	s.sender, err = newMessageSender(ctx, cfg.PublishBindAddress, logger)
	if err != nil {
		s.receiver.close()
		ctx.Term()
		return nil, err
	}

	return s, nil
}

// RegisterHandler adds a handler for a specific message type
func (s *ZeroMQService) RegisterHandler(messageType string, handler MessageHandler) {
	s.dispatcher.RegisterHandler(messageType, handler)
}

// Start begins serving requests
func (s *ZeroMQService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	s.running = true
	s.logger.Infof("Starting ZeroMQ service")
	s.receiver.Start()
	return nil
}

// Stop halts the service and releases the sockets and context
func (s *ZeroMQService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Infof("Stopping ZeroMQ service")

	s.receiver.Stop()
	s.wg.Wait()
	s.receiver.close()
	s.sender.Close()

	if s.ctx != nil {
		s.ctx.Term()
		s.ctx = nil
	}

	s.logger.Infof("ZeroMQ service stopped")
}

// PublishMessage sends a message with the given topic
func (s *ZeroMQService) PublishMessage(topic string, message []byte) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return ErrServiceClosed
	}
	return s.sender.PublishMessage(topic, message)
}

// PublishJSON publishes a typed JSON envelope with the given topic
func (s *ZeroMQService) PublishJSON(topic string, messageType string, data interface{}) error {
	msgData, err := NewEnvelope(messageType, data)
	if err != nil {
		return err
	}
	return s.PublishMessage(topic, msgData)
}
