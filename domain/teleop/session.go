package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	customlog "github.com/open-teleop/mission-control/pkg/log"
)

// DefaultRepeatInterval is the resend cadence of a held direction.
const DefaultRepeatInterval = 250 * time.Millisecond

// SessionState is the lifecycle position of a Session.
type SessionState int32

const (
	Disconnected SessionState = iota
	Connecting
	Active
	Closing
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("SessionState(%d)", int32(s))
}

// Options tune a Session. Zero values take defaults.
type Options struct {
	// Arena overrides the arena reported by the lookup. When both are
	// zero the session uses DefaultArena.
	Arena Arena
	// RepeatInterval defaults to DefaultRepeatInterval.
	RepeatInterval time.Duration
	// ResyncInterval enables periodic sync requests when positive.
	ResyncInterval time.Duration
	// KeyBindings defaults to DefaultKeyBindings.
	KeyBindings map[string]Direction
	// Clock defaults to the real clock.
	Clock clock.WithTicker
	Logger customlog.Logger
	// OnUpdate is called from the session goroutine after every local
	// position change. It must not block or call back into the session.
	OnUpdate func(Position)
}

// Stats counts channel traffic of one session.
type Stats struct {
	Sent        uint64 `json:"sent"`
	Dropped     uint64 `json:"dropped"`
	Received    uint64 `json:"received"`
	Stale       uint64 `json:"stale"`
	Corrections uint64 `json:"corrections"`
}

type inputKind int

const (
	inputKeyDown inputKind = iota
	inputKeyUp
	inputPress
	inputRelease
)

type input struct {
	kind inputKind
	key  string
	dir  Direction
}

type tick struct {
	dir Direction
	gen uint64
}

type repeater struct {
	gen  uint64
	stop chan struct{}
	done chan struct{}
}

// Session drives one device over one control channel. A single goroutine
// owns the device state, held input and repeaters; public methods post to it.
type Session struct {
	id       string
	deviceID string
	lookup   Lookup
	dialer   Dialer
	opts     Options
	log      customlog.Logger

	mu       sync.RWMutex
	state    SessionState
	starting bool
	running  bool
	device   Device
	arena    Arena
	pos      Position
	err      error

	// owned by run
	ch        Channel
	devState  *DeviceState
	encoder   *Encoder
	repeaters map[Direction]*repeater
	gens      map[Direction]uint64
	lastSeq   uint64

	inputs    chan input
	ticks     chan tick
	closeReq  chan struct{}
	closeOnce sync.Once
	done      chan struct{}

	sent, dropped, received, stale, corrections atomic.Uint64
}

// NewSession prepares a session for deviceID. Nothing is fetched or opened
// until Start.
func NewSession(deviceID string, lookup Lookup, dialer Dialer, opts Options) *Session {
	if opts.RepeatInterval <= 0 {
		opts.RepeatInterval = DefaultRepeatInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = customlog.Standard()
	}

	id := uuid.NewString()
	return &Session{
		id:        id,
		deviceID:  deviceID,
		lookup:    lookup,
		dialer:    dialer,
		opts:      opts,
		log:       opts.Logger.WithFields(map[string]interface{}{"robot": deviceID, "session": id[:8]}),
		encoder:   NewEncoder(opts.KeyBindings),
		repeaters: make(map[Direction]*repeater),
		gens:      make(map[Direction]uint64),
		inputs:    make(chan input),
		ticks:     make(chan tick),
		closeReq:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start looks up the device and opens the control channel. A lookup failure
// leaves the session Disconnected so Start may be retried. An open failure
// moves it to Closed.
func (s *Session) Start(ctx context.Context) error {
	if s.opts.Arena != (Arena{}) {
		if err := s.opts.Arena.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if s.state != Disconnected || s.starting {
		st := s.state
		s.mu.Unlock()
		if st == Closed {
			return ErrSessionClosed
		}
		return fmt.Errorf("session already started (state %s)", st)
	}
	s.starting = true
	s.mu.Unlock()

	device, err := s.lookup.GetDevice(ctx, s.deviceID)
	if err != nil {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
		if !errors.Is(err, ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		s.log.Warnf("Lookup failed: %v", err)
		return err
	}

	arena, err := s.resolveArena(device)
	if err != nil {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
		return err
	}
	s.devState = NewDeviceState(arena, device.Position)
	s.devState.Sync(device.Position)

	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.device = device
	s.arena = s.devState.Arena()
	s.pos = s.devState.Snapshot()
	s.state = Connecting
	s.mu.Unlock()
	s.log.Debugf("Device %s (%s) at %d,%d, opening channel", device.Name, device.Model, s.pos.X, s.pos.Y)

	ch, err := s.dialer.Open(ctx, s.deviceID)
	if err != nil {
		if !errors.Is(err, ErrChannelOpen) && !errors.Is(err, ErrDeviceBusy) && !errors.Is(err, ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %v", ErrChannelOpen, err)
		}
		s.mu.Lock()
		s.err = err
		s.finishLocked()
		s.mu.Unlock()
		s.log.Errorf("Failed to open control channel: %v", err)
		return err
	}

	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		ch.Close()
		return ErrSessionClosed
	}
	s.ch = ch
	s.state = Active
	s.running = true
	s.mu.Unlock()

	s.log.Infof("Session active")
	go s.run()
	return nil
}

// resolveArena picks Options.Arena, then the arena reported by the lookup,
// then DefaultArena.
func (s *Session) resolveArena(device Device) (Arena, error) {
	switch {
	case s.opts.Arena != (Arena{}):
		if device.Arena != (Arena{}) && device.Arena != s.opts.Arena {
			s.log.Warnf("Configured arena %+v differs from device arena %+v", s.opts.Arena, device.Arena)
		}
		return s.opts.Arena, nil
	case device.Arena != (Arena{}):
		if err := device.Arena.Validate(); err != nil {
			return Arena{}, fmt.Errorf("%w: device reported %v", ErrDeviceUnavailable, err)
		}
		return device.Arena, nil
	}
	return DefaultArena(), nil
}

// finishLocked moves to Closed and releases Done waiters. Callers hold mu.
func (s *Session) finishLocked() {
	if s.state == Closed {
		return
	}
	s.state = Closed
	close(s.done)
}

// Close tears the session down and waits for it to finish. Idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.closeReq) })

	s.mu.Lock()
	if !s.running {
		s.finishLocked()
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	<-s.done
	return nil
}

// Done is closed once the session reaches Closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns why the session ended: nil for a local Close, ErrRemoteClosed
// when the device side hung up, or the open failure.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Position returns the last reconciled position.
func (s *Session) Position() Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pos
}

// Device returns the attributes fetched at start.
func (s *Session) Device() Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.device
}

// Arena returns the arena the session clamps local moves to. Zero before
// a successful lookup.
func (s *Session) Arena() Arena {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.arena
}

// Stats returns a copy of the traffic counters.
func (s *Session) Stats() Stats {
	return Stats{
		Sent:        s.sent.Load(),
		Dropped:     s.dropped.Load(),
		Received:    s.received.Load(),
		Stale:       s.stale.Load(),
		Corrections: s.corrections.Load(),
	}
}

// KeyDown posts a key press. Unbound keys are ignored.
func (s *Session) KeyDown(key string) error {
	return s.post(input{kind: inputKeyDown, key: key})
}

// KeyUp posts a key release.
func (s *Session) KeyUp(key string) error {
	return s.post(input{kind: inputKeyUp, key: key})
}

// Press posts a pointer press on a direction button.
func (s *Session) Press(d Direction) error {
	return s.post(input{kind: inputPress, dir: d})
}

// Release posts a pointer release or leave on a direction button.
func (s *Session) Release(d Direction) error {
	return s.post(input{kind: inputRelease, dir: d})
}

func (s *Session) post(in input) error {
	switch s.State() {
	case Disconnected, Connecting:
		return ErrNotActive
	case Closing, Closed:
		return ErrSessionClosed
	}
	select {
	case s.inputs <- in:
		return nil
	case <-s.closeReq:
		return ErrSessionClosed
	case <-s.done:
		return ErrSessionClosed
	}
}

func (s *Session) run() {
	var resync <-chan time.Time
	if s.opts.ResyncInterval > 0 {
		t := s.opts.Clock.NewTicker(s.opts.ResyncInterval)
		defer t.Stop()
		resync = t.C()
	}

	inbound := s.ch.Receive()
	var cause error

loop:
	for {
		select {
		case <-s.closeReq:
			break loop
		case in := <-s.inputs:
			s.handleInput(in)
		case tk := <-s.ticks:
			s.handleTick(tk)
		case m, ok := <-inbound:
			if !ok {
				cause = ErrRemoteClosed
				break loop
			}
			s.received.Add(1)
			s.reconcile(m)
		case <-resync:
			s.send(Message{Type: MessageSync})
		}
	}

	s.teardown(cause)
}

func (s *Session) teardown(cause error) {
	s.mu.Lock()
	s.state = Closing
	s.mu.Unlock()

	for _, d := range Directions {
		s.disarm(d)
	}
	s.encoder.Reset()

	if err := s.ch.Close(); err != nil {
		s.log.Warnf("Error closing control channel: %v", err)
	}

	s.mu.Lock()
	s.err = cause
	s.finishLocked()
	s.mu.Unlock()

	if cause != nil {
		s.log.Infof("Session closed: %v", cause)
	} else {
		s.log.Infof("Session closed")
	}
}

func (s *Session) handleInput(in input) {
	var (
		intent Intent
		ok     bool
	)
	switch in.kind {
	case inputKeyDown:
		intent, ok = s.encoder.KeyDown(in.key)
	case inputKeyUp:
		intent, ok = s.encoder.KeyUp(in.key)
	case inputPress:
		intent, ok = s.encoder.Press(in.dir)
	case inputRelease:
		intent, ok = s.encoder.Release(in.dir)
	}
	if !ok {
		return
	}

	switch intent.Action {
	case ActionStart:
		s.arm(intent.Direction)
		s.sendCommand(intent.Direction)
	case ActionStop:
		s.disarm(intent.Direction)
	}
}

func (s *Session) handleTick(tk tick) {
	r, ok := s.repeaters[tk.dir]
	if !ok || r.gen != tk.gen {
		return
	}
	s.sendCommand(tk.dir)
}

func (s *Session) sendCommand(d Direction) {
	err := s.send(CommandMessage(d))
	if errors.Is(err, ErrChannelClosed) {
		s.disarm(d)
	}
}

func (s *Session) send(m Message) error {
	if err := s.ch.Send(m); err != nil {
		s.dropped.Add(1)
		s.log.Warnf("Dropped %s message (direction=%s): %v", messageKind(m), m.Direction, err)
		return err
	}
	s.sent.Add(1)
	return nil
}

// arm starts the repeater for d. The ticker is created before returning so
// the first tick is measured from the immediate send.
func (s *Session) arm(d Direction) {
	s.disarm(d)

	s.gens[d]++
	r := &repeater{
		gen:  s.gens[d],
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	t := s.opts.Clock.NewTicker(s.opts.RepeatInterval)
	s.repeaters[d] = r

	go func() {
		defer close(r.done)
		defer t.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-t.C():
				select {
				case s.ticks <- tick{dir: d, gen: r.gen}:
				case <-r.stop:
					return
				}
			}
		}
	}()
}

// disarm stops the repeater for d and waits for its goroutine to exit.
func (s *Session) disarm(d Direction) {
	r, ok := s.repeaters[d]
	if !ok {
		return
	}
	delete(s.repeaters, d)
	close(r.stop)
	<-r.done
}

// reconcile applies an inbound message to the local state.
func (s *Session) reconcile(m Message) {
	switch m.Type {
	case MessageSnapshot:
		p, ok := m.Position()
		if !ok {
			return
		}
		if !s.devState.Arena().Contains(p) {
			s.log.Warnf("Device position %d,%d lies outside the local arena", p.X, p.Y)
		}
		s.devState.Sync(p)
		s.lastSeq = m.Seq
		s.publish()
	case MessageError:
		s.log.Warnf("Device rejected command: %s", m.Error)
	case MessageCommand:
		if !m.Direction.Valid() {
			s.log.Debugf("Ignoring update with direction %q", m.Direction)
			return
		}
		if m.Seq == 0 {
			s.devState.Apply(m.Direction)
			s.publish()
			return
		}

		auth, hasPos := m.Position()
		switch {
		case m.Seq <= s.lastSeq:
			s.stale.Add(1)
			s.log.Debugf("Dropping stale update seq=%d (last %d)", m.Seq, s.lastSeq)
			return
		case m.Seq == s.lastSeq+1:
			local := s.devState.Apply(m.Direction)
			if hasPos && local != auth {
				s.devState.Sync(auth)
				s.corrections.Add(1)
			}
		default:
			s.log.Warnf("Update gap: seq=%d after %d, resetting to device position", m.Seq, s.lastSeq)
			if hasPos {
				s.devState.Sync(auth)
				s.corrections.Add(1)
			} else {
				s.devState.Apply(m.Direction)
			}
		}
		s.lastSeq = m.Seq
		s.publish()
	}
}

func (s *Session) publish() {
	p := s.devState.Snapshot()
	s.mu.Lock()
	s.pos = p
	s.mu.Unlock()
	if s.opts.OnUpdate != nil {
		s.opts.OnUpdate(p)
	}
}

func messageKind(m Message) string {
	if m.Type == MessageCommand {
		return "command"
	}
	return string(m.Type)
}
