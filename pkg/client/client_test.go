package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/mission-control/domain/robot"
	"github.com/open-teleop/mission-control/domain/teleop"
	"github.com/open-teleop/mission-control/pkg/api"
	"github.com/open-teleop/mission-control/pkg/config"
	customlog "github.com/open-teleop/mission-control/pkg/log"
)

type controller struct {
	baseURL  string
	registry *robot.Registry
	teleop   *teleop.TeleopService
}

func testLogger() customlog.Logger {
	l, _ := test.NewNullLogger()
	return customlog.NewFromLogrus(l)
}

func startController(t *testing.T) *controller {
	t.Helper()
	logger := testLogger()

	registry := robot.NewRegistry()
	registry.LoadFromConfig([]config.RobotConfig{
		{ID: "1", Name: "Rover", Model: "R-100", X: 100, Y: 100},
	}, teleop.DefaultArena())
	svc := teleop.NewTeleopService(registry, teleop.DefaultArena, nil, nil, logger)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	api.RegisterRobotRoutes(app, registry, logger)
	api.RegisterControlRoutes(app, svc, registry, logger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.ShutdownWithTimeout(time.Second) })

	return &controller{
		baseURL:  "http://" + ln.Addr().String(),
		registry: registry,
		teleop:   svc,
	}
}

func newSession(t *testing.T, c *controller, robotID string) *teleop.Session {
	t.Helper()
	dialer, err := NewControlDialer(c.baseURL, testLogger())
	require.NoError(t, err)
	return teleop.NewSession(robotID, NewRobotClient(c.baseURL, time.Second), dialer, teleop.Options{
		RepeatInterval: 20 * time.Millisecond,
		Logger:         testLogger(),
	})
}

func TestRobotClientLookup(t *testing.T) {
	c := startController(t)
	rc := NewRobotClient(c.baseURL, time.Second)

	device, err := rc.GetDevice(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Rover", device.Name)
	assert.Equal(t, teleop.Position{X: 100, Y: 100}, device.Position)
	assert.Equal(t, teleop.DefaultArena(), device.Arena)

	_, err = rc.GetDevice(context.Background(), "nope")
	assert.ErrorIs(t, err, teleop.ErrDeviceUnavailable)
}

func TestRobotClientUnreachable(t *testing.T) {
	rc := NewRobotClient("http://127.0.0.1:1", 200*time.Millisecond)

	_, err := rc.GetDevice(context.Background(), "1")
	assert.ErrorIs(t, err, teleop.ErrDeviceUnavailable)
}

func TestNewControlDialerSchemes(t *testing.T) {
	d, err := NewControlDialer("http://localhost:8080/", testLogger())
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080", d.baseURL)

	d, err = NewControlDialer("https://mc.example", testLogger())
	require.NoError(t, err)
	assert.Equal(t, "wss://mc.example", d.baseURL)

	_, err = NewControlDialer("ftp://mc.example", testLogger())
	assert.Error(t, err)
}

func TestSessionDrivesRobot(t *testing.T) {
	c := startController(t)
	sess := newSession(t, c, "1")

	require.NoError(t, sess.Start(context.Background()))
	assert.Equal(t, teleop.Active, sess.State())
	assert.Eventually(t, func() bool { return c.teleop.Busy("1") }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, sess.Press(teleop.Up))
	assert.Eventually(t, func() bool { return sess.Position().Y >= 160 }, 3*time.Second, 10*time.Millisecond)
	require.NoError(t, sess.Release(teleop.Up))

	// Every command sent has been answered once, plus the opening snapshot.
	assert.Eventually(t, func() bool {
		st := sess.Stats()
		return st.Received == st.Sent+1
	}, 3*time.Second, 10*time.Millisecond)

	r, err := c.registry.GetRobot("1")
	require.NoError(t, err)
	assert.Equal(t, teleop.Position{X: r.X, Y: r.Y}, sess.Position())
	assert.Equal(t, 100, sess.Position().X)
	assert.Zero(t, sess.Stats().Corrections)

	require.NoError(t, sess.Close())
	assert.Equal(t, teleop.Closed, sess.State())
	assert.Eventually(t, func() bool { return !c.teleop.Busy("1") }, 3*time.Second, 10*time.Millisecond)
}

func TestSecondSessionIsRefused(t *testing.T) {
	c := startController(t)
	first := newSession(t, c, "1")
	require.NoError(t, first.Start(context.Background()))
	defer first.Close()
	// The lease is taken by the connection handler after the handshake.
	require.Eventually(t, func() bool { return c.teleop.Busy("1") }, 3*time.Second, 10*time.Millisecond)

	second := newSession(t, c, "1")
	err := second.Start(context.Background())
	assert.ErrorIs(t, err, teleop.ErrDeviceBusy)
	assert.Equal(t, teleop.Closed, second.State())
}

func TestSessionUnknownRobot(t *testing.T) {
	c := startController(t)
	sess := newSession(t, c, "nope")

	err := sess.Start(context.Background())
	assert.ErrorIs(t, err, teleop.ErrDeviceUnavailable)
	assert.Equal(t, teleop.Disconnected, sess.State())
}
