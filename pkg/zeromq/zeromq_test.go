package zeromq

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/mission-control/domain/teleop"
	"github.com/open-teleop/mission-control/pkg/config"
	customlog "github.com/open-teleop/mission-control/pkg/log"
)

func testLogger() customlog.Logger {
	l, _ := test.NewNullLogger()
	return customlog.NewFromLogrus(l)
}

type stubLookup map[string]teleop.Device

func (s stubLookup) GetDevice(ctx context.Context, id string) (teleop.Device, error) {
	d, ok := s[id]
	if !ok {
		return teleop.Device{}, teleop.ErrDeviceUnavailable
	}
	return d, nil
}

type published struct {
	topic string
	data  []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (f *fakePublisher) PublishMessage(topic string, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{topic: topic, data: message})
	return nil
}

func (f *fakePublisher) PublishJSON(topic, messageType string, data interface{}) error {
	out, err := NewEnvelope(messageType, data)
	if err != nil {
		return err
	}
	return f.PublishMessage(topic, out)
}

func newDispatcher() *MessageDispatcher {
	logger := testLogger()
	d := NewMessageDispatcher(logger)
	lookup := stubLookup{"1": {ID: "1", Name: "Rover", Model: "R-100", Position: teleop.Position{X: 40, Y: -10}, Seq: 12, Arena: teleop.DefaultArena()}}
	cfg := &config.Config{Version: "1", ConfigID: "cfg-1"}
	d.RegisterHandler(MsgTypeRobotRequest, NewRobotHandler(lookup, logger))
	d.RegisterHandler(MsgTypeConfigRequest, NewConfigHandler(func() *config.Config { return cfg }, logger))
	return d
}

func decodeEnvelope(t *testing.T, data []byte) ZeroMQMessage {
	t.Helper()
	var msg ZeroMQMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestDispatchRobotRequest(t *testing.T) {
	d := newDispatcher()

	req, err := NewEnvelope(MsgTypeRobotRequest, RobotRequest{RobotID: "1"})
	require.NoError(t, err)

	out, err := d.Dispatch(req)
	require.NoError(t, err)

	msg := decodeEnvelope(t, out)
	assert.Equal(t, MsgTypeRobotResponse, msg.Type)

	var resp RobotResponse
	require.NoError(t, json.Unmarshal(msg.Data, &resp))
	assert.Equal(t, RobotResponse{ID: "1", Name: "Rover", Model: "R-100", X: 40, Y: -10, Seq: 12, Arena: teleop.DefaultArena()}, resp)
}

func TestDispatchErrors(t *testing.T) {
	d := newDispatcher()

	_, err := d.Dispatch([]byte("not json"))
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Equal(t, 400, errorCode(err))

	_, err = d.Dispatch([]byte(`{"type":"TELEPORT"}`))
	assert.ErrorIs(t, err, ErrUnknownMessageType)

	_, err = d.Dispatch([]byte(`{"type":"ROBOT_REQUEST","data":{}}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = d.Dispatch([]byte(`{"type":"ROBOT_REQUEST","data":{"robot_id":"9"}}`))
	assert.ErrorIs(t, err, teleop.ErrDeviceUnavailable)
	assert.Equal(t, 404, errorCode(err))
}

func TestDispatchConfigRequest(t *testing.T) {
	d := newDispatcher()

	out, err := d.Dispatch([]byte(`{"type":"CONFIG_REQUEST","timestamp":1}`))
	require.NoError(t, err)

	msg := decodeEnvelope(t, out)
	assert.Equal(t, MsgTypeConfigResponse, msg.Type)
	var cfg config.Config
	require.NoError(t, json.Unmarshal(msg.Data, &cfg))
	assert.Equal(t, "cfg-1", cfg.ConfigID)
}

func TestStateEventRoundTrip(t *testing.T) {
	in := teleop.StateEvent{
		RobotID:   "rover-7",
		SessionID: "b1c2",
		Direction: teleop.Left,
		Seq:       1 << 40,
		X:         0,
		Y:         -10,
		Timestamp: 1712424600000000000,
	}

	out, err := DecodeStateEvent(EncodeStateEvent(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeStateEvent([]byte{1})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestStateSinkPublishesOnRobotTopic(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewStateSink(pub)

	event := teleop.StateEvent{RobotID: "1", Direction: teleop.Up, Seq: 3, X: 10, Y: 30}
	require.NoError(t, sink.PublishState(event))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "robot.1.state", pub.msgs[0].topic)
	decoded, err := DecodeStateEvent(pub.msgs[0].data)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}

func TestConfigPublisherNotification(t *testing.T) {
	pub := &fakePublisher{}
	p := NewConfigPublisher(pub, testLogger())

	require.NoError(t, p.PublishConfigUpdatedNotification(&config.Config{ConfigID: "c2", Version: "2"}))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, TopicConfigNotification, pub.msgs[0].topic)
	msg := decodeEnvelope(t, pub.msgs[0].data)
	assert.Equal(t, MsgTypeConfigUpdated, msg.Type)
	assert.JSONEq(t, `{"config_id":"c2","version":"2","last_updated":""}`, string(msg.Data))
}

func TestConfigPublisherFullUpdate(t *testing.T) {
	pub := &fakePublisher{}
	p := NewConfigPublisher(pub, testLogger())

	require.NoError(t, p.PublishConfigUpdate(&config.Config{ConfigID: "c3", Version: "3"}))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, TopicConfigUpdate, pub.msgs[0].topic)
	msg := decodeEnvelope(t, pub.msgs[0].data)
	assert.Equal(t, MsgTypeConfigResponse, msg.Type)

	var cfg config.Config
	require.NoError(t, json.Unmarshal(msg.Data, &cfg))
	assert.Equal(t, "c3", cfg.ConfigID)
}
