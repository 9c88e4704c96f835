package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarthome-backend/config"
	"smarthome-backend/internal/model"
)

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "smarthome"}

	assert.Equal(t, "smarthome/device/aabbccddee01/status", topics.DeviceStatus("AA:BB:CC:DD:EE:01"))
	assert.Equal(t, "smarthome/device/aabbccddee01/appliance/3/state", topics.ApplianceState("AA:BB:CC:DD:EE:01", 3))
	assert.Equal(t, "smarthome/server/status", topics.ServerStatus())
}

func TestApplianceTopicPayload(t *testing.T) {
	changed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	topic, payload, err := applianceTopicPayload(Topics{Prefix: "home"}, "AA:BB:CC:DD:EE:01", model.Appliance{
		Slot:            2,
		Name:            "Fan",
		State:           model.ApplianceOn,
		LastStateChange: changed,
	})
	require.NoError(t, err)
	assert.Equal(t, "home/device/aabbccddee01/appliance/2/state", topic)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "on", msg["state"])
	assert.Equal(t, float64(2), msg["slot"])
	assert.Equal(t, "2026-01-02T03:04:05Z", msg["changedAt"])
}

func TestBuildClientOptions(t *testing.T) {
	opts := buildClientOptions(config.MQTTConfig{Host: "broker", Port: 8883, TLS: true, ClientID: "api", Username: "u", Password: "p"})

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "ssl://broker:8883", opts.Servers[0].String())
	assert.Equal(t, "api", opts.ClientID)
	assert.Equal(t, "u", opts.Username)
	assert.True(t, opts.AutoReconnect)
}

func TestPublish_NotConnected(t *testing.T) {
	c := &Client{topics: Topics{Prefix: "x"}}
	assert.ErrorIs(t, c.Publish("x/y", []byte("{}"), true), ErrNotConnected)
	assert.ErrorIs(t, c.Publish("", nil, false), ErrInvalidTopic)
	assert.ErrorIs(t, c.PublishDeviceStatus("AA:BB:CC:DD:EE:01", model.DeviceStatusOn), ErrNotConnected)
	c.Close()
}
