// Package mqtt pushes device and appliance state to controllers through an
// MQTT broker. Messages are retained so a controller that reconnects picks up
// the latest desired state immediately.
package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"smarthome-backend/config"
	"smarthome-backend/internal/model"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	defaultKeepAlive      = 60 * time.Second
	disconnectQuiesceMs   = 1000
)

// Client publishes state to the broker.
type Client struct {
	client pahomqtt.Client
	topics Topics
	qos    byte
}

// Connect dials the broker described by cfg.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	opts := buildClientOptions(cfg)
	topics := Topics{Prefix: cfg.TopicPrefix}
	opts.SetWill(topics.ServerStatus(), `{"online":false}`, byte(cfg.QoS), true)
	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		log.Printf("MQTT connected to %s:%d", cfg.Host, cfg.Port)
		c.Publish(topics.ServerStatus(), byte(cfg.QoS), true, `{"online":true}`)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
	})

	c := &Client{
		client: pahomqtt.NewClient(opts),
		topics: topics,
		qos:    byte(cfg.QoS),
	}
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	return opts
}

// IsConnected reports whether the broker connection is up.
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnectionOpen()
}

// Publish sends a payload and waits for the broker to acknowledge it.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, c.qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

type applianceMessage struct {
	Slot      int                  `json:"slot"`
	Name      string               `json:"name"`
	State     model.ApplianceState `json:"state"`
	ChangedAt time.Time            `json:"changedAt"`
}

type deviceMessage struct {
	Status model.DeviceStatus `json:"status"`
}

func applianceTopicPayload(t Topics, mac string, app model.Appliance) (string, []byte, error) {
	payload, err := json.Marshal(applianceMessage{
		Slot:      app.Slot,
		Name:      app.Name,
		State:     app.State,
		ChangedAt: app.LastStateChange.UTC(),
	})
	return t.ApplianceState(mac, app.Slot), payload, err
}

// PublishApplianceState publishes the desired state of one output as a retained message.
func (c *Client) PublishApplianceState(mac string, app model.Appliance) error {
	topic, payload, err := applianceTopicPayload(c.topics, mac, app)
	if err != nil {
		return err
	}
	return c.Publish(topic, payload, true)
}

// PublishDeviceStatus publishes the admin-controlled power status of a device.
func (c *Client) PublishDeviceStatus(mac string, status model.DeviceStatus) error {
	payload, err := json.Marshal(deviceMessage{Status: status})
	if err != nil {
		return err
	}
	return c.Publish(c.topics.DeviceStatus(mac), payload, true)
}

// Close announces a clean shutdown and disconnects.
func (c *Client) Close() {
	if !c.IsConnected() {
		return
	}
	c.client.Publish(c.topics.ServerStatus(), c.qos, true, `{"online":false}`).WaitTimeout(defaultPublishTimeout)
	c.client.Disconnect(disconnectQuiesceMs)
}
