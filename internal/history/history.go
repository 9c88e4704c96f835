// Package history records device and appliance state changes as time series.
package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"smarthome-backend/config"
	"smarthome-backend/internal/model"
)

const (
	defaultConnectTimeout = 10 * time.Second
	millisecondsPerSecond = 1000

	// Origins of an appliance change.
	OriginUser   = "user"
	OriginDevice = "device"
)

var ErrDisabled = errors.New("influxdb: disabled")

// Recorder receives state changes.
type Recorder interface {
	ApplianceChanged(device *model.Device, app *model.Appliance, origin string)
	DeviceStatusChanged(device *model.Device)
	Close()
}

// Nop discards every change.
type Nop struct{}

func (Nop) ApplianceChanged(*model.Device, *model.Appliance, string) {}
func (Nop) DeviceStatusChanged(*model.Device)                         {}
func (Nop) Close()                                                    {}

// Influx writes changes through the non-blocking InfluxDB write API.
type Influx struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

// Connect creates an InfluxDB recorder and verifies the server is reachable.
func Connect(cfg config.InfluxDBConfig) (*Influx, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(cfg.BatchSize)).
			SetFlushInterval(uint(cfg.FlushIntervalSeconds)*millisecondsPerSecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influxdb ping failed: %w", err)
	}
	if !healthy {
		client.Close()
		return nil, errors.New("influxdb server not healthy")
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			log.Printf("InfluxDB write error: %v", err)
		}
	}()

	return &Influx{client: client, writeAPI: writeAPI}, nil
}

func (i *Influx) ApplianceChanged(device *model.Device, app *model.Appliance, origin string) {
	i.writeAPI.WritePoint(appliancePoint(device, app, origin))
}

func (i *Influx) DeviceStatusChanged(device *model.Device) {
	i.writeAPI.WritePoint(devicePoint(device, time.Now()))
}

// Close flushes pending points and releases the client.
func (i *Influx) Close() {
	i.writeAPI.Flush()
	i.client.Close()
}

func appliancePoint(device *model.Device, app *model.Appliance, origin string) *write.Point {
	on := 0
	if app.State == model.ApplianceOn {
		on = 1
	}
	return write.NewPoint(
		"appliance_state",
		map[string]string{
			"room_id":      device.RoomID,
			"device_id":    device.ID,
			"appliance_id": app.ID,
			"slot":         fmt.Sprint(app.Slot),
			"origin":       origin,
		},
		map[string]interface{}{
			"on": on,
		},
		app.LastStateChange,
	)
}

func devicePoint(device *model.Device, at time.Time) *write.Point {
	return write.NewPoint(
		"device_status",
		map[string]string{
			"room_id":   device.RoomID,
			"device_id": device.ID,
		},
		map[string]interface{}{
			"status": string(device.Status),
		},
		at,
	)
}
