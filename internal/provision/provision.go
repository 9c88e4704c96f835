// Package provision implements the device provisioning handshake.
//
// An admin registers a controller by MAC address with the Wi-Fi credentials it
// should join. Registration returns a one-time secret which is flashed onto the
// controller. The controller later presents its MAC address and the secret to
// fetch the credentials, which moves it from pending to active.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"smarthome-backend/internal/auth"
	"smarthome-backend/internal/model"
	"smarthome-backend/internal/parse"
	"smarthome-backend/internal/secret"
	"smarthome-backend/internal/store"
)

var ErrInvalidInput = errors.New("invalid input")

// RegisterInput is what an admin supplies to register a controller.
type RegisterInput struct {
	RoomID     string
	Name       string
	MACAddress string
	SSID       string
	Password   string
}

// Credentials is what a controller receives on a successful validation.
type Credentials struct {
	Device    *model.Device
	SSID      string
	Password  string
	Activated bool
}

// Service runs the handshake against a store.
type Service struct {
	store store.Store
	box   *secret.Box
	now   func() time.Time
}

// NewService creates a provisioning service.
func NewService(s store.Store, box *secret.Box) *Service {
	return &Service{
		store: s,
		box:   box,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Register stores a pending device and returns it with its provisioning secret.
// The secret is not recoverable afterwards.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.Device, string, error) {
	mac, err := parse.MAC(in.MACAddress)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	name, err := parse.Name(in.Name)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	ssid := strings.TrimSpace(in.SSID)
	if ssid == "" || in.Password == "" {
		return nil, "", fmt.Errorf("%w: ssid and password are required", ErrInvalidInput)
	}

	plain, err := auth.NewSecret()
	if err != nil {
		return nil, "", err
	}
	hash, err := auth.HashSecret(plain)
	if err != nil {
		return nil, "", fmt.Errorf("hashing provisioning secret: %w", err)
	}
	sealed, err := s.box.Seal([]byte(in.Password))
	if err != nil {
		return nil, "", fmt.Errorf("sealing wifi password: %w", err)
	}

	device := &model.Device{
		RoomID:         in.RoomID,
		Name:           name,
		MACAddress:     mac,
		SSID:           ssid,
		SealedPassword: sealed,
		SecretHash:     hash,
	}
	if err := s.store.RegisterDevice(ctx, device); err != nil {
		return nil, "", err
	}
	log.Printf("Device %s registered in room %s as pending", mac, in.RoomID)
	return device, plain, nil
}

// Validate checks a controller's MAC address and secret, activates it if it
// is still pending and returns its network credentials. Repeated calls are
// harmless and report Activated only the first time.
func (s *Service) Validate(ctx context.Context, macAddress, providedSecret string) (*Credentials, error) {
	device, err := s.authenticate(ctx, macAddress, providedSecret)
	if err != nil {
		return nil, err
	}

	device, activated, err := s.store.ActivateDevice(ctx, device.ID, s.now())
	if err != nil {
		return nil, err
	}
	password, err := s.box.Open(device.SealedPassword)
	if err != nil {
		return nil, fmt.Errorf("opening wifi password of %s: %w", device.MACAddress, err)
	}
	if activated {
		log.Printf("Device %s validated and active", device.MACAddress)
	}

	return &Credentials{
		Device:    device,
		SSID:      device.SSID,
		Password:  string(password),
		Activated: activated,
	}, nil
}

// Authenticate identifies a provisioned controller by MAC address and secret.
// Pending controllers get store.ErrInvalidState.
func (s *Service) Authenticate(ctx context.Context, macAddress, providedSecret string) (*model.Device, error) {
	device, err := s.authenticate(ctx, macAddress, providedSecret)
	if err != nil {
		return nil, err
	}
	if !device.Status.Provisioned() {
		return nil, store.ErrInvalidState
	}
	return device, nil
}

func (s *Service) authenticate(ctx context.Context, macAddress, providedSecret string) (*model.Device, error) {
	mac, err := parse.MAC(macAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if providedSecret == "" {
		return nil, fmt.Errorf("%w: secret is required", ErrInvalidInput)
	}

	device, err := s.store.GetDeviceByMAC(ctx, mac)
	if err != nil {
		return nil, err
	}
	if !auth.CheckSecret(device.SecretHash, providedSecret) {
		return nil, store.ErrUnauthorized
	}
	return device, nil
}
