package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"smarthome-backend/internal/auth"
	"smarthome-backend/internal/history"
	"smarthome-backend/internal/model"
	"smarthome-backend/internal/provision"
	"smarthome-backend/internal/recipe"
	"smarthome-backend/internal/store"
)

// Notifier queues a "device online" push notification.
type Notifier interface {
	Dispatch(deviceID string)
}

// StatePublisher pushes desired state to the controllers.
type StatePublisher interface {
	PublishApplianceState(mac string, app model.Appliance) error
	PublishDeviceStatus(mac string, status model.DeviceStatus) error
}

// Deps are the collaborators of the API handlers. Only Store, Tokens,
// Revoked and Provisioner are required.
type Deps struct {
	Store         store.Store
	Tokens        *auth.TokenManager
	Revoked       *auth.Revocations
	Provisioner   *provision.Service
	WebPush       *webpush.Options
	Notifier      Notifier
	Publisher     StatePublisher
	History       history.Recorder
	Recipes       recipe.Generator
	InviteTTL     time.Duration
	SecureCookies bool
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store         store.Store
	tokens        *auth.TokenManager
	revoked       *auth.Revocations
	provisioner   *provision.Service
	webpush       *webpush.Options
	notifier      Notifier
	publisher     StatePublisher
	history       history.Recorder
	recipes       recipe.Generator
	inviteTTL     time.Duration
	secureCookies bool
	now           func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	h := &Handler{
		store:         d.Store,
		tokens:        d.Tokens,
		revoked:       d.Revoked,
		provisioner:   d.Provisioner,
		webpush:       d.WebPush,
		notifier:      d.Notifier,
		publisher:     d.Publisher,
		history:       d.History,
		recipes:       d.Recipes,
		inviteTTL:     d.InviteTTL,
		secureCookies: d.SecureCookies,
		now:           func() time.Time { return time.Now().UTC() },
	}
	if h.notifier == nil {
		h.notifier = nopNotifier{}
	}
	if h.publisher == nil {
		h.publisher = nopPublisher{}
	}
	if h.history == nil {
		h.history = history.Nop{}
	}
	if h.recipes == nil {
		h.recipes = recipe.Template{}
	}
	if h.inviteTTL <= 0 {
		h.inviteTTL = 10 * time.Minute
	}
	return h
}

type nopNotifier struct{}

func (nopNotifier) Dispatch(string) {}

type nopPublisher struct{}

func (nopPublisher) PublishApplianceState(string, model.Appliance) error   { return nil }
func (nopPublisher) PublishDeviceStatus(string, model.DeviceStatus) error { return nil }
