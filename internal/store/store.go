package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"smarthome-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	// Rooms and accounts
	CreateRoomWithAdmin(ctx context.Context, admin *model.User, invite Invite) (*model.Room, error)
	RegisterRoomAdmin(ctx context.Context, admin *model.User, roomID string, invite Invite) error
	AddMember(ctx context.Context, inviteCode string, member *model.User, now time.Time) error
	RemoveMember(ctx context.Context, roomID, memberID string) error
	RoomExists(ctx context.Context, roomID string) (bool, error)
	RoomDetails(ctx context.Context, roomID string) (*RoomDetails, error)
	SetInviteCode(ctx context.Context, roomID string, invite Invite) error
	GetUser(ctx context.Context, userID string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	CountRoomUsers(ctx context.Context, roomID string) (int64, error)
	IsRoomAdmin(ctx context.Context, userID, roomID string) (bool, error)

	// Devices
	RegisterDevice(ctx context.Context, device *model.Device) error
	ListDevicesByRoom(ctx context.Context, roomID string) ([]model.Device, error)
	GetDevice(ctx context.Context, roomID, deviceID string) (*model.Device, error)
	GetDeviceByID(ctx context.Context, deviceID string) (*model.Device, error)
	GetDeviceByMAC(ctx context.Context, mac string) (*model.Device, error)
	RenameDevice(ctx context.Context, roomID, deviceID, name string) (*model.Device, error)
	ToggleDeviceStatus(ctx context.Context, roomID, deviceID string, now time.Time) (*model.Device, error)
	ActivateDevice(ctx context.Context, deviceID string, now time.Time) (*model.Device, bool, error)
	DeleteDevice(ctx context.Context, roomID, deviceID string) error

	// Appliances
	EnsureDefaultAppliances(ctx context.Context, deviceID string) ([]model.Appliance, error)
	ListAppliancesByRoom(ctx context.Context, roomID string) ([]model.Appliance, error)
	GetAppliance(ctx context.Context, applianceID string) (*model.Appliance, *model.Device, error)
	UpdateApplianceState(ctx context.Context, applianceID string, state model.ApplianceState, now time.Time) (*model.Appliance, error)
	RenameAppliance(ctx context.Context, applianceID, name string) (*model.Appliance, error)
	DeleteAppliance(ctx context.Context, applianceID string) error
	ReportApplianceStates(ctx context.Context, deviceID string, states map[int]model.ApplianceState, now time.Time) ([]model.Appliance, error)

	// Recipes
	ListRecipes(ctx context.Context, filter RecipeFilter) ([]model.Recipe, error)
	GetRecipe(ctx context.Context, recipeID string) (*model.Recipe, error)
	CreateRecipe(ctx context.Context, recipe *model.Recipe) error
	UpdateRecipe(ctx context.Context, recipe *model.Recipe) error
	DeleteRecipe(ctx context.Context, recipeID string) error

	// Push subscriptions
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForRoom(ctx context.Context, roomID string) ([]model.PushSubscription, error)

	// Housekeeping
	SweepExpired(ctx context.Context, pendingBefore, now time.Time) (SweepResult, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}
