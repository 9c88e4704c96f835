package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarthome-backend/config"
	"smarthome-backend/internal/auth"
	"smarthome-backend/internal/db"
	"smarthome-backend/internal/model"
	"smarthome-backend/internal/provision"
	"smarthome-backend/internal/secret"
	"smarthome-backend/internal/store"
)

type recordingNotifier struct {
	mu  sync.Mutex
	ids []string
}

func (n *recordingNotifier) Dispatch(deviceID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, deviceID)
}

func (n *recordingNotifier) dispatched() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.ids...)
}

type recordingPublisher struct {
	mu         sync.Mutex
	statuses   []model.DeviceStatus
	appliances []model.Appliance
}

func (p *recordingPublisher) PublishApplianceState(_ string, app model.Appliance) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.appliances = append(p.appliances, app)
	return nil
}

func (p *recordingPublisher) PublishDeviceStatus(_ string, status model.DeviceStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, status)
	return nil
}

type testServer struct {
	router    *gin.Engine
	store     store.Store
	notifier  *recordingNotifier
	publisher *recordingPublisher
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Init(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		sqlDB.Close()
	})

	key, err := secret.GenerateKey()
	require.NoError(t, err)
	box, err := secret.NewBox(key)
	require.NoError(t, err)
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	s := store.NewGormStore(gdb)
	ts := &testServer{store: s, notifier: &recordingNotifier{}, publisher: &recordingPublisher{}}
	h := NewHandler(Deps{
		Store:       s,
		Tokens:      tokens,
		Revoked:     auth.NewRevocations(),
		Provisioner: provision.NewService(s, box),
		WebPush:     &webpush.Options{VAPIDPublicKey: "public-key"},
		Notifier:    ts.notifier,
		Publisher:   ts.publisher,
		InviteTTL:   10 * time.Minute,
	})
	cfg := config.ServerConfig{
		RateLimitPerSec:       1000,
		RateLimitBurst:        1000,
		DeviceRateLimitPerSec: 1000,
		CacheTTLSeconds:       60,
		AllowedOrigins:        []string{"http://localhost:5173"},
	}
	ts.router = NewRouter(cfg, h, NewLimiters(cfg))
	return ts
}

// do sends a JSON request and decodes the JSON response body.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.send(t, req)
}

// control fetches a controller's desired state with its provisioning secret.
func (ts *testServer) control(t *testing.T, mac, deviceSecret string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices/control?macAddress="+mac, nil)
	if deviceSecret != "" {
		req.Header.Set(DeviceSecretHeader, deviceSecret)
	}
	return ts.send(t, req)
}

func (ts *testServer) send(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (ts *testServer) registerAdmin(t *testing.T, email string) (token, roomID, inviteCode string) {
	t.Helper()
	status, body := ts.do(t, http.MethodPost, "/api/v1/auth/admin/register", "", gin.H{
		"email":            email,
		"password":         "hunter22",
		"securityQuestion": "First pet?",
		"securityAnswer":   "Rex",
	})
	require.Equal(t, http.StatusCreated, status, body)
	return body["token"].(string), body["roomId"].(string), body["inviteCode"].(string)
}

func items(body map[string]any, key string) []map[string]any {
	raw, _ := body[key].([]any)
	out := make([]map[string]any, len(raw))
	for i, v := range raw {
		out[i] = v.(map[string]any)
	}
	return out
}

func TestDeviceLifecycle(t *testing.T) {
	ts := newTestServer(t)
	adminToken, roomID, _ := ts.registerAdmin(t, "admin@example.com")

	devicesPath := "/api/v1/devices/get/" + roomID

	status, body := ts.do(t, http.MethodGet, devicesPath, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, items(body, "devices"))

	status, _ = ts.do(t, http.MethodPost, "/api/v1/devices/register/"+roomID, adminToken, gin.H{
		"deviceName": "Kitchen", "macAddress": "not-a-mac", "ssid": "home", "password": "wifi-pass",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = ts.do(t, http.MethodPost, "/api/v1/devices/register/"+roomID, adminToken, gin.H{
		"deviceName": "Kitchen", "macAddress": "aa-bb-cc-dd-ee-01", "ssid": "home", "password": "wifi-pass",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, true, body["success"])
	device := body["device"].(map[string]any)
	deviceID := device["id"].(string)
	deviceSecret := body["secret"].(string)
	assert.Equal(t, "pending", device["status"])
	assert.Equal(t, "AA:BB:CC:DD:EE:01", device["macAddress"])
	assert.NotContains(t, device, "sealedPassword")

	status, _ = ts.do(t, http.MethodPost, "/api/v1/devices/register/"+roomID, adminToken, gin.H{
		"name": "Porch", "macAddress": "AA:BB:CC:DD:EE:01", "ssid": "home", "password": "wifi-pass",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, body = ts.do(t, http.MethodGet, devicesPath, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, items(body, "devices"), 1)

	status, _ = ts.do(t, http.MethodPatch, "/api/v1/devices/sttus/"+roomID+"/"+deviceID, adminToken, nil)
	assert.Equal(t, http.StatusConflict, status, "pending devices cannot be toggled")

	// Handshake
	validate := "/api/v1/devices/validatedevice"
	status, _ = ts.do(t, http.MethodPost, validate, "", gin.H{"macAddress": "AA:BB:CC:DD:EE:01", "secret": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = ts.do(t, http.MethodPost, validate, "", gin.H{"macAddress": "AA:BB:CC:DD:EE:99", "secret": deviceSecret})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = ts.do(t, http.MethodPost, validate, "", gin.H{"macAddress": "AA:BB:CC:DD:EE:01"})
	assert.Equal(t, http.StatusBadRequest, status)

	for i := 0; i < 2; i++ {
		status, body = ts.do(t, http.MethodPost, validate, "", gin.H{"macAddress": "aabbccddee01", "secret": deviceSecret})
		require.Equal(t, http.StatusOK, status, body)
		assert.Equal(t, "home", body["ssid"])
		assert.Equal(t, "wifi-pass", body["password"])
		assert.Equal(t, deviceID, body["deviceId"])
		assert.Equal(t, "active", body["status"])
	}
	assert.Equal(t, []string{deviceID}, ts.notifier.dispatched(), "only the first validation notifies")
	assert.Equal(t, []model.DeviceStatus{model.DeviceStatusActive}, ts.publisher.statuses)
	assert.Len(t, ts.publisher.appliances, model.DefaultApplianceCount)

	// Appliances
	status, body = ts.do(t, http.MethodGet, "/api/v1/appliances/device/"+deviceID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	apps := items(body, "appliances")
	require.Len(t, apps, model.DefaultApplianceCount)
	assert.Equal(t, "Appliance 1", apps[0]["name"])
	assert.Equal(t, "off", apps[0]["state"])
	appID := apps[0]["id"].(string)

	statePath := "/api/v1/appliances/" + appID + "/state"
	for _, bad := range []string{"", "ON", "maybe"} {
		status, _ = ts.do(t, http.MethodPatch, statePath, adminToken, gin.H{"state": bad})
		assert.Equal(t, http.StatusBadRequest, status, "state %q", bad)
	}
	status, body = ts.do(t, http.MethodPatch, statePath, adminToken, gin.H{"state": "on"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "on", body["appliance"].(map[string]any)["state"])

	status, body = ts.do(t, http.MethodPatch, "/api/v1/devices/status/"+roomID+"/"+deviceID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "off", body["device"].(map[string]any)["status"])

	status, body = ts.do(t, http.MethodGet, "/api/v1/appliances/device/"+deviceID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "off", items(body, "appliances")[0]["state"], "switching a device off switches its appliances off")

	status, _ = ts.do(t, http.MethodPatch, statePath, adminToken, gin.H{"state": "on"})
	assert.Equal(t, http.StatusConflict, status, "switched off devices power nothing")
	status, _ = ts.do(t, http.MethodPatch, statePath, adminToken, gin.H{"state": "off"})
	assert.Equal(t, http.StatusOK, status)

	status, body = ts.do(t, http.MethodPatch, "/api/v1/devices/status/"+roomID+"/"+deviceID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "on", body["device"].(map[string]any)["status"])

	// Controller channel
	status, _ = ts.control(t, "AA:BB:CC:DD:EE:01", "")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = ts.control(t, "AA:BB:CC:DD:EE:01", "wrong")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, body = ts.control(t, "AA:BB:CC:DD:EE:01", deviceSecret)
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, items(body, "appliances"), model.DefaultApplianceCount)

	status, body = ts.do(t, http.MethodPost, "/api/v1/devices/control", "", gin.H{
		"macAddress": "AA:BB:CC:DD:EE:01",
		"secret":     deviceSecret,
		"appliances": []gin.H{{"slot": 2, "state": "on"}},
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "on", items(body, "appliances")[1]["state"])

	// Rename and delete
	for _, blank := range []string{"", "   "} {
		status, _ = ts.do(t, http.MethodPatch, "/api/v1/appliances/"+appID+"/rename", adminToken, gin.H{"newName": blank})
		assert.Equal(t, http.StatusBadRequest, status, "appliance name %q", blank)
		status, _ = ts.do(t, http.MethodPatch, "/api/v1/devices/rename/"+roomID+"/"+deviceID, adminToken, gin.H{"newName": blank})
		assert.Equal(t, http.StatusBadRequest, status, "device name %q", blank)
	}
	status, body = ts.do(t, http.MethodPatch, "/api/v1/appliances/"+appID+"/rename", adminToken, gin.H{"newName": "  Ceiling   fan "})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Ceiling fan", body["appliance"].(map[string]any)["name"])

	status, _ = ts.do(t, http.MethodDelete, "/api/v1/appliances/"+appID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, body = ts.do(t, http.MethodGet, "/api/v1/appliances/room/"+roomID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, items(body, "appliances"), model.DefaultApplianceCount-1)

	status, body = ts.do(t, http.MethodPatch, "/api/v1/devices/rename/"+roomID+"/"+deviceID, adminToken, gin.H{"newName": "Hallway"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Hallway", body["device"].(map[string]any)["name"])

	status, _ = ts.do(t, http.MethodDelete, "/api/v1/devices/"+roomID+"/"+deviceID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, body = ts.do(t, http.MethodGet, devicesPath, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, items(body, "devices"))
	status, _ = ts.do(t, http.MethodGet, "/api/v1/appliances", adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAccessLogOmitsDeviceSecret(t *testing.T) {
	var logged bytes.Buffer
	previous := gin.DefaultWriter
	gin.DefaultWriter = &logged
	t.Cleanup(func() { gin.DefaultWriter = previous })

	ts := newTestServer(t)
	adminToken, roomID, _ := ts.registerAdmin(t, "logs@example.com")
	status, body := ts.do(t, http.MethodPost, "/api/v1/devices/register/"+roomID, adminToken, gin.H{
		"deviceName": "Garage", "macAddress": "AA:BB:CC:DD:EE:02", "ssid": "home", "password": "wifi-pass",
	})
	require.Equal(t, http.StatusCreated, status, body)
	deviceSecret := body["secret"].(string)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/devices/validatedevice", "", gin.H{
		"macAddress": "AA:BB:CC:DD:EE:02", "secret": deviceSecret,
	})
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.control(t, "AA:BB:CC:DD:EE:02", deviceSecret)
	require.Equal(t, http.StatusOK, status)

	// A secret sent in the query is neither accepted nor logged.
	status, _ = ts.do(t, http.MethodGet, "/api/v1/devices/control?macAddress=AA:BB:CC:DD:EE:02&secret="+deviceSecret, "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = ts.do(t, http.MethodGet, "/api/v1/auth/admin/user-by-email?email=logs@example.com", adminToken, nil)
	assert.Equal(t, http.StatusOK, status)

	out := logged.String()
	assert.Contains(t, out, "/api/v1/devices/control")
	assert.NotContains(t, out, deviceSecret)
	assert.NotContains(t, out, "logs@example.com")
}

func TestRoomMembership(t *testing.T) {
	ts := newTestServer(t)
	adminToken, roomID, invite := ts.registerAdmin(t, "owner@example.com")
	_, otherRoomID, _ := ts.registerAdmin(t, "neighbour@example.com")

	status, _ := ts.do(t, http.MethodPost, "/api/v1/rooms/member/add", "", gin.H{
		"email": "kid@example.com", "password": "secret1", "inviteCode": "NOPE00",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := ts.do(t, http.MethodPost, "/api/v1/rooms/member/add", "", gin.H{
		"email": "kid@example.com", "password": "secret1", "inviteCode": strings.ToLower(invite),
	})
	require.Equal(t, http.StatusCreated, status, body)
	member := body["user"].(map[string]any)
	assert.Equal(t, "member", member["role"])
	assert.Regexp(t, `^user_[a-z0-9]{6}$`, member["username"])
	assert.NotContains(t, member, "passwordHash")

	status, _ = ts.do(t, http.MethodPost, "/api/v1/rooms/member/add", "", gin.H{
		"email": "kid@example.com", "password": "secret1", "inviteCode": invite,
	})
	assert.Equal(t, http.StatusConflict, status)

	status, body = ts.do(t, http.MethodPost, "/api/v1/auth/member/login", "", gin.H{
		"email": "kid@example.com", "password": "secret1", "roomId": roomID,
	})
	require.Equal(t, http.StatusOK, status)
	memberToken := body["token"].(string)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/auth/admin/login", "", gin.H{
		"username": member["username"], "password": "secret1",
	})
	assert.Equal(t, http.StatusForbidden, status)

	// Members can read the room but not administer it.
	status, _ = ts.do(t, http.MethodGet, "/api/v1/devices/get/"+roomID, memberToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, body = ts.do(t, http.MethodPost, "/api/v1/devices/register/"+roomID, memberToken, gin.H{
		"name": "Lamp", "macAddress": "AA:BB:CC:DD:EE:02", "ssid": "home", "password": "pw",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Only Admin can access", body["message"])
	status, _ = ts.do(t, http.MethodGet, "/api/v1/devices/get/"+otherRoomID, adminToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = ts.do(t, http.MethodGet, "/api/v1/devices/get/"+roomID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = ts.do(t, http.MethodGet, "/api/v1/auth/admin/user-count/"+roomID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["totalUsersLength"])

	status, body = ts.do(t, http.MethodGet, "/api/v1/rooms/admin/room-details/"+roomID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	room := body["room"].(map[string]any)
	assert.Equal(t, []any{"owner@example.com"}, room["admins"])
	assert.Equal(t, []any{"kid@example.com"}, room["members"])

	status, body = ts.do(t, http.MethodPost, "/api/v1/rooms/admin/invite-code/"+roomID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, body["inviteCode"])

	status, body = ts.do(t, http.MethodPost, "/api/v1/rooms/room-id-by-username", "", gin.H{"username": member["username"]})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, roomID, body["roomId"])

	status, _ = ts.do(t, http.MethodDelete, "/api/v1/rooms/admin/remove/"+roomID, adminToken, gin.H{"memberId": member["id"]})
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodGet, "/api/v1/devices/get/"+roomID, memberToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "removed members lose access")
}

func TestAccountRecoveryAndLogout(t *testing.T) {
	ts := newTestServer(t)
	token, roomID, _ := ts.registerAdmin(t, "Admin@Example.com")

	for name, req := range map[string]gin.H{
		"blank answer": {
			"email": "blank@example.com", "password": "hunter22",
			"securityQuestion": "First pet?", "securityAnswer": "   ",
		},
		"long password": {
			"email": "long@example.com", "password": strings.Repeat("p", 73),
			"securityQuestion": "First pet?", "securityAnswer": "Rex",
		},
	} {
		status, body := ts.do(t, http.MethodPost, "/api/v1/auth/admin/register", "", req)
		assert.Equal(t, http.StatusBadRequest, status, "%s: %v", name, body)
	}

	status, body := ts.do(t, http.MethodPost, "/api/v1/auth/admin/forgot-username", "", gin.H{
		"email": "admin@example.com", "role": "admin", "securityQuestion": "First pet?", "securityAnswer": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = ts.do(t, http.MethodPost, "/api/v1/auth/admin/forgot-username", "", gin.H{
		"email": "admin@example.com", "role": "admin", "securityQuestion": "First pet?", "securityAnswer": "  rEX ",
	})
	require.Equal(t, http.StatusOK, status)
	username := body["username"].(string)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/auth/admin/login", "", gin.H{"username": username, "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = ts.do(t, http.MethodPost, "/api/v1/auth/admin/login", "", gin.H{"username": "user_zzzzzz", "password": "hunter22"})
	assert.Equal(t, http.StatusNotFound, status)
	status, body = ts.do(t, http.MethodPost, "/api/v1/auth/admin/login", "", gin.H{"username": username, "password": "hunter22"})
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]any)
	assert.Equal(t, roomID, user["roomId"])

	status, body = ts.do(t, http.MethodGet, "/api/v1/auth/"+user["id"].(string), token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "admin@example.com", body["user"].(map[string]any)["email"])

	status, _ = ts.do(t, http.MethodGet, "/api/v1/auth/admin/user-by-email?email=admin@example.com", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/auth/user/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodGet, "/api/v1/auth/"+user["id"].(string), token, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "revoked tokens are rejected")
}

func TestRecipes(t *testing.T) {
	ts := newTestServer(t)
	ownerToken, _, _ := ts.registerAdmin(t, "chef@example.com")
	otherToken, _, _ := ts.registerAdmin(t, "guest@example.com")

	status, _ := ts.do(t, http.MethodPost, "/api/v1/recipes/generate", "", gin.H{"ingredients": []string{}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := ts.do(t, http.MethodPost, "/api/v1/recipes/generate", "", gin.H{"ingredients": []string{"egg"}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Fallback Recipe with egg", body["recipe"].(map[string]any)["title"])
	assert.Equal(t, float64(300), body["nutritionalInfo"].(map[string]any)["calories"])

	status, body = ts.do(t, http.MethodPost, "/api/v1/recipes/generate", ownerToken, gin.H{"ingredients": []string{"rice"}, "cuisinePreference": "thai"})
	require.Equal(t, http.StatusCreated, status)
	generatedID := body["recipe"].(map[string]any)["id"].(string)
	assert.NotEmpty(t, generatedID)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/recipes", ownerToken, gin.H{"title": "Soup"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = ts.do(t, http.MethodPost, "/api/v1/recipes", ownerToken, gin.H{
		"title": "Soup", "ingredients": []string{"water"}, "instructions": []string{"boil"},
		"prepTime": 5, "cookTime": 10, "tags": []string{"quick"},
	})
	require.Equal(t, http.StatusCreated, status)
	soup := body["recipe"].(map[string]any)
	assert.Equal(t, float64(15), soup["totalTime"])
	soupID := soup["id"].(string)

	status, body = ts.do(t, http.MethodGet, "/api/v1/recipes?tag=quick", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, items(body, "recipes"), 1)

	update := gin.H{"title": "Better soup", "ingredients": []string{"water", "salt"}, "instructions": []string{"boil"}}
	status, _ = ts.do(t, http.MethodPut, "/api/v1/recipes/"+soupID, otherToken, update)
	assert.Equal(t, http.StatusForbidden, status)
	status, body = ts.do(t, http.MethodPut, "/api/v1/recipes/"+soupID, ownerToken, update)
	require.Equal(t, http.StatusOK, status)

	status, body = ts.do(t, http.MethodGet, "/api/v1/recipes/"+soupID, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Better soup", body["recipe"].(map[string]any)["title"])

	status, _ = ts.do(t, http.MethodDelete, "/api/v1/recipes/"+soupID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = ts.do(t, http.MethodDelete, "/api/v1/recipes/"+soupID, ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodGet, "/api/v1/recipes/"+soupID, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSubscriptions(t *testing.T) {
	ts := newTestServer(t)
	token, _, _ := ts.registerAdmin(t, "push@example.com")
	otherToken, _, _ := ts.registerAdmin(t, "other@example.com")

	status, body := ts.do(t, http.MethodGet, "/api/v1/push/vapid_public_key", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "public-key", body["public_key"])

	status, _ = ts.do(t, http.MethodPut, "/api/v1/push/subscriptions", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = ts.do(t, http.MethodPut, "/api/v1/push/subscriptions", "", gin.H{"endpoint": "e"})
	assert.Equal(t, http.StatusUnauthorized, status)

	sub := gin.H{"endpoint": "https://push.example.com/abc", "p256dh": "key", "auth": "auth"}
	status, _ = ts.do(t, http.MethodPut, "/api/v1/push/subscriptions", token, sub)
	require.Equal(t, http.StatusCreated, status)

	status, body = ts.do(t, http.MethodGet, "/api/v1/push/subscriptions?endpoint=https://push.example.com/abc", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body["subscription"], "auth")
	status, _ = ts.do(t, http.MethodGet, "/api/v1/push/subscriptions?endpoint=https://push.example.com/abc", otherToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, http.MethodDelete, "/api/v1/push/subscriptions", token, gin.H{"endpoint": "https://push.example.com/abc"})
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodGet, "/api/v1/push/subscriptions?endpoint=https://push.example.com/abc", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOpsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
