package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"smarthome-backend/internal/history"
	"smarthome-backend/internal/model"
	"smarthome-backend/internal/obs"
	"smarthome-backend/internal/parse"
	"smarthome-backend/internal/provision"
	"smarthome-backend/internal/store"
)

type registerDeviceRequest struct {
	Name       string `json:"name"`
	DeviceName string `json:"deviceName"`
	MACAddress string `json:"macAddress" binding:"required"`
	SSID       string `json:"ssid" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// RegisterDevice adds a pending controller to the room and returns its
// provisioning secret. The secret is shown only once.
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req registerDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "All fields (name, macAddress, ssid, password) are required.")
		return
	}
	name := req.Name
	if name == "" {
		name = req.DeviceName
	}

	device, secret, err := h.provisioner.Register(c.Request.Context(), provision.RegisterInput{
		RoomID:     c.Param("roomId"),
		Name:       name,
		MACAddress: req.MACAddress,
		SSID:       req.SSID,
		Password:   req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			fail(c, http.StatusNotFound, "Room not found.")
		case errors.Is(err, store.ErrConflict):
			fail(c, http.StatusConflict, "A device with this MAC address is already registered.")
		default:
			respondError(c, err, "Device")
		}
		return
	}
	obs.DevicesRegistered.Inc()
	respond(c, http.StatusCreated, "Device registered successfully.", gin.H{"device": device, "secret": secret})
}

// ListDevices returns every device of the room.
func (h *Handler) ListDevices(c *gin.Context) {
	devices, err := h.store.ListDevicesByRoom(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		respondError(c, err, "Room")
		return
	}
	respond(c, http.StatusOK, "Devices fetched successfully", gin.H{"devices": devices})
}

type renameRequest struct {
	NewName string `json:"newName"`
	Name    string `json:"name"`
}

func (r renameRequest) value() string {
	if r.NewName != "" {
		return r.NewName
	}
	return r.Name
}

// RenameDevice changes a device's display name.
func (h *Handler) RenameDevice(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	name, err := parse.Name(req.value())
	if err != nil {
		fail(c, http.StatusBadRequest, "New name is required")
		return
	}

	device, err := h.store.RenameDevice(c.Request.Context(), c.Param("roomId"), c.Param("deviceId"), name)
	if err != nil {
		respondError(c, err, "Device")
		return
	}
	respond(c, http.StatusOK, "Device name updated successfully", gin.H{"device": device})
}

// ToggleDeviceStatus flips a provisioned device between on and off.
func (h *Handler) ToggleDeviceStatus(c *gin.Context) {
	device, err := h.store.ToggleDeviceStatus(c.Request.Context(), c.Param("roomId"), c.Param("deviceId"), h.now())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidState):
			fail(c, http.StatusConflict, "Device has not been provisioned yet")
		case errors.Is(err, store.ErrConflict):
			fail(c, http.StatusConflict, "Device status changed concurrently. Please retry.")
		default:
			respondError(c, err, "Device")
		}
		return
	}

	h.history.DeviceStatusChanged(device)
	h.publishDevice(c, device)
	respond(c, http.StatusOK, "Device status updated to "+string(device.Status), gin.H{"device": device})
}

// DeleteDevice removes a device and its appliances.
func (h *Handler) DeleteDevice(c *gin.Context) {
	if err := h.store.DeleteDevice(c.Request.Context(), c.Param("roomId"), c.Param("deviceId")); err != nil {
		respondError(c, err, "Device")
		return
	}
	respond(c, http.StatusOK, "Device deleted successfully", nil)
}

type deviceCredentialsRequest struct {
	MACAddress string `json:"macAddress" binding:"required"`
	Secret     string `json:"secret" binding:"required"`
}

// DeviceSecretHeader carries the provisioning secret on controller reads,
// keeping it out of URLs and access logs.
const DeviceSecretHeader = "X-Device-Secret"

type deviceControlQuery struct {
	MACAddress string `form:"macAddress" binding:"required"`
}

// ValidateDevice is called by a controller to fetch its Wi-Fi credentials.
// The first successful call activates the device.
func (h *Handler) ValidateDevice(c *gin.Context) {
	var req deviceCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "macAddress and secret are required")
		return
	}

	creds, err := h.provisioner.Validate(c.Request.Context(), req.MACAddress, req.Secret)
	if err != nil {
		h.deviceAuthFailed(c, err)
		return
	}

	if creds.Activated {
		obs.DevicesActivated.Inc()
		h.history.DeviceStatusChanged(creds.Device)
		h.publishDevice(c, creds.Device)
		h.notifier.Dispatch(creds.Device.ID)
	}
	respond(c, http.StatusOK, "Device validated successfully", gin.H{
		"deviceId": creds.Device.ID,
		"status":   creds.Device.Status,
		"ssid":     creds.SSID,
		"password": creds.Password,
	})
}

// DeviceControl returns the desired appliance states to a provisioned controller.
func (h *Handler) DeviceControl(c *gin.Context) {
	var req deviceControlQuery
	secret := c.GetHeader(DeviceSecretHeader)
	if err := c.ShouldBindQuery(&req); err != nil || secret == "" {
		fail(c, http.StatusBadRequest, "macAddress and "+DeviceSecretHeader+" header are required")
		return
	}
	device, err := h.provisioner.Authenticate(c.Request.Context(), req.MACAddress, secret)
	if err != nil {
		h.deviceAuthFailed(c, err)
		return
	}

	apps, err := h.store.EnsureDefaultAppliances(c.Request.Context(), device.ID)
	if err != nil {
		respondError(c, err, "Device")
		return
	}
	respond(c, http.StatusOK, "Control state fetched successfully", gin.H{
		"deviceId":   device.ID,
		"status":     device.Status,
		"appliances": apps,
	})
}

type slotReport struct {
	Slot  int    `json:"slot" binding:"required,min=1"`
	State string `json:"state" binding:"required"`
}

type deviceReportRequest struct {
	MACAddress string       `json:"macAddress" binding:"required"`
	Secret     string       `json:"secret" binding:"required"`
	Appliances []slotReport `json:"appliances" binding:"required,dive"`
}

// ReportDeviceState records the physical appliance states a controller reports.
func (h *Handler) ReportDeviceState(c *gin.Context) {
	var req deviceReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	states := make(map[int]model.ApplianceState, len(req.Appliances))
	for _, r := range req.Appliances {
		state, ok := model.ParseApplianceState(r.State)
		if !ok {
			fail(c, http.StatusBadRequest, "State must be either 'on' or 'off'")
			return
		}
		states[r.Slot] = state
	}

	device, err := h.provisioner.Authenticate(c.Request.Context(), req.MACAddress, req.Secret)
	if err != nil {
		h.deviceAuthFailed(c, err)
		return
	}
	apps, err := h.store.ReportApplianceStates(c.Request.Context(), device.ID, states, h.now())
	if err != nil {
		respondError(c, err, "Device")
		return
	}

	for i := range apps {
		if _, reported := states[apps[i].Slot]; reported {
			h.history.ApplianceChanged(device, &apps[i], history.OriginDevice)
			obs.ApplianceChanges.WithLabelValues(history.OriginDevice, string(apps[i].State)).Inc()
		}
	}
	respond(c, http.StatusOK, "Appliance states recorded", gin.H{"appliances": apps})
}

// deviceAuthFailed answers a failed controller authentication and counts it.
func (h *Handler) deviceAuthFailed(c *gin.Context, err error) {
	switch {
	case errors.Is(err, provision.ErrInvalidInput):
		obs.ValidationFailures.WithLabelValues("invalid_input").Inc()
	case errors.Is(err, store.ErrNotFound):
		obs.ValidationFailures.WithLabelValues("unknown_mac").Inc()
	case errors.Is(err, store.ErrUnauthorized):
		obs.ValidationFailures.WithLabelValues("bad_secret").Inc()
	case errors.Is(err, store.ErrInvalidState):
		obs.ValidationFailures.WithLabelValues("pending").Inc()
		fail(c, http.StatusConflict, "Device has not been validated yet")
		return
	}
	respondError(c, err, "Device")
}

// publishDevice pushes a device's status and its appliance states to the broker.
func (h *Handler) publishDevice(c *gin.Context, device *model.Device) {
	if err := h.publisher.PublishDeviceStatus(device.MACAddress, device.Status); err != nil {
		log.Printf("Failed to publish status of device %s: %v", device.MACAddress, err)
		return
	}
	apps, err := h.store.EnsureDefaultAppliances(c.Request.Context(), device.ID)
	if err != nil {
		log.Printf("Failed to load appliances of device %s: %v", device.MACAddress, err)
		return
	}
	for _, app := range apps {
		if err := h.publisher.PublishApplianceState(device.MACAddress, app); err != nil {
			log.Printf("Failed to publish slot %d of device %s: %v", app.Slot, device.MACAddress, err)
		}
	}
}
