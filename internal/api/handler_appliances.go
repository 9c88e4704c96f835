package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"smarthome-backend/internal/history"
	"smarthome-backend/internal/model"
	"smarthome-backend/internal/mw"
	"smarthome-backend/internal/obs"
	"smarthome-backend/internal/parse"
	"smarthome-backend/internal/store"
)

// ListAppliances returns every appliance in the caller's room.
func (h *Handler) ListAppliances(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	h.listRoomAppliances(c, user.RoomID)
}

// ListRoomAppliances returns every appliance in the room named by the path.
func (h *Handler) ListRoomAppliances(c *gin.Context) {
	h.listRoomAppliances(c, c.Param("roomId"))
}

func (h *Handler) listRoomAppliances(c *gin.Context, roomID string) {
	apps, err := h.store.ListAppliancesByRoom(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err, "Room")
		return
	}
	respond(c, http.StatusOK, "Appliances fetched successfully", gin.H{"appliances": apps})
}

// ListDeviceAppliances returns a device's appliances, creating the defaults
// on first access.
func (h *Handler) ListDeviceAppliances(c *gin.Context) {
	user, _ := mw.CurrentUser(c)

	device, err := h.store.GetDeviceByID(c.Request.Context(), c.Param("deviceId"))
	if err == nil && !user.BelongsTo(device.RoomID) {
		err = store.ErrNotFound
	}
	if err != nil {
		respondError(c, err, "Device")
		return
	}

	apps, err := h.store.EnsureDefaultAppliances(c.Request.Context(), device.ID)
	if err != nil {
		respondError(c, err, "Device")
		return
	}
	respond(c, http.StatusOK, "Appliances fetched successfully", gin.H{"appliances": apps})
}

type applianceStateRequest struct {
	State string `json:"state"`
}

// UpdateApplianceState switches an appliance on or off.
func (h *Handler) UpdateApplianceState(c *gin.Context) {
	var req applianceStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	state, ok := model.ParseApplianceState(req.State)
	if !ok {
		fail(c, http.StatusBadRequest, "State must be either 'on' or 'off'")
		return
	}

	_, device, ok := h.authorizeAppliance(c, false)
	if !ok {
		return
	}

	app, err := h.store.UpdateApplianceState(c.Request.Context(), c.Param("id"), state, h.now())
	if err != nil {
		if errors.Is(err, store.ErrInvalidState) {
			fail(c, http.StatusConflict, "Device is not powered. Turn the device on before switching its appliances on")
			return
		}
		respondError(c, err, "Appliance")
		return
	}

	h.history.ApplianceChanged(device, app, history.OriginUser)
	obs.ApplianceChanges.WithLabelValues(history.OriginUser, string(app.State)).Inc()
	if err := h.publisher.PublishApplianceState(device.MACAddress, *app); err != nil {
		log.Printf("Failed to publish slot %d of device %s: %v", app.Slot, device.MACAddress, err)
	}
	respond(c, http.StatusOK, "Appliance state updated successfully", gin.H{"appliance": app})
}

// RenameAppliance changes an appliance's display name.
func (h *Handler) RenameAppliance(c *gin.Context) {
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
	if _, _, ok := h.authorizeAppliance(c, true); !ok {
		return
	}

	app, err := h.store.RenameAppliance(c.Request.Context(), c.Param("id"), name)
	if err != nil {
		respondError(c, err, "Appliance")
		return
	}
	respond(c, http.StatusOK, "Appliance renamed successfully", gin.H{"appliance": app})
}

// DeleteAppliance removes an appliance from its device.
func (h *Handler) DeleteAppliance(c *gin.Context) {
	if _, _, ok := h.authorizeAppliance(c, true); !ok {
		return
	}
	if err := h.store.DeleteAppliance(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Appliance")
		return
	}
	respond(c, http.StatusOK, "Appliance deleted successfully", nil)
}

// authorizeAppliance loads the appliance named by the path and checks the
// caller may act on it. Appliances of other rooms are reported as missing.
func (h *Handler) authorizeAppliance(c *gin.Context, adminOnly bool) (*model.Appliance, *model.Device, bool) {
	user, _ := mw.CurrentUser(c)

	app, device, err := h.store.GetAppliance(c.Request.Context(), c.Param("id"))
	if err == nil && !user.BelongsTo(device.RoomID) {
		err = store.ErrNotFound
	}
	if err != nil {
		respondError(c, err, "Appliance")
		return nil, nil, false
	}
	if adminOnly && !user.IsAdminOf(device.RoomID) {
		fail(c, http.StatusForbidden, "Only Admin can access")
		return nil, nil, false
	}
	return app, device, true
}
