package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smarthome-backend/internal/mw"
	"smarthome-backend/internal/store"
)

// inviteAttempts bounds retries when a generated invite code collides.
const inviteAttempts = 3

// GenerateInviteCode replaces the room's invite code.
func (h *Handler) GenerateInviteCode(c *gin.Context) {
	roomID := c.Param("roomId")

	var (
		invite store.Invite
		err    error
	)
	for i := 0; i < inviteAttempts; i++ {
		if invite, err = h.newInvite(); err != nil {
			break
		}
		if err = h.store.SetInviteCode(c.Request.Context(), roomID, invite); !errors.Is(err, store.ErrConflict) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			fail(c, http.StatusConflict, "Failed to generate unique invite code. Please try again.")
			return
		}
		respondError(c, err, "Room")
		return
	}
	respond(c, http.StatusOK, "Invite code generated successfully", gin.H{
		"inviteCode": invite.Code,
		"expiresAt":  invite.ExpiresAt,
	})
}

type addMemberRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	InviteCode string `json:"inviteCode" binding:"required"`
}

// AddMember joins a new user to the room owning the invite code.
func (h *Handler) AddMember(c *gin.Context) {
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "All fields are required")
		return
	}

	user, err := h.newUser(req.Email, req.Password, "", "")
	if err != nil {
		respondError(c, err, "User")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.InviteCode))
	if err := h.store.AddMember(c.Request.Context(), code, user, h.now()); err != nil {
		if errors.Is(err, store.ErrConflict) {
			fail(c, http.StatusConflict, "Email already exists")
			return
		}
		respondError(c, err, "Room")
		return
	}
	respond(c, http.StatusCreated, "Member added to room successfully", gin.H{"user": user, "roomId": user.RoomID})
}

type removeMemberRequest struct {
	MemberID string `json:"memberId" binding:"required"`
}

// RemoveMember deletes a member account from the room.
func (h *Handler) RemoveMember(c *gin.Context) {
	var req removeMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Member ID is required")
		return
	}
	if err := h.store.RemoveMember(c.Request.Context(), c.Param("roomId"), req.MemberID); err != nil {
		respondError(c, err, "Member")
		return
	}
	respond(c, http.StatusOK, "Member removed successfully", nil)
}

// RoomDetails returns the room with the emails of its users and its devices.
func (h *Handler) RoomDetails(c *gin.Context) {
	details, err := h.store.RoomDetails(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		respondError(c, err, "Room")
		return
	}
	respond(c, http.StatusOK, "Room details fetched successfully", gin.H{"room": gin.H{
		"id":        details.Room.ID,
		"admins":    details.AdminEmails,
		"members":   details.MemberEmails,
		"devices":   details.Devices,
		"createdAt": details.Room.CreatedAt,
	}})
}

type roomIDByUsernameRequest struct {
	Username string `json:"username" binding:"required"`
}

// RoomIDByUsername resolves the room a username belongs to.
func (h *Handler) RoomIDByUsername(c *gin.Context) {
	var req roomIDByUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Username is required")
		return
	}
	user, err := h.store.GetUserByUsername(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		respondError(c, err, "User")
		return
	}
	respond(c, http.StatusOK, "Room found", gin.H{"roomId": user.RoomID})
}

type registerRoomAdminRequest struct {
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required"`
	RoomID           string `json:"roomId" binding:"required"`
	SecurityQuestion string `json:"securityQuestion"`
	SecurityAnswer   string `json:"securityAnswer"`
}

// RegisterRoomAdmin lets an admin create another admin for their room.
// The room's invite code is rotated.
func (h *Handler) RegisterRoomAdmin(c *gin.Context) {
	var req registerRoomAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "All fields are required")
		return
	}
	if current, _ := mw.CurrentUser(c); !current.IsAdminOf(req.RoomID) {
		fail(c, http.StatusForbidden, "Only Admin can access")
		return
	}

	user, err := h.newUser(req.Email, req.Password, req.SecurityQuestion, req.SecurityAnswer)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	invite, err := h.newInvite()
	if err != nil {
		respondError(c, err, "Room")
		return
	}
	if err := h.store.RegisterRoomAdmin(c.Request.Context(), user, req.RoomID, invite); err != nil {
		if errors.Is(err, store.ErrConflict) {
			fail(c, http.StatusConflict, "Email already exists")
			return
		}
		respondError(c, err, "Room")
		return
	}
	respond(c, http.StatusCreated, "Admin registered for room successfully", gin.H{
		"user":       user,
		"inviteCode": invite.Code,
	})
}
