package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smarthome-backend/internal/auth"
	"smarthome-backend/internal/model"
	"smarthome-backend/internal/mw"
	"smarthome-backend/internal/store"
)

type registerAdminRequest struct {
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required"`
	SecurityQuestion string `json:"securityQuestion" binding:"required"`
	SecurityAnswer   string `json:"securityAnswer" binding:"required"`
}

// RegisterAdmin creates a room together with its first admin.
func (h *Handler) RegisterAdmin(c *gin.Context) {
	var req registerAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "All fields are required")
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

	room, err := h.store.CreateRoomWithAdmin(c.Request.Context(), user, invite)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			fail(c, http.StatusConflict, "Email already exists")
			return
		}
		respondError(c, err, "Room")
		return
	}

	token, ok := h.startSession(c, user)
	if !ok {
		return
	}
	respond(c, http.StatusCreated, "Admin registered successfully", gin.H{
		"user":       user,
		"token":      token,
		"roomId":     room.ID,
		"inviteCode": invite.Code,
	})
}

type loginAdminRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginAdmin authenticates an admin by username.
func (h *Handler) LoginAdmin(c *gin.Context) {
	var req loginAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	user, err := h.store.GetUserByUsername(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		respondError(c, err, "User")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if user.Role != model.RoleAdmin {
		fail(c, http.StatusForbidden, "Access denied. Admins only.")
		return
	}

	token, ok := h.startSession(c, user)
	if !ok {
		return
	}
	respond(c, http.StatusOK, "Admin logged in successfully", gin.H{"user": user, "token": token})
}

type loginMemberRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	RoomID   string `json:"roomId"`
}

// LoginMember authenticates any user of a room by email.
func (h *Handler) LoginMember(c *gin.Context) {
	var req loginMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), normalizeEmail(req.Email))
	if err != nil {
		respondError(c, err, "User")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) || (req.RoomID != "" && req.RoomID != user.RoomID) {
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, ok := h.startSession(c, user)
	if !ok {
		return
	}
	respond(c, http.StatusOK, "Member logged in successfully", gin.H{"user": user, "token": token})
}

// Logout clears the session cookie and revokes the presented token.
func (h *Handler) Logout(c *gin.Context) {
	if claims, ok := mw.CurrentClaims(c); ok && claims.ExpiresAt != nil {
		h.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(mw.TokenCookie, "", -1, "/", "", h.secureCookies, true)
	respond(c, http.StatusOK, "Logged out successfully.", nil)
}

// GetUser returns a user of the caller's room.
func (h *Handler) GetUser(c *gin.Context) {
	current, _ := mw.CurrentUser(c)

	user, err := h.store.GetUser(c.Request.Context(), c.Param("userId"))
	if err == nil && user.RoomID != current.RoomID {
		err = store.ErrNotFound
	}
	if err != nil {
		respondError(c, err, "User")
		return
	}
	respond(c, http.StatusOK, "User details fetched successfully", gin.H{"user": user})
}

// UserCount returns the number of admins and members in a room.
func (h *Handler) UserCount(c *gin.Context) {
	n, err := h.store.CountRoomUsers(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		respondError(c, err, "Room")
		return
	}
	respond(c, http.StatusOK, "User count fetched successfully", gin.H{"totalUsersLength": n})
}

// UserByEmail looks up a user of the admin's room by email.
func (h *Handler) UserByEmail(c *gin.Context) {
	email := normalizeEmail(c.Query("email"))
	if email == "" {
		fail(c, http.StatusBadRequest, "Email is required")
		return
	}
	current, _ := mw.CurrentUser(c)

	user, err := h.store.GetUserByEmail(c.Request.Context(), email)
	if err == nil && user.RoomID != current.RoomID {
		err = store.ErrNotFound
	}
	if err != nil {
		respondError(c, err, "User")
		return
	}
	respond(c, http.StatusOK, "User fetched successfully", gin.H{"user": user})
}

type forgotUsernameRequest struct {
	Email            string     `json:"email" binding:"required"`
	Role             model.Role `json:"role" binding:"required"`
	SecurityQuestion string     `json:"securityQuestion" binding:"required"`
	SecurityAnswer   string     `json:"securityAnswer" binding:"required"`
}

// ForgotUsername reveals a username to whoever answers its security question.
func (h *Handler) ForgotUsername(c *gin.Context) {
	var req forgotUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Role.Valid() {
		fail(c, http.StatusBadRequest, "Email, role, security question, and answer are required.")
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), normalizeEmail(req.Email))
	if err == nil && (user.Role != req.Role || user.SecurityQuestion != req.SecurityQuestion) {
		err = store.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "No user found with the provided email, role, and security question.")
			return
		}
		respondError(c, err, "User")
		return
	}
	if !auth.CheckAnswer(user.SecurityAnswerHash, req.SecurityAnswer) {
		fail(c, http.StatusUnauthorized, "Incorrect security answer.")
		return
	}
	respond(c, http.StatusOK, "Username retrieved successfully.", gin.H{"username": user.Username})
}

// newUser builds an unsaved account with hashed secrets and a generated username.
func (h *Handler) newUser(email, password, question, answer string) (*model.User, error) {
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	username, err := auth.NewUsername()
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Email:        normalizeEmail(email),
		Username:     username,
		PasswordHash: passwordHash,
	}
	if answer != "" {
		answerHash, err := auth.HashAnswer(answer)
		if err != nil {
			return nil, err
		}
		user.SecurityQuestion = strings.TrimSpace(question)
		user.SecurityAnswerHash = answerHash
	}
	return user, nil
}

func (h *Handler) newInvite() (store.Invite, error) {
	code, err := auth.NewInviteCode()
	if err != nil {
		return store.Invite{}, err
	}
	return store.Invite{Code: code, ExpiresAt: h.now().Add(h.inviteTTL)}, nil
}

// startSession issues a token and sets it as the session cookie.
func (h *Handler) startSession(c *gin.Context, user *model.User) (string, bool) {
	token, _, err := h.tokens.Issue(user)
	if err != nil {
		respondError(c, err, "Session")
		return "", false
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(mw.TokenCookie, token, int(h.tokens.TTL().Seconds()), "/", "", h.secureCookies, true)
	return token, true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
