package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smarthome-backend/internal/model"
	"smarthome-backend/internal/mw"
	"smarthome-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription handles the creation or replacement of the caller's subscription.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	user, _ := mw.CurrentUser(c)

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		UserID:   user.ID,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.store.UpsertSubscription(c.Request.Context(), &subscription); err != nil {
		respondError(c, err, "Subscription")
		return
	}
	respond(c, http.StatusCreated, "Subscription saved", nil)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of the caller's subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if _, ok := h.ownSubscription(c, req.Endpoint); !ok {
		return
	}
	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		respondError(c, err, "Subscription")
		return
	}
	respond(c, http.StatusOK, "Subscription deleted", nil)
}

// GetSubscription reports whether the endpoint is subscribed for the caller.
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		fail(c, http.StatusBadRequest, "endpoint is required")
		return
	}
	sub, ok := h.ownSubscription(c, endpoint)
	if !ok {
		return
	}
	respond(c, http.StatusOK, "Subscription found", gin.H{"subscription": sub})
}

func (h *Handler) ownSubscription(c *gin.Context, endpoint string) (*model.PushSubscription, bool) {
	user, _ := mw.CurrentUser(c)
	sub, err := h.store.GetSubscription(c.Request.Context(), endpoint)
	if err == nil && sub.UserID != user.ID {
		err = store.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "subscription not found")
			return nil, false
		}
		respondError(c, err, "Subscription")
		return nil, false
	}
	return sub, true
}
