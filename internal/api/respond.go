package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"smarthome-backend/internal/auth"
	"smarthome-backend/internal/provision"
	"smarthome-backend/internal/recipe"
	"smarthome-backend/internal/store"
)

// respond writes a success envelope merged with payload.
func respond(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{"success": true, "message": message}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// fail writes an error envelope.
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func badRequest(c *gin.Context) {
	fail(c, http.StatusBadRequest, "Invalid request body")
}

// respondError maps domain errors to a status code. subject names the
// resource the handler works on, e.g. "Device". Anything unrecognised is
// logged and answered without detail.
func respondError(c *gin.Context, err error, subject string) {
	switch {
	case errors.Is(err, provision.ErrInvalidInput),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, auth.ErrInvalidAnswer),
		errors.Is(err, bcrypt.ErrPasswordTooLong),
		errors.Is(err, recipe.ErrNoIngredients):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrInviteInvalid):
		fail(c, http.StatusBadRequest, "Invalid or expired invite code. Collect a new invite code from admin")
	case errors.Is(err, store.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, store.ErrNotFound):
		fail(c, http.StatusNotFound, subject+" not found")
	case errors.Is(err, store.ErrConflict):
		fail(c, http.StatusConflict, subject+" already exists")
	case errors.Is(err, store.ErrInvalidState):
		fail(c, http.StatusConflict, subject+" is not in a state that allows this operation")
	default:
		log.Printf("Error handling %s %s: %v", c.Request.Method, c.FullPath(), err)
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}
