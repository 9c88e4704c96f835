package mw

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smarthome-backend/internal/auth"
	"smarthome-backend/internal/model"
	"smarthome-backend/internal/store"
)

const (
	// TokenCookie is the cookie carrying the session token.
	TokenCookie = "token"

	ctxUser   = "user"
	ctxClaims = "claims"
)

// UserLoader resolves the user a token was issued to and checks room
// administration against the store.
type UserLoader interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	IsRoomAdmin(ctx context.Context, userID, roomID string) (bool, error)
}

// Authenticator validates session tokens and loads the current user.
type Authenticator struct {
	tokens  *auth.TokenManager
	revoked *auth.Revocations
	users   UserLoader
}

func NewAuthenticator(tokens *auth.TokenManager, revoked *auth.Revocations, users UserLoader) *Authenticator {
	return &Authenticator{tokens: tokens, revoked: revoked, users: users}
}

// Required rejects requests without a valid session with 401.
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ok := a.load(c); !ok {
			if !c.IsAborted() {
				abort(c, http.StatusUnauthorized, "Authentication required")
			}
			return
		}
		c.Next()
	}
}

// Optional loads the user when a valid session is presented and otherwise
// continues anonymously.
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		a.load(c)
		if !c.IsAborted() {
			c.Next()
		}
	}
}

func (a *Authenticator) load(c *gin.Context) bool {
	raw := bearerOrCookie(c)
	if raw == "" {
		return false
	}
	claims, err := a.tokens.Parse(raw)
	if err != nil || a.revoked.Revoked(claims.ID) {
		return false
	}

	user, err := a.users.GetUser(c.Request.Context(), claims.Subject)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Error loading user %s: %v", claims.Subject, err)
			abort(c, http.StatusInternalServerError, "Internal server error")
		}
		return false
	}

	c.Set(ctxUser, user)
	c.Set(ctxClaims, claims)
	return true
}

func bearerOrCookie(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*model.User)
	return u, ok
}

// CurrentClaims returns the claims of the presented token, if any.
func CurrentClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

// RequireRoomMember allows users belonging to the room named by the path parameter.
func RequireRoomMember(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !user.BelongsTo(c.Param(param)) {
			abort(c, http.StatusForbidden, "You do not have access to this room")
			return
		}
		c.Next()
	}
}

// RequireRoomAdmin allows only admins of the room named by the path parameter.
// Membership is checked against the store rather than the loaded user.
func (a *Authenticator) RequireRoomAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		admin, err := a.users.IsRoomAdmin(c.Request.Context(), user.ID, c.Param(param))
		if err != nil {
			log.Printf("Error checking admin rights of %s: %v", user.ID, err)
			abort(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !admin {
			abort(c, http.StatusForbidden, "Only Admin can access")
			return
		}
		c.Next()
	}
}

// RequireAdmin allows admins of any room.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if user.Role != model.RoleAdmin {
			abort(c, http.StatusForbidden, "Only Admin can access")
			return
		}
		c.Next()
	}
}
