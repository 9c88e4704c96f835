package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"smarthome-backend/config"
	"smarthome-backend/internal/mw"
	"smarthome-backend/internal/obs"
)

// Limiters are the per-IP rate limiters guarding the API. They are created
// by the caller so idle entries can be pruned.
type Limiters struct {
	API    *mw.IPRateLimiter
	Device *mw.IPRateLimiter
}

// NewLimiters builds the limiters described by the server configuration.
func NewLimiters(cfg config.ServerConfig) Limiters {
	return Limiters{
		API:    mw.NewIPRateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst),
		Device: mw.NewIPRateLimiter(rate.Limit(cfg.DeviceRateLimitPerSec), cfg.RateLimitBurst),
	}
}

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, h *Handler, limiters Limiters) *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{Formatter: accessLogFormatter}), gin.Recovery())

	r.Use(obs.Instrument())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", DeviceSecretHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(obs.Handler()))

	authn := mw.NewAuthenticator(h.tokens, h.revoked, h.store)
	required := authn.Required()

	// Public recipe reads are cached; writes through the group flush the cache.
	caching := mw.NewResponseCache(time.Duration(cfg.CacheTTLSeconds) * time.Second).Middleware()

	v1 := r.Group("/api/v1")
	v1.Use(limiters.API.Middleware())

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/admin/register", h.RegisterAdmin)
		authGroup.POST("/admin/login", h.LoginAdmin)
		authGroup.POST("/member/login", h.LoginMember)
		authGroup.POST("/admin/forgot-username", h.ForgotUsername)
		authGroup.POST("/user/logout", authn.Optional(), h.Logout)
		authGroup.GET("/admin/user-count/:roomId", required, authn.RequireRoomAdmin("roomId"), h.UserCount)
		authGroup.GET("/admin/user-by-email", required, mw.RequireAdmin(), h.UserByEmail)
		authGroup.GET("/:userId", required, h.GetUser)
	}

	rooms := v1.Group("/rooms")
	{
		rooms.POST("/member/add", h.AddMember)
		rooms.POST("/room-id-by-username", h.RoomIDByUsername)
		rooms.POST("/admin/invite-code/:roomId", required, authn.RequireRoomAdmin("roomId"), h.GenerateInviteCode)
		rooms.DELETE("/admin/remove/:roomId", required, authn.RequireRoomAdmin("roomId"), h.RemoveMember)
		rooms.GET("/admin/room-details/:roomId", required, authn.RequireRoomAdmin("roomId"), h.RoomDetails)
		rooms.POST("/add-member/admin/register", required, mw.RequireAdmin(), h.RegisterRoomAdmin)
	}

	devices := v1.Group("/devices")
	{
		// Controller-facing, authenticated by MAC address and provisioning secret.
		deviceLimit := limiters.Device.Middleware()
		devices.POST("/validatedevice", deviceLimit, h.ValidateDevice)
		devices.GET("/control", deviceLimit, h.DeviceControl)
		devices.POST("/control", deviceLimit, h.ReportDeviceState)

		admin := authn.RequireRoomAdmin("roomId")
		devices.POST("/register/:roomId", required, admin, h.RegisterDevice)
		devices.GET("/get/:roomId", required, mw.RequireRoomMember("roomId"), h.ListDevices)
		devices.PATCH("/rename/:roomId/:deviceId", required, admin, h.RenameDevice)
		devices.PATCH("/status/:roomId/:deviceId", required, admin, h.ToggleDeviceStatus)
		devices.PATCH("/sttus/:roomId/:deviceId", required, admin, h.ToggleDeviceStatus)
		devices.DELETE("/:roomId/:deviceId", required, admin, h.DeleteDevice)
	}

	appliances := v1.Group("/appliances", required)
	{
		appliances.GET("", h.ListAppliances)
		appliances.GET("/device/:deviceId", h.ListDeviceAppliances)
		appliances.GET("/room/:roomId", mw.RequireRoomMember("roomId"), h.ListRoomAppliances)
		appliances.PATCH("/:id/state", h.UpdateApplianceState)
		appliances.PATCH("/:id/rename", h.RenameAppliance)
		appliances.DELETE("/:id", h.DeleteAppliance)
	}

	recipes := v1.Group("/recipes", caching)
	{
		recipes.GET("", h.ListRecipes)
		recipes.GET("/:id", h.GetRecipe)
		recipes.POST("/generate", authn.Optional(), h.GenerateRecipe)
		recipes.POST("", required, h.CreateRecipe)
		recipes.PUT("/:id", required, h.UpdateRecipe)
		recipes.DELETE("/:id", required, h.DeleteRecipe)
	}

	push := v1.Group("/push")
	{
		push.GET("/vapid_public_key", h.GetVAPIDPublicKey)
		push.GET("/subscriptions", required, h.GetSubscription)
		push.PUT("/subscriptions", required, h.PutSubscription)
		push.DELETE("/subscriptions", required, h.DeleteSubscription)
	}

	return r
}

// accessLogFormatter is gin's default line without the query string, which
// can carry emails and other lookup values.
func accessLogFormatter(param gin.LogFormatterParams) string {
	path, _, _ := strings.Cut(param.Path, "?")
	if param.Latency > time.Minute {
		param.Latency = param.Latency.Truncate(time.Second)
	}
	return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v\n%s",
		param.TimeStamp.Format("2006/01/02 - 15:04:05"),
		param.StatusCode,
		param.Latency,
		param.ClientIP,
		param.Method,
		path,
		param.ErrorMessage,
	)
}
