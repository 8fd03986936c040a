package api

import (
	"github.com/gin-gonic/gin"
	"github.com/lalith-99/slotbook/internal/cache"
	"github.com/lalith-99/slotbook/internal/middleware"
	"github.com/lalith-99/slotbook/internal/rbac"
	"go.uber.org/zap"
)

// Handlers bundles every HTTP handler mounted under /v1.
type Handlers struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Skills       *SkillHandler
	Calendars    *CalendarHandler
	Availability *AvailabilityHandler
	Appointments *AppointmentHandler
	Groups       *GroupHandler
	Waitlist     *WaitlistHandler
	RBAC         *RBACHandler
	Metrics      *MetricsHandler
}

// Legacy roles that bypass the permission lookup on a route. They go away
// once every tenant has been migrated to role assignments.
var (
	adminOnly         = []string{"admin"}
	adminProvider     = []string{"admin", "provider"}
	adminProviderUser = []string{"admin", "provider", "user"}
	adminSupport      = []string{"admin", "support"}
)

// Register mounts the public auth routes and the authenticated API on v1.
// The public auth routes are rate limited per client IP through limits.
// Every authenticated route except the /auth ones and /rbac/me/permissions
// is gated by a permission, with the listed legacy roles admitted directly.
func Register(v1 *gin.RouterGroup, h Handlers, src rbac.ContextSource, jwtSecret string, limits cache.Counter, logger *zap.Logger) {
	if limits == nil {
		limits = cache.Noop{}
	}
	limit := func(l middleware.RateLimit) gin.HandlerFunc {
		return middleware.RateLimiter(limits, l, logger)
	}

	// Public: no JWT yet.
	authGroup := v1.Group("/auth")
	authGroup.POST("/signup", limit(middleware.RegisterLimit), h.Auth.Signup)
	authGroup.POST("/register", limit(middleware.RegisterLimit), h.Auth.Signup)
	authGroup.POST("/login", limit(middleware.LoginLimit), h.Auth.Login)
	authGroup.POST("/refresh", limit(middleware.RefreshLimit), h.Auth.Refresh)

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(jwtSecret))

	can := func(permission string, legacy []string) gin.HandlerFunc {
		return middleware.RequireAccess(src, rbac.Require(rbac.All, []string{permission}, legacy...), logger)
	}

	protected.GET("/auth/me", h.Auth.Me)
	protected.POST("/auth/logout", h.Auth.Logout)

	users := protected.Group("/users")
	users.POST("", can("users:create", adminOnly), h.Users.Create)
	users.GET("", can("users:read", adminOnly), h.Users.List)
	users.GET("/:userId", can("users:read", adminOnly), h.Users.Get)

	skills := protected.Group("/skills")
	skills.GET("", can("skills:read", adminProviderUser), h.Skills.List)
	skills.GET("/:id", can("skills:read", adminProviderUser), h.Skills.Get)
	skills.POST("", can("skills:create", adminOnly), h.Skills.Create)
	skills.PUT("/:id", can("skills:update", adminOnly), h.Skills.Update)
	skills.DELETE("/:id", can("skills:delete", adminOnly), h.Skills.Delete)

	calendars := protected.Group("/calendars")
	calendars.GET("", can("calendars:read", adminProviderUser), h.Calendars.List)
	calendars.GET("/:calendarId", can("calendars:read", adminProviderUser), h.Calendars.Get)
	calendars.POST("", can("calendars:create", adminOnly), h.Calendars.Create)
	calendars.PUT("/:calendarId", can("calendars:update", adminOnly), h.Calendars.Update)
	calendars.DELETE("/:calendarId", can("calendars:delete", adminOnly), h.Calendars.Delete)

	availability := protected.Group("/availability")
	availability.POST("/search", can("availability:read", adminProviderUser), h.Availability.Search)
	availability.GET("/:calendarId/slots", can("availability:read", adminProvider), h.Availability.ListSlots)
	availability.POST("/:calendarId/slots", can("availability:create", adminOnly), h.Availability.CreateSlot)
	availability.PUT("/:calendarId/slots/:slotId", can("availability:update", adminOnly), h.Availability.UpdateSlot)
	availability.DELETE("/:calendarId/slots/:slotId", can("availability:delete", adminOnly), h.Availability.DeleteSlot)

	appointments := protected.Group("/appointments")
	appointments.POST("", can("appointments:create", []string{"admin", "user", "provider"}), h.Appointments.Create)
	appointments.GET("", can("appointments:read", adminProviderUser), h.Appointments.List)
	appointments.GET("/:id", can("appointments:read", adminProviderUser), h.Appointments.Get)
	appointments.PUT("/:id", can("appointments:update", adminProvider), h.Appointments.Update)
	appointments.POST("/:id/cancel", can("appointments:delete", adminProviderUser), h.Appointments.Cancel)
	appointments.DELETE("/:id", can("appointments:delete", adminProvider), h.Appointments.Delete)

	groups := protected.Group("/group-appointments")
	groups.POST("", can("groupAppointments:create", adminOnly), h.Groups.Create)
	groups.GET("", can("groupAppointments:read", adminProvider), h.Groups.List)
	groups.GET("/:id", can("groupAppointments:read", adminProvider), h.Groups.Get)
	groups.PUT("/:id", can("groupAppointments:update", adminOnly), h.Groups.Update)
	groups.POST("/:id/cancel", can("groupAppointments:delete", adminOnly), h.Groups.Cancel)
	groups.POST("/:id/providers/:providerUserId/respond", can("groupAppointments:read", adminProvider), h.Groups.RespondAsProvider)
	groups.POST("/:id/participants/:participantUserId/respond", can("groupAppointments:read", adminProvider), h.Groups.RespondAsParticipant)
	groups.DELETE("/:id", can("groupAppointments:delete", adminOnly), h.Groups.Delete)

	waitlist := protected.Group("/waitlist")
	waitlist.GET("", can("waitlist:read", []string{"admin", "provider", "support"}), h.Waitlist.List)
	waitlist.GET("/:id", can("waitlist:read", []string{"admin", "provider", "support"}), h.Waitlist.Get)
	waitlist.POST("", can("waitlist:create", adminSupport), h.Waitlist.Create)
	waitlist.PUT("/:id", can("waitlist:manage", adminSupport), h.Waitlist.Update)
	waitlist.POST("/:id/promote", can("waitlist:manage", adminSupport), h.Waitlist.Promote)
	waitlist.POST("/:id/cancel", can("waitlist:manage", adminSupport), h.Waitlist.Cancel)
	waitlist.DELETE("/:id", can("waitlist:manage", adminSupport), h.Waitlist.Delete)

	rbacGroup := protected.Group("/rbac")
	rbacGroup.GET("/me/permissions", h.RBAC.MyPermissions)
	rbacGroup.GET("/permissions", can("roles:read", adminOnly), h.RBAC.ListPermissions)
	rbacGroup.GET("/roles", can("roles:read", adminOnly), h.RBAC.ListRoles)
	rbacGroup.GET("/roles/:roleId", can("roles:read", adminOnly), h.RBAC.GetRole)
	rbacGroup.POST("/roles", can("roles:create", adminOnly), h.RBAC.CreateRole)
	rbacGroup.PUT("/roles/:roleId", can("roles:update", adminOnly), h.RBAC.UpdateRole)
	rbacGroup.DELETE("/roles/:roleId", can("roles:delete", adminOnly), h.RBAC.DeleteRole)
	rbacGroup.GET("/users/:userId/roles", can("roles:read", adminOnly), h.RBAC.UserRoles)
	rbacGroup.POST("/users/:userId/roles", can("roles:assign", adminOnly), h.RBAC.AssignRole)
	rbacGroup.DELETE("/users/:userId/roles/:roleId", can("roles:assign", adminOnly), h.RBAC.RemoveRole)

	protected.GET("/metrics/dashboard", can("metrics:read", nil), h.Metrics.Dashboard)
}
