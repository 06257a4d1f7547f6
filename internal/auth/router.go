package auth

import (
	"github.com/gin-gonic/gin"

	"studybuddy/internal/server"
)

// SetupRouter mounts the auth endpoints; the gateway strips its /auth prefix
func SetupRouter(h *Handler, health gin.HandlerFunc) *gin.Engine {
	r := server.NewEngine()
	r.GET("/health", health)

	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.GET("/me", h.Me)
	r.GET("/oauth/:provider", h.OAuthStart)
	r.GET("/oauth/:provider/callback", h.OAuthCallback)
	return r
}
