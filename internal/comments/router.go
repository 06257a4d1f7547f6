package comments

import (
	"github.com/gin-gonic/gin"

	"studybuddy/internal/identity"
	"studybuddy/internal/server"
)

// SetupRouter mounts the JSON API and the HTML thread view
func SetupRouter(svc Service, health gin.HandlerFunc) *gin.Engine {
	r := server.NewEngine()
	h := NewHandler(svc)

	r.GET("/health", health)

	r.Use(identity.Middleware())

	r.GET("/post/:post_id", h.List)
	r.POST("/post/:post_id", identity.Require(), h.Create)
	r.DELETE("/:id", identity.Require(), h.Delete)

	r.GET("/post/:post_id/thread", h.ThreadPage)
	r.POST("/post/:post_id/thread", h.SubmitForm)
	r.POST("/post/:post_id/thread/:id/delete", h.DeleteForm)

	return r
}
