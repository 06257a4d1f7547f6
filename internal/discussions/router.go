package discussions

import (
	"github.com/gin-gonic/gin"

	"studybuddy/internal/identity"
	"studybuddy/internal/realtime"
	"studybuddy/internal/server"
	"studybuddy/internal/storage"
)

func SetupRouter(svc Service, hub *realtime.Hub, health gin.HandlerFunc) *gin.Engine {
	r := server.NewEngine()
	r.MaxMultipartMemory = storage.MaxImageSize + 1<<20
	h := NewHandler(svc, hub)

	r.GET("/health", health)

	r.Use(identity.Middleware())

	r.GET("/", h.List)
	r.POST("/", identity.Require(), h.Create)
	r.GET("/slug/:slug", h.GetBySlug)
	r.GET("/:id", h.Get)
	r.GET("/:id/posts", h.Posts)
	r.POST("/:id/posts", identity.Require(), h.CreatePost)
	r.GET("/:id/live", h.Live)

	return r
}
