package groups

import (
	"github.com/gin-gonic/gin"

	"studybuddy/internal/identity"
	"studybuddy/internal/likes"
	"studybuddy/internal/server"
	"studybuddy/internal/storage"
)

// SetupRouter mounts groups and their likes
func SetupRouter(svc Service, likesHandler *likes.Handler, health gin.HandlerFunc) *gin.Engine {
	r := server.NewEngine()
	r.MaxMultipartMemory = storage.MaxImageSize + 1<<20
	h := NewHandler(svc)

	r.GET("/health", health)

	r.Use(identity.Middleware())

	r.GET("/", h.List)
	r.POST("/", identity.Require(), h.Create)
	r.GET("/:id", h.Get)
	r.DELETE("/:id", identity.Require(), h.Delete)

	if likesHandler != nil {
		likesHandler.Register(r)
	}
	return r
}
