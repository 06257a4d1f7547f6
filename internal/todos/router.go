package todos

import (
	"github.com/gin-gonic/gin"

	"studybuddy/internal/identity"
	"studybuddy/internal/server"
)

// SetupRouter serves /todos and /study-times; every route needs a user
func SetupRouter(svc Service, health gin.HandlerFunc) *gin.Engine {
	r := server.NewEngine()
	h := NewHandler(svc)

	r.GET("/health", health)

	todos := r.Group("/todos", identity.Require())
	todos.GET("", h.Overview)
	todos.POST("", h.Create)
	todos.PATCH("/:id/toggle", h.Toggle)
	todos.DELETE("/:id", h.Delete)
	todos.POST("/groups", h.CreateGroup)
	todos.DELETE("/groups/:id", h.DeleteGroup)

	study := r.Group("/study-times", identity.Require())
	study.GET("", h.StudyTimes)
	study.POST("", h.AddStudyTime)

	return r
}
