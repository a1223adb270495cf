package api

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the pipeline API under /api/v1. The group is left
// open for the gateway's auth middleware; identity verification happens
// upstream of this service.
func RegisterRoutes(router *gin.Engine, h *Handlers) {
	v1 := router.Group("/api/v1")

	meetings := v1.Group("/meetings")
	{
		meetings.POST("", h.CreateMeeting)
		meetings.GET("", h.ListMeetings)
		meetings.GET("/:id", h.GetMeeting)
		meetings.GET("/:id/status", h.GetStatus)
		meetings.GET("/:id/tasks", h.ListTasks)
		meetings.POST("/:id/transcribe", h.StartTranscription)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
