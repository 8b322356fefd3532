package routes

import (
	"remindly/internal/controller"
	"remindly/internal/middleware"

	"github.com/gin-gonic/gin"
)

func Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// Health for load balancers and K8s probes
	router.GET("/health", controller.Health)
	router.GET("/ready", controller.Ready)

	// Everything else is per-user and JWT protected
	api := router.Group("")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/reminders", controller.GetReminders)
		api.POST("/reminders", controller.CreateReminder)
		api.PUT("/reminders/:id", controller.UpdateReminder)
		api.DELETE("/reminders/:id", controller.DeleteReminder)
		api.PATCH("/reminders/:id/complete", controller.CompleteReminder)
		api.GET("/stats", controller.GetStats)
	}

	return router
}
