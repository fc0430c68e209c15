package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/kaanyildiz/hwboard/internal/app/controllers"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	homeworkController *controllers.HomeworkController,
) {
	homeworks := router.Group("/homeworks")
	{
		homeworks.GET("", homeworkController.ListHomeworks)
		homeworks.POST("", homeworkController.CreateHomework)
		homeworks.PUT("/:id", homeworkController.UpdateHomework)
		homeworks.DELETE("/:id", homeworkController.DeleteHomework)
	}

	// Attachment downloads are handled by the controller rather than gin's
	// static file server so a missing file yields the JSON 404 body.
	router.GET("/uploads/:filename", homeworkController.DownloadAttachment)
}
