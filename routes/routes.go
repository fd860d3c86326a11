package routes

import (
	"net/http"

	"dost-pmns-api/controllers"
	"dost-pmns-api/middleware"
	"dost-pmns-api/models"

	"github.com/gin-gonic/gin"
)

var (
	superAdmin = []string{models.RoleSuperAdmin}
	staff      = []string{models.RolePSTO, models.RoleDOSTMimaropa, models.RoleSuperAdmin}
	pstoRoles  = []string{models.RolePSTO, models.RoleSuperAdmin}
	dostRoles  = []string{models.RoleDOSTMimaropa, models.RoleSuperAdmin}
)

func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/health", controllers.Health)

		auth := api.Group("/auth")
		{
			auth.POST("/register", controllers.Register)
			auth.POST("/login", controllers.Login)
			auth.POST("/forgot-password", controllers.ForgotPassword)
			auth.POST("/reset-password", controllers.ResetPassword)

			authed := auth.Group("", middleware.AuthMiddleware())
			authed.GET("/me", controllers.GetProfile)
			authed.PUT("/change-password", controllers.ChangePassword)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/provinces", controllers.ListProvinces)

			users := protected.Group("/users")
			{
				// Proponent management is province scoped inside the service.
				users.GET("/proponents", middleware.RequireRole(staff...), controllers.ListProponents)
				users.GET("/proponents/pending", middleware.RequireRole(pstoRoles...), controllers.PendingProponents)
				users.PUT("/proponents/:id/activate", middleware.RequireRole(pstoRoles...), controllers.ActivateProponent)
				users.PUT("/proponents/:id/deactivate", middleware.RequireRole(pstoRoles...), controllers.DeactivateProponent)

				users.GET("", middleware.RequireRole(superAdmin...), controllers.ListUsers)
				users.POST("", middleware.RequireRole(superAdmin...), controllers.CreateUser)
				users.GET("/:id", middleware.RequireRole(superAdmin...), controllers.GetUser)
				users.PUT("/:id", middleware.RequireRole(superAdmin...), controllers.UpdateUser)
				users.DELETE("/:id", middleware.RequireRole(superAdmin...), controllers.DeleteUser)
			}

			pstos := protected.Group("/pstos")
			{
				pstos.GET("", controllers.ListPSTOOffices)
				pstos.POST("", middleware.RequireRole(superAdmin...), controllers.SavePSTOOffice)
				pstos.PUT("", middleware.RequireRole(superAdmin...), controllers.SavePSTOOffice)
			}

			protected.GET("/applications", controllers.ListApplications)

			programs := protected.Group("/programs")
			{
				programs.GET("", controllers.ListPrograms)
				programs.GET("/:program/info", controllers.GetProgram)

				programs.GET("/:program", controllers.ListApplications)
				programs.POST("/:program", middleware.RequireRole(models.RoleProponent), controllers.SubmitApplication)
				programs.GET("/:program/:id", controllers.GetApplication)
				programs.PUT("/:program/:id", middleware.RequireRole(models.RoleProponent), controllers.ResubmitApplication)
				programs.GET("/:program/:id/history", controllers.ApplicationHistory)
				programs.GET("/:program/:id/files/:type", controllers.DownloadApplicationFile)

				programs.PUT("/:program/:id/psto/:decision", middleware.RequireRole(pstoRoles...), controllers.PSTOReviewApplication)
				programs.PUT("/:program/:id/dost/:decision", middleware.RequireRole(dostRoles...), controllers.DOSTReviewApplication)
				programs.PUT("/:program/:id/implementation", middleware.RequireRole(superAdmin...), controllers.StartImplementation)
				programs.PUT("/:program/:id/complete", middleware.RequireRole(superAdmin...), controllers.CompleteApplication)
			}

			tna := protected.Group("/tna")
			{
				tna.GET("", controllers.ListTNAs)
				tna.GET("/application/:applicationId", controllers.GetTNAByApplication)
				tna.GET("/:id", controllers.GetTNA)
				tna.GET("/:id/report", controllers.DownloadTNAReport)

				tna.POST("/schedule", middleware.RequireRole(pstoRoles...), controllers.ScheduleTNA)
				tna.PUT("/:id/reschedule", middleware.RequireRole(pstoRoles...), controllers.RescheduleTNA)
				tna.PUT("/:id/conducted", middleware.RequireRole(pstoRoles...), controllers.MarkTNAConducted)
				tna.POST("/:id/report", middleware.RequireRole(pstoRoles...), controllers.UploadTNAReport)
				tna.PUT("/:id/forward", middleware.RequireRole(pstoRoles...), controllers.ForwardTNA)
				tna.PUT("/:id/dost-review", middleware.RequireRole(dostRoles...), controllers.DOSTReviewTNA)
				tna.PUT("/:id/rd-sign", middleware.RequireRole(dostRoles...), controllers.RDSignTNA)
			}

			checklistRoutes(protected.Group("/rtec-documents", controllers.WithChecklistKind(models.ChecklistKindRTEC)))
			checklistRoutes(protected.Group("/funding-documents", controllers.WithChecklistKind(models.ChecklistKindFunding)))
			checklistRoutes(protected.Group("/refund-documents", controllers.WithChecklistKind(models.ChecklistKindRefund)))

			meetings := protected.Group("/rtec-meetings")
			{
				meetings.GET("", controllers.ListMeetings)
				meetings.GET("/:id", controllers.GetMeeting)
				meetings.PUT("/:id/participants/:participantId/respond", controllers.RespondToMeeting)

				meetings.POST("", middleware.RequireRole(dostRoles...), controllers.CreateMeeting)
				meetings.PUT("/:id", middleware.RequireRole(dostRoles...), controllers.UpdateMeeting)
				meetings.POST("/:id/participants", middleware.RequireRole(dostRoles...), controllers.AddMeetingParticipant)
				meetings.PUT("/:id/participants/:participantId/attendance", middleware.RequireRole(dostRoles...), controllers.RecordAttendance)
				meetings.PUT("/:id/postpone", middleware.RequireRole(dostRoles...), controllers.PostponeMeeting)
				meetings.PUT("/:id/cancel", middleware.RequireRole(dostRoles...), controllers.CancelMeeting)
				meetings.PUT("/:id/complete", middleware.RequireRole(dostRoles...), controllers.CompleteMeeting)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetNotifications)
				notifications.GET("/unread-count", controllers.GetUnreadCount)
				notifications.PUT("/read-all", controllers.MarkAllNotificationsRead)
				notifications.PUT("/:id/read", controllers.MarkNotificationRead)
				notifications.DELETE("/:id", controllers.DeleteNotification)
			}

			proponents := protected.Group("/proponents")
			{
				proponents.GET("/enrollments", controllers.ListEnrollments)
				proponents.POST("/enrollments", middleware.RequireRole(models.RoleProponent), controllers.EnrollProponent)
				proponents.PUT("/enrollments/:id/withdraw", controllers.WithdrawEnrollment)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Route not found",
			"error":   "NOT_FOUND",
		})
	})
}

// checklistRoutes registers the same document workflow for each kind.
func checklistRoutes(g *gin.RouterGroup) {
	g.GET("", controllers.ListChecklists)
	g.GET("/document-types", controllers.ChecklistDocumentTypes)
	g.GET("/tna/:tnaId", controllers.GetChecklistByTNA)
	g.GET("/:id", controllers.GetChecklist)
	g.GET("/:id/items/:type/file", controllers.DownloadChecklistItem)

	// Reviewer roles differ per kind and are enforced by the service.
	g.POST("/request", middleware.RequireRole(staff...), controllers.RequestChecklist)
	g.POST("/:id/items/:type", middleware.RequireRole(models.RoleProponent), controllers.SubmitChecklistItem)
	g.PUT("/:id/items/:type/review", middleware.RequireRole(staff...), controllers.ReviewChecklistItem)
	g.POST("/:id/additional", middleware.RequireRole(staff...), controllers.AddChecklistItem)
	g.PUT("/:id/revision", middleware.RequireRole(staff...), controllers.RequestChecklistRevision)
	g.PUT("/:id/complete", middleware.RequireRole(staff...), controllers.CompleteChecklist)
}
