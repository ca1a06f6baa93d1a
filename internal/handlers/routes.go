package handlers

import "github.com/gin-gonic/gin"

// Routes registers the API on api. Every route except registration, login,
// the fee table and the public announcement views goes through authenticated.
func (h *Handler) Routes(api *gin.RouterGroup, authenticated gin.HandlerFunc) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", authenticated, h.Logout)
		auth.GET("/me", authenticated, h.Me)
	}

	api.GET("/payments/fees", h.FeeStructure)

	public := api.Group("/public")
	{
		public.GET("/homepage", h.Homepage)
		public.GET("/news", h.PublicNews)
		public.GET("/events", h.PublicEvents)
		public.GET("/tenders", h.PublicTenders)
		public.GET("/emergencies", h.PublicEmergencies)
		public.GET("/statistics", h.PublicStatistics)
	}

	api.GET("/announcements/active", h.ActiveAnnouncements)
	api.GET("/announcements/events/upcoming", h.UpcomingEvents)
	api.GET("/announcements/:id", h.GetAnnouncement)

	protected := api.Group("", authenticated)

	citizens := protected.Group("/citizens/me")
	{
		citizens.PUT("", h.UpdateProfile)
		citizens.PUT("/password", h.ChangePassword)
		citizens.DELETE("", h.DeactivateAccount)
		citizens.GET("/dashboard", h.Dashboard)
		citizens.GET("/activity", h.RecentActivity)
	}

	requests := protected.Group("/requests")
	{
		requests.POST("", h.CreateRequest)
		requests.GET("", h.ListRequests)
		requests.GET("/mine", h.MyRequests)
		requests.GET("/:id", h.GetRequest)
		requests.DELETE("/:id", h.DeleteRequest)
		requests.PUT("/:id/assign/:employee_id", h.AssignRequest)
		requests.PUT("/:id/status", h.UpdateRequestStatus)
		requests.POST("/:id/attachments", h.UploadRequestAttachment)
		requests.GET("/:id/attachments", h.RequestAttachments)
	}

	payments := protected.Group("/payments")
	{
		payments.POST("", h.CreatePayment)
		payments.GET("", h.ListPayments)
		payments.GET("/mine", h.MyPayments)
		payments.GET("/request/:request_id", h.PaymentForRequest)
		payments.GET("/:id", h.GetPayment)
		payments.GET("/:id/receipt", h.PaymentReceipt)
	}

	complaints := protected.Group("/complaints")
	{
		complaints.POST("", h.CreateComplaint)
		complaints.GET("", h.ListComplaints)
		complaints.GET("/mine", h.MyComplaints)
		complaints.GET("/:id", h.GetComplaint)
		complaints.DELETE("/:id", h.DeleteComplaint)
		complaints.PUT("/:id/assign/:employee_id", h.AssignComplaint)
		complaints.PUT("/:id/status", h.UpdateComplaint)
		complaints.POST("/:id/responses", h.RespondToComplaint)
		complaints.POST("/:id/attachments", h.UploadComplaintAttachment)
		complaints.GET("/:id/attachments", h.ComplaintAttachments)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.POST("", h.SendNotification)
		notifications.GET("/stats", h.NotificationStats)
		notifications.GET("/ws", h.NotificationStream)
		notifications.PUT("/read-all", h.MarkAllNotificationsRead)
		notifications.PUT("/:id/read", h.MarkNotificationRead)
		notifications.DELETE("/:id", h.DeleteNotification)
	}

	attachments := protected.Group("/attachments")
	{
		attachments.GET("/:id", h.GetAttachment)
		attachments.GET("/:id/download", h.DownloadAttachment)
		attachments.DELETE("/:id", h.DeleteAttachment)
	}

	employees := protected.Group("/employees")
	{
		employees.POST("", h.RegisterEmployee)
		employees.GET("", h.ListEmployees)
		employees.GET("/me", h.CurrentEmployee)
		employees.GET("/:id", h.GetEmployee)
		employees.PUT("/:id", h.UpdateEmployee)
		employees.DELETE("/:id", h.DeactivateEmployee)
		employees.GET("/:id/tasks", h.EmployeeTasks)
	}

	departments := protected.Group("/departments")
	{
		departments.POST("", h.CreateDepartment)
		departments.GET("", h.ListDepartments)
		departments.GET("/:id", h.GetDepartment)
		departments.PUT("/:id", h.UpdateDepartment)
		departments.DELETE("/:id", h.DeleteDepartment)
	}

	announcements := protected.Group("/announcements")
	{
		announcements.POST("", h.CreateAnnouncement)
		announcements.PUT("/:id", h.UpdateAnnouncement)
		announcements.DELETE("/:id", h.DeleteAnnouncement)
	}

	feedback := protected.Group("/feedback")
	{
		feedback.POST("", h.CreateFeedback)
		feedback.GET("", h.ListFeedback)
		feedback.GET("/mine", h.MyFeedback)
		feedback.GET("/statistics", h.FeedbackStatistics)
	}
}

// Routes registers the health endpoints
func (h *HealthHandler) Routes(router gin.IRoutes) {
	router.GET("/health", h.Health)
	router.GET("/health/ready", h.Ready)
	router.GET("/health/live", h.Live)
}
