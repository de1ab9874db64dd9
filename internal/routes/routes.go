package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carebridge/internal/authz"
	"carebridge/internal/handlers"
	"carebridge/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	leadHandler *handlers.LeadHandler,
	caseHandler *handlers.CaseHandler,
	chatHandler *handlers.ChatHandler,
	notificationHandler *handlers.NotificationHandler,
	hospitalHandler *handlers.HospitalHandler,
	documentHandler *handlers.DocumentHandler,
) *gin.Engine {

	// ---- public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/login", authHandler.Login)
	r.POST("/refresh", authHandler.Refresh)
	r.POST("/register", authHandler.Register)

	// ---- protected
	r.Use(middleware.RequestID())
	r.Use(middleware.AuthMiddleware())
	r.Use(middleware.ReadOnlyGuard())

	// USERS (Admin)
	users := r.Group("/users", middleware.RequireRoles(authz.RoleAdmin))
	{
		users.GET("/", userHandler.List)
		users.GET("/:id", userHandler.GetByID)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	// LEADS: CRUD plus the case-stage actions
	leads := r.Group("/leads")
	{
		leads.POST("/", leadHandler.Create)
		leads.GET("/", leadHandler.List)
		leads.GET("/:id", leadHandler.GetByID)
		leads.PUT("/:id", leadHandler.Update)
		leads.POST("/:id/assign", leadHandler.Assign)
		leads.GET("/:id/history", leadHandler.History)

		leads.POST("/:id/submit-kyp", caseHandler.SubmitKYP)
		leads.POST("/:id/complete-kyp-basic", caseHandler.CompleteKYPBasic)
		leads.POST("/:id/suggest-hospitals", caseHandler.SuggestHospitals)
		leads.POST("/:id/complete-kyp", caseHandler.CompleteKYP)
		leads.POST("/:id/raise-preauth", caseHandler.RaisePreAuth)
		leads.POST("/:id/initiate", caseHandler.Initiate)
		leads.POST("/:id/ipd-mark", caseHandler.IPDMark)
		leads.POST("/:id/mark-pl-pending", caseHandler.MarkPLPending)
		leads.POST("/:id/mark-outstanding", caseHandler.MarkOutstanding)

		// case chat
		leads.GET("/:id/chat", chatHandler.List)
		leads.POST("/:id/chat", chatHandler.Send)

		// generated documents
		leads.GET("/:id/documents/pre-auth-form", documentHandler.PreAuthForm)
		leads.GET("/:id/documents/discharge-summary", documentHandler.DischargeSummary)
	}

	// PRE-AUTH decisions are keyed by the pre-authorization id
	preAuth := r.Group("/pre-auth")
	{
		preAuth.POST("/:id/decide", caseHandler.DecidePreAuth)
	}

	// NOTIFICATIONS
	notifications := r.Group("/notifications")
	{
		notifications.GET("/", notificationHandler.List)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
		notifications.POST("/read-all", notificationHandler.MarkAllRead)
	}

	// HOSPITALS master list; writes are restricted
	hospitals := r.Group("/hospitals")
	{
		hospitals.GET("/", hospitalHandler.List)
		hospitals.GET("/:id", hospitalHandler.GetByID)

		writes := hospitals.Group("", middleware.RequireRoles(authz.RoleInsuranceHead, authz.RoleAdmin))
		{
			writes.POST("/", hospitalHandler.Create)
			writes.PUT("/:id", hospitalHandler.Update)
			writes.DELETE("/:id", hospitalHandler.Deactivate)
		}
	}

	return r
}
