package routes

import (
	"net/http"
	"time"

	"servana/handlers"
	"servana/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAvailabilityRoutes registers schedule resolution and authoring
// endpoints.
func RegisterAvailabilityRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/availability")
	{
		// Public schedule lookup.
		api.GET("/:providerID/:date", hb.ResolveAvailabilityHandler)

		// Provider-authored rules and exceptions require authentication.
		protected := api.Group("")
		protected.Use(middleware.JWTAuthMiddleware())
		protected.GET("/rules", hb.ListRulesHandler)
		protected.POST("/rules", hb.CreateRuleHandler)
		protected.DELETE("/rules/:ruleID", hb.DeleteRuleHandler)
		protected.POST("/exceptions", hb.CreateExceptionHandler)
		protected.DELETE("/exceptions/:excID", hb.DeleteExceptionHandler)
	}
}

// RegisterBookingRoutes registers the booking lifecycle endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	api.Use(middleware.JWTAuthMiddleware())
	{
		api.POST("", hb.CreateBookingHandler)
		api.GET("", hb.ListMyBookingsHandler)
		api.POST("/:bookingID/complete", hb.CompleteBookingHandler)
		api.POST("/:bookingID/no-show", hb.MarkNoShowHandler)
		api.GET("/:bookingID/timeline", hb.GetTimelineHandler)

		// Recurring series.
		api.POST("/series", hb.CreateSeriesHandler)
		api.POST("/series/:seriesID/materialize", hb.MaterializeSeriesHandler)
		api.POST("/series/:seriesID/pause", hb.PauseSeriesHandler)
		api.POST("/series/:seriesID/resume", hb.ResumeSeriesHandler)
	}
}

// RegisterEscrowRoutes registers settlement transition endpoints.
func RegisterEscrowRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/escrow")
	api.Use(middleware.JWTAuthMiddleware())
	{
		api.GET("/:bookingID", hb.GetSettlementHandler)
		api.POST("/:bookingID/consultation/begin", hb.BeginConsultationHandler)
		api.POST("/:bookingID/consultation/complete", hb.CompleteConsultationHandler)
		api.POST("/:bookingID/adjustment/propose", hb.ProposeAdjustmentHandler)
		api.POST("/:bookingID/adjustment/approve", hb.ApproveAdjustmentHandler)
		api.POST("/:bookingID/adjustment/reject", hb.RejectAdjustmentHandler)
		api.POST("/:bookingID/release", hb.ReleaseSettlementHandler)
		api.POST("/:bookingID/dispute", hb.OpenDisputeHandler)

		// Dispute resolution is an admin decision.
		admin := api.Group("")
		admin.Use(middleware.AdminOnly())
		admin.POST("/:bookingID/dispute/resolve", hb.ResolveDisputeHandler)
	}
}

// RegisterRefundRoutes registers refund quote, request and resolution
// endpoints.
func RegisterRefundRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/refunds")
	api.Use(middleware.JWTAuthMiddleware())
	{
		api.GET("/eligibility/:bookingID", hb.CheckRefundEligibilityHandler)
		api.POST("/request/:bookingID", hb.SubmitRefundRequestHandler)

		admin := api.Group("")
		admin.Use(middleware.AdminOnly())
		admin.GET("/pending", hb.ListPendingRefundsHandler)
		admin.POST("/:requestID/approve", hb.ApproveRefundHandler)
		admin.POST("/:requestID/reject", hb.RejectRefundHandler)
	}
}

// RegisterTrustRoutes registers the trust gate endpoint.
func RegisterTrustRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/trust")
	api.Use(middleware.JWTAuthMiddleware())
	{
		api.POST("/evaluate", hb.EvaluateTrustGateHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterAvailabilityRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterEscrowRoutes(r, hb)
	RegisterRefundRoutes(r, hb)
	RegisterTrustRoutes(r, hb)
}
