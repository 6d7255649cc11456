package routes

import (
	"net/http"
	"time"

	"tourly/handlers"
	"tourly/middleware"
	"tourly/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the HTTP handlers wired in main.
type HandlerBundle struct {
	Booking *handlers.BookingHandler
	Payment *handlers.PaymentHandler
	Webhook *handlers.WebhookHandler
}

// RegisterRoutes sets up all endpoints.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	registerHealthRoute(r)
	registerBookingRoutes(r, hb)
	registerPaymentRoutes(r, hb)
}

// registerHealthRoute registers a health-check endpoint.
func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm Tourly"})
	})
}

// registerBookingRoutes registers the booking ledger endpoints.
func registerBookingRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", middleware.RequireRole(models.RoleTourist), hb.Booking.CreateBooking)
		api.GET("", hb.Booking.ListBookings)
		api.GET("/:id", hb.Booking.GetBooking)
		api.PATCH("/:id/confirm", middleware.RequireRole(models.RoleGuide, models.RoleAdmin), hb.Booking.ConfirmBooking)
		api.PATCH("/:id/cancel", hb.Booking.CancelBooking)
	}
}

// registerPaymentRoutes registers the payment reconciler endpoints. The
// webhook stays outside the auth group; it is authenticated by signature.
func registerPaymentRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.POST("/api/payments/webhook", hb.Webhook.HandleStripeWebhook)

	api := r.Group("/api/payments")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("/checkout", middleware.RequireRole(models.RoleTourist, models.RoleAdmin), hb.Payment.InitiateCheckout)
		api.POST("/confirm", middleware.RequireRole(models.RoleTourist, models.RoleAdmin), hb.Payment.ConfirmCheckout)
		api.GET("", hb.Payment.ListPayments)
	}
}
