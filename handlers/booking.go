package handlers

import (
	"net/http"

	"tourly/models"
	"tourly/services/booking"
	"tourly/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking ledger over HTTP.
type BookingHandler struct {
	Service booking.LedgerService
	Logger  *zap.Logger
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(svc booking.LedgerService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Service: svc, Logger: logger}
}

// CreateBooking handles POST /api/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var input booking.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	result, err := h.Service.CreateBooking(c.Request.Context(), callerFrom(c), input)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Booking request sent to guide. Awaiting acceptance.",
		"booking": result,
	})
}

// ConfirmBooking handles PATCH /api/bookings/:id/confirm.
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	result, err := h.Service.ConfirmBooking(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Booking confirmed. Tourist can now complete payment.",
		"booking": result,
	})
}

// CancelBooking handles PATCH /api/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	result, err := h.Service.CancelBooking(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Booking cancelled successfully",
		"booking": result,
	})
}

// GetBooking handles GET /api/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	result, err := h.Service.GetBooking(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": result})
}

// ListBookings handles GET /api/bookings.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	var opts models.PageOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid pagination", err.Error())
		return
	}
	filter := models.BookingFilter{
		ListingID: c.Query("listingId"),
		Status:    models.BookingStatus(c.Query("status")),
		DateFrom:  c.Query("dateFrom"),
	}

	bookings, total, err := h.Service.ListBookings(c.Request.Context(), callerFrom(c), filter, opts)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	opts = opts.Normalize()
	c.JSON(http.StatusOK, gin.H{
		"meta":     models.PageMeta{Page: opts.Page, Limit: opts.Limit, Total: total},
		"bookings": bookings,
	})
}
