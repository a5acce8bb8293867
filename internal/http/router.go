// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"banquet/internal/http/middleware"
	"banquet/internal/modules/booking"
	"banquet/internal/modules/escalation"
	"banquet/internal/modules/negotiation"
)

func NewRouter(
	bookingService *booking.Service,
	negotiationService *negotiation.Service,
	escalationQueue *escalation.PgQueue,
) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	bookingHandler := NewBookingHandler(bookingService)
	r.POST("/api/bookings/evaluate", bookingHandler.Evaluate)
	r.GET("/api/bookings/:id", bookingHandler.Get)
	r.POST("/api/bookings/:id/cancel", bookingHandler.Cancel)

	negotiationHandler := NewNegotiationHandler(negotiationService)
	r.POST("/api/negotiations/:id/respond", negotiationHandler.Respond)
	r.GET("/api/negotiations/:id", negotiationHandler.Get)

	escalationHandler := NewEscalationHandler(escalationQueue)
	r.GET("/api/escalations", escalationHandler.ListOpen)
	r.POST("/api/escalations/:id/resolve", escalationHandler.Resolve)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
