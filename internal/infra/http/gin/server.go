package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"staybook/internal/infra/config"
	"staybook/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Cancel(c *gin.Context)
}

type AvailabilityHTTP interface {
	UnavailableDates(c *gin.Context)
	Block(c *gin.Context)
	Unblock(c *gin.Context)
}

type PropertyHTTP interface {
	Get(c *gin.Context)
	Bookings(c *gin.Context)
	Quote(c *gin.Context)
	UploadPhoto(c *gin.Context)
}

type WebhookHTTP interface {
	PaymentEvents(c *gin.Context)
}

type Handlers struct {
	Booking      BookingHTTP
	Availability AvailabilityHTTP
	Property     PropertyHTTP
	Webhook      WebhookHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Property != nil {
		api.GET("/properties/:id", h.Property.Get)
		api.GET("/properties/:id/bookings", h.Property.Bookings)
		api.GET("/properties/:id/quote", h.Property.Quote)
		api.POST("/properties/:id/photos", h.Property.UploadPhoto)
	}
	if h.Availability != nil {
		api.GET("/properties/:id/unavailable-dates", h.Availability.UnavailableDates)
		hostGroup := api.Group("/host/properties")
		hostGroup.POST("/:id/block", h.Availability.Block)
		hostGroup.POST("/:id/unblock", h.Availability.Unblock)
	}
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
	}
	if h.Webhook != nil {
		api.POST("/payments/webhook", h.Webhook.PaymentEvents)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
