// Package router wires the HTTP routes to their handlers and middleware.
package router

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/avellia/show-ticketing/internal/config"
    "github.com/avellia/show-ticketing/internal/handler"
    "github.com/avellia/show-ticketing/internal/middleware"
)

// Register mounts all routes on the provided Echo instance.
//
// Unauthenticated surface: the health check, the public seat map (cached
// briefly in redis), the ticket view by verification code, and the
// payment gateway callback.  Everything else requires a Bearer token and
// is rate limited per user.
func Register(e *echo.Echo, jwtSecret string, rdb *redis.Client,
    holds *handler.HoldHandler, bookings *handler.BookingHandler, public *handler.PublicHandler) {

    e.GET("/healthz", handler.Health)

    cacheCfg := config.LoadCacheConfig()
    e.GET("/v1/shows/:id/seat-map", public.SeatMap, middleware.CacheGET(cacheCfg, rdb))
    e.GET("/v1/tickets/code/:code", public.TicketByCode)

    // The gateway authenticates by knowing the session id; see
    // BookingHandler.CompletePurchase.
    e.POST("/v1/payments/:session/callback", bookings.CompletePurchase)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RateLimit(config.LoadRateLimitConfig(), rdb))

    auth.POST("/shows/:id/holds", holds.CreateHold)
    auth.POST("/tickets/buy", bookings.BuyTickets)
    auth.POST("/tickets/reserve", bookings.ReserveTickets)
    auth.POST("/reservations/:id/buy", bookings.BuyReservedTickets)
    auth.POST("/tickets/cancel", bookings.CancelReservations)
    auth.POST("/tickets/refund", bookings.RefundTickets)
    auth.GET("/my-orders", bookings.ListOrders)
}
