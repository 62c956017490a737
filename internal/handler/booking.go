package handler

import (
    "context"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/avellia/show-ticketing/internal/allocation"
    "github.com/avellia/show-ticketing/internal/booking"
)

// BookingHandler exposes the ticket/order service over HTTP.
type BookingHandler struct {
    Service *booking.Service
}

// NewBookingHandler constructs a BookingHandler.  The service must be
// non-nil.
func NewBookingHandler(s *booking.Service) *BookingHandler {
    if s == nil {
        panic("nil service passed to NewBookingHandler")
    }
    return &BookingHandler{Service: s}
}

// wireTarget is one allocation target as it appears on the wire.  Type
// is "seated" or "standing".
type wireTarget struct {
    Type     string  `json:"type"`
    SectorID uint64  `json:"sector_id"`
    SeatID   *uint64 `json:"seat_id"`
    Quantity uint32  `json:"quantity"`
}

// purchaseBody is the shared request shape of buy and reserve.
type purchaseBody struct {
    ShowID  uint64              `json:"show_id"`
    Targets []wireTarget        `json:"targets"`
    Address allocation.Address  `json:"address"`
    Card    *allocation.Card    `json:"card"`
}

// bindRequest parses and shape-checks the request body into a booking
// request for the given user.
func bindRequest(c echo.Context, userID uint64) (booking.Request, bool) {
    var body purchaseBody
    if err := c.Bind(&body); err != nil {
        return booking.Request{}, false
    }
    if body.ShowID == 0 || len(body.Targets) == 0 {
        return booking.Request{}, false
    }
    req := booking.Request{
        UserID:  userID,
        ShowID:  body.ShowID,
        Address: body.Address,
        Card:    body.Card,
    }
    for _, t := range body.Targets {
        switch t.Type {
        case "seated":
            if t.SeatID == nil {
                return booking.Request{}, false
            }
            req.Targets = append(req.Targets, allocation.Target{SectorID: t.SectorID, SeatID: t.SeatID})
        case "standing":
            req.Targets = append(req.Targets, allocation.Target{SectorID: t.SectorID, Quantity: t.Quantity})
        default:
            return booking.Request{}, false
        }
    }
    return req, true
}

// BuyTickets handles POST /v1/tickets/buy.  On success it responds 201
// with the payment-session descriptor the client must complete with the
// external gateway.
func (h *BookingHandler) BuyTickets(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    req, ok := bindRequest(c, userID)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    desc, err := h.Service.BuyTickets(c.Request().Context(), req)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, desc)
}

// ReserveTickets handles POST /v1/tickets/reserve.  On success it
// responds 201 with the reservation descriptor including the derived
// expiry timestamp.
func (h *BookingHandler) ReserveTickets(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    req, ok := bindRequest(c, userID)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    desc, err := h.Service.ReserveTickets(c.Request().Context(), req)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, desc)
}

// BuyReservedTickets handles POST /v1/reservations/:id/buy.  The body
// may select a subset of the reservation's tickets; an empty or missing
// list converts the whole reservation.
func (h *BookingHandler) BuyReservedTickets(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    reservationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || reservationID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var body struct {
        TicketIDs []uint64 `json:"ticket_ids"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    result, err := h.Service.BuyReservedTickets(c.Request().Context(), userID, reservationID, body.TicketIDs)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, result)
}

// CancelReservations handles POST /v1/tickets/cancel.  The body carries
// the reserved ticket ids to cancel; the response returns the updated
// tickets.
func (h *BookingHandler) CancelReservations(c echo.Context) error {
    return h.revoke(c, h.Service.CancelReservations)
}

// RefundTickets handles POST /v1/tickets/refund.  The body carries the
// bought ticket ids to refund; refused once the show has started.
func (h *BookingHandler) RefundTickets(c echo.Context) error {
    return h.revoke(c, h.Service.RefundTickets)
}

// revoke is the shared cancel/refund handler plumbing.
func (h *BookingHandler) revoke(c echo.Context, op func(ctx context.Context, userID uint64, ids []uint64) ([]booking.TicketView, error)) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        TicketIDs []uint64 `json:"ticket_ids"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if len(body.TicketIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_ids is required"})
    }
    tickets, err := op(c.Request().Context(), userID, body.TicketIDs)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}

// CompletePurchase handles POST /v1/payments/:session/callback, the
// endpoint the external payment gateway posts its outcome to.  It is
// not JWT-protected; the session id is the shared secret.
func (h *BookingHandler) CompletePurchase(c echo.Context) error {
    sessionID := c.Param("session")
    if sessionID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    var cb booking.CallbackData
    if err := c.Bind(&cb); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    result, err := h.Service.CompletePurchase(c.Request().Context(), sessionID, cb)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, result)
}

// ListOrders handles GET /v1/my-orders.  It returns all orders created
// by the current user with their tickets resolved; an empty array when
// none exist.
func (h *BookingHandler) ListOrders(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orders, err := h.Service.ListOrders(c.Request().Context(), userID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": orders})
}
