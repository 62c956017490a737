package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/avellia/show-ticketing/internal/catalog"
    "github.com/avellia/show-ticketing/internal/model"
    "github.com/avellia/show-ticketing/internal/repository"
)

// PublicHandler serves the unauthenticated read-only endpoints: the
// live seat map and ticket lookup by verification code.
type PublicHandler struct {
    Gateway catalog.Gateway
    Tickets *repository.TicketRepo
    Holds   *repository.HoldRepo
}

// NewPublicHandler constructs a PublicHandler.  All dependencies must be
// non-nil.
func NewPublicHandler(gateway catalog.Gateway, tickets *repository.TicketRepo, holds *repository.HoldRepo) *PublicHandler {
    if gateway == nil || tickets == nil || holds == nil {
        panic("nil dependency passed to NewPublicHandler")
    }
    return &PublicHandler{Gateway: gateway, Tickets: tickets, Holds: holds}
}

// seatView is one seat on the public seat map.
type seatView struct {
    ID           uint64 `json:"id"`
    RowNumber    uint32 `json:"row_number"`
    ColumnNumber uint32 `json:"column_number"`
    Available    bool   `json:"available"`
}

// sectorView is one sector on the public seat map.  Seats is populated
// for seated sectors; FreeSlots for standing ones.
type sectorView struct {
    ID         uint64           `json:"id"`
    Type       model.SectorType `json:"type"`
    PriceCents uint32           `json:"price_cents"`
    Seats      []seatView       `json:"seats,omitempty"`
    Capacity   uint32           `json:"capacity,omitempty"`
    FreeSlots  uint32           `json:"free_slots,omitempty"`
}

// SeatMap handles GET /v1/shows/:id/seat-map.  It returns every sector
// of the show's room with per-seat availability (seated) or remaining
// slots (standing).  A seat is unavailable when it has an active ticket
// or an unexpired hold; stage sectors are reported without seats.  The
// response is a point-in-time view and may be cached briefly; the
// binding availability check happens at allocation time.
func (h *PublicHandler) SeatMap(c echo.Context) error {
    showID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || showID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
    }
    ctx := c.Request().Context()
    show, err := h.Gateway.GetShowByID(ctx, showID)
    if err != nil {
        return respondError(c, err)
    }
    sectors, err := h.Gateway.SectorsByRoom(ctx, show.RoomID)
    if err != nil {
        return respondError(c, err)
    }
    now := time.Now().UTC()
    active, err := h.Tickets.ActiveByShow(ctx, showID)
    if err != nil {
        return respondError(c, err)
    }
    holds, err := h.Holds.UnexpiredByShow(ctx, showID, now)
    if err != nil {
        return respondError(c, err)
    }

    takenSeats := make(map[uint64]struct{})
    standingUsed := make(map[uint64]uint32)
    for _, t := range active {
        if t.SeatID != nil {
            takenSeats[*t.SeatID] = struct{}{}
        } else {
            standingUsed[t.SectorID]++
        }
    }
    for _, hld := range holds {
        if hld.SeatID != nil {
            takenSeats[*hld.SeatID] = struct{}{}
        } else {
            standingUsed[hld.SectorID]++
        }
    }

    views := make([]sectorView, 0, len(sectors))
    for _, sec := range sectors {
        sv := sectorView{ID: sec.ID, Type: sec.Type, PriceCents: sec.PriceCents}
        switch sec.Type {
        case model.SectorSeated:
            seats, err := h.Gateway.SeatsBySector(ctx, sec.ID)
            if err != nil {
                return respondError(c, err)
            }
            for _, seat := range seats {
                if seat.Deleted {
                    continue
                }
                _, taken := takenSeats[seat.ID]
                sv.Seats = append(sv.Seats, seatView{
                    ID:           seat.ID,
                    RowNumber:    seat.RowNumber,
                    ColumnNumber: seat.ColumnNumber,
                    Available:    !taken,
                })
            }
        case model.SectorStanding:
            sv.Capacity = sec.Capacity
            used := standingUsed[sec.ID]
            if used < sec.Capacity {
                sv.FreeSlots = sec.Capacity - used
            }
        }
        views = append(views, sv)
    }

    return c.JSON(http.StatusOK, echo.Map{
        "show_id":   show.ID,
        "show_name": show.Name,
        "starts_at": show.StartsAt.Format(time.RFC3339),
        "sectors":   views,
    })
}

// TicketByCode handles GET /v1/tickets/code/:code, the unauthenticated
// ticket-view flow: anyone presenting the opaque verification code can
// see the ticket's state, for example at venue entry.
func (h *PublicHandler) TicketByCode(c echo.Context) error {
    code := c.Param("code")
    if code == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid code"})
    }
    ctx := c.Request().Context()
    ticket, err := h.Tickets.ByVerificationCode(ctx, code)
    if err != nil {
        return respondError(c, err)
    }
    show, err := h.Gateway.GetShowByID(ctx, ticket.ShowID)
    if err != nil {
        return respondError(c, err)
    }
    resp := echo.Map{
        "id":          ticket.ID,
        "show_name":   show.Name,
        "starts_at":   show.StartsAt.Format(time.RFC3339),
        "sector_id":   ticket.SectorID,
        "status":      ticket.Status,
        "price_cents": ticket.PriceCents,
    }
    if ticket.SeatID != nil {
        if seat, err := h.Gateway.GetSeatByID(ctx, *ticket.SeatID); err == nil {
            resp["seat_id"] = seat.ID
            resp["row_number"] = seat.RowNumber
            resp["column_number"] = seat.ColumnNumber
        }
    }
    return c.JSON(http.StatusOK, resp)
}
