package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/avellia/show-ticketing/internal/hold"
)

// HoldHandler exposes the hold manager over HTTP.
type HoldHandler struct {
    Manager *hold.Manager
}

// NewHoldHandler constructs a HoldHandler.  The manager must be non-nil.
func NewHoldHandler(m *hold.Manager) *HoldHandler {
    if m == nil {
        panic("nil manager passed to NewHoldHandler")
    }
    return &HoldHandler{Manager: m}
}

// CreateHold handles POST /v1/shows/:id/holds.  The body carries the
// target sector and, for seated sectors, the seat:
//
//	{ "sector_id": 12, "seat_id": 345 }
//
// Omitting seat_id claims one unit of standing capacity.  Responds 201
// with the hold token and expiry, 404 when the show is unknown, and 409
// when the target is already held or the sector has no capacity left.
func (h *HoldHandler) CreateHold(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    showID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || showID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
    }
    var body struct {
        SectorID uint64  `json:"sector_id"`
        SeatID   *uint64 `json:"seat_id"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.SectorID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "sector_id is required"})
    }

    created, err := h.Manager.CreateHold(c.Request().Context(), hold.CreateHoldInput{
        ShowID:   showID,
        SectorID: body.SectorID,
        SeatID:   body.SeatID,
        UserID:   userID,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "hold_id":     created.ID,
        "token":       created.Token,
        "sector_id":   created.SectorID,
        "seat_id":     created.SeatID,
        "valid_until": created.ValidUntil.Format(time.RFC3339),
    })
}
