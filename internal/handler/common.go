// Package handler defines the HTTP handlers exposed by the ticketing
// core. All methods assume that JWT authentication has already been
// performed by middleware where required; each handler translates the
// typed errors of the lower layers into JSON error responses.
package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/avellia/show-ticketing/internal/allocation"
    "github.com/avellia/show-ticketing/internal/catalog"
    "github.com/avellia/show-ticketing/internal/repository"
)

// getUserID extracts the user_id from echo.Context and converts it to
// uint64.  The JWT middleware stores the raw subject claim, whose
// concrete type depends on how the token was issued.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// respondError maps the error taxonomy onto HTTP responses:
// not-found sentinels -> 404, unavailable -> 409, validation -> 400,
// unauthorized -> 403, everything else -> 500.
func respondError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, catalog.ErrShowNotFound),
        errors.Is(err, catalog.ErrSectorNotFound),
        errors.Is(err, catalog.ErrSeatNotFound),
        errors.Is(err, repository.ErrTicketNotFound),
        errors.Is(err, repository.ErrOrderNotFound),
        errors.Is(err, repository.ErrSessionNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, allocation.ErrUnauthorized):
        return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
    }
    var unavailable *allocation.UnavailableError
    if errors.As(err, &unavailable) {
        return c.JSON(http.StatusConflict, echo.Map{"error": unavailable.Reason})
    }
    var invalid *allocation.ValidationError
    if errors.As(err, &invalid) {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error":  "validation failed",
            "fields": invalid.Fields,
        })
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}
