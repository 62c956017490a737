// Package catalog exposes read-only access to the venue catalog: shows,
// rooms, sectors and seats. The ticketing core treats this data as an
// external collaborator: it resolves references through the Gateway
// interface and never writes back. Catalog management (creating rooms,
// retiring seats and so on) lives outside this service.
package catalog

import (
    "context"
    "errors"

    "github.com/avellia/show-ticketing/internal/model"
)

// Sentinel errors returned when a referenced catalog entity does not
// exist. Handlers translate these into HTTP 404 responses.
var (
    ErrShowNotFound   = errors.New("show not found")
    ErrSectorNotFound = errors.New("sector not found")
    ErrSeatNotFound   = errors.New("seat not found")
)

// Gateway resolves catalog references for the allocation core.  All
// methods return the matching sentinel error when the entity is absent.
type Gateway interface {
    // GetShowByID resolves a show with its start time, duration and room.
    GetShowByID(ctx context.Context, id uint64) (model.Show, error)
    // GetSectorByID resolves a sector with its type, price and capacity.
    GetSectorByID(ctx context.Context, id uint64) (model.Sector, error)
    // GetSeatByID resolves a seat with its sector, position and deleted flag.
    GetSeatByID(ctx context.Context, id uint64) (model.Seat, error)
    // SectorsByRoom lists all sectors of a room, stage sectors included.
    SectorsByRoom(ctx context.Context, roomID uint64) ([]model.Sector, error)
    // SeatsBySector lists the seats of a seated sector, retired seats
    // included so seat maps can render gaps.
    SeatsBySector(ctx context.Context, sectorID uint64) ([]model.Seat, error)
}
