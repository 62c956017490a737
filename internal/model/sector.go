package model

// SectorType discriminates the three sector variants.  Allocation logic
// switches on this value; there is no subtyping involved.
type SectorType string

const (
    SectorSeated   SectorType = "SEATED"   // sector with individually numbered seats
    SectorStanding SectorType = "STANDING" // sector with a flat capacity of standing slots
    SectorStage    SectorType = "STAGE"    // layout-only, never bookable
)

// Sector is a pricing/layout subdivision of a room.  The Type field acts
// as the variant tag: Capacity is only meaningful for STANDING sectors,
// and seats exist only under SEATED sectors (resolved via the catalog by
// sector id, not embedded here).
//
// Fields:
//  ID         – primary key identifier.
//  RoomID     – owning room.
//  Type       – SEATED, STANDING or STAGE.
//  PriceCents – flat price per ticket in this sector, in cents.
//  Capacity   – maximum simultaneous standing slots (STANDING only).
type Sector struct {
    ID         uint64     // sectors.id
    RoomID     uint64     // sectors.room_id
    Type       SectorType // sectors.sector_type
    PriceCents uint32     // sectors.price_cents
    Capacity   uint32     // sectors.capacity (0 unless STANDING)
}

// Bookable reports whether tickets can ever be allocated in this sector.
// Stage sectors exist for seat-map layout only.
func (s Sector) Bookable() bool {
    return s.Type == SectorSeated || s.Type == SectorStanding
}

// Seat is one numbered seat inside a SEATED sector.  Retired seats keep
// their row (the Deleted flag) so historical tickets stay resolvable, but
// they can never be targeted by new holds or tickets.
type Seat struct {
    ID           uint64 // seats.id
    SectorID     uint64 // seats.sector_id
    RowNumber    uint32 // seats.row_number
    ColumnNumber uint32 // seats.column_number
    Deleted      bool   // seats.deleted
}
