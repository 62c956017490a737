package model

import "time"

// Hold represents a temporary exclusivity claim on a seat or one unit of
// standing capacity, taken during interactive seat-map selection before
// checkout completes.  Holds are advisory: they block other users'
// allocations until ValidUntil passes, after which they are simply
// ignored by every query; expired holds are never actively deleted.
//
// Fields:
//  ID         – primary key identifier.
//  ShowID     – show for which the claim is made.
//  SectorID   – sector being claimed.
//  SeatID     – seat being claimed; nil means one standing slot.
//  UserID     – user who owns the claim.
//  Token      – opaque token returned to the client for correlation.
//  ValidUntil – when the claim stops blocking other users.
//  CreatedAt  – when the claim was created.
type Hold struct {
    ID         uint64    // holds.id
    ShowID     uint64    // holds.show_id
    SectorID   uint64    // holds.sector_id
    SeatID     *uint64   // holds.seat_id (nullable; nil for standing)
    UserID     uint64    // holds.user_id
    Token      string    // holds.token
    ValidUntil time.Time // holds.valid_until
    CreatedAt  time.Time // holds.created_at
}

// Expired reports whether the hold no longer blocks anyone at the given
// instant.  Comparisons are done in UTC throughout the core.
func (h Hold) Expired(now time.Time) bool {
    return !h.ValidUntil.After(now)
}
