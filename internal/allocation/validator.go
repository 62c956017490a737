package allocation

import (
    "time"

    "github.com/avellia/show-ticketing/internal/model"
)

// Target is one unit of an allocation request: a specific seat in a
// seated sector, or a quantity of anonymous slots in a standing sector.
// SeatID and Quantity are mutually exclusive, discriminated by the
// sector's type.
type Target struct {
    SectorID uint64
    SeatID   *uint64 // seated targets
    Quantity uint32  // standing targets
}

// Snapshot is the consistent view of one show's allocation state.  The
// caller loads it inside a transaction holding the per-show lock, so the
// tickets and holds reflect every previously committed mutation for the
// show.
//
//  Show    – the target show from the catalog.
//  Sectors – all sectors of the show's room, keyed by id.
//  Seats   – every seat referenced by the request, keyed by id.
//  Tickets – tickets with an active status (PAYMENT_PENDING, RESERVED,
//            BOUGHT) for the show.
//  Holds   – unexpired holds for the show.
type Snapshot struct {
    Show    model.Show
    Sectors map[uint64]model.Sector
    Seats   map[uint64]model.Seat
    Tickets []model.Ticket
    Holds   []model.Hold
}

// Validator enforces the allocation invariants: no double booking of a
// seat, no overselling of standing capacity, and the timing windows for
// purchases, reservations and refunds.  The reservation lead time is
// injected so tests can pin it.
type Validator struct {
    leadTime time.Duration
}

// NewValidator returns a Validator with the given reservation lead time
// (the window before show start inside which reservations are refused
// and reserved tickets are swept).
func NewValidator(leadTime time.Duration) *Validator {
    return &Validator{leadTime: leadTime}
}

// LeadTime exposes the configured reservation lead time, used to derive
// reservation expiry timestamps.
func (v *Validator) LeadTime() time.Duration { return v.leadTime }

// ValidatePurchase checks an immediate-purchase request against the
// snapshot.  Purchases are allowed up to, but not including, the show's
// start time.
func (v *Validator) ValidatePurchase(userID uint64, targets []Target, snap Snapshot, now time.Time) error {
    if !now.Before(snap.Show.StartsAt) {
        return Unavailable("cannot buy tickets after the show has started")
    }
    return v.validateTargets(userID, targets, snap, now)
}

// ValidateReservation checks a reservation request.  Reservations are
// refused once the show starts within the lead time, because a
// reservation created then would already be past its derived expiry.
func (v *Validator) ValidateReservation(userID uint64, targets []Target, snap Snapshot, now time.Time) error {
    if !snap.Show.StartsAt.After(now.Add(v.leadTime)) {
        return Unavailable("cannot reserve tickets this close to the show")
    }
    return v.validateTargets(userID, targets, snap, now)
}

// validateTargets runs the membership, collision and capacity rules over
// every target.  Targets within one request also collide with each
// other: requesting the same seat twice fails on the second occurrence,
// and standing quantities accumulate against the sector capacity.
func (v *Validator) validateTargets(userID uint64, targets []Target, snap Snapshot, now time.Time) error {
    if len(targets) == 0 {
        return Unavailable("no targets requested")
    }

    // Index the existing occupancy once.
    occupiedSeats := make(map[uint64]struct{})      // seat id -> active ticket exists
    standingCount := make(map[uint64]uint32)        // sector id -> active standing tickets
    for _, t := range snap.Tickets {
        if t.SeatID != nil {
            occupiedSeats[*t.SeatID] = struct{}{}
        } else {
            standingCount[t.SectorID]++
        }
    }
    heldSeats := make(map[uint64]uint64)     // seat id -> holding user
    standingHolds := make(map[uint64]uint32) // sector id -> unexpired standing holds
    for _, h := range snap.Holds {
        if h.Expired(now) {
            continue
        }
        if h.SeatID != nil {
            heldSeats[*h.SeatID] = h.UserID
        } else {
            standingHolds[h.SectorID]++
        }
    }

    claimed := make(map[uint64]struct{})   // seats claimed earlier in this request
    requested := make(map[uint64]uint64)   // standing quantity accumulated per sector

    for _, tgt := range targets {
        sector, ok := snap.Sectors[tgt.SectorID]
        if !ok {
            return Unavailable("sector %d does not belong to the show's room", tgt.SectorID)
        }
        if !sector.Bookable() {
            return Unavailable("sector %d is not bookable", tgt.SectorID)
        }

        switch sector.Type {
        case model.SectorSeated:
            if tgt.SeatID == nil {
                return Unavailable("sector %d is seated and requires a seat", tgt.SectorID)
            }
            seat, ok := snap.Seats[*tgt.SeatID]
            if !ok || seat.SectorID != tgt.SectorID {
                return Unavailable("seat %d does not belong to sector %d", *tgt.SeatID, tgt.SectorID)
            }
            if seat.Deleted {
                return Unavailable("seat %d is no longer available", seat.ID)
            }
            if _, taken := occupiedSeats[seat.ID]; taken {
                return Unavailable("seat %d is already taken", seat.ID)
            }
            if holder, held := heldSeats[seat.ID]; held && holder != userID {
                return Unavailable("seat %d is currently held by another user", seat.ID)
            }
            if _, dup := claimed[seat.ID]; dup {
                return Unavailable("seat %d is requested more than once", seat.ID)
            }
            claimed[seat.ID] = struct{}{}

        case model.SectorStanding:
            if tgt.Quantity == 0 {
                return Unavailable("standing quantity must be positive")
            }
            // Holds owned by the requester still count here: a standing
            // hold is anonymous capacity, it is only released when the
            // purchase consumes it in the same transaction.  The sum is
            // computed in uint64 so an absurd quantity cannot wrap past
            // the capacity comparison.
            used := uint64(standingCount[tgt.SectorID]) + uint64(standingHolds[tgt.SectorID]) + requested[tgt.SectorID]
            if used+uint64(tgt.Quantity) > uint64(sector.Capacity) {
                var left uint64
                if used < uint64(sector.Capacity) {
                    left = uint64(sector.Capacity) - used
                }
                return Unavailable("standing sector %d has only %d of %d slots left",
                    tgt.SectorID, left, sector.Capacity)
            }
            requested[tgt.SectorID] += uint64(tgt.Quantity)
        }
    }
    return nil
}

// ValidateOwnership checks that every targeted ticket is owned by the
// requesting user.  owners maps ticket id to the owning user of the
// ticket's original purchase or reservation order.
func (v *Validator) ValidateOwnership(userID uint64, ticketIDs []uint64, owners map[uint64]uint64) error {
    for _, id := range ticketIDs {
        owner, ok := owners[id]
        if !ok || owner != userID {
            return ErrUnauthorized
        }
    }
    return nil
}

// ValidateRefundWindow rejects refunds once the show has started.
func (v *Validator) ValidateRefundWindow(show model.Show, now time.Time) error {
    if !now.Before(show.StartsAt) {
        return Unavailable("cannot refund tickets after the show has started")
    }
    return nil
}

// ReservationExpiry derives the instant a reservation for the show
// lapses: lead time before the show starts.  Nothing is stored; the
// sweeper and read paths both recompute this.
func (v *Validator) ReservationExpiry(show model.Show) time.Time {
    return show.StartsAt.Add(-v.leadTime)
}
