package model

import "time"

// TicketStatus enumerates the lifecycle states of a ticket.  Tickets are
// never deleted, only status-updated.
type TicketStatus string

const (
    // TicketPaymentPending marks a ticket created by an immediate
    // purchase that is waiting for the payment gateway callback.
    TicketPaymentPending TicketStatus = "PAYMENT_PENDING"
    // TicketReserved marks a ticket created by an explicit reservation.
    // Its effective expiry is derived from the show start minus the
    // reservation lead time; no separate deadline is stored.
    TicketReserved TicketStatus = "RESERVED"
    // TicketBought is the confirmed-purchase terminal state.
    TicketBought TicketStatus = "BOUGHT"
    // TicketCancelled is reached by a failed payment or a user cancel.
    TicketCancelled TicketStatus = "CANCELLED"
    // TicketExpired is set by the cleanup sweeper when a reservation is
    // still RESERVED inside the lead-time window before the show.
    TicketExpired TicketStatus = "EXPIRED"
    // TicketRefunded is reached when a bought ticket is refunded before
    // the show starts.
    TicketRefunded TicketStatus = "REFUNDED"
)

// Active reports whether the status still occupies a seat or standing
// slot.  The allocation validator counts exactly these states when
// checking collisions and capacity.
func (s TicketStatus) Active() bool {
    return s == TicketPaymentPending || s == TicketReserved || s == TicketBought
}

// Terminal reports whether no further transition is allowed from s.
// BOUGHT is not terminal: a refund can still move it to REFUNDED.
func (s TicketStatus) Terminal() bool {
    return s == TicketCancelled || s == TicketExpired || s == TicketRefunded
}

// Ticket is the record of one allocated unit (a specific seat, or one
// anonymous slot of standing capacity) for one show.
//
// Fields:
//  ID               – primary key identifier.
//  ShowID           – show this ticket admits to.
//  SectorID         – sector the unit belongs to.
//  SeatID           – allocated seat; nil for standing tickets.
//  Status           – lifecycle state (see TicketStatus).
//  PriceCents       – price paid or payable for this ticket.
//  VerificationCode – random opaque code for unauthenticated ticket view.
//  CreatedAt        – creation timestamp.
type Ticket struct {
    ID               uint64       // tickets.id
    ShowID           uint64       // tickets.show_id
    SectorID         uint64       // tickets.sector_id
    SeatID           *uint64      // tickets.seat_id (nullable)
    Status           TicketStatus // tickets.status
    PriceCents       uint32       // tickets.price_cents
    VerificationCode string       // tickets.verification_code
    CreatedAt        time.Time    // tickets.created_at
}
