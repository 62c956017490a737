// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketsPurchasedEvent is published when a payment session settles
// successfully.  It carries enough information for downstream consumers
// to log, notify or trigger analytics without querying the primary
// database.
type TicketsPurchasedEvent struct {
    OrderID         uint64   `json:"order_id"`
    UserID          uint64   `json:"user_id"`
    SessionID       string   `json:"session_id"`
    TicketIDs       []uint64 `json:"ticket_ids"`
    TotalPriceCents uint32   `json:"total_price_cents"`
    PurchasedAt     string   `json:"purchased_at"`
}

// ReservationExpiredEvent is published by the cleanup sweeper when it
// expires the still-reserved tickets of a show inside the lead-time
// window.
type ReservationExpiredEvent struct {
    ShowID    uint64   `json:"show_id"`
    TicketIDs []uint64 `json:"ticket_ids"`
    ExpiredAt string   `json:"expired_at"`
}
