package model

import "time"

// OrderType distinguishes why a group of tickets was bundled together.
// Refunds and cancellations create their own orders referencing already
// existing tickets, so one ticket can belong to more than one order.
type OrderType string

const (
    OrderPurchase     OrderType = "ORDER"        // immediate purchase
    OrderReservation  OrderType = "RESERVATION"  // temporary reservation
    OrderRefund       OrderType = "REFUND"       // refund of bought tickets
    OrderCancellation OrderType = "CANCELLATION" // cancellation of reserved tickets
)

// Order groups the tickets affected by one purchase, reservation,
// cancellation or refund action.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – user who triggered the action.
//  Type      – what kind of action created this order.
//  CreatedAt – creation timestamp.
//  TicketIDs – tickets covered, via the order_tickets join table.
type Order struct {
    ID        uint64    // orders.id
    UserID    uint64    // orders.user_id
    Type      OrderType // orders.order_type
    CreatedAt time.Time // orders.created_at
    TicketIDs []uint64  // order_tickets.ticket_id
}
