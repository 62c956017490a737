package model

import "time"

// PaymentStatus is the transaction state of a payment session.
type PaymentStatus string

const (
    PaymentPending   PaymentStatus = "PENDING"
    PaymentSucceeded PaymentStatus = "SUCCEEDED"
    PaymentFailed    PaymentStatus = "FAILED"
)

// PaymentSession stages an order for the external payment gateway.  The
// core opens the session with status PENDING and later consumes the
// gateway's callback to settle it; no payment protocol is implemented
// here.
//
// Fields:
//  ID              – opaque session identifier handed to the gateway.
//  OrderID         – order the session pays for.
//  TotalPriceCents – sum of the covered tickets' prices.
//  Status          – PENDING until the gateway callback settles it.
//  CreatedAt       – creation timestamp.
type PaymentSession struct {
    ID              string        // payment_sessions.id (uuid)
    OrderID         uint64        // payment_sessions.order_id
    TotalPriceCents uint32        // payment_sessions.total_price_cents
    Status          PaymentStatus // payment_sessions.status
    CreatedAt       time.Time     // payment_sessions.created_at
}
