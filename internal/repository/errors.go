// Package repository contains the data access layer for the mutable
// ticketing state: holds, tickets, orders and payment sessions. Methods
// with a Tx suffix run inside a caller-provided *sql.Tx so that the
// read-validate-write sequence of an allocation is atomic; the caller
// commits or rolls back. Sentinel errors defined here let handlers map
// failures onto HTTP statuses without inspecting strings.
package repository

import "errors"

// ErrTicketNotFound indicates a referenced ticket id has no row.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrOrderNotFound indicates a referenced order id has no row.
var ErrOrderNotFound = errors.New("order not found")

// ErrSessionNotFound indicates a referenced payment session has no row.
var ErrSessionNotFound = errors.New("payment session not found")
