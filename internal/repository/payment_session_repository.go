package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/avellia/show-ticketing/internal/model"
)

// PaymentSessionRepo provides data access to the payment_sessions table.
type PaymentSessionRepo struct {
    db *sql.DB
}

// NewPaymentSessionRepo returns a PaymentSessionRepo bound to the
// provided database.
func NewPaymentSessionRepo(db *sql.DB) *PaymentSessionRepo {
    return &PaymentSessionRepo{db: db}
}

// CreateTx inserts a payment session within the provided transaction.
// The session id is generated by the caller (uuid), not the database.
func (r *PaymentSessionRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.PaymentSession) error {
    const q = `INSERT INTO payment_sessions (id, order_id, total_price_cents, status) VALUES (?, ?, ?, ?)`
    _, err := tx.ExecContext(ctx, q, s.ID, s.OrderID, s.TotalPriceCents, s.Status)
    return err
}

// GetByIDTx loads one payment session FOR UPDATE so a duplicated gateway
// callback settles the same session exactly once.  Returns
// ErrSessionNotFound when absent.
func (r *PaymentSessionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (model.PaymentSession, error) {
    const q = `SELECT id, order_id, total_price_cents, status, created_at
               FROM payment_sessions WHERE id = ? FOR UPDATE`
    var s model.PaymentSession
    err := tx.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.OrderID, &s.TotalPriceCents, &s.Status, &s.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return model.PaymentSession{}, ErrSessionNotFound
    }
    if err != nil {
        return model.PaymentSession{}, err
    }
    return s, nil
}

// UpdateStatusTx marks the session's transaction outcome.
func (r *PaymentSessionRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.PaymentStatus) error {
    _, err := tx.ExecContext(ctx, `UPDATE payment_sessions SET status = ? WHERE id = ?`, status, id)
    return err
}
