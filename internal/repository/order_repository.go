package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/avellia/show-ticketing/internal/model"
)

// OrderRepo provides data access to the orders and order_tickets tables.
// An order groups the tickets affected by one action; refund and
// cancellation orders reference tickets that already belong to an
// earlier purchase or reservation order.
type OrderRepo struct {
    db *sql.DB
}

// NewOrderRepo returns an OrderRepo bound to the provided database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// CreateTx inserts an order plus its order_tickets links within the
// provided transaction and populates the generated ID.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
    res, err := tx.ExecContext(ctx,
        `INSERT INTO orders (user_id, order_type) VALUES (?, ?)`, o.UserID, o.Type)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    o.ID = uint64(id)
    if len(o.TicketIDs) == 0 {
        return nil
    }
    q := `INSERT INTO order_tickets (order_id, ticket_id) VALUES `
    args := make([]interface{}, 0, len(o.TicketIDs)*2)
    for i, tid := range o.TicketIDs {
        if i > 0 {
            q += ","
        }
        q += "(?, ?)"
        args = append(args, o.ID, tid)
    }
    _, err = tx.ExecContext(ctx, q, args...)
    return err
}

// GetByIDTx loads one order with its ticket ids FOR UPDATE.  Returns
// ErrOrderNotFound when absent.
func (r *OrderRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Order, error) {
    const q = `SELECT id, user_id, order_type, created_at FROM orders WHERE id = ? FOR UPDATE`
    var o model.Order
    err := tx.QueryRowContext(ctx, q, id).Scan(&o.ID, &o.UserID, &o.Type, &o.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Order{}, ErrOrderNotFound
    }
    if err != nil {
        return model.Order{}, err
    }
    rows, err := tx.QueryContext(ctx, `SELECT ticket_id FROM order_tickets WHERE order_id = ?`, id)
    if err != nil {
        return model.Order{}, err
    }
    defer rows.Close()
    for rows.Next() {
        var tid uint64
        if err := rows.Scan(&tid); err != nil {
            return model.Order{}, err
        }
        o.TicketIDs = append(o.TicketIDs, tid)
    }
    return o, rows.Err()
}

// OwnerOfTicketsTx returns, for each given ticket id, the user id owning
// the earliest order that contains the ticket.  Refund and cancellation
// orders created later never change ownership because the original
// purchase or reservation order has the smallest order id.
func (r *OrderRepo) OwnerOfTicketsTx(ctx context.Context, tx *sql.Tx, ticketIDs []uint64) (map[uint64]uint64, error) {
    if len(ticketIDs) == 0 {
        return map[uint64]uint64{}, nil
    }
    q := `SELECT ot.ticket_id, o.user_id
          FROM order_tickets ot
          JOIN orders o ON o.id = ot.order_id
          WHERE ot.ticket_id IN (` + placeholders(len(ticketIDs)) + `)
          ORDER BY ot.ticket_id, o.id`
    args := make([]interface{}, 0, len(ticketIDs))
    for _, id := range ticketIDs {
        args = append(args, id)
    }
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    owners := make(map[uint64]uint64, len(ticketIDs))
    for rows.Next() {
        var tid, uid uint64
        if err := rows.Scan(&tid, &uid); err != nil {
            return nil, err
        }
        if _, seen := owners[tid]; !seen {
            owners[tid] = uid
        }
    }
    return owners, rows.Err()
}

// ListByUser returns all orders owned by the user, newest first, with
// their ticket ids resolved.  Runs outside any transaction; it backs the
// read-only my-orders endpoint.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
    const q = `SELECT id, user_id, order_type, created_at FROM orders WHERE user_id = ? ORDER BY id DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var orders []model.Order
    for rows.Next() {
        var o model.Order
        if err := rows.Scan(&o.ID, &o.UserID, &o.Type, &o.CreatedAt); err != nil {
            return nil, err
        }
        orders = append(orders, o)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    for i := range orders {
        trows, err := r.db.QueryContext(ctx, `SELECT ticket_id FROM order_tickets WHERE order_id = ?`, orders[i].ID)
        if err != nil {
            return nil, err
        }
        for trows.Next() {
            var tid uint64
            if err := trows.Scan(&tid); err != nil {
                trows.Close()
                return nil, err
            }
            orders[i].TicketIDs = append(orders[i].TicketIDs, tid)
        }
        if err := trows.Close(); err != nil {
            return nil, err
        }
    }
    return orders, nil
}
