package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/avellia/show-ticketing/internal/model"
)

// TicketRepo provides data access to the tickets table.  Tickets are
// append-mostly: rows are inserted once and afterwards only their status
// changes.
type TicketRepo struct {
    db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to the provided database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// LockShowTx takes a row lock on the show, serializing all allocation
// transactions for that show against each other and against the cleanup
// sweeper.  Tickets and holds for a show are only written while this
// lock is held, so the snapshot a validator reads afterwards reflects
// every previously committed mutation for the show.
func (r *TicketRepo) LockShowTx(ctx context.Context, tx *sql.Tx, showID uint64) error {
    var id uint64
    err := tx.QueryRowContext(ctx, `SELECT id FROM shows WHERE id = ? FOR UPDATE`, showID).Scan(&id)
    if errors.Is(err, sql.ErrNoRows) {
        // Existence is checked through the catalog gateway before any
        // allocation; hitting this means the show vanished mid-flight.
        return sql.ErrNoRows
    }
    return err
}

// CreateTx inserts a ticket within the provided transaction and
// populates its generated ID.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
    const q = `INSERT INTO tickets (show_id, sector_id, seat_id, status, price_cents, verification_code)
               VALUES (?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, t.ShowID, t.SectorID, t.SeatID, t.Status, t.PriceCents, t.VerificationCode)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    return nil
}

// ActiveByShowTx returns all tickets for the show whose status still
// occupies a seat or standing slot (PAYMENT_PENDING, RESERVED, BOUGHT).
// Rows are read FOR UPDATE under the per-show lock discipline.
func (r *TicketRepo) ActiveByShowTx(ctx context.Context, tx *sql.Tx, showID uint64) ([]model.Ticket, error) {
    const q = `SELECT id, show_id, sector_id, seat_id, status, price_cents, verification_code, created_at
               FROM tickets
               WHERE show_id = ? AND status IN ('PAYMENT_PENDING', 'RESERVED', 'BOUGHT')
               FOR UPDATE`
    rows, err := tx.QueryContext(ctx, q, showID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanTickets(rows)
}

// ActiveByShow is the lock-free variant of ActiveByShowTx used by
// read-only views such as the public seat map.
func (r *TicketRepo) ActiveByShow(ctx context.Context, showID uint64) ([]model.Ticket, error) {
    const q = `SELECT id, show_id, sector_id, seat_id, status, price_cents, verification_code, created_at
               FROM tickets
               WHERE show_id = ? AND status IN ('PAYMENT_PENDING', 'RESERVED', 'BOUGHT')`
    rows, err := r.db.QueryContext(ctx, q, showID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanTickets(rows)
}

// ShowIDsByTicketsTx returns the distinct show ids of the given tickets
// in ascending order, without locking anything.  A ticket's show never
// changes after insert, so this read is safe before the show locks are
// taken.
func (r *TicketRepo) ShowIDsByTicketsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]uint64, error) {
    if len(ids) == 0 {
        return nil, nil
    }
    q := `SELECT DISTINCT show_id FROM tickets WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY show_id`
    args := make([]interface{}, 0, len(ids))
    for _, id := range ids {
        args = append(args, id)
    }
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var showIDs []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        showIDs = append(showIDs, id)
    }
    return showIDs, rows.Err()
}

// ByIDsTx loads the given tickets FOR UPDATE.  Returns ErrTicketNotFound
// when any id has no row.
func (r *TicketRepo) ByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]model.Ticket, error) {
    if len(ids) == 0 {
        return nil, nil
    }
    q := `SELECT id, show_id, sector_id, seat_id, status, price_cents, verification_code, created_at
          FROM tickets WHERE id IN (` + placeholders(len(ids)) + `) FOR UPDATE`
    args := make([]interface{}, 0, len(ids))
    for _, id := range ids {
        args = append(args, id)
    }
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    tickets, err := scanTickets(rows)
    if err != nil {
        return nil, err
    }
    if len(tickets) != len(ids) {
        return nil, ErrTicketNotFound
    }
    return tickets, nil
}

// UpdateStatusTx sets the status of all given tickets in one statement.
func (r *TicketRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, ids []uint64, status model.TicketStatus) error {
    if len(ids) == 0 {
        return nil
    }
    q := `UPDATE tickets SET status = ? WHERE id IN (` + placeholders(len(ids)) + `)`
    args := make([]interface{}, 0, len(ids)+1)
    args = append(args, status)
    for _, id := range ids {
        args = append(args, id)
    }
    _, err := tx.ExecContext(ctx, q, args...)
    return err
}

// ReservedByShowTx returns the ids of tickets still RESERVED for the
// show.  Used by the cleanup sweeper under the per-show lock.
func (r *TicketRepo) ReservedByShowTx(ctx context.Context, tx *sql.Tx, showID uint64) ([]uint64, error) {
    const q = `SELECT id FROM tickets WHERE show_id = ? AND status = 'RESERVED' FOR UPDATE`
    rows, err := tx.QueryContext(ctx, q, showID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

// ByVerificationCode loads one ticket by its opaque verification code.
// This read backs the unauthenticated ticket-view endpoint and runs
// outside any transaction.
func (r *TicketRepo) ByVerificationCode(ctx context.Context, code string) (model.Ticket, error) {
    const q = `SELECT id, show_id, sector_id, seat_id, status, price_cents, verification_code, created_at
               FROM tickets WHERE verification_code = ?`
    var t model.Ticket
    err := r.db.QueryRowContext(ctx, q, code).Scan(
        &t.ID, &t.ShowID, &t.SectorID, &t.SeatID, &t.Status, &t.PriceCents, &t.VerificationCode, &t.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Ticket{}, ErrTicketNotFound
    }
    if err != nil {
        return model.Ticket{}, err
    }
    return t, nil
}

func scanTickets(rows *sql.Rows) ([]model.Ticket, error) {
    var tickets []model.Ticket
    for rows.Next() {
        var t model.Ticket
        if err := rows.Scan(&t.ID, &t.ShowID, &t.SectorID, &t.SeatID, &t.Status, &t.PriceCents, &t.VerificationCode, &t.CreatedAt); err != nil {
            return nil, err
        }
        tickets = append(tickets, t)
    }
    return tickets, rows.Err()
}

// placeholders builds "?, ?, ?" for IN clauses with n members.
func placeholders(n int) string {
    return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
