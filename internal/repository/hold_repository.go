package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/avellia/show-ticketing/internal/model"
)

// HoldRepo provides data access to the holds table.  Holds are ephemeral
// and high churn: expired rows are never deleted on expiry, every query
// simply filters on valid_until.  All timestamp comparisons are done in
// UTC.
type HoldRepo struct {
    db *sql.DB
}

// NewHoldRepo returns a HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

// CreateTx inserts a new hold within the provided transaction and
// populates its generated ID.  The caller must commit or roll back.
func (r *HoldRepo) CreateTx(ctx context.Context, tx *sql.Tx, h *model.Hold) error {
    const q = `INSERT INTO holds (show_id, sector_id, seat_id, user_id, token, valid_until)
               VALUES (?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, h.ShowID, h.SectorID, h.SeatID, h.UserID, h.Token,
        h.ValidUntil.UTC().Format("2006-01-02 15:04:05"))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    h.ID = uint64(id)
    return nil
}

// UnexpiredByShowTx returns every hold for the show whose valid_until is
// still in the future at the given instant.  The rows are read FOR
// UPDATE so a concurrent allocation for the same show blocks until the
// caller's transaction settles.
func (r *HoldRepo) UnexpiredByShowTx(ctx context.Context, tx *sql.Tx, showID uint64, now time.Time) ([]model.Hold, error) {
    const q = `SELECT id, show_id, sector_id, seat_id, user_id, token, valid_until, created_at
               FROM holds
               WHERE show_id = ? AND valid_until > ?
               FOR UPDATE`
    rows, err := tx.QueryContext(ctx, q, showID, now.UTC().Format("2006-01-02 15:04:05"))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var holds []model.Hold
    for rows.Next() {
        var h model.Hold
        if err := rows.Scan(&h.ID, &h.ShowID, &h.SectorID, &h.SeatID, &h.UserID, &h.Token, &h.ValidUntil, &h.CreatedAt); err != nil {
            return nil, err
        }
        holds = append(holds, h)
    }
    return holds, rows.Err()
}

// UnexpiredByShow is the lock-free variant of UnexpiredByShowTx used by
// read-only views such as the public seat map.
func (r *HoldRepo) UnexpiredByShow(ctx context.Context, showID uint64, now time.Time) ([]model.Hold, error) {
    const q = `SELECT id, show_id, sector_id, seat_id, user_id, token, valid_until, created_at
               FROM holds
               WHERE show_id = ? AND valid_until > ?`
    rows, err := r.db.QueryContext(ctx, q, showID, now.UTC().Format("2006-01-02 15:04:05"))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var holds []model.Hold
    for rows.Next() {
        var h model.Hold
        if err := rows.Scan(&h.ID, &h.ShowID, &h.SectorID, &h.SeatID, &h.UserID, &h.Token, &h.ValidUntil, &h.CreatedAt); err != nil {
            return nil, err
        }
        holds = append(holds, h)
    }
    return holds, rows.Err()
}

// DeleteSeatHoldsTx removes the user's holds on exactly the given seats
// for the show.  Called when the user's own purchase or reservation of
// those seats succeeds; holds on other seats keep their TTL.  Returns
// the number of holds removed.
func (r *HoldRepo) DeleteSeatHoldsTx(ctx context.Context, tx *sql.Tx, userID, showID uint64, seatIDs []uint64) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    q := `DELETE FROM holds WHERE user_id = ? AND show_id = ? AND seat_id IN (` + placeholders(len(seatIDs)) + `)`
    args := make([]interface{}, 0, len(seatIDs)+2)
    args = append(args, userID, showID)
    for _, id := range seatIDs {
        args = append(args, id)
    }
    res, err := tx.ExecContext(ctx, q, args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// DeleteStandingHoldsTx removes at most limit of the user's standing
// holds in the sector, soonest-expiring first.  A purchase of n standing
// slots consumes at most n of the buyer's claims; any surplus claims
// stay live for the rest of their TTL.  Returns the number of holds
// removed.
func (r *HoldRepo) DeleteStandingHoldsTx(ctx context.Context, tx *sql.Tx, userID, showID, sectorID uint64, limit uint32) (int64, error) {
    if limit == 0 {
        return 0, nil
    }
    const q = `DELETE FROM holds
               WHERE user_id = ? AND show_id = ? AND sector_id = ? AND seat_id IS NULL
               ORDER BY valid_until LIMIT ?`
    res, err := tx.ExecContext(ctx, q, userID, showID, sectorID, limit)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
