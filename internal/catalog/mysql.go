package catalog

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/avellia/show-ticketing/internal/model"
)

// MySQLGateway implements Gateway over the relational catalog tables.
// Queries here never lock rows: the catalog is read-mostly and the
// allocation core serializes on ticket/hold state instead.
type MySQLGateway struct {
    db *sql.DB
}

// NewMySQLGateway returns a Gateway bound to the provided database.
func NewMySQLGateway(db *sql.DB) *MySQLGateway { return &MySQLGateway{db: db} }

// GetShowByID loads one show. Returns ErrShowNotFound when absent.
func (g *MySQLGateway) GetShowByID(ctx context.Context, id uint64) (model.Show, error) {
    const q = `SELECT id, room_id, name, starts_at, duration_min FROM shows WHERE id = ?`
    var s model.Show
    err := g.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.RoomID, &s.Name, &s.StartsAt, &s.DurationMin)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Show{}, ErrShowNotFound
    }
    if err != nil {
        return model.Show{}, err
    }
    return s, nil
}

// GetSectorByID loads one sector. Returns ErrSectorNotFound when absent.
func (g *MySQLGateway) GetSectorByID(ctx context.Context, id uint64) (model.Sector, error) {
    const q = `SELECT id, room_id, sector_type, price_cents, capacity FROM sectors WHERE id = ?`
    var s model.Sector
    err := g.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.RoomID, &s.Type, &s.PriceCents, &s.Capacity)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Sector{}, ErrSectorNotFound
    }
    if err != nil {
        return model.Sector{}, err
    }
    return s, nil
}

// GetSeatByID loads one seat, including retired ones; callers must check
// the Deleted flag before allocating. Returns ErrSeatNotFound when absent.
func (g *MySQLGateway) GetSeatByID(ctx context.Context, id uint64) (model.Seat, error) {
    // row_number is reserved in MySQL 8, hence the backticks.
    const q = "SELECT id, sector_id, `row_number`, column_number, deleted FROM seats WHERE id = ?"
    var s model.Seat
    err := g.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.SectorID, &s.RowNumber, &s.ColumnNumber, &s.Deleted)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Seat{}, ErrSeatNotFound
    }
    if err != nil {
        return model.Seat{}, err
    }
    return s, nil
}

// SectorsByRoom lists the sectors of a room ordered by id.
func (g *MySQLGateway) SectorsByRoom(ctx context.Context, roomID uint64) ([]model.Sector, error) {
    const q = `SELECT id, room_id, sector_type, price_cents, capacity FROM sectors WHERE room_id = ? ORDER BY id`
    rows, err := g.db.QueryContext(ctx, q, roomID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var sectors []model.Sector
    for rows.Next() {
        var s model.Sector
        if err := rows.Scan(&s.ID, &s.RoomID, &s.Type, &s.PriceCents, &s.Capacity); err != nil {
            return nil, err
        }
        sectors = append(sectors, s)
    }
    return sectors, rows.Err()
}

// ShowsStartingBefore lists shows whose start time is at or before the
// given instant.  The cleanup sweeper uses this to find shows whose
// reservations have lapsed; there is deliberately no lower bound so a
// show missed by one sweep is caught by the next.
func (g *MySQLGateway) ShowsStartingBefore(ctx context.Context, until time.Time) ([]model.Show, error) {
    const q = `SELECT id, room_id, name, starts_at, duration_min FROM shows WHERE starts_at <= ?`
    rows, err := g.db.QueryContext(ctx, q, until.UTC().Format("2006-01-02 15:04:05"))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var shows []model.Show
    for rows.Next() {
        var s model.Show
        if err := rows.Scan(&s.ID, &s.RoomID, &s.Name, &s.StartsAt, &s.DurationMin); err != nil {
            return nil, err
        }
        shows = append(shows, s)
    }
    return shows, rows.Err()
}

// SeatsBySector lists the seats of a sector ordered by row and column.
func (g *MySQLGateway) SeatsBySector(ctx context.Context, sectorID uint64) ([]model.Seat, error) {
    const q = "SELECT id, sector_id, `row_number`, column_number, deleted " +
        "FROM seats WHERE sector_id = ? ORDER BY `row_number`, column_number"
    rows, err := g.db.QueryContext(ctx, q, sectorID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var seats []model.Seat
    for rows.Next() {
        var s model.Seat
        if err := rows.Scan(&s.ID, &s.SectorID, &s.RowNumber, &s.ColumnNumber, &s.Deleted); err != nil {
            return nil, err
        }
        seats = append(seats, s)
    }
    return seats, rows.Err()
}
