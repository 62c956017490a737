// Package hold implements the hold manager: short-lived exclusive claims
// on a seat or one unit of standing capacity, taken while a user is
// picking seats on the live seat map. A hold blocks other users until
// its valid-until timestamp passes; expired holds are never deleted,
// only ignored.
package hold

import (
    "context"
    "database/sql"
    "time"

    "github.com/google/uuid"

    "github.com/avellia/show-ticketing/internal/allocation"
    "github.com/avellia/show-ticketing/internal/catalog"
    "github.com/avellia/show-ticketing/internal/model"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
    RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// HoldStore is the slice of the hold repository the manager needs.
type HoldStore interface {
    CreateTx(ctx context.Context, tx *sql.Tx, h *model.Hold) error
    UnexpiredByShowTx(ctx context.Context, tx *sql.Tx, showID uint64, now time.Time) ([]model.Hold, error)
}

// TicketStore takes the per-show row lock that serializes allocation
// transactions for one show and reads the active tickets that consume
// seats and standing slots.
type TicketStore interface {
    LockShowTx(ctx context.Context, tx *sql.Tx, showID uint64) error
    ActiveByShowTx(ctx context.Context, tx *sql.Tx, showID uint64) ([]model.Ticket, error)
}

// Manager creates seat and standing-capacity holds.  The TTL is injected
// configuration, not a compiled-in constant.
type Manager struct {
    gateway catalog.Gateway
    holds   HoldStore
    tickets TicketStore
    runner  TxRunner
    ttl     time.Duration
    now     func() time.Time
}

// NewManager constructs a Manager.  ttl is how long a new hold blocks
// other users.
func NewManager(gateway catalog.Gateway, holds HoldStore, tickets TicketStore, runner TxRunner, ttl time.Duration) *Manager {
    return &Manager{
        gateway: gateway,
        holds:   holds,
        tickets: tickets,
        runner:  runner,
        ttl:     ttl,
        now:     func() time.Time { return time.Now().UTC() },
    }
}

// CreateHoldInput describes the claim: SeatID nil means one unit of
// standing capacity in the sector.
type CreateHoldInput struct {
    ShowID   uint64
    SectorID uint64
    SeatID   *uint64
    UserID   uint64
}

// CreateHold validates the target against the catalog and the current
// unexpired holds, then stores a new hold valid for the configured TTL.
// Catalog misses surface as the catalog sentinel errors; membership
// mismatches and collisions surface as allocation.UnavailableError.
// Creating a hold never touches ticket state.
func (m *Manager) CreateHold(ctx context.Context, in CreateHoldInput) (model.Hold, error) {
    show, err := m.gateway.GetShowByID(ctx, in.ShowID)
    if err != nil {
        return model.Hold{}, err
    }
    sector, err := m.gateway.GetSectorByID(ctx, in.SectorID)
    if err != nil {
        return model.Hold{}, err
    }
    if sector.RoomID != show.RoomID {
        return model.Hold{}, allocation.Unavailable("sector %d does not belong to the show's room", in.SectorID)
    }

    switch sector.Type {
    case model.SectorSeated:
        if in.SeatID == nil {
            return model.Hold{}, allocation.Unavailable("sector %d is seated and requires a seat", in.SectorID)
        }
        seat, err := m.gateway.GetSeatByID(ctx, *in.SeatID)
        if err != nil {
            return model.Hold{}, err
        }
        if seat.SectorID != sector.ID {
            return model.Hold{}, allocation.Unavailable("seat %d does not belong to sector %d", seat.ID, sector.ID)
        }
        if seat.Deleted {
            return model.Hold{}, allocation.Unavailable("seat %d is no longer available", seat.ID)
        }
    case model.SectorStanding:
        if in.SeatID != nil {
            return model.Hold{}, allocation.Unavailable("sector %d is standing and takes no seat", in.SectorID)
        }
    default:
        return model.Hold{}, allocation.Unavailable("sector %d is not bookable", in.SectorID)
    }

    now := m.now()
    h := model.Hold{
        ShowID:     in.ShowID,
        SectorID:   in.SectorID,
        SeatID:     in.SeatID,
        UserID:     in.UserID,
        Token:      uuid.NewString(),
        ValidUntil: now.Add(m.ttl),
    }

    err = m.runner.RunTx(ctx, func(tx *sql.Tx) error {
        if err := m.tickets.LockShowTx(ctx, tx, in.ShowID); err != nil {
            return err
        }
        existing, err := m.holds.UnexpiredByShowTx(ctx, tx, in.ShowID, now)
        if err != nil {
            return err
        }
        // Active tickets count too: a hold on a sold seat or in a
        // full standing sector could never convert into a ticket.
        active, err := m.tickets.ActiveByShowTx(ctx, tx, in.ShowID)
        if err != nil {
            return err
        }
        if in.SeatID != nil {
            for _, e := range existing {
                if e.SeatID != nil && *e.SeatID == *in.SeatID {
                    return allocation.Unavailable("seat %d is currently held", *in.SeatID)
                }
            }
            for _, t := range active {
                if t.SeatID != nil && *t.SeatID == *in.SeatID {
                    return allocation.Unavailable("seat %d is already taken", *in.SeatID)
                }
            }
        } else {
            var standing uint64
            for _, e := range existing {
                if e.SeatID == nil && e.SectorID == in.SectorID {
                    standing++
                }
            }
            for _, t := range active {
                if t.SeatID == nil && t.SectorID == in.SectorID {
                    standing++
                }
            }
            if standing >= uint64(sector.Capacity) {
                return allocation.Unavailable("standing sector %d has no slots left to hold", in.SectorID)
            }
        }
        return m.holds.CreateTx(ctx, tx, &h)
    })
    if err != nil {
        return model.Hold{}, err
    }
    h.CreatedAt = now
    return h, nil
}
