// Package sweeper runs the recurring reservation cleanup: shows starting
// inside the lead-time window get their still-RESERVED tickets expired,
// releasing the capacity they occupied. The sweep shares the per-show
// locking discipline with the request path so an expiry can never race a
// concurrent reservation confirmation.
package sweeper

import (
    "context"
    "database/sql"
    "log"
    "time"

    "github.com/avellia/show-ticketing/internal/model"
    "github.com/avellia/show-ticketing/internal/queue"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
    RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// ShowSource lists shows whose start time is at or before the given
// instant.  No lower bound: a show missed by earlier sweeps is picked up
// by the next one.
type ShowSource interface {
    ShowsStartingBefore(ctx context.Context, until time.Time) ([]model.Show, error)
}

// TicketStore is the slice of the ticket repository the sweeper needs.
type TicketStore interface {
    LockShowTx(ctx context.Context, tx *sql.Tx, showID uint64) error
    ReservedByShowTx(ctx context.Context, tx *sql.Tx, showID uint64) ([]uint64, error)
    UpdateStatusTx(ctx context.Context, tx *sql.Tx, ids []uint64, status model.TicketStatus) error
}

// Publisher emits an event per swept show.  May be nil.
type Publisher interface {
    PublishReservationExpired(ctx context.Context, ev queue.ReservationExpiredEvent) error
}

// Sweeper expires lapsed reservations on a fixed interval.
type Sweeper struct {
    shows     ShowSource
    tickets   TicketStore
    runner    TxRunner
    publisher Publisher
    lead      time.Duration
    interval  time.Duration
    now       func() time.Time
}

// New constructs a Sweeper.  lead is the reservation lead time; interval
// is how often a sweep runs.
func New(shows ShowSource, tickets TicketStore, runner TxRunner, publisher Publisher,
    lead, interval time.Duration) *Sweeper {
    return &Sweeper{
        shows:     shows,
        tickets:   tickets,
        runner:    runner,
        publisher: publisher,
        lead:      lead,
        interval:  interval,
        now:       func() time.Time { return time.Now().UTC() },
    }
}

// Run loops until the context is cancelled, sweeping once per interval.
// Intended to be started as a goroutine from main.
func (s *Sweeper) Run(ctx context.Context) {
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()
    for {
        select {
        case <-ticker.C:
            expired, err := s.SweepOnce(ctx)
            if err != nil {
                log.Printf("sweeper: sweep failed: %v", err)
                continue
            }
            if expired > 0 {
                log.Printf("sweeper: expired %d reserved tickets", expired)
            }
        case <-ctx.Done():
            return
        }
    }
}

// SweepOnce performs a single pass and returns how many tickets it
// expired.  Each show is swept in its own transaction; an error on one
// show is logged and does not halt the sweep for the others.  Re-running
// with no intervening mutations finds nothing to do.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
    now := s.now()
    shows, err := s.shows.ShowsStartingBefore(ctx, now.Add(s.lead))
    if err != nil {
        return 0, err
    }
    total := 0
    for _, show := range shows {
        expired, err := s.sweepShow(ctx, show.ID)
        if err != nil {
            log.Printf("sweeper: show %d: %v", show.ID, err)
            continue
        }
        total += len(expired)
        if len(expired) > 0 && s.publisher != nil {
            ev := queue.ReservationExpiredEvent{
                ShowID:    show.ID,
                TicketIDs: expired,
                ExpiredAt: now.Format(time.RFC3339),
            }
            if err := s.publisher.PublishReservationExpired(ctx, ev); err != nil {
                log.Printf("sweeper: publish reservation.expired failed: %v", err)
            }
        }
    }
    return total, nil
}

// sweepShow expires the show's still-RESERVED tickets under the per-show
// lock and returns their ids.
func (s *Sweeper) sweepShow(ctx context.Context, showID uint64) ([]uint64, error) {
    var expired []uint64
    err := s.runner.RunTx(ctx, func(tx *sql.Tx) error {
        if err := s.tickets.LockShowTx(ctx, tx, showID); err != nil {
            return err
        }
        ids, err := s.tickets.ReservedByShowTx(ctx, tx, showID)
        if err != nil {
            return err
        }
        if len(ids) == 0 {
            return nil
        }
        if err := s.tickets.UpdateStatusTx(ctx, tx, ids, model.TicketExpired); err != nil {
            return err
        }
        expired = ids
        return nil
    })
    if err != nil {
        return nil, err
    }
    return expired, nil
}
