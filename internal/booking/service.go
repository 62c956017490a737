// Package booking implements the ticket/order service: it turns
// validated allocation requests into persisted tickets, orders and
// payment sessions, and drives every ticket status transition
// (purchase, reservation, conversion, cancellation, refund, payment
// settlement).
package booking

import (
    "context"
    "database/sql"
    "log"
    "sort"
    "time"

    "github.com/google/uuid"

    "github.com/avellia/show-ticketing/internal/allocation"
    "github.com/avellia/show-ticketing/internal/catalog"
    "github.com/avellia/show-ticketing/internal/model"
    "github.com/avellia/show-ticketing/internal/queue"
    "github.com/avellia/show-ticketing/internal/utils"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
    RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// TicketStore is the slice of the ticket repository the service needs.
type TicketStore interface {
    LockShowTx(ctx context.Context, tx *sql.Tx, showID uint64) error
    CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error
    ActiveByShowTx(ctx context.Context, tx *sql.Tx, showID uint64) ([]model.Ticket, error)
    ShowIDsByTicketsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]uint64, error)
    ByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]model.Ticket, error)
    UpdateStatusTx(ctx context.Context, tx *sql.Tx, ids []uint64, status model.TicketStatus) error
}

// HoldStore is the slice of the hold repository the service needs.
type HoldStore interface {
    UnexpiredByShowTx(ctx context.Context, tx *sql.Tx, showID uint64, now time.Time) ([]model.Hold, error)
    DeleteSeatHoldsTx(ctx context.Context, tx *sql.Tx, userID, showID uint64, seatIDs []uint64) (int64, error)
    DeleteStandingHoldsTx(ctx context.Context, tx *sql.Tx, userID, showID, sectorID uint64, limit uint32) (int64, error)
}

// OrderStore is the slice of the order repository the service needs.
type OrderStore interface {
    CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error
    GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Order, error)
    OwnerOfTicketsTx(ctx context.Context, tx *sql.Tx, ticketIDs []uint64) (map[uint64]uint64, error)
    ListByUser(ctx context.Context, userID uint64) ([]model.Order, error)
}

// SessionStore is the slice of the payment session repository the
// service needs.
type SessionStore interface {
    CreateTx(ctx context.Context, tx *sql.Tx, s *model.PaymentSession) error
    GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (model.PaymentSession, error)
    UpdateStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.PaymentStatus) error
}

// Publisher emits domain events after a transaction commits.  A nil
// publisher disables events; publish failures are logged and ignored so
// the broker can never fail a sale.
type Publisher interface {
    PublishTicketsPurchased(ctx context.Context, ev queue.TicketsPurchasedEvent) error
}

// Service orchestrates validated requests into ticket/order mutations.
type Service struct {
    gateway    catalog.Gateway
    validator  *allocation.Validator
    tickets    TicketStore
    holds      HoldStore
    orders     OrderStore
    sessions   SessionStore
    runner     TxRunner
    publisher  Publisher
    paymentURL string
    now        func() time.Time
}

// NewService constructs a Service.  paymentURL is the base URL of the
// external payment gateway; the session id is appended to it to form the
// opaque payment URL handed back to the client.
func NewService(gateway catalog.Gateway, validator *allocation.Validator,
    tickets TicketStore, holds HoldStore, orders OrderStore, sessions SessionStore,
    runner TxRunner, publisher Publisher, paymentURL string) *Service {
    return &Service{
        gateway:    gateway,
        validator:  validator,
        tickets:    tickets,
        holds:      holds,
        orders:     orders,
        sessions:   sessions,
        runner:     runner,
        publisher:  publisher,
        paymentURL: paymentURL,
        now:        func() time.Time { return time.Now().UTC() },
    }
}

// Request is one purchase or reservation request: one show, one or more
// targets, plus the optional checkout blocks.
type Request struct {
    UserID  uint64
    ShowID  uint64
    Targets []allocation.Target
    Address allocation.Address
    Card    *allocation.Card
}

// TicketView is the JSON-friendly projection of a ticket returned to the
// transport layer.
type TicketView struct {
    ID           uint64             `json:"id"`
    ShowName     string             `json:"show_name"`
    PriceCents   uint32             `json:"price_cents"`
    SectorID     uint64             `json:"sector_id"`
    SeatID       *uint64            `json:"seat_id,omitempty"`
    RowNumber    *uint32            `json:"row_number,omitempty"`
    ColumnNumber *uint32            `json:"column_number,omitempty"`
    Status       model.TicketStatus `json:"status"`
}

// PaymentDescriptor is returned by BuyTickets: the staged payment
// session the client must complete with the external gateway.
type PaymentDescriptor struct {
    SessionID       string       `json:"session_id"`
    PaymentURL      string       `json:"payment_url"`
    TotalPriceCents uint32       `json:"total_price_cents"`
    OrderID         uint64       `json:"order_id"`
    Tickets         []TicketView `json:"tickets"`
}

// ReservationDescriptor is returned by ReserveTickets.  ExpiresAt is
// derived from the show start minus the lead time; it is not stored.
type ReservationDescriptor struct {
    OrderID         uint64       `json:"order_id"`
    TotalPriceCents uint32       `json:"total_price_cents"`
    ExpiresAt       time.Time    `json:"expires_at"`
    Tickets         []TicketView `json:"tickets"`
}

// PurchaseResult is returned by BuyReservedTickets and CompletePurchase.
type PurchaseResult struct {
    OrderID         uint64       `json:"order_id,omitempty"`
    TotalPriceCents uint32       `json:"total_price_cents"`
    Status          string       `json:"status"`
    Tickets         []TicketView `json:"tickets"`
}

// catalogView bundles the catalog data one allocation needs.
type catalogView struct {
    show    model.Show
    sectors map[uint64]model.Sector
    seats   map[uint64]model.Seat
}

// loadCatalog resolves the show, the sectors of its room and every seat
// referenced by the targets.  Catalog misses propagate as the catalog
// sentinel errors.
func (s *Service) loadCatalog(ctx context.Context, showID uint64, targets []allocation.Target) (catalogView, error) {
    show, err := s.gateway.GetShowByID(ctx, showID)
    if err != nil {
        return catalogView{}, err
    }
    sectors, err := s.gateway.SectorsByRoom(ctx, show.RoomID)
    if err != nil {
        return catalogView{}, err
    }
    cv := catalogView{
        show:    show,
        sectors: make(map[uint64]model.Sector, len(sectors)),
        seats:   make(map[uint64]model.Seat),
    }
    for _, sec := range sectors {
        cv.sectors[sec.ID] = sec
    }
    for _, tgt := range targets {
        if tgt.SeatID == nil {
            continue
        }
        if _, done := cv.seats[*tgt.SeatID]; done {
            continue
        }
        seat, err := s.gateway.GetSeatByID(ctx, *tgt.SeatID)
        if err != nil {
            return catalogView{}, err
        }
        cv.seats[seat.ID] = seat
    }
    return cv, nil
}

// validateCheckout runs the pure data-shape validators over the optional
// checkout blocks.
func validateCheckout(req Request) error {
    if err := allocation.ValidateAddress(req.Address); err != nil {
        return err
    }
    if req.Card != nil {
        if err := allocation.ValidateCard(*req.Card); err != nil {
            return err
        }
    }
    return nil
}

// createTickets materializes the targets into ticket rows with the given
// status: one row per seated target, quantity rows per standing target.
func (s *Service) createTickets(ctx context.Context, tx *sql.Tx, cv catalogView, targets []allocation.Target, status model.TicketStatus) ([]model.Ticket, error) {
    var created []model.Ticket
    for _, tgt := range targets {
        sector := cv.sectors[tgt.SectorID]
        n := 1
        if tgt.SeatID == nil {
            n = int(tgt.Quantity)
        }
        for i := 0; i < n; i++ {
            code, err := utils.RandomToken(16)
            if err != nil {
                return nil, err
            }
            t := model.Ticket{
                ShowID:           cv.show.ID,
                SectorID:         tgt.SectorID,
                SeatID:           tgt.SeatID,
                Status:           status,
                PriceCents:       sector.PriceCents,
                VerificationCode: code,
            }
            if err := s.tickets.CreateTx(ctx, tx, &t); err != nil {
                return nil, err
            }
            created = append(created, t)
        }
    }
    return created, nil
}

func (s *Service) ticketViews(cv catalogView, tickets []model.Ticket) []TicketView {
    views := make([]TicketView, 0, len(tickets))
    for _, t := range tickets {
        v := TicketView{
            ID:         t.ID,
            ShowName:   cv.show.Name,
            PriceCents: t.PriceCents,
            SectorID:   t.SectorID,
            SeatID:     t.SeatID,
            Status:     t.Status,
        }
        if t.SeatID != nil {
            if seat, ok := cv.seats[*t.SeatID]; ok {
                row, col := seat.RowNumber, seat.ColumnNumber
                v.RowNumber, v.ColumnNumber = &row, &col
            }
        }
        views = append(views, v)
    }
    return views
}

func totalPrice(tickets []model.Ticket) uint32 {
    var total uint32
    for _, t := range tickets {
        total += t.PriceCents
    }
    return total
}

func ticketIDs(tickets []model.Ticket) []uint64 {
    ids := make([]uint64, 0, len(tickets))
    for _, t := range tickets {
        ids = append(ids, t.ID)
    }
    return ids
}

// BuyTickets validates the request, creates PAYMENT_PENDING tickets and
// an ORDER order, consumes the buyer's own holds for the show, and opens
// a PENDING payment session for the external gateway.  No payment occurs
// here; the session is settled later through CompletePurchase.
func (s *Service) BuyTickets(ctx context.Context, req Request) (PaymentDescriptor, error) {
    if err := validateCheckout(req); err != nil {
        return PaymentDescriptor{}, err
    }
    cv, err := s.loadCatalog(ctx, req.ShowID, req.Targets)
    if err != nil {
        return PaymentDescriptor{}, err
    }

    now := s.now()
    var desc PaymentDescriptor
    err = s.runner.RunTx(ctx, func(tx *sql.Tx) error {
        snap, err := s.loadSnapshot(ctx, tx, cv, now)
        if err != nil {
            return err
        }
        if err := s.validator.ValidatePurchase(req.UserID, req.Targets, snap, now); err != nil {
            return err
        }
        created, err := s.createTickets(ctx, tx, cv, req.Targets, model.TicketPaymentPending)
        if err != nil {
            return err
        }
        order := model.Order{UserID: req.UserID, Type: model.OrderPurchase, TicketIDs: ticketIDs(created)}
        if err := s.orders.CreateTx(ctx, tx, &order); err != nil {
            return err
        }
        session := model.PaymentSession{
            ID:              uuid.NewString(),
            OrderID:         order.ID,
            TotalPriceCents: totalPrice(created),
            Status:          model.PaymentPending,
        }
        if err := s.sessions.CreateTx(ctx, tx, &session); err != nil {
            return err
        }
        if err := s.consumeHolds(ctx, tx, req.UserID, req.ShowID, req.Targets); err != nil {
            return err
        }
        desc = PaymentDescriptor{
            SessionID:       session.ID,
            PaymentURL:      s.paymentURL + "/" + session.ID,
            TotalPriceCents: session.TotalPriceCents,
            OrderID:         order.ID,
            Tickets:         s.ticketViews(cv, created),
        }
        return nil
    })
    if err != nil {
        return PaymentDescriptor{}, err
    }
    return desc, nil
}

// ReserveTickets validates the request and creates RESERVED tickets
// grouped into a RESERVATION order.  The reservation expires lead-time
// before the show starts; the expiry is derived, never stored.
func (s *Service) ReserveTickets(ctx context.Context, req Request) (ReservationDescriptor, error) {
    if err := validateCheckout(req); err != nil {
        return ReservationDescriptor{}, err
    }
    cv, err := s.loadCatalog(ctx, req.ShowID, req.Targets)
    if err != nil {
        return ReservationDescriptor{}, err
    }

    now := s.now()
    var desc ReservationDescriptor
    err = s.runner.RunTx(ctx, func(tx *sql.Tx) error {
        snap, err := s.loadSnapshot(ctx, tx, cv, now)
        if err != nil {
            return err
        }
        if err := s.validator.ValidateReservation(req.UserID, req.Targets, snap, now); err != nil {
            return err
        }
        created, err := s.createTickets(ctx, tx, cv, req.Targets, model.TicketReserved)
        if err != nil {
            return err
        }
        order := model.Order{UserID: req.UserID, Type: model.OrderReservation, TicketIDs: ticketIDs(created)}
        if err := s.orders.CreateTx(ctx, tx, &order); err != nil {
            return err
        }
        if err := s.consumeHolds(ctx, tx, req.UserID, req.ShowID, req.Targets); err != nil {
            return err
        }
        desc = ReservationDescriptor{
            OrderID:         order.ID,
            TotalPriceCents: totalPrice(created),
            ExpiresAt:       s.validator.ReservationExpiry(cv.show),
            Tickets:         s.ticketViews(cv, created),
        }
        return nil
    })
    if err != nil {
        return ReservationDescriptor{}, err
    }
    return desc, nil
}

// consumeHolds deletes the buyer's own holds covering exactly the
// allocated targets: the purchased seats, and for standing sectors at
// most the purchased quantity.  Holds on other seats or surplus standing
// claims keep blocking until their TTL passes.
func (s *Service) consumeHolds(ctx context.Context, tx *sql.Tx, userID, showID uint64, targets []allocation.Target) error {
    var seatIDs []uint64
    standing := make(map[uint64]uint32)
    for _, tgt := range targets {
        if tgt.SeatID != nil {
            seatIDs = append(seatIDs, *tgt.SeatID)
        } else {
            standing[tgt.SectorID] += tgt.Quantity
        }
    }
    if len(seatIDs) > 0 {
        if _, err := s.holds.DeleteSeatHoldsTx(ctx, tx, userID, showID, seatIDs); err != nil {
            return err
        }
    }
    for sectorID, qty := range standing {
        if _, err := s.holds.DeleteStandingHoldsTx(ctx, tx, userID, showID, sectorID, qty); err != nil {
            return err
        }
    }
    return nil
}

// loadSnapshot reads the show's active tickets and unexpired holds under
// the per-show lock and combines them with the catalog view.
func (s *Service) loadSnapshot(ctx context.Context, tx *sql.Tx, cv catalogView, now time.Time) (allocation.Snapshot, error) {
    if err := s.tickets.LockShowTx(ctx, tx, cv.show.ID); err != nil {
        return allocation.Snapshot{}, err
    }
    active, err := s.tickets.ActiveByShowTx(ctx, tx, cv.show.ID)
    if err != nil {
        return allocation.Snapshot{}, err
    }
    holds, err := s.holds.UnexpiredByShowTx(ctx, tx, cv.show.ID, now)
    if err != nil {
        return allocation.Snapshot{}, err
    }
    return allocation.Snapshot{
        Show:    cv.show,
        Sectors: cv.sectors,
        Seats:   cv.seats,
        Tickets: active,
        Holds:   holds,
    }, nil
}

// BuyReservedTickets converts tickets of an existing reservation into a
// confirmed purchase.  ticketIDs may select a subset of the reservation;
// empty means all of it.  The tickets must still be RESERVED (the
// sweeper may already have expired them), must belong to the caller, and
// the show must not have started.
func (s *Service) BuyReservedTickets(ctx context.Context, userID, reservationID uint64, ids []uint64) (PurchaseResult, error) {
    now := s.now()
    var result PurchaseResult
    err := s.runner.RunTx(ctx, func(tx *sql.Tx) error {
        order, err := s.orders.GetByIDTx(ctx, tx, reservationID)
        if err != nil {
            return err
        }
        if order.Type != model.OrderReservation {
            return allocation.Unavailable("order %d is not a reservation", reservationID)
        }
        if order.UserID != userID {
            return allocation.ErrUnauthorized
        }
        selected := ids
        if len(selected) == 0 {
            selected = order.TicketIDs
        } else {
            member := make(map[uint64]struct{}, len(order.TicketIDs))
            for _, id := range order.TicketIDs {
                member[id] = struct{}{}
            }
            for _, id := range selected {
                if _, ok := member[id]; !ok {
                    return allocation.ErrUnauthorized
                }
            }
        }
        if len(selected) == 0 {
            return allocation.Unavailable("reservation %d has no tickets", reservationID)
        }
        tickets, err := s.lockTickets(ctx, tx, selected)
        if err != nil {
            return err
        }
        show, err := s.gateway.GetShowByID(ctx, tickets[0].ShowID)
        if err != nil {
            return err
        }
        if !now.Before(show.StartsAt) {
            return allocation.Unavailable("cannot buy tickets after the show has started")
        }
        for _, t := range tickets {
            if t.Status != model.TicketReserved {
                return allocation.Unavailable("ticket %d is no longer reserved", t.ID)
            }
        }
        if err := s.tickets.UpdateStatusTx(ctx, tx, selected, model.TicketBought); err != nil {
            return err
        }
        purchase := model.Order{UserID: userID, Type: model.OrderPurchase, TicketIDs: selected}
        if err := s.orders.CreateTx(ctx, tx, &purchase); err != nil {
            return err
        }
        for i := range tickets {
            tickets[i].Status = model.TicketBought
        }
        views, err := s.viewsFor(ctx, tickets)
        if err != nil {
            return err
        }
        result = PurchaseResult{
            OrderID:         purchase.ID,
            TotalPriceCents: totalPrice(tickets),
            Status:          string(model.PaymentSucceeded),
            Tickets:         views,
        }
        return nil
    })
    if err != nil {
        return PurchaseResult{}, err
    }
    return result, nil
}

// CancelReservations transitions the caller's RESERVED tickets to
// CANCELLED and records a CANCELLATION order for the audit trail.
func (s *Service) CancelReservations(ctx context.Context, userID uint64, ids []uint64) ([]TicketView, error) {
    return s.revoke(ctx, userID, ids, model.TicketReserved, model.TicketCancelled, model.OrderCancellation)
}

// RefundTickets transitions the caller's BOUGHT tickets to REFUNDED and
// records a REFUND order.  Refunds are refused once the show started.
func (s *Service) RefundTickets(ctx context.Context, userID uint64, ids []uint64) ([]TicketView, error) {
    return s.revoke(ctx, userID, ids, model.TicketBought, model.TicketRefunded, model.OrderRefund)
}

// revoke is the shared cancel/refund path: ownership check, status
// precondition, batch transition, audit order.  The show-not-started
// window applies to refunds only; a reservation can be cancelled at any
// time.
func (s *Service) revoke(ctx context.Context, userID uint64, ids []uint64,
    from, to model.TicketStatus, orderType model.OrderType) ([]TicketView, error) {
    if len(ids) == 0 {
        return nil, &allocation.ValidationError{Fields: []string{"ticket_ids is required"}}
    }
    now := s.now()
    var views []TicketView
    err := s.runner.RunTx(ctx, func(tx *sql.Tx) error {
        tickets, err := s.lockTickets(ctx, tx, ids)
        if err != nil {
            return err
        }
        owners, err := s.orders.OwnerOfTicketsTx(ctx, tx, ids)
        if err != nil {
            return err
        }
        if err := s.validator.ValidateOwnership(userID, ids, owners); err != nil {
            return err
        }
        shows := make(map[uint64]model.Show)
        for _, t := range tickets {
            if t.Status != from {
                return allocation.Unavailable("ticket %d is %s, not %s", t.ID, t.Status, from)
            }
            if orderType != model.OrderRefund {
                continue
            }
            if _, ok := shows[t.ShowID]; !ok {
                show, err := s.gateway.GetShowByID(ctx, t.ShowID)
                if err != nil {
                    return err
                }
                shows[t.ShowID] = show
            }
            if err := s.validator.ValidateRefundWindow(shows[t.ShowID], now); err != nil {
                return err
            }
        }
        if err := s.tickets.UpdateStatusTx(ctx, tx, ids, to); err != nil {
            return err
        }
        audit := model.Order{UserID: userID, Type: orderType, TicketIDs: ids}
        if err := s.orders.CreateTx(ctx, tx, &audit); err != nil {
            return err
        }
        for i := range tickets {
            tickets[i].Status = to
        }
        views, err = s.viewsFor(ctx, tickets)
        return err
    })
    if err != nil {
        return nil, err
    }
    return views, nil
}

// CallbackData is the opaque outcome the payment gateway posts back.
type CallbackData struct {
    Status string `json:"status"` // "success" settles, anything else fails
}

// Succeeded reports whether the gateway confirmed the payment.
func (c CallbackData) Succeeded() bool { return c.Status == "success" }

// CompletePurchase consumes the payment gateway callback for a session.
// On success the session's PAYMENT_PENDING tickets become BOUGHT and the
// session SUCCEEDED; otherwise they become CANCELLED and the session
// FAILED.  A callback for an already settled session is a no-op that
// returns the recorded outcome.
func (s *Service) CompletePurchase(ctx context.Context, sessionID string, cb CallbackData) (PurchaseResult, error) {
    var result PurchaseResult
    var event *queue.TicketsPurchasedEvent
    err := s.runner.RunTx(ctx, func(tx *sql.Tx) error {
        session, err := s.sessions.GetByIDTx(ctx, tx, sessionID)
        if err != nil {
            return err
        }
        order, err := s.orders.GetByIDTx(ctx, tx, session.OrderID)
        if err != nil {
            return err
        }
        tickets, err := s.lockTickets(ctx, tx, order.TicketIDs)
        if err != nil {
            return err
        }
        if session.Status != model.PaymentPending {
            // Gateway retried a settled session; report what happened.
            views, err := s.viewsFor(ctx, tickets)
            if err != nil {
                return err
            }
            result = PurchaseResult{
                OrderID:         order.ID,
                TotalPriceCents: session.TotalPriceCents,
                Status:          string(session.Status),
                Tickets:         views,
            }
            return nil
        }

        ticketStatus := model.TicketBought
        sessionStatus := model.PaymentSucceeded
        if !cb.Succeeded() {
            ticketStatus = model.TicketCancelled
            sessionStatus = model.PaymentFailed
        }
        pending := make([]uint64, 0, len(tickets))
        for _, t := range tickets {
            if t.Status == model.TicketPaymentPending {
                pending = append(pending, t.ID)
            }
        }
        if err := s.tickets.UpdateStatusTx(ctx, tx, pending, ticketStatus); err != nil {
            return err
        }
        if err := s.sessions.UpdateStatusTx(ctx, tx, session.ID, sessionStatus); err != nil {
            return err
        }
        for i := range tickets {
            if tickets[i].Status == model.TicketPaymentPending {
                tickets[i].Status = ticketStatus
            }
        }
        views, err := s.viewsFor(ctx, tickets)
        if err != nil {
            return err
        }
        result = PurchaseResult{
            OrderID:         order.ID,
            TotalPriceCents: session.TotalPriceCents,
            Status:          string(sessionStatus),
            Tickets:         views,
        }
        if sessionStatus == model.PaymentSucceeded {
            event = &queue.TicketsPurchasedEvent{
                OrderID:         order.ID,
                UserID:          order.UserID,
                SessionID:       session.ID,
                TicketIDs:       pending,
                TotalPriceCents: session.TotalPriceCents,
                PurchasedAt:     s.now().Format(time.RFC3339),
            }
        }
        return nil
    })
    if err != nil {
        return PurchaseResult{}, err
    }
    if event != nil && s.publisher != nil {
        if err := s.publisher.PublishTicketsPurchased(ctx, *event); err != nil {
            log.Printf("booking: publish tickets.purchased failed: %v", err)
        }
    }
    return result, nil
}

// ListOrders returns the caller's orders, newest first, with resolved
// ticket views.  Read-only; runs outside any transaction.
func (s *Service) ListOrders(ctx context.Context, userID uint64) ([]OrderView, error) {
    orders, err := s.orders.ListByUser(ctx, userID)
    if err != nil {
        return nil, err
    }
    views := make([]OrderView, 0, len(orders))
    for _, o := range orders {
        ov := OrderView{
            ID:        o.ID,
            Type:      o.Type,
            CreatedAt: o.CreatedAt,
        }
        if len(o.TicketIDs) > 0 {
            tickets, err := s.ticketsByIDs(ctx, o.TicketIDs)
            if err != nil {
                return nil, err
            }
            ov.Tickets, err = s.viewsFor(ctx, tickets)
            if err != nil {
                return nil, err
            }
        }
        views = append(views, ov)
    }
    return views, nil
}

// OrderView is the JSON-friendly projection of an order with its
// tickets.
type OrderView struct {
    ID        uint64          `json:"id"`
    Type      model.OrderType `json:"type"`
    CreatedAt time.Time       `json:"created_at"`
    Tickets   []TicketView    `json:"tickets"`
}

// lockTickets locks the involved show rows first, in ascending id
// order, then loads the tickets FOR UPDATE.  Taking the show locks
// before any ticket lock matches the buy/reserve path's ordering, so
// two overlapping mutations on the same show cannot deadlock against
// each other.  The show ids come from an unlocked read, which is safe
// because a ticket's show never changes.
func (s *Service) lockTickets(ctx context.Context, tx *sql.Tx, ids []uint64) ([]model.Ticket, error) {
    showIDs, err := s.tickets.ShowIDsByTicketsTx(ctx, tx, ids)
    if err != nil {
        return nil, err
    }
    sort.Slice(showIDs, func(i, j int) bool { return showIDs[i] < showIDs[j] })
    for _, id := range showIDs {
        if err := s.tickets.LockShowTx(ctx, tx, id); err != nil {
            return nil, err
        }
    }
    return s.tickets.ByIDsTx(ctx, tx, ids)
}

// viewsFor builds ticket views for already-loaded tickets, resolving
// show names and seat positions through the catalog.
func (s *Service) viewsFor(ctx context.Context, tickets []model.Ticket) ([]TicketView, error) {
    shows := make(map[uint64]model.Show)
    views := make([]TicketView, 0, len(tickets))
    for _, t := range tickets {
        show, ok := shows[t.ShowID]
        if !ok {
            var err error
            show, err = s.gateway.GetShowByID(ctx, t.ShowID)
            if err != nil {
                return nil, err
            }
            shows[t.ShowID] = show
        }
        v := TicketView{
            ID:         t.ID,
            ShowName:   show.Name,
            PriceCents: t.PriceCents,
            SectorID:   t.SectorID,
            SeatID:     t.SeatID,
            Status:     t.Status,
        }
        if t.SeatID != nil {
            seat, err := s.gateway.GetSeatByID(ctx, *t.SeatID)
            if err == nil {
                row, col := seat.RowNumber, seat.ColumnNumber
                v.RowNumber, v.ColumnNumber = &row, &col
            }
        }
        views = append(views, v)
    }
    return views, nil
}

// ticketsByIDs is a read-only lookup for listing flows; it reuses the
// Tx-based store by running a throwaway transaction.
func (s *Service) ticketsByIDs(ctx context.Context, ids []uint64) ([]model.Ticket, error) {
    var tickets []model.Ticket
    err := s.runner.RunTx(ctx, func(tx *sql.Tx) error {
        var err error
        tickets, err = s.tickets.ByIDsTx(ctx, tx, ids)
        return err
    })
    return tickets, err
}
