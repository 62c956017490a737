package booking

import (
    "context"
    "database/sql"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/mock"
    "github.com/stretchr/testify/require"

    "github.com/avellia/show-ticketing/internal/allocation"
    "github.com/avellia/show-ticketing/internal/model"
    "github.com/avellia/show-ticketing/internal/queue"
)

var (
    testNow   = time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
    showStart = testNow.Add(2 * time.Hour)
)

func seatID(id uint64) *uint64 { return &id }

type mockGateway struct{ mock.Mock }

func (m *mockGateway) GetShowByID(ctx context.Context, id uint64) (model.Show, error) {
    args := m.Called(ctx, id)
    return args.Get(0).(model.Show), args.Error(1)
}

func (m *mockGateway) GetSectorByID(ctx context.Context, id uint64) (model.Sector, error) {
    args := m.Called(ctx, id)
    return args.Get(0).(model.Sector), args.Error(1)
}

func (m *mockGateway) GetSeatByID(ctx context.Context, id uint64) (model.Seat, error) {
    args := m.Called(ctx, id)
    return args.Get(0).(model.Seat), args.Error(1)
}

func (m *mockGateway) SectorsByRoom(ctx context.Context, roomID uint64) ([]model.Sector, error) {
    args := m.Called(ctx, roomID)
    return args.Get(0).([]model.Sector), args.Error(1)
}

func (m *mockGateway) SeatsBySector(ctx context.Context, sectorID uint64) ([]model.Seat, error) {
    args := m.Called(ctx, sectorID)
    return args.Get(0).([]model.Seat), args.Error(1)
}

type mockTickets struct {
    mock.Mock
    nextID uint64
}

func (m *mockTickets) LockShowTx(ctx context.Context, tx *sql.Tx, showID uint64) error {
    return m.Called(ctx, tx, showID).Error(0)
}

func (m *mockTickets) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
    args := m.Called(ctx, tx, t)
    if args.Error(0) == nil {
        m.nextID++
        t.ID = m.nextID
    }
    return args.Error(0)
}

func (m *mockTickets) ActiveByShowTx(ctx context.Context, tx *sql.Tx, showID uint64) ([]model.Ticket, error) {
    args := m.Called(ctx, tx, showID)
    return args.Get(0).([]model.Ticket), args.Error(1)
}

func (m *mockTickets) ShowIDsByTicketsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]uint64, error) {
    args := m.Called(ctx, tx, ids)
    return args.Get(0).([]uint64), args.Error(1)
}

func (m *mockTickets) ByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]model.Ticket, error) {
    args := m.Called(ctx, tx, ids)
    return args.Get(0).([]model.Ticket), args.Error(1)
}

func (m *mockTickets) UpdateStatusTx(ctx context.Context, tx *sql.Tx, ids []uint64, status model.TicketStatus) error {
    return m.Called(ctx, tx, ids, status).Error(0)
}

type mockHolds struct{ mock.Mock }

func (m *mockHolds) UnexpiredByShowTx(ctx context.Context, tx *sql.Tx, showID uint64, now time.Time) ([]model.Hold, error) {
    args := m.Called(ctx, tx, showID, now)
    return args.Get(0).([]model.Hold), args.Error(1)
}

func (m *mockHolds) DeleteSeatHoldsTx(ctx context.Context, tx *sql.Tx, userID, showID uint64, seatIDs []uint64) (int64, error) {
    args := m.Called(ctx, tx, userID, showID, seatIDs)
    return args.Get(0).(int64), args.Error(1)
}

func (m *mockHolds) DeleteStandingHoldsTx(ctx context.Context, tx *sql.Tx, userID, showID, sectorID uint64, limit uint32) (int64, error) {
    args := m.Called(ctx, tx, userID, showID, sectorID, limit)
    return args.Get(0).(int64), args.Error(1)
}

type mockOrders struct{ mock.Mock }

func (m *mockOrders) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
    args := m.Called(ctx, tx, o)
    if args.Error(0) == nil {
        o.ID = 900
    }
    return args.Error(0)
}

func (m *mockOrders) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Order, error) {
    args := m.Called(ctx, tx, id)
    return args.Get(0).(model.Order), args.Error(1)
}

func (m *mockOrders) OwnerOfTicketsTx(ctx context.Context, tx *sql.Tx, ticketIDs []uint64) (map[uint64]uint64, error) {
    args := m.Called(ctx, tx, ticketIDs)
    return args.Get(0).(map[uint64]uint64), args.Error(1)
}

func (m *mockOrders) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
    args := m.Called(ctx, userID)
    return args.Get(0).([]model.Order), args.Error(1)
}

type mockSessions struct{ mock.Mock }

func (m *mockSessions) CreateTx(ctx context.Context, tx *sql.Tx, s *model.PaymentSession) error {
    return m.Called(ctx, tx, s).Error(0)
}

func (m *mockSessions) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (model.PaymentSession, error) {
    args := m.Called(ctx, tx, id)
    return args.Get(0).(model.PaymentSession), args.Error(1)
}

func (m *mockSessions) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.PaymentStatus) error {
    return m.Called(ctx, tx, id, status).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishTicketsPurchased(ctx context.Context, ev queue.TicketsPurchasedEvent) error {
    return m.Called(ctx, ev).Error(0)
}

type fakeRunner struct{}

func (fakeRunner) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type fixture struct {
    gateway  *mockGateway
    tickets  *mockTickets
    holds    *mockHolds
    orders   *mockOrders
    sessions *mockSessions
    events   *mockPublisher
    svc      *Service
}

func newFixture(t *testing.T) *fixture {
    t.Helper()
    f := &fixture{
        gateway:  &mockGateway{},
        tickets:  &mockTickets{},
        holds:    &mockHolds{},
        orders:   &mockOrders{},
        sessions: &mockSessions{},
        events:   &mockPublisher{},
    }
    f.svc = NewService(f.gateway, allocation.NewValidator(30*time.Minute),
        f.tickets, f.holds, f.orders, f.sessions, fakeRunner{}, f.events, "https://pay.example.com/session")
    f.svc.now = func() time.Time { return testNow }
    return f
}

// catalogFixture wires the gateway for show 7 in room 4: seated sector 1
// (seat 11) and standing sector 2 with capacity 5.
func (f *fixture) catalogFixture() {
    f.gateway.On("GetShowByID", mock.Anything, uint64(7)).
        Return(model.Show{ID: 7, RoomID: 4, Name: "Evening Show", StartsAt: showStart, DurationMin: 90}, nil)
    f.gateway.On("SectorsByRoom", mock.Anything, uint64(4)).Return([]model.Sector{
        {ID: 1, RoomID: 4, Type: model.SectorSeated, PriceCents: 4500},
        {ID: 2, RoomID: 4, Type: model.SectorStanding, PriceCents: 2500, Capacity: 5},
    }, nil)
    f.gateway.On("GetSeatByID", mock.Anything, uint64(11)).
        Return(model.Seat{ID: 11, SectorID: 1, RowNumber: 1, ColumnNumber: 1}, nil)
}

func (f *fixture) emptyShowState() {
    f.tickets.On("LockShowTx", mock.Anything, mock.Anything, uint64(7)).Return(nil)
    f.tickets.On("ActiveByShowTx", mock.Anything, mock.Anything, uint64(7)).Return([]model.Ticket{}, nil)
    f.holds.On("UnexpiredByShowTx", mock.Anything, mock.Anything, uint64(7), testNow).Return([]model.Hold{}, nil)
}

func TestBuyTickets(t *testing.T) {
    f := newFixture(t)
    f.catalogFixture()
    f.emptyShowState()
    f.tickets.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
    f.orders.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
    f.sessions.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
    f.holds.On("DeleteSeatHoldsTx", mock.Anything, mock.Anything, uint64(42), uint64(7), []uint64{11}).Return(int64(1), nil)
    f.holds.On("DeleteStandingHoldsTx", mock.Anything, mock.Anything, uint64(42), uint64(7), uint64(2), uint32(2)).Return(int64(2), nil)

    desc, err := f.svc.BuyTickets(context.Background(), Request{
        UserID: 42,
        ShowID: 7,
        Targets: []allocation.Target{
            {SectorID: 1, SeatID: seatID(11)},
            {SectorID: 2, Quantity: 2},
        },
    })
    require.NoError(t, err)

    assert.Equal(t, uint64(900), desc.OrderID)
    assert.Equal(t, uint32(4500+2*2500), desc.TotalPriceCents)
    assert.NotEmpty(t, desc.SessionID)
    assert.Equal(t, "https://pay.example.com/session/"+desc.SessionID, desc.PaymentURL)
    require.Len(t, desc.Tickets, 3)
    for _, v := range desc.Tickets {
        assert.Equal(t, model.TicketPaymentPending, v.Status)
    }
    require.NotNil(t, desc.Tickets[0].RowNumber)
    assert.Equal(t, uint32(1), *desc.Tickets[0].RowNumber)

    f.tickets.AssertNumberOfCalls(t, "CreateTx", 3)
    f.holds.AssertCalled(t, "DeleteSeatHoldsTx", mock.Anything, mock.Anything, uint64(42), uint64(7), []uint64{11})
    f.holds.AssertCalled(t, "DeleteStandingHoldsTx", mock.Anything, mock.Anything, uint64(42), uint64(7), uint64(2), uint32(2))
    f.sessions.AssertCalled(t, "CreateTx", mock.Anything, mock.Anything, mock.MatchedBy(func(s *model.PaymentSession) bool {
        return s.Status == model.PaymentPending && s.OrderID == 900 && s.TotalPriceCents == 9500
    }))
}

func TestBuyTicketsLeavesUntargetedHolds(t *testing.T) {
    f := newFixture(t)
    f.catalogFixture()
    f.tickets.On("LockShowTx", mock.Anything, mock.Anything, uint64(7)).Return(nil)
    f.tickets.On("ActiveByShowTx", mock.Anything, mock.Anything, uint64(7)).Return([]model.Ticket{}, nil)
    f.holds.On("UnexpiredByShowTx", mock.Anything, mock.Anything, uint64(7), testNow).Return([]model.Hold{
        {ID: 1, UserID: 42, ShowID: 7, SectorID: 1, SeatID: seatID(11), ValidUntil: testNow.Add(5 * time.Minute)},
        {ID: 2, UserID: 42, ShowID: 7, SectorID: 1, SeatID: seatID(12), ValidUntil: testNow.Add(5 * time.Minute)},
    }, nil)
    f.tickets.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
    f.orders.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
    f.sessions.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
    f.holds.On("DeleteSeatHoldsTx", mock.Anything, mock.Anything, uint64(42), uint64(7), []uint64{11}).Return(int64(1), nil)

    _, err := f.svc.BuyTickets(context.Background(), Request{
        UserID:  42,
        ShowID:  7,
        Targets: []allocation.Target{{SectorID: 1, SeatID: seatID(11)}},
    })
    require.NoError(t, err)

    // Only the purchased seat's hold goes away. The hold on seat 12
    // keeps protecting that seat until it expires or is used.
    f.holds.AssertCalled(t, "DeleteSeatHoldsTx", mock.Anything, mock.Anything, uint64(42), uint64(7), []uint64{11})
    f.holds.AssertNotCalled(t, "DeleteStandingHoldsTx",
        mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBuyTicketsSeatTaken(t *testing.T) {
    f := newFixture(t)
    f.catalogFixture()
    f.tickets.On("LockShowTx", mock.Anything, mock.Anything, uint64(7)).Return(nil)
    f.tickets.On("ActiveByShowTx", mock.Anything, mock.Anything, uint64(7)).
        Return([]model.Ticket{{ID: 5, ShowID: 7, SectorID: 1, SeatID: seatID(11), Status: model.TicketBought}}, nil)
    f.holds.On("UnexpiredByShowTx", mock.Anything, mock.Anything, uint64(7), testNow).Return([]model.Hold{}, nil)

    _, err := f.svc.BuyTickets(context.Background(), Request{
        UserID:  42,
        ShowID:  7,
        Targets: []allocation.Target{{SectorID: 1, SeatID: seatID(11)}},
    })

    var unavailable *allocation.UnavailableError
    require.ErrorAs(t, err, &unavailable)
    f.tickets.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestBuyTicketsInvalidCard(t *testing.T) {
    f := newFixture(t)

    _, err := f.svc.BuyTickets(context.Background(), Request{
        UserID:  42,
        ShowID:  7,
        Targets: []allocation.Target{{SectorID: 1, SeatID: seatID(11)}},
        Card:    &allocation.Card{Number: "not a card", Expiry: "13/99", CVC: "1"},
    })

    var verr *allocation.ValidationError
    require.ErrorAs(t, err, &verr)
    f.gateway.AssertNotCalled(t, "GetShowByID", mock.Anything, mock.Anything)
}

func TestReserveTickets(t *testing.T) {
    f := newFixture(t)
    f.catalogFixture()
    f.emptyShowState()
    f.tickets.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
    f.orders.On("CreateTx", mock.Anything, mock.Anything, mock.MatchedBy(func(o *model.Order) bool {
        return o.Type == model.OrderReservation && o.UserID == 42
    })).Return(nil)
    f.holds.On("DeleteSeatHoldsTx", mock.Anything, mock.Anything, uint64(42), uint64(7), []uint64{11}).Return(int64(0), nil)

    desc, err := f.svc.ReserveTickets(context.Background(), Request{
        UserID:  42,
        ShowID:  7,
        Targets: []allocation.Target{{SectorID: 1, SeatID: seatID(11)}},
    })
    require.NoError(t, err)

    assert.Equal(t, showStart.Add(-30*time.Minute), desc.ExpiresAt)
    require.Len(t, desc.Tickets, 1)
    assert.Equal(t, model.TicketReserved, desc.Tickets[0].Status)
    f.sessions.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestReserveTicketsInsideLeadTime(t *testing.T) {
    f := newFixture(t)
    f.catalogFixture()
    f.emptyShowState()
    f.svc.now = func() time.Time { return showStart.Add(-30 * time.Minute) }
    f.holds.On("UnexpiredByShowTx", mock.Anything, mock.Anything, uint64(7), showStart.Add(-30*time.Minute)).Return([]model.Hold{}, nil)

    _, err := f.svc.ReserveTickets(context.Background(), Request{
        UserID:  42,
        ShowID:  7,
        Targets: []allocation.Target{{SectorID: 1, SeatID: seatID(11)}},
    })

    var unavailable *allocation.UnavailableError
    require.ErrorAs(t, err, &unavailable)
}

func reservedTickets() []model.Ticket {
    return []model.Ticket{
        {ID: 21, ShowID: 7, SectorID: 1, SeatID: seatID(11), Status: model.TicketReserved, PriceCents: 4500},
        {ID: 22, ShowID: 7, SectorID: 2, Status: model.TicketReserved, PriceCents: 2500},
    }
}

func TestBuyReservedTickets(t *testing.T) {
    f := newFixture(t)
    f.catalogFixture()
    f.orders.On("GetByIDTx", mock.Anything, mock.Anything, uint64(55)).
        Return(model.Order{ID: 55, UserID: 42, Type: model.OrderReservation, TicketIDs: []uint64{21, 22}}, nil)
    f.tickets.On("ShowIDsByTicketsTx", mock.Anything, mock.Anything, []uint64{21, 22}).Return([]uint64{7}, nil)
    f.tickets.On("ByIDsTx", mock.Anything, mock.Anything, []uint64{21, 22}).Return(reservedTickets(), nil)
    f.tickets.On("LockShowTx", mock.Anything, mock.Anything, uint64(7)).Return(nil)
    f.tickets.On("UpdateStatusTx", mock.Anything, mock.Anything, []uint64{21, 22}, model.TicketBought).Return(nil)
    f.orders.On("CreateTx", mock.Anything, mock.Anything, mock.MatchedBy(func(o *model.Order) bool {
        return o.Type == model.OrderPurchase
    })).Return(nil)

    result, err := f.svc.BuyReservedTickets(context.Background(), 42, 55, nil)
    require.NoError(t, err)

    assert.Equal(t, uint64(900), result.OrderID)
    assert.Equal(t, uint32(7000), result.TotalPriceCents)
    assert.Equal(t, string(model.PaymentSucceeded), result.Status)
    require.Len(t, result.Tickets, 2)
    assert.Equal(t, model.TicketBought, result.Tickets[0].Status)
}

func TestBuyReservedTicketsWrongOwner(t *testing.T) {
    f := newFixture(t)
    f.orders.On("GetByIDTx", mock.Anything, mock.Anything, uint64(55)).
        Return(model.Order{ID: 55, UserID: 42, Type: model.OrderReservation, TicketIDs: []uint64{21}}, nil)

    _, err := f.svc.BuyReservedTickets(context.Background(), 99, 55, nil)
    assert.ErrorIs(t, err, allocation.ErrUnauthorized)
}

func TestBuyReservedTicketsForeignSelection(t *testing.T) {
    f := newFixture(t)
    f.orders.On("GetByIDTx", mock.Anything, mock.Anything, uint64(55)).
        Return(model.Order{ID: 55, UserID: 42, Type: model.OrderReservation, TicketIDs: []uint64{21, 22}}, nil)

    _, err := f.svc.BuyReservedTickets(context.Background(), 42, 55, []uint64{21, 77})
    assert.ErrorIs(t, err, allocation.ErrUnauthorized)
}

func TestBuyReservedTicketsAlreadyExpired(t *testing.T) {
    f := newFixture(t)
    f.catalogFixture()
    expired := reservedTickets()
    expired[1].Status = model.TicketExpired
    f.orders.On("GetByIDTx", mock.Anything, mock.Anything, uint64(55)).
        Return(model.Order{ID: 55, UserID: 42, Type: model.OrderReservation, TicketIDs: []uint64{21, 22}}, nil)
    f.tickets.On("ShowIDsByTicketsTx", mock.Anything, mock.Anything, []uint64{21, 22}).Return([]uint64{7}, nil)
    f.tickets.On("ByIDsTx", mock.Anything, mock.Anything, []uint64{21, 22}).Return(expired, nil)
    f.tickets.On("LockShowTx", mock.Anything, mock.Anything, uint64(7)).Return(nil)

    _, err := f.svc.BuyReservedTickets(context.Background(), 42, 55, nil)

    var unavailable *allocation.UnavailableError
    require.ErrorAs(t, err, &unavailable)
    f.tickets.AssertNotCalled(t, "UpdateStatusTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBuyReservedTicketsNotAReservation(t *testing.T) {
    f := newFixture(t)
    f.orders.On("GetByIDTx", mock.Anything, mock.Anything, uint64(55)).
        Return(model.Order{ID: 55, UserID: 42, Type: model.OrderPurchase, TicketIDs: []uint64{21}}, nil)

    _, err := f.svc.BuyReservedTickets(context.Background(), 42, 55, nil)

    var unavailable *allocation.UnavailableError
    require.ErrorAs(t, err, &unavailable)
}

func TestCancelReservations(t *testing.T) {
    f := newFixture(t)
    f.catalogFixture()
    f.tickets.On("ShowIDsByTicketsTx", mock.Anything, mock.Anything, []uint64{21, 22}).Return([]uint64{7}, nil)
    f.tickets.On("ByIDsTx", mock.Anything, mock.Anything, []uint64{21, 22}).Return(reservedTickets(), nil)
    f.tickets.On("LockShowTx", mock.Anything, mock.Anything, uint64(7)).Return(nil)
    f.orders.On("OwnerOfTicketsTx", mock.Anything, mock.Anything, []uint64{21, 22}).
        Return(map[uint64]uint64{21: 42, 22: 42}, nil)
    f.tickets.On("UpdateStatusTx", mock.Anything, mock.Anything, []uint64{21, 22}, model.TicketCancelled).Return(nil)
    f.orders.On("CreateTx", mock.Anything, mock.Anything, mock.MatchedBy(func(o *model.Order) bool {
        return o.Type == model.OrderCancellation
    })).Return(nil)

    views, err := f.svc.CancelReservations(context.Background(), 42, []uint64{21, 22})
    require.NoError(t, err)
    require.Len(t, views, 2)
    assert.Equal(t, model.TicketCancelled, views[0].Status)
}

func TestCancelReservationsAfterShowStart(t *testing.T) {
    f := newFixture(t)
    f.catalogFixture()
    f.svc.now = func() time.Time { return showStart }
    f.tickets.On("ShowIDsByTicketsTx", mock.Anything, mock.Anything, []uint64{21, 22}).Return([]uint64{7}, nil)
    f.tickets.On("ByIDsTx", mock.Anything, mock.Anything, []uint64{21, 22}).Return(reservedTickets(), nil)
    f.tickets.On("LockShowTx", mock.Anything, mock.Anything, uint64(7)).Return(nil)
    f.orders.On("OwnerOfTicketsTx", mock.Anything, mock.Anything, []uint64{21, 22}).
        Return(map[uint64]uint64{21: 42, 22: 42}, nil)
    f.tickets.On("UpdateStatusTx", mock.Anything, mock.Anything, []uint64{21, 22}, model.TicketCancelled).Return(nil)
    f.orders.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

    // The show-start cutoff guards refunds only. Cancelling a
    // reservation is allowed at any time.
    views, err := f.svc.CancelReservations(context.Background(), 42, []uint64{21, 22})
    require.NoError(t, err)
    require.Len(t, views, 2)
    assert.Equal(t, model.TicketCancelled, views[0].Status)
}

func TestCancelReservationsLocksShowBeforeTickets(t *testing.T) {
    f := newFixture(t)
    f.catalogFixture()
    f.tickets.On("ShowIDsByTicketsTx", mock.Anything, mock.Anything, []uint64{21}).Return([]uint64{7}, nil)
    f.tickets.On("ByIDsTx", mock.Anything, mock.Anything, []uint64{21}).
        Return([]model.Ticket{{ID: 21, ShowID: 7, SectorID: 1, SeatID: seatID(11), Status: model.TicketReserved, PriceCents: 4500}}, nil)
    f.tickets.On("LockShowTx", mock.Anything, mock.Anything, uint64(7)).Return(nil)
    f.orders.On("OwnerOfTicketsTx", mock.Anything, mock.Anything, []uint64{21}).
        Return(map[uint64]uint64{21: 42}, nil)
    f.tickets.On("UpdateStatusTx", mock.Anything, mock.Anything, []uint64{21}, model.TicketCancelled).Return(nil)
    f.orders.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

    _, err := f.svc.CancelReservations(context.Background(), 42, []uint64{21})
    require.NoError(t, err)

    // Same order as the purchase path: show row first, then the
    // ticket rows. Locking tickets first would deadlock against a
    // concurrent buy on the same show.
    lockIdx, readIdx := -1, -1
    for i, c := range f.tickets.Calls {
        switch c.Method {
        case "LockShowTx":
            if lockIdx == -1 {
                lockIdx = i
            }
        case "ByIDsTx":
            if readIdx == -1 {
                readIdx = i
            }
        }
    }
    require.NotEqual(t, -1, lockIdx)
    require.NotEqual(t, -1, readIdx)
    assert.Less(t, lockIdx, readIdx)
}

func TestCancelRequiresTicketIDs(t *testing.T) {
    f := newFixture(t)
    _, err := f.svc.CancelReservations(context.Background(), 42, nil)
    var verr *allocation.ValidationError
    require.ErrorAs(t, err, &verr)
}

func TestRefundTicketsNotOwner(t *testing.T) {
    f := newFixture(t)
    bought := reservedTickets()
    bought[0].Status = model.TicketBought
    bought[1].Status = model.TicketBought
    f.tickets.On("ShowIDsByTicketsTx", mock.Anything, mock.Anything, []uint64{21, 22}).Return([]uint64{7}, nil)
    f.tickets.On("ByIDsTx", mock.Anything, mock.Anything, []uint64{21, 22}).Return(bought, nil)
    f.tickets.On("LockShowTx", mock.Anything, mock.Anything, uint64(7)).Return(nil)
    f.orders.On("OwnerOfTicketsTx", mock.Anything, mock.Anything, []uint64{21, 22}).
        Return(map[uint64]uint64{21: 42, 22: 9}, nil)

    _, err := f.svc.RefundTickets(context.Background(), 42, []uint64{21, 22})
    assert.ErrorIs(t, err, allocation.ErrUnauthorized)
    f.tickets.AssertNotCalled(t, "UpdateStatusTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefundTicketsAfterShowStart(t *testing.T) {
    f := newFixture(t)
    f.catalogFixture()
    f.svc.now = func() time.Time { return showStart }
    bought := []model.Ticket{{ID: 21, ShowID: 7, SectorID: 1, SeatID: seatID(11), Status: model.TicketBought, PriceCents: 4500}}
    f.tickets.On("ShowIDsByTicketsTx", mock.Anything, mock.Anything, []uint64{21}).Return([]uint64{7}, nil)
    f.tickets.On("ByIDsTx", mock.Anything, mock.Anything, []uint64{21}).Return(bought, nil)
    f.tickets.On("LockShowTx", mock.Anything, mock.Anything, uint64(7)).Return(nil)
    f.orders.On("OwnerOfTicketsTx", mock.Anything, mock.Anything, []uint64{21}).
        Return(map[uint64]uint64{21: 42}, nil)

    _, err := f.svc.RefundTickets(context.Background(), 42, []uint64{21})

    var unavailable *allocation.UnavailableError
    require.ErrorAs(t, err, &unavailable)
}

func pendingSessionFixture(f *fixture) {
    f.sessions.On("GetByIDTx", mock.Anything, mock.Anything, "sess-1").
        Return(model.PaymentSession{ID: "sess-1", OrderID: 55, TotalPriceCents: 7000, Status: model.PaymentPending}, nil)
    f.orders.On("GetByIDTx", mock.Anything, mock.Anything, uint64(55)).
        Return(model.Order{ID: 55, UserID: 42, Type: model.OrderPurchase, TicketIDs: []uint64{21, 22}}, nil)
    pending := reservedTickets()
    pending[0].Status = model.TicketPaymentPending
    pending[1].Status = model.TicketPaymentPending
    f.tickets.On("ShowIDsByTicketsTx", mock.Anything, mock.Anything, []uint64{21, 22}).Return([]uint64{7}, nil)
    f.tickets.On("ByIDsTx", mock.Anything, mock.Anything, []uint64{21, 22}).Return(pending, nil)
    f.tickets.On("LockShowTx", mock.Anything, mock.Anything, uint64(7)).Return(nil)
}

func TestCompletePurchaseSuccess(t *testing.T) {
    f := newFixture(t)
    f.catalogFixture()
    pendingSessionFixture(f)
    f.tickets.On("UpdateStatusTx", mock.Anything, mock.Anything, []uint64{21, 22}, model.TicketBought).Return(nil)
    f.sessions.On("UpdateStatusTx", mock.Anything, mock.Anything, "sess-1", model.PaymentSucceeded).Return(nil)
    f.events.On("PublishTicketsPurchased", mock.Anything, mock.MatchedBy(func(ev queue.TicketsPurchasedEvent) bool {
        return ev.SessionID == "sess-1" && ev.OrderID == 55 && len(ev.TicketIDs) == 2
    })).Return(nil)

    result, err := f.svc.CompletePurchase(context.Background(), "sess-1", CallbackData{Status: "success"})
    require.NoError(t, err)

    assert.Equal(t, string(model.PaymentSucceeded), result.Status)
    assert.Equal(t, uint32(7000), result.TotalPriceCents)
    require.Len(t, result.Tickets, 2)
    assert.Equal(t, model.TicketBought, result.Tickets[0].Status)
    f.events.AssertExpectations(t)
}

func TestCompletePurchaseFailure(t *testing.T) {
    f := newFixture(t)
    f.catalogFixture()
    pendingSessionFixture(f)
    f.tickets.On("UpdateStatusTx", mock.Anything, mock.Anything, []uint64{21, 22}, model.TicketCancelled).Return(nil)
    f.sessions.On("UpdateStatusTx", mock.Anything, mock.Anything, "sess-1", model.PaymentFailed).Return(nil)

    result, err := f.svc.CompletePurchase(context.Background(), "sess-1", CallbackData{Status: "declined"})
    require.NoError(t, err)

    assert.Equal(t, string(model.PaymentFailed), result.Status)
    assert.Equal(t, model.TicketCancelled, result.Tickets[0].Status)
    f.events.AssertNotCalled(t, "PublishTicketsPurchased", mock.Anything, mock.Anything)
}

func TestCompletePurchaseIdempotent(t *testing.T) {
    f := newFixture(t)
    f.catalogFixture()
    f.sessions.On("GetByIDTx", mock.Anything, mock.Anything, "sess-1").
        Return(model.PaymentSession{ID: "sess-1", OrderID: 55, TotalPriceCents: 7000, Status: model.PaymentSucceeded}, nil)
    f.orders.On("GetByIDTx", mock.Anything, mock.Anything, uint64(55)).
        Return(model.Order{ID: 55, UserID: 42, Type: model.OrderPurchase, TicketIDs: []uint64{21, 22}}, nil)
    settled := reservedTickets()
    settled[0].Status = model.TicketBought
    settled[1].Status = model.TicketBought
    f.tickets.On("ShowIDsByTicketsTx", mock.Anything, mock.Anything, []uint64{21, 22}).Return([]uint64{7}, nil)
    f.tickets.On("ByIDsTx", mock.Anything, mock.Anything, []uint64{21, 22}).Return(settled, nil)
    f.tickets.On("LockShowTx", mock.Anything, mock.Anything, uint64(7)).Return(nil)

    result, err := f.svc.CompletePurchase(context.Background(), "sess-1", CallbackData{Status: "success"})
    require.NoError(t, err)

    assert.Equal(t, string(model.PaymentSucceeded), result.Status)
    f.tickets.AssertNotCalled(t, "UpdateStatusTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
    f.sessions.AssertNotCalled(t, "UpdateStatusTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
    f.events.AssertNotCalled(t, "PublishTicketsPurchased", mock.Anything, mock.Anything)
}

func TestListOrders(t *testing.T) {
    f := newFixture(t)
    f.catalogFixture()
    f.orders.On("ListByUser", mock.Anything, uint64(42)).Return([]model.Order{
        {ID: 55, UserID: 42, Type: model.OrderPurchase, TicketIDs: []uint64{21}},
        {ID: 54, UserID: 42, Type: model.OrderCancellation},
    }, nil)
    f.tickets.On("ByIDsTx", mock.Anything, mock.Anything, []uint64{21}).
        Return([]model.Ticket{{ID: 21, ShowID: 7, SectorID: 1, SeatID: seatID(11), Status: model.TicketBought, PriceCents: 4500}}, nil)

    views, err := f.svc.ListOrders(context.Background(), 42)
    require.NoError(t, err)
    require.Len(t, views, 2)
    assert.Equal(t, model.OrderPurchase, views[0].Type)
    require.Len(t, views[0].Tickets, 1)
    assert.Equal(t, "Evening Show", views[0].Tickets[0].ShowName)
    assert.Empty(t, views[1].Tickets)
}
