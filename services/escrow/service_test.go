package escrow

import (
	"context"
	"fmt"
	"testing"

	escrowRepo "servana/database/repository/escrow"
	"servana/models"
	"servana/services/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// fakeEscrowRepo mirrors the storage-level guarantee: a transition only
// fires when the settlement is in one of the expected states.
type fakeEscrowRepo struct {
	settlements map[string]*models.EscrowSettlement // by settlement id
	byBooking   map[string]string
	nextID      int
}

func newFakeEscrowRepo() *fakeEscrowRepo {
	return &fakeEscrowRepo{
		settlements: make(map[string]*models.EscrowSettlement),
		byBooking:   make(map[string]string),
	}
}

func (f *fakeEscrowRepo) Create(ctx context.Context, s *models.EscrowSettlement) error {
	if _, exists := f.byBooking[s.BookingID]; exists {
		return fmt.Errorf("settlement already exists for booking %s", s.BookingID)
	}
	f.nextID++
	s.ID = fmt.Sprintf("set-%d", f.nextID)
	clone := *s
	f.settlements[s.ID] = &clone
	f.byBooking[s.BookingID] = s.ID
	return nil
}

func (f *fakeEscrowRepo) GetByBookingID(ctx context.Context, bookingID string) (*models.EscrowSettlement, error) {
	id, ok := f.byBooking[bookingID]
	if !ok {
		return nil, fmt.Errorf("settlement not found for booking %s", bookingID)
	}
	clone := *f.settlements[id]
	return &clone, nil
}

func (f *fakeEscrowRepo) Transition(ctx context.Context, settlementID string, fromStates []string, toState string, set bson.M) error {
	s, ok := f.settlements[settlementID]
	if !ok {
		return escrowRepo.ErrStateConflict
	}
	matched := false
	for _, from := range fromStates {
		if s.State == from {
			matched = true
			break
		}
	}
	if !matched {
		return escrowRepo.ErrStateConflict
	}
	s.State = toState
	for k, v := range set {
		switch k {
		case "amount":
			s.Amount = v.(float64)
		case "proposed_amount":
			s.ProposedAmount = v.(float64)
		case "price_adjusted":
			s.PriceAdjusted = v.(bool)
		case "prior_state":
			s.PriorState = v.(string)
		case "consultation_done":
			s.ConsultationDone = v.(bool)
		case "refund_amount":
			s.RefundAmount = v.(float64)
		case "resolution_type":
			s.ResolutionType = v.(string)
		}
	}
	return nil
}

func (f *fakeEscrowRepo) ListExpiredPending(ctx context.Context) ([]models.EscrowSettlement, error) {
	var out []models.EscrowSettlement
	for _, s := range f.settlements {
		if models.IsTerminalSettlementState(s.State) || s.State == models.SettlementDisputed {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

type fakeTimelineRepo struct {
	events []models.TimelineEvent
}

func (f *fakeTimelineRepo) CreateBooking(ctx context.Context, b *models.Booking) error { return nil }
func (f *fakeTimelineRepo) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeTimelineRepo) UpdateBookingStatus(ctx context.Context, id, from, to string) error {
	return nil
}
func (f *fakeTimelineRepo) GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	return nil, nil
}
func (f *fakeTimelineRepo) AppendTimelineEvent(ctx context.Context, e *models.TimelineEvent) error {
	f.events = append(f.events, *e)
	return nil
}
func (f *fakeTimelineRepo) GetTimeline(ctx context.Context, bookingID string) ([]models.TimelineEvent, error) {
	return f.events, nil
}
func (f *fakeTimelineRepo) CreateSeries(ctx context.Context, s *models.RecurringSeries) error {
	return nil
}
func (f *fakeTimelineRepo) GetSeriesByID(ctx context.Context, id string) (*models.RecurringSeries, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeTimelineRepo) GetDueSeries(ctx context.Context, date string) ([]models.RecurringSeries, error) {
	return nil, nil
}
func (f *fakeTimelineRepo) AdvanceSeries(ctx context.Context, id, nextDate string) error { return nil }
func (f *fakeTimelineRepo) SetSeriesActive(ctx context.Context, id string, active bool, nextDate string) error {
	return nil
}

type fakePaymentProcessor struct {
	refunds []float64
	fail    bool
}

func (f *fakePaymentProcessor) Capture(ctx context.Context, req models.CaptureRequest) (*models.Invoice, error) {
	return &models.Invoice{PaymentID: "pi_test", Status: "paid"}, nil
}

func (f *fakePaymentProcessor) Refund(ctx context.Context, paymentRef string, amount float64, currency, idempotencyKey string) error {
	if f.fail {
		return fmt.Errorf("processor unavailable")
	}
	f.refunds = append(f.refunds, amount)
	return nil
}

func newTestService() (*DefaultSettlementService, *fakeEscrowRepo, *fakeTimelineRepo, *fakePaymentProcessor) {
	repo := newFakeEscrowRepo()
	timeline := &fakeTimelineRepo{}
	payments := &fakePaymentProcessor{}
	svc := &DefaultSettlementService{
		Escrow:   repo,
		Bookings: timeline,
		Payments: payments,
		Notify:   notification.NoopNotificationService{},
	}
	return svc, repo, timeline, payments
}

func heldSettlement(t *testing.T, svc *DefaultSettlementService, consultation bool) *models.EscrowSettlement {
	t.Helper()
	booking := &models.Booking{ID: "bk-1", ProviderID: "prov-1", TotalPrice: 200, Currency: "usd"}
	invoice := &models.Invoice{PaymentID: "pi_test"}
	settlement, err := svc.CreateHold(context.Background(), booking, invoice, consultation)
	require.NoError(t, err)
	require.Equal(t, models.SettlementHeld, settlement.State)
	return settlement
}

func TestCreateHoldIsUniquePerBooking(t *testing.T) {
	svc, _, timeline, _ := newTestService()
	heldSettlement(t, svc, false)

	booking := &models.Booking{ID: "bk-1", TotalPrice: 200, Currency: "usd"}
	_, err := svc.CreateHold(context.Background(), booking, &models.Invoice{PaymentID: "pi_2"}, false)
	assert.Error(t, err)

	require.Len(t, timeline.events, 1)
	assert.Equal(t, models.EventPaymentCaptured, timeline.events[0].Type)
}

func TestConsultationFlow(t *testing.T) {
	svc, repo, _, _ := newTestService()
	heldSettlement(t, svc, true)

	require.NoError(t, svc.BeginConsultation(context.Background(), "bk-1", "prov-1"))
	s, _ := repo.GetByBookingID(context.Background(), "bk-1")
	assert.Equal(t, models.SettlementConsultationPending, s.State)

	require.NoError(t, svc.CompleteConsultation(context.Background(), "bk-1", "prov-1"))
	s, _ = repo.GetByBookingID(context.Background(), "bk-1")
	assert.Equal(t, models.SettlementHeld, s.State)
	assert.True(t, s.ConsultationDone)
}

func TestBeginConsultationRejectedWhenNotRequired(t *testing.T) {
	svc, _, _, _ := newTestService()
	heldSettlement(t, svc, false)
	assert.Error(t, svc.BeginConsultation(context.Background(), "bk-1", "prov-1"))
}

func TestBeginConsultationRejectedWhenAlreadyDone(t *testing.T) {
	svc, repo, _, _ := newTestService()
	heldSettlement(t, svc, true)

	require.NoError(t, svc.BeginConsultation(context.Background(), "bk-1", "prov-1"))
	require.NoError(t, svc.CompleteConsultation(context.Background(), "bk-1", "prov-1"))

	// A completed consultation cannot be reopened.
	assert.Error(t, svc.BeginConsultation(context.Background(), "bk-1", "prov-1"))
	s, _ := repo.GetByBookingID(context.Background(), "bk-1")
	assert.Equal(t, models.SettlementHeld, s.State)
}

func TestAdjustmentApproveAppliesNewAmountOnce(t *testing.T) {
	svc, repo, _, _ := newTestService()
	heldSettlement(t, svc, false)

	require.NoError(t, svc.ProposeAdjustment(context.Background(), "bk-1", 250, "prov-1"))
	s, _ := repo.GetByBookingID(context.Background(), "bk-1")
	assert.Equal(t, models.SettlementAwaitingPriceApproval, s.State)
	assert.Equal(t, 250.0, s.ProposedAmount)

	require.NoError(t, svc.ApproveAdjustment(context.Background(), "bk-1", "user-1"))
	s, _ = repo.GetByBookingID(context.Background(), "bk-1")
	assert.Equal(t, models.SettlementHeld, s.State)
	assert.Equal(t, 250.0, s.Amount)
	assert.True(t, s.PriceAdjusted)

	// Exactly one adjustment per booking.
	err := svc.ProposeAdjustment(context.Background(), "bk-1", 300, "prov-1")
	assert.ErrorIs(t, err, ErrAdjustmentAlreadyApplied)
}

func TestAdjustmentRejectRestoresPriorState(t *testing.T) {
	svc, repo, _, _ := newTestService()
	heldSettlement(t, svc, true)

	require.NoError(t, svc.BeginConsultation(context.Background(), "bk-1", "prov-1"))
	require.NoError(t, svc.ProposeAdjustment(context.Background(), "bk-1", 250, "prov-1"))

	require.NoError(t, svc.RejectAdjustment(context.Background(), "bk-1", "user-1"))
	s, _ := repo.GetByBookingID(context.Background(), "bk-1")
	assert.Equal(t, models.SettlementConsultationPending, s.State)
	assert.Equal(t, 200.0, s.Amount, "rejection keeps the original amount")
	assert.False(t, s.PriceAdjusted, "a rejected proposal does not consume the adjustment")
}

func TestReleaseIsTerminal(t *testing.T) {
	svc, repo, _, _ := newTestService()
	heldSettlement(t, svc, false)

	require.NoError(t, svc.Release(context.Background(), "bk-1", "user-1"))
	s, _ := repo.GetByBookingID(context.Background(), "bk-1")
	assert.Equal(t, models.SettlementReleased, s.State)

	// No transition escapes a terminal state.
	assert.ErrorIs(t, svc.Release(context.Background(), "bk-1", "user-1"), escrowRepo.ErrStateConflict)
	assert.ErrorIs(t, svc.OpenDispute(context.Background(), "bk-1", "user-1", "late"), escrowRepo.ErrStateConflict)
	assert.ErrorIs(t, svc.MarkRefunded(context.Background(), "bk-1", "admin-1", 100), escrowRepo.ErrStateConflict)
}

func TestDisputeResolveRefund(t *testing.T) {
	svc, repo, _, payments := newTestService()
	heldSettlement(t, svc, false)

	require.NoError(t, svc.OpenDispute(context.Background(), "bk-1", "user-1", "work not done"))
	s, _ := repo.GetByBookingID(context.Background(), "bk-1")
	assert.Equal(t, models.SettlementDisputed, s.State)

	// Disputed settlements cannot be released directly.
	assert.ErrorIs(t, svc.Release(context.Background(), "bk-1", "prov-1"), escrowRepo.ErrStateConflict)

	require.NoError(t, svc.ResolveDispute(context.Background(), "bk-1", "admin-1", models.ResolutionRefund, 150))
	s, _ = repo.GetByBookingID(context.Background(), "bk-1")
	assert.Equal(t, models.SettlementRefunded, s.State)
	assert.Equal(t, 150.0, s.RefundAmount)
	assert.Equal(t, []float64{150}, payments.refunds)
}

func TestDisputeResolveRelease(t *testing.T) {
	svc, repo, _, payments := newTestService()
	heldSettlement(t, svc, false)

	require.NoError(t, svc.OpenDispute(context.Background(), "bk-1", "user-1", "quality"))
	require.NoError(t, svc.ResolveDispute(context.Background(), "bk-1", "admin-1", models.ResolutionRelease, 0))

	s, _ := repo.GetByBookingID(context.Background(), "bk-1")
	assert.Equal(t, models.SettlementReleased, s.State)
	assert.Empty(t, payments.refunds)
}

func TestResolveDisputeUnknownResolution(t *testing.T) {
	svc, _, _, _ := newTestService()
	heldSettlement(t, svc, false)
	require.NoError(t, svc.OpenDispute(context.Background(), "bk-1", "user-1", "x"))
	assert.Error(t, svc.ResolveDispute(context.Background(), "bk-1", "admin-1", "split", 50))
}

func TestExpireDueSkipsAlreadyResolved(t *testing.T) {
	svc, repo, timeline, _ := newTestService()
	heldSettlement(t, svc, false)

	booking2 := &models.Booking{ID: "bk-2", TotalPrice: 50, Currency: "usd"}
	_, err := svc.CreateHold(context.Background(), booking2, &models.Invoice{PaymentID: "pi_3"}, false)
	require.NoError(t, err)
	require.NoError(t, svc.Release(context.Background(), "bk-2", "user-2"))

	require.NoError(t, svc.ExpireDue(context.Background()))

	s1, _ := repo.GetByBookingID(context.Background(), "bk-1")
	assert.Equal(t, models.SettlementExpired, s1.State)
	s2, _ := repo.GetByBookingID(context.Background(), "bk-2")
	assert.Equal(t, models.SettlementReleased, s2.State, "released settlements never expire")

	var expiredEvents int
	for _, e := range timeline.events {
		if e.Type == models.EventSettlementExpired {
			expiredEvents++
		}
	}
	assert.Equal(t, 1, expiredEvents)

	// A second sweep finds nothing left to do.
	require.NoError(t, svc.ExpireDue(context.Background()))
}

func TestExpireDueNeverTouchesDisputes(t *testing.T) {
	svc, repo, timeline, _ := newTestService()
	heldSettlement(t, svc, false)
	require.NoError(t, svc.OpenDispute(context.Background(), "bk-1", "user-1", "work not done"))

	// A dispute is frozen for resolution; the sweep must leave it alone
	// no matter how far past expiry it is.
	require.NoError(t, svc.ExpireDue(context.Background()))
	s, _ := repo.GetByBookingID(context.Background(), "bk-1")
	assert.Equal(t, models.SettlementDisputed, s.State)
	for _, e := range timeline.events {
		assert.NotEqual(t, models.EventSettlementExpired, e.Type)
	}

	// Resolution still works after the sweep ran.
	require.NoError(t, svc.ResolveDispute(context.Background(), "bk-1", "admin-1", models.ResolutionRelease, 0))
	s, _ = repo.GetByBookingID(context.Background(), "bk-1")
	assert.Equal(t, models.SettlementReleased, s.State)
}
