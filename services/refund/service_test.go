package refund

import (
	"context"
	"fmt"
	"testing"
	"time"

	escrowRepo "servana/database/repository/escrow"
	refundRepo "servana/database/repository/refund"
	"servana/models"
	"servana/services/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeRefundRepo struct {
	requests map[string]*models.RefundRequest
	queue    map[string]*models.RefundQueueItem
	nextID   int
}

func newFakeRefundRepo() *fakeRefundRepo {
	return &fakeRefundRepo{
		requests: make(map[string]*models.RefundRequest),
		queue:    make(map[string]*models.RefundQueueItem),
	}
}

func (f *fakeRefundRepo) CreateRequest(ctx context.Context, req *models.RefundRequest) error {
	for _, r := range f.requests {
		if r.BookingID == req.BookingID && r.Status == models.RefundStatusPending {
			return refundRepo.ErrOpenRequestExists
		}
	}
	f.nextID++
	req.ID = fmt.Sprintf("req-%d", f.nextID)
	req.Status = models.RefundStatusPending
	clone := *req
	f.requests[req.ID] = &clone
	return nil
}

func (f *fakeRefundRepo) GetRequestByID(ctx context.Context, id string) (*models.RefundRequest, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, fmt.Errorf("request %s not found", id)
	}
	clone := *r
	return &clone, nil
}

func (f *fakeRefundRepo) GetOpenRequestByBooking(ctx context.Context, bookingID string) (*models.RefundRequest, error) {
	for _, r := range f.requests {
		if r.BookingID == bookingID && r.Status == models.RefundStatusPending {
			clone := *r
			return &clone, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeRefundRepo) ResolveRequest(ctx context.Context, requestID, toStatus, approvedBy string) error {
	r, ok := f.requests[requestID]
	if !ok || r.Status != models.RefundStatusPending {
		return refundRepo.ErrRequestResolved
	}
	r.Status = toStatus
	r.ApprovedBy = approvedBy
	return nil
}

func (f *fakeRefundRepo) ListPendingRequests(ctx context.Context) ([]models.RefundRequest, error) {
	var out []models.RefundRequest
	for _, r := range f.requests {
		if r.Status == models.RefundStatusPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRefundRepo) EnqueueRetry(ctx context.Context, item *models.RefundQueueItem) error {
	f.nextID++
	item.ID = fmt.Sprintf("q-%d", f.nextID)
	item.Status = models.QueueStatusQueued
	clone := *item
	f.queue[item.ID] = &clone
	return nil
}

func (f *fakeRefundRepo) RecordAttempt(ctx context.Context, itemID, lastError string) error {
	item, ok := f.queue[itemID]
	if !ok {
		return fmt.Errorf("queue item %s not found", itemID)
	}
	if item.Attempts >= item.MaxAttempts {
		return refundRepo.ErrMaxAttemptsReached
	}
	item.Attempts++
	item.LastError = lastError
	return nil
}

func (f *fakeRefundRepo) CompleteQueueItem(ctx context.Context, itemID string) error {
	f.queue[itemID].Status = models.QueueStatusCompleted
	return nil
}

func (f *fakeRefundRepo) EscalateQueueItem(ctx context.Context, itemID string) error {
	f.queue[itemID].Status = models.QueueStatusEscalated
	return nil
}

func (f *fakeRefundRepo) ListQueuedItems(ctx context.Context) ([]models.RefundQueueItem, error) {
	var out []models.RefundQueueItem
	for _, item := range f.queue {
		if item.Status == models.QueueStatusQueued {
			out = append(out, *item)
		}
	}
	return out, nil
}

type fakeBookingStore struct {
	bookings map[string]*models.Booking
	events   []models.TimelineEvent
}

func newFakeBookingStore(bookings ...*models.Booking) *fakeBookingStore {
	store := &fakeBookingStore{bookings: make(map[string]*models.Booking)}
	for _, b := range bookings {
		clone := *b
		store.bookings[b.ID] = &clone
	}
	return store
}

func (f *fakeBookingStore) CreateBooking(ctx context.Context, b *models.Booking) error { return nil }
func (f *fakeBookingStore) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s not found", id)
	}
	clone := *b
	return &clone, nil
}
func (f *fakeBookingStore) UpdateBookingStatus(ctx context.Context, id, from, to string) error {
	b, ok := f.bookings[id]
	if !ok || b.Status != from {
		return fmt.Errorf("status conflict for %s", id)
	}
	b.Status = to
	return nil
}
func (f *fakeBookingStore) GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	return nil, nil
}
func (f *fakeBookingStore) AppendTimelineEvent(ctx context.Context, e *models.TimelineEvent) error {
	f.events = append(f.events, *e)
	return nil
}
func (f *fakeBookingStore) GetTimeline(ctx context.Context, bookingID string) ([]models.TimelineEvent, error) {
	return f.events, nil
}
func (f *fakeBookingStore) CreateSeries(ctx context.Context, s *models.RecurringSeries) error {
	return nil
}
func (f *fakeBookingStore) GetSeriesByID(ctx context.Context, id string) (*models.RecurringSeries, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeBookingStore) GetDueSeries(ctx context.Context, date string) ([]models.RecurringSeries, error) {
	return nil, nil
}
func (f *fakeBookingStore) AdvanceSeries(ctx context.Context, id, nextDate string) error { return nil }
func (f *fakeBookingStore) SetSeriesActive(ctx context.Context, id string, active bool, nextDate string) error {
	return nil
}

type fakeSlots struct {
	released []string
}

func (f *fakeSlots) TryReserve(ctx context.Context, slot *models.ReservedSlot) error { return nil }
func (f *fakeSlots) TryReserveRange(ctx context.Context, providerID, bookingID, date string, start, end int) error {
	return nil
}
func (f *fakeSlots) Confirm(ctx context.Context, bookingID string) error { return nil }
func (f *fakeSlots) Release(ctx context.Context, bookingID string) error {
	f.released = append(f.released, bookingID)
	return nil
}
func (f *fakeSlots) GetActiveByProviderAndDate(ctx context.Context, providerID, date string) ([]models.ReservedSlot, error) {
	return nil, nil
}

type fakeEscrowStore struct {
	settlements map[string]*models.EscrowSettlement
}

func (f *fakeEscrowStore) Create(ctx context.Context, s *models.EscrowSettlement) error { return nil }
func (f *fakeEscrowStore) GetByBookingID(ctx context.Context, bookingID string) (*models.EscrowSettlement, error) {
	s, ok := f.settlements[bookingID]
	if !ok {
		return nil, fmt.Errorf("settlement not found for booking %s", bookingID)
	}
	clone := *s
	return &clone, nil
}
func (f *fakeEscrowStore) Transition(ctx context.Context, settlementID string, fromStates []string, toState string, set bson.M) error {
	return nil
}
func (f *fakeEscrowStore) ListExpiredPending(ctx context.Context) ([]models.EscrowSettlement, error) {
	return nil, nil
}

// fakeSettlementService only tracks MarkRefunded; the other transitions
// are irrelevant to refund resolution.
type fakeSettlementService struct {
	refunded  map[string]float64
	refundErr error
}

func (f *fakeSettlementService) MarkRefunded(ctx context.Context, bookingID, actor string, amount float64) error {
	if f.refundErr != nil {
		return f.refundErr
	}
	if f.refunded == nil {
		f.refunded = make(map[string]float64)
	}
	f.refunded[bookingID] = amount
	return nil
}

func (f *fakeSettlementService) CreateHold(ctx context.Context, booking *models.Booking, invoice *models.Invoice, consultationRequired bool) (*models.EscrowSettlement, error) {
	return nil, nil
}
func (f *fakeSettlementService) BeginConsultation(ctx context.Context, bookingID, actor string) error {
	return nil
}
func (f *fakeSettlementService) CompleteConsultation(ctx context.Context, bookingID, actor string) error {
	return nil
}
func (f *fakeSettlementService) ProposeAdjustment(ctx context.Context, bookingID string, newAmount float64, actor string) error {
	return nil
}
func (f *fakeSettlementService) ApproveAdjustment(ctx context.Context, bookingID, actor string) error {
	return nil
}
func (f *fakeSettlementService) RejectAdjustment(ctx context.Context, bookingID, actor string) error {
	return nil
}
func (f *fakeSettlementService) Release(ctx context.Context, bookingID, actor string) error {
	return nil
}
func (f *fakeSettlementService) OpenDispute(ctx context.Context, bookingID, actor, reason string) error {
	return nil
}
func (f *fakeSettlementService) ResolveDispute(ctx context.Context, bookingID, actor, resolutionType string, refundAmount float64) error {
	return nil
}
func (f *fakeSettlementService) ExpireDue(ctx context.Context) error { return nil }

type fakeProcessor struct {
	refunds  []float64
	failures int
}

func (f *fakeProcessor) Capture(ctx context.Context, req models.CaptureRequest) (*models.Invoice, error) {
	return &models.Invoice{PaymentID: "pi_test", Status: "paid"}, nil
}

func (f *fakeProcessor) Refund(ctx context.Context, paymentRef string, amount float64, currency, idempotencyKey string) error {
	if f.failures > 0 {
		f.failures--
		return fmt.Errorf("processor unavailable")
	}
	f.refunds = append(f.refunds, amount)
	return nil
}

func newRefundTestService(booking *models.Booking) (*DefaultRefundService, *fakeRefundRepo, *fakeBookingStore, *fakeSlots, *fakeSettlementService, *fakeProcessor) {
	refunds := newFakeRefundRepo()
	bookings := newFakeBookingStore(booking)
	slots := &fakeSlots{}
	settlement := &fakeSettlementService{}
	processor := &fakeProcessor{}
	escrowStore := &fakeEscrowStore{settlements: map[string]*models.EscrowSettlement{
		booking.ID: {ID: "set-1", BookingID: booking.ID, PaymentRef: "pi_test", Currency: "usd"},
	}}

	svc := &DefaultRefundService{
		Refunds:    refunds,
		Bookings:   bookings,
		Slots:      slots,
		Escrow:     escrowStore,
		Settlement: settlement,
		Payments:   processor,
		Notify:     notification.NoopNotificationService{},
	}
	return svc, refunds, bookings, slots, settlement, processor
}

func futureBooking() *models.Booking {
	return &models.Booking{
		ID:         "bk-1",
		UserID:     "user-1",
		ProviderID: "prov-1",
		Date:       "2099-06-01",
		TotalPrice: 200,
		Currency:   "usd",
		Status:     models.BookingStatusConfirmed,
	}
}

func TestSubmitRefundRequestCancelsBookingAndFreesSlots(t *testing.T) {
	svc, _, bookings, slots, _, _ := newRefundTestService(futureBooking())

	request, err := svc.SubmitRefundRequest(context.Background(), "bk-1", "user-1", "change of plans")
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusPending, request.Status)
	assert.Equal(t, 100, request.Percentage)
	assert.Equal(t, 200.0, request.Amount)

	b, err := bookings.GetBookingByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, b.Status)
	assert.Equal(t, []string{"bk-1"}, slots.released)

	var types []string
	for _, e := range bookings.events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, models.EventRefundRequested)
	assert.Contains(t, types, models.EventBookingCancelled)
}

func TestSubmitRefundRequestRejectsSecondRequest(t *testing.T) {
	svc, _, _, _, _, _ := newRefundTestService(futureBooking())

	_, err := svc.SubmitRefundRequest(context.Background(), "bk-1", "user-1", "first")
	require.NoError(t, err)

	_, err = svc.SubmitRefundRequest(context.Background(), "bk-1", "user-1", "second")
	require.Error(t, err)
	var notEligible *ErrNotEligible
	assert.ErrorAs(t, err, &notEligible)
}

func TestSubmitRefundRequestIneligibleSameDay(t *testing.T) {
	booking := futureBooking()
	booking.Date = time.Now().Format("2006-01-02")
	svc, refunds, bookings, _, _, _ := newRefundTestService(booking)

	_, err := svc.SubmitRefundRequest(context.Background(), "bk-1", "user-1", "too late")
	var notEligible *ErrNotEligible
	require.ErrorAs(t, err, &notEligible)

	// Nothing changed.
	assert.Empty(t, refunds.requests)
	b, _ := bookings.GetBookingByID(context.Background(), "bk-1")
	assert.Equal(t, models.BookingStatusConfirmed, b.Status)
}

func TestApproveRefundPaysOutAndMarksSettlement(t *testing.T) {
	svc, refunds, _, _, settlement, processor := newRefundTestService(futureBooking())

	request, err := svc.SubmitRefundRequest(context.Background(), "bk-1", "user-1", "cancel")
	require.NoError(t, err)

	require.NoError(t, svc.ApproveRefund(context.Background(), request.ID, "admin-1"))
	resolved, err := refunds.GetRequestByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusCompleted, resolved.Status)
	assert.Equal(t, "admin-1", resolved.ApprovedBy)
	assert.Equal(t, 200.0, settlement.refunded["bk-1"])
	assert.Equal(t, []float64{200}, processor.refunds)
	assert.Empty(t, refunds.queue)
}

func TestApproveRefundKeepsRequestPendingOnSettlementConflict(t *testing.T) {
	svc, refunds, _, _, settlement, processor := newRefundTestService(futureBooking())

	request, err := svc.SubmitRefundRequest(context.Background(), "bk-1", "user-1", "cancel")
	require.NoError(t, err)

	// The settlement was released (or expired) between submit and approve;
	// the request must stay Pending so it can still be resolved, never end
	// up Completed with no funds moved.
	settlement.refundErr = escrowRepo.ErrStateConflict
	err = svc.ApproveRefund(context.Background(), request.ID, "admin-1")
	assert.ErrorIs(t, err, escrowRepo.ErrStateConflict)

	stored, err := refunds.GetRequestByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusPending, stored.Status)
	assert.Empty(t, processor.refunds)
	assert.Empty(t, refunds.queue)

	// Rejection still closes it cleanly afterwards.
	require.NoError(t, svc.RejectRefund(context.Background(), request.ID, "admin-1"))
}

func TestApproveRefundTwiceConflicts(t *testing.T) {
	svc, _, _, _, _, _ := newRefundTestService(futureBooking())

	request, err := svc.SubmitRefundRequest(context.Background(), "bk-1", "user-1", "cancel")
	require.NoError(t, err)

	require.NoError(t, svc.ApproveRefund(context.Background(), request.ID, "admin-1"))
	err = svc.ApproveRefund(context.Background(), request.ID, "admin-2")
	assert.ErrorIs(t, err, refundRepo.ErrRequestResolved)
}

func TestRejectRefundClosesRequestUnpaid(t *testing.T) {
	svc, refunds, _, _, settlement, processor := newRefundTestService(futureBooking())

	request, err := svc.SubmitRefundRequest(context.Background(), "bk-1", "user-1", "cancel")
	require.NoError(t, err)

	require.NoError(t, svc.RejectRefund(context.Background(), request.ID, "admin-1"))
	resolved, err := refunds.GetRequestByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusFailed, resolved.Status)
	assert.Empty(t, processor.refunds)
	assert.Nil(t, settlement.refunded)

	// Resolution is final in either direction.
	assert.ErrorIs(t, svc.ApproveRefund(context.Background(), request.ID, "admin-2"), refundRepo.ErrRequestResolved)
}

func TestApproveRefundQueuesRetryOnProcessorFailure(t *testing.T) {
	svc, refunds, _, _, settlement, processor := newRefundTestService(futureBooking())
	processor.failures = 1

	request, err := svc.SubmitRefundRequest(context.Background(), "bk-1", "user-1", "cancel")
	require.NoError(t, err)

	// Approval itself succeeds; the processor failure lands in the queue.
	require.NoError(t, svc.ApproveRefund(context.Background(), request.ID, "admin-1"))
	assert.Equal(t, 200.0, settlement.refunded["bk-1"])
	require.Len(t, refunds.queue, 1)

	// The next sweep finds a recovered processor and completes the item.
	require.NoError(t, svc.RetryQueued(context.Background()))
	assert.Equal(t, []float64{200}, processor.refunds)
	for _, item := range refunds.queue {
		assert.Equal(t, models.QueueStatusCompleted, item.Status)
	}
}

func TestRetryQueuedEscalatesAfterMaxAttempts(t *testing.T) {
	svc, refunds, _, _, _, processor := newRefundTestService(futureBooking())
	processor.failures = 100 // never recovers

	request, err := svc.SubmitRefundRequest(context.Background(), "bk-1", "user-1", "cancel")
	require.NoError(t, err)
	require.NoError(t, svc.ApproveRefund(context.Background(), request.ID, "admin-1"))
	require.Len(t, refunds.queue, 1)
	for _, item := range refunds.queue {
		item.MaxAttempts = 3
	}

	// Three sweeps burn the attempt budget; the fourth escalates.
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RetryQueued(context.Background()))
	}
	for _, item := range refunds.queue {
		assert.Equal(t, models.QueueStatusQueued, item.Status)
		assert.Equal(t, 3, item.Attempts)
	}

	require.NoError(t, svc.RetryQueued(context.Background()))
	for _, item := range refunds.queue {
		assert.Equal(t, models.QueueStatusEscalated, item.Status)
	}
	assert.Empty(t, processor.refunds)
}
