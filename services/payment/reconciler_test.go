package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"tourly/models"
	"tourly/utils"

	"go.uber.org/zap"
)

// --- in-memory fakes ---

// fakeStore implements both BookingRepository and PaymentRepository over the
// same maps, mirroring the shared collections.
type fakeStore struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	payments map[string]*models.Payment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bookings: make(map[string]*models.Booking),
		payments: make(map[string]*models.Payment),
	}
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) FindActiveByListingDate(context.Context, string, string) (*models.Booking, error) {
	return nil, errors.New("not used")
}

func (f *fakeStore) CreateWithPayment(context.Context, *models.Booking, *models.Payment) error {
	return errors.New("not used")
}

func (f *fakeStore) UpdateStatusIf(context.Context, string, []models.BookingStatus, models.BookingStatus) (bool, error) {
	return false, errors.New("not used")
}

func (f *fakeStore) CancelWithPayment(context.Context, string, string) (bool, error) {
	return false, errors.New("not used")
}

func (f *fakeStore) List(context.Context, models.BookingFilter, models.PageOptions) ([]models.Booking, int64, error) {
	return nil, 0, errors.New("not used")
}

// paymentSide adapts fakeStore to the PaymentRepository method set.
type paymentSide struct{ *fakeStore }

func (a paymentSide) GetByID(_ context.Context, id string) (*models.Payment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (a paymentSide) GetByBookingID(_ context.Context, bookingID string) (*models.Payment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range a.payments {
		if p.BookingID == bookingID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (a paymentSide) AttachSession(_ context.Context, paymentID, prevSessionID, sessionID, transactionID string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.payments[paymentID]
	if !ok {
		return false, errors.New("payment not found")
	}
	if p.CheckoutSessionID != prevSessionID {
		return false, nil
	}
	p.CheckoutSessionID = sessionID
	p.TransactionID = transactionID
	return true, nil
}

func (a paymentSide) SetStatus(_ context.Context, paymentID string, status models.PaymentStatus) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.payments[paymentID]
	if !ok {
		return errors.New("payment not found")
	}
	p.Status = status
	return nil
}

func (a paymentSide) MarkPaidWithBooking(_ context.Context, paymentID, bookingID, gatewayRef string, paidAt time.Time) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, pok := a.payments[paymentID]
	b, bok := a.bookings[bookingID]
	if !pok || !bok || p.Status == models.PaymentPaid || b.Status != models.BookingConfirmed {
		return false, nil
	}
	p.Status = models.PaymentPaid
	p.GatewayRef = gatewayRef
	p.PaidAt = &paidAt
	b.Status = models.BookingCompleted
	return true, nil
}

func (a paymentSide) List(_ context.Context, filter models.PaymentFilter, _ models.PageOptions) ([]models.Payment, int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.Payment
	for _, p := range a.payments {
		if filter.TouristID != "" && p.TouristID != filter.TouristID {
			continue
		}
		if filter.GuideID != "" && p.GuideID != filter.GuideID {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

// fakeEventLedger tracks applied webhook event ids in memory.
type fakeEventLedger struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeEventLedger() *fakeEventLedger {
	return &fakeEventLedger{seen: make(map[string]bool)}
}

func (l *fakeEventLedger) Record(_ context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen[eventID] {
		return true, nil
	}
	l.seen[eventID] = true
	return false, nil
}

func (l *fakeEventLedger) Forget(_ context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, eventID)
	return nil
}

// flakyPayments fails MarkPaidWithBooking a configured number of times before
// delegating, and counts delegated applications.
type flakyPayments struct {
	paymentSide
	mu       sync.Mutex
	failures int
	applies  int
}

func (f *flakyPayments) MarkPaidWithBooking(ctx context.Context, paymentID, bookingID, gatewayRef string, paidAt time.Time) (bool, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return false, errors.New("connection reset by peer")
	}
	f.applies++
	f.mu.Unlock()
	return f.paymentSide.MarkPaidWithBooking(ctx, paymentID, bookingID, gatewayRef, paidAt)
}

type fakeListingRepo struct{ listings map[string]*models.Listing }

func (f *fakeListingRepo) GetByID(_ context.Context, id string) (*models.Listing, error) {
	l, ok := f.listings[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

type fakeGateway struct {
	mu         sync.Mutex
	sessions   map[string]*CheckoutSession
	created    int
	lastCreate CreateSessionParams
	createErr  error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: make(map[string]*CheckoutSession)}
}

func (g *fakeGateway) CreateSession(_ context.Context, params CreateSessionParams) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created++
	g.lastCreate = params
	meta := make(map[string]string, len(params.Metadata))
	for k, v := range params.Metadata {
		meta[k] = v
	}
	sess := &CheckoutSession{
		ID:       fmt.Sprintf("cs_test_%03d", g.created),
		URL:      fmt.Sprintf("https://pay.example/%03d", g.created),
		Status:   SessionOpen,
		Metadata: meta,
	}
	g.sessions[sess.ID] = sess
	cp := *sess
	return &cp, nil
}

func (g *fakeGateway) RetrieveSession(_ context.Context, id string) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.sessions[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	cp := *sess
	return &cp, nil
}

func (g *fakeGateway) ExpireSession(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.sessions[id]
	if !ok {
		return errors.New("no such session")
	}
	sess.Status = SessionExpired
	return nil
}

// markPaid simulates the customer completing checkout at the gateway.
func (g *fakeGateway) markPaid(id, ref string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess := g.sessions[id]
	sess.Status = SessionComplete
	sess.Paid = true
	sess.Ref = ref
}

// --- helpers ---

var tourist = models.Caller{ID: "tourist-1", Role: models.RoleTourist}

func newReconciler(store *fakeStore, gw *fakeGateway) *DefaultReconcilerService {
	return &DefaultReconcilerService{
		Bookings: store,
		Payments: paymentSide{store},
		Listings: &fakeListingRepo{listings: map[string]*models.Listing{
			"lst-1": {ID: "lst-1", GuideID: "guide-1", Title: "Old Town Walk", Fee: 100, IsActive: true},
		}},
		Gateway:     gw,
		Logger:      zap.NewNop(),
		FrontendURL: "https://tourly.example",
	}
}

// seedConfirmed installs a CONFIRMED booking with its UNPAID payment.
func seedConfirmed(store *fakeStore) (*models.Booking, *models.Payment) {
	b := &models.Booking{
		ID: "bk-1", ListingID: "lst-1", TouristID: tourist.ID, GuideID: "guide-1",
		Date: "2026-09-10", GroupSize: 2, TotalPrice: 200,
		Status: models.BookingConfirmed, PaymentID: "pm-1",
	}
	p := &models.Payment{
		ID: "pm-1", BookingID: b.ID, TouristID: tourist.ID, GuideID: "guide-1",
		Amount: 200, Currency: "usd", Status: models.PaymentUnpaid, Method: "stripe",
	}
	store.bookings[b.ID] = b
	store.payments[p.ID] = p
	return b, p
}

func wantCode(t *testing.T, err error, code utils.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := utils.CodeOf(err); got != code {
		t.Fatalf("expected code %s, got %s (%v)", code, got, err)
	}
}

// --- tests ---

func TestInitiateCheckout_Guards(t *testing.T) {
	store := newFakeStore()
	seedConfirmed(store)
	svc := newReconciler(store, newFakeGateway())
	ctx := context.Background()

	_, err := svc.InitiateCheckout(ctx, tourist, "missing")
	wantCode(t, err, utils.CodeNotFound)

	stranger := models.Caller{ID: "tourist-9", Role: models.RoleTourist}
	_, err = svc.InitiateCheckout(ctx, stranger, "bk-1")
	wantCode(t, err, utils.CodeForbidden)

	store.bookings["bk-1"].Status = models.BookingPending
	_, err = svc.InitiateCheckout(ctx, tourist, "bk-1")
	wantCode(t, err, utils.CodeInvalidState)

	store.bookings["bk-1"].Status = models.BookingConfirmed
	store.payments["pm-1"].Status = models.PaymentPaid
	_, err = svc.InitiateCheckout(ctx, tourist, "bk-1")
	wantCode(t, err, utils.CodeAlreadyPaid)
}

func TestInitiateCheckout_UsesStoredAmount(t *testing.T) {
	store := newFakeStore()
	booking, pay := seedConfirmed(store)
	gw := newFakeGateway()
	svc := newReconciler(store, gw)

	intent, err := svc.InitiateCheckout(context.Background(), tourist, booking.ID)
	if err != nil {
		t.Fatalf("InitiateCheckout failed: %v", err)
	}
	if intent.CheckoutURL == "" || intent.SessionID == "" {
		t.Fatalf("incomplete intent: %+v", intent)
	}
	if gw.lastCreate.Amount != pay.Amount {
		t.Fatalf("session sized to %v, want stored amount %v", gw.lastCreate.Amount, pay.Amount)
	}
	if gw.lastCreate.Metadata[MetaBookingID] != booking.ID || gw.lastCreate.Metadata[MetaPaymentID] != pay.ID {
		t.Fatalf("session metadata missing correlation ids: %v", gw.lastCreate.Metadata)
	}

	stored, _ := paymentSide{store}.GetByID(context.Background(), pay.ID)
	if stored.CheckoutSessionID != intent.SessionID {
		t.Fatalf("session id not persisted on payment: %q", stored.CheckoutSessionID)
	}
}

func TestInitiateCheckout_IdempotentWhileSessionOpen(t *testing.T) {
	store := newFakeStore()
	booking, _ := seedConfirmed(store)
	gw := newFakeGateway()
	svc := newReconciler(store, gw)
	ctx := context.Background()

	first, err := svc.InitiateCheckout(ctx, tourist, booking.ID)
	if err != nil {
		t.Fatalf("first InitiateCheckout failed: %v", err)
	}
	second, err := svc.InitiateCheckout(ctx, tourist, booking.ID)
	if err != nil {
		t.Fatalf("second InitiateCheckout failed: %v", err)
	}
	if first.SessionID != second.SessionID {
		t.Fatalf("expected same session, got %q and %q", first.SessionID, second.SessionID)
	}
	if gw.created != 1 {
		t.Fatalf("expected a single gateway session, got %d", gw.created)
	}
}

func TestInitiateCheckout_NewSessionAfterExpiry(t *testing.T) {
	store := newFakeStore()
	booking, _ := seedConfirmed(store)
	gw := newFakeGateway()
	svc := newReconciler(store, gw)
	ctx := context.Background()

	first, err := svc.InitiateCheckout(ctx, tourist, booking.ID)
	if err != nil {
		t.Fatalf("first InitiateCheckout failed: %v", err)
	}
	if err := gw.ExpireSession(ctx, first.SessionID); err != nil {
		t.Fatalf("expire failed: %v", err)
	}

	second, err := svc.InitiateCheckout(ctx, tourist, booking.ID)
	if err != nil {
		t.Fatalf("second InitiateCheckout failed: %v", err)
	}
	if second.SessionID == first.SessionID {
		t.Fatalf("expected a fresh session after expiry")
	}
	if gw.created != 2 {
		t.Fatalf("expected two gateway sessions, got %d", gw.created)
	}
}

func TestInitiateCheckout_GatewayDownLeavesStateUntouched(t *testing.T) {
	store := newFakeStore()
	booking, pay := seedConfirmed(store)
	gw := newFakeGateway()
	gw.createErr = errors.New("connection refused")
	svc := newReconciler(store, gw)

	_, err := svc.InitiateCheckout(context.Background(), tourist, booking.ID)
	wantCode(t, err, utils.CodeGatewayUnavailable)
	if !utils.Retryable(err) {
		t.Fatalf("gateway failure must be retryable")
	}

	stored, _ := paymentSide{store}.GetByID(context.Background(), pay.ID)
	if stored.Status != models.PaymentUnpaid || stored.CheckoutSessionID != "" {
		t.Fatalf("payment mutated on gateway failure: %+v", stored)
	}
}

func TestConfirmCheckout_MissingMetadata(t *testing.T) {
	store := newFakeStore()
	seedConfirmed(store)
	gw := newFakeGateway()
	svc := newReconciler(store, gw)
	ctx := context.Background()

	sess, _ := gw.CreateSession(ctx, CreateSessionParams{Amount: 200, Currency: "usd"})
	_, err := svc.ConfirmCheckout(ctx, tourist, sess.ID)
	wantCode(t, err, utils.CodeInvalidInput)
}

func TestConfirmCheckout_UnpaidIsNoOp(t *testing.T) {
	store := newFakeStore()
	booking, _ := seedConfirmed(store)
	gw := newFakeGateway()
	svc := newReconciler(store, gw)
	ctx := context.Background()

	intent, err := svc.InitiateCheckout(ctx, tourist, booking.ID)
	if err != nil {
		t.Fatalf("InitiateCheckout failed: %v", err)
	}

	pay, err := svc.ConfirmCheckout(ctx, tourist, intent.SessionID)
	if err != nil {
		t.Fatalf("ConfirmCheckout failed: %v", err)
	}
	if pay.Status != models.PaymentUnpaid {
		t.Fatalf("expected UNPAID, got %s", pay.Status)
	}
	if store.bookings[booking.ID].Status != models.BookingConfirmed {
		t.Fatalf("booking must stay CONFIRMED on unpaid poll")
	}
}

func TestConfirmCheckout_PaidReconcilesOnce(t *testing.T) {
	store := newFakeStore()
	booking, _ := seedConfirmed(store)
	gw := newFakeGateway()
	svc := newReconciler(store, gw)
	ctx := context.Background()

	intent, err := svc.InitiateCheckout(ctx, tourist, booking.ID)
	if err != nil {
		t.Fatalf("InitiateCheckout failed: %v", err)
	}
	gw.markPaid(intent.SessionID, "pi_123")

	pay, err := svc.ConfirmCheckout(ctx, tourist, intent.SessionID)
	if err != nil {
		t.Fatalf("ConfirmCheckout failed: %v", err)
	}
	if pay.Status != models.PaymentPaid || pay.GatewayRef != "pi_123" || pay.PaidAt == nil {
		t.Fatalf("payment not reconciled: %+v", pay)
	}
	if store.bookings[booking.ID].Status != models.BookingCompleted {
		t.Fatalf("booking not completed")
	}
	firstPaidAt := *pay.PaidAt

	// Second poll is idempotent.
	again, err := svc.ConfirmCheckout(ctx, tourist, intent.SessionID)
	if err != nil {
		t.Fatalf("second ConfirmCheckout failed: %v", err)
	}
	if !again.PaidAt.Equal(firstPaidAt) {
		t.Fatalf("second confirmation mutated the payment")
	}
}

func TestWebhook_CompletedFlow(t *testing.T) {
	store := newFakeStore()
	booking, pay := seedConfirmed(store)
	gw := newFakeGateway()
	svc := newReconciler(store, gw)
	ctx := context.Background()

	intent, err := svc.InitiateCheckout(ctx, tourist, booking.ID)
	if err != nil {
		t.Fatalf("InitiateCheckout failed: %v", err)
	}
	gw.markPaid(intent.SessionID, "pi_123")

	event := WebhookEvent{
		ID:         "evt_1",
		Kind:       EventCheckoutCompleted,
		SessionID:  intent.SessionID,
		BookingID:  booking.ID,
		PaymentID:  pay.ID,
		GatewayRef: "pi_123",
	}
	if err := svc.HandleWebhookEvent(ctx, event); err != nil {
		t.Fatalf("HandleWebhookEvent failed: %v", err)
	}

	if store.bookings[booking.ID].Status != models.BookingCompleted {
		t.Fatalf("booking not completed")
	}
	got := store.payments[pay.ID]
	if got.Status != models.PaymentPaid || got.Amount != 200 {
		t.Fatalf("payment not reconciled: %+v", got)
	}
	firstPaidAt := *got.PaidAt

	// At-least-once delivery: the same event applied again changes nothing.
	if err := svc.HandleWebhookEvent(ctx, event); err != nil {
		t.Fatalf("duplicate HandleWebhookEvent failed: %v", err)
	}
	if !store.payments[pay.ID].PaidAt.Equal(firstPaidAt) {
		t.Fatalf("duplicate event double-applied side effects")
	}
}

func TestWebhook_StaleCompletedEventIsIgnored(t *testing.T) {
	store := newFakeStore()
	booking, pay := seedConfirmed(store)
	store.bookings[booking.ID].Status = models.BookingCancelled
	svc := newReconciler(store, newFakeGateway())

	event := WebhookEvent{ID: "evt_2", Kind: EventCheckoutCompleted, BookingID: booking.ID, PaymentID: pay.ID}
	if err := svc.HandleWebhookEvent(context.Background(), event); err != nil {
		t.Fatalf("stale event should be acknowledged, got %v", err)
	}
	if store.payments[pay.ID].Status != models.PaymentUnpaid {
		t.Fatalf("stale event must not touch the payment")
	}
	if store.bookings[booking.ID].Status != models.BookingCancelled {
		t.Fatalf("stale event must not touch the booking")
	}
}

func TestWebhook_ExpiredKeepsBookingConfirmed(t *testing.T) {
	store := newFakeStore()
	booking, pay := seedConfirmed(store)
	svc := newReconciler(store, newFakeGateway())

	event := WebhookEvent{ID: "evt_3", Kind: EventCheckoutExpired, BookingID: booking.ID, PaymentID: pay.ID}
	if err := svc.HandleWebhookEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleWebhookEvent failed: %v", err)
	}

	if store.payments[pay.ID].Status != models.PaymentFailed {
		t.Fatalf("expected FAILED payment, got %s", store.payments[pay.ID].Status)
	}
	if store.bookings[booking.ID].Status != models.BookingConfirmed {
		t.Fatalf("booking must remain CONFIRMED for retry")
	}
}

func TestWebhook_UnknownKindAcknowledged(t *testing.T) {
	store := newFakeStore()
	booking, pay := seedConfirmed(store)
	svc := newReconciler(store, newFakeGateway())

	event := WebhookEvent{ID: "evt_4", Kind: EventKind("customer.created"), BookingID: booking.ID, PaymentID: pay.ID}
	if err := svc.HandleWebhookEvent(context.Background(), event); err != nil {
		t.Fatalf("unknown kinds must be acknowledged, got %v", err)
	}
	if store.payments[pay.ID].Status != models.PaymentUnpaid {
		t.Fatalf("unknown event must not touch state")
	}
}

func TestSweepSession_SettlesLostWebhook(t *testing.T) {
	store := newFakeStore()
	booking, pay := seedConfirmed(store)
	gw := newFakeGateway()
	svc := newReconciler(store, gw)
	ctx := context.Background()

	intent, err := svc.InitiateCheckout(ctx, tourist, booking.ID)
	if err != nil {
		t.Fatalf("InitiateCheckout failed: %v", err)
	}
	gw.markPaid(intent.SessionID, "pi_456")

	if err := svc.SweepSession(ctx, intent.SessionID); err != nil {
		t.Fatalf("SweepSession failed: %v", err)
	}
	if store.payments[pay.ID].Status != models.PaymentPaid {
		t.Fatalf("sweep should reconcile a paid session")
	}
	if store.bookings[booking.ID].Status != models.BookingCompleted {
		t.Fatalf("sweep should complete the booking")
	}
}

func TestSweepSession_MarksExpiredUnpaidFailed(t *testing.T) {
	store := newFakeStore()
	booking, pay := seedConfirmed(store)
	gw := newFakeGateway()
	svc := newReconciler(store, gw)
	ctx := context.Background()

	intent, err := svc.InitiateCheckout(ctx, tourist, booking.ID)
	if err != nil {
		t.Fatalf("InitiateCheckout failed: %v", err)
	}
	if err := gw.ExpireSession(ctx, intent.SessionID); err != nil {
		t.Fatalf("expire failed: %v", err)
	}

	if err := svc.SweepSession(ctx, intent.SessionID); err != nil {
		t.Fatalf("SweepSession failed: %v", err)
	}
	if store.payments[pay.ID].Status != models.PaymentFailed {
		t.Fatalf("expected FAILED payment after expired sweep, got %s", store.payments[pay.ID].Status)
	}
	if store.bookings[booking.ID].Status != models.BookingConfirmed {
		t.Fatalf("booking must remain CONFIRMED after expired sweep")
	}
}

func TestWebhook_RedeliveryAfterTransientFailure(t *testing.T) {
	store := newFakeStore()
	booking, pay := seedConfirmed(store)
	svc := newReconciler(store, newFakeGateway())
	ledger := newFakeEventLedger()
	svc.Events = ledger
	flaky := &flakyPayments{paymentSide: paymentSide{store}, failures: 1}
	svc.Payments = flaky
	ctx := context.Background()

	event := WebhookEvent{
		ID:         "evt_5",
		Kind:       EventCheckoutCompleted,
		BookingID:  booking.ID,
		PaymentID:  pay.ID,
		GatewayRef: "pi_789",
	}
	if err := svc.HandleWebhookEvent(ctx, event); err == nil {
		t.Fatalf("expected the transient store failure to surface")
	}
	if store.payments[pay.ID].Status != models.PaymentUnpaid {
		t.Fatalf("failed apply must not mutate the payment")
	}

	// The gateway redelivers the same event id; the ledger entry must have
	// been released so the apply actually runs this time.
	if err := svc.HandleWebhookEvent(ctx, event); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if store.payments[pay.ID].Status != models.PaymentPaid {
		t.Fatalf("redelivered event not applied: payment %s", store.payments[pay.ID].Status)
	}
	if store.bookings[booking.ID].Status != models.BookingCompleted {
		t.Fatalf("redelivered event not applied: booking %s", store.bookings[booking.ID].Status)
	}

	// A further duplicate short-circuits on the ledger without reapplying.
	if err := svc.HandleWebhookEvent(ctx, event); err != nil {
		t.Fatalf("duplicate after success failed: %v", err)
	}
	if flaky.applies != 1 {
		t.Fatalf("expected exactly one application, got %d", flaky.applies)
	}
}

// racingPayments sneaks a competing session onto the payment just before the
// caller's attach, simulating an interleaved initiation.
type racingPayments struct {
	paymentSide
	gw     *fakeGateway
	once   sync.Once
	winner string
}

func (r *racingPayments) AttachSession(ctx context.Context, paymentID, prevSessionID, sessionID, transactionID string) (bool, error) {
	r.once.Do(func() {
		sess, _ := r.gw.CreateSession(ctx, CreateSessionParams{Metadata: map[string]string{}})
		r.winner = sess.ID
		r.paymentSide.AttachSession(ctx, paymentID, prevSessionID, sess.ID, "tx-winner")
	})
	return r.paymentSide.AttachSession(ctx, paymentID, prevSessionID, sessionID, transactionID)
}

func TestInitiateCheckout_ConcurrentInitiationsShareOneSession(t *testing.T) {
	store := newFakeStore()
	booking, pay := seedConfirmed(store)
	gw := newFakeGateway()
	svc := newReconciler(store, gw)
	svc.Payments = &racingPayments{paymentSide: paymentSide{store}, gw: gw}
	ctx := context.Background()

	intent, err := svc.InitiateCheckout(ctx, tourist, booking.ID)
	if err != nil {
		t.Fatalf("InitiateCheckout failed: %v", err)
	}

	winner := svc.Payments.(*racingPayments).winner
	if intent.SessionID != winner {
		t.Fatalf("loser must return the winning session, got %q want %q", intent.SessionID, winner)
	}
	if store.payments[pay.ID].CheckoutSessionID != winner {
		t.Fatalf("payment must keep the winning session, got %q", store.payments[pay.ID].CheckoutSessionID)
	}
	for id, sess := range gw.sessions {
		if id != winner && sess.Status != SessionExpired {
			t.Fatalf("losing session %s left open at the gateway", id)
		}
	}
}

func TestListPayments_ScopedByRole(t *testing.T) {
	store := newFakeStore()
	seedConfirmed(store)
	svc := newReconciler(store, newFakeGateway())
	ctx := context.Background()

	_, total, err := svc.ListPayments(ctx, tourist, models.PageOptions{})
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("tourist should see their payment, got %d", total)
	}

	guide := models.Caller{ID: "guide-1", Role: models.RoleGuide}
	_, total, err = svc.ListPayments(ctx, guide, models.PageOptions{})
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("guide should see payments on their listings, got %d", total)
	}

	stranger := models.Caller{ID: "guide-2", Role: models.RoleGuide}
	_, total, err = svc.ListPayments(ctx, stranger, models.PageOptions{})
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("unrelated guide should see nothing, got %d", total)
	}
}
