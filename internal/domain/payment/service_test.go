package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/meteo-burkina/internal/domain/plan"
	apperrors "github.com/yanqian/meteo-burkina/pkg/errors"
)

func TestCreateInvoiceBuildsPayload(t *testing.T) {
	gateway := &stubGateway{session: CheckoutSession{Token: "tok_123", CheckoutURL: "https://paydunya.com/checkout/invoice/tok_123"}}
	repo := newMemoryRepo()
	svc := newTestService(gateway, repo)

	checkout, err := svc.CreateInvoice(context.Background(), 7, "plan_premium_001", "https://meteo.example.bf/")
	require.NoError(t, err)
	require.Equal(t, "https://paydunya.com/checkout/invoice/tok_123", checkout.CheckoutURL)
	require.Equal(t, "tok_123", checkout.Token)
	require.Equal(t, plan.TierPremium, checkout.Plan.Tier)

	inv := gateway.lastInvoice
	require.Equal(t, 250, inv.Amount)
	require.Equal(t, "Abonnement Payant - Conseils Météo", inv.Description)
	require.Equal(t, "Conseils Météo App", inv.Store.Name)
	require.Equal(t, "https://meteo.example.bf/api/payment/webhook", inv.CallbackURL)
	require.Equal(t, "https://meteo.example.bf/payment/cancel", inv.CancelURL)
	require.Equal(t, "https://meteo.example.bf/payment/success?plan=plan_premium_001", inv.ReturnURL)
	require.Equal(t, InvoiceData{PlanType: "premium", UserID: "7", PlanDuration: "1 month", Reference: "sub-1"}, inv.CustomData)

	sub, found, err := repo.GetByInvoiceToken(context.Background(), "tok_123")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, StatusPending, sub.Status)
	require.Equal(t, int64(7), sub.UserID)
}

func TestCreateInvoiceRejectsFreeAndUnknownPlans(t *testing.T) {
	gateway := &stubGateway{}
	svc := newTestService(gateway, newMemoryRepo())

	_, err := svc.CreateInvoice(context.Background(), 1, "free", "https://meteo.example.bf")
	require.True(t, apperrors.IsCode(err, "invalid_input"))

	_, err = svc.CreateInvoice(context.Background(), 1, "plan_gold_001", "https://meteo.example.bf")
	require.True(t, apperrors.IsCode(err, "invalid_input"))
	require.Zero(t, gateway.createCalls)
}

func TestCreateInvoiceFallsBackToPublicBaseURL(t *testing.T) {
	gateway := &stubGateway{session: CheckoutSession{Token: "t", CheckoutURL: "https://pay/t"}}
	svc := newTestService(gateway, newMemoryRepo())

	_, err := svc.CreateInvoice(context.Background(), 1, "enterprise", "")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3000/payment/cancel", gateway.lastInvoice.CancelURL)
	require.Equal(t, 450, gateway.lastInvoice.Amount)
}

func TestCreateInvoiceGatewayErrors(t *testing.T) {
	svc := newTestService(&stubGateway{err: errors.New("timeout")}, newMemoryRepo())
	_, err := svc.CreateInvoice(context.Background(), 1, "premium", "https://meteo.example.bf")
	require.True(t, apperrors.IsCode(err, "payment_error"))

	svc = newTestService(&stubGateway{session: CheckoutSession{Token: "t"}}, newMemoryRepo())
	_, err = svc.CreateInvoice(context.Background(), 1, "premium", "https://meteo.example.bf")
	require.True(t, apperrors.IsCode(err, "payment_error"))
}

func TestConfirmActivatesSubscriptionAndUnlocksTier(t *testing.T) {
	gateway := &stubGateway{
		session: CheckoutSession{Token: "tok_1", CheckoutURL: "https://pay/tok_1"},
		state:   InvoiceState{Token: "tok_1", Status: "completed", Amount: 450},
	}
	svc := newTestService(gateway, newMemoryRepo())
	ctx := context.Background()

	require.True(t, apperrors.IsCode(svc.Authorize(ctx, 3, plan.TierPremium), "payment_required"))
	require.NoError(t, svc.Authorize(ctx, 3, plan.TierFree))

	_, err := svc.CreateInvoice(ctx, 3, "enterprise", "https://meteo.example.bf")
	require.NoError(t, err)

	sub, err := svc.Confirm(ctx, 3, "tok_1")
	require.NoError(t, err)
	require.Equal(t, StatusActive, sub.Status)
	require.Equal(t, testNow().Add(30*24*time.Hour), *sub.ExpiresAt)

	require.NoError(t, svc.Authorize(ctx, 3, plan.TierPremium))
	require.NoError(t, svc.Authorize(ctx, 3, plan.TierEnterprise))

	current, err := svc.Current(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, plan.TierEnterprise, current.Tier)

	again, err := svc.Confirm(ctx, 3, "tok_1")
	require.NoError(t, err)
	require.Equal(t, StatusActive, again.Status)
	require.Equal(t, 1, gateway.confirmCalls)
}

func TestConfirmOtherUsersTokenIsNotFound(t *testing.T) {
	gateway := &stubGateway{session: CheckoutSession{Token: "tok_2", CheckoutURL: "https://pay/tok_2"}}
	svc := newTestService(gateway, newMemoryRepo())

	_, err := svc.CreateInvoice(context.Background(), 1, "premium", "https://meteo.example.bf")
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), 2, "tok_2")
	require.True(t, apperrors.IsCode(err, "not_found"))
}

func TestConfirmCancelledAndPending(t *testing.T) {
	gateway := &stubGateway{
		session: CheckoutSession{Token: "tok_3", CheckoutURL: "https://pay/tok_3"},
		state:   InvoiceState{Status: "pending"},
	}
	svc := newTestService(gateway, newMemoryRepo())
	ctx := context.Background()
	_, err := svc.CreateInvoice(ctx, 5, "premium", "https://meteo.example.bf")
	require.NoError(t, err)

	sub, err := svc.Confirm(ctx, 5, "tok_3")
	require.NoError(t, err)
	require.Equal(t, StatusPending, sub.Status)

	gateway.state = InvoiceState{Status: "cancelled"}
	sub, err = svc.Confirm(ctx, 5, "tok_3")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, sub.Status)
	require.True(t, apperrors.IsCode(svc.Authorize(ctx, 5, plan.TierPremium), "payment_required"))
}

func TestHandleCallbackSettlesWithoutUser(t *testing.T) {
	gateway := &stubGateway{
		session: CheckoutSession{Token: "tok_4", CheckoutURL: "https://pay/tok_4"},
		state:   InvoiceState{Token: "tok_4", Status: "completed", Amount: 250},
	}
	svc := newTestService(gateway, newMemoryRepo())
	ctx := context.Background()
	_, err := svc.CreateInvoice(ctx, 8, "premium", "https://meteo.example.bf")
	require.NoError(t, err)

	sub, err := svc.HandleCallback(ctx, "tok_4")
	require.NoError(t, err)
	require.Equal(t, StatusActive, sub.Status)
	require.NoError(t, svc.Authorize(ctx, 8, plan.TierPremium))

	_, err = svc.HandleCallback(ctx, "unknown")
	require.True(t, apperrors.IsCode(err, "not_found"))
	_, err = svc.HandleCallback(ctx, " ")
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}

func TestConcurrentSettleKeepsFirstActivation(t *testing.T) {
	gateway := &stubGateway{
		session: CheckoutSession{Token: "tok_6", CheckoutURL: "https://pay/tok_6"},
		state:   InvoiceState{Token: "tok_6", Status: "completed", Amount: 250},
	}
	repo := newMemoryRepo()
	svc := newTestService(gateway, repo)
	ctx := context.Background()
	_, err := svc.CreateInvoice(ctx, 5, "premium", "")
	require.NoError(t, err)

	winnerExpiry := testNow().Add(time.Hour)
	gateway.onConfirm = func() {
		pending, _, _ := repo.GetByInvoiceToken(ctx, "tok_6")
		winner := pending
		winner.Status = StatusActive
		winner.StartsAt = &pending.CreatedAt
		winner.ExpiresAt = &winnerExpiry
		ok, err := repo.Transition(ctx, winner, StatusPending)
		require.NoError(t, err)
		require.True(t, ok)
	}

	sub, err := svc.Confirm(ctx, 5, "tok_6")
	require.NoError(t, err)
	require.Equal(t, StatusActive, sub.Status)
	require.Equal(t, winnerExpiry, *sub.ExpiresAt)

	stored, _, _ := repo.GetByInvoiceToken(ctx, "tok_6")
	require.Equal(t, winnerExpiry, *stored.ExpiresAt)
}

func TestConfirmRejectsUnderpayment(t *testing.T) {
	gateway := &stubGateway{
		session: CheckoutSession{Token: "tok_5", CheckoutURL: "https://pay/tok_5"},
		state:   InvoiceState{Status: "completed", Amount: 100},
	}
	svc := newTestService(gateway, newMemoryRepo())
	ctx := context.Background()
	_, err := svc.CreateInvoice(ctx, 2, "premium", "")
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, 2, "tok_5")
	require.True(t, apperrors.IsCode(err, "payment_error"))
}

func TestAuthorizeRespectsRankAndExpiry(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(&stubGateway{}, repo)
	expired := testNow().Add(-time.Hour)
	valid := testNow().Add(time.Hour)
	_, _ = repo.Create(context.Background(), Subscription{ID: "a", UserID: 9, Tier: plan.TierEnterprise, Status: StatusActive, ExpiresAt: &expired})
	_, _ = repo.Create(context.Background(), Subscription{ID: "b", UserID: 9, Tier: plan.TierPremium, Status: StatusActive, ExpiresAt: &valid})

	require.NoError(t, svc.Authorize(context.Background(), 9, plan.TierPremium))
	require.True(t, apperrors.IsCode(svc.Authorize(context.Background(), 9, plan.TierEnterprise), "payment_required"))
	require.True(t, apperrors.IsCode(svc.Authorize(context.Background(), 9, plan.Tier("gold")), "invalid_input"))
}

func testNow() time.Time {
	return time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)
}

func newTestService(gateway Gateway, repo Repository) *service {
	seq := 0
	return &service{
		cfg: Config{
			Period:        30 * 24 * time.Hour,
			PublicBaseURL: "http://localhost:3000",
			Store:         Store{Name: "Conseils Météo App", Tagline: "Vos conseils météo personnalisés"},
		},
		gateway: gateway,
		repo:    repo,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     testNow,
		newID: func() string {
			seq++
			return "sub-" + string(rune('0'+seq))
		},
	}
}

type stubGateway struct {
	session      CheckoutSession
	state        InvoiceState
	err          error
	lastInvoice  Invoice
	createCalls  int
	confirmCalls int
	onConfirm    func()
}

func (g *stubGateway) CreateInvoice(_ context.Context, invoice Invoice) (CheckoutSession, error) {
	g.createCalls++
	g.lastInvoice = invoice
	return g.session, g.err
}

func (g *stubGateway) ConfirmInvoice(_ context.Context, _ string) (InvoiceState, error) {
	g.confirmCalls++
	if g.onConfirm != nil {
		g.onConfirm()
	}
	return g.state, g.err
}

type memoryRepo struct {
	mu   sync.Mutex
	subs map[string]Subscription
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{subs: make(map[string]Subscription)}
}

func (m *memoryRepo) Create(_ context.Context, sub Subscription) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ID] = sub
	return sub, nil
}

func (m *memoryRepo) GetByInvoiceToken(_ context.Context, token string) (Subscription, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs {
		if sub.InvoiceToken == token {
			return sub, true, nil
		}
	}
	return Subscription{}, false, nil
}

func (m *memoryRepo) Transition(_ context.Context, sub Subscription, from Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.subs[sub.ID]
	if !ok {
		return false, ErrSubscriptionNotFound
	}
	if stored.Status != from {
		return false, nil
	}
	m.subs[sub.ID] = sub
	return true, nil
}

func (m *memoryRepo) ListByUser(_ context.Context, userID int64) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Subscription
	for _, sub := range m.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}
