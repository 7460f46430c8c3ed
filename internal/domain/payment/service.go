package payment

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/meteo-burkina/internal/domain/plan"
	apperrors "github.com/yanqian/meteo-burkina/pkg/errors"
	"github.com/yanqian/meteo-burkina/pkg/util"
)

const defaultPeriod = 30 * 24 * time.Hour

// Service manages checkout, subscriptions and the advice paywall.
type Service interface {
	CreateInvoice(ctx context.Context, userID int64, planID, origin string) (Checkout, error)
	Confirm(ctx context.Context, userID int64, token string) (Subscription, error)
	HandleCallback(ctx context.Context, token string) (Subscription, error)
	Current(ctx context.Context, userID int64) (CurrentPlan, error)
	Authorize(ctx context.Context, userID int64, tier plan.Tier) error
}

type service struct {
	cfg     Config
	gateway Gateway
	repo    Repository
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// NewService wires the payment domain.
func NewService(cfg Config, gateway Gateway, repo Repository, logger *slog.Logger) Service {
	if cfg.Period <= 0 {
		cfg.Period = defaultPeriod
	}
	return &service{
		cfg:     cfg,
		gateway: gateway,
		repo:    repo,
		logger:  logger.With("component", "payment.service"),
		now:     util.NowUTC,
		newID:   func() string { return uuid.NewString() },
	}
}

func (s *service) CreateInvoice(ctx context.Context, userID int64, planID, origin string) (Checkout, error) {
	p, ok := plan.Resolve(planID)
	if !ok {
		return Checkout{}, apperrors.Wrap("invalid_input", "unknown plan", nil)
	}
	if !p.Tier.Paid() || p.Amount <= 0 {
		return Checkout{}, apperrors.Wrap("invalid_input", "the free plan does not require payment", nil)
	}
	base, err := s.resolveOrigin(origin)
	if err != nil {
		return Checkout{}, err
	}

	reference := s.newID()
	invoice := Invoice{
		Amount:      p.Amount,
		Description: fmt.Sprintf("Abonnement %s - Conseils Météo", p.Title),
		Store:       s.cfg.Store,
		CallbackURL: base + "/api/payment/webhook",
		CancelURL:   base + "/payment/cancel",
		ReturnURL:   base + "/payment/success?plan=" + url.QueryEscape(p.ID),
		CustomData: InvoiceData{
			PlanType:     string(p.Tier),
			UserID:       strconv.FormatInt(userID, 10),
			PlanDuration: durationLabel(s.cfg.Period),
			Reference:    reference,
		},
	}
	session, err := s.gateway.CreateInvoice(ctx, invoice)
	if err != nil {
		s.logger.Error("invoice creation failed", "userId", userID, "plan", p.ID, "error", err)
		return Checkout{}, apperrors.Wrap("payment_error", "Impossible de créer la facture de paiement", err)
	}
	if strings.TrimSpace(session.CheckoutURL) == "" {
		return Checkout{}, apperrors.Wrap("payment_error", "URL de paiement introuvable", nil)
	}

	now := s.now().UTC()
	sub, err := s.repo.Create(ctx, Subscription{
		ID:           reference,
		UserID:       userID,
		PlanID:       p.ID,
		Tier:         p.Tier,
		InvoiceToken: session.Token,
		Amount:       p.Amount,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Checkout{}, apperrors.Wrap("payment_error", "failed to record subscription", err)
	}
	s.logger.Info("invoice created", "userId", userID, "plan", p.ID, "subscriptionId", sub.ID)
	return Checkout{
		CheckoutURL:    session.CheckoutURL,
		Token:          session.Token,
		SubscriptionID: sub.ID,
		Plan:           p,
	}, nil
}

func (s *service) Confirm(ctx context.Context, userID int64, token string) (Subscription, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Subscription{}, apperrors.Wrap("invalid_input", "invoice token is required", nil)
	}
	sub, found, err := s.repo.GetByInvoiceToken(ctx, token)
	if err != nil {
		return Subscription{}, apperrors.Wrap("payment_error", "failed to load subscription", err)
	}
	if !found || sub.UserID != userID {
		return Subscription{}, apperrors.Wrap("not_found", "invoice not found", nil)
	}
	return s.settle(ctx, sub)
}

// HandleCallback settles an invoice reported by the gateway notification. The
// gateway state is always re-read, so the callback body is never trusted.
func (s *service) HandleCallback(ctx context.Context, token string) (Subscription, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Subscription{}, apperrors.Wrap("invalid_input", "invoice token is required", nil)
	}
	sub, found, err := s.repo.GetByInvoiceToken(ctx, token)
	if err != nil {
		return Subscription{}, apperrors.Wrap("payment_error", "failed to load subscription", err)
	}
	if !found {
		return Subscription{}, apperrors.Wrap("not_found", "invoice not found", nil)
	}
	return s.settle(ctx, sub)
}

func (s *service) settle(ctx context.Context, sub Subscription) (Subscription, error) {
	if sub.Status != StatusPending {
		return sub, nil
	}

	state, err := s.gateway.ConfirmInvoice(ctx, sub.InvoiceToken)
	if err != nil {
		s.logger.Error("invoice confirmation failed", "subscriptionId", sub.ID, "error", err)
		return Subscription{}, apperrors.Wrap("payment_error", "failed to confirm payment", err)
	}

	now := s.now().UTC()
	switch strings.ToLower(state.Status) {
	case InvoiceCompleted:
		if state.Amount > 0 && state.Amount < sub.Amount {
			return Subscription{}, apperrors.Wrap("payment_error", "paid amount does not match the plan", nil)
		}
		expires := now.Add(s.cfg.Period)
		sub.Status = StatusActive
		sub.StartsAt = &now
		sub.ExpiresAt = &expires
	case InvoicePending:
		return sub, nil
	case InvoiceCancelled:
		sub.Status = StatusCancelled
	case InvoiceFailed:
		sub.Status = StatusFailed
	default:
		return Subscription{}, apperrors.Wrap("payment_error", "unexpected invoice status "+state.Status, nil)
	}
	sub.UpdatedAt = now
	stored, err := s.repo.Transition(ctx, sub, StatusPending)
	if err != nil {
		return Subscription{}, apperrors.Wrap("payment_error", "failed to update subscription", err)
	}
	if !stored {
		current, found, err := s.repo.GetByInvoiceToken(ctx, sub.InvoiceToken)
		if err != nil || !found {
			return Subscription{}, apperrors.Wrap("payment_error", "failed to reload subscription", err)
		}
		return current, nil
	}
	s.logger.Info("subscription updated", "subscriptionId", sub.ID, "status", sub.Status)
	return sub, nil
}

func (s *service) Current(ctx context.Context, userID int64) (CurrentPlan, error) {
	best, found, err := s.bestActive(ctx, userID)
	if err != nil {
		return CurrentPlan{}, err
	}
	if !found {
		return CurrentPlan{Tier: plan.TierFree}, nil
	}
	return CurrentPlan{Tier: best.Tier, Subscription: &best}, nil
}

func (s *service) Authorize(ctx context.Context, userID int64, tier plan.Tier) error {
	if !tier.Valid() {
		return apperrors.Wrap("invalid_input", "unknown plan", nil)
	}
	if !tier.Paid() {
		return nil
	}
	best, found, err := s.bestActive(ctx, userID)
	if err != nil {
		return err
	}
	if !found || best.Tier.Rank() < tier.Rank() {
		return apperrors.Wrap("payment_required", "an active subscription is required for this plan", nil)
	}
	return nil
}

func (s *service) bestActive(ctx context.Context, userID int64) (Subscription, bool, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return Subscription{}, false, apperrors.Wrap("payment_error", "failed to load subscriptions", err)
	}
	now := s.now()
	var (
		best  Subscription
		found bool
	)
	for _, sub := range subs {
		if !sub.ActiveAt(now) {
			continue
		}
		if !found || sub.Tier.Rank() > best.Tier.Rank() ||
			(sub.Tier == best.Tier && sub.ExpiresAt.After(*best.ExpiresAt)) {
			best = sub
			found = true
		}
	}
	return best, found, nil
}

func (s *service) resolveOrigin(origin string) (string, error) {
	base := strings.TrimSpace(origin)
	if base == "" {
		base = s.cfg.PublicBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", apperrors.Wrap("invalid_input", "invalid origin", err)
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}

func durationLabel(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days == 30 || days == 31 {
		return "1 month"
	}
	return fmt.Sprintf("%d days", days)
}
