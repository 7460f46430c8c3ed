package payment

import (
	"context"
	"time"

	"github.com/yanqian/meteo-burkina/internal/domain/plan"
)

// Status tracks a subscription through the checkout lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Config drives the payment workflows.
type Config struct {
	// Period is how long a completed payment unlocks its tier.
	Period time.Duration
	// PublicBaseURL is used for redirect links when the caller origin is unknown.
	PublicBaseURL string
	Store         Store
}

// Store describes the merchant shown on the checkout page.
type Store struct {
	Name    string `json:"name"`
	Tagline string `json:"tagline,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// Subscription links a user to a paid tier.
type Subscription struct {
	ID           string     `json:"id"`
	UserID       int64      `json:"userId"`
	PlanID       string     `json:"planId"`
	Tier         plan.Tier  `json:"plan"`
	InvoiceToken string     `json:"invoiceToken"`
	Amount       int        `json:"amount"`
	Status       Status     `json:"status"`
	StartsAt     *time.Time `json:"startsAt,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ActiveAt reports whether the subscription unlocks its tier at t.
func (s Subscription) ActiveAt(t time.Time) bool {
	return s.Status == StatusActive && s.ExpiresAt != nil && t.Before(*s.ExpiresAt)
}

// Invoice is the checkout request sent to the payment gateway.
type Invoice struct {
	Amount      int
	Description string
	Store       Store
	CallbackURL string
	CancelURL   string
	ReturnURL   string
	CustomData  InvoiceData
}

// InvoiceData is echoed back by the gateway on confirmation.
type InvoiceData struct {
	PlanType     string `json:"plan_type"`
	UserID       string `json:"user_id"`
	PlanDuration string `json:"plan_duration"`
	Reference    string `json:"reference"`
}

// CheckoutSession is what the gateway returns for a new invoice.
type CheckoutSession struct {
	Token       string
	CheckoutURL string
}

// InvoiceStatus values reported by the gateway.
const (
	InvoiceCompleted = "completed"
	InvoicePending   = "pending"
	InvoiceCancelled = "cancelled"
	InvoiceFailed    = "failed"
)

// InvoiceState is the gateway view of an invoice.
type InvoiceState struct {
	Token  string
	Status string
	Amount int
}

// Gateway talks to the checkout provider.
type Gateway interface {
	CreateInvoice(ctx context.Context, invoice Invoice) (CheckoutSession, error)
	ConfirmInvoice(ctx context.Context, token string) (InvoiceState, error)
}

// Repository persists subscriptions.
type Repository interface {
	Create(ctx context.Context, sub Subscription) (Subscription, error)
	GetByInvoiceToken(ctx context.Context, token string) (Subscription, bool, error)
	// Transition stores sub only while the stored status is still from. It
	// reports false when another writer changed the status first.
	Transition(ctx context.Context, sub Subscription, from Status) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]Subscription, error)
}

// Checkout is returned to the client after an invoice was opened.
type Checkout struct {
	CheckoutURL    string    `json:"checkoutUrl"`
	Token          string    `json:"token"`
	SubscriptionID string    `json:"subscriptionId"`
	Plan           plan.Plan `json:"plan"`
}

// CurrentPlan describes the tier a user is entitled to right now.
type CurrentPlan struct {
	Tier         plan.Tier     `json:"plan"`
	Subscription *Subscription `json:"subscription,omitempty"`
}
