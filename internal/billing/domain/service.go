package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrDuplicateEvent   = errors.New("duplicate_event")
	ErrUnknownPlan      = errors.New("unknown_plan")
	ErrFreePlanCheckout = errors.New("free_plan_checkout")
)

// BillingEvent is a processed provider webhook event, stored for idempotency.
type BillingEvent struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	TenantID        snowflake.ID   `json:"tenant_id" gorm:"not null;index"`
	Provider        string         `json:"provider" gorm:"type:text;not null"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	PlanKey         string         `json:"plan_key" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
}

func (BillingEvent) TableName() string { return "billing_events" }

const EventTypeCheckoutCompleted = "checkout_completed"

// PaymentEvent is the canonical event parsed from a provider webhook.
type PaymentEvent struct {
	Provider        string
	ProviderEventID string
	Type            string
	TenantID        snowflake.ID
	PlanKey         string
	OccurredAt      time.Time
	RawPayload      []byte
}

type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// Provider is the hosted-checkout side of the payment integration.
type Provider interface {
	CreateCheckout(ctx context.Context, tenantID snowflake.ID, planKey string, priceCents int64) (*CheckoutResponse, error)
	// VerifyWebhook authenticates an incoming webhook request body.
	VerifyWebhook(payload []byte, headers http.Header) error
	// ParseWebhook maps a raw webhook body to a canonical event, or
	// ErrEventIgnored for event types the platform does not act on.
	ParseWebhook(payload []byte) (*PaymentEvent, error)
}

type Service interface {
	// Checkout starts a hosted checkout session moving the tenant to planKey.
	Checkout(ctx context.Context, tenantID snowflake.ID, planKey string) (*CheckoutResponse, error)
	// HandleWebhook verifies, parses and applies one provider webhook.
	// Replayed events are acknowledged without side effects.
	HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error
}

type Repository interface {
	InsertEvent(ctx context.Context, event *BillingEvent) error
}
