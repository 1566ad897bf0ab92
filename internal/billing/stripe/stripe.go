package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/loomsite/loomsite/internal/billing/domain"
	"github.com/loomsite/loomsite/internal/config"
	"go.uber.org/zap"
)

const requestTimeout = 12 * time.Second

// Client drives Stripe Checkout and authenticates Stripe webhooks.
type Client struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	successURL    string
	cancelURL     string
	httpClient    *http.Client
	log           *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) billingdomain.Provider {
	return &Client{
		baseURL:       strings.TrimRight(cfg.PaymentBaseURL, "/"),
		secretKey:     cfg.PaymentSecretKey,
		webhookSecret: cfg.PaymentWebhookSecret,
		successURL:    cfg.CheckoutSuccessURL,
		cancelURL:     cfg.CheckoutCancelURL,
		httpClient:    &http.Client{Timeout: requestTimeout},
		log:           log.Named("billing.stripe"),
	}
}

type checkoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) CreateCheckout(ctx context.Context, tenantID snowflake.ID, planKey string, priceCents int64) (*billingdomain.CheckoutResponse, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("success_url", c.successURL)
	form.Set("cancel_url", c.cancelURL)
	form.Set("client_reference_id", tenantID.String())
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(priceCents, 10))
	form.Set("line_items[0][price_data][recurring][interval]", "month")
	form.Set("line_items[0][price_data][product_data][name]", planKey)
	form.Set("metadata[tenant_id]", tenantID.String())
	form.Set("metadata[plan_key]", planKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 300 {
		var apiErr stripeError
		_ = json.Unmarshal(body, &apiErr)
		c.log.Error("checkout session create failed",
			zap.Int("status", resp.StatusCode),
			zap.String("error_type", apiErr.Error.Type),
			zap.String("message", apiErr.Error.Message),
		)
		return nil, fmt.Errorf("checkout session create returned %d", resp.StatusCode)
	}

	var session checkoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, err
	}
	return &billingdomain.CheckoutResponse{SessionID: session.ID, URL: session.URL}, nil
}

func (c *Client) VerifyWebhook(payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return billingdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return billingdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return billingdomain.ErrInvalidSignature
}

type stripeEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object struct {
			ID                string            `json:"id"`
			ClientReferenceID string            `json:"client_reference_id"`
			Metadata          map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

func (c *Client) ParseWebhook(payload []byte) (*billingdomain.PaymentEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, billingdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, billingdomain.ErrInvalidPayload
	}

	if strings.TrimSpace(event.Type) != "checkout.session.completed" {
		return nil, billingdomain.ErrEventIgnored
	}

	tenantRaw := strings.TrimSpace(event.Data.Object.Metadata["tenant_id"])
	if tenantRaw == "" {
		tenantRaw = strings.TrimSpace(event.Data.Object.ClientReferenceID)
	}
	tenantID, err := snowflake.ParseString(tenantRaw)
	if err != nil || tenantID == 0 {
		return nil, billingdomain.ErrInvalidPayload
	}

	planKey := strings.TrimSpace(event.Data.Object.Metadata["plan_key"])
	if planKey == "" {
		return nil, billingdomain.ErrInvalidPayload
	}

	occurredAt := time.Now().UTC()
	if event.Created > 0 {
		occurredAt = time.Unix(event.Created, 0).UTC()
	}

	return &billingdomain.PaymentEvent{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		Type:            billingdomain.EventTypeCheckoutCompleted,
		TenantID:        tenantID,
		PlanKey:         planKey,
		OccurredAt:      occurredAt,
		RawPayload:      payload,
	}, nil
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}
