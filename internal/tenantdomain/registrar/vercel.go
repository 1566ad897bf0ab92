package registrar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/loomsite/loomsite/internal/config"
	"go.uber.org/zap"
)

// vercelDomain is the subset of the provider's domain resource we rely on.
// Only explicit boolean fields are consulted; absent fields default to the
// conservative value.
type vercelDomain struct {
	Name          string `json:"name"`
	ApexName      string `json:"apexName"`
	Verified      bool   `json:"verified"`
	Misconfigured *bool  `json:"misconfigured,omitempty"`
	SSL           struct {
		State string `json:"state"`
	} `json:"ssl"`
}

type vercelErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type vercelClient struct {
	baseURL   string
	token     string
	projectID string
	teamID    string
	log       *zap.Logger
	client    *http.Client
}

// NewVercelClient builds the production Registrar against the hosting
// platform's project-domains API.
func NewVercelClient(cfg config.Config, log *zap.Logger) Registrar {
	return &vercelClient{
		baseURL:   strings.TrimRight(cfg.RegistrarBaseURL, "/"),
		token:     cfg.RegistrarToken,
		projectID: cfg.RegistrarProjectID,
		teamID:    cfg.RegistrarTeamID,
		log:       log.Named("registrar.vercel"),
		client:    &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *vercelClient) Attach(ctx context.Context, domain string) error {
	body := strings.NewReader(fmt.Sprintf(`{"name":%q}`, domain))
	resp, err := c.doRequest(ctx, http.MethodPost, "/v10/projects/"+url.PathEscape(c.projectID)+"/domains", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < http.StatusBadRequest:
		return nil
	case resp.StatusCode == http.StatusConflict:
		// Already attached to this project; idempotent success.
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return c.hardFailure("attach", domain, resp)
	}
}

func (c *vercelClient) Status(ctx context.Context, domain string) (AttachmentStatus, error) {
	resp, err := c.doRequest(ctx, http.MethodGet,
		"/v9/projects/"+url.PathEscape(c.projectID)+"/domains/"+url.PathEscape(domain), nil)
	if err != nil {
		return AttachmentStatus{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return AttachmentStatus{}, ErrNotAttached
	case resp.StatusCode == http.StatusTooManyRequests:
		return AttachmentStatus{}, ErrRateLimited
	case resp.StatusCode >= http.StatusBadRequest:
		return AttachmentStatus{}, c.hardFailure("status", domain, resp)
	}

	var record vercelDomain
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return AttachmentStatus{}, fmt.Errorf("%w: decode status: %v", ErrHardFailure, err)
	}

	configured := record.Verified
	if record.Misconfigured != nil && *record.Misconfigured {
		configured = false
	}
	ssl := strings.ToLower(strings.TrimSpace(record.SSL.State))
	if ssl == "" {
		ssl = "pending"
	}
	return AttachmentStatus{Configured: configured, SSL: ssl}, nil
}

func (c *vercelClient) Detach(ctx context.Context, domain string) error {
	resp, err := c.doRequest(ctx, http.MethodDelete,
		"/v9/projects/"+url.PathEscape(c.projectID)+"/domains/"+url.PathEscape(domain), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < http.StatusBadRequest:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		// Already gone; idempotent success.
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return c.hardFailure("detach", domain, resp)
	}
}

func (c *vercelClient) doRequest(ctx context.Context, method, path string, body *strings.Reader) (*http.Response, error) {
	if strings.TrimSpace(c.token) == "" || strings.TrimSpace(c.projectID) == "" {
		return nil, fmt.Errorf("%w: registrar credentials not configured", ErrHardFailure)
	}

	endpoint := c.baseURL + path
	if c.teamID != "" {
		endpoint += "?teamId=" + url.QueryEscape(c.teamID)
	}

	var reader *strings.Reader
	if body != nil {
		reader = body
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHardFailure, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHardFailure, err)
	}
	return resp, nil
}

func (c *vercelClient) hardFailure(op, domain string, resp *http.Response) error {
	var provider vercelErrorResponse
	code := ""
	message := ""
	if err := json.NewDecoder(resp.Body).Decode(&provider); err == nil {
		code = strings.TrimSpace(provider.Error.Code)
		message = strings.TrimSpace(provider.Error.Message)
	}
	c.log.Warn("registrar request failed",
		zap.String("op", op),
		zap.String("domain", domain),
		zap.Int("status", resp.StatusCode),
		zap.String("provider_code", code),
	)
	if message == "" {
		message = fmt.Sprintf("http %d", resp.StatusCode)
	}
	return fmt.Errorf("%w: %s: %s", ErrHardFailure, op, message)
}
