package paygate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/telehealth-api/pkg/circuitbreaker"
)

// Gateway is the payment gateway boundary. Its validation endpoint is the
// sole source of truth for payment success; raw callback fields are never
// trusted.
type Gateway interface {
	InitiateSession(ctx context.Context, req *SessionRequest) (*SessionResponse, error)
	ValidateTransaction(ctx context.Context, valID string) (*ValidationResponse, error)
}

type Config struct {
	BaseURL       string
	StoreID       string
	StorePassword string
	Timeout       time.Duration
}

type client struct {
	cfg        Config
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
}

func NewClient(cfg Config) Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "payment-gateway",
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
		}),
	}
}

// InitiateSession starts a checkout session and returns the hosted payment
// page URL the payer is redirected to.
func (c *client) InitiateSession(ctx context.Context, req *SessionRequest) (*SessionResponse, error) {
	form := url.Values{}
	form.Set("store_id", c.cfg.StoreID)
	form.Set("store_passwd", c.cfg.StorePassword)
	form.Set("total_amount", strconv.FormatFloat(req.TotalAmount, 'f', 2, 64))
	form.Set("currency", req.Currency)
	form.Set("tran_id", req.TransactionID)
	form.Set("success_url", req.SuccessURL)
	form.Set("fail_url", req.FailURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("ipn_url", req.IPNURL)
	form.Set("product_name", req.ProductName)
	form.Set("product_category", "N/A")
	form.Set("product_profile", "N/A")
	form.Set("shipping_method", "N/A")
	form.Set("cus_name", req.CustomerName)
	form.Set("cus_email", req.CustomerEmail)
	form.Set("cus_add1", req.CustomerAddress)
	form.Set("cus_phone", req.CustomerPhone)

	var resp SessionResponse
	err := c.cb.Execute(func() error {
		return c.postForm(ctx, "/gwprocess/v4/api.php", form, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("gateway session init failed: %w", err)
	}
	if resp.Status != "SUCCESS" || resp.GatewayPageURL == "" {
		return nil, fmt.Errorf("gateway rejected session: %s", resp.FailedReason)
	}
	return &resp, nil
}

// ValidateTransaction confirms a callback against the gateway's validation
// endpoint.
func (c *client) ValidateTransaction(ctx context.Context, valID string) (*ValidationResponse, error) {
	query := url.Values{}
	query.Set("val_id", valID)
	query.Set("store_id", c.cfg.StoreID)
	query.Set("store_passwd", c.cfg.StorePassword)
	query.Set("format", "json")

	endpoint := c.cfg.BaseURL + "/validator/api/validationserverAPI.php?" + query.Encode()

	var resp ValidationResponse
	err := c.cb.Execute(func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		return c.do(httpReq, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("gateway validation failed: %w", err)
	}
	return &resp, nil
}

func (c *client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(httpReq, out)
}

func (c *client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
