package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkvend/vendbot/internal/domain/payment"
)

const (
	DefaultBaseURL = "https://api.yookassa.ru/v3"

	defaultTimeout = 15 * time.Second
	currency       = "RUB"
)

// Client talks to the YooKassa payments API with fixed-credential basic
// auth. Every creation call carries a fresh idempotence key: a retried
// creation mints a new payment at the gateway, and deduplication happens
// locally via the one-order-per-payment-ref constraint.
type Client struct {
	shopID    string
	secretKey string
	baseURL   string
	returnURL string
	httpc     *http.Client
}

type Config struct {
	ShopID    string
	SecretKey string
	// BaseURL overrides the production API endpoint, mainly for tests.
	BaseURL   string
	ReturnURL string
	Timeout   time.Duration
}

func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		shopID:    cfg.ShopID,
		secretKey: cfg.SecretKey,
		baseURL:   baseURL,
		returnURL: cfg.ReturnURL,
		httpc:     &http.Client{Timeout: timeout},
	}
}

type createRequest struct {
	Amount       amountBody       `json:"amount"`
	Confirmation confirmationBody `json:"confirmation"`
	Capture      bool             `json:"capture"`
	Description  string           `json:"description"`
}

type amountBody struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type confirmationBody struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type paymentResponse struct {
	ID           string           `json:"id"`
	Status       string           `json:"status"`
	Paid         bool             `json:"paid"`
	Amount       amountBody       `json:"amount"`
	Confirmation confirmationBody `json:"confirmation"`
}

func (c *Client) CreatePayment(ctx context.Context, amount decimal.Decimal, description string) (*payment.Creation, error) {
	body, err := json.Marshal(createRequest{
		Amount: amountBody{Value: amount.StringFixed(2), Currency: currency},
		Confirmation: confirmationBody{
			Type:      "redirect",
			ReturnURL: c.returnURL,
		},
		Capture:     true,
		Description: description,
	})
	if err != nil {
		return nil, fmt.Errorf("yookassa: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("yookassa: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", uuid.NewString())
	req.SetBasicAuth(c.shopID, c.secretKey)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	return &payment.Creation{
		PaymentRef:  resp.ID,
		RedirectURL: resp.Confirmation.ConfirmationURL,
		Status:      payment.GatewayStatus(resp.Status),
	}, nil
}

func (c *Client) PaymentStatus(ctx context.Context, ref string) (*payment.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/"+ref, nil)
	if err != nil {
		return nil, fmt.Errorf("yookassa: build request: %w", err)
	}
	req.SetBasicAuth(c.shopID, c.secretKey)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(resp.Amount.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: bad amount %q", payment.ErrGateway, resp.Amount.Value)
	}
	return &payment.Status{
		PaymentRef: resp.ID,
		Status:     payment.GatewayStatus(resp.Status),
		Paid:       resp.Paid,
		Amount:     amount,
	}, nil
}

func (c *Client) do(req *http.Request) (*paymentResponse, error) {
	httpResp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", payment.ErrGateway, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", payment.ErrGateway, err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		// The diagnostic body is part of the error; it is never swallowed.
		return nil, fmt.Errorf("%w: %s: %s", payment.ErrGateway, httpResp.Status, bytes.TrimSpace(body))
	}

	var resp paymentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", payment.ErrGateway, err)
	}
	return &resp, nil
}
