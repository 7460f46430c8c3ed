package paydunya

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yanqian/meteo-burkina/internal/domain/payment"
)

const (
	defaultBaseURL = "https://app.paydunya.com/api/v1"
	successCode    = "00"
)

// ErrMissingCheckoutURL is returned when PayDunya accepts an invoice without a payment link.
var ErrMissingCheckoutURL = errors.New("paydunya response has no checkout url")

// StatusError is a non-2xx answer from PayDunya.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("paydunya request error: status=%d body=%s", e.Status, e.Body)
}

// callerFault reports rejections of the request itself, such as an unknown
// invoice token. They do not count against the breaker.
func callerFault(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Status >= 400 && statusErr.Status < 500 &&
		statusErr.Status != http.StatusTooManyRequests
}

// Config holds the merchant credentials.
type Config struct {
	BaseURL    string
	MasterKey  string
	PrivateKey string
	Token      string
	Sandbox    bool
	Timeout    time.Duration
}

// Client talks to the PayDunya checkout-invoice API.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewClient builds a PayDunya client guarded by a circuit breaker.
func NewClient(cfg Config) *Client {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "paydunya",
			Timeout: time.Minute,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
			IsSuccessful: func(err error) bool {
				return err == nil || callerFault(err)
			},
		}),
	}
}

// CreateInvoice opens a checkout invoice and returns its payment link.
func (c *Client) CreateInvoice(ctx context.Context, invoice payment.Invoice) (payment.CheckoutSession, error) {
	payload := createRequest{
		Invoice: invoiceBody{
			TotalAmount: invoice.Amount,
			Description: invoice.Description,
		},
		Store: invoice.Store,
		Actions: actions{
			CallbackURL: invoice.CallbackURL,
			CancelURL:   invoice.CancelURL,
			ReturnURL:   invoice.ReturnURL,
		},
		CustomData: invoice.CustomData,
	}
	var raw createResponse
	if err := c.do(ctx, http.MethodPost, "/checkout-invoice/create", payload, &raw); err != nil {
		return payment.CheckoutSession{}, err
	}
	if raw.ResponseCode != successCode {
		return payment.CheckoutSession{}, fmt.Errorf("paydunya create invoice: code=%s text=%s", raw.ResponseCode, raw.ResponseText)
	}
	checkoutURL := raw.checkoutURL()
	if checkoutURL == "" {
		return payment.CheckoutSession{}, ErrMissingCheckoutURL
	}
	return payment.CheckoutSession{Token: raw.Token, CheckoutURL: checkoutURL}, nil
}

// ConfirmInvoice reports the current status of an invoice.
func (c *Client) ConfirmInvoice(ctx context.Context, token string) (payment.InvoiceState, error) {
	var raw confirmResponse
	if err := c.do(ctx, http.MethodGet, "/checkout-invoice/confirm/"+url.PathEscape(token), nil, &raw); err != nil {
		return payment.InvoiceState{}, err
	}
	if raw.ResponseCode != successCode {
		return payment.InvoiceState{}, fmt.Errorf("paydunya confirm invoice: code=%s text=%s", raw.ResponseCode, raw.ResponseText)
	}
	resolved := raw.Invoice.Token
	if resolved == "" {
		resolved = token
	}
	return payment.InvoiceState{
		Token:  resolved,
		Status: strings.ToLower(strings.TrimSpace(raw.Status)),
		Amount: int(math.Round(float64(raw.Invoice.TotalAmount))),
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var encoded []byte
	if body != nil {
		var err error
		if encoded, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode paydunya request: %w", err)
		}
	}

	payload, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if encoded != nil {
			reader = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("build paydunya request: %w", err)
		}
		c.setHeaders(req)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("paydunya request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			return nil, &StatusError{Status: resp.StatusCode, Body: string(data)}
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload.([]byte), out); err != nil {
		return fmt.Errorf("decode paydunya response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	mode := "live"
	if c.cfg.Sandbox {
		mode = "test"
	}
	req.Header.Set("PAYDUNYA-MASTER-KEY", c.cfg.MasterKey)
	req.Header.Set("PAYDUNYA-PRIVATE-KEY", c.cfg.PrivateKey)
	req.Header.Set("PAYDUNYA-TOKEN", c.cfg.Token)
	req.Header.Set("PAYDUNYA-MODE", mode)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

type createRequest struct {
	Invoice    invoiceBody         `json:"invoice"`
	Store      payment.Store       `json:"store"`
	Actions    actions             `json:"actions"`
	CustomData payment.InvoiceData `json:"custom_data"`
}

type invoiceBody struct {
	TotalAmount int    `json:"total_amount"`
	Description string `json:"description"`
}

type actions struct {
	CallbackURL string `json:"callback_url"`
	CancelURL   string `json:"cancel_url"`
	ReturnURL   string `json:"return_url"`
}

type createResponse struct {
	ResponseCode string `json:"response_code"`
	ResponseText string `json:"response_text"`
	Token        string `json:"token"`
	CheckoutURL  string `json:"checkout_url"`
	Response     struct {
		InvoiceURL string `json:"invoice_url"`
	} `json:"response"`
}

// checkoutURL prefers the nested invoice url, then checkout_url, then the
// response text which carries the link on success.
func (r createResponse) checkoutURL() string {
	for _, candidate := range []string{r.Response.InvoiceURL, r.CheckoutURL, r.ResponseText} {
		candidate = strings.TrimSpace(candidate)
		if strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://") {
			return candidate
		}
	}
	return ""
}

type confirmResponse struct {
	ResponseCode string `json:"response_code"`
	ResponseText string `json:"response_text"`
	Status       string `json:"status"`
	Invoice      struct {
		Token       string `json:"token"`
		TotalAmount amount `json:"total_amount"`
	} `json:"invoice"`
}

// amount accepts PayDunya totals encoded either as numbers or strings.
type amount float64

func (a *amount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*a = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", raw, err)
	}
	*a = amount(v)
	return nil
}

var _ payment.Gateway = (*Client)(nil)
