package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
	"github.com/madukaneranga/Kixora-sub002/pkg/httpclient"
)

// Client creates payment sessions at the gateway. It signs requests with the
// payment-creation hash variant and talks to the gateway through a circuit
// breaker so a gateway outage cannot pile up checkout goroutines.
type Client struct {
	http     *httpclient.CircuitBreakerClient
	scheme   *Scheme
	endpoint string
	logger   *slog.Logger
}

// NewClient creates a gateway client.
func NewClient(scheme *Scheme, endpoint string, logger *slog.Logger) *Client {
	base := httpclient.New(httpclient.DefaultConfig())
	cb := httpclient.NewCircuitBreakerClient(base, httpclient.DefaultCircuitBreakerConfig("payment-gateway"), logger)
	return &Client{
		http:     cb,
		scheme:   scheme,
		endpoint: strings.TrimRight(endpoint, "/"),
		logger:   logger,
	}
}

// creationResponse is the gateway's reply to a payment-creation request.
type creationResponse struct {
	RedirectURL string `json:"redirect_url"`
	Reference   string `json:"reference"`
}

// CreatePayment registers a pending order with the gateway and returns the
// shopper redirect URL. Amounts are sent in major units with two decimals,
// which is also the representation the signature covers.
func (c *Client) CreatePayment(ctx context.Context, order *domain.Order) (redirectURL, reference string, err error) {
	amount := FormatAmount(order.TotalAmount)

	form := url.Values{}
	form.Set("merchant_id", c.scheme.MerchantID)
	form.Set("order_id", order.ID)
	form.Set("amount", amount)
	form.Set("currency", order.Currency)
	form.Set("signature", c.scheme.CreationSignature(order.ID, amount))

	resp, err := c.http.Post(ctx, c.endpoint+"/payments", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("gateway create payment: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", "", httpclient.ParseResponseError(resp, "payment-gateway")
	}

	var out creationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("decode gateway response: %w", err)
	}

	c.logger.InfoContext(ctx, "payment session created",
		slog.String("order_id", order.ID),
		slog.String("reference", out.Reference),
	)

	return out.RedirectURL, out.Reference, nil
}

// FormatAmount renders a minor-unit amount as the gateway's two-decimal
// major-unit string (e.g. 14990 -> "149.90").
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// ParseStatusCode parses the gateway's numeric status field, which arrives as
// a string in form-encoded notifications.
func ParseStatusCode(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
