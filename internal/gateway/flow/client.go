package flow

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

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const (
	defaultHTTPTimeout = 10 * time.Second

	createPath = "/payment/create"
	statusPath = "/payment/getStatus"
)

// Config описывает подключение к платёжному шлюзу.
type Config struct {
	BaseURL         string
	APIKey          string
	SecretKey       string
	Currency        string
	ConfirmationURL string
	ReturnURL       string
}

// Client общается с платёжным шлюзом по HTTP.
// Все запросы подписываются HMAC-подписью поверх отсортированных параметров.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient создаёт клиент платёжного шлюза.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type createResponse struct {
	URL       string `json:"url"`
	Token     string `json:"token"`
	FlowOrder int64  `json:"flowOrder"`
}

type statusResponse struct {
	FlowOrder     int64  `json:"flowOrder"`
	CommerceOrder string `json:"commerceOrder"`
	Status        int    `json:"status"`
	Subject       string `json:"subject"`
	Amount        int64  `json:"amount"`
	Payer         string `json:"payer"`
}

// CreateSession регистрирует платёж в шлюзе и возвращает токен
// вместе с URL, на который нужно перенаправить покупателя.
func (c *Client) CreateSession(ctx context.Context, req domain.PaymentRequest) (domain.PaymentSession, error) {
	params := map[string]string{
		"apiKey":          c.cfg.APIKey,
		"commerceOrder":   req.CommerceOrder,
		"subject":         req.Subject,
		"currency":        c.cfg.Currency,
		"amount":          strconv.FormatInt(req.AmountMinor, 10),
		"email":           req.Email,
		"urlConfirmation": c.cfg.ConfirmationURL,
		"urlReturn":       c.cfg.ReturnURL,
	}
	params["s"] = Sign(params, c.cfg.SecretKey)

	form := url.Values{}
	for key, value := range params {
		form.Set(key, value)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+createPath, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("build create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp createResponse
	if err := c.do(httpReq, &resp); err != nil {
		return domain.PaymentSession{}, err
	}
	if resp.Token == "" || resp.URL == "" {
		return domain.PaymentSession{}, fmt.Errorf("gateway returned empty session: %w", domain.ErrGatewayUnavailable)
	}

	return domain.PaymentSession{
		Token:      resp.Token,
		PaymentURL: resp.URL + "?token=" + resp.Token,
	}, nil
}

// GetStatus запрашивает у шлюза текущее состояние платежа по токену.
func (c *Client) GetStatus(ctx context.Context, token string) (domain.GatewayPayment, error) {
	params := map[string]string{
		"apiKey": c.cfg.APIKey,
		"token":  token,
	}
	params["s"] = Sign(params, c.cfg.SecretKey)

	query := url.Values{}
	for key, value := range params {
		query.Set(key, value)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+statusPath+"?"+query.Encode(), nil)
	if err != nil {
		return domain.GatewayPayment{}, fmt.Errorf("build status request: %w", err)
	}

	var resp statusResponse
	if err := c.do(httpReq, &resp); err != nil {
		return domain.GatewayPayment{}, err
	}

	return domain.GatewayPayment{
		Token:         token,
		CommerceOrder: resp.CommerceOrder,
		Status:        resp.Status,
		AmountMinor:   resp.Amount,
		Subject:       resp.Subject,
		PayerEmail:    resp.Payer,
	}, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w: %w", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway responded %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(body)), domain.ErrGatewayUnavailable)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}

	return nil
}

var _ domain.PaymentGateway = (*Client)(nil)
