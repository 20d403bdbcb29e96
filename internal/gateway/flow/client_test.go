package flow

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:         baseURL,
		APIKey:          "test-api-key",
		SecretKey:       "test-secret",
		Currency:        "CLP",
		ConfirmationURL: "https://shop.example/payments/confirm",
		ReturnURL:       "https://shop.example/payments/return",
	}
}

func TestCreateSession_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != createPath {
			t.Errorf("expected path %s, got %s", createPath, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}

		params := map[string]string{}
		for key := range r.PostForm {
			if key == "s" {
				continue
			}
			params[key] = r.PostForm.Get(key)
		}
		if !VerifySignature(params, "test-secret", r.PostForm.Get("s")) {
			t.Error("request signature does not verify")
		}
		if got := r.PostForm.Get("amount"); got != "25990" {
			t.Errorf("expected amount 25990, got %s", got)
		}
		if got := r.PostForm.Get("currency"); got != "CLP" {
			t.Errorf("expected currency CLP, got %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"https://gateway.example/pay","token":"tok-123","flowOrder":991}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	session, err := client.CreateSession(context.Background(), domain.PaymentRequest{
		CommerceOrder: "order-7-1756540800000",
		Subject:       "Pedido #7",
		Email:         "cliente@example.com",
		AmountMinor:   25990,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if session.Token != "tok-123" {
		t.Fatalf("expected token tok-123, got %s", session.Token)
	}
	if session.PaymentURL != "https://gateway.example/pay?token=tok-123" {
		t.Fatalf("unexpected payment url: %s", session.PaymentURL)
	}
}

func TestCreateSession_GatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.CreateSession(context.Background(), domain.PaymentRequest{
		CommerceOrder: "order-7-1756540800000",
		AmountMinor:   1000,
	})
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestCreateSession_EmptySession(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"","token":""}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.CreateSession(context.Background(), domain.PaymentRequest{
		CommerceOrder: "order-7-1756540800000",
		AmountMinor:   1000,
	})
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestGetStatus_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != statusPath {
			t.Errorf("expected path %s, got %s", statusPath, r.URL.Path)
		}

		query := r.URL.Query()
		params := map[string]string{
			"apiKey": query.Get("apiKey"),
			"token":  query.Get("token"),
		}
		if !VerifySignature(params, "test-secret", query.Get("s")) {
			t.Error("request signature does not verify")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"flowOrder": 991,
			"commerceOrder": "order-7-1756540800000",
			"status": 2,
			"subject": "Pedido #7",
			"amount": 25990,
			"payer": "cliente@example.com"
		}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	payment, err := client.GetStatus(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}

	if payment.Token != "tok-123" {
		t.Fatalf("expected token tok-123, got %s", payment.Token)
	}
	if payment.CommerceOrder != "order-7-1756540800000" {
		t.Fatalf("unexpected commerce order: %s", payment.CommerceOrder)
	}
	if payment.Status != 2 {
		t.Fatalf("expected status 2, got %d", payment.Status)
	}
	if payment.AmountMinor != 25990 {
		t.Fatalf("expected amount 25990, got %d", payment.AmountMinor)
	}
}

func TestGetStatus_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.GetStatus(context.Background(), "tok-123")
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}
