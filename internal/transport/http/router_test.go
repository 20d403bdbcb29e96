package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/gateway/flow"
	cartsvc "github.com/vladislavdragonenkov/checkout/internal/service/cart"
	checkoutsvc "github.com/vladislavdragonenkov/checkout/internal/service/checkout"
	paymentsvc "github.com/vladislavdragonenkov/checkout/internal/service/payments"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
	httptransport "github.com/vladislavdragonenkov/checkout/internal/transport/http"
)

const testJWTSecret = "test-jwt-secret"

type testEnv struct {
	store      *memory.Store
	guestCarts *memory.GuestCartStore
	gateway    *flow.MockGateway
	router     http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	entry := logger.WithField("component", "http-test")

	store := memory.NewStore()
	guestCarts := memory.NewGuestCartStore()
	outbox := memory.NewOutboxRepository()
	gateway := flow.NewMockGateway()

	cartService := cartsvc.NewService(store, store, guestCarts, entry)
	checkoutService := checkoutsvc.NewService(store, store, store, guestCarts, outbox, entry)
	paymentsService := paymentsvc.NewService(store, store, store, gateway, outbox, entry)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Orders:    httptransport.NewOrdersHandler(checkoutService, entry),
		Cart:      httptransport.NewCartHandler(cartService, entry),
		Payments:  httptransport.NewPaymentsHandler(paymentsService, entry),
		JWTSecret: testJWTSecret,
		Logger:    entry,
	})

	return &testEnv{
		store:      store,
		guestCarts: guestCarts,
		gateway:    gateway,
		router:     router,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func signToken(t *testing.T, userID int64, role string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"userId": userID,
		"role":   role,
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func seedGuestOrderInput(t *testing.T, env *testEnv) (domain.Product, map[string]any) {
	t.Helper()

	product := env.store.SeedProduct(domain.Product{
		Name:       "Collar de perlas",
		PriceMinor: 10000,
		Stock:      5,
	})
	require.NoError(t, env.guestCarts.Add(context.Background(), "guest-1", product.ID, 2))

	return product, map[string]any{
		"guestEmail":      "guest@example.com",
		"guestCartId":     "guest-1",
		"shippingAddress": "Av. Providencia 1234",
	}
}

func TestCreateOrder_Guest(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	product, body := seedGuestOrderInput(t, env)

	rec := env.do(t, http.MethodPost, "/orders", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID         int64  `json:"id"`
		Status     string `json:"status"`
		TotalMinor int64  `json:"totalMinor"`
		Items      []struct {
			ProductID int64 `json:"productId"`
			Quantity  int32 `json:"quantity"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotZero(t, resp.ID)
	require.Equal(t, string(domain.OrderStatusPending), resp.Status)
	require.Equal(t, int64(20000), resp.TotalMinor)
	require.Len(t, resp.Items, 1)
	require.Equal(t, product.ID, resp.Items[0].ProductID)
	require.Equal(t, int32(2), resp.Items[0].Quantity)
}

func TestCreateOrder_GuestWithInlineItems(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	product := env.store.SeedProduct(domain.Product{
		Name:       "Collar de perlas",
		PriceMinor: 10000,
		Stock:      5,
	})

	rec := env.do(t, http.MethodPost, "/orders", map[string]any{
		"guestEmail":      "guest@example.com",
		"shippingAddress": "Av. Providencia 1234",
		"items": []map[string]any{
			{"productId": product.ID, "quantity": 2},
		},
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		TotalMinor int64 `json:"totalMinor"`
		Items      []struct {
			ProductID int64 `json:"productId"`
			Quantity  int32 `json:"quantity"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(20000), resp.TotalMinor)
	require.Len(t, resp.Items, 1)
	require.Equal(t, product.ID, resp.Items[0].ProductID)
}

func TestCreateOrder_InvalidJSON(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_EmptyGuestCart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/orders", map[string]any{
		"guestEmail":      "guest@example.com",
		"guestCartId":     "missing-cart",
		"shippingAddress": "Av. Providencia 1234",
	}, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrder_NotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/orders/9999", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCart_RequiresAuth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/cart", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/cart", nil, "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCart_RejectsUnexpectedSigningMethod(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	claims := jwt.MapClaims{
		"userId": int64(7),
		"role":   "user",
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/cart", nil, token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCart_AddAndList(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := env.store.SeedUser(domain.User{Email: "user@example.com"})
	product := env.store.SeedProduct(domain.Product{Name: "Aros de plata", PriceMinor: 4000, Stock: 10})
	token := signToken(t, user.ID, "user")

	rec := env.do(t, http.MethodPost, "/cart/items", map[string]any{
		"productId": product.ID,
		"quantity":  3,
	}, token)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/cart", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []struct {
			ProductID int64 `json:"productId"`
			Quantity  int32 `json:"quantity"`
		} `json:"items"`
		SubtotalMinor int64 `json:"subtotalMinor"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.Equal(t, product.ID, resp.Items[0].ProductID)
	require.Equal(t, int32(3), resp.Items[0].Quantity)
	require.Equal(t, int64(12000), resp.SubtotalMinor)
}

func TestCart_AddOverLimitConflict(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := env.store.SeedUser(domain.User{Email: "user@example.com"})
	product := env.store.SeedProduct(domain.Product{Name: "Collar", PriceMinor: 10000, Stock: 20})
	token := signToken(t, user.ID, "user")

	rec := env.do(t, http.MethodPost, "/cart/items", map[string]any{
		"productId": product.ID,
		"quantity":  domain.MaxCartQuantity + 1,
	}, token)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminOrders_RequiresAdminRole(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := env.store.SeedUser(domain.User{Email: "user@example.com"})

	rec := env.do(t, http.MethodGet, "/admin/orders", nil, signToken(t, user.ID, "user"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/orders", nil, signToken(t, user.ID, "admin"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminSetStatus_InvalidTransitionConflict(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.store.SeedUser(domain.User{Email: "admin@example.com"})
	_, body := seedGuestOrderInput(t, env)

	rec := env.do(t, http.MethodPost, "/orders", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	token := signToken(t, admin.ID, "admin")
	rec = env.do(t, http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", created.ID),
		map[string]any{"status": string(domain.OrderStatusDelivered)}, token)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", created.ID),
		map[string]any{"status": string(domain.OrderStatusCancelled)}, token)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWebhook_AlwaysRespondsOK(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	// Без токена.
	req := httptest.NewRequest(http.MethodPost, "/payments/confirm", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// С неизвестным токеном обработка падает, но шлюзу всё равно отвечаем 200.
	form := url.Values{"token": {"tok-unknown"}}
	req = httptest.NewRequest(http.MethodPost, "/payments/confirm", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPaymentFlow_EndToEnd(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, body := seedGuestOrderInput(t, env)

	rec := env.do(t, http.MethodPost, "/orders", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/payments/create/%d", created.ID), nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var session struct {
		Token      string `json:"token"`
		PaymentURL string `json:"paymentUrl"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.Token)
	require.Contains(t, session.PaymentURL, session.Token)

	// Шлюз сообщает об успешной оплате.
	payment, err := env.gateway.GetStatus(context.Background(), session.Token)
	require.NoError(t, err)
	payment.Status = domain.GatewayStatusPaid
	env.gateway.SetPayment(payment)

	form := url.Values{"token": {session.Token}}
	req := httptest.NewRequest(http.MethodPost, "/payments/confirm", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	webhookRec := httptest.NewRecorder()
	env.router.ServeHTTP(webhookRec, req)
	require.Equal(t, http.StatusOK, webhookRec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/orders/%d", created.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var order struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	require.Equal(t, string(domain.OrderStatusPaid), order.Status)

	// Повторная сессия для уже оплаченного заказа невозможна.
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/payments/create/%d", created.ID), nil, "")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestPaymentStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, body := seedGuestOrderInput(t, env)

	rec := env.do(t, http.MethodPost, "/orders", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/payments/create/%d", created.ID), nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	rec = env.do(t, http.MethodGet, "/payments/status/"+session.Token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		OrderID       int64  `json:"orderId"`
		LocalStatus   string `json:"localStatus"`
		GatewayStatus int    `json:"gatewayStatus"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, created.ID, status.OrderID)
	require.Equal(t, string(domain.OrderStatusPending), status.LocalStatus)
	require.Equal(t, domain.GatewayStatusPending, status.GatewayStatus)

	rec = env.do(t, http.MethodGet, "/payments/status/tok-unknown", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGuestCart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	product := env.store.SeedProduct(domain.Product{Name: "Anillo", PriceMinor: 15000, Stock: 10})

	rec := env.do(t, http.MethodPost, "/guest-cart/guest-7/items", map[string]any{
		"productId": product.ID,
		"quantity":  2,
	}, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/guest-cart/guest-7", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []struct {
			ProductID int64 `json:"productId"`
			Quantity  int32 `json:"quantity"`
		} `json:"items"`
		SubtotalMinor int64 `json:"subtotalMinor"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.Equal(t, int64(30000), resp.SubtotalMinor)

	rec = env.do(t, http.MethodDelete, "/guest-cart/guest-7", nil, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}
