package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	paymentsvc "github.com/vladislavdragonenkov/checkout/internal/service/payments"
)

// PaymentsHandler обслуживает платёжные операции и webhook шлюза.
type PaymentsHandler struct {
	payments *paymentsvc.Service
	logger   *log.Entry
}

// NewPaymentsHandler создаёт обработчик платежей.
func NewPaymentsHandler(payments *paymentsvc.Service, logger *log.Entry) *PaymentsHandler {
	if logger == nil {
		logger = log.WithField("component", "http-payments")
	}
	return &PaymentsHandler{payments: payments, logger: logger}
}

type createPaymentResponse struct {
	Token      string `json:"token"`
	PaymentURL string `json:"paymentUrl"`
}

// Create регистрирует платёжную сессию для заказа и возвращает URL оплаты.
func (h *PaymentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseID(chi.URLParam(r, "orderID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid order id"})
		return
	}

	session, err := h.payments.CreatePayment(r.Context(), orderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, createPaymentResponse{
		Token:      session.Token,
		PaymentURL: session.PaymentURL,
	})
}

// Confirm — webhook платёжного шлюза. Всегда отвечает 200: шлюз ретраит
// не-200 ответы, а повторная доставка подтверждения для нас безвредна.
// Ошибки обработки только логируются.
func (h *PaymentsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := confirmToken(r)
	if token == "" {
		h.logger.Warn("confirmation without token")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.payments.Confirm(r.Context(), token); err != nil {
		h.logger.WithError(err).WithField("token", token).Warn("payment confirmation failed")
	}

	w.WriteHeader(http.StatusOK)
}

// Return принимает возврат покупателя со страницы оплаты и перенаправляет
// его на страницу заказа.
func (h *PaymentsHandler) Return(w http.ResponseWriter, r *http.Request) {
	token := confirmToken(r)
	if token == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing token"})
		return
	}

	orderID, err := h.payments.OrderIDByToken(r.Context(), token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/orders/%d", orderID), http.StatusSeeOther)
}

type paymentStatusResponse struct {
	OrderID       int64  `json:"orderId"`
	Token         string `json:"token"`
	AmountMinor   int64  `json:"amountMinor"`
	LocalStatus   string `json:"localStatus"`
	GatewayStatus int    `json:"gatewayStatus"`
}

// Status возвращает локальный и шлюзовой статус платежа по токену.
func (h *PaymentsHandler) Status(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing token"})
		return
	}

	result, err := h.payments.Status(r.Context(), token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, paymentStatusResponse{
		OrderID:       result.Transaction.OrderID,
		Token:         result.Transaction.Token,
		AmountMinor:   result.Transaction.AmountMinor,
		LocalStatus:   string(result.Transaction.Status),
		GatewayStatus: result.Gateway.Status,
	})
}

// confirmToken достаёт токен из form-данных webhook или query-параметра.
func confirmToken(r *http.Request) string {
	if err := r.ParseForm(); err != nil {
		return ""
	}
	if token := r.PostFormValue("token"); token != "" {
		return token
	}
	return r.FormValue("token")
}
