package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	checkoutsvc "github.com/vladislavdragonenkov/checkout/internal/service/checkout"
)

// OrdersHandler обслуживает оформление и просмотр заказов.
type OrdersHandler struct {
	checkout *checkoutsvc.Service
	logger   *log.Entry
}

// NewOrdersHandler создаёт обработчик заказов.
func NewOrdersHandler(checkout *checkoutsvc.Service, logger *log.Entry) *OrdersHandler {
	if logger == nil {
		logger = log.WithField("component", "http-orders")
	}
	return &OrdersHandler{checkout: checkout, logger: logger}
}

type guestAccountRequest struct {
	Password string `json:"password"`
	Name     string `json:"name"`
	RUT      string `json:"rut"`
	Phone    string `json:"phone"`
}

type guestItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int32 `json:"quantity"`
}

type createOrderRequest struct {
	GuestEmail  string `json:"guestEmail,omitempty"`
	GuestCartID string `json:"guestCartId,omitempty"`
	// Items — корзина гостя прямо в теле запроса, альтернатива guestCartId.
	Items           []guestItemRequest   `json:"items,omitempty"`
	Account         *guestAccountRequest `json:"account,omitempty"`
	ShippingAddress string               `json:"shippingAddress"`
	Region          string               `json:"region,omitempty"`
	Commune         string               `json:"commune,omitempty"`
}

type orderItemResponse struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int32  `json:"quantity"`
	PriceMinor  int64  `json:"priceMinor"`
}

type orderResponse struct {
	ID                int64               `json:"id"`
	CustomerEmail     string              `json:"customerEmail"`
	ShippingAddress   string              `json:"shippingAddress"`
	Items             []orderItemResponse `json:"items"`
	ShippingCostMinor int64               `json:"shippingCostMinor"`
	TotalMinor        int64               `json:"totalMinor"`
	Status            string              `json:"status"`
	DeliveryStatus    string              `json:"deliveryStatus"`
	CreatedAt         time.Time           `json:"createdAt"`
	ExpiresAt         time.Time           `json:"expiresAt"`
}

func toOrderResponse(order domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			PriceMinor:  item.PriceMinor,
		})
	}
	return orderResponse{
		ID:                order.ID,
		CustomerEmail:     order.CustomerEmail,
		ShippingAddress:   order.ShippingAddress,
		Items:             items,
		ShippingCostMinor: order.ShippingCostMinor,
		TotalMinor:        order.TotalMinor,
		Status:            string(order.Status),
		DeliveryStatus:    string(order.DeliveryStatus),
		CreatedAt:         order.CreatedAt,
		ExpiresAt:         order.ExpiresAt,
	}
}

// Create оформляет заказ. Авторизованный пользователь заказывает из своей
// корзины; гость передаёт email и идентификатор гостевой корзины.
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	input := checkoutsvc.CreateOrderInput{
		GuestEmail:      req.GuestEmail,
		GuestCartID:     req.GuestCartID,
		ShippingAddress: req.ShippingAddress,
		RegionName:      req.Region,
		CommuneName:     req.Commune,
	}
	if userID, ok := UserIDFromContext(r.Context()); ok {
		input.UserID = &userID
		input.GuestEmail = ""
		input.GuestCartID = ""
	} else {
		for _, item := range req.Items {
			input.GuestItems = append(input.GuestItems, domain.CartSelection{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}
		if req.Account != nil {
			input.Account = &checkoutsvc.GuestAccount{
				Password: req.Account.Password,
				Name:     req.Account.Name,
				RUT:      req.Account.RUT,
				Phone:    req.Account.Phone,
			}
		}
	}

	order, err := h.checkout.CreateOrder(r.Context(), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// Get возвращает заказ по идентификатору.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid order id"})
		return
	}

	order, err := h.checkout.Get(r.Context(), orderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// ListMine возвращает заказы авторизованного пользователя.
func (h *OrdersHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	orders, err := h.checkout.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, toOrderResponse(order))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAll возвращает все заказы (административная выборка).
func (h *OrdersHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.checkout.ListAll(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, toOrderResponse(order))
	}
	writeJSON(w, http.StatusOK, resp)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// SetStatus выполняет административный переход платёжного статуса.
func (h *OrdersHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid order id"})
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	if err := h.checkout.SetStatus(r.Context(), orderID, domain.OrderStatus(req.Status)); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type setDeliveryStatusRequest struct {
	DeliveryStatus string `json:"deliveryStatus"`
}

// SetDeliveryStatus меняет логистический статус заказа.
func (h *OrdersHandler) SetDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid order id"})
		return
	}

	var req setDeliveryStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	if err := h.checkout.SetDeliveryStatus(r.Context(), orderID, domain.DeliveryStatus(req.DeliveryStatus)); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
