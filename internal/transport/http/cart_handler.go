package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	cartsvc "github.com/vladislavdragonenkov/checkout/internal/service/cart"
)

// CartHandler обслуживает корзины пользователей и гостей.
type CartHandler struct {
	carts  *cartsvc.Service
	logger *log.Entry
}

// NewCartHandler создаёт обработчик корзины.
func NewCartHandler(carts *cartsvc.Service, logger *log.Entry) *CartHandler {
	if logger == nil {
		logger = log.WithField("component", "http-cart")
	}
	return &CartHandler{carts: carts, logger: logger}
}

type cartItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int32 `json:"quantity"`
}

type cartItemResponse struct {
	ProductID  int64  `json:"productId"`
	Name       string `json:"name"`
	PriceMinor int64  `json:"priceMinor"`
	Quantity   int32  `json:"quantity"`
	Stock      int32  `json:"stock"`
}

type cartResponse struct {
	Items         []cartItemResponse `json:"items"`
	SubtotalMinor int64              `json:"subtotalMinor"`
}

func toCartResponse(items []domain.ResolvedItem) cartResponse {
	resp := cartResponse{Items: make([]cartItemResponse, 0, len(items))}
	for _, item := range items {
		price := item.Product.EffectivePriceMinor()
		resp.Items = append(resp.Items, cartItemResponse{
			ProductID:  item.Product.ID,
			Name:       item.Product.Name,
			PriceMinor: price,
			Quantity:   item.Quantity,
			Stock:      item.Product.Stock,
		})
		resp.SubtotalMinor += price * int64(item.Quantity)
	}
	return resp
}

// List возвращает корзину авторизованного пользователя.
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	items, err := h.carts.List(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(items))
}

// Add добавляет товар в корзину.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	if err := h.carts.Add(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetQuantity выставляет точное количество позиции корзины.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	productID, err := parseID(chi.URLParam(r, "productID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid product id"})
		return
	}

	var req struct {
		Quantity int32 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	if err := h.carts.SetQuantity(r.Context(), userID, productID, req.Quantity); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Remove удаляет позицию из корзины.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	productID, err := parseID(chi.URLParam(r, "productID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid product id"})
		return
	}

	if err := h.carts.Remove(r.Context(), userID, productID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear очищает корзину.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	if err := h.carts.Clear(r.Context(), userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GuestList возвращает содержимое гостевой корзины.
func (h *CartHandler) GuestList(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	if cartID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing cart id"})
		return
	}

	items, err := h.carts.GuestList(r.Context(), cartID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(items))
}

// GuestAdd добавляет товар в гостевую корзину.
func (h *CartHandler) GuestAdd(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	if cartID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing cart id"})
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	if err := h.carts.GuestAdd(r.Context(), cartID, req.ProductID, req.Quantity); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GuestClear очищает гостевую корзину.
func (h *CartHandler) GuestClear(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	if cartID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing cart id"})
		return
	}

	if err := h.carts.GuestClear(r.Context(), cartID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
