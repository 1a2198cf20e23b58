package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/balanceledger/internal/adapter/http/dto"
	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
)

// OrderService places and resolves sell orders.
type OrderService interface {
	CreateOrder(ctx context.Context, input usecase.CreateOrderInput) (*domain.Order, error)
	ResolveOrder(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, input usecase.ListOrdersInput) ([]*domain.Order, error)
}

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	orders OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Create places a sell order for the caller and holds its amount.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		writeError(w, "unauthorized", err)
		return
	}

	var req dto.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request body", err)
		return
	}

	input, err := req.ToUseCaseInput(user.ID)
	if err != nil {
		writeError(w, "invalid request", err)
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), input)
	if err != nil {
		writeError(w, "failed to create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.OrderFromDomain(order))
}

// Get returns one order of the caller.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		writeError(w, "unauthorized", err)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "failed to get order", err)
		return
	}

	if err := authorizeOwner(user, order.UserID); err != nil {
		writeError(w, "failed to get order", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OrderFromDomain(order))
}

// List lists the caller's orders, newest first.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		writeError(w, "unauthorized", err)
		return
	}

	limit, offset := pagination(r)
	orders, err := h.orders.ListOrders(r.Context(), usecase.ListOrdersInput{
		UserID: user.ID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, "failed to list orders", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OrdersFromDomain(orders))
}

// Resolve confirms or fails a pending order. Admin only.
func (h *OrderHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req dto.ResolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request body", err)
		return
	}

	order, err := h.orders.ResolveOrder(r.Context(), chi.URLParam(r, "id"), domain.OrderStatus(req.Status))
	if err != nil {
		writeError(w, "failed to resolve order", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OrderFromDomain(order))
}
