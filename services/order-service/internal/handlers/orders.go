package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
	"github.com/orderdesk/orderdesk/services/order-service/internal/domain"
	"github.com/orderdesk/orderdesk/services/order-service/internal/pricing"
	"github.com/orderdesk/orderdesk/services/order-service/internal/storage"
	"github.com/orderdesk/orderdesk/services/order-service/internal/uow"
)

type OrderHandler struct {
	uow     *uow.UnitOfWork
	orders  *storage.OrderRepository
	catalog *pricing.Catalog
	logger  *slog.Logger
}

// NewOrderHandler takes the unit of work for mutations and a pool-bound
// repository for reads, which run auto-commit outside any transaction.
func NewOrderHandler(u *uow.UnitOfWork, orders *storage.OrderRepository, catalog *pricing.Catalog, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{uow: u, orders: orders, catalog: catalog, logger: logger}
}

type createOrderRequest struct {
	OrderID string `json:"order_id"`
}

type addItemRequest struct {
	OrderID  string `json:"order_id"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	Currency string `json:"currency"`
}

type lineItemView struct {
	SKU       string  `json:"sku"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

type orderView struct {
	OrderID   string         `json:"order_id"`
	Currency  string         `json:"currency,omitempty"`
	Items     []lineItemView `json:"items"`
	ItemCount int            `json:"item_count"`
	Total     float64        `json:"total"`
}

func (h *OrderHandler) Orders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.get(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *OrderHandler) Items(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	h.addItem(w, r)
}

func (h *OrderHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.Validationf("invalid request body"))
		return
	}

	var orderID domain.OrderID
	if req.OrderID == "" {
		orderID = domain.GenerateOrderID()
	} else {
		id, err := domain.ParseOrderID(req.OrderID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		orderID = id
	}

	err := h.uow.Run(r.Context(), func(ctx context.Context, s uow.Scope) error {
		order := domain.NewOrder(orderID)
		if err := s.Orders.Save(ctx, order); err != nil {
			return err
		}
		return s.Events.PublishBatch(ctx, order.Events())
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("order created", "order_id", orderID)
	writeJSON(w, http.StatusCreated, map[string]string{"order_id": string(orderID)})
}

func (h *OrderHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.Validationf("invalid request body"))
		return
	}

	orderID, err := domain.ParseOrderID(req.OrderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	sku, err := domain.ParseSKU(req.SKU)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	qty, err := domain.ParseQuantity(req.Quantity)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	currency, err := domain.ParseCurrency(req.Currency)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	unitPrice, err := h.catalog.PriceFor(sku, currency)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var view orderView
	err = h.uow.Run(r.Context(), func(ctx context.Context, s uow.Scope) error {
		order, err := s.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.AddItem(domain.LineItem{SKU: sku, Quantity: qty, UnitPrice: unitPrice}); err != nil {
			return err
		}
		if err := s.Orders.Save(ctx, order); err != nil {
			return err
		}
		if err := s.Events.PublishBatch(ctx, order.Events()); err != nil {
			return err
		}
		view, err = viewOf(order)
		return err
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("item added to order", "order_id", orderID, "sku", sku, "quantity", qty)
	writeJSON(w, http.StatusOK, view)
}

func (h *OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("id"); id != "" {
		orderID, err := domain.ParseOrderID(id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		order, err := h.orders.GetByID(r.Context(), orderID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		view, err := viewOf(order)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	orders, err := h.orders.GetAll(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		view, err := viewOf(order)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, views)
}

func viewOf(order *domain.Order) (orderView, error) {
	items := make([]lineItemView, 0, len(order.LineItems()))
	for _, item := range order.LineItems() {
		items = append(items, lineItemView{
			SKU:       string(item.SKU),
			Quantity:  int(item.Quantity),
			UnitPrice: item.UnitPrice.Decimal(),
			LineTotal: item.Total().Decimal(),
		})
	}

	view := orderView{
		OrderID:   string(order.ID()),
		Currency:  string(order.Currency()),
		Items:     items,
		ItemCount: order.ItemCount(),
	}
	if len(items) > 0 {
		total, err := order.Total()
		if err != nil {
			return orderView{}, err
		}
		view.Total = total.Decimal()
	}
	return view, nil
}
