package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
	"github.com/orderdesk/orderdesk/services/order-service/internal/domain"
	"github.com/orderdesk/orderdesk/services/order-service/internal/storage"
	"github.com/orderdesk/orderdesk/services/order-service/internal/uow"
)

type PaymentHandler struct {
	uow      *uow.UnitOfWork
	payments *storage.PaymentRepository
	logger   *slog.Logger
}

func NewPaymentHandler(u *uow.UnitOfWork, payments *storage.PaymentRepository, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{uow: u, payments: payments, logger: logger}
}

type createPaymentRequest struct {
	OrderID  string  `json:"order_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Type     string  `json:"type"`
}

type paymentView struct {
	PaymentID string  `json:"payment_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Type      string  `json:"type"`
}

func (h *PaymentHandler) Payments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.get(w, r)
	default:
		methodNotAllowed(w)
	}
}

// create settles an order: the amount must match the order's current total
// exactly. The total is read inside the same transaction that persists the
// payment, so a concurrent item addition cannot slip between check and write.
func (h *PaymentHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.Validationf("invalid request body"))
		return
	}

	orderID, err := domain.ParseOrderID(req.OrderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	currency, err := domain.ParseCurrency(req.Currency)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	amount, err := domain.PriceFromDecimal(req.Amount, currency)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	paymentType, err := domain.ParsePaymentType(req.Type)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	paymentID := domain.GeneratePaymentID()
	err = h.uow.Run(r.Context(), func(ctx context.Context, s uow.Scope) error {
		order, err := s.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		total, err := order.Total()
		if err != nil {
			return err
		}
		payment, err := domain.NewPayment(paymentID, amount, paymentType, total)
		if err != nil {
			return err
		}
		if err := s.Payments.Save(ctx, payment); err != nil {
			return err
		}
		return s.Events.PublishBatch(ctx, payment.Events())
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("payment created", "payment_id", paymentID, "order_id", orderID)
	writeJSON(w, http.StatusCreated, paymentView{
		PaymentID: string(paymentID),
		Amount:    amount.Decimal(),
		Currency:  string(currency),
		Type:      string(paymentType),
	})
}

func (h *PaymentHandler) get(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("id"); id != "" {
		paymentID, err := domain.ParsePaymentID(id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		payment, err := h.payments.GetByID(r.Context(), paymentID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, paymentViewOf(payment))
		return
	}

	payments, err := h.payments.GetAll(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	views := make([]paymentView, 0, len(payments))
	for _, payment := range payments {
		views = append(views, paymentViewOf(payment))
	}
	writeJSON(w, http.StatusOK, views)
}

func paymentViewOf(payment *domain.Payment) paymentView {
	return paymentView{
		PaymentID: string(payment.ID()),
		Amount:    payment.Amount().Decimal(),
		Currency:  string(payment.Amount().Currency),
		Type:      string(payment.Type()),
	}
}
