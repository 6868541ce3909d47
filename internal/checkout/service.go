// Package checkout hands the cart off to WooCommerce as a pending
// order and opens a Mollie payment for it. The storefront redirects the
// shopper to Mollie's hosted page; confirmation happens on return and
// again, authoritatively, via the webhook.
package checkout

import (
	"context"
	"fmt"
	"strconv"

	"github.com/groenvelt/storefront-bff/internal/cart"
	"github.com/groenvelt/storefront-bff/internal/upstream/mollie"
	"github.com/groenvelt/storefront-bff/internal/upstream/woocommerce"
	pkgerrors "github.com/groenvelt/storefront-bff/pkg/errors"
	"github.com/groenvelt/storefront-bff/pkg/logger"

	"github.com/shopspring/decimal"
)

type cartHolder interface {
	Get(ctx context.Context, sessionID string) (*cart.Cart, error)
	Clear(ctx context.Context, sessionID string) (*cart.Cart, error)
}

type orderWriter interface {
	CreateOrder(ctx context.Context, input woocommerce.OrderInput) (*woocommerce.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) (*woocommerce.Order, error)
}

type paymentProvider interface {
	CreatePayment(ctx context.Context, amount decimal.Decimal, description string, metadata map[string]string) (*mollie.Payment, error)
	GetPayment(ctx context.Context, id string) (*mollie.Payment, error)
}

type Service struct {
	carts    cartHolder
	orders   orderWriter
	payments paymentProvider
	logg     *logger.Logger
}

func NewService(carts cartHolder, orders orderWriter, payments paymentProvider, logg *logger.Logger) *Service {
	return &Service{carts: carts, orders: orders, payments: payments, logg: logg}
}

// Handoff is what the storefront needs to send the shopper to payment.
type Handoff struct {
	OrderID     int64  `json:"order_id"`
	PaymentID   string `json:"payment_id"`
	RedirectURL string `json:"redirect_url"`
}

// Status is the confirmation result shown on the return page.
type Status struct {
	OrderID   int64  `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Paid      bool   `json:"paid"`
}

// Start snapshots the cart into a pending order and opens a payment
// for the cart subtotal. The cart is cleared only after payment, so an
// abandoned payment leaves it intact.
func (s *Service) Start(ctx context.Context, sessionID string, customerID int64) (*Handoff, error) {
	current, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(current.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	input := woocommerce.OrderInput{
		CustomerID: customerID,
		Status:     "pending",
		LineItems:  make([]woocommerce.OrderLineItem, 0, len(current.Lines)),
	}
	for _, line := range current.Lines {
		input.LineItems = append(input.LineItems, woocommerce.OrderLineItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	order, err := s.orders.CreateOrder(ctx, input)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.CreatePayment(ctx, current.Subtotal(),
		fmt.Sprintf("Bestelling #%d", order.ID),
		map[string]string{
			"order_id":   strconv.FormatInt(order.ID, 10),
			"session_id": sessionID,
		})
	if err != nil {
		// The pending order stays behind for the shop to clean up; the
		// shopper keeps their cart and can retry.
		s.logg.Error(s.logg.WithCartSession(ctx, sessionID), "payment creation failed after order handoff", err)
		return nil, err
	}

	return &Handoff{
		OrderID:     order.ID,
		PaymentID:   payment.ID,
		RedirectURL: payment.CheckoutURL(),
	}, nil
}

// Confirm polls the payment when the shopper lands on the return page.
// A paid payment promotes the order and clears the cart.
func (s *Service) Confirm(ctx context.Context, sessionID, paymentID string) (*Status, error) {
	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	status, err := s.settle(ctx, payment)
	if err != nil {
		return nil, err
	}
	if status.Paid {
		if _, err := s.carts.Clear(ctx, sessionID); err != nil {
			s.logg.Error(s.logg.WithCartSession(ctx, sessionID), "clearing cart after payment failed", err)
		}
	}
	return status, nil
}

// HandleWebhook is the authoritative path: Mollie calls it on every
// status change with just the payment id.
func (s *Service) HandleWebhook(ctx context.Context, paymentID string) error {
	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	_, err = s.settle(ctx, payment)
	return err
}

func (s *Service) settle(ctx context.Context, payment *mollie.Payment) (*Status, error) {
	orderID, err := orderIDFromPayment(payment)
	if err != nil {
		return nil, err
	}

	status := &Status{
		OrderID:   orderID,
		PaymentID: payment.ID,
		Status:    payment.Status,
		Paid:      payment.Status == mollie.StatusPaid,
	}

	switch payment.Status {
	case mollie.StatusPaid:
		if _, err := s.orders.UpdateOrderStatus(ctx, orderID, "processing"); err != nil {
			return nil, err
		}
	case mollie.StatusCanceled, mollie.StatusExpired, mollie.StatusFailed:
		if _, err := s.orders.UpdateOrderStatus(ctx, orderID, "cancelled"); err != nil {
			return nil, err
		}
	}
	return status, nil
}

func orderIDFromPayment(payment *mollie.Payment) (int64, error) {
	raw, ok := payment.Metadata["order_id"]
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "payment has no order reference")
	}
	orderID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse order reference")
	}
	return orderID, nil
}
