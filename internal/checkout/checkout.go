// Package checkout turns a cart into an order and drives its payment,
// keeping the order status in step with the payment outcome.
package checkout

import (
	"context"
	"errors"
	"sync"

	"freetime_shop/internal/apperr"
	"freetime_shop/internal/downloads"
	"freetime_shop/internal/models"
	"freetime_shop/internal/notify"
	"freetime_shop/internal/payment"
	"freetime_shop/internal/store"

	"github.com/sirupsen/logrus"
)

const descriptionPrefix = "Freetime Maker Shop order "

// Started is an order waiting for payment together with the wallets that
// can pay it.
type Started struct {
	Order   models.Order              `json:"order"`
	Payment models.PaymentWithWallets `json:"payment"`
}

type Paid struct {
	Order  models.Order         `json:"order"`
	Result models.PaymentResult `json:"result"`
}

type Service struct {
	store  *store.Store
	sim    *payment.Simulator
	signer downloads.Signer
	mailer notify.Mailer
	log    logrus.FieldLogger
	wg     sync.WaitGroup
}

// New builds the service and registers it as a status observer of sim, so
// orders follow their payment whichever way the payment changes. signer may
// be nil when downloads are disabled.
func New(st *store.Store, sim *payment.Simulator, signer downloads.Signer, mailer notify.Mailer, log logrus.FieldLogger) *Service {
	if mailer == nil {
		mailer = notify.NopMailer{Log: log}
	}
	s := &Service{store: st, sim: sim, signer: signer, mailer: mailer, log: log}
	sim.Observe(s)
	return s
}

// Begin orders the current cart and opens a payment session for it. If the
// session cannot be opened the order is cancelled and the cart restored.
func (s *Service) Begin(ctx context.Context, customerID, email string) (Started, error) {
	order, err := s.store.OrderCart(ctx, customerID, email)
	if err != nil {
		return Started{}, err
	}

	pw, err := s.sim.CreatePaymentWithWalletSelection(ctx, payment.Request{
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
		OrderID:       order.ID,
		CustomerID:    customerID,
		CustomerEmail: email,
		Description:   descriptionPrefix + order.ID,
	})
	if err != nil {
		s.rollback(ctx, order)
		return Started{}, err
	}

	order, err = s.store.AttachPayment(ctx, order.ID, pw.Session.PaymentID)
	if err != nil {
		return Started{}, err
	}
	return Started{Order: order, Payment: pw}, nil
}

func (s *Service) rollback(ctx context.Context, order models.Order) {
	log := s.log.WithField("order_id", order.ID)
	if _, err := s.store.SetOrderStatus(ctx, order.ID, models.OrderStatusCancelled); err != nil {
		log.WithError(err).Warn("cancel order after payment setup failure")
	}
	for _, item := range order.Items {
		if err := s.store.AddToCart(ctx, order.CustomerID, item.Wallpaper, item.Quantity); err != nil {
			log.WithError(err).Warn("restore cart item")
		}
	}
}

// Pay processes the payment of a PENDING order. A FAILED order gets a fresh
// payment session first so the customer can try again.
func (s *Service) Pay(ctx context.Context, customerID, orderID string) (Paid, error) {
	const op = "checkout.Pay"
	order, err := s.store.Order(ctx, customerID, orderID)
	if err != nil {
		return Paid{}, err
	}

	switch order.Status {
	case models.OrderStatusPending:
	case models.OrderStatusFailed:
		if order, err = s.retry(ctx, order); err != nil {
			return Paid{}, err
		}
	default:
		return Paid{}, apperr.Conflict(op, "order %s is %s", orderID, order.Status)
	}
	if order.PaymentID == "" {
		return Paid{}, apperr.Conflict(op, "order %s has no payment session", orderID)
	}

	result, err := s.sim.ProcessPayment(ctx, order.PaymentID)
	if err != nil {
		if errors.Is(err, apperr.ErrStateConflict) {
			s.syncWithPayment(ctx, order)
		}
		return Paid{}, err
	}

	order, err = s.follow(ctx, order.ID, result.Status)
	if err != nil {
		return Paid{}, err
	}
	return Paid{Order: order, Result: result}, nil
}

func (s *Service) retry(ctx context.Context, order models.Order) (models.Order, error) {
	session, err := s.sim.InitializePayment(ctx, payment.Request{
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		CustomerEmail: order.CustomerEmail,
		Description:   descriptionPrefix + order.ID,
	})
	if err != nil {
		return models.Order{}, err
	}
	if _, err := s.store.AttachPayment(ctx, order.ID, session.PaymentID); err != nil {
		return models.Order{}, err
	}
	order, _, err = s.store.TransitionOrder(ctx, order.ID, models.OrderStatusPending, models.OrderStatusFailed)
	return order, err
}

// PaymentStatusChanged moves the order paid by session, if any, to the
// status matching the payment's.
func (s *Service) PaymentStatusChanged(ctx context.Context, session models.PaymentSession) {
	order, ok := s.store.OrderByPayment(session.PaymentID)
	if !ok {
		return
	}
	if _, err := s.follow(ctx, order.ID, session.Status); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"order_id":   order.ID,
			"payment_id": session.PaymentID,
		}).Warn("order did not follow its payment")
	}
}

// syncWithPayment catches the order up with a payment that can no longer
// be processed.
func (s *Service) syncWithPayment(ctx context.Context, order models.Order) {
	status, err := s.sim.Status(order.PaymentID)
	if err != nil {
		return
	}
	if _, err := s.follow(ctx, order.ID, status); err != nil {
		s.log.WithError(err).WithField("order_id", order.ID).Warn("sync order with payment")
	}
}

// follow applies the order transition for a payment status and mails the
// customer when the order actually changed. Statuses that say nothing
// about the order leave it alone.
func (s *Service) follow(ctx context.Context, orderID string, status models.PaymentStatus) (models.Order, error) {
	var (
		next models.OrderStatus
		from []models.OrderStatus
	)
	switch status {
	case models.PaymentStatusCompleted:
		next, from = models.OrderStatusPaid, []models.OrderStatus{models.OrderStatusPending}
	case models.PaymentStatusFailed:
		next, from = models.OrderStatusFailed, []models.OrderStatus{models.OrderStatusPending}
	case models.PaymentStatusExpired, models.PaymentStatusCancelled:
		next, from = models.OrderStatusCancelled, []models.OrderStatus{models.OrderStatusPending, models.OrderStatusFailed}
	case models.PaymentStatusRefunded:
		next, from = models.OrderStatusRefunded, []models.OrderStatus{models.OrderStatusPaid}
	}

	order, changed, err := s.store.TransitionOrder(ctx, orderID, next, from...)
	if err != nil || !changed {
		return order, err
	}
	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"payment":  status,
		"status":   order.Status,
	}).Info("order follows payment")
	if next == models.OrderStatusPaid {
		s.confirm(ctx, order)
	} else {
		s.notifyStatus(ctx, order)
	}
	return order, nil
}

// confirm mails the confirmation with download links in the background.
// Failures are logged only.
func (s *Service) confirm(ctx context.Context, order models.Order) {
	s.background(ctx, order, func(ctx context.Context, log logrus.FieldLogger) error {
		links, err := s.links(ctx, order)
		if err != nil {
			log.WithError(err).Warn("download links for confirmation")
		}
		return s.mailer.SendOrderConfirmation(ctx, order, links)
	})
}

func (s *Service) notifyStatus(ctx context.Context, order models.Order) {
	s.background(ctx, order, func(ctx context.Context, _ logrus.FieldLogger) error {
		return s.mailer.SendOrderStatus(ctx, order)
	})
}

func (s *Service) background(ctx context.Context, order models.Order, send func(context.Context, logrus.FieldLogger) error) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log := s.log.WithField("order_id", order.ID)
		if err := send(ctx, log); err != nil {
			log.WithError(err).Error("order mail not sent")
		}
	}()
}

// Cancel cancels an unpaid order and its payment.
func (s *Service) Cancel(ctx context.Context, customerID, orderID string) (models.Order, error) {
	order, err := s.store.Order(ctx, customerID, orderID)
	if err != nil {
		return models.Order{}, err
	}
	switch order.Status {
	case models.OrderStatusCancelled:
		return order, nil
	case models.OrderStatusPending, models.OrderStatusFailed:
	default:
		return models.Order{}, apperr.Conflict("checkout.Cancel", "order %s is %s and cannot be cancelled", orderID, order.Status)
	}
	if order.PaymentID != "" {
		if err := s.sim.CancelPayment(ctx, order.PaymentID); err != nil {
			s.syncWithPayment(ctx, order)
			return models.Order{}, err
		}
	}
	return s.follow(ctx, orderID, models.PaymentStatusCancelled)
}

// Refund refunds a PAID order in full.
func (s *Service) Refund(ctx context.Context, customerID, orderID string) (models.Order, error) {
	order, err := s.store.Order(ctx, customerID, orderID)
	if err != nil {
		return models.Order{}, err
	}
	switch order.Status {
	case models.OrderStatusRefunded:
		return order, nil
	case models.OrderStatusPaid:
	default:
		return models.Order{}, apperr.Conflict("checkout.Refund", "order %s is %s, only PAID orders can be refunded", orderID, order.Status)
	}
	if err := s.sim.RefundPayment(ctx, order.PaymentID, nil); err != nil {
		return models.Order{}, err
	}
	return s.follow(ctx, orderID, models.PaymentStatusRefunded)
}

// Downloads returns fresh download links for a PAID order.
func (s *Service) Downloads(ctx context.Context, customerID, orderID string) ([]downloads.Link, error) {
	order, err := s.store.Order(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusPaid {
		return nil, apperr.Conflict("checkout.Downloads", "order %s is %s, downloads need a PAID order", orderID, order.Status)
	}
	return s.links(ctx, order)
}

func (s *Service) links(ctx context.Context, order models.Order) ([]downloads.Link, error) {
	if s.signer == nil {
		s.log.WithField("order_id", order.ID).Info("downloads disabled, no links issued")
		return []downloads.Link{}, nil
	}
	return s.signer.Links(ctx, order)
}

// Wait blocks until background confirmations have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
