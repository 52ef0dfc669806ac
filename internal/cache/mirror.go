package cache

import (
	"context"
	"encoding/json"
	"time"

	"freetime_shop/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	CartTTL    = 30 * 24 * time.Hour
	OrderTTL   = 30 * 24 * time.Hour
	PaymentTTL = 24 * time.Hour

	CartUpdated = "updated"
	CartCleared = "cleared"
)

func CartKey(customerID string) string   { return "cart:" + customerID }
func OrderKey(orderID string) string     { return "order:" + orderID }
func PaymentKey(paymentID string) string { return "payment:" + paymentID }

// Mirror writes every cart, order and payment change to Redis. Write
// failures are logged; the in-memory state stays authoritative.
type Mirror struct {
	client *redis.Client
	log    logrus.FieldLogger
}

func NewMirror(client *redis.Client, log logrus.FieldLogger) *Mirror {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Mirror{client: client, log: log}
}

// CartChanged stores the snapshot and notifies cart:<customer> listeners
// with "updated", or deletes it and sends "cleared" when the cart is empty.
func (m *Mirror) CartChanged(ctx context.Context, customerID string, items []models.CartItem) {
	key := CartKey(customerID)
	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(items) == 0 {
			pipe.Del(ctx, key)
			pipe.Publish(ctx, key, CartCleared)
			return nil
		}
		data, err := json.Marshal(items)
		if err != nil {
			return err
		}
		pipe.Set(ctx, key, data, CartTTL)
		pipe.Publish(ctx, key, CartUpdated)
		return nil
	})
	if err != nil {
		m.log.WithError(err).WithField("customer_id", customerID).Warn("mirror cart failed")
	}
}

func (m *Mirror) OrderChanged(ctx context.Context, order models.Order) {
	data, err := json.Marshal(order)
	if err == nil {
		err = m.client.Set(ctx, OrderKey(order.ID), data, OrderTTL).Err()
	}
	if err != nil {
		m.log.WithError(err).WithField("order_id", order.ID).Warn("mirror order failed")
	}
}

// PaymentStatusChanged stores the status and publishes it on payment:<id>.
func (m *Mirror) PaymentStatusChanged(ctx context.Context, session models.PaymentSession) {
	key := PaymentKey(session.PaymentID)
	status := string(session.Status)
	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, status, PaymentTTL)
		pipe.Publish(ctx, key, status)
		return nil
	})
	if err != nil {
		m.log.WithError(err).WithField("payment_id", session.PaymentID).Warn("mirror payment status failed")
	}
}
