// Package store owns shopping carts and order history. All state lives in
// memory behind a single mutex; changes are pushed to cart subscribers as
// full snapshots.
package store

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"freetime_shop/internal/apperr"
	"freetime_shop/internal/metrics"
	"freetime_shop/internal/models"
	"freetime_shop/internal/pubsub"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Observer is told about every committed change, outside the store lock.
type Observer interface {
	CartChanged(ctx context.Context, customerID string, items []models.CartItem)
	OrderChanged(ctx context.Context, order models.Order)
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithObserver(o Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, o) }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) { s.log = log }
}

type Store struct {
	mu       sync.Mutex
	carts    map[string][]models.CartItem
	orders   map[string][]models.Order // customer id -> orders, insertion order
	index    map[string]string         // order id -> customer id
	payments map[string]string         // attached payment id -> order id

	cartTopics *pubsub.Hub[string, []models.CartItem]
	observers  []Observer
	now        func() time.Time
	log        logrus.FieldLogger
}

func New(opts ...Option) *Store {
	s := &Store{
		carts:      make(map[string][]models.CartItem),
		orders:     make(map[string][]models.Order),
		index:      make(map[string]string),
		payments:   make(map[string]string),
		cartTopics: pubsub.NewHub[string, []models.CartItem](),
		now:        time.Now,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddToCart merges quantity into the existing line for the wallpaper, or
// appends a new line.
func (s *Store) AddToCart(ctx context.Context, customerID string, w models.Wallpaper, quantity int) error {
	if quantity <= 0 {
		return apperr.Validation("store.AddToCart", "quantity must be positive, got %d", quantity)
	}
	if w.ID == "" {
		return apperr.Validation("store.AddToCart", "wallpaper id is required")
	}

	s.mu.Lock()
	cart := cloneItems(s.carts[customerID])
	found := false
	for i := range cart {
		if cart[i].Wallpaper.ID == w.ID {
			if cart[i].Quantity > math.MaxInt-quantity {
				current := cart[i].Quantity
				s.mu.Unlock()
				return apperr.Validation("store.AddToCart", "quantity %d plus %d is too large", current, quantity)
			}
			cart[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		cart = append(cart, models.CartItem{Wallpaper: w, Quantity: quantity})
	}
	snapshot := s.setCartLocked(customerID, cart)
	s.mu.Unlock()

	metrics.RecordCartMutation("add")
	s.cartChanged(ctx, customerID, snapshot)
	return nil
}

// RemoveFromCart drops every line for the wallpaper. Unknown ids are ignored.
func (s *Store) RemoveFromCart(ctx context.Context, customerID, wallpaperID string) error {
	s.mu.Lock()
	current := s.carts[customerID]
	cart := make([]models.CartItem, 0, len(current))
	for _, item := range current {
		if item.Wallpaper.ID != wallpaperID {
			cart = append(cart, item)
		}
	}
	snapshot := s.setCartLocked(customerID, cart)
	s.mu.Unlock()

	metrics.RecordCartMutation("remove")
	s.cartChanged(ctx, customerID, snapshot)
	return nil
}

// UpdateCartQuantity replaces the quantity of an existing line. A quantity
// of zero or less removes the line; an absent line is left alone.
func (s *Store) UpdateCartQuantity(ctx context.Context, customerID, wallpaperID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, customerID, wallpaperID)
	}

	s.mu.Lock()
	cart := cloneItems(s.carts[customerID])
	idx := -1
	for i := range cart {
		if cart[i].Wallpaper.ID == wallpaperID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	cart[idx].Quantity = quantity
	snapshot := s.setCartLocked(customerID, cart)
	s.mu.Unlock()

	metrics.RecordCartMutation("update")
	s.cartChanged(ctx, customerID, snapshot)
	return nil
}

func (s *Store) ClearCart(ctx context.Context, customerID string) error {
	s.mu.Lock()
	snapshot := s.setCartLocked(customerID, nil)
	s.mu.Unlock()

	metrics.RecordCartMutation("clear")
	s.cartChanged(ctx, customerID, snapshot)
	return nil
}

// CartItems returns a copy of the current cart.
func (s *Store) CartItems(customerID string) []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.carts[customerID])
}

// SubscribeCart streams the cart of customerID: the current snapshot first,
// then one snapshot per change.
func (s *Store) SubscribeCart(customerID string) (<-chan []models.CartItem, func()) {
	s.mu.Lock()
	topic := s.cartTopics.Topic(customerID)
	if _, ok := topic.Latest(); !ok {
		topic.Publish(cloneItems(s.carts[customerID]))
	}
	s.mu.Unlock()
	return topic.Subscribe()
}

func (s *Store) CartTotal(ctx context.Context, customerID string) (decimal.Decimal, error) {
	return models.CartTotal(s.CartItems(customerID)), nil
}

// CreateOrder records a PENDING order for items and empties the cart in the
// same critical section.
func (s *Store) CreateOrder(ctx context.Context, customerID string, items []models.CartItem, customerEmail string) (models.Order, error) {
	if err := validateItems("store.CreateOrder", items); err != nil {
		return models.Order{}, err
	}
	order := s.newOrder(customerID, items, customerEmail)

	s.mu.Lock()
	snapshot := s.recordLocked(order)
	s.mu.Unlock()

	s.orderCreated(ctx, order, snapshot)
	return cloneOrder(order), nil
}

// OrderCart turns the current cart of customerID into a PENDING order. The
// cart is read, ordered and emptied under one lock, so a concurrent
// AddToCart lands either in the order or in the next cart.
func (s *Store) OrderCart(ctx context.Context, customerID, customerEmail string) (models.Order, error) {
	s.mu.Lock()
	items := cloneItems(s.carts[customerID])
	if len(items) == 0 {
		s.mu.Unlock()
		return models.Order{}, apperr.Validation("store.OrderCart", "cart is empty")
	}
	if err := validateItems("store.OrderCart", items); err != nil {
		s.mu.Unlock()
		return models.Order{}, err
	}
	order := s.newOrder(customerID, items, customerEmail)
	snapshot := s.recordLocked(order)
	s.mu.Unlock()

	s.orderCreated(ctx, order, snapshot)
	return cloneOrder(order), nil
}

func validateItems(op string, items []models.CartItem) error {
	if len(items) == 0 {
		return apperr.Validation(op, "cannot create an order without items")
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return apperr.Validation(op, "item %s has quantity %d", item.Wallpaper.ID, item.Quantity)
		}
	}
	return nil
}

func (s *Store) newOrder(customerID string, items []models.CartItem, customerEmail string) models.Order {
	now := s.now()
	return models.Order{
		ID:            uuid.NewString(),
		CustomerID:    customerID,
		Items:         cloneItems(items),
		TotalAmount:   models.CartTotal(items),
		Currency:      models.OrderCurrency,
		Status:        models.OrderStatusPending,
		CustomerEmail: customerEmail,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// recordLocked appends order and empties the cart. Caller holds s.mu.
func (s *Store) recordLocked(order models.Order) []models.CartItem {
	s.orders[order.CustomerID] = append(s.orders[order.CustomerID], order)
	s.index[order.ID] = order.CustomerID
	return s.setCartLocked(order.CustomerID, nil)
}

func (s *Store) orderCreated(ctx context.Context, order models.Order, cart []models.CartItem) {
	s.log.WithFields(logrus.Fields{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"total":       order.TotalAmount.StringFixed(2),
		"items":       len(order.Items),
	}).Info("order created")
	metrics.RecordOrderCreated()

	s.cartChanged(ctx, order.CustomerID, cart)
	s.orderChanged(ctx, order)
}

// OrderHistory lists the customer's orders, most recent first.
func (s *Store) OrderHistory(ctx context.Context, customerID string) ([]models.Order, error) {
	s.mu.Lock()
	stored := s.orders[customerID]
	out := make([]models.Order, len(stored))
	// reversed insertion order keeps equal timestamps newest-first
	for i, o := range stored {
		out[len(stored)-1-i] = cloneOrder(o)
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Order(ctx context.Context, customerID, orderID string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.findLocked(orderID)
	if !ok || o.CustomerID != customerID {
		return models.Order{}, apperr.NotFound("store.Order", "order", orderID)
	}
	return cloneOrder(*o), nil
}

func (s *Store) SetOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (models.Order, error) {
	order, _, err := s.updateOrder(ctx, "store.SetOrderStatus", orderID, func(o *models.Order) bool {
		o.Status = status
		return true
	})
	return order, err
}

// TransitionOrder moves orderID to status only if its current status is one
// of from. It reports whether the order changed.
func (s *Store) TransitionOrder(ctx context.Context, orderID string, status models.OrderStatus, from ...models.OrderStatus) (models.Order, bool, error) {
	return s.updateOrder(ctx, "store.TransitionOrder", orderID, func(o *models.Order) bool {
		for _, f := range from {
			if o.Status == f {
				o.Status = status
				return true
			}
		}
		return false
	})
}

// AttachPayment links paymentID to the order, replacing any earlier
// payment, which is no longer resolved by OrderByPayment.
func (s *Store) AttachPayment(ctx context.Context, orderID, paymentID string) (models.Order, error) {
	order, _, err := s.updateOrder(ctx, "store.AttachPayment", orderID, func(o *models.Order) bool {
		if o.PaymentID != "" {
			delete(s.payments, o.PaymentID)
		}
		o.PaymentID = paymentID
		s.payments[paymentID] = o.ID
		return true
	})
	return order, err
}

// OrderByPayment returns the order currently paid by paymentID.
func (s *Store) OrderByPayment(paymentID string) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orderID, ok := s.payments[paymentID]
	if !ok {
		return models.Order{}, false
	}
	o, ok := s.findLocked(orderID)
	if !ok {
		return models.Order{}, false
	}
	return cloneOrder(*o), true
}

// updateOrder applies mutate under the lock; observers hear about it only
// when mutate reports a change.
func (s *Store) updateOrder(ctx context.Context, op, orderID string, mutate func(*models.Order) bool) (models.Order, bool, error) {
	s.mu.Lock()
	o, ok := s.findLocked(orderID)
	if !ok {
		s.mu.Unlock()
		return models.Order{}, false, apperr.NotFound(op, "order", orderID)
	}
	if !mutate(o) {
		current := cloneOrder(*o)
		s.mu.Unlock()
		return current, false, nil
	}
	o.UpdatedAt = s.now()
	updated := cloneOrder(*o)
	s.mu.Unlock()

	s.orderChanged(ctx, updated)
	return updated, true, nil
}

func (s *Store) findLocked(orderID string) (*models.Order, bool) {
	customerID, ok := s.index[orderID]
	if !ok {
		return nil, false
	}
	orders := s.orders[customerID]
	for i := range orders {
		if orders[i].ID == orderID {
			return &orders[i], true
		}
	}
	return nil, false
}

// setCartLocked stores cart and publishes it while the lock is held, so
// subscribers see snapshots in commit order.
func (s *Store) setCartLocked(customerID string, cart []models.CartItem) []models.CartItem {
	if len(cart) == 0 {
		delete(s.carts, customerID)
		cart = []models.CartItem{}
	} else {
		s.carts[customerID] = cart
	}
	snapshot := cloneItems(cart)
	s.cartTopics.Publish(customerID, snapshot)
	return snapshot
}

func (s *Store) cartChanged(ctx context.Context, customerID string, items []models.CartItem) {
	for _, o := range s.observers {
		o.CartChanged(ctx, customerID, cloneItems(items))
	}
}

func (s *Store) orderChanged(ctx context.Context, order models.Order) {
	for _, o := range s.observers {
		o.OrderChanged(ctx, cloneOrder(order))
	}
}

// Close ends every cart subscription.
func (s *Store) Close() {
	s.cartTopics.Close()
}

func cloneItems(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, len(items))
	copy(out, items)
	return out
}

func cloneOrder(o models.Order) models.Order {
	o.Items = cloneItems(o.Items)
	return o
}
