// Package payment simulates a payment provider: sessions are created, then
// processed after a fixed delay with a random success or failure.
package payment

import (
	"context"
	"net/mail"
	"strings"
	"sync"
	"time"

	"freetime_shop/internal/apperr"
	"freetime_shop/internal/metrics"
	"freetime_shop/internal/models"
	"freetime_shop/internal/pubsub"
	"freetime_shop/internal/wallet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SupportedCurrencies are the currencies a session can be opened in.
var SupportedCurrencies = map[string]bool{
	"USD": true, "EUR": true, "BTC": true, "ETH": true, "BNB": true, "SOL": true,
}

// Subscribers lag by at most this many transitions before one is dropped.
const statusBuffer = 8

// StatusObserver is told about every status change, outside the lock.
type StatusObserver interface {
	PaymentStatusChanged(ctx context.Context, session models.PaymentSession)
}

type Request struct {
	Amount        decimal.Decimal
	Currency      string
	OrderID       string
	CustomerID    string
	CustomerEmail string
	Description   string
}

type entry struct {
	session models.PaymentSession
	// attempt changes whenever a processing run must not settle anymore
	attempt int
}

type Simulator struct {
	mu       sync.Mutex
	sessions map[string]*entry
	topics   *pubsub.Hub[string, models.PaymentStatus]

	delay       time.Duration
	failureRate float64
	source      Source
	now         func() time.Time
	ttl         time.Duration
	merchantID  string
	urlBase     string
	wallets     *wallet.Directory
	observers   []StatusObserver
	log         logrus.FieldLogger
}

func New(opts ...Option) *Simulator {
	s := &Simulator{
		sessions:    make(map[string]*entry),
		topics:      pubsub.NewBufferedHub[string, models.PaymentStatus](statusBuffer),
		delay:       DefaultDelay,
		failureRate: DefaultFailureRate,
		source:      globalSource{},
		now:         time.Now,
		ttl:         DefaultSessionTTL,
		merchantID:  DefaultMerchantID,
		urlBase:     DefaultPaymentURLBase,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Observe adds o to the status observers. It must be called before the
// simulator is shared between goroutines.
func (s *Simulator) Observe(o StatusObserver) {
	s.observers = append(s.observers, o)
}

// InitializePayment opens a PENDING session that expires after the TTL.
func (s *Simulator) InitializePayment(ctx context.Context, req Request) (models.PaymentSession, error) {
	const op = "payment.InitializePayment"
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if !req.Amount.IsPositive() {
		return models.PaymentSession{}, apperr.Validation(op, "amount must be positive, got %s", req.Amount)
	}
	if !SupportedCurrencies[currency] {
		return models.PaymentSession{}, apperr.Validation(op, "unsupported currency %q", req.Currency)
	}
	if _, err := mail.ParseAddress(req.CustomerEmail); err != nil {
		return models.PaymentSession{}, apperr.Validation(op, "invalid customer email %q", req.CustomerEmail)
	}

	id := uuid.NewString()
	session := models.PaymentSession{
		PaymentID:     id,
		OrderID:       req.OrderID,
		CustomerID:    req.CustomerID,
		Amount:        req.Amount,
		Currency:      currency,
		MerchantID:    s.merchantID,
		CustomerEmail: req.CustomerEmail,
		Description:   req.Description,
		PaymentURL:    s.urlBase + id,
		ExpiresAt:     s.now().Add(s.ttl),
		Status:        models.PaymentStatusPending,
	}

	s.mu.Lock()
	s.sessions[id] = &entry{session: session}
	s.topics.Publish(id, session.Status)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"payment_id": id,
		"order_id":   req.OrderID,
		"amount":     req.Amount.String(),
		"currency":   currency,
	}).Info("payment session created")
	s.changed(ctx, session)
	return session, nil
}

// ProcessPayment moves a PENDING session to PROCESSING, waits for the
// simulated delay and settles it as COMPLETED or FAILED. If ctx ends during
// the delay the session goes back to PENDING and can be processed again.
func (s *Simulator) ProcessPayment(ctx context.Context, paymentID string) (models.PaymentResult, error) {
	const op = "payment.ProcessPayment"
	start := time.Now()

	s.mu.Lock()
	e, ok := s.sessions[paymentID]
	if !ok {
		s.mu.Unlock()
		return models.PaymentResult{}, apperr.NotFound(op, "payment", paymentID)
	}
	if e.session.Status == models.PaymentStatusPending && !s.now().Before(e.session.ExpiresAt) {
		expired := s.setLocked(e, models.PaymentStatusExpired)
		s.mu.Unlock()
		s.changed(ctx, expired)
		return models.PaymentResult{}, apperr.Conflict(op, "payment %s expired at %s", paymentID, e.session.ExpiresAt.Format(time.RFC3339))
	}
	if e.session.Status != models.PaymentStatusPending {
		status := e.session.Status
		s.mu.Unlock()
		return models.PaymentResult{}, apperr.Conflict(op, "payment %s is %s, not PENDING", paymentID, status)
	}
	processing := s.setLocked(e, models.PaymentStatusProcessing)
	attempt := e.attempt
	s.mu.Unlock()
	s.changed(ctx, processing)

	if err := s.wait(ctx); err != nil {
		s.mu.Lock()
		var reverted *models.PaymentSession
		if e.attempt == attempt && e.session.Status == models.PaymentStatusProcessing {
			r := s.setLocked(e, models.PaymentStatusPending)
			reverted = &r
		}
		s.mu.Unlock()
		if reverted != nil {
			// ctx is already done; observers still need the change
			s.changed(context.WithoutCancel(ctx), *reverted)
		}
		s.log.WithField("payment_id", paymentID).WithError(err).Warn("payment processing abandoned")
		return models.PaymentResult{}, err
	}

	success := s.source.Float64() > s.failureRate
	outcome := models.PaymentStatusFailed
	if success {
		outcome = models.PaymentStatusCompleted
	}

	s.mu.Lock()
	if e.attempt != attempt || e.session.Status != models.PaymentStatusProcessing {
		status := e.session.Status
		s.mu.Unlock()
		return models.PaymentResult{}, apperr.Conflict(op, "payment %s became %s while processing", paymentID, status)
	}
	settled := s.setLocked(e, outcome)
	s.mu.Unlock()

	result := models.PaymentResult{
		PaymentID:   paymentID,
		Status:      outcome,
		Amount:      settled.Amount,
		Currency:    settled.Currency,
		ProcessedAt: s.now(),
	}
	if success {
		txID := uuid.NewString()
		result.TransactionID = &txID
	} else {
		msg := FailureMessage
		result.ErrorMessage = &msg
	}

	metrics.ObservePaymentDuration(time.Since(start))
	s.log.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"status":     outcome,
	}).Info("payment processed")
	s.changed(ctx, settled)
	return result, nil
}

func (s *Simulator) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Status returns the current status of a payment.
func (s *Simulator) Status(paymentID string) (models.PaymentStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[paymentID]
	if !ok {
		return "", apperr.NotFound("payment.Status", "payment", paymentID)
	}
	return e.session.Status, nil
}

// Session returns the session with its current status.
func (s *Simulator) Session(paymentID string) (models.PaymentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[paymentID]
	if !ok {
		return models.PaymentSession{}, apperr.NotFound("payment.Session", "payment", paymentID)
	}
	return e.session, nil
}

// SubscribeStatus streams the status of a payment: the current one first,
// then every transition. Unknown ids are reported as not found.
func (s *Simulator) SubscribeStatus(paymentID string) (<-chan models.PaymentStatus, func(), error) {
	s.mu.Lock()
	_, ok := s.sessions[paymentID]
	s.mu.Unlock()
	if !ok {
		return nil, nil, apperr.NotFound("payment.SubscribeStatus", "payment", paymentID)
	}
	ch, cancel := s.topics.Topic(paymentID).Subscribe()
	return ch, cancel, nil
}

// CancelPayment cancels a payment that has not been paid. Cancelling twice
// is a no-op; a processing run in flight will not settle afterwards.
func (s *Simulator) CancelPayment(ctx context.Context, paymentID string) error {
	const op = "payment.CancelPayment"
	s.mu.Lock()
	e, ok := s.sessions[paymentID]
	if !ok {
		s.mu.Unlock()
		return apperr.NotFound(op, "payment", paymentID)
	}
	switch e.session.Status {
	case models.PaymentStatusCancelled:
		s.mu.Unlock()
		return nil
	case models.PaymentStatusCompleted, models.PaymentStatusRefunded:
		status := e.session.Status
		s.mu.Unlock()
		return apperr.Conflict(op, "payment %s is %s and cannot be cancelled", paymentID, status)
	}
	cancelled := s.setLocked(e, models.PaymentStatusCancelled)
	s.mu.Unlock()

	s.log.WithField("payment_id", paymentID).Info("payment cancelled")
	s.changed(ctx, cancelled)
	return nil
}

// RefundPayment refunds a COMPLETED payment. amount may be nil for a full
// refund; a partial amount must be positive and not exceed the payment.
func (s *Simulator) RefundPayment(ctx context.Context, paymentID string, amount *decimal.Decimal) error {
	const op = "payment.RefundPayment"
	s.mu.Lock()
	e, ok := s.sessions[paymentID]
	if !ok {
		s.mu.Unlock()
		return apperr.NotFound(op, "payment", paymentID)
	}
	if amount != nil && (!amount.IsPositive() || amount.GreaterThan(e.session.Amount)) {
		total := e.session.Amount
		s.mu.Unlock()
		return apperr.Validation(op, "refund amount %s must be in (0, %s]", amount, total)
	}
	switch e.session.Status {
	case models.PaymentStatusRefunded:
		s.mu.Unlock()
		return nil
	case models.PaymentStatusCompleted:
	default:
		status := e.session.Status
		s.mu.Unlock()
		return apperr.Conflict(op, "payment %s is %s, only COMPLETED payments can be refunded", paymentID, status)
	}
	refunded := s.setLocked(e, models.PaymentStatusRefunded)
	s.mu.Unlock()

	s.log.WithField("payment_id", paymentID).Info("payment refunded")
	s.changed(ctx, refunded)
	return nil
}

// ExpireStale marks PENDING sessions past their expiry as EXPIRED and
// returns how many were expired.
func (s *Simulator) ExpireStale(ctx context.Context) int {
	now := s.now()
	var expired []models.PaymentSession

	s.mu.Lock()
	for _, e := range s.sessions {
		if e.session.Status == models.PaymentStatusPending && !now.Before(e.session.ExpiresAt) {
			expired = append(expired, s.setLocked(e, models.PaymentStatusExpired))
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		s.changed(ctx, session)
	}
	return len(expired)
}

// RunExpiry calls ExpireStale every interval until ctx ends.
func (s *Simulator) RunExpiry(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ExpireStale(ctx); n > 0 {
				s.log.WithField("count", n).Info("expired stale payment sessions")
			}
		}
	}
}

// Close ends every status subscription.
func (s *Simulator) Close() {
	s.topics.Close()
}

// setLocked records status, bumps the attempt and publishes. Caller holds s.mu.
func (s *Simulator) setLocked(e *entry, status models.PaymentStatus) models.PaymentSession {
	e.session.Status = status
	e.attempt++
	s.topics.Publish(e.session.PaymentID, status)
	metrics.RecordPaymentStatus(string(status))
	return e.session
}

func (s *Simulator) changed(ctx context.Context, session models.PaymentSession) {
	for _, o := range s.observers {
		o.PaymentStatusChanged(ctx, session)
	}
}
