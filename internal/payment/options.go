package payment

import (
	"math/rand"
	"time"

	"freetime_shop/internal/wallet"

	"github.com/sirupsen/logrus"
)

const (
	DefaultDelay          = 2 * time.Second
	DefaultFailureRate    = 0.1
	DefaultSessionTTL     = 30 * time.Minute
	DefaultMerchantID     = "freetime_maker_shop"
	DefaultPaymentURLBase = "https://freetimemaker.github.io/Freetime-Maker-Shop/payment/"

	FailureMessage = "Payment failed. Please try again."
)

// Source draws the uniform value in [0,1) that decides a payment outcome.
type Source interface {
	Float64() float64
}

// globalSource uses the goroutine-safe top level math/rand functions.
type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// FixedSource always draws the same value. 1 always succeeds, 0 always fails.
type FixedSource float64

func (f FixedSource) Float64() float64 { return float64(f) }

type Option func(*Simulator)

func WithDelay(d time.Duration) Option {
	return func(s *Simulator) { s.delay = d }
}

func WithFailureRate(p float64) Option {
	return func(s *Simulator) { s.failureRate = p }
}

func WithSource(src Source) Option {
	return func(s *Simulator) { s.source = src }
}

func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Simulator) { s.ttl = ttl }
}

func WithMerchantID(id string) Option {
	return func(s *Simulator) { s.merchantID = id }
}

func WithPaymentURLBase(base string) Option {
	return func(s *Simulator) { s.urlBase = base }
}

func WithWallets(d *wallet.Directory) Option {
	return func(s *Simulator) { s.wallets = d }
}

func WithObserver(o StatusObserver) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Simulator) { s.log = log }
}
