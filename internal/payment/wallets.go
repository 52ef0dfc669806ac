package payment

import (
	"context"
	"errors"

	"freetime_shop/internal/apperr"
	"freetime_shop/internal/models"
)

var errNoWallets = errors.New("no wallet directory configured")

// AvailableWalletApps lists the external wallets and whether each one is
// installed on the customer's device.
func (s *Simulator) AvailableWalletApps(ctx context.Context) ([]models.WalletApp, error) {
	if s.wallets == nil {
		return nil, apperr.External("payment.AvailableWalletApps", errNoWallets)
	}
	return s.wallets.Apps(ctx)
}

// GeneratePaymentDeepLink builds the URI that opens app to pay session.
func (s *Simulator) GeneratePaymentDeepLink(ctx context.Context, app models.WalletApp, session models.PaymentSession) (string, error) {
	if s.wallets == nil {
		return "", apperr.External("payment.GeneratePaymentDeepLink", errNoWallets)
	}
	return s.wallets.DeepLink(app, session)
}

// DeepLinkFor resolves the wallet by package and the session by id before
// building the link.
func (s *Simulator) DeepLinkFor(ctx context.Context, pkg, paymentID string) (models.WalletApp, string, error) {
	session, err := s.Session(paymentID)
	if err != nil {
		return models.WalletApp{}, "", err
	}
	if s.wallets == nil {
		return models.WalletApp{}, "", apperr.External("payment.DeepLinkFor", errNoWallets)
	}
	app, _ := s.wallets.App(pkg)
	link, err := s.GeneratePaymentDeepLink(ctx, app, session)
	if err != nil {
		return models.WalletApp{}, "", err
	}
	return app, link, nil
}

// CreatePaymentWithWalletSelection opens a session and lists the wallets
// that can pay it. It fails if either step fails; a session opened before a
// wallet lookup failure is cancelled.
func (s *Simulator) CreatePaymentWithWalletSelection(ctx context.Context, req Request) (models.PaymentWithWallets, error) {
	session, err := s.InitializePayment(ctx, req)
	if err != nil {
		return models.PaymentWithWallets{}, err
	}
	apps, err := s.AvailableWalletApps(ctx)
	if err != nil {
		if cancelErr := s.CancelPayment(ctx, session.PaymentID); cancelErr != nil {
			s.log.WithError(cancelErr).WithField("payment_id", session.PaymentID).Warn("could not cancel orphan session")
		}
		return models.PaymentWithWallets{}, err
	}
	return models.PaymentWithWallets{Session: session, AvailableWallets: apps}, nil
}
