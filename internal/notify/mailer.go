// Package notify sends the order confirmation e-mail.
package notify

import (
	"context"
	"fmt"

	"freetime_shop/internal/config"
	"freetime_shop/internal/downloads"
	"freetime_shop/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

type Mailer interface {
	SendOrderConfirmation(ctx context.Context, order models.Order, links []downloads.Link) error
	// SendOrderStatus tells the customer that an order failed, was
	// cancelled or was refunded.
	SendOrderStatus(ctx context.Context, order models.Order) error
}

type SMTPMailer struct {
	cfg config.SMTP
	log logrus.FieldLogger
}

func NewSMTPMailer(cfg config.SMTP, log logrus.FieldLogger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log}
}

func (m *SMTPMailer) SendOrderConfirmation(ctx context.Context, order models.Order, links []downloads.Link) error {
	body, err := RenderConfirmation(order, links)
	if err != nil {
		return err
	}
	return m.send(ctx, order, Subject(order), body)
}

func (m *SMTPMailer) SendOrderStatus(ctx context.Context, order models.Order) error {
	body, err := RenderStatus(order)
	if err != nil {
		return err
	}
	return m.send(ctx, order, StatusSubject(order), body)
}

func (m *SMTPMailer) send(ctx context.Context, order models.Order, subject, body string) error {
	msg, err := m.message(order.CustomerEmail, subject, body)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("notify: smtp client: %w", err)
	}

	m.log.WithFields(logrus.Fields{"order_id": order.ID, "to": order.CustomerEmail, "subject": subject}).Info("sending mail")
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("notify: send %q for %s: %w", subject, order.ID, err)
	}
	return nil
}

func (m *SMTPMailer) message(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("notify: from %q: %w", m.cfg.From, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("notify: to %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

func Subject(order models.Order) string {
	return "Your Freetime Maker Shop order " + order.ID
}

// NopMailer only logs; it stands in when SMTP is not configured.
type NopMailer struct {
	Log logrus.FieldLogger
}

func (n NopMailer) SendOrderConfirmation(_ context.Context, order models.Order, links []downloads.Link) error {
	n.logger().WithFields(logrus.Fields{
		"order_id": order.ID,
		"to":       order.CustomerEmail,
		"links":    len(links),
	}).Info("smtp disabled, confirmation not sent")
	return nil
}

func (n NopMailer) SendOrderStatus(_ context.Context, order models.Order) error {
	n.logger().WithFields(logrus.Fields{
		"order_id": order.ID,
		"to":       order.CustomerEmail,
		"status":   order.Status,
	}).Info("smtp disabled, status mail not sent")
	return nil
}

func (n NopMailer) logger() logrus.FieldLogger {
	if n.Log == nil {
		return logrus.StandardLogger()
	}
	return n.Log
}
