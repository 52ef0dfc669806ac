package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"freetime_shop/internal/config"
	"freetime_shop/internal/downloads"
	"freetime_shop/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidOrder() models.Order {
	items := []models.CartItem{{
		Wallpaper: models.Wallpaper{ID: "wp-neon-grid", Name: "Neon <Grid>", Price: decimal.RequireFromString("1.99")},
		Quantity:  2,
	}}
	return models.Order{
		ID:            "o-42",
		Items:         items,
		TotalAmount:   models.CartTotal(items),
		Currency:      models.OrderCurrency,
		Status:        models.OrderStatusPaid,
		CustomerEmail: "buyer@example.com",
	}
}

func TestRenderConfirmation(t *testing.T) {
	links := []downloads.Link{{
		WallpaperID: "wp-neon-grid",
		Name:        "Neon Grid",
		URL:         "https://files.example/neon.png?sig=abc",
		ExpiresAt:   time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC),
	}}
	body, err := RenderConfirmation(paidOrder(), links)
	require.NoError(t, err)

	assert.Contains(t, body, "o-42")
	assert.Contains(t, body, "Neon &lt;Grid&gt;")
	assert.Contains(t, body, "<td>1.99</td>")
	assert.Contains(t, body, "<td>3.98</td>")
	assert.Contains(t, body, "3.98 USD")
	assert.Contains(t, body, `href="https://files.example/neon.png?sig=abc"`)
	assert.Contains(t, body, "2026-10-19 13:00 UTC")
}

func TestRenderConfirmationWithoutLinks(t *testing.T) {
	body, err := RenderConfirmation(paidOrder(), nil)
	require.NoError(t, err)
	assert.NotContains(t, body, "Downloads")
}

func TestMessageHeaders(t *testing.T) {
	log, _ := test.NewNullLogger()
	m := NewSMTPMailer(config.SMTP{Host: "smtp.example", Port: 587, From: "shop@example.com"}, log)

	order := paidOrder()
	msg, err := m.message(order.CustomerEmail, Subject(order), "<p>hi</p>")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: Your Freetime Maker Shop order o-42")
	assert.Contains(t, raw, "<buyer@example.com>")
	assert.Contains(t, raw, "<shop@example.com>")
	assert.Contains(t, raw, "text/html")
}

func TestMessageRejectsBadAddress(t *testing.T) {
	log, _ := test.NewNullLogger()
	m := NewSMTPMailer(config.SMTP{Host: "smtp.example", From: "shop@example.com"}, log)
	_, err := m.message("not an address", "subject", "body")
	assert.Error(t, err)
}

func TestNopMailerLogs(t *testing.T) {
	log, hook := test.NewNullLogger()
	n := NopMailer{Log: log}
	require.NoError(t, n.SendOrderConfirmation(context.Background(), paidOrder(), nil))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "o-42", hook.LastEntry().Data["order_id"])

	require.NoError(t, n.SendOrderStatus(context.Background(), paidOrder()))
	assert.Equal(t, models.OrderStatusPaid, hook.LastEntry().Data["status"])
}

func TestRenderStatus(t *testing.T) {
	order := paidOrder()
	order.Status = models.OrderStatusRefunded

	body, err := RenderStatus(order)
	require.NoError(t, err)
	assert.Contains(t, body, "Refund processed")
	assert.Contains(t, body, "#f59e0b")
	assert.Contains(t, body, "3.98 USD")
	assert.Equal(t, "Refund processed - Freetime Maker Shop", StatusSubject(order))

	order.Status = models.OrderStatusPending
	assert.Equal(t, "Order update - Freetime Maker Shop", StatusSubject(order))
}
