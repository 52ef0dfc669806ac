package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"freetime_shop/internal/models"
)

type statusText struct {
	Subject string
	Message string
	Color   string
}

var statusTexts = map[models.OrderStatus]statusText{
	models.OrderStatusPaid: {
		Subject: "Payment confirmed",
		Message: "Your payment has been confirmed. Your wallpapers are ready to download.",
		Color:   "#10b981",
	},
	models.OrderStatusFailed: {
		Subject: "Payment failed",
		Message: "We could not complete your payment. You can try again from your order history.",
		Color:   "#ef4444",
	},
	models.OrderStatusCancelled: {
		Subject: "Order cancelled",
		Message: "Your order has been cancelled and no payment was taken.",
		Color:   "#6b7280",
	},
	models.OrderStatusRefunded: {
		Subject: "Refund processed",
		Message: "Your refund has been processed. The funds will be returned to your original payment method.",
		Color:   "#f59e0b",
	},
}

var fallbackText = statusText{Subject: "Order update", Message: "The status of your order has changed.", Color: "#6b7280"}

func textFor(status models.OrderStatus) statusText {
	if t, ok := statusTexts[status]; ok {
		return t
	}
	return fallbackText
}

func StatusSubject(order models.Order) string {
	return textFor(order.Status).Subject + " - Freetime Maker Shop"
}

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>{{.Text.Subject}}</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px; border-top: 4px solid {{.Text.Color}};">
		<h2 style="color: {{.Text.Color}};">{{.Text.Subject}}</h2>
		<p>{{.Text.Message}}</p>
		<p>Order <strong>{{.Order.ID}}</strong>, total {{.Order.TotalAmount.StringFixed 2}} {{.Order.Currency}}, status <strong>{{.Order.Status}}</strong>.</p>
		<p style="margin-top: 30px; color: #555;">Freetime Maker</p>
	</div>
</body>
</html>`))

// RenderStatus renders the HTML body of a status change e-mail.
func RenderStatus(order models.Order) (string, error) {
	var buf bytes.Buffer
	err := statusTemplate.Execute(&buf, struct {
		Order models.Order
		Text  statusText
	}{order, textFor(order.Status)})
	if err != nil {
		return "", fmt.Errorf("notify: render status: %w", err)
	}
	return buf.String(), nil
}
