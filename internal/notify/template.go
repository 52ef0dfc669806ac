package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"freetime_shop/internal/downloads"
	"freetime_shop/internal/models"
)

var confirmation = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>Order confirmation</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Thanks for your order</h2>
		<p>Order <strong>{{.Order.ID}}</strong> has been paid.</p>
		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left;">Wallpaper</th>
					<th style="padding: 10px; text-align: left;">Quantity</th>
					<th style="padding: 10px; text-align: left;">Price</th>
					<th style="padding: 10px; text-align: left;">Total</th>
				</tr>
			</thead>
			<tbody>
			{{- range .Order.Items}}
				<tr>
					<td>{{.Wallpaper.Name}}</td>
					<td>{{.Quantity}}</td>
					<td>{{.Wallpaper.Price.StringFixed 2}}</td>
					<td>{{.LineTotal.StringFixed 2}}</td>
				</tr>
			{{- end}}
			</tbody>
			<tfoot>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right; font-weight: bold;">Total:</td>
					<td style="padding: 10px; font-weight: bold;">{{.Order.TotalAmount.StringFixed 2}} {{.Order.Currency}}</td>
				</tr>
			</tfoot>
		</table>
		{{- if .Links}}
		<h3>Downloads</h3>
		<ul>
		{{- range .Links}}
			<li><a href="{{.URL}}">{{.Name}}</a> (valid until {{.ExpiresAt.Format "2006-01-02 15:04 MST"}})</li>
		{{- end}}
		</ul>
		{{- end}}
		<p style="margin-top: 30px; color: #555;">Freetime Maker</p>
	</div>
</body>
</html>`))

// RenderConfirmation renders the HTML body of the confirmation e-mail.
func RenderConfirmation(order models.Order, links []downloads.Link) (string, error) {
	var buf bytes.Buffer
	err := confirmation.Execute(&buf, struct {
		Order models.Order
		Links []downloads.Link
	}{order, links})
	if err != nil {
		return "", fmt.Errorf("notify: render confirmation: %w", err)
	}
	return buf.String(), nil
}
