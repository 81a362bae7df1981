package mailer

import (
	"fmt"
	"strconv"
	"strings"

	gomail "gopkg.in/mail.v2"

	"github.com/onlinestore/fulfillment/pkg/event"
)

// Mailer sends the store's outbound mail over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func New(host string, port int, username, password, from string) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (m *Mailer) send(to, subject, htmlBody string) error {
	message := gomail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(message)
}

func (m *Mailer) SendOrderConfirmation(to, orderID string, totalAmount float64, items []event.OrderItem) error {
	var rows strings.Builder
	for _, item := range items {
		rows.WriteString(`<tr>
			<td style="padding: 8px; border: 1px solid #ddd;">` + item.ProductID + `</td>
			<td style="padding: 8px; border: 1px solid #ddd;">` + strconv.Itoa(item.Quantity) + `</td>
		</tr>`)
	}

	body := `
		<h2>Your Order Details</h2>
		<table style="border-collapse: collapse; width: 100%;">
			<tr>
				<td style="padding: 8px; border: 1px solid #ddd;"><strong>Order ID</strong></td>
				<td style="padding: 8px; border: 1px solid #ddd;">` + orderID + `</td>
			</tr>
			<tr>
				<td style="padding: 8px; border: 1px solid #ddd;"><strong>Total</strong></td>
				<td style="padding: 8px; border: 1px solid #ddd;">$` + strconv.FormatFloat(totalAmount, 'f', 2, 64) + `</td>
			</tr>
		</table>
		<h3>Items</h3>
		<table style="border-collapse: collapse; width: 100%;">` + rows.String() + `</table>
	`
	return m.send(to, "Order Confirmation - #"+orderID, body)
}

func (m *Mailer) SendPaymentReceipt(to, orderID, transactionID string, amount float64) error {
	body := fmt.Sprintf(`
		<h2>Payment received</h2>
		<p>Your payment of $%s for order %s was completed.</p>
		<p>Transaction reference: %s</p>
	`, strconv.FormatFloat(amount, 'f', 2, 64), orderID, transactionID)
	return m.send(to, "Payment received for order #"+orderID, body)
}

func (m *Mailer) SendPaymentFailed(to, orderID string, amount float64) error {
	body := fmt.Sprintf(`
		<h2>Payment failed</h2>
		<p>Your payment of $%s for order %s could not be processed. Please try again.</p>
	`, strconv.FormatFloat(amount, 'f', 2, 64), orderID)
	return m.send(to, "Payment failed for order #"+orderID, body)
}

func (m *Mailer) SendWelcome(to string) error {
	body := `<h2>Welcome to our store!</h2><p>Your account ` + to + ` is ready.</p>`
	return m.send(to, "Welcome to Our Store!", body)
}

func (m *Mailer) SendPasswordReset(to, resetToken string) error {
	body := `<h2>Password Reset Request</h2><p>Use this token to reset your password: ` + resetToken + `</p>`
	return m.send(to, "Password Reset Request", body)
}
