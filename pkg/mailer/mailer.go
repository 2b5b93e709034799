package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"paybridge/config"

	"github.com/shopspring/decimal"
)

// SMTP delivers customer-facing payment link emails. A Mailer with no host
// configured is a no-op; link creation never depends on delivery.
type SMTP struct {
	cfg config.SMTPConfig
}

func New(cfg config.SMTPConfig) *SMTP {
	return &SMTP{cfg: cfg}
}

func (m *SMTP) Enabled() bool {
	return m.cfg.Host != ""
}

// SendPaymentLink emails the hosted payment link for an order.
func (m *SMTP) SendPaymentLink(to string, orderID int64, linkURL string, amountCents int64, currency string) error {
	if !m.Enabled() {
		return fmt.Errorf("mailer: smtp host not configured")
	}
	if to == "" {
		return fmt.Errorf("mailer: empty recipient")
	}
	amount := decimal.NewFromInt(amountCents).Shift(-2).StringFixed(2)
	subject := fmt.Sprintf("Payment link for order #%d", orderID)
	body := strings.Join([]string{
		fmt.Sprintf("Thank you for your order #%d.", orderID),
		"",
		fmt.Sprintf("Please complete your payment of %s %s using the secure link below:", amount, currency),
		linkURL,
		"",
		"The link stays valid until the payment is completed.",
	}, "\r\n")

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := m.cfg.Host + ":" + m.cfg.Port
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg))
}
