package service

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-mail/mail/v2"
	"github.com/sirupsen/logrus"

	"debttrack-api/internal/model"
)

type EmailSender struct {
	dialer  *mail.Dialer
	logger  *logrus.Logger
	enabled bool
}

func NewEmailSender(logger *logrus.Logger) *EmailSender {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	enabled := os.Getenv("EMAIL_SENDER_ENABLED") == "true"
	insecureSkipVerify := os.Getenv("INSECURE_SKIP_VERIFY") == "true"

	smtpPort, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		smtpPort = 587
	}

	d := mail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)
	d.TLSConfig = &tls.Config{
		ServerName:         smtpHost,
		InsecureSkipVerify: insecureSkipVerify,
	}

	return &EmailSender{
		dialer:  d,
		logger:  logger,
		enabled: enabled,
	}
}

// SendNotificationAlert mirrors an in-app notification to email.
func (es *EmailSender) SendNotificationAlert(email string, n *model.Notification) error {
	if !es.enabled {
		es.logger.Debug("Email sending disabled")
		return nil
	}

	content := fmt.Sprintf(`
		<h1>%s</h1>
		<p>%s</p>
		<p>Priority: <strong>%s</strong></p>
		<p>Date: <strong>%s</strong></p>
		<small>This is an automated notification, please do not reply</small>
	`, n.Title, n.Message, n.Priority, time.Now().Format("02.01.2006 15:04"))

	return es.sendEmail(email, n.Title, content)
}

// SendPaymentReceived notifies the user that a debtor's payment settled.
func (es *EmailSender) SendPaymentReceived(email string, amount float64, debtorName string) error {
	if !es.enabled {
		es.logger.Debug("Email sending disabled")
		return nil
	}

	subject := "Payment received"
	content := fmt.Sprintf(`
		<h1>Payment received</h1>
		<p>From: <strong>%s</strong></p>
		<p>Amount: <strong>%.2f KES</strong></p>
		<p>Date: <strong>%s</strong></p>
		<small>This is an automated notification, please do not reply</small>
	`, debtorName, amount, time.Now().Format("02.01.2006 15:04"))

	return es.sendEmail(email, subject, content)
}

func (es *EmailSender) sendEmail(to, subject, body string) error {
	m := mail.NewMessage()
	m.SetHeader("From", os.Getenv("SMTP_USER"))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := es.dialer.DialAndSend(m); err != nil {
		es.logger.WithError(err).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	es.logger.Infof("Email sent to %s", to)
	return nil
}
