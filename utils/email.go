package utils

import (
	"fmt"

	"github.com/codexchange/codexchange/config"
	"gopkg.in/gomail.v2"
)

// SendLicenseEmail mails the license key to the buyer after issuance.
// Callers treat failures as best-effort: delivery must never block or
// fail the fulfillment pipeline.
func SendLicenseEmail(to, assetName, licenseType, licenseKey string) error {
	cfg := config.AppConfig
	if cfg == nil || cfg.SMTPHost == "" {
		LogDebug("SMTP not configured, skipping license email to %s", to)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", cfg.SMTPFrom)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Your %s license for %s", licenseType, assetName))

	body := fmt.Sprintf(`
		<h2>Thank you for your purchase!</h2>
		<p>Your <b>%s</b> license for <b>%s</b> is now active.</p>
		<p>License key:</p>
		<h1 style="font-family: monospace; letter-spacing: 2px;">%s</h1>
		<p>You can view all your licenses from your dashboard.</p>
	`, licenseType, assetName, licenseKey)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send license email: %v", err)
	}
	return nil
}
