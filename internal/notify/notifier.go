package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"gopkg.in/gomail.v2"
)

// Notifier dispatches a one-time code to a phone number.
type Notifier interface {
	Send(ctx context.Context, phone, code string) error
}

type Config struct {
	Kind         string
	WebhookURL   string
	WebhookToken string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMSGateway   string
}

func New(cfg Config) Notifier {
	switch cfg.Kind {
	case "", "stub", "log":
		return logNotifier{}
	case "noop":
		return noopNotifier{}
	case "fail":
		return failNotifier{}
	case "webhook":
		if cfg.WebhookURL == "" {
			return logNotifier{}
		}
		return webhookNotifier{url: cfg.WebhookURL, token: cfg.WebhookToken}
	case "smtp":
		if cfg.SMTPHost == "" {
			return logNotifier{}
		}
		return smtpNotifier{
			dialer:  gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
			from:    cfg.SMTPFrom,
			gateway: cfg.SMSGateway,
		}
	default:
		return logNotifier{}
	}
}

func message(code string) string {
	return fmt.Sprintf("Your BookMyLook verification code is %s. It expires in 5 minutes.", code)
}

type logNotifier struct{}

func (logNotifier) Send(ctx context.Context, phone, code string) error {
	log.Printf("send otp to %s: %s", phone, message(code))
	return nil
}

type noopNotifier struct{}

func (noopNotifier) Send(ctx context.Context, phone, code string) error {
	return nil
}

type failNotifier struct{}

func (failNotifier) Send(ctx context.Context, phone, code string) error {
	return errors.New("provider failure")
}

type webhookNotifier struct {
	url   string
	token string
}

func (p webhookNotifier) Send(ctx context.Context, phone, code string) error {
	payload := map[string]string{
		"recipient": phone,
		"message":   message(code),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.New("provider rejected request")
	}
	return nil
}

// smtpNotifier relays through an email-to-SMS gateway: the recipient
// address is the bare phone number at the gateway domain.
type smtpNotifier struct {
	dialer  *gomail.Dialer
	from    string
	gateway string
}

func (p smtpNotifier) Send(ctx context.Context, phone, code string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", p.from)
	m.SetHeader("To", fmt.Sprintf("%s@%s", phone, p.gateway))
	m.SetHeader("Subject", "BookMyLook verification code")
	m.SetBody("text/plain", message(code))

	if err := p.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send verification code: %w", err)
	}
	return nil
}
