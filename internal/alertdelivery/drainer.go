// Package alertdelivery is a best-effort drainer for the durable Alert queue
// (C9). It exists only so the tries/maxTries fields are not vestigial; its
// failure or absence has no effect on the core monitoring pipeline.
package alertdelivery

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/smtp"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/watchtower/controlplane/internal/config"
	"github.com/watchtower/controlplane/internal/model"
	"github.com/watchtower/controlplane/internal/store"
)

const drainBatchSize = 50

// Drainer periodically scans for undelivered alerts and attempts delivery
// through every configured channel, incrementing tries regardless of outcome.
type Drainer struct {
	store  store.Store
	cfg    config.AlertsConfig
	client *http.Client
}

// New constructs a Drainer from the configured channels.
func New(st store.Store, cfg config.AlertsConfig) *Drainer {
	return &Drainer{
		store:  st,
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Run drains on every tick of interval until ctx is cancelled.
func (d *Drainer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DrainOnce(); err != nil {
				log.Printf("[alertdelivery] drain pass failed: %v", err)
			}
		}
	}
}

// DrainOnce attempts delivery of one batch of undelivered alerts.
func (d *Drainer) DrainOnce() error {
	alerts, err := d.store.UndeliveredAlerts(drainBatchSize)
	if err != nil {
		return fmt.Errorf("loading undelivered alerts: %w", err)
	}

	var result *multierror.Error
	for i := range alerts {
		a := &alerts[i]
		if err := d.deliver(a); err != nil {
			result = multierror.Append(result, fmt.Errorf("alert %d: %w", a.ID, err))
			log.Printf("[alertdelivery] alert %d delivery failed: %v", a.ID, err)
		}
		if err := d.store.IncrementAlertTries(a.ID); err != nil {
			result = multierror.Append(result, fmt.Errorf("alert %d: incrementing tries: %w", a.ID, err))
		}
	}
	return result.ErrorOrNil()
}

// deliver fans an alert out to every configured channel, aggregating
// per-channel failures. Zero configured channels is not an error.
func (d *Drainer) deliver(a *model.Alert) error {
	var result *multierror.Error

	if d.cfg.WebhookURL != "" {
		if err := d.sendWebhook(a); err != nil {
			result = multierror.Append(result, fmt.Errorf("webhook: %w", err))
		}
	}
	if d.cfg.SMTPAddr != "" {
		if err := d.sendEmail(a); err != nil {
			result = multierror.Append(result, fmt.Errorf("email: %w", err))
		}
	}

	return result.ErrorOrNil()
}

type webhookPayload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	MonitorID string `json:"monitor_id"`
	UserID    string `json:"user_id"`
	URL       string `json:"url"`
}

func (d *Drainer) sendWebhook(a *model.Alert) error {
	payload := webhookPayload{
		Event:     "monitor.alert",
		Timestamp: time.UnixMilli(a.CreatedAt).Format(time.RFC3339),
		MonitorID: a.MonitorID,
		UserID:    a.UserID,
		URL:       a.URL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, d.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "controlplane-alertdelivery/1.0")

	if d.cfg.WebhookSecret != "" {
		mac := hmac.New(sha256.New, []byte(d.cfg.WebhookSecret))
		mac.Write(body)
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Controlplane-Signature", "sha256="+sig)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (d *Drainer) sendEmail(a *model.Alert) error {
	subject := fmt.Sprintf("[controlplane] monitor %s is down", a.MonitorID)
	body := fmt.Sprintf("Monitor: %s\nURL: %s\nRaised at: %s\n",
		a.MonitorID, a.URL, time.UnixMilli(a.CreatedAt).Format(time.RFC3339))

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		d.cfg.SMTPFrom, d.cfg.SMTPFrom, subject, body)

	host := smtpHost(d.cfg.SMTPAddr)
	auth := smtp.PlainAuth("", d.cfg.SMTPFrom, "", host)

	return sendMailTLS(d.cfg.SMTPAddr, auth, d.cfg.SMTPFrom, d.cfg.SMTPFrom, []byte(msg), host)
}

func sendMailTLS(addr string, auth smtp.Auth, from, to string, msg []byte, host string) error {
	tlsConfig := &tls.Config{ServerName: host}
	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS dial: %w", err)
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SMTP client: %w", err)
	}
	defer client.Close()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("SMTP write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("SMTP close data: %w", err)
	}
	return client.Quit()
}

func smtpHost(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
