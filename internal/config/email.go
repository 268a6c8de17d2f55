package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/fx"
	"gopkg.in/gomail.v2"
)

// Mailer is the outbound email transport. Delivery failures are returned
// to the caller; nothing is queued or retried.
type Mailer interface {
	Send(to, subject, html string) error
}

type ResendConfig struct {
	APIKey string
	APIURL string
	From   string
}

func NewResendConfig() *ResendConfig {
	return &ResendConfig{
		APIKey: os.Getenv("RESEND_API_KEY"),
		APIURL: os.Getenv("RESEND_API_URL"),
		From:   os.Getenv("FROM_EMAIL"),
	}
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Html    string   `json:"html"`
}

// ResendMailer delivers mail through the Resend HTTP API.
type ResendMailer struct {
	Config *ResendConfig
}

func (e *ResendMailer) Send(to, subject, html string) error {
	payload := emailRequest{
		From:    e.Config.From,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequest("POST", e.Config.APIURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+e.Config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errorResponse map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errorResponse)
		return fmt.Errorf("failed to send email, status code: %d, error: %v", resp.StatusCode, errorResponse)
	}

	log.Println("Email sent successfully to", to)
	return nil
}

// SMTPMailer delivers mail through the institutional SMTP server.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer() *SMTPMailer {
	host := os.Getenv("SMTP_HOST")
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = 587
	}
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASSWORD")
	from := os.Getenv("FROM_EMAIL")
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, pass),
		from:   from,
	}
}

func (s *SMTPMailer) Send(to, subject, html string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	log.Println("Email sent successfully to", to)
	return nil
}

// NewMailer picks the transport from the environment: the Resend API when
// its credentials are present, institutional SMTP otherwise.
func NewMailer(lc fx.Lifecycle, resend *ResendConfig) Mailer {
	var mailer Mailer
	if resend.APIKey != "" && resend.APIURL != "" {
		log.Println("Using Resend email transport")
		mailer = &ResendMailer{Config: resend}
	} else {
		log.Println("Using SMTP email transport")
		mailer = NewSMTPMailer()
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Println("Email service initialized")
			return nil
		},
	})
	return mailer
}
