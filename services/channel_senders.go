package services

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"os"
	"time"

	"github.com/smartcommerce/notification-service/models"
)

// Channel senders are the external collaborators behind the fan-out. Each is
// synchronous and time-bounded; failure is an error, never a partial success.

type EmailSender interface {
	SendEmail(to, subject, body string) error
}

type SmsSender interface {
	SendSms(to, message string) error
}

type PushSender interface {
	SendPush(sub models.NotificationSubscription, title, message string, data models.JSONMap) error
}

// UserDirectory resolves contact addresses for a user. The user service owns
// this data; we only consume it.
type UserDirectory interface {
	Email(userID uint) (string, error)
	Phone(userID uint) (string, error)
}

// SMTPEmailSender sends through a plain SMTP relay with STARTTLS.
type SMTPEmailSender struct {
	Host     string
	Port     string
	From     string
	Password string
}

func NewSMTPEmailSenderFromEnv() *SMTPEmailSender {
	return &SMTPEmailSender{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		From:     os.Getenv("SMTP_FROM"),
		Password: os.Getenv("SMTP_PASSWORD"),
	}
}

func (s *SMTPEmailSender) SendEmail(to, subject, body string) error {
	if s.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	client, err := smtp.Dial(s.Host + ":" + s.Port)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
		return err
	}
	auth := smtp.PlainAuth("", s.From, s.Password, s.Host)
	if err := client.Auth(auth); err != nil {
		return err
	}

	if err := client.Mail(s.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.From, to, subject, body)
	if _, err := w.Write([]byte(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// GatewaySmsSender posts to the SMS gateway service.
type GatewaySmsSender struct {
	URL    string
	Client *http.Client
}

func NewGatewaySmsSenderFromEnv() *GatewaySmsSender {
	return &GatewaySmsSender{
		URL:    os.Getenv("SMS_GATEWAY_URL"),
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *GatewaySmsSender) SendSms(to, message string) error {
	if s.URL == "" {
		return fmt.Errorf("sms gateway not configured")
	}
	payload, _ := json.Marshal(map[string]string{"to": to, "message": message})
	resp, err := s.Client.Post(s.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}
	return nil
}

// GatewayPushSender posts to the push gateway, which talks to the platform
// vendors (APNs/FCM/WebPush) on our behalf.
type GatewayPushSender struct {
	URL    string
	Client *http.Client
}

func NewGatewayPushSenderFromEnv() *GatewayPushSender {
	return &GatewayPushSender{
		URL:    os.Getenv("PUSH_GATEWAY_URL"),
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *GatewayPushSender) SendPush(sub models.NotificationSubscription, title, message string, data models.JSONMap) error {
	if s.URL == "" {
		return fmt.Errorf("push gateway not configured")
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"platform": sub.Platform,
		"endpoint": sub.Endpoint,
		"keys":     sub.AuthKeys,
		"title":    title,
		"message":  message,
		"data":     data,
	})
	resp, err := s.Client.Post(s.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned %d", resp.StatusCode)
	}
	return nil
}

// HTTPUserDirectory looks up contact info from the user service.
type HTTPUserDirectory struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPUserDirectoryFromEnv() *HTTPUserDirectory {
	return &HTTPUserDirectory{
		BaseURL: os.Getenv("USER_SERVICE_URL"),
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (d *HTTPUserDirectory) Email(userID uint) (string, error) {
	return d.contactField(userID, "email")
}

func (d *HTTPUserDirectory) Phone(userID uint) (string, error) {
	return d.contactField(userID, "phone")
}

func (d *HTTPUserDirectory) contactField(userID uint, field string) (string, error) {
	if d.BaseURL == "" {
		return "", fmt.Errorf("user service not configured")
	}
	resp, err := d.Client.Get(fmt.Sprintf("%s/users/%d/contact", d.BaseURL, userID))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user service returned %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	value := body[field]
	if value == "" {
		return "", fmt.Errorf("user %d has no %s on file", userID, field)
	}
	return value, nil
}
