package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// SMSSender delivers short alerts through an Africa's Talking style bulk SMS
// endpoint. Best-effort only: callers log failures and move on.
type SMSSender struct {
	baseURL    string
	username   string
	apiKey     string
	sender     string
	httpClient *http.Client
	logger     *logrus.Logger
	enabled    bool
}

func NewSMSSender(logger *logrus.Logger) *SMSSender {
	return &SMSSender{
		baseURL:  getenvDefault("SMS_BASE_URL", "https://api.africastalking.com"),
		username: os.Getenv("SMS_USERNAME"),
		apiKey:   os.Getenv("SMS_API_KEY"),
		sender:   os.Getenv("SMS_SENDER_ID"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:  logger,
		enabled: os.Getenv("SMS_SENDER_ENABLED") == "true",
	}
}

type smsRecipient struct {
	Number string `json:"number"`
	Status string `json:"status"`
}

type smsResponse struct {
	SMSMessageData struct {
		Recipients []smsRecipient `json:"Recipients"`
	} `json:"SMSMessageData"`
}

func (s *SMSSender) Send(ctx context.Context, phone, message string) error {
	if !s.enabled {
		s.logger.Debug("SMS sending disabled")
		return nil
	}

	form := url.Values{}
	form.Set("username", s.username)
	form.Set("to", phone)
	form.Set("message", message)
	if s.sender != "" {
		form.Set("from", s.sender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/version1/messaging", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	var parsed smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode sms response: %w", err)
	}

	for _, r := range parsed.SMSMessageData.Recipients {
		if !strings.HasPrefix(r.Status, "Success") {
			return fmt.Errorf("sms to %s not accepted: %s", r.Number, r.Status)
		}
	}

	s.logger.WithField("phone", phone).Info("SMS alert sent")
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
