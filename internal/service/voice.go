package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

// VoiceSender places an automated reminder call through the telephony
// provider. The provider answers with an XML document describing the queued
// call entries.
type VoiceSender struct {
	baseURL    string
	username   string
	apiKey     string
	callerID   string
	httpClient *http.Client
	logger     *logrus.Logger
	enabled    bool
}

func NewVoiceSender(logger *logrus.Logger) *VoiceSender {
	return &VoiceSender{
		baseURL:  getenvDefault("VOICE_BASE_URL", "https://voice.africastalking.com"),
		username: os.Getenv("VOICE_USERNAME"),
		apiKey:   os.Getenv("VOICE_API_KEY"),
		callerID: os.Getenv("VOICE_CALLER_ID"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:  logger,
		enabled: os.Getenv("VOICE_SENDER_ENABLED") == "true",
	}
}

// Call queues an outbound reminder call to the phone number.
func (v *VoiceSender) Call(ctx context.Context, phone string) error {
	if !v.enabled {
		v.logger.Debug("Voice calls disabled")
		return nil
	}

	form := url.Values{}
	form.Set("username", v.username)
	form.Set("from", v.callerID)
	form.Set("to", phone)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		v.baseURL+"/call", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apiKey", v.apiKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("voice request failed: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read voice response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("voice gateway returned status %d: %s", resp.StatusCode, rawBody)
	}

	if err := parseVoiceResponse(rawBody); err != nil {
		return err
	}

	v.logger.WithField("phone", phone).Info("Voice reminder call queued")
	return nil
}

// parseVoiceResponse checks the XML call-queue response for a queued entry.
func parseVoiceResponse(rawBody []byte) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return fmt.Errorf("failed to parse voice response XML: %w", err)
	}

	entries := doc.FindElements("//CallQueueResponse/entries/CallQueueEntry")
	if len(entries) == 0 {
		return errors.New("voice response contains no call queue entries")
	}

	for _, entry := range entries {
		statusElem := entry.FindElement("./status")
		if statusElem == nil {
			return errors.New("call queue entry missing <status>")
		}
		if status := statusElem.Text(); status != "Queued" {
			return fmt.Errorf("call not queued: %s", status)
		}
	}

	return nil
}
