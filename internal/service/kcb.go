package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PaymentGateway is the mobile-banking collaborator. The correlator only
// depends on this interface so a fake gateway can substitute the real one.
type PaymentGateway interface {
	Initiate(ctx context.Context, req GatewayInitiateRequest) (*GatewayInitiateResponse, error)
	Query(ctx context.Context, paymentID string) (*GatewayPaymentStatus, error)
}

type GatewayInitiateRequest struct {
	PhoneNumber      string  `json:"phoneNumber"`
	Amount           float64 `json:"amount"`
	TransactionRef   string  `json:"transactionRef"`
	AccountReference string  `json:"accountReference"`
	CallbackURL      string  `json:"callbackUrl"`
}

type GatewayInitiateResponse struct {
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
}

type GatewayPaymentStatus struct {
	PaymentID      string  `json:"paymentId"`
	TransactionRef string  `json:"transactionRef"`
	Status         string  `json:"status"`
	Amount         float64 `json:"amount"`
}

// KCBClient talks to the KCB Buni mobile-money API: OAuth client-credentials
// token, then JSON initiate/query calls. Settlement is asynchronous; the
// gateway reports it later through the webhook handled by PaymentService.Reconcile.
type KCBClient struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	callbackURL    string
	httpClient     *http.Client
	logger         *logrus.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewKCBClient(baseURL, consumerKey, consumerSecret, callbackURL string, logger *logrus.Logger) *KCBClient {
	return &KCBClient{
		baseURL:        baseURL,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		callbackURL:    callbackURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a cached OAuth token, refreshing it when within a minute of
// expiry.
func (c *KCBClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/token?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request gateway token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gateway token request failed: status %d: %s", resp.StatusCode, body)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode gateway token: %w", err)
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	c.logger.Debug("Gateway access token refreshed")
	return c.accessToken, nil
}

// Initiate asks the gateway to collect the amount from the phone. The returned
// payment id identifies the attempt on the gateway side; settlement arrives
// later on the callback URL.
func (c *KCBClient) Initiate(ctx context.Context, req GatewayInitiateRequest) (*GatewayInitiateResponse, error) {
	c.logger.WithFields(logrus.Fields{
		"transaction_ref": req.TransactionRef,
		"amount":          req.Amount,
	}).Info("Initiating gateway payment")

	if req.CallbackURL == "" {
		req.CallbackURL = c.callbackURL
	}

	body, err := c.post(ctx, "/mm/api/request/1.0.0/stkpush", req)
	if err != nil {
		c.logger.WithError(err).Error("Gateway initiate call failed")
		return nil, err
	}

	var initResp GatewayInitiateResponse
	if err := json.Unmarshal(body, &initResp); err != nil {
		return nil, fmt.Errorf("failed to decode initiate response: %w", err)
	}

	c.logger.WithField("payment_id", initResp.PaymentID).Info("Gateway payment initiated")
	return &initResp, nil
}

// Query polls the gateway for the state of an earlier attempt.
func (c *KCBClient) Query(ctx context.Context, paymentID string) (*GatewayPaymentStatus, error) {
	body, err := c.post(ctx, "/mm/api/request/1.0.0/status", map[string]string{"paymentId": paymentID})
	if err != nil {
		c.logger.WithError(err).Error("Gateway status query failed")
		return nil, err
	}

	var status GatewayPaymentStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	return &status, nil
}

func (c *KCBClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, body)
	}

	return body, nil
}
