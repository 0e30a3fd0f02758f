package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"genius365/internal/config"
)

// StripeService covers the slice of the Stripe API the control plane needs:
// customers, subscriptions, billing meter events, payment intents and webhook
// signature verification.
type StripeService interface {
	CreateCustomer(ctx context.Context, name, email string, metadata map[string]string) (*StripeCustomer, error)
	CreateSubscription(ctx context.Context, customerID, priceID string) (*StripeSubscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*StripeSubscription, error)
	CreatePaymentIntent(ctx context.Context, customerID string, amountCents int, currency string, metadata map[string]string) (*StripePaymentIntent, error)
	SendMeterEvent(ctx context.Context, meterName, customerID string, value int, timestamp time.Time) error
	VerifyWebhook(payload []byte, sigHeader string, tolerance time.Duration) (*StripeEvent, error)
}

type stripeService struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	http          *http.Client
}

type StripeCustomer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type StripeSubscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
}

type StripePaymentIntent struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
}

type StripeEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object map[string]interface{} `json:"object"`
	} `json:"data"`
}

func NewStripeService(cfg *config.ProviderConfig) StripeService {
	return &stripeService{
		baseURL:       cfg.Stripe.BaseURL,
		secretKey:     cfg.Stripe.SecretKey,
		webhookSecret: cfg.Stripe.WebhookSecret,
		http:          &http.Client{Timeout: 30 * time.Second},
	}
}

// makeRequest posts form-encoded params the way the Stripe API expects.
func (s *stripeService) makeRequest(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	var body io.Reader
	if params != nil {
		body = strings.NewReader(params.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.secretKey, "")
	if params != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("stripe returned %d: %s", resp.StatusCode, string(respData))
	}
	if out != nil {
		if err := json.Unmarshal(respData, out); err != nil {
			return fmt.Errorf("failed to decode stripe response: %w", err)
		}
	}
	return nil
}

func (s *stripeService) CreateCustomer(ctx context.Context, name, email string, metadata map[string]string) (*StripeCustomer, error) {
	params := url.Values{}
	params.Set("name", name)
	params.Set("email", email)
	for k, v := range metadata {
		params.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	customer := &StripeCustomer{}
	if err := s.makeRequest(ctx, http.MethodPost, "/customers", params, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *stripeService) CreateSubscription(ctx context.Context, customerID, priceID string) (*StripeSubscription, error) {
	params := url.Values{}
	params.Set("customer", customerID)
	params.Set("items[0][price]", priceID)

	subscription := &StripeSubscription{}
	if err := s.makeRequest(ctx, http.MethodPost, "/subscriptions", params, subscription); err != nil {
		return nil, err
	}
	return subscription, nil
}

func (s *stripeService) CancelSubscription(ctx context.Context, subscriptionID string) (*StripeSubscription, error) {
	subscription := &StripeSubscription{}
	if err := s.makeRequest(ctx, http.MethodDelete, "/subscriptions/"+subscriptionID, nil, subscription); err != nil {
		return nil, err
	}
	return subscription, nil
}

func (s *stripeService) CreatePaymentIntent(ctx context.Context, customerID string, amountCents int, currency string, metadata map[string]string) (*StripePaymentIntent, error) {
	params := url.Values{}
	params.Set("customer", customerID)
	params.Set("amount", strconv.Itoa(amountCents))
	params.Set("currency", currency)
	for k, v := range metadata {
		params.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	intent := &StripePaymentIntent{}
	if err := s.makeRequest(ctx, http.MethodPost, "/payment_intents", params, intent); err != nil {
		return nil, err
	}
	return intent, nil
}

func (s *stripeService) SendMeterEvent(ctx context.Context, meterName, customerID string, value int, timestamp time.Time) error {
	params := url.Values{}
	params.Set("event_name", meterName)
	params.Set("timestamp", strconv.FormatInt(timestamp.Unix(), 10))
	params.Set("payload[stripe_customer_id]", customerID)
	params.Set("payload[value]", strconv.Itoa(value))

	return s.makeRequest(ctx, http.MethodPost, "/billing/meter_events", params, nil)
}

// VerifyWebhook checks a Stripe-Signature header of the form
// "t=<unix>,v1=<hex hmac>" against the configured signing secret.
func (s *stripeService) VerifyWebhook(payload []byte, sigHeader string, tolerance time.Duration) (*StripeEvent, error) {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(sigHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return nil, fmt.Errorf("malformed signature header")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid signature timestamp")
	}
	if tolerance > 0 && time.Since(time.Unix(ts, 0)) > tolerance {
		return nil, fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	valid := false
	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("signature verification failed")
	}

	event := &StripeEvent{}
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return event, nil
}
