package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"genius365/internal/config"
	"genius365/internal/services"

	"github.com/labstack/echo/v4"
)

const stripeSignatureTolerance = 5 * time.Minute

// WebhookHandlers handles the inbound webhooks from the voice providers and
// Stripe. These routes are unauthenticated; each one verifies its own
// signature or shared secret.
type WebhookHandlers struct {
	conversationService services.ConversationService
	campaignService     services.CampaignService
	billingService      services.BillingService
	stripeService       services.StripeService
	providerCfg         *config.ProviderConfig
}

// NewWebhookHandlers creates a new webhook handlers instance
func NewWebhookHandlers(
	conversationService services.ConversationService,
	campaignService services.CampaignService,
	billingService services.BillingService,
	stripeService services.StripeService,
	providerCfg *config.ProviderConfig,
) *WebhookHandlers {
	return &WebhookHandlers{
		conversationService: conversationService,
		campaignService:     campaignService,
		billingService:      billingService,
		stripeService:       stripeService,
		providerCfg:         providerCfg,
	}
}

// vapiWebhookPayload is the envelope VAPI posts to the server URL
type vapiWebhookPayload struct {
	Message struct {
		Type string `json:"type"`
		Call struct {
			ID string `json:"id"`
		} `json:"call"`
		Status          string   `json:"status"`
		EndedReason     string   `json:"endedReason"`
		DurationSeconds float64  `json:"durationSeconds"`
		Cost            float64  `json:"cost"`
		RecordingURL    *string  `json:"recordingUrl"`
		Transcript      *string  `json:"transcript"`
	} `json:"message"`
}

// VapiWebhook handles POST /webhooks/vapi. VAPI sends back the shared secret
// it was configured with; anything else is rejected.
func (h *WebhookHandlers) VapiWebhook(c echo.Context) error {
	secret := c.Request().Header.Get("X-Vapi-Secret")
	if h.providerCfg.Vapi.WebhookSecret != "" &&
		subtle.ConstantTimeCompare([]byte(secret), []byte(h.providerCfg.Vapi.WebhookSecret)) != 1 {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid webhook secret")
	}

	var payload vapiWebhookPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid payload")
	}
	if payload.Message.Call.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing call id")
	}

	ctx := c.Request().Context()
	switch payload.Message.Type {
	case "status-update":
		if payload.Message.Status == "in-progress" {
			if err := h.conversationService.ApplyCallStarted(ctx, "vapi", payload.Message.Call.ID); err != nil {
				log.Printf("Failed to apply vapi call start for %s: %v", payload.Message.Call.ID, err)
			}
		}

	case "end-of-call-report":
		status := "completed"
		switch payload.Message.EndedReason {
		case "assistant-error", "pipeline-error", "phone-call-provider-error", "no-answer", "busy":
			status = "failed"
		}
		event := &services.CallEvent{
			Provider:        "vapi",
			ProviderCallID:  payload.Message.Call.ID,
			Status:          status,
			DurationSeconds: int(payload.Message.DurationSeconds),
			CostCents:       int(payload.Message.Cost * 100),
			RecordingURL:    payload.Message.RecordingURL,
			Transcript:      payload.Message.Transcript,
		}
		h.finishCall(c, event)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// retellWebhookPayload is the envelope Retell posts on call events
type retellWebhookPayload struct {
	Event string `json:"event"`
	Call  struct {
		CallID       string  `json:"call_id"`
		CallStatus   string  `json:"call_status"`
		DurationMs   int     `json:"duration_ms"`
		RecordingURL *string `json:"recording_url"`
		Transcript   *string `json:"transcript"`
		CallCost     struct {
			CombinedCost float64 `json:"combined_cost"`
		} `json:"call_cost"`
		DisconnectionReason string `json:"disconnection_reason"`
	} `json:"call"`
}

// RetellWebhook handles POST /webhooks/retell. Retell signs the raw body
// with HMAC-SHA256 over the API key.
func (h *WebhookHandlers) RetellWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	if h.providerCfg.Retell.WebhookSecret != "" {
		signature := c.Request().Header.Get("X-Retell-Signature")
		mac := hmac.New(sha256.New, []byte(h.providerCfg.Retell.WebhookSecret))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))
		if !hmac.Equal([]byte(signature), []byte(expected)) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid webhook signature")
		}
	}

	var payload retellWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid payload")
	}
	if payload.Call.CallID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing call id")
	}

	ctx := c.Request().Context()
	switch payload.Event {
	case "call_started":
		if err := h.conversationService.ApplyCallStarted(ctx, "retell", payload.Call.CallID); err != nil {
			log.Printf("Failed to apply retell call start for %s: %v", payload.Call.CallID, err)
		}

	case "call_ended", "call_analyzed":
		status := "completed"
		if payload.Call.CallStatus == "error" || payload.Call.DisconnectionReason == "dial_failed" ||
			payload.Call.DisconnectionReason == "dial_no_answer" || payload.Call.DisconnectionReason == "dial_busy" {
			status = "failed"
		}
		event := &services.CallEvent{
			Provider:        "retell",
			ProviderCallID:  payload.Call.CallID,
			Status:          status,
			DurationSeconds: payload.Call.DurationMs / 1000,
			CostCents:       int(payload.Call.CallCost.CombinedCost * 100),
			RecordingURL:    payload.Call.RecordingURL,
			Transcript:      payload.Call.Transcript,
		}
		h.finishCall(c, event)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// finishCall closes the call log entry and lets the owning campaign refill
// its dialing batch. Settlement happens inside ApplyCallEnded.
func (h *WebhookHandlers) finishCall(c echo.Context, event *services.CallEvent) {
	ctx := c.Request().Context()
	conversation, err := h.conversationService.ApplyCallEnded(ctx, event)
	if err != nil {
		log.Printf("Failed to apply %s call end for %s: %v", event.Provider, event.ProviderCallID, err)
		return
	}
	if err := h.campaignService.OnConversationFinished(ctx, conversation); err != nil {
		log.Printf("Failed to progress campaign for conversation %s: %v", conversation.ID, err)
	}
}

// StripeWebhook handles POST /webhooks/stripe
func (h *WebhookHandlers) StripeWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	event, err := h.stripeService.VerifyWebhook(body, c.Request().Header.Get("Stripe-Signature"), stripeSignatureTolerance)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid webhook signature")
	}

	if err := h.billingService.HandleStripeEvent(c.Request().Context(), event); err != nil {
		// Stripe retries on non-2xx; surface the failure so it does.
		log.Printf("Failed to handle stripe event %s (%s): %v", event.ID, event.Type, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Event handling failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
