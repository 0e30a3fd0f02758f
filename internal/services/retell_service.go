package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"genius365/internal/config"
	"genius365/internal/models"
)

// retellService talks to the Retell agent and call APIs.
type retellService struct {
	baseURL     string
	apiKey      string
	maxAttempts int
	baseDelay   time.Duration
	http        *http.Client
}

type retellAgentRequest struct {
	AgentName        string `json:"agent_name"`
	VoiceID          string `json:"voice_id"`
	Language         string `json:"language,omitempty"`
	GeneralPrompt    string `json:"general_prompt"`
	BeginMessage     string `json:"begin_message"`
	MaxCallDuration  int    `json:"max_call_duration_ms,omitempty"`
	WebhookURL       string `json:"webhook_url,omitempty"`
}

type retellAgentResponse struct {
	AgentID string `json:"agent_id"`
}

type retellCallRequest struct {
	AgentID      string            `json:"override_agent_id"`
	ToNumber     string            `json:"to_number"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type retellCallResponse struct {
	CallID         string  `json:"call_id"`
	CallStatus     string  `json:"call_status"`
	DurationMs     int     `json:"duration_ms"`
	CombinedCost   float64 `json:"combined_cost"`
	RecordingURL   *string `json:"recording_url"`
	Transcript     *string `json:"transcript"`
}

func NewRetellService(cfg *config.ProviderConfig) VoiceProvider {
	return &retellService{
		baseURL:     cfg.Retell.BaseURL,
		apiKey:      cfg.Retell.APIKey,
		maxAttempts: cfg.Retry.MaxAttempts,
		baseDelay:   cfg.Retry.BaseDelay,
		http:        &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *retellService) Name() string {
	return models.ProviderRetell
}

func (s *retellService) makeRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	return withRetry(ctx, s.maxAttempts, s.baseDelay, fmt.Sprintf("retell %s %s", method, path), func() error {
		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("Content-Type", "application/json")

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
			return fmt.Errorf("retell returned %d: %s", resp.StatusCode, string(respData))
		}
		if out != nil && len(respData) > 0 {
			if err := json.Unmarshal(respData, out); err != nil {
				return fmt.Errorf("failed to decode retell response: %w", err)
			}
		}
		return nil
	})
}

func (s *retellService) agentBody(params *AssistantParams) *retellAgentRequest {
	return &retellAgentRequest{
		AgentName:       params.Name,
		VoiceID:         params.Voice,
		Language:        params.Language,
		GeneralPrompt:   params.SystemPrompt,
		BeginMessage:    params.FirstMessage,
		MaxCallDuration: params.MaxDurationSeconds * 1000,
		WebhookURL:      params.ServerURL,
	}
}

func (s *retellService) CreateAssistant(ctx context.Context, params *AssistantParams) (string, error) {
	var resp retellAgentResponse
	if err := s.makeRequest(ctx, http.MethodPost, "/create-agent", s.agentBody(params), &resp); err != nil {
		return "", err
	}
	return resp.AgentID, nil
}

func (s *retellService) UpdateAssistant(ctx context.Context, providerAgentID string, params *AssistantParams) error {
	return s.makeRequest(ctx, http.MethodPatch, "/update-agent/"+providerAgentID, s.agentBody(params), nil)
}

func (s *retellService) DeleteAssistant(ctx context.Context, providerAgentID string) error {
	return s.makeRequest(ctx, http.MethodDelete, "/delete-agent/"+providerAgentID, nil, nil)
}

func (s *retellService) StartCall(ctx context.Context, params *StartCallParams) (*ProviderCall, error) {
	body := &retellCallRequest{
		AgentID:  params.ProviderAgentID,
		ToNumber: params.ToNumber,
		Metadata: params.Metadata,
	}

	var resp retellCallResponse
	if err := s.makeRequest(ctx, http.MethodPost, "/v2/create-phone-call", body, &resp); err != nil {
		return nil, err
	}
	return retellCallToProviderCall(&resp), nil
}

func (s *retellService) GetCall(ctx context.Context, providerCallID string) (*ProviderCall, error) {
	var resp retellCallResponse
	if err := s.makeRequest(ctx, http.MethodGet, "/v2/get-call/"+providerCallID, nil, &resp); err != nil {
		return nil, err
	}
	return retellCallToProviderCall(&resp), nil
}

func retellCallToProviderCall(resp *retellCallResponse) *ProviderCall {
	return &ProviderCall{
		ID:              resp.CallID,
		Status:          resp.CallStatus,
		DurationSeconds: resp.DurationMs / 1000,
		CostCents:       int(resp.CombinedCost * 100),
		RecordingURL:    resp.RecordingURL,
		Transcript:      resp.Transcript,
	}
}
