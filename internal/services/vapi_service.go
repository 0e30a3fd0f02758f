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

// vapiService talks to the VAPI assistant and call APIs.
type vapiService struct {
	baseURL     string
	apiKey      string
	maxAttempts int
	baseDelay   time.Duration
	http        *http.Client
}

type vapiAssistantRequest struct {
	Name  string `json:"name"`
	Voice struct {
		VoiceID string `json:"voiceId"`
	} `json:"voice"`
	Model struct {
		Provider      string `json:"provider"`
		SystemPrompt  string `json:"systemPrompt"`
	} `json:"model"`
	FirstMessage       string `json:"firstMessage"`
	MaxDurationSeconds int    `json:"maxDurationSeconds"`
	ServerURL          string `json:"serverUrl,omitempty"`
	Language           string `json:"language,omitempty"`
}

type vapiAssistantResponse struct {
	ID string `json:"id"`
}

type vapiCallRequest struct {
	AssistantID string `json:"assistantId"`
	Customer    struct {
		Number string `json:"number"`
	} `json:"customer"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type vapiCallResponse struct {
	ID               string  `json:"id"`
	Status           string  `json:"status"`
	DurationSeconds  float64 `json:"durationSeconds"`
	Cost             float64 `json:"cost"`
	RecordingURL     *string `json:"recordingUrl"`
	Transcript       *string `json:"transcript"`
}

func NewVapiService(cfg *config.ProviderConfig) VoiceProvider {
	return &vapiService{
		baseURL:     cfg.Vapi.BaseURL,
		apiKey:      cfg.Vapi.APIKey,
		maxAttempts: cfg.Retry.MaxAttempts,
		baseDelay:   cfg.Retry.BaseDelay,
		http:        &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *vapiService) Name() string {
	return models.ProviderVapi
}

func (s *vapiService) makeRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	return withRetry(ctx, s.maxAttempts, s.baseDelay, fmt.Sprintf("vapi %s %s", method, path), func() error {
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
			return fmt.Errorf("vapi returned %d: %s", resp.StatusCode, string(respData))
		}
		if out != nil && len(respData) > 0 {
			if err := json.Unmarshal(respData, out); err != nil {
				return fmt.Errorf("failed to decode vapi response: %w", err)
			}
		}
		return nil
	})
}

func (s *vapiService) assistantBody(params *AssistantParams) *vapiAssistantRequest {
	req := &vapiAssistantRequest{
		Name:               params.Name,
		FirstMessage:       params.FirstMessage,
		MaxDurationSeconds: params.MaxDurationSeconds,
		ServerURL:          params.ServerURL,
		Language:           params.Language,
	}
	req.Voice.VoiceID = params.Voice
	req.Model.Provider = "openai"
	req.Model.SystemPrompt = params.SystemPrompt
	return req
}

func (s *vapiService) CreateAssistant(ctx context.Context, params *AssistantParams) (string, error) {
	var resp vapiAssistantResponse
	if err := s.makeRequest(ctx, http.MethodPost, "/assistant", s.assistantBody(params), &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (s *vapiService) UpdateAssistant(ctx context.Context, providerAgentID string, params *AssistantParams) error {
	return s.makeRequest(ctx, http.MethodPatch, "/assistant/"+providerAgentID, s.assistantBody(params), nil)
}

func (s *vapiService) DeleteAssistant(ctx context.Context, providerAgentID string) error {
	return s.makeRequest(ctx, http.MethodDelete, "/assistant/"+providerAgentID, nil, nil)
}

func (s *vapiService) StartCall(ctx context.Context, params *StartCallParams) (*ProviderCall, error) {
	body := &vapiCallRequest{
		AssistantID: params.ProviderAgentID,
		Metadata:    params.Metadata,
	}
	body.Customer.Number = params.ToNumber

	var resp vapiCallResponse
	if err := s.makeRequest(ctx, http.MethodPost, "/call/phone", body, &resp); err != nil {
		return nil, err
	}
	return vapiCallToProviderCall(&resp), nil
}

func (s *vapiService) GetCall(ctx context.Context, providerCallID string) (*ProviderCall, error) {
	var resp vapiCallResponse
	if err := s.makeRequest(ctx, http.MethodGet, "/call/"+providerCallID, nil, &resp); err != nil {
		return nil, err
	}
	return vapiCallToProviderCall(&resp), nil
}

func vapiCallToProviderCall(resp *vapiCallResponse) *ProviderCall {
	return &ProviderCall{
		ID:              resp.ID,
		Status:          resp.Status,
		DurationSeconds: int(resp.DurationSeconds),
		CostCents:       int(resp.Cost * 100),
		RecordingURL:    resp.RecordingURL,
		Transcript:      resp.Transcript,
	}
}
