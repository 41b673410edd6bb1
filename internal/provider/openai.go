package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// openAIProvider implements Provider for OpenAI-compatible chat APIs.
type openAIProvider struct {
	name             string
	baseURL          string
	apiKey           string
	model            string
	client           *http.Client
	maxResponseBytes int64
}

// NewOpenAI creates a provider for an OpenAI-compatible endpoint.
func NewOpenAI(name, baseURL, apiKey, model string, timeout time.Duration, maxResponseBytes int64) Provider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxResponseBytes <= 0 {
		maxResponseBytes = 4 * 1024 * 1024
	}

	return &openAIProvider{
		name:             name,
		baseURL:          baseURL,
		apiKey:           apiKey,
		model:            model,
		maxResponseBytes: maxResponseBytes,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *openAIProvider) Name() string {
	return p.name
}

type openAIChatRequest struct {
	Model    string              `json:"model"`
	Messages []openAIChatMessage `json:"messages"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      openAIChatMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

const defaultSystemPrompt = "You are an analyst for a membership business. " +
	"Answer only from the records provided. " +
	`Respond with a JSON object: {"summary": "...", "confidence": "high|medium|low", "reasoning": "..."}.`

func (p *openAIProvider) Analyze(ctx context.Context, question, recordContext, systemPrompt string) (*Answer, error) {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	user := question
	if recordContext != "" {
		user = fmt.Sprintf("Question: %s\n\nRecords:\n%s", question, recordContext)
	}

	oaiReq := openAIChatRequest{
		Model: p.model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
	}

	body, err := json.Marshal(oaiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/chat/completions", p.baseURL),
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call provider %s: %w", p.name, err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, p.maxResponseBytes+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}
	if int64(len(respBody)) > p.maxResponseBytes {
		return nil, fmt.Errorf("provider response exceeded limit (%d bytes)", p.maxResponseBytes)
	}

	if resp.StatusCode >= 400 {
		var errBody openAIErrorResponse
		if err := json.Unmarshal(respBody, &errBody); err != nil {
			return nil, fmt.Errorf("provider error status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("provider error: %s (type=%s)", errBody.Error.Message, errBody.Error.Type)
	}

	var oaiResp openAIChatResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if len(oaiResp.Choices) == 0 {
		return nil, fmt.Errorf("provider response had no choices")
	}

	parsed := ParseAnswer(oaiResp.Choices[0].Message.Content)
	return &parsed.Answer, nil
}
