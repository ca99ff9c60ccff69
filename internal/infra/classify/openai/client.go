package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/shieldhq/threatwatch/internal/domain/classify"
	"github.com/shieldhq/threatwatch/internal/infra/classify/prompt"
)

const maxTokens = 4096

// Client is the LLM-backed classifier. The whole batch goes out in a single
// chat completion; a failed call fails the batch.
type Client struct {
	*openai.Client
	Model string
}

var _ classify.Classifier = (*Client)(nil)

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

func (c *Client) Classify(ctx context.Context, items []classify.Item) ([]classify.Result, error) {
	if len(items) == 0 {
		return nil, nil
	}

	batch, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal batch: %v", classify.ErrClassificationFailed, err)
	}

	model := c.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(string(batch))},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %v", classify.ErrQuotaExceeded, err)
		}
		return nil, fmt.Errorf("%w: %v", classify.ErrClassificationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", classify.ErrClassificationFailed)
	}

	return parseResults(resp.Choices[0].Message.Content, items)
}

// parseResults decodes the completion and keeps only results whose echoed id
// belongs to the batch. Items the model dropped are left out; the caller
// counts them as skipped instead of faulting.
func parseResults(content string, items []classify.Item) ([]classify.Result, error) {
	var payload struct {
		Results []classify.Result `json:"results"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: decode completion: %v", classify.ErrClassificationFailed, err)
	}

	known := make(map[string]bool, len(items))
	for _, item := range items {
		known[item.ID] = true
	}

	out := make([]classify.Result, 0, len(payload.Results))
	seen := make(map[string]bool, len(payload.Results))
	for _, res := range payload.Results {
		if !known[res.ItemID] || seen[res.ItemID] {
			continue
		}
		seen[res.ItemID] = true
		if res.Keywords == nil {
			res.Keywords = []string{}
		}
		out = append(out, res)
	}
	return out, nil
}
