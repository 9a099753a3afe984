package provider

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// defaultAPIModel 未配置模型时的兜底 / fallback when no model is configured.
const defaultAPIModel = openai.GPT4oMini

var errEmptyCompletion = errors.New("completion carried no choices")

// apiBackend 通过 OpenAI 兼容接口取回答，适配自建网关与公有云
// apiBackend fetches the answer over an OpenAI-compatible endpoint,
// covering self-hosted gateways as well as the public API.
type apiBackend struct {
	client *openai.Client
	model  string
}

func newAPIBackend(apiKey, baseURL, model string) *apiBackend {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultAPIModel
	}
	return &apiBackend{client: openai.NewClientWithConfig(cfg), model: model}
}

func (b *apiBackend) Name() string { return "API" }

func (b *apiBackend) Invoke(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", &InvokeError{Backend: "api", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &InvokeError{Backend: "api", Err: errEmptyCompletion}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
