package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"

	"github.com/karacho11/first-chatbot-back/chatengine/domain"
	pkgError "github.com/karacho11/first-chatbot-back/pkg/error"
)

const providerOpenAI = "openai"

// OpenAIProvider is the adapter for the OpenAI chat completion and embedding APIs.
type OpenAIProvider struct {
	client openai.Client
}

var (
	_ domain.CompletionProvider = (*OpenAIProvider)(nil)
	_ domain.EmbeddingProvider  = (*OpenAIProvider)(nil)
)

// NewOpenAIProvider creates a provider bound to one API key. baseURL is
// optional and points the client at an OpenAI compatible endpoint.
func NewOpenAIProvider(apiKey, baseURL string, opts ...option.RequestOption) *OpenAIProvider {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIProvider{
		client: openai.NewClient(reqOpts...),
	}
}

// Complete implements domain.CompletionProvider.
func (p *OpenAIProvider) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case domain.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return domain.CompletionResponse{}, wrapOpenAIError(err)
	}
	if len(completion.Choices) == 0 {
		return domain.CompletionResponse{}, pkgError.NewUpstreamError(providerOpenAI, "no choices in completion response", nil)
	}

	resp := domain.CompletionResponse{
		Content:      completion.Choices[0].Message.Content,
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
	}

	logrus.WithFields(logrus.Fields{
		"model":         req.Model,
		"input_tokens":  resp.InputTokens,
		"output_tokens": resp.OutputTokens,
	}).Debug("[OPENAI] Chat completed")

	return resp, nil
}

// Embed implements domain.EmbeddingProvider with a single batched request.
func (p *OpenAIProvider) Embed(ctx context.Context, inputs []string, model string) ([][]float64, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
	})
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, pkgError.NewUpstreamError(providerOpenAI,
			fmt.Sprintf("expected %d embeddings, got %d", len(inputs), len(resp.Data)), nil)
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float64, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}

	logrus.WithFields(logrus.Fields{
		"model":  model,
		"inputs": len(inputs),
	}).Debug("[OPENAI] Embeddings created")

	return vectors, nil
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return pkgError.NewUpstreamError(providerOpenAI, apiErr.Message, err)
	}
	return pkgError.NewUpstreamError(providerOpenAI, "", err)
}
