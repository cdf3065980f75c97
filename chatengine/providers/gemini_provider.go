package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/karacho11/first-chatbot-back/chatengine/domain"
	pkgError "github.com/karacho11/first-chatbot-back/pkg/error"
)

const providerGemini = "gemini"

// GeminiProvider is the adapter for the Google Gemini API.
type GeminiProvider struct {
	client *genai.Client
}

var (
	_ domain.CompletionProvider = (*GeminiProvider)(nil)
	_ domain.EmbeddingProvider  = (*GeminiProvider)(nil)
)

// NewGeminiProvider creates a provider bound to one API key.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// toGeminiContents splits system messages into the system instruction and
// maps the rest onto user/model turns.
func toGeminiContents(messages []domain.Message) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, &genai.Part{Text: m.Content})
		case domain.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}
	return system, contents
}

// Complete implements domain.CompletionProvider.
func (p *GeminiProvider) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	system, contents := toGeminiContents(req.Messages)

	genConfig := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(req.Temperature)),
		SystemInstruction: system,
	}

	result, err := p.client.Models.GenerateContent(ctx, req.Model, contents, genConfig)
	if err != nil {
		return domain.CompletionResponse{}, wrapGeminiError(err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return domain.CompletionResponse{}, pkgError.NewUpstreamError(providerGemini, "no candidates in response", nil)
	}

	resp := domain.CompletionResponse{Content: result.Text()}
	if result.UsageMetadata != nil {
		resp.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}

	logrus.WithFields(logrus.Fields{
		"model":         req.Model,
		"input_tokens":  resp.InputTokens,
		"output_tokens": resp.OutputTokens,
	}).Debug("[GEMINI] Chat completed")

	return resp, nil
}

// Embed implements domain.EmbeddingProvider; all inputs go in one EmbedContent call.
func (p *GeminiProvider) Embed(ctx context.Context, inputs []string, model string) ([][]float64, error) {
	contents := make([]*genai.Content, 0, len(inputs))
	for _, in := range inputs {
		contents = append(contents, genai.NewContentFromText(in, genai.RoleUser))
	}

	result, err := p.client.Models.EmbedContent(ctx, model, contents, nil)
	if err != nil {
		return nil, wrapGeminiError(err)
	}
	if result == nil || len(result.Embeddings) != len(inputs) {
		return nil, pkgError.NewUpstreamError(providerGemini, "embedding count does not match inputs", nil)
	}

	vectors := make([][]float64, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vec := make([]float64, len(emb.Values))
		for j, v := range emb.Values {
			vec[j] = float64(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func wrapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return pkgError.NewUpstreamError(providerGemini, apiErr.Message, err)
	}
	return pkgError.NewUpstreamError(providerGemini, "", err)
}
