// Package application assembles the context of a chat request, calls the
// completion provider and persists the resulting turn.
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/karacho11/first-chatbot-back/chatengine/domain"
	"github.com/karacho11/first-chatbot-back/chatengine/history"
	"github.com/karacho11/first-chatbot-back/chatengine/profile"
	"github.com/karacho11/first-chatbot-back/chatengine/retrieval"
	"github.com/karacho11/first-chatbot-back/chatengine/snapshot"
	coreconfig "github.com/karacho11/first-chatbot-back/core/config"
	domainChat "github.com/karacho11/first-chatbot-back/domains/chat"
	pkgError "github.com/karacho11/first-chatbot-back/pkg/error"
	"github.com/karacho11/first-chatbot-back/pkg/metrics"
	"github.com/karacho11/first-chatbot-back/validations"
)

// ragPreamble opens the system message built from the selected documents.
const ragPreamble = "Use the following documents as context to answer the user's question. " +
	"If they do not contain the answer, say so.\n\n"

// Defaults are the request defaults, resolved once per request.
type Defaults struct {
	Model          string
	Temperature    float64
	TopK           int
	MaxTopK        int
	EmbeddingModel string
	RequestTimeout time.Duration
	ContextPolicy  string
}

// DefaultsFromConfig maps the AI section of the configuration.
func DefaultsFromConfig(cfg coreconfig.AIConfig) Defaults {
	return Defaults{
		Model:          cfg.DefaultModel,
		Temperature:    cfg.DefaultTemperature,
		TopK:           cfg.DefaultTopK,
		MaxTopK:        cfg.MaxTopK,
		EmbeddingModel: cfg.DefaultEmbeddingModel,
		RequestTimeout: cfg.RequestTimeout,
		ContextPolicy:  cfg.ContextPolicy,
	}
}

// Deps are the collaborators of the chat service.
type Deps struct {
	Completion domain.CompletionProvider
	Ranker     *retrieval.Ranker
	History    *history.Store
	Profiles   *profile.Cache
	Snapshots  *snapshot.Store
	Metrics    *metrics.Metrics
}

type chatService struct {
	completion domain.CompletionProvider
	ranker     *retrieval.Ranker
	history    *history.Store
	profiles   *profile.Cache
	snapshots  *snapshot.Store
	metrics    *metrics.Metrics
	defaults   Defaults
}

// NewChatService wires the Context Assembler.
func NewChatService(deps Deps, defaults Defaults) domainChat.IChatUsecase {
	if defaults.MaxTopK <= 0 {
		defaults.MaxTopK = 20
	}
	if defaults.TopK <= 0 {
		defaults.TopK = 3
	}
	return &chatService{
		completion: deps.Completion,
		ranker:     deps.Ranker,
		history:    deps.History,
		profiles:   deps.Profiles,
		snapshots:  deps.Snapshots,
		metrics:    deps.Metrics,
		defaults:   defaults,
	}
}

type resolvedRequest struct {
	model          string
	temperature    float64
	topK           int
	embeddingModel string
}

func (s *chatService) resolve(request domainChat.CreateChatRequest) resolvedRequest {
	r := resolvedRequest{
		model:          request.Model,
		temperature:    s.defaults.Temperature,
		topK:           request.TopK,
		embeddingModel: request.EmbeddingModel,
	}
	if r.model == "" {
		r.model = s.defaults.Model
	}
	if request.Temperature != nil {
		r.temperature = *request.Temperature
	}
	if r.embeddingModel == "" {
		r.embeddingModel = s.defaults.EmbeddingModel
	}
	if r.topK == 0 {
		r.topK = s.defaults.TopK
	}
	r.topK = max(1, min(r.topK, s.defaults.MaxTopK))
	return r
}

// CreateChat runs RAG selection, history load, completion, history persist and
// snapshot persist, strictly in that order. Only a failed completion or
// embedding call fails the request; persistence errors are logged.
func (s *chatService) CreateChat(ctx context.Context, request domainChat.CreateChatRequest) (response domainChat.CreateChatResponse, err error) {
	if err = validations.ValidateCreateChat(ctx, request); err != nil {
		return response, err
	}
	defer func() { s.metrics.Chat(err) }()

	opts := s.resolve(request)
	log := logrus.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"user":       request.UserName,
		"model":      opts.model,
	})

	var messages []domain.Message

	if request.UseRAG && len(request.Documents) > 0 && s.ranker != nil {
		callCtx, cancel := s.withTimeout(ctx)
		docs, err := s.ranker.SelectTopK(callCtx, request.Prompt, request.Documents, opts.topK, opts.embeddingModel)
		err = asUpstreamError(callCtx, err)
		cancel()
		if err != nil {
			log.WithError(err).Error("[CHAT] Document selection failed")
			return response, err
		}
		messages = append(messages, ragMessage(docs))
		response.SelectedDocuments = len(docs)
	}

	if request.UserName != "" {
		turns := s.history.GetHistory(ctx, request.UserName)
		historyMessages := make([]domain.Message, 0, len(turns))
		for _, t := range turns {
			historyMessages = append(historyMessages, domain.Message{Role: t.Role, Content: t.Content})
		}
		if s.defaults.ContextPolicy == coreconfig.ContextPolicyMerge {
			messages = append(messages, historyMessages...)
		} else {
			if response.SelectedDocuments > 0 {
				log.Debug("[CHAT] History present, dropping RAG context for this turn")
			}
			messages = historyMessages
		}
		response.HistoryTurns = len(turns)
	}

	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: request.Prompt})

	callCtx, cancel := s.withTimeout(ctx)
	started := time.Now()
	completion, err := s.completion.Complete(callCtx, domain.CompletionRequest{
		Messages:    messages,
		Model:       opts.model,
		Temperature: opts.temperature,
	})
	err = asUpstreamError(callCtx, err)
	cancel()
	s.metrics.Upstream("completion", started, err)
	if err != nil {
		log.WithError(err).Error("[CHAT] Completion failed")
		return response, err
	}

	response.Response = completion.Content
	response.Model = opts.model

	// The reply is already produced; persistence must not depend on the caller staying connected.
	persistCtx := context.WithoutCancel(ctx)

	if request.UserName != "" {
		if err := s.history.AppendExchange(persistCtx, request.UserName, request.Prompt, completion.Content); err != nil {
			log.WithError(err).Error("[CHAT] Failed to persist history")
		}

		if request.Timestamp != "" && s.snapshots != nil {
			_, err := s.snapshots.Save(persistCtx, request.UserName, request.Timestamp, request.Prompt, completion.Content)
			s.metrics.HistoryWrite("snapshot", err)
			if err != nil {
				log.WithError(err).Error("[CHAT] Failed to persist conversation snapshot")
			}
		}
	}

	log.WithFields(logrus.Fields{
		"duration_ms":   time.Since(started).Milliseconds(),
		"history_turns": response.HistoryTurns,
		"rag_documents": response.SelectedDocuments,
	}).Info("[CHAT] Chat completed")

	return response, nil
}

func (s *chatService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.defaults.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.defaults.RequestTimeout)
}

func ragMessage(docs []string) domain.Message {
	var b strings.Builder
	b.WriteString(ragPreamble)
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, doc)
	}
	return domain.Message{Role: domain.RoleSystem, Content: b.String()}
}

// asUpstreamError normalises provider failures, turning an expired call
// context into a timeout error.
func asUpstreamError(callCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return pkgError.NewUpstreamError("", "request timed out", context.DeadlineExceeded)
	}
	var upstream *pkgError.UpstreamError
	if errors.As(err, &upstream) {
		return err
	}
	return pkgError.NewUpstreamError("", "", err)
}

func (s *chatService) GetHistory(ctx context.Context, userName string) ([]domain.ConversationTurn, error) {
	if err := validations.ValidateUserName(ctx, userName); err != nil {
		return nil, err
	}
	return s.history.GetHistory(ctx, userName), nil
}

func (s *chatService) ClearHistory(ctx context.Context, userName string) error {
	if err := validations.ValidateUserName(ctx, userName); err != nil {
		return err
	}
	if err := s.history.Clear(ctx, userName); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	logrus.WithField("user", userName).Info("[CHAT] History cleared")
	return nil
}

func (s *chatService) CacheUserName(ctx context.Context, userName string) (domain.UserProfile, error) {
	if err := validations.ValidateUserName(ctx, userName); err != nil {
		return domain.UserProfile{}, err
	}
	return s.profiles.CacheUserName(ctx, userName)
}

func (s *chatService) GetCachedUserName(ctx context.Context, userName string) (domain.UserProfile, error) {
	if err := validations.ValidateUserName(ctx, userName); err != nil {
		return domain.UserProfile{}, err
	}
	p, err := s.profiles.GetCachedUserName(ctx, userName)
	if err != nil {
		return domain.UserProfile{}, err
	}
	if p == nil {
		return domain.UserProfile{}, pkgError.NotFoundError(fmt.Sprintf("user %s is not cached", userName))
	}
	return *p, nil
}

func (s *chatService) GetSnapshot(ctx context.Context, userName, timestamp string) (domain.ConversationSnapshot, error) {
	if err := validations.ValidateUserName(ctx, userName); err != nil {
		return domain.ConversationSnapshot{}, err
	}
	if err := validations.ValidateTimestamp(ctx, timestamp); err != nil {
		return domain.ConversationSnapshot{}, err
	}
	snap, err := s.snapshots.Get(ctx, userName, timestamp)
	if err != nil {
		return domain.ConversationSnapshot{}, err
	}
	if snap == nil {
		return domain.ConversationSnapshot{}, pkgError.NotFoundError("conversation snapshot not found")
	}
	return *snap, nil
}

func (s *chatService) ListSnapshots(ctx context.Context, userName string) ([]domain.ConversationSnapshot, error) {
	if err := validations.ValidateUserName(ctx, userName); err != nil {
		return nil, err
	}
	return s.snapshots.List(ctx, userName)
}
