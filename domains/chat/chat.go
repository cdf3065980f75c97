package chat

import (
	"context"

	"github.com/karacho11/first-chatbot-back/chatengine/domain"
)

// CreateChatRequest is one prompt plus the optional context switches.
type CreateChatRequest struct {
	Prompt         string   `json:"prompt"`
	Model          string   `json:"model,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	Timestamp      string   `json:"timestamp,omitempty"`
	UserName       string   `json:"userName,omitempty"`
	UseRAG         bool     `json:"useRag,omitempty"`
	Documents      []string `json:"documents,omitempty"`
	TopK           int      `json:"topK,omitempty"`
	EmbeddingModel string   `json:"embeddingModel,omitempty"`
}

// CreateChatResponse carries the assistant reply.
type CreateChatResponse struct {
	Response          string `json:"response"`
	Model             string `json:"model"`
	SelectedDocuments int    `json:"selectedDocuments,omitempty"`
	HistoryTurns      int    `json:"historyTurns,omitempty"`
}

type IChatUsecase interface {
	CreateChat(ctx context.Context, request CreateChatRequest) (CreateChatResponse, error)
	GetHistory(ctx context.Context, userName string) ([]domain.ConversationTurn, error)
	ClearHistory(ctx context.Context, userName string) error

	CacheUserName(ctx context.Context, userName string) (domain.UserProfile, error)
	GetCachedUserName(ctx context.Context, userName string) (domain.UserProfile, error)

	GetSnapshot(ctx context.Context, userName, timestamp string) (domain.ConversationSnapshot, error)
	ListSnapshots(ctx context.Context, userName string) ([]domain.ConversationSnapshot, error)
}
