package domain

import (
	"strings"
	"time"
)

// Role of a turn in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one persisted message of the rolling history.
type ConversationTurn struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"` // ISO-8601 UTC with milliseconds, e.g. 2024-03-10T08:00:00.000Z
}

// UserProfile is the small per-user record refreshed by the cache-name call.
type UserProfile struct {
	Name     string    `json:"name"`
	CachedAt time.Time `json:"cachedAt"`
}

// ConversationSnapshot archives one prompt/response pair at a client supplied
// timestamp. It is never fed back into prompts.
type ConversationSnapshot struct {
	Timestamp string    `json:"timestamp"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"createdAt"`
}

// Key builders. All keys live under the "user:<name>:" namespace.

func userKey(userName string, parts ...string) string {
	return "user:" + userName + ":" + strings.Join(parts, ":")
}

func HistoryKey(userName string) string {
	return userKey(userName, "history")
}

func ProfileKey(userName string) string {
	return userKey(userName, "profile")
}

func SnapshotKey(userName, timestamp string) string {
	return userKey(userName, "conversation", timestamp)
}

func SnapshotPattern(userName string) string {
	return userKey(userName, "conversation", "*")
}
