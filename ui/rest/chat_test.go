package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karacho11/first-chatbot-back/chatengine/domain"
	domainChat "github.com/karacho11/first-chatbot-back/domains/chat"
	pkgError "github.com/karacho11/first-chatbot-back/pkg/error"
	"github.com/karacho11/first-chatbot-back/pkg/utils"
	"github.com/karacho11/first-chatbot-back/ui/rest/middleware"
)

// fakeChatService implements IChatUsecase with canned answers.
type fakeChatService struct {
	gotRequest domainChat.CreateChatRequest
	chatErr    error
	cleared    string
	history    []domain.ConversationTurn
}

func (f *fakeChatService) CreateChat(ctx context.Context, request domainChat.CreateChatRequest) (domainChat.CreateChatResponse, error) {
	f.gotRequest = request
	if f.chatErr != nil {
		return domainChat.CreateChatResponse{}, f.chatErr
	}
	return domainChat.CreateChatResponse{Response: "Hello", Model: "gpt-4o-mini"}, nil
}

func (f *fakeChatService) GetHistory(ctx context.Context, userName string) ([]domain.ConversationTurn, error) {
	return f.history, nil
}

func (f *fakeChatService) ClearHistory(ctx context.Context, userName string) error {
	f.cleared = userName
	return nil
}

func (f *fakeChatService) CacheUserName(ctx context.Context, userName string) (domain.UserProfile, error) {
	return domain.UserProfile{Name: userName}, nil
}

func (f *fakeChatService) GetCachedUserName(ctx context.Context, userName string) (domain.UserProfile, error) {
	return domain.UserProfile{}, pkgError.NotFoundError("user " + userName + " is not cached")
}

func (f *fakeChatService) GetSnapshot(ctx context.Context, userName, timestamp string) (domain.ConversationSnapshot, error) {
	return domain.ConversationSnapshot{Timestamp: timestamp, Prompt: "Hi", Response: "Hello"}, nil
}

func (f *fakeChatService) ListSnapshots(ctx context.Context, userName string) ([]domain.ConversationSnapshot, error) {
	return []domain.ConversationSnapshot{}, nil
}

func newTestApp(service domainChat.IChatUsecase) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Recovery())
	api := app.Group("/api")
	InitRestChat(api, service)
	InitRestUserCache(api, service)
	return app
}

func decode(t *testing.T, resp *http.Response) utils.ResponseData {
	t.Helper()
	var body utils.ResponseData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestCreateChat_E2E(t *testing.T) {
	service := &fakeChatService{}
	app := newTestApp(service)

	payload := []byte(`{"prompt":"Hi","userName":"ann","useRag":true,"documents":["a","b"],"topK":1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "SUCCESS", body.Code)
	assert.Equal(t, "Hello", body.Results.(map[string]any)["response"])

	assert.Equal(t, "Hi", service.gotRequest.Prompt)
	assert.Equal(t, "ann", service.gotRequest.UserName)
	assert.True(t, service.gotRequest.UseRAG)
	assert.Equal(t, []string{"a", "b"}, service.gotRequest.Documents)
	assert.Equal(t, 1, service.gotRequest.TopK)
}

func TestCreateChat_UpstreamFailureMapsToBadGateway(t *testing.T) {
	service := &fakeChatService{chatErr: pkgError.NewUpstreamError("openai", "model not found", errors.New("404"))}
	app := newTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte(`{"prompt":"Hi"}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "UPSTREAM_ERROR", body.Code)
	assert.Equal(t, "openai: model not found", body.Message)
}

func TestCreateChat_MalformedBody(t *testing.T) {
	app := newTestApp(&fakeChatService{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte(`{"prompt":`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearHistory_UsesPathParam(t *testing.T) {
	service := &fakeChatService{}
	app := newTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/chat/history/ann", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ann", service.cleared)
}

func TestGetCachedUserName_NotFound(t *testing.T) {
	app := newTestApp(&fakeChatService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/users/ann/cache", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND_ERROR", decode(t, resp).Code)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func TestHealth(t *testing.T) {
	app := fiber.New()
	InitRestHealth(app.Group("/api"), stubPinger{}, "v1.0.0")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	app = fiber.New()
	InitRestHealth(app.Group("/api"), stubPinger{err: errors.New("dial tcp: refused")}, "v1.0.0")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
