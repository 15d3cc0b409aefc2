package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"nutrichat/backend/internal/models"
	"nutrichat/backend/internal/service"
	"nutrichat/backend/pkg/config"
	"nutrichat/backend/pkg/health"
	"nutrichat/backend/pkg/jwt"
	"nutrichat/backend/pkg/logger"
	"nutrichat/backend/pkg/resilience"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, question, history string) (string, error) {
	return "you asked: " + question, nil
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Conversation{}, &models.Message{}))

	log := logger.New(logger.Config{Level: "error"})
	jwtService := jwt.NewService("test-secret", time.Hour)
	users := service.NewUserService(db, jwtService)
	conversations := service.NewConversationService(db, nil, 0)

	breaker := resilience.New(resilience.DefaultConfig("test"), log)
	chat := service.NewChatService(db, conversations, echoGenerator{}, breaker,
		service.ChatConfig{Timeout: time.Second, MaxRetries: 1, Backoff: time.Millisecond}, log)

	cfg := &config.Config{}
	cfg.Security.AllowedOrigins = []string{"http://localhost:4200"}
	cfg.Security.RateLimit = 1000
	cfg.Security.RateLimitBurst = 1000

	checker := health.NewChecker()
	engine, err := NewRouter(RouterDeps{
		Config:        cfg,
		Logger:        log,
		JWTService:    jwtService,
		Users:         users,
		Conversations: conversations,
		Chat:          chat,
		Health:        checker,
	})
	require.NoError(t, err)

	return &testServer{engine: engine, db: db}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, username, password string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/create-user", "",
		gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestCreateUserAndConflict(t *testing.T) {
	srv := newTestServer(t)

	token := srv.register(t, "alice", "pw1")
	assert.NotEmpty(t, token)

	w := srv.do(t, http.MethodPost, "/create-user", "",
		gin.H{"username": "alice", "password": "pw2"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "CONFLICT")
}

func TestRefreshToken(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "alice", "pw1")

	form := url.Values{"username": {"alice"}, "password": {"pw1"}}
	req := httptest.NewRequest(http.MethodPost, "/refresh-token",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)

	form.Set("password", "wrong")
	req = httptest.NewRequest(http.MethodPost, "/refresh-token",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestConversationEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "alice", "pw1")

	w := srv.do(t, http.MethodPost, "/create-conversation", token, gin.H{"title": "diet-plan"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "diet-plan")

	w = srv.do(t, http.MethodPost, "/create-conversation", token, gin.H{"title": "diet-plan"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = srv.do(t, http.MethodGet, "/conversations", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listing []map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Len(t, listing, 1)
	assert.Equal(t, "diet-plan", listing[0]["title"])
}

func TestSendMessage(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "alice", "pw1")

	w := srv.do(t, http.MethodPost, "/create-conversation", token, gin.H{"title": "diet-plan"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = srv.do(t, http.MethodPost, "/message", token,
		gin.H{"title": "diet-plan", "message_text": "what should I eat?"})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "you asked: what should I eat?", resp["response"])

	var count int64
	srv.db.Model(&models.Message{}).Count(&count)
	assert.Equal(t, int64(2), count, "one turn persists the user and assistant rows")
}

func TestSendMessageUnknownConversation(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "alice", "pw1")

	w := srv.do(t, http.MethodPost, "/message", token,
		gin.H{"title": "missing", "message_text": "hello"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")

	var count int64
	srv.db.Model(&models.Message{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSendMessageEmptyText(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "alice", "pw1")

	w := srv.do(t, http.MethodPost, "/create-conversation", token, gin.H{"title": "diet-plan"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = srv.do(t, http.MethodPost, "/message", token,
		gin.H{"title": "diet-plan", "message_text": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/create-conversation"},
		{http.MethodGet, "/conversations"},
		{http.MethodPost, "/message"},
	} {
		w := srv.do(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s without a token", tc.method, tc.path)
	}

	w := srv.do(t, http.MethodGet, "/conversations", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_INVALID")
}

func TestConversationsAreOwnerScoped(t *testing.T) {
	srv := newTestServer(t)
	aliceToken := srv.register(t, "alice", "pw1")
	bobToken := srv.register(t, "bob", "pw2")

	w := srv.do(t, http.MethodPost, "/create-conversation", aliceToken, gin.H{"title": "diet-plan"})
	require.Equal(t, http.StatusCreated, w.Code)

	// Bob cannot chat in Alice's conversation
	w = srv.do(t, http.MethodPost, "/message", bobToken,
		gin.H{"title": "diet-plan", "message_text": "hello"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodGet, "/conversations", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing []map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Empty(t, listing)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
