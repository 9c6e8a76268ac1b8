package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"careerbot/internal/auth"
	"careerbot/internal/config"
	"careerbot/internal/service/advisor"
	"careerbot/internal/service/ai"
	"careerbot/internal/service/assistant"
	"careerbot/internal/service/extract"
	"careerbot/internal/service/history"
	"careerbot/internal/storage"
)

type turnBody struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type answerResponse struct {
	Response    string     `json:"response"`
	Feedback    string     `json:"feedback"`
	Insights    string     `json:"insights"`
	Formatted   string     `json:"formatted"`
	Failed      bool       `json:"failed"`
	ChatHistory []turnBody `json:"chat_history"`
}

func TestHandlersEndToEndFlow(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	headers := registerAndLogin(t, router)

	chatResp := doJSONRequest(t, router, http.MethodPost, "/api/chat", map[string]string{
		"feature_id": "1",
		"message":    "What careers suit a biology graduate?",
	}, headers)
	assertStatus(t, chatResp, http.StatusOK)
	var chat answerResponse
	decodeJSON(t, chatResp.Body.Bytes(), &chat)
	assert.Contains(t, chat.Response, "[mock]")
	assert.Contains(t, chat.Formatted, "ai-formatted-response")
	require.Len(t, chat.ChatHistory, 2)
	assert.Equal(t, "user", chat.ChatHistory[0].Role)
	assert.Equal(t, "What careers suit a biology graduate?", chat.ChatHistory[0].Content)
	assert.Equal(t, "assistant", chat.ChatHistory[1].Role)

	// user history is durable
	var stored int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM chat_history`).Scan(&stored))
	assert.Equal(t, 2, stored)

	saveResp := doJSONRequest(t, router, http.MethodPost, "/api/saved", map[string]string{
		"feature_id": "1",
		"title":      "Biology careers",
		"response":   chat.Formatted,
	}, headers)
	assertStatus(t, saveResp, http.StatusCreated)
	var saved struct {
		Status string `json:"status"`
		ID     int64  `json:"id"`
	}
	decodeJSON(t, saveResp.Body.Bytes(), &saved)
	assert.Equal(t, "success", saved.Status)
	require.NotZero(t, saved.ID)

	listResp := doJSONRequest(t, router, http.MethodGet, "/api/saved", nil, headers)
	assertStatus(t, listResp, http.StatusOK)
	var list struct {
		SavedResponses []struct {
			ID      int64  `json:"id"`
			Title   string `json:"title"`
			Feature int    `json:"feature_id"`
		} `json:"saved_responses"`
	}
	decodeJSON(t, listResp.Body.Bytes(), &list)
	require.Len(t, list.SavedResponses, 1)
	assert.Equal(t, "Biology careers", list.SavedResponses[0].Title)
	assert.Equal(t, 1, list.SavedResponses[0].Feature)

	missingResp := doJSONRequest(t, router, http.MethodDelete, fmt.Sprintf("/api/saved/%d", saved.ID+100), nil, headers)
	assertStatus(t, missingResp, http.StatusNotFound)

	deleteResp := doJSONRequest(t, router, http.MethodDelete, fmt.Sprintf("/api/saved/%d", saved.ID), nil, headers)
	assertStatus(t, deleteResp, http.StatusOK)

	listResp = doJSONRequest(t, router, http.MethodGet, "/api/saved", nil, headers)
	assertStatus(t, listResp, http.StatusOK)
	decodeJSON(t, listResp.Body.Bytes(), &list)
	assert.Empty(t, list.SavedResponses)

	historyResp := doJSONRequest(t, router, http.MethodPost, "/api/chat/history", map[string]string{"feature_id": "1"}, headers)
	assertStatus(t, historyResp, http.StatusOK)
	var hist answerResponse
	decodeJSON(t, historyResp.Body.Bytes(), &hist)
	assert.Len(t, hist.ChatHistory, 2)

	clearResp := doJSONRequest(t, router, http.MethodPost, "/api/chat/clear", map[string]string{"feature_id": "1"}, headers)
	assertStatus(t, clearResp, http.StatusOK)

	historyResp = doJSONRequest(t, router, http.MethodPost, "/api/chat/history", map[string]string{"feature_id": "1"}, headers)
	assertStatus(t, historyResp, http.StatusOK)
	hist = answerResponse{}
	decodeJSON(t, historyResp.Body.Bytes(), &hist)
	assert.Empty(t, hist.ChatHistory)

	logoutResp := doJSONRequest(t, router, http.MethodPost, "/api/users/logout", nil, headers)
	assertStatus(t, logoutResp, http.StatusNoContent)

	meResp := doJSONRequest(t, router, http.MethodGet, "/api/users/me", nil, headers)
	assertStatus(t, meResp, http.StatusUnauthorized)
}

func TestAnonymousChatKeepsSession(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	first := doJSONRequest(t, router, http.MethodPost, "/api/advice/market", map[string]string{
		"topic": "data science",
	}, nil)
	assertStatus(t, first, http.StatusOK)
	cookie := findCookie(first, "anon_session")
	require.NotNil(t, cookie, "anonymous session cookie not issued")

	var body answerResponse
	decodeJSON(t, first.Body.Bytes(), &body)
	assert.Contains(t, body.Insights, "[mock]")
	assert.Len(t, body.ChatHistory, 2)

	second := doJSONRequest(t, router, http.MethodPost, "/api/chat", map[string]string{
		"feature_id": "3",
		"message":    "Which skills are in demand?",
	}, map[string]string{"Cookie": cookie.Name + "=" + cookie.Value})
	assertStatus(t, second, http.StatusOK)
	body = answerResponse{}
	decodeJSON(t, second.Body.Bytes(), &body)
	assert.Len(t, body.ChatHistory, 4)

	// a different browser sees its own empty conversation
	other := doJSONRequest(t, router, http.MethodPost, "/api/chat/history", map[string]string{"feature_id": "3"}, nil)
	assertStatus(t, other, http.StatusOK)
	body = answerResponse{}
	decodeJSON(t, other.Body.Bytes(), &body)
	assert.Empty(t, body.ChatHistory)

	// anonymous history never reaches the database
	var stored int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM chat_history`).Scan(&stored))
	assert.Zero(t, stored)
}

func TestChatAcknowledgment(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	resp := doJSONRequest(t, router, http.MethodPost, "/api/chat", map[string]string{
		"feature_id": "5",
		"message":    "Thanks!",
	}, nil)
	assertStatus(t, resp, http.StatusOK)
	var body answerResponse
	decodeJSON(t, resp.Body.Bytes(), &body)
	assert.Equal(t, "You're welcome! Anything else you'd like to know?", body.Response)
	assert.NotContains(t, body.Response, "[mock]")
	assert.Len(t, body.ChatHistory, 2)
}

func TestCareerNamesLeavesHistory(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	resp := doJSONRequest(t, router, http.MethodPost, "/api/careers", map[string]string{"interest": "robotics"}, nil)
	assertStatus(t, resp, http.StatusOK)
	var body answerResponse
	decodeJSON(t, resp.Body.Bytes(), &body)
	assert.Contains(t, body.Insights, "[mock]")
	assert.Empty(t, body.ChatHistory)
}

func TestCSRFRequiredForCookieAuth(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	loginResp := registerAndLoginRaw(t, router)
	authCookie := findCookie(loginResp, "auth_token")
	csrfCookie := findCookie(loginResp, "csrf_token")
	require.NotNil(t, authCookie)
	require.NotNil(t, csrfCookie)
	cookies := fmt.Sprintf("%s=%s; %s=%s", authCookie.Name, authCookie.Value, csrfCookie.Name, csrfCookie.Value)

	payload := map[string]string{"feature_id": "2", "title": "CV notes", "response": "<p>ok</p>"}

	rejected := doJSONRequest(t, router, http.MethodPost, "/api/saved", payload, map[string]string{"Cookie": cookies})
	assertStatus(t, rejected, http.StatusForbidden)

	accepted := doJSONRequest(t, router, http.MethodPost, "/api/saved", payload, map[string]string{
		"Cookie":       cookies,
		"X-CSRF-Token": csrfCookie.Value,
	})
	assertStatus(t, accepted, http.StatusCreated)

	// reads are not protected
	list := doJSONRequest(t, router, http.MethodGet, "/api/saved", nil, map[string]string{"Cookie": cookies})
	assertStatus(t, list, http.StatusOK)
}

func TestResumeUpload(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	resp := postMultipart(t, router, "/api/advice/resume", "cv.txt", []byte("Experienced engineer."), nil)
	assertStatus(t, resp, http.StatusOK)
	var body answerResponse
	decodeJSON(t, resp.Body.Bytes(), &body)
	assert.Contains(t, body.Feedback, "[mock]")
	require.Len(t, body.ChatHistory, 2)
	assert.Equal(t, "Experienced engineer.", body.ChatHistory[0].Content)

	rejected := postMultipart(t, router, "/api/advice/resume", "cv.exe", []byte("MZ"), nil)
	assertStatus(t, rejected, http.StatusBadRequest)

	textOnly := postMultipart(t, router, "/api/advice/resume", "", nil, map[string]string{"resume_text": "Pasted resume"})
	assertStatus(t, textOnly, http.StatusOK)
}

func TestRequestValidation(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	cases := []struct {
		name   string
		method string
		path   string
		body   map[string]string
		want   int
		field  string
	}{
		{"password mismatch", http.MethodPost, "/api/users/register", map[string]string{
			"username": "mismatch", "email": "m@example.com", "password": "secret1", "confirm_password": "secret2",
		}, http.StatusBadRequest, "confirm_password"},
		{"bad email", http.MethodPost, "/api/users/register", map[string]string{
			"username": "bademail", "email": "nope", "password": "secret1", "confirm_password": "secret1",
		}, http.StatusBadRequest, "email"},
		{"unknown feature", http.MethodPost, "/api/chat", map[string]string{"feature_id": "9", "message": "hello there friend"}, http.StatusBadRequest, "feature_id"},
		{"empty message", http.MethodPost, "/api/chat", map[string]string{"feature_id": "1", "message": "  "}, http.StatusBadRequest, "message"},
		{"empty topic", http.MethodPost, "/api/advice/market", map[string]string{"topic": ""}, http.StatusBadRequest, "input"},
		{"saved needs auth", http.MethodGet, "/api/saved", nil, http.StatusUnauthorized, ""},
		{"bad login", http.MethodPost, "/api/users/login", map[string]string{"email": "ghost@example.com", "password": "whatever"}, http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body interface{}
			if tc.body != nil {
				body = tc.body
			}
			resp := doJSONRequest(t, router, tc.method, tc.path, body, nil)
			assertStatus(t, resp, tc.want)
			if tc.field != "" {
				var errBody struct {
					Field string `json:"field"`
				}
				decodeJSON(t, resp.Body.Bytes(), &errBody)
				assert.Equal(t, tc.field, errBody.Field)
			}
		})
	}
}

func TestProfileUpdateAndDelete(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	headers := registerAndLogin(t, router)

	resp := doJSONRequest(t, router, http.MethodPut, "/api/users/me", map[string]string{
		"username":         "renamed",
		"current_password": "pass123",
		"new_password":     "newpass1",
		"confirm_password": "newpass1",
	}, headers)
	assertStatus(t, resp, http.StatusOK)
	var user struct {
		Username string `json:"username"`
	}
	decodeJSON(t, resp.Body.Bytes(), &user)
	assert.Equal(t, "renamed", user.Username)

	resp = doJSONRequest(t, router, http.MethodDelete, "/api/users/me", nil, headers)
	assertStatus(t, resp, http.StatusNoContent)

	resp = doJSONRequest(t, router, http.MethodGet, "/api/users/me", nil, headers)
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestFeaturesAndHealth(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	resp := doJSONRequest(t, router, http.MethodGet, "/api/features", nil, nil)
	assertStatus(t, resp, http.StatusOK)
	var features struct {
		Features map[string]string `json:"features"`
	}
	decodeJSON(t, resp.Body.Bytes(), &features)
	assert.Len(t, features.Features, 5)
	assert.Equal(t, "Interview preparation tips", features.Features["5"])

	resp = doJSONRequest(t, router, http.MethodGet, "/healthz", nil, nil)
	assertStatus(t, resp, http.StatusOK)
}

func newTestServer(t *testing.T) (*gin.Engine, *sql.DB, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	logger := zap.NewNop()

	store := history.NewRouter(history.NewSQLStore(db), history.NewSessionStore(history.NewMemoryKV(), time.Hour))
	client := ai.NewClient(ai.ProviderMock, ai.NewMockChatModel(), 5*time.Second, logger)
	adv := advisor.New(store, client, advisor.Config{}, logger)

	extractor, err := extract.NewExtractor(context.Background(), t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("extractor: %v", err)
	}

	authSvc := auth.NewService(db, nil, time.Hour)
	handler := NewHandler(adv, assistant.NewService(db), authSvc, extractor, 1<<20, logger)

	router := gin.New()
	handler.RegisterRoutes(router)
	return router, db, handler
}

func doJSONRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func postMultipart(t *testing.T, router *gin.Engine, path, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		part, err := w.CreateFormFile("resume_file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("unexpected status %d, body: %s", rec.Code, rec.Body.String())
	}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

var userSeq atomic.Int64

func registerAndLoginRaw(t *testing.T, router *gin.Engine) *httptest.ResponseRecorder {
	t.Helper()
	username := fmt.Sprintf("tester_%d", userSeq.Add(1))
	email := strings.ToLower(username) + "@example.com"
	password := "pass123"
	regResp := doJSONRequest(t, router, http.MethodPost, "/api/users/register", map[string]string{
		"username":         username,
		"email":            email,
		"password":         password,
		"confirm_password": password,
	}, nil)
	assertStatus(t, regResp, http.StatusCreated)

	loginResp := doJSONRequest(t, router, http.MethodPost, "/api/users/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	assertStatus(t, loginResp, http.StatusOK)
	return loginResp
}

// registerAndLogin returns bearer headers for a fresh user.
func registerAndLogin(t *testing.T, router *gin.Engine) map[string]string {
	t.Helper()
	loginResp := registerAndLoginRaw(t, router)
	var body struct {
		AuthToken string `json:"auth_token"`
		User      struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	decodeJSON(t, loginResp.Body.Bytes(), &body)
	if body.AuthToken == "" || body.User.ID == 0 {
		t.Fatalf("login response missing token or user: %s", loginResp.Body.String())
	}
	return map[string]string{"Authorization": "Bearer " + body.AuthToken}
}
