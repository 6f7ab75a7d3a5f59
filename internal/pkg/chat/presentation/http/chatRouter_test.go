package http

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-chatsync/internal/infrastructure/auth"
	cacheAdapter "go-chatsync/internal/infrastructure/cache/adapter"
	"go-chatsync/internal/infrastructure/presence"
	"go-chatsync/internal/infrastructure/realtime"
	chat "go-chatsync/internal/pkg/chat/application/domain"
	"go-chatsync/internal/pkg/chat/application/fanout"
	"go-chatsync/internal/pkg/chat/application/usecase"
	"go-chatsync/internal/pkg/chat/persistence/repository/memory"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

type api struct {
	t      *testing.T
	engine *gin.Engine
	router *realtime.Router
	tokens map[string]string
	ids    map[string]string
}

func newAPI(t *testing.T, names ...string) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.NewMemoryChatRepository(nil)
	router := realtime.NewRouter()
	t.Cleanup(router.Close)
	tracker := presence.NewTracker(cacheAdapter.NewMemoryCache(nil), time.Minute)
	agg := usecase.NewConversationAggregator(repo, tracker, "", nil)
	deps := usecase.Deps{
		Repo:       repo,
		Aggregator: agg,
		Notifier:   usecase.NewNotifier(agg, fanout.NewDirectPublisher(router), nil),
	}

	verifier, err := auth.NewVerifier("test-secret", "")
	require.NoError(t, err)

	engine := gin.New()
	g := engine.Group("/api/v1", middleware.Authenticate(verifier, usecase.NewSyncUserUseCase(deps), nil))
	RegisterRoutes(g, Dependencies{UseCases: deps, Router: router, Presence: tracker, Log: zap.NewNop()})

	a := &api{t: t, engine: engine, router: router, tokens: map[string]string{}, ids: map[string]string{}}
	for _, name := range names {
		id := uuid.NewString()
		require.NoError(t, repo.SaveUser(context.Background(), chat.User{ID: id, Username: name}))
		tok, err := verifier.Issue(auth.Identity{UserID: id, Username: name}, time.Hour)
		require.NoError(t, err)
		a.ids[name] = id
		a.tokens[name] = tok
	}
	return a
}

func (a *api) do(as string, method string, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[as])
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func TestRoutes_RequireIdentity(t *testing.T) {
	a := newAPI(t)
	w := a.do("", nethttp.MethodGet, "/conversations", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHENTICATED", decode[errorBody](t, w).Error.Code)
}

func TestDialogRoutes(t *testing.T) {
	a := newAPI(t, "alice", "bob")

	w := a.do("alice", nethttp.MethodPost, "/conversations/dialogs", gin.H{"user_id": a.ids["bob"]})
	require.Equal(t, nethttp.StatusCreated, w.Code, w.Body.String())
	first := decode[chat.ConversationView](t, w)
	assert.Equal(t, "bob", first.DisplayName)

	w = a.do("bob", nethttp.MethodPost, "/conversations/dialogs", gin.H{"user_id": a.ids["alice"]})
	require.Equal(t, nethttp.StatusOK, w.Code)
	again := decode[chat.ConversationView](t, w)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "alice", again.DisplayName)

	w = a.do("alice", nethttp.MethodPost, "/conversations/dialogs", gin.H{})
	assert.Equal(t, nethttp.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decode[errorBody](t, w).Error.Code)

	w = a.do("alice", nethttp.MethodGet, "/conversations", nil)
	require.Equal(t, nethttp.StatusOK, w.Code)
	list := decode[struct {
		Conversations []chat.ConversationView `json:"conversations"`
	}](t, w)
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, first.ID, list.Conversations[0].ID)

	w = a.do("alice", nethttp.MethodDelete, "/conversations/"+first.ID, nil)
	require.Equal(t, nethttp.StatusOK, w.Code)
	left := decode[usecase.LeaveConversationResult](t, w)
	assert.True(t, left.Deleted)

	w = a.do("bob", nethttp.MethodGet, "/conversations/"+first.ID, nil)
	assert.Equal(t, nethttp.StatusNotFound, w.Code)
}

func TestGroupRoutes(t *testing.T) {
	a := newAPI(t, "alice", "bob", "carol")

	ghost := uuid.NewString()
	w := a.do("alice", nethttp.MethodPost, "/conversations/groups", gin.H{"name": "team", "participant_ids": []string{a.ids["bob"], ghost}})
	require.Equal(t, nethttp.StatusNotFound, w.Code)
	assert.Equal(t, []any{ghost}, decode[errorBody](t, w).Error.Details["missing_user_ids"])

	w = a.do("alice", nethttp.MethodPost, "/conversations/groups", gin.H{"name": "team", "participant_ids": []string{a.ids["bob"]}})
	require.Equal(t, nethttp.StatusCreated, w.Code, w.Body.String())
	group := decode[chat.ConversationView](t, w)
	require.NotNil(t, group.AdminID)
	assert.Equal(t, a.ids["alice"], *group.AdminID)

	w = a.do("bob", nethttp.MethodPost, "/conversations/"+group.ID+"/participants", gin.H{"user_id": a.ids["carol"]})
	assert.Equal(t, nethttp.StatusForbidden, w.Code)

	w = a.do("alice", nethttp.MethodPost, "/conversations/"+group.ID+"/participants", gin.H{"user_id": a.ids["carol"]})
	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.Len(t, decode[chat.ConversationView](t, w).Participants, 3)

	w = a.do("alice", nethttp.MethodPost, "/conversations/"+group.ID+"/participants", gin.H{"user_id": a.ids["carol"]})
	assert.Equal(t, nethttp.StatusConflict, w.Code)

	w = a.do("alice", nethttp.MethodPatch, "/conversations/"+group.ID, gin.H{"name": "  renamed  "})
	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.Equal(t, "renamed", decode[chat.ConversationView](t, w).DisplayName)

	w = a.do("alice", nethttp.MethodDelete, "/conversations/"+group.ID+"/participants/"+a.ids["carol"], nil)
	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.Len(t, decode[chat.ConversationView](t, w).Participants, 2)

	w = a.do("alice", nethttp.MethodDelete, "/conversations/"+group.ID+"/participants/"+a.ids["alice"], nil)
	assert.Equal(t, nethttp.StatusBadRequest, w.Code)

	w = a.do("alice", nethttp.MethodDelete, "/conversations/"+group.ID, nil)
	require.Equal(t, nethttp.StatusOK, w.Code)
	left := decode[usecase.LeaveConversationResult](t, w)
	assert.False(t, left.Deleted)
	require.NotNil(t, left.NewAdminID)
	assert.Equal(t, a.ids["bob"], *left.NewAdminID)
}

func TestMessageAndReadStateRoutes(t *testing.T) {
	a := newAPI(t, "alice", "bob")
	w := a.do("alice", nethttp.MethodPost, "/conversations/dialogs", gin.H{"user_id": a.ids["bob"]})
	require.Equal(t, nethttp.StatusCreated, w.Code)
	conv := decode[chat.ConversationView](t, w).ID

	w = a.do("alice", nethttp.MethodPost, "/conversations/"+conv+"/messages", gin.H{"content": "   "})
	assert.Equal(t, nethttp.StatusBadRequest, w.Code)

	var sent []chat.MessageView
	for _, text := range []string{"one", "two"} {
		w = a.do("alice", nethttp.MethodPost, "/conversations/"+conv+"/messages", gin.H{"content": text})
		require.Equal(t, nethttp.StatusCreated, w.Code, w.Body.String())
		sent = append(sent, decode[chat.MessageView](t, w))
	}

	w = a.do("bob", nethttp.MethodGet, "/conversations/"+conv+"/messages?limit=1", nil)
	require.Equal(t, nethttp.StatusOK, w.Code)
	page := decode[struct {
		Messages []chat.MessageView `json:"messages"`
		Limit    int                `json:"limit"`
		Offset   int                `json:"offset"`
		Count    int                `json:"count"`
	}](t, w)
	assert.Equal(t, 1, page.Limit)
	assert.Equal(t, 1, page.Count)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "two", page.Messages[0].Content)

	for _, q := range []string{"limit=abc", "limit=101", "offset=-1"} {
		w = a.do("bob", nethttp.MethodGet, "/conversations/"+conv+"/messages?"+q, nil)
		assert.Equal(t, nethttp.StatusBadRequest, w.Code, q)
	}

	w = a.do("bob", nethttp.MethodGet, "/conversations/"+conv, nil)
	assert.Equal(t, 2, decode[chat.ConversationView](t, w).UnreadCount)

	w = a.do("bob", nethttp.MethodPost, "/conversations/"+conv+"/read", nil)
	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.Equal(t, chat.UnreadState{ConversationID: conv}, decode[chat.UnreadState](t, w))

	w = a.do("bob", nethttp.MethodPost, "/conversations/"+conv+"/unread", nil)
	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.Equal(t, 2, decode[chat.UnreadState](t, w).UnreadCount)

	w = a.do("bob", nethttp.MethodPut, "/conversations/"+conv+"/mute", gin.H{})
	assert.Equal(t, nethttp.StatusBadRequest, w.Code)

	w = a.do("bob", nethttp.MethodPut, "/conversations/"+conv+"/mute", gin.H{"muted": true})
	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.True(t, decode[chat.UnreadState](t, w).IsMuted)

	w = a.do("bob", nethttp.MethodPost, "/conversations/"+conv+"/pins/"+sent[0].ID, nil)
	require.Equal(t, nethttp.StatusOK, w.Code)
	pin := decode[usecase.TogglePinResult](t, w)
	assert.True(t, pin.Pinned)
	assert.Equal(t, []string{sent[0].ID}, pin.PinnedMessageIDs)

	w = a.do("bob", nethttp.MethodPost, "/conversations/"+conv+"/pins/"+sent[0].ID, nil)
	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.Empty(t, decode[usecase.TogglePinResult](t, w).PinnedMessageIDs)
}

// ===================== websocket =====================

type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (a *api) dial(t *testing.T, srv *httptest.Server, as string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/chat/ws?access_token=" + a.tokens[as]
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func next(t *testing.T, c *websocket.Conn) wsFrame {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f wsFrame
	require.NoError(t, c.ReadJSON(&f))
	return f
}

func TestChatSocket(t *testing.T) {
	a := newAPI(t, "alice", "bob")
	srv := httptest.NewServer(a.engine)
	t.Cleanup(srv.Close)

	w := a.do("alice", nethttp.MethodPost, "/conversations/dialogs", gin.H{"user_id": a.ids["bob"]})
	require.Equal(t, nethttp.StatusCreated, w.Code)
	conv := decode[chat.ConversationView](t, w).ID

	alice := a.dial(t, srv, "alice")
	hello := next(t, alice)
	require.Equal(t, "connected", hello.Type)
	var ack struct {
		UserID          string   `json:"user_id"`
		ConversationIDs []string `json:"conversation_ids"`
	}
	require.NoError(t, json.Unmarshal(hello.Data, &ack))
	assert.Equal(t, a.ids["alice"], ack.UserID)
	assert.Equal(t, []string{conv}, ack.ConversationIDs)

	w = a.do("bob", nethttp.MethodGet, "/conversations/"+conv, nil)
	online := map[string]bool{}
	for _, p := range decode[chat.ConversationView](t, w).Participants {
		online[p.Username] = p.IsOnline
	}
	assert.Equal(t, map[string]bool{"alice": true, "bob": false}, online)

	require.NoError(t, alice.WriteJSON(gin.H{"type": "message", "conversation_id": conv, "content": "hello"}))
	f := next(t, alice)
	require.Equal(t, string(fanout.EventMessageNew), f.Type)
	var msg chat.MessageView
	require.NoError(t, json.Unmarshal(f.Data, &msg))
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, a.ids["alice"], msg.SenderID)

	require.NoError(t, alice.WriteJSON(gin.H{"type": "dance"}))
	f = next(t, alice)
	require.Equal(t, "error", f.Type)
	assert.Contains(t, string(f.Data), `"code":"INVALID_ARGUMENT"`)

	require.NoError(t, alice.WriteJSON(gin.H{"type": "join", "conversation_id": uuid.NewString()}))
	f = next(t, alice)
	require.Equal(t, "error", f.Type)
	assert.Contains(t, string(f.Data), `"code":"NOT_FOUND"`)

	require.NoError(t, alice.WriteJSON(gin.H{"type": "leave", "conversation_id": conv}))
	assert.Equal(t, "left", next(t, alice).Type)
	require.NoError(t, alice.WriteJSON(gin.H{"type": "join", "conversation_id": conv}))
	assert.Equal(t, "joined", next(t, alice).Type)

	// A group created by someone else reaches the live session and subscribes it.
	w = a.do("bob", nethttp.MethodPost, "/conversations/groups", gin.H{"name": "team", "participant_ids": []string{a.ids["alice"]}})
	require.Equal(t, nethttp.StatusCreated, w.Code)
	group := decode[chat.ConversationView](t, w).ID
	f = next(t, alice)
	require.Equal(t, string(fanout.EventConversationNew), f.Type)
	var snap chat.ConversationView
	require.NoError(t, json.Unmarshal(f.Data, &snap))
	assert.Equal(t, group, snap.ID)
	assert.Equal(t, 1, a.router.RoomSize(group))
}

func TestChatSocket_RequiresToken(t *testing.T) {
	a := newAPI(t)
	srv := httptest.NewServer(a.engine)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/chat/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}
