package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"go-chatsync/internal/infrastructure/realtime"
	"go-chatsync/internal/pkg/apperr"
	"go-chatsync/internal/pkg/chat/application/usecase"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

// Presence records which users hold a live session.
type Presence interface {
	MarkOnline(ctx context.Context, userID string) error
	MarkOffline(ctx context.Context, userID string) error
}

// ChatSocketController handles the websocket endpoint for realtime chat traffic.
type ChatSocketController struct {
	router          *realtime.Router
	sendMessageUC   *usecase.SendMessageUseCase
	joinRoomUC      *usecase.JoinConversationUseCase
	listRoomsUC     *usecase.ListConversationIDsUseCase
	presence        Presence
	log             *zap.Logger
	inflightTimeout time.Duration
}

func NewChatSocketController(
	router *realtime.Router,
	sendMessageUC *usecase.SendMessageUseCase,
	joinRoomUC *usecase.JoinConversationUseCase,
	listRoomsUC *usecase.ListConversationIDsUseCase,
	presence Presence,
	log *zap.Logger,
) *ChatSocketController {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatSocketController{
		router:          router,
		sendMessageUC:   sendMessageUC,
		joinRoomUC:      joinRoomUC,
		listRoomsUC:     listRoomsUC,
		presence:        presence,
		log:             log.Named("socket"),
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browsers cannot set headers on websocket requests; the token query parameter authenticates them.
		return true
	},
}

type inboundFrame struct {
	Type           string  `json:"type"`
	ConversationID string  `json:"conversation_id,omitempty"`
	Content        string  `json:"content,omitempty"`
	ForwardedFrom  *string `json:"forwarded_from,omitempty"`
}

type roomAck struct {
	ConversationID string `json:"conversation_id"`
}

type connectedAck struct {
	UserID          string   `json:"user_id"`
	ConversationIDs []string `json:"conversation_ids"`
}

const (
	defaultReadTimeout = 60 * time.Second
	maxFrameSize       = 1 << 20
)

// Handle upgrades HTTP connections to websocket and processes frames until the client disconnects.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			respondError(c, apperr.Unauthenticated("authentication required"))
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			ctl.log.Debug("upgrade failed", zap.String("user_id", userID), zap.Error(err))
			return
		}

		conn := realtime.NewConnection(userID, ws)
		ctl.router.Attach(conn)
		defer func() {
			if gone := ctl.router.Detach(conn); gone {
				ctl.markOffline(userID)
			}
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(maxFrameSize)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			ctl.markOnline(userID)
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		rooms := ctl.joinAll(c.Request.Context(), conn)
		ctl.markOnline(userID)
		ctl.reply(conn, "connected", connectedAck{UserID: userID, ConversationIDs: rooms})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
					!errors.Is(err, websocket.ErrCloseSent) {
					ctl.log.Debug("read failed", zap.String("user_id", userID), zap.Error(err))
				}
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, apperr.InvalidArgument("invalid payload"))
				continue
			}

			switch frame.Type {
			case "join":
				ctl.handleJoin(c.Request.Context(), conn, frame)
			case "leave":
				ctl.handleLeave(conn, frame)
			case "message":
				ctl.handleMessage(c.Request.Context(), conn, frame)
			default:
				ctl.replyError(conn, apperr.InvalidArgument("unknown frame type"))
			}
		}
	}
}

// joinAll subscribes the session to every conversation of its user.
func (ctl *ChatSocketController) joinAll(ctx context.Context, conn *realtime.Connection) []string {
	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	ids, err := ctl.listRoomsUC.Execute(ctx, conn.UserID)
	if err != nil {
		ctl.log.Warn("auto-join failed", zap.String("user_id", conn.UserID), zap.Error(err))
		return []string{}
	}
	for _, id := range ids {
		ctl.router.Join(id, conn)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids
}

func (ctl *ChatSocketController) handleJoin(ctx context.Context, conn *realtime.Connection, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	err := ctl.joinRoomUC.Execute(ctx, usecase.JoinConversationInput{
		ConversationID: frame.ConversationID,
		UserID:         conn.UserID,
	})
	if err != nil {
		ctl.replyError(conn, err)
		return
	}

	ctl.router.Join(frame.ConversationID, conn)
	ctl.reply(conn, "joined", roomAck{ConversationID: frame.ConversationID})
}

func (ctl *ChatSocketController) handleLeave(conn *realtime.Connection, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, apperr.InvalidArgument("conversation_id is required"))
		return
	}
	ctl.router.Leave(frame.ConversationID, conn)
	ctl.reply(conn, "left", roomAck{ConversationID: frame.ConversationID})
}

// handleMessage stores the message; the sender sees it through the room like everyone else.
func (ctl *ChatSocketController) handleMessage(ctx context.Context, conn *realtime.Connection, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	_, err := ctl.sendMessageUC.Execute(ctx, usecase.SendMessageInput{
		ConversationID: frame.ConversationID,
		SenderID:       conn.UserID,
		Content:        frame.Content,
		ForwardedFrom:  frame.ForwardedFrom,
	})
	if err != nil {
		ctl.replyError(conn, err)
	}
}

func (ctl *ChatSocketController) reply(conn *realtime.Connection, event string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		ctl.log.Error("encode frame", zap.String("event", event), zap.Error(err))
		return
	}
	_ = conn.SendFrame(event, payload)
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, err error) {
	e, ok := apperr.As(err)
	if !ok {
		ctl.log.Error("socket command failed", zap.String("user_id", conn.UserID), zap.Error(err))
		e = apperr.Internal("internal error")
	}
	ctl.reply(conn, "error", e)
}

func (ctl *ChatSocketController) markOnline(userID string) {
	if ctl.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ctl.presence.MarkOnline(ctx, userID); err != nil {
		ctl.log.Warn("presence update failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (ctl *ChatSocketController) markOffline(userID string) {
	if ctl.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ctl.presence.MarkOffline(ctx, userID); err != nil {
		ctl.log.Warn("presence update failed", zap.String("user_id", userID), zap.Error(err))
	}
}
