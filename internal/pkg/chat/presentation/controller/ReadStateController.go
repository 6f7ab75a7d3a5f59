package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	chat "go-chatsync/internal/pkg/chat/application/domain"
	"go-chatsync/internal/pkg/chat/application/usecase"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

type readStateExecutor interface {
	Execute(ctx context.Context, in usecase.ReadStateInput) (*chat.UnreadState, error)
}

// ReadStateController handles POST /conversations/:id/read and
// POST /conversations/:id/unread; the use case decides the direction.
type ReadStateController struct {
	UC readStateExecutor
}

func NewMarkReadController(uc *usecase.MarkReadUseCase) *ReadStateController {
	return &ReadStateController{UC: uc}
}

func NewMarkUnreadController(uc *usecase.MarkUnreadUseCase) *ReadStateController {
	return &ReadStateController{UC: uc}
}

func (h *ReadStateController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()
		state, err := h.UC.Execute(ctx, usecase.ReadStateInput{
			UserID:         middleware.UserID(c),
			ConversationID: c.Param("id"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, state)
	}
}
