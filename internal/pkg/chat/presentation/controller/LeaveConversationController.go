package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-chatsync/internal/pkg/chat/application/usecase"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

// LeaveConversationController handles DELETE /conversations/:id. Leaving a
// dialog, or a group as its last member, deletes the conversation.
type LeaveConversationController struct {
	UC *usecase.LeaveConversationUseCase
}

func NewLeaveConversationController(uc *usecase.LeaveConversationUseCase) *LeaveConversationController {
	return &LeaveConversationController{UC: uc}
}

func (h *LeaveConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()
		res, err := h.UC.Execute(ctx, usecase.LeaveConversationInput{
			UserID:         middleware.UserID(c),
			ConversationID: c.Param("id"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
