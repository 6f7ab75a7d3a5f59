package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-chatsync/internal/pkg/chat/application/usecase"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

// RemoveParticipantController handles DELETE /conversations/:id/participants/:userId.
type RemoveParticipantController struct {
	UC *usecase.RemoveParticipantUseCase
}

func NewRemoveParticipantController(uc *usecase.RemoveParticipantUseCase) *RemoveParticipantController {
	return &RemoveParticipantController{UC: uc}
}

func (h *RemoveParticipantController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()
		view, err := h.UC.Execute(ctx, usecase.RemoveParticipantInput{
			RequesterID:    middleware.UserID(c),
			ConversationID: c.Param("id"),
			UserID:         c.Param("userId"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}
