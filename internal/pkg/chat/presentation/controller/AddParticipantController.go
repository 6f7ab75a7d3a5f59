package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-chatsync/internal/pkg/chat/application/usecase"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

// AddParticipantController handles POST /conversations/:id/participants.
type AddParticipantController struct {
	UC *usecase.AddParticipantUseCase
}

func NewAddParticipantController(uc *usecase.AddParticipantUseCase) *AddParticipantController {
	return &AddParticipantController{UC: uc}
}

type addParticipantRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *AddParticipantController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addParticipantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badBody(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()
		view, err := h.UC.Execute(ctx, usecase.AddParticipantInput{
			RequesterID:    middleware.UserID(c),
			ConversationID: c.Param("id"),
			UserID:         req.UserID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}
