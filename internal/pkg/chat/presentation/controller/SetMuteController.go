package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-chatsync/internal/pkg/chat/application/usecase"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

// SetMuteController handles PUT /conversations/:id/mute.
type SetMuteController struct {
	UC *usecase.SetMuteUseCase
}

func NewSetMuteController(uc *usecase.SetMuteUseCase) *SetMuteController {
	return &SetMuteController{UC: uc}
}

// A missing or non-boolean flag fails binding.
type setMuteRequest struct {
	Muted *bool `json:"muted" binding:"required"`
}

func (h *SetMuteController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setMuteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badBody(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()
		state, err := h.UC.Execute(ctx, usecase.SetMuteInput{
			UserID:         middleware.UserID(c),
			ConversationID: c.Param("id"),
			Muted:          *req.Muted,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, state)
	}
}
