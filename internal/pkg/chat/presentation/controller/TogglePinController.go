package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-chatsync/internal/pkg/chat/application/usecase"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

// TogglePinController handles POST /conversations/:id/pins/:messageId.
type TogglePinController struct {
	UC *usecase.TogglePinUseCase
}

func NewTogglePinController(uc *usecase.TogglePinUseCase) *TogglePinController {
	return &TogglePinController{UC: uc}
}

func (h *TogglePinController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()
		res, err := h.UC.Execute(ctx, usecase.TogglePinInput{
			UserID:         middleware.UserID(c),
			ConversationID: c.Param("id"),
			MessageID:      c.Param("messageId"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
