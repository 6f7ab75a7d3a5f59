package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-chatsync/internal/pkg/chat/application/usecase"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

// GetConversationDetailController handles GET /conversations/:id.
type GetConversationDetailController struct {
	UC *usecase.GetConversationDetailUseCase
}

func NewGetConversationDetailController(uc *usecase.GetConversationDetailUseCase) *GetConversationDetailController {
	return &GetConversationDetailController{UC: uc}
}

func (h *GetConversationDetailController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()
		view, err := h.UC.Execute(ctx, usecase.GetConversationDetailInput{
			UserID:         middleware.UserID(c),
			ConversationID: c.Param("id"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}
