package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-chatsync/internal/pkg/chat/application/usecase"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

// GetConversationListController handles GET /conversations.
type GetConversationListController struct {
	UC *usecase.GetConversationListUseCase
}

func NewGetConversationListController(uc *usecase.GetConversationListUseCase) *GetConversationListController {
	return &GetConversationListController{UC: uc}
}

func (h *GetConversationListController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()
		views, err := h.UC.Execute(ctx, middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"conversations": views})
	}
}
