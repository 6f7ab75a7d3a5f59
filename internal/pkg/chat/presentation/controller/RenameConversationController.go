package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-chatsync/internal/pkg/chat/application/usecase"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

// RenameConversationController handles PATCH /conversations/:id.
type RenameConversationController struct {
	UC *usecase.RenameConversationUseCase
}

func NewRenameConversationController(uc *usecase.RenameConversationUseCase) *RenameConversationController {
	return &RenameConversationController{UC: uc}
}

type renameRequest struct {
	Name string `json:"name"`
}

func (h *RenameConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req renameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badBody(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()
		view, err := h.UC.Execute(ctx, usecase.RenameConversationInput{
			RequesterID:    middleware.UserID(c),
			ConversationID: c.Param("id"),
			Name:           req.Name,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}
