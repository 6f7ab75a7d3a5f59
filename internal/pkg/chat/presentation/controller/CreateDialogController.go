package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-chatsync/internal/pkg/chat/application/usecase"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

// CreateDialogController handles POST /conversations/dialogs.
type CreateDialogController struct {
	UC *usecase.CreateDialogUseCase
}

func NewCreateDialogController(uc *usecase.CreateDialogUseCase) *CreateDialogController {
	return &CreateDialogController{UC: uc}
}

type createDialogRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *CreateDialogController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createDialogRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badBody(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()
		res, err := h.UC.Execute(ctx, usecase.CreateDialogInput{UserID: middleware.UserID(c), PeerID: req.UserID})
		if err != nil {
			respondError(c, err)
			return
		}

		status := http.StatusOK
		if res.Created {
			status = http.StatusCreated
		}
		c.JSON(status, res.Conversation)
	}
}
