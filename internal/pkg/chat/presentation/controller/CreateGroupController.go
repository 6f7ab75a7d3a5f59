package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-chatsync/internal/pkg/chat/application/usecase"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

// CreateGroupController handles POST /conversations/groups.
type CreateGroupController struct {
	UC *usecase.CreateGroupUseCase
}

func NewCreateGroupController(uc *usecase.CreateGroupUseCase) *CreateGroupController {
	return &CreateGroupController{UC: uc}
}

type createGroupRequest struct {
	Name           string   `json:"name"`
	ParticipantIDs []string `json:"participant_ids"`
}

func (h *CreateGroupController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badBody(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()
		view, err := h.UC.Execute(ctx, usecase.CreateGroupInput{
			CreatorID:      middleware.UserID(c),
			Name:           req.Name,
			ParticipantIDs: req.ParticipantIDs,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}
