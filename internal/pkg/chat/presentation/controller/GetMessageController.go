package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-chatsync/internal/pkg/apperr"
	"go-chatsync/internal/pkg/chat/application/usecase"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

// GetMessageController handles GET /conversations/:id/messages (one controller per endpoint)
type GetMessageController struct {
	UC *usecase.GetMessageUseCase
}

func NewGetMessageController(uc *usecase.GetMessageUseCase) *GetMessageController {
	return &GetMessageController{UC: uc}
}

func (h *GetMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := intQuery(c, "limit", usecase.DefaultMessageLimit)
		if !ok {
			return
		}
		offset, ok := intQuery(c, "offset", 0)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()
		msgs, err := h.UC.Execute(ctx, usecase.GetMessageInput{
			UserID:         middleware.UserID(c),
			ConversationID: c.Param("id"),
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"messages": msgs,
			"limit":    limit,
			"offset":   offset,
			"count":    len(msgs),
		})
	}
}

func intQuery(c *gin.Context, name string, def int) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		respondError(c, apperr.InvalidArgument(name+" must be an integer"))
		return 0, false
	}
	return n, true
}
