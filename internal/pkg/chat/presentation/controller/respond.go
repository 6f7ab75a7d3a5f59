package controller

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"go-chatsync/internal/pkg/apperr"
	"go-chatsync/internal/pkg/chat/presentation/middleware"
)

const defaultRequestTimeout = 5 * time.Second

var requestTimeout = defaultRequestTimeout

// SetRequestTimeout bounds the use case call of every endpoint. Non-positive
// values restore the default.
func SetRequestTimeout(d time.Duration) {
	if d <= 0 {
		d = defaultRequestTimeout
	}
	requestTimeout = d
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func respondError(c *gin.Context, err error) {
	middleware.Abort(c, err)
}

func badBody(c *gin.Context, err error) {
	respondError(c, apperr.InvalidArgument("invalid request body").WithDetails(map[string]any{"reason": err.Error()}))
}
