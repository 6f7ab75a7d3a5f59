package v1

import (
	"github.com/gin-gonic/gin"

	httpHandler "go-chatsync/internal/pkg/chat/presentation/http"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1 behind authenticate.
func RegisterRoutes(r *gin.Engine, authenticate gin.HandlerFunc, chat httpHandler.Dependencies) {
	v1 := r.Group("/api/v1", authenticate)
	httpHandler.RegisterRoutes(v1, chat)
}
