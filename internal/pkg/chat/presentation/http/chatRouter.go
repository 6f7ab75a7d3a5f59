package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-chatsync/internal/infrastructure/realtime"
	"go-chatsync/internal/pkg/chat/application/usecase"
	"go-chatsync/internal/pkg/chat/presentation/controller"
)

// Dependencies is what the chat routes are assembled from.
type Dependencies struct {
	UseCases usecase.Deps
	Router   *realtime.Router
	Presence controller.Presence
	Log      *zap.Logger
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router group.
// It constructs per-endpoint controllers and binds them directly to routes.
// The group is expected to carry the authentication middleware.
func RegisterRoutes(g *gin.RouterGroup, d Dependencies) {
	deps := d.UseCases

	createDialogCtl := controller.NewCreateDialogController(usecase.NewCreateDialogUseCase(deps))
	createGroupCtl := controller.NewCreateGroupController(usecase.NewCreateGroupUseCase(deps))
	listCtl := controller.NewGetConversationListController(usecase.NewGetConversationListUseCase(deps))
	detailCtl := controller.NewGetConversationDetailController(usecase.NewGetConversationDetailUseCase(deps))
	addCtl := controller.NewAddParticipantController(usecase.NewAddParticipantUseCase(deps))
	removeCtl := controller.NewRemoveParticipantController(usecase.NewRemoveParticipantUseCase(deps))
	renameCtl := controller.NewRenameConversationController(usecase.NewRenameConversationUseCase(deps))
	leaveCtl := controller.NewLeaveConversationController(usecase.NewLeaveConversationUseCase(deps))
	readCtl := controller.NewMarkReadController(usecase.NewMarkReadUseCase(deps))
	unreadCtl := controller.NewMarkUnreadController(usecase.NewMarkUnreadUseCase(deps))
	muteCtl := controller.NewSetMuteController(usecase.NewSetMuteUseCase(deps))
	pinCtl := controller.NewTogglePinController(usecase.NewTogglePinUseCase(deps))

	sendMessageUC := usecase.NewSendMessageUseCase(deps)
	sendMsgCtl := controller.NewSendMessageController(sendMessageUC)
	getMsgCtl := controller.NewGetMessageController(usecase.NewGetMessageUseCase(deps))
	socketCtl := controller.NewChatSocketController(
		d.Router,
		sendMessageUC,
		usecase.NewJoinConversationUseCase(deps),
		usecase.NewListConversationIDsUseCase(deps),
		d.Presence,
		d.Log,
	)

	conversations := g.Group("/conversations")
	conversations.POST("/dialogs", createDialogCtl.Handle())
	conversations.POST("/groups", createGroupCtl.Handle())
	conversations.GET("", listCtl.Handle())
	conversations.GET("/:id", detailCtl.Handle())
	conversations.PATCH("/:id", renameCtl.Handle())
	// Leaving a dialog, or a group as its last member, deletes it.
	conversations.DELETE("/:id", leaveCtl.Handle())
	conversations.POST("/:id/participants", addCtl.Handle())
	conversations.DELETE("/:id/participants/:userId", removeCtl.Handle())
	conversations.POST("/:id/read", readCtl.Handle())
	conversations.POST("/:id/unread", unreadCtl.Handle())
	conversations.PUT("/:id/mute", muteCtl.Handle())
	conversations.POST("/:id/pins/:messageId", pinCtl.Handle())
	conversations.POST("/:id/messages", sendMsgCtl.Handle())
	conversations.GET("/:id/messages", getMsgCtl.Handle())

	// GET /api/v1/chat/ws -> websocket endpoint for realtime chat
	g.GET("/chat/ws", socketCtl.Handle())
}
