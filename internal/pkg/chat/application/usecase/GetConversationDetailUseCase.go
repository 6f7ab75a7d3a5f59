package usecase

import (
	"context"

	chat "go-chatsync/internal/pkg/chat/application/domain"
)

type GetConversationDetailInput struct {
	UserID         string
	ConversationID string
}

type GetConversationDetailUseCase struct {
	Deps
}

func NewGetConversationDetailUseCase(d Deps) *GetConversationDetailUseCase {
	return &GetConversationDetailUseCase{Deps: d}
}

func (uc *GetConversationDetailUseCase) Execute(ctx context.Context, in GetConversationDetailInput) (*chat.ConversationView, error) {
	if err := requireActor(in.UserID); err != nil {
		return nil, err
	}
	if err := requireID("conversation_id", in.ConversationID); err != nil {
		return nil, err
	}
	return uc.view(ctx, "get_conversation", in.ConversationID, in.UserID)
}
