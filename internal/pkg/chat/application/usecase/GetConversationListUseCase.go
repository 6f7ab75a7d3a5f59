package usecase

import (
	"context"

	chat "go-chatsync/internal/pkg/chat/application/domain"
)

type GetConversationListUseCase struct {
	Deps
}

func NewGetConversationListUseCase(d Deps) *GetConversationListUseCase {
	return &GetConversationListUseCase{Deps: d}
}

func (uc *GetConversationListUseCase) Execute(ctx context.Context, userID string) ([]chat.ConversationView, error) {
	if err := requireActor(userID); err != nil {
		return nil, err
	}
	views, err := uc.Aggregator.List(ctx, userID)
	if err != nil {
		return nil, translateError(uc.logger(), "list_conversations", err)
	}
	return views, nil
}
