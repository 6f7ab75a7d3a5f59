package usecase

import (
	"context"

	"go-chatsync/internal/pkg/apperr"
)

// JoinConversationInput validates a request to attach a user session to a conversation.
type JoinConversationInput struct {
	ConversationID string
	UserID         string
}

// JoinConversationUseCase ensures the user belongs to the conversation before joining the realtime room.
type JoinConversationUseCase struct {
	Deps
}

func NewJoinConversationUseCase(d Deps) *JoinConversationUseCase {
	return &JoinConversationUseCase{Deps: d}
}

func (uc *JoinConversationUseCase) Execute(ctx context.Context, in JoinConversationInput) error {
	if err := requireActor(in.UserID); err != nil {
		return err
	}
	if err := requireID("conversation_id", in.ConversationID); err != nil {
		return err
	}

	ok, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.UserID)
	if err != nil {
		return translateError(uc.logger(), "join", err)
	}
	if !ok {
		return apperr.NotFound("conversation not found")
	}
	return nil
}
