package usecase

import (
	"context"

	"go-chatsync/internal/pkg/apperr"
	chat "go-chatsync/internal/pkg/chat/application/domain"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 100
)

// GetMessageInput carries parameters to fetch messages of a conversation.
// A zero Limit means DefaultMessageLimit.
type GetMessageInput struct {
	UserID         string
	ConversationID string
	Limit          int
	Offset         int
}

// GetMessageUseCase pages through a conversation's messages, newest first.
type GetMessageUseCase struct {
	Deps
}

func NewGetMessageUseCase(d Deps) *GetMessageUseCase {
	return &GetMessageUseCase{Deps: d}
}

func (uc *GetMessageUseCase) Execute(ctx context.Context, in GetMessageInput) ([]chat.MessageView, error) {
	const op = "get_messages"
	if err := requireActor(in.UserID); err != nil {
		return nil, err
	}
	if err := requireID("conversation_id", in.ConversationID); err != nil {
		return nil, err
	}
	if in.Limit == 0 {
		in.Limit = DefaultMessageLimit
	}
	if in.Limit < 0 || in.Limit > MaxMessageLimit {
		return nil, apperr.InvalidArgument("limit must be between 1 and 100")
	}
	if in.Offset < 0 {
		return nil, apperr.InvalidArgument("offset must not be negative")
	}

	ok, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.UserID)
	if err != nil {
		return nil, translateError(uc.logger(), op, err)
	}
	if !ok {
		return nil, apperr.NotFound("conversation not found")
	}
	msgs, err := uc.Repo.GetMessagesByConversation(ctx, in.ConversationID, in.Limit, in.Offset)
	if err != nil {
		return nil, translateError(uc.logger(), op, err)
	}

	views := make([]chat.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, chat.NewMessageView(m))
	}
	return views, nil
}
