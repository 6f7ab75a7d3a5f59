package usecase

import (
	"context"

	chat "go-chatsync/internal/pkg/chat/application/domain"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

// MarkUnreadUseCase drops every read the caller holds in the conversation,
// so unread_count returns to the full count of others' messages.
type MarkUnreadUseCase struct {
	Deps
}

func NewMarkUnreadUseCase(d Deps) *MarkUnreadUseCase {
	return &MarkUnreadUseCase{Deps: d}
}

func (uc *MarkUnreadUseCase) Execute(ctx context.Context, in ReadStateInput) (*chat.UnreadState, error) {
	return transitionReadState(ctx, uc.Deps, "mark_unread", in, func(tx repository.ChatTx) error {
		_, err := tx.MarkConversationUnread(ctx, in.ConversationID, in.UserID)
		return err
	})
}
