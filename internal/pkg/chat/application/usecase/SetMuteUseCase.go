package usecase

import (
	"context"

	chat "go-chatsync/internal/pkg/chat/application/domain"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

type SetMuteInput struct {
	UserID         string
	ConversationID string
	Muted          bool
}

// SetMuteUseCase flips the caller's mute flag. Unread counting ignores it.
type SetMuteUseCase struct {
	Deps
}

func NewSetMuteUseCase(d Deps) *SetMuteUseCase {
	return &SetMuteUseCase{Deps: d}
}

func (uc *SetMuteUseCase) Execute(ctx context.Context, in SetMuteInput) (*chat.UnreadState, error) {
	rs := ReadStateInput{UserID: in.UserID, ConversationID: in.ConversationID}
	return transitionReadState(ctx, uc.Deps, "set_mute", rs, func(tx repository.ChatTx) error {
		return tx.SetParticipantMuted(ctx, in.ConversationID, in.UserID, in.Muted)
	})
}
