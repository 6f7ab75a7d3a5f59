package usecase

import (
	"context"

	"go-chatsync/internal/pkg/apperr"
	chat "go-chatsync/internal/pkg/chat/application/domain"
	"go-chatsync/internal/pkg/chat/application/fanout"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

type RemoveParticipantInput struct {
	RequesterID    string
	ConversationID string
	UserID         string
}

// RemoveParticipantUseCase lets a group admin remove another member.
// Removing yourself goes through LeaveConversationUseCase.
type RemoveParticipantUseCase struct {
	Deps
}

func NewRemoveParticipantUseCase(d Deps) *RemoveParticipantUseCase {
	return &RemoveParticipantUseCase{Deps: d}
}

func (uc *RemoveParticipantUseCase) Execute(ctx context.Context, in RemoveParticipantInput) (*chat.ConversationView, error) {
	const op = "remove_participant"
	if err := requireActor(in.RequesterID); err != nil {
		return nil, err
	}
	if err := requireID("conversation_id", in.ConversationID); err != nil {
		return nil, err
	}
	if err := requireID("user_id", in.UserID); err != nil {
		return nil, err
	}
	if in.UserID == in.RequesterID {
		return nil, uc.fail(op, chat.ErrSelfTarget)
	}

	var members []string
	err := uc.Repo.WithinTx(ctx, func(tx repository.ChatTx) error {
		c, err := loadChat(ctx, tx, in.ConversationID)
		if err != nil {
			return err
		}
		if err := c.RequireGroupAdmin(in.RequesterID); err != nil {
			return err
		}
		if !c.HasParticipant(in.UserID) {
			return apperr.NotFound("participant not found")
		}
		if err := tx.DeleteParticipant(ctx, in.ConversationID, in.UserID); err != nil {
			return err
		}
		c.Remove(in.UserID)
		members = c.MemberIDs()
		return nil
	})
	if err != nil {
		return nil, uc.fail(op, err)
	}

	uc.committed(op)
	uc.notify(ctx, fanout.Mutation{
		Kind:           fanout.MutationParticipantRemoved,
		ConversationID: in.ConversationID,
		Actor:          in.RequesterID,
		Subject:        in.UserID,
		Members:        members,
	})
	return uc.view(ctx, op, in.ConversationID, in.RequesterID)
}
