package usecase

import (
	"context"

	"go-chatsync/internal/pkg/apperr"
	chat "go-chatsync/internal/pkg/chat/application/domain"
	"go-chatsync/internal/pkg/chat/application/fanout"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

type AddParticipantInput struct {
	RequesterID    string
	ConversationID string
	UserID         string
}

// AddParticipantUseCase lets a group admin add a user to the group.
// Only the admin may add; other members get FORBIDDEN.
type AddParticipantUseCase struct {
	Deps
}

func NewAddParticipantUseCase(d Deps) *AddParticipantUseCase {
	return &AddParticipantUseCase{Deps: d}
}

func (uc *AddParticipantUseCase) Execute(ctx context.Context, in AddParticipantInput) (*chat.ConversationView, error) {
	const op = "add_participant"
	if err := requireActor(in.RequesterID); err != nil {
		return nil, err
	}
	if err := requireID("conversation_id", in.ConversationID); err != nil {
		return nil, err
	}
	if err := requireID("user_id", in.UserID); err != nil {
		return nil, err
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
		if c.HasParticipant(in.UserID) {
			return apperr.Conflict("user is already a participant")
		}
		users, err := tx.FindUsers(ctx, []string{in.UserID})
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return usersNotFound([]string{in.UserID})
		}
		if _, err := tx.InsertParticipant(ctx, chat.Participant{
			ConversationID: in.ConversationID,
			UserID:         in.UserID,
			JoinedAt:       uc.now(),
		}); err != nil {
			return err
		}
		members = append(c.MemberIDs(), in.UserID)
		return nil
	})
	if err != nil {
		return nil, uc.fail(op, err)
	}

	uc.committed(op)
	uc.notify(ctx, fanout.Mutation{
		Kind:           fanout.MutationParticipantAdded,
		ConversationID: in.ConversationID,
		Actor:          in.RequesterID,
		Subject:        in.UserID,
		Members:        members,
	})
	return uc.view(ctx, op, in.ConversationID, in.RequesterID)
}
