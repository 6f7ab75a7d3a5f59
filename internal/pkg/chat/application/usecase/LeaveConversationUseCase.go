package usecase

import (
	"context"

	"go-chatsync/internal/pkg/chat/application/fanout"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

type LeaveConversationInput struct {
	UserID         string
	ConversationID string
}

type LeaveConversationResult struct {
	ConversationID string  `json:"conversation_id"`
	Deleted        bool    `json:"deleted"`
	NewAdminID     *string `json:"new_admin_id,omitempty"`
}

// LeaveConversationUseCase removes the caller from a conversation.
//
// A dialog is deleted outright. A group loses the caller's membership; the
// last member leaving deletes it, and an admin leaving hands administration
// to the earliest remaining joiner. Every decision is taken on the roster read
// under the conversation lock, so two concurrent leaves cannot both believe
// someone else is still there.
type LeaveConversationUseCase struct {
	Deps
}

func NewLeaveConversationUseCase(d Deps) *LeaveConversationUseCase {
	return &LeaveConversationUseCase{Deps: d}
}

func (uc *LeaveConversationUseCase) Execute(ctx context.Context, in LeaveConversationInput) (*LeaveConversationResult, error) {
	const op = "leave"
	if err := requireActor(in.UserID); err != nil {
		return nil, err
	}
	if err := requireID("conversation_id", in.ConversationID); err != nil {
		return nil, err
	}

	res := &LeaveConversationResult{ConversationID: in.ConversationID}
	var former, members []string
	err := uc.Repo.WithinTx(ctx, func(tx repository.ChatTx) error {
		c, err := loadChat(ctx, tx, in.ConversationID)
		if err != nil {
			return err
		}
		out, err := c.Leave(in.UserID)
		if err != nil {
			return err
		}
		former, members = out.Former, out.Members

		if out.Deleted {
			res.Deleted = true
			return tx.DeleteConversation(ctx, in.ConversationID)
		}
		if err := tx.DeleteParticipant(ctx, in.ConversationID, in.UserID); err != nil {
			return err
		}
		if out.NewAdmin != nil {
			res.NewAdminID = out.NewAdmin
			return tx.UpdateConversationAdmin(ctx, in.ConversationID, out.NewAdmin)
		}
		return nil
	})
	if err != nil {
		return nil, uc.fail(op, err)
	}

	uc.committed(op)
	if res.Deleted {
		uc.notify(ctx, fanout.Mutation{
			Kind:           fanout.MutationDeleted,
			ConversationID: in.ConversationID,
			Actor:          in.UserID,
			Former:         former,
		})
		return res, nil
	}
	uc.notify(ctx, fanout.Mutation{
		Kind:           fanout.MutationLeft,
		ConversationID: in.ConversationID,
		Actor:          in.UserID,
		Subject:        in.UserID,
		Members:        members,
	})
	return res, nil
}
