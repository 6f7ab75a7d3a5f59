package usecase

import (
	"context"

	chat "go-chatsync/internal/pkg/chat/application/domain"
	"go-chatsync/internal/pkg/chat/application/fanout"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

type RenameConversationInput struct {
	RequesterID    string
	ConversationID string
	Name           string
}

// RenamePayload is the room event body of a rename.
type RenamePayload struct {
	ConversationID string `json:"conversation_id"`
	Name           string `json:"name"`
}

// RenameConversationUseCase changes a group's name. Admin only.
type RenameConversationUseCase struct {
	Deps
}

func NewRenameConversationUseCase(d Deps) *RenameConversationUseCase {
	return &RenameConversationUseCase{Deps: d}
}

func (uc *RenameConversationUseCase) Execute(ctx context.Context, in RenameConversationInput) (*chat.ConversationView, error) {
	const op = "rename"
	if err := requireActor(in.RequesterID); err != nil {
		return nil, err
	}
	if err := requireID("conversation_id", in.ConversationID); err != nil {
		return nil, err
	}
	name, err := chat.NormalizeName(in.Name)
	if err != nil {
		return nil, uc.fail(op, err)
	}

	err = uc.Repo.WithinTx(ctx, func(tx repository.ChatTx) error {
		c, err := loadChat(ctx, tx, in.ConversationID)
		if err != nil {
			return err
		}
		if err := c.RequireGroupAdmin(in.RequesterID); err != nil {
			return err
		}
		return tx.UpdateConversationName(ctx, in.ConversationID, name)
	})
	if err != nil {
		return nil, uc.fail(op, err)
	}

	uc.committed(op)
	uc.notify(ctx, fanout.Mutation{
		Kind:           fanout.MutationRenamed,
		ConversationID: in.ConversationID,
		Actor:          in.RequesterID,
		Data:           RenamePayload{ConversationID: in.ConversationID, Name: name},
	})
	return uc.view(ctx, op, in.ConversationID, in.RequesterID)
}
