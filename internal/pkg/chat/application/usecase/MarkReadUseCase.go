package usecase

import (
	"context"

	"go-chatsync/internal/pkg/apperr"
	chat "go-chatsync/internal/pkg/chat/application/domain"
	"go-chatsync/internal/pkg/chat/application/fanout"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

// ReadStateInput addresses the caller's read state in one conversation.
type ReadStateInput struct {
	UserID         string
	ConversationID string
}

// MarkReadUseCase records a read for every message of others the caller has
// not read yet. Repeating it is a no-op that still reports unread_count 0.
type MarkReadUseCase struct {
	Deps
}

func NewMarkReadUseCase(d Deps) *MarkReadUseCase {
	return &MarkReadUseCase{Deps: d}
}

func (uc *MarkReadUseCase) Execute(ctx context.Context, in ReadStateInput) (*chat.UnreadState, error) {
	return transitionReadState(ctx, uc.Deps, "mark_read", in, func(tx repository.ChatTx) error {
		_, err := tx.MarkConversationRead(ctx, in.ConversationID, in.UserID)
		return err
	})
}

// transitionReadState runs mutate for a participant and reports the state
// it leaves behind to that participant only.
func transitionReadState(ctx context.Context, d Deps, op string, in ReadStateInput, mutate func(tx repository.ChatTx) error) (*chat.UnreadState, error) {
	if err := requireActor(in.UserID); err != nil {
		return nil, err
	}
	if err := requireID("conversation_id", in.ConversationID); err != nil {
		return nil, err
	}

	var state chat.UnreadState
	err := d.Repo.WithinTx(ctx, func(tx repository.ChatTx) error {
		ok, err := tx.IsParticipant(ctx, in.ConversationID, in.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("conversation not found")
		}
		if err := mutate(tx); err != nil {
			return err
		}
		state, err = tx.GetUnreadState(ctx, in.ConversationID, in.UserID)
		return err
	})
	if err != nil {
		return nil, d.fail(op, err)
	}

	d.committed(op)
	d.notify(ctx, fanout.Mutation{
		Kind:           fanout.MutationReadState,
		ConversationID: in.ConversationID,
		Actor:          in.UserID,
		Data:           state,
	})
	return &state, nil
}
