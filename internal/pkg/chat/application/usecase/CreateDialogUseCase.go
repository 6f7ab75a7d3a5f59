package usecase

import (
	"context"

	"go-chatsync/internal/pkg/apperr"
	chat "go-chatsync/internal/pkg/chat/application/domain"
	"go-chatsync/internal/pkg/chat/application/fanout"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

// CreateDialogInput names the two parties of a one-to-one conversation.
type CreateDialogInput struct {
	UserID string
	PeerID string
}

// CreateDialogResult reports whether the dialog was opened by this call.
type CreateDialogResult struct {
	Conversation *chat.ConversationView
	Created      bool
}

// CreateDialogUseCase opens the dialog between two users, or returns the
// existing one. Creation for a pair is serialized so repeated or concurrent
// calls always land on the same conversation.
type CreateDialogUseCase struct {
	Deps
}

func NewCreateDialogUseCase(d Deps) *CreateDialogUseCase {
	return &CreateDialogUseCase{Deps: d}
}

func (uc *CreateDialogUseCase) Execute(ctx context.Context, in CreateDialogInput) (*CreateDialogResult, error) {
	const op = "create_dialog"
	if err := requireActor(in.UserID); err != nil {
		return nil, err
	}
	if err := requireID("user_id", in.PeerID); err != nil {
		return nil, err
	}
	if in.PeerID == in.UserID {
		return nil, apperr.InvalidArgument("cannot open a dialog with yourself")
	}

	var (
		conversationID string
		created        bool
	)
	err := uc.Repo.WithinTx(ctx, func(tx repository.ChatTx) error {
		if err := tx.LockDialogPair(ctx, in.UserID, in.PeerID); err != nil {
			return err
		}
		existing, err := tx.FindDialog(ctx, in.UserID, in.PeerID)
		if err != nil {
			return err
		}
		if existing != "" {
			conversationID = existing
			return nil
		}

		pair := []string{in.UserID, in.PeerID}
		users, err := tx.FindUsers(ctx, pair)
		if err != nil {
			return err
		}
		if missing := missingUsers(pair, users); len(missing) > 0 {
			return usersNotFound(missing)
		}

		now := uc.now()
		conv, err := tx.CreateConversation(ctx, chat.Conversation{Kind: chat.KindDialog, CreatedAt: now})
		if err != nil {
			return err
		}
		for _, id := range pair {
			if _, err := tx.InsertParticipant(ctx, chat.Participant{ConversationID: conv.ID, UserID: id, JoinedAt: now}); err != nil {
				return err
			}
		}
		conversationID = conv.ID
		created = true
		return nil
	})
	if err != nil {
		return nil, uc.fail(op, err)
	}

	if created {
		uc.committed(op)
		uc.notify(ctx, fanout.Mutation{
			Kind:           fanout.MutationCreated,
			ConversationID: conversationID,
			Actor:          in.UserID,
			Members:        []string{in.UserID, in.PeerID},
		})
	}

	view, err := uc.view(ctx, op, conversationID, in.UserID)
	if err != nil {
		return nil, err
	}
	return &CreateDialogResult{Conversation: view, Created: created}, nil
}
