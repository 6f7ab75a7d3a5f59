package usecase

import (
	"context"

	"go-chatsync/internal/pkg/apperr"
	chat "go-chatsync/internal/pkg/chat/application/domain"
	"go-chatsync/internal/pkg/chat/application/fanout"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

// SendMessageInput carries a new message. ForwardedFrom names the original
// sender when the message is a forward.
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Content        string
	ForwardedFrom  *string
}

// SendMessageUseCase persists a message together with the sender's own read
// row, so the sender never counts their message as unread.
type SendMessageUseCase struct {
	Deps
}

func NewSendMessageUseCase(d Deps) *SendMessageUseCase {
	return &SendMessageUseCase{Deps: d}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.MessageView, error) {
	const op = "send_message"
	if err := requireActor(in.SenderID); err != nil {
		return nil, err
	}
	if err := requireID("conversation_id", in.ConversationID); err != nil {
		return nil, err
	}
	msg, err := chat.NewMessage(chat.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Content:        in.Content,
		ForwardedFrom:  in.ForwardedFrom,
	}, uc.now())
	if err != nil {
		return nil, uc.fail(op, err)
	}

	var saved chat.Message
	err = uc.Repo.WithinTx(ctx, func(tx repository.ChatTx) error {
		ok, err := tx.IsParticipant(ctx, in.ConversationID, in.SenderID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("conversation not found")
		}
		saved, err = tx.InsertMessage(ctx, *msg)
		if err != nil {
			return err
		}
		return tx.InsertRead(ctx, saved.ID, in.SenderID)
	})
	if err != nil {
		return nil, uc.fail(op, err)
	}

	uc.committed(op)
	view := chat.NewMessageView(saved)
	uc.notify(ctx, fanout.Mutation{
		Kind:           fanout.MutationMessageSent,
		ConversationID: in.ConversationID,
		Actor:          in.SenderID,
		Data:           view,
	})
	return &view, nil
}
