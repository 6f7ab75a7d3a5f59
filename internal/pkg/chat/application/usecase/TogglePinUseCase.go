package usecase

import (
	"context"
	"errors"

	"go-chatsync/internal/pkg/apperr"
	chat "go-chatsync/internal/pkg/chat/application/domain"
	"go-chatsync/internal/pkg/chat/application/fanout"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

type TogglePinInput struct {
	UserID         string
	ConversationID string
	MessageID      string
}

type TogglePinResult struct {
	ConversationID   string   `json:"conversation_id"`
	Pinned           bool     `json:"pinned"`
	PinnedMessageIDs []string `json:"pinned_message_ids"`
}

// PinsPayload is the room event body after a pin toggle.
type PinsPayload struct {
	ConversationID   string   `json:"conversation_id"`
	PinnedMessageIDs []string `json:"pinned_message_ids"`
}

// TogglePinUseCase pins the message if it is not pinned and unpins it
// otherwise. Any participant may toggle.
type TogglePinUseCase struct {
	Deps
}

func NewTogglePinUseCase(d Deps) *TogglePinUseCase {
	return &TogglePinUseCase{Deps: d}
}

func (uc *TogglePinUseCase) Execute(ctx context.Context, in TogglePinInput) (*TogglePinResult, error) {
	const op = "toggle_pin"
	if err := requireActor(in.UserID); err != nil {
		return nil, err
	}
	if err := requireID("conversation_id", in.ConversationID); err != nil {
		return nil, err
	}
	if err := requireID("message_id", in.MessageID); err != nil {
		return nil, err
	}

	res := &TogglePinResult{ConversationID: in.ConversationID}
	err := uc.Repo.WithinTx(ctx, func(tx repository.ChatTx) error {
		c, err := loadChat(ctx, tx, in.ConversationID)
		if err != nil {
			return err
		}
		if err := c.RequireMember(in.UserID); err != nil {
			return err
		}
		msg, err := tx.FindMessage(ctx, in.MessageID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && msg.ConversationID != in.ConversationID) {
			return apperr.NotFound("message not found")
		}
		if err != nil {
			return err
		}

		pinned, err := tx.PinExists(ctx, in.ConversationID, in.MessageID)
		if err != nil {
			return err
		}
		if pinned {
			err = tx.DeletePin(ctx, in.ConversationID, in.MessageID)
		} else {
			err = tx.InsertPin(ctx, chat.Pin{
				ConversationID: in.ConversationID,
				MessageID:      in.MessageID,
				PinnedBy:       in.UserID,
				PinnedAt:       uc.now(),
			})
		}
		if err != nil {
			return err
		}
		res.Pinned = !pinned

		ids, err := tx.ListPinnedMessageIDs(ctx, in.ConversationID)
		if err != nil {
			return err
		}
		if ids == nil {
			ids = []string{}
		}
		res.PinnedMessageIDs = ids
		return nil
	})
	if err != nil {
		return nil, uc.fail(op, err)
	}

	uc.committed(op)
	uc.notify(ctx, fanout.Mutation{
		Kind:           fanout.MutationPinsChanged,
		ConversationID: in.ConversationID,
		Actor:          in.UserID,
		Data:           PinsPayload{ConversationID: in.ConversationID, PinnedMessageIDs: res.PinnedMessageIDs},
	})
	return res, nil
}
