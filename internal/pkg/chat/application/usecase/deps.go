package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"go-chatsync/internal/infrastructure/metrics"
	"go-chatsync/internal/pkg/apperr"
	chat "go-chatsync/internal/pkg/chat/application/domain"
	"go-chatsync/internal/pkg/chat/application/fanout"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

// Deps carries the collaborators shared by the conversation use cases.
type Deps struct {
	Repo       repository.ChatRepository
	Aggregator *ConversationAggregator
	Notifier   *Notifier
	Log        *zap.Logger
	Now        func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) logger() *zap.Logger {
	if d.Log != nil {
		return d.Log
	}
	return zap.NewNop()
}

// fail translates err and counts the outcome for op.
func (d Deps) fail(op string, err error) error {
	err = translateError(d.logger(), op, err)
	metrics.ObserveMutation(op, string(apperr.KindOf(err)))
	return err
}

func (d Deps) committed(op string) {
	metrics.ObserveMutation(op, "ok")
}

func (d Deps) notify(ctx context.Context, m fanout.Mutation) {
	if d.Notifier != nil {
		d.Notifier.Notify(ctx, m)
	}
}

// view renders the conversation for userID after a committed change.
func (d Deps) view(ctx context.Context, op string, conversationID string, userID string) (*chat.ConversationView, error) {
	v, err := d.Aggregator.Detail(ctx, conversationID, userID)
	if err != nil {
		return nil, translateError(d.logger(), op, err)
	}
	return v, nil
}

// loadChat locks the conversation and hydrates the membership aggregate.
func loadChat(ctx context.Context, tx repository.ChatTx, conversationID string) (*chat.Chat, error) {
	conv, err := tx.LockConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("conversation not found")
		}
		return nil, err
	}
	participants, err := tx.ListParticipants(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return chat.NewChat(conv, participants), nil
}
