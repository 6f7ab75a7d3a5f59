package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"go-chatsync/internal/pkg/apperr"
	chat "go-chatsync/internal/pkg/chat/application/domain"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

// PresenceReader answers which of the given users are online right now.
type PresenceReader interface {
	OnlineUsers(ctx context.Context, userIDs []string) (map[string]bool, error)
}

// DefaultForwardedLabel prefixes the preview of a forwarded message.
const DefaultForwardedLabel = "Forwarded from"

// ConversationAggregator turns per-viewer store records into the views
// served by list and detail reads and carried by snapshot events.
type ConversationAggregator struct {
	Repo           repository.ChatReader
	Presence       PresenceReader
	ForwardedLabel string
	Log            *zap.Logger
}

func NewConversationAggregator(repo repository.ChatReader, presence PresenceReader, forwardedLabel string, log *zap.Logger) *ConversationAggregator {
	if forwardedLabel == "" {
		forwardedLabel = DefaultForwardedLabel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ConversationAggregator{Repo: repo, Presence: presence, ForwardedLabel: forwardedLabel, Log: log}
}

// List returns userID's conversations, latest activity first.
func (a *ConversationAggregator) List(ctx context.Context, userID string) ([]chat.ConversationView, error) {
	records, err := a.Repo.ListConversationRecords(ctx, userID)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, rec := range records {
		for _, p := range rec.Participants {
			ids = append(ids, p.UserID)
		}
	}
	online := a.online(ctx, ids)

	views := make([]chat.ConversationView, 0, len(records))
	for _, rec := range records {
		views = append(views, a.View(rec, userID, online))
	}
	return views, nil
}

// Detail returns one conversation as userID sees it. A conversation the user
// does not belong to is reported exactly like a missing one.
func (a *ConversationAggregator) Detail(ctx context.Context, conversationID string, userID string) (*chat.ConversationView, error) {
	rec, err := a.Repo.GetConversationRecord(ctx, conversationID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("conversation not found")
	}
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rec.Participants))
	for _, p := range rec.Participants {
		ids = append(ids, p.UserID)
	}
	v := a.View(*rec, userID, a.online(ctx, ids))
	return &v, nil
}

// View is a pure function of the record, the viewer and the online set.
func (a *ConversationAggregator) View(rec chat.ConversationRecord, viewerID string, online map[string]bool) chat.ConversationView {
	v := chat.ConversationView{
		ID:               rec.Conversation.ID,
		Kind:             rec.Conversation.Kind,
		DisplayName:      rec.DisplayName(viewerID),
		Name:             rec.Conversation.Name,
		AdminID:          rec.Conversation.AdminID,
		CreatedAt:        chat.FormatTimestamp(rec.Conversation.CreatedAt),
		UnreadCount:      rec.UnreadCount,
		IsMuted:          rec.IsMuted,
		PinnedMessageIDs: rec.PinnedMessageIDs,
		Participants:     make([]chat.ParticipantView, 0, len(rec.Participants)),
	}
	if v.PinnedMessageIDs == nil {
		v.PinnedMessageIDs = []string{}
	}
	if rec.LastMessage != nil {
		preview := a.Preview(*rec.LastMessage)
		v.LastMessagePreview = preview
		v.LastMessage = &chat.LastMessageView{
			ID:          rec.LastMessage.ID,
			SenderID:    rec.LastMessage.SenderID,
			Preview:     preview,
			CreatedAt:   chat.FormatTimestamp(rec.LastMessage.CreatedAt),
			IsForwarded: rec.LastMessage.IsForwarded(),
		}
	}
	for _, p := range rec.Participants {
		v.Participants = append(v.Participants, chat.ParticipantView{
			UserID:    p.UserID,
			Username:  p.Username,
			AvatarURL: p.AvatarURL,
			IsOnline:  online[p.UserID],
			IsAdmin:   p.IsAdmin,
			JoinedAt:  chat.FormatTimestamp(p.JoinedAt),
		})
	}
	return v
}

// Preview renders a message for the conversation list. Forwards read
// "<label> <original sender>: <content>".
func (a *ConversationAggregator) Preview(m chat.Message) string {
	if !m.IsForwarded() {
		return m.Content
	}
	return a.ForwardedLabel + " " + *m.ForwardedFrom + ": " + m.Content
}

// online never fails the read: without presence everyone is offline.
func (a *ConversationAggregator) online(ctx context.Context, ids []string) map[string]bool {
	if a.Presence == nil || len(ids) == 0 {
		return map[string]bool{}
	}
	set, err := a.Presence.OnlineUsers(ctx, ids)
	if err != nil {
		a.Log.Warn("presence lookup failed", zap.Error(err))
		return map[string]bool{}
	}
	return set
}
