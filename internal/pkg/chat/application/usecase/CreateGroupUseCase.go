package usecase

import (
	"context"

	chat "go-chatsync/internal/pkg/chat/application/domain"
	"go-chatsync/internal/pkg/chat/application/fanout"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

// CreateGroupInput carries the creator, the group name and the invited users.
// The creator does not need to be listed; duplicates are ignored.
type CreateGroupInput struct {
	CreatorID      string
	Name           string
	ParticipantIDs []string
}

// CreateGroupUseCase creates a group administered by its creator. Either every
// listed user exists and joins, or nothing is created.
type CreateGroupUseCase struct {
	Deps
}

func NewCreateGroupUseCase(d Deps) *CreateGroupUseCase {
	return &CreateGroupUseCase{Deps: d}
}

func (uc *CreateGroupUseCase) Execute(ctx context.Context, in CreateGroupInput) (*chat.ConversationView, error) {
	const op = "create_group"
	if err := requireActor(in.CreatorID); err != nil {
		return nil, err
	}
	name, err := chat.NormalizeName(in.Name)
	if err != nil {
		return nil, uc.fail(op, err)
	}
	members := []string{in.CreatorID}
	seen := map[string]struct{}{in.CreatorID: {}}
	for _, id := range in.ParticipantIDs {
		if err := requireID("participant_ids", id); err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}

	var conversationID string
	err = uc.Repo.WithinTx(ctx, func(tx repository.ChatTx) error {
		users, err := tx.FindUsers(ctx, members)
		if err != nil {
			return err
		}
		if missing := missingUsers(members, users); len(missing) > 0 {
			return usersNotFound(missing)
		}

		now := uc.now()
		admin := in.CreatorID
		conv, err := tx.CreateConversation(ctx, chat.Conversation{
			Kind:      chat.KindGroup,
			Name:      &name,
			AdminID:   &admin,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		for _, id := range members {
			if _, err := tx.InsertParticipant(ctx, chat.Participant{ConversationID: conv.ID, UserID: id, JoinedAt: now}); err != nil {
				return err
			}
		}
		conversationID = conv.ID
		return nil
	})
	if err != nil {
		return nil, uc.fail(op, err)
	}

	uc.committed(op)
	uc.notify(ctx, fanout.Mutation{
		Kind:           fanout.MutationCreated,
		ConversationID: conversationID,
		Actor:          in.CreatorID,
		Members:        members,
	})
	return uc.view(ctx, op, conversationID, in.CreatorID)
}
