package usecase

import "context"

// ListConversationIDsUseCase returns the rooms a fresh websocket session
// subscribes to.
type ListConversationIDsUseCase struct {
	Deps
}

func NewListConversationIDsUseCase(d Deps) *ListConversationIDsUseCase {
	return &ListConversationIDsUseCase{Deps: d}
}

func (uc *ListConversationIDsUseCase) Execute(ctx context.Context, userID string) ([]string, error) {
	if err := requireActor(userID); err != nil {
		return nil, err
	}
	ids, err := uc.Repo.ListConversationIDs(ctx, userID)
	if err != nil {
		return nil, translateError(uc.logger(), "list_conversation_ids", err)
	}
	return ids, nil
}
