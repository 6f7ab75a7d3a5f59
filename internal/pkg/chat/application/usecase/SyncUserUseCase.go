package usecase

import (
	"context"
	"strings"

	"go-chatsync/internal/pkg/apperr"
	chat "go-chatsync/internal/pkg/chat/application/domain"
)

// SyncUserUseCase mirrors the identity provider's user into the chat
// directory so conversations can reference it.
type SyncUserUseCase struct {
	Deps
}

func NewSyncUserUseCase(d Deps) *SyncUserUseCase {
	return &SyncUserUseCase{Deps: d}
}

func (uc *SyncUserUseCase) Execute(ctx context.Context, u chat.User) error {
	if err := requireActor(u.ID); err != nil {
		return err
	}
	if err := requireID("user_id", u.ID); err != nil {
		return err
	}
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return apperr.InvalidArgument("username is required")
	}
	if err := uc.Repo.SaveUser(ctx, u); err != nil {
		return translateError(uc.logger(), "sync_user", err)
	}
	return nil
}
