package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-chatsync/internal/pkg/apperr"
	chat "go-chatsync/internal/pkg/chat/application/domain"
	repository "go-chatsync/internal/pkg/chat/persistence/repository/port"
)

// ErrPersistence indicates an infrastructure/repository failure inside a use case
var ErrPersistence = errors.New("chat use case persistence error")

// translateError maps domain and store failures onto the error taxonomy.
// Anything it does not recognize is logged and surfaced as INTERNAL with the
// store detail kept only in the cause.
func translateError(log *zap.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, chat.ErrNotParticipant):
		return apperr.NotFound("conversation not found")
	case errors.Is(err, chat.ErrNotGroup):
		return apperr.InvalidArgument("operation requires a group conversation")
	case errors.Is(err, chat.ErrNotAdmin):
		return apperr.Forbidden("only the group admin may do this")
	case errors.Is(err, chat.ErrSelfTarget):
		return apperr.InvalidArgument("use leave to remove yourself")
	case errors.Is(err, chat.ErrEmptyMessage):
		return apperr.InvalidArgument("message content must not be empty")
	case errors.Is(err, chat.ErrEmptyName):
		return apperr.InvalidArgument("name must not be empty")
	case errors.Is(err, chat.ErrNameTooLong):
		return apperr.InvalidArgument(fmt.Sprintf("name must be at most %d characters", chat.MaxNameLength))
	case errors.Is(err, chat.ErrInvalidConversation):
		return apperr.InvalidArgument("conversation_id and sender_id are required")
	case errors.Is(err, repository.ErrAlreadyMember):
		return apperr.Conflict("user is already a participant")
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("not found")
	}

	fields := []zap.Field{zap.String("op", op), zap.Error(err)}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Warn("use case aborted", fields...)
	} else {
		log.Error("use case failed", fields...)
	}
	return apperr.Wrap(apperr.KindInternal, "internal error", fmt.Errorf("%w: %v", ErrPersistence, err))
}

func requireActor(userID string) error {
	if userID == "" {
		return apperr.Unauthenticated("authentication required")
	}
	return nil
}

// requireID rejects ids that are not UUIDs before any store access.
func requireID(field string, id string) error {
	if id == "" {
		return apperr.InvalidArgument(field + " is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperr.InvalidArgument(field + " is not a valid id")
	}
	return nil
}

// missingUsers reports the ids in want that found does not contain, in want's order.
func missingUsers(want []string, found []chat.User) []string {
	seen := make(map[string]struct{}, len(found))
	for _, u := range found {
		seen[u.ID] = struct{}{}
	}
	var missing []string
	for _, id := range want {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func usersNotFound(missing []string) error {
	return apperr.NotFound("some users do not exist").WithDetails(map[string]any{"missing_user_ids": missing})
}
