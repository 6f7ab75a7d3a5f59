package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"go-chatsync/internal/infrastructure/auth"
	"go-chatsync/internal/pkg/apperr"
	chat "go-chatsync/internal/pkg/chat/application/domain"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
)

// Synced identities are remembered in a bounded LRU; an evicted or expired
// identity is synced again on its next request.
var (
	syncCacheSize = 10000
	syncCacheTTL  = 10 * time.Minute
)

type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// UserSyncer mirrors the caller into the chat directory.
type UserSyncer interface {
	Execute(ctx context.Context, u chat.User) error
}

// Authenticate resolves the caller from a bearer token, taken from the
// Authorization header or, for browser websockets, the access_token query
// parameter. The first request of each identity also syncs the directory.
func Authenticate(v TokenVerifier, syncer UserSyncer, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	synced := expirable.NewLRU[string, struct{}](syncCacheSize, nil, syncCacheTTL)
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			Abort(c, apperr.Unauthenticated("missing access token"))
			return
		}
		id, err := v.Verify(token)
		if err != nil {
			log.Debug("token rejected", zap.Error(err))
			Abort(c, apperr.Unauthenticated("invalid access token"))
			return
		}

		if syncer != nil && id.Username != "" {
			key := id.UserID + "\x00" + id.Username
			if _, done := synced.Get(key); !done {
				u := chat.User{ID: id.UserID, Username: id.Username, AvatarURL: id.AvatarURL}
				if err := syncer.Execute(c.Request.Context(), u); err != nil {
					Abort(c, err)
					return
				}
				synced.Add(key, struct{}{})
			}
		}

		c.Set(ctxUserID, id.UserID)
		c.Set(ctxUsername, id.Username)
		c.Next()
	}
}

func bearer(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(c.Query("access_token"))
}

// UserID returns the authenticated caller, or "" outside Authenticate.
func UserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// Abort writes err in the error envelope and stops the chain.
func Abort(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal("internal error")
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(e.Kind), gin.H{"error": e})
}
