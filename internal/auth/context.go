package auth

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/auth/entity"
	userentity "github.com/ovaphlow/pitchfork/service-health-ingest/internal/user/entity"
)

// AuthContext binds a request to the resolved user and key.
type AuthContext struct {
	User *userentity.User
	Key  *entity.APIKey
}

type ctxKey struct{}

func WithContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

func FromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(ctxKey{}).(*AuthContext)
	return ac, ok && ac != nil
}
