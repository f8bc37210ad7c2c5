package memory

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/identity"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/logger"
)

type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) PublishUserCreated(ctx context.Context, evt identity.UserCreatedEvent) error {
	logger.WithCtx(ctx).Debug().
		Int64("user_id", evt.UserID).
		Str("user_uuid", evt.UserUUID).
		Msg("noop publisher: user created")
	return nil
}
