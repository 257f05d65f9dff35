package port

import (
	"context"

	"github.com/rl1809/table-order/internal/core/domain"
)

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error
}

type SoundPlayer interface {
	// Play starts one audio cue. Failures wrap domain.ErrPlayback.
	Play(ctx context.Context) error
}
