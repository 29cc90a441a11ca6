package events

import (
	"context"

	"github.com/kirillkom/farmsure/internal/core/domain"
)

// Noop drops every event. It is used when EVENTS_BACKEND is "none".
type Noop struct{}

func (Noop) PublishClaimSubmitted(context.Context, domain.ClaimSubmitted) error {
	return nil
}
