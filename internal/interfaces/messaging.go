package interfaces

import (
	"context"

	"holds-service/internal/models"
)

// EventPublisher defines the contract for publishing lifecycle events
type EventPublisher interface {
	PublishLifecycleEvent(ctx context.Context, event *models.LifecycleEvent) error
	Close() error
}
