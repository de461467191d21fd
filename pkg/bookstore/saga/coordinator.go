package saga

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/bus"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/observability"
)

// Saga step names, in forward execution order.
const (
	StepInventoryReservation = "inventory_reservation"
	StepShipping             = "shipping"
	StepDelivery             = "delivery"
)

const coordinatorName = "saga-compensation-coordinator"

// CompensationStepsFor returns the prior steps to compensate, nearest
// first, when the given step fails. Unknown steps need no compensation.
func CompensationStepsFor(failedStep string) []string {
	switch failedStep {
	case StepInventoryReservation:
		return nil
	case StepShipping:
		return []string{StepInventoryReservation}
	case StepDelivery:
		return []string{StepShipping, StepInventoryReservation}
	default:
		return nil
	}
}

// SagaCompensationCoordinator turns a failed step into a
// SagaCompensationStarted event carrying the ordered compensation plan.
// It also subscribes to that event for audit logging.
type SagaCompensationCoordinator struct {
	publisher EventPublisher
	logger    observability.Logger
}

// Compile-time interface check.
var _ bus.EventHandler[domain.SagaCompensationStarted] = (*SagaCompensationCoordinator)(nil)

// NewSagaCompensationCoordinator creates the coordinator. A nil logger
// falls back to the no-op logger.
func NewSagaCompensationCoordinator(publisher EventPublisher, logger observability.Logger) *SagaCompensationCoordinator {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &SagaCompensationCoordinator{publisher: publisher, logger: logger}
}

// Name implements bus.EventHandler.
func (c *SagaCompensationCoordinator) Name() string { return coordinatorName }

// StartCompensation computes the compensation plan for the failed step and
// publishes SagaCompensationStarted, correlated to the saga instance.
func (c *SagaCompensationCoordinator) StartCompensation(ctx context.Context, sagaID uuid.UUID, failedStep, reason string) error {
	steps := CompensationStepsFor(failedStep)
	evt := domain.NewSagaCompensationStarted(sagaID, failedStep, reason, steps).WithCorrelationID(sagaID)
	if err := c.publisher.Publish(ctx, evt); err != nil {
		return fmt.Errorf("publish SagaCompensationStarted: %w", err)
	}
	return nil
}

// Handle implements bus.EventHandler. It is an audit log only; the
// compensation handlers themselves react to the concrete failure events.
func (c *SagaCompensationCoordinator) Handle(_ context.Context, evt domain.SagaCompensationStarted) error {
	correlation := evt.Meta().CorrelationID
	c.logger.Info(c.Name(), "saga compensation started", &correlation, map[string]string{
		"saga_id":     evt.SagaID.String(),
		"failed_step": evt.FailedStep,
		"reason":      evt.Reason,
		"plan":        strings.Join(evt.CompensationSteps, ","),
	})
	return nil
}
