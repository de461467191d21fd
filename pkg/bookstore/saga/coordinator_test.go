package saga

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
)

func TestCompensationStepsFor(t *testing.T) {
	tests := []struct {
		failedStep string
		want       []string
	}{
		{StepInventoryReservation, nil},
		{StepShipping, []string{StepInventoryReservation}},
		{StepDelivery, []string{StepShipping, StepInventoryReservation}},
		{"unknown_step", nil},
	}
	for _, tt := range tests {
		t.Run(tt.failedStep, func(t *testing.T) {
			assert.Equal(t, tt.want, CompensationStepsFor(tt.failedStep))
		})
	}
}

func TestSagaCompensationCoordinator_StartCompensation(t *testing.T) {
	ctx := context.Background()
	publisher := &capturingPublisher{}
	coordinator := NewSagaCompensationCoordinator(publisher, nil)

	sagaID := uuid.New()
	require.NoError(t, coordinator.StartCompensation(ctx, sagaID, StepDelivery, "recipient unreachable"))

	evt := publisher.firstOfType(domain.EventTypeSagaCompensationStarted)
	require.NotNil(t, evt)
	started, ok := evt.(domain.SagaCompensationStarted)
	require.True(t, ok)
	assert.Equal(t, sagaID, started.SagaID)
	assert.Equal(t, StepDelivery, started.FailedStep)
	assert.Equal(t, "recipient unreachable", started.Reason)
	assert.Equal(t, []string{StepShipping, StepInventoryReservation}, started.CompensationSteps)
	assert.Equal(t, sagaID, started.Meta().CorrelationID, "compensation events correlate on the saga id")
}

func TestSagaCompensationCoordinator_HandleLogsOnly(t *testing.T) {
	coordinator := NewSagaCompensationCoordinator(&capturingPublisher{}, nil)

	evt := domain.NewSagaCompensationStarted(uuid.New(), StepShipping, "carrier rejected shipment",
		CompensationStepsFor(StepShipping))
	require.NoError(t, coordinator.Handle(context.Background(), evt))
}
