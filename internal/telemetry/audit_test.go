package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"vexa-service/internal/mocks"
	"vexa-service/internal/telemetry"
)

func TestEmitWrapsPayload(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := telemetry.NewEmitter(pub, "vexa-service", "test")
	user := "ava"

	pub.On("Publish", mock.Anything, telemetry.EventMessagePersisted,
		mock.MatchedBy(func(env telemetry.Envelope) bool {
			return env.SchemaVersion == 1 &&
				env.EventType == telemetry.EventMessagePersisted &&
				env.Service == "vexa-service" &&
				env.Environment == "test" &&
				env.UserID != nil && *env.UserID == "ava" &&
				env.Payload == "body"
		}),
		map[string]string{"x-request-id": "req-1", "trace_id": "tr-1"},
	).Return(nil).Once()

	emitter.Emit(context.Background(), telemetry.EventMessagePersisted, "req-1", "tr-1", &user, "body")
	pub.AssertExpectations(t)
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := telemetry.NewEmitter(pub, "vexa-service", "test")
	pub.On("Publish", mock.Anything, telemetry.EventAudit, mock.Anything, mock.Anything).Return(errors.New("down")).Once()

	assert.NotPanics(t, func() {
		emitter.Audit(context.Background(), "INFO", "audit test", "", nil)
	})
	pub.AssertExpectations(t)
}

func TestNilEmitterIsSafe(t *testing.T) {
	var emitter *telemetry.Emitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), telemetry.EventAudit, "", "", nil, nil)
	})
}
