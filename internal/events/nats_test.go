package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeJS struct {
	subject string
	data    []byte
	err     error
}

func (f *fakeJS) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.subject = subject
	f.data = data
	if f.err != nil {
		return nil, f.err
	}
	return &jetstream.PubAck{Stream: StreamName, Sequence: 1}, nil
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "deployments.running", Subject(domain.DeploymentRunning))
	assert.Equal(t, "deployments.failed", Subject(domain.DeploymentFailed))
}

func TestPublishDeployment(t *testing.T) {
	js := &fakeJS{}
	p := &NATSPublisher{js: js, logger: zap.NewNop()}

	ev := domain.DeploymentEvent{
		DeploymentID: uuid.New(),
		AgentIDs:     []uuid.UUID{uuid.New()},
		Provider:     "flyio",
		Status:       domain.DeploymentCreating,
		At:           time.Now().UTC(),
	}
	require.NoError(t, p.PublishDeployment(context.Background(), ev))
	assert.Equal(t, "deployments.creating", js.subject)

	var got domain.DeploymentEvent
	require.NoError(t, json.Unmarshal(js.data, &got))
	assert.Equal(t, ev.DeploymentID, got.DeploymentID)
	assert.Equal(t, ev.Status, got.Status)
}

func TestPublishDeployment_Error(t *testing.T) {
	p := &NATSPublisher{js: &fakeJS{err: errors.New("no responders")}, logger: zap.NewNop()}
	err := p.PublishDeployment(context.Background(), domain.DeploymentEvent{Status: domain.DeploymentFailed})
	assert.ErrorContains(t, err, "deployments.failed")
}
