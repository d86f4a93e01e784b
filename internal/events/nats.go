// Package events publishes deployment lifecycle events to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const (
	StreamName    = "DEPLOYMENTS"
	subjectPrefix = "deployments."
)

type publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher writes one message per deployment status transition on
// deployments.<status>.
type NATSPublisher struct {
	nc     *nats.Conn
	js     publisher
	logger *zap.Logger
}

// Connect dials NATS and ensures the DEPLOYMENTS stream exists.
func Connect(ctx context.Context, url string, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("clawguild"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{subjectPrefix + ">"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	logger.Info("nats connected", zap.String("url", url), zap.String("stream", StreamName))
	return &NATSPublisher{nc: nc, js: js, logger: logger}, nil
}

// Subject returns the subject a status is published on.
func Subject(status domain.DeploymentStatus) string {
	return subjectPrefix + strings.ToLower(string(status))
}

func (p *NATSPublisher) PublishDeployment(ctx context.Context, ev domain.DeploymentEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode deployment event: %w", err)
	}
	subject := Subject(ev.Status)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	p.logger.Debug("deployment event published",
		zap.String("subject", subject),
		zap.String("deployment_id", ev.DeploymentID.String()))
	return nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// Noop discards events.
type Noop struct{}

func (Noop) PublishDeployment(context.Context, domain.DeploymentEvent) error { return nil }

var (
	_ domain.EventPublisher = (*NATSPublisher)(nil)
	_ domain.EventPublisher = Noop{}
)
