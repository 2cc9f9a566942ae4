package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/spec-kit/incident-service/internal/config"
)

// PubSubPublisher publishes change messages to Google Cloud Pub/Sub topics.
type PubSubPublisher struct {
	client *pubsub.Client

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewPubSubPublisher connects to Pub/Sub. Credentials come from the configured
// key file when set, otherwise from application default credentials.
func NewPubSubPublisher(ctx context.Context, cfg config.PubSubConfig) (*PubSubPublisher, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("pubsub: project id is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: create client: %w", err)
	}
	return NewPubSubPublisherFromClient(client), nil
}

// NewPubSubPublisherFromClient wraps an existing client.
func NewPubSubPublisherFromClient(client *pubsub.Client) *PubSubPublisher {
	return &PubSubPublisher{client: client, topics: make(map[string]*pubsub.Topic)}
}

// Publish encodes payload and waits for the server to acknowledge it.
func (p *PubSubPublisher) Publish(ctx context.Context, payload map[string]any, topic string) (string, error) {
	data, err := Encode(payload)
	if err != nil {
		return "", err
	}

	msg := &pubsub.Message{Data: data}
	if op, ok := payload[KeyOperation].(string); ok {
		msg.Attributes = map[string]string{KeyOperation: op}
	}

	id, err := p.topic(topic).Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("pubsub: publish to %s: %w", topic, err)
	}
	return id, nil
}

func (p *PubSubPublisher) topic(name string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.topics[name]
	if !ok {
		t = p.client.Topic(name)
		p.topics[name] = t
	}
	return t
}

// Close flushes pending messages and releases the client.
func (p *PubSubPublisher) Close() error {
	p.mu.Lock()
	for _, t := range p.topics {
		t.Stop()
	}
	p.topics = make(map[string]*pubsub.Topic)
	p.mu.Unlock()
	return p.client.Close()
}
