package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"docstore-gateway/internal/shared/eventbus"
	"docstore-gateway/internal/shared/logger"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStream is the subset of jetstream.JetStream used by the NATS sink.
type JetStream interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
	AccountInfo(ctx context.Context) (*jetstream.AccountInfo, error)
}

// NATSChangeFeed publishes change events to a JetStream stream.
type NATSChangeFeed struct {
	js            JetStream
	streamName    string
	subjectPrefix string
	logger        logger.Logger
}

// NewNATSChangeFeed opens JetStream on nc and ensures the stream exists.
func NewNATSChangeFeed(ctx context.Context, nc *nats.Conn, streamName, subjectPrefix string, log logger.Logger) (*NATSChangeFeed, error) {
	if nc == nil {
		return nil, fmt.Errorf("nats connection cannot be nil")
	}
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to open jetstream: %w", err)
	}
	return NewNATSChangeFeedFromJS(ctx, js, streamName, subjectPrefix, log)
}

// NewNATSChangeFeedFromJS builds the sink on an existing JetStream handle.
func NewNATSChangeFeedFromJS(ctx context.Context, js JetStream, streamName, subjectPrefix string, log logger.Logger) (*NATSChangeFeed, error) {
	if streamName == "" {
		streamName = "DOCSTORE_CHANGES"
	}
	if subjectPrefix == "" {
		subjectPrefix = "docstore"
	}

	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := js.CreateOrUpdateStream(ensureCtx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectPrefix + ".>"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure stream %s: %w", streamName, err)
	}

	return &NATSChangeFeed{
		js:            js,
		streamName:    streamName,
		subjectPrefix: subjectPrefix,
		logger:        log.WithComponent("nats_change_feed"),
	}, nil
}

// Subject returns the subject for a collection and change type. Tokens are
// sanitized so a collection name cannot add subject levels.
func (n *NATSChangeFeed) Subject(collection, changeType string) string {
	return fmt.Sprintf("%s.%s.%s", n.subjectPrefix, subjectToken(collection), subjectToken(changeType))
}

func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

func (n *NATSChangeFeed) Name() string { return "nats" }

// Handle publishes one change event as JSON
func (n *NATSChangeFeed) Handle(ctx context.Context, event eventbus.Event) error {
	change, err := changeEventFrom(event)
	if err != nil {
		return err
	}

	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to serialize change event: %w", err)
	}

	subject := n.Subject(change.Collection, string(change.Type))
	if _, err := n.js.Publish(ctx, subject, data, jetstream.WithExpectStream(n.streamName)); err != nil {
		n.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"subject": subject,
			"error":   err.Error(),
		}).Error("Failed to publish change event")
		return err
	}
	return nil
}

func (n *NATSChangeFeed) Ping(ctx context.Context) error {
	_, err := n.js.AccountInfo(ctx)
	return err
}
