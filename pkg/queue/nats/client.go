package nats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/tunogya/motif/pkg/config"
)

// Retention policy names accepted in configuration
const (
	RetentionLimits    = "limits"
	RetentionInterest  = "interest"
	RetentionWorkQueue = "workqueue"
)

// ErrUnknownRetention is returned for an unrecognised retention name
var ErrUnknownRetention = errors.New("unknown stream retention")

// Config holds NATS client configuration
type Config struct {
	URL           string
	StreamName    string
	RetryAttempts int
	RetryDelay    time.Duration

	// Stream settings. Reports are dumps of finished runs, so the default
	// keeps them by age for any number of readers.
	Retention string
	MaxAge    time.Duration

	// Consumer settings
	AckWait    time.Duration
	MaxDeliver int
}

// DefaultConfig returns defaults for a report stream
func DefaultConfig() Config {
	return Config{
		URL:           "nats://localhost:4222",
		StreamName:    "motif",
		RetryAttempts: 3,
		RetryDelay:    time.Second,
		Retention:     RetentionLimits,
		MaxAge:        config.DefaultReportMaxAge,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
	}
}

// NewConfig applies the configured report stream settings over the defaults
func NewConfig(s config.NATSConfig) Config {
	cfg := DefaultConfig()
	if s.URL != "" {
		cfg.URL = s.URL
	}
	if s.Stream != "" {
		cfg.StreamName = s.Stream
	}
	if s.Retention != "" {
		cfg.Retention = s.Retention
	}
	if s.MaxAge > 0 {
		cfg.MaxAge = s.MaxAge
	}
	if s.MaxDeliver > 0 {
		cfg.MaxDeliver = s.MaxDeliver
	}
	return cfg
}

// ParseRetention maps a retention name to its JetStream policy
func ParseRetention(name string) (jetstream.RetentionPolicy, error) {
	switch strings.ToLower(name) {
	case "", RetentionLimits:
		return jetstream.LimitsPolicy, nil
	case RetentionInterest:
		return jetstream.InterestPolicy, nil
	case RetentionWorkQueue:
		return jetstream.WorkQueuePolicy, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRetention, name)
}

func (c Config) streamConfig(subjects []string) (jetstream.StreamConfig, error) {
	retention, err := ParseRetention(c.Retention)
	if err != nil {
		return jetstream.StreamConfig{}, err
	}
	return jetstream.StreamConfig{
		Name:      c.StreamName,
		Subjects:  subjects,
		Retention: retention,
		Storage:   jetstream.FileStorage,
		MaxAge:    c.MaxAge,
	}, nil
}

func (c Config) consumerConfig(subject, durable string) jetstream.ConsumerConfig {
	return jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.AckWait,
		MaxDeliver:    c.MaxDeliver,
	}
}

// Client wraps NATS JetStream functionality
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config Config
}

// NewClient creates a new NATS client with JetStream support
func NewClient(cfg Config) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.RetryAttempts),
		nats.ReconnectWait(cfg.RetryDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Client{
		nc:     nc,
		js:     js,
		config: cfg,
	}, nil
}

// StreamName returns the configured stream
func (c *Client) StreamName() string {
	return c.config.StreamName
}

// CreateReportStream creates or updates the stream carrying every report subject
func (c *Client) CreateReportStream(ctx context.Context) error {
	sc, err := c.config.streamConfig([]string{SubjectAll})
	if err != nil {
		return err
	}
	if _, err := c.js.CreateOrUpdateStream(ctx, sc); err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Publish publishes a message to a subject
func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := c.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// ReportHandler stores or otherwise consumes one published pair report
type ReportHandler func(ctx context.Context, msg *PairReportMsg) error

// ConsumeReports creates a durable consumer of pair reports and passes each
// decoded report to handler until the returned context is stopped.
func (c *Client) ConsumeReports(ctx context.Context, durable string, handler ReportHandler) (jetstream.ConsumeContext, error) {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, c.config.StreamName, c.config.consumerConfig(SubjectPairReport, durable))
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		handleReport(ctx, msg, handler)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	return consumeCtx, nil
}

// ackMsg is the part of jetstream.Msg used to settle a delivery
type ackMsg interface {
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

// handleReport terminates undecodable messages, naks handler failures for
// redelivery and acks the rest.
func handleReport(ctx context.Context, msg ackMsg, handler ReportHandler) {
	m, err := DecodePairReport(msg.Data())
	if err != nil {
		log.Error().Err(err).Msg("Dropping undecodable report")
		_ = msg.Term()
		return
	}

	if err := handler(ctx, m); err != nil {
		log.Error().Err(err).
			Str("sample", m.Report.Sample).
			Str("data", m.Report.Data).
			Msg("Report handler failed")
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}
