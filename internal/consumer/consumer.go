// Package consumer ingests transcription requests from a Kafka topic and
// feeds them through the same pipeline as HTTP batch items.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/tinkervoid/transcriber/internal/logger"
	"github.com/tinkervoid/transcriber/internal/orchestrator"
)

// message is the queue wire format for one transcription request.
type message struct {
	FileURL     string `json:"file_url"`
	RecordingID string `json:"recording_id"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// MessageHandler processes one Kafka message. A non-nil error is logged and
// the loop moves on to the next message.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

// Consumer wraps a kafka-go Reader with backoff and structured logging.
type Consumer struct {
	reader   *kafkago.Reader
	topic    string
	groupID  string
	log      *logger.Logger
	failures int
}

// New creates a consumer for the configured topic.
func New(cfg Config, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("consumer config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("consumer is disabled")
	}

	clog := log.WithComponent("consumer")

	dialer := &kafkago.Dialer{Timeout: 10 * time.Second, DualStack: true}
	if cfg.EnableSASL {
		dialer.SASLMechanism = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             cfg.Topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       kafkago.FirstOffset,
		MinBytes:          1,
		MaxBytes:          10e6,
		SessionTimeout:    parseDuration(cfg.SessionTimeout),
		HeartbeatInterval: parseDuration(cfg.HeartbeatInterval),
		RebalanceTimeout:  parseDuration(cfg.RebalanceTimeout),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Error("reader: "+msg, map[string]interface{}{
				"args":  fmt.Sprintf("%v", args),
				"topic": cfg.Topic,
			})
		}),
	})

	clog.Info("Queue consumer initialized", map[string]interface{}{
		"topic":   cfg.Topic,
		"groupID": cfg.GroupID,
		"brokers": cfg.Brokers,
	})

	return &Consumer{
		reader:  reader,
		topic:   cfg.Topic,
		groupID: cfg.GroupID,
		log:     clog,
	}, nil
}

// Consume reads messages in a loop, calling handler for each one. It blocks
// until ctx is cancelled or an unrecoverable error occurs.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	c.log.Info("Starting consume loop", map[string]interface{}{
		"topic":   c.topic,
		"groupID": c.groupID,
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if retryErr := c.handleFailure(ctx, err); retryErr != nil {
					return retryErr
				}
				continue
			}

			c.failures = 0

			if err := handler(ctx, msg); err != nil {
				c.log.Error("Message processing failed", map[string]interface{}{
					logger.FieldError: err.Error(),
					"topic":           msg.Topic,
					"offset":          msg.Offset,
				})
			}
		}
	}
}

func (c *Consumer) handleFailure(ctx context.Context, err error) error {
	c.failures++
	if c.failures <= 3 {
		c.log.Error("Queue read error", map[string]interface{}{
			logger.FieldError: err.Error(),
			"failures":        c.failures,
			"topic":           c.topic,
		})
	}

	backoff := time.Duration(c.failures) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}

// Close shuts down the consumer.
func (c *Consumer) Close() error {
	c.log.Info("Queue consumer closing", map[string]interface{}{"topic": c.topic})
	return c.reader.Close()
}

// TranscribeHandler decodes queue messages and runs each one through the
// single-item pipeline, inline with consumption so processing stays
// strictly sequential. Malformed messages are rejected without touching the
// pipeline; transcription failures are already recorded by the runner.
func TranscribeHandler(runner *orchestrator.Runner, log *logger.Logger) MessageHandler {
	hlog := log.WithComponent("consumer")
	return func(ctx context.Context, msg kafkago.Message) error {
		var m message
		if err := json.Unmarshal(msg.Value, &m); err != nil {
			return fmt.Errorf("decode message at offset %d: %w", msg.Offset, err)
		}
		if m.FileURL == "" || m.RecordingID == "" {
			return fmt.Errorf("message at offset %d missing file_url or recording_id", msg.Offset)
		}

		hlog.Info("Processing queued transcription", map[string]interface{}{
			logger.FieldRecordingID: m.RecordingID,
		})

		if _, err := runner.Transcribe(ctx, orchestrator.Request{
			FileURL:     m.FileURL,
			RecordingID: m.RecordingID,
			CallbackURL: m.CallbackURL,
		}); err != nil {
			return fmt.Errorf("queue request %s: %w", m.RecordingID, err)
		}
		return nil
	}
}
