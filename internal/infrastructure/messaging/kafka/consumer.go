package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ClairePA/ChemistryToolkit/internal/config"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

var ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RetryPolicy controls handler retries before a message is dead-lettered.
type RetryPolicy struct {
	MaxRetries      int
	Backoff         time.Duration
	MaxBackoff      time.Duration
	DeadLetterTopic string
}

// Consumer fetches messages from a consumer group and dispatches them by
// topic.  A message is committed once its handler succeeds, or after the
// retries are exhausted and the message went to the dead-letter topic.
type Consumer struct {
	reader     Reader
	deadLetter *Producer
	retry      RetryPolicy
	logger     logging.Logger

	mu       sync.RWMutex
	handlers map[string]common.MessageHandler

	running   atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	processed atomic.Int64
	failed    atomic.Int64
}

// NewConsumer builds a group reader for topics.
func NewConsumer(cfg config.KafkaConfig, topics []string, retry RetryPolicy, logger logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "kafka group_id required")
	}
	start := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		start = kafka.LastOffset
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10 << 20,
		MaxWait:        time.Second,
		StartOffset:    start,
		CommitInterval: 0,
	})

	var dl *Producer
	if retry.DeadLetterTopic != "" {
		p, err := NewProducer(cfg, logger)
		if err != nil {
			return nil, err
		}
		dl = p
	}
	return NewConsumerWithReader(r, dl, retry, logger), nil
}

// NewConsumerWithReader wraps an existing reader.  deadLetter may be nil.
func NewConsumerWithReader(r Reader, deadLetter *Producer, retry RetryPolicy, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if retry.Backoff <= 0 {
		retry.Backoff = 500 * time.Millisecond
	}
	if retry.MaxBackoff <= 0 {
		retry.MaxBackoff = 30 * time.Second
	}
	return &Consumer{
		reader:     r,
		deadLetter: deadLetter,
		retry:      retry,
		logger:     logger,
		handlers:   make(map[string]common.MessageHandler),
	}
}

// Subscribe registers the handler of topic, replacing any previous one.
func (c *Consumer) Subscribe(topic string, h common.MessageHandler) {
	c.mu.Lock()
	c.handlers[topic] = h
	c.mu.Unlock()
	c.logger.Info("subscribed", logging.String("topic", topic))
}

// Start launches the fetch loop.  It returns immediately.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.loop(ctx)
	return nil
}

func (c *Consumer) loop(ctx context.Context) {
	defer c.wg.Done()
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch failed", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		msg := fromKafkaMessage(m)
		c.mu.RLock()
		h, ok := c.handlers[m.Topic]
		c.mu.RUnlock()

		if !ok {
			c.logger.Warn("no handler for topic", logging.String("topic", m.Topic))
		} else if err := c.handle(ctx, msg, h); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.failed.Add(1)
		} else {
			c.processed.Add(1)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", logging.Err(err), logging.Int64("offset", m.Offset))
		}
	}
}

// handle runs h with exponential backoff.  It returns the last handler error
// once retries are exhausted, after dead-lettering the message.
func (c *Consumer) handle(ctx context.Context, msg *common.ConsumerMessage, h common.MessageHandler) error {
	err := h(ctx, msg)
	backoff := c.retry.Backoff
	for i := 0; err != nil && i < c.retry.MaxRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		err = h(ctx, msg)
		if backoff *= 2; backoff > c.retry.MaxBackoff {
			backoff = c.retry.MaxBackoff
		}
	}
	if err == nil {
		return nil
	}

	c.logger.Error("message handling failed",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Err(err))

	if c.deadLetter != nil && c.retry.DeadLetterTopic != "" {
		headers := make(map[string]string, len(msg.Headers)+2)
		for k, v := range msg.Headers {
			headers[k] = v
		}
		headers[HeaderOriginalTopic] = msg.Topic
		headers[HeaderError] = err.Error()
		dl := &common.ProducerMessage{Topic: c.retry.DeadLetterTopic, Key: msg.Key, Value: msg.Value, Headers: headers}
		if dlErr := c.deadLetter.Publish(ctx, dl); dlErr != nil {
			c.logger.Error("dead-letter publish failed", logging.Err(dlErr))
		}
	}
	return err
}

// Stats returns the number of messages handled successfully and unsuccessfully.
func (c *Consumer) Stats() (processed, failed int64) {
	return c.processed.Load(), c.failed.Load()
}

// Close stops the loop and closes the reader.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	c.cancel()
	c.wg.Wait()
	err := c.reader.Close()
	if c.deadLetter != nil {
		_ = c.deadLetter.Close()
	}
	c.logger.Info("kafka consumer closed", logging.Int64("processed", c.processed.Load()))
	return err
}

func fromKafkaMessage(m kafka.Message) *common.ConsumerMessage {
	msg := &common.ConsumerMessage{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}
