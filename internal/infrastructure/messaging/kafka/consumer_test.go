package kafka

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClairePA/ChemistryToolkit/internal/config"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

// mockReader hands out queued messages and then blocks until cancelled.
type mockReader struct {
	queue     chan kafka.Message
	mu        sync.Mutex
	committed []int64
	closed    bool
}

func newMockReader(msgs ...kafka.Message) *mockReader {
	r := &mockReader{queue: make(chan kafka.Message, len(msgs))}
	for _, m := range msgs {
		r.queue <- m
	}
	return r
}

func (r *mockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.queue:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *mockReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *mockReader) Close() error {
	r.closed = true
	return nil
}

func (r *mockReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestNewConsumer_Validation(t *testing.T) {
	_, err := NewConsumer(config.KafkaConfig{}, nil, RetryPolicy{}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	_, err = NewConsumer(config.KafkaConfig{Brokers: []string{"k:9092"}}, nil, RetryPolicy{}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestConsumer_DispatchAndCommit(t *testing.T) {
	r := newMockReader(
		kafka.Message{Topic: TopicMoleculeMerged, Offset: 1, Value: []byte("a"), Headers: []kafka.Header{{Key: "h", Value: []byte("v")}}},
		kafka.Message{Topic: "unknown", Offset: 2, Value: []byte("b")},
	)
	c := NewConsumerWithReader(r, nil, RetryPolicy{}, nil)

	var got atomic.Value
	c.Subscribe(TopicMoleculeMerged, func(_ context.Context, m *common.ConsumerMessage) error {
		got.Store(m)
		return nil
	})
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, ErrAlreadyRunning, c.Start(context.Background()))

	assert.Eventually(t, func() bool { return len(r.commits()) == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())
	assert.True(t, r.closed)

	m := got.Load().(*common.ConsumerMessage)
	assert.Equal(t, "a", string(m.Value))
	assert.Equal(t, "v", m.Headers["h"])
	processed, failed := c.Stats()
	assert.Equal(t, int64(1), processed)
	assert.Zero(t, failed)
}

func TestConsumer_RetriesThenSucceeds(t *testing.T) {
	r := newMockReader(kafka.Message{Topic: "t", Offset: 7, Value: []byte("x")})
	c := NewConsumerWithReader(r, nil, RetryPolicy{MaxRetries: 3, Backoff: time.Millisecond}, nil)

	var calls int32
	c.Subscribe("t", func(context.Context, *common.ConsumerMessage) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return stderrors.New("transient")
		}
		return nil
	})
	require.NoError(t, c.Start(context.Background()))
	assert.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	processed, _ := c.Stats()
	assert.Equal(t, int64(1), processed)
}

func TestConsumer_ExhaustedGoesToDeadLetter(t *testing.T) {
	r := newMockReader(kafka.Message{Topic: "t", Offset: 3, Key: []byte("k"), Value: []byte("x")})
	w := &mockWriter{}
	c := NewConsumerWithReader(r, NewProducerWithWriter(w, nil),
		RetryPolicy{MaxRetries: 1, Backoff: time.Millisecond, DeadLetterTopic: TopicDeadLetter}, nil)

	c.Subscribe("t", func(context.Context, *common.ConsumerMessage) error {
		return stderrors.New("poison")
	})
	require.NoError(t, c.Start(context.Background()))
	assert.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())

	dl := w.written()
	require.Len(t, dl, 1)
	assert.Equal(t, TopicDeadLetter, dl[0].Topic)
	assert.Equal(t, []byte("k"), dl[0].Key)
	headers := map[string]string{}
	for _, h := range dl[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "t", headers[HeaderOriginalTopic])
	assert.Equal(t, "poison", headers[HeaderError])

	_, failed := c.Stats()
	assert.Equal(t, int64(1), failed)
}

func TestConsumer_CloseWithoutStart(t *testing.T) {
	c := NewConsumerWithReader(newMockReader(), nil, RetryPolicy{}, nil)
	assert.NoError(t, c.Close())
}
