package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedReader struct {
	msgs      []kafka.Message
	next      int
	committed []int64
	closed    bool
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.next >= len(r.msgs) {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[r.next]
	r.next++
	return msg, nil
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func testConsumer(r *scriptedReader, attempts int) *Consumer {
	return &Consumer{
		reader:      r,
		topic:       "order-events",
		logger:      zap.NewNop(),
		maxAttempts: attempts,
		backoff:     time.Millisecond,
	}
}

func TestConsumerRetriesFailedMessageBeforeMovingOn(t *testing.T) {
	reader := &scriptedReader{msgs: []kafka.Message{{Offset: 10}, {Offset: 11}}}
	c := testConsumer(reader, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled []int64
	failed := false
	err := c.StartConsuming(ctx, func(_ context.Context, msg kafka.Message) error {
		handled = append(handled, msg.Offset)
		if msg.Offset == 10 && !failed {
			failed = true
			return errors.New("stats table locked")
		}
		if msg.Offset == 11 {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int64{10, 10, 11}, handled)
	assert.Equal(t, []int64{10, 11}, reader.committed)
}

func TestConsumerStopsWithoutCommittingWhenRetriesRunOut(t *testing.T) {
	reader := &scriptedReader{msgs: []kafka.Message{{Offset: 10}, {Offset: 11}}}
	c := testConsumer(reader, 3)

	calls := 0
	err := c.StartConsuming(context.Background(), func(_ context.Context, msg kafka.Message) error {
		calls++
		return errors.New("database down")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset 10")
	assert.Equal(t, 3, calls)
	assert.Empty(t, reader.committed)
	assert.Equal(t, 1, reader.next)
}

func TestConsumerCommitsPastMalformedEvent(t *testing.T) {
	reader := &scriptedReader{msgs: []kafka.Message{{Offset: 4, Value: []byte("not json")}}}
	c := testConsumer(reader, 3)
	h := NewEventHandler()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	calls := 0
	err := c.StartConsuming(ctx, func(ctx context.Context, msg kafka.Message) error {
		calls++
		return h.HandleMessage(ctx, msg)
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []int64{4}, reader.committed)
}
