package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"checkout/internal/domain"
	"checkout/internal/repository/outbox_repo"
)

type fakeOutboxRepo struct {
	pending    []*outbox_repo.OutboxMessage
	marked     []string
	getErr     error
	markedByID map[string]bool
}

func (r *fakeOutboxRepo) CreateMessageTx(ctx context.Context, querier domain.Querier, msg *outbox_repo.OutboxMessage) error {
	r.pending = append(r.pending, msg)
	return nil
}

func (r *fakeOutboxRepo) GetUnsentMessagesTx(ctx context.Context, querier domain.Querier) ([]*outbox_repo.OutboxMessage, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	var unsent []*outbox_repo.OutboxMessage
	for _, msg := range r.pending {
		if !r.markedByID[msg.ID] {
			unsent = append(unsent, msg)
		}
	}
	return unsent, nil
}

func (r *fakeOutboxRepo) MarkMessageSentTx(ctx context.Context, querier domain.Querier, id string) error {
	if r.markedByID == nil {
		r.markedByID = map[string]bool{}
	}
	r.markedByID[id] = true
	r.marked = append(r.marked, id)
	return nil
}

type producedMessage struct {
	key   string
	topic string
	value []byte
}

type fakeProducer struct {
	messages []producedMessage
	failKeys map[string]bool
}

func (p *fakeProducer) Produce(ctx context.Context, key, topic string, value []byte) error {
	if p.failKeys[key] {
		return errors.New("kafka: broker unreachable")
	}
	p.messages = append(p.messages, producedMessage{key: key, topic: topic, value: value})
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func stagedMessage(id, key string) *outbox_repo.OutboxMessage {
	return &outbox_repo.OutboxMessage{
		ID:        id,
		Topic:     "purchase_tasks",
		Key:       key,
		Payload:   []byte(`{"taskId":"` + key + `"}`),
		Status:    outbox_repo.StatusPending,
		CreatedAt: time.Now(),
	}
}

func TestProcessOutboxPublishesAndMarksPending(t *testing.T) {
	repo := &fakeOutboxRepo{
		pending: []*outbox_repo.OutboxMessage{
			stagedMessage("msg-1", "task-1"),
			stagedMessage("msg-2", "task-2"),
		},
	}
	producer := &fakeProducer{}
	processor := NewProcessor(nil, repo, producer, zap.NewNop())

	require.NoError(t, processor.ProcessOutbox(context.Background()))

	require.Len(t, producer.messages, 2)
	assert.Equal(t, "purchase_tasks", producer.messages[0].topic)
	assert.Equal(t, "task-1", producer.messages[0].key)
	assert.Equal(t, []string{"msg-1", "msg-2"}, repo.marked)
}

func TestProcessOutboxKeepsMessagePendingOnBrokerFailure(t *testing.T) {
	repo := &fakeOutboxRepo{
		pending: []*outbox_repo.OutboxMessage{
			stagedMessage("msg-1", "task-1"),
			stagedMessage("msg-2", "task-2"),
		},
	}
	producer := &fakeProducer{failKeys: map[string]bool{"task-1": true}}
	processor := NewProcessor(nil, repo, producer, zap.NewNop())

	require.NoError(t, processor.ProcessOutbox(context.Background()))

	// The failed message stays pending for the next poll; the rest of the
	// batch still goes out.
	assert.Equal(t, []string{"msg-2"}, repo.marked)
	require.Len(t, producer.messages, 1)
	assert.Equal(t, "task-2", producer.messages[0].key)

	// A later poll with a healthy broker drains the survivor.
	producer.failKeys = nil
	require.NoError(t, processor.ProcessOutbox(context.Background()))
	assert.Contains(t, repo.marked, "msg-1")
}

func TestProcessOutboxNoPendingMessages(t *testing.T) {
	repo := &fakeOutboxRepo{}
	producer := &fakeProducer{}
	processor := NewProcessor(nil, repo, producer, zap.NewNop())

	require.NoError(t, processor.ProcessOutbox(context.Background()))
	assert.Empty(t, producer.messages)
}

func TestProcessOutboxReadFailure(t *testing.T) {
	repo := &fakeOutboxRepo{getErr: errors.New("pq: connection refused")}
	processor := NewProcessor(nil, repo, &fakeProducer{}, zap.NewNop())

	assert.Error(t, processor.ProcessOutbox(context.Background()))
}
