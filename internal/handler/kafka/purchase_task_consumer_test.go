package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"checkout/internal/app/checkout"
	"checkout/internal/domain"
	"checkout/internal/repository/outbox_repo"
)

type fakeCheckoutService struct {
	outcome  domain.Outcome
	requests []domain.PurchaseRequest
	emit     []int
}

func (s *fakeCheckoutService) ProcessPurchase(ctx context.Context, req domain.PurchaseRequest, progress checkout.ProgressFunc) domain.Outcome {
	s.requests = append(s.requests, req)
	for _, percent := range s.emit {
		progress(percent)
	}
	return s.outcome
}

type fakeTaskRepo struct {
	states    map[string]domain.TaskState
	progress  map[string]int
	feedbacks map[string]string
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{
		states:    map[string]domain.TaskState{},
		progress:  map[string]int{},
		feedbacks: map[string]string{},
	}
}

func (r *fakeTaskRepo) CreateWithOutboxMessage(ctx context.Context, task *domain.PurchaseTask, msg *outbox_repo.OutboxMessage) error {
	r.states[task.ID] = task.State
	return nil
}

func (r *fakeTaskRepo) GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.PurchaseTask, error) {
	state, ok := r.states[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &domain.PurchaseTask{ID: id, State: state, Progress: r.progress[id], Feedback: r.feedbacks[id]}, nil
}

func (r *fakeTaskRepo) UpdateStateTx(ctx context.Context, querier domain.Querier, id string, state domain.TaskState) error {
	r.states[id] = state
	return nil
}

func (r *fakeTaskRepo) UpdateProgressTx(ctx context.Context, querier domain.Querier, id string, progress int) error {
	r.progress[id] = progress
	return nil
}

func (r *fakeTaskRepo) SetFeedbackTx(ctx context.Context, querier domain.Querier, id, feedback string) error {
	r.feedbacks[id] = feedback
	r.states[id] = domain.TaskStateFeedback
	return nil
}

func (r *fakeTaskRepo) DeleteTx(ctx context.Context, querier domain.Querier, id string) error {
	delete(r.states, id)
	return nil
}

type producedMessage struct {
	key   string
	topic string
	value []byte
}

type fakeProducer struct {
	messages []producedMessage
}

func (p *fakeProducer) Produce(ctx context.Context, key, topic string, value []byte) error {
	p.messages = append(p.messages, producedMessage{key: key, topic: topic, value: value})
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func taskMessage(t *testing.T, event domain.PurchaseTaskEvent) segkafka.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return segkafka.Message{Topic: "purchase_tasks", Value: payload}
}

func testEvent() domain.PurchaseTaskEvent {
	return domain.PurchaseTaskEvent{
		TaskID: "task-1",
		Request: domain.PurchaseRequest{
			UID:             "user-1",
			Email:           "a@x.com",
			Slug:            "intro-course",
			Price:           10,
			Title:           "Intro Course",
			TokenOrCustomer: "tok_visa",
		},
		EnqueuedAt: time.Now(),
	}
}

func TestPurchaseTaskMessageHandler_MalformedPayloadCommits(t *testing.T) {
	service := &fakeCheckoutService{}
	tasks := newFakeTaskRepo()
	producer := &fakeProducer{}

	handler := PurchaseTaskMessageHandler(service, tasks, nil, producer, "purchase_status_updates", zap.NewNop())

	err := handler(context.Background(), segkafka.Message{Value: []byte("{not json")})

	assert.NoError(t, err, "malformed payloads must not block the partition")
	assert.Empty(t, service.requests)
	assert.Empty(t, producer.messages)
}

func TestPurchaseTaskMessageHandler_Success(t *testing.T) {
	service := &fakeCheckoutService{outcome: domain.Succeeded(), emit: []int{33, 66, 100}}
	tasks := newFakeTaskRepo()
	tasks.states["task-1"] = domain.TaskStatePending
	producer := &fakeProducer{}

	handler := PurchaseTaskMessageHandler(service, tasks, nil, producer, "purchase_status_updates", zap.NewNop())

	err := handler(context.Background(), taskMessage(t, testEvent()))
	require.NoError(t, err)

	require.Len(t, service.requests, 1)
	assert.Equal(t, "user-1", service.requests[0].UID)
	assert.Equal(t, domain.TaskStateCompleted, tasks.states["task-1"])
	assert.Equal(t, 100, tasks.progress["task-1"])

	// 3 progress events plus the terminal one.
	require.Len(t, producer.messages, 4)
	for _, msg := range producer.messages {
		assert.Equal(t, "purchase_status_updates", msg.topic)
		assert.Equal(t, "task-1", msg.key)
	}

	var last domain.PurchaseStatusEvent
	require.NoError(t, json.Unmarshal(producer.messages[3].value, &last))
	assert.Equal(t, string(domain.TaskStateCompleted), last.State)
	assert.Equal(t, 100, last.Progress)
	assert.Empty(t, last.Feedback)
}

func TestPurchaseTaskMessageHandler_FailureRecordsFeedbackAndCommits(t *testing.T) {
	service := &fakeCheckoutService{outcome: domain.Failed("Your card was declined.")}
	tasks := newFakeTaskRepo()
	tasks.states["task-1"] = domain.TaskStatePending
	producer := &fakeProducer{}

	handler := PurchaseTaskMessageHandler(service, tasks, nil, producer, "purchase_status_updates", zap.NewNop())

	err := handler(context.Background(), taskMessage(t, testEvent()))

	assert.NoError(t, err, "business failures finish the task, they are not retried")
	assert.Equal(t, domain.TaskStateFeedback, tasks.states["task-1"])
	assert.Equal(t, "Your card was declined.", tasks.feedbacks["task-1"])

	require.NotEmpty(t, producer.messages)
	var last domain.PurchaseStatusEvent
	require.NoError(t, json.Unmarshal(producer.messages[len(producer.messages)-1].value, &last))
	assert.Equal(t, string(domain.TaskStateFeedback), last.State)
	assert.Equal(t, "Your card was declined.", last.Feedback)
}

func TestPurchaseTaskMessageHandler_MarksProcessingBeforePipeline(t *testing.T) {
	var seen []domain.TaskState
	tasks := newFakeTaskRepo()
	tasks.states["task-1"] = domain.TaskStatePending
	producer := &fakeProducer{}

	observer := processFunc(func(ctx context.Context, req domain.PurchaseRequest, progress checkout.ProgressFunc) domain.Outcome {
		seen = append(seen, tasks.states["task-1"])
		return domain.Succeeded()
	})

	handler := PurchaseTaskMessageHandler(observer, tasks, nil, producer, "purchase_status_updates", zap.NewNop())

	require.NoError(t, handler(context.Background(), taskMessage(t, testEvent())))

	require.Len(t, seen, 1)
	assert.Equal(t, domain.TaskStateProcessing, seen[0])
}

// processFunc adapts a function to the CheckoutService interface.
type processFunc func(ctx context.Context, req domain.PurchaseRequest, progress checkout.ProgressFunc) domain.Outcome

func (f processFunc) ProcessPurchase(ctx context.Context, req domain.PurchaseRequest, progress checkout.ProgressFunc) domain.Outcome {
	return f(ctx, req, progress)
}
