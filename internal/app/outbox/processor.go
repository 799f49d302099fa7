package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"checkout/internal/domain"
	kafka_infra "checkout/internal/infrastructure/kafka"
	"checkout/internal/repository/outbox_repo"
)

// Processor drains staged outbox messages to Kafka. A message is marked
// sent only after the broker accepted it; a failed publish leaves the row
// pending for the next poll.
type Processor struct {
	db       domain.Querier
	outbox   outbox_repo.OutboxRepository
	producer kafka_infra.Producer
	logger   *zap.Logger
}

func NewProcessor(
	db domain.Querier,
	outbox outbox_repo.OutboxRepository,
	producer kafka_infra.Producer,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		db:       db,
		outbox:   outbox,
		producer: producer,
		logger:   logger,
	}
}

func (p *Processor) ProcessOutbox(ctx context.Context) error {
	messages, err := p.outbox.GetUnsentMessagesTx(ctx, p.db)
	if err != nil {
		p.logger.Error("Failed to get unsent outbox messages", zap.Error(err))
		return fmt.Errorf("failed to get unsent outbox messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No unsent outbox messages found.")
		return nil
	}

	p.logger.Info("Processing unsent outbox messages", zap.Int("count", len(messages)))

	for _, msg := range messages {
		if err := p.producer.Produce(ctx, msg.Key, msg.Topic, msg.Payload); err != nil {
			p.logger.Error("Failed to produce outbox message to Kafka",
				zap.String("message_id", msg.ID),
				zap.String("topic", msg.Topic),
				zap.Error(err))
			continue
		}
		if err := p.outbox.MarkMessageSentTx(ctx, p.db, msg.ID); err != nil {
			p.logger.Error("Failed to mark outbox message as sent",
				zap.String("message_id", msg.ID),
				zap.Error(err))
		} else {
			p.logger.Debug("Outbox message sent and marked as sent", zap.String("message_id", msg.ID))
		}
	}
	return nil
}
