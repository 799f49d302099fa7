package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"checkout/internal/app/checkout"
	"checkout/internal/domain"
	kafka_infra "checkout/internal/infrastructure/kafka"
	"checkout/internal/repository/tasks_repo"
)

// PurchaseTaskMessageHandler consumes one purchase task per message.
// It always returns nil for business failures so the offset commits and
// the task is finished rather than redelivered; the outcome reaches the
// client through the task ledger and the status topic.
func PurchaseTaskMessageHandler(
	service checkout.CheckoutService,
	tasks tasks_repo.TaskRepository,
	db domain.Querier,
	producer kafka_infra.Producer,
	statusTopic string,
	logger *zap.Logger,
) kafka_infra.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var taskEvent domain.PurchaseTaskEvent
		if err := json.Unmarshal(msg.Value, &taskEvent); err != nil {
			logger.Error("Failed to unmarshal Kafka message value to PurchaseTaskEvent",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			return nil
		}

		logger.Info("Processing purchase task",
			zap.String("task_id", taskEvent.TaskID),
			zap.String("uid", taskEvent.Request.UID),
			zap.String("slug", taskEvent.Request.Slug),
		)

		if err := tasks.UpdateStateTx(ctx, db, taskEvent.TaskID, domain.TaskStateProcessing); err != nil {
			logger.Warn("Failed to mark purchase task as processing",
				zap.String("task_id", taskEvent.TaskID),
				zap.Error(err),
			)
		}

		progress := func(percent int) {
			if err := tasks.UpdateProgressTx(ctx, db, taskEvent.TaskID, percent); err != nil {
				logger.Warn("Failed to record purchase task progress",
					zap.String("task_id", taskEvent.TaskID),
					zap.Int("progress", percent),
					zap.Error(err),
				)
			}
			publishStatus(ctx, producer, statusTopic, logger, domain.PurchaseStatusEvent{
				TaskID:    taskEvent.TaskID,
				State:     string(domain.TaskStateProcessing),
				Progress:  percent,
				Timestamp: time.Now(),
			})
		}

		outcome := service.ProcessPurchase(ctx, taskEvent.Request, progress)

		if outcome.Success {
			if err := tasks.UpdateStateTx(ctx, db, taskEvent.TaskID, domain.TaskStateCompleted); err != nil {
				logger.Error("Failed to mark purchase task as completed",
					zap.String("task_id", taskEvent.TaskID),
					zap.Error(err),
				)
			}
			publishStatus(ctx, producer, statusTopic, logger, domain.PurchaseStatusEvent{
				TaskID:    taskEvent.TaskID,
				State:     string(domain.TaskStateCompleted),
				Progress:  100,
				Timestamp: time.Now(),
			})
			logger.Info("Purchase task completed", zap.String("task_id", taskEvent.TaskID))
			return nil
		}

		if err := tasks.SetFeedbackTx(ctx, db, taskEvent.TaskID, outcome.Feedback); err != nil {
			logger.Error("Failed to record purchase task feedback",
				zap.String("task_id", taskEvent.TaskID),
				zap.String("feedback", outcome.Feedback),
				zap.Error(err),
			)
		}
		publishStatus(ctx, producer, statusTopic, logger, domain.PurchaseStatusEvent{
			TaskID:    taskEvent.TaskID,
			State:     string(domain.TaskStateFeedback),
			Feedback:  outcome.Feedback,
			Timestamp: time.Now(),
		})
		logger.Info("Purchase task finished with feedback",
			zap.String("task_id", taskEvent.TaskID),
			zap.String("feedback", outcome.Feedback),
		)
		return nil
	}
}

func publishStatus(
	ctx context.Context,
	producer kafka_infra.Producer,
	topic string,
	logger *zap.Logger,
	event domain.PurchaseStatusEvent,
) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal purchase status event",
			zap.String("task_id", event.TaskID),
			zap.Error(err),
		)
		return
	}
	if err := producer.Produce(ctx, event.TaskID, topic, payload); err != nil {
		logger.Error("Failed to publish purchase status event",
			zap.String("task_id", event.TaskID),
			zap.String("state", event.State),
			zap.Error(err),
		)
	}
}
