package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"cfp-scheduler/core/config"
	"cfp-scheduler/core/logger"

	"github.com/hibiken/asynq"
)

// Client enqueues background tasks. Enqueueing does not wait for the task to run.
type Client interface {
	Enqueue(ctx context.Context, taskType string, queue string, payload any) (string, error)
}

type AsynqClient struct {
	client   *asynq.Client
	maxRetry int
}

func NewAsynqClient(cfg config.QueueConfig) *AsynqClient {
	return &AsynqClient{
		client:   asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr}),
		maxRetry: cfg.MaxRetry,
	}
}

// Enqueue marshals payload to JSON and returns the task id
func (c *AsynqClient) Enqueue(ctx context.Context, taskType string, queue string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", taskType, err)
	}

	opts := []asynq.Option{asynq.MaxRetry(c.maxRetry)}
	if queue != "" {
		opts = append(opts, asynq.Queue(queue))
	}

	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(taskType, body), opts...)
	if err != nil {
		logger.Error("Queue:Enqueue:Error:", err, "type", taskType)
		return "", err
	}

	logger.Debug("Queue:Enqueue", "type", taskType, "id", info.ID, "queue", info.Queue)
	return info.ID, nil
}

func (c *AsynqClient) Close() error {
	return c.client.Close()
}
