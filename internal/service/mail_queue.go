package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bitwise74/todo-api/config"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeSendMail = "mail:send"
	mailQueue    = "mail"
)

type mailPayload struct {
	Template string         `json:"template"`
	To       string         `json:"to"`
	Data     map[string]any `json:"data"`
}

func RedisOpt(cfg config.Redis) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueuedNotifier hands mails to the asynq worker instead of holding the
// request open while SMTP answers
type QueuedNotifier struct {
	client enqueuer
}

func NewQueuedNotifier(client *asynq.Client) *QueuedNotifier {
	return &QueuedNotifier{client: client}
}

func (q *QueuedNotifier) Send(ctx context.Context, template, to string, data map[string]any) error {
	payload, err := json.Marshal(mailPayload{Template: template, To: to, Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode mail job, %w", err)
	}

	task := asynq.NewTask(TypeSendMail, payload,
		asynq.Queue(mailQueue),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue mail job, %w", err)
	}

	zap.L().Debug("Mail job enqueued", zap.String("taskID", info.ID), zap.String("template", template))
	return nil
}

// HandleMailTask delivers queued mails with n
func HandleMailTask(n Notifier) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p mailPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("malformed mail job, %v: %w", err, asynq.SkipRetry)
		}

		return n.Send(ctx, p.Template, p.To, p.Data)
	}
}

// NewMailWorker returns a stopped asynq server whose mux sends every queued
// mail through n
func NewMailWorker(cfg config.Redis, n Notifier) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency: 4,
		Queues:      map[string]int{mailQueue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, t *asynq.Task, err error) {
			zap.L().Error("Mail job failed", zap.String("type", t.Type()), zap.Error(err))
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeSendMail, HandleMailTask(n))

	return srv, mux
}
