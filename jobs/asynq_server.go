package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/pharma-ledger/internal/platform/httpx"
)

// Schedule registers Task on the worker's scheduler under a cron expression.
// An empty Spec disables the entry.
type Schedule struct {
	Spec string
	Task *asynq.Task
}

// WorkerConfig collects what the worker process needs.
type WorkerConfig struct {
	Redis       asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    map[string]asynq.HandlerFunc
	Schedules   []Schedule
}

// Worker serves the ledger queues and, when schedules are configured, the
// periodic checks feeding them.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// NewWorker validates cfg and builds the server. Task types without a
// handler are rejected up front rather than archived at run time.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if len(cfg.Handlers) == 0 {
		return nil, errors.New("worker: no task handlers registered")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}

	mux := asynq.NewServeMux()
	mux.Use(logTask(logger))
	for typ, h := range cfg.Handlers {
		if h == nil {
			return nil, fmt.Errorf("worker: nil handler for %s", typ)
		}
		mux.HandleFunc(typ, h)
	}

	var scheduler *asynq.Scheduler
	for _, s := range cfg.Schedules {
		if s.Spec == "" || s.Task == nil {
			continue
		}
		if _, ok := cfg.Handlers[s.Task.Type()]; !ok {
			return nil, fmt.Errorf("worker: schedule for unhandled task %s", s.Task.Type())
		}
		if scheduler == nil {
			scheduler = asynq.NewScheduler(cfg.Redis, &asynq.SchedulerOpts{Location: time.UTC})
		}
		if _, err := scheduler.Register(s.Spec, s.Task); err != nil {
			return nil, fmt.Errorf("worker: schedule %s: %w", s.Task.Type(), err)
		}
	}

	server := asynq.NewServer(cfg.Redis, asynq.Config{
		Concurrency:     cfg.Concurrency,
		Queues:          QueueWeights,
		ShutdownTimeout: 30 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Error("task failed",
				slog.String("task", task.Type()),
				slog.Int("retried", retried),
				slog.Int("max_retry", maxRetry),
				slog.Any("error", err))
		}),
	})
	return &Worker{server: server, mux: mux, scheduler: scheduler, logger: logger}, nil
}

// logTask logs the outcome and duration of every task at debug level.
func logTask(logger *slog.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			id, _ := asynq.GetTaskID(ctx)
			queue, _ := asynq.GetQueueName(ctx)
			log := logger.With(slog.String("task", task.Type()), slog.String("task_id", id), slog.String("queue", queue))
			started := time.Now()
			err := next.ProcessTask(ctx, task)
			log.Debug("task processed", slog.Duration("took", time.Since(started)), slog.Bool("ok", err == nil))
			return err
		})
	}
}

// Run processes tasks until ctx is cancelled, then drains in-flight work.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return fmt.Errorf("worker: start scheduler: %w", err)
		}
		defer w.scheduler.Shutdown()
	}
	w.logger.Info("worker started", slog.Any("queues", Queues()))
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("worker: start server: %w", err)
	}
	<-ctx.Done()
	w.server.Shutdown()
	w.logger.Info("worker stopped")
	return ctx.Err()
}

// QueueHealth is one queue's state as reported by the inspector.
type QueueHealth struct {
	Queue     string `json:"queue"`
	Paused    bool   `json:"paused"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Processed int    `json:"processed_today"`
	Failed    int    `json:"failed_today"`
}

// Inspect reads the state of every served queue. A queue that never held a
// task is reported empty.
func Inspect(inspector *asynq.Inspector) ([]QueueHealth, error) {
	out := make([]QueueHealth, 0, len(QueueWeights))
	for _, name := range Queues() {
		q := QueueHealth{Queue: name}
		if inspector != nil {
			info, err := inspector.GetQueueInfo(name)
			switch {
			case errors.Is(err, asynq.ErrQueueNotFound):
			case err != nil:
				return nil, fmt.Errorf("inspect %s: %w", name, err)
			default:
				q.Paused = info.Paused
				q.Pending = info.Pending
				q.Active = info.Active
				q.Scheduled = info.Scheduled
				q.Retry = info.Retry
				q.Archived = info.Archived
				q.Processed = info.Processed
				q.Failed = info.Failed
			}
		}
		out = append(out, q)
	}
	return out, nil
}

// Handler serves queue health over HTTP.
type Handler struct {
	inspector *asynq.Inspector
	logger    *slog.Logger
}

func NewHandler(inspector *asynq.Inspector, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	queues, err := Inspect(h.inspector)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queues": queues})
}
