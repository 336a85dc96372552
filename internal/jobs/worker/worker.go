package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/recommend-backend/internal/observability"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

// Task is one periodic job. Run is called once per interval on at most one
// instance at a time.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Worker struct {
	log    *logger.Logger
	locker Locker
	tasks  []Task
}

func NewWorker(baseLog *logger.Logger, locker Locker, tasks ...Task) *Worker {
	if locker == nil {
		locker = LocalLocker()
	}
	return &Worker{
		log:    baseLog.With("component", "JobWorker"),
		locker: locker,
		tasks:  tasks,
	}
}

// Run starts one loop per task and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, t := range w.tasks {
		if t.Run == nil || t.Interval <= 0 {
			w.log.Warn("Skipping task without handler or interval", "task", t.Name)
			continue
		}
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			w.runLoop(ctx, t)
		}(t)
	}
	w.log.Info("Job worker started", "tasks", len(w.tasks))
	wg.Wait()
	return nil
}

func (w *Worker) runLoop(ctx context.Context, t Task) {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "task", t.Name)
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx, t); err != nil {
				w.log.Warn("Task failed", "task", t.Name, "error", err)
			}
		}
	}
}

// RunOnce runs t if the task lock can be taken. A lock held elsewhere is
// not an error.
func (w *Worker) RunOnce(ctx context.Context, t Task) (err error) {
	// The lock outlives a single run so a slow instance is not overlapped.
	release, ok, err := w.locker.Acquire(ctx, "recommend:task:"+t.Name, 2*t.Interval)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		w.log.Debug("Task lock held elsewhere", "task", t.Name)
		observability.Current().ObserveTask(t.Name, "skipped", 0)
		return nil
	}
	defer release()

	start := time.Now()
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Task panic", "task", t.Name, "panic", r)
			err = errFromRecover(r)
			status = "panic"
		} else if err != nil {
			status = "error"
		}
		observability.Current().ObserveTask(t.Name, status, time.Since(start))
	}()
	return t.Run(ctx)
}

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
