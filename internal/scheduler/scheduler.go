package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const taskTimeout = 30 * time.Minute

// TaskHandler runs one scheduled job
type TaskHandler interface {
	Execute(ctx context.Context) error
	Name() string
}

// Task is a handler bound to a cron schedule
type Task struct {
	ID         string
	Schedule   string
	Handler    TaskHandler
	LastRun    time.Time
	NextRun    time.Time
	RunCount   int64
	ErrorCount int64

	entryID cron.EntryID
}

// Scheduler runs tasks on standard five-field cron schedules in UTC
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	tasks  map[string]*Task
	mu     sync.RWMutex
}

// New creates an idle scheduler
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		logger: logger.Named("scheduler"),
		tasks:  make(map[string]*Task),
	}
}

// AddTask registers handler under id with a cron schedule
func (s *Scheduler) AddTask(id, schedule string, handler TaskHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; exists {
		return errors.Errorf("task with ID %s already exists", id)
	}

	task := &Task{ID: id, Schedule: schedule, Handler: handler}
	entryID, err := s.cron.AddFunc(schedule, func() { s.execute(task) })
	if err != nil {
		return errors.Wrapf(err, "failed to schedule task %s", id)
	}
	task.entryID = entryID
	task.NextRun = s.cron.Entry(entryID).Next
	s.tasks[id] = task

	s.logger.Debug("Task scheduled", zap.String("task_id", id), zap.String("schedule", schedule))
	return nil
}

// Start begins running scheduled tasks in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("scheduled_tasks", len(s.tasks)))
}

// Stop stops scheduling and waits for running tasks to finish
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunNow executes a task immediately, outside its schedule
func (s *Scheduler) RunNow(id string) error {
	task, err := s.Task(id)
	if err != nil {
		return err
	}
	s.execute(task)
	return nil
}

// Task returns a snapshot of a registered task
func (s *Scheduler) Task(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[id]
	if !exists {
		return nil, errors.Errorf("task with ID %s not found", id)
	}
	snapshot := *task
	return &snapshot, nil
}

func (s *Scheduler) execute(task *Task) {
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	start := time.Now()
	err := task.Handler.Execute(ctx)

	s.mu.Lock()
	task.LastRun = start
	task.RunCount++
	if err != nil {
		task.ErrorCount++
	}
	task.NextRun = s.cron.Entry(task.entryID).Next
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Scheduled task failed",
			zap.String("task_id", task.ID),
			zap.String("task_name", task.Handler.Name()),
			zap.Duration("execution_time", time.Since(start)),
			zap.Error(err))
		return
	}
	s.logger.Debug("Scheduled task completed",
		zap.String("task_id", task.ID),
		zap.Duration("execution_time", time.Since(start)))
}
