package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type funcExecutor func(ctx context.Context, job *Job) error

func (f funcExecutor) Execute(ctx context.Context, job *Job) error { return f(ctx, job) }

type recordingExecutor struct {
	mu    sync.Mutex
	users []uuid.UUID
}

func (e *recordingExecutor) Execute(_ context.Context, job *Job) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.users = append(e.users, job.UserID)
	return nil
}

func (e *recordingExecutor) seen() []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uuid.UUID(nil), e.users...)
}

func testConfig() SchedulerConfig {
	return SchedulerConfig{
		Workers:    2,
		QueueSize:  16,
		JobTimeout: time.Second,
		RetryDelay: 10 * time.Millisecond,
	}
}

func startScheduler(t *testing.T, cfg SchedulerConfig, exec JobExecutor) *Scheduler {
	t.Helper()
	s, err := NewScheduler(cfg, exec, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func TestJobLifecycle(t *testing.T) {
	job := NewJob(uuid.New(), 1)
	assert.Equal(t, JobStatusPending, job.Status)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	job.Fail("boom")
	assert.Equal(t, "boom", job.Error)
	assert.True(t, job.ShouldRetry())

	job.ScheduleRetry(time.Minute)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Empty(t, job.Error)
	require.NotNil(t, job.NextRetryAt)

	job.Start()
	job.Fail("boom again")
	assert.False(t, job.ShouldRetry())

	job.Start()
	job.Complete()
	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.NotNil(t, job.CompletedAt)
}

func TestNewScheduler_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 0
	_, err := NewScheduler(cfg, &recordingExecutor{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestScheduler_RunsSubmittedJobs(t *testing.T) {
	exec := &recordingExecutor{}
	s := startScheduler(t, testConfig(), exec)

	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, u := range users {
		require.NoError(t, s.SubmitJob(NewJob(u, 0)))
	}

	assert.Eventually(t, func() bool { return len(exec.seen()) == len(users) }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, users, exec.seen())
}

func TestScheduler_RetriesFailedJob(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	exec := funcExecutor(func(context.Context, *Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return errors.New("transient")
		}
		return nil
	})
	s := startScheduler(t, testConfig(), exec)

	job := NewJob(uuid.New(), 2)
	require.NoError(t, s.SubmitJob(job))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == 2
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_QueueFull(t *testing.T) {
	release := make(chan struct{})
	exec := funcExecutor(func(ctx context.Context, _ *Job) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})
	cfg := testConfig()
	cfg.Workers = 1
	cfg.QueueSize = 1
	s := startScheduler(t, cfg, exec)
	defer close(release)

	var full int
	for i := 0; i < 3; i++ {
		if err := s.SubmitJob(NewJob(uuid.New(), 0)); errors.Is(err, ErrJobQueueFull) {
			full++
		}
	}
	assert.GreaterOrEqual(t, full, 1)
}

func TestScheduler_SubmitAfterStop(t *testing.T) {
	s, err := NewScheduler(testConfig(), &recordingExecutor{}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, s.SubmitJob(NewJob(uuid.New(), 0)), ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	assert.ErrorIs(t, s.SubmitJob(NewJob(uuid.New(), 0)), ErrSchedulerNotRunning)
	assert.ErrorIs(t, s.SubmitJobWait(context.Background(), NewJob(uuid.New(), 0)), ErrSchedulerNotRunning)
}
