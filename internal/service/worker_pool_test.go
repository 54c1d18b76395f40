package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crparser/internal/domain"
	"crparser/internal/service"
)

type recordingHandler struct {
	mu      sync.Mutex
	handled []uuid.UUID
	release chan struct{}
	started chan struct{}
}

func (h *recordingHandler) Handle(ctx context.Context, task service.Task) {
	if h.started != nil {
		h.started <- struct{}{}
	}
	if h.release != nil {
		<-h.release
	}
	_, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		panic("job context without deadline")
	}
	h.mu.Lock()
	h.handled = append(h.handled, task.JobID)
	h.mu.Unlock()
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestWorkerPool_ProcessesSubmittedTasks(t *testing.T) {
	h := &recordingHandler{}
	pool := service.NewWorkerPool(service.WorkerPoolConfig{Workers: 2, Capacity: 8, JobTimeout: time.Second}, h, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Start(ctx)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(service.Task{JobID: uuid.New()}))
	}

	assert.Eventually(t, func() bool { return h.count() == 5 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestWorkerPool_RejectsWhenFull(t *testing.T) {
	h := &recordingHandler{release: make(chan struct{}), started: make(chan struct{}, 1)}
	pool := service.NewWorkerPool(service.WorkerPoolConfig{Workers: 1, Capacity: 1, JobTimeout: time.Second}, h, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Start(ctx)
		close(done)
	}()

	require.NoError(t, pool.Submit(service.Task{JobID: uuid.New()}))
	<-h.started // worker busy with the first task
	require.NoError(t, pool.Submit(service.Task{JobID: uuid.New()}))

	err := pool.Submit(service.Task{JobID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrQueueFull)
	assert.Equal(t, 1, pool.Depth())

	close(h.release)
	<-h.started
	assert.Eventually(t, func() bool { return h.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestWorkerPool_ShutdownWaitsForInFlight(t *testing.T) {
	h := &recordingHandler{release: make(chan struct{}), started: make(chan struct{}, 1)}
	pool := service.NewWorkerPool(service.WorkerPoolConfig{Workers: 1, Capacity: 1, JobTimeout: time.Second}, h, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Start(ctx)
		close(done)
	}()

	require.NoError(t, pool.Submit(service.Task{JobID: uuid.New()}))
	<-h.started
	cancel()

	select {
	case <-done:
		t.Fatal("pool stopped before in-flight job finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(h.release)
	<-done
	assert.Equal(t, 1, h.count())
}
