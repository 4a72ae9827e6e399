package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/models"
)

type memoryStateStore struct {
	mu    sync.Mutex
	tasks map[string]models.SearchTask
}

func newMemoryStateStore() *memoryStateStore {
	return &memoryStateStore{tasks: make(map[string]models.SearchTask)}
}

func (s *memoryStateStore) Save(_ context.Context, task *models.SearchTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.TaskID] = *task
	return nil
}

func (s *memoryStateStore) Load(_ context.Context, taskID string) (*models.SearchTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return &task, nil
}

func (s *memoryStateStore) Delete(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, taskID)
	return nil
}

type captureSink struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (s *captureSink) Publish(_ context.Context, event ProgressEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) stages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Stage
	}
	return out
}

func TestControllerLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStateStore()
	sink := &captureSink{}
	pub := NewPublisher(ctx, sink)
	defer pub.Close()

	c := NewController("task-1", []string{"tender"}, []string{"google"}, store, pub)
	require.NoError(t, c.Start(ctx))

	c.MarkVisited(ctx, "https://example.com/tender-1")
	c.AddResult(ctx, models.Tender{
		SourceURL: "https://example.com/tender-1",
		Status:    models.TenderOpen,
	})
	c.Complete(ctx)

	snap := c.Snapshot()
	assert.Equal(t, models.TaskComplete, snap.Status)
	assert.Equal(t, []string{"https://example.com/tender-1"}, snap.VisitedURLs)
	assert.Equal(t, 1, snap.Summary.OpenCount)
	assert.Equal(t, 0, snap.Summary.ClosedCount)
	assert.Equal(t, 1, snap.Summary.TotalCount)

	saved, err := store.Load(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskComplete, saved.Status)
}

func TestControllerDoubleStart(t *testing.T) {
	ctx := context.Background()
	c := NewController("task-2", nil, nil, newMemoryStateStore(), nil)
	require.NoError(t, c.Start(ctx))
	assert.Error(t, c.Start(ctx))
}

func TestControllerCancelBeforeComplete(t *testing.T) {
	ctx := context.Background()
	c := NewController("task-3", nil, nil, newMemoryStateStore(), nil)
	require.NoError(t, c.Start(ctx))

	c.Cancel()
	assert.True(t, c.Canceled())

	c.Complete(ctx)
	assert.Equal(t, models.TaskCanceled, c.Snapshot().Status)
}

func TestControllerTerminalIsSticky(t *testing.T) {
	ctx := context.Background()
	c := NewController("task-4", nil, nil, newMemoryStateStore(), nil)
	require.NoError(t, c.Start(ctx))

	c.Fail(ctx, errors.New("boom"))
	assert.Equal(t, models.TaskError, c.Snapshot().Status)

	c.Complete(ctx)
	assert.Equal(t, models.TaskError, c.Snapshot().Status)

	c.Cancel()
	assert.False(t, c.Canceled())
	assert.Equal(t, models.TaskError, c.Snapshot().Status)
}

func TestControllerProgressEvents(t *testing.T) {
	ctx := context.Background()
	sink := &captureSink{}
	pub := NewPublisher(ctx, sink)

	c := NewController("task-5", nil, nil, newMemoryStateStore(), pub)
	require.NoError(t, c.Start(ctx))
	c.MarkVisited(ctx, "https://example.com/a")
	c.Complete(ctx)

	pub.Close()
	assert.Equal(t, []string{"started", "visiting", "complete"}, sink.stages())
}

func TestControllerClosedCount(t *testing.T) {
	ctx := context.Background()
	c := NewController("task-6", nil, nil, newMemoryStateStore(), nil)
	require.NoError(t, c.Start(ctx))

	c.AddResult(ctx, models.Tender{SourceURL: "https://example.com/old", Status: models.TenderClosed})
	snap := c.Snapshot()
	assert.Equal(t, 1, snap.Summary.ClosedCount)
	assert.Equal(t, 1, snap.Summary.TotalCount)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	c := NewController("task-7", nil, nil, nil, nil)

	r.Add(c)
	got, ok := r.Get("task-7")
	require.True(t, ok)
	assert.Same(t, c, got)

	r.Remove("task-7")
	_, ok = r.Get("task-7")
	assert.False(t, ok)
}

func TestPublisherEmitNonBlocking(t *testing.T) {
	block := make(chan struct{})
	sink := &blockingSink{release: block}
	pub := NewPublisher(context.Background(), sink)

	// Far more events than the buffer holds; Emit must return regardless.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			pub.Emit(ProgressEvent{TaskID: "task-8", Stage: "visiting"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a slow sink")
	}

	close(block)
	pub.Close()
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Publish(context.Context, ProgressEvent) error {
	<-s.release
	return nil
}
