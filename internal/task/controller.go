package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/logger"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/models"
)

// Controller owns the lifecycle of one discovery task. All mutation goes
// through it; the pipeline never touches the task struct directly. Terminal
// states are sticky: once complete, error or canceled, nothing transitions
// the task again.
type Controller struct {
	mu       sync.Mutex
	task     models.SearchTask
	canceled bool

	store     StateStore
	publisher *Publisher
	log       *logger.Logger
}

func NewController(taskID string, terms, engines []string, store StateStore, publisher *Publisher) *Controller {
	return &Controller{
		task: models.SearchTask{
			TaskID:     taskID,
			QueryTerms: terms,
			Engines:    engines,
			Status:     models.TaskIdle,
		},
		store:     store,
		publisher: publisher,
		log:       logger.ForTask(taskID),
	}
}

// Start moves the task from idle to running.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.task.Status != models.TaskIdle {
		return fmt.Errorf("task %s already started (status %s)", c.task.TaskID, c.task.Status)
	}
	c.task.Status = models.TaskRunning
	c.task.StartedAt = time.Now().UTC()
	c.persist(ctx)
	c.emit("started", "")
	return nil
}

// Cancel requests cooperative cancellation. The running pipeline observes it
// at its next checkpoint; an already-terminal task is left untouched.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.task.Status.Terminal() {
		return
	}
	c.canceled = true
	c.log.Info().Msg("cancellation requested")
}

// Canceled is polled by the pipeline before each engine and before each link.
func (c *Controller) Canceled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canceled
}

// MarkVisited records a URL the task accepted for fetching. The list is
// append-only; the resolver's duplicate check keeps it unique.
func (c *Controller) MarkVisited(ctx context.Context, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.task.VisitedURLs = append(c.task.VisitedURLs, url)
	c.task.TotalURLs = len(c.task.VisitedURLs)
	c.persist(ctx)
	c.emit("visiting", url)
}

// Visited returns the set of accepted URLs for duplicate checks.
func (c *Controller) Visited() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	visited := make(map[string]bool, len(c.task.VisitedURLs))
	for _, u := range c.task.VisitedURLs {
		visited[u] = true
	}
	return visited
}

// AddResult records one successfully persisted tender.
func (c *Controller) AddResult(ctx context.Context, tender models.Tender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.task.Results = append(c.task.Results, tender)
	switch tender.Status {
	case models.TenderOpen:
		c.task.Summary.OpenCount++
	default:
		c.task.Summary.ClosedCount++
	}
	c.task.Summary.TotalCount++
	c.persist(ctx)
	c.emit("found", tender.SourceURL)
}

// Complete moves a running task to its success terminal. If cancellation was
// requested first, the terminal is canceled instead.
func (c *Controller) Complete(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.task.Status.Terminal() {
		return
	}
	if c.canceled {
		c.task.Status = models.TaskCanceled
		c.task.Message = "canceled by request"
	} else {
		c.task.Status = models.TaskComplete
	}
	c.persist(ctx)
	c.emit(string(c.task.Status), "")
	c.log.Info().
		Int("total", c.task.Summary.TotalCount).
		Int("open", c.task.Summary.OpenCount).
		Str("status", string(c.task.Status)).
		Msg("task finished")
}

// Fail moves a running task to its error terminal.
func (c *Controller) Fail(ctx context.Context, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.task.Status.Terminal() {
		return
	}
	c.task.Status = models.TaskError
	c.task.Message = cause.Error()
	c.persist(ctx)
	c.emit("error", "")
	c.log.WithError(cause).Error().Msg("task failed")
}

// Snapshot returns a copy of the task state for API reads.
func (c *Controller) Snapshot() models.SearchTask {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := c.task
	snapshot.QueryTerms = append([]string(nil), c.task.QueryTerms...)
	snapshot.Engines = append([]string(nil), c.task.Engines...)
	snapshot.VisitedURLs = append([]string(nil), c.task.VisitedURLs...)
	snapshot.Results = append([]models.Tender(nil), c.task.Results...)
	return snapshot
}

func (c *Controller) TaskID() string {
	return c.task.TaskID
}

// persist is best-effort: losing a state write degrades progress reads, not
// the task itself. Callers hold the mutex.
func (c *Controller) persist(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, &c.task); err != nil {
		c.log.WithError(err).Warn().Msg("task state save failed")
	}
}

// emit publishes a progress event. Callers hold the mutex.
func (c *Controller) emit(stage, url string) {
	if c.publisher == nil {
		return
	}
	c.publisher.Emit(ProgressEvent{
		TaskID:  c.task.TaskID,
		Stage:   stage,
		URL:     url,
		Visited: c.task.TotalURLs,
		Total:   c.task.Summary.TotalCount,
	})
}

// Registry tracks in-flight controllers so the API can cancel and inspect
// running tasks without round-tripping through the state store.
type Registry struct {
	mu     sync.RWMutex
	active map[string]*Controller
}

func NewRegistry() *Registry {
	return &Registry{active: make(map[string]*Controller)}
}

func (r *Registry) Add(c *Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[c.TaskID()] = c
}

func (r *Registry) Get(taskID string) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.active[taskID]
	return c, ok
}

func (r *Registry) Remove(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, taskID)
}
