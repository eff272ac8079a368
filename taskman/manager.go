// Package taskman implements the process-wide task registry: a mutable
// map of in-flight tasks plus a bounded FIFO history of terminal ones.
package taskman

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

// DefaultHistoryCapacity bounds the completed-task history.
const DefaultHistoryCapacity = 1000

// Patch carries the optional fields merged into a task by Update.
// Nil fields are left untouched.
type Patch struct {
	Status        *models.TaskStatus
	Progress      *int
	StatusMessage *string
	Metadata      *models.TaskMetadata
	BatchID       *string
}

// Result carries the fields stamped onto a task on terminal transition.
type Result struct {
	Artifact         string
	Metadata         *models.TaskMetadata
	ExecutionTimeMs  int64
	ContentSizeBytes int
	TokensUsed       int
}

// Manager is the concurrency-safe task registry. All public methods
// acquire the single registry lock exactly once; the unexported core
// methods assume the lock is held (no reentrant locking).
type Manager struct {
	mu        sync.Mutex
	active    map[string]*models.Task
	completed []*models.Task // FIFO, oldest first
	capacity  int

	succeeded int64
	failed    int64
}

// New creates a Manager with the given history capacity
// (DefaultHistoryCapacity when <= 0).
func New(capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &Manager{
		active:   make(map[string]*models.Task),
		capacity: capacity,
	}
}

// Add registers a new pending task. Returns false if the id exists.
func (m *Manager) Add(task *models.Task) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[task.ID]; exists {
		return false
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	m.active[task.ID] = task
	return true
}

// Update merges the patch into an active task and stamps updated_at.
// It is a no-op for unknown ids. Status transitions outside the DAG
// and progress regressions are rejected (logged, not applied).
func (m *Manager) Update(id string, patch Patch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.active[id]
	if !ok {
		return
	}

	if patch.Status != nil && *patch.Status != task.Status {
		if !task.Status.CanTransition(*patch.Status) {
			slog.Warn("taskman: rejected status transition",
				"task_id", id, "from", task.Status, "to", *patch.Status)
		} else {
			task.Status = *patch.Status
		}
	}
	if patch.Progress != nil {
		// Progress is monotonic within a run.
		if *patch.Progress > task.Progress && *patch.Progress <= 100 {
			task.Progress = *patch.Progress
		}
	}
	if patch.StatusMessage != nil {
		task.StatusMessage = *patch.StatusMessage
	}
	if patch.Metadata != nil {
		task.Metadata = patch.Metadata
	}
	if patch.BatchID != nil {
		task.BatchID = *patch.BatchID
	}
	task.UpdatedAt = time.Now()
}

// Get returns a snapshot of the task, searching active then history.
func (m *Manager) Get(id string) (*models.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if task, ok := m.active[id]; ok {
		return task.Clone(), true
	}
	for i := len(m.completed) - 1; i >= 0; i-- {
		if m.completed[i].ID == id {
			return m.completed[i].Clone(), true
		}
	}
	return nil, false
}

// Complete atomically moves an active task to the history with
// status=completed. Returns false for unknown ids or invalid transitions.
func (m *Manager) Complete(id string, res Result) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finishLocked(id, models.StatusCompleted, "", nil, &res)
}

// Fail moves an active task to the history with status=failed.
func (m *Manager) Fail(id, errMsg string, details *models.ErrorDetail) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finishLocked(id, models.StatusFailed, errMsg, details, nil)
}

// Cancel moves an active task to the history with status=cancelled.
// Completed tasks cannot be cancelled.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finishLocked(id, models.StatusCancelled, "cancelled by client", nil, nil)
}

// finishLocked is the shared terminal transition. Caller holds m.mu.
func (m *Manager) finishLocked(id string, status models.TaskStatus, errMsg string, details *models.ErrorDetail, res *Result) bool {
	task, ok := m.active[id]
	if !ok {
		return false
	}
	if !task.Status.CanTransition(status) {
		slog.Warn("taskman: rejected terminal transition",
			"task_id", id, "from", task.Status, "to", status,
			"active", len(m.active))
		return false
	}

	now := time.Now()
	task.Status = status
	task.UpdatedAt = now
	task.CompletedAt = &now

	switch status {
	case models.StatusCompleted:
		task.Progress = 100
		task.StatusMessage = "completed"
		if res != nil {
			task.ResultArtifact = res.Artifact
			if res.Metadata != nil {
				task.Metadata = res.Metadata
			}
			task.ExecutionTimeMs = res.ExecutionTimeMs
			task.ContentSizeBytes = res.ContentSizeBytes
			task.TokensUsed = res.TokensUsed
		}
		m.succeeded++
	case models.StatusFailed:
		task.ErrorMessage = errMsg
		task.ErrorDetails = details
		task.StatusMessage = "failed"
		m.failed++
	case models.StatusCancelled:
		task.ErrorMessage = errMsg
		task.StatusMessage = "cancelled"
	}

	delete(m.active, id)
	m.completed = append(m.completed, task)
	if len(m.completed) > m.capacity {
		// Evict oldest.
		m.completed = m.completed[len(m.completed)-m.capacity:]
	}
	return true
}

// ListActive returns snapshots of all in-flight tasks, newest first.
func (m *Manager) ListActive() []*models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.Task, 0, len(m.active))
	for _, t := range m.active {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ListCompleted returns up to limit history snapshots, newest first.
// limit <= 0 means all.
func (m *Manager) ListCompleted(limit int) []*models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.completed)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*models.Task, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.completed[i].Clone())
	}
	return out
}

// Stats returns rollup counters for the registry.
func (m *Manager) Stats() models.RegistryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := models.RegistryStats{
		Active:    len(m.active),
		Completed: len(m.completed),
		Succeeded: int(m.succeeded),
		Failed:    int(m.failed),
	}
	if total := m.succeeded + m.failed; total > 0 {
		stats.SuccessRate = float64(m.succeeded) / float64(total)
	}
	return stats
}

// Sweep drops history entries older than maxAge and returns the count.
// Wired to a cron schedule at the composition root.
func (m *Manager) Sweep(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	kept := m.completed[:0]
	dropped := 0
	for _, t := range m.completed {
		if t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, t)
	}
	m.completed = kept
	if dropped > 0 {
		slog.Debug("taskman: swept history", "dropped", dropped, "kept", len(kept))
	}
	return dropped
}
