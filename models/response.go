package models

import "time"

// Envelope is the shared response shape for every API endpoint:
// {success, message?, data?, errors?}.
type Envelope struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Data    any           `json:"data,omitempty"`
	Errors  []ErrorDetail `json:"errors,omitempty"`
}

// OK wraps data in a successful envelope.
func OK(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// Fail wraps error details in a failed envelope.
func Fail(message string, details ...ErrorDetail) Envelope {
	return Envelope{Success: false, Message: message, Errors: details}
}

// TaskView is the API projection of a Task. The artifact is only
// included on the dedicated result endpoint.
type TaskView struct {
	ID                string        `json:"task_id"`
	URL               string        `json:"url"`
	OutputFormat      OutputFormat  `json:"output_format"`
	TransformProvider string        `json:"transform_provider,omitempty"`
	Status            TaskStatus    `json:"status"`
	Progress          int           `json:"progress_percent"`
	StatusMessage     string        `json:"status_message,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
	ExecutionTimeMs   int64         `json:"execution_time_ms,omitempty"`
	ContentSizeBytes  int           `json:"content_size_bytes,omitempty"`
	TokensUsed        int           `json:"tokens_used,omitempty"`
	Metadata          *TaskMetadata `json:"task_metadata,omitempty"`
	ErrorMessage      string        `json:"error_message,omitempty"`
	ErrorDetails      *ErrorDetail  `json:"error_details,omitempty"`
	BatchID           string        `json:"batch_id,omitempty"`
}

// View projects the internal Task into its API shape.
func (t *Task) View() TaskView {
	return TaskView{
		ID:                t.ID,
		URL:               t.URL,
		OutputFormat:      t.OutputFormat,
		TransformProvider: t.TransformProvider,
		Status:            t.Status,
		Progress:          t.Progress,
		StatusMessage:     t.StatusMessage,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
		CompletedAt:       t.CompletedAt,
		ExecutionTimeMs:   t.ExecutionTimeMs,
		ContentSizeBytes:  t.ContentSizeBytes,
		TokensUsed:        t.TokensUsed,
		Metadata:          t.Metadata,
		ErrorMessage:      t.ErrorMessage,
		ErrorDetails:      t.ErrorDetails,
		BatchID:           t.BatchID,
	}
}

// TaskResultView is the payload of GET /scrape/{id}/result.
type TaskResultView struct {
	TaskID   string        `json:"task_id"`
	Result   string        `json:"result"`
	Metadata *TaskMetadata `json:"metadata,omitempty"`
}

// BatchView is the API projection of a BatchJob.
type BatchView struct {
	ID                  string            `json:"batch_id"`
	Name                string            `json:"name,omitempty"`
	Status              BatchStatus       `json:"status"`
	Progress            int               `json:"progress_percent"`
	Total               int               `json:"total_urls"`
	Completed           int               `json:"completed_tasks"`
	Failed              int               `json:"failed_tasks"`
	Running             int               `json:"running_tasks"`
	Pending             int               `json:"pending_tasks"`
	TaskIDs             map[string]string `json:"task_ids,omitempty"`
	Errors              map[string]string `json:"errors,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	StartedAt           *time.Time        `json:"started_at,omitempty"`
	FinishedAt          *time.Time        `json:"finished_at,omitempty"`
	EstimatedCompletion *time.Time        `json:"estimated_completion,omitempty"`
}

// View projects the internal BatchJob into its API shape.
func (b *BatchJob) View() BatchView {
	return BatchView{
		ID:                  b.ID,
		Name:                b.Name,
		Status:              b.Status,
		Progress:            b.Progress,
		Total:               len(b.URLs),
		Completed:           b.Completed,
		Failed:              b.Failed,
		Running:             b.Running,
		Pending:             b.Pending,
		TaskIDs:             b.TaskIDs,
		Errors:              b.Errors,
		CreatedAt:           b.CreatedAt,
		StartedAt:           b.StartedAt,
		FinishedAt:          b.FinishedAt,
		EstimatedCompletion: b.EstimatedCompletion,
	}
}

// PoolStats reports the state of the browser pool.
type PoolStats struct {
	TotalEngines      int     `json:"total_engines"`
	Active            int     `json:"active"`
	Available         int     `json:"available"`
	TotalAcquisitions int64   `json:"total_acquisitions"`
	AverageWaitMs     float64 `json:"average_wait_ms"`
	PeakConcurrentUse int     `json:"peak_concurrent_use"`
}

// CacheStats reports combined cache-tier statistics.
type CacheStats struct {
	MemoryEntries  int            `json:"memory_entries"`
	MemoryBytes    int64          `json:"memory_bytes"`
	RemoteEnabled  bool           `json:"remote_enabled"`
	RemoteStats    map[string]any `json:"remote_stats,omitempty"`
	HitRate        float64        `json:"hit_rate"`
	TotalRequests  int64          `json:"total_requests"`
	TotalHits      int64          `json:"total_hits"`
	TotalEvictions int64          `json:"total_evictions"`
}

// RegistryStats reports task-manager rollup counters.
type RegistryStats struct {
	Active      int     `json:"active_tasks"`
	Completed   int     `json:"completed_tasks"`
	Succeeded   int     `json:"succeeded_tasks"`
	Failed      int     `json:"failed_tasks"`
	SuccessRate float64 `json:"success_rate"`
}

// HealthView is the payload of GET /health.
type HealthView struct {
	API               string `json:"api"`
	TransformProvider string `json:"transform_provider"`
	Database          string `json:"database"`
	MLPipeline        string `json:"ml_pipeline"`
	Uptime            string `json:"uptime"`
	Version           string `json:"version"`
}

// MemoryStats is the payload of GET /stats/memory.
type MemoryStats struct {
	RSSMb        float64 `json:"rss_mb"`
	HeapAllocMb  float64 `json:"heap_alloc_mb"`
	HeapInuseMb  float64 `json:"heap_inuse_mb"`
	Percent      float64 `json:"percent"`
	NumGoroutine int     `json:"num_goroutine"`
	NumGC        uint32  `json:"num_gc"`
}
