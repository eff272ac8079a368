package models

import "time"

// BatchStatus is the lifecycle state of a batch job.
type BatchStatus string

const (
	BatchPending             BatchStatus = "pending"
	BatchRunning             BatchStatus = "running"
	BatchCompleted           BatchStatus = "completed"
	BatchCompletedWithErrors BatchStatus = "completed_with_errors"
	BatchFailed              BatchStatus = "failed"
	BatchCancelled           BatchStatus = "cancelled"
)

// BatchConfig is the configuration snapshot shared by every task in a batch.
type BatchConfig struct {
	OutputFormat        OutputFormat  `json:"output_format"`
	TransformProvider   string        `json:"transform_provider,omitempty"`
	TransformModel      string        `json:"transform_model,omitempty"`
	CustomInstructions  string        `json:"custom_instructions,omitempty"`
	UseCache            bool          `json:"use_cache"`
	ParallelLimit       int           `json:"parallel_limit"`
	DelayBetweenRequest time.Duration `json:"delay_between_requests"`
	WebhookURL          string        `json:"webhook_url,omitempty"`
	WebhookSecret       string        `json:"-"`
}

// BatchJob is the parent record coordinating N single-URL tasks under one
// semaphore and one configuration snapshot.
//
// Invariant: Completed + Failed + Running + Pending == len(URLs).
type BatchJob struct {
	ID     string
	Name   string
	URLs   []string
	Config BatchConfig

	Status   BatchStatus
	Progress int // 0-100

	Completed int
	Failed    int
	Running   int
	Pending   int

	// TaskIDs maps each URL to the task created for it.
	TaskIDs map[string]string
	// Errors maps a URL to its failure message.
	Errors map[string]string

	CreatedAt           time.Time
	StartedAt           *time.Time
	FinishedAt          *time.Time
	EstimatedCompletion *time.Time
}

// Clone returns a deep copy for handing out snapshots.
func (b *BatchJob) Clone() *BatchJob {
	c := *b
	c.URLs = append([]string(nil), b.URLs...)
	c.TaskIDs = make(map[string]string, len(b.TaskIDs))
	for k, v := range b.TaskIDs {
		c.TaskIDs[k] = v
	}
	c.Errors = make(map[string]string, len(b.Errors))
	for k, v := range b.Errors {
		c.Errors[k] = v
	}
	for _, p := range []**time.Time{&c.StartedAt, &c.FinishedAt, &c.EstimatedCompletion} {
		if *p != nil {
			at := **p
			*p = &at
		}
	}
	return &c
}

// Terminal reports whether the batch reached a final state.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchCompleted, BatchCompletedWithErrors, BatchFailed, BatchCancelled:
		return true
	}
	return false
}
