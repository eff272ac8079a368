package models

import (
	"math"
	"time"
)

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status is final. Once a task leaves
// {pending, running} it never transitions again.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the status may move to next.
// Transitions form a DAG: pending → running → {completed, failed, cancelled}.
// Pending tasks may also be failed or cancelled directly (e.g. dispatch
// errors, cancellation before pickup).
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusFailed || next == StatusCancelled
	case StatusRunning:
		return next.Terminal()
	}
	return false
}

// OutputFormat is the requested artifact format.
type OutputFormat string

const (
	FormatMarkdown OutputFormat = "markdown"
	FormatJSON     OutputFormat = "json"
	FormatXML      OutputFormat = "xml"
	FormatCSV      OutputFormat = "csv"
	FormatHTML     OutputFormat = "html"
	FormatText     OutputFormat = "text"
)

// ValidFormat reports whether f is a supported output format.
func ValidFormat(f OutputFormat) bool {
	switch f {
	case FormatMarkdown, FormatJSON, FormatXML, FormatCSV, FormatHTML, FormatText:
		return true
	}
	return false
}

// Task represents one URL extraction job. It is internal state; the API
// layer projects it into a TaskView before serialization.
type Task struct {
	ID                 string
	URL                string
	OutputFormat       OutputFormat
	TransformProvider  string
	TransformModel     string
	CustomInstructions string

	Status        TaskStatus
	Progress      int // 0-100, monotonic within a run
	StatusMessage string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	ResultArtifact   string
	Metadata         *TaskMetadata
	ExecutionTimeMs  int64
	ContentSizeBytes int
	TokensUsed       int

	ErrorMessage string
	ErrorDetails *ErrorDetail

	BatchID string // non-empty when the task belongs to a batch
}

// Clone returns a deep copy so registry reads can hand out snapshots.
func (t *Task) Clone() *Task {
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	if t.Metadata != nil {
		m := *t.Metadata
		if t.Metadata.Tags != nil {
			m.Tags = append([]string(nil), t.Metadata.Tags...)
		}
		c.Metadata = &m
	}
	if t.ErrorDetails != nil {
		d := *t.ErrorDetails
		c.ErrorDetails = &d
	}
	return &c
}

// ContentExtraction is the structured output of the content extractor
// for one fetched page.
type ContentExtraction struct {
	Title           string   `json:"title"`
	MainContent     string   `json:"content"`
	Author          string   `json:"author,omitempty"`
	PublicationDate string   `json:"publication_date,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Language        string   `json:"language,omitempty"`
	WordCount       int      `json:"word_count"`
	ReadingTimeMin  int      `json:"reading_time_minutes"`
}

// FillReadingTime derives the reading time from the word count when it
// was not supplied: max(1, round(word_count / 200)).
func (e *ContentExtraction) FillReadingTime() {
	if e.ReadingTimeMin > 0 {
		return
	}
	e.ReadingTimeMin = int(math.Round(float64(e.WordCount) / 200.0))
	if e.ReadingTimeMin < 1 {
		e.ReadingTimeMin = 1
	}
}

// Link is a hyperlink harvested from the page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// Image is an image reference harvested from the page.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// PageData is the raw material handed from the browser pool to the
// content extractor: rendered HTML plus cheap page-level harvest.
type PageData struct {
	RawHTML    string
	Title      string
	FinalURL   string
	StatusCode int
	Meta       map[string]string
	Links      []Link  // capped at 50
	Images     []Image // capped at 20
	Truncated  bool    // HTML was cut at max_content_size
}

// StructuredData aggregates machine-readable page annotations.
type StructuredData struct {
	JSONLD      []map[string]any  `json:"json_ld,omitempty"`
	OpenGraph   map[string]string `json:"open_graph,omitempty"`
	TwitterCard map[string]string `json:"twitter_card,omitempty"`
}

// TaskMetadata carries extraction statistics and page metadata on a
// completed task.
type TaskMetadata struct {
	Title           string          `json:"title,omitempty"`
	Description     string          `json:"description,omitempty"`
	SiteName        string          `json:"site_name,omitempty"`
	Author          string          `json:"author,omitempty"`
	PublicationDate string          `json:"publication_date,omitempty"`
	Language        string          `json:"language,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	WordCount       int             `json:"word_count"`
	ReadingTimeMin  int             `json:"reading_time_minutes"`
	LinkCount       int             `json:"link_count"`
	ImageCount      int             `json:"image_count"`
	FinalURL        string          `json:"final_url,omitempty"`
	StatusCode      int             `json:"status_code,omitempty"`
	Structured      *StructuredData `json:"structured_data,omitempty"`
	OriginalTokens  int             `json:"original_tokens,omitempty"`
	CleanedTokens   int             `json:"cleaned_tokens,omitempty"`
	SavingsPercent  float64         `json:"savings_percent,omitempty"`
	TransformUsed   bool            `json:"transform_used,omitempty"`
	CacheHit        bool            `json:"cache_hit,omitempty"`
}
