package models

// ScrapeTaskRequest is the payload for POST /api/v1/scrape.
type ScrapeTaskRequest struct {
	// URL is the target page to scrape. Required.
	URL string `json:"url" binding:"required,safe_url"`

	// OutputFormat controls the artifact format.
	// Allowed: markdown (default), json, xml, csv, html, text.
	OutputFormat string `json:"output_format,omitempty" binding:"omitempty,oneof=markdown json xml csv html text"`

	// TransformProvider names the optional post-extraction transform
	// provider. Empty disables the transform.
	TransformProvider string `json:"transform_provider,omitempty"`

	// TransformModel overrides the provider's default model.
	TransformModel string `json:"transform_model,omitempty"`

	// CustomInstructions is free text handed to the transform.
	CustomInstructions string `json:"custom_instructions,omitempty" binding:"omitempty,max=4000"`

	// UseCache enables fingerprint cache lookups. Default: true.
	UseCache *bool `json:"use_cache,omitempty"`

	// Stealth enables anti-bot-detection evasions on the rendering context.
	Stealth bool `json:"stealth,omitempty"`

	// RemoveOverlays strips cookie banners and popup overlays before
	// extraction.
	RemoveOverlays bool `json:"remove_overlays,omitempty"`

	// CSSSelector optionally narrows the HTML handed to the extractor.
	CSSSelector string `json:"css_selector,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeTaskRequest) Defaults() {
	if r.OutputFormat == "" {
		r.OutputFormat = string(FormatMarkdown)
	}
	if r.UseCache == nil {
		t := true
		r.UseCache = &t
	}
}

// UseTransform reports whether the optional transform step is configured.
// The transform runs iff a provider is named; there is no separate flag.
func (r *ScrapeTaskRequest) UseTransform() bool {
	return r.TransformProvider != ""
}

// BatchScrapeRequest is the payload for POST /api/v1/scrape/batch.
type BatchScrapeRequest struct {
	// URLs is the list of target pages. Required, at most 100.
	URLs []string `json:"urls" binding:"required,min=1,max=100,dive,safe_url"`

	// Name is an optional human label for the batch.
	Name string `json:"name,omitempty" binding:"omitempty,max=200"`

	OutputFormat       string `json:"output_format,omitempty" binding:"omitempty,oneof=markdown json xml csv html text"`
	TransformProvider  string `json:"transform_provider,omitempty"`
	TransformModel     string `json:"transform_model,omitempty"`
	CustomInstructions string `json:"custom_instructions,omitempty" binding:"omitempty,max=4000"`
	UseCache           *bool  `json:"use_cache,omitempty"`

	// ParallelLimit caps concurrent tasks within the batch. Default: 3.
	ParallelLimit int `json:"parallel_limit,omitempty" binding:"omitempty,min=1,max=20"`

	// DelayBetweenRequests is a per-URL pause in milliseconds.
	DelayBetweenRequests int `json:"delay_between_requests,omitempty" binding:"omitempty,min=0,max=60000"`

	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *BatchScrapeRequest) Defaults() {
	if r.OutputFormat == "" {
		r.OutputFormat = string(FormatMarkdown)
	}
	if r.UseCache == nil {
		t := true
		r.UseCache = &t
	}
	if r.ParallelLimit == 0 {
		r.ParallelLimit = 3
	}
}
