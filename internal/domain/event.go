package domain

// EventStatus enumerates the statuses carried on the notification channel.
type EventStatus string

const (
	StatusQueued     EventStatus = "queued"
	StatusProcessing EventStatus = "processing"
	StatusProgress   EventStatus = "progress"
	StatusCompleted  EventStatus = "completed"
	StatusFailed     EventStatus = "failed"
	StatusError      EventStatus = "error"
)

// Pipeline names the stage a progress event originated from.
type Pipeline string

const (
	PipelineBase    Pipeline = "base"
	PipelineRefiner Pipeline = "refiner"
)

// Event is one message on a job's notification channel. Steps are 1-based so
// that omitempty never swallows a real progress step.
type Event struct {
	Status         EventStatus `json:"status"`
	Position       int         `json:"position,omitempty"`
	Pipeline       Pipeline    `json:"pipeline,omitempty"`
	Step           int         `json:"step,omitempty"`
	Image          string      `json:"image,omitempty"`
	VideoURL       string      `json:"video_url,omitempty"`
	Message        string      `json:"message,omitempty"`
	Warning        string      `json:"warning,omitempty"`
	ProcessingTime float64     `json:"processing_time,omitempty"`
}

// Terminal reports whether the event ends a subscriber stream.
func (e Event) Terminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusFailed
}
