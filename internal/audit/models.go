package audit

import "time"

// Record is one decision that reached a service, with the outcome of the
// action taken for it.
type Record struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	Repository  string    `json:"repository"`
	ImageTag    string    `json:"image_tag"`
	ServiceARN  string    `json:"service_arn"`
	State       string    `json:"state"`
	Action      string    `json:"action"`
	Image       string    `json:"image,omitempty"`
	OperationID string    `json:"operation_id,omitempty"`
	RetryCount  int       `json:"retry_count"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	ServiceARN string
	Limit      int
}
