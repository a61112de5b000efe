package event

import (
	"bytes"
	"encoding/json"
	"fmt"

	"ecrwatch/pkg/errors"
	"ecrwatch/pkg/models"
)

const retryCountField = "retryCount"

// PushEvent is the normalized view of a registry push. RetryCount is 0 when
// the event has never been resubmitted.
type PushEvent struct {
	EventID        string
	AccountID      string
	Region         string
	RepositoryName string
	ImageTag       string
	RetryCount     int

	raw map[string]json.RawMessage
}

// HasRetryCount reports whether the event carried a retry counter.
func (e *PushEvent) HasRetryCount() bool {
	return e.RetryCount > 0
}

// WithRetryCount returns a copy of e carrying retry counter n.
func (e *PushEvent) WithRetryCount(n int) *PushEvent {
	out := *e
	out.RetryCount = n
	return &out
}

// Parse extracts a PushEvent from a raw EventBridge payload. Any missing or
// non-string required field yields an errors.ErrParse.
func Parse(raw []byte) (*PushEvent, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.ErrParse.WithCause(err)
	}
	if fields == nil {
		return nil, errors.ErrParse.WithDetail("message", "event is not a JSON object")
	}

	var ev models.ImageActionEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, errors.ErrParse.WithCause(err)
	}

	if err := models.ValidateImageActionEvent(&ev); err != nil {
		return nil, errors.ErrParse.WithCause(err)
	}

	out := &PushEvent{
		EventID:        ev.ID,
		AccountID:      ev.Account,
		Region:         ev.Region,
		RepositoryName: ev.Detail.RepositoryName,
		ImageTag:       ev.Detail.ImageTag,
		raw:            fields,
	}
	if ev.RetryCount != nil {
		if *ev.RetryCount < 0 {
			return nil, errors.ErrParse.WithDetail("message", fmt.Sprintf("negative retryCount %d", *ev.RetryCount))
		}
		out.RetryCount = *ev.RetryCount
	}

	return out, nil
}

// Encode renders the event as it should be resubmitted: the original payload
// with retryCount set. Events built without a payload are encoded from their
// normalized fields.
func Encode(e *PushEvent) ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(e.raw)+1)
	for k, v := range e.raw {
		fields[k] = v
	}

	if len(e.raw) == 0 {
		b := models.NewImageActionEventBuilder().
			WithAccount(e.AccountID).
			WithRegion(e.Region).
			WithRepository(e.RepositoryName).
			WithTag(e.ImageTag)
		if e.EventID != "" {
			b = b.WithID(e.EventID)
		}
		body, err := json.Marshal(b.Build())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event: %w", err)
		}
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
	}

	delete(fields, retryCountField)
	if e.RetryCount > 0 {
		fields[retryCountField] = json.RawMessage(fmt.Sprintf("%d", e.RetryCount))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}
