package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateImageActionEvent checks the fields the watcher needs to act on a push.
func ValidateImageActionEvent(ev *ImageActionEvent) error {
	if ev == nil {
		return &ValidationError{
			Field:   "event",
			Message: "event cannot be nil",
		}
	}

	if ev.Account == "" {
		return &ValidationError{
			Field:   "account",
			Message: "account is required",
		}
	}

	if ev.Region == "" {
		return &ValidationError{
			Field:   "region",
			Message: "region is required",
		}
	}

	if ev.Detail.RepositoryName == "" {
		return &ValidationError{
			Field:   "detail.repository-name",
			Message: "repository name is required",
		}
	}

	if ev.Detail.ImageTag == "" {
		return &ValidationError{
			Field:   "detail.image-tag",
			Message: "image tag is required",
		}
	}

	return nil
}

func ValidateMatcherEntry(entry MatcherEntry) error {
	if entry.Repository == "" {
		return &ValidationError{
			Field:   "repository",
			Message: "repository is required",
		}
	}

	if entry.SemVersion == "" {
		return &ValidationError{
			Field:   "semVersion",
			Message: "semVersion is required",
		}
	}

	if entry.ServiceARN == "" {
		return &ValidationError{
			Field:   "serviceArn",
			Message: "serviceArn is required",
		}
	}

	return nil
}
