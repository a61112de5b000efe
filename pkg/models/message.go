package models

// ImageActionEvent is the EventBridge envelope of an ECR "ECR Image Action"
// event. RetryCount is added by the watcher when it resubmits the event.
type ImageActionEvent struct {
	Version    string            `json:"version,omitempty"`
	ID         string            `json:"id,omitempty"`
	DetailType string            `json:"detail-type,omitempty"`
	Source     string            `json:"source,omitempty"`
	Account    string            `json:"account"`
	Time       string            `json:"time,omitempty"`
	Region     string            `json:"region"`
	Resources  []string          `json:"resources,omitempty"`
	Detail     ImageActionDetail `json:"detail"`
	RetryCount *int              `json:"retryCount,omitempty"`
}

type ImageActionDetail struct {
	Result         string `json:"result,omitempty"`
	RepositoryName string `json:"repository-name"`
	ImageDigest    string `json:"image-digest,omitempty"`
	ActionType     string `json:"action-type,omitempty"`
	ImageTag       string `json:"image-tag"`
}

const (
	SourceECR           = "aws.ecr"
	DetailTypeECRAction = "ECR Image Action"
	ActionTypePush      = "PUSH"
	ActionResultSuccess = "SUCCESS"
)

// MatcherEntry is one element of the version matcher document.
type MatcherEntry struct {
	Repository string `json:"repository"`
	SemVersion string `json:"semVersion"`
	ServiceARN string `json:"serviceArn"`
	Condition  string `json:"condition,omitempty"`
}
