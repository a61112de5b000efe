package api

import (
	"encoding/json"

	"ecrwatch/internal/decision"
)

// PreviewRequest asks what the watcher would do with Event if the target
// service looked like Service. A nil Service previews the unavailable case.
type PreviewRequest struct {
	Event   json.RawMessage  `json:"event" binding:"required" swaggertype:"object"`
	Service *ServiceSnapshot `json:"service"`
}

type ServiceSnapshot struct {
	ServiceARN             string `json:"serviceArn"`
	Status                 string `json:"status"`
	ImageIdentifier        string `json:"imageIdentifier" binding:"required"`
	AutoDeploymentsEnabled bool   `json:"autoDeploymentsEnabled"`
}

func (s *ServiceSnapshot) descriptor() *decision.ServiceDescriptor {
	if s == nil {
		return nil
	}
	status := decision.ServiceStatus(s.Status)
	if status == "" {
		status = decision.StatusRunning
	}
	return &decision.ServiceDescriptor{
		ServiceARN:             s.ServiceARN,
		Status:                 status,
		ImageIdentifier:        s.ImageIdentifier,
		AutoDeploymentsEnabled: s.AutoDeploymentsEnabled,
	}
}

type PreviewResponse struct {
	Repository      string `json:"repository"`
	ImageTag        string `json:"imageTag"`
	RetryCount      int    `json:"retryCount"`
	Action          string `json:"action"`
	State           string `json:"state"`
	ImageIdentifier string `json:"imageIdentifier,omitempty"`
	Reason          string `json:"reason"`
}

type ConditionExamplesResponse struct {
	Examples map[string]string `json:"examples"`
}
