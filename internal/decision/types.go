package decision

import "fmt"

// ServiceStatus is the control-plane status of a managed service.
type ServiceStatus string

const (
	StatusRunning             ServiceStatus = "RUNNING"
	StatusOperationInProgress ServiceStatus = "OPERATION_IN_PROGRESS"
)

// ServiceDescriptor is a fresh snapshot of the target service. Source is the
// control plane's source configuration, carried opaquely so an update can
// send it back with only the image identifier changed.
type ServiceDescriptor struct {
	ServiceARN             string
	ServiceName            string
	Status                 ServiceStatus
	ImageIdentifier        string
	AutoDeploymentsEnabled bool
	Source                 interface{}
}

type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionDeploy
	ActionUpdate
	// ActionRetry asks the scheduler to resubmit the event later.
	ActionRetry
)

func (k ActionKind) String() string {
	switch k {
	case ActionNone:
		return "NONE"
	case ActionDeploy:
		return "DEPLOY"
	case ActionUpdate:
		return "UPDATE"
	case ActionRetry:
		return "RETRY"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// State is the terminal state an event reached.
type State string

const (
	StateUnmatched          State = "UNMATCHED"
	StateFiltered           State = "FILTERED"
	StateInvalidTag         State = "INVALID_TAG"
	StateMismatch           State = "MISMATCH"
	StateServiceUnavailable State = "SERVICE_UNAVAILABLE"
	StateSkipAutoDeploy     State = "SKIP_AUTODEPLOY"
	StateMalformedImage     State = "MALFORMED_IMAGE"
	StateSkipLatest         State = "SKIP_LATEST"
	StateDeploy             State = "DEPLOY"
	StateUpdate             State = "UPDATE"
	StateRetryRequested     State = "RETRY_REQUESTED"
	StateDuplicate          State = "DUPLICATE"
)

// Decision is the outcome of evaluating one event. ImageIdentifier is set
// for ActionUpdate and for an ActionRetry deferring an update.
type Decision struct {
	Action          ActionKind
	State           State
	ImageIdentifier string
	Reason          string
}

func none(state State, format string, args ...interface{}) Decision {
	return Decision{Action: ActionNone, State: state, Reason: fmt.Sprintf(format, args...)}
}

// NoAction builds a Decision that takes no action, for states the engine
// does not reach itself.
func NoAction(state State, reason string) Decision {
	return Decision{Action: ActionNone, State: state, Reason: reason}
}
