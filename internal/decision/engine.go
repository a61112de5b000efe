package decision

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"ecrwatch/internal/constants"
	"ecrwatch/internal/event"
	"ecrwatch/internal/matcher"
)

// ImageIdentifier composes the fully qualified ECR reference of the pushed image.
func ImageIdentifier(ev *event.PushEvent) string {
	return fmt.Sprintf(constants.ImageIdentifierFormat, ev.AccountID, ev.Region, ev.RepositoryName, ev.ImageTag)
}

// Engine decides what to do with a push event. It has no side effects.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Satisfies reports whether the event's tag satisfies the matcher's range.
// When it does not, the returned Decision explains why.
func (e *Engine) Satisfies(ev *event.PushEvent, m *matcher.VersionMatcher) (Decision, bool) {
	version, err := semver.NewVersion(ev.ImageTag)
	if err != nil {
		return none(StateInvalidTag, "tag %q is not a semantic version: %v", ev.ImageTag, err), false
	}

	if !m.Satisfies(version) {
		return none(StateMismatch, "tag %s does not satisfy %s", ev.ImageTag, m.SemVersion), false
	}

	return Decision{}, true
}

// Decide computes the action for ev. svc is nil when the service could not
// be described.
func (e *Engine) Decide(ev *event.PushEvent, m *matcher.VersionMatcher, svc *ServiceDescriptor) Decision {
	if d, ok := e.Satisfies(ev, m); !ok {
		return d
	}

	if svc == nil {
		return none(StateServiceUnavailable, "service %s could not be described", m.ServiceARN)
	}

	if svc.AutoDeploymentsEnabled {
		return none(StateSkipAutoDeploy, "service %s deploys automatically", svc.ServiceARN)
	}

	currentTag, ok := imageTag(svc.ImageIdentifier)
	if !ok {
		return none(StateMalformedImage, "service image %q has no tag", svc.ImageIdentifier)
	}

	if strings.EqualFold(currentTag, constants.LatestTag) {
		return none(StateSkipLatest, "service %s follows the %s tag", svc.ServiceARN, currentTag)
	}

	if sameTag(ev.ImageTag, currentTag) {
		return Decision{
			Action: ActionDeploy,
			State:  StateDeploy,
			Reason: fmt.Sprintf("tag %s was pushed again", ev.ImageTag),
		}
	}

	image := ImageIdentifier(ev)
	if svc.Status == StatusOperationInProgress {
		return Decision{
			Action:          ActionRetry,
			State:           StateRetryRequested,
			ImageIdentifier: image,
			Reason:          fmt.Sprintf("service %s has an operation in progress", svc.ServiceARN),
		}
	}

	return Decision{
		Action:          ActionUpdate,
		State:           StateUpdate,
		ImageIdentifier: image,
		Reason:          fmt.Sprintf("tag %s satisfies %s, service runs %s", ev.ImageTag, m.SemVersion, currentTag),
	}
}

// imageTag returns the part of a "repository:tag" identifier after the
// colon. Digest references have no tag.
func imageTag(identifier string) (string, bool) {
	if strings.Contains(identifier, "@") {
		return "", false
	}
	parts := strings.Split(identifier, ":")
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// sameTag compares semantically when both tags parse, textually otherwise.
func sameTag(eventTag, currentTag string) bool {
	a, errA := semver.NewVersion(eventTag)
	b, errB := semver.NewVersion(currentTag)
	if errA == nil && errB == nil {
		return a.Equal(b)
	}
	return eventTag == currentTag
}
