package decision

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"ecrwatch/internal/event"
	"ecrwatch/internal/matcher"
	"ecrwatch/pkg/models"
)

const serviceARN = "arn:aws:apprunner:us-east-1:123456789012:service/x/y"

func newMatcher(t testing.TB, semVersion string) *matcher.VersionMatcher {
	r, err := matcher.NewRegistry([]models.MatcherEntry{{
		Repository: "svc-a",
		SemVersion: semVersion,
		ServiceARN: serviceARN,
	}})
	require.NoError(t, err)
	m, ok := r.Lookup("svc-a")
	require.True(t, ok)
	return m
}

func newEvent(tag string) *event.PushEvent {
	return &event.PushEvent{
		AccountID:      "123456789012",
		Region:         "us-east-1",
		RepositoryName: "svc-a",
		ImageTag:       tag,
	}
}

func newService(currentTag string, status ServiceStatus) *ServiceDescriptor {
	return &ServiceDescriptor{
		ServiceARN:      serviceARN,
		Status:          status,
		ImageIdentifier: "123456789012.dkr.ecr.us-east-1.amazonaws.com/svc-a:" + currentTag,
	}
}

func TestImageIdentifier(t *testing.T) {
	assert.Equal(t,
		"123456789012.dkr.ecr.us-east-1.amazonaws.com/svc-a:1.2.4",
		ImageIdentifier(newEvent("1.2.4")))
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		semVersion string
		tag        string
		svc        *ServiceDescriptor
		wantAction ActionKind
		wantState  State
		wantImage  string
	}{
		{
			name:       "newer tag updates",
			semVersion: ">1.2.2",
			tag:        "1.2.4",
			svc:        newService("1.2.2", StatusRunning),
			wantAction: ActionUpdate,
			wantState:  StateUpdate,
			wantImage:  "123456789012.dkr.ecr.us-east-1.amazonaws.com/svc-a:1.2.4",
		},
		{
			name:       "same tag deploys",
			semVersion: ">1.2.2",
			tag:        "1.2.4",
			svc:        newService("1.2.4", StatusRunning),
			wantAction: ActionDeploy,
			wantState:  StateDeploy,
		},
		{
			name:       "same tag deploys while in progress",
			semVersion: ">1.2.2",
			tag:        "1.2.4",
			svc:        newService("1.2.4", StatusOperationInProgress),
			wantAction: ActionDeploy,
			wantState:  StateDeploy,
		},
		{
			name:       "semantically equal tag deploys",
			semVersion: ">=1.0.0",
			tag:        "v1.2.0",
			svc:        newService("1.2.0", StatusRunning),
			wantAction: ActionDeploy,
			wantState:  StateDeploy,
		},
		{
			name:       "tag outside range",
			semVersion: ">1.2.2",
			tag:        "1.1.0",
			svc:        newService("1.2.2", StatusRunning),
			wantAction: ActionNone,
			wantState:  StateMismatch,
		},
		{
			name:       "prerelease excluded from plain range",
			semVersion: ">1.2.2",
			tag:        "1.3.0-beta.1",
			svc:        newService("1.2.2", StatusRunning),
			wantAction: ActionNone,
			wantState:  StateMismatch,
		},
		{
			name:       "prerelease range",
			semVersion: ">=1.3.0-0",
			tag:        "1.3.0-beta.1",
			svc:        newService("1.2.2", StatusRunning),
			wantAction: ActionUpdate,
			wantState:  StateUpdate,
			wantImage:  "123456789012.dkr.ecr.us-east-1.amazonaws.com/svc-a:1.3.0-beta.1",
		},
		{
			name:       "prerelease of another patch is excluded",
			semVersion: ">=1.2.3-alpha",
			tag:        "1.2.5-beta",
			svc:        newService("1.2.2", StatusRunning),
			wantAction: ActionNone,
			wantState:  StateMismatch,
		},
		{
			name:       "caret prerelease of another patch is excluded",
			semVersion: "^1.2.3-beta.2",
			tag:        "1.2.4-beta",
			svc:        newService("1.2.2", StatusRunning),
			wantAction: ActionNone,
			wantState:  StateMismatch,
		},
		{
			name:       "caret range",
			semVersion: "^2.0.0",
			tag:        "2.5.1",
			svc:        newService("2.0.0", StatusRunning),
			wantAction: ActionUpdate,
			wantState:  StateUpdate,
			wantImage:  "123456789012.dkr.ecr.us-east-1.amazonaws.com/svc-a:2.5.1",
		},
		{
			name:       "tilde range mismatch",
			semVersion: "~2.0.0",
			tag:        "2.1.0",
			svc:        newService("2.0.0", StatusRunning),
			wantAction: ActionNone,
			wantState:  StateMismatch,
		},
		{
			name:       "invalid tag",
			semVersion: ">1.0.0",
			tag:        "main-abc123",
			svc:        newService("1.0.0", StatusRunning),
			wantAction: ActionNone,
			wantState:  StateInvalidTag,
		},
		{
			name:       "service unavailable",
			semVersion: ">1.2.2",
			tag:        "1.2.4",
			svc:        nil,
			wantAction: ActionNone,
			wantState:  StateServiceUnavailable,
		},
		{
			name:       "auto deployments enabled",
			semVersion: ">1.2.2",
			tag:        "1.2.4",
			svc: &ServiceDescriptor{
				ServiceARN:             serviceARN,
				Status:                 StatusRunning,
				ImageIdentifier:        "repo:1.2.2",
				AutoDeploymentsEnabled: true,
			},
			wantAction: ActionNone,
			wantState:  StateSkipAutoDeploy,
		},
		{
			name:       "untagged image",
			semVersion: ">1.2.2",
			tag:        "1.2.4",
			svc:        &ServiceDescriptor{ServiceARN: serviceARN, Status: StatusRunning, ImageIdentifier: "repo"},
			wantAction: ActionNone,
			wantState:  StateMalformedImage,
		},
		{
			name:       "empty tag",
			semVersion: ">1.2.2",
			tag:        "1.2.4",
			svc:        &ServiceDescriptor{ServiceARN: serviceARN, Status: StatusRunning, ImageIdentifier: "repo:"},
			wantAction: ActionNone,
			wantState:  StateMalformedImage,
		},
		{
			name:       "digest reference",
			semVersion: ">1.2.2",
			tag:        "1.2.4",
			svc:        &ServiceDescriptor{ServiceARN: serviceARN, Status: StatusRunning, ImageIdentifier: "repo@sha256:abcd"},
			wantAction: ActionNone,
			wantState:  StateMalformedImage,
		},
		{
			name:       "latest tag",
			semVersion: ">1.2.2",
			tag:        "1.2.4",
			svc:        newService("latest", StatusRunning),
			wantAction: ActionNone,
			wantState:  StateSkipLatest,
		},
		{
			name:       "update deferred while in progress",
			semVersion: ">1.2.2",
			tag:        "1.2.4",
			svc:        newService("1.2.2", StatusOperationInProgress),
			wantAction: ActionRetry,
			wantState:  StateRetryRequested,
			wantImage:  "123456789012.dkr.ecr.us-east-1.amazonaws.com/svc-a:1.2.4",
		},
		{
			name:       "non semver current tag updates",
			semVersion: ">1.2.2",
			tag:        "1.2.4",
			svc:        newService("stable", StatusRunning),
			wantAction: ActionUpdate,
			wantState:  StateUpdate,
			wantImage:  "123456789012.dkr.ecr.us-east-1.amazonaws.com/svc-a:1.2.4",
		},
	}

	engine := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.Decide(newEvent(tt.tag), newMatcher(t, tt.semVersion), tt.svc)
			assert.Equal(t, tt.wantAction, d.Action, d.Reason)
			assert.Equal(t, tt.wantState, d.State)
			assert.Equal(t, tt.wantImage, d.ImageIdentifier)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

func TestSatisfies(t *testing.T) {
	engine := NewEngine()
	m := newMatcher(t, ">1.2.2")

	_, ok := engine.Satisfies(newEvent("1.2.3"), m)
	assert.True(t, ok)

	d, ok := engine.Satisfies(newEvent("1.2.2"), m)
	assert.False(t, ok)
	assert.Equal(t, StateMismatch, d.State)
}

func TestActionKind_String(t *testing.T) {
	assert.Equal(t, "NONE", ActionNone.String())
	assert.Equal(t, "DEPLOY", ActionDeploy.String())
	assert.Equal(t, "UPDATE", ActionUpdate.String())
	assert.Equal(t, "RETRY", ActionRetry.String())
	assert.Equal(t, "ActionKind(9)", ActionKind(9).String())
}

func genVersion() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		return fmt.Sprintf("%d.%d.%d",
			rapid.IntRange(0, 20).Draw(t, "major"),
			rapid.IntRange(0, 20).Draw(t, "minor"),
			rapid.IntRange(0, 20).Draw(t, "patch"))
	})
}

func genStatus() *rapid.Generator[ServiceStatus] {
	return rapid.SampledFrom([]ServiceStatus{StatusRunning, StatusOperationInProgress, "PAUSED"})
}

func TestDecide_Properties(t *testing.T) {
	engine := NewEngine()

	t.Run("mismatch never acts", func(t *testing.T) {
		m := newMatcher(t, ">=10.0.0")
		rapid.Check(t, func(t *rapid.T) {
			tag := fmt.Sprintf("%d.%d.%d",
				rapid.IntRange(0, 9).Draw(t, "major"),
				rapid.IntRange(0, 20).Draw(t, "minor"),
				rapid.IntRange(0, 20).Draw(t, "patch"))
			svc := newService(genVersion().Draw(t, "current"), genStatus().Draw(t, "status"))

			d := engine.Decide(newEvent(tag), m, svc)
			if d.Action != ActionNone || d.State != StateMismatch {
				t.Fatalf("tag %s: got %s/%s", tag, d.Action, d.State)
			}
		})
	})

	t.Run("auto deploy services are never touched", func(t *testing.T) {
		m := newMatcher(t, ">=0.0.0")
		rapid.Check(t, func(t *rapid.T) {
			svc := newService(genVersion().Draw(t, "current"), genStatus().Draw(t, "status"))
			svc.AutoDeploymentsEnabled = true

			d := engine.Decide(newEvent(genVersion().Draw(t, "tag")), m, svc)
			if d.Action != ActionNone {
				t.Fatalf("got %s", d.Action)
			}
		})
	})

	t.Run("latest in any case is never touched", func(t *testing.T) {
		m := newMatcher(t, ">=0.0.0")
		rapid.Check(t, func(t *rapid.T) {
			var b strings.Builder
			for _, r := range "latest" {
				if rapid.Bool().Draw(t, "upper") {
					r = r - 'a' + 'A'
				}
				b.WriteRune(r)
			}
			svc := newService(b.String(), genStatus().Draw(t, "status"))

			d := engine.Decide(newEvent(genVersion().Draw(t, "tag")), m, svc)
			if d.Action != ActionNone || d.State != StateSkipLatest {
				t.Fatalf("current %s: got %s/%s", b.String(), d.Action, d.State)
			}
		})
	})

	t.Run("equal tags deploy", func(t *testing.T) {
		m := newMatcher(t, ">=0.0.0")
		rapid.Check(t, func(t *rapid.T) {
			tag := genVersion().Draw(t, "tag")
			d := engine.Decide(newEvent(tag), m, newService(tag, genStatus().Draw(t, "status")))
			if d.Action != ActionDeploy {
				t.Fatalf("tag %s: got %s", tag, d.Action)
			}
		})
	})

	t.Run("different tags update or defer", func(t *testing.T) {
		m := newMatcher(t, ">=0.0.0")
		rapid.Check(t, func(t *rapid.T) {
			tag := genVersion().Draw(t, "tag")
			current := genVersion().Filter(func(v string) bool { return v != tag }).Draw(t, "current")
			status := genStatus().Draw(t, "status")

			ev := newEvent(tag)
			d := engine.Decide(ev, m, newService(current, status))

			want := ActionUpdate
			if status == StatusOperationInProgress {
				want = ActionRetry
			}
			if d.Action != want {
				t.Fatalf("tag %s current %s status %s: got %s", tag, current, status, d.Action)
			}
			if d.ImageIdentifier != "123456789012.dkr.ecr.us-east-1.amazonaws.com/svc-a:"+tag {
				t.Fatalf("image identifier %q", d.ImageIdentifier)
			}
		})
	})
}
