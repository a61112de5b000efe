package matcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"ecrwatch/pkg/cel"
	"ecrwatch/pkg/errors"
	"ecrwatch/pkg/models"
)

// VersionMatcher binds a repository to a version range and the service that
// follows it. Immutable once built.
type VersionMatcher struct {
	Repository string
	SemVersion string
	ServiceARN string
	Condition  string

	constraint *semver.Constraints
	branches   []rangeBranch
	condition  *cel.Condition
}

// rangeBranch is one "||" alternative of a range with the prerelease
// versions its comparators name.
type rangeBranch struct {
	constraint  *semver.Constraints
	prereleases []*semver.Version
}

var prereleaseComparator = regexp.MustCompile(`v?\d+\.\d+\.\d+-[0-9A-Za-z.-]+`)

func parseBranches(semVersion string) []rangeBranch {
	parts := strings.Split(semVersion, "||")
	branches := make([]rangeBranch, 0, len(parts))
	for _, part := range parts {
		c, err := semver.NewConstraint(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		b := rangeBranch{constraint: c}
		for _, tok := range prereleaseComparator.FindAllString(part, -1) {
			if v, err := semver.NewVersion(tok); err == nil {
				b.prereleases = append(b.prereleases, v)
			}
		}
		branches = append(branches, b)
	}
	return branches
}

func (b rangeBranch) namesTuple(v *semver.Version) bool {
	for _, p := range b.prereleases {
		if p.Major() == v.Major() && p.Minor() == v.Minor() && p.Patch() == v.Patch() {
			return true
		}
	}
	return false
}

// Constraint returns the compiled SemVersion range.
func (m *VersionMatcher) Constraint() *semver.Constraints {
	return m.constraint
}

// Satisfies reports whether v is inside the range. A prerelease only
// qualifies through an alternative whose comparators name a prerelease of
// the same major.minor.patch, so ">=1.2.3-alpha" admits 1.2.3-beta but not
// 1.2.5-beta.
func (m *VersionMatcher) Satisfies(v *semver.Version) bool {
	if !m.constraint.Check(v) {
		return false
	}
	if v.Prerelease() == "" {
		return true
	}
	for _, b := range m.branches {
		if b.namesTuple(v) && b.constraint.Check(v) {
			return true
		}
	}
	return false
}

// Allows evaluates the optional condition. A matcher without a condition
// allows every event.
func (m *VersionMatcher) Allows(ctx context.Context, vars cel.Vars) (bool, error) {
	if m.condition == nil {
		return true, nil
	}
	return m.condition.Eval(ctx, vars)
}

func (m *VersionMatcher) Entry() models.MatcherEntry {
	return models.MatcherEntry{
		Repository: m.Repository,
		SemVersion: m.SemVersion,
		ServiceARN: m.ServiceARN,
		Condition:  m.Condition,
	}
}

// Registry maps repository names to their matcher. It is never mutated after
// construction and may be shared between goroutines.
type Registry struct {
	matchers map[string]*VersionMatcher
}

// NewRegistry compiles entries into a Registry. When a repository appears
// more than once the last entry wins.
func NewRegistry(entries []models.MatcherEntry) (*Registry, error) {
	r := &Registry{matchers: make(map[string]*VersionMatcher, len(entries))}

	var evaluator *cel.Evaluator
	for i, entry := range entries {
		if err := models.ValidateMatcherEntry(entry); err != nil {
			return nil, configError(i, err)
		}

		constraint, err := semver.NewConstraint(entry.SemVersion)
		if err != nil {
			return nil, configError(i, fmt.Errorf("invalid semVersion %q: %w", entry.SemVersion, err))
		}

		m := &VersionMatcher{
			Repository: entry.Repository,
			SemVersion: entry.SemVersion,
			ServiceARN: entry.ServiceARN,
			Condition:  entry.Condition,
			constraint: constraint,
			branches:   parseBranches(entry.SemVersion),
		}

		if entry.Condition != "" {
			if evaluator == nil {
				if evaluator, err = cel.NewEvaluator(); err != nil {
					return nil, errors.ErrInternal.WithCause(err)
				}
			}
			if m.condition, err = evaluator.Compile(entry.Condition); err != nil {
				return nil, configError(i, err)
			}
		}

		r.matchers[entry.Repository] = m
	}

	return r, nil
}

// Parse decodes a matcher document. An empty document yields an empty registry.
func Parse(data []byte) (*Registry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return NewRegistry(nil)
	}

	var entries []models.MatcherEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.ErrConfig.WithCause(err)
	}

	return NewRegistry(entries)
}

func configError(index int, cause error) error {
	return errors.ErrConfig.
		WithDetail("index", index).
		WithCause(cause)
}

func (r *Registry) Lookup(repository string) (*VersionMatcher, bool) {
	m, ok := r.matchers[repository]
	return m, ok
}

func (r *Registry) Len() int {
	return len(r.matchers)
}

// All returns the matchers ordered by repository name.
func (r *Registry) All() []*VersionMatcher {
	out := make([]*VersionMatcher, 0, len(r.matchers))
	for _, m := range r.matchers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Repository < out[j].Repository
	})
	return out
}
