package watcher

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ecrwatch/internal/audit"
	"ecrwatch/internal/broker"
	"ecrwatch/internal/decision"
	"ecrwatch/internal/event"
	"ecrwatch/internal/logger"
	"ecrwatch/internal/matcher"
	"ecrwatch/internal/notify"
	"ecrwatch/internal/scheduler"
	"ecrwatch/pkg/cel"
	"ecrwatch/pkg/errors"
	"ecrwatch/pkg/logging"
	"ecrwatch/pkg/metrics"
	"ecrwatch/pkg/tracing"
)

// ServiceClient is the control plane of the managed services.
type ServiceClient interface {
	DescribeService(ctx context.Context, serviceARN string) (*decision.ServiceDescriptor, error)
	UpdateService(ctx context.Context, svc *decision.ServiceDescriptor, imageIdentifier string) (string, error)
	StartDeployment(ctx context.Context, serviceARN string) (string, error)
}

type RetryScheduler interface {
	ScheduleRetry(ctx context.Context, ev *event.PushEvent) (scheduler.Result, error)
}

// Claimer guards an action against repeated delivery of the same event.
type Claimer interface {
	Claim(ctx context.Context, ev *event.PushEvent) (bool, error)
}

type Option func(*Service)

func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithClaimer(c Claimer) Option {
	return func(s *Service) {
		s.claimer = c
	}
}

func WithRecorder(r audit.Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// Service turns batches of push events into control-plane actions.
type Service struct {
	registry    *matcher.Registry
	engine      *decision.Engine
	client      ServiceClient
	scheduler   RetryScheduler
	notifier    notify.Notifier
	claimer     Claimer
	recorder    audit.Recorder
	concurrency int
	logger      logger.Logger
}

func NewService(registry *matcher.Registry, client ServiceClient, sched RetryScheduler, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		registry:    registry,
		engine:      decision.NewEngine(),
		client:      client,
		scheduler:   sched,
		notifier:    notify.NewLogNotifier(log),
		concurrency: 1,
		logger:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome is what processing one event produced. OperationID is set only
// when an action was issued.
type Outcome struct {
	EventID     string
	ServiceARN  string
	Decision    decision.Decision
	OperationID string
	Err         error
}

// Output formats the triggered action as "{serviceArn}${operationId}".
func (o Outcome) Output() (string, bool) {
	if o.OperationID == "" {
		return "", false
	}
	return fmt.Sprintf("%s$%s", o.ServiceARN, o.OperationID), true
}

// ProcessBatch processes every message independently and returns one entry
// per triggered action, in input order.
func (s *Service) ProcessBatch(ctx context.Context, msgs []broker.Message) []string {
	outcomes := s.process(ctx, msgs)

	out := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if entry, ok := o.Output(); ok {
			out = append(out, entry)
		}
	}
	return out
}

// HandleBatch adapts ProcessBatch to broker.BatchHandlerFunc. Per-event
// failures never fail the batch; only cancellation does.
func (s *Service) HandleBatch(ctx context.Context, msgs []broker.Message) error {
	actions := s.ProcessBatch(ctx, msgs)
	if len(actions) > 0 {
		s.logger.InfowCtx(ctx, "Batch triggered actions", "count", len(actions), "actions", actions)
	}
	return ctx.Err()
}

func (s *Service) process(ctx context.Context, msgs []broker.Message) []Outcome {
	metrics.BatchSize.Observe(float64(len(msgs)))
	outcomes := make([]Outcome, len(msgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range msgs {
		i := i
		g.Go(func() error {
			outcomes[i] = s.ProcessMessage(gctx, msgs[i])
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// ProcessMessage runs one message through the decision pipeline. A panic is
// recovered into the Outcome's error.
func (s *Service) ProcessMessage(ctx context.Context, msg broker.Message) (outcome Outcome) {
	ctx, span := tracing.StartSpanFromHeaders(ctx, "watcher.receive", msg.Headers)
	if msg.ID != "" {
		ctx = logging.WithMessageID(ctx, msg.ID)
	}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			outcome.Err = errors.RecoverPanic(r)
			s.logger.ErrorwCtx(ctx, "Panic recovered while processing event", "error", outcome.Err)
		}

		status := "processed"
		if outcome.Err != nil {
			status = "failed"
		}
		state := string(outcome.Decision.State)
		if state == "" {
			state = "NONE"
		}
		metrics.EventsTotal.WithLabelValues(status).Inc()
		metrics.ObserveEventDuration(time.Since(start), state)
		tracing.EndSpan(span, outcome.Err)
	}()

	ev, err := event.Parse(msg.Body)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Skipping malformed push event", "error", err)
		return Outcome{Err: err}
	}

	return s.Process(ctx, ev)
}

// Process decides and acts on a parsed event.
func (s *Service) Process(ctx context.Context, ev *event.PushEvent) Outcome {
	ctx = logging.WithEvent(ctx, ev.EventID, ev.RepositoryName)
	ctx, span := tracing.StartEventSpan(ctx, ev.EventID, ev.RepositoryName, ev.ImageTag)

	outcome := s.decide(ctx, ev)
	tracing.EndSpan(span, outcome.Err)

	metrics.IncDecision(string(outcome.Decision.State))
	s.logger.InfowCtx(ctx, "Event processed",
		"image_tag", ev.ImageTag,
		"retry_count", ev.RetryCount,
		"state", outcome.Decision.State,
		"action", outcome.Decision.Action.String(),
		"reason", outcome.Decision.Reason,
		"operation_id", outcome.OperationID,
	)
	return outcome
}

func (s *Service) decide(ctx context.Context, ev *event.PushEvent) Outcome {
	outcome := Outcome{EventID: ev.EventID}

	m, ok := s.registry.Lookup(ev.RepositoryName)
	if !ok {
		outcome.Decision = decision.NoAction(decision.StateUnmatched, "no matcher for repository")
		return outcome
	}
	outcome.ServiceARN = m.ServiceARN

	if d, filtered, err := filter(ctx, ev, m); filtered {
		outcome.Decision = d
		if err != nil {
			outcome.Err = err
			s.logger.ErrorwCtx(ctx, "Matcher condition failed", "condition", m.Condition, "error", err)
		}
		return outcome
	}

	if d, ok := s.engine.Satisfies(ev, m); !ok {
		outcome.Decision = d
		return outcome
	}

	svc, err := s.client.DescribeService(ctx, m.ServiceARN)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Service unavailable", "service_arn", m.ServiceARN, "error", err)
		svc = nil
	}
	if svc != nil && svc.ServiceARN != "" {
		outcome.ServiceARN = svc.ServiceARN
	}

	outcome.Decision = s.engine.Decide(ev, m, svc)
	s.act(ctx, ev, m, svc, &outcome)
	s.record(ctx, ev, &outcome)
	return outcome
}

func (s *Service) act(ctx context.Context, ev *event.PushEvent, m *matcher.VersionMatcher, svc *decision.ServiceDescriptor, outcome *Outcome) {
	d := outcome.Decision

	switch d.Action {
	case decision.ActionNone:
		return

	case decision.ActionRetry:
		res, err := s.scheduler.ScheduleRetry(ctx, ev)
		if err != nil {
			outcome.Err = err
			s.logger.ErrorwCtx(ctx, "Failed to schedule retry", "error", err)
			return
		}
		s.logger.InfowCtx(ctx, "Update deferred", "result", res.String())

	case decision.ActionDeploy, decision.ActionUpdate:
		if !s.claim(ctx, ev, outcome) {
			return
		}

		var (
			opID string
			err  error
		)
		if d.Action == decision.ActionDeploy {
			s.notify(ctx, svc.ServiceARN, fmt.Sprintf("[CI/CD] Deploying latest version %s", ev.ImageTag))
			opID, err = s.client.StartDeployment(ctx, svc.ServiceARN)
		} else {
			s.notify(ctx, svc.ServiceARN, fmt.Sprintf(
				"[CI/CD] Semantic version %s matched with the recent ECR push %s, so updating the service to the deploy from the latest version",
				m.SemVersion, ev.ImageTag,
			))
			s.logger.InfowCtx(ctx, "Starting update", "service_arn", svc.ServiceARN, "image", d.ImageIdentifier)
			opID, err = s.client.UpdateService(ctx, svc, d.ImageIdentifier)
		}
		if err != nil {
			outcome.Err = err
			metrics.IncAction(d.Action.String(), "error")
			return
		}
		outcome.OperationID = opID
		metrics.IncAction(d.Action.String(), "issued")

	default:
		outcome.Err = errors.ErrInternal.WithDetail("message", fmt.Sprintf("unhandled action %s", d.Action))
	}
}

// claim reports whether the action may proceed. A lost claim turns the
// decision into DUPLICATE.
func (s *Service) claim(ctx context.Context, ev *event.PushEvent, outcome *Outcome) bool {
	if s.claimer == nil {
		return true
	}
	ok, err := s.claimer.Claim(ctx, ev)
	if err != nil {
		outcome.Err = err
		s.logger.ErrorwCtx(ctx, "Dedup check failed, skipping action", "error", err)
		return false
	}
	if !ok {
		outcome.Decision = decision.NoAction(decision.StateDuplicate, "event attempt already handled")
		return false
	}
	return true
}

// Notification failures never block the action.
func (s *Service) notify(ctx context.Context, serviceARN, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, serviceARN, message); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to send notification", "service_arn", serviceARN, "error", err)
	}
}

func (s *Service) record(ctx context.Context, ev *event.PushEvent, outcome *Outcome) {
	if s.recorder == nil {
		return
	}
	rec := audit.Record{
		EventID:     ev.EventID,
		Repository:  ev.RepositoryName,
		ImageTag:    ev.ImageTag,
		ServiceARN:  outcome.ServiceARN,
		State:       string(outcome.Decision.State),
		Action:      outcome.Decision.Action.String(),
		Image:       outcome.Decision.ImageIdentifier,
		OperationID: outcome.OperationID,
		RetryCount:  ev.RetryCount,
	}
	if outcome.Err != nil {
		rec.Error = outcome.Err.Error()
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to record action", "error", err)
	}
}

// Preview computes the decision for ev against a supplied service snapshot
// without touching any collaborator.
func (s *Service) Preview(ctx context.Context, ev *event.PushEvent, svc *decision.ServiceDescriptor) decision.Decision {
	m, ok := s.registry.Lookup(ev.RepositoryName)
	if !ok {
		return decision.NoAction(decision.StateUnmatched, "no matcher for repository")
	}
	if d, filtered, _ := filter(ctx, ev, m); filtered {
		return d
	}
	return s.engine.Decide(ev, m, svc)
}

// filter evaluates the matcher condition. filtered is true when the event
// must stop here, either because the condition is false or because it could
// not be evaluated, in which case err is set.
func filter(ctx context.Context, ev *event.PushEvent, m *matcher.VersionMatcher) (d decision.Decision, filtered bool, err error) {
	allowed, err := m.Allows(ctx, conditionVars(ev))
	if err != nil {
		return decision.NoAction(decision.StateFiltered, fmt.Sprintf("condition %q failed to evaluate: %v", m.Condition, err)), true, err
	}
	if !allowed {
		return decision.NoAction(decision.StateFiltered, fmt.Sprintf("condition %q is false", m.Condition)), true, nil
	}
	return decision.Decision{}, false, nil
}

func conditionVars(ev *event.PushEvent) cel.Vars {
	return cel.Vars{
		Account:    ev.AccountID,
		Region:     ev.Region,
		Repository: ev.RepositoryName,
		Tag:        ev.ImageTag,
		RetryCount: ev.RetryCount,
	}
}

func (s *Service) Registry() *matcher.Registry {
	return s.registry
}
