package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs/cloudwatchlogsiface"

	"ecrwatch/internal/constants"
	"ecrwatch/internal/logger"
	"ecrwatch/pkg/metrics"
	"ecrwatch/pkg/retry"
)

// Notifier publishes human-readable status lines about a service.
type Notifier interface {
	Notify(ctx context.Context, serviceARN string, messages ...string) error
}

// LogGroup derives the service log group from an ARN of the form
// "arn:...:service/{name}/{id}". ok is false for any other shape.
func LogGroup(namespace, serviceARN string) (group string, ok bool) {
	parts := strings.Split(serviceARN, "/")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", false
	}
	return fmt.Sprintf("/%s/%s/%s/service", strings.Trim(namespace, "/"), parts[1], parts[2]), true
}

// CloudWatchNotifier writes status lines into the "events" stream of the
// service's own log group, where they show up next to the platform's events.
type CloudWatchNotifier struct {
	api         cloudwatchlogsiface.CloudWatchLogsAPI
	namespace   string
	maxAttempts int
	logger      logger.Logger
	now         func() time.Time
}

func NewCloudWatchNotifier(api cloudwatchlogsiface.CloudWatchLogsAPI, namespace string, maxAttempts int, log logger.Logger) *CloudWatchNotifier {
	if namespace == "" {
		namespace = constants.DefaultLogNamespace
	}
	return &CloudWatchNotifier{
		api:         api,
		namespace:   namespace,
		maxAttempts: maxAttempts,
		logger:      log,
		now:         time.Now,
	}
}

func (n *CloudWatchNotifier) Notify(ctx context.Context, serviceARN string, messages ...string) error {
	group, ok := LogGroup(n.namespace, serviceARN)
	if !ok {
		metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
		n.logger.DebugwCtx(ctx, "No log group for service", "service_arn", serviceARN)
		return nil
	}

	ts := aws.Int64(n.now().UnixMilli())
	events := make([]*cloudwatchlogs.InputLogEvent, 0, len(messages))
	for _, m := range messages {
		events = append(events, &cloudwatchlogs.InputLogEvent{
			Message:   aws.String(m),
			Timestamp: ts,
		})
	}

	err := retry.RetryWithCallback(ctx, retry.ImmediatePolicy(n.maxAttempts), func() error {
		_, err := n.api.PutLogEventsWithContext(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(group),
			LogStreamName: aws.String(constants.NotificationStream),
			LogEvents:     events,
		})
		return classify(err)
	}, func(attempt int, err error, _ time.Duration) {
		n.logger.WarnwCtx(ctx, "Retrying notification", "log_group", group, "attempt", attempt, "error", err)
	})
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to put log events to %s: %w", group, err)
	}

	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	return nil
}

// Only ServiceUnavailable is worth retrying.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if aerr, ok := err.(awserr.Error); ok && aerr.Code() == cloudwatchlogs.ErrCodeServiceUnavailableException {
		return retry.NewRetryableError(err)
	}
	return retry.NewFatalError(err)
}

// LogNotifier writes notifications to the process log only.
type LogNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) Notify(ctx context.Context, serviceARN string, messages ...string) error {
	for _, m := range messages {
		n.logger.InfowCtx(ctx, m, "service_arn", serviceARN)
	}
	return nil
}
