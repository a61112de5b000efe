package notify

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs/cloudwatchlogsiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecrwatch/internal/logger"
)

type fakeLogs struct {
	cloudwatchlogsiface.CloudWatchLogsAPI
	errs   []error
	inputs []*cloudwatchlogs.PutLogEventsInput
}

func (f *fakeLogs) PutLogEventsWithContext(ctx aws.Context, in *cloudwatchlogs.PutLogEventsInput, opts ...request.Option) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.inputs = append(f.inputs, in)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &cloudwatchlogs.PutLogEventsOutput{}, nil
}

const serviceARN = "arn:aws:apprunner:us-east-1:123456789012:service/svc-a/8fe1e10304f84fd2b0df550fe98a71fa"

func TestLogGroup(t *testing.T) {
	tests := []struct {
		arn       string
		wantGroup string
		wantOK    bool
	}{
		{arn: serviceARN, wantGroup: "/aws/apprunner/svc-a/8fe1e10304f84fd2b0df550fe98a71fa/service", wantOK: true},
		{arn: "arn:aws:apprunner:us-east-1:123456789012:service/svc-a", wantOK: false},
		{arn: "arn:aws:apprunner:us-east-1:123456789012:service/a/b/c", wantOK: false},
		{arn: "arn:aws:apprunner:us-east-1:123456789012:service//id", wantOK: false},
		{arn: "", wantOK: false},
	}

	for _, tt := range tests {
		group, ok := LogGroup("aws/apprunner", tt.arn)
		assert.Equal(t, tt.wantOK, ok, tt.arn)
		assert.Equal(t, tt.wantGroup, group, tt.arn)
	}
}

func TestCloudWatchNotifier_Notify(t *testing.T) {
	api := &fakeLogs{}
	n := NewCloudWatchNotifier(api, "", 3, logger.NopLogger())
	n.now = func() time.Time { return time.UnixMilli(1700000000000) }

	require.NoError(t, n.Notify(context.Background(), serviceARN, "[CI/CD] Deploying latest version 1.2.4"))

	require.Len(t, api.inputs, 1)
	in := api.inputs[0]
	assert.Equal(t, "/aws/apprunner/svc-a/8fe1e10304f84fd2b0df550fe98a71fa/service", aws.StringValue(in.LogGroupName))
	assert.Equal(t, "events", aws.StringValue(in.LogStreamName))
	require.Len(t, in.LogEvents, 1)
	assert.Equal(t, "[CI/CD] Deploying latest version 1.2.4", aws.StringValue(in.LogEvents[0].Message))
	assert.Equal(t, int64(1700000000000), aws.Int64Value(in.LogEvents[0].Timestamp))
}

func TestCloudWatchNotifier_RetriesServiceUnavailable(t *testing.T) {
	unavailable := awserr.New(cloudwatchlogs.ErrCodeServiceUnavailableException, "busy", nil)
	api := &fakeLogs{errs: []error{unavailable, unavailable}}
	n := NewCloudWatchNotifier(api, "aws/apprunner", 3, logger.NopLogger())

	require.NoError(t, n.Notify(context.Background(), serviceARN, "msg"))
	assert.Len(t, api.inputs, 3)
}

func TestCloudWatchNotifier_OtherErrorsAreTerminal(t *testing.T) {
	api := &fakeLogs{errs: []error{awserr.New(cloudwatchlogs.ErrCodeResourceNotFoundException, "no stream", nil)}}
	n := NewCloudWatchNotifier(api, "aws/apprunner", 3, logger.NopLogger())

	assert.Error(t, n.Notify(context.Background(), serviceARN, "msg"))
	assert.Len(t, api.inputs, 1)
}

func TestCloudWatchNotifier_SkipsUnknownARNShape(t *testing.T) {
	api := &fakeLogs{}
	n := NewCloudWatchNotifier(api, "aws/apprunner", 3, logger.NopLogger())

	require.NoError(t, n.Notify(context.Background(), "not-an-arn", "msg"))
	assert.Empty(t, api.inputs)
}
