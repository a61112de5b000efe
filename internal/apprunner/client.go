package apprunner

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/apprunner"
	"github.com/aws/aws-sdk-go/service/apprunner/apprunneriface"

	"ecrwatch/internal/decision"
	"ecrwatch/internal/logger"
	"ecrwatch/pkg/circuitbreaker"
	"ecrwatch/pkg/errors"
	"ecrwatch/pkg/metrics"
	"ecrwatch/pkg/retry"
	"ecrwatch/pkg/tracing"
)

const (
	opDescribe = "describe_service"
	opUpdate   = "update_service"
	opDeploy   = "start_deployment"
)

// Client issues App Runner control-plane calls. Each call is attempted up to
// maxAttempts times with no delay; not-found and invalid-request errors are
// returned immediately.
type Client struct {
	api         apprunneriface.AppRunnerAPI
	maxAttempts int
	breaker     *circuitbreaker.Wrapper
	logger      logger.Logger
}

type Option func(*Client)

// WithCircuitBreaker routes every call through cb.
func WithCircuitBreaker(cb *circuitbreaker.Wrapper) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

func NewClient(api apprunneriface.AppRunnerAPI, maxAttempts int, log logger.Logger, opts ...Option) *Client {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	c := &Client{
		api:         api,
		maxAttempts: maxAttempts,
		logger:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) DescribeService(ctx context.Context, serviceARN string) (*decision.ServiceDescriptor, error) {
	var out *apprunner.DescribeServiceOutput
	err := c.call(ctx, opDescribe, serviceARN, func() error {
		var err error
		out, err = c.api.DescribeServiceWithContext(ctx, &apprunner.DescribeServiceInput{
			ServiceArn: aws.String(serviceARN),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if out.Service == nil {
		return nil, errors.ErrNotFound.WithDetail("service_arn", serviceARN)
	}
	return toDescriptor(out.Service), nil
}

// UpdateService points the service at image, keeping the rest of its source
// configuration, and returns the operation id.
func (c *Client) UpdateService(ctx context.Context, svc *decision.ServiceDescriptor, image string) (string, error) {
	var out *apprunner.UpdateServiceOutput
	err := c.call(ctx, opUpdate, svc.ServiceARN, func() error {
		var err error
		out, err = c.api.UpdateServiceWithContext(ctx, &apprunner.UpdateServiceInput{
			ServiceArn:          aws.String(svc.ServiceARN),
			SourceConfiguration: sourceWithImage(svc.Source, image),
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return aws.StringValue(out.OperationId), nil
}

func (c *Client) StartDeployment(ctx context.Context, serviceARN string) (string, error) {
	var out *apprunner.StartDeploymentOutput
	err := c.call(ctx, opDeploy, serviceARN, func() error {
		var err error
		out, err = c.api.StartDeploymentWithContext(ctx, &apprunner.StartDeploymentInput{
			ServiceArn: aws.String(serviceARN),
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return aws.StringValue(out.OperationId), nil
}

func (c *Client) call(ctx context.Context, op, serviceARN string, fn func() error) (err error) {
	ctx, span := tracing.StartControlPlaneSpan(ctx, op, serviceARN)
	start := time.Now()
	defer func() {
		metrics.ObserveControlPlaneDuration(op, time.Since(start))
		tracing.EndSpan(span, err)
	}()

	attempt := func() error {
		callErr := classify(fn())
		metrics.IncControlPlaneCall(op, retry.Classify(callErr).String())
		return callErr
	}

	run := func() error {
		return retry.RetryWithCallback(ctx, retry.ImmediatePolicy(c.maxAttempts), attempt,
			func(n int, retryErr error, _ time.Duration) {
				metrics.RetryAttemptsTotal.WithLabelValues(op).Inc()
				c.logger.WarnwCtx(ctx, "Retryable control plane error",
					"operation", op,
					"service_arn", serviceARN,
					"attempt", n,
					"error", retryErr,
				)
			})
	}

	if c.breaker != nil {
		_, err = c.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
			return nil, run()
		})
		if circuitbreaker.IsOpenErr(err) {
			err = errors.ErrServiceUnavailable.WithCause(err)
		}
	} else {
		err = run()
	}

	switch {
	case err == nil:
	case errors.IsNotFound(err):
		c.logger.WarnwCtx(ctx, "Resource unavailable", "operation", op, "service_arn", serviceARN)
	case errors.IsInvalidRequest(err):
		c.logger.ErrorwCtx(ctx, "Request invalid", "operation", op, "service_arn", serviceARN, "error", err)
	default:
		c.logger.ErrorwCtx(ctx, "Control plane call failed", "operation", op, "service_arn", serviceARN, "error", err)
	}
	return err
}

// classify maps an AWS error onto the coded errors used for retry decisions.
func classify(err error) error {
	if err == nil {
		return nil
	}

	aerr, ok := err.(awserr.Error)
	if !ok {
		return errors.ErrServiceUnavailable.WithCause(err)
	}

	switch aerr.Code() {
	case apprunner.ErrCodeResourceNotFoundException:
		return errors.ErrNotFound.WithCause(err)
	case apprunner.ErrCodeInvalidRequestException:
		return errors.ErrInvalidRequest.WithCause(err)
	case apprunner.ErrCodeInvalidStateException,
		apprunner.ErrCodeInternalServiceErrorException,
		"ServiceUnavailableException",
		"ThrottlingException",
		request.ErrCodeRequestError,
		request.ErrCodeResponseTimeout:
		return errors.ErrServiceUnavailable.WithCause(err)
	default:
		return errors.ErrInternal.WithCause(err).AsFatal()
	}
}

func toDescriptor(s *apprunner.Service) *decision.ServiceDescriptor {
	d := &decision.ServiceDescriptor{
		ServiceARN:  aws.StringValue(s.ServiceArn),
		ServiceName: aws.StringValue(s.ServiceName),
		Status:      decision.ServiceStatus(aws.StringValue(s.Status)),
	}

	if src := s.SourceConfiguration; src != nil {
		d.Source = src
		d.AutoDeploymentsEnabled = aws.BoolValue(src.AutoDeploymentsEnabled)
		if src.ImageRepository != nil {
			d.ImageIdentifier = aws.StringValue(src.ImageRepository.ImageIdentifier)
		}
	}

	return d
}

// sourceWithImage copies the described source configuration with a new
// image identifier. The described value is left untouched.
func sourceWithImage(source interface{}, image string) *apprunner.SourceConfiguration {
	out := &apprunner.SourceConfiguration{}
	if src, ok := source.(*apprunner.SourceConfiguration); ok && src != nil {
		*out = *src
	}

	repo := &apprunner.ImageRepository{ImageRepositoryType: aws.String(apprunner.ImageRepositoryTypeEcr)}
	if out.ImageRepository != nil {
		*repo = *out.ImageRepository
	}
	repo.ImageIdentifier = aws.String(image)
	out.ImageRepository = repo
	out.CodeRepository = nil

	return out
}
