package bootstrap

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"

	"ecrwatch/internal/config"
)

// NewAWSSession builds the shared session for every AWS client. Endpoint
// points all services at a local stack when set.
func NewAWSSession(cfg config.AWSConfig) (*session.Session, error) {
	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsCfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return sess, nil
}
