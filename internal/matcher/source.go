package matcher

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"ecrwatch/internal/constants"
	"ecrwatch/pkg/retry"
)

// Source fetches the raw matcher document. A nil result with a nil error
// means no document exists.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// Load fetches the document from src and compiles it.
func Load(ctx context.Context, src Source) (*Registry, error) {
	data, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read matchers from %s: %w", src, err)
	}
	return Parse(data)
}

type S3Source struct {
	Client s3iface.S3API
	Bucket string
	Key    string
}

func (s *S3Source) String() string {
	return fmt.Sprintf("s3://%s/%s", s.Bucket, s.Key)
}

func (s *S3Source) Fetch(ctx context.Context) ([]byte, error) {
	var data []byte

	err := retry.Retry(ctx, retry.ImmediatePolicy(constants.DefaultMaxRetries), func() error {
		out, err := s.Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(s.Key),
		})
		if err != nil {
			return classifyS3Error(err)
		}
		defer out.Body.Close()

		data, err = io.ReadAll(out.Body)
		return err
	})
	if err == errNoDocument {
		return nil, nil
	}
	return data, err
}

var errNoDocument = retry.NewFatalError(fmt.Errorf("matcher document does not exist"))

func classifyS3Error(err error) error {
	aerr, ok := err.(awserr.Error)
	if !ok {
		return err
	}

	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey:
		return errNoDocument
	case s3.ErrCodeNoSuchBucket, "AccessDenied", "InvalidBucketName":
		return retry.NewFatalError(err)
	default:
		return err
	}
}

type FileSource struct {
	Path string
}

func (f *FileSource) String() string {
	return f.Path
}

func (f *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// EmptySource is used when no matcher location is configured.
type EmptySource struct{}

func (EmptySource) String() string {
	return "none"
}

func (EmptySource) Fetch(ctx context.Context) ([]byte, error) {
	return nil, nil
}
