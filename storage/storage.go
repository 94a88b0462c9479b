package storage

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"

	"github.com/equitrack/partnership-api/domain"
)

// ObjectURL is the handle returned for a stored attachment body. Expiration
// tells callers when the URL must be refreshed.
type ObjectURL struct {
	URL        string
	Expiration time.Time
}

type settings struct {
	accessKeyID     string
	secretAccessKey string
	endpoint        string
	region          string
	bucket          string
	disableSSL      bool
}

func loadSettings() settings {
	s := settings{
		accessKeyID:     domain.Env.AwsAccessKeyID,
		secretAccessKey: domain.Env.AwsSecretAccessKey,
		endpoint:        domain.Env.AwsS3Endpoint,
		region:          domain.Env.AwsRegion,
		bucket:          domain.Env.AwsS3Bucket,
		disableSSL:      domain.Env.AwsS3DisableSSL,
	}

	if domain.Env.GoEnv == "development" || domain.Env.GoEnv == "test" {
		s.accessKeyID = "abc123"
		s.secretAccessKey = "abcd1234"
	}

	return s
}

// presign reports whether object URLs must be presigned. A non-empty endpoint
// means minIO is in use, which doesn't support the S3 object URL scheme.
func (s settings) presign() bool {
	return !strings.HasPrefix(domain.Env.AwsS3ACL, "public") || s.endpoint != ""
}

func (s settings) client() (*s3.S3, error) {
	sess, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(s.accessKeyID, s.secretAccessKey, ""),
		Endpoint:         aws.String(s.endpoint),
		Region:           aws.String(s.region),
		DisableSSL:       aws.Bool(s.disableSSL),
		S3ForcePathStyle: aws.Bool(s.endpoint != ""),
	})
	if err != nil {
		return nil, err
	}
	return s3.New(sess), nil
}

func (s settings) objectURL(svc *s3.S3, key string) (ObjectURL, error) {
	if !s.presign() {
		return ObjectURL{
			URL:        fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, url.PathEscape(key)),
			Expiration: time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC),
		}, nil
	}

	req, _ := svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	lifespan := time.Duration(domain.Env.AwsS3URLLifeMinutes) * time.Minute
	signed, err := req.Presign(lifespan)
	if err != nil {
		return ObjectURL{}, err
	}

	return ObjectURL{
		URL: signed,
		// report an expiration slightly before the real one to account for delays
		Expiration: time.Now().Add(lifespan - time.Minute),
	}, nil
}

// Put saves an attachment body in an AWS S3 bucket or compatible store,
// depending on environment configuration.
func Put(key, contentType string, body []byte) (ObjectURL, error) {
	s := loadSettings()

	svc, err := s.client()
	if err != nil {
		return ObjectURL{}, err
	}

	acl := ""
	if !s.presign() {
		acl = domain.Env.AwsS3ACL
	}
	if _, err := svc.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		ACL:         aws.String(acl),
		Body:        bytes.NewReader(body),
	}); err != nil {
		return ObjectURL{}, err
	}

	return s.objectURL(svc, key)
}

// SignedURL retrieves a URL from which a stored body can be read without
// further credentials. It is either a public object URL or a presigned one.
func SignedURL(key string) (ObjectURL, error) {
	s := loadSettings()

	svc, err := s.client()
	if err != nil {
		return ObjectURL{}, err
	}

	return s.objectURL(svc, key)
}

// Remove deletes an attachment body from the configured bucket.
func Remove(key string) error {
	s := loadSettings()

	svc, err := s.client()
	if err != nil {
		return err
	}

	_, err = svc.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// EnsureBucket creates the configured bucket if it does not exist. Intended
// for minIO in test and development only.
func EnsureBucket() error {
	env := domain.Env.GoEnv
	if env != "test" && env != "development" {
		return errors.New("EnsureBucket should only be used in test and development")
	}

	s := loadSettings()

	svc, err := s.client()
	if err != nil {
		return err
	}

	if _, err := svc.CreateBucket(&s3.CreateBucketInput{Bucket: &s.bucket}); err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			switch aerr.Code() {
			case s3.ErrCodeBucketAlreadyExists:
			case s3.ErrCodeBucketAlreadyOwnedByYou:
			default:
				return err
			}
		}
	}
	return nil
}
