package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

var _ ObjectStore = (*S3)(nil)

// Uploader is the part of s3manager.Uploader used by S3.
type Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// ObjectAPI is the part of the S3 client used by S3.
type ObjectAPI interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
	DeleteObjectWithContext(ctx aws.Context, input *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error)
}

// S3 stores objects in a single bucket.
type S3 struct {
	bucket   string
	uploader Uploader
	api      ObjectAPI
}

// NewS3 opens an AWS session for region and targets bucket.
func NewS3(bucket, region string) (*S3, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage: s3 bucket required")
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("storage: aws session: %w", err)
	}
	return NewS3WithClients(bucket, s3manager.NewUploader(sess), s3.New(sess)), nil
}

// NewS3WithClients wires explicit clients, mainly for tests.
func NewS3WithClients(bucket string, uploader Uploader, api ObjectAPI) *S3 {
	return &S3{bucket: bucket, uploader: uploader, api: api}
}

// Put uploads body under key.
func (s *S3) Put(ctx context.Context, key, contentType string, body []byte) (Object, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return Object{}, err
	}
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(cleaned),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("storage: s3 upload: %w", err)
	}
	return Object{Key: cleaned, Size: int64(len(body)), ContentType: contentType, Location: out.Location}, nil
}

// Get downloads the object under key.
func (s *S3) Get(ctx context.Context, key string) ([]byte, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(cleaned),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("storage: s3 get: %w", err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("storage: s3 read: %w", err)
	}
	return data, nil
}

// Delete removes the object under key.
func (s *S3) Delete(ctx context.Context, key string) error {
	cleaned, err := CleanKey(key)
	if err != nil {
		return err
	}
	if _, err := s.api.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(cleaned),
	}); err != nil {
		return fmt.Errorf("storage: s3 delete: %w", err)
	}
	return nil
}
