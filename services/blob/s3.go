package blobsvc

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
)

// S3 keeps the files in a bucket. Objects are public-read.
type S3 struct {
	client  *s3.S3
	bucket  string
	baseURL string
}

var _ core.BlobStore = (*S3)(nil)

func NewS3(conf core.BlobConfig) (*S3, error) {
	if conf.S3Bucket == "" || conf.S3Region == "" {
		return nil, errors.New("s3 bucket and region are required")
	}
	awsConf := &aws.Config{Region: aws.String(conf.S3Region)}
	if conf.S3AccessKey != "" {
		awsConf.Credentials = credentials.NewStaticCredentials(conf.S3AccessKey, conf.S3SecretKey, "")
	}
	sess, err := session.NewSession(awsConf)
	if err != nil {
		return nil, errors.Wrap(err, "creating aws session")
	}
	baseURL := conf.PublicBaseURL
	if baseURL == "" || baseURL[0] == '/' {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", conf.S3Bucket, conf.S3Region)
	}
	return NewS3WithClient(s3.New(sess), conf.S3Bucket, baseURL), nil
}

func NewS3WithClient(client *s3.S3, bucket, baseURL string) *S3 {
	return &S3{client: client, bucket: bucket, baseURL: baseURL}
}

func (s *S3) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "reading blob")
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
		ACL:    aws.String(s3.ObjectCannedACLPublicRead),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObjectWithContext(ctx, input); err != nil {
		return "", errors.Wrapf(err, "uploading %s to s3", key)
	}
	return s.baseURL + "/" + key, nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return errors.Wrapf(err, "deleting %s from s3", key)
}
