package patients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

const DefaultKey = "patientdata.json"

// ObjectAPI is the subset of the S3 client the store needs.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// NewS3Client builds an S3 client from the default credential chain. A
// non-empty endpoint switches to path-style addressing for S3 compatible
// stores such as MinIO or LocalStack.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Store reads and writes the patient dataset stored as one JSON array object.
type S3Store struct {
	api    ObjectAPI
	bucket string
	key    string
	logger *logrus.Logger
}

func NewS3Store(api ObjectAPI, bucket, key string, logger *logrus.Logger) *S3Store {
	if key == "" {
		key = DefaultKey
	}
	return &S3Store{
		api:    api,
		bucket: bucket,
		key:    key,
		logger: logger,
	}
}

func (s *S3Store) Bucket() string { return s.bucket }
func (s *S3Store) Key() string    { return s.key }

// Load reads the whole dataset.
func (s *S3Store) Load(ctx context.Context) ([]Record, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	records, err := DecodeRecords(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode patient data: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket":  s.bucket,
		"key":     s.key,
		"records": len(records),
	}).Debug("Patient data loaded")

	return records, nil
}

// Save replaces the dataset object.
func (s *S3Store) Save(ctx context.Context, records []Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode patient data: %w", err)
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", s.bucket, s.key, err)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket":  s.bucket,
		"key":     s.key,
		"records": len(records),
		"size":    len(data),
	}).Info("Patient data uploaded")

	return nil
}

// Ping checks that the dataset object exists and is reachable.
func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	return err
}
