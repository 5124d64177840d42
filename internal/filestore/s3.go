package filestore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	commons3 "github.com/xxxsen/common/s3"
)

type s3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	UseSSL    bool   `json:"use_ssl"`
}

type s3Store struct {
	client *commons3.S3Client
	prefix string
}

func init() {
	Register("s3", createS3Store)
}

func createS3Store(args interface{}) (Store, error) {
	config := &s3Config{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Endpoint == "" || config.Bucket == "" || config.SecretID == "" || config.SecretKey == "" {
		return nil, fmt.Errorf("s3 endpoint/bucket/secret_id/secret_key are required")
	}
	if config.Region == "" {
		config.Region = "cn"
	}
	client, err := commons3.New(
		commons3.WithEndpoint(config.Endpoint),
		commons3.WithSecret(config.SecretID, config.SecretKey),
		commons3.WithBucket(config.Bucket),
		commons3.WithRegion(config.Region),
		commons3.WithSSL(config.UseSSL),
	)
	if err != nil {
		return nil, err
	}
	return &s3Store{
		client: client,
		prefix: strings.Trim(config.Prefix, "/"),
	}, nil
}

func (s *s3Store) objectKey(key string) string {
	if s.prefix != "" {
		return path.Join(s.prefix, key)
	}
	return key
}

func (s *s3Store) Save(ctx context.Context, key string, r io.ReadSeeker, size int64) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := s.client.Upload(ctx, s.objectKey(key), r, size); err != nil {
		return err
	}
	return nil
}

func (s *s3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	_ = ctx
	_ = key
	return nil, fmt.Errorf("s3 store does not support open")
}
