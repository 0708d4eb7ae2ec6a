package pagearchive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"tutorui/internal/genui"
	"tutorui/internal/util/initgate"
)

const defaultRegion = "us-east-1"

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// normalize trims every field, fills the default region and reports all
// missing settings at once.
func (c S3Config) normalize() (S3Config, error) {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.Region = strings.TrimSpace(c.Region)
	c.AccessKey = strings.TrimSpace(c.AccessKey)
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.Bucket = strings.TrimSpace(c.Bucket)
	if c.Region == "" {
		c.Region = defaultRegion
	}
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("s3 endpoint is required"))
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		errs = append(errs, errors.New("s3 access key and secret key are required"))
	}
	if c.Bucket == "" {
		errs = append(errs, errors.New("s3 bucket is required"))
	}
	return c, errors.Join(errs...)
}

// S3Store keeps one JSON object per page. The bucket is created on first
// use; a failed attempt is retried by the next Put or Get.
type S3Store struct {
	client *minio.Client
	cfg    S3Config
	bucket initgate.Gate
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Store{client: client, cfg: cfg}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("store is nil")
	}
	err := s.bucket.Do(ctx, func(ctx context.Context) error {
		exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
		if err != nil || exists {
			return err
		}
		err = s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region})
		if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("ensure bucket %s: %w", s.cfg.Bucket, err)
	}
	return nil
}

func (s *S3Store) Put(ctx context.Context, userID string, page genui.Page) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	raw, err := encodePage(page)
	if err != nil {
		return "", err
	}
	key := newKey(userID)
	_, err = s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *S3Store) Get(ctx context.Context, key string) (genui.Page, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return genui.Page{}, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return genui.Page{}, err
	}
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return genui.Page{}, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return genui.Page{}, ErrNotFound
		}
		return genui.Page{}, err
	}
	return decodePage(data)
}
