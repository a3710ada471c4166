// Package archive keeps store snapshots somewhere other than the working file:
// a local directory or an S3 bucket.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/micasa/marketer/internal/config"
	"github.com/micasa/marketer/internal/errors"
)

// Archiver stores and retrieves named snapshot blobs.
type Archiver interface {
	// Put stores r under name and returns where it ended up.
	Put(ctx context.Context, name string, r io.Reader) (string, error)
	// Open returns the blob stored under name.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// New returns the archiver selected by cfg.Kind.
func New(cfg config.ArchiveConfig) (Archiver, error) {
	switch cfg.Kind {
	case "", "local":
		return &Local{Dir: cfg.Dir}, nil
	case "s3":
		return NewS3(cfg)
	default:
		return nil, errors.NewSetup(fmt.Sprintf("unknown archive kind %q", cfg.Kind))
	}
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid snapshot name %q", name))
	}
	return nil
}

// Local copies snapshots into Dir.
type Local struct {
	Dir string
}

func (l *Local) Put(_ context.Context, name string, r io.Reader) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(l.Dir, 0755); err != nil {
		return "", errors.NewInternal(fmt.Errorf("create archive dir: %w", err))
	}
	dest := filepath.Join(l.Dir, name)
	tmp, err := os.CreateTemp(l.Dir, ".snapshot-*")
	if err != nil {
		return "", errors.NewInternal(err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", errors.NewInternal(fmt.Errorf("write snapshot: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", errors.NewInternal(err)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.NewInternal(err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", errors.NewInternal(fmt.Errorf("move snapshot into place: %w", err))
	}
	return dest, nil
}

func (l *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(l.Dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(name)
		}
		return nil, errors.NewInternal(err)
	}
	return f, nil
}

// S3 uploads snapshots to a bucket under Prefix.
type S3 struct {
	Bucket   string
	Prefix   string
	client   *s3.S3
	uploader *s3manager.Uploader
}

// NewS3 creates an S3 archiver. A custom endpoint switches to path-style
// addressing for S3-compatible stores. Extra configs are merged last.
func NewS3(cfg config.ArchiveConfig, extra ...*aws.Config) (*S3, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.NewSetup("archive.s3_bucket is required")
	}
	awsConfig := &aws.Config{}
	if cfg.S3Region != "" {
		awsConfig.Region = aws.String(cfg.S3Region)
	}
	if cfg.S3Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.S3Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(append([]*aws.Config{awsConfig}, extra...)...)
	if err != nil {
		return nil, errors.NewSetup(fmt.Sprintf("failed to create AWS session: %v", err))
	}
	client := s3.New(sess)
	return &S3{
		Bucket:   cfg.S3Bucket,
		Prefix:   strings.Trim(cfg.S3Prefix, "/"),
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
	}, nil
}

func (a *S3) key(name string) string {
	if a.Prefix == "" {
		return name
	}
	return path.Join(a.Prefix, name)
}

func (a *S3) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	_, err := a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(a.Bucket),
		Key:         aws.String(a.key(name)),
		Body:        r,
		ContentType: aws.String("application/zstd"),
	})
	if err != nil {
		return "", errors.NewNetwork("s3", err)
	}
	return fmt.Sprintf("s3://%s/%s", a.Bucket, a.key(name)), nil
}

func (a *S3) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	out, err := a.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.Bucket),
		Key:    aws.String(a.key(name)),
	})
	if err != nil {
		return nil, errors.NewNetwork("s3", err)
	}
	return out.Body, nil
}
