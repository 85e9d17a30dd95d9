package filedrop

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Lister abstracts the drop area so the adapter works against S3 in
// production and a plain directory in development and tests.
type Lister interface {
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// S3Lister lists and downloads delivery files from an S3 bucket.
type S3Lister struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Lister builds an S3-backed lister. An empty profile uses the default
// credential chain (IAM role in deployment).
func NewS3Lister(ctx context.Context, bucket, prefix, region, profile string) (*S3Lister, error) {
	var awsCfg aws.Config
	var err error
	if profile != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithSharedConfigProfile(profile),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &S3Lister{client: s3.NewFromConfig(awsCfg), bucket: bucket, prefix: prefix}, nil
}

// List returns the keys of candidate delivery files: non-empty CSVs under
// the configured prefix.
func (l *S3Lister) List(ctx context.Context) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(l.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(l.bucket),
		Prefix: aws.String(l.prefix),
	})

	var names []string
	for paginator.HasMorePages() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if obj.Size == nil || *obj.Size == 0 {
				continue
			}
			if !strings.HasSuffix(strings.ToLower(key), ".csv") {
				continue
			}
			names = append(names, key)
		}
	}
	return names, nil
}

// Open downloads one file by key.
func (l *S3Lister) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3 object %s: %w", name, err)
	}
	return out.Body, nil
}

// DirLister serves delivery files from a local directory.
type DirLister struct {
	dir string
}

// NewDirLister builds a directory-backed lister.
func NewDirLister(dir string) *DirLister { return &DirLister{dir: dir} }

// List returns the names of non-empty CSV files in the directory.
func (l *DirLister) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read drop dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		if info, err := e.Info(); err != nil || info.Size() == 0 {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Open opens one file by name.
func (l *DirLister) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(l.dir, name))
}
