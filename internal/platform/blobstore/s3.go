package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ConnSettings are the parts of a storage connection string, e.g.
// "BlobEndpoint=http://localhost:9000;AccountName=key;AccountKey=secret;Region=us-east-1".
type ConnSettings struct {
	Endpoint    string
	AccountName string
	AccountKey  string
	Region      string
}

// ErrUnsupportedEndpoint is returned for connection strings that only name
// an Azure Blob account. The S3 API cannot talk to those hosts.
var ErrUnsupportedEndpoint = errors.New("storage connection string: only S3-compatible endpoints are supported")

// ParseConnectionString reads the semicolon-separated key/value form. Without
// a BlobEndpoint the default AWS S3 endpoint for Region is used. Azure-style
// strings (EndpointSuffix, or a *.blob.core.windows.net endpoint) are
// rejected with ErrUnsupportedEndpoint.
func ParseConnectionString(raw string) (ConnSettings, error) {
	var (
		cs     ConnSettings
		suffix string
	)
	for _, part := range strings.Split(raw, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "blobendpoint":
			cs.Endpoint = strings.TrimRight(value, "/")
		case "accountname":
			cs.AccountName = value
		case "accountkey":
			cs.AccountKey = value
		case "region":
			cs.Region = value
		case "endpointsuffix":
			suffix = value
		}
	}

	if cs.AccountName == "" || cs.AccountKey == "" {
		return ConnSettings{}, fmt.Errorf("storage connection string: AccountName and AccountKey are required")
	}
	if cs.Endpoint == "" && suffix != "" {
		return ConnSettings{}, fmt.Errorf("%w: set BlobEndpoint instead of EndpointSuffix %q", ErrUnsupportedEndpoint, suffix)
	}
	if strings.Contains(strings.ToLower(cs.Endpoint), ".blob.core.") {
		return ConnSettings{}, fmt.Errorf("%w: %s is an Azure Blob endpoint", ErrUnsupportedEndpoint, cs.Endpoint)
	}
	if cs.Region == "" {
		cs.Region = "us-east-1"
	}
	return cs, nil
}

// S3 stores blobs in one bucket of an S3-compatible service.
type S3 struct {
	client *s3.Client
	bucket string
}

func NewS3(ctx context.Context, cs ConnSettings, bucket string) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cs.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cs.AccountName, cs.AccountKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cs.Endpoint != "" {
			o.BaseEndpoint = aws.String(cs.Endpoint)
		}
	})
	return &S3{client: client, bucket: bucket}, nil
}

func (s *S3) Put(ctx context.Context, key string, data []byte, contentType string) (*Object, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("put %s/%s: %w", s.bucket, key, err)
	}
	return &Object{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		ETag:        strings.Trim(aws.ToString(out.ETag), `"`),
	}, nil
}

func (s *S3) Get(ctx context.Context, key string) ([]byte, *Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("get %s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s/%s: %w", s.bucket, key, err)
	}
	obj := &Object{
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		Size:        int64(len(data)),
		ETag:        strings.Trim(aws.ToString(out.ETag), `"`),
	}
	if out.LastModified != nil {
		obj.LastModified = *out.LastModified
	}
	return data, obj, nil
}

func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("head %s/%s: %w", s.bucket, key, err)
}

func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3) List(ctx context.Context, prefix string) ([]*Object, error) {
	var out []*Object
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", s.bucket, prefix, err)
		}
		for _, item := range page.Contents {
			obj := &Object{
				Key:  aws.ToString(item.Key),
				Size: aws.ToInt64(item.Size),
				ETag: strings.Trim(aws.ToString(item.ETag), `"`),
			}
			if item.LastModified != nil {
				obj.LastModified = *item.LastModified
			}
			out = append(out, obj)
		}
	}
	return out, nil
}
