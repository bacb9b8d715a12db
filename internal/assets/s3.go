package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by the S3 binding.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3 serves assets stored as objects in an S3 bucket.
type S3 struct {
	client S3API
	bucket string
	prefix string
}

// NewS3 returns a binding reading objects from bucket below prefix.
func NewS3(client S3API, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

// OpenS3 builds an S3 client from the default AWS credential chain.
func OpenS3(ctx context.Context, bucket, region, prefix string) (*S3, error) {
	if bucket == "" || region == "" {
		return nil, errors.New("s3 assets require bucket and region")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewS3(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// Fetch implements worker.Fetcher.
func (b *S3) Fetch(r *http.Request) (*http.Response, error) {
	if !readOnly(r.Method) {
		return methodNotAllowed(r), nil
	}

	key := path.Join(b.prefix, assetKey(r.URL.Path))

	if r.Method == http.MethodHead {
		out, err := b.client.HeadObject(r.Context(), &s3.HeadObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(key),
		})
		if isNotFound(err) {
			return notFound(r), nil
		}
		if err != nil {
			return nil, fmt.Errorf("head s3://%s/%s: %w", b.bucket, key, err)
		}

		meta := objectMeta{out.ContentType, out.ETag, out.CacheControl, out.LastModified, out.ContentLength}
		header, length := meta.header(key)
		return newResponse(r, http.StatusOK, header, http.NoBody, length), nil
	}

	out, err := b.client.GetObject(r.Context(), &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return notFound(r), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", b.bucket, key, err)
	}

	meta := objectMeta{out.ContentType, out.ETag, out.CacheControl, out.LastModified, out.ContentLength}
	header, length := meta.header(key)
	return newResponse(r, http.StatusOK, header, out.Body, length), nil
}

// objectMeta is the object metadata shared by GetObject and HeadObject.
type objectMeta struct {
	contentType   *string
	etag          *string
	cacheControl  *string
	lastModified  *time.Time
	contentLength *int64
}

func (m objectMeta) header(key string) (http.Header, int64) {
	header := make(http.Header)
	if ct := aws.ToString(m.contentType); ct != "" {
		header.Set("Content-Type", ct)
	} else {
		header.Set("Content-Type", contentType(key, nil))
	}
	if etag := aws.ToString(m.etag); etag != "" {
		header.Set("ETag", etag)
	}
	if cc := aws.ToString(m.cacheControl); cc != "" {
		header.Set("Cache-Control", cc)
	}
	if m.lastModified != nil {
		header.Set("Last-Modified", m.lastModified.UTC().Format(http.TimeFormat))
	}

	length := int64(-1)
	if m.contentLength != nil {
		length = *m.contentLength
		header.Set("Content-Length", strconv.FormatInt(length, 10))
	}
	return header, length
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}

	var status interface{ HTTPStatusCode() int }
	return errors.As(err, &status) && status.HTTPStatusCode() == http.StatusNotFound
}
