package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/imgreader/internal/location"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const DefaultEndpoint = "s3.amazonaws.com"

// ErrObjectNotFound is returned when the bucket or key does not exist
var ErrObjectNotFound = errors.New("object not found")

// ErrAccessDenied is returned when the store rejects the request
var ErrAccessDenied = errors.New("access denied")

// Resolver resolves s3://bucket/key URIs against an S3-compatible store.
// Plain resolution is anonymous; ResolveWithAuth signs with static keys.
type Resolver struct {
	Endpoint string
	Region   string
	UseSSL   bool

	anonOnce sync.Once
	anon     *minio.Client
	anonErr  error
}

// New creates an S3 resolver. The endpoint may be a host[:port] or an
// http(s) URL; an https URL or empty endpoint enables TLS.
func New(endpoint, region string) *Resolver {
	r := &Resolver{Endpoint: DefaultEndpoint, Region: region, UseSSL: true}
	if endpoint != "" {
		r.Endpoint, r.UseSSL = splitEndpoint(endpoint, true)
	}
	return r
}

func splitEndpoint(endpoint string, defaultSSL bool) (string, bool) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint, defaultSSL
	}
	return u.Host, u.Scheme == "https"
}

func (r *Resolver) Name() string { return "s3" }

func (r *Resolver) Supports(id location.Identifier) bool {
	return id.Scheme() == "s3"
}

// Resolve uses an anonymous client shared by every plain resolution
func (r *Resolver) Resolve(ctx context.Context, id location.Identifier) (location.Location, error) {
	r.anonOnce.Do(func() {
		r.anon, r.anonErr = minio.New(r.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4("", "", ""),
			Secure: r.UseSSL,
			Region: r.Region,
		})
	})
	if r.anonErr != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", r.anonErr)
	}
	return newLocation(ctx, r.anon, id)
}

// ResolveWithAuth uses the access key pair from creds. Endpoint and region
// in creds override the resolver defaults. The client lives only as long as
// the returned location.
func (r *Resolver) ResolveWithAuth(ctx context.Context, id location.Identifier, creds *location.Credentials) (location.Location, error) {
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return nil, fmt.Errorf("access key id and secret access key are required")
	}

	endpoint, useSSL := r.Endpoint, r.UseSSL
	if creds.Endpoint != "" {
		endpoint, useSSL = splitEndpoint(creds.Endpoint, r.UseSSL)
	}
	region := r.Region
	if creds.Region != "" {
		region = creds.Region
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return newLocation(ctx, client, id)
}

func parseBucketKey(id location.Identifier) (string, string, error) {
	u := id.URL()
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("identifier %q has no bucket", id.String())
	}
	if key == "" {
		return "", "", fmt.Errorf("identifier %q has no object key", id.String())
	}
	return bucket, key, nil
}

func newLocation(ctx context.Context, client *minio.Client, id location.Identifier) (*Location, error) {
	bucket, key, err := parseBucketKey(id)
	if err != nil {
		return nil, err
	}

	info, err := client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, classifyError(err)
	}

	return &Location{
		uri:         id.String(),
		Bucket:      bucket,
		Key:         key,
		Size:        info.Size,
		ContentType: info.ContentType,
		client:      client,
	}, nil
}

// Location is an object in an S3-compatible store
type Location struct {
	uri         string
	Bucket      string
	Key         string
	Size        int64
	ContentType string
	client      *minio.Client
}

func (l *Location) URI() string { return l.uri }

func (l *Location) Open(ctx context.Context) (io.ReadCloser, error) {
	obj, err := l.client.GetObject(ctx, l.Bucket, l.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyError(err)
	}
	return obj, nil
}

func (l *Location) String() string { return "s3://" + l.Bucket + "/" + l.Key }

func classifyError(err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchBucket", "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %w", ErrObjectNotFound, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
	return fmt.Errorf("failed to access object: %w", err)
}
