package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/imgreader/internal/location"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// ErrNoCredentials is returned when credentials hold nothing Cloud Storage can use
var ErrNoCredentials = errors.New("credentials carry neither a credentials file nor an API key")

// Resolver resolves gs://bucket/object URIs with the Cloud Storage JSON API.
// Plain resolution only reaches public objects.
type Resolver struct {
	// Endpoint overrides the API endpoint, mainly for emulators
	Endpoint string

	anonOnce sync.Once
	anon     *storage.Service
	anonErr  error
}

// New returns a Cloud Storage resolver
func New(endpoint string) *Resolver {
	return &Resolver{Endpoint: endpoint}
}

func (r *Resolver) Name() string { return "gcs" }

func (r *Resolver) Supports(id location.Identifier) bool {
	return id.Scheme() == "gs"
}

// Resolve uses an unauthenticated client shared by every plain resolution
func (r *Resolver) Resolve(ctx context.Context, id location.Identifier) (location.Location, error) {
	r.anonOnce.Do(func() {
		r.anon, r.anonErr = r.newService(context.WithoutCancel(ctx), option.WithoutAuthentication())
	})
	if r.anonErr != nil {
		return nil, r.anonErr
	}
	return r.resolve(ctx, id, r.anon)
}

// ResolveWithAuth authenticates with a credentials file or an API key
func (r *Resolver) ResolveWithAuth(ctx context.Context, id location.Identifier, creds *location.Credentials) (location.Location, error) {
	var auth option.ClientOption
	switch {
	case creds.CredentialsFile != "":
		auth = option.WithCredentialsFile(creds.CredentialsFile)
	case creds.APIKey != "":
		auth = option.WithAPIKey(creds.APIKey)
	default:
		return nil, ErrNoCredentials
	}

	svc, err := r.newService(ctx, auth)
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, id, svc)
}

func (r *Resolver) newService(ctx context.Context, auth option.ClientOption) (*storage.Service, error) {
	opts := []option.ClientOption{auth}
	if r.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(r.Endpoint))
	}

	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return svc, nil
}

func (r *Resolver) resolve(ctx context.Context, id location.Identifier, svc *storage.Service) (*Location, error) {
	u := id.URL()
	bucket := u.Host
	object := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || object == "" {
		return nil, fmt.Errorf("identifier %q must be gs://bucket/object", id.String())
	}

	obj, err := svc.Objects.Get(bucket, object).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get object metadata: %w", err)
	}

	return &Location{
		uri:         id.String(),
		Bucket:      bucket,
		Object:      object,
		Size:        int64(obj.Size),
		ContentType: obj.ContentType,
		svc:         svc,
	}, nil
}

// Location is a Cloud Storage object
type Location struct {
	uri         string
	Bucket      string
	Object      string
	Size        int64
	ContentType string
	svc         *storage.Service
}

func (l *Location) URI() string { return l.uri }

func (l *Location) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := l.svc.Objects.Get(l.Bucket, l.Object).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("object download returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (l *Location) String() string { return "gs://" + l.Bucket + "/" + l.Object }
