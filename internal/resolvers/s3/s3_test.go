package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/imgreader/internal/location"
	"github.com/minio/minio-go/v7"
)

const errorXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>%s</Code><Message>%s</Message><Key>%s</Key><BucketName>bucket</BucketName><RequestId>1</RequestId></Error>`

type seenRequest struct {
	Method string
	Path   string
	Signed bool
}

// objectStore serves bucket/k.png to anyone, bucket/secret.png only to
// signed requests, and NoSuchKey for everything else
func objectStore(t *testing.T) (*httptest.Server, func() []seenRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []seenRequest
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signed := strings.HasPrefix(r.Header.Get("Authorization"), "AWS4-HMAC-SHA256")
		mu.Lock()
		seen = append(seen, seenRequest{Method: r.Method, Path: r.URL.Path, Signed: signed})
		mu.Unlock()

		writeErr := func(status int, code string) {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(status)
			if r.Method != http.MethodHead {
				_, _ = fmt.Fprintf(w, errorXML, code, code, r.URL.Path)
			}
		}

		switch r.URL.Path {
		case "/bucket/k.png":
		case "/bucket/secret.png":
			if !signed {
				writeErr(http.StatusForbidden, "AccessDenied")
				return
			}
		default:
			writeErr(http.StatusNotFound, "NoSuchKey")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", "5")
		w.Header().Set("ETag", `"5d41402abc4b2a76b9719d911017c592"`)
		w.Header().Set("Last-Modified", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte("hello"))
		}
	}))
	t.Cleanup(server.Close)

	return server, func() []seenRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]seenRequest(nil), seen...)
	}
}

func TestNewEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		host     string
		useSSL   bool
	}{
		{endpoint: "", host: DefaultEndpoint, useSSL: true},
		{endpoint: "http://127.0.0.1:9000", host: "127.0.0.1:9000", useSSL: false},
		{endpoint: "https://minio.example.org", host: "minio.example.org", useSSL: true},
		{endpoint: "minio.example.org", host: "minio.example.org", useSSL: true},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			r := New(tt.endpoint, "us-east-1")
			if r.Endpoint != tt.host || r.UseSSL != tt.useSSL {
				t.Errorf("Expected %s (ssl=%v), got %s (ssl=%v)", tt.host, tt.useSSL, r.Endpoint, r.UseSSL)
			}
		})
	}

	// a bare host keeps whatever TLS default the caller passes
	if host, useSSL := splitEndpoint("minio.local:9000", false); host != "minio.local:9000" || useSSL {
		t.Errorf("Expected minio.local:9000 without TLS, got %s (ssl=%v)", host, useSSL)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		code     string
		expected error
	}{
		{code: "NoSuchKey", expected: ErrObjectNotFound},
		{code: "NoSuchBucket", expected: ErrObjectNotFound},
		{code: "AccessDenied", expected: ErrAccessDenied},
		{code: "SignatureDoesNotMatch", expected: ErrAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := classifyError(minio.ErrorResponse{Code: tt.code})
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}

	err := classifyError(minio.ErrorResponse{Code: "SlowDown"})
	if errors.Is(err, ErrObjectNotFound) || errors.Is(err, ErrAccessDenied) {
		t.Errorf("Expected an unclassified error, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	server, seen := objectStore(t)
	keys := &location.Credentials{AccessKeyID: "AK", SecretAccessKey: "SK"}

	tests := []struct {
		name     string
		uri      string
		creds    *location.Credentials
		expected error
		wantErr  bool
		signed   bool
	}{
		{name: "anonymous", uri: "s3://bucket/k.png"},
		{name: "anonymous missing key", uri: "s3://bucket/missing.png", expected: ErrObjectNotFound},
		{name: "anonymous denied", uri: "s3://bucket/secret.png", expected: ErrAccessDenied},
		{name: "signed", uri: "s3://bucket/secret.png", creds: keys, signed: true},
		{name: "signed missing key", uri: "s3://bucket/missing.png", creds: keys, expected: ErrObjectNotFound},
		{name: "incomplete keys", uri: "s3://bucket/k.png", creds: &location.Credentials{AccessKeyID: "AK"}, wantErr: true},
		{name: "no object key", uri: "s3://bucket", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(server.URL, "us-east-1")
			before := len(seen())

			var (
				loc location.Location
				err error
			)
			id := location.MustParseIdentifier(tt.uri)
			if tt.creds != nil {
				loc, err = r.ResolveWithAuth(context.Background(), id, tt.creds)
			} else {
				loc, err = r.Resolve(context.Background(), id)
			}

			if tt.expected != nil || tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got location %v", loc)
				}
				if tt.expected != nil && !errors.Is(err, tt.expected) {
					t.Errorf("Expected %v, got %v", tt.expected, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			got := seen()[before:]
			if len(got) == 0 || got[0].Method != http.MethodHead {
				t.Fatalf("Expected a HEAD request, got %+v", got)
			}
			if got[0].Signed != tt.signed {
				t.Errorf("Expected signed=%v, got %v", tt.signed, got[0].Signed)
			}

			l := loc.(*Location)
			if l.Size != 5 || l.ContentType != "image/png" || l.String() != tt.uri {
				t.Errorf("Unexpected location: %+v", l)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	server, _ := objectStore(t)
	r := New(server.URL, "us-east-1")

	loc, err := r.Resolve(context.Background(), location.MustParseIdentifier("s3://bucket/k.png"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	rc, err := loc.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Expected hello, got %q", data)
	}
}

func TestCredentialsEndpointOverridesResolver(t *testing.T) {
	server, seen := objectStore(t)
	r := New("http://127.0.0.1:1", "us-east-1")

	creds := &location.Credentials{AccessKeyID: "AK", SecretAccessKey: "SK", Endpoint: server.URL}
	if _, err := r.ResolveWithAuth(context.Background(), location.MustParseIdentifier("s3://bucket/k.png"), creds); err != nil {
		t.Fatalf("ResolveWithAuth failed: %v", err)
	}
	if len(seen()) == 0 {
		t.Error("Expected the request to reach the credentials endpoint")
	}
}

func TestAnonymousClientIsShared(t *testing.T) {
	server, _ := objectStore(t)
	r := New(server.URL, "us-east-1")
	ctx := context.Background()
	id := location.MustParseIdentifier("s3://bucket/k.png")

	first, err := r.Resolve(ctx, id)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := r.Resolve(ctx, id)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first.(*Location).client != second.(*Location).client {
		t.Error("Expected plain resolutions to share one client")
	}

	signed, err := r.ResolveWithAuth(ctx, id, &location.Credentials{AccessKeyID: "AK", SecretAccessKey: "SK"})
	if err != nil {
		t.Fatalf("ResolveWithAuth failed: %v", err)
	}
	if signed.(*Location).client == r.anon {
		t.Error("Expected authenticated resolution to use its own client")
	}
}
