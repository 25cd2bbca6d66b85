package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/imgreader/internal/location"
)

// Resolver resolves http and https URIs. With credentials it attaches a
// bearer token or basic auth to the location's request.
type Resolver struct {
	HTTPClient *http.Client
	UserAgent  string
}

// New creates an HTTP resolver with a request timeout
func New(timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resolver{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: "imgreader",
	}
}

func (r *Resolver) Name() string { return "http" }

func (r *Resolver) Supports(id location.Identifier) bool {
	s := id.Scheme()
	return s == "http" || s == "https"
}

func (r *Resolver) Resolve(ctx context.Context, id location.Identifier) (location.Location, error) {
	return r.newLocation(id, nil)
}

// ResolveWithAuth builds a location whose request carries the credentials.
// A token takes precedence over user/password.
func (r *Resolver) ResolveWithAuth(ctx context.Context, id location.Identifier, creds *location.Credentials) (location.Location, error) {
	header := make(http.Header)
	switch {
	case creds.Token != "":
		header.Set("Authorization", "Bearer "+creds.Token)
	case creds.User != "":
		req := &http.Request{Header: make(http.Header)}
		req.SetBasicAuth(creds.User, creds.Password)
		header.Set("Authorization", req.Header.Get("Authorization"))
	default:
		return nil, fmt.Errorf("credentials carry neither a token nor a user")
	}
	return r.newLocation(id, header)
}

func (r *Resolver) newLocation(id location.Identifier, header http.Header) (*Location, error) {
	u := id.URL()
	if u.Host == "" {
		return nil, fmt.Errorf("identifier %q has no host", id.String())
	}
	if header == nil {
		header = make(http.Header)
	}
	if r.UserAgent != "" {
		header.Set("User-Agent", r.UserAgent)
	}
	return &Location{
		uri:    id.String(),
		url:    u.String(),
		header: header,
		client: r.HTTPClient,
	}, nil
}

// Location is an HTTP resource fetched with GET on Open
type Location struct {
	uri    string
	url    string
	header http.Header
	client *http.Client
}

func (l *Location) URI() string { return l.uri }

func (l *Location) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = l.header.Clone()

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

func (l *Location) String() string { return l.url }
